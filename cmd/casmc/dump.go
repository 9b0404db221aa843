package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sierracasm/internal/artifact"
	"sierracasm/internal/version"
)

var dumpShowDebug bool

func init() {
	dumpCmd.Flags().BoolVar(&dumpShowDebug, "debug", false, "print the statement table")
}

var dumpCmd = &cobra.Command{
	Use:   "dump <artifact>",
	Short: "Print a compiled msgpack artifact as assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := artifact.Read(args[0], version.Version)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "// compiled by casmc %s, %d words\n", a.Header.CompilerVersion, a.Program.Size())
		if err := a.Program.Dump(out); err != nil {
			return err
		}
		if dumpShowDebug {
			fmt.Fprintln(out, "// statement  offset  instrs  libfunc")
			for _, s := range a.Program.Debug.Statements {
				fmt.Fprintf(out, "// %9d  %6d  %6d  %s\n", s.Statement, s.Offset, s.Instructions, s.Libfunc)
			}
		}
		if a.Timings != nil && len(a.Timings.Phases) > 0 {
			parts := make([]string, len(a.Timings.Phases))
			for i, p := range a.Timings.Phases {
				parts[i] = fmt.Sprintf("%s=%.2fms", p.Name, p.DurationMS)
			}
			fmt.Fprintf(out, "// timings: %s\n", strings.Join(parts, " "))
		}
		return nil
	},
}
