package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sierracasm/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "casmc",
	Short: "Sierra to CASM compiler",
	Long:  `casmc lowers Sierra programs described in TOML to Cairo assembly`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to casmc.toml (default: search upwards from the working directory)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("diagnostics-format", "pretty", "diagnostics output (pretty|json)")
	pf.String("diagnostics-paths", "as-is", "file paths in JSON diagnostics (as-is|absolute|relative|basename)")
	pf.Int("max-diagnostics", 0, "maximum number of diagnostics to keep (0 uses the config value)")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 0, "trace ring buffer capacity")
	pf.Duration("trace-heartbeat", 0, "trace heartbeat interval")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves --color against the terminal attached to f.
func useColor(cmd *cobra.Command, f *os.File) bool {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false
	}
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	return isTerminal(f)
}
