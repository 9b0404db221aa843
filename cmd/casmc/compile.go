package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sierracasm/internal/buildpipeline"
	"sierracasm/internal/compiler"
	"sierracasm/internal/config"
	"sierracasm/internal/diag"
	"sierracasm/internal/diagfmt"
	"sierracasm/internal/observ"
	"sierracasm/internal/sierra"
	"sierracasm/internal/sierrafile"
	"sierracasm/internal/trace"
	"sierracasm/internal/version"
)

var errCompileFailed = errors.New("compilation failed")

type compileOptions struct {
	output  string
	format  string
	jobs    int
	watch   bool
	timings bool
}

var compileFlags compileOptions

func init() {
	f := compileCmd.Flags()
	f.StringVarP(&compileFlags.output, "output", "o", "", "output file (default: stdout for text)")
	f.StringVar(&compileFlags.format, "format", "text", "output format (text|msgpack)")
	f.IntVar(&compileFlags.jobs, "jobs", 0, "parallel specialization jobs (0 uses the config value)")
	f.BoolVar(&compileFlags.watch, "watch", false, "recompile whenever the program file changes")
	f.BoolVar(&compileFlags.timings, "timings", false, "print pass timings")
}

var compileCmd = &cobra.Command{
	Use:   "compile <program.toml>",
	Short: "Compile a program to assembly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := compileFlags
		opts.format = strings.ToLower(opts.format)
		switch opts.format {
		case "text":
		case "msgpack":
			if opts.output == "" {
				return fmt.Errorf("--format msgpack needs -o")
			}
		default:
			return fmt.Errorf("unsupported format %q (must be text or msgpack)", compileFlags.format)
		}

		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("jobs") {
			cfg.Compiler.Jobs = opts.jobs
		}
		tracer, cleanup, err := setupTracing(cmd, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		defer stopProfiling()
		cmd.SilenceUsage = true

		path := args[0]
		if opts.watch {
			return watchProgram(cmd, path, func() {
				if err := compileOnce(cmd, tracer, path, cfg, opts); err != nil && !errors.Is(err, errCompileFailed) {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				}
			})
		}
		return compileOnce(cmd, tracer, path, cfg, opts)
	},
}

// compileOnce compiles path and writes the result. Program errors are
// printed as diagnostics and reported as errCompileFailed.
func compileOnce(cmd *cobra.Command, tracer trace.Tracer, path string, cfg config.Config, opts compileOptions) error {
	stderr := cmd.ErrOrStderr()
	span := trace.Begin(tracer, trace.ScopeDriver, "compile", 0)
	defer span.End(path)
	ctx := trace.WithSpan(cmd.Context(), span)

	var timer *observ.Timer
	if opts.timings {
		timer = observ.NewTimer()
	}

	phase := timer.Begin("load")
	reg := sierra.NewCoreRegistry()
	prog, err := sierrafile.Load(path, reg)
	timer.End(phase, "")
	if err != nil {
		bag := diag.NewBag(1)
		bag.Add(diag.NewError(buildpipeline.LoadCode(err), diag.InFile(path), err.Error()))
		printDiagnostics(cmd, bag)
		dumpRing(cmd, tracer)
		return errCompileFailed
	}

	out, bag, err := compiler.Compile(ctx, reg, prog, compiler.Options{
		File:           path,
		Jobs:           cfg.Compiler.Jobs,
		MaxDiagnostics: cfg.Compiler.MaxDiagnostics,
		Timer:          timer,
	})
	if err != nil {
		return err
	}
	printDiagnostics(cmd, bag)
	if out == nil {
		dumpRing(cmd, tracer)
		return errCompileFailed
	}

	phase = timer.Begin("write")
	err = writeProgram(cmd.OutOrStdout(), out, opts, timer)
	timer.End(phase, opts.format)
	if err != nil {
		bag := diag.NewBag(1)
		bag.Add(diag.NewError(diag.IOWriteFailed, diag.InFile(opts.output), err.Error()))
		printDiagnostics(cmd, bag)
		return errCompileFailed
	}
	if timer != nil {
		fmt.Fprint(stderr, timer.Summary())
	}
	return nil
}

func writeProgram(stdout io.Writer, p *compiler.Program, opts compileOptions, timer *observ.Timer) error {
	if opts.format == "text" && opts.output == "" {
		return p.Dump(stdout)
	}
	var timings *observ.Report
	if timer != nil {
		r := timer.Report()
		timings = &r
	}
	return buildpipeline.WriteOutput(opts.output, p, buildpipeline.Format(opts.format), version.Version, timings)
}

func printDiagnostics(cmd *cobra.Command, bag *diag.Bag) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	pf := cmd.Root().PersistentFlags()
	format, _ := pf.GetString("diagnostics-format")
	var err error
	if format == "json" {
		paths, _ := pf.GetString("diagnostics-paths")
		mode, perr := diagfmt.ParsePathMode(paths)
		if perr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", perr)
		}
		err = diagfmt.JSON(cmd.ErrOrStderr(), bag, diagfmt.JSONOpts{PathMode: mode, IncludeNotes: true})
	} else {
		err = diag.Pretty(cmd.ErrOrStderr(), bag, diag.PrettyOpts{
			Color:     useColor(cmd, os.Stderr),
			ShowNotes: true,
		})
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed to print diagnostics: %v\n", err)
	}
}
