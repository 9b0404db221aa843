package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sierracasm/internal/buildpipeline"
	"sierracasm/internal/diag"
	"sierracasm/internal/trace"
	"sierracasm/internal/version"
)

var buildCmd = &cobra.Command{
	Use:   "build <program.toml>...",
	Short: "Compile several programs concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.String("out-dir", "", "directory for outputs (default: next to each input)")
	f.String("format", "text", "output format (text|msgpack)")
	f.Int("jobs", 0, "files compiled at once (0 uses GOMAXPROCS)")
	f.String("ui", "auto", "user interface (auto|on|off)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return err
	}
	formatValue, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	tui, err := wantTUI(uiValue)
	if err != nil {
		return err
	}
	format := buildpipeline.Format(strings.ToLower(formatValue))
	if format != buildpipeline.FormatText && format != buildpipeline.FormatMsgpack {
		return fmt.Errorf("unsupported format %q (must be text or msgpack)", formatValue)
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
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

	req := buildpipeline.Request{
		Files:          args,
		OutDir:         outDir,
		Format:         format,
		Jobs:           jobs,
		SpecializeJobs: cfg.Compiler.Jobs,
		MaxDiagnostics: cfg.Compiler.MaxDiagnostics,
		Version:        version.Version,
	}
	var res buildpipeline.Result
	if tui {
		res, err = runBuildWithUI(cmd.Context(), "casmc build", req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), &req)
	}
	if err != nil {
		return err
	}
	return reportBuild(cmd, res, tracer)
}

// wantTUI resolves --ui; auto enables the progress view on a terminal.
func wantTUI(value string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

func reportBuild(cmd *cobra.Command, res buildpipeline.Result, tracer trace.Tracer) error {
	out := cmd.OutOrStdout()
	all := diag.NewBag(0)
	for _, f := range res.Files {
		all.Merge(f.Diagnostics)
	}
	all.Sort()
	printDiagnostics(cmd, all)
	for _, f := range res.Files {
		if f.Failed() {
			fmt.Fprintf(out, "FAIL %s\n", f.Path)
			continue
		}
		fmt.Fprintf(out, "ok   %s -> %s (%d words, %.1fms)\n",
			f.Path, f.Output, f.Program.Size(), float64(f.Elapsed.Microseconds())/1000)
	}
	if n := res.Failed(); n > 0 {
		dumpRing(cmd, tracer)
		return fmt.Errorf("%d of %d programs failed: %w", n, len(res.Files), errCompileFailed)
	}
	return nil
}
