package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sierracasm/internal/config"
)

// loadSettings layers casmc.toml, then CASMC_* variables, then flags.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	pf := cmd.Root().PersistentFlags()
	path, err := pf.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFrom(".")
	}
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv()

	if pf.Changed("max-diagnostics") {
		if cfg.Compiler.MaxDiagnostics, err = pf.GetInt("max-diagnostics"); err != nil {
			return config.Config{}, err
		}
	}
	if pf.Changed("trace") {
		if cfg.Trace.Output, err = pf.GetString("trace"); err != nil {
			return config.Config{}, err
		}
		// an explicit output without a level means "show passes"
		if cfg.Trace.Level == "off" && !pf.Changed("trace-level") {
			cfg.Trace.Level = "phase"
			cfg.Trace.Mode = "stream"
		}
	}
	if pf.Changed("trace-level") {
		if cfg.Trace.Level, err = pf.GetString("trace-level"); err != nil {
			return config.Config{}, err
		}
	}
	if pf.Changed("trace-mode") {
		if cfg.Trace.Mode, err = pf.GetString("trace-mode"); err != nil {
			return config.Config{}, err
		}
	}
	if pf.Changed("trace-ring-size") {
		if cfg.Trace.RingSize, err = pf.GetInt("trace-ring-size"); err != nil {
			return config.Config{}, err
		}
	}
	if pf.Changed("trace-heartbeat") {
		hb, err := pf.GetDuration("trace-heartbeat")
		if err != nil {
			return config.Config{}, err
		}
		cfg.Trace.Heartbeat = hb.String()
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
