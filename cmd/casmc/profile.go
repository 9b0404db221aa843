package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sierracasm/internal/prof"
)

// setupProfiling starts the profilers requested by the persistent flags. The
// returned cleanup reports write failures on stderr.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	pf := cmd.Root().PersistentFlags()
	var opts prof.Options
	var err error
	if opts.CPU, err = pf.GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if opts.Heap, err = pf.GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if opts.Trace, err = pf.GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !opts.Enabled() {
		return func() {}, nil
	}
	s, err := prof.Start(opts)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := s.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to write profiles: %v\n", err)
		}
	}, nil
}
