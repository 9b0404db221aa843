package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sierracasm/internal/config"
	"sierracasm/internal/trace"
)

// setupTracing creates the tracer described by cfg and attaches it to the
// command context. The returned cleanup flushes and closes it.
func setupTracing(cmd *cobra.Command, cfg config.Config) (trace.Tracer, func(), error) {
	tc, err := cfg.TraceConfig()
	if err != nil {
		return nil, nil, err
	}
	if tc.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func() {}, nil
	}

	tracer, err := trace.New(tc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	heartbeat := trace.StartHeartbeat(tracer, tc.Heartbeat)
	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}

// dumpRing writes the crash ring, if tracing kept one, to stderr.
func dumpRing(cmd *cobra.Command, tracer trace.Tracer) {
	ring := trace.Ring(tracer)
	if ring == nil {
		return
	}
	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, "-- last trace events --")
	if err := ring.Dump(out, trace.FormatText); err != nil {
		fmt.Fprintf(out, "trace: dump error: %v\n", err)
	}
}
