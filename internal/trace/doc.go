// Package trace records what the compiler is doing while it runs.
//
// Spans mark the driver, each compilation pass (specialization, statement
// compilation, relocation) and, at higher levels, each compiled statement.
// Tracers either stream events as they happen or keep the most recent ones
// in a ring buffer that is dumped when compilation fails.
//
//	casmc compile --trace=- --trace-level=detail program.toml
//
// Levels from quiet to verbose: off, error (ring dump on failure only),
// phase (driver and passes), detail (statements) and debug.
//
// Tracers travel through the pipeline in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "compile", 0)
//	defer span.End("")
package trace
