// Package trace provides the tracing subsystem for weave.
//
// Tracing follows a module build from the driver down to individual
// statements so that slow or stuck builds can be diagnosed.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	weave build --trace=- --trace-level=detail recipe.toml
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer for crash dumps
//   - LogTracer: forwards events to a zap logger
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: heartbeats only
//   - LevelPhase: driver and module boundaries
//   - LevelDetail: function builds
//   - LevelDebug: everything including single statements
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeModule, "module:arith", parentID)
//	defer span.End("")
package trace
