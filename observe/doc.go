// Package observe provides tracing, metrics and structured logging for the
// analysis pipeline.
//
// An Observer owns the OpenTelemetry providers. A Middleware built from it
// wraps each pipeline stage in a span, records stage counters and durations,
// and logs failures with their error kind.
package observe
