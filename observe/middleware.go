package observe

import (
	"context"
	"time"
)

// StageFunc is one unit of pipeline work.
type StageFunc func(ctx context.Context, meta StageMeta) error

// Middleware wraps stage execution with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a StageFunc safe for concurrent use.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from its parts.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NopMiddleware returns a Middleware that only runs the wrapped function.
func NopMiddleware() *Middleware {
	return NewMiddleware(NoopTracer(), NoopMetrics(), NopLogger())
}

// MiddlewareFromObserver builds a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Metrics returns the middleware's metrics recorder.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Wrap decorates fn with a span, stage metrics and a log line.
func (m *Middleware) Wrap(fn StageFunc) StageFunc {
	return func(ctx context.Context, meta StageMeta) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordStage(ctx, meta, duration, err)

		stageLogger := m.logger.WithStage(meta)
		fields := []Field{F("duration_ms", float64(duration.Microseconds())/1000)}
		if err != nil {
			fields = append(fields, F("error", err.Error()), F("error_kind", ErrorLabel(err)))
			stageLogger.Error(ctx, "stage failed", fields...)
		} else {
			stageLogger.Debug(ctx, "stage completed", fields...)
		}
		return err
	}
}

// Run is shorthand for m.Wrap(fn)(ctx, meta).
func (m *Middleware) Run(ctx context.Context, meta StageMeta, fn StageFunc) error {
	return m.Wrap(fn)(ctx, meta)
}
