package observe

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LookupOutcome classifies a result cache lookup.
type LookupOutcome string

const (
	LookupHit          LookupOutcome = "hit"
	LookupWidened      LookupOutcome = "widened"
	LookupMiss         LookupOutcome = "miss"
	LookupInsufficient LookupOutcome = "insufficient"
)

// LabeledError is implemented by errors that carry a low-cardinality label
// suitable for metric attributes.
type LabeledError interface {
	error
	Label() string
}

// ErrorLabel returns the label of the first LabeledError in err's chain,
// or "unknown".
func ErrorLabel(err error) string {
	var le LabeledError
	if errors.As(err, &le) {
		return le.Label()
	}
	return "unknown"
}

// Metrics records pipeline metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordStage(ctx context.Context, meta StageMeta, duration time.Duration, err error)
	RecordLookup(ctx context.Context, variant string, outcome LookupOutcome)
}

type metricsImpl struct {
	stageTotal    metric.Int64Counter
	stageErrors   metric.Int64Counter
	stageDuration metric.Float64Histogram
	lookups       metric.Int64Counter
}

// NewMetrics registers the pipeline instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	stageTotal, err := meter.Int64Counter(
		"neuroscan.stage.total",
		metric.WithDescription("Pipeline stage executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	stageErrors, err := meter.Int64Counter(
		"neuroscan.stage.errors",
		metric.WithDescription("Pipeline stage failures by error kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"neuroscan.stage.duration_ms",
		metric.WithDescription("Pipeline stage duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(
		"neuroscan.cache.lookups",
		metric.WithDescription("Result cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		stageTotal:    stageTotal,
		stageErrors:   stageErrors,
		stageDuration: stageDuration,
		lookups:       lookups,
	}, nil
}

func (m *metricsImpl) RecordStage(ctx context.Context, meta StageMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.stageTotal.Add(ctx, 1, opt)
	if err != nil {
		attrs := append(meta.attributes(), attribute.String("error.kind", ErrorLabel(err)))
		m.stageErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.stageDuration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordLookup(ctx context.Context, variant string, outcome LookupOutcome) {
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("neuroscan.variant", variant),
		attribute.String("outcome", string(outcome)),
	))
}

type noopMetrics struct{}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordStage(context.Context, StageMeta, time.Duration, error) {}
func (noopMetrics) RecordLookup(context.Context, string, LookupOutcome)          {}
