package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// StageMeta identifies a unit of pipeline work for telemetry.
type StageMeta struct {
	Operation string // classify|interpret|analyze
	Stage     string // decode|predict|saliency|attribution|... (empty for the whole operation)
	Variant   string // requested result variant
}

// SpanName returns neuroscan.<operation> or neuroscan.<operation>.<stage>.
func (m StageMeta) SpanName() string {
	if m.Stage == "" {
		return "neuroscan." + m.Operation
	}
	return "neuroscan." + m.Operation + "." + m.Stage
}

func (m StageMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("neuroscan.operation", m.Operation)}
	if m.Stage != "" {
		attrs = append(attrs, attribute.String("neuroscan.stage", m.Stage))
	}
	if m.Variant != "" {
		attrs = append(attrs, attribute.String("neuroscan.variant", m.Variant))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with stage-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta StageMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta StageMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", ErrorLabel(err)))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
