package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStageMeta_SpanName(t *testing.T) {
	tests := []struct {
		meta StageMeta
		want string
	}{
		{StageMeta{Operation: "analyze"}, "neuroscan.analyze"},
		{StageMeta{Operation: "analyze", Stage: "saliency"}, "neuroscan.analyze.saliency"},
	}
	for _, tt := range tests {
		if got := tt.meta.SpanName(); got != tt.want {
			t.Errorf("SpanName() = %q, want %q", got, tt.want)
		}
	}
}

func TestTracer_Attributes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tr := NewTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test"))

	_, span := tr.StartSpan(context.Background(), StageMeta{Operation: "classify", Variant: "classification"})
	tr.EndSpan(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	if attrs["neuroscan.operation"] != "classify" || attrs["neuroscan.variant"] != "classification" {
		t.Errorf("attributes = %v", attrs)
	}
	if _, ok := attrs["neuroscan.stage"]; ok {
		t.Error("stage attribute set on an operation span")
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status().Code)
	}
}

func TestTracer_ErrorRecording(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tr := NewTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test"))

	_, span := tr.StartSpan(context.Background(), StageMeta{Operation: "interpret", Stage: "attribution"})
	tr.EndSpan(span, errors.New("explainer exploded"))

	got := rec.Ended()[0]
	if got.Status().Code != codes.Error || got.Status().Description != "explainer exploded" {
		t.Errorf("status = %+v", got.Status())
	}
	if len(got.Events()) == 0 {
		t.Error("error event not recorded")
	}
}

func TestNoopTracer(t *testing.T) {
	ctx, span := NoopTracer().StartSpan(context.Background(), StageMeta{Operation: "classify"})
	if ctx == nil || span == nil {
		t.Fatal("NoopTracer returned nil")
	}
	NoopTracer().EndSpan(span, errors.New("ignored"))
}
