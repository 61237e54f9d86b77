package exporters

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
)

func TestExporter_InvalidName(t *testing.T) {
	if _, err := NewTracingExporter(context.Background(), "jaeger", Options{}); err == nil || !strings.Contains(err.Error(), "unknown exporter") {
		t.Errorf("tracing error = %v, want unknown exporter", err)
	}
	if _, err := NewMetricsReader(context.Background(), "statsd", Options{}); err == nil || !strings.Contains(err.Error(), "unknown metrics exporter") {
		t.Errorf("metrics error = %v, want unknown metrics exporter", err)
	}
}

func TestExporter_Stdout(t *testing.T) {
	var buf bytes.Buffer
	exp, err := NewTracingExporter(context.Background(), "stdout", Options{Writer: &buf})
	if err != nil || exp == nil {
		t.Fatalf("stdout tracing exporter = %v, %v", exp, err)
	}
	reader, err := NewMetricsReader(context.Background(), "stdout", Options{Writer: &buf})
	if err != nil || reader == nil {
		t.Fatalf("stdout metrics reader = %v, %v", reader, err)
	}
}

func TestExporter_None(t *testing.T) {
	for _, name := range []string{"none", ""} {
		if _, err := NewTracingExporter(context.Background(), name, Options{}); err != nil {
			t.Errorf("tracing %q: %v", name, err)
		}
		if _, err := NewMetricsReader(context.Background(), name, Options{}); err != nil {
			t.Errorf("metrics %q: %v", name, err)
		}
	}
}

func TestExporter_OtlpMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewTracingExporter(context.Background(), "otlp", Options{}); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("tracing error = %v, want ErrEndpointNotConfigured", err)
	}
	if _, err := NewMetricsReader(context.Background(), "otlp", Options{}); !errors.Is(err, ErrEndpointNotConfigured) {
		t.Errorf("metrics error = %v, want ErrEndpointNotConfigured", err)
	}
}

func TestExporter_OtlpWithEndpointOption(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	exp, err := NewTracingExporter(context.Background(), "otlp", Options{OTLPEndpoint: "localhost:4317", OTLPInsecure: true})
	if err != nil {
		t.Fatalf("NewTracingExporter() error = %v", err)
	}
	_ = exp.Shutdown(context.Background())
}

func TestExporter_PrometheusCustomRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	reader, err := NewMetricsReader(context.Background(), "prometheus", Options{Registerer: reg})
	if err != nil || reader == nil {
		t.Fatalf("prometheus reader = %v, %v", reader, err)
	}
}
