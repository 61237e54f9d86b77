package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/neuroscan/observe/exporters"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"minimal", Config{ServiceName: "neuroscan"}, nil},
		{"missing name", Config{}, ErrMissingServiceName},
		{
			"bad tracing exporter",
			Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "zipkin"}},
			ErrInvalidTracingExporter,
		},
		{
			"bad sample pct",
			Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5}},
			ErrInvalidSamplePct,
		},
		{
			"bad metrics exporter",
			Config{ServiceName: "s", Metrics: MetricsConfig{Enabled: true, Exporter: "graphite"}},
			ErrInvalidMetricsExporter,
		},
		{
			"bad log level",
			Config{ServiceName: "s", Logging: LoggingConfig{Enabled: true, Level: "trace"}},
			ErrInvalidLogLevel,
		},
		{
			"disabled sections are not checked",
			Config{ServiceName: "s", Tracing: TracingConfig{Exporter: "zipkin"}},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "neuroscan"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("observer components must be non-nil")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	var telemetry, logs bytes.Buffer
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "neuroscan",
		Version:     "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "stdout"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
		Exporters:   exporters.Options{Writer: &telemetry},
		LogWriter:   &logs,
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	_ = mw.Run(context.Background(), StageMeta{Operation: "classify", Stage: "predict"}, func(context.Context, StageMeta) error {
		return nil
	})
	obs.Logger().Info(context.Background(), "hello")

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !bytes.Contains(telemetry.Bytes(), []byte("neuroscan.classify.predict")) {
		t.Error("span not exported to stdout writer")
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"msg":"hello"`)) {
		t.Errorf("log line missing: %s", logs.String())
	}
}

func TestMiddlewareFromObserver_Nil(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("error = %v, want ErrNilObserver", err)
	}
}
