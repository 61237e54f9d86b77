package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["level"] != "warn" || lines[1]["level"] != "error" {
		t.Errorf("levels = %v, %v", lines[0]["level"], lines[1]["level"])
	}
}

func TestLogger_StageAndRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf).
		WithStage(StageMeta{Operation: "analyze", Stage: "saliency", Variant: "full"}).
		With(F("filename", "scan.png"))

	ctx := WithRequestID(context.Background(), "req-123")
	logger.Info(ctx, "working", F("bytes", 42))

	entry := decodeLines(t, &buf)[0]
	want := map[string]any{
		"operation":  "analyze",
		"stage":      "saliency",
		"variant":    "full",
		"filename":   "scan.png",
		"request_id": "req-123",
		"bytes":      float64(42),
		"msg":        "working",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%s] = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	logger.Info(context.Background(), "upload",
		F("content", []byte{1, 2, 3}),
		F("api_key", "sk-live"),
		F("size", 3),
	)

	entry := decodeLines(t, &buf)[0]
	if entry["content"] != "[REDACTED]" || entry["api_key"] != "[REDACTED]" {
		t.Errorf("sensitive fields not redacted: %v", entry)
	}
	if entry["size"] != float64(3) {
		t.Errorf("size = %v", entry["size"])
	}
}

func TestLogger_ErrorValuesAsStrings(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Error(context.Background(), "boom", F("error", errors.New("disk full")))
	if entry := decodeLines(t, &buf)[0]; entry["error"] != "disk full" {
		t.Errorf("error field = %v", entry["error"])
	}
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	derived := logger.With(F("k", "v"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); logger.Info(context.Background(), "a") }()
		go func() { defer wg.Done(); derived.Info(context.Background(), "b") }()
	}
	wg.Wait()

	if n := len(decodeLines(t, &buf)); n != 40 {
		t.Errorf("got %d lines, want 40", n)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error"} {
		if got := ParseLogLevel(s).String(); got != s {
			t.Errorf("ParseLogLevel(%q).String() = %q", s, got)
		}
	}
	if ParseLogLevel("verbose") != LevelInfo {
		t.Error("unknown level should map to info")
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "x")
	if l.WithStage(StageMeta{}) == nil || l.With() == nil {
		t.Fatal("derived nop loggers must be non-nil")
	}
}
