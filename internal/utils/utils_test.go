package utils

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestAppErrorChain(t *testing.T) {
	root := errors.New("throttled")
	err := NewAppError("cloudwatch.GetMetricStatistics", "fetch samples", root)
	if !errors.Is(err, root) {
		t.Fatalf("expected wrapped root cause")
	}
	if got := Op(err); got != "cloudwatch.GetMetricStatistics" {
		t.Fatalf("unexpected op %q", got)
	}
	if !strings.Contains(err.Error(), "fetch samples: throttled") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(NotConfigured("gateway.FetchLogBatch", "base URL"), ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured")
	}
	if Op(root) != "" {
		t.Fatalf("expected empty op for plain errors")
	}
}

func TestEpochMillisAndWindow(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 123_000_000, time.UTC)
	if got := EpochMillis(ts); got != 1714559400123 {
		t.Fatalf("unexpected epoch millis %d", got)
	}
	start, end := TrailingWindow(ts, time.Hour)
	if end.Sub(start) != time.Hour || !end.Equal(ts) {
		t.Fatalf("unexpected window %v - %v", start, end)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "WARNING", true)
	logger.Info("dropped")
	logger.Warn("kept", slog.String("log_group", "/aws/lambda/a"))
	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, `"log_group":"/aws/lambda/a"`) {
		t.Fatalf("unexpected log output %q", out)
	}
	if ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("expected info default")
	}
}
