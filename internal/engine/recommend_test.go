package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestRuleEngineRecommend(t *testing.T) {
	path := writeRules(t, `rules:
  - id: lambda-latency
    match:
      type: anomaly_detection
      source_contains: ["lambda"]
      min_severity: high
      trend: increasing
    recommendations: ["Check concurrency limits", "Review recent deployments"]
  - id: db-errors
    match:
      type: log_analysis
      error_types: ["timeout", "connection refused"]
    recommendations: ["Inspect database connection pool"]
  - id: catch-all
    recommendations: ["Review recent deployments"]
`)

	engine, err := NewRuleEngine(path, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	metricAlert := models.Alert{
		Type:     models.AlertTypeAnomaly,
		Severity: models.SeverityCritical,
		Source:   "AWS/Lambda/Duration",
		Details:  map[string]any{"trend": models.TrendIncreasing},
	}
	recs := engine.Recommend(metricAlert)
	if len(recs) != 2 || recs[0] != "Check concurrency limits" || recs[1] != "Review recent deployments" {
		t.Fatalf("unexpected metric recommendations %v", recs)
	}

	metricAlert.Severity = models.SeverityMedium
	if recs := engine.Recommend(metricAlert); len(recs) != 1 {
		t.Fatalf("expected severity floor to filter the lambda rule, got %v", recs)
	}

	logAlert := models.Alert{
		Type:     models.AlertTypeLogAnalysis,
		Severity: models.SeverityHigh,
		Source:   "/aws/lambda/orders",
		Details:  map[string]any{"error_types": map[string]int{"TIMEOUT": 4}},
	}
	recs = engine.Recommend(logAlert)
	if len(recs) != 2 || recs[0] != "Inspect database connection pool" {
		t.Fatalf("unexpected log recommendations %v", recs)
	}
}

func TestRuleEngineNoFile(t *testing.T) {
	engine, err := NewRuleEngine("non-existent", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if engine != nil {
		t.Fatalf("expected nil engine when file missing")
	}
	if recs := engine.Recommend(models.Alert{}); recs != nil {
		t.Fatalf("expected nil engine to recommend nothing, got %v", recs)
	}
}

func TestRuleEngineInvalidYAML(t *testing.T) {
	path := writeRules(t, "rules: [\n")
	if _, err := NewRuleEngine(path, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
