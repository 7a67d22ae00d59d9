package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestObserveItemNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(batchItemsTotal.WithLabelValues(PipelineLogs, OutcomeSuccess))
	ObserveItem(PipelineLogs, "bogus")
	after := testutil.ToFloat64(batchItemsTotal.WithLabelValues(PipelineLogs, OutcomeSuccess))
	if after-before != 1 {
		t.Fatalf("expected unknown outcome to count as success, delta=%v", after-before)
	}
	ObserveBatch(PipelineLogs, -time.Second)
}

func TestPrometheusSinkSetsGauges(t *testing.T) {
	sink := NewPrometheusSink()
	outcome := models.MetricOutcome{
		Descriptor: models.MetricDescriptor{Namespace: "AWS/Lambda", MetricName: "Duration"},
		Result:     &models.ScoreResult{Score: 0.42},
	}
	if err := sink.PublishScore(context.Background(), outcome); err != nil {
		t.Fatalf("publish score: %v", err)
	}
	if got := testutil.ToFloat64(metricAnomalyScore.WithLabelValues("AWS/Lambda", "Duration")); got != 0.42 {
		t.Fatalf("unexpected score gauge %v", got)
	}

	analysis := models.LogAnalysis{LogGroup: "/aws/lambda/checkout", AnomalyScore: 51, ErrorCount: 30}
	if err := sink.PublishLogAnalysis(context.Background(), analysis); err != nil {
		t.Fatalf("publish log analysis: %v", err)
	}
	if got := testutil.ToFloat64(logErrorCount.WithLabelValues("/aws/lambda/checkout")); got != 30 {
		t.Fatalf("unexpected error count gauge %v", got)
	}
}

func TestObserveAlertOutcomes(t *testing.T) {
	skipped := alertsTotal.WithLabelValues("log_analysis", OutcomeSkipped)
	before := testutil.ToFloat64(skipped)
	ObserveAlert("log_analysis", OutcomeSkipped)
	if got := testutil.ToFloat64(skipped) - before; got != 1 {
		t.Fatalf("expected suppressed alert to be counted as skipped, delta=%v", got)
	}
}
