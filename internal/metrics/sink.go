package metrics

import (
	"context"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// PrometheusSink exposes the latest scores as gauges on the /metrics endpoint.
type PrometheusSink struct{}

// NewPrometheusSink constructs a sink backed by the package collectors.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

// PublishScore sets the metric anomaly score gauge.
func (PrometheusSink) PublishScore(_ context.Context, outcome models.MetricOutcome) error {
	metricAnomalyScore.
		WithLabelValues(outcome.Descriptor.Namespace, outcome.Descriptor.MetricName).
		Set(outcome.AnomalyScore())
	return nil
}

// PublishLogAnalysis sets the log anomaly score and error count gauges.
func (PrometheusSink) PublishLogAnalysis(_ context.Context, analysis models.LogAnalysis) error {
	logAnomalyScore.WithLabelValues(analysis.LogGroup).Set(analysis.AnomalyScore)
	logErrorCount.WithLabelValues(analysis.LogGroup).Set(float64(analysis.ErrorCount))
	return nil
}
