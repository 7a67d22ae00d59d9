package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

const (
	// PipelineMetrics labels the numeric scoring pipeline.
	PipelineMetrics = string(models.DataTypeMetrics)
	// PipelineLogs labels the log analysis pipeline.
	PipelineLogs = string(models.DataTypeLogs)

	// OutcomeSuccess labels items scored end to end.
	OutcomeSuccess = "success"
	// OutcomeSkipped labels items short-circuited (insufficient data, no events).
	OutcomeSkipped = "skipped"
	// OutcomeError labels items that failed on a collaborator.
	OutcomeError = "error"
)

var (
	batchItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_aiops",
			Name:      "batch_items_total",
			Help:      "Total number of batch items processed, partitioned by pipeline and outcome.",
		},
		[]string{"pipeline", "outcome"},
	)

	batchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mirador_aiops",
			Name:      "batch_seconds",
			Help:      "Batch latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"pipeline"},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_aiops",
			Name:      "alerts_total",
			Help:      "Alerts handed to the notification bus, partitioned by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	metricAnomalyScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mirador_aiops",
			Name:      "metric_anomaly_score",
			Help:      "Latest composite anomaly score (0-1) per scored metric.",
		},
		[]string{"namespace", "metric_name"},
	)

	logAnomalyScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mirador_aiops",
			Name:      "log_anomaly_score",
			Help:      "Latest log anomaly score (0-100) per log group.",
		},
		[]string{"log_group"},
	)

	logErrorCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mirador_aiops",
			Name:      "log_error_count",
			Help:      "Error lines counted in the latest window per log group.",
		},
		[]string{"log_group"},
	)
)

// Register attaches mirador-aiops collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		batchItemsTotal,
		batchDurationSeconds,
		alertsTotal,
		metricAnomalyScore,
		logAnomalyScore,
		logErrorCount,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveItem counts a processed batch item.
func ObserveItem(pipeline, outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomeSkipped, OutcomeError:
	default:
		outcome = OutcomeSuccess
	}
	batchItemsTotal.WithLabelValues(pipeline, outcome).Inc()
}

// ObserveBatch records a batch duration.
func ObserveBatch(pipeline string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	batchDurationSeconds.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// ObserveAlert counts an alert publication attempt.
func ObserveAlert(alertType, outcome string) {
	label := outcome
	switch label {
	case OutcomeError, OutcomeSkipped:
	default:
		label = OutcomeSuccess
	}
	alertsTotal.WithLabelValues(alertType, label).Inc()
}
