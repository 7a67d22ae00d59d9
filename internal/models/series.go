package models

import "time"

// Sample is a single (timestamp, value) metric observation.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Statistic selects the aggregation requested from the telemetry backend.
type Statistic string

const (
	StatisticAverage     Statistic = "Average"
	StatisticSum         Statistic = "Sum"
	StatisticMaximum     Statistic = "Maximum"
	StatisticMinimum     Statistic = "Minimum"
	StatisticSampleCount Statistic = "SampleCount"
)

// Valid reports whether s names a supported statistic.
func (s Statistic) Valid() bool {
	switch s {
	case StatisticAverage, StatisticSum, StatisticMaximum, StatisticMinimum, StatisticSampleCount:
		return true
	default:
		return false
	}
}

// MetricDescriptor identifies a metric series.
type MetricDescriptor struct {
	Namespace  string            `json:"namespace"`
	MetricName string            `json:"metric_name"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
	Statistic  Statistic         `json:"statistic,omitempty"`
}

// WithDefaults fills the statistic when the caller left it blank.
func (d MetricDescriptor) WithDefaults() MetricDescriptor {
	if d.Statistic == "" {
		d.Statistic = StatisticAverage
	}
	return d
}

// MetricSeries holds the samples fetched for a descriptor.
type MetricSeries struct {
	MetricDescriptor
	Samples []Sample
}

// Trend classifies the direction of the recent population.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// ScoreStatus tags a ScoreResult as computed or short-circuited.
type ScoreStatus string

const (
	ScoreStatusOK               ScoreStatus = "ok"
	ScoreStatusInsufficientData ScoreStatus = "insufficient_data"
)

// ScoreResult is the outcome of scoring one metric series.
type ScoreResult struct {
	Status       ScoreStatus
	Score        float64
	Severity     Severity
	BaselineMean float64
	BaselineStd  float64
	ZScore       float64
	Percentile   float64
	Trend        Trend
	CurrentValue float64
	SampleCount  int
}

// Insufficient reports whether scoring was skipped for lack of samples.
func (r ScoreResult) Insufficient() bool {
	return r.Status == ScoreStatusInsufficientData
}
