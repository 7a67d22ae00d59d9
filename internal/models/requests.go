package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeRange bounds the signal window for analysis, [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MetricOutcome is one item of a metric scoring batch. Result is nil when the
// fetch failed, in which case Error is set.
type MetricOutcome struct {
	Descriptor MetricDescriptor
	Result     *ScoreResult
	DataPoints int
	Error      string
	Timestamp  time.Time
}

// Failed reports whether a collaborator failure was recorded on the item.
func (o MetricOutcome) Failed() bool {
	return o.Error != ""
}

// AnomalyScore returns the score or zero when the item carries no result.
func (o MetricOutcome) AnomalyScore() float64 {
	if o.Result == nil {
		return 0
	}
	return o.Result.Score
}

type metricOutcomeJSON struct {
	Namespace    string            `json:"namespace"`
	MetricName   string            `json:"metric_name"`
	Dimensions   map[string]string `json:"dimensions,omitempty"`
	Statistic    Statistic         `json:"statistic,omitempty"`
	Status       ScoreStatus       `json:"status,omitempty"`
	AnomalyScore *float64          `json:"anomaly_score,omitempty"`
	Severity     Severity          `json:"severity,omitempty"`
	CurrentValue *float64          `json:"current_value,omitempty"`
	BaselineMean *float64          `json:"baseline_mean,omitempty"`
	BaselineStd  *float64          `json:"baseline_std,omitempty"`
	ZScore       *float64          `json:"z_score,omitempty"`
	Percentile   *float64          `json:"percentile,omitempty"`
	Trend        Trend             `json:"trend,omitempty"`
	DataPoints   int               `json:"data_points"`
	Error        string            `json:"error,omitempty"`
	Timestamp    *time.Time        `json:"timestamp,omitempty"`
}

// MarshalJSON flattens descriptor and result into the wire shape published to
// callers and alert consumers.
func (o MetricOutcome) MarshalJSON() ([]byte, error) {
	wire := metricOutcomeJSON{
		Namespace:  o.Descriptor.Namespace,
		MetricName: o.Descriptor.MetricName,
		Dimensions: o.Descriptor.Dimensions,
		Statistic:  o.Descriptor.Statistic,
		DataPoints: o.DataPoints,
		Error:      o.Error,
	}
	if !o.Timestamp.IsZero() {
		ts := o.Timestamp
		wire.Timestamp = &ts
	}
	if r := o.Result; r != nil {
		wire.Status = r.Status
		score := r.Score
		wire.AnomalyScore = &score
		if !r.Insufficient() {
			current, mean, std, z, pct := r.CurrentValue, r.BaselineMean, r.BaselineStd, r.ZScore, r.Percentile
			wire.Severity = r.Severity
			wire.CurrentValue = &current
			wire.BaselineMean = &mean
			wire.BaselineStd = &std
			wire.ZScore = &z
			wire.Percentile = &pct
			wire.Trend = r.Trend
		}
	}
	return json.Marshal(wire)
}

// MetricBatchRequest lists the metrics to score; empty means the default set.
type MetricBatchRequest struct {
	Metrics []MetricDescriptor `json:"metrics"`
}

// Validate rejects descriptors that cannot be fetched.
func (r MetricBatchRequest) Validate() error {
	for i, m := range r.Metrics {
		if m.Namespace == "" || m.MetricName == "" {
			return fmt.Errorf("metrics[%d]: namespace and metric_name are required", i)
		}
		if m.Statistic != "" && !m.Statistic.Valid() {
			return fmt.Errorf("metrics[%d]: unsupported statistic %q", i, m.Statistic)
		}
	}
	return nil
}

// MetricBatchReport collects one outcome per requested descriptor.
type MetricBatchReport struct {
	Results   []MetricOutcome `json:"results"`
	Timestamp time.Time       `json:"timestamp"`
}

// LogBatchRequest lists the log groups to analyse; empty means the configured set.
type LogBatchRequest struct {
	LogGroups []string `json:"log_groups"`
	Hours     float64  `json:"hours,omitempty"`
}

// Validate rejects negative windows and blank log group names.
func (r LogBatchRequest) Validate() error {
	if r.Hours < 0 {
		return fmt.Errorf("hours must not be negative, got %v", r.Hours)
	}
	for i, g := range r.LogGroups {
		if g == "" {
			return fmt.Errorf("log_groups[%d]: empty log group name", i)
		}
	}
	return nil
}

// Window converts Hours into a duration, zero when unset.
func (r LogBatchRequest) Window() time.Duration {
	if r.Hours <= 0 {
		return 0
	}
	return time.Duration(r.Hours * float64(time.Hour))
}

// LogBatchReport collects one analysis per requested log group.
type LogBatchReport struct {
	Results   []LogAnalysis `json:"results"`
	Timestamp time.Time     `json:"timestamp"`
}
