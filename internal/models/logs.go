package models

import "encoding/json"

// LogBatch is an unordered set of raw log lines for a log group and window.
type LogBatch struct {
	LogGroup  string
	TimeRange TimeRange
	Lines     []string
}

// LogStatus tags a LogAnalysis.
type LogStatus string

const (
	LogStatusOK       LogStatus = "ok"
	LogStatusNoEvents LogStatus = "no_events"
)

// Insight is the opaque structured output of a text-insight provider. Body is
// embedded unmodified; Err marks a failed provider call.
type Insight struct {
	Body json.RawMessage
	Err  string
}

// MarshalJSON emits the provider body as-is, or an error marker.
func (i Insight) MarshalJSON() ([]byte, error) {
	if i.Err != "" || len(i.Body) == 0 {
		msg := i.Err
		if msg == "" {
			msg = "empty insight response"
		}
		return json.Marshal(map[string]string{"error": msg})
	}
	return i.Body, nil
}

// UnmarshalJSON keeps the payload verbatim, lifting a lone error marker.
func (i *Insight) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err == nil && len(fields) == 1 {
		var msg string
		if raw, ok := fields["error"]; ok && json.Unmarshal(raw, &msg) == nil {
			*i = Insight{Err: msg}
			return nil
		}
	}
	*i = Insight{Body: append(json.RawMessage(nil), data...)}
	return nil
}

// LogAnalysis is the outcome of analysing one log batch.
type LogAnalysis struct {
	LogGroup         string         `json:"log_group"`
	TimeRange        *TimeRange     `json:"time_range,omitempty"`
	Status           LogStatus      `json:"status,omitempty"`
	TotalEvents      int            `json:"total_events"`
	ErrorCount       int            `json:"error_count"`
	ErrorRate        float64        `json:"error_rate"`
	ErrorTypes       map[string]int `json:"error_types,omitempty"`
	UniquePatterns   int            `json:"unique_patterns"`
	AvgMessageLength float64        `json:"avg_message_length"`
	AnomalyScore     float64        `json:"anomaly_score"`
	Severity         Severity       `json:"severity,omitempty"`
	AIInsights       *Insight       `json:"ai_insights,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// Failed reports whether a collaborator failure was recorded on the analysis.
func (a LogAnalysis) Failed() bool {
	return a.Error != ""
}
