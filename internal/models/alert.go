package models

import (
	"errors"
	"time"
)

// AlertType distinguishes numeric anomaly alerts from log analysis alerts.
type AlertType string

const (
	AlertTypeAnomaly     AlertType = "anomaly_detection"
	AlertTypeLogAnalysis AlertType = "log_analysis"
)

// ErrAlertSuppressed is returned by publishers that dropped a duplicate alert.
var ErrAlertSuppressed = errors.New("alert suppressed")

// Alert is the notification emitted when a score crosses its threshold.
type Alert struct {
	ID              string         `json:"alert_id"`
	Type            AlertType      `json:"alert_type"`
	Severity        Severity       `json:"severity"`
	Subject         string         `json:"-"`
	Source          string         `json:"source"`
	AnomalyScore    float64        `json:"anomaly_score"`
	Details         map[string]any `json:"details,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Insight         *Insight       `json:"ai_insights,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// DedupKey identifies an alert stream for suppression purposes.
func (a Alert) DedupKey() string {
	return string(a.Type) + ":" + a.Source + ":" + string(a.Severity)
}
