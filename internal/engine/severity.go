package engine

import "github.com/miradorstack/mirador-aiops/internal/models"

// ClassifyScore maps a numeric anomaly score in [0,1] to a severity tier.
func ClassifyScore(score float64) models.Severity {
	switch {
	case score >= 0.7:
		return models.SeverityCritical
	case score >= 0.5:
		return models.SeverityHigh
	case score >= 0.3:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// ClassifyLog maps a log anomaly score in [0,100] and the raw error count to
// a severity tier; whichever input triggers the higher tier wins.
func ClassifyLog(score float64, errorCount int) models.Severity {
	switch {
	case score >= 70 || errorCount > 100:
		return models.SeverityCritical
	case score >= 40 || errorCount > 20:
		return models.SeverityHigh
	case score >= 20 || errorCount > 5:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
