package models

// Severity captures impact levels, ordered LOW < MEDIUM < HIGH < CRITICAL.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the ordinal position of the severity (0 for LOW, 3 for CRITICAL).
// Unknown values rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether s is the same tier as other or above it.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// DataType enumerates the two scoring pipelines.
type DataType string

const (
	DataTypeMetrics DataType = "metrics"
	DataTypeLogs    DataType = "logs"
)
