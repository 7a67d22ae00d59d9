package extractors

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

const (
	// MinTrendPoints is the smallest population a slope is fitted over.
	MinTrendPoints = 3
	// DefaultTrendThreshold is the relative slope beyond which a series is trending.
	DefaultTrendThreshold = 0.1

	meanEpsilon = 0.001
)

// TrendEstimator classifies a value sequence using an ordinary least-squares
// slope fitted against index positions 0..n-1.
type TrendEstimator struct {
	threshold float64
}

// NewTrendEstimator constructs a TrendEstimator with the default threshold (0.1).
func NewTrendEstimator() *TrendEstimator {
	return &TrendEstimator{threshold: DefaultTrendThreshold}
}

// Classify returns increasing or decreasing when |slope| / (mean + 0.001)
// exceeds the threshold, and stable otherwise or for fewer than three values.
func (e *TrendEstimator) Classify(values []float64) models.Trend {
	if len(values) < MinTrendPoints {
		return models.TrendStable
	}

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, values, nil, false)

	// The mean is not made absolute: a negative mean yields a negative ratio and
	// therefore a stable classification.
	relative := math.Abs(slope) / (stat.Mean(values, nil) + meanEpsilon)
	if relative > e.threshold {
		if slope > 0 {
			return models.TrendIncreasing
		}
		return models.TrendDecreasing
	}
	return models.TrendStable
}
