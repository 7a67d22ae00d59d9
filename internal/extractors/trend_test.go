package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

func TestTrendEstimatorClassify(t *testing.T) {
	estimator := NewTrendEstimator()

	cases := []struct {
		name   string
		values []float64
		want   models.Trend
	}{
		{name: "empty", values: nil, want: models.TrendStable},
		{name: "two points", values: []float64{1, 100}, want: models.TrendStable},
		{name: "flat", values: []float64{4, 4, 4, 4}, want: models.TrendStable},
		{name: "increasing", values: []float64{1, 2, 3, 4, 5}, want: models.TrendIncreasing},
		{name: "decreasing", values: []float64{5, 4, 3, 2, 1}, want: models.TrendDecreasing},
		{name: "slow drift", values: []float64{100, 100.5, 101}, want: models.TrendStable},
		{name: "near zero mean", values: []float64{0, 0.01, 0.02}, want: models.TrendIncreasing},
		{name: "negative mean", values: []float64{-1, -2, -3}, want: models.TrendStable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, estimator.Classify(tc.values))
		})
	}
}
