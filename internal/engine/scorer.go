package engine

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-aiops/internal/extractors"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

const (
	// DefaultWindowSize is the history fetched to build a baseline.
	DefaultWindowSize = 24 * time.Hour
	// DefaultMinDataPoints is the smallest population that gets scored.
	DefaultMinDataPoints = 10

	baselineFraction = 0.8
	stdEpsilon       = 0.001

	zWeight          = 0.5
	percentileWeight = 0.3
	trendWeight      = 0.2
	// trendScore is weighted again by trendWeight, so a trending series adds
	// at most 0.06 and the composite tops out at 0.86.
	trendScore = 0.3
)

// SeriesScorer turns a metric series into a composite anomaly score from the
// z-score, percentile rank and trend of its most recent value.
type SeriesScorer struct {
	windowSize    time.Duration
	minDataPoints int
	trend         *extractors.TrendEstimator
}

// NewSeriesScorer constructs a scorer. Zero values select the defaults (24h,
// 10 points); minDataPoints below 2 is raised to 2 so the baseline is never empty.
func NewSeriesScorer(windowSize time.Duration, minDataPoints int) *SeriesScorer {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if minDataPoints == 0 {
		minDataPoints = DefaultMinDataPoints
	}
	if minDataPoints < 2 {
		minDataPoints = 2
	}
	return &SeriesScorer{
		windowSize:    windowSize,
		minDataPoints: minDataPoints,
		trend:         extractors.NewTrendEstimator(),
	}
}

// WindowSize is the history callers should fetch before scoring.
func (s *SeriesScorer) WindowSize() time.Duration { return s.windowSize }

// MinDataPoints is the insufficient-data gate.
func (s *SeriesScorer) MinDataPoints() int { return s.minDataPoints }

// Score computes the anomaly score of the series' most recent sample. Fewer
// than MinDataPoints samples yields an insufficient_data result, not an error.
func (s *SeriesScorer) Score(series models.MetricSeries) models.ScoreResult {
	n := len(series.Samples)
	if n < s.minDataPoints {
		return models.ScoreResult{
			Status:      models.ScoreStatusInsufficientData,
			Score:       0,
			Severity:    models.SeverityLow,
			Trend:       models.TrendStable,
			SampleCount: n,
		}
	}

	sorted := append([]models.Sample(nil), series.Samples...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	values := make([]float64, n)
	for i, sample := range sorted {
		values[i] = sample.Value
	}

	split := int(math.Floor(baselineFraction * float64(n)))
	baseline := values[:split]
	recent := values[split:]

	mean, std := stat.PopMeanStdDev(baseline, nil)
	if std == 0 {
		std = stdEpsilon
	}

	current := values[n-1]
	z := math.Abs(current-mean) / std
	percentile := PercentileOfScore(baseline, current)

	trend := models.TrendStable
	if len(recent) > 0 {
		trend = s.trend.Classify(recent)
	}

	score := compositeScore(z, percentile, trend)
	return models.ScoreResult{
		Status:       models.ScoreStatusOK,
		Score:        score,
		Severity:     ClassifyScore(score),
		BaselineMean: mean,
		BaselineStd:  std,
		ZScore:       z,
		Percentile:   percentile,
		Trend:        trend,
		CurrentValue: current,
		SampleCount:  n,
	}
}

func compositeScore(z, percentile float64, trend models.Trend) float64 {
	zNormalised := math.Min(z/3.0, 1.0)
	percentileScore := math.Abs(percentile-50) / 50.0
	trendComponent := 0.0
	if trend == models.TrendIncreasing || trend == models.TrendDecreasing {
		trendComponent = trendScore
	}
	return zNormalised*zWeight + percentileScore*percentileWeight + trendComponent*trendWeight
}

// PercentileOfScore ranks value within population on a 0-100 scale. Ties
// count half: (count below + count equal / 2) / n * 100. An empty population
// ranks at the median.
func PercentileOfScore(population []float64, value float64) float64 {
	if len(population) == 0 {
		return 50
	}
	below, equal := 0, 0
	for _, v := range population {
		switch {
		case v < value:
			below++
		case v == value:
			equal++
		}
	}
	return (float64(below) + 0.5*float64(equal)) / float64(len(population)) * 100
}
