package engine

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"unicode/utf8"

	"github.com/miradorstack/mirador-aiops/internal/extractors"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

const (
	// InsightSampleLines caps the lines handed to the insight provider.
	InsightSampleLines = 50

	errorRateWeight        = 0.7
	patternDiversityWeight = 0.3
	patternDiversityScale  = 10.0
)

// ErrorPatterns lists the error indicators in match order. A line is counted
// against the first pattern it matches.
var ErrorPatterns = []string{
	"ERROR",
	"FATAL",
	"EXCEPTION",
	"CRITICAL",
	"FAILED",
	"TIMEOUT",
	"OUT OF MEMORY",
	"CONNECTION REFUSED",
	"503",
	"500",
	"502",
	"504",
}

// InsightProvider summarises a sample of log lines with a language model. The
// response is treated as opaque and embedded unmodified.
type InsightProvider interface {
	Insights(ctx context.Context, modelID string, lines []string) (models.Insight, error)
}

type errorPattern struct {
	name string
	re   *regexp.Regexp
}

// LogAnalyzer derives error-rate and pattern-diversity features from a log batch.
type LogAnalyzer struct {
	logger        *slog.Logger
	patterns      *extractors.PatternExtractor
	errorPatterns []errorPattern
	insight       InsightProvider
	modelID       string
}

// NewLogAnalyzer constructs a LogAnalyzer. insight may be nil to disable
// insight enrichment.
func NewLogAnalyzer(logger *slog.Logger, patterns *extractors.PatternExtractor, insight InsightProvider, modelID string) *LogAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if patterns == nil {
		patterns = extractors.NewPatternExtractor(extractors.DefaultPatternSampleLimit)
	}
	compiled := make([]errorPattern, 0, len(ErrorPatterns))
	for _, p := range ErrorPatterns {
		compiled = append(compiled, errorPattern{name: p, re: regexp.MustCompile("(?i)" + regexp.QuoteMeta(p))})
	}
	return &LogAnalyzer{
		logger:        logger,
		patterns:      patterns,
		errorPatterns: compiled,
		insight:       insight,
		modelID:       modelID,
	}
}

// Analyze computes the LogAnalysis for a batch. An empty batch yields a
// no_events result. Insight provider failures are recorded on the result.
func (a *LogAnalyzer) Analyze(ctx context.Context, batch models.LogBatch) models.LogAnalysis {
	analysis := models.LogAnalysis{
		LogGroup:    batch.LogGroup,
		TotalEvents: len(batch.Lines),
	}
	if !batch.TimeRange.Start.IsZero() || !batch.TimeRange.End.IsZero() {
		tr := batch.TimeRange
		analysis.TimeRange = &tr
	}
	if len(batch.Lines) == 0 {
		analysis.Status = models.LogStatusNoEvents
		analysis.Severity = models.SeverityLow
		return analysis
	}

	errorTypes := make(map[string]int)
	errorCount := 0
	totalLength := 0
	for _, line := range batch.Lines {
		totalLength += utf8.RuneCountInString(line)
		if name, ok := a.matchError(line); ok {
			errorCount++
			errorTypes[name]++
		}
	}

	unique := len(a.patterns.Extract(batch.Lines))
	errorRate := float64(errorCount) / float64(len(batch.Lines))
	score := LogAnomalyScore(errorRate, unique)

	analysis.Status = models.LogStatusOK
	analysis.ErrorCount = errorCount
	analysis.ErrorRate = errorRate
	analysis.ErrorTypes = errorTypes
	analysis.UniquePatterns = unique
	analysis.AvgMessageLength = float64(totalLength) / float64(len(batch.Lines))
	analysis.AnomalyScore = score
	analysis.Severity = ClassifyLog(score, errorCount)

	if a.insight != nil && errorCount > 0 {
		analysis.AIInsights = a.insights(ctx, batch)
	}
	return analysis
}

func (a *LogAnalyzer) matchError(line string) (string, bool) {
	for _, p := range a.errorPatterns {
		if p.re.MatchString(line) {
			return p.name, true
		}
	}
	return "", false
}

func (a *LogAnalyzer) insights(ctx context.Context, batch models.LogBatch) *models.Insight {
	sample := batch.Lines
	if len(sample) > InsightSampleLines {
		sample = sample[:InsightSampleLines]
	}
	insight, err := a.insight.Insights(ctx, a.modelID, sample)
	if err != nil {
		a.logger.Error("insight provider failed", slog.String("log_group", batch.LogGroup), slog.Any("error", err))
		return &models.Insight{Err: err.Error()}
	}
	return &insight
}

// LogAnomalyScore combines error rate and structural diversity into [0,100].
func LogAnomalyScore(errorRate float64, uniquePatterns int) float64 {
	diversity := math.Min(float64(uniquePatterns)/patternDiversityScale, 1.0)
	return math.Min((errorRate*errorRateWeight+diversity*patternDiversityWeight)*100, 100.0)
}
