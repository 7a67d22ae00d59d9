package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-aiops/internal/metrics"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

const (
	// DefaultAnomalyThreshold is the numeric score at which an alert fires.
	DefaultAnomalyThreshold = 0.7
	// DefaultLogWindow is the log look-back used when a request names none.
	DefaultLogWindow = time.Hour
)

// MetricSource fetches metric samples for a descriptor over [start, end).
type MetricSource interface {
	FetchMetricSeries(ctx context.Context, desc models.MetricDescriptor, start, end time.Time) (models.MetricSeries, error)
}

// LogSource fetches raw log lines for a log group over [start, end).
type LogSource interface {
	FetchLogBatch(ctx context.Context, logGroup string, start, end time.Time) (models.LogBatch, error)
}

// MetricSink publishes scores as telemetry data points.
type MetricSink interface {
	PublishScore(ctx context.Context, outcome models.MetricOutcome) error
	PublishLogAnalysis(ctx context.Context, analysis models.LogAnalysis) error
}

// AlertPublisher relays alerts to a notification bus.
type AlertPublisher interface {
	Publish(ctx context.Context, alert models.Alert) error
}

// DefaultMetrics is scored when a metric batch names no descriptors.
func DefaultMetrics() []models.MetricDescriptor {
	return []models.MetricDescriptor{
		{Namespace: "AWS/Lambda", MetricName: "Duration", Statistic: models.StatisticAverage},
		{Namespace: "AWS/Lambda", MetricName: "Errors", Statistic: models.StatisticSum},
		{Namespace: "AWS/ApplicationELB", MetricName: "TargetResponseTime", Statistic: models.StatisticAverage},
	}
}

// PipelineConfig carries the thresholds and defaults applied to batches.
type PipelineConfig struct {
	AnomalyThreshold float64
	LogWindow        time.Duration
	DefaultMetrics   []models.MetricDescriptor
	DefaultLogGroups []string
}

// Pipeline runs fetch, score and emit over a batch of metrics or log groups.
// Items are processed sequentially; a failing item never aborts the batch.
type Pipeline struct {
	logger       *slog.Logger
	metricSource MetricSource
	logSource    LogSource
	scorer       *SeriesScorer
	analyzer     *LogAnalyzer
	rules        *RuleEngine
	alerts       AlertPublisher
	sinks        []MetricSink
	cfg          PipelineConfig
	now          func() time.Time
}

// NewPipeline constructs a batch pipeline. Sources, alerts, rules and sinks may be nil.
func NewPipeline(
	logger *slog.Logger,
	metricSource MetricSource,
	logSource LogSource,
	scorer *SeriesScorer,
	analyzer *LogAnalyzer,
	rules *RuleEngine,
	alerts AlertPublisher,
	cfg PipelineConfig,
	sinks ...MetricSink,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if scorer == nil {
		scorer = NewSeriesScorer(0, 0)
	}
	if analyzer == nil {
		analyzer = NewLogAnalyzer(logger, nil, nil, "")
	}
	if cfg.AnomalyThreshold <= 0 {
		cfg.AnomalyThreshold = DefaultAnomalyThreshold
	}
	if cfg.LogWindow <= 0 {
		cfg.LogWindow = DefaultLogWindow
	}
	if len(cfg.DefaultMetrics) == 0 {
		cfg.DefaultMetrics = DefaultMetrics()
	}

	active := make([]MetricSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			active = append(active, sink)
		}
	}

	return &Pipeline{
		logger:       logger,
		metricSource: metricSource,
		logSource:    logSource,
		scorer:       scorer,
		analyzer:     analyzer,
		rules:        rules,
		alerts:       alerts,
		sinks:        active,
		cfg:          cfg,
		now:          time.Now,
	}
}

// ScoreMetrics scores every descriptor (or the default set when none are
// given) and returns one outcome per descriptor.
func (p *Pipeline) ScoreMetrics(ctx context.Context, descriptors []models.MetricDescriptor) models.MetricBatchReport {
	started := time.Now()
	if len(descriptors) == 0 {
		descriptors = p.cfg.DefaultMetrics
	}

	results := make([]models.MetricOutcome, 0, len(descriptors))
	for _, desc := range descriptors {
		outcome := p.scoreMetric(ctx, desc.WithDefaults())
		results = append(results, outcome)

		switch {
		case outcome.Failed():
			metrics.ObserveItem(metrics.PipelineMetrics, metrics.OutcomeError)
			continue
		case outcome.Result.Insufficient():
			metrics.ObserveItem(metrics.PipelineMetrics, metrics.OutcomeSkipped)
		default:
			metrics.ObserveItem(metrics.PipelineMetrics, metrics.OutcomeSuccess)
		}

		p.publishScore(ctx, outcome)
		if !outcome.Result.Insufficient() && outcome.Result.Score >= p.cfg.AnomalyThreshold {
			p.publishAlert(ctx, metricAlert(outcome))
		}
	}

	metrics.ObserveBatch(metrics.PipelineMetrics, time.Since(started))
	return models.MetricBatchReport{Results: results, Timestamp: p.now().UTC()}
}

func (p *Pipeline) scoreMetric(ctx context.Context, desc models.MetricDescriptor) models.MetricOutcome {
	end := p.now().UTC()
	outcome := models.MetricOutcome{Descriptor: desc, Timestamp: end}
	if p.metricSource == nil {
		outcome.Error = "metric source not configured"
		return outcome
	}

	start, end := utils.TrailingWindow(end, p.scorer.WindowSize())
	series, err := p.metricSource.FetchMetricSeries(ctx, desc, start, end)
	if err != nil {
		p.logger.Error("metric scoring failed",
			slog.String("namespace", desc.Namespace),
			slog.String("metric_name", desc.MetricName),
			slog.Any("error", err))
		outcome.Error = err.Error()
		return outcome
	}

	result := p.scorer.Score(series)
	if result.Insufficient() {
		p.logger.Warn("insufficient data points",
			slog.String("namespace", desc.Namespace),
			slog.String("metric_name", desc.MetricName),
			slog.Int("data_points", result.SampleCount))
	}
	outcome.Result = &result
	outcome.DataPoints = result.SampleCount
	return outcome
}

// AnalyzeLogGroups analyses every log group (or the configured defaults when
// none are given) over the trailing window.
func (p *Pipeline) AnalyzeLogGroups(ctx context.Context, groups []string, window time.Duration) models.LogBatchReport {
	started := time.Now()
	if len(groups) == 0 {
		groups = p.cfg.DefaultLogGroups
	}
	if window <= 0 {
		window = p.cfg.LogWindow
	}

	results := make([]models.LogAnalysis, 0, len(groups))
	for _, group := range groups {
		p.logger.Info("analyzing log group", slog.String("log_group", group))
		analysis := p.analyzeLogGroup(ctx, group, window)
		results = append(results, analysis)

		switch {
		case analysis.Failed():
			metrics.ObserveItem(metrics.PipelineLogs, metrics.OutcomeError)
		case analysis.Status == models.LogStatusNoEvents:
			metrics.ObserveItem(metrics.PipelineLogs, metrics.OutcomeSkipped)
		default:
			metrics.ObserveItem(metrics.PipelineLogs, metrics.OutcomeSuccess)
		}

		if !analysis.Failed() && analysis.Severity.AtLeast(models.SeverityHigh) {
			p.publishAlert(ctx, logAlert(analysis, p.now().UTC()))
		}
		p.publishLogAnalysis(ctx, analysis)
	}

	metrics.ObserveBatch(metrics.PipelineLogs, time.Since(started))
	return models.LogBatchReport{Results: results, Timestamp: p.now().UTC()}
}

func (p *Pipeline) analyzeLogGroup(ctx context.Context, group string, window time.Duration) models.LogAnalysis {
	if p.logSource == nil {
		return models.LogAnalysis{LogGroup: group, Error: "log source not configured"}
	}

	start, end := utils.TrailingWindow(p.now().UTC(), window)
	batch, err := p.logSource.FetchLogBatch(ctx, group, start, end)
	if err != nil {
		p.logger.Error("log analysis failed", slog.String("log_group", group), slog.Any("error", err))
		return models.LogAnalysis{LogGroup: group, Error: err.Error()}
	}
	if batch.LogGroup == "" {
		batch.LogGroup = group
	}
	if batch.TimeRange.Start.IsZero() && batch.TimeRange.End.IsZero() {
		batch.TimeRange = models.TimeRange{Start: start, End: end}
	}

	analysis := p.analyzer.Analyze(ctx, batch)
	if analysis.Status == models.LogStatusNoEvents {
		p.logger.Info("no log events found", slog.String("log_group", group))
	}
	return analysis
}

func (p *Pipeline) publishScore(ctx context.Context, outcome models.MetricOutcome) {
	for _, sink := range p.sinks {
		if err := sink.PublishScore(ctx, outcome); err != nil {
			p.logger.Error("publish score failed",
				slog.String("metric_name", outcome.Descriptor.MetricName),
				slog.Any("error", err))
		}
	}
}

func (p *Pipeline) publishLogAnalysis(ctx context.Context, analysis models.LogAnalysis) {
	for _, sink := range p.sinks {
		if err := sink.PublishLogAnalysis(ctx, analysis); err != nil {
			p.logger.Error("publish log metrics failed",
				slog.String("log_group", analysis.LogGroup),
				slog.Any("error", err))
		}
	}
}

func (p *Pipeline) publishAlert(ctx context.Context, alert models.Alert) {
	if p.alerts == nil {
		return
	}
	alert.Recommendations = p.rules.Recommend(alert)
	if err := p.alerts.Publish(ctx, alert); err != nil {
		if errors.Is(err, models.ErrAlertSuppressed) {
			metrics.ObserveAlert(string(alert.Type), metrics.OutcomeSkipped)
			p.logger.Debug("duplicate alert suppressed", slog.String("source", alert.Source), slog.String("severity", string(alert.Severity)))
			return
		}
		metrics.ObserveAlert(string(alert.Type), metrics.OutcomeError)
		p.logger.Error("publish alert failed", slog.String("source", alert.Source), slog.Any("error", err))
		return
	}
	metrics.ObserveAlert(string(alert.Type), metrics.OutcomeSuccess)
	p.logger.Info("alert published", slog.String("source", alert.Source), slog.String("severity", string(alert.Severity)))
}

func metricAlert(outcome models.MetricOutcome) models.Alert {
	result := outcome.Result
	desc := outcome.Descriptor
	return models.Alert{
		ID:           uuid.NewString(),
		Type:         models.AlertTypeAnomaly,
		Severity:     result.Severity,
		Subject:      fmt.Sprintf("AIOps Anomaly Alert: %s - %s", result.Severity, nonEmpty(desc.MetricName, "Unknown")),
		Source:       desc.Namespace + "/" + desc.MetricName,
		AnomalyScore: result.Score,
		Details: map[string]any{
			"namespace":     desc.Namespace,
			"metric_name":   desc.MetricName,
			"dimensions":    desc.Dimensions,
			"current_value": result.CurrentValue,
			"baseline_mean": result.BaselineMean,
			"z_score":       result.ZScore,
			"trend":         result.Trend,
		},
		Timestamp: outcome.Timestamp,
	}
}

func logAlert(analysis models.LogAnalysis, now time.Time) models.Alert {
	return models.Alert{
		ID:           uuid.NewString(),
		Type:         models.AlertTypeLogAnalysis,
		Severity:     analysis.Severity,
		Subject:      fmt.Sprintf("AIOps Alert: %s - %s", analysis.Severity, nonEmpty(analysis.LogGroup, "Unknown")),
		Source:       analysis.LogGroup,
		AnomalyScore: analysis.AnomalyScore,
		Details: map[string]any{
			"log_group":   analysis.LogGroup,
			"error_count": analysis.ErrorCount,
			"error_rate":  analysis.ErrorRate,
			"error_types": analysis.ErrorTypes,
		},
		Insight:   analysis.AIInsights,
		Timestamp: now,
	}
}

func nonEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
