package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

var pipelineNow = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

type fakeMetricSource struct {
	series map[string][]float64
	failed map[string]error
	starts []time.Time
	ends   []time.Time
}

func (f *fakeMetricSource) FetchMetricSeries(ctx context.Context, desc models.MetricDescriptor, start, end time.Time) (models.MetricSeries, error) {
	f.starts = append(f.starts, start)
	f.ends = append(f.ends, end)
	if err, ok := f.failed[desc.MetricName]; ok {
		return models.MetricSeries{}, err
	}
	series := models.MetricSeries{MetricDescriptor: desc}
	for i, v := range f.series[desc.MetricName] {
		series.Samples = append(series.Samples, models.Sample{Timestamp: start.Add(time.Duration(i) * 5 * time.Minute), Value: v})
	}
	return series, nil
}

type fakeLogSource struct {
	lines  map[string][]string
	failed map[string]error
	window time.Duration
}

func (f *fakeLogSource) FetchLogBatch(ctx context.Context, logGroup string, start, end time.Time) (models.LogBatch, error) {
	f.window = end.Sub(start)
	if err, ok := f.failed[logGroup]; ok {
		return models.LogBatch{}, err
	}
	return models.LogBatch{Lines: f.lines[logGroup]}, nil
}

type fakeSink struct {
	scores []models.MetricOutcome
	logs   []models.LogAnalysis
}

func (f *fakeSink) PublishScore(ctx context.Context, outcome models.MetricOutcome) error {
	f.scores = append(f.scores, outcome)
	return nil
}

func (f *fakeSink) PublishLogAnalysis(ctx context.Context, analysis models.LogAnalysis) error {
	f.logs = append(f.logs, analysis)
	return errors.New("sink unavailable")
}

type fakeAlerts struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (f *fakeAlerts) Publish(ctx context.Context, alert models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

func spikeValues() []float64 {
	return []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 30}
}

func flatValues() []float64 {
	return []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10}
}

func newTestPipeline(ms MetricSource, ls LogSource, rules *RuleEngine, alerts AlertPublisher, sinks ...MetricSink) *Pipeline {
	p := NewPipeline(nil, ms, ls, nil, nil, rules, alerts, PipelineConfig{DefaultLogGroups: []string{"/aws/lambda/default"}}, sinks...)
	p.now = func() time.Time { return pipelineNow }
	return p
}

func TestPipelineScoreMetricsContinuesPastFailures(t *testing.T) {
	source := &fakeMetricSource{
		series: map[string][]float64{"Duration": spikeValues(), "Throttles": {1, 2}},
		failed: map[string]error{"Errors": errors.New("access denied")},
	}
	sink := &fakeSink{}
	alerts := &fakeAlerts{}
	p := newTestPipeline(source, nil, nil, alerts, sink)

	report := p.ScoreMetrics(context.Background(), []models.MetricDescriptor{
		{Namespace: "AWS/Lambda", MetricName: "Errors"},
		{Namespace: "AWS/Lambda", MetricName: "Duration"},
		{Namespace: "AWS/Lambda", MetricName: "Throttles"},
	})

	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}
	if report.Results[0].Error != "access denied" || !report.Results[0].Failed() {
		t.Fatalf("expected first item to carry the fetch error, got %+v", report.Results[0])
	}
	if report.Results[1].Result == nil || report.Results[1].Result.Severity != models.SeverityCritical {
		t.Fatalf("expected spike to be critical, got %+v", report.Results[1].Result)
	}
	if report.Results[2].Result == nil || !report.Results[2].Result.Insufficient() {
		t.Fatalf("expected insufficient data for short series, got %+v", report.Results[2].Result)
	}
	if report.Results[1].Descriptor.Statistic != models.StatisticAverage {
		t.Fatalf("expected default statistic, got %q", report.Results[1].Descriptor.Statistic)
	}
	if !report.Timestamp.Equal(pipelineNow) {
		t.Fatalf("unexpected report timestamp %v", report.Timestamp)
	}

	if len(sink.scores) != 2 {
		t.Fatalf("expected successful and insufficient items to reach the sink, got %d", len(sink.scores))
	}
	if len(alerts.alerts) != 1 {
		t.Fatalf("expected a single alert, got %d", len(alerts.alerts))
	}
	alert := alerts.alerts[0]
	if alert.Type != models.AlertTypeAnomaly || alert.Source != "AWS/Lambda/Duration" {
		t.Fatalf("unexpected alert %+v", alert)
	}
	if alert.Subject != "AIOps Anomaly Alert: CRITICAL - Duration" {
		t.Fatalf("unexpected subject %q", alert.Subject)
	}
	if alert.ID == "" {
		t.Fatalf("expected alert id")
	}
	if got := source.ends[0].Sub(source.starts[0]); got != DefaultWindowSize {
		t.Fatalf("expected %v fetch window, got %v", DefaultWindowSize, got)
	}
}

func TestPipelineScoreMetricsDefaults(t *testing.T) {
	source := &fakeMetricSource{series: map[string][]float64{}}
	p := newTestPipeline(source, nil, nil, nil)

	report := p.ScoreMetrics(context.Background(), nil)
	if len(report.Results) != len(DefaultMetrics()) {
		t.Fatalf("expected default metric set, got %d results", len(report.Results))
	}
	for _, outcome := range report.Results {
		if outcome.Result == nil || !outcome.Result.Insufficient() {
			t.Fatalf("expected insufficient data for empty series, got %+v", outcome)
		}
	}
}

func TestPipelineScoreMetricsBelowThreshold(t *testing.T) {
	source := &fakeMetricSource{series: map[string][]float64{"Duration": flatValues()}}
	alerts := &fakeAlerts{}
	p := newTestPipeline(source, nil, nil, alerts)

	p.ScoreMetrics(context.Background(), []models.MetricDescriptor{{Namespace: "AWS/Lambda", MetricName: "Duration"}})
	if len(alerts.alerts) != 0 {
		t.Fatalf("expected no alert for flat series, got %d", len(alerts.alerts))
	}
}

func TestPipelineWithoutMetricSource(t *testing.T) {
	p := newTestPipeline(nil, nil, nil, nil)
	report := p.ScoreMetrics(context.Background(), []models.MetricDescriptor{{Namespace: "AWS/Lambda", MetricName: "Duration"}})
	if report.Results[0].Error == "" {
		t.Fatalf("expected configuration error")
	}
}

func TestPipelineAnalyzeLogGroups(t *testing.T) {
	noisy := make([]string, 0, 40)
	for i := 0; i < 30; i++ {
		noisy = append(noisy, "ERROR database timeout")
	}
	for i := 0; i < 10; i++ {
		noisy = append(noisy, "ok")
	}

	source := &fakeLogSource{
		lines: map[string][]string{
			"/aws/lambda/noisy": noisy,
			"/aws/lambda/quiet": {"ok", "ok"},
		},
		failed: map[string]error{"/aws/lambda/broken": errors.New("ResourceNotFoundException")},
	}
	sink := &fakeSink{}
	alerts := &fakeAlerts{}
	p := newTestPipeline(nil, source, nil, alerts, sink)

	report := p.AnalyzeLogGroups(context.Background(), []string{"/aws/lambda/broken", "/aws/lambda/noisy", "/aws/lambda/quiet", "/aws/lambda/empty"}, 0)

	if len(report.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(report.Results))
	}
	if report.Results[0].Error == "" || report.Results[0].LogGroup != "/aws/lambda/broken" {
		t.Fatalf("expected failed first item, got %+v", report.Results[0])
	}
	noisyResult := report.Results[1]
	if noisyResult.Severity != models.SeverityHigh {
		t.Fatalf("expected high severity noisy group, got %s (score %.2f)", noisyResult.Severity, noisyResult.AnomalyScore)
	}
	if noisyResult.TimeRange == nil || !noisyResult.TimeRange.End.Equal(pipelineNow) {
		t.Fatalf("expected time range ending now, got %+v", noisyResult.TimeRange)
	}
	if report.Results[3].Status != models.LogStatusNoEvents {
		t.Fatalf("expected no_events for empty group, got %q", report.Results[3].Status)
	}
	if source.window != DefaultLogWindow {
		t.Fatalf("expected default log window, got %v", source.window)
	}
	if len(alerts.alerts) != 1 || alerts.alerts[0].Source != "/aws/lambda/noisy" {
		t.Fatalf("expected one alert for the noisy group, got %+v", alerts.alerts)
	}
	if alerts.alerts[0].Subject != "AIOps Alert: HIGH - /aws/lambda/noisy" {
		t.Fatalf("unexpected subject %q", alerts.alerts[0].Subject)
	}
	if len(sink.logs) != 4 {
		t.Fatalf("expected every item to reach the sink, got %d", len(sink.logs))
	}
}

func TestPipelineAnalyzeLogGroupsDefaults(t *testing.T) {
	source := &fakeLogSource{lines: map[string][]string{}}
	p := newTestPipeline(nil, source, nil, nil)

	report := p.AnalyzeLogGroups(context.Background(), nil, 6*time.Hour)
	if len(report.Results) != 1 || report.Results[0].LogGroup != "/aws/lambda/default" {
		t.Fatalf("expected configured default group, got %+v", report.Results)
	}
	if source.window != 6*time.Hour {
		t.Fatalf("expected requested window, got %v", source.window)
	}
}

func TestPipelineAttachesRecommendations(t *testing.T) {
	rules := &RuleEngine{rules: []Rule{
		{ID: "lambda", Match: RuleMatch{Type: "anomaly_detection", SourceContains: []string{"lambda"}}, Recommendations: []string{"Review recent deployments"}},
	}}
	source := &fakeMetricSource{series: map[string][]float64{"Duration": spikeValues()}}
	alerts := &fakeAlerts{}
	p := newTestPipeline(source, nil, rules, alerts)

	p.ScoreMetrics(context.Background(), []models.MetricDescriptor{{Namespace: "AWS/Lambda", MetricName: "Duration"}})
	if len(alerts.alerts) != 1 {
		t.Fatalf("expected alert, got %d", len(alerts.alerts))
	}
	if recs := alerts.alerts[0].Recommendations; len(recs) != 1 || recs[0] != "Review recent deployments" {
		t.Fatalf("unexpected recommendations %v", recs)
	}
}
