package services

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-aiops/internal/api"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

// BatchRunner runs metric and log batches; *engine.Pipeline satisfies it.
type BatchRunner interface {
	ScoreMetrics(ctx context.Context, descriptors []models.MetricDescriptor) models.MetricBatchReport
	AnalyzeLogGroups(ctx context.Context, groups []string, window time.Duration) models.LogBatchReport
}

// ScoringService implements the gRPC AnomalyScoring service.
type ScoringService struct {
	logger    *slog.Logger
	pipeline  BatchRunner
	latencies *utils.LatencyTracker
	started   time.Time
}

// NewScoringService constructs the scoring service facade.
func NewScoringService(logger *slog.Logger, pipeline BatchRunner) *ScoringService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoringService{
		logger:    logger,
		pipeline:  pipeline,
		latencies: utils.NewLatencyTracker(1024),
		started:   time.Now(),
	}
}

// ScoreMetrics scores the requested metrics (or the default set).
func (s *ScoringService) ScoreMetrics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "pipeline not configured")
	}
	domainReq, err := api.FromProtoMetricBatchRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.logger.Debug("ScoreMetrics called", slog.Int("metrics", len(domainReq.Metrics)))
	start := time.Now()
	report := s.pipeline.ScoreMetrics(ctx, domainReq.Metrics)
	s.observe(time.Since(start))

	return s.encode(report)
}

// AnalyzeLogs analyses the requested log groups (or the configured set).
func (s *ScoringService) AnalyzeLogs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "pipeline not configured")
	}
	domainReq, err := api.FromProtoLogBatchRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.logger.Debug("AnalyzeLogs called", slog.Int("log_groups", len(domainReq.LogGroups)))
	start := time.Now()
	report := s.pipeline.AnalyzeLogGroups(ctx, domainReq.LogGroups, domainReq.Window())
	s.observe(time.Since(start))

	return s.encode(report)
}

// HealthCheck returns the current health state and batch latency summary.
func (s *ScoringService) HealthCheck(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary := s.latencies.Summary()
	resp, err := structpb.NewStruct(map[string]any{
		"status":         "SERVING",
		"uptime_seconds": time.Since(s.started).Seconds(),
		"batches":        summary.Count,
		"latency_p95_ms": float64(summary.P95) / float64(time.Millisecond),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// LatencyP95 returns the current p95 batch latency.
func (s *ScoringService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *ScoringService) observe(d time.Duration) {
	s.latencies.Observe(d)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("batch latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}
}

func (s *ScoringService) encode(report any) (*structpb.Struct, error) {
	resp, err := api.ToProtoStruct(report)
	if err != nil {
		s.logger.Error("encode report failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode report")
	}
	return resp, nil
}
