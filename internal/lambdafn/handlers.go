// Package lambdafn adapts the batch pipeline to AWS Lambda invocations.
package lambdafn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// Runner runs metric and log batches; *engine.Pipeline satisfies it.
type Runner interface {
	ScoreMetrics(ctx context.Context, descriptors []models.MetricDescriptor) models.MetricBatchReport
	AnalyzeLogGroups(ctx context.Context, groups []string, window time.Duration) models.LogBatchReport
}

// Handlers exposes the metric and log entry points. Both accept either a
// direct invocation payload or an API Gateway proxy request wrapping it.
type Handlers struct {
	logger *slog.Logger
	runner Runner
}

// NewHandlers constructs the Lambda handlers.
func NewHandlers(logger *slog.Logger, runner Runner) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{logger: logger, runner: runner}
}

// ScoreMetrics handles {"metrics": [...]} events. Per-item failures are
// reported inside the 200 response body.
func (h *Handlers) ScoreMetrics(ctx context.Context, event json.RawMessage) (events.APIGatewayProxyResponse, error) {
	h.logger.Info("received event", slog.String("handler", "anomaly-scorer"), slog.Int("bytes", len(event)))

	var req models.MetricBatchRequest
	if err := decodeEvent(event, &req); err != nil {
		return h.badRequest(err), nil
	}
	if err := req.Validate(); err != nil {
		return h.badRequest(err), nil
	}

	report := h.runner.ScoreMetrics(ctx, req.Metrics)
	return h.ok(report)
}

// AnalyzeLogs handles {"log_groups": [...], "hours": n} events.
func (h *Handlers) AnalyzeLogs(ctx context.Context, event json.RawMessage) (events.APIGatewayProxyResponse, error) {
	h.logger.Info("received event", slog.String("handler", "log-analyzer"), slog.Int("bytes", len(event)))

	var req models.LogBatchRequest
	if err := decodeEvent(event, &req); err != nil {
		return h.badRequest(err), nil
	}
	if err := req.Validate(); err != nil {
		return h.badRequest(err), nil
	}

	report := h.runner.AnalyzeLogGroups(ctx, req.LogGroups, req.Window())
	return h.ok(report)
}

// decodeEvent unwraps API Gateway proxy requests before decoding into out.
func decodeEvent(event json.RawMessage, out any) error {
	if len(event) == 0 || string(event) == "null" {
		return nil
	}

	var proxy events.APIGatewayProxyRequest
	if err := json.Unmarshal(event, &proxy); err == nil && proxy.HTTPMethod != "" {
		if proxy.Body == "" {
			return nil
		}
		event = json.RawMessage(proxy.Body)
	}

	if err := json.Unmarshal(event, out); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return nil
}

func (h *Handlers) ok(report any) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("marshal report: %w", err)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func (h *Handlers) badRequest(err error) events.APIGatewayProxyResponse {
	h.logger.Warn("rejected event", slog.Any("error", err))
	body, _ := json.Marshal(map[string]string{"error": err.Error()})
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusBadRequest,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
