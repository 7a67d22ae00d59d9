package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

// GatewayConfig locates the HTTP telemetry gateway endpoints.
type GatewayConfig struct {
	BaseURL     string
	MetricsPath string
	LogsPath    string
	Timeout     time.Duration
}

// TelemetryGatewayClient fetches metric samples and log lines from an HTTP
// telemetry gateway (mirador-core or the local mock).
type TelemetryGatewayClient struct {
	baseURL     string
	metricsPath string
	logsPath    string
	httpClient  *http.Client
}

// NewTelemetryGatewayClient constructs a client targeting the configured gateway.
func NewTelemetryGatewayClient(cfg GatewayConfig) *TelemetryGatewayClient {
	return &TelemetryGatewayClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		metricsPath: cfg.MetricsPath,
		logsPath:    cfg.LogsPath,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FetchMetricSeries queries the gateway for metric samples.
func (c *TelemetryGatewayClient) FetchMetricSeries(ctx context.Context, desc models.MetricDescriptor, start, end time.Time) (models.MetricSeries, error) {
	const op = "gateway.FetchMetricSeries"
	if c == nil || c.baseURL == "" {
		return models.MetricSeries{}, utils.NotConfigured(op, "gateway base URL")
	}
	desc = desc.WithDefaults()

	payload := map[string]any{
		"namespace":   desc.Namespace,
		"metric_name": desc.MetricName,
		"dimensions":  desc.Dimensions,
		"statistic":   desc.Statistic,
		"start":       start.UTC().Format(time.RFC3339),
		"end":         end.UTC().Format(time.RFC3339),
	}

	var response struct {
		Series []models.Sample `json:"series"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.metricsPath), payload, &response); err != nil {
		return models.MetricSeries{}, utils.NewAppError(op, "metrics request failed", err)
	}

	return models.MetricSeries{MetricDescriptor: desc, Samples: response.Series}, nil
}

// FetchLogBatch queries the gateway for raw log events, oldest first.
func (c *TelemetryGatewayClient) FetchLogBatch(ctx context.Context, logGroup string, start, end time.Time) (models.LogBatch, error) {
	const op = "gateway.FetchLogBatch"
	if c == nil || c.baseURL == "" {
		return models.LogBatch{}, utils.NotConfigured(op, "gateway base URL")
	}

	payload := map[string]any{
		"log_group": logGroup,
		"start":     start.UTC().Format(time.RFC3339),
		"end":       end.UTC().Format(time.RFC3339),
	}

	var response struct {
		Events []struct {
			Timestamp time.Time `json:"timestamp"`
			Message   string    `json:"message"`
		} `json:"events"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.logsPath), payload, &response); err != nil {
		return models.LogBatch{}, utils.NewAppError(op, "logs request failed", err)
	}

	sort.SliceStable(response.Events, func(i, j int) bool {
		return response.Events[i].Timestamp.Before(response.Events[j].Timestamp)
	})
	batch := models.LogBatch{
		LogGroup:  logGroup,
		TimeRange: models.TimeRange{Start: start, End: end},
		Lines:     make([]string, 0, len(response.Events)),
	}
	for _, e := range response.Events {
		batch.Lines = append(batch.Lines, e.Message)
	}
	return batch, nil
}

func (c *TelemetryGatewayClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *TelemetryGatewayClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
