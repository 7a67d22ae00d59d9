package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-aiops/internal/cache"
	"github.com/miradorstack/mirador-aiops/internal/config"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

func gatewayConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aiops.yaml")
	content := []byte(`
telemetry:
  source: gateway
  gateway:
    baseURL: ` + baseURL + `
publish:
  cloudwatch: false
  prometheus: false
cache:
  backend: memory
rules:
  path: ""
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildGatewayPipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/aiops/logs":
			_ = json.NewEncoder(w).Encode(map[string]any{"events": []any{}})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"series": []any{}})
		}
	}))
	defer srv.Close()

	app, err := Build(context.Background(), gatewayConfig(t, srv.URL), nil)
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &cache.MemoryProvider{}, app.Cache)

	metricsReport := app.Pipeline.ScoreMetrics(context.Background(), []models.MetricDescriptor{
		{Namespace: "AWS/Lambda", MetricName: "Errors", Statistic: models.StatisticSum},
	})
	require.Len(t, metricsReport.Results, 1)
	assert.Empty(t, metricsReport.Results[0].Error)
	require.NotNil(t, metricsReport.Results[0].Result)
	assert.Equal(t, models.ScoreStatusInsufficientData, metricsReport.Results[0].Result.Status)

	logsReport := app.Pipeline.AnalyzeLogGroups(context.Background(), []string{"/aws/lambda/a"}, time.Hour)
	require.Len(t, logsReport.Results, 1)
	assert.Equal(t, models.LogStatusNoEvents, logsReport.Results[0].Status)
}

func TestBuildNoopCache(t *testing.T) {
	cfg := gatewayConfig(t, "http://127.0.0.1:1")
	cfg.Cache.Backend = config.CacheNone

	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, cache.NoopProvider{}, app.Cache)
	assert.NoError(t, app.Close())
}

func TestBuildRejectsNilConfig(t *testing.T) {
	_, err := Build(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	awsCfg, err := LoadAWSConfig(context.Background(), config.AWSConfig{
		Region:          "eu-west-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
}

func TestNeedsAWS(t *testing.T) {
	cfg := gatewayConfig(t, "http://gateway")
	assert.False(t, needsAWS(cfg))

	cfg.Insight.Enabled = true
	assert.True(t, needsAWS(cfg))
}
