package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-aiops/internal/models"
)

// Telemetry sources.
const (
	SourceCloudWatch = "cloudwatch"
	SourceGateway    = "gateway"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheValkey = "valkey"
)

// Config captures the settings required to boot the anomaly scoring service
// and its Lambda entry points.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	AWS       AWSConfig       `yaml:"aws"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Logs      LogsConfig      `yaml:"logs"`
	Insight   InsightConfig   `yaml:"insight"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Publish   PublishConfig   `yaml:"publish"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
	Rules     RulesConfig     `yaml:"rules"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// AWSConfig controls SDK configuration shared by every AWS client. Empty
// credentials fall back to the default provider chain.
type AWSConfig struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	SessionToken    string `yaml:"sessionToken"`
}

// TelemetryConfig selects where metric samples and log lines come from.
type TelemetryConfig struct {
	Source       string        `yaml:"source"`
	Gateway      GatewayConfig `yaml:"gateway"`
	MaxLogEvents int           `yaml:"maxLogEvents"`
}

// GatewayConfig configures the HTTP telemetry gateway.
type GatewayConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	MetricsPath string        `yaml:"metricsPath"`
	LogsPath    string        `yaml:"logsPath"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ScoringConfig tunes the numeric series scorer.
type ScoringConfig struct {
	WindowSize       time.Duration  `yaml:"windowSize"`
	MinDataPoints    int            `yaml:"minDataPoints"`
	AnomalyThreshold float64        `yaml:"anomalyThreshold"`
	DefaultMetrics   []MetricConfig `yaml:"defaultMetrics"`
}

// MetricConfig names a metric in YAML.
type MetricConfig struct {
	Namespace  string            `yaml:"namespace"`
	MetricName string            `yaml:"metricName"`
	Dimensions map[string]string `yaml:"dimensions"`
	Statistic  string            `yaml:"statistic"`
}

// Descriptor converts the YAML form into a models.MetricDescriptor.
func (m MetricConfig) Descriptor() models.MetricDescriptor {
	return models.MetricDescriptor{
		Namespace:  m.Namespace,
		MetricName: m.MetricName,
		Dimensions: m.Dimensions,
		Statistic:  models.Statistic(m.Statistic),
	}.WithDefaults()
}

// LogsConfig tunes the log batch analyzer.
type LogsConfig struct {
	Groups             []string      `yaml:"groups"`
	Window             time.Duration `yaml:"window"`
	PatternSampleLimit int           `yaml:"patternSampleLimit"`
}

// InsightConfig controls the optional Bedrock text-insight provider.
type InsightConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ModelID   string `yaml:"modelID"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	MaxTokens int    `yaml:"maxTokens"`
}

// AlertsConfig configures the notification buses.
type AlertsConfig struct {
	SNSTopicARN string         `yaml:"snsTopicARN"`
	DedupTTL    time.Duration  `yaml:"dedupTTL"`
	RabbitMQ    RabbitMQConfig `yaml:"rabbitmq"`
}

// RabbitMQConfig configures the topic exchange alert publisher.
type RabbitMQConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routingKey"`
}

// PublishConfig toggles metric sinks.
type PublishConfig struct {
	CloudWatch bool `yaml:"cloudwatch"`
	Prometheus bool `yaml:"prometheus"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig controls rule-pack loading for alert recommendations.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls the cache backing alert deduplication.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_AIOPS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Telemetry.Source {
	case SourceCloudWatch:
	case SourceGateway:
		if c.Telemetry.Gateway.BaseURL == "" {
			return errors.New("telemetry.gateway.baseURL is required for the gateway source")
		}
	default:
		return fmt.Errorf("unknown telemetry source %q", c.Telemetry.Source)
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheValkey:
		if c.Cache.Addr == "" {
			return errors.New("cache.addr is required for the valkey backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Scoring.AnomalyThreshold <= 0 || c.Scoring.AnomalyThreshold > 1 {
		return fmt.Errorf("scoring.anomalyThreshold must be in (0,1], got %v", c.Scoring.AnomalyThreshold)
	}
	if c.Alerts.RabbitMQ.Enabled && c.Alerts.RabbitMQ.URL == "" {
		return errors.New("alerts.rabbitmq.url is required when rabbitmq is enabled")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		AWS: AWSConfig{Region: "us-east-1"},
		Telemetry: TelemetryConfig{
			Source: SourceCloudWatch,
			Gateway: GatewayConfig{
				MetricsPath: "/api/v1/aiops/metrics",
				LogsPath:    "/api/v1/aiops/logs",
				Timeout:     5 * time.Second,
			},
			MaxLogEvents: 10000,
		},
		Scoring: ScoringConfig{
			WindowSize:       24 * time.Hour,
			MinDataPoints:    10,
			AnomalyThreshold: 0.7,
		},
		Logs: LogsConfig{
			Window:             time.Hour,
			PatternSampleLimit: 100,
		},
		Insight: InsightConfig{
			Enabled:   false,
			ModelID:   "anthropic.claude-3-sonnet-20240229-v1:0",
			Region:    "us-east-1",
			MaxTokens: 1000,
		},
		Alerts: AlertsConfig{
			DedupTTL: 15 * time.Minute,
			RabbitMQ: RabbitMQConfig{Exchange: "aiops", RoutingKey: "aiops.alerts"},
		},
		Publish: PublishConfig{CloudWatch: true, Prometheus: true},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			Backend:      CacheMemory,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	// Names shared with the Lambda deployment.
	if v := os.Getenv("SNS_TOPIC_ARN"); v != "" {
		cfg.Alerts.SNSTopicARN = v
	}
	if v := os.Getenv("ANOMALY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.AnomalyThreshold = f
		}
	}
	if v := os.Getenv("ENABLE_BEDROCK"); v != "" {
		cfg.Insight.Enabled = parseBool(v)
	}
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		cfg.Insight.ModelID = v
	}
	if v := os.Getenv("LOG_GROUPS"); v != "" {
		cfg.Logs.Groups = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}

	if v := os.Getenv("MIRADOR_AIOPS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_AWS_ENDPOINT"); v != "" {
		cfg.AWS.Endpoint = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_TELEMETRY_SOURCE"); v != "" {
		cfg.Telemetry.Source = strings.ToLower(v)
	}
	if v := os.Getenv("MIRADOR_AIOPS_GATEWAY_URL"); v != "" {
		cfg.Telemetry.Gateway.BaseURL = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_GATEWAY_METRICS_PATH"); v != "" {
		cfg.Telemetry.Gateway.MetricsPath = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_GATEWAY_LOGS_PATH"); v != "" {
		cfg.Telemetry.Gateway.LogsPath = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_WINDOW_SIZE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scoring.WindowSize = d
		}
	}
	if v := os.Getenv("MIRADOR_AIOPS_MIN_DATA_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.MinDataPoints = n
		}
	}
	if v := os.Getenv("MIRADOR_AIOPS_LOG_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Logs.Window = d
		}
	}
	if v := os.Getenv("MIRADOR_AIOPS_INSIGHT_REGION"); v != "" {
		cfg.Insight.Region = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_INSIGHT_ENDPOINT"); v != "" {
		cfg.Insight.Endpoint = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_DEDUP_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Alerts.DedupTTL = d
		}
	}
	if v := os.Getenv("MIRADOR_AIOPS_RABBITMQ_URL"); v != "" {
		cfg.Alerts.RabbitMQ.URL = v
		cfg.Alerts.RabbitMQ.Enabled = true
	}
	if v := os.Getenv("MIRADOR_AIOPS_RABBITMQ_EXCHANGE"); v != "" {
		cfg.Alerts.RabbitMQ.Exchange = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_PUBLISH_CLOUDWATCH"); v != "" {
		cfg.Publish.CloudWatch = parseBool(v)
	}
	if v := os.Getenv("MIRADOR_AIOPS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_AIOPS_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("MIRADOR_AIOPS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("MIRADOR_AIOPS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("MIRADOR_AIOPS_CACHE_TLS"); parseBool(v) {
		cfg.Cache.TLS = true
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
