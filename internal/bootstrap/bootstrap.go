// Package bootstrap assembles the scoring pipeline and its collaborators from
// configuration. The gRPC service and both Lambda entry points share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/miradorstack/mirador-aiops/internal/cache"
	"github.com/miradorstack/mirador-aiops/internal/config"
	"github.com/miradorstack/mirador-aiops/internal/engine"
	"github.com/miradorstack/mirador-aiops/internal/extractors"
	"github.com/miradorstack/mirador-aiops/internal/insight"
	"github.com/miradorstack/mirador-aiops/internal/metrics"
	"github.com/miradorstack/mirador-aiops/internal/models"
	"github.com/miradorstack/mirador-aiops/internal/notify"
	"github.com/miradorstack/mirador-aiops/internal/repo"
)

// App holds the assembled pipeline and the resources it owns.
type App struct {
	Pipeline *engine.Pipeline
	Cache    cache.Provider

	closers []func() error
}

// Close releases broker connections and cache clients in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Build wires the pipeline described by cfg. AWS configuration is only
// loaded when a component needs it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{}
	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	var awsCfg aws.Config
	if needsAWS(cfg) {
		loaded, err := LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return fail(err)
		}
		awsCfg = loaded
	}

	provider, err := newCache(cfg.Cache, logger)
	if err != nil {
		return fail(err)
	}
	app.Cache = provider
	app.onClose(provider.Close)

	var (
		metricSource engine.MetricSource
		logSource    engine.LogSource
	)
	switch cfg.Telemetry.Source {
	case config.SourceGateway:
		gateway := repo.NewTelemetryGatewayClient(repo.GatewayConfig{
			BaseURL:     cfg.Telemetry.Gateway.BaseURL,
			MetricsPath: cfg.Telemetry.Gateway.MetricsPath,
			LogsPath:    cfg.Telemetry.Gateway.LogsPath,
			Timeout:     cfg.Telemetry.Gateway.Timeout,
		})
		metricSource, logSource = gateway, gateway
	default:
		metricSource = repo.NewCloudWatchClient(cloudwatch.NewFromConfig(awsCfg, withEndpoint[cloudwatch.Options](cfg.AWS.Endpoint)))
		logSource = repo.NewCloudWatchLogsClient(
			cloudwatchlogs.NewFromConfig(awsCfg, withEndpoint[cloudwatchlogs.Options](cfg.AWS.Endpoint)),
			cfg.Telemetry.MaxLogEvents,
		)
	}

	var sinks []engine.MetricSink
	if cfg.Publish.CloudWatch {
		sinks = append(sinks, repo.NewCloudWatchClient(cloudwatch.NewFromConfig(awsCfg, withEndpoint[cloudwatch.Options](cfg.AWS.Endpoint))))
	}
	if cfg.Publish.Prometheus {
		sinks = append(sinks, metrics.NewPrometheusSink())
	}

	publishers, err := newPublishers(app, cfg, awsCfg, logger)
	if err != nil {
		return fail(err)
	}
	var alerts engine.AlertPublisher
	if bus := notify.NewMulti(publishers...); bus != nil {
		alerts = notify.NewDeduper(bus, provider, cfg.Alerts.DedupTTL, logger)
	} else {
		logger.Warn("no alert bus configured; alerts will not be sent")
	}

	var insights engine.InsightProvider
	if cfg.Insight.Enabled {
		bedrockCfg := awsCfg.Copy()
		if cfg.Insight.Region != "" {
			bedrockCfg.Region = cfg.Insight.Region
		}
		client := bedrockruntime.NewFromConfig(bedrockCfg, withEndpoint[bedrockruntime.Options](cfg.Insight.Endpoint))
		insights = insight.NewBedrockProvider(client, cfg.Insight.MaxTokens, logger)
	}

	rules, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		return fail(fmt.Errorf("load rules: %w", err))
	}

	defaults := make([]models.MetricDescriptor, 0, len(cfg.Scoring.DefaultMetrics))
	for _, m := range cfg.Scoring.DefaultMetrics {
		defaults = append(defaults, m.Descriptor())
	}

	app.Pipeline = engine.NewPipeline(
		logger,
		metricSource,
		logSource,
		engine.NewSeriesScorer(cfg.Scoring.WindowSize, cfg.Scoring.MinDataPoints),
		engine.NewLogAnalyzer(logger, extractors.NewPatternExtractor(cfg.Logs.PatternSampleLimit), insights, cfg.Insight.ModelID),
		rules,
		alerts,
		engine.PipelineConfig{
			AnomalyThreshold: cfg.Scoring.AnomalyThreshold,
			LogWindow:        cfg.Logs.Window,
			DefaultMetrics:   defaults,
			DefaultLogGroups: cfg.Logs.Groups,
		},
		sinks...,
	)

	logger.Info("pipeline assembled",
		slog.String("source", cfg.Telemetry.Source),
		slog.String("cache", cfg.Cache.Backend),
		slog.Int("alert_buses", len(publishers)),
		slog.Int("sinks", len(sinks)),
		slog.Bool("insights", insights != nil),
	)
	return app, nil
}

// LoadAWSConfig resolves SDK configuration, preferring static credentials
// when both key halves are set.
func LoadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func needsAWS(cfg *config.Config) bool {
	return cfg.Telemetry.Source != config.SourceGateway ||
		cfg.Publish.CloudWatch ||
		cfg.Alerts.SNSTopicARN != "" ||
		cfg.Insight.Enabled
}

// endpointOptions is satisfied by the option structs of every SDK client used here.
type endpointOptions interface {
	cloudwatch.Options | cloudwatchlogs.Options | sns.Options | bedrockruntime.Options
}

func withEndpoint[O endpointOptions](endpoint string) func(*O) {
	return func(o *O) {
		if endpoint == "" {
			return
		}
		switch opts := any(o).(type) {
		case *cloudwatch.Options:
			opts.BaseEndpoint = aws.String(endpoint)
		case *cloudwatchlogs.Options:
			opts.BaseEndpoint = aws.String(endpoint)
		case *sns.Options:
			opts.BaseEndpoint = aws.String(endpoint)
		case *bedrockruntime.Options:
			opts.BaseEndpoint = aws.String(endpoint)
		}
	}
}

func newCache(cfg config.CacheConfig, logger *slog.Logger) (cache.Provider, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NoopProvider{}, nil
	case config.CacheValkey:
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, falling back to memory", slog.Any("error", err))
			return cache.NewMemoryProvider(), nil
		}
		return provider, nil
	default:
		return cache.NewMemoryProvider(), nil
	}
}

func newPublishers(app *App, cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) ([]notify.Publisher, error) {
	var publishers []notify.Publisher

	if cfg.Alerts.SNSTopicARN != "" {
		client := sns.NewFromConfig(awsCfg, withEndpoint[sns.Options](cfg.AWS.Endpoint))
		if p := notify.NewSNSPublisher(client, cfg.Alerts.SNSTopicARN, logger); p != nil {
			publishers = append(publishers, p)
		}
	}

	if cfg.Alerts.RabbitMQ.Enabled {
		conn, err := amqp.Dial(cfg.Alerts.RabbitMQ.URL)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		app.onClose(conn.Close)

		p, err := notify.NewRabbitPublisher(conn, cfg.Alerts.RabbitMQ.Exchange, cfg.Alerts.RabbitMQ.RoutingKey)
		if err != nil {
			return nil, fmt.Errorf("declare exchange: %w", err)
		}
		app.onClose(p.Close)
		publishers = append(publishers, p)
	}

	return publishers, nil
}
