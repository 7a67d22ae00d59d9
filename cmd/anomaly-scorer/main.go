// Command anomaly-scorer is the Lambda entry point for metric batches.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/miradorstack/mirador-aiops/internal/bootstrap"
	"github.com/miradorstack/mirador-aiops/internal/config"
	"github.com/miradorstack/mirador-aiops/internal/lambdafn"
	"github.com/miradorstack/mirador-aiops/internal/utils"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.Logging.Level, true)

	app, err := bootstrap.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to assemble pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	lambda.Start(lambdafn.NewHandlers(logger, app.Pipeline).ScoreMetrics)
}
