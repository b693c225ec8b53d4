// Command worker hosts the asynchronous optimization workflow.
package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/config"
	"github.com/promptforge/api/internal/database"
	"github.com/promptforge/api/internal/llm"
	"github.com/promptforge/api/internal/optimizer"
	"github.com/promptforge/api/internal/orchestration"
	"github.com/promptforge/api/internal/repository"
	"github.com/promptforge/api/internal/telemetry"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	shutdownTelemetry, err := telemetry.InitTracer(ctx, "promptforge-worker", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	templates, err := optimizer.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		logger.Fatal("failed to load prompt templates", zap.Error(err))
	}

	svc := optimizer.NewService(llm.Endpoints(cfg, logger), templates, optimizer.Settings{
		SummaryThreshold: cfg.SummaryThreshold,
		MaxRetries:       cfg.MaxRetries,
		RetryDelay:       cfg.RetryDelay,
	}, logger)

	c, err := orchestration.Dial(cfg.TemporalAddress, logger)
	if err != nil {
		logger.Fatal("failed to connect to temporal", zap.Error(err))
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflow(orchestration.OptimizeWorkflow)
	w.RegisterActivity(&orchestration.Activities{
		Pipeline: svc,
		Results:  repository.New(db.Pool()),
	})

	logger.Info("starting worker", zap.String("task_queue", cfg.TemporalTaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
