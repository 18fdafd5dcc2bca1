package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"predial/internal/amqp"
	"predial/internal/cli"
	"predial/internal/config"
	applog "predial/internal/log"
	"predial/internal/services"
	"predial/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	cli.ExitOnError(logger, "Configuration validation failed", cfg.ValidateImport(true))

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	logger.Info("Starting predial-worker", "queue", cfg.AMQPQueue, "db_path", cfg.SQLiteDBPath)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer amqpClient.Close()

	importWorker := worker.NewImportWorker(services.NewImportService(repo), repo, cfg.ImportTimeout)

	// Consumption stops when the shutdown context is cancelled.
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := amqpClient.ConsumeImports(ctx, importWorker.HandleImportMessage); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume imports: %w", err)
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
