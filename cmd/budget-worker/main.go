package main

import (
	"context"
	"errors"
	"os"

	"budget/internal/amqp"
	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/log"
	"budget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting budget-worker")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, logger.Component())
	if cfg.AMQPURL == "" {
		logger.Error("budget-worker requires AMQP_URL")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	// The worker only reads the ledger; it consumes events rather than
	// publishing them, so it opens the store without AMQP.
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)
	storeCfg := bcfg
	storeCfg.AMQPURL = ""
	res, err := factory.CreateBackend(ctx, storeCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	exporter, err := factory.CreateExporter(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewExportWorker(res.Store, exporter, logger)

	logger.Info("Performing startup reconcile...")
	if _, err := w.Reconcile(ctx); err != nil {
		logger.Error("Startup reconcile failed", log.FieldError, err)
	}

	if err := client.Consume(ctx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
