package main

import (
	"context"
	"os"
	"time"

	"budget/internal/cli"
	"budget/internal/log"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentRecurring)
	logger.Info("Starting recurring-worker")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, logger.Component())

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res, _ := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()
	if res.Events == nil {
		logger.Info("AMQP disabled - generated transactions will not be exported")
	}
	svc := cli.NewServices(res, logger)

	scheduler := services.NewRecurringScheduler(svc.Engine, services.SchedulerConfig{
		Interval:   cfg.RecurringInterval,
		RunOnStart: true,
	}, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring scheduler configured", "interval", cfg.RecurringInterval, "backend", cfg.DataBackend)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler did not stop cleanly", log.FieldError, err)
	}
	logger.Info("Recurring-worker shutdown complete")
}
