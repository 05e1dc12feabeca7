package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/core"
	"budget/internal/fx"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/quote"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
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
	svc := cli.NewServices(res, logger)

	if cfg.SeedDefaultCategories {
		seeded, err := svc.Categories.Seed(ctx)
		if err != nil {
			logger.Error("Failed to seed default categories", log.FieldError, err)
			os.Exit(1)
		}
		if seeded {
			logger.Info("Seeded default categories", log.FieldCount, len(core.DefaultCategories))
		}
	}

	// Catch up on anything that came due while the server was down.
	rep, err := svc.Engine.Run(ctx, core.Today())
	if err != nil {
		logger.Error("Startup expansion failed", log.FieldError, err)
	} else {
		logger.Info("Startup expansion complete", log.FieldCount, len(rep.Created), "failed_rules", len(rep.Failures))
	}

	rates := fx.NewClient(cfg.FXBaseURL, cfg.FXCacheTTL, fx.WithLogger(logger))
	quotes := quote.NewClient(cfg.QuoteBaseURL, cfg.AlphaVantageKey, logger)
	caches := cache.NewManager(logger)
	caches.Register(rates.Cache())
	caches.Register(quotes.Cache())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Transactions:       svc.Transactions,
		Categories:         svc.Categories,
		Recurring:          svc.Recurring,
		Engine:             svc.Engine,
		Summary:            services.NewSummaryService(res.Store, rates, services.WithLogger(logger)),
		Rates:              rates,
		Quotes:             quotes,
		BaseCurrency:       cfg.BaseCurrency,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budget server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
