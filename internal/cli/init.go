// Package cli provides common process initialization utilities shared by
// cmd/budget, cmd/budget-worker, cmd/recurring-worker and cmd/budgetctl.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budget/internal/backend"
	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the given level and installs it
// as the slog default.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		Output:    os.Stdout,
	})
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration could not be loaded", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend creates the ledger store and event publisher described by cfg.
// Returns the backend or exits the process on failure.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, backend.Config) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", bcfg.Type.String())
		os.Exit(1)
	}
	return res, bcfg
}

// Services bundles the ledger services that every binary wires the same way.
type Services struct {
	Transactions *services.TransactionService
	Categories   *services.CategoryRegistry
	Recurring    *services.RecurringService
	Engine       *services.RecurrenceEngine
}

// NewServices builds the ledger services over one backend.
func NewServices(res *backend.BackendResult, logger *log.Logger) Services {
	opts := []services.Option{services.WithLogger(logger)}
	if res.Events != nil {
		opts = append(opts, services.WithEvents(res.Events))
	}
	return Services{
		Transactions: services.NewTransactionService(res.Store, opts...),
		Categories:   services.NewCategoryRegistry(res.Store, opts...),
		Recurring:    services.NewRecurringService(res.Store, opts...),
		Engine:       services.NewRecurrenceEngine(res.Store, opts...),
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
