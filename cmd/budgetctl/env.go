package main

import (
	"context"
	"fmt"
	"os"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/log"
	"budget/internal/services"
)

// ledgerEnv is what a command needs to touch the configured ledger.
type ledgerEnv struct {
	cli.Services
	Summary *services.SummaryService
	Config  *config.Config
	close   func() error
}

func (e *ledgerEnv) Close() {
	if err := e.close(); err != nil {
		fmt.Fprintln(os.Stderr, "close ledger:", err)
	}
}

// openLedger loads configuration and opens the backend. Ledger events are
// published as they are by the server, so exports stay in step.
func openLedger(ctx context.Context) (*ledgerEnv, error) {
	cli.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.New(log.Config{Level: log.ParseLevel("warn"), Component: log.ComponentApp, Output: os.Stderr})

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	return &ledgerEnv{
		Services: cli.NewServices(res, logger),
		Summary:  services.NewSummaryService(res.Store, nil, services.WithLogger(logger)),
		Config:   cfg,
		close:    res.Cleanup,
	}, nil
}
