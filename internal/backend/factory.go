package backend

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/ledger"
	"budget/internal/ledger/memory"
	"budget/internal/log"
	"budget/internal/sheets"
	gsheet "budget/internal/sheets/google"
	sheetsmem "budget/internal/sheets/memory"
	"budget/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend. A failing AMQP connection
// is logged and the backend runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ledger.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &BackendResult{Store: store, Cleanup: store.Close}
	if config.AMQPURL == "" {
		return res, nil
	}

	client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return res, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
	res.Events = client
	res.Cleanup = func() error {
		return errors.Join(client.Close(), store.Close())
	}
	return res, nil
}

// CreateExporter implements Factory.CreateExporter
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (sheets.Exporter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.InfoContext(ctx, "No spreadsheet configured, exporting to memory")
		return sheetsmem.New(), nil
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := cli.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("prepare sheet: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets exporter", "sheet", config.GoogleSheetName)
	return cli, nil
}
