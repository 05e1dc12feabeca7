// Package backend assembles the ledger store and its optional outbound
// collaborators (ledger events, spreadsheet export) from configuration.
package backend

import (
	"context"

	"budget/internal/ledger"
	"budget/internal/services"
	"budget/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, the event publisher (nil when AMQP is
// not configured) and a cleanup function releasing both.
type BackendResult struct {
	Store   ledger.Store
	Events  services.EventPublisher
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateExporter returns the Google Sheets exporter when a spreadsheet
	// is configured, and an in-memory one otherwise.
	CreateExporter(ctx context.Context, config Config) (sheets.Exporter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
