// Package ledger defines the durable-state contract of the budget: the
// transaction ledger, the category registry and the recurring rules.
//
// Implementations live in ledger/memory and storage.
package ledger

import (
	"context"

	"budget/internal/core"
)

// Ports for the ledger store.
//
// Every method either applies fully or returns an error and leaves no partial
// state. Missing ids are reported as *core.NotFoundError and I/O failures as
// *core.StorageError.
type (
	TransactionStore interface {
		AddTransaction(ctx context.Context, tx core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
		// ListTransactions returns the ledger in insertion order.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// DeleteTransactionsByCategory removes every transaction tagged with
		// the category name and reports how many were removed.
		DeleteTransactionsByCategory(ctx context.Context, name string) (int, error)
	}

	CategoryStore interface {
		AddCategory(ctx context.Context, c core.Category) error
		GetCategory(ctx context.Context, id string) (core.Category, error)
		// PutCategory replaces the stored record with the same id.
		PutCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id string) error
		// ListCategories returns the registry sorted by Order ascending.
		ListCategories(ctx context.Context) ([]core.Category, error)
		CountCategories(ctx context.Context) (int, error)
	}

	RecurringStore interface {
		AddRecurring(ctx context.Context, r core.RecurringTransaction) error
		GetRecurring(ctx context.Context, id string) (core.RecurringTransaction, error)
		// PutRecurring replaces the stored rule with the same id.
		PutRecurring(ctx context.Context, r core.RecurringTransaction) error
		DeleteRecurring(ctx context.Context, id string) error
		// ListRecurring returns the rules in insertion order.
		ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error)
		// SetLastRun moves the expansion watermark of a rule.
		SetLastRun(ctx context.Context, id string, lastRun core.Date) error
	}

	// Store is the full ledger.
	Store interface {
		TransactionStore
		CategoryStore
		RecurringStore

		// Atomically runs fn against a view of the store whose writes become
		// visible together when fn returns nil, and are discarded otherwise.
		Atomically(ctx context.Context, fn func(Store) error) error
		Close() error
	}
)
