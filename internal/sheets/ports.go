package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter mirrors materialized transactions into an external
	// sheet. Appending a transaction whose id is already present is a no-op.
	TransactionExporter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	TransactionRemover interface {
		// RemoveTransaction deletes the row for id. A missing row is not an error.
		RemoveTransaction(ctx context.Context, id string) error
		// RemoveCategory deletes every row filed under the category name and
		// returns how many rows went away.
		RemoveCategory(ctx context.Context, name string) (int, error)
	}

	Exporter interface {
		TransactionExporter
		TransactionRemover
	}
)
