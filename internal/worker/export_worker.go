// Package worker mirrors ledger events into an external spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/sheets"
)

// ExportWorker applies ledger events to a sheets.Exporter.
type ExportWorker struct {
	store    ledger.TransactionStore
	exporter sheets.Exporter
	logger   *log.Logger
}

// NewExportWorker creates a worker. store may be nil; it is only needed to
// resolve created events without a payload and for Reconcile.
func NewExportWorker(store ledger.TransactionStore, exporter sheets.Exporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single ledger event from AMQP.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event", "kind", ev.Kind, "id", ev.ID)

	switch ev.Kind {
	case amqp.TransactionCreated:
		return w.handleCreated(ctx, ev)
	case amqp.TransactionDeleted:
		if err := w.exporter.RemoveTransaction(ctx, ev.ID); err != nil {
			return fmt.Errorf("remove transaction %s: %w", ev.ID, err)
		}
		w.logger.InfoContext(ctx, "Removed exported transaction", log.FieldTxID, ev.ID)
		return nil
	case amqp.CategoryDeleted:
		n, err := w.exporter.RemoveCategory(ctx, ev.Category)
		if err != nil {
			return fmt.Errorf("remove category %q: %w", ev.Category, err)
		}
		w.logger.InfoContext(ctx, "Removed exported category rows",
			log.FieldCategory, ev.Category,
			log.FieldCount, n,
			"ledger_removed", ev.Removed)
		return nil
	default:
		// Unknown kinds come from newer producers; acknowledge and move on.
		w.logger.WarnContext(ctx, "Ignoring unknown ledger event", "kind", ev.Kind, "id", ev.ID)
		return nil
	}
}

func (w *ExportWorker) handleCreated(ctx context.Context, ev *amqp.LedgerEvent) error {
	tx := ev.Transaction
	if tx == nil {
		if w.store == nil {
			return fmt.Errorf("created event %s has no payload and no store is configured", ev.ID)
		}
		got, err := w.store.GetTransaction(ctx, ev.ID)
		if errors.Is(err, core.ErrNotFound) {
			// deleted before we got to it
			w.logger.InfoContext(ctx, "Transaction gone before export", log.FieldTxID, ev.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		tx = &got
	}
	return w.export(ctx, *tx)
}

func (w *ExportWorker) export(ctx context.Context, tx core.Transaction) error {
	ref, err := w.exporter.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.logger.InfoContext(ctx, "Exported transaction",
		log.FieldTxID, tx.ID,
		"sheets_ref", ref,
		log.FieldAmount, tx.Amount.String(),
		log.FieldCategory, tx.Category)
	return nil
}

// ReconcileResult summarizes a Reconcile pass.
type ReconcileResult struct {
	Total    int
	Exported int
	Failed   int
}

// Reconcile exports every stored transaction. Rows already present are left
// alone, so it recovers from missed events or worker downtime and is safe to
// run at every startup.
func (w *ExportWorker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	if w.store == nil {
		return ReconcileResult{}, errors.New("reconcile requires a transaction store")
	}
	txs, err := w.store.ListTransactions(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list transactions: %w", err)
	}
	res := ReconcileResult{Total: len(txs)}
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := w.export(ctx, tx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export during reconcile", log.FieldTxID, tx.ID, log.FieldError, err)
			res.Failed++
			continue
		}
		res.Exported++
	}
	w.logger.InfoContext(ctx, "Reconcile completed",
		"total", res.Total,
		"exported", res.Exported,
		"errors", res.Failed)
	return res, nil
}
