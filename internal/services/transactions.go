package services

import (
	"context"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
)

// TransactionInput is a transaction as entered by a user. Amount is the
// magnitude; its sign comes from Type.
type TransactionInput struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"` // YYYY-MM-DD, defaults to today
	Category    string `json:"category"`
	Type        string `json:"type"`
	Currency    string `json:"currency"`
}

// ParseEntry validates the fields shared with recurring rules.
func (in TransactionInput) ParseEntry() (core.Entry, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Entry{}, core.Invalid("amount", err)
	}
	typ, err := core.ParseTxType(in.Type)
	if err != nil {
		return core.Entry{}, err
	}
	return core.NewEntry(in.Description, amount, in.Category, typ, in.Currency)
}

// TransactionService records and removes ledger entries.
type TransactionService struct {
	store ledger.Store
	options
}

func NewTransactionService(store ledger.Store, opts ...Option) *TransactionService {
	return &TransactionService{store: store, options: buildOptions(log.ComponentLedger, opts)}
}

// Create validates in and appends it to the ledger. Nothing is written and
// no id is generated when validation fails.
func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	entry, err := in.ParseEntry()
	if err != nil {
		return core.Transaction{}, err
	}
	date := s.today()
	if in.Date != "" {
		if date, err = core.ParseDate(in.Date); err != nil {
			return core.Transaction{}, core.Invalid("date", err)
		}
	}

	tx, err := core.NewTransaction(s.newID(), entry, date)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.AddTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		append([]any{log.FieldTxID, tx.ID, log.FieldDate, tx.Date.String()},
			log.NewFields().WithEntry(tx.Category, tx.Amount.String(), tx.Currency).ToSlice()...)...)
	s.publish(ctx, amqp.NewTransactionCreated(tx))
	return tx, nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// Delete removes one transaction.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTxID, id)
	s.publish(ctx, amqp.NewTransactionDeleted(id))
	return nil
}

// List returns the ledger in insertion order, narrowed by f.
func (s *TransactionService) List(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(txs), nil
}
