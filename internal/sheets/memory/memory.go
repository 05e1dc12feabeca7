// Package memory is an in-process Exporter, used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budget/internal/core"
	"budget/internal/sheets"
)

var _ sheets.Exporter = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows []core.Transaction
}

func New() *Store {
	return &Store{}
}

// AppendTransaction stores the transaction and returns a synthetic row reference.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ID == tx.ID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	s.rows = append(s.rows, tx)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) RemoveTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = keep(s.rows, func(tx core.Transaction) bool { return tx.ID != id })
	return nil
}

func (s *Store) RemoveCategory(_ context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.rows)
	s.rows = keep(s.rows, func(tx core.Transaction) bool { return tx.Category != name })
	return before - len(s.rows), nil
}

// Rows returns a copy of the exported transactions in append order.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...)
}

func keep(in []core.Transaction, pred func(core.Transaction) bool) []core.Transaction {
	out := in[:0]
	for _, tx := range in {
		if pred(tx) {
			out = append(out, tx)
		}
	}
	return out
}
