// Package memory is an in-process ledger.Store, used for tests and for
// running without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"budget/internal/core"
	"budget/internal/ledger"
)

type state struct {
	txs   []core.Transaction
	cats  map[string]core.Category
	rules []core.RecurringTransaction
}

func (st *state) clone() *state {
	out := &state{
		txs:   append([]core.Transaction(nil), st.txs...),
		cats:  make(map[string]core.Category, len(st.cats)),
		rules: make([]core.RecurringTransaction, len(st.rules)),
	}
	for k, v := range st.cats {
		out.cats[k] = v
	}
	for i, r := range st.rules {
		out.rules[i] = copyRule(r)
	}
	return out
}

func copyRule(r core.RecurringTransaction) core.RecurringTransaction {
	if r.LastRun != nil {
		d := *r.LastRun
		r.LastRun = &d
	}
	return r
}

type Store struct {
	mu sync.Mutex
	st *state
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{cats: map[string]core.Category{}}}
}

func (s *Store) Close() error { return nil }

// Atomically runs fn on a copy of the current state and installs the copy
// when fn succeeds. Other callers block until it returns.
func (s *Store) Atomically(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	view := &Store{st: s.st.clone()}
	if err := fn(view); err != nil {
		return err
	}
	s.st = view.st
	return nil
}

func (s *Store) AddTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.st.txs {
		if t.ID == tx.ID {
			return core.Storage("add transaction", errDuplicateID(tx.ID))
		}
	}
	s.st.txs = append(s.st.txs, tx)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.st.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, core.NotFound("transaction", id)
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.st.txs {
		if t.ID == id {
			s.st.txs = append(s.st.txs[:i:i], s.st.txs[i+1:]...)
			return nil
		}
	}
	return core.NotFound("transaction", id)
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.st.txs...), nil
}

func (s *Store) DeleteTransactionsByCategory(_ context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.st.txs[:0:0]
	for _, t := range s.st.txs {
		if t.Category != name {
			kept = append(kept, t)
		}
	}
	n := len(s.st.txs) - len(kept)
	s.st.txs = kept
	return n, nil
}

func (s *Store) AddCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.cats[c.ID]; ok {
		return core.Storage("add category", errDuplicateID(c.ID))
	}
	s.st.cats[c.ID] = c
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.cats[id]
	if !ok {
		return core.Category{}, core.NotFound("category", id)
	}
	return c, nil
}

func (s *Store) PutCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.cats[c.ID]; !ok {
		return core.NotFound("category", c.ID)
	}
	s.st.cats[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.cats[id]; !ok {
		return core.NotFound("category", id)
	}
	delete(s.st.cats, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.st.cats))
	for _, c := range s.st.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CountCategories(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.cats), nil
}

func (s *Store) AddRecurring(_ context.Context, r core.RecurringTransaction) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ruleIndex(r.ID) >= 0 {
		return core.Storage("add recurring", errDuplicateID(r.ID))
	}
	s.st.rules = append(s.st.rules, copyRule(r))
	return nil
}

func (s *Store) GetRecurring(_ context.Context, id string) (core.RecurringTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ruleIndex(id)
	if i < 0 {
		return core.RecurringTransaction{}, core.NotFound("recurring rule", id)
	}
	return copyRule(s.st.rules[i]), nil
}

func (s *Store) PutRecurring(_ context.Context, r core.RecurringTransaction) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ruleIndex(r.ID)
	if i < 0 {
		return core.NotFound("recurring rule", r.ID)
	}
	s.st.rules[i] = copyRule(r)
	return nil
}

func (s *Store) DeleteRecurring(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ruleIndex(id)
	if i < 0 {
		return core.NotFound("recurring rule", id)
	}
	s.st.rules = append(s.st.rules[:i:i], s.st.rules[i+1:]...)
	return nil
}

func (s *Store) ListRecurring(_ context.Context) ([]core.RecurringTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecurringTransaction, len(s.st.rules))
	for i, r := range s.st.rules {
		out[i] = copyRule(r)
	}
	return out, nil
}

func (s *Store) SetLastRun(_ context.Context, id string, lastRun core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ruleIndex(id)
	if i < 0 {
		return core.NotFound("recurring rule", id)
	}
	d := lastRun
	s.st.rules[i].LastRun = &d
	return nil
}

// ruleIndex must be called with s.mu held.
func (s *Store) ruleIndex(id string) int {
	for i, r := range s.st.rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func errDuplicateID(id string) error {
	return fmt.Errorf("duplicate id %q", id)
}
