package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
)

func seqIDs() (IDGenerator, *int) {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}, &n
}

func fixedClock(y, m, d int) func() time.Time {
	return func() time.Time { return time.Date(y, time.Month(m), d, 15, 30, 0, 0, time.UTC) }
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

// failingStore wraps a store and fails AddTransaction for entries matching
// failOn, including inside Atomically.
type failingStore struct {
	ledger.Store
	failOn func(core.Transaction) bool
}

var errInjected = fmt.Errorf("injected write failure")

func (f *failingStore) AddTransaction(ctx context.Context, tx core.Transaction) error {
	if f.failOn(tx) {
		return core.Storage("insert transaction", errInjected)
	}
	return f.Store.AddTransaction(ctx, tx)
}

func (f *failingStore) Atomically(ctx context.Context, fn func(ledger.Store) error) error {
	return f.Store.Atomically(ctx, func(s ledger.Store) error {
		return fn(&failingStore{Store: s, failOn: f.failOn})
	})
}

func mustCategory(t *testing.T, r *CategoryRegistry, name string) core.Category {
	t.Helper()
	c, err := r.Create(context.Background(), CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return c
}

func orders(t *testing.T, s ledger.Store) map[string]int {
	t.Helper()
	cats, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]int{}
	for i, c := range cats {
		if c.Order != i {
			t.Fatalf("orders not contiguous: %s has %d at position %d", c.Name, c.Order, i)
		}
		out[c.Name] = c.Order
	}
	return out
}

var _ ledger.Store = (*failingStore)(nil)

// putFailingStore fails every PutCategory.
type putFailingStore struct {
	failingStore
}

func (f *putFailingStore) PutCategory(context.Context, core.Category) error {
	return core.Storage("update category", errInjected)
}

func (f *putFailingStore) Atomically(ctx context.Context, fn func(ledger.Store) error) error {
	return f.Store.Atomically(ctx, func(s ledger.Store) error {
		return fn(&putFailingStore{failingStore{Store: s, failOn: f.failOn}})
	})
}
