// Package ledgertest holds behaviour tests shared by every ledger.Store
// implementation.
package ledgertest

import (
	"context"
	"errors"
	"testing"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/recurrence"
)

// Factory returns an empty store. Cleanup is the caller's job via t.Cleanup.
type Factory func(t *testing.T) ledger.Store

// Run exercises the full store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("TransactionsKeepInsertionOrder", func(t *testing.T) { testInsertionOrder(t, newStore(t)) })
	t.Run("DeleteTransaction", func(t *testing.T) { testDeleteTransaction(t, newStore(t)) })
	t.Run("DeleteTransactionsByCategory", func(t *testing.T) { testDeleteByCategory(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("Recurring", func(t *testing.T) { testRecurring(t, newStore(t)) })
	t.Run("AtomicallyCommits", func(t *testing.T) { testAtomicallyCommits(t, newStore(t)) })
	t.Run("AtomicallyRollsBack", func(t *testing.T) { testAtomicallyRollsBack(t, newStore(t)) })
}

// Tx builds a valid expense transaction.
func Tx(id, category string, cents int64, d core.Date) core.Transaction {
	return core.Transaction{
		ID: id,
		Entry: core.Entry{
			Description: "item " + id,
			Amount:      core.Money{Cents: -cents},
			Category:    category,
			Type:        core.Expense,
			Currency:    core.DefaultCurrency,
		},
		Date: d,
	}
}

// Rule builds a valid monthly expense rule.
func Rule(id string, start core.Date) core.RecurringTransaction {
	return core.RecurringTransaction{
		ID: id,
		Entry: core.Entry{
			Description: "rule " + id,
			Amount:      core.Money{Cents: -10000},
			Category:    "Housing",
			Type:        core.Expense,
			Currency:    core.DefaultCurrency,
		},
		StartDate: start,
		Rule:      recurrence.MustParse("FREQ=MONTHLY;INTERVAL=1"),
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testInsertionOrder(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	// dates deliberately out of order
	for _, tx := range []core.Transaction{
		Tx("b", "Food", 100, core.NewDate(2024, 3, 1)),
		Tx("a", "Food", 200, core.NewDate(2024, 1, 1)),
		Tx("c", "Rent", 300, core.NewDate(2024, 2, 1)),
	} {
		if err := s.AddTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !equal(ids(got), []string{"b", "a", "c"}) {
		t.Fatalf("order = %v", ids(got))
	}
	if got[0].Amount.Cents != -100 || got[0].Currency != "USD" || !got[0].Date.Equal(core.NewDate(2024, 3, 1)) {
		t.Fatalf("fields not preserved: %+v", got[0])
	}
	tx, err := s.GetTransaction(ctx, "c")
	if err != nil || tx.Category != "Rent" {
		t.Fatalf("get = %+v, %v", tx, err)
	}
	if err := s.AddTransaction(ctx, Tx("a", "Food", 1, core.NewDate(2024, 1, 1))); err == nil {
		t.Fatal("duplicate id accepted")
	}
}

func testDeleteTransaction(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_ = s.AddTransaction(ctx, Tx("a", "Food", 100, core.NewDate(2024, 1, 1)))
	_ = s.AddTransaction(ctx, Tx("b", "Food", 100, core.NewDate(2024, 1, 2)))
	if err := s.DeleteTransaction(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTransaction(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get deleted: expected ErrNotFound, got %v", err)
	}
	got, _ := s.ListTransactions(ctx)
	if !equal(ids(got), []string{"b"}) {
		t.Fatalf("remaining = %v", ids(got))
	}
}

func testDeleteByCategory(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	d := core.NewDate(2024, 1, 1)
	for _, tx := range []core.Transaction{
		Tx("1", "Groceries", 1, d), Tx("2", "Rent", 1, d), Tx("3", "Groceries", 1, d),
		Tx("4", "groceries", 1, d), Tx("5", "Groceries", 1, d),
	} {
		_ = s.AddTransaction(ctx, tx)
	}
	n, err := s.DeleteTransactionsByCategory(ctx, "Groceries")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("removed %d, want 3", n)
	}
	got, _ := s.ListTransactions(ctx)
	if !equal(ids(got), []string{"2", "4"}) {
		t.Fatalf("remaining = %v", ids(got))
	}
}

func testCategories(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	for i, name := range []string{"C", "A", "B"} {
		c := core.Category{ID: "id" + name, Name: name, Icon: "FaTag", Color: "#000", Order: 2 - i}
		if err := s.AddCategory(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.CountCategories(ctx)
	if err != nil || n != 3 {
		t.Fatalf("count = %d, %v", n, err)
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, c := range cats {
		names = append(names, c.Name)
	}
	if !equal(names, []string{"B", "A", "C"}) {
		t.Fatalf("list not sorted by order: %v", names)
	}

	upd := cats[0]
	upd.Color = "#fff"
	upd.Icon = "FaHome"
	if err := s.PutCategory(ctx, upd); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetCategory(ctx, upd.ID)
	if err != nil || got != upd {
		t.Fatalf("get after put = %+v, %v", got, err)
	}
	if err := s.PutCategory(ctx, core.Category{ID: "nope", Name: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("put unknown: %v", err)
	}
	if err := s.DeleteCategory(ctx, "idA"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCategory(ctx, "idA"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete twice: %v", err)
	}
	if _, err := s.GetCategory(ctx, "idA"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
}

func testRecurring(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	r1 := Rule("r1", core.NewDate(2024, 1, 1))
	r2 := Rule("r2", core.NewDate(2023, 6, 15))
	for _, r := range []core.RecurringTransaction{r1, r2} {
		if err := s.AddRecurring(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	rules, err := s.ListRecurring(ctx)
	if err != nil || len(rules) != 2 || rules[0].ID != "r1" || rules[1].ID != "r2" {
		t.Fatalf("list = %+v, %v", rules, err)
	}
	if rules[0].LastRun != nil {
		t.Fatal("new rule must have no lastRun")
	}
	if rules[0].Rule.String() != "FREQ=MONTHLY;INTERVAL=1" {
		t.Fatalf("rule text = %q", rules[0].Rule)
	}

	if err := s.SetLastRun(ctx, "r1", core.NewDate(2024, 3, 1)); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetRecurring(ctx, "r1")
	if got.LastRun == nil || !got.LastRun.Equal(core.NewDate(2024, 3, 1)) {
		t.Fatalf("lastRun = %v", got.LastRun)
	}

	got.Description = "renamed"
	got.Rule = recurrence.MustParse("FREQ=WEEKLY;INTERVAL=2")
	if err := s.PutRecurring(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetRecurring(ctx, "r1")
	if got.Description != "renamed" || got.Rule.Freq != recurrence.Weekly || got.Rule.Interval != 2 || got.LastRun == nil {
		t.Fatalf("after put = %+v", got)
	}

	if err := s.SetLastRun(ctx, "missing", core.NewDate(2024, 1, 1)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("set lastRun on missing rule: %v", err)
	}
	if err := s.DeleteRecurring(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRecurring(ctx, "r1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
	if err := s.DeleteRecurring(ctx, "r1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete twice: %v", err)
	}
}

func testAtomicallyCommits(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_ = s.AddRecurring(ctx, Rule("r", core.NewDate(2024, 1, 1)))
	err := s.Atomically(ctx, func(tx ledger.Store) error {
		if err := tx.AddTransaction(ctx, Tx("a", "Housing", 1, core.NewDate(2024, 1, 1))); err != nil {
			return err
		}
		return tx.SetLastRun(ctx, "r", core.NewDate(2024, 1, 1))
	})
	if err != nil {
		t.Fatal(err)
	}
	txs, _ := s.ListTransactions(ctx)
	r, _ := s.GetRecurring(ctx, "r")
	if len(txs) != 1 || r.LastRun == nil {
		t.Fatalf("writes not visible: %d txs, lastRun %v", len(txs), r.LastRun)
	}
}

func testAtomicallyRollsBack(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_ = s.AddCategory(ctx, core.Category{ID: "g", Name: "Groceries", Order: 0})
	_ = s.AddTransaction(ctx, Tx("1", "Groceries", 1, core.NewDate(2024, 1, 1)))
	boom := errors.New("boom")
	err := s.Atomically(ctx, func(tx ledger.Store) error {
		if _, err := tx.DeleteTransactionsByCategory(ctx, "Groceries"); err != nil {
			return err
		}
		if err := tx.DeleteCategory(ctx, "g"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	txs, _ := s.ListTransactions(ctx)
	if len(txs) != 1 {
		t.Fatalf("transactions deleted despite rollback: %d left", len(txs))
	}
	if _, err := s.GetCategory(ctx, "g"); err != nil {
		t.Fatalf("category deleted despite rollback: %v", err)
	}
}
