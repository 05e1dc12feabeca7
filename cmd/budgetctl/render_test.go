package main

import (
	"strings"
	"testing"

	"budget/internal/core"
)

func TestRenderTransactions(t *testing.T) {
	if got := renderTransactions(nil); !strings.Contains(got, "no transactions") {
		t.Errorf("empty render = %q", got)
	}

	txs := []core.Transaction{{
		ID:    "tx-1",
		Entry: core.Entry{Description: "Coffee", Amount: core.Money{Cents: -350}, Category: "Dining Out", Type: core.Expense, Currency: "USD"},
		Date:  core.NewDate(2024, 5, 1),
	}}
	got := renderTransactions(txs)
	for _, want := range []string{"2024-05-01", "Coffee", "Dining Out", "3.50", "tx-1"} {
		if !strings.Contains(got, want) {
			t.Errorf("render missing %q:\n%s", want, got)
		}
	}
}

func TestRenderCategories(t *testing.T) {
	got := renderCategories([]core.Category{
		{ID: "c1", Name: "Housing", Icon: "FaHome", Color: "#4caf50", Order: 0},
		{ID: "c2", Name: "Travel", Order: 1},
	})
	for _, want := range []string{"Housing", "Travel", "FaHome", "c2"} {
		if !strings.Contains(got, want) {
			t.Errorf("render missing %q:\n%s", want, got)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	s := core.Summary{
		Income:            core.Money{Cents: 100000},
		Expense:           core.Money{Cents: 2500},
		Balance:           core.Money{Cents: 97500},
		ExpenseByCategory: []core.CategoryTotal{{Name: "Groceries", Amount: core.Money{Cents: 2500}, Count: 2}},
	}
	got := renderSummary(s, "USD")
	for _, want := range []string{"Income", "1,000.00", "975.00", "Groceries", "Expense by category"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestListFilterFlags(t *testing.T) {
	c := &listCmd{from: "2024-01-01", typ: "Expense", category: "Food"}
	f, err := c.filter()
	if err != nil {
		t.Fatalf("filter() error = %v", err)
	}
	if !f.From.Equal(core.NewDate(2024, 1, 1)) || f.Type != core.Expense || f.Category != "Food" {
		t.Errorf("filter = %+v", f)
	}

	if _, err := (&listCmd{to: "soon"}).filter(); err == nil {
		t.Error("expected error for bad -to")
	}
}
