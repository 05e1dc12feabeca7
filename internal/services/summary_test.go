package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/ledger/memory"
)

type stubRates struct {
	rates core.Rates
	err   error
	bases []string
}

func (s *stubRates) Rates(_ context.Context, base string) (core.Rates, error) {
	s.bases = append(s.bases, base)
	return s.rates, s.err
}

func seedLedger(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	reg := NewCategoryRegistry(store)
	mustCategory(t, reg, "Travel")
	txs := NewTransactionService(store)
	for _, in := range []TransactionInput{
		{Description: "Hotel", Amount: "100", Category: "Travel", Type: "expense", Currency: "EUR", Date: "2024-03-02"},
		{Description: "Taxi", Amount: "20", Category: "Travel", Type: "expense", Currency: "USD", Date: "2024-03-02"},
		{Description: "Pay", Amount: "1000", Category: "Salary", Type: "income", Currency: "USD", Date: "2024-03-01"},
	} {
		if _, err := txs.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestSummaryService_Unconverted(t *testing.T) {
	svc := NewSummaryService(seedLedger(t), nil)
	v, err := svc.Summary(context.Background(), core.Filter{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Expense.Cents != 12000 || v.Income.Cents != 100000 || v.Base != "" {
		t.Fatalf("view = %+v", v)
	}
	if len(v.IncomeByCategory) != 1 || v.IncomeByCategory[0].Color != core.FallbackColor {
		t.Fatalf("unregistered Salary should use fallback color: %+v", v.IncomeByCategory)
	}
}

func TestSummaryService_Converted(t *testing.T) {
	rates := &stubRates{rates: core.Rates{"EUR": decimal.RequireFromString("0.8")}}
	svc := NewSummaryService(seedLedger(t), rates)
	v, err := svc.Summary(context.Background(), core.Filter{}, "usd")
	if err != nil {
		t.Fatal(err)
	}
	if v.Base != "USD" || rates.bases[0] != "USD" {
		t.Fatalf("base = %q, looked up %v", v.Base, rates.bases)
	}
	// 100 EUR / 0.8 = 125 USD, plus 20 USD
	if v.Expense.Cents != 14500 {
		t.Fatalf("expense = %d", v.Expense.Cents)
	}
}

func TestSummaryService_RatesFailureDegrades(t *testing.T) {
	rates := &stubRates{err: &core.UpstreamError{Service: "fx", Err: errors.New("timeout")}}
	svc := NewSummaryService(seedLedger(t), rates)
	v, err := svc.Summary(context.Background(), core.Filter{}, "USD")
	if err != nil {
		t.Fatalf("rates failure must not fail the view: %v", err)
	}
	if v.Base != "" || v.Warning == "" || v.Expense.Cents != 12000 {
		t.Fatalf("view = %+v", v)
	}
}

func TestSummaryService_Daily(t *testing.T) {
	svc := NewSummaryService(seedLedger(t), nil)
	days, err := svc.Daily(context.Background(), core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days[0].Amount.Cents != 12000 || days[0].Count != 2 {
		t.Fatalf("days = %+v", days)
	}
}
