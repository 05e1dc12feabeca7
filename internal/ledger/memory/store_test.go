package memory

import (
	"context"
	"testing"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ledger/ledgertest"
)

func TestStore(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store { return New() })
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.AddRecurring(ctx, ledgertest.Rule("r", core.NewDate(2024, 1, 1)))
	_ = s.SetLastRun(ctx, "r", core.NewDate(2024, 2, 1))

	rules, _ := s.ListRecurring(ctx)
	*rules[0].LastRun = core.NewDate(1999, 1, 1)

	got, _ := s.GetRecurring(ctx, "r")
	if !got.LastRun.Equal(core.NewDate(2024, 2, 1)) {
		t.Fatalf("stored lastRun mutated through listed copy: %v", got.LastRun)
	}
}
