package services

import (
	"context"
	"strings"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
)

// RateProvider looks up exchange rates relative to a base currency.
type RateProvider interface {
	Rates(ctx context.Context, base string) (core.Rates, error)
}

// SummaryView is a core.Summary plus how it was converted.
type SummaryView struct {
	core.Summary
	Base string `json:"base,omitempty"` // empty when amounts are unconverted
	// Warning is set when rates were requested but unavailable.
	Warning string `json:"warning,omitempty"`
}

// SummaryService builds the aggregation views. Rate lookup failures degrade
// the view to unconverted totals instead of failing it.
type SummaryService struct {
	store ledger.Store
	rates RateProvider
	options
}

func NewSummaryService(store ledger.Store, rates RateProvider, opts ...Option) *SummaryService {
	return &SummaryService{store: store, rates: rates, options: buildOptions(log.ComponentLedger, opts)}
}

func (s *SummaryService) lookupRates(ctx context.Context, base string) (core.Rates, string, string) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" || s.rates == nil {
		return nil, "", ""
	}
	rates, err := s.rates.Rates(ctx, base)
	if err != nil {
		s.logger.WarnContext(ctx, "Rates unavailable, summarizing unconverted", log.FieldCurrency, base, log.FieldError, err)
		return nil, "", err.Error()
	}
	return rates, base, ""
}

// Summary aggregates the transactions matching f, converted to base when
// base is set.
func (s *SummaryService) Summary(ctx context.Context, f core.Filter, base string) (SummaryView, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return SummaryView{}, err
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return SummaryView{}, err
	}
	rates, used, warning := s.lookupRates(ctx, base)
	return SummaryView{
		Summary: core.Summarize(f.Apply(txs), cats, rates),
		Base:    used,
		Warning: warning,
	}, nil
}

// Daily returns per-day expense totals within [from, to].
func (s *SummaryService) Daily(ctx context.Context, from, to core.Date, base string) ([]core.DayTotal, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	rates, _, _ := s.lookupRates(ctx, base)
	return core.DailySpend(txs, from, to, rates), nil
}
