package services

import (
	"context"
	"fmt"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/recurrence"
)

// RecurringInput is a recurring rule as entered by a user.
type RecurringInput struct {
	TransactionInput
	StartDate string `json:"startDate"` // defaults to today
	Rule      string `json:"rule"`      // e.g. FREQ=MONTHLY;INTERVAL=1
}

func (in RecurringInput) parse(today core.Date) (core.Entry, core.Date, recurrence.Rule, error) {
	entry, err := in.ParseEntry()
	if err != nil {
		return core.Entry{}, core.Date{}, recurrence.Rule{}, err
	}
	start := today
	if in.StartDate != "" {
		if start, err = core.ParseDate(in.StartDate); err != nil {
			return core.Entry{}, core.Date{}, recurrence.Rule{}, core.Invalid("startDate", err)
		}
	}
	rule, err := recurrence.Parse(in.Rule)
	if err != nil {
		return core.Entry{}, core.Date{}, recurrence.Rule{}, core.Invalid("rule", err)
	}
	return entry, start, rule, nil
}

// RecurringService manages recurring rules. It never touches LastRun, which
// belongs to the RecurrenceEngine.
type RecurringService struct {
	store ledger.Store
	options
}

func NewRecurringService(store ledger.Store, opts ...Option) *RecurringService {
	return &RecurringService{store: store, options: buildOptions(log.ComponentRecurring, opts)}
}

// Create validates and stores a new rule. A non-positive interval is
// rejected here, never at expansion time.
func (s *RecurringService) Create(ctx context.Context, in RecurringInput) (core.RecurringTransaction, error) {
	entry, start, rule, err := in.parse(s.today())
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	rt, err := core.NewRecurringTransaction(s.newID(), entry, start, rule)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := s.store.AddRecurring(ctx, rt); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("add recurring rule: %w", err)
	}
	s.logger.InfoContext(ctx, "Recurring rule created",
		log.FieldRuleID, rt.ID, log.FieldRule, rt.Rule.String(), log.FieldDate, rt.StartDate.String())
	return rt, nil
}

// Update replaces every field of the rule except id and LastRun.
func (s *RecurringService) Update(ctx context.Context, id string, in RecurringInput) (core.RecurringTransaction, error) {
	entry, start, rule, err := in.parse(s.today())
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	var updated core.RecurringTransaction
	err = s.store.Atomically(ctx, func(st ledger.Store) error {
		cur, err := st.GetRecurring(ctx, id)
		if err != nil {
			return err
		}
		rt, err := core.NewRecurringTransaction(id, entry, start, rule)
		if err != nil {
			return err
		}
		rt.LastRun = cur.LastRun
		if err := st.PutRecurring(ctx, rt); err != nil {
			return err
		}
		updated = rt
		return nil
	})
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("update recurring rule: %w", err)
	}
	s.logger.InfoContext(ctx, "Recurring rule updated", log.FieldRuleID, id, log.FieldRule, updated.Rule.String())
	return updated, nil
}

// Delete removes the rule. Transactions it already generated stay.
func (s *RecurringService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteRecurring(ctx, id); err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	s.logger.InfoContext(ctx, "Recurring rule deleted", log.FieldRuleID, id)
	return nil
}

func (s *RecurringService) Get(ctx context.Context, id string) (core.RecurringTransaction, error) {
	return s.store.GetRecurring(ctx, id)
}

func (s *RecurringService) List(ctx context.Context) ([]core.RecurringTransaction, error) {
	return s.store.ListRecurring(ctx)
}
