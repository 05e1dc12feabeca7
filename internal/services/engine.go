package services

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
)

// RuleFailure records why one rule could not be expanded.
type RuleFailure struct {
	RuleID string
	Err    error
}

func (f RuleFailure) Error() string {
	return fmt.Sprintf("rule %s: %v", f.RuleID, f.Err)
}

func (f RuleFailure) Unwrap() error { return f.Err }

// ExpansionReport summarizes one pass over all rules.
type ExpansionReport struct {
	AsOf     core.Date          `json:"asOf"`
	Rules    int                `json:"rules"`
	Created  []core.Transaction `json:"created"`
	Failures []RuleFailure      `json:"-"`
}

// Err joins the per-rule failures, or returns nil when every rule succeeded.
func (r ExpansionReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// RecurrenceEngine materializes due occurrences of recurring rules.
type RecurrenceEngine struct {
	store ledger.Store
	options
}

func NewRecurrenceEngine(store ledger.Store, opts ...Option) *RecurrenceEngine {
	return &RecurrenceEngine{store: store, options: buildOptions(log.ComponentRecurring, opts)}
}

// Run expands every rule up to and including asOf, one rule at a time.
//
// Each rule's new transactions and its watermark are written in one
// Atomically call, so a rule is either fully advanced or untouched. A rule
// that fails is recorded in the report and the pass moves on. The returned
// error is only set when the rules themselves cannot be listed.
func (e *RecurrenceEngine) Run(ctx context.Context, asOf core.Date) (ExpansionReport, error) {
	report := ExpansionReport{AsOf: asOf}
	rules, err := e.store.ListRecurring(ctx)
	if err != nil {
		return report, fmt.Errorf("list recurring rules: %w", err)
	}
	report.Rules = len(rules)

	for _, rt := range rules {
		created, err := e.expandRule(ctx, rt, asOf)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to expand recurring rule",
				log.FieldRuleID, rt.ID, log.FieldRule, rt.Rule.String(), log.FieldError, err)
			report.Failures = append(report.Failures, RuleFailure{RuleID: rt.ID, Err: err})
			continue
		}
		report.Created = append(report.Created, created...)
	}

	for _, tx := range report.Created {
		e.publish(ctx, amqp.NewTransactionCreated(tx))
	}
	e.logger.InfoContext(ctx, "Recurring expansion complete",
		log.FieldDate, asOf.String(),
		log.FieldCount, len(rules),
		log.FieldOccurrences, len(report.Created),
		"failed", len(report.Failures))
	return report, nil
}

func (e *RecurrenceEngine) expandRule(ctx context.Context, rt core.RecurringTransaction, asOf core.Date) ([]core.Transaction, error) {
	var created []core.Transaction
	err := e.store.Atomically(ctx, func(s ledger.Store) error {
		// the listed copy may be stale by now
		cur, err := s.GetRecurring(ctx, rt.ID)
		if err != nil {
			return err
		}
		dates, lastRun := cur.Expand(asOf)
		if lastRun == nil {
			return nil
		}
		for _, d := range dates {
			tx := cur.Materialize(e.newID(), d)
			if err := s.AddTransaction(ctx, tx); err != nil {
				return fmt.Errorf("occurrence %s: %w", d, err)
			}
			created = append(created, tx)
		}
		return s.SetLastRun(ctx, cur.ID, *lastRun)
	})
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		e.logger.InfoContext(ctx, "Recurring rule expanded",
			log.FieldRuleID, rt.ID, log.FieldOccurrences, len(created),
			log.FieldLastRun, created[len(created)-1].Date.String())
	}
	return created, nil
}
