// Package services implements the ledger operations on top of a
// ledger.Store: transaction entry, the category registry, recurring rules
// and their expansion.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/log"
)

// IDGenerator returns a fresh opaque record id.
type IDGenerator func() string

// EventPublisher receives ledger events after writes commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

type options struct {
	newID  IDGenerator
	events EventPublisher
	logger *log.Logger
	today  func() core.Date
}

// Option configures a service.
type Option func(*options)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(f IDGenerator) Option {
	return func(o *options) { o.newID = f }
}

// WithEvents publishes ledger events through p. Publish failures are logged
// and never fail the write.
func WithEvents(p EventPublisher) Option {
	return func(o *options) { o.events = p }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the source of "today" for defaults.
func WithClock(f func() time.Time) Option {
	return func(o *options) { o.today = func() core.Date { return core.DateOf(f()) } }
}

func buildOptions(component string, opts []Option) options {
	o := options{
		newID:  uuid.NewString,
		logger: log.Discard(),
		today:  core.Today,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.WithComponent(component)
	return o
}

func (o options) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, ev); err != nil {
		o.logger.WarnContext(ctx, "Failed to publish ledger event", "kind", ev.Kind, "id", ev.ID, log.FieldError, err)
	}
}
