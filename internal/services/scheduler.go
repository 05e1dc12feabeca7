package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/log"
)

// SchedulerConfig holds configuration for the recurring scheduler
type SchedulerConfig struct {
	// Interval is how often to run an expansion pass (default: 1h)
	Interval time.Duration

	// RunOnStart runs a pass as soon as the scheduler starts (default: true)
	RunOnStart bool
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
	}
}

// Expander runs one expansion pass.
type Expander interface {
	Run(ctx context.Context, asOf core.Date) (ExpansionReport, error)
}

// RecurringScheduler re-invokes an Expander on a ticker for hosts that
// stay up across days.
type RecurringScheduler struct {
	engine Expander
	config SchedulerConfig
	clock  func() time.Time
	logger *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRecurringScheduler creates a new scheduler
func NewRecurringScheduler(engine Expander, config SchedulerConfig, logger *log.Logger) *RecurringScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &RecurringScheduler{
		engine: engine,
		config: config,
		clock:  time.Now,
		logger: logger.WithComponent(log.ComponentRecurring),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *RecurringScheduler) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("recurring scheduler is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Recurring scheduler started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the scheduler and waits for the current pass.
func (p *RecurringScheduler) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Recurring scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Recurring scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is currently running
func (p *RecurringScheduler) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RecurringScheduler) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.RunOnStart {
		p.runOnce(ctx)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *RecurringScheduler) runOnce(ctx context.Context) {
	report, err := p.engine.Run(ctx, core.DateOf(p.clock()))
	if err != nil {
		p.logger.ErrorContext(ctx, "Expansion pass failed", log.FieldError, err)
		return
	}
	if err := report.Err(); err != nil {
		p.logger.WarnContext(ctx, "Expansion pass finished with failures", log.FieldError, err)
	}
}
