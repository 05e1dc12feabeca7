package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget/internal/core"
)

type fakeExpander struct {
	calls chan core.Date
	err   error
}

func (f *fakeExpander) Run(_ context.Context, asOf core.Date) (ExpansionReport, error) {
	select {
	case f.calls <- asOf:
	default:
	}
	return ExpansionReport{AsOf: asOf}, f.err
}

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()
	if config.Interval != time.Hour {
		t.Errorf("expected Interval 1h, got %v", config.Interval)
	}
	if !config.RunOnStart {
		t.Error("expected RunOnStart")
	}
	if s := NewRecurringScheduler(nil, SchedulerConfig{}, nil); s.config.Interval != time.Hour {
		t.Errorf("zero interval not defaulted: %v", s.config.Interval)
	}
}

func TestRecurringScheduler_RunsOnStartAndTicks(t *testing.T) {
	exp := &fakeExpander{calls: make(chan core.Date, 8)}
	s := NewRecurringScheduler(exp, SchedulerConfig{Interval: 20 * time.Millisecond, RunOnStart: true}, nil)
	s.clock = fixedClock(2024, 6, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		select {
		case d := <-exp.calls:
			if !d.Equal(core.NewDate(2024, 6, 1)) {
				t.Fatalf("asOf = %s", d)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("pass %d never ran", i)
		}
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.IsRunning() {
		t.Fatal("still running after Stop")
	}
}

func TestRecurringScheduler_StartTwice(t *testing.T) {
	exp := &fakeExpander{calls: make(chan core.Date, 8), err: errors.New("ignored")}
	s := NewRecurringScheduler(exp, SchedulerConfig{Interval: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("expected error when starting already running scheduler")
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestRecurringScheduler_StopNotRunning(t *testing.T) {
	s := NewRecurringScheduler(&fakeExpander{}, DefaultSchedulerConfig(), nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle scheduler returned %v", err)
	}
}
