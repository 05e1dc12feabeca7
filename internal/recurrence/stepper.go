// This file implements the Strategy Pattern for stepping through the periods
// of each frequency. Each frequency has its own Stepper; new frequencies are
// added with RegisterStepper.

package recurrence

import (
	"fmt"
	"time"
)

// Stepper computes the calendar date k periods after a start date.
type Stepper interface {
	// Step returns the occurrence k periods after start. When that period has
	// no matching calendar day (day 31 in a 30-day month, Feb 29 in a common
	// year) ok is false and t is the first day of the period, which keeps t
	// monotonic in k for bounds checks.
	Step(start time.Time, k int) (t time.Time, ok bool)
}

// DailyStepper steps k days.
type DailyStepper struct{}

func (DailyStepper) Step(start time.Time, k int) (time.Time, bool) {
	return start.AddDate(0, 0, k), true
}

// WeeklyStepper steps k weeks, keeping the start weekday.
type WeeklyStepper struct{}

func (WeeklyStepper) Step(start time.Time, k int) (time.Time, bool) {
	return start.AddDate(0, 0, 7*k), true
}

// MonthlyStepper steps k months, keeping the start day of month.
type MonthlyStepper struct{}

func (MonthlyStepper) Step(start time.Time, k int) (time.Time, bool) {
	first := time.Date(start.Year(), start.Month()+time.Month(k), 1, 0, 0, 0, 0, time.UTC)
	return onDay(first, start.Day())
}

// YearlyStepper steps k years, keeping the start month and day.
type YearlyStepper struct{}

func (YearlyStepper) Step(start time.Time, k int) (time.Time, bool) {
	first := time.Date(start.Year()+k, start.Month(), 1, 0, 0, 0, 0, time.UTC)
	return onDay(first, start.Day())
}

// onDay moves first (the 1st of a month) to the given day if the month has it.
func onDay(first time.Time, day int) (time.Time, bool) {
	if day > daysIn(first.Year(), first.Month()) {
		return first, false
	}
	return first.AddDate(0, 0, day-1), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var steppers = map[Frequency]Stepper{
	Daily:   DailyStepper{},
	Weekly:  WeeklyStepper{},
	Monthly: MonthlyStepper{},
	Yearly:  YearlyStepper{},
}

// StepperFor returns the stepper registered for freq.
func StepperFor(freq Frequency) (Stepper, error) {
	s, ok := steppers[freq]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrequency, freq)
	}
	return s, nil
}

// RegisterStepper adds or replaces the stepper for a frequency. It is not safe
// to call concurrently with rule evaluation; register at init time.
func RegisterStepper(freq Frequency, s Stepper) {
	steppers[freq] = s
}
