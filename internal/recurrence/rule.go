// Package recurrence models frequency+interval recurrence rules anchored at a
// start date and enumerates their occurrences.
//
// Rules round-trip through the iCalendar RRULE text form (FREQ=...;INTERVAL=...).
// Only the FREQ, INTERVAL and WKST parts are understood; anything else is
// rejected so that a stored rule never silently means something different.
package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

type (
	Frequency string

	// Rule is a recurrence expression. It carries no start date: the anchor is
	// supplied by the owner of the rule when enumerating occurrences.
	Rule struct {
		Freq     Frequency
		Interval int
	}
)

var (
	ErrInvalidInterval  = errors.New("interval must be a positive integer")
	ErrUnknownFrequency = errors.New("unknown frequency")
	ErrMalformedRule    = errors.New("malformed recurrence rule")
	ErrUnsupportedPart  = errors.New("unsupported recurrence rule part")
)

// New returns a validated rule.
func New(freq Frequency, interval int) (Rule, error) {
	r := Rule{Freq: freq, Interval: interval}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Rule {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rule) Validate() error {
	if _, err := StepperFor(r.Freq); err != nil {
		return err
	}
	if r.Interval <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.Interval)
	}
	return nil
}

// IsZero reports whether the rule was never set.
func (r Rule) IsZero() bool {
	return r.Freq == "" && r.Interval == 0
}

// String renders the rule in RRULE value form, e.g. "FREQ=MONTHLY;INTERVAL=1".
func (r Rule) String() string {
	return fmt.Sprintf("FREQ=%s;INTERVAL=%d", r.Freq, r.Interval)
}

func (r Rule) MarshalText() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return []byte(r.String()), nil
}

func (r *Rule) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Parse reads a rule from its textual form. Accepted inputs:
//
//	FREQ=WEEKLY;INTERVAL=2
//	RRULE:FREQ=WEEKLY;INTERVAL=2
//	DTSTART:20240101T000000Z\nRRULE:FREQ=MONTHLY;INTERVAL=1
//
// A DTSTART line is ignored; the start date lives on the owning record.
// INTERVAL defaults to 1 when absent.
func Parse(s string) (Rule, error) {
	var body string
	for _, line := range strings.FieldsFunc(s, func(c rune) bool { return c == '\n' || c == '\r' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "DTSTART"):
			continue
		case strings.HasPrefix(upper, "RRULE:"):
			line = line[len("RRULE:"):]
		}
		if body != "" {
			return Rule{}, fmt.Errorf("%w: more than one rule line", ErrMalformedRule)
		}
		body = line
	}
	if body == "" {
		return Rule{}, fmt.Errorf("%w: empty", ErrMalformedRule)
	}

	r := Rule{Interval: 1}
	seen := make(map[string]bool)
	for _, part := range strings.Split(body, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Rule{}, fmt.Errorf("%w: %q is not KEY=VALUE", ErrMalformedRule, part)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if seen[key] {
			return Rule{}, fmt.Errorf("%w: duplicate %s", ErrMalformedRule, key)
		}
		seen[key] = true

		switch key {
		case "FREQ":
			r.Freq = Frequency(strings.ToUpper(value))
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: INTERVAL %q", ErrMalformedRule, value)
			}
			r.Interval = n
		case "WKST":
			// no effect without BYDAY
		default:
			return Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedPart, key)
		}
	}
	if !seen["FREQ"] {
		return Rule{}, fmt.Errorf("%w: missing FREQ", ErrMalformedRule)
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Between returns the occurrences of r anchored at start that fall within
// [after, before], ascending. Both bounds are inclusive and compared at day
// granularity in UTC.
func (r Rule) Between(start, after, before time.Time) []time.Time {
	step, err := StepperFor(r.Freq)
	if err != nil || r.Interval <= 0 {
		return nil
	}
	start, after, before = Civil(start), Civil(after), Civil(before)
	if before.Before(start) || before.Before(after) {
		return nil
	}

	var out []time.Time
	for n := 0; ; n++ {
		t, ok := step.Step(start, n*r.Interval)
		if t.After(before) {
			break
		}
		if !ok || t.Before(after) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Civil truncates t to midnight UTC of its calendar day.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
