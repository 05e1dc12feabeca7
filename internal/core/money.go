// Package core holds the ledger's domain types and the pure computations over
// them: entry validation, recurrence expansion, and category aggregation.
//
// Nothing in this package performs I/O.
package core

import (
	"encoding/json"
	"math"
	"strings"

	money "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an entry names no currency.
const DefaultCurrency = "USD"

var maxAmount = decimal.New(math.MaxInt64/100, 0)

// Money is a signed amount in minor units (cents). Income is positive,
// expense negative.
type Money struct {
	Cents int64
}

// ParseAmount converts a user-entered magnitude to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero to two places. A comma is only a decimal separator: it
// may appear once, without a dot, and be followed by at most two digits, so
// thousands grouping such as "1,234" is rejected rather than read as 1.23.
// Signs, zero, and anything that is not a finite decimal are rejected with
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.345") -> {1235}, nil
//	ParseAmount("12,34")  -> {1234}, nil
//	ParseAmount("1,234")  -> {}, ErrInvalidAmount
//	ParseAmount("abc")    -> {}, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if whole, frac, ok := strings.Cut(s, ","); ok {
		if strings.ContainsAny(frac, ",.") || strings.Contains(whole, ".") || len(frac) > 2 {
			return Money{}, ErrInvalidAmount
		}
		s = whole + "." + frac
	}
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() || d.GreaterThan(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(2).IntPart()}, nil
}

// FromDecimal rounds d to cents.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) IsZero() bool { return m.Cents == 0 }

// String formats the amount as a plain decimal with two places, e.g. "-12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Display renders the amount with the currency's symbol and separators.
func (m Money) Display(currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return money.New(m.minorUnits(currency), currency).Display()
}

// minorUnits rescales the stored hundredths to the currency's own minor unit
// (0 decimals for JPY, 3 for KWD). Unknown codes keep two decimals.
func (m Money) minorUnits(currency string) int64 {
	fraction := 2
	if c := money.GetCurrency(currency); c != nil {
		fraction = c.Fraction
	}
	return m.Decimal().Shift(int32(fraction)).Round(0).IntPart()
}

// MarshalJSON encodes the amount as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or string holding a decimal amount.
// A leading minus is honoured so stored signed values round-trip.
func (m *Money) UnmarshalJSON(b []byte) error {
	var raw json.Number
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidAmount
		}
		raw = json.Number(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	} else if err := json.Unmarshal(b, &raw); err != nil {
		return ErrInvalidAmount
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil || d.Abs().GreaterThan(maxAmount) {
		return ErrInvalidAmount
	}
	*m = FromDecimal(d)
	return nil
}
