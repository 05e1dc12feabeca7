package core

import (
	"strings"

	"budget/internal/recurrence"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	DefaultIcon  = "FaTag"
	DefaultColor = "#4caf50"
)

const maxDescriptionLen = 200

type (
	// TxType classifies an entry and fixes the sign of its amount.
	TxType string

	// Entry is the part of a transaction shared with the recurring rules
	// that generate it.
	Entry struct {
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		Category    string `json:"category"` // category name, not id
		Type        TxType `json:"type"`
		Currency    string `json:"currency"`
	}

	Transaction struct {
		ID string `json:"id"`
		Entry
		Date Date `json:"date"`
	}

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
		Order int    `json:"order"`
	}

	RecurringTransaction struct {
		ID string `json:"id"`
		Entry
		StartDate Date            `json:"startDate"`
		Rule      recurrence.Rule `json:"rule"`
		LastRun   *Date           `json:"lastRun,omitempty"`
	}
)

// ParseTxType accepts "income" or "expense" in any case.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	}
	return "", Invalid("type", ErrInvalidType)
}

// Signed applies the type's sign to a magnitude.
func (t TxType) Signed(m Money) Money {
	m = m.Abs()
	if t == Expense {
		return m.Neg()
	}
	return m
}

// NormalizeCurrency upper-cases code and defaults it to DefaultCurrency.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	if len(code) != 3 {
		return "", Invalid("currency", ErrInvalidCurrency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", Invalid("currency", ErrInvalidCurrency)
		}
	}
	return code, nil
}

// NewEntry builds a validated Entry. The sign of amount is ignored and
// replaced by the one implied by typ.
func NewEntry(description string, amount Money, category string, typ TxType, currency string) (Entry, error) {
	cur, err := NormalizeCurrency(currency)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		Description: strings.TrimSpace(description),
		Amount:      typ.Signed(amount),
		Category:    strings.TrimSpace(category),
		Type:        typ,
		Currency:    cur,
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return Invalid("description", ErrEmptyDescription)
	}
	if len(e.Description) > maxDescriptionLen {
		return Invalid("description", ErrDescriptionTooLong)
	}
	if e.Type != Income && e.Type != Expense {
		return Invalid("type", ErrInvalidType)
	}
	if e.Amount.IsZero() {
		return Invalid("amount", ErrInvalidAmount)
	}
	if (e.Type == Income) != (e.Amount.Cents > 0) {
		return Invalid("amount", ErrSignMismatch)
	}
	if strings.TrimSpace(e.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if len(e.Currency) != 3 {
		return Invalid("currency", ErrInvalidCurrency)
	}
	return nil
}

// NewTransaction builds a validated Transaction.
func NewTransaction(id string, e Entry, date Date) (Transaction, error) {
	tx := Transaction{ID: id, Entry: e, Date: date}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return Invalid("id", ErrEmptyID)
	}
	if err := t.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	return t.Entry.Validate()
}

// NewCategory builds a validated Category, trimming the name and filling
// icon and color defaults.
func NewCategory(id, name, icon, color string, order int) (Category, error) {
	c := Category{
		ID:    id,
		Name:  strings.TrimSpace(name),
		Icon:  strings.TrimSpace(icon),
		Color: strings.TrimSpace(color),
		Order: order,
	}
	if c.Icon == "" {
		c.Icon = DefaultIcon
	}
	if c.Color == "" {
		c.Color = DefaultColor
	}
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return Invalid("id", ErrEmptyID)
	}
	if c.Name == "" {
		return Invalid("name", ErrEmptyName)
	}
	return nil
}

// NewRecurringTransaction builds a validated rule with no lastRun.
func NewRecurringTransaction(id string, e Entry, start Date, rule recurrence.Rule) (RecurringTransaction, error) {
	r := RecurringTransaction{ID: id, Entry: e, StartDate: start, Rule: rule}
	if err := r.Validate(); err != nil {
		return RecurringTransaction{}, err
	}
	return r, nil
}

func (r RecurringTransaction) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return Invalid("id", ErrEmptyID)
	}
	if err := r.StartDate.Validate(); err != nil {
		return Invalid("startDate", err)
	}
	if err := r.Rule.Validate(); err != nil {
		return Invalid("rule", err)
	}
	return r.Entry.Validate()
}

// Expand lists the occurrences due up to and including asOf that have not
// been materialized yet, and the lastRun value to store once they are.
//
// On the first run the window starts at StartDate inclusive. Afterwards it
// starts at LastRun, and an occurrence equal to LastRun is skipped because
// it was produced by the previous run. newLastRun is nil when nothing is due,
// in which case LastRun must be left untouched.
func (r RecurringTransaction) Expand(asOf Date) (occurrences []Date, newLastRun *Date) {
	from := r.StartDate
	if r.LastRun != nil {
		from = *r.LastRun
	}
	for _, t := range r.Rule.Between(r.StartDate.Time, from.Time, asOf.Time) {
		d := Date{Time: t}
		if r.LastRun != nil && d.Equal(*r.LastRun) {
			continue
		}
		occurrences = append(occurrences, d)
	}
	if len(occurrences) == 0 {
		return nil, nil
	}
	last := occurrences[len(occurrences)-1]
	return occurrences, &last
}

// Materialize turns one occurrence into a concrete transaction.
func (r RecurringTransaction) Materialize(id string, on Date) Transaction {
	return Transaction{ID: id, Entry: r.Entry, Date: on}
}
