package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// FallbackColor is used for totals whose category is not registered.
const FallbackColor = "#888888"

// Rates maps a currency code to units of that currency per one unit of the
// base currency. A currency missing from the map converts at 1.
type Rates map[string]decimal.Decimal

// Convert returns m, held in currency, expressed in the base currency.
func (r Rates) Convert(m Money, currency string) Money {
	rate, ok := r[currency]
	if !ok || !rate.IsPositive() {
		return m
	}
	return FromDecimal(m.Decimal().Div(rate))
}

// CategoryTotal represents an absolute amount aggregated by category name.
type CategoryTotal struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Icon   string `json:"icon,omitempty"`
	Amount Money  `json:"amount"`
	Count  int    `json:"count"`
}

// Summary is the dashboard view of a set of transactions.
type Summary struct {
	Income            Money           `json:"income"`
	Expense           Money           `json:"expense"` // absolute value
	Balance           Money           `json:"balance"`
	IncomeByCategory  []CategoryTotal `json:"incomeByCategory"`
	ExpenseByCategory []CategoryTotal `json:"expenseByCategory"`
}

// Summarize folds transactions into per-category income and expense totals.
//
// Amounts are converted with rates when it is non-nil. Category totals are
// listed in registry order, followed by unregistered names alphabetically;
// the latter get FallbackColor.
func Summarize(txs []Transaction, cats []Category, rates Rates) Summary {
	byName := make(map[string]Category, len(cats))
	for _, c := range cats {
		byName[c.Name] = c
	}

	income := map[string]*CategoryTotal{}
	expense := map[string]*CategoryTotal{}
	var s Summary
	for _, tx := range txs {
		amt := tx.Amount
		if rates != nil {
			amt = rates.Convert(amt, tx.Currency)
		}
		bucket := income
		if tx.Type == Expense {
			bucket = expense
			s.Expense = s.Expense.Add(amt.Abs())
		} else {
			s.Income = s.Income.Add(amt.Abs())
		}
		ct, ok := bucket[tx.Category]
		if !ok {
			ct = &CategoryTotal{Name: tx.Category, Color: FallbackColor}
			if c, known := byName[tx.Category]; known {
				ct.Color = c.Color
				ct.Icon = c.Icon
			}
			bucket[tx.Category] = ct
		}
		ct.Amount = ct.Amount.Add(amt.Abs())
		ct.Count++
	}
	s.Balance = Money{Cents: s.Income.Cents - s.Expense.Cents}
	s.IncomeByCategory = orderTotals(income, byName)
	s.ExpenseByCategory = orderTotals(expense, byName)
	return s
}

func orderTotals(m map[string]*CategoryTotal, byName map[string]Category) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(m))
	for _, ct := range m {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, iok := byName[out[i].Name]
		cj, jok := byName[out[j].Name]
		switch {
		case iok && jok:
			return ci.Order < cj.Order
		case iok != jok:
			return iok
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DayTotal is the absolute expense recorded on one day.
type DayTotal struct {
	Date   Date  `json:"date"`
	Amount Money `json:"amount"`
	Count  int   `json:"count"`
}

// DailySpend sums expenses per day within [from, to], ascending by date.
// Days without expenses are omitted.
func DailySpend(txs []Transaction, from, to Date, rates Rates) []DayTotal {
	byDay := map[string]*DayTotal{}
	for _, tx := range txs {
		if tx.Type != Expense || tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		amt := tx.Amount
		if rates != nil {
			amt = rates.Convert(amt, tx.Currency)
		}
		k := tx.Date.String()
		dt, ok := byDay[k]
		if !ok {
			dt = &DayTotal{Date: tx.Date}
			byDay[k] = dt
		}
		dt.Amount = dt.Amount.Add(amt.Abs())
		dt.Count++
	}
	out := make([]DayTotal, 0, len(byDay))
	for _, dt := range byDay {
		out = append(out, *dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Filter selects transactions. Zero fields match everything.
type Filter struct {
	From     Date
	To       Date
	Type     TxType
	Category string
	Query    string // case-insensitive substring of the description
}

func (f Filter) Match(tx Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(tx.Description), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

// Apply returns the matching transactions in their original order.
func (f Filter) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}
