package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"budget/internal/core"
)

const (
	colorText    lipgloss.Color = "#cdd6f4"
	colorMuted   lipgloss.Color = "#7f849c"
	colorBorder  lipgloss.Color = "#45475a"
	colorIncome  lipgloss.Color = "#a6e3a1"
	colorExpense lipgloss.Color = "#f38ba8"
	colorAccent  lipgloss.Color = "#89b4fa"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(colorText).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1)
)

func amountStyle(m core.Money) lipgloss.Style {
	if m.Cents < 0 {
		return cellStyle.Foreground(colorExpense).Align(lipgloss.Right)
	}
	return cellStyle.Foreground(colorIncome).Align(lipgloss.Right)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...)
}

func renderTransactions(txs []core.Transaction) string {
	if len(txs) == 0 {
		return mutedStyle.Render("no transactions")
	}
	t := newTable("DATE", "DESCRIPTION", "CATEGORY", "AMOUNT", "ID")
	for _, tx := range txs {
		t.Row(tx.Date.String(), tx.Description, tx.Category, tx.Amount.Display(tx.Currency), tx.ID)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col == 3:
			return amountStyle(txs[row].Amount)
		case col == 4:
			return cellStyle.Foreground(colorMuted)
		}
		return cellStyle
	})
	return t.String()
}

func renderCategories(cats []core.Category) string {
	if len(cats) == 0 {
		return mutedStyle.Render("no categories")
	}
	t := newTable("#", "NAME", "ICON", "ID")
	for _, c := range cats {
		t.Row(fmt.Sprint(c.Order), c.Name, c.Icon, c.ID)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col == 1 && cats[row].Color != "":
			return cellStyle.Foreground(lipgloss.Color(cats[row].Color))
		case col == 3:
			return cellStyle.Foreground(colorMuted)
		}
		return cellStyle
	})
	return t.String()
}

func renderTotals(title string, totals []core.CategoryTotal, currency string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')
	if len(totals) == 0 {
		b.WriteString(mutedStyle.Render("none"))
		return b.String()
	}
	t := newTable("CATEGORY", "COUNT", "AMOUNT")
	for _, ct := range totals {
		t.Row(ct.Name, fmt.Sprint(ct.Count), ct.Amount.Display(currency))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col == 0 && totals[row].Color != "":
			return cellStyle.Foreground(lipgloss.Color(totals[row].Color))
		case col > 0:
			return cellStyle.Align(lipgloss.Right)
		}
		return cellStyle
	})
	b.WriteString(t.String())
	return b.String()
}

// renderSummary prints the headline figures followed by the per-category
// breakdowns. Amounts are shown in currency, which is only a label here:
// the CLI does not convert.
func renderSummary(s core.Summary, currency string) string {
	line := func(label string, m core.Money) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			cellStyle.Width(12).Render(label),
			amountStyle(m).Width(16).Render(m.Display(currency)))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		line("Income", s.Income),
		line("Expense", s.Expense.Neg()),
		line("Balance", s.Balance),
		renderTotals("Income by category", s.IncomeByCategory, currency),
		renderTotals("Expense by category", s.ExpenseByCategory, currency),
	)
}
