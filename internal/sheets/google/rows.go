package google

import (
	"fmt"
	"strings"

	"budget/internal/core"
)

// transactionRow renders tx in Header order. The amount is a plain decimal
// so USER_ENTERED input stores it as a number.
func transactionRow(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.String(),
		tx.Description,
		tx.Amount.String(),
		tx.Category,
		string(tx.Type),
		tx.Currency,
	}
}

// matchingRows returns the zero-based indices of rows whose cell at col
// equals want. The header row never matches a real id or category.
func matchingRows(values [][]any, col int, want string) []int {
	want = strings.TrimSpace(want)
	if want == "" {
		return nil
	}
	var out []int
	for i, row := range values {
		if strings.TrimSpace(cell(row, col)) == want {
			out = append(out, i)
		}
	}
	return out
}

func cell(row []any, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return fmt.Sprint(row[idx])
}
