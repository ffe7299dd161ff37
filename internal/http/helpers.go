package http

import (
	"strconv"
	"strings"

	"walletlog/internal/core"
)

// formatMoney formats cents as a dollar string with thousands separators
// (e.g. "$1,234.56").
func formatMoney(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	s := "$" + b.String() + "." + frac
	if neg {
		return "-" + s
	}
	return s
}

// barRow is one category bar in a chart partial.
type barRow struct {
	Name   string
	Amount core.Money
	Width  int
}

// chartBars scales every category against the largest one. Widths are
// rounded percentages with a floor of 2 so that small amounts stay visible.
func chartBars(byCategory []core.CategoryAmount) []barRow {
	var maxCents int64
	for _, c := range byCategory {
		if c.Amount.Cents > maxCents {
			maxCents = c.Amount.Cents
		}
	}

	rows := make([]barRow, 0, len(byCategory))
	for _, c := range byCategory {
		width := 0
		if maxCents > 0 && c.Amount.Cents > 0 {
			width = int((c.Amount.Cents*100 + maxCents/2) / maxCents)
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		rows = append(rows, barRow{Name: c.Name, Amount: c.Amount, Width: width})
	}
	return rows
}

// totalOf sums the amounts of items.
func totalOf(items []core.Expense) core.Money {
	var total core.Money
	for _, e := range items {
		total.Cents += e.Amount.Cents
	}
	return total
}
