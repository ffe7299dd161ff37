package remote

import (
	"fmt"
	"sort"

	"walletlog/internal/core"
)

// Wire shapes of the API schema. Amounts travel as floats and dates as
// YYYY-MM-DD strings.
type (
	wireUser struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	wireAuthPayload struct {
		Token string   `json:"token"`
		User  wireUser `json:"user"`
	}

	wireExpense struct {
		ID          string  `json:"id"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
		Date        string  `json:"date"`
	}

	wireCategorySummary struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
	}

	wireSummary struct {
		TotalAmount float64               `json:"totalAmount"`
		TotalCount  int                   `json:"totalCount"`
		ByCategory  []wireCategorySummary `json:"byCategory"`
	}
)

func (u wireAuthPayload) credentials() core.Credentials {
	return core.Credentials{
		Token: u.Token,
		User:  core.User{ID: u.User.ID, Name: u.User.Name, Email: u.User.Email},
	}
}

func (w wireExpense) expense() (core.Expense, error) {
	e := core.Expense{
		ID:          w.ID,
		Amount:      core.MoneyFromFloat(w.Amount),
		Category:    w.Category,
		Description: w.Description,
	}
	if w.Date != "" {
		d, err := core.ParseDate(w.Date)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %s: date %q: %w", w.ID, w.Date, err)
		}
		e.Date = d
	}
	return e, nil
}

func expensesFromWire(in []wireExpense) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(in))
	for _, w := range in {
		e, err := w.expense()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// summary converts the wire summary. The API returns categories in map
// order, so they are sorted by amount, largest first, then by name.
func (w wireSummary) summary(start, end core.Date) core.Summary {
	s := core.Summary{
		Start: start,
		End:   end,
		Total: core.MoneyFromFloat(w.TotalAmount),
		Count: w.TotalCount,
	}
	for _, c := range w.ByCategory {
		s.ByCategory = append(s.ByCategory, core.CategoryAmount{
			Name:   c.Category,
			Amount: core.MoneyFromFloat(c.Total),
		})
	}
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return s
}

func expenseInput(e core.Expense) map[string]any {
	return map[string]any{
		"amount":      e.Amount.Float(),
		"category":    e.Category,
		"description": e.Description,
		"date":        e.Date.String(),
	}
}
