package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summary aggregates expenses between two dates, inclusive.
type Summary struct {
	Start      Date
	End        Date
	Total      Money
	Count      int
	ByCategory []CategoryAmount
}

// Largest returns the category with the highest amount, if any.
func (s Summary) Largest() (CategoryAmount, bool) {
	var best CategoryAmount
	found := false
	for _, c := range s.ByCategory {
		if !found || c.Amount.Cents > best.Amount.Cents {
			best = c
			found = true
		}
	}
	return best, found
}
