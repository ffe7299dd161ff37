// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// the expense form, the list filter and the summary date range. Free text is
// stripped of markup before it reaches the API.
package http

import (
	"errors"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"walletlog/internal/api"
	"walletlog/internal/core"
)

const (
	maxDescriptionLen = 200
	maxSanitizePasses = 4
)

// stripPolicy removes every HTML element and attribute.
var stripPolicy = bluemonday.StrictPolicy()

// ExpenseForm holds the raw expense form values, as redisplayed on error.
type ExpenseForm struct {
	Date        string
	Description string
	Amount      string
	Category    string
}

// FormErrors maps a form field name to its validation message.
type FormErrors map[string]string

func (fe FormErrors) Any() bool { return len(fe) > 0 }

// sanitizeInput trims s, strips markup and drops control characters other
// than tab and newlines. Entities are decoded so "Fish & Chips" reaches the
// API unchanged; stripping repeats until decoding uncovers no more markup.
func sanitizeInput(s string) string {
	s = dropControl(strings.TrimSpace(s))
	for i := 0; i < maxSanitizePasses; i++ {
		next := dropControl(strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s))))
		if next == s {
			return next
		}
		s = next
	}
	// Still changing: keep the escaped form rather than decoded markup.
	return strings.TrimSpace(stripPolicy.Sanitize(s))
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// ParseExpenseForm reads the expense fields from form.
func ParseExpenseForm(form url.Values) ExpenseForm {
	return ExpenseForm{
		Date:        strings.TrimSpace(form.Get("date")),
		Description: sanitizeInput(form.Get("description")),
		Amount:      strings.TrimSpace(form.Get("amount")),
		Category:    sanitizeInput(form.Get("category")),
	}
}

// FormFromExpense prefills the form for editing.
func FormFromExpense(e core.Expense) ExpenseForm {
	return ExpenseForm{
		Date:        e.Date.String(),
		Description: e.Description,
		Amount:      e.Amount.Decimal(),
		Category:    e.Category,
	}
}

// Expense validates the form and converts it. Every invalid field gets a
// message; the expense is only meaningful when the errors are empty.
func (f ExpenseForm) Expense() (core.Expense, FormErrors) {
	errs := FormErrors{}
	var e core.Expense

	if f.Date == "" {
		errs["date"] = "Date is required"
	} else if d, err := core.ParseDate(f.Date); err != nil {
		errs["date"] = "Use the YYYY-MM-DD format"
	} else {
		e.Date = d
	}

	switch n := len([]rune(f.Description)); {
	case n == 0:
		errs["description"] = "Description is required"
	case n > maxDescriptionLen:
		errs["description"] = "Description must be at most 200 characters"
	default:
		e.Description = f.Description
	}

	if cents, err := core.ParseDecimalToCents(f.Amount); err != nil {
		errs["amount"] = "Enter a positive amount such as 12.34"
	} else {
		e.Amount = core.Money{Cents: cents}
	}

	if f.Category == "" {
		errs["category"] = "Category is required"
	} else {
		e.Category = f.Category
	}

	return e, errs
}

// CredentialsForm holds the register and login form values.
type CredentialsForm struct {
	Name     string
	Email    string
	Password string
}

// ParseCredentialsForm reads name, email and password. The password is
// taken verbatim.
func ParseCredentialsForm(form url.Values) CredentialsForm {
	return CredentialsForm{
		Name:     sanitizeInput(form.Get("name")),
		Email:    strings.ToLower(strings.TrimSpace(form.Get("email"))),
		Password: form.Get("password"),
	}
}

// ValidateLogin reports missing login fields.
func (f CredentialsForm) ValidateLogin() FormErrors {
	errs := FormErrors{}
	if f.Email == "" || !strings.Contains(f.Email, "@") {
		errs["email"] = "Enter a valid email address"
	}
	if f.Password == "" {
		errs["password"] = "Password is required"
	}
	return errs
}

// ValidateRegistration extends the login checks with the name and a
// minimum password length.
func (f CredentialsForm) ValidateRegistration() FormErrors {
	errs := f.ValidateLogin()
	if f.Name == "" {
		errs["name"] = "Name is required"
	}
	if f.Password != "" && len(f.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters"
	}
	return errs
}

// ParseExpenseFilter reads the optional date and category filters. An
// unparseable date is reported and ignored.
func ParseExpenseFilter(query url.Values) (api.ExpenseFilter, error) {
	f := api.ExpenseFilter{Category: sanitizeInput(query.Get("category"))}
	if v := strings.TrimSpace(query.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, err
		}
		f.Date = d
	}
	return f, nil
}

// ErrReversedRange is returned when a summary range ends before it starts.
var ErrReversedRange = errors.New("end date before start date")

// ParseSummaryRange reads start and end from query. Missing bounds default
// to the month containing now.
func ParseSummaryRange(query url.Values, now time.Time) (core.Date, core.Date, error) {
	first, last := core.Date{Time: now}.MonthBounds()

	start, end := first, last
	if v := strings.TrimSpace(query.Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return first, last, err
		}
		start = d
	}
	if v := strings.TrimSpace(query.Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return first, last, err
		}
		end = d
	}
	if end.Before(start.Time) {
		return start, end, ErrReversedRange
	}
	return start, end, nil
}

// RequireMethod writes a 405 and returns false unless r uses one of methods.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	MethodNotAllowedError(w, strings.Join(methods, ", "))
	return false
}

// ParseFormOrFail parses the request form, writing a 400 on failure.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Malformed request")
		return false
	}
	return true
}
