// Package api declares the operations the web front end needs from the
// expense API. The remote package implements them over GraphQL; the
// memory package is an in-process stand-in used by tests and local runs.
package api

import (
	"context"

	"walletlog/internal/core"
)

type (
	// Registration is the input of the register operation.
	Registration struct {
		Name     string
		Email    string
		Password string
	}

	// ExpenseFilter narrows a listing. Zero fields match everything.
	ExpenseFilter struct {
		Date     core.Date
		Category string
	}

	// ExpensePatch updates an expense. Nil fields are left unchanged.
	ExpensePatch struct {
		ID          string
		Amount      *core.Money
		Category    *string
		Description *string
		Date        *core.Date
	}
)

// Ports for outbound adapters.
type (
	Authenticator interface {
		Register(ctx context.Context, in Registration) (core.Credentials, error)
		Login(ctx context.Context, email, password string) (core.Credentials, error)
	}

	ExpenseWriter interface {
		AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, p ExpensePatch) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) (bool, error)
	}

	ExpenseReader interface {
		ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
		GetExpense(ctx context.Context, id string) (core.Expense, error)
	}

	// SummaryReader aggregates expenses between two dates, inclusive.
	SummaryReader interface {
		ExpenseSummary(ctx context.Context, start, end core.Date) (core.Summary, error)
	}

	// API is everything the pages use.
	API interface {
		Authenticator
		ExpenseWriter
		ExpenseReader
		SummaryReader
	}
)

// PatchFrom builds a patch that sets every field of e.
func PatchFrom(e core.Expense) ExpensePatch {
	amount := e.Amount
	category := e.Category
	description := e.Description
	date := e.Date
	return ExpensePatch{
		ID:          e.ID,
		Amount:      &amount,
		Category:    &category,
		Description: &description,
		Date:        &date,
	}
}
