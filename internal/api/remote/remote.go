package remote

import (
	"context"
	"fmt"
	"strings"

	"walletlog/internal/api"
	"walletlog/internal/core"
	"walletlog/internal/graphql"
	"walletlog/internal/log"
)

// Client implements the api ports over the GraphQL pipeline. Reads go
// through the response cache; writes are mutations and clear it.
type Client struct {
	gql *graphql.Client
}

// Ensure interface conformance
var (
	_ api.Authenticator = (*Client)(nil)
	_ api.ExpenseWriter = (*Client)(nil)
	_ api.ExpenseReader = (*Client)(nil)
	_ api.SummaryReader = (*Client)(nil)
	_ api.API           = (*Client)(nil)
)

func New(gql *graphql.Client) *Client {
	return &Client{gql: gql}
}

func (c *Client) Register(ctx context.Context, in api.Registration) (core.Credentials, error) {
	vars := map[string]any{"input": map[string]any{
		"name":     strings.TrimSpace(in.Name),
		"email":    strings.TrimSpace(in.Email),
		"password": in.Password,
	}}
	var out struct {
		Register wireAuthPayload `json:"register"`
	}
	if err := c.gql.Mutate(ctx, graphql.NewRequest(opRegister, registerMutation, vars), &out); err != nil {
		return core.Credentials{}, err
	}
	return out.Register.credentials(), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (core.Credentials, error) {
	vars := map[string]any{"input": map[string]any{
		"email":    strings.TrimSpace(email),
		"password": password,
	}}
	var out struct {
		Login wireAuthPayload `json:"login"`
	}
	if err := c.gql.Mutate(ctx, graphql.NewRequest(opLogin, loginMutation, vars), &out); err != nil {
		return core.Credentials{}, err
	}
	return out.Login.credentials(), nil
}

func (c *Client) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	var out struct {
		AddExpense wireExpense `json:"addExpense"`
	}
	vars := map[string]any{"input": expenseInput(e)}
	if err := c.gql.Mutate(ctx, graphql.NewRequest(opAddExpense, addExpenseMutation, vars), &out); err != nil {
		return core.Expense{}, err
	}
	created, err := out.AddExpense.expense()
	if err != nil {
		return core.Expense{}, err
	}
	log.FromContext(ctx).DebugContext(ctx, "Expense added", log.FieldExpenseID, created.ID)
	return created, nil
}

func (c *Client) UpdateExpense(ctx context.Context, p api.ExpensePatch) (core.Expense, error) {
	if strings.TrimSpace(p.ID) == "" {
		return core.Expense{}, fmt.Errorf("update expense: missing id")
	}
	input := map[string]any{"id": p.ID}
	if p.Amount != nil {
		input["amount"] = p.Amount.Float()
	}
	if p.Category != nil {
		input["category"] = *p.Category
	}
	if p.Description != nil {
		input["description"] = *p.Description
	}
	if p.Date != nil {
		input["date"] = p.Date.String()
	}

	var out struct {
		UpdateExpense wireExpense `json:"updateExpense"`
	}
	vars := map[string]any{"input": input}
	if err := c.gql.Mutate(ctx, graphql.NewRequest(opUpdateExpense, updateExpenseMutation, vars), &out); err != nil {
		return core.Expense{}, err
	}
	return out.UpdateExpense.expense()
}

func (c *Client) DeleteExpense(ctx context.Context, id string) (bool, error) {
	var out struct {
		DeleteExpense bool `json:"deleteExpense"`
	}
	vars := map[string]any{"id": id}
	if err := c.gql.Mutate(ctx, graphql.NewRequest(opDeleteExpense, deleteExpenseMutation, vars), &out); err != nil {
		return false, err
	}
	return out.DeleteExpense, nil
}

// ListExpenses sends only the filters that are set; the API treats a
// missing argument as "any".
func (c *Client) ListExpenses(ctx context.Context, f api.ExpenseFilter) ([]core.Expense, error) {
	vars := map[string]any{}
	if !f.Date.IsZero() {
		vars["date"] = f.Date.String()
	}
	if cat := strings.TrimSpace(f.Category); cat != "" {
		vars["category"] = cat
	}
	var out struct {
		GetExpenses []wireExpense `json:"getExpenses"`
	}
	if err := c.gql.Query(ctx, graphql.NewRequest(opGetExpenses, getExpensesQuery, vars), &out); err != nil {
		return nil, err
	}
	return expensesFromWire(out.GetExpenses)
}

func (c *Client) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	var out struct {
		GetExpenseByID wireExpense `json:"getExpenseByID"`
	}
	vars := map[string]any{"id": id}
	if err := c.gql.Query(ctx, graphql.NewRequest(opGetExpenseByID, getExpenseByIDQuery, vars), &out); err != nil {
		return core.Expense{}, err
	}
	return out.GetExpenseByID.expense()
}

func (c *Client) ExpenseSummary(ctx context.Context, start, end core.Date) (core.Summary, error) {
	if start.IsZero() || end.IsZero() {
		return core.Summary{}, core.ErrInvalidDate
	}
	if end.Before(start.Time) {
		return core.Summary{}, fmt.Errorf("summary range: end %s before start %s: %w", end, start, core.ErrInvalidDate)
	}
	var out struct {
		ExpenseSummary wireSummary `json:"expenseSummary"`
	}
	vars := map[string]any{"startDate": start.String(), "endDate": end.String()}
	if err := c.gql.Query(ctx, graphql.NewRequest(opExpenseSummary, expenseSummaryQuery, vars), &out); err != nil {
		return core.Summary{}, err
	}
	return out.ExpenseSummary.summary(start, end), nil
}
