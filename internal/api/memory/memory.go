// Package memory is an in-process implementation of the api ports. It
// mirrors the behavior of the remote API closely enough to drive the pages
// without a network: bcrypt password hashes, HS256 tokens carrying a
// userID claim, and per-user expense ownership.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"walletlog/internal/api"
	"walletlog/internal/core"
	"walletlog/internal/graphql"
)

const tokenLifetime = 72 * time.Hour

type account struct {
	user core.User
	hash []byte
}

type Store struct {
	mu       sync.Mutex
	secret   []byte
	cost     int
	now      func() time.Time
	tokens   graphql.TokenSource
	accounts map[string]account // by email
	items    map[string]ownedExpense
}

type ownedExpense struct {
	owner string
	core.Expense
}

var _ api.API = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option { return func(s *Store) { s.cost = cost } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New creates a store that signs tokens with secret and identifies the
// caller of each operation through tokens.
func New(secret []byte, tokens graphql.TokenSource, opts ...Option) *Store {
	s := &Store{
		secret:   append([]byte(nil), secret...),
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		tokens:   tokens,
		accounts: map[string]account{},
		items:    map[string]ownedExpense{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func apiError(msg string) error {
	return &graphql.ResponseError{Errors: []graphql.Error{{Message: msg}}}
}

func (s *Store) Register(_ context.Context, in api.Registration) (core.Credentials, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return core.Credentials{}, apiError("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		return core.Credentials{}, apiError("user already exists")
	}
	u := core.User{ID: uuid.NewString(), Name: strings.TrimSpace(in.Name), Email: email}
	s.accounts[email] = account{user: u, hash: hash}
	return s.issue(u)
}

func (s *Store) Login(_ context.Context, email, password string) (core.Credentials, error) {
	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return core.Credentials{}, apiError("invalid email or password")
	}
	return s.issue(acc.user)
}

func (s *Store) issue(u core.User) (core.Credentials, error) {
	claims := jwt.MapClaims{
		"userID": u.ID,
		"exp":    s.now().Add(tokenLifetime).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("sign token: %w", err)
	}
	return core.Credentials{Token: tok, User: u}, nil
}

// caller resolves the user id behind the token in ctx.
func (s *Store) caller(ctx context.Context) (string, error) {
	raw, ok := s.tokens.Token(ctx)
	if !ok || raw == "" {
		return "", fmt.Errorf("%w: Missing or invalid Authorization header", graphql.ErrUnauthorized)
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("%w: Invalid or expired token", graphql.ErrUnauthorized)
	}
	claims, _ := tok.Claims.(jwt.MapClaims)
	id, _ := claims["userID"].(string)
	if id == "" {
		return "", fmt.Errorf("%w: Missing user ID in token", graphql.ErrUnauthorized)
	}
	return id, nil
}

func (s *Store) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.NewString()
	s.mu.Lock()
	s.items[e.ID] = ownedExpense{owner: owner, Expense: e}
	s.mu.Unlock()
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, p api.ExpensePatch) (core.Expense, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[p.ID]
	if !ok || it.owner != owner {
		return core.Expense{}, apiError("expense not found or unauthorized")
	}
	if p.Amount != nil {
		it.Amount = *p.Amount
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Date != nil {
		it.Date = *p.Date
	}
	s.items[p.ID] = it
	return it.Expense, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) (bool, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.owner != owner {
		return false, apiError("expense not found or unauthorized")
	}
	delete(s.items, id)
	return true, nil
}

// ListExpenses returns the caller's expenses, newest first.
func (s *Store) ListExpenses(ctx context.Context, f api.ExpenseFilter) ([]core.Expense, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, it := range s.items {
		if it.owner != owner {
			continue
		}
		if !f.Date.IsZero() && !it.Date.Equal(f.Date.Time) {
			continue
		}
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		out = append(out, it.Expense)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.owner != owner {
		return core.Expense{}, apiError("expense not found or unauthorized")
	}
	return it.Expense, nil
}

func (s *Store) ExpenseSummary(ctx context.Context, start, end core.Date) (core.Summary, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	if start.IsZero() || end.IsZero() || end.Before(start.Time) {
		return core.Summary{}, errors.Join(core.ErrInvalidDate, fmt.Errorf("range %s..%s", start, end))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := core.Summary{Start: start, End: end}
	byCat := map[string]int64{}
	for _, it := range s.items {
		if it.owner != owner || it.Date.Before(start.Time) || it.Date.After(end.Time) {
			continue
		}
		sum.Total.Cents += it.Amount.Cents
		sum.Count++
		byCat[it.Category] += it.Amount.Cents
	}
	for name, cents := range byCat {
		sum.ByCategory = append(sum.ByCategory, core.CategoryAmount{Name: name, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		a, b := sum.ByCategory[i], sum.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return sum, nil
}
