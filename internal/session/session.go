package session

import (
	"context"
	"fmt"
)

// Session is one browser's view of local storage.
type Session struct {
	id      string
	storage Storage
}

// New binds a session id to a storage backend.
func New(id string, storage Storage) *Session {
	return &Session{id: id, storage: storage}
}

func (s *Session) ID() string { return s.id }

// Token returns the stored API token. An empty stored value counts as absent.
func (s *Session) Token(ctx context.Context) (string, bool, error) {
	v, ok, err := s.storage.Get(ctx, s.id, TokenKey)
	if err != nil {
		return "", false, fmt.Errorf("read session token: %w", err)
	}
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

func (s *Session) SetToken(ctx context.Context, token string) error {
	if err := s.storage.Set(ctx, s.id, TokenKey, token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	return nil
}

func (s *Session) ClearToken(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.id, TokenKey); err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}
	return nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by Manager.Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
