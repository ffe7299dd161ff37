// Package session models the browser's local storage as a server-side
// key/value store scoped to a session cookie. The API token lives under
// TokenKey; its presence is what the router and the request pipeline treat
// as being logged in.
package session

import (
	"context"
	"sync"
)

// TokenKey is the storage key holding the API session token.
const TokenKey = "token"

// Storage persists string values per session id.
type Storage interface {
	Get(ctx context.Context, sessionID, key string) (value string, ok bool, err error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID, key string) error
}

// MemoryStorage keeps values in process memory. Values are lost on restart.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[sessionID][key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.values[sessionID]
	if !ok {
		kv = make(map[string]string)
		m.values[sessionID] = kv
	}
	kv[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kv, ok := m.values[sessionID]; ok {
		delete(kv, key)
		if len(kv) == 0 {
			delete(m.values, sessionID)
		}
	}
	return nil
}

// Len returns the number of sessions holding at least one value.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
