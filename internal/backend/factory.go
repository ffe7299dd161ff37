package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"walletlog/internal/cache"
	"walletlog/internal/session"
	"walletlog/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite session backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory session backend")

	return &BackendResult{
		Backend: memoryBackend{session.NewMemoryStorage()},
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}

// memoryBackend adds the readiness probe to in-process storage.
type memoryBackend struct {
	*session.MemoryStorage
}

func (memoryBackend) Ping(context.Context) error { return nil }

// idlePurger is implemented by backends that can drop abandoned sessions.
type idlePurger interface {
	PurgeIdle(ctx context.Context, before time.Time) (int64, error)
}

// sessionCleaner adapts a purging backend to the cache manager's periodic
// cleanup.
type sessionCleaner struct {
	purger  idlePurger
	maxIdle time.Duration
	logger  *slog.Logger
}

// IdleCleaner returns a cleaner that removes sessions idle for longer than
// maxIdle, or nil when b keeps sessions in memory only.
func IdleCleaner(b Backend, maxIdle time.Duration, logger *slog.Logger) cache.Cleaner {
	p, ok := b.(idlePurger)
	if !ok {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionCleaner{purger: p, maxIdle: maxIdle, logger: logger}
}

func (c *sessionCleaner) CleanExpired() int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := c.purger.PurgeIdle(ctx, time.Now().Add(-c.maxIdle))
	if err != nil {
		c.logger.Warn("Session purge failed", "component", "backend", "error", err)
		return 0
	}
	return int(n)
}
