package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists session values so logins survive restarts.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the database is reachable and its schema is migrated.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return err
	}
	_, err := schemaVersion(ctx, r.db)
	return err
}

// Get implements session.Storage
func (r *SQLiteRepository) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_id = ? AND name = ?`,
		sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session value: %w", err)
	}
	return value, true, nil
}

// Set implements session.Storage
func (r *SQLiteRepository) Set(ctx context.Context, sessionID, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_values (session_id, name, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set session value: %w", err)
	}
	slog.DebugContext(ctx, "Session value stored", "component", "storage", "session_id", sessionID, "key", key)
	return nil
}

// Delete implements session.Storage
func (r *SQLiteRepository) Delete(ctx context.Context, sessionID, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ? AND name = ?`,
		sessionID, key)
	if err != nil {
		return fmt.Errorf("delete session value: %w", err)
	}
	return nil
}

// PurgeIdle removes values not written since before. It returns the number
// of rows removed.
func (r *SQLiteRepository) PurgeIdle(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE updated_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge idle sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge idle sessions: %w", err)
	}
	return n, nil
}
