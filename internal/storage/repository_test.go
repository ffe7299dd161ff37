package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"walletlog/internal/session"
)

var _ session.Storage = (*SQLiteRepository)(nil)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_SetGetDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.Get(ctx, "s1", session.TokenKey); err != nil || ok {
		t.Fatalf("Get on empty db = ok %v, err %v", ok, err)
	}

	if err := repo.Set(ctx, "s1", session.TokenKey, "abc123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "s1", session.TokenKey, "def456"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := repo.Get(ctx, "s1", session.TokenKey)
	if err != nil || !ok || v != "def456" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	// Other sessions are isolated.
	if _, ok, _ := repo.Get(ctx, "s2", session.TokenKey); ok {
		t.Fatal("value leaked across sessions")
	}

	if err := repo.Delete(ctx, "s1", session.TokenKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "s1", session.TokenKey); ok {
		t.Fatal("value still present after delete")
	}
}

func TestSQLiteRepository_PingChecksSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	defer repo.Close()
	ctx := context.Background()

	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping on migrated db: %v", err)
	}
	if v, err := schemaVersion(ctx, repo.db); err != nil || v != 1 {
		t.Fatalf("schemaVersion = %d, %v; want 1", v, err)
	}

	if _, err := repo.db.ExecContext(ctx, `UPDATE `+migrationsTable+` SET dirty = 1`); err != nil {
		t.Fatal(err)
	}
	if err := repo.Ping(ctx); !errors.Is(err, ErrDirtySchema) {
		t.Fatalf("Ping on dirty schema = %v, want ErrDirtySchema", err)
	}
	if err := RunMigrations(path); err == nil {
		t.Fatal("RunMigrations accepted a dirty schema")
	}

	if _, err := repo.db.ExecContext(ctx, `DELETE FROM `+migrationsTable); err != nil {
		t.Fatal(err)
	}
	if err := repo.Ping(ctx); err == nil {
		t.Fatal("Ping accepted an unversioned schema")
	}
}

func TestSQLiteRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Set(ctx, "s1", session.TokenKey, "abc123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	repo.Close()

	// Reopening re-runs migrations, which must be a no-op.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if v, ok, err := repo.Get(ctx, "s1", session.TokenKey); err != nil || !ok || v != "abc123" {
		t.Fatalf("Get after reopen = %q, %v, %v", v, ok, err)
	}
}

func TestSQLiteRepository_PurgeIdle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_ = repo.Set(ctx, "s1", session.TokenKey, "a")
	_ = repo.Set(ctx, "s2", session.TokenKey, "b")

	n, err := repo.PurgeIdle(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeIdle: %v", err)
	}
	if n != 2 {
		t.Fatalf("PurgeIdle removed %d rows, want 2", n)
	}
}

func TestSQLiteRepository_WithSessionManager(t *testing.T) {
	repo := newTestRepo(t)
	m := session.NewManager(repo, session.Options{})
	ctx := session.NewContext(context.Background(), session.New("s1", repo))

	if err := m.Login(ctx, "abc123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !m.Authenticated(ctx) {
		t.Fatal("expected authenticated session")
	}
}
