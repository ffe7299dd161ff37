package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable is golang-migrate's default version table.
const migrationsTable = "schema_migrations"

// ErrDirtySchema means a migration failed halfway and needs manual repair.
var ErrDirtySchema = errors.New("session schema is dirty")

// RunMigrations brings the session schema at dbPath up to date.
func RunMigrations(dbPath string) error {
	// The migrator closes its connection, so it gets its own.
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		db.Close()
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("open session migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate session schema: %w", err)
	}
	if _, dirty, err := m.Version(); err != nil {
		return fmt.Errorf("read session schema version: %w", err)
	} else if dirty {
		return ErrDirtySchema
	}
	return nil
}

// schemaVersion reads the applied migration version through db.
func schemaVersion(ctx context.Context, db *sql.DB) (uint, error) {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRowContext(ctx,
		`SELECT version, dirty FROM `+migrationsTable+` LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errors.New("session schema not migrated")
	}
	if err != nil {
		return 0, fmt.Errorf("read session schema version: %w", err)
	}
	if dirty {
		return uint(version), ErrDirtySchema
	}
	return uint(version), nil
}
