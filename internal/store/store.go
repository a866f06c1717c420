package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/dealbook/internal/apperr"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - empty file
// 1 - deal tables, edge tables, field_changes, snapshots, app_settings
// 2 - snapshots.digest column and (root_id, created_at) index
const currentSchemaVersion = 2

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx. Read paths accept a
// Querier so they run the same inside or outside a write transaction.
type Querier interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Store owns the SQLite handle for one dealbook database.
type Store struct {
	db *sqlx.DB
}

// Open creates or opens the database at path, applying pragmas and
// migrations.
//
// The database is configured with:
//   - WAL mode so readers proceed during a write
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Safe to call repeatedly on the same file.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer, and pragmas such as
	// foreign_keys are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle for read queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// WithTx runs fn inside one transaction. fn's error, or a failed commit,
// rolls back every statement fn issued. Driver errors surface as
// apperr storage errors; taxonomy errors from fn pass through unchanged.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Storage("begin", err)
	}
	defer tx.Rollback() // no-op after commit

	if err := fn(tx); err != nil {
		return apperr.Storage("tx", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Storage("commit", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sqlx.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sqlx.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV2 adds the snapshot digest column. Rows written before v2 get
// an empty digest, which readers treat as unverifiable rather than damaged.
func migrateToV2(db *sqlx.DB) error {
	var present int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('snapshots') WHERE name = 'digest'`,
	).Scan(&present)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}

	if present == 0 {
		if _, err := db.Exec(`ALTER TABLE snapshots ADD COLUMN digest TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snapshots_root_created
		ON snapshots(root_id, created_at)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

var _ Querier = (*sqlx.DB)(nil)
var _ Querier = (*sqlx.Tx)(nil)
