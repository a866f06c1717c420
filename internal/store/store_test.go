package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/dealbook/internal/apperr"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"Companies", "Contacts", "field_changes", "snapshots", "app_settings", "Companies_Tasks_tasks"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

// Schema tests

func TestSchema_FieldChangesTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "field_changes")
	expected := []string{
		"id", "table_name", "record_id", "field_name", "old_value", "new_value",
		"actor_id", "actor_label", "changed_at",
	}
	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("field_changes table missing column %q", col)
		}
	}

	indexes := getTableIndexes(t, s.db, "field_changes")
	for _, idx := range []string{"idx_field_changes_record", "idx_field_changes_actor"} {
		if !contains(indexes, idx) {
			t.Errorf("field_changes table missing index %q", idx)
		}
	}
}

func TestSchema_SnapshotsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "snapshots")
	for _, col := range []string{"id", "root_id", "source_tag", "schema_version", "payload", "digest", "actor_id", "actor_label", "created_at"} {
		if !contains(columns, col) {
			t.Errorf("snapshots table missing column %q", col)
		}
	}
}

func TestSchema_EdgeTablesIndexedBothWays(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "Contacts_Companies_founders")
	if !contains(indexes, "idx_Contacts_Companies_founders_to") {
		t.Errorf("missing to_id index, got %v", indexes)
	}
	// The composite primary key covers from_id lookups.
	if !contains(indexes, "sqlite_autoindex_Contacts_Companies_founders_1") {
		t.Errorf("missing primary key index, got %v", indexes)
	}
}

func TestConstraint_SnapshotRootMustExist(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO snapshots (id, root_id, source_tag, schema_version, payload, actor_id, actor_label, created_at)
		VALUES ('s1', 'missing', 'manual', 1, '{}', 'a1', 'Ana', '2024-01-01T00:00:00.000000000Z')
	`)
	if err == nil {
		t.Error("expected foreign key violation for unknown root")
	}
}

// Transaction tests

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO Companies (id, Company_Name) VALUES ('c1', 'Acme')`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() failed: %v", err)
	}

	var name string
	if err := s.db.Get(&name, `SELECT Company_Name FROM Companies WHERE id = 'c1'`); err != nil {
		t.Fatalf("row not committed: %v", err)
	}
	if name != "Acme" {
		t.Errorf("Company_Name = %q, want %q", name, "Acme")
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sentinel := apperr.NotFound("company", "c2")

	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO Companies (id) VALUES ('c1')`); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx() error = %v, want sentinel", err)
	}

	var count int
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM Companies`); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Companies count = %d after rollback, want 0", count)
	}
}

func TestWithTx_WrapsDriverErrors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO no_such_table VALUES (1)`)
		return err
	})
	if !apperr.IsStorage(err) {
		t.Fatalf("WithTx() error = %v, want storage error", err)
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_UpgradeFromV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// A v1 store: base schema without the digest column.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO Companies (id) VALUES ('c1')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`
		INSERT INTO snapshots (id, root_id, source_tag, schema_version, payload, actor_id, actor_label, created_at)
		VALUES ('old', 'c1', 'manual', 1, '{}', 'a1', 'Ana', '2023-01-01T00:00:00.000000000Z')
	`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var digest string
	if err := s.db.Get(&digest, `SELECT digest FROM snapshots WHERE id = 'old'`); err != nil {
		t.Fatalf("digest column missing after migration: %v", err)
	}
	if digest != "" {
		t.Errorf("pre-v2 digest = %q, want empty", digest)
	}

	if !contains(getTableIndexes(t, s.db, "snapshots"), "idx_snapshots_root_created") {
		t.Error("expected idx_snapshots_root_created after migration")
	}
}
