package store

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
)

// createTestStore opens a fresh store in the test's temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func getTableColumns(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var columns []string
	if err := db.Select(&columns, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table); err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var indexes []string
	err := db.Select(&indexes,
		"SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=? ORDER BY name", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
