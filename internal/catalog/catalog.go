// Package catalog introspects table definitions in the live store.
//
// Lookups are never cached: tables and columns may appear or disappear
// between calls as the schema evolves, and every mutation validates against
// what exists at that moment.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/store"
)

// Category drives value coercion for a column.
type Category string

const (
	// Text columns store trimmed strings.
	Text Category = "text"

	// Numeric columns store integers or decimals.
	Numeric Category = "numeric"
)

// InternalTables are bookkeeping tables that edits may never target.
var InternalTables = []string{"field_changes", "snapshots", "app_settings"}

// IsInternal reports whether table is one of InternalTables.
func IsInternal(table string) bool {
	for _, t := range InternalTables {
		if strings.EqualFold(t, table) {
			return true
		}
	}
	return false
}

// Column describes one declared column.
type Column struct {
	Name         string
	DeclaredType string
	Category     Category
	NotNull      bool
	PrimaryKey   bool
}

// Descriptor describes a table at lookup time.
type Descriptor struct {
	Table string

	// Columns in declaration order.
	Columns []Column

	// PrimaryKey is the single primary-key column, or "" when the table has
	// a composite key or none.
	PrimaryKey string

	// Types maps column name to category.
	Types map[string]Category
}

// HasColumn reports whether name is a declared column. Matching is exact;
// the allow-list must not accept spellings the query compiler would then
// interpolate.
func (d *Descriptor) HasColumn(name string) bool {
	_, ok := d.Types[name]
	return ok
}

// CategoryOf returns the column's category, defaulting to Text.
func (d *Descriptor) CategoryOf(name string) Category {
	if c, ok := d.Types[name]; ok {
		return c
	}
	return Text
}

// ColumnNames returns column names in declaration order.
func (d *Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

type tableInfoRow struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull int            `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

// Describe returns the descriptor for table, or an UnknownTable schema
// error when it does not exist.
func Describe(ctx context.Context, q store.Querier, table string) (*Descriptor, error) {
	exists, err := TableExists(ctx, q, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.UnknownTable(table)
	}

	var rows []tableInfoRow
	err = sqlx.SelectContext(ctx, q, &rows,
		`SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`,
		table)
	if err != nil {
		return nil, apperr.Storage("describe", fmt.Errorf("describe %s: %w", table, err))
	}

	d := &Descriptor{
		Table:   table,
		Columns: make([]Column, 0, len(rows)),
		Types:   make(map[string]Category, len(rows)),
	}
	var pkCols []string
	for _, r := range rows {
		col := Column{
			Name:         r.Name,
			DeclaredType: r.Type,
			Category:     Classify(r.Type),
			NotNull:      r.NotNull != 0,
			PrimaryKey:   r.PK > 0,
		}
		d.Columns = append(d.Columns, col)
		d.Types[col.Name] = col.Category
		if col.PrimaryKey {
			pkCols = append(pkCols, col.Name)
		}
	}
	if len(pkCols) == 1 {
		d.PrimaryKey = pkCols[0]
	}
	return d, nil
}

// TableExists reports whether a user table named exactly table exists.
// SQLite's own tables are never reported.
func TableExists(ctx context.Context, q store.Querier, table string) (bool, error) {
	if table == "" || strings.HasPrefix(strings.ToLower(table), "sqlite_") {
		return false, nil
	}
	var count int
	err := sqlx.GetContext(ctx, q, &count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
	if err != nil {
		return false, apperr.Storage("table_exists", fmt.Errorf("lookup %s: %w", table, err))
	}
	return count > 0, nil
}

// Classify maps a declared column type to a category, following the order
// of SQLite's affinity rules: INT first, then character types, then the
// REAL and NUMERIC families. Declared types with no marker (DATE, BLOB, "")
// are text.
func Classify(declared string) Category {
	t := strings.ToUpper(declared)
	if strings.Contains(t, "INT") {
		return Numeric
	}
	for _, marker := range []string{"CHAR", "CLOB", "TEXT", "BLOB"} {
		if strings.Contains(t, marker) {
			return Text
		}
	}
	for _, marker := range []string{"REAL", "FLOA", "DOUB", "NUM", "DEC"} {
		if strings.Contains(t, marker) {
			return Numeric
		}
	}
	return Text
}

// QuoteIdent double-quotes an identifier. Callers must validate the name
// against a Descriptor first; quoting alone is not an allow-list.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
