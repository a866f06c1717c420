package querysql

import (
	"context"
	"fmt"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/store"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Rows describes sel.From against the live schema, compiles sel and
// returns every matching row.
func Rows(ctx context.Context, q store.Querier, sel queryir.Select) ([]Row, error) {
	d, err := catalog.Describe(ctx, q, sel.From)
	if err != nil {
		return nil, err
	}
	return RowsWith(ctx, q, d, sel)
}

// RowsWith runs sel using an already fetched descriptor.
func RowsWith(ctx context.Context, q store.Querier, d *catalog.Descriptor, sel queryir.Select) ([]Row, error) {
	sql, args, err := Compile(sel, d)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryxContext(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Storage("select", fmt.Errorf("select from %s: %w", d.Table, err))
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			return nil, apperr.Storage("select", fmt.Errorf("scan %s: %w", d.Table, err))
		}
		for k, v := range m {
			if b, ok := v.([]byte); ok {
				m[k] = string(b)
			}
		}
		out = append(out, Row(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("select", fmt.Errorf("iterate %s: %w", d.Table, err))
	}
	return out, nil
}

// Exec compiles and runs an Update or Insert, returning rows affected.
func Exec(ctx context.Context, q store.Querier, d *catalog.Descriptor, query queryir.Query) (int64, error) {
	sql, args, err := Compile(query, d)
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, apperr.Storage("exec", fmt.Errorf("%s: %w", d.Table, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage("exec", err)
	}
	return n, nil
}
