package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/querysql"
	"github.com/roach88/dealbook/internal/store"
)

// Fixture is seed data for a test store. It is also the "seed" block of
// harness scenario files.
type Fixture struct {
	Rows  []Row  `yaml:"rows"`
	Edges []Edge `yaml:"edges"`
}

// Row is one record to insert.
type Row struct {
	Table  string         `yaml:"table"`
	Values map[string]any `yaml:"values"`
}

// Edge is one relationship row.
type Edge struct {
	Table string `yaml:"table"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

// Seed inserts every row then every edge, in order. Table and column names
// are checked against the live schema like any other generic write.
func Seed(ctx context.Context, q store.Querier, f Fixture) error {
	descs := make(map[string]*catalog.Descriptor)
	describe := func(table string) (*catalog.Descriptor, error) {
		if d, ok := descs[table]; ok {
			return d, nil
		}
		d, err := catalog.Describe(ctx, q, table)
		if err != nil {
			return nil, err
		}
		descs[table] = d
		return d, nil
	}

	for i, r := range f.Rows {
		d, err := describe(r.Table)
		if err != nil {
			return fmt.Errorf("seed row %d: %w", i, err)
		}
		values := make([]queryir.Assignment, 0, len(r.Values))
		for col, v := range r.Values {
			values = append(values, queryir.Assignment{Column: col, Value: v})
		}
		if _, err := querysql.Exec(ctx, q, d, queryir.Insert{Table: r.Table, Values: values}); err != nil {
			return fmt.Errorf("seed row %d (%s): %w", i, r.Table, err)
		}
	}

	for i, e := range f.Edges {
		d, err := describe(e.Table)
		if err != nil {
			return fmt.Errorf("seed edge %d: %w", i, err)
		}
		_, err = querysql.Exec(ctx, q, d, queryir.Insert{
			Table: e.Table,
			Values: []queryir.Assignment{
				{Column: "from_id", Value: e.From},
				{Column: "to_id", Value: e.To},
			},
		})
		if err != nil {
			return fmt.Errorf("seed edge %d (%s): %w", i, e.Table, err)
		}
	}
	return nil
}

// OpenStore opens a fresh store in a temp dir, closed on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "dealbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// SeededStore opens a fresh store and seeds it.
func SeededStore(t testing.TB, f Fixture) *store.Store {
	t.Helper()
	st := OpenStore(t)
	require.NoError(t, Seed(context.Background(), st.DB(), f))
	return st
}

// V returns a Row for table with alternating column/value pairs:
//
//	testutil.V("Companies", "id", "c1", "Company_Name", "Acme")
func V(table string, kv ...any) Row {
	if len(kv)%2 != 0 {
		panic("testutil.V: odd number of key/value arguments")
	}
	values := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		values[kv[i].(string)] = kv[i+1]
	}
	return Row{Table: table, Values: values}
}

// E returns an Edge.
func E(table, from, to string) Edge {
	return Edge{Table: table, From: from, To: to}
}
