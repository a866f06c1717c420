package querysql

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRowsAndExec(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	db := st.DB()

	d, err := catalog.Describe(ctx, db, "Companies")
	require.NoError(t, err)

	for _, row := range [][]queryir.Assignment{
		{{Column: "id", Value: "c2"}, {Column: "Company_Name", Value: "Beta"}, {Column: "Pax", Value: int64(3)}},
		{{Column: "id", Value: "c1"}, {Column: "Company_Name", Value: "Acme"}, {Column: "Amount_Raised_AUMs", Value: 2.5}},
	} {
		n, err := Exec(ctx, db, d, queryir.Insert{Table: "Companies", Values: row})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}

	rows, err := Rows(ctx, db, queryir.Select{
		From:    "Companies",
		Columns: []string{"id", "Company_Name", "Pax", "Amount_Raised_AUMs"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "c1", rows[0]["id"])
	assert.Equal(t, "Acme", rows[0]["Company_Name"])
	assert.Nil(t, rows[0]["Pax"])
	assert.Equal(t, 2.5, rows[0]["Amount_Raised_AUMs"])
	assert.Equal(t, int64(3), rows[1]["Pax"])

	n, err := Exec(ctx, db, d, queryir.Update{
		Table:  "Companies",
		Set:    []queryir.Assignment{{Column: "Company_Name", Value: "Gamma"}},
		Filter: queryir.Equals{Field: "id", Value: "missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRowsUnknownTable(t *testing.T) {
	st := openStore(t)

	_, err := Rows(context.Background(), st.DB(), queryir.Select{From: "Widgets"})
	require.Error(t, err)
	assert.True(t, apperr.IsSchema(err))
}

func TestRowsEmptyResult(t *testing.T) {
	st := openStore(t)

	rows, err := Rows(context.Background(), st.DB(), queryir.Select{
		From:   "Contacts",
		Filter: queryir.Equals{Field: "id", Value: "nobody"},
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
