package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/querysql"
)

func TestSeed_RowsAndEdges(t *testing.T) {
	st := SeededStore(t, Fixture{
		Rows: []Row{
			V("Companies", "id", "c1", "Company_Name", "Acme", "Pax", 4),
			V("Tasks", "id", "t1", "Task_Name", "Call"),
		},
		Edges: []Edge{E("Companies_Tasks_tasks", "c1", "t1")},
	})
	ctx := context.Background()

	rows, err := querysql.Rows(ctx, st.DB(), queryir.Select{From: "Companies"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0]["Company_Name"])
	assert.Equal(t, int64(4), rows[0]["Pax"])

	edges, err := querysql.Rows(ctx, st.DB(), queryir.Select{From: "Companies_Tasks_tasks"})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "t1", edges[0]["to_id"])
}

func TestSeed_RejectsUnknownColumn(t *testing.T) {
	st := OpenStore(t)

	err := Seed(context.Background(), st.DB(), Fixture{
		Rows: []Row{V("Companies", "id", "c1", "Nope", "x")},
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnknownColumn))
}

func TestV_PanicsOnOddArgs(t *testing.T) {
	assert.Panics(t, func() { V("Companies", "id") })
}
