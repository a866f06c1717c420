package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dealbook/internal/actor"
	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/ident"
	"github.com/roach88/dealbook/internal/ir"
	"github.com/roach88/dealbook/internal/registry"
	"github.com/roach88/dealbook/internal/store"
	"github.com/roach88/dealbook/internal/testutil"
	"github.com/roach88/dealbook/internal/view"
)

type env struct {
	st    *store.Store
	gen   *ident.SequenceGenerator
	clk   *testutil.StepClock
	actor actor.Actor
	views *view.Builder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	label := "Dana"
	return &env{
		st:    testutil.SeededStore(t, testutil.AcmeFixture()),
		gen:   ident.NewSequenceGenerator("snap"),
		clk:   testutil.NewStepClock(time.Time{}, time.Minute),
		actor: actor.Actor{ID: "actor-1", Label: &label},
		views: view.NewBuilder(registry.MustDefault()),
	}
}

func (e *env) create(t *testing.T, tag string) string {
	t.Helper()
	ctx := context.Background()
	v, err := e.views.Build(ctx, e.st.DB(), "c1")
	require.NoError(t, err)
	id, err := Create(ctx, e.st.DB(), e.gen, e.clk, "c1", tag, v, e.actor)
	require.NoError(t, err)
	return id
}

func TestCreateAndGet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := e.create(t, "manual")
	assert.Equal(t, "snap-0001", id)

	snap, err := Get(ctx, e.st.DB(), id)
	require.NoError(t, err)

	assert.Equal(t, "c1", snap.RootID)
	assert.Equal(t, "manual", snap.SourceTag)
	assert.Equal(t, ir.SnapshotSchemaVersion, snap.SchemaVersion)
	assert.Equal(t, "actor-1", snap.ActorID)
	assert.Equal(t, "Dana", snap.ActorLabel)
	assert.Equal(t, "2024-01-01T09:00:00.000000000Z", snap.CreatedAt)
	assert.True(t, snap.Verified)
	assert.Equal(t, ir.SnapshotDigest([]byte(snap.Payload)), snap.Digest)

	current, err := e.views.Build(ctx, e.st.DB(), "c1")
	require.NoError(t, err)
	assert.Equal(t, current, snap.View)
}

func TestPayloadLayout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	v, err := e.views.Build(ctx, e.st.DB(), "c1")
	require.NoError(t, err)
	viewJSON, err := ir.MarshalCanonical(v.Value())
	require.NoError(t, err)

	id := e.create(t, "apply")
	snap, err := Get(ctx, e.st.DB(), id)
	require.NoError(t, err)

	want := `{"created_at":"2024-01-01T09:00:00.000000000Z","root_id":"c1","schema_version":1,"source_tag":"apply","view":` +
		string(viewJSON) + `}`
	assert.Equal(t, want, snap.Payload)
}

func TestEmptySourceTagDefaultsToManual(t *testing.T) {
	e := newEnv(t)

	id := e.create(t, "  ")
	snap, err := Get(context.Background(), e.st.DB(), id)
	require.NoError(t, err)
	assert.Equal(t, SourceManual, snap.SourceTag)
}

func TestListNewestFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.create(t, "manual")
	second := e.create(t, "apply")

	list, err := List(ctx, e.st.DB(), "c1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)

	other, err := List(ctx, e.st.DB(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other)
}

func TestListTieBreaksOnID(t *testing.T) {
	e := newEnv(t)
	e.clk = testutil.NewStepClock(time.Time{}, time.Nanosecond)
	ctx := context.Background()

	a := e.create(t, "manual")
	_, err := e.st.DB().Exec(`UPDATE snapshots SET created_at = '2024-01-01T00:00:00.000000000Z'`)
	require.NoError(t, err)
	b := e.create(t, "manual")
	_, err = e.st.DB().Exec(`UPDATE snapshots SET created_at = '2024-01-01T00:00:00.000000000Z'`)
	require.NoError(t, err)

	list, err := List(ctx, e.st.DB(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, []string{list[0].ID, list[1].ID})
}

func TestSnapshotUnaffectedByLaterEdits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := e.create(t, "manual")
	before, err := Get(ctx, e.st.DB(), id)
	require.NoError(t, err)

	_, err = e.st.DB().Exec(`UPDATE Companies SET Company_Name = 'Renamed' WHERE id = 'c1'`)
	require.NoError(t, err)

	after, err := Get(ctx, e.st.DB(), id)
	require.NoError(t, err)
	assert.Equal(t, before.Payload, after.Payload)
	assert.Equal(t, "Acme Robotics", after.View.Root["Company_Name"])
}

func TestGetNotFound(t *testing.T) {
	e := newEnv(t)

	_, err := Get(context.Background(), e.st.DB(), "missing")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestGetDetectsTampering(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := e.create(t, "manual")
	_, err := e.st.DB().Exec(`UPDATE snapshots SET payload = replace(payload, 'Acme', 'Evil') WHERE id = ?`, id)
	require.NoError(t, err)

	_, err = Get(ctx, e.st.DB(), id)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeDigestMismatch))
	assert.True(t, apperr.IsStorage(err))
}

func TestGetLegacyRowWithoutDigest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id := e.create(t, "manual")
	_, err := e.st.DB().Exec(`UPDATE snapshots SET digest = '' WHERE id = ?`, id)
	require.NoError(t, err)

	snap, err := Get(ctx, e.st.DB(), id)
	require.NoError(t, err)
	assert.False(t, snap.Verified)
	assert.NotNil(t, snap.View)
}

func TestCreateRequiresLabel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	v, err := e.views.Build(ctx, e.st.DB(), "c1")
	require.NoError(t, err)

	_, err = Create(ctx, e.st.DB(), e.gen, e.clk, "c1", "manual", v, actor.Actor{ID: "actor-1"})
	require.Error(t, err)
	assert.True(t, apperr.IsPermission(err))
}
