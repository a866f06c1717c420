package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/dealbook/internal/actor"
	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/clock"
	"github.com/roach88/dealbook/internal/graph"
	"github.com/roach88/dealbook/internal/ident"
	"github.com/roach88/dealbook/internal/ledger"
	"github.com/roach88/dealbook/internal/mutation"
	"github.com/roach88/dealbook/internal/registry"
	"github.com/roach88/dealbook/internal/snapshot"
	"github.com/roach88/dealbook/internal/store"
	"github.com/roach88/dealbook/internal/view"
)

// Engine is the entry point for every dealbook operation.
type Engine struct {
	store  *store.Store
	reg    *registry.Registry
	gen    ident.Generator
	clock  clock.Clock
	logger *slog.Logger

	quota        BatchQuota
	defaultLimit int

	views   *view.Builder
	applier *mutation.Applier
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the clock used for ledger and snapshot timestamps.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithIDGenerator sets the generator for actor, ledger and snapshot ids.
// Tests use ident.NewSequenceGenerator for stable ids.
func WithIDGenerator(g ident.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.gen = g
		}
	}
}

// WithRegistry replaces the embedded relationship registry.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.reg = r
		}
	}
}

// WithMaxBatchEdits sets the maximum edits per ApplyChanges call.
//
// Default: 1000 (DefaultMaxBatchEdits). Zero disables the limit.
func WithMaxBatchEdits(n int) Option {
	return func(e *Engine) {
		e.quota = NewBatchQuota(n)
	}
}

// WithDefaultEventLimit sets the page size ListEvents uses when the filter
// leaves Limit unset. The value is clamped like any other limit.
func WithDefaultEventLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultLimit = ledger.ClampLimit(n)
		}
	}
}

// New creates an Engine over st. The embedded registry is compiled on first
// use; a registry error is returned here rather than on the first call.
func New(st *store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:        st,
		gen:          ident.UUIDv7Generator{},
		clock:        clock.System{},
		logger:       slog.Default(),
		quota:        NewBatchQuota(DefaultMaxBatchEdits),
		defaultLimit: ledger.DefaultLimit,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.reg == nil {
		reg, err := registry.Default()
		if err != nil {
			return nil, err
		}
		e.reg = reg
	}

	e.views = view.NewBuilder(e.reg)
	e.applier = mutation.NewApplier(st, e.gen, e.clock, e.views)
	return e, nil
}

// Registry returns the relationship registry in use.
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// ApplyChanges applies edits as one atomic batch and, when snapshotRootID
// is set, captures that root's post-edit view in the same transaction.
func (e *Engine) ApplyChanges(ctx context.Context, edits []mutation.Edit, snapshotRootID string) (mutation.Result, error) {
	snapshotRootID = strings.TrimSpace(snapshotRootID)
	e.logger.Debug("apply changes",
		"edits", len(edits),
		"snapshot_root", snapshotRootID,
	)

	if err := e.quota.Check(len(edits)); err != nil {
		e.reject("apply changes", err)
		return mutation.Result{}, err
	}

	res, err := e.applier.Apply(ctx, edits, snapshotRootID)
	if err != nil {
		e.reject("apply changes", err)
		return mutation.Result{}, err
	}

	if len(edits) > 0 {
		attrs := []any{
			"updated", res.Updated,
			"events", res.EventsCreated,
			"actor_id", res.Actor.ID,
		}
		if res.SnapshotID != nil {
			attrs = append(attrs, "snapshot_id", *res.SnapshotID)
		}
		e.logger.Info("batch committed", attrs...)
	}
	return res, nil
}

// ListEvents returns ledger rows matching f, newest first. A zero limit
// uses the engine's default page size.
func (e *Engine) ListEvents(ctx context.Context, f ledger.Filter) ([]ledger.FieldChange, error) {
	if f.Limit <= 0 {
		f.Limit = e.defaultLimit
	}
	e.logger.Debug("list events",
		"table", f.Table,
		"record_id", f.RecordID,
		"actor_id", f.ActorID,
		"limit", f.Limit,
	)
	return ledger.List(ctx, e.store.DB(), f)
}

// RecordHistory returns every retained change to one record, newest first,
// up to the default page size.
func (e *Engine) RecordHistory(ctx context.Context, table, recordID string) ([]ledger.FieldChange, error) {
	if strings.TrimSpace(table) == "" || strings.TrimSpace(recordID) == "" {
		return nil, apperr.NotFound("record", recordID)
	}
	return ledger.ForRecord(ctx, e.store.DB(), table, recordID, e.defaultLimit)
}

// ListSnapshots returns snapshot summaries for rootID, newest first.
func (e *Engine) ListSnapshots(ctx context.Context, rootID string) ([]snapshot.Summary, error) {
	e.logger.Debug("list snapshots", "root_id", rootID)
	return snapshot.List(ctx, e.store.DB(), rootID)
}

// GetSnapshot loads one snapshot and verifies its digest.
func (e *Engine) GetSnapshot(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	e.logger.Debug("get snapshot", "snapshot_id", id)
	snap, err := snapshot.Get(ctx, e.store.DB(), id)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeDigestMismatch) {
			e.logger.Error("snapshot digest mismatch", "snapshot_id", id)
		}
		return nil, err
	}
	return snap, nil
}

// CreateSnapshot captures the current view of rootID outside an edit
// batch. The actor must have a label. A blank sourceTag means "manual".
func (e *Engine) CreateSnapshot(ctx context.Context, rootID, sourceTag string) (string, error) {
	e.logger.Debug("create snapshot", "root_id", rootID, "source_tag", sourceTag)

	var id string
	err := e.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		who, err := actor.Require(ctx, tx, e.gen, true)
		if err != nil {
			return err
		}
		v, err := e.views.Build(ctx, tx, rootID)
		if err != nil {
			return err
		}
		id, err = snapshot.Create(ctx, tx, e.gen, e.clock, rootID, sourceTag, v, who)
		return err
	})
	if err != nil {
		e.reject("create snapshot", err)
		return "", err
	}

	e.logger.Info("snapshot created", "snapshot_id", id, "root_id", rootID)
	return id, nil
}

// GetView assembles the current view of rootID.
func (e *Engine) GetView(ctx context.Context, rootID string) (*view.View, error) {
	e.logger.Debug("get view", "root_id", rootID)
	return e.views.Build(ctx, e.store.DB(), rootID)
}

// GetActor returns the local actor, creating its id on first access.
func (e *Engine) GetActor(ctx context.Context) (actor.Actor, error) {
	return actor.Ensure(ctx, e.store.DB(), e.gen)
}

// SetActorLabel stores a trimmed, non-empty label for the local actor.
func (e *Engine) SetActorLabel(ctx context.Context, text string) (actor.Actor, error) {
	a, err := actor.SetLabel(ctx, e.store.DB(), e.gen, text)
	if err != nil {
		e.reject("set actor label", err)
		return actor.Actor{}, err
	}
	e.logger.Info("actor label set", "actor_id", a.ID)
	return a, nil
}

// Relations returns, for every registry relation touching the root entity,
// the ids linked to rootID. Relations whose edge table is absent are
// reported with Present=false.
func (e *Engine) Relations(ctx context.Context, rootID string) ([]graph.Group, error) {
	var rels []registry.Relation
	for _, r := range e.reg.Relations {
		if r.Touches(e.reg.Layout.Root) {
			rels = append(rels, r)
		}
	}
	e.logger.Debug("relations", "root_id", rootID, "relations", len(rels))
	return graph.ByRelation(ctx, e.store.DB(), rootID, rels)
}

func (e *Engine) reject(op string, err error) {
	e.logger.Warn(op+" rejected",
		"kind", apperr.KindOf(err),
		"code", apperr.CodeOf(err),
		"error", err,
	)
}
