// Package mutation applies batches of field edits atomically, recording
// one ledger row per changed field.
//
// A batch runs in exactly one transaction. Any invalid edit, coercion
// failure or storage error rolls back every edit, every ledger row and any
// snapshot the batch requested.
package mutation

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/dealbook/internal/actor"
	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/clock"
	"github.com/roach88/dealbook/internal/coerce"
	"github.com/roach88/dealbook/internal/ident"
	"github.com/roach88/dealbook/internal/ledger"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/querysql"
	"github.com/roach88/dealbook/internal/snapshot"
	"github.com/roach88/dealbook/internal/store"
	"github.com/roach88/dealbook/internal/view"
)

// UpdatedAtColumn is refreshed on every changed row that has it.
const UpdatedAtColumn = "updated_at"

// Edit sets one field of one record. IDColumn defaults to the table's
// primary key. A nil or blank NewValue clears the field.
type Edit struct {
	Table    string  `json:"table" yaml:"table"`
	RecordID string  `json:"record_id" yaml:"record_id"`
	Field    string  `json:"field" yaml:"field"`
	IDColumn string  `json:"id_column,omitempty" yaml:"id_column,omitempty"`
	NewValue *string `json:"new_value" yaml:"new_value"`
}

// Result summarizes an applied batch.
type Result struct {
	Updated       int         `json:"updated"`
	EventsCreated int         `json:"events_created"`
	SnapshotID    *string     `json:"snapshot_id"`
	Actor         actor.Actor `json:"actor"`
}

// Applier applies edit batches against one store.
type Applier struct {
	store *store.Store
	gen   ident.Generator
	clock clock.Clock
	views *view.Builder
}

// NewApplier wires an Applier.
func NewApplier(st *store.Store, gen ident.Generator, clk clock.Clock, views *view.Builder) *Applier {
	return &Applier{store: st, gen: gen, clock: clk, views: views}
}

// Apply validates and applies edits in order inside one transaction.
//
// An empty batch is a read-only no-op: it resolves the actor without
// requiring a label and opens no transaction. Otherwise the actor must
// have a label. Edits whose coerced value equals the stored value are
// skipped and leave no ledger row.
//
// When snapshotRootID is set, the post-edit view of that root is captured
// in the same transaction with source tag "apply".
func (a *Applier) Apply(ctx context.Context, edits []Edit, snapshotRootID string) (Result, error) {
	if len(edits) == 0 {
		who, err := actor.Require(ctx, a.store.DB(), a.gen, false)
		if err != nil {
			return Result{}, err
		}
		return Result{Actor: who}, nil
	}

	var res Result
	err := a.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		who, err := actor.Require(ctx, tx, a.gen, true)
		if err != nil {
			return err
		}
		res.Actor = who

		for i, e := range edits {
			changed, err := a.applyOne(ctx, tx, e, who)
			if err != nil {
				return fmt.Errorf("edit %d: %w", i, err)
			}
			if changed {
				res.Updated++
				res.EventsCreated++
			}
		}

		if snapshotRootID != "" {
			v, err := a.views.Build(ctx, tx, snapshotRootID)
			if err != nil {
				return fmt.Errorf("snapshot view: %w", err)
			}
			id, err := snapshot.Create(ctx, tx, a.gen, a.clock, snapshotRootID, snapshot.SourceApply, v, who)
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			res.SnapshotID = &id
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Target is a validated edit target.
type Target struct {
	Desc     *catalog.Descriptor
	Field    string
	IDColumn string
}

// Resolve validates an edit's table, field and id column against the live
// schema.
func Resolve(ctx context.Context, q store.Querier, e Edit) (Target, error) {
	if catalog.IsInternal(e.Table) {
		return Target{}, apperr.ForbiddenTarget(e.Table)
	}
	d, err := catalog.Describe(ctx, q, e.Table)
	if err != nil {
		return Target{}, err
	}
	if !d.HasColumn(e.Field) {
		return Target{}, apperr.UnknownColumn(e.Table, e.Field)
	}
	idCol := e.IDColumn
	if idCol == "" {
		idCol = d.PrimaryKey
	}
	if idCol == "" || !d.HasColumn(idCol) {
		return Target{}, apperr.UnknownIDColumn(e.Table, idCol)
	}
	return Target{Desc: d, Field: e.Field, IDColumn: idCol}, nil
}

// applyOne applies a single edit, reporting whether the stored value
// changed.
func (a *Applier) applyOne(ctx context.Context, tx store.Querier, e Edit, who actor.Actor) (bool, error) {
	t, err := Resolve(ctx, tx, e)
	if err != nil {
		return false, err
	}
	table := t.Desc.Table
	match := queryir.Equals{Field: t.IDColumn, Value: e.RecordID}

	rows, err := querysql.RowsWith(ctx, tx, t.Desc, queryir.Select{
		From:    table,
		Columns: []string{t.Field},
		Filter:  match,
		Limit:   1,
	})
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, apperr.RecordNotFound(table, t.IDColumn, e.RecordID)
	}
	current := rows[0][t.Field]

	cat := t.Desc.CategoryOf(t.Field)
	next, err := coerce.Coerce(e.NewValue, cat)
	if err != nil {
		return false, err
	}
	if coerce.Equal(current, next, cat) {
		return false, nil
	}

	changedAt := clock.Stamp(a.clock)
	set := []queryir.Assignment{{Column: t.Field, Value: next.SQLArg()}}
	if t.Desc.HasColumn(UpdatedAtColumn) && t.Field != UpdatedAtColumn {
		set = append(set, queryir.Assignment{Column: UpdatedAtColumn, Value: changedAt})
	}
	if _, err := querysql.Exec(ctx, tx, t.Desc, queryir.Update{Table: table, Set: set, Filter: match}); err != nil {
		return false, err
	}

	err = ledger.Append(ctx, tx, ledger.FieldChange{
		ID:         a.gen.Generate(),
		TableName:  table,
		RecordID:   e.RecordID,
		FieldName:  t.Field,
		OldValue:   coerce.Stringify(current),
		NewValue:   next.Text(),
		ActorID:    who.ID,
		ActorLabel: who.LabelOrEmpty(),
		ChangedAt:  changedAt,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
