// Package ledger is the append-only audit trail of field changes.
//
// Rows are written only by the mutation applier, inside the same
// transaction as the edit they record. Nothing in this package updates or
// deletes a row.
package ledger

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/clock"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/querysql"
	"github.com/roach88/dealbook/internal/store"
)

// Table is the ledger's table name.
const Table = "field_changes"

// Listing limits.
const (
	DefaultLimit = 200
	MaxLimit     = 1000
)

// FieldChange is one recorded field edit. OldValue and NewValue are the
// stored-text forms; nil means SQL NULL.
type FieldChange struct {
	ID         string  `db:"id" json:"id" yaml:"id"`
	TableName  string  `db:"table_name" json:"table_name" yaml:"table_name"`
	RecordID   string  `db:"record_id" json:"record_id" yaml:"record_id"`
	FieldName  string  `db:"field_name" json:"field_name" yaml:"field_name"`
	OldValue   *string `db:"old_value" json:"old_value" yaml:"old_value"`
	NewValue   *string `db:"new_value" json:"new_value" yaml:"new_value"`
	ActorID    string  `db:"actor_id" json:"actor_id" yaml:"actor_id"`
	ActorLabel string  `db:"actor_label" json:"actor_label" yaml:"actor_label"`
	ChangedAt  string  `db:"changed_at" json:"changed_at" yaml:"changed_at"`
}

// Filter narrows a listing. Zero fields do not filter.
//
// Since is inclusive and Until is exclusive. Both accept any form
// clock.Parse understands, including bare dates.
type Filter struct {
	Table    string
	RecordID string
	ActorID  string
	Since    string
	Until    string
	Limit    int
}

// ClampLimit maps n into [1, MaxLimit], with DefaultLimit for n <= 0.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// Append writes one change row. Changes to internal bookkeeping tables
// are refused.
func Append(ctx context.Context, q store.Querier, c FieldChange) error {
	if catalog.IsInternal(c.TableName) {
		return apperr.ForbiddenTarget(c.TableName)
	}
	if c.ID == "" || c.TableName == "" || c.RecordID == "" || c.FieldName == "" {
		return fmt.Errorf("ledger append: id, table, record and field are required")
	}
	if c.ActorID == "" || c.ActorLabel == "" || c.ChangedAt == "" {
		return fmt.Errorf("ledger append: actor and timestamp are required")
	}

	d, err := catalog.Describe(ctx, q, Table)
	if err != nil {
		return err
	}
	_, err = querysql.Exec(ctx, q, d, queryir.Insert{
		Table: Table,
		Values: []queryir.Assignment{
			{Column: "id", Value: c.ID},
			{Column: "table_name", Value: c.TableName},
			{Column: "record_id", Value: c.RecordID},
			{Column: "field_name", Value: c.FieldName},
			{Column: "old_value", Value: nullable(c.OldValue)},
			{Column: "new_value", Value: nullable(c.NewValue)},
			{Column: "actor_id", Value: c.ActorID},
			{Column: "actor_label", Value: c.ActorLabel},
			{Column: "changed_at", Value: c.ChangedAt},
		},
	})
	return err
}

// List returns matching changes, newest first (changed_at DESC, id DESC).
// The result is never nil.
func List(ctx context.Context, q store.Querier, f Filter) ([]FieldChange, error) {
	pred, err := f.predicate()
	if err != nil {
		return nil, err
	}

	d, err := catalog.Describe(ctx, q, Table)
	if err != nil {
		return nil, err
	}
	sqlText, args, err := querysql.Compile(queryir.Select{
		From:    Table,
		Filter:  pred,
		OrderBy: []queryir.Order{queryir.Desc("changed_at"), queryir.Desc("id")},
		Limit:   ClampLimit(f.Limit),
	}, d)
	if err != nil {
		return nil, err
	}

	changes := []FieldChange{}
	if err := sqlx.SelectContext(ctx, q, &changes, sqlText, args...); err != nil {
		return nil, apperr.Storage("ledger_list", err)
	}
	return changes, nil
}

// ForRecord returns the changes for one record, newest first.
func ForRecord(ctx context.Context, q store.Querier, table, recordID string, limit int) ([]FieldChange, error) {
	return List(ctx, q, Filter{Table: table, RecordID: recordID, Limit: limit})
}

func (f Filter) predicate() (queryir.Predicate, error) {
	var preds []queryir.Predicate
	if f.Table != "" {
		preds = append(preds, queryir.Equals{Field: "table_name", Value: f.Table})
	}
	if f.RecordID != "" {
		preds = append(preds, queryir.Equals{Field: "record_id", Value: f.RecordID})
	}
	if f.ActorID != "" {
		preds = append(preds, queryir.Equals{Field: "actor_id", Value: f.ActorID})
	}
	if f.Since != "" {
		ts, err := bound(f.Since)
		if err != nil {
			return nil, err
		}
		preds = append(preds, queryir.Compare{Field: "changed_at", Op: queryir.OpGTE, Value: ts})
	}
	if f.Until != "" {
		ts, err := bound(f.Until)
		if err != nil {
			return nil, err
		}
		preds = append(preds, queryir.Compare{Field: "changed_at", Op: queryir.OpLT, Value: ts})
	}
	return queryir.AllOf(preds...), nil
}

// bound normalizes a time bound to the stored fixed-width layout so string
// comparison orders correctly.
func bound(s string) (string, error) {
	t, err := clock.Parse(s)
	if err != nil {
		return "", apperr.InvalidTime(s, err)
	}
	return clock.Format(t), nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
