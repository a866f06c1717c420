// Package snapshot freezes assembled views into immutable, versioned rows.
//
// A snapshot payload is canonical JSON:
//
//	{"created_at":..., "root_id":..., "schema_version":1, "source_tag":..., "view":{...}}
//
// The payload bytes are stored verbatim next to a domain-separated SHA-256
// digest and are never rewritten. Reads re-verify the digest.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/dealbook/internal/actor"
	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/clock"
	"github.com/roach88/dealbook/internal/ident"
	"github.com/roach88/dealbook/internal/ir"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/querysql"
	"github.com/roach88/dealbook/internal/store"
	"github.com/roach88/dealbook/internal/view"
)

// Table is the snapshot table name.
const Table = "snapshots"

// Source tags.
const (
	SourceApply  = "apply"
	SourceManual = "manual"
)

// Summary is a snapshot row without its payload.
type Summary struct {
	ID            string `db:"id" json:"id"`
	RootID        string `db:"root_id" json:"root_id"`
	SourceTag     string `db:"source_tag" json:"source_tag"`
	SchemaVersion int    `db:"schema_version" json:"schema_version"`
	ActorID       string `db:"actor_id" json:"actor_id"`
	ActorLabel    string `db:"actor_label" json:"actor_label"`
	CreatedAt     string `db:"created_at" json:"created_at"`
}

// Snapshot is a full snapshot row.
type Snapshot struct {
	Summary
	Payload string `db:"payload" json:"payload"`
	Digest  string `db:"digest" json:"digest"`

	// Verified is false for rows written before digests existed.
	Verified bool `db:"-" json:"verified"`

	// View is decoded from Payload.
	View *view.View `db:"-" json:"view"`
}

var summaryColumns = []string{"id", "root_id", "source_tag", "schema_version", "actor_id", "actor_label", "created_at"}

// Create serializes v and inserts a new snapshot row attributed to a. q
// is normally the transaction that produced the view's state.
func Create(ctx context.Context, q store.Querier, gen ident.Generator, clk clock.Clock,
	rootID, sourceTag string, v *view.View, a actor.Actor) (string, error) {
	if !a.HasLabel() {
		return "", apperr.LabelRequired()
	}
	sourceTag = strings.TrimSpace(sourceTag)
	if sourceTag == "" {
		sourceTag = SourceManual
	}
	if v == nil {
		return "", fmt.Errorf("snapshot create: nil view")
	}

	createdAt := clock.Stamp(clk)
	payload, digest, err := ir.CanonicalSnapshot(ir.Object{
		"schema_version": ir.Int(ir.SnapshotSchemaVersion),
		"root_id":        ir.String(rootID),
		"source_tag":     ir.String(sourceTag),
		"created_at":     ir.String(createdAt),
		"view":           v.Value(),
	})
	if err != nil {
		return "", fmt.Errorf("snapshot create: %w", err)
	}

	d, err := catalog.Describe(ctx, q, Table)
	if err != nil {
		return "", err
	}
	id := gen.Generate()
	_, err = querysql.Exec(ctx, q, d, queryir.Insert{
		Table: Table,
		Values: []queryir.Assignment{
			{Column: "id", Value: id},
			{Column: "root_id", Value: rootID},
			{Column: "source_tag", Value: sourceTag},
			{Column: "schema_version", Value: int64(ir.SnapshotSchemaVersion)},
			{Column: "payload", Value: string(payload)},
			{Column: "digest", Value: digest},
			{Column: "actor_id", Value: a.ID},
			{Column: "actor_label", Value: a.LabelOrEmpty()},
			{Column: "created_at", Value: createdAt},
		},
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// List returns summaries for rootID, newest first (created_at, then id).
// The result is never nil.
func List(ctx context.Context, q store.Querier, rootID string) ([]Summary, error) {
	d, err := catalog.Describe(ctx, q, Table)
	if err != nil {
		return nil, err
	}
	sqlText, args, err := querysql.Compile(queryir.Select{
		From:    Table,
		Columns: summaryColumns,
		Filter:  queryir.Equals{Field: "root_id", Value: rootID},
		OrderBy: []queryir.Order{queryir.Desc("created_at"), queryir.Desc("id")},
	}, d)
	if err != nil {
		return nil, err
	}

	out := []Summary{}
	if err := sqlx.SelectContext(ctx, q, &out, sqlText, args...); err != nil {
		return nil, apperr.Storage("snapshot_list", err)
	}
	return out, nil
}

// Get returns one snapshot with its decoded view. It fails with NotFound
// when id is absent and with DigestMismatch when the stored payload no
// longer matches its digest.
func Get(ctx context.Context, q store.Querier, id string) (*Snapshot, error) {
	d, err := catalog.Describe(ctx, q, Table)
	if err != nil {
		return nil, err
	}
	sqlText, args, err := querysql.Compile(queryir.Select{
		From:    Table,
		Columns: append(append([]string{}, summaryColumns...), "payload", "digest"),
		Filter:  queryir.Equals{Field: "id", Value: id},
	}, d)
	if err != nil {
		return nil, err
	}

	var rows []Snapshot
	if err := sqlx.SelectContext(ctx, q, &rows, sqlText, args...); err != nil {
		return nil, apperr.Storage("snapshot_get", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("snapshot", id)
	}
	snap := rows[0]

	if snap.Digest != "" {
		if !ir.VerifySnapshotDigest([]byte(snap.Payload), snap.Digest) {
			return nil, apperr.DigestMismatch(id)
		}
		snap.Verified = true
	}

	var body struct {
		View view.View `json:"view"`
	}
	if err := json.Unmarshal([]byte(snap.Payload), &body); err != nil {
		return nil, apperr.Storage("snapshot_decode", fmt.Errorf("decode snapshot %s: %w", id, err))
	}
	snap.View = &body.View
	return &snap, nil
}
