// Package actor maintains the single local user identity that audited
// writes are attributed to.
package actor

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/ident"
	"github.com/roach88/dealbook/internal/store"
)

// Settings keys in app_settings.
const (
	KeyID    = "actor.id"
	KeyLabel = "actor.label"
)

// Actor is the local identity. Label stays nil until the user sets it.
type Actor struct {
	ID    string  `json:"id" yaml:"id"`
	Label *string `json:"label" yaml:"label"`
}

// HasLabel reports whether a non-empty label is set.
func (a Actor) HasLabel() bool {
	return a.Label != nil && strings.TrimSpace(*a.Label) != ""
}

// LabelOrEmpty returns the label, or "" when unset.
func (a Actor) LabelOrEmpty() string {
	if a.Label == nil {
		return ""
	}
	return *a.Label
}

// Ensure returns the actor, creating its id on first use.
func Ensure(ctx context.Context, q store.Querier, gen ident.Generator) (Actor, error) {
	a, found, err := load(ctx, q)
	if err != nil {
		return Actor{}, err
	}
	if found {
		return a, nil
	}

	// INSERT OR IGNORE keeps an id written by a concurrent first access.
	_, err = q.ExecContext(ctx,
		`INSERT OR IGNORE INTO app_settings (key, value) VALUES (?, ?)`,
		KeyID, gen.Generate())
	if err != nil {
		return Actor{}, apperr.Storage("actor_create", err)
	}

	a, _, err = load(ctx, q)
	return a, err
}

// Require returns the actor, failing with LabelRequired when labelRequired
// is set and no label has been stored.
func Require(ctx context.Context, q store.Querier, gen ident.Generator, labelRequired bool) (Actor, error) {
	a, err := Ensure(ctx, q, gen)
	if err != nil {
		return Actor{}, err
	}
	if labelRequired && !a.HasLabel() {
		return Actor{}, apperr.LabelRequired()
	}
	return a, nil
}

// SetLabel stores a trimmed display label, failing with EmptyLabel when
// text is blank.
func SetLabel(ctx context.Context, q store.Querier, gen ident.Generator, text string) (Actor, error) {
	label := strings.TrimSpace(text)
	if label == "" {
		return Actor{}, apperr.EmptyLabel()
	}

	a, err := Ensure(ctx, q, gen)
	if err != nil {
		return Actor{}, err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO app_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, KeyLabel, label)
	if err != nil {
		return Actor{}, apperr.Storage("actor_set_label", err)
	}

	a.Label = &label
	return a, nil
}

type settingRow struct {
	Key   string         `db:"key"`
	Value sql.NullString `db:"value"`
}

func load(ctx context.Context, q store.Querier) (Actor, bool, error) {
	var rows []settingRow
	err := sqlx.SelectContext(ctx, q, &rows,
		`SELECT key, value FROM app_settings WHERE key IN (?, ?) ORDER BY key`,
		KeyID, KeyLabel)
	if err != nil {
		return Actor{}, false, apperr.Storage("actor_load", err)
	}

	var a Actor
	found := false
	for _, r := range rows {
		switch r.Key {
		case KeyID:
			if r.Value.Valid && r.Value.String != "" {
				a.ID = r.Value.String
				found = true
			}
		case KeyLabel:
			if r.Value.Valid && r.Value.String != "" {
				label := r.Value.String
				a.Label = &label
			}
		}
	}
	return a, found, nil
}
