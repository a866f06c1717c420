// Package graph reads relationship edge tables around a root id.
//
// Every edge table is treated as undirected: a root is matched against
// both from_id and to_id, and the opposite column is returned. Edges are
// read-only here.
package graph

import (
	"context"
	"fmt"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/querysql"
	"github.com/roach88/dealbook/internal/registry"
	"github.com/roach88/dealbook/internal/store"
)

// Edge columns.
const (
	FromColumn = "from_id"
	ToColumn   = "to_id"
)

// Group is the ids one relation yields for a root.
type Group struct {
	Relation registry.Relation
	// Present is false when the edge table does not exist in the store.
	Present bool
	IDs     []string
}

// RelatedIDs returns the ids linked to rootID through any of relations.
//
// Relations are visited in the given order; within one relation, ids found
// through from_id come first, each direction ordered by id. Duplicates keep
// their first position, and rootID itself is never returned. Relations
// whose table is missing are skipped. The result is never nil.
func RelatedIDs(ctx context.Context, q store.Querier, rootID string, relations []registry.Relation) ([]string, error) {
	groups, err := ByRelation(ctx, q, rootID, relations)
	if err != nil {
		return nil, err
	}

	out := []string{}
	seen := map[string]bool{rootID: true}
	for _, g := range groups {
		for _, id := range g.IDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// RelatedIDsByTable is RelatedIDs over raw edge table names. Every name
// must be a registered relation table; anything else is an UnknownTable
// schema error, so callers cannot point the reader at arbitrary tables.
func RelatedIDsByTable(ctx context.Context, q store.Querier, reg *registry.Registry, rootID string, tables []string) ([]string, error) {
	relations := make([]registry.Relation, 0, len(tables))
	for _, t := range tables {
		rel, ok := reg.RelationByTable(t)
		if !ok {
			return nil, apperr.UnknownTable(t)
		}
		relations = append(relations, rel)
	}
	return RelatedIDs(ctx, q, rootID, relations)
}

// ByRelation returns one Group per relation, in order. IDs within a group
// are de-duplicated and exclude rootID, but may repeat across groups.
func ByRelation(ctx context.Context, q store.Querier, rootID string, relations []registry.Relation) ([]Group, error) {
	groups := make([]Group, 0, len(relations))
	for _, rel := range relations {
		g := Group{Relation: rel, IDs: []string{}}

		exists, err := catalog.TableExists(ctx, q, rel.Table)
		if err != nil {
			return nil, err
		}
		if !exists {
			groups = append(groups, g)
			continue
		}
		g.Present = true

		d, err := catalog.Describe(ctx, q, rel.Table)
		if err != nil {
			return nil, err
		}

		seen := map[string]bool{rootID: true}
		for _, dir := range [][2]string{{FromColumn, ToColumn}, {ToColumn, FromColumn}} {
			ids, err := lookup(ctx, q, d, dir[0], dir[1], rootID)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					g.IDs = append(g.IDs, id)
				}
			}
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// lookup selects other where match = rootID, ordered by other.
func lookup(ctx context.Context, q store.Querier, d *catalog.Descriptor, match, other, rootID string) ([]string, error) {
	rows, err := querysql.RowsWith(ctx, q, d, queryir.Select{
		From:    d.Table,
		Columns: []string{other},
		Filter:  queryir.Equals{Field: match, Value: rootID},
		OrderBy: []queryir.Order{queryir.Asc(other)},
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		switch v := r[other].(type) {
		case string:
			ids = append(ids, v)
		case nil:
		default:
			ids = append(ids, fmt.Sprint(v))
		}
	}
	return ids, nil
}
