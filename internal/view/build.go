package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/coerce"
	"github.com/roach88/dealbook/internal/graph"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/querysql"
	"github.com/roach88/dealbook/internal/registry"
	"github.com/roach88/dealbook/internal/store"
)

// Builder assembles views from a registry layout.
type Builder struct {
	reg *registry.Registry
}

// NewBuilder returns a Builder over reg.
func NewBuilder(reg *registry.Registry) *Builder {
	return &Builder{reg: reg}
}

// record is a loaded row plus what is needed to target its fields.
type record struct {
	entity registry.Entity
	desc   *catalog.Descriptor
	id     string
	values map[string]string
}

// related is the records one section shows.
type related struct {
	section registry.Section
	records []record
}

// Build assembles the view for rootID. It fails with NotFound when the
// root record does not exist.
//
// q may be a transaction; the mutation applier builds the post-edit view
// on its own transaction so the snapshot sees uncommitted edits.
func (b *Builder) Build(ctx context.Context, q store.Querier, rootID string) (*View, error) {
	layout := b.reg.Layout
	rootEntity := b.reg.Entities[layout.Root]

	roots, err := b.load(ctx, q, rootEntity, []string{rootID}, nil)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, apperr.NotFound("record", rootID)
	}
	root := roots[0]

	// Subtype: at most one record picked by the discriminator.
	var (
		subtype        *record
		subtypeSection string
	)
	if st, ok := b.reg.Subtype(strings.TrimSpace(root.values[layout.Discriminator])); ok {
		rel, _ := b.reg.RelationByTable(st.Relation)
		recs, err := b.relatedRecords(ctx, q, rootID, []registry.Relation{rel}, b.reg.Entities[rel.Other(layout.Root)], nil)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			subtype = &recs[0]
			subtypeSection = st.Section
		}
	}

	var (
		primary *record
		lists   []related
	)
	for _, role := range []registry.Role{registry.RoleContact, registry.RoleProject, registry.RoleTask} {
		rels := b.reg.ByRole(role, layout.Root)
		if len(rels) == 0 {
			continue
		}
		entity := b.reg.Entities[rels[0].Other(layout.Root)]
		sec, ok := b.reg.SectionFor(entity.Name)
		if !ok {
			continue
		}
		recs, err := b.relatedRecords(ctx, q, rootID, rels, entity, sec.Order)
		if err != nil {
			return nil, err
		}
		if sec.Repeat {
			lists = append(lists, related{section: sec, records: recs})
		} else if len(recs) > 0 {
			primary = &recs[0]
		}
	}

	artifacts, err := b.artifacts(ctx, q, rootID, subtype)
	if err != nil {
		return nil, err
	}
	if artifacts != nil {
		lists = append(lists, *artifacts)
	}

	v := &View{
		Root:   root.values,
		Fields: []Field{},
		Rows:   []map[string]string{},
	}

	// Fields, in layout order.
	for _, sec := range layout.Sections {
		switch {
		case sec.Entity == layout.Root:
			v.Fields = append(v.Fields, b.fields(sec, sec.Name, sec.Prefix, root)...)
		case b.isSubtypeSection(sec.Name):
			if subtype != nil && sec.Name == subtypeSection {
				v.Fields = append(v.Fields, b.fields(sec, sec.Name, sec.Prefix, *subtype)...)
			}
		case !sec.Repeat:
			if primary != nil && primary.entity.Name == sec.Entity {
				v.Fields = append(v.Fields, b.fields(sec, sec.Name, sec.Prefix, *primary)...)
			}
		default:
			for _, l := range lists {
				if l.section.Name != sec.Name {
					continue
				}
				for i, rec := range l.records {
					n := itoa(i + 1)
					v.Fields = append(v.Fields, b.fields(sec, sec.Name+" "+n, sec.Prefix+"."+n, rec)...)
				}
			}
		}
	}
	v.Fields = append(v.Fields, summary(primary, lists)...)

	// Rows: zip the repeat lists, repeating root, subtype and contact.
	base := map[string]string{}
	b.project(base, b.sectionFor(layout.Root), &root)
	if subtype != nil {
		sec, _ := b.reg.Section(subtypeSection)
		b.project(base, sec, subtype)
	}
	if primary != nil {
		sec, _ := b.reg.SectionFor(primary.entity.Name)
		b.project(base, sec, primary)
	}

	longest := 0
	for _, l := range lists {
		longest = max(longest, len(l.records))
	}
	for i := 0; i < longest; i++ {
		row := make(map[string]string, len(base)+len(lists)*6)
		for k, val := range base {
			row[k] = val
		}
		for _, l := range lists {
			if i < len(l.records) {
				b.project(row, l.section, &l.records[i])
			} else {
				b.project(row, l.section, nil)
			}
		}
		v.Rows = append(v.Rows, row)
	}

	return v, nil
}

func (b *Builder) isSubtypeSection(name string) bool {
	for _, st := range b.reg.Layout.Subtypes {
		if st.Section == name {
			return true
		}
	}
	return false
}

func (b *Builder) sectionFor(entity string) registry.Section {
	sec, _ := b.reg.SectionFor(entity)
	return sec
}

// fields emits one editable Field per layout column present in the table.
func (b *Builder) fields(sec registry.Section, name, prefix string, rec record) []Field {
	out := make([]Field, 0, len(sec.Fields))
	for _, col := range sec.Fields {
		if !rec.desc.HasColumn(col) {
			continue
		}
		out = append(out, Field{
			Key:      prefix + "." + col,
			Section:  name,
			Label:    b.reg.Label(col),
			Value:    rec.values[col],
			Editable: true,
			Target: &Target{
				Table:    rec.entity.Table,
				RecordID: rec.id,
				Field:    col,
				IDColumn: rec.entity.IDColumn,
			},
		})
	}
	return out
}

// project writes <prefix>.<column> keys for the section's id column and
// layout fields. A nil record writes empty placeholders, so every row has
// the same keys.
func (b *Builder) project(row map[string]string, sec registry.Section, rec *record) {
	entity := b.reg.Entities[sec.Entity]
	cols := append([]string{entity.IDColumn}, sec.Fields...)
	for _, col := range cols {
		val := ""
		if rec != nil {
			val = rec.values[col]
		}
		row[sec.Prefix+"."+col] = val
	}
}

func summary(primary *record, lists []related) []Field {
	count := func(section string) int {
		for _, l := range lists {
			if l.section.Name == section {
				return len(l.records)
			}
		}
		return 0
	}
	contacts := "0"
	if primary != nil {
		contacts = "1"
	}
	entries := []struct{ key, label, value string }{
		{"summary.primary_contact", "Primary Contact Set", contacts},
		{"summary.projects", "Projects", itoa(count("Project"))},
		{"summary.tasks", "Tasks", itoa(count("Task"))},
		{"summary.artifacts", "Artifacts", itoa(count("Artifact"))},
	}
	out := make([]Field, len(entries))
	for i, e := range entries {
		out[i] = Field{Key: e.key, Section: SummarySection, Label: e.label, Value: e.value}
	}
	return out
}

// relatedRecords loads the entity rows linked to rootID through rels.
// A missing entity table yields no records.
func (b *Builder) relatedRecords(ctx context.Context, q store.Querier, rootID string, rels []registry.Relation, entity registry.Entity, order []string) ([]record, error) {
	exists, err := catalog.TableExists(ctx, q, entity.Table)
	if err != nil || !exists {
		return nil, err
	}
	ids, err := graph.RelatedIDs(ctx, q, rootID, rels)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return b.load(ctx, q, entity, ids, order)
}

// artifacts loads the artifacts linked to the root or the subtype record.
func (b *Builder) artifacts(ctx context.Context, q store.Querier, rootID string, subtype *record) (*related, error) {
	sec, ok := b.reg.Section("Artifact")
	if !ok {
		return nil, nil
	}
	entity := b.reg.Entities[sec.Entity]
	exists, err := catalog.TableExists(ctx, q, entity.Table)
	if err != nil || !exists {
		return nil, err
	}
	d, err := catalog.Describe(ctx, q, entity.Table)
	if err != nil {
		return nil, err
	}
	link := b.reg.Layout.ArtifactLink
	if !d.HasColumn(link) {
		return &related{section: sec}, nil
	}

	owners := []any{rootID}
	if subtype != nil {
		owners = append(owners, subtype.id)
	}
	recs, err := b.query(ctx, q, entity, d, queryir.In{Field: link, Values: owners}, sec.Order)
	if err != nil {
		return nil, err
	}
	return &related{section: sec, records: recs}, nil
}

// load returns entity rows whose id is in ids, in order (empty values
// last) then id.
func (b *Builder) load(ctx context.Context, q store.Querier, entity registry.Entity, ids []string, order []string) ([]record, error) {
	d, err := catalog.Describe(ctx, q, entity.Table)
	if err != nil {
		return nil, err
	}
	if !d.HasColumn(entity.IDColumn) {
		return nil, apperr.UnknownIDColumn(entity.Table, entity.IDColumn)
	}
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return b.query(ctx, q, entity, d, queryir.In{Field: entity.IDColumn, Values: values}, order)
}

func (b *Builder) query(ctx context.Context, q store.Querier, entity registry.Entity, d *catalog.Descriptor, filter queryir.Predicate, order []string) ([]record, error) {
	terms := make([]queryir.Order, 0, len(order)+1)
	for _, col := range order {
		if d.HasColumn(col) {
			terms = append(terms, queryir.AscEmptyLast(col))
		}
	}
	if d.HasColumn(entity.IDColumn) {
		terms = append(terms, queryir.Asc(entity.IDColumn))
	}

	rows, err := querysql.RowsWith(ctx, q, d, queryir.Select{
		From:    d.Table,
		Filter:  filter,
		OrderBy: terms,
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", entity.Table, err)
	}

	recs := make([]record, len(rows))
	for i, r := range rows {
		values := make(map[string]string, len(r))
		for col, raw := range r {
			if s := coerce.Stringify(raw); s != nil {
				values[col] = *s
			} else {
				values[col] = ""
			}
		}
		recs[i] = record{entity: entity, desc: d, id: values[entity.IDColumn], values: values}
	}
	return recs, nil
}
