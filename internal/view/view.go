// Package view assembles the denormalized company view: a flat list of
// labeled, editable fields grouped into sections, and a row projection that
// zips the company's related projects, tasks and artifacts.
//
// Views are recomputed on every request and are deterministic for
// unchanged data. They are persisted only inside snapshot payloads.
package view

import (
	"strconv"

	"github.com/roach88/dealbook/internal/ir"
)

// SummarySection holds derived, read-only counts.
const SummarySection = "Summary"

// Target is the single record field an editable view field maps to.
type Target struct {
	Table    string `json:"table"`
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
	IDColumn string `json:"id_column"`
}

// Field is one labeled value. Target is set exactly when Editable is true.
type Field struct {
	Key      string  `json:"key"`
	Section  string  `json:"section"`
	Label    string  `json:"label"`
	Value    string  `json:"value"`
	Editable bool    `json:"editable"`
	Target   *Target `json:"target"`
}

// View is the assembled result for one root.
type View struct {
	// Root is every column of the root record, stringified ("" for NULL).
	Root   map[string]string   `json:"root"`
	Fields []Field             `json:"fields"`
	Rows   []map[string]string `json:"rows"`
}

// Field returns the field with key.
func (v *View) Field(key string) (Field, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Sections returns section names in first-appearance order.
func (v *View) Sections() []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range v.Fields {
		if !seen[f.Section] {
			seen[f.Section] = true
			out = append(out, f.Section)
		}
	}
	return out
}

// Value converts the view to the canonical value tree stored in snapshot
// payloads.
func (v *View) Value() ir.Object {
	fields := make(ir.Array, len(v.Fields))
	for i, f := range v.Fields {
		obj := ir.Object{
			"key":      ir.String(f.Key),
			"section":  ir.String(f.Section),
			"label":    ir.String(f.Label),
			"value":    ir.String(f.Value),
			"editable": ir.Bool(f.Editable),
			"target":   ir.Null{},
		}
		if f.Target != nil {
			obj["target"] = ir.Object{
				"table":     ir.String(f.Target.Table),
				"record_id": ir.String(f.Target.RecordID),
				"field":     ir.String(f.Target.Field),
				"id_column": ir.String(f.Target.IDColumn),
			}
		}
		fields[i] = obj
	}

	rows := make(ir.Array, len(v.Rows))
	for i, r := range v.Rows {
		rows[i] = ir.StringMap(r)
	}

	return ir.Object{
		"root":   ir.StringMap(v.Root),
		"fields": fields,
		"rows":   rows,
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
