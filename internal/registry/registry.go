// Package registry declares the entity tables, relationship edge tables and
// view layout the relationship reader and view assembler work from.
//
// The declarations live in registry.cue, embedded at build time and
// compiled with the CUE Go API on first use.
package registry

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed registry.cue
var registrySource []byte

// Role groups relations by what the view does with the ids they yield.
type Role string

const (
	RoleSubtype Role = "subtype"
	RoleContact Role = "contact"
	RoleProject Role = "project"
	RoleTask    Role = "task"
)

// Entity is a record table.
type Entity struct {
	Name     string `json:"-"`
	Table    string `json:"table"`
	IDColumn string `json:"id_column"`
}

// Relation is one many-to-many edge table between two entities. Direction
// (Left, Right) is storage only; lookups treat the edge as undirected.
type Relation struct {
	Name  string `json:"name"`
	Left  string `json:"left"`
	Right string `json:"right"`
	Table string `json:"table"`
	Role  Role   `json:"role"`
}

// Other returns the entity on the far side of the relation from entity, or
// "" if entity is on neither side.
func (r Relation) Other(entity string) string {
	switch entity {
	case r.Left:
		return r.Right
	case r.Right:
		return r.Left
	default:
		return ""
	}
}

// Touches reports whether entity is on either side of the relation.
func (r Relation) Touches(entity string) bool {
	return r.Left == entity || r.Right == entity
}

// Subtype maps a discriminator value on the root to a subtype relation.
type Subtype struct {
	Value    string `json:"value"`
	Relation string `json:"relation"`
	Section  string `json:"section"`
}

// Section is one block of view fields.
type Section struct {
	Name   string   `json:"name"`
	Entity string   `json:"entity"`
	Prefix string   `json:"prefix"`
	Repeat bool     `json:"repeat"`
	Fields []string `json:"fields"`
	Order  []string `json:"order"`
}

// Layout describes how the company view is assembled.
type Layout struct {
	Root          string            `json:"root"`
	Discriminator string            `json:"discriminator"`
	Subtypes      []Subtype         `json:"subtypes"`
	ArtifactLink  string            `json:"artifact_link"`
	Sections      []Section         `json:"sections"`
	Labels        map[string]string `json:"labels"`
}

// Registry is the compiled declaration set.
type Registry struct {
	Entities  map[string]Entity
	Relations []Relation
	Layout    Layout
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the embedded registry, compiling it once.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Compile(registrySource, "registry.cue")
	})
	return defaultReg, defaultErr
}

// MustDefault is Default for program start-up; it panics if the embedded
// declarations do not compile.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
	return r
}

type rawRegistry struct {
	Entities  map[string]Entity `json:"entities"`
	Relations []Relation        `json:"relations"`
	View      Layout            `json:"view"`
}

// Compile builds a Registry from CUE source. filename is used in error
// positions only.
func Compile(src []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var raw rawRegistry
	if err := v.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}

	reg := &Registry{
		Entities:  make(map[string]Entity, len(raw.Entities)),
		Relations: raw.Relations,
		Layout:    raw.View,
	}
	for name, e := range raw.Entities {
		e.Name = name
		reg.Entities[name] = e
	}
	if reg.Layout.Labels == nil {
		reg.Layout.Labels = map[string]string{}
	}

	if err := reg.check(v); err != nil {
		return nil, err
	}
	return reg, nil
}

// check enforces cross references CUE does not express: relation endpoints
// and section entities name declared entities, relation tables are unique,
// and subtypes point at subtype relations and declared sections.
func (r *Registry) check(v cue.Value) error {
	posOf := func(path string) token.Pos {
		return v.LookupPath(cue.ParsePath(path)).Pos()
	}

	seen := make(map[string]bool, len(r.Relations))
	for i, rel := range r.Relations {
		path := fmt.Sprintf("relations[%d]", i)
		for _, end := range []string{rel.Left, rel.Right} {
			if _, ok := r.Entities[end]; !ok {
				return &CompileError{Field: path, Message: fmt.Sprintf("unknown entity %q", end), Pos: posOf(path)}
			}
		}
		if seen[rel.Table] {
			return &CompileError{Field: path, Message: fmt.Sprintf("duplicate edge table %q", rel.Table), Pos: posOf(path)}
		}
		seen[rel.Table] = true
	}

	if _, ok := r.Entities[r.Layout.Root]; !ok {
		return &CompileError{Field: "view.root", Message: fmt.Sprintf("unknown entity %q", r.Layout.Root), Pos: posOf("view.root")}
	}

	sections := make(map[string]bool, len(r.Layout.Sections))
	for i, s := range r.Layout.Sections {
		path := fmt.Sprintf("view.sections[%d]", i)
		if _, ok := r.Entities[s.Entity]; !ok {
			return &CompileError{Field: path, Message: fmt.Sprintf("unknown entity %q", s.Entity), Pos: posOf(path)}
		}
		if sections[s.Name] {
			return &CompileError{Field: path, Message: fmt.Sprintf("duplicate section %q", s.Name), Pos: posOf(path)}
		}
		sections[s.Name] = true
	}

	for i, st := range r.Layout.Subtypes {
		path := fmt.Sprintf("view.subtypes[%d]", i)
		rel, ok := r.RelationByTable(st.Relation)
		if !ok || rel.Role != RoleSubtype {
			return &CompileError{Field: path, Message: fmt.Sprintf("%q is not a subtype relation", st.Relation), Pos: posOf(path)}
		}
		if !sections[st.Section] {
			return &CompileError{Field: path, Message: fmt.Sprintf("unknown section %q", st.Section), Pos: posOf(path)}
		}
	}
	return nil
}

// RelationByTable returns the relation stored in table.
func (r *Registry) RelationByTable(table string) (Relation, bool) {
	for _, rel := range r.Relations {
		if rel.Table == table {
			return rel, true
		}
	}
	return Relation{}, false
}

// ByRole returns the relations with role that touch entity, in declaration
// order.
func (r *Registry) ByRole(role Role, entity string) []Relation {
	var out []Relation
	for _, rel := range r.Relations {
		if rel.Role == role && rel.Touches(entity) {
			out = append(out, rel)
		}
	}
	return out
}

// Subtype returns the subtype entry for a discriminator value.
func (r *Registry) Subtype(value string) (Subtype, bool) {
	for _, st := range r.Layout.Subtypes {
		if st.Value == value {
			return st, true
		}
	}
	return Subtype{}, false
}

// Section returns the named section.
func (r *Registry) Section(name string) (Section, bool) {
	for _, s := range r.Layout.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// SectionFor returns the first section showing entity.
func (r *Registry) SectionFor(entity string) (Section, bool) {
	for _, s := range r.Layout.Sections {
		if s.Entity == entity {
			return s, true
		}
	}
	return Section{}, false
}

// Label returns the display label for a column: the declared override, or
// the column name with underscores as spaces.
func (r *Registry) Label(column string) string {
	if l, ok := r.Layout.Labels[column]; ok {
		return l
	}
	return strings.ReplaceAll(column, "_", " ")
}

// CompileError is a registry declaration problem with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
