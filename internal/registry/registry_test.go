package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCompiles(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	assert.Len(t, reg.Entities, 7)
	assert.Equal(t, "artifact_id", reg.Entities["Artifacts"].IDColumn)
	assert.Equal(t, "id", reg.Entities["Companies"].IDColumn)
	assert.Equal(t, "Companies", reg.Entities["Companies"].Name)

	require.Len(t, reg.Relations, 9)
	assert.Equal(t, "Contacts_Companies_founders", reg.Relations[0].Table)
	assert.Equal(t, RoleContact, reg.Relations[0].Role)
}

func TestDefaultIsShared(t *testing.T) {
	a := MustDefault()
	b := MustDefault()
	assert.Same(t, a, b)
}

func TestByRole(t *testing.T) {
	reg := MustDefault()

	tables := func(rels []Relation) []string {
		out := make([]string, len(rels))
		for i, r := range rels {
			out[i] = r.Table
		}
		return out
	}

	assert.Equal(t, []string{
		"Contacts_Companies_founders",
		"Contacts_Companies_related_contacts",
		"Companies_Contacts_current_company",
	}, tables(reg.ByRole(RoleContact, "Companies")))
	assert.Equal(t, []string{
		"Companies_Tasks_tasks",
		"Tasks_Companies_related_companies",
	}, tables(reg.ByRole(RoleTask, "Companies")))
	assert.Empty(t, reg.ByRole(RoleTask, "Funds"))
}

func TestRelationOther(t *testing.T) {
	rel, ok := MustDefault().RelationByTable("Projects_Companies_related_companies")
	require.True(t, ok)

	assert.Equal(t, "Projects", rel.Other("Companies"))
	assert.Equal(t, "Companies", rel.Other("Projects"))
	assert.Equal(t, "", rel.Other("Tasks"))
}

func TestLayout(t *testing.T) {
	reg := MustDefault()

	assert.Equal(t, "Companies", reg.Layout.Root)
	assert.Equal(t, "Company_Type", reg.Layout.Discriminator)

	st, ok := reg.Subtype("Startup")
	require.True(t, ok)
	assert.Equal(t, "Companies_Opportunities_has_rounds", st.Relation)
	assert.Equal(t, "Round", st.Section)

	_, ok = reg.Subtype("Other")
	assert.False(t, ok)

	sec, ok := reg.Section("Task")
	require.True(t, ok)
	assert.True(t, sec.Repeat)
	assert.Equal(t, "task", sec.Prefix)

	sec, ok = reg.SectionFor("Contacts")
	require.True(t, ok)
	assert.Equal(t, "Primary Contact", sec.Name)
	assert.False(t, sec.Repeat)
}

func TestLabel(t *testing.T) {
	reg := MustDefault()
	assert.Equal(t, "Company Name", reg.Label("Company_Name"))
	assert.Equal(t, "Headcount", reg.Label("Pax"))
}

func TestCompile_UnknownEntity(t *testing.T) {
	src := []byte(`
entities: Companies: {table: "Companies", id_column: "id"}
relations: [{name: "x", left: "Companies", right: "Ghosts", table: "Companies_Ghosts_x", role: "task"}]
view: {
	root: "Companies"
	discriminator: "Company_Type"
	subtypes: []
	artifact_link: "opportunity_id"
	sections: []
	labels: {}
}
`)
	_, err := Compile(src, "bad.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "relations[0]", ce.Field)
	assert.Contains(t, ce.Message, "Ghosts")
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile([]byte(`entities: {`), "broken.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
}

func TestCompile_IncompleteValue(t *testing.T) {
	src := []byte(`
entities: Companies: {table: string, id_column: "id"}
relations: []
view: {root: "Companies", discriminator: "x", subtypes: [], artifact_link: "y", sections: [], labels: {}}
`)
	_, err := Compile(src, "incomplete.cue")
	assert.Error(t, err)
}
