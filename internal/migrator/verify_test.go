package migrator

import (
	"testing"

	"ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	live := schema.New("public").AddTables(
		schema.NewTable("users").AddColumns(
			schema.NewColumn("id"),
			schema.NewColumn("email"),
			schema.NewColumn("legacy_flag"),
		),
		schema.NewTable("unrelated").AddColumns(schema.NewColumn("id")),
	)
	expected := map[string][]string{
		"users": {"id", "email", "role"},
		"tasks": {"id", "title"},
	}

	changes := Diff(expected, live)
	require.Len(t, changes, 2)

	add, ok := changes[0].(*schema.AddTable)
	require.True(t, ok)
	assert.Equal(t, "tasks", add.T.Name)
	assert.Len(t, add.T.Columns, 2)

	mod, ok := changes[1].(*schema.ModifyTable)
	require.True(t, ok)
	assert.Equal(t, "users", mod.T.Name)
	require.Len(t, mod.Changes, 2)
	assert.IsType(t, &schema.AddColumn{}, mod.Changes[0])
	assert.IsType(t, &schema.DropColumn{}, mod.Changes[1])

	assert.False(t, IsDestructiveChange(changes[0]))
	assert.True(t, IsDestructiveChange(changes[1]))

	count, descriptions := CountDestructiveChanges(changes)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"Modify table users (2 changes)"}, descriptions)

	report := &Report{Changes: changes}
	assert.False(t, report.OK())
	assert.Equal(t, []string{
		"Create table tasks",
		"Modify table users (2 changes)",
		"  Add column role",
		"  Drop column legacy_flag",
	}, report.Describe())
}

func TestDiffInSync(t *testing.T) {
	live := schema.New("public").AddTables(
		schema.NewTable("tags").AddColumns(schema.NewColumn("id"), schema.NewColumn("name")),
	)
	changes := Diff(map[string][]string{"tags": {"id", "name"}}, live)
	assert.Empty(t, changes)
	assert.True(t, (&Report{Changes: changes}).OK())
}
