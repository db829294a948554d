package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
)

type model interface {
	TableName() string
}

func addModel[T model](expected map[string][]string) error {
	var zero T
	cols, err := orm.ColumnsOf[T]()
	if err != nil {
		return fmt.Errorf("model for %s: %w", zero.TableName(), err)
	}
	expected[zero.TableName()] = cols
	return nil
}

// ExpectedSchema maps every table the store reads or writes to the columns
// its model maps.
func ExpectedSchema() (map[string][]string, error) {
	expected := make(map[string][]string)
	err := errors.Join(
		addModel[models.User](expected),
		addModel[models.Task](expected),
		addModel[models.TaskAssignee](expected),
		addModel[models.TaskTag](expected),
		addModel[models.Category](expected),
		addModel[models.Tag](expected),
		addModel[models.Comment](expected),
		addModel[models.CommentMention](expected),
		addModel[models.Notification](expected),
		addModel[models.TaskHistory](expected),
		addModel[models.DailyTaskStats](expected),
		addModel[models.TeamStats](expected),
	)
	if err != nil {
		return nil, err
	}
	return expected, nil
}

// Report is the outcome of comparing the live schema with the models.
type Report struct {
	Changes     []schema.Change
	Destructive []string
}

// OK is true when the live schema needs no changes.
func (r *Report) OK() bool {
	return len(r.Changes) == 0
}

func (r *Report) Describe() []string {
	out := make([]string, 0, len(r.Changes))
	for _, c := range r.Changes {
		out = append(out, DescribeChange(c))
		if mod, ok := c.(*schema.ModifyTable); ok {
			for _, sub := range mod.Changes {
				out = append(out, "  "+DescribeChange(sub))
			}
		}
	}
	return out
}

// Verify inspects the connected schema with atlas and reports the changes
// needed to match the models.
func Verify(ctx context.Context, db *sql.DB, schemaName string) (*Report, error) {
	drv, err := postgres.Open(db)
	if err != nil {
		return nil, fmt.Errorf("failed to open atlas driver: %w", err)
	}
	live, err := drv.InspectSchema(ctx, schemaName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}

	expected, err := ExpectedSchema()
	if err != nil {
		return nil, err
	}
	changes := Diff(expected, live)
	_, descriptions := CountDestructiveChanges(changes)
	return &Report{Changes: changes, Destructive: descriptions}, nil
}

// Diff lists the changes that would bring live in line with expected.
// Tables outside expected are ignored; unmapped columns on mapped tables
// are reported as drops.
func Diff(expected map[string][]string, live *schema.Schema) []schema.Change {
	tables := make([]string, 0, len(expected))
	for name := range expected {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	var changes []schema.Change
	for _, name := range tables {
		cols := expected[name]
		t, ok := live.Table(name)
		if !ok {
			nt := schema.NewTable(name)
			for _, c := range cols {
				nt.AddColumns(schema.NewColumn(c))
			}
			changes = append(changes, &schema.AddTable{T: nt})
			continue
		}

		var sub []schema.Change
		want := make(map[string]bool, len(cols))
		for _, c := range cols {
			want[c] = true
			if _, ok := t.Column(c); !ok {
				sub = append(sub, &schema.AddColumn{C: schema.NewColumn(c)})
			}
		}
		for _, c := range t.Columns {
			if !want[c.Name] {
				sub = append(sub, &schema.DropColumn{C: c})
			}
		}
		if len(sub) > 0 {
			changes = append(changes, &schema.ModifyTable{T: t, Changes: sub})
		}
	}
	return changes
}

func IsDestructiveChange(change schema.Change) bool {
	switch c := change.(type) {
	case *schema.DropTable, *schema.DropColumn, *schema.DropIndex, *schema.DropForeignKey:
		return true
	case *schema.ModifyTable:
		for _, sub := range c.Changes {
			if IsDestructiveChange(sub) {
				return true
			}
		}
	}
	return false
}

func DescribeChange(change schema.Change) string {
	switch c := change.(type) {
	case *schema.AddTable:
		return fmt.Sprintf("Create table %s", c.T.Name)
	case *schema.DropTable:
		return fmt.Sprintf("Drop table %s", c.T.Name)
	case *schema.ModifyTable:
		return fmt.Sprintf("Modify table %s (%d changes)", c.T.Name, len(c.Changes))
	case *schema.AddColumn:
		return fmt.Sprintf("Add column %s", c.C.Name)
	case *schema.DropColumn:
		return fmt.Sprintf("Drop column %s", c.C.Name)
	default:
		return fmt.Sprintf("Change type %T", change)
	}
}

func CountDestructiveChanges(changes []schema.Change) (count int, descriptions []string) {
	for _, change := range changes {
		if IsDestructiveChange(change) {
			count++
			descriptions = append(descriptions, DescribeChange(change))
		}
	}
	return count, descriptions
}
