package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

// Repository provides typed CRUD over one table. T is a struct whose
// db-tagged fields are the table's columns.
type Repository[T any] struct {
	db    *DB
	table string
	meta  *metadata
	err   error
}

func NewRepository[T any](db *DB, table string) *Repository[T] {
	meta, err := metadataFor[T]()
	return &Repository[T]{db: db, table: table, meta: meta, err: err}
}

func (r *Repository[T]) TableName() string {
	return r.table
}

func (r *Repository[T]) Columns() []string {
	if r.meta == nil {
		return nil
	}
	return r.meta.columns
}

// Insert writes every mapped column of record.
func (r *Repository[T]) Insert(ctx context.Context, record *T) error {
	if r.err != nil {
		return r.err
	}
	stmt := Statement().Insert(r.table).
		Columns(r.meta.columns...).
		Values(r.meta.values(record, r.meta.columns)...)
	_, err := r.db.Exec(ctx, OpCreate, r.table, stmt)
	return err
}

// InsertIgnore inserts record unless it collides on conflictColumns. The
// result reports whether a row was written.
func (r *Repository[T]) InsertIgnore(ctx context.Context, record *T, conflictColumns ...string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	suffix := "ON CONFLICT DO NOTHING"
	if len(conflictColumns) > 0 {
		suffix = fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(conflictColumns, ", "))
	}
	stmt := Statement().Insert(r.table).
		Columns(r.meta.columns...).
		Values(r.meta.values(record, r.meta.columns)...).
		Suffix(suffix)
	n, err := r.db.Exec(ctx, OpCreate, r.table, stmt)
	return n > 0, err
}

// UpsertOptions configures ON CONFLICT behaviour.
type UpsertOptions struct {
	ConflictColumns []string
	// UpdateColumns defaults to every column that is not a conflict column
	// or in Preserve.
	UpdateColumns []string
	Preserve      []string
}

func (r *Repository[T]) Upsert(ctx context.Context, record *T, opts UpsertOptions) error {
	if r.err != nil {
		return r.err
	}
	if len(opts.ConflictColumns) == 0 {
		return fmt.Errorf("orm: upsert on %s requires conflict columns", r.table)
	}

	update := opts.UpdateColumns
	if len(update) == 0 {
		skip := make(map[string]bool)
		for _, c := range opts.ConflictColumns {
			skip[c] = true
		}
		for _, c := range opts.Preserve {
			skip[c] = true
		}
		for _, c := range r.meta.columns {
			if !skip[c] {
				update = append(update, c)
			}
		}
	}

	sets := make([]string, len(update))
	for i, c := range update {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}

	stmt := Statement().Insert(r.table).
		Columns(r.meta.columns...).
		Values(r.meta.values(record, r.meta.columns)...).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(opts.ConflictColumns, ", "), strings.Join(sets, ", ")))
	_, err := r.db.Exec(ctx, OpUpsert, r.table, stmt)
	return err
}

// Save updates the given columns of record, matched on keyColumn. With no
// columns every mapped column except the key is written.
func (r *Repository[T]) Save(ctx context.Context, record *T, keyColumn string, columns ...string) error {
	if r.err != nil {
		return r.err
	}
	if len(columns) == 0 {
		for _, c := range r.meta.columns {
			if c != keyColumn {
				columns = append(columns, c)
			}
		}
	}
	for _, c := range columns {
		if !r.meta.has(c) {
			return fmt.Errorf("orm: unknown column %s on %s", c, r.table)
		}
	}

	values := r.meta.values(record, append(append([]string{}, columns...), keyColumn))
	stmt := Statement().Update(r.table)
	for i, c := range columns {
		stmt = stmt.Set(c, values[i])
	}
	stmt = stmt.Where(squirrel.Eq{keyColumn: values[len(values)-1]})

	n, err := r.db.Exec(ctx, OpUpdate, r.table, stmt)
	if err != nil {
		return err
	}
	if n == 0 {
		return &Error{Op: string(OpUpdate), Table: r.table, Err: ErrNotFound}
	}
	return nil
}

// UpdateWhere applies set to every row matching cond.
func (r *Repository[T]) UpdateWhere(ctx context.Context, set map[string]interface{}, cond Condition) (int64, error) {
	stmt := Statement().Update(r.table).SetMap(set).Where(cond.ToSqlizer())
	return r.db.Exec(ctx, OpUpdate, r.table, stmt)
}

// DeleteWhere removes every row matching cond.
func (r *Repository[T]) DeleteWhere(ctx context.Context, cond Condition) (int64, error) {
	stmt := Statement().Delete(r.table).Where(cond.ToSqlizer())
	return r.db.Exec(ctx, OpDelete, r.table, stmt)
}
