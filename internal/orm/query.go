package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

// Query is a fluent SELECT builder bound to a repository.
type Query[T any] struct {
	repo    *Repository[T]
	ctx     context.Context
	err     error
	where   squirrel.And
	orderBy []string
	limit   *uint64
	offset  *uint64
	lock    bool
}

func (r *Repository[T]) Query(ctx context.Context) *Query[T] {
	return &Query[T]{
		repo:  r,
		ctx:   ctx,
		err:   r.err,
		where: squirrel.And{},
	}
}

func (q *Query[T]) Where(condition Condition) *Query[T] {
	if q.err != nil {
		return q
	}
	q.where = append(q.where, condition.ToSqlizer())
	return q
}

// OrderBy accepts raw expressions ("due_date DESC") or column names with an
// optional leading '-' for descending order.
func (q *Query[T]) OrderBy(expressions ...string) *Query[T] {
	if q.err != nil {
		return q
	}
	for _, expr := range expressions {
		expr = strings.TrimSpace(expr)
		if strings.HasPrefix(expr, "-") {
			expr = strings.TrimPrefix(expr, "-") + " DESC"
		}
		q.orderBy = append(q.orderBy, expr)
	}
	return q
}

func (q *Query[T]) Limit(limit uint64) *Query[T] {
	q.limit = &limit
	return q
}

func (q *Query[T]) Offset(offset uint64) *Query[T] {
	q.offset = &offset
	return q
}

// ForUpdate locks the selected rows until the transaction ends.
func (q *Query[T]) ForUpdate() *Query[T] {
	q.lock = true
	return q
}

func (q *Query[T]) selectBuilder(columns ...string) squirrel.SelectBuilder {
	b := Statement().Select(columns...).From(q.repo.table)
	if len(q.where) > 0 {
		b = b.Where(q.where)
	}
	return b
}

func (q *Query[T]) buildSelect() squirrel.SelectBuilder {
	b := q.selectBuilder(q.repo.Columns()...)
	if len(q.orderBy) > 0 {
		b = b.OrderBy(q.orderBy...)
	}
	if q.limit != nil {
		b = b.Limit(*q.limit)
	}
	if q.offset != nil {
		b = b.Offset(*q.offset)
	}
	if q.lock {
		b = b.Suffix("FOR UPDATE")
	}
	return b
}

// ToSQL renders the SELECT without running it.
func (q *Query[T]) ToSQL() (string, []interface{}, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	return q.buildSelect().ToSql()
}

func (q *Query[T]) Find() ([]T, error) {
	if q.err != nil {
		return nil, q.err
	}
	var records []T
	if err := q.repo.db.Select(q.ctx, q.repo.table, &records, q.buildSelect()); err != nil {
		return nil, err
	}
	return records, nil
}

// First returns the first matching row or an ErrNotFound error.
func (q *Query[T]) First() (*T, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.Limit(1)
	records, err := q.Find()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &Error{Op: "first", Table: q.repo.table, Err: ErrNotFound}
	}
	return &records[0], nil
}

func (q *Query[T]) Count() (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	var count int64
	if err := q.repo.db.Get(q.ctx, q.repo.table, &count, q.selectBuilder("COUNT(*)")); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.repo.table, err)
	}
	return count, nil
}

func (q *Query[T]) Exists() (bool, error) {
	count, err := q.Count()
	return count > 0, err
}

// Pluck selects a single column from the matching rows.
func (q *Query[T]) Pluck(column string) ([]string, error) {
	if q.err != nil {
		return nil, q.err
	}
	b := q.selectBuilder(column)
	if len(q.orderBy) > 0 {
		b = b.OrderBy(q.orderBy...)
	}
	var values []string
	if err := q.repo.db.Select(q.ctx, q.repo.table, &values, b); err != nil {
		return nil, err
	}
	return values, nil
}

func (q *Query[T]) Delete() (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	b := Statement().Delete(q.repo.table)
	if len(q.where) > 0 {
		b = b.Where(q.where)
	}
	return q.repo.db.Exec(q.ctx, OpDelete, q.repo.table, b)
}

func (q *Query[T]) Update(set map[string]interface{}) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	b := Statement().Update(q.repo.table).SetMap(set)
	if len(q.where) > 0 {
		b = b.Where(q.where)
	}
	return q.repo.db.Exec(q.ctx, OpUpdate, q.repo.table, b)
}
