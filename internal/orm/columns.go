package orm

import (
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// Condition wraps a squirrel expression so conditions compose with And/Or/Not.
type Condition struct {
	condition squirrel.Sqlizer
}

func (c Condition) ToSqlizer() squirrel.Sqlizer {
	return c.condition
}

func (c Condition) ToSql() (string, []interface{}, error) {
	return c.condition.ToSql()
}

func (c Condition) And(other Condition) Condition {
	return And(c, other)
}

func (c Condition) Or(other Condition) Condition {
	return Or(c, other)
}

func And(conditions ...Condition) Condition {
	sqlizers := make([]squirrel.Sqlizer, len(conditions))
	for i, c := range conditions {
		sqlizers[i] = c.condition
	}
	return Condition{squirrel.And(sqlizers)}
}

func Or(conditions ...Condition) Condition {
	sqlizers := make([]squirrel.Sqlizer, len(conditions))
	for i, c := range conditions {
		sqlizers[i] = c.condition
	}
	return Condition{squirrel.Or(sqlizers)}
}

func Not(condition Condition) Condition {
	return Condition{squirrel.Expr("NOT (?)", condition.ToSqlizer())}
}

// Raw builds a condition from a SQL fragment with ? placeholders.
func Raw(sql string, args ...interface{}) Condition {
	return Condition{squirrel.Expr(sql, args...)}
}

// Exists wraps a subquery in EXISTS (...).
func Exists(sub squirrel.Sqlizer) Condition {
	return Condition{squirrel.Expr("EXISTS (?)", sub)}
}

func NotExists(sub squirrel.Sqlizer) Condition {
	return Condition{squirrel.Expr("NOT EXISTS (?)", sub)}
}

// Column is a typed reference to a table column.
type Column[T any] struct {
	Name  string
	Table string
}

func (c Column[T]) String() string {
	if c.Table != "" {
		return fmt.Sprintf("%s.%s", c.Table, c.Name)
	}
	return c.Name
}

func (c Column[T]) Eq(value T) Condition {
	return Condition{squirrel.Eq{c.String(): value}}
}

func (c Column[T]) NotEq(value T) Condition {
	return Condition{squirrel.NotEq{c.String(): value}}
}

// In expands to an IN list; an empty list matches nothing.
func (c Column[T]) In(values ...T) Condition {
	interfaces := make([]interface{}, len(values))
	for i, v := range values {
		interfaces[i] = v
	}
	return Condition{squirrel.Eq{c.String(): interfaces}}
}

func (c Column[T]) NotIn(values ...T) Condition {
	interfaces := make([]interface{}, len(values))
	for i, v := range values {
		interfaces[i] = v
	}
	return Condition{squirrel.NotEq{c.String(): interfaces}}
}

// Any binds the whole slice as one postgres array parameter.
func (c Column[T]) Any(values []T) Condition {
	return Condition{squirrel.Expr(c.String()+" = ANY(?)", pq.Array(values))}
}

func (c Column[T]) IsNull() Condition {
	return Condition{squirrel.Eq{c.String(): nil}}
}

func (c Column[T]) IsNotNull() Condition {
	return Condition{squirrel.NotEq{c.String(): nil}}
}

func (c Column[T]) Asc() string {
	return c.String() + " ASC"
}

func (c Column[T]) Desc() string {
	return c.String() + " DESC"
}

// Comparable types that support comparison operators
type Comparable interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 |
		~string |
		time.Time
}

type ComparableColumn[T Comparable] struct {
	Column[T]
}

func (c ComparableColumn[T]) Gt(value T) Condition {
	return Condition{squirrel.Gt{c.String(): value}}
}

func (c ComparableColumn[T]) Gte(value T) Condition {
	return Condition{squirrel.GtOrEq{c.String(): value}}
}

func (c ComparableColumn[T]) Lt(value T) Condition {
	return Condition{squirrel.Lt{c.String(): value}}
}

func (c ComparableColumn[T]) Lte(value T) Condition {
	return Condition{squirrel.LtOrEq{c.String(): value}}
}

func (c ComparableColumn[T]) Between(min, max T) Condition {
	return And(c.Gte(min), c.Lte(max))
}

type StringColumn struct {
	Column[string]
}

func (c StringColumn) Like(pattern string) Condition {
	return Condition{squirrel.Like{c.String(): pattern}}
}

func (c StringColumn) ILike(pattern string) Condition {
	return Condition{squirrel.ILike{c.String(): pattern}}
}

// Contains is a case-insensitive substring match.
func (c StringColumn) Contains(substring string) Condition {
	return c.ILike("%" + escapeLike(substring) + "%")
}

// EqualFold is a case-insensitive equality match.
func (c StringColumn) EqualFold(value string) Condition {
	return Condition{squirrel.Expr("LOWER("+c.String()+") = LOWER(?)", value)}
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

type TimeColumn struct {
	Column[time.Time]
}

func (c TimeColumn) Before(t time.Time) Condition {
	return Condition{squirrel.Lt{c.String(): t}}
}

func (c TimeColumn) After(t time.Time) Condition {
	return Condition{squirrel.Gt{c.String(): t}}
}

func (c TimeColumn) AtOrAfter(t time.Time) Condition {
	return Condition{squirrel.GtOrEq{c.String(): t}}
}

func (c TimeColumn) AtOrBefore(t time.Time) Condition {
	return Condition{squirrel.LtOrEq{c.String(): t}}
}

// Window matches the half-open interval [from, to).
func (c TimeColumn) Window(from, to time.Time) Condition {
	return And(c.AtOrAfter(from), c.Before(to))
}

type BoolColumn struct {
	Column[bool]
}

func (c BoolColumn) IsTrue() Condition {
	return Condition{squirrel.Eq{c.String(): true}}
}

func (c BoolColumn) IsFalse() Condition {
	return Condition{squirrel.Eq{c.String(): false}}
}

// Helpers for building column sets.

func String(table, name string) StringColumn {
	return StringColumn{Column[string]{Name: name, Table: table}}
}

func Time(table, name string) TimeColumn {
	return TimeColumn{Column[time.Time]{Name: name, Table: table}}
}

func Bool(table, name string) BoolColumn {
	return BoolColumn{Column[bool]{Name: name, Table: table}}
}

func Int(table, name string) ComparableColumn[int] {
	return ComparableColumn[int]{Column[int]{Name: name, Table: table}}
}

func Enum[T ~string](table, name string) Column[T] {
	return Column[T]{Name: name, Table: table}
}
