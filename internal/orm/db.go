package orm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// DB is the entry point for all queries. It wraps a connection pool and,
// inside WithTransaction, the transaction currently in flight.
type DB struct {
	db         *sqlx.DB
	executor   DBExecutor
	middleware *middlewareManager
}

func New(db *sqlx.DB, middleware ...QueryMiddleware) *DB {
	mm := newMiddlewareManager()
	for _, m := range middleware {
		mm.AddMiddleware(m)
	}
	return &DB{db: db, executor: db, middleware: mm}
}

// Open connects to postgres through lib/pq and applies pool settings.
func Open(ctx context.Context, cfg Config, middleware ...QueryMiddleware) (*DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, ParsePostgreSQLError(err, "connect", "")
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return New(conn, middleware...), nil
}

// Config holds connection pool settings.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d *DB) AddMiddleware(m QueryMiddleware) {
	d.middleware.AddMiddleware(m)
}

func (d *DB) Executor() DBExecutor {
	return d.executor
}

// SQLX returns the underlying pool.
func (d *DB) SQLX() *sqlx.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) InTransaction() bool {
	_, ok := d.executor.(*sqlx.Tx)
	return ok
}

// WithTransaction runs fn inside a transaction. A DB that is already
// transactional is reused so nested calls join the outer transaction.
func (d *DB) WithTransaction(ctx context.Context, fn func(*DB) error) error {
	if d.InTransaction() {
		return fn(d)
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&DB{db: d.db, executor: tx, middleware: d.middleware}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return nil
}

func toSQL(s squirrel.Sqlizer) (string, []interface{}, error) {
	query, args, err := s.ToSql()
	if err != nil {
		return "", nil, err
	}
	query, err = squirrel.Dollar.ReplacePlaceholders(query)
	return query, args, err
}

func (d *DB) run(ctx context.Context, op OperationType, table string, s squirrel.Sqlizer, fn func(query string, args []interface{}) (int64, error)) (int64, error) {
	query, args, err := toSQL(s)
	if err != nil {
		return 0, &Error{Op: string(op), Table: table, Err: fmt.Errorf("build query: %w", err)}
	}

	mctx := &MiddlewareContext{
		Operation: op,
		TableName: table,
		Query:     query,
		Args:      args,
		Context:   ctx,
		StartTime: time.Now(),
	}

	err = d.middleware.ExecuteMiddleware(mctx, func(m *MiddlewareContext) error {
		rows, err := fn(m.Query, m.Args)
		m.RowsAffected = rows
		return err
	})
	if err != nil {
		return 0, wrapQueryError(ParsePostgreSQLError(err, string(op), table), query, args)
	}
	return mctx.RowsAffected, nil
}

// Exec runs a statement and returns the number of affected rows.
func (d *DB) Exec(ctx context.Context, op OperationType, table string, s squirrel.Sqlizer) (int64, error) {
	return d.run(ctx, op, table, s, func(query string, args []interface{}) (int64, error) {
		res, err := d.executor.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
}

// Select scans every row into dest, which must be a pointer to a slice.
func (d *DB) Select(ctx context.Context, table string, dest interface{}, s squirrel.Sqlizer) error {
	_, err := d.run(ctx, OpFind, table, s, func(query string, args []interface{}) (int64, error) {
		return 0, d.executor.SelectContext(ctx, dest, query, args...)
	})
	return err
}

// Get scans exactly one row into dest. No rows yields ErrNotFound.
func (d *DB) Get(ctx context.Context, table string, dest interface{}, s squirrel.Sqlizer) error {
	_, err := d.run(ctx, OpFind, table, s, func(query string, args []interface{}) (int64, error) {
		return 1, d.executor.GetContext(ctx, dest, query, args...)
	})
	return err
}

func wrapQueryError(err error, query string, args []interface{}) error {
	var e *Error
	if errors.As(err, &e) && e.Query == "" {
		e.Query = query
		e.Args = args
	}
	return err
}

// Statement returns a squirrel builder with postgres placeholders.
func Statement() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
