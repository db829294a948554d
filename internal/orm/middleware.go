package orm

import (
	"context"
	"time"

	"github.com/eleven-am/taskflow/internal/logger"
)

// OperationType names the kind of statement being executed.
type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
	OpUpsert OperationType = "upsert"
	OpFind   OperationType = "find"
	OpCount  OperationType = "count"
)

// MiddlewareContext is passed down the middleware chain for every statement.
type MiddlewareContext struct {
	Operation    OperationType
	TableName    string
	Query        string
	Args         []interface{}
	RowsAffected int64
	StartTime    time.Time
	Duration     time.Duration
	Context      context.Context
}

type QueryMiddlewareFunc func(ctx *MiddlewareContext) error

type QueryMiddleware func(next QueryMiddlewareFunc) QueryMiddlewareFunc

type middlewareManager struct {
	middleware []QueryMiddleware
}

func newMiddlewareManager() *middlewareManager {
	return &middlewareManager{middleware: make([]QueryMiddleware, 0)}
}

func (mm *middlewareManager) AddMiddleware(m QueryMiddleware) {
	mm.middleware = append(mm.middleware, m)
}

func (mm *middlewareManager) ExecuteMiddleware(ctx *MiddlewareContext, finalFunc QueryMiddlewareFunc) error {
	handler := finalFunc
	for i := len(mm.middleware) - 1; i >= 0; i-- {
		handler = mm.middleware[i](handler)
	}
	return handler(ctx)
}

// LoggingMiddleware logs every statement at debug level and failures at warn.
func LoggingMiddleware(log logger.Logger) QueryMiddleware {
	return func(next QueryMiddlewareFunc) QueryMiddlewareFunc {
		return func(ctx *MiddlewareContext) error {
			err := next(ctx)
			ctx.Duration = time.Since(ctx.StartTime)

			if err != nil {
				log.Warn("query failed",
					"op", ctx.Operation,
					"table", ctx.TableName,
					"duration", ctx.Duration,
					"error", err)
				return err
			}

			log.Debug("query",
				"op", ctx.Operation,
				"table", ctx.TableName,
				"rows", ctx.RowsAffected,
				"duration", ctx.Duration,
				"sql", ctx.Query)
			return nil
		}
	}
}

// SlowQueryMiddleware warns about statements slower than threshold.
func SlowQueryMiddleware(log logger.Logger, threshold time.Duration) QueryMiddleware {
	return func(next QueryMiddlewareFunc) QueryMiddlewareFunc {
		return func(ctx *MiddlewareContext) error {
			err := next(ctx)
			if elapsed := time.Since(ctx.StartTime); elapsed > threshold {
				log.Warn("slow query", "table", ctx.TableName, "duration", elapsed, "sql", ctx.Query)
			}
			return err
		}
	}
}
