package cli

import (
	"context"
	"fmt"

	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/orm"
)

// connect opens a bare pool for the schema commands, which run before the
// tables the services need exist.
func connect(ctx context.Context) (*orm.DB, error) {
	if err := requireURL(); err != nil {
		return nil, err
	}
	log := logger.DB()
	db, err := orm.Open(ctx, orm.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdle,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, orm.LoggingMiddleware(log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
