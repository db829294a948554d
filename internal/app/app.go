// Package app wires the store, services and job registry from a Config.
package app

import (
	"context"
	"fmt"

	"github.com/eleven-am/taskflow/internal/access"
	"github.com/eleven-am/taskflow/internal/analytics"
	"github.com/eleven-am/taskflow/internal/config"
	"github.com/eleven-am/taskflow/internal/jobs"
	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/notify"
	"github.com/eleven-am/taskflow/internal/orm"
	"github.com/eleven-am/taskflow/internal/store"
	"github.com/eleven-am/taskflow/internal/tasks"
	"github.com/eleven-am/taskflow/internal/users"
)

// Job names accepted by `taskflow run-job`.
const (
	JobOverdue    = "overdue-sweep"
	JobDueSoon    = "due-soon-sweep"
	JobRecurrence = "recurrence"
	JobRetention  = "notification-retention"
	JobDailyStats = "daily-stats"
	JobTeamStats  = "team-stats"
)

type App struct {
	Config *config.Config
	DB     *orm.DB
	Store  store.Store

	Access        *access.Resolver
	Dispatcher    *notify.Dispatcher
	Notifications *notify.Service
	Sweeper       *notify.Sweeper
	Tasks         *tasks.Service
	Users         *users.Service
	Analytics     *analytics.Service
	Recurrence    *jobs.Recurrence
	Jobs          *jobs.Registry
}

// Open connects to postgres and builds the app on top of it.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database URL is required (set database.url, --url or %s)", config.EnvDatabaseURL)
	}

	dbLog := logger.DB()
	db, err := orm.Open(ctx, orm.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdle,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, orm.LoggingMiddleware(dbLog), orm.SlowQueryMiddleware(dbLog, cfg.Database.SlowQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a, err := New(cfg, store.NewPgStore(db))
	if err != nil {
		db.Close()
		return nil, err
	}
	a.DB = db
	return a, nil
}

// New builds every service over s and registers the background jobs.
func New(cfg *config.Config, s store.Store) (*App, error) {
	resolver := access.NewResolver()
	dispatcher := notify.NewDispatcher(s, logger.Notify())

	a := &App{
		Config:        cfg,
		Store:         s,
		Access:        resolver,
		Dispatcher:    dispatcher,
		Notifications: notify.NewService(s),
		Sweeper: notify.NewSweeper(s, logger.Notify(), notify.SweepOptions{
			Location:  cfg.Location(),
			Retention: cfg.Notifications.Retention,
		}),
		Tasks:      tasks.NewService(s, resolver, dispatcher, logger.Tasks()),
		Users:      users.NewService(s, resolver, logger.Users()),
		Analytics:  analytics.NewService(s, resolver, logger.Jobs()).WithLocation(cfg.Location()),
		Recurrence: jobs.NewRecurrence(s, logger.Jobs()),
		Jobs:       jobs.NewRegistry(logger.Jobs()),
	}

	schedule := []jobs.Job{
		{Name: JobOverdue, Interval: cfg.Jobs.Overdue, Run: a.Sweeper.RunOverdueSweep},
		{Name: JobDueSoon, Interval: cfg.Jobs.DueSoon, Run: a.Sweeper.RunDueSoonSweep, RunOnStart: true},
		{Name: JobRecurrence, Interval: cfg.Jobs.Recurrence, Run: a.Recurrence.Run, RunOnStart: true},
		{Name: JobRetention, Interval: cfg.Jobs.Retention, Run: a.Sweeper.RunRetention},
		{Name: JobDailyStats, Interval: cfg.Jobs.DailyStats, Run: a.Analytics.RunDailyStats},
		{Name: JobTeamStats, Interval: cfg.Jobs.TeamStats, Run: a.Analytics.RunTeamStats},
	}
	for _, job := range schedule {
		if err := a.Jobs.Register(job); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Close stops the jobs and releases the connection pool.
func (a *App) Close() error {
	a.Jobs.Stop()
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
