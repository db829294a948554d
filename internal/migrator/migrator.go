package migrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskflow/internal/logger"
)

const DefaultTable = "schema_migrations"

// AppliedMigration is a row of the bookkeeping table.
type AppliedMigration struct {
	Name      string    `db:"name"`
	AppliedAt time.Time `db:"applied_at"`
	Checksum  string    `db:"checksum"`
}

type Status struct {
	Name      string
	Applied   bool
	AppliedAt *time.Time
	Modified  bool
}

// Migrator applies the embedded schema and tracks what ran.
type Migrator struct {
	db         *sqlx.DB
	table      string
	migrations []Migration
	log        logger.Logger
}

func New(db *sqlx.DB, table string, migrations []Migration) *Migrator {
	if table == "" {
		table = DefaultTable
	}
	return &Migrator{db: db, table: table, migrations: migrations, log: logger.Migration()}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name VARCHAR(255) PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	checksum VARCHAR(64) NOT NULL
)`, m.table))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", m.table, err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]AppliedMigration, error) {
	var rows []AppliedMigration
	if err := m.db.SelectContext(ctx, &rows, fmt.Sprintf("SELECT name, applied_at, checksum FROM %s ORDER BY name", m.table)); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	out := make(map[string]AppliedMigration, len(rows))
	for _, r := range rows {
		out[r.Name] = r
	}
	return out, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns the names applied.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, mig := range m.migrations {
		if prev, ok := done[mig.Name]; ok {
			if prev.Checksum != mig.Checksum {
				m.log.Warn("applied migration was modified", "name", mig.Name)
			}
			continue
		}

		m.log.Info("applying migration", "name", mig.Name)
		if err := m.apply(ctx, mig); err != nil {
			return applied, err
		}
		applied = append(applied, mig.Name)
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range SplitStatements(mig.Up) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %s statement %d: %w", mig.Name, i+1, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (name, checksum) VALUES ($1, $2)", m.table),
		mig.Name, mig.Checksum); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", mig.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", mig.Name, err)
	}
	return nil
}

// Down reverts the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) (string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return "", err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return "", err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if _, ok := done[mig.Name]; !ok {
			continue
		}
		if strings.TrimSpace(mig.Down) == "" {
			return "", fmt.Errorf("migration %s has no down section", mig.Name)
		}

		m.log.Info("reverting migration", "name", mig.Name)
		tx, err := m.db.BeginTxx(ctx, nil)
		if err != nil {
			return "", fmt.Errorf("failed to begin transaction: %w", err)
		}
		for _, stmt := range SplitStatements(mig.Down) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return "", fmt.Errorf("revert %s: %w", mig.Name, err)
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE name = $1", m.table), mig.Name); err != nil {
			_ = tx.Rollback()
			return "", fmt.Errorf("failed to unrecord %s: %w", mig.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("failed to commit revert of %s: %w", mig.Name, err)
		}
		return mig.Name, nil
	}
	return "", nil
}

func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(m.migrations))
	for _, mig := range m.migrations {
		s := Status{Name: mig.Name}
		if prev, ok := done[mig.Name]; ok {
			at := prev.AppliedAt
			s.Applied = true
			s.AppliedAt = &at
			s.Modified = prev.Checksum != mig.Checksum
		}
		out = append(out, s)
	}
	return out, nil
}
