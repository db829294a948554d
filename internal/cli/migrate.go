package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskflow/internal/migrator"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply and inspect schema migrations",
		Long: `Runs the SQL migrations embedded in the binary against the configured
database and records them in the migrations table.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *migrator.Migrator) error {
				applied, err := m.Up(ctx)
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
				}
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *migrator.Migrator) error {
				name, err := m.Down(ctx)
				if err != nil {
					return err
				}
				if name == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to revert")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reverted %s\n", name)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they ran",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *migrator.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "MIGRATION\tSTATE\tAPPLIED AT")
				for _, s := range statuses {
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, migrationState(s), appliedAt(s))
				}
				return w.Flush()
			})
		},
	})

	return cmd
}

func migrationState(s migrator.Status) string {
	switch {
	case s.Applied && s.Modified:
		return "modified"
	case s.Applied:
		return "applied"
	}
	return "pending"
}

func appliedAt(s migrator.Status) string {
	if s.AppliedAt == nil {
		return "-"
	}
	return s.AppliedAt.UTC().Format(time.RFC3339)
}

func withMigrator(fn func(context.Context, *migrator.Migrator) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	migrations, err := migrator.Load()
	if err != nil {
		return err
	}
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, migrator.New(db.SQLX(), cfg.Database.MigrationsTable, migrations))
}
