package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskflow/internal/migrator"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify database schema matches models",
		Long: `Inspects the live schema and compares it with the tables and columns
the store reads and writes.

Returns exit code 0 if the schema matches, 1 if differences are found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Verifying database schema...")
			report, err := migrator.Verify(ctx, db.SQLX().DB, cfg.Database.Schema)
			if err != nil {
				return err
			}
			return printReport(cmd, report)
		},
	}
}

func printReport(cmd *cobra.Command, report *migrator.Report) error {
	w := cmd.OutOrStdout()
	if report.OK() {
		fmt.Fprintln(w, "Schema matches")
		return nil
	}
	for _, line := range report.Describe() {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if len(report.Destructive) > 0 {
		fmt.Fprintf(w, "%d destructive change(s) would be required\n", len(report.Destructive))
	}
	return fmt.Errorf("schema differs in %d place(s)", len(report.Changes))
}
