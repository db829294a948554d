package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskflow/internal/app"
	"github.com/eleven-am/taskflow/internal/logger"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background jobs until interrupted",
		Long: `Starts the job registry: overdue and due-soon sweeps, recurrence,
notification retention and the statistics jobs, each on its configured
interval. SIGINT or SIGTERM stops the worker after in-flight ticks finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, cmd)
		},
	}
}

func runWorker(ctx context.Context, cmd *cobra.Command) error {
	return withApp(ctx, func(a *app.App) error {
		if err := a.Jobs.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Worker running %d jobs\n", len(a.Jobs.Names()))
		<-ctx.Done()
		logger.CLI().Info("shutting down worker")
		return nil
	})
}

func newRunJobCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run-job [name]",
		Short: "Run one tick of a background job",
		Long: `Runs a single tick of the named job in the foreground and reports how
many rows it affected. Without a name, lists the available jobs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				w := cmd.OutOrStdout()
				if len(args) == 0 {
					for _, name := range a.Jobs.Names() {
						job, _ := a.Jobs.Job(name)
						fmt.Fprintf(w, "%s\tevery %s\n", name, job.Interval)
					}
					return nil
				}

				n, err := a.Jobs.RunOnce(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s: %d affected\n", args[0], n)
				return nil
			})
		},
	}
}
