package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskflow/pkg/taskflow"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display taskflow version, schema version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), taskflow.FullVersionInfo())
		},
	}
}
