package main

import (
	"fmt"
	"os"

	"github.com/eleven-am/taskflow/internal/cli"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// Set with -ldflags "-X main.gitCommit=... -X main.buildDate=..."
var (
	gitCommit string
	buildDate string
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func Execute() error {
	taskflow.SetBuildInfo(gitCommit, buildDate)

	cmd := cli.NewRootCommand()
	return cmd.Execute()
}
