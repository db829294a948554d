package taskflow

import (
	"fmt"
	"runtime"
)

const (
	Version       = "0.4.0"
	SchemaVersion = "0001"
)

// BuildInfo is filled at link time through SetBuildInfo.
var BuildInfo = struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
}{
	Version:   Version,
	GoVersion: runtime.Version(),
}

func SetBuildInfo(commit, date string) {
	BuildInfo.GitCommit = commit
	BuildInfo.BuildDate = date
}

func VersionInfo() string {
	return fmt.Sprintf("taskflow %s (schema %s)", BuildInfo.Version, SchemaVersion)
}

func FullVersionInfo() string {
	info := fmt.Sprintf("taskflow %s\n", BuildInfo.Version)
	info += fmt.Sprintf("Schema Version: %s\n", SchemaVersion)
	info += fmt.Sprintf("Go Version: %s\n", BuildInfo.GoVersion)

	if BuildInfo.GitCommit != "" {
		info += fmt.Sprintf("Git Commit: %s\n", BuildInfo.GitCommit)
	}
	if BuildInfo.BuildDate != "" {
		info += fmt.Sprintf("Build Date: %s\n", BuildInfo.BuildDate)
	}

	return info
}
