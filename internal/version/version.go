// Package version holds build metadata set through ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/izupress/internal/version.Version=v1.2.0"
package version

import "fmt"

// Version is the release of the binary.
var Version = "unknown"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GenInfo is the generator notice placed on every page. It carries no timestamp,
// so unchanged pages render to the same bytes on every run.
func GenInfo() string {
	return fmt.Sprintf("Generated by izupress %s", Version)
}

// String describes the build for the version command.
func String() string {
	return fmt.Sprintf("izupress %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
