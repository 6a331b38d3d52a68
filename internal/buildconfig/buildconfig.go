// Package buildconfig exposes the version stamped in at link time:
//
//	go build -ldflags "-X github.com/Harshitk-cp/credence/internal/buildconfig.version=v0.3.0 \
//	  -X github.com/Harshitk-cp/credence/internal/buildconfig.commit=$(git rev-parse --short HEAD)"
package buildconfig

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// String renders "credence <version> (commit <commit>)".
func String() string {
	return fmt.Sprintf("credence %s (commit %s)", version, commit)
}

// UserAgent is sent on every outbound fetch.
func UserAgent() string {
	return "credence/" + version
}

// VersionInfo is the version block of the health response.
func VersionInfo() map[string]string {
	return map[string]string{
		"version":    version,
		"commit":     commit,
		"user_agent": UserAgent(),
	}
}
