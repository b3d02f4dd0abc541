// Package version exposes build metadata for the orchestrator, adapters and CLI.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// Version can be overridden by ldflags at build time.
	Version = "dev"
	// CommitHash can be overridden by ldflags at build time.
	CommitHash = ""
	// BuildTime can be overridden by ldflags at build time.
	BuildTime = ""

	readBuildInfo sync.Once
)

// GetInfo returns the version followed by the short commit hash when known,
// e.g. "v0.3.0 (1a2b3c4)".
func GetInfo() string {
	readBuildInfo.Do(fillFromBuildInfo)

	res := Version
	if CommitHash != "" {
		res += fmt.Sprintf(" (%s)", shortHash(CommitHash))
	}
	return res
}

func fillFromBuildInfo() {
	if CommitHash != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			CommitHash = setting.Value
		case "vcs.time":
			BuildTime = setting.Value
		}
	}
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
