// Package version holds build metadata injected via ldflags.
package version

import (
	"runtime/debug"

	"go.uber.org/zap"
)

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Fields returns the build metadata as log fields. Commit and Date fall back
// to the VCS stamp go build embeds when ldflags left them empty.
func Fields() []zap.Field {
	commit, date := Commit, Date
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "":
				commit = s.Value
			case s.Key == "vcs.time" && date == "":
				date = s.Value
			}
		}
	}
	return []zap.Field{
		zap.String("version", Version),
		zap.String("commit", orUnknown(commit)),
		zap.String("build_date", orUnknown(date)),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
