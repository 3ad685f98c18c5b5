package internal

import (
	"log/slog"
	"runtime/debug"
	"time"
)

// BuildInfo describes the VCS state the binary was built from.
type BuildInfo struct {
	Revision string
	Time     time.Time
	Modified bool
}

// Build is read from the binary at startup. Fields keep their zero
// values (and Revision is "unknown") when no VCS info was embedded.
var Build = parseBuildInfo(debug.ReadBuildInfo())

func parseBuildInfo(info *debug.BuildInfo, ok bool) BuildInfo {
	b := BuildInfo{Revision: "unknown"}
	if !ok || info == nil {
		return b
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			b.Revision = setting.Value
		case "vcs.time":
			// An unparsable time is treated as absent.
			t, err := time.Parse(time.RFC3339, setting.Value)
			if err == nil {
				b.Time = t
			}
		case "vcs.modified":
			b.Modified = setting.Value == "true"
		}
	}

	return b
}

func (b BuildInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("revision", b.Revision),
		slog.Time("time", b.Time),
		slog.Bool("modified", b.Modified),
	)
}
