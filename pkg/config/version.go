// Package config exposes build metadata shared by alertd and alertctl.
//
// Release builds stamp the variables with -ldflags:
//
//	go build -ldflags "\
//	  -X github.com/good-yellow-bee/alertd/pkg/config.Version=v1.4.0 \
//	  -X github.com/good-yellow-bee/alertd/pkg/config.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/good-yellow-bee/alertd/pkg/config.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	  ./cmd/alertd
//
// Unstamped builds (go install, go run) fall back to the VCS data the Go
// toolchain embeds, when present.
package config

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo is reported by `alertd version`, `alertctl version -o json` and
// the alertd_build_info metric.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the stamped build information, filling unstamped
// commit and time from the embedded VCS settings.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		applyVCS(&info, bi.Settings)
	}
	return info
}

func applyVCS(info *BuildInfo, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			}
		case "vcs.time":
			if info.BuildTime == "unknown" && s.Value != "" {
				info.BuildTime = s.Value
			}
		}
	}
}

// VersionString formats the build information for binary, e.g.
// "alertctl v1.4.0 (3f2c9d1) built at 2026-03-01T12:00:00Z with go1.24.7".
func VersionString(binary string) string {
	info := GetBuildInfo()
	return fmt.Sprintf("%s %s (%s) built at %s with %s",
		binary, info.Version, info.Commit, info.BuildTime, info.GoVersion)
}
