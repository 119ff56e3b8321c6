// Package versions provides build version information and version comparison.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const unknownStr = "unknown"

// Version information set by build using -ldflags
var (
	// Version is the release version of tvmaze-sync
	Version = "dev"
	// Commit is the git commit hash of the build
	Commit = unknownStr
	// BuildDate is the date when the binary was built
	BuildDate = unknownStr
)

// VersionInfo represents the version information
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// String renders the version info on one line
func (v VersionInfo) String() string {
	return fmt.Sprintf("tvmaze-sync %s (commit %s, built %s, %s %s)",
		v.Version, v.Commit, v.BuildDate, v.GoVersion, v.Platform)
}

// GetVersionInfo returns the version information
func GetVersionInfo() VersionInfo {
	commit, buildDate := Commit, BuildDate
	if Version == "dev" {
		commit, buildDate = fromBuildInfo(commit, buildDate)
	}
	return newVersionInfo(Version, commit, buildDate)
}

// fromBuildInfo fills unknown values from the VCS stamp of a go build
func fromBuildInfo(commit, buildDate string) (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, buildDate
	}
	for _, setting := range info.Settings {
		switch {
		case setting.Key == "vcs.revision" && commit == unknownStr:
			commit = setting.Value
		case setting.Key == "vcs.time" && buildDate == unknownStr:
			buildDate = setting.Value
		}
	}
	return commit, buildDate
}

func newVersionInfo(version, commit, buildDate string) VersionInfo {
	if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
		buildDate = t.UTC().Format("2006-01-02 15:04:05 MST")
	}
	if version == "dev" && commit != unknownStr {
		version = fmt.Sprintf("dev-%.8s", commit)
	}
	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
