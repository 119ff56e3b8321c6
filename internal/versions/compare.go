package versions

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Parse parses a version string leniently. Components beyond major.minor.patch,
// as in Sonarr's "4.0.14.2939", are dropped before semver parsing.
func Parse(version string) (*semver.Version, error) {
	version = strings.TrimSpace(version)
	core, suffix := version, ""
	if i := strings.IndexAny(version, "-+"); i >= 0 {
		core, suffix = version[:i], version[i:]
	}
	if parts := strings.Split(core, "."); len(parts) > 3 {
		core = strings.Join(parts[:3], ".")
	}
	return semver.NewVersion(core + suffix)
}

// AtLeastMajor reports whether version has a major component of at least major.
// Unparseable versions report false.
func AtLeastMajor(version string, major uint64) bool {
	v, err := Parse(version)
	if err != nil {
		return false
	}
	return v.Major() >= major
}
