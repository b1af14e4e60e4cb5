// Package version parses the analytics engine's server version and gates
// client methods on the range of versions that support them.
package version

import (
	"fmt"
	"regexp"
	"strconv"

	gdserrors "github.com/23skdu/gdsclient/internal/errors"
)

// ServerVersion is the (major, minor, patch) triple reported by gds.version().
// It is read once per session and only ever compared.
type ServerVersion struct {
	Major int
	Minor int
	Patch int
}

// Accepts "2.1", "2.1.0", "2.2.0-alpha01", "2.3.1+build.7".
var versionPattern = regexp.MustCompile(`^\s*(\d+)\.(\d+)(?:\.(\d+))?`)

// New returns the version major.minor.patch.
func New(major, minor, patch int) ServerVersion {
	return ServerVersion{Major: major, Minor: minor, Patch: patch}
}

// Parse extracts the numeric triple from a server version string. Pre-release
// and build suffixes are ignored.
func Parse(s string) (ServerVersion, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return ServerVersion{}, gdserrors.NewValidationError("version.Parse",
			fmt.Sprintf("%q is not a server version", s))
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch := 0
	if m[3] != "" {
		patch, _ = strconv.Atoi(m[3])
	}
	return New(major, minor, patch), nil
}

// Compare returns -1, 0 or 1 when v is older, equal or newer than o.
func (v ServerVersion) Compare(o ServerVersion) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	default:
		return cmpInt(v.Patch, o.Patch)
	}
}

// Less reports whether v is strictly older than o.
func (v ServerVersion) Less(o ServerVersion) bool {
	return v.Compare(o) < 0
}

// AtLeast reports whether v is o or newer.
func (v ServerVersion) AtLeast(o ServerVersion) bool {
	return v.Compare(o) >= 0
}

func (v ServerVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
