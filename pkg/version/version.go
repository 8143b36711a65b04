// Package version describes the versions of the protocol script format and
// the actions each version provides.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Current is the newest script format version this library runs.
const Current = "1.0"

var (
	// ErrInvalidVersion is returned for a version field that does not parse.
	ErrInvalidVersion = errors.New("invalid script version")

	// ErrUnsupportedVersion is returned for a well-formed version this
	// library cannot run.
	ErrUnsupportedVersion = errors.New("script version is not supported")
)

// Version is a script format version. Minor releases only add actions, so a
// runner executes any script of its major version up to its own minor.
type Version struct {
	Major uint16
	Minor uint16
}

// Parse reads a version as scripts write it: "1.0", "1" (minor 0), or with a
// leading "v". Surrounding whitespace is ignored.
func Parse(s string) (Version, error) {
	text := strings.TrimPrefix(strings.TrimSpace(s), "v")
	majorText, minorText, hasMinor := strings.Cut(text, ".")
	if !hasMinor {
		minorText = "0"
	}

	major, err := parseComponent(majorText)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: major %v", ErrInvalidVersion, s, err)
	}
	minor, err := parseComponent(minorText)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: minor %v", ErrInvalidVersion, s, err)
	}
	return Version{Major: major, Minor: minor}, nil
}

func parseComponent(s string) (uint16, error) {
	if s == "" {
		return 0, errors.New("is empty")
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return uint16(n), nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return strconv.Itoa(int(v.Major)) + "." + strconv.Itoa(int(v.Minor))
}

// Supports reports whether a runner at version v can execute a script
// written for other.
func (v Version) Supports(other Version) bool {
	return v.Major == other.Major && other.Minor <= v.Minor
}

// Resolve parses a script's declared version, defaulting to Current when
// empty, and checks that this library supports it.
func Resolve(declared string) (Version, error) {
	if strings.TrimSpace(declared) == "" {
		declared = Current
	}
	v, err := Parse(declared)
	if err != nil {
		return Version{}, err
	}
	if cur := MustParse(Current); !cur.Supports(v) {
		return Version{}, fmt.Errorf("%w: %s (runner is %s)", ErrUnsupportedVersion, v, cur)
	}
	return v, nil
}
