package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMount is returned when a mount name does not parse.
var ErrUnknownMount = errors.New("unknown mount")

// Mount is a physical attachment point for a pipette.
type Mount uint8

const (
	// MountLeft is the left pipette carriage.
	MountLeft Mount = iota + 1

	// MountRight is the right pipette carriage.
	MountRight
)

// Mounts lists every mount in a stable order.
var Mounts = []Mount{MountLeft, MountRight}

// String returns the mount name.
func (m Mount) String() string {
	switch m {
	case MountLeft:
		return "LEFT"
	case MountRight:
		return "RIGHT"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether m is one of the defined mounts.
func (m Mount) Valid() bool {
	return m == MountLeft || m == MountRight
}

// ParseMount parses a case-insensitive mount name ("left", "RIGHT").
func ParseMount(s string) (Mount, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return MountLeft, nil
	case "right", "r":
		return MountRight, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMount, s)
}

// MarshalText implements encoding.TextMarshaler. The zero Mount encodes as
// the empty string.
func (m Mount) MarshalText() ([]byte, error) {
	if m == 0 {
		return []byte{}, nil
	}
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMount, uint8(m))
	}
	return []byte(strings.ToLower(m.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mount) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = 0
		return nil
	}
	parsed, err := ParseMount(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
