package pipette

import (
	"fmt"
	"strings"
)

// Mode is the plunger direction a rate applies to.
type Mode uint8

const (
	// ModeAspirate draws liquid into the tip.
	ModeAspirate Mode = iota + 1

	// ModeDispense expels liquid from the tip.
	ModeDispense
)

// Modes lists every mode.
var Modes = []Mode{ModeAspirate, ModeDispense}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeAspirate:
		return "ASPIRATE"
	case ModeDispense:
		return "DISPENSE"
	default:
		return "UNKNOWN"
	}
}

// ParseMode parses "aspirate" or "dispense" case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aspirate":
		return ModeAspirate, nil
	case "dispense":
		return ModeDispense, nil
	}
	return 0, fmt.Errorf("unknown pipette mode %q", s)
}

// Type is the channel layout of a pipette.
type Type uint8

const (
	// TypeSingle has one channel.
	TypeSingle Type = iota + 1

	// TypeMulti has eight channels in a column.
	TypeMulti
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeSingle:
		return "SINGLE"
	case TypeMulti:
		return "MULTI"
	default:
		return "UNKNOWN"
	}
}

// TypeForChannels maps a channel count to a pipette type.
func TypeForChannels(channels int) Type {
	if channels > 1 {
		return TypeMulti
	}
	return TypeSingle
}
