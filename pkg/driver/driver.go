package driver

import (
	"errors"

	"github.com/labrobot/labrobot-go/pkg/types"
)

// Driver errors.
var (
	// ErrUnavailable means the driver cannot take or finish a command:
	// it is closed, its queue is full, or it stopped responding.
	ErrUnavailable = errors.New("driver unavailable")

	// ErrInstrumentMismatch means the physically attached instrument
	// contradicts a requested attachment.
	ErrInstrumentMismatch = errors.New("instrument mismatch")

	// ErrFault is a hardware-level refusal (no instrument on the mount,
	// plunger over-travel, tip already present, ...).
	ErrFault = errors.New("driver fault")
)

// InstrumentInfo is what the driver reports about an attached pipette.
type InstrumentInfo struct {
	// Name is the model family ("p300_single").
	Name string

	// Model is the versioned model identifier ("p300_single_v1").
	Model string

	// Channels is 1 for single-channel and 8 for multi-channel pipettes.
	Channels int
}

// Driver is the asynchronous hardware control boundary.
type Driver interface {
	// AttachedInstruments returns the driver's current instrument cache.
	// Mounts with nothing attached are absent from the map.
	AttachedInstruments() map[types.Mount]InstrumentInfo

	// Submit queues cmd and returns immediately. Exactly one Result is
	// delivered on the returned channel.
	Submit(cmd *Command) (<-chan Result, error)

	// Close stops the driver. Pending commands complete with ErrUnavailable.
	Close() error
}
