package log

import (
	"time"

	"github.com/labrobot/labrobot-go/pkg/types"
)

// Event is one entry of a run trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID identifies the run (UUID).
	RunID string `cbor:"2,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"3,keyasint"`

	// Mount is the instrument mount involved, if any.
	Mount types.Mount `cbor:"4,keyasint,omitempty"`

	// Type-specific payload (one of these is set).
	Command     *CommandEvent     `cbor:"10,keyasint,omitempty"`
	Comment     *CommentEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Category classifies an event.
type Category uint8

const (
	// CategoryCommand is a liquid-handling or motion command.
	CategoryCommand Category = 0
	// CategoryComment is a script comment.
	CategoryComment Category = 1
	// CategoryState is a state change.
	CategoryState Category = 2
	// CategoryError is a failure.
	CategoryError Category = 3
)

// Categories lists every category.
var Categories = []Category{CategoryCommand, CategoryComment, CategoryState, CategoryError}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryComment:
		return "COMMENT"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent describes a completed command.
type CommandEvent struct {
	// Name is the command name ("aspirate", "move_to", "home", ...).
	Name string `cbor:"1,keyasint"`

	// Volume in µL, for liquid-handling commands.
	Volume float64 `cbor:"2,keyasint,omitempty"`

	// Location describes where the command acted.
	Location string `cbor:"3,keyasint,omitempty"`

	// Rate is the flow-rate multiplier or speed used.
	Rate float64 `cbor:"4,keyasint,omitempty"`

	// Duration is how long the command took, including driver time.
	Duration time.Duration `cbor:"5,keyasint,omitempty"`
}

// CommentEvent carries a script comment.
type CommentEvent struct {
	Message string `cbor:"1,keyasint"`
}

// StateEntity names what changed state.
type StateEntity uint8

const (
	// StateEntityRun is the run as a whole (paused, resumed, closed).
	StateEntityRun StateEntity = 0
	// StateEntityInstrument is an instrument (loaded, tip attached, ...).
	StateEntityInstrument StateEntity = 1
	// StateEntityDriver is the driver connection.
	StateEntityDriver StateEntity = 2
	// StateEntityDeck is the deck layout.
	StateEntityDeck StateEntity = 3
)

// String returns the entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityRun:
		return "RUN"
	case StateEntityInstrument:
		return "INSTRUMENT"
	case StateEntityDriver:
		return "DRIVER"
	case StateEntityDeck:
		return "DECK"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent records a transition.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData records a failure.
type ErrorEventData struct {
	// Command is the command that failed, if any.
	Command string `cbor:"1,keyasint,omitempty"`

	// Kind is the error class ("NoTipAttached", "DriverUnavailable", ...).
	Kind string `cbor:"2,keyasint,omitempty"`

	// Message is the error text.
	Message string `cbor:"3,keyasint"`
}
