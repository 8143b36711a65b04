package protocol

import (
	"errors"
	"fmt"

	"github.com/labrobot/labrobot-go/pkg/deck"
	"github.com/labrobot/labrobot-go/pkg/driver"
	"github.com/labrobot/labrobot-go/pkg/labware"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// Run errors. Driver, deck and labware sentinels are re-exported so that
// failures from those layers reach the caller unmodified and still match.
var (
	ErrLocationOccupied     = deck.ErrLocationOccupied
	ErrUnknownLabware       = labware.ErrUnknownDefinition
	ErrInstrumentMismatch   = driver.ErrInstrumentMismatch
	ErrDriverUnavailable    = driver.ErrUnavailable
	ErrUnknownMount         = types.ErrUnknownMount
	ErrNoTipAttached        = errors.New("no tip attached")
	ErrNoTipAvailable       = errors.New("no tip available")
	ErrVolumeOutOfRange     = errors.New("volume out of range")
	ErrConfigurationInvalid = errors.New("configuration invalid")
	ErrTipAlreadyAttached   = errors.New("tip already attached")
	ErrInstrumentUnbound    = errors.New("instrument no longer bound to its mount")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNoLocation           = errors.New("no location")
)

// ConfigError reports a rejected configuration change.
type ConfigError struct {
	// Setting is the accessor that rejected the value ("pick_up_current").
	Setting string

	// Value is the rejected value.
	Value any

	// Reason says which constraint was violated.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s = %v: %s", ErrConfigurationInvalid, e.Setting, e.Value, e.Reason)
}

// Unwrap makes errors.Is(err, ErrConfigurationInvalid) hold.
func (e *ConfigError) Unwrap() error {
	return ErrConfigurationInvalid
}

// CompositeError reports where a transfer, distribute or consolidate
// stopped. Moved is the volume already dispensed into destinations.
type CompositeError struct {
	Op    string
	Step  int
	Desc  string
	Moved float64
	Err   error
}

func (e *CompositeError) Error() string {
	return fmt.Sprintf("%s: step %d (%s) failed after moving %.2fuL: %v", e.Op, e.Step, e.Desc, e.Moved, e.Err)
}

func (e *CompositeError) Unwrap() error {
	return e.Err
}

// errorKind names the error class for run events.
func errorKind(err error) string {
	kinds := []struct {
		target error
		name   string
	}{
		{ErrLocationOccupied, "LocationOccupied"},
		{ErrUnknownLabware, "UnknownLabware"},
		{ErrInstrumentMismatch, "InstrumentMismatch"},
		{ErrNoTipAttached, "NoTipAttached"},
		{ErrNoTipAvailable, "NoTipAvailable"},
		{ErrVolumeOutOfRange, "VolumeOutOfRange"},
		{ErrConfigurationInvalid, "ConfigurationInvalid"},
		{ErrDriverUnavailable, "DriverUnavailable"},
		{ErrTipAlreadyAttached, "TipAlreadyAttached"},
		{ErrInstrumentUnbound, "InstrumentUnbound"},
		{ErrInvalidArgument, "InvalidArgument"},
		{ErrNoLocation, "NoLocation"},
		{ErrUnknownMount, "UnknownMount"},
		{driver.ErrFault, "DriverFault"},
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return k.name
		}
	}
	return "Other"
}
