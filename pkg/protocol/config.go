package protocol

import (
	"errors"
	"log/slog"
	"time"

	"github.com/labrobot/labrobot-go/pkg/driver"
	"github.com/labrobot/labrobot-go/pkg/labware"
	runlog "github.com/labrobot/labrobot-go/pkg/log"
	"github.com/labrobot/labrobot-go/pkg/pipette"
)

// DefaultDriverTimeout bounds how long a single driver command may take.
const DefaultDriverTimeout = 30 * time.Second

// DefaultFixedTrash is the definition auto-loaded into the fixed trash slot.
const DefaultFixedTrash = "fixed_trash"

// Config configures a ProtocolContext.
type Config struct {
	// Driver is the initial driver. If nil, a simulator is used.
	Driver driver.Driver

	// DriverTimeout bounds every driver command.
	DriverTimeout time.Duration

	// Catalog resolves pipette models.
	Catalog *pipette.Catalog

	// Loader resolves labware definitions by name.
	Loader labware.Loader

	// FixedTrash is the definition placed in the fixed trash slot.
	// Empty disables the fixed trash.
	FixedTrash string

	// Logger is the optional logger for operational output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// EventLogger receives run events. If nil, events are discarded.
	EventLogger runlog.Logger
}

// DefaultConfig returns a configuration running against the simulator with
// the built-in catalogs.
func DefaultConfig() Config {
	return Config{
		DriverTimeout: DefaultDriverTimeout,
		Catalog:       pipette.Default(),
		Loader:        labware.NewBuiltinRegistry(),
		FixedTrash:    DefaultFixedTrash,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DriverTimeout <= 0 {
		return errors.New("driver timeout must be positive")
	}
	if c.Catalog == nil {
		return errors.New("pipette catalog is required")
	}
	if c.Loader == nil {
		return errors.New("labware loader is required")
	}
	return nil
}
