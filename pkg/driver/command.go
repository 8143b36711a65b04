package driver

import (
	"fmt"

	"github.com/labrobot/labrobot-go/pkg/types"
)

// Op identifies a driver operation.
type Op uint8

const (
	// OpCacheInstruments validates and commits an attachment overlay.
	OpCacheInstruments Op = iota + 1

	// OpMoveTo moves a mount to a point.
	OpMoveTo

	// OpHome homes gantry axes.
	OpHome

	// OpHomePlunger homes one mount's plunger.
	OpHomePlunger

	// OpAspirate draws liquid.
	OpAspirate

	// OpDispense expels liquid.
	OpDispense

	// OpBlowOut expels everything, including the residual air cushion.
	OpBlowOut

	// OpPickUpTip presses onto a tip at the current position.
	OpPickUpTip

	// OpDropTip ejects the attached tip.
	OpDropTip
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpCacheInstruments:
		return "CACHE_INSTRUMENTS"
	case OpMoveTo:
		return "MOVE_TO"
	case OpHome:
		return "HOME"
	case OpHomePlunger:
		return "HOME_PLUNGER"
	case OpAspirate:
		return "ASPIRATE"
	case OpDispense:
		return "DISPENSE"
	case OpBlowOut:
		return "BLOW_OUT"
	case OpPickUpTip:
		return "PICK_UP_TIP"
	case OpDropTip:
		return "DROP_TIP"
	default:
		return fmt.Sprintf("OP(%d)", uint8(o))
	}
}

// Command is one unit of work for the driver.
type Command struct {
	// ID correlates the command with its Result.
	ID uint32

	// Op is the operation to perform.
	Op Op

	// Mount is the target mount. Unused by OpCacheInstruments and OpHome.
	Mount types.Mount

	// Payload carries operation parameters; see the *Payload types.
	Payload any
}

// CachePayload is the OpCacheInstruments payload. A nil Requested refreshes
// the cache from what is physically attached.
type CachePayload struct {
	Requested map[types.Mount]string
}

// MovePayload is the OpMoveTo payload. A zero Speed uses the default.
type MovePayload struct {
	Point types.Point
	Speed float64
}

// HomePayload is the OpHome payload. Empty Mounts homes every axis.
type HomePayload struct {
	Mounts []types.Mount
}

// PlungerPayload is the OpAspirate/OpDispense payload.
type PlungerPayload struct {
	// Volume in µL.
	Volume float64

	// FlowRate in µL/s.
	FlowRate float64
}

// PickUpPayload is the OpPickUpTip payload.
type PickUpPayload struct {
	Presses   int
	Increment float64
	Current   float64
	TipLength float64
}

// Result is the outcome of a command.
type Result struct {
	CommandID uint32
	Err       error
}

// String describes the command for logs.
func (c *Command) String() string {
	switch p := c.Payload.(type) {
	case *MovePayload:
		return fmt.Sprintf("#%d %s %s %s", c.ID, c.Op, c.Mount, p.Point)
	case *PlungerPayload:
		return fmt.Sprintf("#%d %s %s %.2fuL @ %.2fuL/s", c.ID, c.Op, c.Mount, p.Volume, p.FlowRate)
	case *CachePayload:
		return fmt.Sprintf("#%d %s %v", c.ID, c.Op, p.Requested)
	case *HomePayload:
		return fmt.Sprintf("#%d %s %v", c.ID, c.Op, p.Mounts)
	default:
		return fmt.Sprintf("#%d %s %s", c.ID, c.Op, c.Mount)
	}
}
