package protocol

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/labrobot/labrobot-go/pkg/driver"
	"github.com/labrobot/labrobot-go/pkg/labware"
	runlog "github.com/labrobot/labrobot-go/pkg/log"
	"github.com/labrobot/labrobot-go/pkg/pipette"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// Defaults for the liquid-handling primitives.
const (
	DefaultRate           = 1.0
	DefaultTouchTipRadius = 1.0
	DefaultTouchTipOffset = -1.0
	DefaultTouchTipSpeed  = 60.0
	MaxTouchTipSpeed      = 80.0
	DefaultPresses        = 3
	DefaultPressIncrement = 1.0
	DefaultAirGapHeight   = 5.0
)

// volumeTolerance absorbs floating-point drift in volume accounting.
const volumeTolerance = 1e-6

// State is the tip lifecycle state of an instrument.
type State uint8

const (
	// StateUnconfigured is an instrument that is not bound to a mount,
	// either because its mount was reloaded or the run was torn down.
	StateUnconfigured State = iota

	// StateIdle is a bound instrument without a tip.
	StateIdle

	// StateTipped is a bound instrument carrying a tip.
	StateTipped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "UNCONFIGURED"
	case StateIdle:
		return "IDLE"
	case StateTipped:
		return "TIPPED"
	default:
		return "UNKNOWN"
	}
}

// InstrumentContext is the command surface of one pipette on one mount.
// Instances are created by ProtocolContext.LoadInstrument. Commands must come
// from a single flow of control; the state accessors and Status may be
// called from any goroutine.
type InstrumentContext struct {
	proto *ProtocolContext
	mount types.Mount
	info  driver.InstrumentInfo
	model pipette.Config

	aspirateFlowRate float64
	dispenseFlowRate float64
	pickUpCurrent    float64
	tipRacks         []*labware.Labware
	trash            *labware.Labware

	// usedTips holds the start wells picked up during the running composite
	// operation. Auto-selection skips them even when they were returned.
	usedTips map[*labware.Well]bool

	// mu guards the runtime state below. The command flow writes it under mu
	// and may read it without.
	mu       sync.Mutex
	bound    bool
	location labware.Location
	volume   float64
	hasTip   bool
	tipWell  *labware.Well
}

// Status is a consistent snapshot of an instrument's runtime state.
type Status struct {
	Name     string
	Mount    types.Mount
	State    State
	Volume   float64
	Location labware.Location
}

func newInstrumentContext(p *ProtocolContext, mount types.Mount, info driver.InstrumentInfo, model pipette.Config) *InstrumentContext {
	return &InstrumentContext{
		proto:            p,
		mount:            mount,
		info:             info,
		model:            model,
		bound:            true,
		aspirateFlowRate: model.AspirateFlowRate,
		dispenseFlowRate: model.DispenseFlowRate,
		pickUpCurrent:    model.PickUpCurrent,
		trash:            p.trash,
	}
}

// Mount returns the mount the instrument was loaded on.
func (i *InstrumentContext) Mount() types.Mount { return i.mount }

// Name is the driver-reported model family, e.g. "p300_single".
func (i *InstrumentContext) Name() string { return i.info.Name }

// Model is the driver-reported versioned model.
func (i *InstrumentContext) Model() string { return i.info.Model }

// Channels is the number of channels.
func (i *InstrumentContext) Channels() int { return i.info.Channels }

// Type is the channel layout.
func (i *InstrumentContext) Type() pipette.Type { return pipette.TypeForChannels(i.info.Channels) }

// MaxVolume is the largest single aspiration, in µL.
func (i *InstrumentContext) MaxVolume() float64 { return i.model.MaxVolume }

// CurrentVolume is the liquid currently held, in µL.
func (i *InstrumentContext) CurrentVolume() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.volume
}

// HasTip reports whether a tip is attached.
func (i *InstrumentContext) HasTip() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hasTip
}

// Location is where the instrument last moved to. The zero Location means
// the position is unknown, for example after homing.
func (i *InstrumentContext) Location() labware.Location {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.location
}

// State returns the tip lifecycle state.
func (i *InstrumentContext) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state()
}

// Status returns the runtime state in one snapshot.
func (i *InstrumentContext) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Status{
		Name:     i.info.Name,
		Mount:    i.mount,
		State:    i.state(),
		Volume:   i.volume,
		Location: i.location,
	}
}

func (i *InstrumentContext) state() State {
	switch {
	case !i.bound:
		return StateUnconfigured
	case i.hasTip:
		return StateTipped
	default:
		return StateIdle
	}
}

func (i *InstrumentContext) String() string {
	return fmt.Sprintf("%s on %s", i.info.Name, i.mount)
}

func (i *InstrumentContext) unbind() {
	i.update(func() { i.bound = false })
}

func (i *InstrumentContext) resetRuntime() {
	i.update(func() {
		i.location = labware.Location{}
		i.volume = 0
		i.hasTip = false
		i.tipWell = nil
	})
}

func (i *InstrumentContext) update(fn func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	fn()
}

func (i *InstrumentContext) setLocation(loc labware.Location) {
	i.update(func() { i.location = loc })
}

func (i *InstrumentContext) checkBound() error {
	if !i.bound {
		return fmt.Errorf("%w: %s", ErrInstrumentUnbound, i)
	}
	return nil
}

func (i *InstrumentContext) requireTip(op string) error {
	if err := i.checkBound(); err != nil {
		return err
	}
	if !i.hasTip {
		return fmt.Errorf("%w: %s on %s", ErrNoTipAttached, op, i)
	}
	return nil
}

func (i *InstrumentContext) checkVolume(volume float64) error {
	if math.IsNaN(volume) || volume <= 0 || volume > i.model.MaxVolume+volumeTolerance {
		return fmt.Errorf("%w: %.2fuL not in (0, %.2f] for %s", ErrVolumeOutOfRange, volume, i.model.MaxVolume, i.info.Name)
	}
	return nil
}

func checkRate(rate float64) error {
	if math.IsNaN(rate) || rate <= 0 {
		return fmt.Errorf("%w: rate %g must be positive", ErrInvalidArgument, rate)
	}
	return nil
}

// moveTo moves to loc unless loc is zero. Moves within the labware the
// instrument is already over go direct; everything else arcs.
func (i *InstrumentContext) moveTo(ctx context.Context, loc labware.Location) error {
	if loc.IsZero() {
		return nil
	}
	strategy := types.MotionArc
	if loc.Labware != nil && loc.Labware == i.location.Labware {
		strategy = types.MotionDirect
	}
	return i.proto.moveTo(ctx, i.mount, loc, strategy, 0)
}

func (i *InstrumentContext) fail(op string, err error) error {
	i.proto.logError(i.mount, op, err)
	return err
}

func (i *InstrumentContext) logCommand(name string, volume float64, loc labware.Location, rate float64, start time.Time) {
	where := loc
	if where.IsZero() {
		where = i.location
	}
	ev := &runlog.CommandEvent{Name: name, Volume: volume, Rate: rate, Duration: time.Since(start)}
	if !where.IsZero() {
		ev.Location = where.String()
	}
	i.proto.logCommand(i.mount, ev)
}

func (i *InstrumentContext) logTipState(oldState State, reason string) {
	i.proto.logState(runlog.StateEntityInstrument, i.mount, oldState.String(), i.State().String(), reason)
}

// Aspirate draws volume µL at loc (or the current position when loc is zero)
// at rate times the configured aspirate flow rate.
func (i *InstrumentContext) Aspirate(ctx context.Context, volume float64, loc labware.Location, rate float64) error {
	const op = "aspirate"
	if err := i.requireTip(op); err != nil {
		return i.fail(op, err)
	}
	if err := i.checkVolume(volume); err != nil {
		return i.fail(op, err)
	}
	if err := checkRate(rate); err != nil {
		return i.fail(op, err)
	}
	if i.volume+volume > i.model.MaxVolume+volumeTolerance {
		return i.fail(op, fmt.Errorf("%w: holding %.2fuL, cannot draw %.2fuL more (max %.2f)",
			ErrVolumeOutOfRange, i.volume, volume, i.model.MaxVolume))
	}

	start := time.Now()
	if err := i.moveTo(ctx, loc); err != nil {
		return err
	}
	payload := &driver.PlungerPayload{Volume: volume, FlowRate: i.aspirateFlowRate * rate}
	if err := i.proto.execute(ctx, driver.OpAspirate, i.mount, payload); err != nil {
		return i.fail(op, err)
	}
	i.update(func() { i.volume += volume })
	i.logCommand(op, volume, loc, rate, start)
	return nil
}

// Dispense expels volume µL at loc (or the current position when loc is
// zero) at rate times the configured dispense flow rate.
func (i *InstrumentContext) Dispense(ctx context.Context, volume float64, loc labware.Location, rate float64) error {
	const op = "dispense"
	if err := i.requireTip(op); err != nil {
		return i.fail(op, err)
	}
	if err := i.checkVolume(volume); err != nil {
		return i.fail(op, err)
	}
	if err := checkRate(rate); err != nil {
		return i.fail(op, err)
	}
	if volume > i.volume+volumeTolerance {
		return i.fail(op, fmt.Errorf("%w: dispensing %.2fuL but holding %.2fuL", ErrVolumeOutOfRange, volume, i.volume))
	}

	start := time.Now()
	if err := i.moveTo(ctx, loc); err != nil {
		return err
	}
	payload := &driver.PlungerPayload{Volume: volume, FlowRate: i.dispenseFlowRate * rate}
	if err := i.proto.execute(ctx, driver.OpDispense, i.mount, payload); err != nil {
		return i.fail(op, err)
	}
	i.update(func() { i.volume = math.Max(0, i.volume-volume) })
	i.logCommand(op, volume, loc, rate, start)
	return nil
}

// Mix runs repetitions aspirate/dispense cycles of volume µL at loc. A zero
// volume mixes with whatever the tip can still take.
func (i *InstrumentContext) Mix(ctx context.Context, repetitions int, volume float64, loc labware.Location, rate float64) error {
	const op = "mix"
	if err := i.requireTip(op); err != nil {
		return i.fail(op, err)
	}
	if repetitions < 1 {
		return i.fail(op, fmt.Errorf("%w: repetitions %d < 1", ErrInvalidArgument, repetitions))
	}
	if volume == 0 {
		volume = i.model.MaxVolume - i.volume
	}
	if err := i.checkVolume(volume); err != nil {
		return i.fail(op, err)
	}
	if i.volume+volume > i.model.MaxVolume+volumeTolerance {
		return i.fail(op, fmt.Errorf("%w: holding %.2fuL, cannot mix %.2fuL", ErrVolumeOutOfRange, i.volume, volume))
	}
	if err := checkRate(rate); err != nil {
		return i.fail(op, err)
	}

	if err := i.moveTo(ctx, loc); err != nil {
		return err
	}
	for n := 0; n < repetitions; n++ {
		if err := i.Aspirate(ctx, volume, labware.Location{}, rate); err != nil {
			return err
		}
		if err := i.Dispense(ctx, volume, labware.Location{}, rate); err != nil {
			return err
		}
	}
	return nil
}

// BlowOut expels everything left in the tip at loc.
func (i *InstrumentContext) BlowOut(ctx context.Context, loc labware.Location) error {
	const op = "blow_out"
	if err := i.requireTip(op); err != nil {
		return i.fail(op, err)
	}

	start := time.Now()
	if err := i.moveTo(ctx, loc); err != nil {
		return err
	}
	if err := i.proto.execute(ctx, driver.OpBlowOut, i.mount, nil); err != nil {
		return i.fail(op, err)
	}
	expelled := i.volume
	i.update(func() { i.volume = 0 })
	i.logCommand(op, expelled, loc, 0, start)
	return nil
}

// TouchTip touches the tip against the four walls of the well at loc (or the
// current well), radius scaled in (0, 1], vOffset mm from the well top.
func (i *InstrumentContext) TouchTip(ctx context.Context, loc labware.Location, radius, vOffset, speed float64) error {
	const op = "touch_tip"
	if err := i.requireTip(op); err != nil {
		return i.fail(op, err)
	}
	if math.IsNaN(radius) || radius <= 0 || radius > 1 {
		return i.fail(op, fmt.Errorf("%w: radius %g not in (0, 1]", ErrInvalidArgument, radius))
	}
	if math.IsNaN(speed) || speed <= 0 || speed > MaxTouchTipSpeed {
		return i.fail(op, fmt.Errorf("%w: speed %g not in (0, %g]", ErrInvalidArgument, speed, MaxTouchTipSpeed))
	}
	well := loc.Well
	if well == nil {
		well = i.location.Well
	}
	if well == nil {
		return i.fail(op, fmt.Errorf("%w: touch_tip needs a well", ErrNoLocation))
	}

	start := time.Now()
	if err := i.moveTo(ctx, well.Top(vOffset)); err != nil {
		return err
	}
	for _, edge := range well.Edges(radius, vOffset) {
		if err := i.proto.moveTo(ctx, i.mount, edge, types.MotionDirect, speed); err != nil {
			return err
		}
	}
	if err := i.proto.moveTo(ctx, i.mount, well.Top(vOffset), types.MotionDirect, speed); err != nil {
		return err
	}
	i.logCommand(op, 0, well.Top(vOffset), speed, start)
	return nil
}

// AirGap draws volume µL of air height mm above the current well.
func (i *InstrumentContext) AirGap(ctx context.Context, volume, height float64) error {
	const op = "air_gap"
	if err := i.requireTip(op); err != nil {
		return i.fail(op, err)
	}
	if err := i.checkVolume(volume); err != nil {
		return i.fail(op, err)
	}
	if i.volume+volume > i.model.MaxVolume+volumeTolerance {
		return i.fail(op, fmt.Errorf("%w: holding %.2fuL, no room for %.2fuL of air", ErrVolumeOutOfRange, i.volume, volume))
	}
	if math.IsNaN(height) || height < 0 {
		return i.fail(op, fmt.Errorf("%w: height %g must not be negative", ErrInvalidArgument, height))
	}
	well := i.location.Well
	if well == nil {
		return i.fail(op, fmt.Errorf("%w: air_gap needs a current well", ErrNoLocation))
	}

	start := time.Now()
	target := well.Top(height)
	if err := i.proto.moveTo(ctx, i.mount, target, types.MotionDirect, 0); err != nil {
		return err
	}
	payload := &driver.PlungerPayload{Volume: volume, FlowRate: i.aspirateFlowRate}
	if err := i.proto.execute(ctx, driver.OpAspirate, i.mount, payload); err != nil {
		return i.fail(op, err)
	}
	i.update(func() { i.volume += volume })
	i.logCommand(op, volume, target, 0, start)
	return nil
}

// PickUpTip picks up a tip from loc, or from the next available tip in the
// configured tip racks when loc is zero. Each of presses press-and-retract
// cycles goes increment mm deeper than the last.
func (i *InstrumentContext) PickUpTip(ctx context.Context, loc labware.Location, presses int, increment float64) error {
	const op = "pick_up_tip"
	if err := i.checkBound(); err != nil {
		return i.fail(op, err)
	}
	if i.hasTip {
		return i.fail(op, fmt.Errorf("%w: %s", ErrTipAlreadyAttached, i))
	}
	if presses < 1 {
		return i.fail(op, fmt.Errorf("%w: presses %d < 1", ErrInvalidArgument, presses))
	}
	if math.IsNaN(increment) || increment < 0 {
		return i.fail(op, fmt.Errorf("%w: increment %g must not be negative", ErrInvalidArgument, increment))
	}

	well := loc.Well
	switch {
	case well == nil && !loc.IsZero():
		return i.fail(op, fmt.Errorf("%w: pick_up_tip needs a tip-rack well", ErrNoLocation))
	case well == nil:
		well = i.nextTip()
		if well == nil {
			return i.fail(op, fmt.Errorf("%w: %d tip rack(s) exhausted for %s", ErrNoTipAvailable, len(i.tipRacks), i))
		}
	case !well.Labware().CanPickUp(well, i.info.Channels):
		return i.fail(op, fmt.Errorf("%w: no tip for %d channel(s) at %s", ErrNoTipAvailable, i.info.Channels, well))
	}

	start := time.Now()
	target := well.Top(0)
	if err := i.moveTo(ctx, target); err != nil {
		return err
	}
	tipLength := well.Labware().TipLength()
	if tipLength == 0 {
		tipLength = i.model.TipLength
	}
	payload := &driver.PickUpPayload{
		Presses:   presses,
		Increment: increment,
		Current:   i.pickUpCurrent,
		TipLength: tipLength,
	}
	if err := i.proto.execute(ctx, driver.OpPickUpTip, i.mount, payload); err != nil {
		return i.fail(op, err)
	}

	well.Labware().UseTips(well, i.info.Channels)
	if i.usedTips != nil {
		i.usedTips[well] = true
	}
	i.update(func() {
		i.hasTip = true
		i.tipWell = well
		i.volume = 0
	})
	i.logCommand(op, 0, target, 0, start)
	i.logTipState(StateIdle, "picked up "+well.String())
	return nil
}

func (i *InstrumentContext) nextTip() *labware.Well {
	var skip func(*labware.Well) bool
	if i.usedTips != nil {
		skip = func(w *labware.Well) bool { return i.usedTips[w] }
	}
	for _, rack := range i.tipRacks {
		if w := rack.NextTipSkipping(i.info.Channels, skip); w != nil {
			return w
		}
	}
	return nil
}

// DropTip ejects the tip at loc, or into the trash container when loc is
// zero. Dropping into a tip-rack well makes that tip available again. With
// homeAfter the plunger is homed afterwards.
func (i *InstrumentContext) DropTip(ctx context.Context, loc labware.Location, homeAfter bool) error {
	const op = "drop_tip"
	if err := i.requireTip(op); err != nil {
		return i.fail(op, err)
	}
	if loc.IsZero() {
		if i.trash == nil {
			return i.fail(op, fmt.Errorf("%w: no trash container configured", ErrNoLocation))
		}
		loc = i.trash.Wells()[0].Top(0)
	}

	start := time.Now()
	if err := i.moveTo(ctx, loc); err != nil {
		return err
	}
	if err := i.proto.execute(ctx, driver.OpDropTip, i.mount, nil); err != nil {
		return i.fail(op, err)
	}
	if loc.Well != nil && loc.Well.Labware().IsTiprack() {
		loc.Well.Labware().ReturnTips(loc.Well, i.info.Channels)
	}
	i.update(func() {
		i.hasTip = false
		i.tipWell = nil
		i.volume = 0
	})
	i.logCommand(op, 0, loc, 0, start)
	i.logTipState(StateTipped, "dropped at "+loc.String())

	if homeAfter {
		if err := i.proto.execute(ctx, driver.OpHomePlunger, i.mount, nil); err != nil {
			return i.fail(op, err)
		}
	}
	return nil
}

// ReturnTip puts the tip back into the tip-rack well it came from.
func (i *InstrumentContext) ReturnTip(ctx context.Context, homeAfter bool) error {
	if err := i.requireTip("return_tip"); err != nil {
		return i.fail("return_tip", err)
	}
	if i.tipWell == nil {
		return i.fail("return_tip", fmt.Errorf("%w: tip origin unknown", ErrNoLocation))
	}
	return i.DropTip(ctx, i.tipWell.Top(0), homeAfter)
}

// Home homes the robot and returns the instrument for chaining.
func (i *InstrumentContext) Home(ctx context.Context) (*InstrumentContext, error) {
	if err := i.checkBound(); err != nil {
		return i, i.fail("home", err)
	}
	return i, i.proto.Home(ctx)
}

// MoveTo moves this instrument's mount to loc and returns the instrument for
// chaining.
func (i *InstrumentContext) MoveTo(ctx context.Context, loc labware.Location, strategy types.MotionStrategy) (*InstrumentContext, error) {
	if err := i.checkBound(); err != nil {
		return i, i.fail("move_to", err)
	}
	return i, i.proto.MoveTo(ctx, i.mount, loc, strategy)
}
