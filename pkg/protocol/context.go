package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/labrobot/labrobot-go/pkg/deck"
	"github.com/labrobot/labrobot-go/pkg/driver"
	"github.com/labrobot/labrobot-go/pkg/labware"
	runlog "github.com/labrobot/labrobot-go/pkg/log"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// ArcClearance is how far above the higher endpoint an arc move travels.
const ArcClearance = 20.0

// LabwareOptions tunes LoadLabware.
type LabwareOptions struct {
	// Label names the labware for scripts. Defaults to the definition name.
	Label string

	// Share allows stacking onto an occupied slot.
	Share bool
}

// InstrumentSlots holds at most one instrument per mount.
type InstrumentSlots struct {
	Left  *InstrumentContext
	Right *InstrumentContext
}

// Get returns the instrument bound to m, or nil.
func (s InstrumentSlots) Get(m types.Mount) *InstrumentContext {
	switch m {
	case types.MountLeft:
		return s.Left
	case types.MountRight:
		return s.Right
	}
	return nil
}

func (s *InstrumentSlots) set(m types.Mount, inst *InstrumentContext) {
	switch m {
	case types.MountLeft:
		s.Left = inst
	case types.MountRight:
		s.Right = inst
	}
}

// ProtocolContext is the root of a protocol run. It owns the deck and the
// instrument slots and is the only component that talks to the driver.
type ProtocolContext struct {
	cfg    Config
	runID  string
	logger *slog.Logger
	events runlog.Logger
	deck   *deck.Deck
	trash  *labware.Labware
	gate   *pauseGate
	nextID atomic.Uint32

	mu          sync.Mutex
	driver      driver.Driver
	instruments InstrumentSlots
	positions   map[types.Mount]types.Point
}

// New creates a ProtocolContext. Without a configured driver the context
// starts on a fresh simulator.
func New(cfg Config) (*ProtocolContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &ProtocolContext{
		cfg:       cfg,
		runID:     uuid.New().String(),
		logger:    cfg.Logger,
		events:    cfg.EventLogger,
		deck:      deck.New(),
		gate:      newPauseGate(),
		driver:    cfg.Driver,
		positions: make(map[types.Mount]types.Point),
	}
	if p.events == nil {
		p.events = runlog.NoopLogger{}
	}
	if p.driver == nil {
		sim, err := p.newSimulator()
		if err != nil {
			return nil, err
		}
		p.driver = sim
	}

	if cfg.FixedTrash != "" {
		trash, err := p.LoadLabwareByName(cfg.FixedTrash, deck.FixedTrashSlot, LabwareOptions{Label: "trash"})
		if err != nil {
			return nil, fmt.Errorf("fixed trash: %w", err)
		}
		p.trash = trash
	}

	p.logState(runlog.StateEntityRun, 0, "", "CREATED", "")
	return p, nil
}

// RunID returns the unique ID of this run.
func (p *ProtocolContext) RunID() string { return p.runID }

// Deck returns the deck model.
func (p *ProtocolContext) Deck() *deck.Deck { return p.deck }

// Trash returns the fixed trash, or nil if none was loaded.
func (p *ProtocolContext) Trash() *labware.Labware { return p.trash }

// Driver returns the active driver.
func (p *ProtocolContext) Driver() driver.Driver {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.driver
}

// Connect makes d the active driver, closes the previous one, and refreshes
// the driver's instrument cache before returning. Instruments already loaded
// are re-requested on d first; if d rejects them the previous driver stays
// active, nothing changes, and d is left open. After a successful connect the
// loaded instruments start without a tip.
func (p *ProtocolContext) Connect(ctx context.Context, d driver.Driver) error {
	if d == nil {
		return fmt.Errorf("%w: nil driver", ErrInvalidArgument)
	}

	slots := p.Instruments()
	requested := make(map[types.Mount]string)
	for _, m := range types.Mounts {
		if inst := slots.Get(m); inst != nil {
			requested[m] = inst.info.Name
		}
	}

	if err := p.executeOn(ctx, d, driver.OpCacheInstruments, 0, &driver.CachePayload{}); err != nil {
		p.logError(0, "connect", err)
		return err
	}
	if len(requested) > 0 {
		if err := p.executeOn(ctx, d, driver.OpCacheInstruments, 0, &driver.CachePayload{Requested: requested}); err != nil {
			p.logError(0, "connect", err)
			return err
		}
	}

	p.mu.Lock()
	old := p.driver
	p.driver = d
	p.positions = make(map[types.Mount]types.Point)
	p.mu.Unlock()

	for _, m := range types.Mounts {
		if inst := slots.Get(m); inst != nil {
			inst.resetRuntime()
		}
	}
	if old != nil && old != d {
		if err := old.Close(); err != nil && p.logger != nil {
			p.logger.Warn("closing previous driver", "error", err)
		}
	}

	p.logState(runlog.StateEntityDriver, 0, "", "CONNECTED", fmt.Sprintf("%T", d))
	return nil
}

// Disconnect switches to a fresh simulator. The context stays fully usable.
func (p *ProtocolContext) Disconnect(ctx context.Context) error {
	sim, err := p.newSimulator()
	if err != nil {
		return err
	}
	if err := p.Connect(ctx, sim); err != nil {
		_ = sim.Close()
		return err
	}
	return nil
}

func (p *ProtocolContext) newSimulator() (*driver.Simulator, error) {
	return driver.NewSimulator(driver.SimulatorConfig{
		Catalog: p.cfg.Catalog,
		Logger:  p.logger,
	})
}

// LoadLabware places lw at slot and returns it. An occupied slot fails with
// ErrLocationOccupied unless opts.Share is set; nothing changes on failure.
func (p *ProtocolContext) LoadLabware(lw *labware.Labware, slot deck.Slot, opts LabwareOptions) (*labware.Labware, error) {
	if lw == nil {
		return nil, fmt.Errorf("%w: nil labware", ErrInvalidArgument)
	}
	// The label is set before the labware becomes visible on the deck.
	prev := lw.Label()
	if opts.Label != "" {
		lw.SetLabel(opts.Label)
	}
	if err := p.deck.Place(slot, lw, opts.Share); err != nil {
		lw.SetLabel(prev)
		p.logError(0, "load_labware", err)
		return nil, err
	}
	p.logState(runlog.StateEntityDeck, 0, "", "LOADED", fmt.Sprintf("%s in slot %s", lw, slot))
	return lw, nil
}

// LoadLabwareByName resolves name through the configured loader and loads
// the result. Unresolved names fail with ErrUnknownLabware.
func (p *ProtocolContext) LoadLabwareByName(name string, slot deck.Slot, opts LabwareOptions) (*labware.Labware, error) {
	def, err := p.cfg.Loader.Load(name)
	if err != nil {
		p.logError(0, "load_labware", err)
		return nil, err
	}
	return p.LoadLabware(labware.New(def), slot, opts)
}

// LoadedLabwares returns the topmost labware of every occupied slot,
// ordered by slot.
func (p *ProtocolContext) LoadedLabwares() []deck.Placement {
	return p.deck.Snapshot()
}

// LabwareAt returns every labware stacked at slot, bottom first.
func (p *ProtocolContext) LabwareAt(slot deck.Slot) []*labware.Labware {
	return p.deck.At(slot)
}

// LoadInstrument binds a pipette named name to mount. The driver validates
// the request against what is physically attached; a contradiction fails
// with ErrInstrumentMismatch. Loading the same instrument again returns the
// existing context. Loading a different one invalidates the old context; it
// fails with ErrTipAlreadyAttached while the old context still carries a tip.
func (p *ProtocolContext) LoadInstrument(ctx context.Context, name string, mount types.Mount) (*InstrumentContext, error) {
	if !mount.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMount, uint8(mount))
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty instrument name", ErrInvalidArgument)
	}

	if prev := p.Instrument(mount); prev != nil && prev.HasTip() && prev.info.Name != name && prev.info.Model != name {
		err := fmt.Errorf("%w: drop the tip of %s before loading %s", ErrTipAlreadyAttached, prev, name)
		p.logError(mount, "load_instrument", err)
		return nil, err
	}

	d := p.Driver()
	requested := make(map[types.Mount]string)
	for m, info := range d.AttachedInstruments() {
		requested[m] = info.Name
	}
	requested[mount] = name

	if err := p.execute(ctx, driver.OpCacheInstruments, 0, &driver.CachePayload{Requested: requested}); err != nil {
		p.logError(mount, "load_instrument", err)
		return nil, err
	}

	info, ok := d.AttachedInstruments()[mount]
	if !ok || (info.Name != name && info.Model != name) {
		err := fmt.Errorf("%w: mount %s reports %q, requested %q", ErrInstrumentMismatch, mount, info.Name, name)
		p.logError(mount, "load_instrument", err)
		return nil, err
	}
	model, err := p.cfg.Catalog.Lookup(info.Name)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInstrumentMismatch, err)
		p.logError(mount, "load_instrument", err)
		return nil, err
	}

	p.mu.Lock()
	existing := p.instruments.Get(mount)
	if existing != nil && existing.info == info {
		p.mu.Unlock()
		return existing, nil
	}
	inst := newInstrumentContext(p, mount, info, model)
	p.instruments.set(mount, inst)
	p.mu.Unlock()

	if existing != nil {
		existing.unbind()
		p.logState(runlog.StateEntityInstrument, mount, existing.State().String(), StateUnconfigured.String(), "replaced by "+info.Name)
	}
	p.logState(runlog.StateEntityInstrument, mount, "", inst.State().String(), "loaded "+info.Name)
	if p.logger != nil {
		p.logger.Info("instrument loaded", "mount", mount, "name", info.Name, "model", info.Model)
	}
	return inst, nil
}

// Instruments returns the current mount slots.
func (p *ProtocolContext) Instruments() InstrumentSlots {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instruments
}

// Instrument returns the instrument bound to mount, or nil.
func (p *ProtocolContext) Instrument(mount types.Mount) *InstrumentContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instruments.Get(mount)
}

// Pause blocks until Resume is called or ctx is done.
func (p *ProtocolContext) Pause(ctx context.Context) error {
	p.RequestPause()
	return p.gate.wait(ctx)
}

// RequestPause arms the pause gate without blocking. The run stops before
// its next driver command.
func (p *ProtocolContext) RequestPause() {
	if p.gate.arm() {
		p.logState(runlog.StateEntityRun, 0, "RUNNING", "PAUSED", "")
	}
}

// Resume releases a pause. Without a pending pause it does nothing.
func (p *ProtocolContext) Resume() {
	if p.gate.release() {
		p.logState(runlog.StateEntityRun, 0, "PAUSED", "RUNNING", "")
	}
}

// IsPaused reports whether the pause gate is armed.
func (p *ProtocolContext) IsPaused() bool {
	return p.gate.isArmed()
}

// Comment forwards msg to the run log.
func (p *ProtocolContext) Comment(msg string) {
	p.emit(runlog.Event{
		Category: runlog.CategoryComment,
		Comment:  &runlog.CommentEvent{Message: msg},
	})
	if p.logger != nil {
		p.logger.Info(msg, "run_id", p.runID)
	}
}

// MoveTo drives mount to loc. Arc moves rise above both endpoints before
// travelling; direct moves go straight.
func (p *ProtocolContext) MoveTo(ctx context.Context, mount types.Mount, loc labware.Location, strategy types.MotionStrategy) error {
	return p.moveTo(ctx, mount, loc, strategy, 0)
}

func (p *ProtocolContext) moveTo(ctx context.Context, mount types.Mount, loc labware.Location, strategy types.MotionStrategy, speed float64) error {
	if !mount.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMount, uint8(mount))
	}
	if loc.IsZero() {
		return fmt.Errorf("%w: move_to needs a target", ErrNoLocation)
	}

	start := time.Now()
	for _, wp := range p.waypoints(mount, loc.Point, strategy) {
		if err := p.execute(ctx, driver.OpMoveTo, mount, &driver.MovePayload{Point: wp, Speed: speed}); err != nil {
			p.logError(mount, "move_to", err)
			return err
		}
		p.mu.Lock()
		p.positions[mount] = wp
		p.mu.Unlock()
	}

	if inst := p.Instrument(mount); inst != nil {
		inst.setLocation(loc)
	}
	p.logCommand(mount, &runlog.CommandEvent{
		Name:     "move_to",
		Location: loc.String(),
		Rate:     speed,
		Duration: time.Since(start),
	})
	return nil
}

func (p *ProtocolContext) waypoints(mount types.Mount, target types.Point, strategy types.MotionStrategy) []types.Point {
	if strategy == types.MotionDirect {
		return []types.Point{target}
	}

	p.mu.Lock()
	cur, known := p.positions[mount]
	p.mu.Unlock()

	if !known {
		return []types.Point{target.WithZ(target.Z + ArcClearance), target}
	}
	z := math.Max(cur.Z, target.Z) + ArcClearance
	return []types.Point{cur.WithZ(z), target.WithZ(z), target}
}

// Home homes every axis. It is safe to call at any time and repeatedly.
func (p *ProtocolContext) Home(ctx context.Context) error {
	start := time.Now()
	if err := p.execute(ctx, driver.OpHome, 0, &driver.HomePayload{}); err != nil {
		p.logError(0, "home", err)
		return err
	}

	p.mu.Lock()
	p.positions = make(map[types.Mount]types.Point)
	slots := p.instruments
	p.mu.Unlock()
	for _, m := range types.Mounts {
		if inst := slots.Get(m); inst != nil {
			inst.setLocation(labware.Location{})
		}
	}

	p.logCommand(0, &runlog.CommandEvent{Name: "home", Duration: time.Since(start)})
	return nil
}

// Close ends the run and closes the driver.
func (p *ProtocolContext) Close() error {
	p.gate.release()
	err := p.Driver().Close()
	p.logState(runlog.StateEntityRun, 0, "", "CLOSED", "")
	return err
}

func (p *ProtocolContext) emit(ev runlog.Event) {
	ev.Timestamp = time.Now()
	ev.RunID = p.runID
	p.events.Log(ev)
}

func (p *ProtocolContext) logCommand(mount types.Mount, cmd *runlog.CommandEvent) {
	p.emit(runlog.Event{Category: runlog.CategoryCommand, Mount: mount, Command: cmd})
}

func (p *ProtocolContext) logState(entity runlog.StateEntity, mount types.Mount, oldState, newState, reason string) {
	p.emit(runlog.Event{
		Category: runlog.CategoryState,
		Mount:    mount,
		StateChange: &runlog.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (p *ProtocolContext) logError(mount types.Mount, command string, err error) {
	p.emit(runlog.Event{
		Category: runlog.CategoryError,
		Mount:    mount,
		Error: &runlog.ErrorEventData{
			Command: command,
			Kind:    errorKind(err),
			Message: err.Error(),
		},
	})
	if p.logger != nil {
		p.logger.Warn("operation failed", "command", command, "mount", mount, "error", err)
	}
}

func (p *ProtocolContext) debugLog(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
