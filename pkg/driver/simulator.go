package driver

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/labrobot/labrobot-go/pkg/pipette"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// volumeTolerance absorbs floating-point noise in plunger bookkeeping.
const volumeTolerance = 1e-6

// HomePosition is where the simulator parks a homed mount.
var HomePosition = types.Point{X: 418, Y: 353, Z: 218}

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	// Attached maps mounts to the pipette model names physically present.
	// A mount absent from the map is empty and accepts any requested model.
	Attached map[types.Mount]string

	// Catalog resolves model names. Defaults to pipette.Default().
	Catalog *pipette.Catalog

	// Latency is added before each command completes.
	Latency time.Duration

	// QueueSize bounds the number of queued commands (default 64).
	QueueSize int

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

type job struct {
	cmd    *Command
	result chan Result
}

// Simulator is an in-process Driver without hardware.
type Simulator struct {
	id      string
	catalog *pipette.Catalog
	latency time.Duration
	logger  *slog.Logger

	queue chan job
	done  chan struct{}
	wg    sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	physical  map[types.Mount]InstrumentInfo
	cached    map[types.Mount]InstrumentInfo
	positions map[types.Mount]types.Point
	tips      map[types.Mount]bool
	volumes   map[types.Mount]float64
	homed     bool
	history   []Command
	faults    map[Op][]error
}

// NewSimulator creates and starts a simulator.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = pipette.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	physical := make(map[types.Mount]InstrumentInfo, len(cfg.Attached))
	for mount, name := range cfg.Attached {
		if !mount.Valid() {
			return nil, fmt.Errorf("%w: %d", types.ErrUnknownMount, uint8(mount))
		}
		info, err := lookupInfo(cfg.Catalog, name)
		if err != nil {
			return nil, err
		}
		physical[mount] = info
	}

	s := &Simulator{
		id:        uuid.New().String(),
		catalog:   cfg.Catalog,
		latency:   cfg.Latency,
		logger:    cfg.Logger,
		queue:     make(chan job, cfg.QueueSize),
		done:      make(chan struct{}),
		physical:  physical,
		cached:    copyInfo(physical),
		positions: make(map[types.Mount]types.Point),
		tips:      make(map[types.Mount]bool),
		volumes:   make(map[types.Mount]float64),
		faults:    make(map[Op][]error),
	}

	s.wg.Add(1)
	go s.run()
	return s, nil
}

// MustNewSimulator is NewSimulator for configurations known to be valid.
func MustNewSimulator(cfg SimulatorConfig) *Simulator {
	s, err := NewSimulator(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// ID returns the simulator session ID.
func (s *Simulator) ID() string { return s.id }

// AttachedInstruments returns the current instrument cache.
func (s *Simulator) AttachedInstruments() map[types.Mount]InstrumentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyInfo(s.cached)
}

// Submit queues cmd for execution.
func (s *Simulator) Submit(cmd *Command) (<-chan Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: simulator closed", ErrUnavailable)
	}

	j := job{cmd: cmd, result: make(chan Result, 1)}
	select {
	case s.queue <- j:
		return j.result, nil
	default:
		return nil, fmt.Errorf("%w: command queue full", ErrUnavailable)
	}
}

// Close stops the worker. Queued commands complete with ErrUnavailable.
// It is safe to call Close multiple times.
func (s *Simulator) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// FailNext makes the next command with op fail with err instead of running.
// Calls queue up: n calls fail the next n matching commands.
func (s *Simulator) FailNext(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], err)
}

// History returns a copy of every executed command, in execution order.
func (s *Simulator) History() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.history))
	copy(out, s.history)
	return out
}

// ResetHistory clears the command history.
func (s *Simulator) ResetHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Position returns the last commanded position of a mount.
func (s *Simulator) Position(mount types.Mount) types.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[mount]
}

// HasTip reports whether the simulated mount carries a tip.
func (s *Simulator) HasTip(mount types.Mount) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tips[mount]
}

// Volume returns the liquid held by the simulated mount, in µL.
func (s *Simulator) Volume(mount types.Mount) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volumes[mount]
}

// Homed reports whether a full home has completed.
func (s *Simulator) Homed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.homed
}

func (s *Simulator) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			s.drain()
			return
		case j := <-s.queue:
			if s.latency > 0 {
				select {
				case <-time.After(s.latency):
				case <-s.done:
					j.result <- Result{CommandID: j.cmd.ID, Err: fmt.Errorf("%w: simulator closed", ErrUnavailable)}
					s.drain()
					return
				}
			}
			err := s.execute(j.cmd)
			if s.logger != nil {
				s.logger.Debug("simulator command", "sim", s.id, "cmd", j.cmd.String(), "error", err)
			}
			j.result <- Result{CommandID: j.cmd.ID, Err: err}
		}
	}
}

func (s *Simulator) drain() {
	for {
		select {
		case j := <-s.queue:
			j.result <- Result{CommandID: j.cmd.ID, Err: fmt.Errorf("%w: simulator closed", ErrUnavailable)}
		default:
			return
		}
	}
}

func (s *Simulator) execute(cmd *Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if queued := s.faults[cmd.Op]; len(queued) > 0 {
		s.faults[cmd.Op] = queued[1:]
		return queued[0]
	}

	var err error
	switch cmd.Op {
	case OpCacheInstruments:
		err = s.cacheInstruments(cmd)
	case OpMoveTo:
		err = s.moveTo(cmd)
	case OpHome:
		err = s.home(cmd)
	case OpHomePlunger:
		_, err = s.instrument(cmd.Mount)
	case OpAspirate:
		err = s.aspirate(cmd)
	case OpDispense:
		err = s.dispense(cmd)
	case OpBlowOut:
		if _, err = s.instrument(cmd.Mount); err == nil {
			s.volumes[cmd.Mount] = 0
		}
	case OpPickUpTip:
		err = s.pickUpTip(cmd)
	case OpDropTip:
		err = s.dropTip(cmd)
	default:
		err = fmt.Errorf("%w: unsupported operation %s", ErrFault, cmd.Op)
	}

	if err == nil {
		s.history = append(s.history, *cmd)
	}
	return err
}

func (s *Simulator) cacheInstruments(cmd *Command) error {
	p, _ := cmd.Payload.(*CachePayload)
	if p == nil || p.Requested == nil {
		s.cached = copyInfo(s.physical)
		return nil
	}

	next := copyInfo(s.cached)
	for mount, name := range p.Requested {
		if !mount.Valid() {
			return fmt.Errorf("%w: %d", types.ErrUnknownMount, uint8(mount))
		}
		if name == "" {
			continue
		}
		if phys, ok := s.physical[mount]; ok {
			if phys.Name != name && phys.Model != name {
				return fmt.Errorf("%w: mount %s has %s attached, requested %s",
					ErrInstrumentMismatch, mount, phys.Name, name)
			}
			next[mount] = phys
			continue
		}
		info, err := lookupInfo(s.catalog, name)
		if err != nil {
			return fmt.Errorf("%w: mount %s: %v", ErrInstrumentMismatch, mount, err)
		}
		next[mount] = info
	}
	s.cached = next
	return nil
}

func (s *Simulator) moveTo(cmd *Command) error {
	if !cmd.Mount.Valid() {
		return fmt.Errorf("%w: move on invalid mount", ErrFault)
	}
	p, ok := cmd.Payload.(*MovePayload)
	if !ok {
		return fmt.Errorf("%w: move without target", ErrFault)
	}
	if p.Speed < 0 {
		return fmt.Errorf("%w: negative speed %g", ErrFault, p.Speed)
	}
	s.positions[cmd.Mount] = p.Point
	return nil
}

func (s *Simulator) home(cmd *Command) error {
	mounts := types.Mounts
	if p, ok := cmd.Payload.(*HomePayload); ok && len(p.Mounts) > 0 {
		mounts = p.Mounts
	}
	for _, m := range mounts {
		if !m.Valid() {
			return fmt.Errorf("%w: home on invalid mount", ErrFault)
		}
		s.positions[m] = HomePosition
	}
	if len(mounts) == len(types.Mounts) {
		s.homed = true
	}
	return nil
}

func (s *Simulator) aspirate(cmd *Command) error {
	info, err := s.instrument(cmd.Mount)
	if err != nil {
		return err
	}
	p, ok := cmd.Payload.(*PlungerPayload)
	if !ok || p.Volume <= 0 || p.FlowRate <= 0 {
		return fmt.Errorf("%w: invalid aspirate parameters", ErrFault)
	}
	if !s.tips[cmd.Mount] {
		return fmt.Errorf("%w: aspirate without tip on %s", ErrFault, cmd.Mount)
	}
	cfg, err := s.catalog.Lookup(info.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFault, err)
	}
	if s.volumes[cmd.Mount]+p.Volume > cfg.MaxVolume+volumeTolerance {
		return fmt.Errorf("%w: plunger over-travel on %s", ErrFault, cmd.Mount)
	}
	s.volumes[cmd.Mount] += p.Volume
	return nil
}

func (s *Simulator) dispense(cmd *Command) error {
	if _, err := s.instrument(cmd.Mount); err != nil {
		return err
	}
	p, ok := cmd.Payload.(*PlungerPayload)
	if !ok || p.Volume <= 0 || p.FlowRate <= 0 {
		return fmt.Errorf("%w: invalid dispense parameters", ErrFault)
	}
	held := s.volumes[cmd.Mount]
	if p.Volume > held+volumeTolerance {
		return fmt.Errorf("%w: dispense %g exceeds held %g on %s", ErrFault, p.Volume, held, cmd.Mount)
	}
	s.volumes[cmd.Mount] = math.Max(0, held-p.Volume)
	return nil
}

func (s *Simulator) pickUpTip(cmd *Command) error {
	if _, err := s.instrument(cmd.Mount); err != nil {
		return err
	}
	if s.tips[cmd.Mount] {
		return fmt.Errorf("%w: tip already attached on %s", ErrFault, cmd.Mount)
	}
	if p, ok := cmd.Payload.(*PickUpPayload); ok {
		if p.Presses < 1 || p.Current <= 0 || p.Current > pipette.MaxPickUpCurrent {
			return fmt.Errorf("%w: invalid pick-up parameters", ErrFault)
		}
	}
	s.tips[cmd.Mount] = true
	s.volumes[cmd.Mount] = 0
	return nil
}

func (s *Simulator) dropTip(cmd *Command) error {
	if _, err := s.instrument(cmd.Mount); err != nil {
		return err
	}
	s.tips[cmd.Mount] = false
	s.volumes[cmd.Mount] = 0
	return nil
}

// instrument returns the cached instrument on mount. Caller must hold s.mu.
func (s *Simulator) instrument(mount types.Mount) (InstrumentInfo, error) {
	info, ok := s.cached[mount]
	if !ok {
		return InstrumentInfo{}, fmt.Errorf("%w: no instrument on mount %s", ErrFault, mount)
	}
	return info, nil
}

func lookupInfo(c *pipette.Catalog, name string) (InstrumentInfo, error) {
	cfg, err := c.Lookup(name)
	if err != nil {
		return InstrumentInfo{}, err
	}
	return InstrumentInfo{Name: cfg.Name, Model: cfg.Model, Channels: cfg.Channels}, nil
}

func copyInfo(in map[types.Mount]InstrumentInfo) map[types.Mount]InstrumentInfo {
	out := make(map[types.Mount]InstrumentInfo, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Compile-time interface satisfaction check.
var _ Driver = (*Simulator)(nil)
