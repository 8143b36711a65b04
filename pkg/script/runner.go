package script

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labrobot/labrobot-go/pkg/deck"
	"github.com/labrobot/labrobot-go/pkg/labware"
	"github.com/labrobot/labrobot-go/pkg/pipette"
	"github.com/labrobot/labrobot-go/pkg/protocol"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// Handler executes one step.
type Handler func(ctx context.Context, r *Runner, st *Step) error

// Result summarizes a run.
type Result struct {
	Script    string
	RunID     string
	StepsRun  int
	StartTime time.Time
	Duration  time.Duration
}

// Runner executes scripts against a protocol context.
type Runner struct {
	proto    *protocol.ProtocolContext
	logger   *slog.Logger
	handlers map[string]Handler

	// OnStep, if set, is called before each step.
	OnStep func(index int, st *Step)
}

// NewRunner creates a runner with the built-in actions registered.
func NewRunner(proto *protocol.ProtocolContext, logger *slog.Logger) *Runner {
	r := &Runner{
		proto:    proto,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
	r.registerActions()
	return r
}

// RegisterHandler registers or replaces the handler for an action.
func (r *Runner) RegisterHandler(action string, h Handler) {
	r.handlers[action] = h
}

// Context returns the protocol context the runner drives.
func (r *Runner) Context() *protocol.ProtocolContext {
	return r.proto
}

// Run loads the script's labware and instruments, then executes its steps in
// order. It stops at the first failing step and returns a *StepError.
func (r *Runner) Run(ctx context.Context, s *Script) (*Result, error) {
	res := &Result{Script: s.Name, RunID: r.proto.RunID(), StartTime: time.Now()}
	defer func() { res.Duration = time.Since(res.StartTime) }()

	if err := r.setup(ctx, s); err != nil {
		return res, err
	}

	for n := range s.Steps {
		st := &s.Steps[n]
		if err := ctx.Err(); err != nil {
			return res, &StepError{Index: n, Action: st.Action, Err: err}
		}
		h, ok := r.handlers[st.Action]
		if !ok {
			return res, &StepError{Index: n, Action: st.Action, Err: fmt.Errorf("no handler for action %q", st.Action)}
		}
		if r.OnStep != nil {
			r.OnStep(n, st)
		}
		r.debugLog("running step", "index", n+1, "action", st.Action, "description", st.Description)
		if err := h(ctx, r, st); err != nil {
			return res, &StepError{Index: n, Action: st.Action, Err: err}
		}
		res.StepsRun++
	}
	return res, nil
}

func (r *Runner) setup(ctx context.Context, s *Script) error {
	for _, lw := range s.Labware {
		opts := protocol.LabwareOptions{Label: lw.Label, Share: lw.Share}
		if _, err := r.proto.LoadLabwareByName(lw.Name, deck.Slot(lw.Slot), opts); err != nil {
			return fmt.Errorf("load labware %s: %w", lw.Name, err)
		}
	}

	for _, spec := range s.Instruments {
		if err := r.loadInstrument(ctx, spec); err != nil {
			return fmt.Errorf("load instrument %s: %w", spec.Name, err)
		}
	}
	return nil
}

func (r *Runner) loadInstrument(ctx context.Context, spec InstrumentSpec) error {
	mount, err := types.ParseMount(spec.Mount)
	if err != nil {
		return err
	}
	inst, err := r.proto.LoadInstrument(ctx, spec.Name, mount)
	if err != nil {
		return err
	}

	racks := make([]*labware.Labware, 0, len(spec.TipRacks))
	for _, label := range spec.TipRacks {
		lw, err := r.labware(label)
		if err != nil {
			return err
		}
		racks = append(racks, lw)
	}
	if err := inst.SetTipRacks(racks); err != nil {
		return err
	}

	if spec.Trash != "" {
		trash, err := r.labware(spec.Trash)
		if err != nil {
			return err
		}
		if err := inst.SetTrashContainer(trash); err != nil {
			return err
		}
	}

	rates := inst.FlowRate()
	if spec.AspirateFlowRate > 0 {
		rates[pipette.ModeAspirate] = spec.AspirateFlowRate
	}
	if spec.DispenseFlowRate > 0 {
		rates[pipette.ModeDispense] = spec.DispenseFlowRate
	}
	if err := inst.SetFlowRate(rates); err != nil {
		return err
	}

	if spec.PickUpCurrent != nil {
		return inst.SetPickUpCurrent(*spec.PickUpCurrent)
	}
	return nil
}

func (r *Runner) labware(label string) (*labware.Labware, error) {
	lw := r.proto.Deck().FindByLabel(label)
	if lw == nil {
		return nil, fmt.Errorf("%w: no labware labelled %q", ErrBadReference, label)
	}
	return lw, nil
}

// Well resolves a "<label>:<well>" reference against the deck.
func (r *Runner) Well(ref string) (*labware.Well, error) {
	label, name, err := splitRef(ref)
	if err != nil {
		return nil, err
	}
	lw, err := r.labware(label)
	if err != nil {
		return nil, err
	}
	w, err := lw.Well(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReference, err)
	}
	return w, nil
}

func (r *Runner) wells(refs []string) ([]*labware.Well, error) {
	out := make([]*labware.Well, 0, len(refs))
	for _, ref := range refs {
		w, err := r.Well(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// Instrument returns the pipette bound to a mount name.
func (r *Runner) Instrument(mount string) (*protocol.InstrumentContext, error) {
	m, err := types.ParseMount(mount)
	if err != nil {
		return nil, err
	}
	inst := r.proto.Instrument(m)
	if inst == nil {
		return nil, fmt.Errorf("%w: no instrument on %s", protocol.ErrInstrumentUnbound, m)
	}
	return inst, nil
}

func (r *Runner) debugLog(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
