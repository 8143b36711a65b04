package script

import (
	"context"

	"github.com/labrobot/labrobot-go/pkg/labware"
	"github.com/labrobot/labrobot-go/pkg/protocol"
	"github.com/labrobot/labrobot-go/pkg/types"
)

func (r *Runner) registerActions() {
	r.RegisterHandler("comment", handleComment)
	r.RegisterHandler("pause", handlePause)
	r.RegisterHandler("home", handleHome)
	r.RegisterHandler("pick_up_tip", handlePickUpTip)
	r.RegisterHandler("drop_tip", handleDropTip)
	r.RegisterHandler("return_tip", handleReturnTip)
	r.RegisterHandler("aspirate", handleAspirate)
	r.RegisterHandler("dispense", handleDispense)
	r.RegisterHandler("mix", handleMix)
	r.RegisterHandler("blow_out", handleBlowOut)
	r.RegisterHandler("touch_tip", handleTouchTip)
	r.RegisterHandler("air_gap", handleAirGap)
	r.RegisterHandler("move_to", handleMoveTo)
	r.RegisterHandler("transfer", handleTransfer)
	r.RegisterHandler("distribute", handleDistribute)
	r.RegisterHandler("consolidate", handleConsolidate)
}

func handleComment(_ context.Context, r *Runner, st *Step) error {
	r.proto.Comment(st.Message)
	return nil
}

func handlePause(ctx context.Context, r *Runner, st *Step) error {
	if st.Message != "" {
		r.proto.Comment(st.Message)
	}
	return r.proto.Pause(ctx)
}

func handleHome(ctx context.Context, r *Runner, _ *Step) error {
	return r.proto.Home(ctx)
}

func handlePickUpTip(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	var loc labware.Location
	if st.Well != "" {
		w, err := r.Well(st.Well)
		if err != nil {
			return err
		}
		loc = w.Top(0)
	}
	presses := st.Presses
	if presses == 0 {
		presses = protocol.DefaultPresses
	}
	return inst.PickUpTip(ctx, loc, presses, floatOr(st.Increment, protocol.DefaultPressIncrement))
}

func handleDropTip(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	loc, err := r.location(st.Well, topOf)
	if err != nil {
		return err
	}
	return inst.DropTip(ctx, loc, boolOr(st.HomeAfter, true))
}

func handleReturnTip(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	return inst.ReturnTip(ctx, boolOr(st.HomeAfter, true))
}

func handleAspirate(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	loc, err := r.location(st.Well, bottomOf)
	if err != nil {
		return err
	}
	return inst.Aspirate(ctx, st.Volume, loc, rateOf(st))
}

func handleDispense(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	loc, err := r.location(st.Well, bottomOf)
	if err != nil {
		return err
	}
	return inst.Dispense(ctx, st.Volume, loc, rateOf(st))
}

func handleMix(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	loc, err := r.location(st.Well, bottomOf)
	if err != nil {
		return err
	}
	reps := st.Repetitions
	if reps == 0 {
		reps = 1
	}
	return inst.Mix(ctx, reps, st.Volume, loc, rateOf(st))
}

func handleBlowOut(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	loc, err := r.location(st.Well, topOf)
	if err != nil {
		return err
	}
	return inst.BlowOut(ctx, loc)
}

func handleTouchTip(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	loc, err := r.location(st.Well, topOf)
	if err != nil {
		return err
	}
	return inst.TouchTip(ctx, loc,
		floatOr(st.Radius, protocol.DefaultTouchTipRadius),
		floatOr(st.VOffset, protocol.DefaultTouchTipOffset),
		floatOr(st.Speed, protocol.DefaultTouchTipSpeed))
}

func handleAirGap(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	height := st.Height
	if height == 0 {
		height = protocol.DefaultAirGapHeight
	}
	return inst.AirGap(ctx, st.Volume, height)
}

func handleMoveTo(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	loc, err := r.location(st.Well, topOf)
	if err != nil {
		return err
	}
	strategy, err := types.ParseMotionStrategy(st.Strategy)
	if err != nil {
		return err
	}
	_, err = inst.MoveTo(ctx, loc, strategy)
	return err
}

func handleTransfer(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	src, err := r.Well(st.Source)
	if err != nil {
		return err
	}
	dst, err := r.Well(st.Dest)
	if err != nil {
		return err
	}
	opts, err := transferOptions(st)
	if err != nil {
		return err
	}
	return inst.Transfer(ctx, st.Volume, src, dst, opts)
}

func handleDistribute(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	src, err := r.Well(st.Source)
	if err != nil {
		return err
	}
	dsts, err := r.wells(st.Dests)
	if err != nil {
		return err
	}
	opts, err := transferOptions(st)
	if err != nil {
		return err
	}
	return inst.Distribute(ctx, st.Volume, src, dsts, opts)
}

func handleConsolidate(ctx context.Context, r *Runner, st *Step) error {
	inst, err := r.Instrument(st.Instrument)
	if err != nil {
		return err
	}
	srcs, err := r.wells(st.Sources)
	if err != nil {
		return err
	}
	dst, err := r.Well(st.Dest)
	if err != nil {
		return err
	}
	opts, err := transferOptions(st)
	if err != nil {
		return err
	}
	return inst.Consolidate(ctx, st.Volume, srcs, dst, opts)
}

func transferOptions(st *Step) (protocol.TransferOptions, error) {
	policy, err := protocol.ParseNewTipPolicy(st.NewTip)
	if err != nil {
		return protocol.TransferOptions{}, err
	}
	return protocol.TransferOptions{
		NewTip:         policy,
		ReturnTips:     st.ReturnTips,
		AspirateRate:   st.Rate,
		DispenseRate:   st.Rate,
		AirGap:         st.AirGap,
		TouchTip:       st.TouchTip,
		BlowOut:        st.BlowOut,
		MixBefore:      mixOptions(st.MixBefore),
		MixAfter:       mixOptions(st.MixAfter),
		DisposalVolume: st.DisposalVolume,
	}, nil
}

func mixOptions(m *MixSpec) *protocol.MixOptions {
	if m == nil {
		return nil
	}
	return &protocol.MixOptions{Repetitions: m.Repetitions, Volume: m.Volume}
}

func topOf(w *labware.Well) labware.Location    { return w.Top(0) }
func bottomOf(w *labware.Well) labware.Location { return w.Bottom(1) }

// location resolves an optional well reference. An empty reference is the
// zero Location, meaning the instrument's current position.
func (r *Runner) location(ref string, at func(*labware.Well) labware.Location) (labware.Location, error) {
	if ref == "" {
		return labware.Location{}, nil
	}
	w, err := r.Well(ref)
	if err != nil {
		return labware.Location{}, err
	}
	return at(w), nil
}

func rateOf(st *Step) float64 {
	if st.Rate == 0 {
		return protocol.DefaultRate
	}
	return st.Rate
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
