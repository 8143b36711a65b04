package protocol

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/labrobot/labrobot-go/pkg/labware"
)

// Well clearances used by composite operations, in mm above the bottom.
const (
	aspirateClearance = 1.0
	dispenseClearance = 1.0
)

// NewTipPolicy says when composite operations change tips.
type NewTipPolicy uint8

const (
	// NewTipOnce picks up one tip before the first step, unless one is
	// already attached, and discards it after the last.
	NewTipOnce NewTipPolicy = iota

	// NewTipNever uses the tip already attached.
	NewTipNever

	// NewTipAlways uses a fresh tip for every aspiration batch. Tips
	// returned earlier in the same operation are not reused.
	NewTipAlways
)

// String returns the policy name.
func (p NewTipPolicy) String() string {
	switch p {
	case NewTipOnce:
		return "ONCE"
	case NewTipNever:
		return "NEVER"
	case NewTipAlways:
		return "ALWAYS"
	default:
		return "UNKNOWN"
	}
}

// ParseNewTipPolicy parses "never", "once" or "always". Empty means once.
func ParseNewTipPolicy(s string) (NewTipPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "once":
		return NewTipOnce, nil
	case "never":
		return NewTipNever, nil
	case "always":
		return NewTipAlways, nil
	}
	return 0, fmt.Errorf("%w: new tip policy %q", ErrInvalidArgument, s)
}

// MixOptions describes a mix inside a composite operation. A zero Volume
// mixes with the full tip.
type MixOptions struct {
	Repetitions int
	Volume      float64
}

// TransferOptions tunes Transfer, Distribute and Consolidate. The zero value
// is usable: one tip, default rates, tips go to the trash.
type TransferOptions struct {
	NewTip NewTipPolicy

	// ReturnTips puts used tips back in their rack instead of the trash.
	ReturnTips bool

	// Rate multipliers; zero means DefaultRate.
	AspirateRate float64
	DispenseRate float64

	// AirGap is drawn after each aspiration batch and leaves with the first
	// dispense. It counts against capacity.
	AirGap float64

	TouchTip  bool
	BlowOut   bool
	MixBefore *MixOptions
	MixAfter  *MixOptions

	// DisposalVolume is extra liquid drawn per distribute batch and blown
	// out into the trash afterwards.
	DisposalVolume float64
}

type liquidMove struct {
	well   *labware.Well
	volume float64
}

// batch is one aspiration cycle: everything drawn, then everything dispensed.
type batch struct {
	aspirate []liquidMove
	dispense []liquidMove
}

type stepKind uint8

const (
	stepPickUpTip stepKind = iota
	stepDropTip
	stepReturnTip
	stepMix
	stepAspirate
	stepAirGap
	stepDispense
	stepTouchTip
	stepBlowOut
)

type step struct {
	kind   stepKind
	well   *labware.Well
	volume float64
	// delivered is the liquid this step puts into a destination.
	delivered float64
	mix       *MixOptions
}

func (s step) String() string {
	switch s.kind {
	case stepPickUpTip:
		return "pick up tip"
	case stepDropTip:
		return "drop tip"
	case stepReturnTip:
		return "return tip"
	case stepMix:
		return fmt.Sprintf("mix %dx %.2fuL in %s", s.mix.Repetitions, s.mix.Volume, s.well)
	case stepAspirate:
		return fmt.Sprintf("aspirate %.2fuL from %s", s.volume, s.well)
	case stepAirGap:
		return fmt.Sprintf("air gap %.2fuL", s.volume)
	case stepDispense:
		return fmt.Sprintf("dispense %.2fuL into %s", s.volume, s.well)
	case stepTouchTip:
		return fmt.Sprintf("touch tip in %s", s.well)
	case stepBlowOut:
		return fmt.Sprintf("blow out in %s", s.well)
	default:
		return "unknown step"
	}
}

type plan struct {
	op    string
	steps []step
	total float64
}

// splitVolume divides volume into the fewest equal chunks of at most
// capacity. The last chunk takes the rounding remainder so the chunks sum
// to volume exactly.
func splitVolume(volume, capacity float64) []float64 {
	n := int(math.Ceil(volume/capacity - volumeTolerance))
	if n < 1 {
		n = 1
	}
	chunk := volume / float64(n)
	chunks := make([]float64, n)
	for k := 0; k < n-1; k++ {
		chunks[k] = chunk
	}
	chunks[n-1] = volume - chunk*float64(n-1)
	return chunks
}

// batchGreedy groups moves in order, starting a new batch whenever the next
// move would push the batch total past capacity.
func batchGreedy(moves []liquidMove, capacity float64) [][]liquidMove {
	var out [][]liquidMove
	var cur []liquidMove
	sum := 0.0
	for _, m := range moves {
		if len(cur) > 0 && sum+m.volume > capacity+volumeTolerance {
			out = append(out, cur)
			cur, sum = nil, 0
		}
		cur = append(cur, m)
		sum += m.volume
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func sumMoves(moves []liquidMove) float64 {
	total := 0.0
	for _, m := range moves {
		total += m.volume
	}
	return total
}

// Transfer moves volume µL from source to dest, split into the fewest equal
// sub-transfers that fit the tip.
func (i *InstrumentContext) Transfer(ctx context.Context, volume float64, source, dest *labware.Well, opts TransferOptions) error {
	const op = "transfer"
	if source == nil || dest == nil {
		return i.fail(op, fmt.Errorf("%w: transfer needs a source and a destination", ErrInvalidArgument))
	}
	capacity, err := i.capacity(op, volume, opts, 0)
	if err != nil {
		return i.fail(op, err)
	}

	var batches []batch
	for _, v := range splitVolume(volume, capacity) {
		batches = append(batches, batch{
			aspirate: []liquidMove{{source, v}},
			dispense: []liquidMove{{dest, v}},
		})
	}
	return i.runBatches(ctx, op, batches, opts)
}

// Distribute delivers volume µL from source to each well in dests, drawing
// as many destinations per aspiration as fit the tip.
func (i *InstrumentContext) Distribute(ctx context.Context, volume float64, source *labware.Well, dests []*labware.Well, opts TransferOptions) error {
	const op = "distribute"
	if source == nil || len(dests) == 0 || containsNil(dests) {
		return i.fail(op, fmt.Errorf("%w: distribute needs a source and destinations", ErrInvalidArgument))
	}
	if opts.MixAfter != nil {
		return i.fail(op, fmt.Errorf("%w: distribute cannot mix after dispensing", ErrInvalidArgument))
	}
	if math.IsNaN(opts.DisposalVolume) || opts.DisposalVolume < 0 {
		return i.fail(op, fmt.Errorf("%w: disposal volume %g", ErrInvalidArgument, opts.DisposalVolume))
	}
	capacity, err := i.capacity(op, volume, opts, opts.DisposalVolume)
	if err != nil {
		return i.fail(op, err)
	}

	var moves []liquidMove
	for _, d := range dests {
		for _, v := range splitVolume(volume, capacity) {
			moves = append(moves, liquidMove{d, v})
		}
	}
	var batches []batch
	for _, group := range batchGreedy(moves, capacity) {
		batches = append(batches, batch{
			aspirate: []liquidMove{{source, sumMoves(group) + opts.DisposalVolume}},
			dispense: group,
		})
	}
	return i.runBatches(ctx, op, batches, opts)
}

// Consolidate collects volume µL from each well in sources into dest,
// drawing from as many sources per trip as fit the tip.
func (i *InstrumentContext) Consolidate(ctx context.Context, volume float64, sources []*labware.Well, dest *labware.Well, opts TransferOptions) error {
	const op = "consolidate"
	if dest == nil || len(sources) == 0 || containsNil(sources) {
		return i.fail(op, fmt.Errorf("%w: consolidate needs sources and a destination", ErrInvalidArgument))
	}
	if opts.MixBefore != nil {
		return i.fail(op, fmt.Errorf("%w: consolidate cannot mix before aspirating", ErrInvalidArgument))
	}
	opts.DisposalVolume = 0
	capacity, err := i.capacity(op, volume, opts, 0)
	if err != nil {
		return i.fail(op, err)
	}

	var moves []liquidMove
	for _, s := range sources {
		for _, v := range splitVolume(volume, capacity) {
			moves = append(moves, liquidMove{s, v})
		}
	}
	var batches []batch
	for _, group := range batchGreedy(moves, capacity) {
		batches = append(batches, batch{
			aspirate: group,
			dispense: []liquidMove{{dest, sumMoves(group)}},
		})
	}
	return i.runBatches(ctx, op, batches, opts)
}

func containsNil(wells []*labware.Well) bool {
	for _, w := range wells {
		if w == nil {
			return true
		}
	}
	return false
}

// capacity validates the shared options and returns the liquid volume one
// aspiration batch may carry.
func (i *InstrumentContext) capacity(op string, volume float64, opts TransferOptions, disposal float64) (float64, error) {
	if err := i.checkBound(); err != nil {
		return 0, err
	}
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume <= 0 {
		return 0, fmt.Errorf("%w: %s volume %g must be positive", ErrVolumeOutOfRange, op, volume)
	}
	for _, r := range []float64{opts.AspirateRate, opts.DispenseRate} {
		if math.IsNaN(r) || r < 0 {
			return 0, fmt.Errorf("%w: rate %g", ErrInvalidArgument, r)
		}
	}
	if math.IsNaN(opts.AirGap) || opts.AirGap < 0 {
		return 0, fmt.Errorf("%w: air gap %g", ErrInvalidArgument, opts.AirGap)
	}
	for _, m := range []*MixOptions{opts.MixBefore, opts.MixAfter} {
		if m == nil {
			continue
		}
		if m.Repetitions < 1 {
			return 0, fmt.Errorf("%w: mix repetitions %d < 1", ErrInvalidArgument, m.Repetitions)
		}
		if math.IsNaN(m.Volume) || m.Volume < 0 || m.Volume > i.model.MaxVolume {
			return 0, fmt.Errorf("%w: mix volume %g", ErrVolumeOutOfRange, m.Volume)
		}
	}
	if opts.NewTip > NewTipAlways {
		return 0, fmt.Errorf("%w: new tip policy %d", ErrInvalidArgument, opts.NewTip)
	}

	capacity := i.model.MaxVolume - opts.AirGap - disposal
	if capacity <= 0 {
		return 0, fmt.Errorf("%w: air gap %.2fuL and disposal %.2fuL leave no room in %.2fuL",
			ErrVolumeOutOfRange, opts.AirGap, disposal, i.model.MaxVolume)
	}
	return capacity, nil
}

// runBatches turns batches into steps, checks tips and trash up front, and
// executes the steps in order.
func (i *InstrumentContext) runBatches(ctx context.Context, op string, batches []batch, opts TransferOptions) error {
	p, err := i.plan(op, batches, opts)
	if err != nil {
		return i.fail(op, err)
	}

	i.usedTips = make(map[*labware.Well]bool)
	defer func() { i.usedTips = nil }()

	start := time.Now()
	delivered := 0.0
	for n, s := range p.steps {
		if err := i.runStep(ctx, s, opts); err != nil {
			return &CompositeError{Op: op, Step: n, Desc: s.String(), Moved: delivered, Err: err}
		}
		delivered += s.delivered
	}
	i.logCommand(op, p.total, labware.Location{}, 0, start)
	return nil
}

func (i *InstrumentContext) plan(op string, batches []batch, opts TransferOptions) (*plan, error) {
	discard := step{kind: stepDropTip}
	if opts.ReturnTips {
		discard.kind = stepReturnTip
	}

	tipsNeeded := 0
	switch opts.NewTip {
	case NewTipNever:
		if !i.hasTip {
			return nil, fmt.Errorf("%w: %s with new tip policy NEVER", ErrNoTipAttached, op)
		}
	case NewTipOnce:
		if !i.hasTip {
			tipsNeeded = 1
		}
	case NewTipAlways:
		if i.hasTip {
			return nil, fmt.Errorf("%w: %s with new tip policy ALWAYS", ErrTipAlreadyAttached, op)
		}
		tipsNeeded = len(batches)
	}
	if i.volume > volumeTolerance {
		return nil, fmt.Errorf("%w: tip already holds %.2fuL", ErrVolumeOutOfRange, i.volume)
	}
	if available := i.tipsAvailable(); tipsNeeded > available {
		return nil, fmt.Errorf("%w: %s needs %d tip(s), %d left", ErrNoTipAvailable, op, tipsNeeded, available)
	}

	var trashWell *labware.Well
	if i.trash != nil {
		trashWell = i.trash.Wells()[0]
	}
	dropsToTrash := tipsNeeded > 0 && !opts.ReturnTips
	if trashWell == nil && (dropsToTrash || opts.DisposalVolume > 0) {
		return nil, fmt.Errorf("%w: %s needs a trash container", ErrNoLocation, op)
	}

	p := &plan{op: op}
	for b, bt := range batches {
		if opts.NewTip == NewTipAlways || (b == 0 && tipsNeeded > 0) {
			p.steps = append(p.steps, step{kind: stepPickUpTip})
		}

		for n, a := range bt.aspirate {
			if n == 0 && opts.MixBefore != nil {
				p.steps = append(p.steps, step{kind: stepMix, well: a.well, mix: opts.MixBefore})
			}
			p.steps = append(p.steps, step{kind: stepAspirate, well: a.well, volume: a.volume})
			if opts.TouchTip {
				p.steps = append(p.steps, step{kind: stepTouchTip, well: a.well})
			}
		}
		if opts.AirGap > 0 {
			p.steps = append(p.steps, step{kind: stepAirGap, volume: opts.AirGap})
		}

		var last *labware.Well
		for n, d := range bt.dispense {
			v := d.volume
			if n == 0 {
				v += opts.AirGap
			}
			p.steps = append(p.steps, step{kind: stepDispense, well: d.well, volume: v, delivered: d.volume})
			p.total += d.volume
			if opts.MixAfter != nil {
				p.steps = append(p.steps, step{kind: stepMix, well: d.well, mix: opts.MixAfter})
			}
			if opts.TouchTip {
				p.steps = append(p.steps, step{kind: stepTouchTip, well: d.well})
			}
			last = d.well
		}

		switch {
		case opts.DisposalVolume > 0:
			p.steps = append(p.steps, step{kind: stepBlowOut, well: trashWell})
		case opts.BlowOut:
			p.steps = append(p.steps, step{kind: stepBlowOut, well: last})
		}

		if opts.NewTip == NewTipAlways || (b == len(batches)-1 && tipsNeeded > 0) {
			p.steps = append(p.steps, discard)
		}
	}
	return p, nil
}

func (i *InstrumentContext) runStep(ctx context.Context, s step, opts TransferOptions) error {
	aspRate := rateOrDefault(opts.AspirateRate)
	dispRate := rateOrDefault(opts.DispenseRate)

	switch s.kind {
	case stepPickUpTip:
		return i.PickUpTip(ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement)
	case stepDropTip:
		return i.DropTip(ctx, labware.Location{}, false)
	case stepReturnTip:
		return i.ReturnTip(ctx, false)
	case stepMix:
		return i.Mix(ctx, s.mix.Repetitions, s.mix.Volume, s.well.Bottom(aspirateClearance), aspRate)
	case stepAspirate:
		return i.Aspirate(ctx, s.volume, s.well.Bottom(aspirateClearance), aspRate)
	case stepAirGap:
		return i.AirGap(ctx, s.volume, DefaultAirGapHeight)
	case stepDispense:
		return i.Dispense(ctx, s.volume, s.well.Bottom(dispenseClearance), dispRate)
	case stepTouchTip:
		return i.TouchTip(ctx, s.well.Top(0), DefaultTouchTipRadius, DefaultTouchTipOffset, DefaultTouchTipSpeed)
	case stepBlowOut:
		return i.BlowOut(ctx, s.well.Top(0))
	}
	return fmt.Errorf("%w: unknown step", ErrInvalidArgument)
}

func rateOrDefault(r float64) float64 {
	if r == 0 {
		return DefaultRate
	}
	return r
}

// tipsAvailable counts the pick-ups the tip racks can still serve.
func (i *InstrumentContext) tipsAvailable() int {
	n := 0
	for _, rack := range i.tipRacks {
		if i.info.Channels <= 1 {
			n += rack.TipsRemaining()
			continue
		}
		for _, col := range rack.Columns() {
			if len(col) < i.info.Channels {
				continue
			}
			full := true
			for _, w := range col[:i.info.Channels] {
				full = full && w.HasTip()
			}
			if full {
				n++
			}
		}
	}
	return n
}
