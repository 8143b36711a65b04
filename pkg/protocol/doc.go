// Package protocol is the run-time core of a liquid-handling protocol.
//
// A [ProtocolContext] owns the deck and one instrument slot per mount, and
// is the only component that talks to the hardware driver. Scripts call it
// to load labware and instruments, then drive pipettes through the
// [InstrumentContext] values it returns.
//
// # Synchronous Calls Over an Asynchronous Driver
//
// The driver accepts commands on a queue and reports results on channels.
// Every call that reaches the driver submits one command and blocks until
// its result arrives, the driver timeout expires (ErrDriverUnavailable), or
// the caller's context is cancelled. Calls that only touch local state
// (loading labware, configuration accessors, comments) never block.
//
// # Tip Lifecycle
//
// An instrument is Idle after loading. PickUpTip moves it to Tipped; DropTip
// and ReturnTip move it back. Liquid handling needs a tip:
//
//	pip, _ := ctx.LoadInstrument(bg, "p300_single", types.MountLeft)
//	_ = pip.SetTipRacks([]*labware.Labware{rack})
//	_ = pip.PickUpTip(bg, labware.Location{}, protocol.DefaultPresses, protocol.DefaultPressIncrement)
//	_ = pip.Aspirate(bg, 150, plate.MustWell("A1").Bottom(1), protocol.DefaultRate)
//	_ = pip.Dispense(bg, 150, plate.MustWell("B1").Bottom(1), protocol.DefaultRate)
//	_ = pip.DropTip(bg, labware.Location{}, true)
//
// # Composite Operations
//
// Transfer, Distribute and Consolidate are planned in full before the first
// driver command, so argument errors leave no trace on the robot. Volumes
// above the tip capacity are split into equal chunks; Distribute and
// Consolidate pack as many chunks into one aspiration as fit. A failure
// part way through returns a [*CompositeError] naming the failed step and
// the volume already delivered.
//
// # Pausing
//
// Pause is a cooperative gate checked before every driver command. An
// operator can arm it from another goroutine with RequestPause; the command
// in flight always finishes first.
package protocol
