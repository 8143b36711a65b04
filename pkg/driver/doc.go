// Package driver defines the hardware control boundary and a simulator that
// implements it.
//
// The boundary is asynchronous. A caller submits a [Command] and receives a
// channel on which exactly one [Result] will be delivered once the hardware
// (or simulator) has finished it. Commands are executed strictly in
// submission order; nothing is reordered or run in parallel, since both
// mounts share one gantry.
//
//	ch, err := drv.Submit(&driver.Command{ID: 7, Op: driver.OpHome})
//	if err != nil {
//	    return err
//	}
//	res := <-ch
//
// [AttachedInstruments] is a plain read of the driver's instrument cache and
// never suspends. [OpCacheInstruments] commits a requested attachment overlay
// and fails with [ErrInstrumentMismatch] if a physically attached pipette
// contradicts it.
//
// # Simulator
//
// [Simulator] runs the same contract without hardware. It drains its command
// queue on a worker goroutine, tracks per-mount position, tip and plunger
// volume, keeps a history of executed commands, and supports fault injection
// for tests via [Simulator.FailNext].
package driver
