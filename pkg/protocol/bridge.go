package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/labrobot/labrobot-go/pkg/driver"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// execute submits one driver command to the active driver and blocks until
// it completes.
func (p *ProtocolContext) execute(ctx context.Context, op driver.Op, mount types.Mount, payload any) error {
	return p.executeOn(ctx, p.Driver(), op, mount, payload)
}

// executeOn is the only place that waits on the asynchronous driver. ctx is
// honoured at the pause gate and before submission only. A submitted command
// is always waited for, bounded by the driver timeout, so the caller's
// bookkeeping never diverges from what the driver did.
func (p *ProtocolContext) executeOn(ctx context.Context, d driver.Driver, op driver.Op, mount types.Mount, payload any) error {
	if err := p.gate.wait(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := &driver.Command{
		ID:      p.nextID.Add(1),
		Op:      op,
		Mount:   mount,
		Payload: payload,
	}

	resultCh, err := d.Submit(cmd)
	if err != nil {
		return err
	}

	timer := time.NewTimer(p.cfg.DriverTimeout)
	defer timer.Stop()

	start := time.Now()
	select {
	case <-timer.C:
		return fmt.Errorf("%w: %s timed out after %s", ErrDriverUnavailable, cmd, p.cfg.DriverTimeout)
	case res, ok := <-resultCh:
		if !ok {
			return fmt.Errorf("%w: %s: result channel closed", ErrDriverUnavailable, cmd)
		}
		if res.Err != nil {
			p.debugLog("driver command failed", "command", cmd.String(), "error", res.Err)
			return res.Err
		}
		p.debugLog("driver command done", "command", cmd.String(), "took", time.Since(start))
		return nil
	}
}
