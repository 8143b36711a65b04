package protocol

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/labrobot/labrobot-go/pkg/deck"
	"github.com/labrobot/labrobot-go/pkg/driver"
	"github.com/labrobot/labrobot-go/pkg/labware"
	runlog "github.com/labrobot/labrobot-go/pkg/log"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// recordingLogger keeps every run event.
type recordingLogger struct {
	mu     sync.Mutex
	events []runlog.Event
}

func (r *recordingLogger) Log(ev runlog.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingLogger) byCategory(c runlog.Category) []runlog.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []runlog.Event
	for _, ev := range r.events {
		if ev.Category == c {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	ctx    context.Context
	proto  *ProtocolContext
	sim    *driver.Simulator
	events *recordingLogger
}

func newFixture(t *testing.T, attached map[types.Mount]string) *fixture {
	t.Helper()

	sim := driver.MustNewSimulator(driver.SimulatorConfig{Attached: attached})
	events := &recordingLogger{}

	cfg := DefaultConfig()
	cfg.Driver = sim
	cfg.EventLogger = events

	p, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return &fixture{ctx: context.Background(), proto: p, sim: sim, events: events}
}

func (f *fixture) labware(t *testing.T, name string, slot deck.Slot, label string) *labware.Labware {
	t.Helper()
	lw, err := f.proto.LoadLabwareByName(name, slot, LabwareOptions{Label: label})
	require.NoError(t, err)
	return lw
}

// pipette loads name on the left mount with a 300 µL tip rack in slot 1.
func (f *fixture) pipette(t *testing.T, name string) *InstrumentContext {
	t.Helper()
	rack := f.labware(t, "opentrons_96_tiprack_300ul", 1, "tips")
	inst, err := f.proto.LoadInstrument(f.ctx, name, types.MountLeft)
	require.NoError(t, err)
	require.NoError(t, inst.SetTipRacks([]*labware.Labware{rack}))
	return inst
}

func ops(history []driver.Command) []driver.Op {
	out := make([]driver.Op, len(history))
	for n, c := range history {
		out[n] = c.Op
	}
	return out
}

func plungerVolumes(history []driver.Command, op driver.Op) []float64 {
	var out []float64
	for _, c := range history {
		if c.Op != op {
			continue
		}
		if p, ok := c.Payload.(*driver.PlungerPayload); ok {
			out = append(out, p.Volume)
		}
	}
	return out
}

func countOps(history []driver.Command, op driver.Op) int {
	n := 0
	for _, c := range history {
		if c.Op == op {
			n++
		}
	}
	return n
}
