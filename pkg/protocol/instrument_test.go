package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrobot/labrobot-go/pkg/driver"
	"github.com/labrobot/labrobot-go/pkg/labware"
	runlog "github.com/labrobot/labrobot-go/pkg/log"
	"github.com/labrobot/labrobot-go/pkg/pipette"
	"github.com/labrobot/labrobot-go/pkg/types"
)

func TestScenarioPickAspirateDispenseDrop(t *testing.T) {
	f := newFixture(t, nil)
	plate := f.labware(t, "corning_96_wellplate_360ul_flat", 2, "plate")
	pip := f.pipette(t, "p300_single")
	rack := pip.TipRacks()[0]

	require.NoError(t, pip.PickUpTip(f.ctx, rack.MustWell("A1").Top(0), DefaultPresses, DefaultPressIncrement))
	require.NoError(t, pip.Aspirate(f.ctx, 150, plate.MustWell("A1").Bottom(1), DefaultRate))
	require.NoError(t, pip.Dispense(f.ctx, 150, plate.MustWell("B1").Bottom(1), DefaultRate))
	require.NoError(t, pip.DropTip(f.ctx, labware.Location{}, true))

	history := f.sim.History()
	assert.Equal(t, []driver.Op{
		driver.OpCacheInstruments,
		driver.OpMoveTo, driver.OpMoveTo, // arc onto the rack from an unknown position
		driver.OpPickUpTip,
		driver.OpMoveTo, driver.OpMoveTo, driver.OpMoveTo, // rack to plate
		driver.OpAspirate,
		driver.OpMoveTo, // within the plate
		driver.OpDispense,
		driver.OpMoveTo, driver.OpMoveTo, driver.OpMoveTo, // plate to trash
		driver.OpDropTip,
		driver.OpHomePlunger,
	}, ops(history))

	for _, c := range history[1:] {
		assert.Equal(t, types.MountLeft, c.Mount, "command %s", c.String())
	}
	assert.Equal(t, plate.MustWell("A1").Bottom(1).Point, history[6].Payload.(*driver.MovePayload).Point)
	assert.Equal(t, plate.MustWell("B1").Bottom(1).Point, history[8].Payload.(*driver.MovePayload).Point)
	assert.Equal(t, f.proto.Trash().Wells()[0].Top(0).Point, history[12].Payload.(*driver.MovePayload).Point)

	assert.Equal(t, StateIdle, pip.State())
	assert.False(t, rack.MustWell("A1").HasTip())
	assert.False(t, f.sim.HasTip(types.MountLeft))
	assert.Empty(t, f.events.byCategory(runlog.CategoryError))
	assert.Len(t, f.events.byCategory(runlog.CategoryCommand), 8)
}

func TestPrimitivesNeedTip(t *testing.T) {
	f := newFixture(t, nil)
	plate := f.labware(t, "corning_96_wellplate_360ul_flat", 2, "plate")
	pip := f.pipette(t, "p300_single")
	a1 := plate.MustWell("A1")

	primitives := map[string]func() error{
		"aspirate":  func() error { return pip.Aspirate(f.ctx, 10, a1.Bottom(1), DefaultRate) },
		"dispense":  func() error { return pip.Dispense(f.ctx, 10, a1.Bottom(1), DefaultRate) },
		"mix":       func() error { return pip.Mix(f.ctx, 2, 10, a1.Bottom(1), DefaultRate) },
		"blow_out":  func() error { return pip.BlowOut(f.ctx, a1.Top(0)) },
		"touch_tip": func() error { return pip.TouchTip(f.ctx, a1.Top(0), 1, -1, 60) },
		"air_gap":   func() error { return pip.AirGap(f.ctx, 10, DefaultAirGapHeight) },
		"drop_tip":  func() error { return pip.DropTip(f.ctx, labware.Location{}, true) },
		"return":    func() error { return pip.ReturnTip(f.ctx, true) },
	}

	for name, call := range primitives {
		t.Run("before pick up/"+name, func(t *testing.T) {
			assert.ErrorIs(t, call(), ErrNoTipAttached)
		})
	}

	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	require.NoError(t, pip.Aspirate(f.ctx, 10, a1.Bottom(1), DefaultRate))
	require.NoError(t, pip.Dispense(f.ctx, 10, labware.Location{}, DefaultRate))
	require.NoError(t, pip.DropTip(f.ctx, labware.Location{}, false))

	for name, call := range primitives {
		t.Run("after drop/"+name, func(t *testing.T) {
			assert.ErrorIs(t, call(), ErrNoTipAttached)
		})
	}
}

func TestVolumeBounds(t *testing.T) {
	f := newFixture(t, nil)
	plate := f.labware(t, "corning_96_wellplate_360ul_flat", 2, "plate")
	pip := f.pipette(t, "p300_single")
	a1 := plate.MustWell("A1").Bottom(1)
	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	f.sim.ResetHistory()

	for _, v := range []float64{0, -5, 300.5} {
		assert.ErrorIs(t, pip.Aspirate(f.ctx, v, a1, DefaultRate), ErrVolumeOutOfRange, "volume %g", v)
	}
	assert.Empty(t, f.sim.History(), "rejected volumes never reach the driver")

	require.NoError(t, pip.Aspirate(f.ctx, 200, a1, DefaultRate))
	assert.ErrorIs(t, pip.Aspirate(f.ctx, 200, a1, DefaultRate), ErrVolumeOutOfRange)
	assert.ErrorIs(t, pip.Dispense(f.ctx, 250, a1, DefaultRate), ErrVolumeOutOfRange)
	assert.ErrorIs(t, pip.Aspirate(f.ctx, 10, a1, 0), ErrInvalidArgument)
	assert.InDelta(t, 200, pip.CurrentVolume(), 1e-9)

	require.NoError(t, pip.BlowOut(f.ctx, labware.Location{}))
	assert.Zero(t, pip.CurrentVolume())
	assert.Zero(t, f.sim.Volume(types.MountLeft))
}

func TestAspirateUsesFlowRate(t *testing.T) {
	f := newFixture(t, nil)
	plate := f.labware(t, "corning_96_wellplate_360ul_flat", 2, "plate")
	pip := f.pipette(t, "p300_single")
	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	require.NoError(t, pip.SetFlowRate(map[pipette.Mode]float64{pipette.ModeAspirate: 100}))
	f.sim.ResetHistory()

	require.NoError(t, pip.Aspirate(f.ctx, 50, plate.MustWell("A1").Bottom(1), 0.5))

	history := f.sim.History()
	last := history[len(history)-1]
	require.Equal(t, driver.OpAspirate, last.Op)
	assert.InDelta(t, 50, last.Payload.(*driver.PlungerPayload).FlowRate, 1e-9)
}

func TestMix(t *testing.T) {
	f := newFixture(t, nil)
	plate := f.labware(t, "corning_96_wellplate_360ul_flat", 2, "plate")
	pip := f.pipette(t, "p300_single")
	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	f.sim.ResetHistory()

	require.NoError(t, pip.Mix(f.ctx, 3, 100, plate.MustWell("C3").Bottom(1), DefaultRate))
	history := f.sim.History()
	assert.Equal(t, 3, countOps(history, driver.OpAspirate))
	assert.Equal(t, 3, countOps(history, driver.OpDispense))
	assert.Zero(t, pip.CurrentVolume())

	assert.ErrorIs(t, pip.Mix(f.ctx, 0, 100, labware.Location{}, DefaultRate), ErrInvalidArgument)

	f.sim.ResetHistory()
	require.NoError(t, pip.Mix(f.ctx, 1, 0, labware.Location{}, DefaultRate))
	assert.Equal(t, []float64{300}, plungerVolumes(f.sim.History(), driver.OpAspirate))
}

func TestTouchTipAndAirGap(t *testing.T) {
	f := newFixture(t, nil)
	plate := f.labware(t, "corning_96_wellplate_360ul_flat", 2, "plate")
	pip := f.pipette(t, "p300_single")
	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	_, err := pip.Home(f.ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, pip.TouchTip(f.ctx, labware.Location{}, 1, -1, 60), ErrNoLocation)
	assert.ErrorIs(t, pip.AirGap(f.ctx, 10, 5), ErrNoLocation)

	well := plate.MustWell("D4")
	assert.ErrorIs(t, pip.TouchTip(f.ctx, well.Top(0), 1.5, -1, 60), ErrInvalidArgument)
	assert.ErrorIs(t, pip.TouchTip(f.ctx, well.Top(0), 1, -1, 120), ErrInvalidArgument)

	f.sim.ResetHistory()
	require.NoError(t, pip.TouchTip(f.ctx, well.Top(0), DefaultTouchTipRadius, DefaultTouchTipOffset, DefaultTouchTipSpeed))
	history := f.sim.History()
	// two arc moves onto the well, four edges, back to centre
	require.Len(t, history, 7)
	for _, c := range history[2:] {
		assert.Equal(t, DefaultTouchTipSpeed, c.Payload.(*driver.MovePayload).Speed)
	}

	require.NoError(t, pip.AirGap(f.ctx, 20, 5))
	assert.InDelta(t, 20, pip.CurrentVolume(), 1e-9)
	assert.Equal(t, well.Top(5).Point, f.sim.Position(types.MountLeft))
}

func TestTipSelection(t *testing.T) {
	f := newFixture(t, nil)
	pip := f.pipette(t, "p300_single")
	rack := pip.TipRacks()[0]

	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	assert.False(t, rack.MustWell("A1").HasTip())
	assert.ErrorIs(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement), ErrTipAlreadyAttached)

	require.NoError(t, pip.ReturnTip(f.ctx, false))
	assert.True(t, rack.MustWell("A1").HasTip(), "returned tip is available again")
	assert.Equal(t, StateIdle, pip.State())

	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	require.NoError(t, pip.DropTip(f.ctx, labware.Location{}, false))
	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	assert.False(t, rack.MustWell("B1").HasTip(), "column-major order")
	require.NoError(t, pip.DropTip(f.ctx, labware.Location{}, false))

	t.Run("explicit empty well", func(t *testing.T) {
		err := pip.PickUpTip(f.ctx, rack.MustWell("A1").Top(0), DefaultPresses, DefaultPressIncrement)
		assert.ErrorIs(t, err, ErrNoTipAvailable)
	})

	t.Run("invalid presses", func(t *testing.T) {
		err := pip.PickUpTip(f.ctx, labware.Location{}, 0, DefaultPressIncrement)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("exhausted", func(t *testing.T) {
		for _, w := range rack.Wells() {
			rack.UseTips(w, 1)
		}
		err := pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement)
		assert.ErrorIs(t, err, ErrNoTipAvailable)
	})

	t.Run("no racks", func(t *testing.T) {
		require.NoError(t, pip.SetTipRacks(nil))
		err := pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement)
		assert.ErrorIs(t, err, ErrNoTipAvailable)
	})
}

func TestMultiChannelTakesColumn(t *testing.T) {
	f := newFixture(t, nil)
	pip := f.pipette(t, "p300_multi")
	rack := pip.TipRacks()[0]
	assert.Equal(t, pipette.TypeMulti, pip.Type())

	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	for _, w := range rack.Columns()[0] {
		assert.False(t, w.HasTip(), w.Name())
	}
	assert.True(t, rack.MustWell("A2").HasTip())
	assert.Equal(t, 88, rack.TipsRemaining())
	require.NoError(t, pip.DropTip(f.ctx, labware.Location{}, false))

	t.Run("explicit well outside row A", func(t *testing.T) {
		f.sim.ResetHistory()
		err := pip.PickUpTip(f.ctx, rack.MustWell("C2").Top(0), DefaultPresses, DefaultPressIncrement)
		assert.ErrorIs(t, err, ErrNoTipAvailable)
		assert.Empty(t, f.sim.History())
		assert.Equal(t, 88, rack.TipsRemaining())
	})

	t.Run("explicit column with a gap", func(t *testing.T) {
		rack.UseTips(rack.MustWell("H3"), 1)
		err := pip.PickUpTip(f.ctx, rack.MustWell("A3").Top(0), DefaultPresses, DefaultPressIncrement)
		assert.ErrorIs(t, err, ErrNoTipAvailable)
		assert.True(t, rack.MustWell("A3").HasTip())
	})

	t.Run("explicit full column", func(t *testing.T) {
		require.NoError(t, pip.PickUpTip(f.ctx, rack.MustWell("A2").Top(0), DefaultPresses, DefaultPressIncrement))
		for _, w := range rack.Columns()[1] {
			assert.False(t, w.HasTip(), w.Name())
		}
	})
}

func TestDropTipHomeAfter(t *testing.T) {
	f := newFixture(t, nil)
	pip := f.pipette(t, "p300_single")

	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	f.sim.ResetHistory()
	require.NoError(t, pip.DropTip(f.ctx, labware.Location{}, false))
	assert.Zero(t, countOps(f.sim.History(), driver.OpHomePlunger))

	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	f.sim.ResetHistory()
	require.NoError(t, pip.DropTip(f.ctx, labware.Location{}, true))
	assert.Equal(t, 1, countOps(f.sim.History(), driver.OpHomePlunger))

	t.Run("no trash", func(t *testing.T) {
		pip.trash = nil
		require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
		assert.ErrorIs(t, pip.DropTip(f.ctx, labware.Location{}, true), ErrNoLocation)
	})
}

func TestPickUpCurrent(t *testing.T) {
	f := newFixture(t, nil)
	pip := f.pipette(t, "p300_single")
	before := pip.PickUpCurrent()

	err := pip.SetPickUpCurrent(2.5)
	require.ErrorIs(t, err, ErrConfigurationInvalid)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "pick_up_current", cfgErr.Setting)
	assert.Equal(t, before, pip.PickUpCurrent())

	require.NoError(t, pip.SetPickUpCurrent(1.0))
	assert.Equal(t, 1.0, pip.PickUpCurrent())

	assert.ErrorIs(t, pip.SetPickUpCurrent(0), ErrConfigurationInvalid)
	require.NoError(t, pip.SetPickUpCurrent(pipette.MaxPickUpCurrent))

	f.sim.ResetHistory()
	require.NoError(t, pip.PickUpTip(f.ctx, labware.Location{}, DefaultPresses, DefaultPressIncrement))
	var payload *driver.PickUpPayload
	for _, c := range f.sim.History() {
		if c.Op == driver.OpPickUpTip {
			payload = c.Payload.(*driver.PickUpPayload)
		}
	}
	require.NotNil(t, payload)
	assert.Equal(t, pipette.MaxPickUpCurrent, payload.Current)
	assert.Equal(t, DefaultPresses, payload.Presses)
}

func TestSpeedsAndFlowRates(t *testing.T) {
	f := newFixture(t, nil)
	pip := f.pipette(t, "p300_single")
	model, err := pipette.Default().Lookup("p300_single")
	require.NoError(t, err)

	require.NoError(t, pip.SetSpeeds(map[pipette.Mode]float64{pipette.ModeAspirate: 10}))
	assert.InDelta(t, 10*model.ULPerMM, pip.FlowRate()[pipette.ModeAspirate], 1e-9)
	assert.InDelta(t, 10, pip.Speeds()[pipette.ModeAspirate], 1e-9)
	assert.InDelta(t, model.DispenseFlowRate, pip.FlowRate()[pipette.ModeDispense], 1e-9)

	before := pip.FlowRate()
	tests := []struct {
		name string
		set  func() error
	}{
		{"empty speeds", func() error { return pip.SetSpeeds(nil) }},
		{"speed too fast", func() error {
			return pip.SetSpeeds(map[pipette.Mode]float64{pipette.ModeAspirate: 5, pipette.ModeDispense: model.MaxPlungerSpeed + 1})
		}},
		{"negative flow", func() error {
			return pip.SetFlowRate(map[pipette.Mode]float64{pipette.ModeAspirate: 50, pipette.ModeDispense: -1})
		}},
		{"flow above max", func() error {
			return pip.SetFlowRate(map[pipette.Mode]float64{pipette.ModeDispense: model.MaxFlowRate() * 2})
		}},
		{"unknown mode", func() error { return pip.SetFlowRate(map[pipette.Mode]float64{pipette.Mode(9): 10}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.set(), ErrConfigurationInvalid)
			assert.Equal(t, before, pip.FlowRate(), "rejected set leaves state unchanged")
		})
	}
}

func TestTipRacksAndTrash(t *testing.T) {
	f := newFixture(t, nil)
	plate := f.labware(t, "corning_96_wellplate_360ul_flat", 2, "plate")
	pip := f.pipette(t, "p300_single")
	racks := pip.TipRacks()

	assert.ErrorIs(t, pip.SetTipRacks([]*labware.Labware{racks[0], plate}), ErrConfigurationInvalid)
	assert.ErrorIs(t, pip.SetTipRacks([]*labware.Labware{nil}), ErrConfigurationInvalid)
	assert.Equal(t, racks, pip.TipRacks())

	assert.Same(t, f.proto.Trash(), pip.TrashContainer())
	assert.ErrorIs(t, pip.SetTrashContainer(nil), ErrConfigurationInvalid)
	require.NoError(t, pip.SetTrashContainer(plate))
	assert.Same(t, plate, pip.TrashContainer())
}

func TestInstrumentChaining(t *testing.T) {
	f := newFixture(t, nil)
	plate := f.labware(t, "corning_96_wellplate_360ul_flat", 2, "plate")
	pip := f.pipette(t, "p300_single")

	self, err := pip.MoveTo(f.ctx, plate.MustWell("A1").Top(5), types.MotionDirect)
	require.NoError(t, err)
	assert.Same(t, pip, self)

	self, err = self.Home(f.ctx)
	require.NoError(t, err)
	assert.Same(t, pip, self)
	assert.True(t, pip.Location().IsZero())
}

func TestStatusWhileRunning(t *testing.T) {
	f := newFixture(t, nil)
	plate := f.labware(t, "corning_96_wellplate_360ul_flat", 2, "plate")
	pip := f.pipette(t, "p300_single")

	// Run with -race: another goroutine reads state while the transfer writes it.
	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-stop:
				return
			default:
			}
			st := pip.Status()
			assert.LessOrEqual(t, st.Volume, pip.MaxVolume())
			_ = pip.HasTip()
			_ = pip.Location()
		}
	}()

	err := pip.Transfer(f.ctx, 900, plate.MustWell("A1"), plate.MustWell("A2"), TransferOptions{NewTip: NewTipAlways})
	close(stop)
	<-finished
	require.NoError(t, err)

	st := pip.Status()
	assert.Equal(t, "p300_single", st.Name)
	assert.Equal(t, types.MountLeft, st.Mount)
	assert.Equal(t, StateIdle, st.State)
	assert.Zero(t, st.Volume)
}
