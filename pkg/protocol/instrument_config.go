package protocol

import (
	"fmt"
	"math"

	"github.com/labrobot/labrobot-go/pkg/labware"
	"github.com/labrobot/labrobot-go/pkg/pipette"
)

// Speeds returns the plunger speeds in mm/s, keyed by mode.
func (i *InstrumentContext) Speeds() map[pipette.Mode]float64 {
	return map[pipette.Mode]float64{
		pipette.ModeAspirate: i.model.SpeedForFlowRate(i.aspirateFlowRate),
		pipette.ModeDispense: i.model.SpeedForFlowRate(i.dispenseFlowRate),
	}
}

// SetSpeeds sets plunger speeds in mm/s. Every value must be in
// (0, max plunger speed]. Modes missing from speeds keep their setting.
func (i *InstrumentContext) SetSpeeds(speeds map[pipette.Mode]float64) error {
	flow := make(map[pipette.Mode]float64, len(speeds))
	for mode, speed := range speeds {
		if !validPositive(speed, i.model.MaxPlungerSpeed) {
			return &ConfigError{Setting: "speed." + mode.String(), Value: speed,
				Reason: fmt.Sprintf("must be in (0, %g] mm/s", i.model.MaxPlungerSpeed)}
		}
		flow[mode] = i.model.FlowRateForSpeed(speed)
	}
	return i.applyFlowRates("speed", flow)
}

// FlowRate returns the flow rates in µL/s, keyed by mode.
func (i *InstrumentContext) FlowRate() map[pipette.Mode]float64 {
	return map[pipette.Mode]float64{
		pipette.ModeAspirate: i.aspirateFlowRate,
		pipette.ModeDispense: i.dispenseFlowRate,
	}
}

// SetFlowRate sets flow rates in µL/s. Every value must be in
// (0, max flow rate]. Modes missing from rates keep their setting.
func (i *InstrumentContext) SetFlowRate(rates map[pipette.Mode]float64) error {
	limit := i.model.MaxFlowRate()
	for mode, rate := range rates {
		if !validPositive(rate, limit+volumeTolerance) {
			return &ConfigError{Setting: "flow_rate." + mode.String(), Value: rate,
				Reason: fmt.Sprintf("must be in (0, %g] uL/s", limit)}
		}
	}
	return i.applyFlowRates("flow_rate", rates)
}

// applyFlowRates commits already range-checked rates, all or nothing.
func (i *InstrumentContext) applyFlowRates(setting string, rates map[pipette.Mode]float64) error {
	if len(rates) == 0 {
		return &ConfigError{Setting: setting, Value: rates, Reason: "at least one mode is required"}
	}
	for mode := range rates {
		if mode != pipette.ModeAspirate && mode != pipette.ModeDispense {
			return &ConfigError{Setting: setting, Value: mode, Reason: "unknown mode"}
		}
	}
	if r, ok := rates[pipette.ModeAspirate]; ok {
		i.aspirateFlowRate = r
	}
	if r, ok := rates[pipette.ModeDispense]; ok {
		i.dispenseFlowRate = r
	}
	return nil
}

// PickUpCurrent returns the tip pick-up current in amperes.
func (i *InstrumentContext) PickUpCurrent() float64 { return i.pickUpCurrent }

// SetPickUpCurrent sets the tip pick-up current, which must be in (0, 2.0] A.
func (i *InstrumentContext) SetPickUpCurrent(amperes float64) error {
	if !validPositive(amperes, pipette.MaxPickUpCurrent) {
		return &ConfigError{Setting: "pick_up_current", Value: amperes,
			Reason: fmt.Sprintf("must be in (0, %g] A", pipette.MaxPickUpCurrent)}
	}
	i.pickUpCurrent = amperes
	return nil
}

// TipRacks returns the tip racks in pick-up order.
func (i *InstrumentContext) TipRacks() []*labware.Labware {
	out := make([]*labware.Labware, len(i.tipRacks))
	copy(out, i.tipRacks)
	return out
}

// SetTipRacks replaces the tip racks. Every entry must be tip-rack labware.
// An empty list is allowed; pick-ups then need an explicit location.
func (i *InstrumentContext) SetTipRacks(racks []*labware.Labware) error {
	for n, rack := range racks {
		if rack == nil {
			return &ConfigError{Setting: "tip_racks", Value: n, Reason: "nil tip rack"}
		}
		if !rack.IsTiprack() {
			return &ConfigError{Setting: "tip_racks", Value: rack.String(), Reason: "not a tip rack"}
		}
	}
	i.tipRacks = append([]*labware.Labware(nil), racks...)
	return nil
}

// TrashContainer returns where DropTip discards tips by default.
func (i *InstrumentContext) TrashContainer() *labware.Labware { return i.trash }

// SetTrashContainer sets the default tip disposal labware.
func (i *InstrumentContext) SetTrashContainer(trash *labware.Labware) error {
	if trash == nil {
		return &ConfigError{Setting: "trash_container", Value: nil, Reason: "must not be empty"}
	}
	i.trash = trash
	return nil
}

func validPositive(v, limit float64) bool {
	return !math.IsNaN(v) && v > 0 && v <= limit
}
