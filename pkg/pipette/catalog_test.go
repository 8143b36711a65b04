package pipette

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	p300, err := c.Lookup("p300_single")
	require.NoError(t, err)
	assert.Equal(t, 300.0, p300.MaxVolume)
	assert.Equal(t, 1, p300.Channels)
	assert.Equal(t, TypeSingle, p300.Type())

	byModel, err := c.Lookup("p300_single_v1")
	require.NoError(t, err)
	assert.Equal(t, p300, byModel)

	multi, err := c.Lookup("p50_multi")
	require.NoError(t, err)
	assert.Equal(t, TypeMulti, multi.Type())

	_, err = c.Lookup("p5000_single")
	assert.True(t, errors.Is(err, ErrUnknownModel))

	assert.Contains(t, c.Names(), "p1000_single")
}

func TestSpeedFlowRateConversion(t *testing.T) {
	cfg := Config{ULPerMM: 18.5}
	assert.InDelta(t, 185.0, cfg.FlowRateForSpeed(10), 1e-9)
	assert.InDelta(t, 10.0, cfg.SpeedForFlowRate(185), 1e-9)
	assert.Zero(t, Config{}.SpeedForFlowRate(5))
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad channels", `
models:
  - {name: x, channels: 3, max_volume: 10, ul_per_mm: 1, max_plunger_speed: 10, aspirate_flow_rate: 1, dispense_flow_rate: 1, pick_up_current: 0.1}
`},
		{"current too high", `
models:
  - {name: x, channels: 1, max_volume: 10, ul_per_mm: 1, max_plunger_speed: 10, aspirate_flow_rate: 1, dispense_flow_rate: 1, pick_up_current: 2.5}
`},
		{"flow rate above max", `
models:
  - {name: x, channels: 1, max_volume: 10, ul_per_mm: 1, max_plunger_speed: 10, aspirate_flow_rate: 11, dispense_flow_rate: 1, pick_up_current: 0.1}
`},
		{"duplicate", `
models:
  - {name: x, channels: 1, max_volume: 10, ul_per_mm: 1, max_plunger_speed: 10, aspirate_flow_rate: 1, dispense_flow_rate: 1, pick_up_current: 0.1}
  - {name: x, channels: 1, max_volume: 10, ul_per_mm: 1, max_plunger_speed: 10, aspirate_flow_rate: 1, dispense_flow_rate: 1, pick_up_current: 0.1}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseCatalogUnknownField(t *testing.T) {
	_, err := ParseCatalog(strings.NewReader("models:\n  - {name: x, colour: red}\n"))
	assert.Error(t, err)
}

func TestModeAndType(t *testing.T) {
	m, err := ParseMode("Dispense")
	require.NoError(t, err)
	assert.Equal(t, ModeDispense, m)
	assert.Equal(t, "ASPIRATE", ModeAspirate.String())

	_, err = ParseMode("suck")
	assert.Error(t, err)

	assert.Equal(t, TypeSingle, TypeForChannels(1))
	assert.Equal(t, TypeMulti, TypeForChannels(8))
	assert.Equal(t, "MULTI", TypeMulti.String())
}
