package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrobot/labrobot-go/pkg/labware"
	"github.com/labrobot/labrobot-go/pkg/types"
)

func newLabware(t *testing.T, name string) *labware.Labware {
	t.Helper()
	def, err := labware.NewBuiltinRegistry().Load(name)
	require.NoError(t, err)
	return labware.New(def)
}

func TestPositionFor(t *testing.T) {
	d := New()

	tests := []struct {
		slot Slot
		want types.Point
	}{
		{1, types.Point{}},
		{2, types.Point{X: 132.5}},
		{3, types.Point{X: 265}},
		{4, types.Point{Y: 90.5}},
		{12, types.Point{X: 265, Y: 271.5}},
	}
	for _, tt := range tests {
		got, err := d.PositionFor(tt.slot)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "slot %d", tt.slot)
	}

	_, err := d.PositionFor(0)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = d.PositionFor(13)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestPlaceAndSnapshot(t *testing.T) {
	d := New()
	plate := newLabware(t, "corning_96_wellplate_360ul_flat")
	rack := newLabware(t, "opentrons_96_tiprack_300ul")

	require.NoError(t, d.Place(5, plate, false))
	require.NoError(t, d.Place(1, rack, false))

	assert.Equal(t, types.Point{X: 132.5, Y: 90.5}, plate.Parent())

	snap := d.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, Slot(1), snap[0].Slot)
	assert.Same(t, rack, snap[0].Labware)
	assert.Equal(t, Slot(5), snap[1].Slot)
	assert.Same(t, plate, snap[1].Labware)
}

func TestPlaceOccupied(t *testing.T) {
	d := New()
	first := newLabware(t, "corning_96_wellplate_360ul_flat")
	second := newLabware(t, "biorad_96_wellplate_200ul_pcr")

	require.NoError(t, d.Place(3, first, false))

	err := d.Place(3, second, false)
	require.ErrorIs(t, err, ErrLocationOccupied)
	assert.Same(t, first, d.Top(3), "rejected placement must not change the deck")
	assert.Len(t, d.At(3), 1)

	require.NoError(t, d.Place(3, second, true))
	assert.Same(t, second, d.Top(3))
	assert.Equal(t, []*labware.Labware{first, second}, d.At(3))
}

func TestRemoveAndFind(t *testing.T) {
	d := New()
	plate := newLabware(t, "corning_96_wellplate_360ul_flat")
	plate.SetLabel("samples")
	require.NoError(t, d.Place(2, plate, false))

	assert.Same(t, plate, d.FindByLabel("samples"))
	assert.Nil(t, d.FindByLabel("missing"))

	removed := d.Remove(2)
	assert.Equal(t, []*labware.Labware{plate}, removed)
	assert.Nil(t, d.Top(2))
	assert.Empty(t, d.Snapshot())
}

func TestParseSlot(t *testing.T) {
	s, err := ParseSlot("7")
	require.NoError(t, err)
	assert.Equal(t, Slot(7), s)

	_, err = ParseSlot("A")
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = ParseSlot("13")
	assert.ErrorIs(t, err, ErrInvalidSlot)
}
