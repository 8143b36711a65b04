package labware

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labrobot/labrobot-go/pkg/types"
)

func loadBuiltin(t *testing.T, name string) *Labware {
	t.Helper()
	def, err := NewBuiltinRegistry().Load(name)
	require.NoError(t, err)
	return New(def)
}

func TestBuiltinRegistry(t *testing.T) {
	r := NewBuiltinRegistry()
	names := r.Names()
	assert.Contains(t, names, "corning_96_wellplate_360ul_flat")
	assert.Contains(t, names, "opentrons_96_tiprack_300ul")
	assert.Contains(t, names, "fixed_trash")

	for _, n := range names {
		def, err := r.Load(n)
		require.NoError(t, err, n)
		assert.NoError(t, def.Validate(), n)
	}
}

func TestRegistryUnknownSuggests(t *testing.T) {
	r := NewBuiltinRegistry()

	_, err := r.Load("corning_96_wellplate_360ul_flt")
	require.ErrorIs(t, err, ErrUnknownDefinition)
	assert.Contains(t, err.Error(), `did you mean "corning_96_wellplate_360ul_flat"`)

	_, err = r.Load("zzz")
	require.ErrorIs(t, err, ErrUnknownDefinition)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestRegistryAddFS(t *testing.T) {
	fsys := fstest.MapFS{
		"defs/custom.yaml": &fstest.MapFile{Data: []byte(`
name: custom_tube_rack
height: 50
grid: {rows: 4, columns: 6, a1_x: 10, a1_y: 70, row_spacing: 19, column_spacing: 19}
well: {shape: circular, depth: 40, diameter: 10, max_volume: 1500}
`)},
		"defs/readme.txt": &fstest.MapFile{Data: []byte("ignored")},
	}

	r := NewRegistry()
	require.NoError(t, r.AddFS(fsys, "defs"))

	def, err := r.Load("custom_tube_rack")
	require.NoError(t, err)
	assert.Equal(t, 4, def.Grid.Rows)
	assert.Equal(t, []string{"custom_tube_rack"}, r.Names())
}

func TestParseDefinitionInvalid(t *testing.T) {
	tests := map[string]string{
		"no name":        "height: 10\ngrid: {rows: 1, columns: 1}\nwell: {shape: circular, depth: 5, diameter: 5, max_volume: 10}\n",
		"too deep":       "name: x\nheight: 10\ngrid: {rows: 1, columns: 1}\nwell: {shape: circular, depth: 20, diameter: 5, max_volume: 10}\n",
		"bad shape":      "name: x\nheight: 10\ngrid: {rows: 1, columns: 1}\nwell: {shape: hexagonal, depth: 5, max_volume: 10}\n",
		"tiprack no len": "name: x\nis_tiprack: true\nheight: 10\ngrid: {rows: 1, columns: 1}\nwell: {shape: circular, depth: 5, diameter: 5, max_volume: 10}\n",
		"unknown field":  "name: x\ncolour: red\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDefinition(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestWellsColumnMajor(t *testing.T) {
	plate := loadBuiltin(t, "corning_96_wellplate_360ul_flat")

	wells := plate.Wells()
	require.Len(t, wells, 96)
	assert.Equal(t, "A1", wells[0].Name())
	assert.Equal(t, "B1", wells[1].Name())
	assert.Equal(t, "A2", wells[8].Name())
	assert.Equal(t, "H12", wells[95].Name())

	assert.Len(t, plate.Rows(), 8)
	assert.Len(t, plate.Rows()[0], 12)
	assert.Len(t, plate.Columns(), 12)
	assert.Equal(t, "C4", plate.Columns()[3][2].Name())

	_, err := plate.Well("Z99")
	assert.ErrorIs(t, err, ErrUnknownWell)
	assert.Panics(t, func() { plate.MustWell("Z99") })
}

func TestWellGeometry(t *testing.T) {
	plate := loadBuiltin(t, "corning_96_wellplate_360ul_flat")
	plate.SetParent(types.Point{X: 100, Y: 200, Z: 0})

	a1 := plate.MustWell("A1")
	top := a1.Top(0)
	assert.InDelta(t, 114.38, top.Point.X, 1e-9)
	assert.InDelta(t, 274.24, top.Point.Y, 1e-9)
	assert.InDelta(t, 14.22, top.Point.Z, 1e-9)
	assert.Same(t, a1, top.Well)
	assert.Same(t, plate, top.Labware)

	bottom := a1.Bottom(1)
	assert.InDelta(t, 14.22-10.67+1, bottom.Point.Z, 1e-9)

	b2 := plate.MustWell("B2").Top(0)
	assert.InDelta(t, 123.38, b2.Point.X, 1e-9)
	assert.InDelta(t, 265.24, b2.Point.Y, 1e-9)

	edges := a1.Edges(1.0, -1)
	require.Len(t, edges, 4)
	assert.InDelta(t, top.Point.X+3.43, edges[0].Point.X, 1e-9)
	assert.InDelta(t, top.Point.Z-1, edges[0].Point.Z, 1e-9)

	assert.Equal(t, "A1 of corning_96_wellplate_360ul_flat", a1.String())
}

func TestTipTracking(t *testing.T) {
	rack := loadBuiltin(t, "opentrons_96_tiprack_300ul")
	assert.Equal(t, 96, rack.TipsRemaining())

	first := rack.NextTip(1)
	require.NotNil(t, first)
	assert.Equal(t, "A1", first.Name())

	rack.UseTips(first, 1)
	assert.False(t, first.HasTip())
	assert.Equal(t, "B1", rack.NextTip(1).Name())

	// A multi-channel pickup needs a full column; column 1 is now partial.
	assert.Equal(t, "A2", rack.NextTip(8).Name())

	rack.ReturnTips(first, 1)
	assert.Equal(t, "A1", rack.NextTip(1).Name())

	rack.UseTips(rack.MustWell("A1"), 8)
	assert.Equal(t, 88, rack.TipsRemaining())

	for rack.NextTip(1) != nil {
		rack.UseTips(rack.NextTip(1), 1)
	}
	assert.Zero(t, rack.TipsRemaining())
	assert.Nil(t, rack.NextTip(8))

	rack.ResetTips()
	assert.Equal(t, 96, rack.TipsRemaining())
}

func TestCanPickUp(t *testing.T) {
	rack := loadBuiltin(t, "opentrons_96_tiprack_300ul")
	other := loadBuiltin(t, "opentrons_96_tiprack_300ul")

	assert.True(t, rack.CanPickUp(rack.MustWell("C2"), 1))
	assert.False(t, rack.CanPickUp(rack.MustWell("C2"), 8), "multi-channel starts at row A")
	assert.True(t, rack.CanPickUp(rack.MustWell("A2"), 8))
	assert.False(t, rack.CanPickUp(other.MustWell("A2"), 1), "well of another rack")

	rack.UseTips(rack.MustWell("H2"), 1)
	assert.False(t, rack.CanPickUp(rack.MustWell("A2"), 8))
	assert.True(t, rack.CanPickUp(rack.MustWell("A2"), 1))
}

func TestNextTipSkipping(t *testing.T) {
	rack := loadBuiltin(t, "opentrons_96_tiprack_300ul")
	skipA1 := func(w *Well) bool { return w.Name() == "A1" }

	assert.Equal(t, "B1", rack.NextTipSkipping(1, skipA1).Name())
	assert.Equal(t, "A2", rack.NextTipSkipping(8, skipA1).Name())
	assert.Equal(t, "A1", rack.NextTipSkipping(1, nil).Name())
}

func TestNonTiprackHasNoTips(t *testing.T) {
	plate := loadBuiltin(t, "corning_96_wellplate_360ul_flat")
	assert.Nil(t, plate.NextTip(1))
	assert.Zero(t, plate.TipsRemaining())
}

func TestLocation(t *testing.T) {
	assert.True(t, Location{}.IsZero())
	assert.False(t, PointLocation(types.Point{X: 1}).IsZero())

	l := PointLocation(types.Point{X: 1}).Move(types.Point{Z: 5})
	assert.Equal(t, types.Point{X: 1, Z: 5}, l.Point)
}

func TestLabels(t *testing.T) {
	plate := loadBuiltin(t, "corning_96_wellplate_360ul_flat")
	assert.Equal(t, "corning_96_wellplate_360ul_flat", plate.Label())
	plate.SetLabel("plate")
	assert.Equal(t, "plate", plate.Label())
	assert.Equal(t, "plate (corning_96_wellplate_360ul_flat)", plate.String())
}
