package labware

import (
	"fmt"

	"github.com/labrobot/labrobot-go/pkg/types"
)

// Well is an addressable compartment of a Labware.
type Well struct {
	labware *Labware
	name    string
	row     int
	column  int
	hasTip  bool
}

// Name is the well name ("A1").
func (w *Well) Name() string { return w.name }

// Labware returns the owning labware.
func (w *Well) Labware() *Labware { return w.labware }

// HasTip reports whether a tip rack well still holds its tip.
func (w *Well) HasTip() bool { return w.hasTip }

// MaxVolume is the well capacity, in µL.
func (w *Well) MaxVolume() float64 { return w.labware.def.Well.MaxVolume }

// Depth is the distance from the well top to its bottom, in mm.
func (w *Well) Depth() float64 { return w.labware.def.Well.Depth }

// Size returns the well's X and Y extents. Circular wells report their
// diameter for both.
func (w *Well) Size() (x, y float64) {
	wd := w.labware.def.Well
	if wd.Shape == ShapeCircular {
		return wd.Diameter, wd.Diameter
	}
	return wd.XDimension, wd.YDimension
}

// center is the absolute point at the middle of the well's top plane.
func (w *Well) center() types.Point {
	g := w.labware.def.Grid
	off := types.Point{
		X: g.A1X + float64(w.column)*g.ColumnSpacing,
		Y: g.A1Y - float64(w.row)*g.RowSpacing,
		Z: w.labware.def.Height,
	}
	return w.labware.parent.Add(off)
}

// Top is a location z mm above the well's top plane (negative is inside).
func (w *Well) Top(z float64) Location {
	return w.at(w.center().Add(types.Point{Z: z}))
}

// Bottom is a location z mm above the well's bottom.
func (w *Well) Bottom(z float64) Location {
	return w.at(w.center().Add(types.Point{Z: z - w.Depth()}))
}

// Center is a location at the well's volumetric middle.
func (w *Well) Center() Location {
	return w.at(w.center().Add(types.Point{Z: -w.Depth() / 2}))
}

// Edges returns four locations on the well wall at the given top offset,
// scaled inwards by radius (1.0 touches the wall): right, left, back, front.
func (w *Well) Edges(radius, vOffset float64) []Location {
	x, y := w.Size()
	c := w.center().Add(types.Point{Z: vOffset})
	dx, dy := radius*x/2, radius*y/2
	return []Location{
		w.at(c.Add(types.Point{X: dx})),
		w.at(c.Add(types.Point{X: -dx})),
		w.at(c.Add(types.Point{Y: dy})),
		w.at(c.Add(types.Point{Y: -dy})),
	}
}

func (w *Well) at(p types.Point) Location {
	return Location{Point: p, Labware: w.labware, Well: w}
}

// String returns "A1 of <labware>".
func (w *Well) String() string {
	return fmt.Sprintf("%s of %s", w.name, w.labware.Label())
}
