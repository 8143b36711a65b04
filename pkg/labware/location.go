package labware

import (
	"fmt"

	"github.com/labrobot/labrobot-go/pkg/types"
)

// Location is an absolute deck point, optionally tagged with the labware and
// well it lies in. The zero Location means "wherever the instrument already is".
type Location struct {
	Point   types.Point
	Labware *Labware
	Well    *Well
}

// PointLocation wraps a bare point.
func PointLocation(p types.Point) Location {
	return Location{Point: p}
}

// IsZero reports whether l is the zero Location.
func (l Location) IsZero() bool {
	return l.Labware == nil && l.Well == nil && l.Point == (types.Point{})
}

// Move returns l shifted by offset, keeping its labware tags.
func (l Location) Move(offset types.Point) Location {
	l.Point = l.Point.Add(offset)
	return l
}

// String describes the location for logs.
func (l Location) String() string {
	switch {
	case l.Well != nil:
		return fmt.Sprintf("%s %s", l.Well, l.Point)
	case l.Labware != nil:
		return fmt.Sprintf("%s %s", l.Labware, l.Point)
	default:
		return l.Point.String()
	}
}
