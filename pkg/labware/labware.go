package labware

import (
	"fmt"

	"github.com/labrobot/labrobot-go/pkg/types"
)

// Labware is a placed instance of a Definition.
type Labware struct {
	def    *Definition
	parent types.Point
	label  string

	// wells in column-major order (A1, B1, ..., A2, ...).
	wells  []*Well
	byName map[string]*Well
}

// New instantiates def at the deck origin. Placing it on a deck moves it.
func New(def *Definition) *Labware {
	lw := &Labware{
		def:    def,
		byName: make(map[string]*Well, def.Grid.Rows*def.Grid.Columns),
	}
	for col := 0; col < def.Grid.Columns; col++ {
		for row := 0; row < def.Grid.Rows; row++ {
			w := &Well{
				labware: lw,
				name:    wellName(row, col),
				row:     row,
				column:  col,
				hasTip:  def.IsTiprack,
			}
			lw.wells = append(lw.wells, w)
			lw.byName[w.name] = w
		}
	}
	return lw
}

// Name is the definition name.
func (l *Labware) Name() string { return l.def.Name }

// Definition returns the static definition.
func (l *Labware) Definition() *Definition { return l.def }

// Label is the script-facing label, defaulting to the definition name.
func (l *Labware) Label() string {
	if l.label != "" {
		return l.label
	}
	return l.def.Name
}

// SetLabel sets the script-facing label.
func (l *Labware) SetLabel(label string) { l.label = label }

// IsTiprack reports whether the labware holds tips.
func (l *Labware) IsTiprack() bool { return l.def.IsTiprack }

// TipLength is the nominal tip length for tip racks, zero otherwise.
func (l *Labware) TipLength() float64 { return l.def.TipLength }

// Parent is the deck point the labware origin sits on.
func (l *Labware) Parent() types.Point { return l.parent }

// SetParent moves the labware origin.
func (l *Labware) SetParent(p types.Point) { l.parent = p }

// Top is a location at the labware's top plane, z mm above it.
func (l *Labware) Top(z float64) Location {
	return Location{Point: l.parent.Add(types.Point{Z: l.def.Height + z}), Labware: l}
}

// Wells returns every well in column-major order.
func (l *Labware) Wells() []*Well {
	out := make([]*Well, len(l.wells))
	copy(out, l.wells)
	return out
}

// Well looks a well up by name ("A1").
func (l *Labware) Well(name string) (*Well, error) {
	w, ok := l.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnknownWell, name, l.Label())
	}
	return w, nil
}

// MustWell is Well for well names known to exist; it panics otherwise.
func (l *Labware) MustWell(name string) *Well {
	w, err := l.Well(name)
	if err != nil {
		panic(err)
	}
	return w
}

// Rows returns the wells grouped by row.
func (l *Labware) Rows() [][]*Well {
	g := l.def.Grid
	rows := make([][]*Well, g.Rows)
	for i := range rows {
		rows[i] = make([]*Well, g.Columns)
	}
	for _, w := range l.wells {
		rows[w.row][w.column] = w
	}
	return rows
}

// Columns returns the wells grouped by column.
func (l *Labware) Columns() [][]*Well {
	g := l.def.Grid
	cols := make([][]*Well, g.Columns)
	for c := range cols {
		cols[c] = l.wells[c*g.Rows : (c+1)*g.Rows]
	}
	return cols
}

// NextTip returns the first well from which channels tips can be picked up
// in one motion, or nil when none is left. Multi-channel pickups need a full
// column starting at row A.
func (l *Labware) NextTip(channels int) *Well {
	return l.NextTipSkipping(channels, nil)
}

// NextTipSkipping is NextTip ignoring start wells for which skip is true.
func (l *Labware) NextTipSkipping(channels int, skip func(*Well) bool) *Well {
	if !l.def.IsTiprack {
		return nil
	}
	for _, w := range l.wells {
		if skip != nil && skip(w) {
			continue
		}
		if l.CanPickUp(w, channels) {
			return w
		}
	}
	return nil
}

// CanPickUp reports whether channels tips can be picked up starting at w.
// Single-channel pickups need a tip in w; multi-channel pickups need w in
// row A and a tip in every well of the column below it.
func (l *Labware) CanPickUp(w *Well, channels int) bool {
	if !l.def.IsTiprack || w == nil || w.labware != l {
		return false
	}
	if channels <= 1 {
		return w.hasTip
	}
	col := l.Columns()[w.column]
	if w.row != 0 || len(col) < channels {
		return false
	}
	for _, c := range col[:channels] {
		if !c.hasTip {
			return false
		}
	}
	return true
}

// UseTips marks channels tips starting at start as taken.
func (l *Labware) UseTips(start *Well, channels int) {
	l.setTips(start, channels, false)
}

// ReturnTips marks channels tips starting at start as available again.
func (l *Labware) ReturnTips(start *Well, channels int) {
	l.setTips(start, channels, true)
}

// TipsRemaining counts unused tips.
func (l *Labware) TipsRemaining() int {
	n := 0
	for _, w := range l.wells {
		if w.hasTip {
			n++
		}
	}
	return n
}

// ResetTips refills the rack.
func (l *Labware) ResetTips() {
	for _, w := range l.wells {
		w.hasTip = l.def.IsTiprack
	}
}

func (l *Labware) setTips(start *Well, channels int, present bool) {
	if start == nil || start.labware != l {
		return
	}
	if channels < 1 {
		channels = 1
	}
	col := l.Columns()[start.column]
	for row := start.row; row < len(col) && row < start.row+channels; row++ {
		col[row].hasTip = present
	}
}

// String returns the label and definition name.
func (l *Labware) String() string {
	if l.label != "" && l.label != l.def.Name {
		return fmt.Sprintf("%s (%s)", l.label, l.def.Name)
	}
	return l.def.Name
}
