package deck

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/labrobot/labrobot-go/pkg/labware"
	"github.com/labrobot/labrobot-go/pkg/types"
)

// Deck errors.
var (
	ErrInvalidSlot      = errors.New("invalid deck slot")
	ErrLocationOccupied = errors.New("deck location occupied")
)

// Slot geometry, in millimetres.
const (
	SlotCount   = 12
	SlotPitchX  = 132.5
	SlotPitchY  = 90.5
	slotsPerRow = 3
)

// FixedTrashSlot is where the fixed trash is loaded.
const FixedTrashSlot Slot = 12

// Slot identifies a fixed deck location (1-12).
type Slot int

// Valid reports whether s is a deck slot.
func (s Slot) Valid() bool {
	return s >= 1 && s <= SlotCount
}

// String returns the slot number.
func (s Slot) String() string {
	return strconv.Itoa(int(s))
}

// ParseSlot parses a slot number.
func ParseSlot(str string) (Slot, error) {
	n, err := strconv.Atoi(str)
	if err != nil || !Slot(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, str)
	}
	return Slot(n), nil
}

// Placement is one labware at one slot.
type Placement struct {
	Slot    Slot
	Labware *labware.Labware
}

// Deck tracks which labware occupies which slot.
// It is safe for concurrent use.
type Deck struct {
	mu    sync.RWMutex
	slots map[Slot][]*labware.Labware
}

// New returns an empty deck.
func New() *Deck {
	return &Deck{slots: make(map[Slot][]*labware.Labware)}
}

// PositionFor returns the point at a slot's origin.
func (d *Deck) PositionFor(s Slot) (types.Point, error) {
	if !s.Valid() {
		return types.Point{}, fmt.Errorf("%w: %d", ErrInvalidSlot, int(s))
	}
	i := int(s) - 1
	return types.Point{
		X: float64(i%slotsPerRow) * SlotPitchX,
		Y: float64(i/slotsPerRow) * SlotPitchY,
	}, nil
}

// Place puts lw at slot s and moves it to the slot's origin. Unless share is
// set, an occupied slot is rejected with ErrLocationOccupied and the deck is
// left unchanged. Shared labware stacks; the most recent placement is on top.
func (d *Deck) Place(s Slot, lw *labware.Labware, share bool) error {
	pos, err := d.PositionFor(s)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing := d.slots[s]; len(existing) > 0 && !share {
		return fmt.Errorf("%w: slot %d holds %s", ErrLocationOccupied, int(s), existing[len(existing)-1])
	}
	lw.SetParent(pos)
	d.slots[s] = append(d.slots[s], lw)
	return nil
}

// Remove clears a slot and returns what was there.
func (d *Deck) Remove(s Slot) []*labware.Labware {
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := d.slots[s]
	delete(d.slots, s)
	return removed
}

// At returns every labware at s, bottom first.
func (d *Deck) At(s Slot) []*labware.Labware {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*labware.Labware, len(d.slots[s]))
	copy(out, d.slots[s])
	return out
}

// Top returns the topmost labware at s, or nil.
func (d *Deck) Top(s Slot) *labware.Labware {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stack := d.slots[s]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// Snapshot returns the topmost labware of every occupied slot, ordered by slot.
func (d *Deck) Snapshot() []Placement {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Placement, 0, len(d.slots))
	for s, stack := range d.slots {
		if len(stack) == 0 {
			continue
		}
		out = append(out, Placement{Slot: s, Labware: stack[len(stack)-1]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// FindByLabel returns the first labware whose label matches, searching slots
// in order and each stack from the top.
func (d *Deck) FindByLabel(label string) *labware.Labware {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for s := Slot(1); s <= SlotCount; s++ {
		stack := d.slots[s]
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].Label() == label {
				return stack[i]
			}
		}
	}
	return nil
}
