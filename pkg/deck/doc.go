// Package deck is the deck model: twelve fixed slots arranged in a 3x4 grid,
// the point each slot's origin sits on, and the labware occupying each slot.
//
//	10  11  12
//	 7   8   9
//	 4   5   6
//	 1   2   3
//
// Slot 12 conventionally holds the fixed trash.
package deck
