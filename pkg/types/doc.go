// Package types holds the small value types shared by every layer of a run:
// pipette mounts, deck-space points, and motion strategies.
//
// Mounts form a closed enumeration. Code that keys state by mount should
// iterate [Mounts] rather than hard-coding the set, so that per-mount slots
// stay exhaustive.
package types
