// Package labware models the containers placed on the deck: plates,
// reservoirs, tip racks, and the fixed trash.
//
// A [Definition] is the static description of a labware type. It is decoded
// from YAML and describes its wells as a regular grid. A [Labware] is one
// placed instance of a definition; it knows its parent point on the deck and,
// for tip racks, which tips have been used. A [Well] is an addressable
// compartment of a labware and produces [Location] values for motion:
//
//	plate := labware.New(def)
//	loc := plate.MustWell("A1").Bottom(1)
//
// Definitions are resolved by name through a [Registry], which bundles the
// built-in definitions and can be extended with directories of YAML files.
package labware
