// Package pipette describes pipette models: their volume range, plunger
// geometry, default flow rates, and tip pick-up current.
//
// Models are held in a [Catalog]. The default catalog is decoded from an
// embedded YAML document; additional catalogs can be parsed from any reader
// with [ParseCatalog].
//
// A pipette moves its plunger in millimetres per second but moves liquid in
// microlitres per second. The two are related by the model's µL-per-mm
// factor:
//
//	flowRate = speed * ULPerMM
//
// [Config.FlowRateForSpeed] and [Config.SpeedForFlowRate] convert between them.
package pipette
