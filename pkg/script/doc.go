// Scripts are YAML documents with three sections:
//
//	name: plate fill
//	labware:
//	  - {name: opentrons_96_tiprack_300ul, slot: 1, label: tips}
//	  - {name: corning_96_wellplate_360ul_flat, slot: 2, label: plate}
//	instruments:
//	  - {name: p300_single, mount: left, tip_racks: [tips]}
//	steps:
//	  - {action: transfer, instrument: left, volume: 100, source: "plate:A1", dest: "plate:B1"}
//
// # Wells
//
// Wells are referenced as "<label>:<well>". The fixed trash is labelled
// "trash". Labels are resolved against the deck when the step runs.
//
// # Loading
//
// Parse and Load check structure, action names, required fields, and
// reference syntax. Anything that depends on the deck or the attached
// hardware is reported by Runner.Run as a *StepError.
//
// # Running
//
// Runner executes steps in order through a handler per action. Custom
// actions are added with RegisterHandler. The first failing step stops the
// run.
package script
