package script

import "fmt"

// Script is a complete protocol.
type Script struct {
	// Name identifies the protocol.
	Name string `yaml:"name"`

	// Version is the script format version, "major.minor". Empty means
	// the current version.
	Version string `yaml:"version,omitempty"`

	// Description explains what the protocol does.
	Description string `yaml:"description,omitempty"`

	// Labware is loaded onto the deck before the first step.
	Labware []LabwareSpec `yaml:"labware"`

	// Instruments are loaded after the labware.
	Instruments []InstrumentSpec `yaml:"instruments"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// LabwareSpec places one labware definition on the deck.
type LabwareSpec struct {
	Name  string `yaml:"name"`
	Slot  int    `yaml:"slot"`
	Label string `yaml:"label,omitempty"`
	Share bool   `yaml:"share,omitempty"`
}

// InstrumentSpec loads one pipette.
type InstrumentSpec struct {
	// Name is the pipette model, e.g. "p300_single".
	Name string `yaml:"name"`

	// Mount is "left" or "right".
	Mount string `yaml:"mount"`

	// TipRacks are labware labels, in pick-up order.
	TipRacks []string `yaml:"tip_racks,omitempty"`

	// Trash is the label of the tip disposal labware. Defaults to the
	// fixed trash.
	Trash string `yaml:"trash,omitempty"`

	// Optional configuration overrides.
	AspirateFlowRate float64  `yaml:"aspirate_flow_rate,omitempty"`
	DispenseFlowRate float64  `yaml:"dispense_flow_rate,omitempty"`
	PickUpCurrent    *float64 `yaml:"pick_up_current,omitempty"`
}

// MixSpec is a mix inside a composite step.
type MixSpec struct {
	Repetitions int     `yaml:"repetitions"`
	Volume      float64 `yaml:"volume,omitempty"`
}

// Step is one script action. Which fields apply depends on Action.
// Wells are written as "<label>:<well>", e.g. "plate:A1".
type Step struct {
	Action      string `yaml:"action"`
	Description string `yaml:"description,omitempty"`

	// Instrument is the mount of the pipette to use.
	Instrument string `yaml:"instrument,omitempty"`

	Message string  `yaml:"message,omitempty"`
	Volume  float64 `yaml:"volume,omitempty"`
	Rate    float64 `yaml:"rate,omitempty"`

	Well    string   `yaml:"well,omitempty"`
	Source  string   `yaml:"source,omitempty"`
	Dest    string   `yaml:"dest,omitempty"`
	Sources []string `yaml:"sources,omitempty"`
	Dests   []string `yaml:"dests,omitempty"`

	Repetitions int      `yaml:"repetitions,omitempty"`
	Strategy    string   `yaml:"strategy,omitempty"`
	Height      float64  `yaml:"height,omitempty"`
	Radius      *float64 `yaml:"radius,omitempty"`
	VOffset     *float64 `yaml:"v_offset,omitempty"`
	Speed       *float64 `yaml:"speed,omitempty"`
	Presses     int      `yaml:"presses,omitempty"`
	Increment   *float64 `yaml:"increment,omitempty"`
	HomeAfter   *bool    `yaml:"home_after,omitempty"`

	// Composite options.
	NewTip         string   `yaml:"new_tip,omitempty"`
	ReturnTips     bool     `yaml:"return_tips,omitempty"`
	AirGap         float64  `yaml:"air_gap,omitempty"`
	TouchTip       bool     `yaml:"touch_tip,omitempty"`
	BlowOut        bool     `yaml:"blow_out,omitempty"`
	DisposalVolume float64  `yaml:"disposal_volume,omitempty"`
	MixBefore      *MixSpec `yaml:"mix_before,omitempty"`
	MixAfter       *MixSpec `yaml:"mix_after,omitempty"`
}

// LoadError describes a script that could not be loaded.
type LoadError struct {
	// File is the script path, if it came from a file.
	File string

	// Step is the 1-based step number, or 0 if the error is not in a step.
	Step int

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Step > 0 {
		msg = fmt.Sprintf("step %d: %s", e.Step, msg)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// StepError reports the step at which a run stopped.
type StepError struct {
	// Index is the 0-based step index.
	Index  int
	Action string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Action, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
