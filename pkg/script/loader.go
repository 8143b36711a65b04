package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/labrobot/labrobot-go/pkg/deck"
	"github.com/labrobot/labrobot-go/pkg/protocol"
	"github.com/labrobot/labrobot-go/pkg/types"
	"github.com/labrobot/labrobot-go/pkg/version"
)

// Actions returns the action names of the current script version, sorted.
func Actions() []string {
	m, err := version.LoadCurrent()
	if err != nil {
		return nil
	}
	return m.ActionNames()
}

// Parse decodes and validates a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	s, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return s, nil
}

// LoadDirectory loads every .yaml or .yml script in dir.
func LoadDirectory(dir string) ([]*Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: "failed to read directory", Cause: err}
	}

	var scripts []*Script
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		s, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// Validate checks everything that does not need a deck.
func (s *Script) Validate() error {
	if s.Name == "" {
		return &LoadError{Message: "script name is required"}
	}
	if len(s.Steps) == 0 {
		return &LoadError{Message: "script must have at least one step"}
	}
	v, err := version.Resolve(s.Version)
	if err != nil {
		return &LoadError{Message: "version", Cause: err}
	}
	manifest, err := version.Load(v.String())
	if err != nil {
		return &LoadError{Message: "version", Cause: err}
	}

	labels := map[string]bool{TrashLabel: true}
	for n, lw := range s.Labware {
		if lw.Name == "" {
			return &LoadError{Message: fmt.Sprintf("labware %d: name is required", n+1)}
		}
		if !deck.Slot(lw.Slot).Valid() {
			return &LoadError{Message: fmt.Sprintf("labware %s: slot %d out of range", lw.Name, lw.Slot)}
		}
		labels[labelOf(lw)] = true
	}

	mounts := make(map[types.Mount]bool)
	for _, inst := range s.Instruments {
		m, err := types.ParseMount(inst.Mount)
		if err != nil {
			return &LoadError{Message: fmt.Sprintf("instrument %s", inst.Name), Cause: err}
		}
		if inst.Name == "" {
			return &LoadError{Message: fmt.Sprintf("instrument on %s: name is required", m)}
		}
		if mounts[m] {
			return &LoadError{Message: fmt.Sprintf("mount %s loaded twice", m)}
		}
		mounts[m] = true
		for _, rack := range inst.TipRacks {
			if !labels[rack] {
				return &LoadError{Message: fmt.Sprintf("instrument %s: unknown tip rack %q", inst.Name, rack)}
			}
		}
		if inst.Trash != "" && !labels[inst.Trash] {
			return &LoadError{Message: fmt.Sprintf("instrument %s: unknown trash %q", inst.Name, inst.Trash)}
		}
	}

	for n := range s.Steps {
		if err := s.Steps[n].validate(manifest, mounts); err != nil {
			err.Step = n + 1
			return err
		}
	}
	return nil
}

func (st *Step) validate(manifest *version.Manifest, mounts map[types.Mount]bool) *LoadError {
	spec, ok := manifest.Action(st.Action)
	if !ok {
		return &LoadError{Message: fmt.Sprintf("unknown action %q in script version %s", st.Action, manifest.Version)}
	}

	if spec.Requires("instrument") {
		m, err := types.ParseMount(st.Instrument)
		if err != nil {
			return &LoadError{Message: "instrument", Cause: err}
		}
		if !mounts[m] {
			return &LoadError{Message: fmt.Sprintf("no instrument loaded on %s", m)}
		}
	}

	missing := func(field string) *LoadError {
		return &LoadError{Message: fmt.Sprintf("%s requires %s", st.Action, field)}
	}
	for _, field := range spec.Required {
		switch field {
		case "message":
			if st.Message == "" {
				return missing("message")
			}
		case "volume":
			if st.Volume <= 0 {
				return missing("a positive volume")
			}
		case "well":
			if st.Well == "" {
				return missing("well")
			}
		case "source":
			if st.Source == "" {
				return missing("source")
			}
		case "dest":
			if st.Dest == "" {
				return missing("dest")
			}
		case "sources":
			if len(st.Sources) == 0 {
				return missing("sources")
			}
		case "dests":
			if len(st.Dests) == 0 {
				return missing("dests")
			}
		}
	}

	refs := append([]string{st.Well, st.Source, st.Dest}, st.Sources...)
	refs = append(refs, st.Dests...)
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, _, err := splitRef(ref); err != nil {
			return &LoadError{Message: "well reference", Cause: err}
		}
	}

	if _, err := types.ParseMotionStrategy(st.Strategy); err != nil {
		return &LoadError{Message: "strategy", Cause: err}
	}
	if _, err := protocol.ParseNewTipPolicy(st.NewTip); err != nil {
		return &LoadError{Message: "new_tip", Cause: err}
	}
	return nil
}

// TrashLabel is the label of the fixed trash.
const TrashLabel = "trash"

// ErrBadReference is returned for malformed or unresolvable well references.
var ErrBadReference = errors.New("bad well reference")

// splitRef splits "label:well".
func splitRef(ref string) (label, well string, err error) {
	label, well, ok := strings.Cut(ref, ":")
	if !ok || label == "" || well == "" {
		return "", "", fmt.Errorf("%w: %q, want <label>:<well>", ErrBadReference, ref)
	}
	return label, strings.ToUpper(well), nil
}

func labelOf(lw LabwareSpec) string {
	if lw.Label != "" {
		return lw.Label
	}
	return lw.Name
}
