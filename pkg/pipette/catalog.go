package pipette

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog errors.
var (
	ErrUnknownModel  = errors.New("unknown pipette model")
	ErrInvalidConfig = errors.New("invalid pipette config")
)

// MaxPickUpCurrent is the upper bound for a tip pick-up current, in amperes.
const MaxPickUpCurrent = 2.0

//go:embed models.yaml
var builtinModels []byte

// Config describes one pipette model.
type Config struct {
	// Name is the model family name used by protocol scripts (e.g. "p300_single").
	Name string `yaml:"name"`

	// Model is the versioned model identifier reported by hardware.
	Model string `yaml:"model"`

	// Channels is the number of channels (1 or 8).
	Channels int `yaml:"channels"`

	// MinVolume and MaxVolume bound a single aspiration, in µL.
	MinVolume float64 `yaml:"min_volume"`
	MaxVolume float64 `yaml:"max_volume"`

	// ULPerMM is the plunger displacement factor.
	ULPerMM float64 `yaml:"ul_per_mm"`

	// MaxPlungerSpeed is the fastest plunger travel, in mm/s.
	MaxPlungerSpeed float64 `yaml:"max_plunger_speed"`

	// Default flow rates, in µL/s.
	AspirateFlowRate float64 `yaml:"aspirate_flow_rate"`
	DispenseFlowRate float64 `yaml:"dispense_flow_rate"`

	// PickUpCurrent is the default tip pick-up current, in amperes.
	PickUpCurrent float64 `yaml:"pick_up_current"`

	// TipLength is the nominal tip length, in mm.
	TipLength float64 `yaml:"tip_length"`
}

// Type returns the channel layout of the model.
func (c Config) Type() Type {
	return TypeForChannels(c.Channels)
}

// MaxFlowRate is the flow rate reached at MaxPlungerSpeed.
func (c Config) MaxFlowRate() float64 {
	return c.MaxPlungerSpeed * c.ULPerMM
}

// FlowRateForSpeed converts a plunger speed (mm/s) to a flow rate (µL/s).
func (c Config) FlowRateForSpeed(speed float64) float64 {
	return speed * c.ULPerMM
}

// SpeedForFlowRate converts a flow rate (µL/s) to a plunger speed (mm/s).
func (c Config) SpeedForFlowRate(flowRate float64) float64 {
	if c.ULPerMM == 0 {
		return 0
	}
	return flowRate / c.ULPerMM
}

// Validate checks the model's numeric invariants.
func (c Config) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	case c.Channels != 1 && c.Channels != 8:
		return fmt.Errorf("%w: %s: channels must be 1 or 8, got %d", ErrInvalidConfig, c.Name, c.Channels)
	case c.MaxVolume <= 0 || c.MinVolume < 0 || c.MinVolume > c.MaxVolume:
		return fmt.Errorf("%w: %s: volume range [%g, %g]", ErrInvalidConfig, c.Name, c.MinVolume, c.MaxVolume)
	case c.ULPerMM <= 0:
		return fmt.Errorf("%w: %s: ul_per_mm must be positive", ErrInvalidConfig, c.Name)
	case c.MaxPlungerSpeed <= 0:
		return fmt.Errorf("%w: %s: max_plunger_speed must be positive", ErrInvalidConfig, c.Name)
	case c.AspirateFlowRate <= 0 || c.AspirateFlowRate > c.MaxFlowRate():
		return fmt.Errorf("%w: %s: aspirate_flow_rate %g out of range", ErrInvalidConfig, c.Name, c.AspirateFlowRate)
	case c.DispenseFlowRate <= 0 || c.DispenseFlowRate > c.MaxFlowRate():
		return fmt.Errorf("%w: %s: dispense_flow_rate %g out of range", ErrInvalidConfig, c.Name, c.DispenseFlowRate)
	case c.PickUpCurrent <= 0 || c.PickUpCurrent > MaxPickUpCurrent:
		return fmt.Errorf("%w: %s: pick_up_current %g out of range", ErrInvalidConfig, c.Name, c.PickUpCurrent)
	}
	return nil
}

// Catalog is a read-only set of pipette models keyed by name and model.
type Catalog struct {
	byName  map[string]Config
	byModel map[string]Config
}

type catalogFile struct {
	Models []Config `yaml:"models"`
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode pipette catalog: %w", err)
	}

	c := &Catalog{
		byName:  make(map[string]Config, len(file.Models)),
		byModel: make(map[string]Config, len(file.Models)),
	}
	for _, m := range file.Models {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[m.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidConfig, m.Name)
		}
		if m.Model == "" {
			m.Model = m.Name
		}
		c.byName[m.Name] = m
		c.byModel[m.Model] = m
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := ParseCatalog(bytes.NewReader(builtinModels))
		if err != nil {
			panic(fmt.Sprintf("builtin pipette catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Lookup finds a model by name, falling back to the versioned model id.
func (c *Catalog) Lookup(name string) (Config, error) {
	if cfg, ok := c.byName[name]; ok {
		return cfg, nil
	}
	if cfg, ok := c.byModel[name]; ok {
		return cfg, nil
	}
	return Config{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// Names returns the sorted model names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
