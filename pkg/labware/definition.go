package labware

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Definition errors.
var (
	ErrInvalidDefinition = errors.New("invalid labware definition")
	ErrUnknownDefinition = errors.New("unknown labware")
	ErrUnknownWell       = errors.New("unknown well")
)

// WellShape is the cross-section of a well.
type WellShape string

const (
	ShapeCircular    WellShape = "circular"
	ShapeRectangular WellShape = "rectangular"
)

// Definition is the static description of a labware type.
type Definition struct {
	Name        string  `yaml:"name"`
	DisplayName string  `yaml:"display_name"`
	IsTiprack   bool    `yaml:"is_tiprack"`
	TipLength   float64 `yaml:"tip_length"`

	// Height is the Z of the labware top above its parent point.
	Height float64 `yaml:"height"`

	Grid GridDefinition `yaml:"grid"`
	Well WellDefinition `yaml:"well"`
}

// GridDefinition lays wells out in rows (A, B, ...) and columns (1, 2, ...).
// A1 is the back-left well; rows advance towards the front (decreasing Y),
// columns towards the right (increasing X).
type GridDefinition struct {
	Rows          int     `yaml:"rows"`
	Columns       int     `yaml:"columns"`
	A1X           float64 `yaml:"a1_x"`
	A1Y           float64 `yaml:"a1_y"`
	RowSpacing    float64 `yaml:"row_spacing"`
	ColumnSpacing float64 `yaml:"column_spacing"`
}

// WellDefinition describes every well of a grid.
type WellDefinition struct {
	Shape      WellShape `yaml:"shape"`
	Depth      float64   `yaml:"depth"`
	Diameter   float64   `yaml:"diameter"`
	XDimension float64   `yaml:"x_dimension"`
	YDimension float64   `yaml:"y_dimension"`
	MaxVolume  float64   `yaml:"max_volume"`
}

// Validate checks the definition's structural invariants.
func (d *Definition) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	case d.Grid.Rows < 1 || d.Grid.Rows > 26:
		return fmt.Errorf("%w: %s: rows must be 1-26, got %d", ErrInvalidDefinition, d.Name, d.Grid.Rows)
	case d.Grid.Columns < 1:
		return fmt.Errorf("%w: %s: columns must be positive", ErrInvalidDefinition, d.Name)
	case d.Height <= 0:
		return fmt.Errorf("%w: %s: height must be positive", ErrInvalidDefinition, d.Name)
	case d.Well.Depth <= 0 || d.Well.Depth > d.Height:
		return fmt.Errorf("%w: %s: well depth %g outside (0, %g]", ErrInvalidDefinition, d.Name, d.Well.Depth, d.Height)
	case d.Well.MaxVolume <= 0:
		return fmt.Errorf("%w: %s: well max_volume must be positive", ErrInvalidDefinition, d.Name)
	case d.IsTiprack && d.TipLength <= 0:
		return fmt.Errorf("%w: %s: tip racks need a tip_length", ErrInvalidDefinition, d.Name)
	}

	switch d.Well.Shape {
	case ShapeCircular:
		if d.Well.Diameter <= 0 {
			return fmt.Errorf("%w: %s: circular wells need a diameter", ErrInvalidDefinition, d.Name)
		}
	case ShapeRectangular:
		if d.Well.XDimension <= 0 || d.Well.YDimension <= 0 {
			return fmt.Errorf("%w: %s: rectangular wells need x and y dimensions", ErrInvalidDefinition, d.Name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown well shape %q", ErrInvalidDefinition, d.Name, d.Well.Shape)
	}
	return nil
}

// ParseDefinition decodes and validates one YAML definition.
func ParseDefinition(r io.Reader) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// wellName returns the name of the well at zero-based row and column.
func wellName(row, col int) string {
	return fmt.Sprintf("%c%d", 'A'+row, col+1)
}
