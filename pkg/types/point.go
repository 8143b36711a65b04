package types

import "fmt"

// Point is a position in deck coordinates, in millimetres.
type Point struct {
	X float64 `yaml:"x" json:"x" cbor:"1,keyasint"`
	Y float64 `yaml:"y" json:"y" cbor:"2,keyasint"`
	Z float64 `yaml:"z" json:"z" cbor:"3,keyasint"`
}

// Add returns p offset by o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// WithZ returns p with its Z replaced.
func (p Point) WithZ(z float64) Point {
	p.Z = z
	return p
}

// String formats the point with 0.01 mm resolution.
func (p Point) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}
