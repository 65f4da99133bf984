package geom

import (
	"fmt"
	"math"
)

// Point is an integer grid coordinate.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Vec returns p as a fractional vector.
func (p Point) Vec() Vec {
	return Vec{X: float64(p.X), Y: float64(p.Y)}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Size is the width and height of a grid.
type Size struct {
	W int `yaml:"w" json:"w"`
	H int `yaml:"h" json:"h"`
}

// Area returns W*H, or 0 for a degenerate size.
func (s Size) Area() int {
	if s.W <= 0 || s.H <= 0 {
		return 0
	}
	return s.W * s.H
}

// Contains reports whether p lies inside the grid.
func (s Size) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < s.W && p.Y < s.H
}

// Index returns the row-major index of p. p must be inside the grid.
func (s Size) Index(p Point) int {
	return p.Y*s.W + p.X
}

// PointAt returns the point at row-major index i.
func (s Size) PointAt(i int) Point {
	return Point{X: i % s.W, Y: i / s.W}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Vec is a fractional position or displacement. Cargo offsets inside a cell
// live in [0,1)x[0,1).
type Vec struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Add returns v+w.
func (v Vec) Add(w Vec) Vec {
	return Vec{v.X + w.X, v.Y + w.Y}
}

// Sub returns v-w.
func (v Vec) Sub(w Vec) Vec {
	return Vec{v.X - w.X, v.Y - w.Y}
}

// Scale returns v*k.
func (v Vec) Scale(k float64) Vec {
	return Vec{v.X * k, v.Y * k}
}

// Floor returns the grid point containing v.
func (v Vec) Floor() Point {
	return Point{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))}
}

// InUnit reports whether v lies in [0,1)x[0,1).
func (v Vec) InUnit() bool {
	return v.X >= 0 && v.X < 1 && v.Y >= 0 && v.Y < 1
}

// Finite reports whether both components are finite numbers.
func (v Vec) Finite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Clamp limits v to the half-open box [0,s.W)x[0,s.H).
func (v Vec) Clamp(s Size) Vec {
	maxX := math.Nextafter(float64(s.W), 0)
	maxY := math.Nextafter(float64(s.H), 0)
	return Vec{
		X: math.Min(math.Max(v.X, 0), maxX),
		Y: math.Min(math.Max(v.Y, 0), maxY),
	}
}

func (v Vec) String() string {
	return fmt.Sprintf("(%g,%g)", v.X, v.Y)
}
