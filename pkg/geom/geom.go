// Package geom provides the 5D coordinate primitives used by tile placement
// and compositing: points, vectors, and pixel/real space conversion.
//
// Coordinates live on five axes. X, Y and Z are continuous (stage positions in
// micrometers, or pixel indices after conversion); C (channel) and T (time)
// are discrete indices and are never scaled by a pixel size.
//
// Addition and subtraction of coordinates are precision-aware: the result is
// rounded to the maximal decimal precision of the two operands. Stage metadata
// typically carries a fixed number of decimals, and letting float noise
// accumulate past that precision breaks downstream grid detection, which
// compares start coordinates against a 1e-6 offset epsilon.
package geom

import (
	"math"
	"strconv"
	"strings"
)

// PositionTol is the XY-distance threshold under which two positions are
// considered equal. Used for corner and grid-anchor comparisons.
const PositionTol = 1e-9

// Space tags whether coordinates are physical-unit ("real") or integer
// pixel-index ("pixel") values. The tag is carried by the owning box, not by
// the point itself.
type Space string

// Coordinate spaces.
const (
	SpaceReal  Space = "real"
	SpacePixel Space = "pixel"
)

// PixelSize holds the per-axis physical size of one pixel (e.g. micrometers
// per pixel). The C and T axes are index axes and have no pixel size; scaling
// in time is not supported.
type PixelSize struct {
	X float64
	Y float64
	Z float64
}

// decimals returns the number of decimal digits in the shortest exact
// representation of v.
func decimals(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0
	}
	return len(s) - idx - 1
}

// roundTo rounds v to p decimal digits.
func roundTo(v float64, p int) float64 {
	scale := math.Pow(10, float64(p))
	return math.Round(v*scale) / scale
}

// roundAdd adds two coordinates and rounds the result to the maximal decimal
// precision of the operands.
func roundAdd(a, b float64) float64 {
	return roundTo(a+b, max(decimals(a), decimals(b)))
}

// roundSub subtracts b from a and rounds the result to the maximal decimal
// precision of the operands.
func roundSub(a, b float64) float64 {
	return roundTo(a-b, max(decimals(a), decimals(b)))
}

// Vector is a displacement (or size) on the five axes.
type Vector struct {
	X float64
	Y float64
	Z float64
	C int
	T int
}

// Add returns v + o with precision-aware rounding on the continuous axes.
func (v Vector) Add(o Vector) Vector {
	return Vector{
		X: roundAdd(v.X, o.X),
		Y: roundAdd(v.Y, o.Y),
		Z: roundAdd(v.Z, o.Z),
		C: v.C + o.C,
		T: v.T + o.T,
	}
}

// Sub returns v - o with precision-aware rounding on the continuous axes.
func (v Vector) Sub(o Vector) Vector {
	return Vector{
		X: roundSub(v.X, o.X),
		Y: roundSub(v.Y, o.Y),
		Z: roundSub(v.Z, o.Z),
		C: v.C - o.C,
		T: v.T - o.T,
	}
}

// Scale multiplies the continuous axes by s. The discrete C and T axes are
// multiplied and truncated toward zero.
func (v Vector) Scale(s float64) Vector {
	return Vector{
		X: v.X * s,
		Y: v.Y * s,
		Z: v.Z * s,
		C: int(float64(v.C) * s),
		T: int(float64(v.T) * s),
	}
}

// LengthXY returns the Euclidean length of the vector's XY projection.
func (v Vector) LengthXY() float64 {
	return math.Hypot(v.X, v.Y)
}

// NormalizeXY returns the vector with its X and Y components scaled to unit
// XY length. Z, C and T are unchanged. The zero vector is returned as-is.
func (v Vector) NormalizeXY() Vector {
	length := v.LengthXY()
	if length == 0 {
		return v
	}
	v.X /= length
	v.Y /= length
	return v
}

// AllNonNegative reports whether every component of the vector is >= 0.
// Sizes are vectors and cannot be negative.
func (v Vector) AllNonNegative() bool {
	return v.X >= 0 && v.Y >= 0 && v.Z >= 0 && v.C >= 0 && v.T >= 0
}

// ToPixelSpace converts a real-space vector to pixel space, truncating the
// continuous axes toward zero. C and T never scale.
func (v Vector) ToPixelSpace(ps PixelSize) Vector {
	return Vector{
		X: math.Trunc(v.X / ps.X),
		Y: math.Trunc(v.Y / ps.Y),
		Z: math.Trunc(v.Z / ps.Z),
		C: v.C,
		T: v.T,
	}
}

// ToRealSpace converts a pixel-space vector to real space. C and T never scale.
func (v Vector) ToRealSpace(ps PixelSize) Vector {
	return Vector{
		X: v.X * ps.X,
		Y: v.Y * ps.Y,
		Z: v.Z * ps.Z,
		C: v.C,
		T: v.T,
	}
}

// Point is a position on the five axes.
type Point struct {
	X float64
	Y float64
	Z float64
	C int
	T int
}

// Add returns the point displaced by v, with precision-aware rounding on the
// continuous axes.
func (p Point) Add(v Vector) Point {
	return Point{
		X: roundAdd(p.X, v.X),
		Y: roundAdd(p.Y, v.Y),
		Z: roundAdd(p.Z, v.Z),
		C: p.C + v.C,
		T: p.T + v.T,
	}
}

// Sub returns the displacement from o to p.
func (p Point) Sub(o Point) Vector {
	return Vector{
		X: roundSub(p.X, o.X),
		Y: roundSub(p.Y, o.Y),
		Z: roundSub(p.Z, o.Z),
		C: p.C - o.C,
		T: p.T - o.T,
	}
}

// EqualXY reports whether p and o are at the same XY position within
// [PositionTol].
func (p Point) EqualXY(o Point) bool {
	return p.Sub(o).LengthXY() <= PositionTol
}

// ToPixelSpace converts a real-space point to pixel space, truncating the
// continuous axes toward zero. C and T never scale.
func (p Point) ToPixelSpace(ps PixelSize) Point {
	return Point{
		X: math.Trunc(p.X / ps.X),
		Y: math.Trunc(p.Y / ps.Y),
		Z: math.Trunc(p.Z / ps.Z),
		C: p.C,
		T: p.T,
	}
}

// ToRealSpace converts a pixel-space point to real space. C and T never scale.
func (p Point) ToRealSpace(ps PixelSize) Point {
	return Point{
		X: p.X * ps.X,
		Y: p.Y * ps.Y,
		Z: p.Z * ps.Z,
		C: p.C,
		T: p.T,
	}
}
