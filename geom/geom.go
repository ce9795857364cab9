// Package geom holds the axis-aligned rectangle and vector helpers shared by
// the integrator, the barrier field and the renderers.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Rect is an axis-aligned rectangle anchored at its top-left corner
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Square returns the footprint of a body of side size at pos
func Square(pos r2.Vec, size float64) Rect {
	return Rect{X: pos.X, Y: pos.Y, W: size, H: size}
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the midpoint of the rectangle
func (r Rect) Center() r2.Vec {
	return r2.Vec{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Intersection returns the overlapping rectangle of r and o.
// Disjoint rectangles yield the zero Rect, so callers can test W or H > 0.
func Intersection(r, o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.Right(), o.Right())
	y1 := math.Min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Overlaps reports whether r and o share a region of positive area.
// Rectangles that only touch along an edge do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return !Intersection(r, o).Empty()
}

// ContainsRect reports whether o lies fully inside r, edges inclusive
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// Contains reports whether p lies inside r, edges inclusive
func (r Rect) Contains(p r2.Vec) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.Right() && p.Y <= r.Bottom()
}

// Inset shrinks r by m on every side
func (r Rect) Inset(m float64) Rect {
	return Rect{X: r.X + m, Y: r.Y + m, W: r.W - 2*m, H: r.H - 2*m}
}

// Edges are the four one-unit-thick probe strips hugging a rectangle.
// Top and Left start at the rectangle origin; Bottom and Right sit just past
// the far edges.
type Edges struct {
	Top, Bottom, Left, Right Rect
}

// Probes returns the edge probe strips of r
func (r Rect) Probes() Edges {
	return Edges{
		Top:    Rect{X: r.X, Y: r.Y, W: r.W, H: 1},
		Bottom: Rect{X: r.X, Y: r.Bottom(), W: r.W, H: 1},
		Left:   Rect{X: r.X, Y: r.Y, W: 1, H: r.H},
		Right:  Rect{X: r.Right(), Y: r.Y, W: 1, H: r.H},
	}
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampVec limits each component of v to the matching range of lo and hi
func ClampVec(v, lo, hi r2.Vec) r2.Vec {
	return r2.Vec{X: Clamp(v.X, lo.X, hi.X), Y: Clamp(v.Y, lo.Y, hi.Y)}
}

// Unit returns v scaled to length one, or the zero vector when v is zero.
// r2.Unit yields NaN for the zero vector, which would poison velocities.
func Unit(v r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n == 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, v)
}

// Remap linearly maps v from [inLo, inHi] to [outLo, outHi] without clamping
func Remap(v, inLo, inHi, outLo, outHi float64) float64 {
	return outLo + (v-inLo)/(inHi-inLo)*(outHi-outLo)
}

// Finite reports whether both components of v are finite numbers
func Finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
