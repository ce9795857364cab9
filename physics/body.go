// Package physics implements the emitter toy's simulation core: body
// integration with barrier collisions, the gridded repulsion field, the
// particle ring buffer and the Simulation aggregate that ties them together.
package physics

import (
	"image/color"
	"math"

	"github.com/crazy3lf/colorconv"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/geom"
)

// Color is stored as HSV; RGB is derived on demand
type Color struct {
	H float64 `json:"h"` // degrees, [0, 360)
	S float64 `json:"s"`
	V float64 `json:"v"`
}

var (
	// Red is the hue every particle is born with
	Red = Color{H: 0, S: 1, V: 1}
	// White is the emitter color
	White = Color{H: 0, S: 0, V: 1}
)

// ColorFromRGBA converts an RGB color into HSV form
func ColorFromRGBA(c color.RGBA) Color {
	h, s, v := colorconv.RGBToHSV(c.R, c.G, c.B)
	return Color{H: h, S: s, V: v}
}

// RGBA returns the opaque RGB form of c
func (c Color) RGBA() color.RGBA {
	h := math.Mod(c.H, 360)
	if h < 0 {
		h += 360
	}
	r, g, b, err := colorconv.HSVToRGB(h, clamp(c.S, 0, 1), clamp(c.V, 0, 1))
	if err != nil {
		return color.RGBA{A: 0xFF}
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// Body is the common shape of the emitter and every particle.
// Pos is the top-left corner of a Size x Size square.
type Body struct {
	Pos   r2.Vec  `json:"pos"`
	Vel   r2.Vec  `json:"vel"`
	Color Color   `json:"color"`
	Size  float64 `json:"size"`
}

// Alive reports whether the body still participates in the simulation
func (b *Body) Alive() bool {
	return b.Size > 0
}

// Rect returns the body's square footprint
func (b *Body) Rect() geom.Rect {
	return geom.Square(b.Pos, math.Max(b.Size, 0))
}

// Center returns the midpoint of the footprint
func (b *Body) Center() r2.Vec {
	return b.Rect().Center()
}
