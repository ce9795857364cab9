package control

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/geom"
)

// DragTracker accumulates pointer velocity normalized to the arena size
// while the emitter is being dragged.
type DragTracker struct {
	Arena geom.Rect

	active bool
	acc    r2.Vec
}

// Move adds one frame of pointer movement
func (d *DragTracker) Move(delta r2.Vec, frameSeconds float64) {
	d.active = true
	if frameSeconds <= 0 || d.Arena.Empty() {
		return
	}
	norm := r2.Vec{X: delta.X / d.Arena.W, Y: delta.Y / d.Arena.H}
	d.acc = r2.Add(d.acc, r2.Scale(1/frameSeconds, norm))
}

// Active reports whether a drag is in progress
func (d *DragTracker) Active() bool { return d.active }

// Release ends the drag and returns the accumulated velocity
func (d *DragTracker) Release() r2.Vec {
	v := d.acc
	d.acc = r2.Vec{}
	d.active = false
	if !geom.Finite(v) {
		return r2.Vec{}
	}
	return v
}
