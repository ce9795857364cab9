package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/geom"
)

// minBounceSpeed keeps a resting body from flipping its velocity forever
const minBounceSpeed = .01

// Axis selects the velocity component a collision reflects
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
)

// Contact records what a body touched during one integration step
type Contact uint8

const (
	ContactWallX Contact = 1 << iota
	ContactWallY
	ContactBarrier
)

// Any reports whether any contact happened
func (c Contact) Any() bool { return c != 0 }

// StepOptions carry the per-step mode switches
type StepOptions struct {
	Gravity      bool
	Jitter       bool
	JitterFactor float64
	// Time is the simulation clock fed to the jitter source
	Time float64
}

// Integrator advances single bodies through the arena
type Integrator struct {
	Arena     geom.Rect
	MaxSize   float64
	Gravity   float64
	DragSmall float64
	DragLarge float64
	Jitter    Jitter
}

// Step moves b by one time step of dt: clamp into the arena, bounce off
// walls and barriers, then apply gravity, jitter and drag.
func (in *Integrator) Step(b *Body, dt float64, barriers *BarrierField, opts StepOptions) Contact {
	var contact Contact
	size := math.Max(b.Size, 0)
	lo, hi := in.limits(size)

	b.Pos = geom.ClampVec(r2.Add(b.Pos, r2.Scale(dt, b.Vel)), lo, hi)
	speed := r2.Norm(b.Vel)

	if speed > minBounceSpeed && (b.Pos.X == lo.X || b.Pos.X == hi.X) {
		in.bounce(b, size, AxisX)
		contact |= ContactWallX
	}
	if speed > minBounceSpeed && (b.Pos.Y == lo.Y || b.Pos.Y == hi.Y) {
		in.bounce(b, size, AxisY)
		contact |= ContactWallY
	}

	if in.resolveBarriers(b, size, barriers) {
		contact |= ContactBarrier
		b.Pos = geom.ClampVec(b.Pos, lo, hi)
	}

	if opts.Gravity {
		b.Vel.Y += in.Gravity * dt
	}

	if opts.Jitter && in.Jitter != nil {
		speed = r2.Norm(b.Vel)
		kick := r2.Scale(opts.JitterFactor, in.Jitter.Sample(b.Pos, opts.Time))
		b.Vel = r2.Scale(speed, geom.Unit(r2.Add(b.Vel, kick)))
	}

	b.Vel = r2.Scale(in.drag(b.Size), b.Vel)
	return contact
}

// limits returns the allowed range of a footprint's top-left corner.
// The lower bound sits one unit inside the arena to avoid edge degeneracy.
func (in *Integrator) limits(size float64) (lo, hi r2.Vec) {
	lo = r2.Vec{X: in.Arena.X + 1, Y: in.Arena.Y + 1}
	hi = r2.Vec{X: in.Arena.Right() - size, Y: in.Arena.Bottom() - size}
	return lo, hi
}

// resolveBarriers pushes b out of every barrier it touches. The probe strip
// with the larger overlap decides the axis, so a body wedged in a corner
// escapes along the dominant penetration.
func (in *Integrator) resolveBarriers(b *Body, size float64, barriers *BarrierField) bool {
	if barriers == nil {
		return false
	}
	hit := false
	cur := geom.Square(b.Pos, size)
	for _, barrier := range barriers.rects {
		edges := barrier.Probes()
		top := geom.Intersection(cur, edges.Top)
		bot := geom.Intersection(cur, edges.Bottom)
		left := geom.Intersection(cur, edges.Left)
		right := geom.Intersection(cur, edges.Right)

		vert := math.Max(top.W, bot.W)
		horz := math.Max(left.H, right.H)
		if vert > horz {
			switch {
			case top.W > 0:
				b.Pos.Y = edges.Top.Y - size
			case bot.W > 0:
				b.Pos.Y = edges.Bottom.Y + 1
			default:
				continue
			}
			in.bounce(b, size, AxisY)
			hit = true
			continue
		}
		switch {
		case left.H > 0:
			b.Pos.X = edges.Left.X - size
		case right.H > 0:
			b.Pos.X = edges.Right.X + 1
		default:
			continue
		}
		in.bounce(b, size, AxisX)
		hit = true
	}
	return hit
}

// bounce reflects the velocity on axis and damps the other component.
// Larger bodies lose more energy so an oversized emitter settles.
func (in *Integrator) bounce(b *Body, size float64, axis Axis) {
	friction := 1 - size/(in.MaxSize*2)
	switch axis {
	case AxisX:
		b.Vel.X *= -friction
		b.Vel.Y *= friction
	case AxisY:
		b.Vel.Y *= -friction
		b.Vel.X *= friction
	}
}

// drag is the per-step velocity retention for a body of the given size
func (in *Integrator) drag(size float64) float64 {
	return geom.Remap(size, 0, in.MaxSize, in.DragSmall, in.DragLarge)
}
