package physics

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/geom"
)

// ErrNonFinite reports a velocity that became NaN or infinite during repulsion
var ErrNonFinite = errors.New("non-finite velocity")

// cell is a coarse grid coordinate
type cell struct {
	x, y int
}

// Bin lists the particle indices falling into one grid cell
type Bin []int

// RepulsionField pushes live particles away from the emitter and from each
// other. Particles are bucketed into square cells and only particles in the
// same or an adjacent cell interact.
//
// Apply forks Workers goroutines per call and joins them before returning.
// Worker w owns every index i with i % Workers == w and is the only writer of
// those deltas; bodies are read-only until every worker has finished.
type RepulsionField struct {
	cellSize float64
	workers  int
	bins     map[cell]Bin
	deltas   []r2.Vec
}

// RepulsionInput is the per-call state of a repulsion pass
type RepulsionInput struct {
	Particles []Body
	Emitter   *Body
	Dt        float64
	// Radius multiplies body sizes into interaction distances
	Radius float64
	// PairCap and EmitterCap bound the inverse-square term
	PairCap    float64
	EmitterCap float64
}

// NewRepulsionField returns a field with the given cell side and worker count
func NewRepulsionField(cellSize float64, workers int) *RepulsionField {
	if workers < 1 {
		workers = 1
	}
	return &RepulsionField{
		cellSize: cellSize,
		workers:  workers,
		bins:     make(map[cell]Bin),
	}
}

// Workers returns the fork-join fan-out
func (f *RepulsionField) Workers() int { return f.workers }

// cellOf returns the grid cell containing pos
func (f *RepulsionField) cellOf(pos r2.Vec) cell {
	return cell{
		x: int(math.Floor(pos.X / f.cellSize)),
		y: int(math.Floor(pos.Y / f.cellSize)),
	}
}

// buildBins assigns live particles to grid bins, reusing bin storage
func (f *RepulsionField) buildBins(particles []Body) {
	for k, b := range f.bins {
		f.bins[k] = b[:0]
	}
	for i := range particles {
		if !particles[i].Alive() {
			continue
		}
		c := f.cellOf(particles[i].Pos)
		f.bins[c] = append(f.bins[c], i)
	}
}

// Apply runs one repulsion pass, mutating particle velocities in place.
// On error no velocity is changed.
func (f *RepulsionField) Apply(in RepulsionInput) error {
	if len(in.Particles) == 0 {
		return nil
	}
	f.buildBins(in.Particles)
	if cap(f.deltas) < len(in.Particles) {
		f.deltas = make([]r2.Vec, len(in.Particles))
	}
	f.deltas = f.deltas[:len(in.Particles)]

	var g errgroup.Group
	for w := 0; w < f.workers; w++ {
		offset := w
		g.Go(func() error {
			return f.applyResidue(in, offset)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range in.Particles {
		p := &in.Particles[i]
		if p.Alive() {
			p.Vel = r2.Add(p.Vel, f.deltas[i])
		}
	}
	return nil
}

// applyResidue computes the delta of every index congruent to offset modulo
// the worker count
func (f *RepulsionField) applyResidue(in RepulsionInput, offset int) error {
	boxes := in.Particles
	for i := offset; i < len(boxes); i += f.workers {
		p := &boxes[i]
		f.deltas[i] = r2.Vec{}
		if !p.Alive() {
			continue
		}
		delta := r2.Add(f.emitterDelta(p, in), f.neighbourDelta(i, in))
		if !geom.Finite(r2.Add(p.Vel, delta)) {
			return fmt.Errorf("%w: particle %d", ErrNonFinite, i)
		}
		f.deltas[i] = delta
	}
	return nil
}

// emitterDelta is the push particle p receives from the emitter
func (f *RepulsionField) emitterDelta(p *Body, in RepulsionInput) r2.Vec {
	e := in.Emitter
	if e == nil || !e.Alive() {
		return r2.Vec{}
	}
	if r2.Norm(r2.Sub(p.Center(), e.Center())) >= e.Size*in.Radius {
		return r2.Vec{}
	}
	inv := InverseSquare(p.Pos, e.Center(), in.EmitterCap)
	dir := geom.Unit(r2.Sub(p.Pos, e.Pos))
	if dir == (r2.Vec{}) {
		dir = r2.Vec{Y: -1}
	}
	return r2.Scale(inv*in.Dt, dir)
}

// neighbourDelta sums the pushes particle i receives from live particles in
// the surrounding 3x3 block of cells.
func (f *RepulsionField) neighbourDelta(i int, in RepulsionInput) r2.Vec {
	boxes := in.Particles
	p := &boxes[i]
	radius := p.Size * in.Radius
	home := f.cellOf(p.Pos)

	var delta r2.Vec
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			bin, ok := f.bins[cell{x: home.x + dx, y: home.y + dy}]
			if !ok {
				continue
			}
			for _, j := range bin {
				if j == i {
					continue
				}
				q := &boxes[j]
				reach := math.Max(radius, q.Size*in.Radius)
				if r2.Norm(r2.Sub(p.Center(), q.Center())) >= reach {
					continue
				}
				inv := InverseSquare(q.Pos, p.Pos, in.PairCap)
				dir := geom.Unit(r2.Sub(p.Pos, q.Pos))
				if dir == (r2.Vec{}) {
					dir = splitDirection(i, j)
				}
				delta = r2.Add(delta, r2.Scale(inv*in.Dt, dir))
			}
		}
	}
	return delta
}

// InverseSquare returns 1/d² clamped to [0, limit], where d is the distance
// between the unit vectors of a and b. Coincident directions yield limit.
// Measuring between normalized positions is not dimensionally sound; it is
// kept because the tuning of the cap values depends on it.
func InverseSquare(a, b r2.Vec, limit float64) float64 {
	d2 := r2.Norm2(r2.Sub(geom.Unit(a), geom.Unit(b)))
	return geom.Clamp(1/d2, 0, limit)
}

// splitDirection separates two coincident particles along X, in opposite
// directions for i and j.
func splitDirection(i, j int) r2.Vec {
	if i > j {
		return r2.Vec{X: 1}
	}
	return r2.Vec{X: -1}
}
