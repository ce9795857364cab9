package physics

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// Aging constants
const (
	// hueStep is the hue advance per age tick, in degrees
	hueStep = 720. / 1000.
	// hueRestart is where the hue lands after passing 360°; restarting at 0
	// would flash back to pure red
	hueRestart = 10.
	// emitRate scales the emitter-to-particle velocity ratio
	emitRate = 70.
)

// Thrust is a bitmask of the directions currently being thrust toward
type Thrust uint8

const (
	ThrustUp Thrust = 1 << iota
	ThrustDown
	ThrustLeft
	ThrustRight
)

// Has reports whether every direction in d is set
func (t Thrust) Has(d Thrust) bool { return t&d == d && d != 0 }

// Any reports whether any direction is set
func (t Thrust) Any() bool { return t != 0 }

// Slot is a live particle together with its ring buffer index
type Slot struct {
	Index int  `json:"i"`
	Body  Body `json:"b"`
}

// Emitter is the privileged body owning the particle ring buffer.
// count is the number of slots ever populated, saturating at capacity;
// next is the slot the following emission overwrites.
type Emitter struct {
	Body

	particles    []Body
	count, next  int
	particleSize float64
	emitInterval int

	// offset tiles consecutive emissions across the emitter footprint
	offset r2.Vec
	ratio  float64
}

// EmitOptions parameterize a single emission
type EmitOptions struct {
	Recoil bool
	Thrust Thrust
	// RecoilScale, times the emission ratio, is the share of the particle
	// velocity subtracted from the emitter when Recoil is set
	RecoilScale float64
}

// NewEmitter creates an emitter with an empty buffer of capacity slots
func NewEmitter(body Body, capacity int, particleSize float64, emitInterval int) *Emitter {
	e := &Emitter{
		Body:         body,
		particles:    make([]Body, capacity),
		particleSize: particleSize,
		emitInterval: emitInterval,
	}
	e.resetOffset()
	e.SetSize(body.Size)
	return e
}

// Capacity returns the fixed number of particle slots
func (e *Emitter) Capacity() int { return len(e.particles) }

// Count returns the number of populated slots
func (e *Emitter) Count() int { return e.count }

// Next returns the slot the next emission will overwrite
func (e *Emitter) Next() int { return e.next }

// Ratio returns the emitter-to-particle velocity ratio
func (e *Emitter) Ratio() float64 { return e.ratio }

// Particles returns the populated slots, dead ones included
func (e *Emitter) Particles() []Body {
	return e.particles[:e.count]
}

// Reset forgets every particle
func (e *Emitter) Reset() {
	e.count = 0
	e.next = 0
}

// SetSize resizes the emitter and recomputes the emission ratio
func (e *Emitter) SetSize(size float64) {
	e.Size = size
	e.ratio = e.particleSize / (size * float64(len(e.particles)) / (float64(e.emitInterval) * emitRate))
}

func (e *Emitter) resetOffset() {
	e.offset = r2.Vec{X: e.particleSize / 2, Y: e.particleSize / 2}
}

// Emit writes a fresh particle into slot next and advances the cursors.
// It returns a copy of the new particle.
func (e *Emitter) Emit(rng *rand.Rand, opts EmitOptions) Body {
	p := &e.particles[e.next]
	p.Size = e.particleSize
	p.Color = Red

	p.Pos = r2.Add(e.Pos, e.nextOffset(opts))
	if opts.Recoil && opts.Thrust.Has(ThrustRight) {
		e.offset.Y += p.Size
	}

	fuzz := r2.Vec{
		X: float64(randRange(rng, -64, 64)) / 8,
		Y: float64(randRange(rng, -128, 128)) / 8,
	}
	fuzz = r2.Add(fuzz, r2.Scale(e.ratio, e.Vel))
	if opts.Recoil {
		fuzz = exhaust(fuzz, opts.Thrust)
	}
	p.Vel = fuzz
	if opts.Recoil {
		e.Vel = r2.Sub(e.Vel, r2.Scale(opts.RecoilScale*e.ratio, fuzz))
	}

	if e.count < len(e.particles) {
		e.count++
	}
	e.next++
	if e.next >= len(e.particles) {
		e.next = 0
	}
	return *p
}

// nextOffset advances the tiling cursor and returns the emission offset.
// While thrusting a large enough emitter, particles leave from the edge
// opposite the thrust.
func (e *Emitter) nextOffset(opts EmitOptions) r2.Vec {
	ps := e.particleSize
	wrap := 0.
	if e.Size > ps*2 {
		wrap = ps / 2
	}

	e.offset.X += ps
	if e.offset.X > e.Size-ps {
		e.offset.X = wrap
		e.offset.Y += ps
	}
	if e.offset.Y > e.Size-ps {
		e.offset.Y = wrap
	}

	if opts.Recoil && e.Size > ps*2 {
		t := opts.Thrust
		if t.Has(ThrustUp) || t.Has(ThrustDown) {
			if t.Has(ThrustUp) {
				e.offset.Y = e.Size - ps
			} else {
				e.offset.Y = 0
			}
		}
		if t.Has(ThrustLeft) {
			e.offset.X = e.Size - ps
		}
		if t.Has(ThrustRight) {
			e.offset.X = 0
		}
	}
	return e.offset
}

// exhaust points the particle velocity away from the thrust direction.
// Up wins over down and left over right when both are held.
func exhaust(v r2.Vec, t Thrust) r2.Vec {
	if t.Has(ThrustUp) {
		if v.Y < 0 {
			v.Y = -v.Y
		}
	} else if t.Has(ThrustDown) && v.Y > 0 {
		v.Y = -v.Y
	}
	if t.Has(ThrustLeft) {
		if v.X < 0 {
			v.X = -v.X
		}
	} else if t.Has(ThrustRight) && v.X > 0 {
		v.X = -v.X
	}
	return v
}

// Age advances the hue and shrinks a live particle by one step.
// Dead particles are left untouched.
func (e *Emitter) Age(p *Body) {
	if !p.Alive() {
		return
	}
	p.Color.H += hueStep
	if p.Color.H >= 360 {
		p.Color.H = hueRestart
	}
	p.Size -= e.particleSize / float64(len(e.particles))
}

// Live appends the live particles to dst, oldest first
func (e *Emitter) Live(dst []Slot) []Slot {
	start := 0
	if e.count == len(e.particles) {
		start = e.next
	}
	for k := 0; k < e.count; k++ {
		i := (start + k) % e.count
		if e.particles[i].Alive() {
			dst = append(dst, Slot{Index: i, Body: e.particles[i]})
		}
	}
	return dst
}
