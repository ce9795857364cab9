package physics

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/geom"
)

// Simulation aggregates the emitter, its particles, the barrier field and the
// tunable configuration. It is not safe for concurrent use: every method must
// be called from the goroutine that drives Advance.
type Simulation struct {
	params Params
	arena  geom.Rect

	emitter    *Emitter
	barriers   *BarrierField
	integrator *Integrator
	repulsion  *RepulsionField
	rng        *rand.Rand

	modes    Modes
	tunables Tunables
	thrust   Thrust

	frames uint64
	clock  float64

	log *zap.Logger
}

// Option customizes a Simulation
type Option func(*Simulation)

// WithLogger attaches a logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithJitter replaces the default uniform jitter source
func WithJitter(j Jitter) Option {
	return func(s *Simulation) {
		s.integrator.Jitter = j
	}
}

// WithBarriers installs a fixed barrier field instead of generating one
func WithBarriers(f *BarrierField) Option {
	return func(s *Simulation) {
		s.barriers = f
	}
}

// WithRand replaces the random source used for emission and generation
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulation) {
		s.rng = rng
		if u, ok := s.integrator.Jitter.(*UniformJitter); ok {
			u.rng = rng
		}
	}
}

// TickStats summarize one Advance call
type TickStats struct {
	Frame   uint64
	Emitted bool
	// EmitterContact is what the emitter touched this tick
	EmitterContact Contact
	// RepulsionErr is set when the repulsion pass produced a non-finite velocity
	RepulsionErr error
}

// New builds a simulation from p. Unless WithBarriers is given, a barrier
// field is generated from p.Barriers.
func New(p Params, opts ...Option) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	arena := geom.Rect{W: p.Width, H: p.Height}

	body := Body{
		Pos:   r2.Vec{X: p.Width / 2, Y: p.Height / 2},
		Vel:   r2.Vec{X: -80, Y: -80},
		Color: White,
		Size:  p.EmitterSize,
	}
	s := &Simulation{
		params:  p,
		arena:   arena,
		emitter: NewEmitter(body, p.Capacity, p.ParticleSize, p.EmitInterval),
		integrator: &Integrator{
			Arena:     arena,
			MaxSize:   p.MaxEmitterSize,
			Gravity:   p.Gravity,
			DragSmall: p.DragSmall,
			DragLarge: p.DragLarge,
			Jitter:    NewUniformJitter(rng),
		},
		repulsion: NewRepulsionField(p.Repulsion.CellSize, p.Repulsion.Workers),
		rng:       rng,
		modes:     p.Modes,
		tunables:  clampTunables(p.Tunables),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.barriers == nil {
		f, err := GenerateBarriers(s.rng, arena, p.Barriers)
		if err != nil {
			return nil, fmt.Errorf("generate barriers: %w", err)
		}
		s.barriers = f
	}
	s.log.Info("simulation ready",
		zap.Float64("width", p.Width),
		zap.Float64("height", p.Height),
		zap.Int("capacity", p.Capacity),
		zap.Int("barriers", s.barriers.Len()),
		zap.Int("workers", s.repulsion.Workers()),
	)
	return s, nil
}

// Advance runs one tick of dt simulated time. The emitter moves first, then
// repulsion acts on the particles, then particles move and age, then a new
// particle may be emitted.
func (s *Simulation) Advance(dt float64) TickStats {
	s.frames++
	s.clock += dt
	stats := TickStats{Frame: s.frames}
	cadence := s.onCadence()

	stats.EmitterContact = s.integrator.Step(&s.emitter.Body, dt, s.barriers, StepOptions{
		Gravity: s.modes.Gravity,
		Time:    s.clock,
	})

	particles := s.emitter.Particles()
	if s.modes.Repulsion && len(particles) > 1 {
		err := s.repulsion.Apply(RepulsionInput{
			Particles:  particles,
			Emitter:    &s.emitter.Body,
			Dt:         dt,
			Radius:     s.tunables.RepulsionRadius,
			PairCap:    s.tunables.RepulsionFactor,
			EmitterCap: s.tunables.RepulsionFactor * s.params.Repulsion.EmitterCapMult,
		})
		if err != nil {
			stats.RepulsionErr = err
			s.log.Warn("repulsion pass", zap.Uint64("frame", s.frames), zap.Error(err))
		}
	}

	opts := StepOptions{
		Gravity:      s.modes.Gravity,
		Jitter:       s.modes.Jitter,
		JitterFactor: s.tunables.JitterFactor,
		Time:         s.clock,
	}
	for i := range particles {
		p := &particles[i]
		if !p.Alive() {
			continue
		}
		s.integrator.Step(p, dt, s.barriers, opts)
		if cadence {
			s.emitter.Age(p)
		}
	}

	if cadence {
		s.emitter.Emit(s.rng, EmitOptions{
			Recoil:      s.modes.Recoil,
			Thrust:      s.thrust,
			RecoilScale: dt / s.params.TimeScale * s.params.RecoilGain,
		})
		stats.Emitted = true
	}
	return stats
}

// onCadence reports whether this frame emits and ages. With recoil enabled
// nothing is emitted unless some thrust is held.
func (s *Simulation) onCadence() bool {
	if s.frames%uint64(s.params.EmitInterval) != 0 {
		return false
	}
	return !s.modes.Recoil || s.thrust.Any()
}

// RegenerateBarriers replaces the barrier field and empties the particle
// buffer. On failure the previous field is kept; the buffer is reset either way.
func (s *Simulation) RegenerateBarriers() error {
	s.emitter.Reset()
	f, err := GenerateBarriers(s.rng, s.arena, s.params.Barriers)
	if err != nil {
		s.log.Error("barrier regeneration failed", zap.Error(err))
		return fmt.Errorf("regenerate barriers: %w", err)
	}
	s.barriers = f
	s.log.Info("barriers regenerated", zap.Int("count", f.Len()))
	return nil
}

// Emitter returns a copy of the emitter body
func (s *Simulation) Emitter() Body { return s.emitter.Body }

// Count returns the number of populated particle slots
func (s *Simulation) Count() int { return s.emitter.Count() }

// Next returns the slot the next emission overwrites
func (s *Simulation) Next() int { return s.emitter.Next() }

// Capacity returns the particle buffer size
func (s *Simulation) Capacity() int { return s.emitter.Capacity() }

// Live appends the live particles to dst, oldest first
func (s *Simulation) Live(dst []Slot) []Slot { return s.emitter.Live(dst) }

// Barriers returns a copy of the barrier rectangles
func (s *Simulation) Barriers() []geom.Rect { return s.barriers.Rects() }

// Arena returns the simulation bounds
func (s *Simulation) Arena() geom.Rect { return s.arena }

// Modes returns the current mode flags
func (s *Simulation) Modes() Modes { return s.modes }

// Tunables returns the current tunable constants
func (s *Simulation) Tunables() Tunables { return s.tunables }

// Thrust returns the held thrust directions
func (s *Simulation) Thrust() Thrust { return s.thrust }

// Frames returns the number of ticks advanced
func (s *Simulation) Frames() uint64 { return s.frames }

// Params returns the construction parameters
func (s *Simulation) Params() Params { return s.params }

var errNonFiniteInput = errors.New("non-finite input")

// SetEmitterVelocity replaces the emitter velocity
func (s *Simulation) SetEmitterVelocity(v r2.Vec) error {
	if !geom.Finite(v) {
		return fmt.Errorf("emitter velocity: %w", errNonFiniteInput)
	}
	s.emitter.Vel = v
	return nil
}

// SetEmitterPosition moves the emitter, clamped inside the arena
func (s *Simulation) SetEmitterPosition(p r2.Vec) error {
	if !geom.Finite(p) {
		return fmt.Errorf("emitter position: %w", errNonFiniteInput)
	}
	lo, hi := s.integrator.limits(s.emitter.Size)
	s.emitter.Pos = geom.ClampVec(p, lo, hi)
	return nil
}

// Nudge adds d to the emitter velocity, each component clamped to ±MaxNudgeSpeed
func (s *Simulation) Nudge(d r2.Vec) {
	lim := r2.Vec{X: MaxNudgeSpeed, Y: MaxNudgeSpeed}
	s.emitter.Vel = geom.ClampVec(r2.Add(s.emitter.Vel, d), r2.Scale(-1, lim), lim)
}

// StopEmitter zeroes the emitter velocity
func (s *Simulation) StopEmitter() {
	s.emitter.Vel = r2.Vec{}
}

// StopAll zeroes the emitter and every particle velocity
func (s *Simulation) StopAll() {
	s.emitter.Vel = r2.Vec{}
	particles := s.emitter.Particles()
	for i := range particles {
		particles[i].Vel = r2.Vec{}
	}
}

// SetThrust sets or clears thrust directions
func (s *Simulation) SetThrust(d Thrust, on bool) {
	if on {
		s.thrust |= d
	} else {
		s.thrust &^= d
	}
}

// SetModes replaces every mode flag
func (s *Simulation) SetModes(m Modes) {
	if m != s.modes {
		s.log.Debug("modes changed", zap.Any("modes", m))
	}
	s.modes = m
	if !m.Recoil {
		s.thrust = 0
	}
}

// SetTunables replaces the tunables, clamping each into range
func (s *Simulation) SetTunables(t Tunables) {
	t = clampTunables(t)
	if t != s.tunables {
		s.log.Debug("tunables changed", zap.Any("tunables", t))
	}
	s.tunables = t
}

// SetEmitterSize resizes the emitter within [MinEmitterSize, MaxEmitterSize]
func (s *Simulation) SetEmitterSize(size float64) {
	if math.IsNaN(size) {
		return
	}
	size = clamp(size, s.params.MinEmitterSize, s.params.MaxEmitterSize)
	s.emitter.SetSize(size)
	lo, hi := s.integrator.limits(size)
	s.emitter.Pos = geom.ClampVec(s.emitter.Pos, lo, hi)
}

// Snapshot is a copy of everything a renderer needs for one frame
type Snapshot struct {
	Frame     uint64      `json:"frame"`
	Arena     geom.Rect   `json:"arena"`
	Emitter   Body        `json:"emitter"`
	Particles []Slot      `json:"particles"`
	Barriers  []geom.Rect `json:"barriers"`
	Modes     Modes       `json:"modes"`
	Tunables  Tunables    `json:"tunables"`
	Count     int         `json:"count"`
	Next      int         `json:"next"`
}

// Snapshot fills dst, reusing its slices
func (s *Simulation) Snapshot(dst *Snapshot) {
	dst.Frame = s.frames
	dst.Arena = s.arena
	dst.Emitter = s.emitter.Body
	dst.Particles = s.emitter.Live(dst.Particles[:0])
	dst.Barriers = append(dst.Barriers[:0], s.barriers.rects...)
	dst.Modes = s.modes
	dst.Tunables = s.tunables
	dst.Count = s.emitter.Count()
	dst.Next = s.emitter.Next()
}
