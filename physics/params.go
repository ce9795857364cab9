package physics

import (
	"errors"
	"fmt"
)

// Reference geometry the default constants were tuned against
const (
	referenceWidth = 800.0
	barrierWidth   = 2560.0
)

// Defaults shared by every arena size
const (
	DefaultCapacity        = 1280
	DefaultEmitInterval    = 1
	DefaultTimeScale       = 10.0
	DefaultGravity         = 5.0
	DefaultDragSmall       = .99999
	DefaultDragLarge       = .999
	DefaultRecoilGain      = 1024.0
	DefaultCellSize        = 64.0
	DefaultWorkers         = 4
	DefaultBarrierCount    = 15
	DefaultBarrierAttempts = 100000
	DefaultEmitterCapMult  = 4.0
)

// Tunable ranges and keyboard step sizes
const (
	MinRepulsionRadius = .1
	MaxRepulsionRadius = 4.0
	MinRepulsionFactor = 0.0
	MaxRepulsionFactor = 4.0
	MinJitterFactor    = .01
	MaxJitterFactor    = 1.0
	TunableStep        = .01
	EmitterSizeStep    = .5
	NudgeStep          = .5
	MaxNudgeSpeed      = 100.0
)

var (
	// ErrInvalidParams is returned when Params fail validation
	ErrInvalidParams = errors.New("invalid simulation parameters")
	// ErrBarrierPlacement is returned when barrier generation exceeds its retry cap
	ErrBarrierPlacement = errors.New("barrier placement exceeded retry cap")
)

// Modes gates the optional physics
type Modes struct {
	Gravity   bool `json:"gravity"`
	Jitter    bool `json:"jitter"`
	Recoil    bool `json:"recoil"`
	Repulsion bool `json:"repulsion"`
	Trail     bool `json:"trail"`
}

// Tunables are the physics constants adjustable at runtime
type Tunables struct {
	RepulsionRadius float64 `json:"repulsion_radius"`
	RepulsionFactor float64 `json:"repulsion_factor"`
	JitterFactor    float64 `json:"jitter_factor"`
}

// BarrierParams configure barrier generation
type BarrierParams struct {
	Count       int
	Margin      float64
	MinSize     float64
	MaxSize     float64
	MaxAttempts int
}

// RepulsionParams configure the spatial repulsion field
type RepulsionParams struct {
	// EmitterCapMult scales the pairwise cap into the emitter cap
	EmitterCapMult float64
	CellSize       float64
	Workers        int
}

// Params hold every constant the simulation is built from
type Params struct {
	Width, Height float64
	TimeScale     float64

	Capacity     int
	ParticleSize float64
	EmitInterval int

	EmitterSize    float64
	MinEmitterSize float64
	MaxEmitterSize float64

	Gravity    float64
	DragSmall  float64
	DragLarge  float64
	RecoilGain float64

	Barriers  BarrierParams
	Repulsion RepulsionParams
	Tunables  Tunables
	Modes     Modes

	Seed int64
}

// DefaultParams returns the stock tuning scaled to a width x height arena
func DefaultParams(width, height float64) Params {
	scale := width / referenceWidth
	bscale := width / barrierWidth
	return Params{
		Width:          width,
		Height:         height,
		TimeScale:      DefaultTimeScale,
		Capacity:       DefaultCapacity,
		ParticleSize:   5 * scale,
		EmitInterval:   DefaultEmitInterval,
		EmitterSize:    20 * scale,
		MinEmitterSize: 5 * scale,
		MaxEmitterSize: 30 * scale,
		Gravity:        DefaultGravity,
		DragSmall:      DefaultDragSmall,
		DragLarge:      DefaultDragLarge,
		RecoilGain:     DefaultRecoilGain,
		Barriers: BarrierParams{
			Count:       DefaultBarrierCount,
			Margin:      128 * bscale,
			MinSize:     48 * bscale,
			MaxSize:     480 * bscale,
			MaxAttempts: DefaultBarrierAttempts,
		},
		Repulsion: RepulsionParams{
			EmitterCapMult: DefaultEmitterCapMult,
			CellSize:       DefaultCellSize,
			Workers:        DefaultWorkers,
		},
		Tunables: Tunables{
			RepulsionRadius: 1.75,
			RepulsionFactor: 1.25,
			JitterFactor:    .25,
		},
		Modes: Modes{Gravity: true, Jitter: true},
	}
}

// Validate rejects parameter sets the simulation cannot run with
func (p Params) Validate() error {
	switch {
	case p.Width <= 2 || p.Height <= 2:
		return fmt.Errorf("%w: arena %gx%g too small", ErrInvalidParams, p.Width, p.Height)
	case p.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidParams, p.Capacity)
	case p.ParticleSize <= 0:
		return fmt.Errorf("%w: particle size must be positive", ErrInvalidParams)
	case p.EmitInterval <= 0:
		return fmt.Errorf("%w: emit interval must be positive", ErrInvalidParams)
	case p.MinEmitterSize <= 0 || p.MaxEmitterSize < p.MinEmitterSize:
		return fmt.Errorf("%w: emitter size range [%g, %g]", ErrInvalidParams, p.MinEmitterSize, p.MaxEmitterSize)
	case p.EmitterSize < p.MinEmitterSize || p.EmitterSize > p.MaxEmitterSize:
		return fmt.Errorf("%w: emitter size %g outside [%g, %g]", ErrInvalidParams, p.EmitterSize, p.MinEmitterSize, p.MaxEmitterSize)
	case p.MaxEmitterSize >= p.Width-2 || p.MaxEmitterSize >= p.Height-2:
		return fmt.Errorf("%w: emitter cannot fit inside the arena", ErrInvalidParams)
	case p.Repulsion.Workers <= 0:
		return fmt.Errorf("%w: repulsion workers must be positive", ErrInvalidParams)
	case p.Repulsion.CellSize <= 0:
		return fmt.Errorf("%w: repulsion cell size must be positive", ErrInvalidParams)
	case p.TimeScale <= 0:
		return fmt.Errorf("%w: time scale must be positive", ErrInvalidParams)
	}
	return p.Barriers.validate(p.Width, p.Height)
}

func (b BarrierParams) validate(width, height float64) error {
	if b.Count < 0 {
		return fmt.Errorf("%w: negative barrier count", ErrInvalidParams)
	}
	if b.Count == 0 {
		return nil
	}
	switch {
	case b.MinSize <= 0 || b.MaxSize < b.MinSize:
		return fmt.Errorf("%w: barrier size range [%g, %g]", ErrInvalidParams, b.MinSize, b.MaxSize)
	case b.Margin < 0:
		return fmt.Errorf("%w: negative barrier margin", ErrInvalidParams)
	case width-2*b.Margin < b.MinSize || height-2*b.Margin < b.MinSize:
		return fmt.Errorf("%w: barrier margin leaves no room for a %g barrier", ErrInvalidParams, b.MinSize)
	case b.MaxAttempts <= 0:
		return fmt.Errorf("%w: barrier attempts must be positive", ErrInvalidParams)
	}
	return nil
}

// clampTunables forces every tunable into its documented range
func clampTunables(t Tunables) Tunables {
	t.RepulsionRadius = clamp(t.RepulsionRadius, MinRepulsionRadius, MaxRepulsionRadius)
	t.RepulsionFactor = clamp(t.RepulsionFactor, MinRepulsionFactor, MaxRepulsionFactor)
	t.JitterFactor = clamp(t.JitterFactor, MinJitterFactor, MaxJitterFactor)
	return t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
