package physics

import (
	"math/rand"

	"github.com/aquilax/go-perlin"
	"gonum.org/v1/gonum/spatial/r2"
)

// Jitter supplies the random perturbation used for brownian motion.
// Samples have components in [-1, 1].
type Jitter interface {
	Sample(pos r2.Vec, t float64) r2.Vec
}

// UniformJitter draws each component from sixteenths in [-1, 1]
type UniformJitter struct {
	rng *rand.Rand
}

// NewUniformJitter returns a jitter source backed by rng
func NewUniformJitter(rng *rand.Rand) *UniformJitter {
	return &UniformJitter{rng: rng}
}

// Sample ignores position and time
func (j *UniformJitter) Sample(_ r2.Vec, _ float64) r2.Vec {
	return r2.Vec{
		X: float64(randRange(j.rng, -16, 16)) / 16,
		Y: float64(randRange(j.rng, -16, 16)) / 16,
	}
}

// PerlinJitter samples a drifting noise field, so neighbouring particles
// wander in correlated directions.
type PerlinJitter struct {
	noise *perlin.Perlin
	scale float64
}

// Perlin noise tuning
const (
	perlinAlpha   = 2.
	perlinBeta    = 2.
	perlinOctaves = 3
	// perlinYOffset decorrelates the Y sample from the X sample
	perlinYOffset = 1000.
)

// NewPerlinJitter builds a noise field; scale converts arena units to noise space
func NewPerlinJitter(seed int64, scale float64) *PerlinJitter {
	return &PerlinJitter{
		noise: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
		scale: scale,
	}
}

// Sample evaluates the field at pos and time t
func (j *PerlinJitter) Sample(pos r2.Vec, t float64) r2.Vec {
	x, y := pos.X*j.scale, pos.Y*j.scale
	return r2.Vec{
		X: clamp(j.noise.Noise3D(x, y, t), -1, 1),
		Y: clamp(j.noise.Noise3D(x+perlinYOffset, y+perlinYOffset, t), -1, 1),
	}
}
