package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/geom"
)

func newTestIntegrator() *Integrator {
	return &Integrator{
		Arena:     geom.Rect{W: 800, H: 600},
		MaxSize:   30,
		Gravity:   DefaultGravity,
		DragSmall: DefaultDragSmall,
		DragLarge: DefaultDragLarge,
	}
}

func TestStepWallBounceLosesEnergy(t *testing.T) {
	in := newTestIntegrator()
	tests := []struct {
		name  string
		body  Body
		axis  Axis
		wants Contact
	}{
		{"right wall", Body{Pos: r2.Vec{X: 780, Y: 300}, Vel: r2.Vec{X: 50, Y: 3}, Size: 10}, AxisX, ContactWallX},
		{"left wall", Body{Pos: r2.Vec{X: 5, Y: 300}, Vel: r2.Vec{X: -50, Y: 3}, Size: 10}, AxisX, ContactWallX},
		{"floor", Body{Pos: r2.Vec{X: 400, Y: 580}, Vel: r2.Vec{X: 2, Y: 40}, Size: 10}, AxisY, ContactWallY},
		{"ceiling", Body{Pos: r2.Vec{X: 400, Y: 3}, Vel: r2.Vec{X: 2, Y: -40}, Size: 10}, AxisY, ContactWallY},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.body
			before := b.Vel
			contact := in.Step(&b, 1, nil, StepOptions{})
			assert.Equal(t, tt.wants, contact&tt.wants)

			if tt.axis == AxisX {
				assert.Less(t, math.Abs(b.Vel.X), math.Abs(before.X))
				assert.True(t, math.Signbit(b.Vel.X) != math.Signbit(before.X), "x velocity should reflect")
			} else {
				assert.Less(t, math.Abs(b.Vel.Y), math.Abs(before.Y))
				assert.True(t, math.Signbit(b.Vel.Y) != math.Signbit(before.Y), "y velocity should reflect")
			}
		})
	}
}

func TestStepFrictionDependsOnSize(t *testing.T) {
	in := newTestIntegrator()
	small := Body{Pos: r2.Vec{X: 785, Y: 300}, Vel: r2.Vec{X: 50}, Size: 5}
	large := Body{Pos: r2.Vec{X: 765, Y: 300}, Vel: r2.Vec{X: 50}, Size: 30}

	in.Step(&small, 1, nil, StepOptions{})
	in.Step(&large, 1, nil, StepOptions{})
	assert.Greater(t, math.Abs(small.Vel.X), math.Abs(large.Vel.X), "larger bodies lose more energy per bounce")
}

func TestStepStaysInArena(t *testing.T) {
	in := newTestIntegrator()
	in.Jitter = NewUniformJitter(rand.New(rand.NewSource(3)))
	barriers := NewBarrierField(geom.Rect{X: 300, Y: 200, W: 100, H: 80})
	rng := rand.New(rand.NewSource(11))

	for n := 0; n < 200; n++ {
		b := Body{
			Pos:  r2.Vec{X: rng.Float64() * 800, Y: rng.Float64() * 600},
			Vel:  r2.Vec{X: (rng.Float64() - .5) * 1e5, Y: (rng.Float64() - .5) * 1e5},
			Size: 1 + rng.Float64()*29,
		}
		for step := 0; step < 20; step++ {
			in.Step(&b, .16, barriers, StepOptions{Gravity: true, Jitter: true, JitterFactor: .25})
			require.True(t, in.Arena.ContainsRect(b.Rect()), "body %d escaped at step %d: %+v", n, step, b.Rect())
		}
	}
}

func TestStepBarrierResolvesDominantAxis(t *testing.T) {
	in := newTestIntegrator()
	barriers := NewBarrierField(geom.Rect{X: 300, Y: 200, W: 100, H: 80})

	t.Run("landing on top", func(t *testing.T) {
		b := Body{Pos: r2.Vec{X: 340, Y: 192}, Vel: r2.Vec{Y: 2}, Size: 10}
		contact := in.Step(&b, 1, barriers, StepOptions{})
		assert.NotZero(t, contact&ContactBarrier)
		assert.Equal(t, 190.0, b.Pos.Y, "snapped just above the top edge")
		assert.Less(t, b.Vel.Y, 0.0)
	})

	t.Run("hitting left side", func(t *testing.T) {
		b := Body{Pos: r2.Vec{X: 293, Y: 240}, Vel: r2.Vec{X: 2}, Size: 10}
		contact := in.Step(&b, 1, barriers, StepOptions{})
		assert.NotZero(t, contact&ContactBarrier)
		assert.Equal(t, 290.0, b.Pos.X, "snapped just left of the barrier")
		assert.Less(t, b.Vel.X, 0.0)
	})

	t.Run("hitting bottom", func(t *testing.T) {
		b := Body{Pos: r2.Vec{X: 340, Y: 283}, Vel: r2.Vec{Y: -4}, Size: 10}
		in.Step(&b, 1, barriers, StepOptions{})
		assert.Equal(t, 281.0, b.Pos.Y)
		assert.Greater(t, b.Vel.Y, 0.0)
	})

	t.Run("hitting right side", func(t *testing.T) {
		b := Body{Pos: r2.Vec{X: 403, Y: 240}, Vel: r2.Vec{X: -4}, Size: 10}
		in.Step(&b, 1, barriers, StepOptions{})
		assert.Equal(t, 401.0, b.Pos.X)
		assert.Greater(t, b.Vel.X, 0.0)
	})

	t.Run("corner picks larger overlap", func(t *testing.T) {
		// Lands at (297, 193): the top probe overlap is 7 wide while the
		// left probe overlap is only 3 tall, so Y resolves and X is kept.
		b := Body{Pos: r2.Vec{X: 296, Y: 192}, Vel: r2.Vec{X: 1, Y: 1}, Size: 10}
		in.Step(&b, 1, barriers, StepOptions{})
		assert.Equal(t, 190.0, b.Pos.Y)
		assert.Equal(t, 297.0, b.Pos.X)
		assert.Less(t, b.Vel.Y, 0.0)
		assert.Greater(t, b.Vel.X, 0.0)
	})
}

func TestStepGravity(t *testing.T) {
	in := newTestIntegrator()
	b := Body{Pos: r2.Vec{X: 400, Y: 300}, Size: 10}
	in.Step(&b, .5, nil, StepOptions{Gravity: true})
	assert.InDelta(t, DefaultGravity*.5*in.drag(10), b.Vel.Y, 1e-12)
	assert.Zero(t, b.Vel.X)
}

type fixedJitter r2.Vec

func (f fixedJitter) Sample(r2.Vec, float64) r2.Vec { return r2.Vec(f) }

func TestStepJitterPreservesSpeed(t *testing.T) {
	in := newTestIntegrator()
	in.DragSmall, in.DragLarge = 1, 1
	in.Jitter = fixedJitter{X: 1, Y: -1}

	b := Body{Pos: r2.Vec{X: 400, Y: 300}, Vel: r2.Vec{X: 3, Y: 4}, Size: 10}
	in.Step(&b, .01, nil, StepOptions{Jitter: true, JitterFactor: .25})
	assert.InDelta(t, 5.0, r2.Norm(b.Vel), 1e-9)
	assert.NotEqual(t, r2.Vec{X: 3, Y: 4}, b.Vel, "direction should change")
}

func TestStepDragIsDecreasingInSize(t *testing.T) {
	in := newTestIntegrator()
	assert.Greater(t, in.drag(1), in.drag(20))
	assert.Less(t, in.drag(30), 1.0)
	assert.Less(t, in.drag(0), 1.0)
}

func TestPerlinJitterBounded(t *testing.T) {
	j := NewPerlinJitter(42, .01)
	for i := 0; i < 100; i++ {
		v := j.Sample(r2.Vec{X: float64(i) * 13, Y: float64(i) * 7}, float64(i)*.1)
		assert.LessOrEqual(t, math.Abs(v.X), 1.0)
		assert.LessOrEqual(t, math.Abs(v.Y), 1.0)
	}
}

func TestUniformJitterRange(t *testing.T) {
	j := NewUniformJitter(rand.New(rand.NewSource(5)))
	for i := 0; i < 500; i++ {
		v := j.Sample(r2.Vec{}, 0)
		require.True(t, v.X >= -1 && v.X <= 1 && v.Y >= -1 && v.Y <= 1)
		assert.Zero(t, math.Mod(v.X*16, 1))
	}
}
