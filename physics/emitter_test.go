package physics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func newTestEmitter(capacity int) *Emitter {
	body := Body{Pos: r2.Vec{X: 100, Y: 100}, Vel: r2.Vec{X: 3, Y: -2}, Color: White, Size: 20}
	return NewEmitter(body, capacity, 5, 1)
}

func TestEmitFillsBeforeSaturating(t *testing.T) {
	e := newTestEmitter(8)
	rng := rand.New(rand.NewSource(1))
	for n := 1; n < 8; n++ {
		e.Emit(rng, EmitOptions{})
		assert.Equal(t, n, e.Count())
		assert.Equal(t, n, e.Next())
	}
}

func TestEmitIsARing(t *testing.T) {
	const capacity = 8
	for k := 0; k < 20; k++ {
		e := newTestEmitter(capacity)
		rng := rand.New(rand.NewSource(int64(k)))
		for n := 0; n < capacity+k; n++ {
			e.Emit(rng, EmitOptions{})
		}
		assert.Equal(t, k%capacity, e.Next(), "k=%d", k)
		assert.Equal(t, capacity, e.Count(), "k=%d", k)
	}
}

func TestEmitOverwritesOldestSlot(t *testing.T) {
	const capacity = 16
	e := newTestEmitter(capacity)
	rng := rand.New(rand.NewSource(2))

	var last Body
	for n := 0; n < capacity+1; n++ {
		last = e.Emit(rng, EmitOptions{})
	}

	live := e.Live(nil)
	require.Len(t, live, capacity)
	var slot0 *Slot
	for i := range live {
		if live[i].Index == 0 {
			slot0 = &live[i]
		}
	}
	require.NotNil(t, slot0)
	assert.Equal(t, last, slot0.Body)
	// Oldest first: slot 1 was written before every other surviving slot
	assert.Equal(t, 1, live[0].Index)
	assert.Equal(t, 0, live[len(live)-1].Index)
}

func TestEmitParticleShape(t *testing.T) {
	e := newTestEmitter(4)
	p := e.Emit(rand.New(rand.NewSource(3)), EmitOptions{})

	assert.Equal(t, 5.0, p.Size)
	assert.Equal(t, Red, p.Color)
	assert.True(t, e.Rect().Contains(p.Pos), "particle spawns inside the emitter footprint")
	fuzz := r2.Sub(p.Vel, r2.Scale(e.Ratio(), e.Vel))
	assert.LessOrEqual(t, fuzz.X, 8.0)
	assert.GreaterOrEqual(t, fuzz.X, -8.0)
	assert.LessOrEqual(t, fuzz.Y, 16.0)
	assert.GreaterOrEqual(t, fuzz.Y, -16.0)
}

func TestEmitTilesAcrossFootprint(t *testing.T) {
	e := newTestEmitter(64)
	rng := rand.New(rand.NewSource(4))
	seen := map[r2.Vec]bool{}
	for n := 0; n < 12; n++ {
		p := e.Emit(rng, EmitOptions{})
		seen[r2.Sub(p.Pos, e.Pos)] = true
		assert.True(t, e.Rect().Contains(p.Pos))
	}
	assert.Greater(t, len(seen), 4, "consecutive emissions should fan out")
}

func TestEmitRecoil(t *testing.T) {
	e := newTestEmitter(8)
	e.Vel = r2.Vec{}
	p := e.Emit(rand.New(rand.NewSource(5)), EmitOptions{Recoil: true, Thrust: ThrustUp, RecoilScale: 10})

	assert.GreaterOrEqual(t, p.Vel.Y, 0.0, "exhaust leaves downward while thrusting up")
	assert.Equal(t, e.Size-5, p.Pos.Y-e.Pos.Y, "emitted from the bottom edge")
	want := r2.Scale(-10*e.Ratio(), p.Vel)
	assert.InDelta(t, want.X, e.Vel.X, 1e-12)
	assert.InDelta(t, want.Y, e.Vel.Y, 1e-12)
	assert.LessOrEqual(t, e.Vel.Y, 0.0, "recoil pushes the emitter up")
}

func TestEmitWithoutRecoilLeavesEmitterAlone(t *testing.T) {
	e := newTestEmitter(8)
	before := e.Vel
	e.Emit(rand.New(rand.NewSource(6)), EmitOptions{Thrust: ThrustLeft, RecoilScale: 10})
	assert.Equal(t, before, e.Vel)
}

func TestExhaust(t *testing.T) {
	v := r2.Vec{X: -3, Y: -4}
	assert.Equal(t, r2.Vec{X: 3, Y: 4}, exhaust(v, ThrustUp|ThrustLeft))
	assert.Equal(t, r2.Vec{X: -3, Y: -4}, exhaust(v, ThrustDown|ThrustRight))
	assert.Equal(t, r2.Vec{X: -3, Y: -4}, exhaust(r2.Vec{X: 3, Y: 4}, ThrustDown|ThrustRight))
}

func TestExhaustOpposingThrust(t *testing.T) {
	tests := []struct {
		name   string
		in     r2.Vec
		thrust Thrust
		want   r2.Vec
	}{
		{"up and down keeps downward", r2.Vec{X: 1, Y: 4}, ThrustUp | ThrustDown, r2.Vec{X: 1, Y: 4}},
		{"up and down flips upward", r2.Vec{X: 1, Y: -4}, ThrustUp | ThrustDown, r2.Vec{X: 1, Y: 4}},
		{"left and right keeps rightward", r2.Vec{X: 3, Y: 1}, ThrustLeft | ThrustRight, r2.Vec{X: 3, Y: 1}},
		{"left and right flips leftward", r2.Vec{X: -3, Y: 1}, ThrustLeft | ThrustRight, r2.Vec{X: 3, Y: 1}},
		{"all four", r2.Vec{X: -3, Y: -4}, ThrustUp | ThrustDown | ThrustLeft | ThrustRight, r2.Vec{X: 3, Y: 4}},
		{"none", r2.Vec{X: -3, Y: -4}, 0, r2.Vec{X: -3, Y: -4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exhaust(tt.in, tt.thrust))
		})
	}
}

func TestAgeMonotonic(t *testing.T) {
	e := newTestEmitter(10)
	e.Emit(rand.New(rand.NewSource(7)), EmitOptions{})
	p := &e.particles[0]

	prev := p.Size
	steps := 0
	for p.Alive() {
		e.Age(p)
		require.Less(t, p.Size, prev)
		prev = p.Size
		steps++
		require.Less(t, steps, 100, "particle never died")
	}
	assert.InDelta(t, 10, steps, 1)

	dead := *p
	for i := 0; i < 5; i++ {
		e.Age(p)
	}
	assert.Equal(t, dead, *p, "aging a dead particle is a no-op")
	assert.Equal(t, 1, e.Count(), "death does not shrink count")
	assert.Empty(t, e.Live(nil))
}

func TestAgeHueWraps(t *testing.T) {
	e := newTestEmitter(1000)
	p := &Body{Size: 5, Color: Color{H: 359.5, S: 1, V: 1}}
	e.Age(p)
	assert.Equal(t, hueRestart, p.Color.H)

	p.Color.H = 100
	e.Age(p)
	assert.InDelta(t, 100+hueStep, p.Color.H, 1e-12)
}

func TestEmitterReset(t *testing.T) {
	e := newTestEmitter(4)
	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 6; i++ {
		e.Emit(rng, EmitOptions{})
	}
	e.Reset()
	assert.Zero(t, e.Count())
	assert.Zero(t, e.Next())
	assert.Empty(t, e.Live(nil))
}

func TestSetSizeUpdatesRatio(t *testing.T) {
	e := newTestEmitter(1280)
	r := e.Ratio()
	e.SetSize(40)
	assert.InDelta(t, r/2, e.Ratio(), 1e-12)
}

func TestColorRGBA(t *testing.T) {
	c := Red.RGBA()
	assert.Equal(t, uint8(0xFF), c.R)
	assert.Equal(t, uint8(0), c.G)
	assert.Equal(t, uint8(0xFF), White.RGBA().B)
	back := ColorFromRGBA(c)
	assert.InDelta(t, 0, back.H, 1e-9)
	assert.InDelta(t, 1, back.S, 1e-9)
}
