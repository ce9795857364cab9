package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/geom"
)

func smallParams() Params {
	p := DefaultParams(400, 300)
	p.Capacity = 200
	p.Seed = 42
	return p
}

func newTestSimulation(t *testing.T, p Params, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	s, err := New(p, opts...)
	require.NoError(t, err)
	return s
}

func TestNewRejectsInvalidParams(t *testing.T) {
	p := smallParams()
	p.Capacity = 0
	_, err := New(p)
	assert.ErrorIs(t, err, ErrInvalidParams)

	p = smallParams()
	p.EmitterSize = p.MaxEmitterSize * 2
	_, err = New(p)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestNewSurfacesBarrierFailure(t *testing.T) {
	p := smallParams()
	p.Barriers = BarrierParams{Count: 20, Margin: 10, MinSize: 200, MaxSize: 260, MaxAttempts: 50}
	_, err := New(p)
	assert.ErrorIs(t, err, ErrBarrierPlacement)
}

func TestGravityScenario(t *testing.T) {
	p := smallParams()
	p.Modes = Modes{Gravity: true}
	s := newTestSimulation(t, p, WithBarriers(NewBarrierField()))
	require.NoError(t, s.SetEmitterVelocity(r2.Vec{}))
	require.NoError(t, s.SetEmitterPosition(r2.Vec{X: 200, Y: 150}))

	const dt = .1
	for tick := 1; tick <= 10; tick++ {
		s.Advance(dt)
		e := s.Emitter()
		assert.InEpsilon(t, p.Gravity*dt*float64(tick), e.Vel.Y, 1e-2, "tick %d", tick)
		assert.Zero(t, e.Vel.X)
	}
}

func TestAdvanceKeepsBodiesInArena(t *testing.T) {
	p := smallParams()
	p.Modes = Modes{Gravity: true, Jitter: true, Repulsion: true}
	s := newTestSimulation(t, p)
	arena := s.Arena()

	var live []Slot
	for tick := 0; tick < 400; tick++ {
		if tick%50 == 0 {
			require.NoError(t, s.SetEmitterVelocity(r2.Vec{X: 90, Y: -90}))
		}
		s.Advance(.16)
		e := s.Emitter()
		require.True(t, arena.ContainsRect(e.Rect()), "emitter escaped at tick %d: %+v", tick, e.Rect())
		live = s.Live(live[:0])
		for _, sl := range live {
			require.True(t, arena.ContainsRect(sl.Body.Rect()), "particle %d escaped at tick %d", sl.Index, tick)
		}
	}
}

func TestAdvanceEmitsOnCadence(t *testing.T) {
	p := smallParams()
	p.EmitInterval = 3
	s := newTestSimulation(t, p)

	emitted := 0
	for i := 0; i < 30; i++ {
		if s.Advance(.1).Emitted {
			emitted++
		}
	}
	assert.Equal(t, 10, emitted)
	assert.Equal(t, 10, s.Count())
	assert.Equal(t, 10, s.Next())
}

func TestRecoilRequiresThrust(t *testing.T) {
	p := smallParams()
	p.Modes.Recoil = true
	s := newTestSimulation(t, p)

	for i := 0; i < 5; i++ {
		assert.False(t, s.Advance(.1).Emitted)
	}
	assert.Zero(t, s.Count())

	s.SetThrust(ThrustUp, true)
	assert.True(t, s.Advance(.1).Emitted)
	assert.Equal(t, 1, s.Count())

	s.SetThrust(ThrustUp, false)
	assert.False(t, s.Thrust().Any())
	assert.False(t, s.Advance(.1).Emitted)
}

func TestRegenerateBarriersResetsBuffer(t *testing.T) {
	s := newTestSimulation(t, smallParams())
	for i := 0; i < 250; i++ {
		s.Advance(.1)
	}
	require.Equal(t, s.Capacity(), s.Count())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RegenerateBarriers())
		assert.Zero(t, s.Count())
		assert.Zero(t, s.Next())
		assert.Len(t, s.Barriers(), smallParams().Barriers.Count)
	}
}

func TestRegenerateBarriersKeepsFieldOnFailure(t *testing.T) {
	p := smallParams()
	s := newTestSimulation(t, p)
	before := s.Barriers()
	for i := 0; i < 5; i++ {
		s.Advance(.1)
	}

	s.params.Barriers = BarrierParams{Count: 20, Margin: 10, MinSize: 200, MaxSize: 260, MaxAttempts: 50}
	err := s.RegenerateBarriers()
	assert.ErrorIs(t, err, ErrBarrierPlacement)
	assert.Equal(t, before, s.Barriers())
	assert.Zero(t, s.Count())
	assert.Zero(t, s.Next())
}

func TestWriteAccessorsClamp(t *testing.T) {
	p := smallParams()
	s := newTestSimulation(t, p)

	s.SetTunables(Tunables{RepulsionRadius: 0, RepulsionFactor: 9, JitterFactor: -1})
	assert.Equal(t, Tunables{
		RepulsionRadius: MinRepulsionRadius,
		RepulsionFactor: MaxRepulsionFactor,
		JitterFactor:    MinJitterFactor,
	}, s.Tunables())

	s.SetEmitterSize(1e6)
	assert.Equal(t, p.MaxEmitterSize, s.Emitter().Size)
	s.SetEmitterSize(-3)
	assert.Equal(t, p.MinEmitterSize, s.Emitter().Size)

	require.NoError(t, s.SetEmitterPosition(r2.Vec{X: -50, Y: 1e9}))
	e := s.Emitter()
	assert.True(t, s.Arena().ContainsRect(e.Rect()))

	assert.Error(t, s.SetEmitterVelocity(r2.Vec{X: math.NaN()}))
	assert.Error(t, s.SetEmitterPosition(r2.Vec{Y: math.Inf(1)}))

	require.NoError(t, s.SetEmitterVelocity(r2.Vec{X: 99.8}))
	s.Nudge(r2.Vec{X: NudgeStep, Y: -NudgeStep})
	assert.Equal(t, r2.Vec{X: MaxNudgeSpeed, Y: -NudgeStep}, s.Emitter().Vel)
}

func TestStopAll(t *testing.T) {
	s := newTestSimulation(t, smallParams())
	for i := 0; i < 20; i++ {
		s.Advance(.1)
	}
	s.StopAll()
	assert.Equal(t, r2.Vec{}, s.Emitter().Vel)
	for _, sl := range s.Live(nil) {
		assert.Equal(t, r2.Vec{}, sl.Body.Vel)
	}
}

func TestSetModesClearsThrust(t *testing.T) {
	p := smallParams()
	p.Modes.Recoil = true
	s := newTestSimulation(t, p)
	s.SetThrust(ThrustLeft|ThrustDown, true)
	require.True(t, s.Thrust().Has(ThrustLeft))

	m := s.Modes()
	m.Recoil = false
	s.SetModes(m)
	assert.False(t, s.Thrust().Any())
}

func TestSnapshot(t *testing.T) {
	barriers := NewBarrierField(geom.Rect{X: 100, Y: 100, W: 30, H: 30})
	s := newTestSimulation(t, smallParams(), WithBarriers(barriers), WithRand(rand.New(rand.NewSource(1))))
	for i := 0; i < 7; i++ {
		s.Advance(.1)
	}

	var snap Snapshot
	s.Snapshot(&snap)
	assert.Equal(t, uint64(7), snap.Frame)
	assert.Equal(t, 7, snap.Count)
	assert.Len(t, snap.Particles, 7)
	assert.Equal(t, barriers.Rects(), snap.Barriers)
	assert.Equal(t, s.Emitter(), snap.Emitter)

	s.Advance(.1)
	s.Snapshot(&snap)
	assert.Len(t, snap.Particles, 8, "slices are reused, not appended to")
	assert.Len(t, snap.Barriers, 1)
}

func TestPerlinJitterOption(t *testing.T) {
	p := smallParams()
	p.Modes = Modes{Jitter: true}
	s := newTestSimulation(t, p, WithJitter(NewPerlinJitter(3, .01)))
	for i := 0; i < 50; i++ {
		s.Advance(.16)
	}
	for _, sl := range s.Live(nil) {
		assert.True(t, geom.Finite(sl.Body.Vel))
	}
}
