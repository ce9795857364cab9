package physics

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivierh59500/particle-emitter-go/geom"
)

func TestGenerateBarriersInvariants(t *testing.T) {
	arena := geom.Rect{W: 1280, H: 720}
	p := DefaultParams(arena.W, arena.H).Barriers
	inner := arena.Inset(p.Margin)

	for seed := int64(1); seed <= 25; seed++ {
		f, err := GenerateBarriers(rand.New(rand.NewSource(seed)), arena, p)
		require.NoError(t, err, "seed %d", seed)
		rects := f.Rects()
		require.Len(t, rects, p.Count)

		for i, r := range rects {
			assert.True(t, inner.ContainsRect(r), "seed %d: barrier %d %+v outside %+v", seed, i, r, inner)
			assert.GreaterOrEqual(t, r.W, p.MinSize)
			assert.LessOrEqual(t, r.W, p.MaxSize)
			assert.GreaterOrEqual(t, r.H, p.MinSize)
			assert.LessOrEqual(t, r.H, p.MaxSize)
			for j := i + 1; j < len(rects); j++ {
				assert.False(t, r.Overlaps(rects[j]), "seed %d: barriers %d and %d overlap", seed, i, j)
			}
		}
	}
}

func TestGenerateBarriersRetryCap(t *testing.T) {
	arena := geom.Rect{W: 200, H: 200}
	p := BarrierParams{Count: 10, Margin: 10, MinSize: 150, MaxSize: 170, MaxAttempts: 500}

	_, err := GenerateBarriers(rand.New(rand.NewSource(7)), arena, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBarrierPlacement))
}

func TestGenerateBarriersRejectsImpossibleBounds(t *testing.T) {
	arena := geom.Rect{W: 100, H: 100}
	p := BarrierParams{Count: 1, Margin: 60, MinSize: 10, MaxSize: 20, MaxAttempts: 10}

	_, err := GenerateBarriers(rand.New(rand.NewSource(1)), arena, p)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestGenerateBarriersZeroCount(t *testing.T) {
	f, err := GenerateBarriers(rand.New(rand.NewSource(1)), geom.Rect{W: 10, H: 10}, BarrierParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
}

func TestBarrierFieldRectsIsACopy(t *testing.T) {
	f := NewBarrierField(geom.Rect{X: 1, Y: 2, W: 3, H: 4})
	rects := f.Rects()
	rects[0].X = 99
	assert.Equal(t, 1.0, f.Rects()[0].X)
}
