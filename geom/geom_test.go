package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestIntersection(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 5, 5}, Rect{}},
		{"touching edge", Rect{0, 0, 10, 10}, Rect{10, 0, 5, 5}, Rect{}},
		{"partial", Rect{0, 0, 10, 10}, Rect{5, 5, 10, 10}, Rect{5, 5, 5, 5}},
		{"contained", Rect{0, 0, 10, 10}, Rect{2, 3, 4, 5}, Rect{2, 3, 4, 5}},
		{"thin probe", Rect{0, 0, 10, 10}, Rect{-5, 9, 30, 1}, Rect{0, 9, 10, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Intersection(tt.a, tt.b))
			assert.Equal(t, tt.want, Intersection(tt.b, tt.a), "intersection must be symmetric")
			assert.Equal(t, !tt.want.Empty(), tt.a.Overlaps(tt.b))
		})
	}
}

func TestContainsRectAndInset(t *testing.T) {
	arena := Rect{0, 0, 100, 50}
	inner := arena.Inset(10)
	assert.Equal(t, Rect{10, 10, 80, 30}, inner)
	assert.True(t, arena.ContainsRect(inner))
	assert.True(t, inner.ContainsRect(Rect{10, 10, 80, 30}))
	assert.False(t, inner.ContainsRect(Rect{9, 10, 5, 5}))
	assert.False(t, inner.ContainsRect(Rect{80, 30, 11, 5}))
}

func TestProbes(t *testing.T) {
	p := Rect{10, 20, 30, 40}.Probes()
	assert.Equal(t, Rect{10, 20, 30, 1}, p.Top)
	assert.Equal(t, Rect{10, 60, 30, 1}, p.Bottom)
	assert.Equal(t, Rect{10, 20, 1, 40}, p.Left)
	assert.Equal(t, Rect{40, 20, 1, 40}, p.Right)
}

func TestUnitZeroSafe(t *testing.T) {
	assert.Equal(t, r2.Vec{}, Unit(r2.Vec{}))
	u := Unit(r2.Vec{X: 3, Y: 4})
	assert.InDelta(t, 0.6, u.X, 1e-12)
	assert.InDelta(t, 0.8, u.Y, 1e-12)
	assert.InDelta(t, 1, r2.Norm(Unit(r2.Vec{X: -7, Y: 24})), 1e-12)
}

func TestRemapAndClamp(t *testing.T) {
	assert.InDelta(t, .99999, Remap(0, 0, 90, .99999, .999), 1e-12)
	assert.InDelta(t, .999, Remap(90, 0, 90, .99999, .999), 1e-12)
	assert.Equal(t, 1.0, Clamp(-3, 1, 5))
	assert.Equal(t, 5.0, Clamp(math.Inf(1), 1, 5))
	assert.Equal(t, r2.Vec{X: 1, Y: 4}, ClampVec(r2.Vec{X: -2, Y: 4}, r2.Vec{X: 1, Y: 1}, r2.Vec{X: 10, Y: 10}))
}

func TestFinite(t *testing.T) {
	assert.True(t, Finite(r2.Vec{X: 1, Y: -2}))
	assert.False(t, Finite(r2.Vec{X: math.NaN()}))
	assert.False(t, Finite(r2.Vec{Y: math.Inf(-1)}))
}
