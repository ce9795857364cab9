package physics

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/olivierh59500/particle-emitter-go/geom"
)

// BarrierField is an immutable set of non-overlapping rectangular obstacles.
// Regeneration builds a new field rather than mutating an existing one.
type BarrierField struct {
	rects []geom.Rect
}

// NewBarrierField wraps a fixed set of rectangles
func NewBarrierField(rects ...geom.Rect) *BarrierField {
	f := &BarrierField{rects: make([]geom.Rect, len(rects))}
	copy(f.rects, rects)
	return f
}

// Len returns the number of barriers
func (f *BarrierField) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rects)
}

// Rects returns a copy of the barrier rectangles
func (f *BarrierField) Rects() []geom.Rect {
	if f == nil {
		return nil
	}
	out := make([]geom.Rect, len(f.rects))
	copy(out, f.rects)
	return out
}

// GenerateBarriers rejection-samples p.Count rectangles inside arena shrunk
// by p.Margin. Sides are whole units in [MinSize, MaxSize] and no two
// rectangles overlap. Candidates that stick out of bounds or hit an accepted
// rectangle are redrawn; after p.MaxAttempts draws ErrBarrierPlacement is
// returned.
func GenerateBarriers(rng *rand.Rand, arena geom.Rect, p BarrierParams) (*BarrierField, error) {
	bounds := arena.Inset(p.Margin)
	if p.Count == 0 {
		return NewBarrierField(), nil
	}
	if bounds.Empty() || p.MinSize <= 0 || p.MaxSize < p.MinSize {
		return nil, fmt.Errorf("%w: bounds %+v, sizes [%g, %g]", ErrInvalidParams, bounds, p.MinSize, p.MaxSize)
	}

	x0, x1 := int(math.Ceil(bounds.X)), int(math.Floor(bounds.Right()))
	y0, y1 := int(math.Ceil(bounds.Y)), int(math.Floor(bounds.Bottom()))
	s0, s1 := int(math.Ceil(p.MinSize)), int(math.Floor(p.MaxSize))
	if x1 < x0 || y1 < y0 || s1 < s0 {
		return nil, fmt.Errorf("%w: no integral placement inside %+v", ErrInvalidParams, bounds)
	}

	rects := make([]geom.Rect, 0, p.Count)
	attempts := 0
	for len(rects) < p.Count {
		if attempts >= p.MaxAttempts {
			return nil, fmt.Errorf("%w: placed %d of %d after %d attempts", ErrBarrierPlacement, len(rects), p.Count, attempts)
		}
		attempts++

		cand := geom.Rect{
			X: float64(randRange(rng, x0, x1)),
			Y: float64(randRange(rng, y0, y1)),
			W: float64(randRange(rng, s0, s1)),
			H: float64(randRange(rng, s0, s1)),
		}
		// No barriers go off screen
		if !bounds.ContainsRect(cand) {
			continue
		}
		if overlapsAny(cand, rects) {
			continue
		}
		rects = append(rects, cand)
	}
	return &BarrierField{rects: rects}, nil
}

func overlapsAny(r geom.Rect, rects []geom.Rect) bool {
	for _, o := range rects {
		if r.Overlaps(o) {
			return true
		}
	}
	return false
}

// randRange returns a uniform integer in [lo, hi]
func randRange(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}
