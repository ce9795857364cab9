package control

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// History keeps the last n emitter samples and refreshes their mean every
// n frames, so the overlay numbers are readable at high frame rates.
type History struct {
	pos, vel     []r2.Vec
	next, filled int

	avgPos, avgVel r2.Vec
}

// NewHistory creates a history of n samples
func NewHistory(n int) *History {
	if n < 1 {
		n = 1
	}
	return &History{pos: make([]r2.Vec, n), vel: make([]r2.Vec, n)}
}

// Record stores the sample for frame
func (h *History) Record(frame uint64, pos, vel r2.Vec) {
	h.pos[h.next], h.vel[h.next] = pos, vel
	h.next = (h.next + 1) % len(h.pos)
	warming := h.filled < len(h.pos)
	if warming {
		h.filled++
	}
	// Until the window first fills the mean tracks every sample
	if frame%uint64(len(h.pos)) == 0 || warming {
		h.avgPos, h.avgVel = mean(h.pos[:h.filled]), mean(h.vel[:h.filled])
	}
}

// Averages returns the last computed mean position and velocity
func (h *History) Averages() (pos, vel r2.Vec) {
	return h.avgPos, h.avgVel
}

func mean(vs []r2.Vec) r2.Vec {
	if len(vs) == 0 {
		return r2.Vec{}
	}
	var sum r2.Vec
	for _, v := range vs {
		sum = r2.Add(sum, v)
	}
	return r2.Scale(1/float64(len(vs)), sum)
}

// OverlayLines renders the diagnostics overlay as text lines
func (c *Controller) OverlayLines(fps float64) []string {
	lines := []string{"Show / Hide Menu [M]"}
	if !c.overlay {
		return append(lines, fmt.Sprintf("FPS: %.0f", fps))
	}

	s := c.sim
	m, t := s.Modes(), s.Tunables()
	pos, vel := c.history.Averages()
	lines = append(lines,
		"",
		"Gravity [G]: "+onOff(m.Gravity),
		"Jitter [B]: "+onOff(m.Jitter),
		fmt.Sprintf("    (< - = > factor = %.2f)", t.JitterFactor),
		"Recoil [N]: "+onOff(m.Recoil),
		"Repulsion [P]: "+onOff(m.Repulsion),
		fmt.Sprintf("    (< ; ' > radius = %.2f,", t.RepulsionRadius),
		fmt.Sprintf("     < [ ] > factor = %.2f)", t.RepulsionFactor),
		"Trail [L]: "+onOff(m.Trail),
		fmt.Sprintf("Emitter Size: %.1fpx (< , . >)", s.Emitter().Size),
		fmt.Sprintf("Particles: %d / %d", s.Count(), s.Capacity()),
		"Regenerate barriers [R]",
		"WASD / Arrows / Drag to move the emitter",
		"Stop emitter [0]",
		"Stop everything [X]",
		"",
		fmt.Sprintf("FPS: %.0f", fps),
		fmt.Sprintf("Position: (%-7.2f, %-7.2f)", pos.X, pos.Y),
		fmt.Sprintf("Velocity: (%-7.2f, %-7.2f)", vel.X, vel.Y),
	)
	return lines
}

// OverlayText joins OverlayLines with newlines
func (c *Controller) OverlayText(fps float64) string {
	return strings.Join(c.OverlayLines(fps), "\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
