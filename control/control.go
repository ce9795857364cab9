// Package control turns user intent into simulation mutations. Renderers
// decode their own input events into Actions and steering directions and
// hand them to a Controller, which owns the per-frame input state.
package control

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/physics"
)

// RepeatFrames is how often a held repeatable action fires
const RepeatFrames = 25

var directions = [...]struct {
	thrust physics.Thrust
	nudge  r2.Vec
}{
	{physics.ThrustUp, r2.Vec{Y: -physics.NudgeStep}},
	{physics.ThrustDown, r2.Vec{Y: physics.NudgeStep}},
	{physics.ThrustLeft, r2.Vec{X: -physics.NudgeStep}},
	{physics.ThrustRight, r2.Vec{X: physics.NudgeStep}},
}

const allDirections = physics.ThrustUp | physics.ThrustDown | physics.ThrustLeft | physics.ThrustRight

// Controller applies actions to a simulation. Like the simulation itself it
// must only be used from the goroutine that drives Advance.
type Controller struct {
	sim *physics.Simulation
	log *zap.Logger

	overlay bool
	quit    bool

	held   physics.Thrust
	pulse  physics.Thrust
	repeat []Action

	drag    DragTracker
	history *History
}

// New creates a controller for sim. A nil logger is replaced with a no-op.
func New(sim *physics.Simulation, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		sim:     sim,
		log:     log,
		overlay: true,
		drag:    DragTracker{Arena: sim.Arena()},
		history: NewHistory(RepeatFrames),
	}
}

// Simulation returns the controlled simulation
func (c *Controller) Simulation() *physics.Simulation { return c.sim }

// OverlayOpen reports whether the diagnostics overlay is expanded
func (c *Controller) OverlayOpen() bool { return c.overlay }

// QuitRequested reports whether Quit has been applied
func (c *Controller) QuitRequested() bool { return c.quit }

// History returns the overlay averages
func (c *Controller) History() *History { return c.history }

// Apply performs a immediately
func (c *Controller) Apply(a Action) error {
	s := c.sim
	m := s.Modes()
	t := s.Tunables()

	switch a {
	case None:
		return nil
	case ToggleGravity:
		m.Gravity = !m.Gravity
	case ToggleJitter:
		m.Jitter = !m.Jitter
	case ToggleRecoil:
		m.Recoil = !m.Recoil
	case ToggleRepulsion:
		m.Repulsion = !m.Repulsion
	case ToggleTrail:
		m.Trail = !m.Trail
	case ToggleOverlay:
		c.overlay = !c.overlay
		return nil
	case Regenerate:
		if err := s.RegenerateBarriers(); err != nil {
			return fmt.Errorf("apply %s: %w", a, err)
		}
		return nil
	case StopEmitter:
		s.StopEmitter()
		return nil
	case StopAll:
		s.StopAll()
		return nil
	case GrowEmitter:
		s.SetEmitterSize(s.Emitter().Size + physics.EmitterSizeStep)
		return nil
	case ShrinkEmitter:
		s.SetEmitterSize(s.Emitter().Size - physics.EmitterSizeStep)
		return nil
	case IncRadius:
		t.RepulsionRadius += physics.TunableStep
	case DecRadius:
		t.RepulsionRadius -= physics.TunableStep
	case IncFactor:
		t.RepulsionFactor += physics.TunableStep
	case DecFactor:
		t.RepulsionFactor -= physics.TunableStep
	case IncJitter:
		t.JitterFactor += physics.TunableStep
	case DecJitter:
		t.JitterFactor -= physics.TunableStep
	case Quit:
		c.quit = true
		return nil
	default:
		return fmt.Errorf("unknown action %d", uint8(a))
	}

	s.SetModes(m)
	s.SetTunables(t)
	c.log.Debug("action applied", zap.Stringer("action", a))
	return nil
}

// Hold marks a repeatable action as held for the current frame. Non
// repeatable actions are applied at once.
func (c *Controller) Hold(a Action) error {
	if !a.Repeatable() {
		return c.Apply(a)
	}
	c.repeat = append(c.repeat, a)
	return nil
}

// Steer sets whether directions d are held
func (c *Controller) Steer(d physics.Thrust, held bool) {
	if held {
		c.held |= d
	} else {
		c.held &^= d
	}
}

// Pulse steers toward d for the next frame only. Backends without key
// release events use it instead of Steer.
func (c *Controller) Pulse(d physics.Thrust) {
	c.pulse |= d
}

// Update feeds one frame of steering and held actions into the simulation.
// Call it once per frame before Advance.
func (c *Controller) Update() error {
	s := c.sim
	dirs := c.held | c.pulse
	c.pulse = 0

	if s.Modes().Recoil {
		s.SetThrust(allDirections, false)
		s.SetThrust(dirs, true)
	} else {
		for _, d := range directions {
			if dirs.Has(d.thrust) {
				s.Nudge(d.nudge)
			}
		}
	}

	var err error
	if s.Frames()%RepeatFrames == 0 {
		for _, a := range c.repeat {
			if aerr := c.Apply(a); aerr != nil && err == nil {
				err = aerr
			}
		}
	}
	c.repeat = c.repeat[:0]
	return err
}

// Drag pins the emitter under the pointer. delta is the pointer movement
// since the previous frame and frameSeconds the wall-clock frame time.
func (c *Controller) Drag(pos, delta r2.Vec, frameSeconds float64) {
	c.drag.Move(delta, frameSeconds)
	if err := c.sim.SetEmitterPosition(pos); err != nil {
		c.log.Debug("drag ignored", zap.Error(err))
		return
	}
	_ = c.sim.SetEmitterVelocity(r2.Vec{})
}

// Release throws the emitter with the velocity accumulated while dragging
func (c *Controller) Release() {
	if !c.drag.Active() {
		return
	}
	v := c.drag.Release()
	if err := c.sim.SetEmitterVelocity(v); err != nil {
		c.log.Debug("release ignored", zap.Error(err))
	}
}

// Observe records the emitter state for the overlay averages. Call it once
// per frame after Advance.
func (c *Controller) Observe() {
	e := c.sim.Emitter()
	c.history.Record(c.sim.Frames(), e.Pos, e.Vel)
}
