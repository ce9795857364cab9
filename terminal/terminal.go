// Package terminal renders the simulation into a character grid with tcell.
package terminal

import (
	"context"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/olivierh59500/particle-emitter-go/control"
	"github.com/olivierh59500/particle-emitter-go/geom"
	"github.com/olivierh59500/particle-emitter-go/physics"
)

const (
	bodyGlyph    = '█'
	barrierGlyph = '▒'
	// maxFrameSeconds caps the step after a stall
	maxFrameSeconds = .25
)

var (
	defaultStyle = tcell.StyleDefault.Background(tcell.NewRGBColor(0x22, 0x22, 0x22))
	barrierStyle = defaultStyle.Foreground(tcell.NewRGBColor(0x9F, 0xA8, 0xDA))
	textStyle    = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
)

// Cue is played when the emitter touches a wall or barrier
type Cue interface {
	Play()
}

// Renderer draws snapshots onto a tcell screen, scaling the arena to fit
type Renderer struct {
	screen tcell.Screen
}

// NewRenderer wraps an initialized screen
func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen}
}

// Draw renders snap and the overlay lines. Trail mode keeps the previous
// frame's cells.
func (r *Renderer) Draw(snap *physics.Snapshot, overlay []string) {
	if !snap.Modes.Trail {
		r.screen.Fill(' ', defaultStyle)
	}
	cols, rows := r.screen.Size()
	if cols == 0 || rows == 0 || snap.Arena.Empty() {
		return
	}
	sx := float64(cols) / snap.Arena.W
	sy := float64(rows) / snap.Arena.H

	for _, b := range snap.Barriers {
		r.fill(b, sx, sy, barrierGlyph, barrierStyle)
	}
	for _, sl := range snap.Particles {
		r.drawBody(sl.Body, sx, sy)
	}
	r.drawBody(snap.Emitter, sx, sy)

	for y, line := range overlay {
		if y >= rows {
			break
		}
		x := 0
		for _, ch := range line {
			if x >= cols {
				break
			}
			r.screen.SetContent(x, y, ch, nil, textStyle)
			x++
		}
	}
}

func (r *Renderer) drawBody(b physics.Body, sx, sy float64) {
	c := b.Color.RGBA()
	style := defaultStyle.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
	r.fill(b.Rect(), sx, sy, bodyGlyph, style)
}

// fill paints every cell the rectangle touches; anything non-empty covers
// at least one cell
func (r *Renderer) fill(rect geom.Rect, sx, sy float64, ch rune, style tcell.Style) {
	x0 := int(math.Floor(rect.X * sx))
	y0 := int(math.Floor(rect.Y * sy))
	x1 := int(math.Ceil(rect.Right() * sx))
	y1 := int(math.Ceil(rect.Bottom() * sy))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			r.screen.SetContent(x, y, ch, nil, style)
		}
	}
}

// Decode maps a key event onto an action or a steering pulse
func Decode(ev *tcell.EventKey) (control.Action, physics.Thrust) {
	switch ev.Key() {
	case tcell.KeyUp:
		return control.None, physics.ThrustUp
	case tcell.KeyDown:
		return control.None, physics.ThrustDown
	case tcell.KeyLeft:
		return control.None, physics.ThrustLeft
	case tcell.KeyRight:
		return control.None, physics.ThrustRight
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return control.Quit, 0
	case tcell.KeyRune:
		ch := ev.Rune()
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		if d, ok := control.SteerBindings[ch]; ok {
			return control.None, d
		}
		return control.KeyBindings[ch], 0
	}
	return control.None, 0
}

// Loop drives a controller at a fixed tick rate and renders every tick
type Loop struct {
	Screen    tcell.Screen
	Control   *control.Controller
	TPS       int
	TimeScale float64
	Cue       Cue
	Log       *zap.Logger
}

// Run blocks until ctx is cancelled, Quit is applied or the screen is
// finalized. The screen is finalized on return.
func (l *Loop) Run(ctx context.Context) error {
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	renderer := NewRenderer(l.Screen)
	sim := l.Control.Simulation()

	events := make(chan tcell.Event, 64)
	stop := make(chan struct{})
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		for {
			ev := l.Screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-stop:
				return
			}
		}
	}()
	defer func() {
		close(stop)
		l.Screen.Fini()
		<-pollDone
	}()

	tps := l.TPS
	if tps <= 0 {
		tps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(tps))
	defer ticker.Stop()

	var snap physics.Snapshot
	last := time.Now()
	fps := float64(tps)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			l.handle(ev, log)
			if l.Control.QuitRequested() {
				return nil
			}
		case now := <-ticker.C:
			frame := now.Sub(last).Seconds()
			last = now
			if frame > 0 {
				fps = .9*fps + .1/frame
			}
			frame = math.Min(frame, maxFrameSeconds)

			if err := l.Control.Update(); err != nil {
				log.Warn("held action failed", zap.Error(err))
			}
			stats := sim.Advance(frame * l.TimeScale)
			if stats.EmitterContact.Any() && l.Cue != nil {
				l.Cue.Play()
			}
			l.Control.Observe()

			sim.Snapshot(&snap)
			renderer.Draw(&snap, l.Control.OverlayLines(fps))
			l.Screen.Show()
		}
	}
}

func (l *Loop) handle(ev tcell.Event, log *zap.Logger) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		l.Screen.Sync()
	case *tcell.EventKey:
		a, d := Decode(ev)
		if d != 0 {
			l.Control.Pulse(d)
			return
		}
		if err := l.Control.Apply(a); err != nil {
			log.Warn("action failed", zap.Stringer("action", a), zap.Error(err))
		}
	}
}
