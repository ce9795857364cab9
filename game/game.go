// Package game runs the simulation in an ebiten window.
package game

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/control"
	"github.com/olivierh59500/particle-emitter-go/geom"
	"github.com/olivierh59500/particle-emitter-go/physics"
)

// maxFrameSeconds caps the wall-clock step after a stall (window drag, debugger)
const maxFrameSeconds = .25

// Drawing constants
const (
	bodyOutline    = 2
	barrierOutline = 4
	overlayOffset  = 8
	debugGlyphW    = 6
	debugGlyphH    = 16
	snapshotFile   = "snapshot.json"
)

var (
	background   = color.RGBA{0x22, 0x22, 0x22, 0xFF}
	barrierColor = color.RGBA{0x9F, 0xA8, 0xDA, 0xFF}
	outlineColor = color.RGBA{A: 0xFF}
	overlayColor = color.RGBA{0x0A, 0x0A, 0x0A, 0x55}
)

// Cue is played when the emitter touches a wall or barrier
type Cue interface {
	Play()
}

// Game implements ebiten.Game on top of a control.Controller
type Game struct {
	ctl       *control.Controller
	sim       *physics.Simulation
	log       *zap.Logger
	cue       Cue
	timeScale float64

	last     time.Time
	dragging bool
	cursor   r2.Vec
	snap     physics.Snapshot

	justPressed, pressed []ebiten.Key
}

// New creates a game driving ctl's simulation. cue may be nil.
func New(ctl *control.Controller, cue Cue, log *zap.Logger) *Game {
	if log == nil {
		log = zap.NewNop()
	}
	sim := ctl.Simulation()
	return &Game{
		ctl:       ctl,
		sim:       sim,
		log:       log,
		cue:       cue,
		timeScale: sim.Params().TimeScale,
	}
}

// Run opens the window and blocks until it is closed or Quit is applied
func Run(g *Game, title string, tps int) error {
	a := g.sim.Arena()
	ebiten.SetWindowSize(int(a.W), int(a.H))
	ebiten.SetWindowTitle(title)
	ebiten.SetTPS(tps)
	// Trail mode relies on the previous frame surviving
	ebiten.SetScreenClearedEveryFrame(false)

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("run game: %w", err)
	}
	return nil
}

// Update is called each tick by Ebitengine
func (g *Game) Update() error {
	now := time.Now()
	frame := 1 / float64(ebiten.TPS())
	if !g.last.IsZero() {
		frame = now.Sub(g.last).Seconds()
	}
	g.last = now
	if frame > maxFrameSeconds {
		frame = maxFrameSeconds
	}

	in := g.readInput()
	if in.save {
		g.saveSnapshot(snapshotFile)
	}
	g.apply(in, frame)

	stats := g.sim.Advance(frame * g.timeScale)
	if stats.EmitterContact.Any() && g.cue != nil {
		g.cue.Play()
	}
	g.ctl.Observe()

	if g.ctl.QuitRequested() {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) apply(in frameInput, frameSeconds float64) {
	for _, a := range in.pressed {
		if err := g.ctl.Apply(a); err != nil {
			g.log.Warn("action failed", zap.Stringer("action", a), zap.Error(err))
		}
	}
	for _, a := range in.held {
		if err := g.ctl.Hold(a); err != nil {
			g.log.Warn("action failed", zap.Stringer("action", a), zap.Error(err))
		}
	}

	g.ctl.Steer(^physics.Thrust(0), false)
	g.ctl.Steer(in.steer, true)

	if in.pointerDown {
		var delta r2.Vec
		if g.dragging {
			delta = r2.Sub(in.cursor, g.cursor)
		}
		g.ctl.Drag(in.cursor, delta, frameSeconds)
		g.dragging = true
	} else if in.pointerReleased && g.dragging {
		g.ctl.Release()
		g.dragging = false
	}
	g.cursor = in.cursor

	if err := g.ctl.Update(); err != nil {
		g.log.Warn("held action failed", zap.Error(err))
	}
}

// Draw is called each frame by Ebitengine
func (g *Game) Draw(screen *ebiten.Image) {
	g.sim.Snapshot(&g.snap)
	trail := g.snap.Modes.Trail
	if !trail {
		screen.Fill(background)
	}

	for _, b := range g.snap.Barriers {
		fillRect(screen, b, barrierColor)
		strokeRect(screen, b, barrierOutline)
	}
	// Oldest first, so fresh particles land on top
	for _, sl := range g.snap.Particles {
		drawBody(screen, sl.Body, !trail)
	}
	drawBody(screen, g.snap.Emitter, !trail)

	g.drawOverlay(screen)
}

// Layout returns the arena size
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	a := g.sim.Arena()
	return int(a.W), int(a.H)
}

func (g *Game) drawOverlay(screen *ebiten.Image) {
	lines := g.ctl.OverlayLines(ebiten.ActualFPS())
	width := 0
	for _, l := range lines {
		if len(l) > width {
			width = len(l)
		}
	}
	box := geom.Rect{
		X: overlayOffset / 2,
		Y: overlayOffset / 2,
		W: float64(width*debugGlyphW + overlayOffset),
		H: float64(len(lines)*debugGlyphH + overlayOffset),
	}
	fillRect(screen, box, overlayColor)
	ebitenutil.DebugPrintAt(screen, strings.Join(lines, "\n"), overlayOffset, overlayOffset)
}

func drawBody(screen *ebiten.Image, b physics.Body, outline bool) {
	r := b.Rect()
	fillRect(screen, r, b.Color.RGBA())
	if outline {
		strokeRect(screen, r, bodyOutline)
	}
}

func fillRect(screen *ebiten.Image, r geom.Rect, c color.Color) {
	vector.DrawFilledRect(screen, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), c, false)
}

func strokeRect(screen *ebiten.Image, r geom.Rect, width float32) {
	vector.StrokeRect(screen, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), width, outlineColor, false)
}

// saveSnapshot writes the current frame to a JSON file
func (g *Game) saveSnapshot(filename string) {
	g.sim.Snapshot(&g.snap)
	data, err := jsoniter.ConfigFastest.MarshalIndent(&g.snap, "", "  ")
	if err != nil {
		g.log.Warn("encode snapshot", zap.Error(err))
		return
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		g.log.Warn("save snapshot", zap.String("file", filename), zap.Error(err))
		return
	}
	g.log.Info("snapshot saved", zap.String("file", filename), zap.Uint64("frame", g.snap.Frame))
}
