package game

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/olivierh59500/particle-emitter-go/control"
	"github.com/olivierh59500/particle-emitter-go/physics"
)

// keyRunes maps ebiten keys onto the runes control binds actions to
var keyRunes = map[ebiten.Key]rune{
	ebiten.KeyG:            'g',
	ebiten.KeyB:            'b',
	ebiten.KeyN:            'n',
	ebiten.KeyP:            'p',
	ebiten.KeyL:            'l',
	ebiten.KeyM:            'm',
	ebiten.KeyR:            'r',
	ebiten.KeyDigit0:       '0',
	ebiten.KeyX:            'x',
	ebiten.KeyPeriod:       '.',
	ebiten.KeyComma:        ',',
	ebiten.KeyQuote:        '\'',
	ebiten.KeySemicolon:    ';',
	ebiten.KeyBracketRight: ']',
	ebiten.KeyBracketLeft:  '[',
	ebiten.KeyEqual:        '=',
	ebiten.KeyMinus:        '-',
	ebiten.KeyQ:            'q',
	ebiten.KeyW:            'w',
	ebiten.KeyA:            'a',
	ebiten.KeyS:            's',
	ebiten.KeyD:            'd',
}

// Keys without a rune binding
var (
	keyActions = map[ebiten.Key]control.Action{
		ebiten.KeyNumpad0: control.StopAll,
		ebiten.KeyEscape:  control.Quit,
	}
	keyDirections = map[ebiten.Key]physics.Thrust{
		ebiten.KeyArrowUp:    physics.ThrustUp,
		ebiten.KeyArrowDown:  physics.ThrustDown,
		ebiten.KeyArrowLeft:  physics.ThrustLeft,
		ebiten.KeyArrowRight: physics.ThrustRight,
	}
)

const saveKey = ebiten.KeyF5

// frameInput is one frame of decoded input
type frameInput struct {
	pressed []control.Action
	held    []control.Action
	steer   physics.Thrust
	save    bool

	pointerDown     bool
	pointerReleased bool
	cursor          r2.Vec
}

func actionFor(k ebiten.Key) (control.Action, bool) {
	if a, ok := keyActions[k]; ok {
		return a, true
	}
	if r, ok := keyRunes[k]; ok {
		a, ok := control.KeyBindings[r]
		return a, ok
	}
	return control.None, false
}

func directionFor(k ebiten.Key) (physics.Thrust, bool) {
	if d, ok := keyDirections[k]; ok {
		return d, true
	}
	if r, ok := keyRunes[k]; ok {
		d, ok := control.SteerBindings[r]
		return d, ok
	}
	return 0, false
}

// readInput polls ebiten for this frame's input. Toggles fire on the press
// edge; repeatable actions and steering follow the held state.
func (g *Game) readInput() frameInput {
	g.justPressed = inpututil.AppendJustPressedKeys(g.justPressed[:0])
	g.pressed = inpututil.AppendPressedKeys(g.pressed[:0])

	var in frameInput
	for _, k := range g.justPressed {
		if k == saveKey {
			in.save = true
			continue
		}
		if a, ok := actionFor(k); ok && !a.Repeatable() {
			in.pressed = append(in.pressed, a)
		}
	}
	for _, k := range g.pressed {
		if a, ok := actionFor(k); ok && a.Repeatable() {
			in.held = append(in.held, a)
		}
		if d, ok := directionFor(k); ok {
			in.steer |= d
		}
	}

	x, y := ebiten.CursorPosition()
	in.cursor = r2.Vec{X: float64(x), Y: float64(y)}
	in.pointerDown = ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	in.pointerReleased = inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft)
	return in
}
