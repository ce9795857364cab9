package control

import (
	"fmt"
	"strings"

	"github.com/olivierh59500/particle-emitter-go/physics"
)

// Action is a backend-neutral user command
type Action uint8

const (
	None Action = iota
	ToggleGravity
	ToggleJitter
	ToggleRecoil
	ToggleRepulsion
	ToggleTrail
	ToggleOverlay
	Regenerate
	StopEmitter
	StopAll
	GrowEmitter
	ShrinkEmitter
	IncRadius
	DecRadius
	IncFactor
	DecFactor
	IncJitter
	DecJitter
	Quit
)

var actionNames = [...]string{
	None:            "none",
	ToggleGravity:   "gravity",
	ToggleJitter:    "jitter",
	ToggleRecoil:    "recoil",
	ToggleRepulsion: "repulsion",
	ToggleTrail:     "trail",
	ToggleOverlay:   "overlay",
	Regenerate:      "regenerate",
	StopEmitter:     "stop",
	StopAll:         "stop_all",
	GrowEmitter:     "grow",
	ShrinkEmitter:   "shrink",
	IncRadius:       "radius+",
	DecRadius:       "radius-",
	IncFactor:       "factor+",
	DecFactor:       "factor-",
	IncJitter:       "jitter+",
	DecJitter:       "jitter-",
	Quit:            "quit",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Repeatable reports whether holding the action repeats it
func (a Action) Repeatable() bool {
	return a >= GrowEmitter && a <= DecJitter
}

// ParseAction looks up an action by name
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range actionNames {
		if n == name && Action(i) != None {
			return Action(i), nil
		}
	}
	return None, fmt.Errorf("unknown action %q", name)
}

// Direction names used by text commands
var directionNames = map[string]physics.Thrust{
	"up":    physics.ThrustUp,
	"down":  physics.ThrustDown,
	"left":  physics.ThrustLeft,
	"right": physics.ThrustRight,
}

// ParseDirection looks up a steering direction by name
func ParseDirection(name string) (physics.Thrust, error) {
	d, ok := directionNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown direction %q", name)
	}
	return d, nil
}

// KeyBindings maps printable keys to actions. Backends add their own
// bindings for keys without a rune.
var KeyBindings = map[rune]Action{
	'g':  ToggleGravity,
	'b':  ToggleJitter,
	'n':  ToggleRecoil,
	'p':  ToggleRepulsion,
	'l':  ToggleTrail,
	'm':  ToggleOverlay,
	'r':  Regenerate,
	'0':  StopEmitter,
	'x':  StopAll,
	'.':  GrowEmitter,
	',':  ShrinkEmitter,
	'\'': IncRadius,
	';':  DecRadius,
	']':  IncFactor,
	'[':  DecFactor,
	'=':  IncJitter,
	'-':  DecJitter,
	'q':  Quit,
}

// SteerBindings maps WASD to directions
var SteerBindings = map[rune]physics.Thrust{
	'w': physics.ThrustUp,
	's': physics.ThrustDown,
	'a': physics.ThrustLeft,
	'd': physics.ThrustRight,
}
