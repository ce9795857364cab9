package stream

import (
	"fmt"
	"strings"

	"github.com/olivierh59500/particle-emitter-go/control"
	"github.com/olivierh59500/particle-emitter-go/physics"
)

// Command is one text command received from a client.
//
//	gravity   apply an action by name
//	up        steer for one frame
//	+up       start steering until -up
//	-up       stop steering
type Command struct {
	Action control.Action
	Dir    physics.Thrust
	// Hold is set for +dir and cleared for -dir; ignored for pulses
	Hold  bool
	Pulse bool
}

// ParseCommand decodes a client text message
func ParseCommand(text string) (Command, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Command{}, fmt.Errorf("empty command")
	}

	switch text[0] {
	case '+', '-':
		d, err := control.ParseDirection(text[1:])
		if err != nil {
			return Command{}, err
		}
		return Command{Dir: d, Hold: text[0] == '+'}, nil
	}
	if d, err := control.ParseDirection(text); err == nil {
		return Command{Dir: d, Pulse: true}, nil
	}
	a, err := control.ParseAction(text)
	if err != nil {
		return Command{}, err
	}
	return Command{Action: a}, nil
}

// Apply feeds the command to ctl
func (c Command) Apply(ctl *control.Controller) error {
	switch {
	case c.Dir != 0 && c.Pulse:
		ctl.Pulse(c.Dir)
	case c.Dir != 0:
		ctl.Steer(c.Dir, c.Hold)
	default:
		return ctl.Apply(c.Action)
	}
	return nil
}
