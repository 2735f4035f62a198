package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Command is a viewer action bound to a key.
type Command int

// Viewer commands.
const (
	CommandNone Command = iota
	CommandQuit
	CommandRotateXNeg
	CommandRotateXPos
	CommandRotateYNeg
	CommandRotateYPos
	CommandRotateZNeg
	CommandRotateZPos
	CommandToggleStitch
	CommandReset
	CommandScreenshot
)

// DefaultBindings maps keys to viewer commands.
var DefaultBindings = map[sdl.Scancode]Command{
	sdl.SCANCODE_ESCAPE:   CommandQuit,
	sdl.SCANCODE_PAGEDOWN: CommandRotateXNeg,
	sdl.SCANCODE_PAGEUP:   CommandRotateXPos,
	sdl.SCANCODE_DOWN:     CommandRotateYNeg,
	sdl.SCANCODE_UP:       CommandRotateYPos,
	sdl.SCANCODE_LEFT:     CommandRotateZNeg,
	sdl.SCANCODE_RIGHT:    CommandRotateZPos,
	sdl.SCANCODE_S:        CommandToggleStitch,
	sdl.SCANCODE_R:        CommandReset,
	sdl.SCANCODE_P:        CommandScreenshot,
}

func (c Command) rotates() bool {
	return c >= CommandRotateXNeg && c <= CommandRotateZPos
}

// Commands returns the bound commands for keys pressed during the last
// Update. Held keys repeat rotation commands only.
func (i *Input) Commands(bindings map[sdl.Scancode]Command) []Command {
	var cmds []Command
	for _, e := range i.events {
		if e.Type != EventKeyDown {
			continue
		}
		cmd, ok := bindings[e.Key]
		if !ok || (e.Repeat && !cmd.rotates()) {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// Rotate applies a rotation command to angles, stepping by step degrees and
// wrapping each axis into [-180, 180]. Other commands return angles unchanged.
func Rotate(angles [3]float32, cmd Command, step float32) [3]float32 {
	axis, sign := -1, float32(1)
	switch cmd {
	case CommandRotateXNeg:
		axis, sign = 0, -1
	case CommandRotateXPos:
		axis = 0
	case CommandRotateYNeg:
		axis, sign = 1, -1
	case CommandRotateYPos:
		axis = 1
	case CommandRotateZNeg:
		axis, sign = 2, -1
	case CommandRotateZPos:
		axis = 2
	default:
		return angles
	}

	angles[axis] = wrapAngle(angles[axis] + sign*step)
	return angles
}

// DragRotation turns a mouse drag into a rotation: horizontal motion pans
// around Z, vertical motion tilts around Y.
func DragRotation(angles [3]float32, dx, dy int32, degPerPixel float32) [3]float32 {
	if dx == 0 && dy == 0 {
		return angles
	}
	angles[2] = wrapAngle(angles[2] - float32(dx)*degPerPixel)
	angles[1] = wrapAngle(angles[1] + float32(dy)*degPerPixel)
	return angles
}

func wrapAngle(a float32) float32 {
	for a > 180 {
		a -= 360
	}
	for a < -180 {
		a += 360
	}
	return a
}
