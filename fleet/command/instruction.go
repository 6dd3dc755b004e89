package command

import (
	"strings"

	"github.com/wricardo/rover-grid/fleet/rover"
)

// Kind tells moves from rotations
type Kind int

const (
	KindMove Kind = iota
	KindRotate
)

// Instruction is a single executable command
type Instruction struct {
	Kind   Kind
	Move   rover.MoveCommand
	Rotate rover.RotateCommand
}

func newInstruction(letter string) (Instruction, error) {
	switch strings.ToUpper(letter) {
	case "L", "R":
		rot, err := rover.ParseRotateCommand(letter)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Kind: KindRotate, Rotate: rot}, nil
	default:
		mv, err := rover.ParseMoveCommand(letter)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Kind: KindMove, Move: mv}, nil
	}
}

// Apply runs the instruction on r. Rotations never fail.
func (i Instruction) Apply(r *rover.Rover, grid *rover.Grid) error {
	if i.Kind == KindRotate {
		r.Rotate(i.Rotate)
		return nil
	}
	return r.Move(i.Move, grid)
}

// String returns the command letter
func (i Instruction) String() string {
	if i.Kind == KindRotate {
		return i.Rotate.String()
	}
	return i.Move.String()
}
