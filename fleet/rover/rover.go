package rover

import (
	"fmt"
	"strings"
)

// MoveCommand is a relative translation along the current heading
type MoveCommand int

const (
	Forward MoveCommand = iota
	Backward
)

// RotateCommand is a 90 degree turn in place
type RotateCommand int

const (
	Left RotateCommand = iota
	Right
)

// ParseMoveCommand accepts F, B, FORWARD or BACKWARD in any case
func ParseMoveCommand(s string) (MoveCommand, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "F", "FORWARD":
		return Forward, nil
	case "B", "BACKWARD":
		return Backward, nil
	}
	return Forward, fmt.Errorf("%w: move command must be F or B, got %q", ErrInvalidCommand, s)
}

// ParseRotateCommand accepts L, R, LEFT or RIGHT in any case
func ParseRotateCommand(s string) (RotateCommand, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L", "LEFT":
		return Left, nil
	case "R", "RIGHT":
		return Right, nil
	}
	return Left, fmt.Errorf("%w: rotate command must be L or R, got %q", ErrInvalidCommand, s)
}

func (c MoveCommand) String() string {
	if c == Backward {
		return "B"
	}
	return "F"
}

func (c RotateCommand) String() string {
	if c == Right {
		return "R"
	}
	return "L"
}

// Rover is a vehicle on the grid. Its position only changes through Move and Rotate.
type Rover struct {
	id       string
	position Position
}

// Deploy creates a rover at pos without validation; use Grid.DeployRover to validate
func Deploy(id string, pos Position) *Rover {
	return &Rover{id: id, position: pos}
}

// ID returns the rover identifier
func (r *Rover) ID() string {
	return r.id
}

// Position returns the last committed position
func (r *Rover) Position() Position {
	return r.position
}

// Move steps one cell along the heading. The grid is consulted before the
// position changes; on error the rover stays where it was.
func (r *Rover) Move(cmd MoveCommand, grid *Grid) error {
	dx, dy := r.position.Heading.MovementDelta(cmd == Forward)
	next := r.position.Coordinates.Translate(dx, dy)

	if err := grid.ValidateMovement(next); err != nil {
		return err
	}

	r.position = r.position.WithCoordinates(next)
	return nil
}

// Rotate turns the rover in place. It never fails.
func (r *Rover) Rotate(cmd RotateCommand) {
	heading := r.position.Heading.RotateLeft()
	if cmd == Right {
		heading = r.position.Heading.RotateRight()
	}
	r.position = r.position.WithHeading(heading)
}
