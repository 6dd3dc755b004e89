package rover

import (
	"errors"
	"fmt"
)

// Command failure kinds. Every failed deploy, move or rotate wraps exactly one of these.
var (
	ErrNotFound        = errors.New("rover not found")
	ErrOutOfBounds     = errors.New("out of grid bounds")
	ErrObstacleBlocked = errors.New("obstacle detected")
)

// Input errors, raised before any command runs
var (
	ErrInvalidDimensions = errors.New("grid dimensions must be positive numbers")
	ErrInvalidHeading    = errors.New("invalid heading")
	ErrInvalidCommand    = errors.New("invalid command")
)

// PlacementError reports a coordinate the grid refused
type PlacementError struct {
	Kind       error
	At         Coordinates
	Dimensions GridDimensions
}

func (e *PlacementError) Error() string {
	if errors.Is(e.Kind, ErrOutOfBounds) {
		return fmt.Sprintf("coordinates %s are out of grid bounds %s", e.At, e.Dimensions)
	}
	return fmt.Sprintf("obstacle detected at %s", e.At)
}

// Unwrap exposes the failure kind to errors.Is
func (e *PlacementError) Unwrap() error {
	return e.Kind
}

// Kind returns the failure kind wrapped by err: ErrNotFound, ErrOutOfBounds,
// ErrObstacleBlocked, or nil when err carries none of them.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrOutOfBounds, ErrObstacleBlocked} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
