// Package rover provides the domain model for the Rover Grid Server.
//
// The rover package implements:
//   - Immutable value objects: Coordinates, Heading, Position, Obstacle and GridDimensions
//   - Grid validation (bounds containment and obstacle collision)
//   - The Rover command interpreter (move forward/backward, rotate left/right)
//   - The error taxonomy shared by every layer above the core
//
// Core Types:
//
// Grid is the sole authority on whether a coordinate can be occupied. It is
// immutable once built and owns no rovers. Rover holds an id and its last
// validated Position; it is the only type with mutable state and it replaces
// its Position wholesale on every successful command.
//
// Usage:
//
//	dims, err := rover.NewGridDimensions(10, 10)
//	if err != nil {
//		log.Fatal(err)
//	}
//	grid := rover.NewGrid(dims, rover.ObstacleAt(rover.NewCoordinates(5, 5)))
//
//	r, err := grid.DeployRover("r1", rover.NewCoordinates(3, 5), rover.North)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := r.Move(rover.Forward, grid); errors.Is(err, rover.ErrObstacleBlocked) {
//		// position unchanged
//	}
//	r.Rotate(rover.Left)
//
// Validation Order:
//
// Deploy and move run the same checks: bounds first, then obstacles. When a
// target is both outside the grid and listed as an obstacle, ErrOutOfBounds is
// reported.
//
// Concurrency:
//
// Nothing in this package locks. A Grid may be shared freely; a Rover must not
// receive two commands at once. The store package serializes commands per id.
package rover
