// Package service provides the business logic layer for the Rover Grid Server.
//
// The service package implements:
//   - Rover deployment, movement and rotation
//   - Command programs executed step by step
//   - Command history with pagination
//   - Grid inspection, replacement and loading from the catalog
//   - Change notifications for push transports
//   - Command metrics through OpenTelemetry
//
// Core Interface:
//
// RoverService defines every operation the transports expose. The REST API,
// WebSocket hub and MCP tools all go through it, so the rules live in one place.
//
// Usage:
//
//	svc := service.NewRoverService(service.Dependencies{
//		Rovers:   store.NewManager(logger),
//		Grid:     holder,
//		Catalog:  catalog,
//		Notifier: hub,
//		Logger:   logger,
//	})
//
//	info, err := svc.DeployRover(ctx, service.DeployRequest{RoverID: "r1", X: 3, Y: 5, Direction: "NORTH"})
//	result, err := svc.MoveRover(ctx, "r1", rover.Forward)
//
// Error Handling:
//
// Command failures are returned unchanged from the store and the grid, so
// callers classify them with errors.Is against rover.ErrNotFound,
// rover.ErrOutOfBounds and rover.ErrObstacleBlocked. Malformed input wraps
// rover.ErrInvalidHeading or rover.ErrInvalidCommand; grid problems wrap
// config.ErrInvalidGrid or config.ErrGridNotFound.
package service
