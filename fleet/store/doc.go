// Package store provides rover storage for the Rover Grid Server.
//
// The store package implements:
//   - Thread-safe rover records keyed by id
//   - Per-rover command serialization
//   - Command history with a bounded length
//   - The current grid, swapped atomically
//   - Optional persistence (JSON files, SQLite or PostgreSQL through gorm)
//
// Core Types:
//
// Manager owns every deployed rover. Each Record wraps one rover.Rover together
// with its deployment time, last command time and history. GridHolder owns the
// single grid all commands are validated against.
//
// Concurrency:
//
// The record map is guarded by an RWMutex and each Record has its own mutex.
// Update holds the record lock for the whole read-validate-write of a command,
// so two commands for the same rover never interleave while commands for
// different rovers run in parallel. Replacing or deleting a record retires the
// old one; a command that was waiting on a retired record looks the id up again.
//
// Usage:
//
//	manager := store.NewManager(logger)
//
//	r, err := grid.DeployRover(store.NewID(), rover.NewCoordinates(0, 0), rover.North)
//	if err != nil {
//		return err
//	}
//	manager.Put(r)
//
//	snap, err := manager.Update(r.ID(), "F", func(r *rover.Rover) error {
//		return r.Move(rover.Forward, holder.Current())
//	})
//
// Persistence:
//
// Without persistence the manager is purely in-memory. With a Persistence
// backend every deploy and command attempt is written through, and Get falls
// back to the backend for ids that are not in memory.
package store
