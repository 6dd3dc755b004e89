package service

import (
	"context"
	"time"

	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/store"
)

// RoverService defines all rover-related operations
type RoverService interface {
	// Rover commands
	DeployRover(ctx context.Context, req DeployRequest) (*RoverInfo, error)
	MoveRover(ctx context.Context, roverID string, cmd rover.MoveCommand) (*CommandResult, error)
	RotateRover(ctx context.Context, roverID string, cmd rover.RotateCommand) (*CommandResult, error)
	ExecuteCommands(ctx context.Context, roverID, program string) (*SequenceResult, error)

	// Rover state
	GetRover(ctx context.Context, roverID string) (*RoverInfo, error)
	ListRovers(ctx context.Context) ([]*RoverInfo, error)
	DeleteRover(ctx context.Context, roverID string) error
	GetHistory(ctx context.Context, roverID string, opts HistoryOptions) (*HistoryResponse, error)
	ExpireIdle(ctx context.Context, maxAge time.Duration) ([]string, error)

	// Grid
	GetGrid(ctx context.Context) (*GridInfo, error)
	ReplaceGrid(ctx context.Context, req GridRequest) (*GridInfo, error)
	LoadGrid(ctx context.Context, name string) (*GridInfo, error)
	ListGrids(ctx context.Context) ([]*config.GridSummary, error)
}

// RoverStore defines rover storage operations
type RoverStore interface {
	Put(r *rover.Rover) (store.Snapshot, bool)
	Get(id string) (store.Snapshot, error)
	List() []store.Snapshot
	Delete(id string) (store.Snapshot, error)
	Update(id, command string, fn func(*rover.Rover) error) (store.Snapshot, error)
	History(id string) ([]store.HistoryEntry, error)
	CleanupIdle(maxAge time.Duration) []store.Snapshot
}

// GridHolder owns the current grid
type GridHolder interface {
	Current() *rover.Grid
	Definition() *config.GridDefinition
	Replace(def *config.GridDefinition) (*rover.Grid, error)
}

// GridCatalog handles grid definition loading
type GridCatalog interface {
	LoadGrid(name string) (*config.GridDefinition, error)
	ListGrids() ([]*config.GridSummary, error)
}

// Notifier receives rover change events
type Notifier interface {
	Notify(event Event)
}

// Event types pushed to subscribers
const (
	EventDeployed = "deployed"
	EventMoved    = "moved"
	EventRotated  = "rotated"
	EventDeleted  = "deleted"
)

// Event describes a committed change to one rover. Position is the rover's
// position after the change, or its last position for deleted events.
type Event struct {
	RoverID  string         `json:"rover_id"`
	Event    string         `json:"event"`
	Position rover.Position `json:"position"`
}
