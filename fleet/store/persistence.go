package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/rover"
)

// ErrNoGrid is returned by LoadGrid when no grid was ever saved
var ErrNoGrid = errors.New("no persisted grid")

// Persistence defines the interface for rover and grid storage backends
type Persistence interface {
	// SaveRover writes the rover, replacing any previous copy
	SaveRover(data *PersistedRover) error

	// LoadRover reads a rover; unknown ids wrap rover.ErrNotFound
	LoadRover(id string) (*PersistedRover, error)

	// DeleteRover removes a rover; unknown ids wrap rover.ErrNotFound
	DeleteRover(id string) error

	// ListRovers returns every persisted rover id
	ListRovers() ([]string, error)

	// SaveGrid stores the current grid definition
	SaveGrid(def *config.GridDefinition) error

	// LoadGrid returns the stored grid definition or ErrNoGrid
	LoadGrid() (*config.GridDefinition, error)

	Close() error
}

// PersistedRover is the serializable form of a Record
type PersistedRover struct {
	ID            string         `json:"id"`
	Position      rover.Position `json:"position"`
	DeployedAt    time.Time      `json:"deployed_at"`
	LastCommandAt time.Time      `json:"last_command_at"`
	Commands      int            `json:"commands"`
	History       []HistoryEntry `json:"history"`
}

// NewPersistence builds the backend selected by settings. The memory backend has
// no persistence and returns nil.
func NewPersistence(settings *config.Settings) (Persistence, error) {
	switch settings.Storage.Backend {
	case "memory", "":
		return nil, nil
	case "file":
		return NewFilePersistence(settings.Storage.Path)
	case "sqlite":
		path := settings.Storage.Path
		if filepath.Ext(path) == "" {
			path += ".db"
		}
		return OpenSQLite(path)
	case "postgres":
		return OpenPostgres(settings.Storage.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", settings.Storage.Backend)
	}
}
