package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/rover"
)

// GridHolder owns the current grid. Replacing it never moves deployed rovers.
type GridHolder struct {
	def         *config.GridDefinition
	grid        *rover.Grid
	persistence Persistence
	logger      zerolog.Logger
	mu          sync.RWMutex
}

// NewGridHolder starts from the persisted grid when there is one, else from def
func NewGridHolder(def *config.GridDefinition, persistence Persistence, logger zerolog.Logger) (*GridHolder, error) {
	h := &GridHolder{
		persistence: persistence,
		logger:      logger.With().Str("component", "grid").Logger(),
	}

	if persistence != nil {
		saved, err := persistence.LoadGrid()
		switch {
		case err == nil:
			def = saved
			h.logger.Info().Str("grid", saved.Name).Msg("restored persisted grid")
		case errors.Is(err, ErrNoGrid):
		default:
			return nil, fmt.Errorf("failed to load persisted grid: %w", err)
		}
	}

	grid, err := def.Build()
	if err != nil {
		return nil, err
	}
	h.def = def
	h.grid = grid
	return h, nil
}

// Current returns the grid commands are validated against
func (h *GridHolder) Current() *rover.Grid {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.grid
}

// Definition returns the definition the current grid was built from
func (h *GridHolder) Definition() *config.GridDefinition {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.def
}

// Replace validates def and swaps it in
func (h *GridHolder) Replace(def *config.GridDefinition) (*rover.Grid, error) {
	grid, err := def.Build()
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.def = def
	h.grid = grid
	h.mu.Unlock()

	if h.persistence != nil {
		if err := h.persistence.SaveGrid(def); err != nil {
			h.logger.Warn().Err(err).Str("grid", def.Name).Msg("failed to persist grid")
		}
	}

	h.logger.Info().
		Str("grid", def.Name).
		Str("dimensions", grid.Dimensions().String()).
		Int("obstacles", len(def.Obstacles)).
		Msg("grid replaced")
	return grid, nil
}
