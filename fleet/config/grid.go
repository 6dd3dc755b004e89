package config

import (
	"errors"
	"fmt"

	"github.com/wricardo/rover-grid/fleet/rover"
)

var (
	ErrGridNotFound = errors.New("grid not found")
	ErrInvalidGrid  = errors.New("invalid grid")
)

// Default grid size used when no grid file is configured
const (
	DefaultGridName   = "default"
	DefaultGridWidth  = 10
	DefaultGridHeight = 10
)

// GridDefinition is the on-disk description of a grid
type GridDefinition struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Obstacles   []rover.Coordinates `json:"obstacles"`
}

// GridSummary describes a grid file in the catalog
type GridSummary struct {
	Filename    string `json:"filename"`
	GridID      string `json:"grid_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Obstacles   int    `json:"obstacles"`
}

// DefaultGrid returns the built-in 10x10 grid with no obstacles
func DefaultGrid() *GridDefinition {
	return &GridDefinition{
		Name:        DefaultGridName,
		Description: "Open 10x10 plain",
		Width:       DefaultGridWidth,
		Height:      DefaultGridHeight,
		Obstacles:   []rover.Coordinates{},
	}
}

// Validate checks the dimensions and that every obstacle lies inside them
func (d *GridDefinition) Validate() error {
	dims, err := rover.NewGridDimensions(d.Width, d.Height)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	for _, o := range d.Obstacles {
		if !dims.Contains(o) {
			return fmt.Errorf("%w: obstacle %s outside %s grid", ErrInvalidGrid, o, dims)
		}
	}
	return nil
}

// Build validates the definition and returns the immutable grid
func (d *GridDefinition) Build() (*rover.Grid, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	dims, _ := rover.NewGridDimensions(d.Width, d.Height)

	obstacles := make([]rover.Obstacle, 0, len(d.Obstacles))
	for _, c := range d.Obstacles {
		obstacles = append(obstacles, rover.ObstacleAt(c))
	}
	return rover.NewGrid(dims, obstacles...), nil
}

// FromGrid converts a grid back into a definition
func FromGrid(name string, grid *rover.Grid) *GridDefinition {
	obstacles := grid.Obstacles()
	coords := make([]rover.Coordinates, 0, len(obstacles))
	for _, o := range obstacles {
		coords = append(coords, o.At)
	}
	return &GridDefinition{
		Name:      name,
		Width:     grid.Dimensions().Width(),
		Height:    grid.Dimensions().Height(),
		Obstacles: coords,
	}
}
