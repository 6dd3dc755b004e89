package rover

import "sort"

// Grid is a bounded area with static obstacles. It never changes after NewGrid.
type Grid struct {
	dimensions GridDimensions
	obstacles  map[Coordinates]struct{}
}

// NewGrid builds a grid. Duplicate obstacles collapse into one.
func NewGrid(dimensions GridDimensions, obstacles ...Obstacle) *Grid {
	set := make(map[Coordinates]struct{}, len(obstacles))
	for _, o := range obstacles {
		set[o.At] = struct{}{}
	}
	return &Grid{
		dimensions: dimensions,
		obstacles:  set,
	}
}

// Dimensions returns the grid bounds
func (g *Grid) Dimensions() GridDimensions {
	return g.dimensions
}

// Obstacles returns the distinct obstacles ordered by y, then x
func (g *Grid) Obstacles() []Obstacle {
	result := make([]Obstacle, 0, len(g.obstacles))
	for c := range g.obstacles {
		result = append(result, ObstacleAt(c))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].At.Y != result[j].At.Y {
			return result[i].At.Y < result[j].At.Y
		}
		return result[i].At.X < result[j].At.X
	})
	return result
}

// IsBlocked reports whether an obstacle sits at c
func (g *Grid) IsBlocked(c Coordinates) bool {
	_, blocked := g.obstacles[c]
	return blocked
}

// ValidateMovement checks that c is inside the grid and free of obstacles.
// Bounds are checked first.
func (g *Grid) ValidateMovement(c Coordinates) error {
	if !g.dimensions.Contains(c) {
		return &PlacementError{Kind: ErrOutOfBounds, At: c, Dimensions: g.dimensions}
	}
	if g.IsBlocked(c) {
		return &PlacementError{Kind: ErrObstacleBlocked, At: c, Dimensions: g.dimensions}
	}
	return nil
}

// DeployRover validates c and returns a new rover there facing h
func (g *Grid) DeployRover(id string, c Coordinates, h Heading) (*Rover, error) {
	if err := g.ValidateMovement(c); err != nil {
		return nil, err
	}
	return Deploy(id, NewPosition(c, h)), nil
}
