package rover

import "fmt"

// Coordinates is an (x, y) cell on the grid. X grows east, Y grows north.
type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NewCoordinates returns the coordinates (x, y)
func NewCoordinates(x, y int) Coordinates {
	return Coordinates{X: x, Y: y}
}

// Equals reports whether both coordinates name the same cell
func (c Coordinates) Equals(other Coordinates) bool {
	return c.X == other.X && c.Y == other.Y
}

// Translate returns the coordinates shifted by (dx, dy)
func (c Coordinates) Translate(dx, dy int) Coordinates {
	return Coordinates{X: c.X + dx, Y: c.Y + dy}
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}
