package rover

import "fmt"

// Position pairs coordinates with a heading. Derivations return new values.
type Position struct {
	Coordinates Coordinates `json:"coordinates"`
	Heading     Heading     `json:"heading"`
}

// NewPosition returns the position at c facing h
func NewPosition(c Coordinates, h Heading) Position {
	return Position{Coordinates: c, Heading: h}
}

// WithCoordinates returns a copy of p at c, heading unchanged
func (p Position) WithCoordinates(c Coordinates) Position {
	return Position{Coordinates: c, Heading: p.Heading}
}

// WithHeading returns a copy of p facing h, coordinates unchanged
func (p Position) WithHeading(h Heading) Position {
	return Position{Coordinates: p.Coordinates, Heading: h}
}

// Equals reports whether both positions share coordinates and heading
func (p Position) Equals(other Position) bool {
	return p.Coordinates.Equals(other.Coordinates) && p.Heading == other.Heading
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d,%s)", p.Coordinates.X, p.Coordinates.Y, p.Heading)
}
