package rover

import (
	"fmt"
	"strings"
)

// Heading is one of the four cardinal directions a rover can face
type Heading int

const (
	North Heading = iota
	East
	South
	West
)

// headingCount is the period of the rotation cycle
const headingCount = 4

var headingNames = [headingCount]string{"NORTH", "EAST", "SOUTH", "WEST"}

// unit movement per heading, indexed by Heading
var headingDeltas = [headingCount]struct{ dx, dy int }{
	{0, 1},  // North
	{1, 0},  // East
	{0, -1}, // South
	{-1, 0}, // West
}

// Headings returns all headings in clockwise order starting at North
func Headings() []Heading {
	return []Heading{North, East, South, West}
}

// ParseHeading converts a heading name (NORTH, north, N, ...) into a Heading
func ParseHeading(s string) (Heading, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORTH", "N":
		return North, nil
	case "EAST", "E":
		return East, nil
	case "SOUTH", "S":
		return South, nil
	case "WEST", "W":
		return West, nil
	}
	return North, fmt.Errorf("%w: %q", ErrInvalidHeading, s)
}

// Valid reports whether h is one of the four cardinal headings
func (h Heading) Valid() bool {
	return h >= North && h <= West
}

// RotateLeft returns the heading 90 degrees counter-clockwise
func (h Heading) RotateLeft() Heading {
	return (h + headingCount - 1) % headingCount
}

// RotateRight returns the heading 90 degrees clockwise
func (h Heading) RotateRight() Heading {
	return (h + 1) % headingCount
}

// MovementDelta returns the unit step for this heading, negated when moving backward
func (h Heading) MovementDelta(forward bool) (dx, dy int) {
	if !h.Valid() {
		return 0, 0
	}
	d := headingDeltas[h]
	if forward {
		return d.dx, d.dy
	}
	return -d.dx, -d.dy
}

func (h Heading) String() string {
	if !h.Valid() {
		return fmt.Sprintf("Heading(%d)", int(h))
	}
	return headingNames[h]
}

// MarshalText encodes the heading by name
func (h Heading) MarshalText() ([]byte, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHeading, int(h))
	}
	return []byte(headingNames[h]), nil
}

// UnmarshalText decodes a heading name
func (h *Heading) UnmarshalText(text []byte) error {
	parsed, err := ParseHeading(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
