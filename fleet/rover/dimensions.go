package rover

import "fmt"

// GridDimensions are the width and height of a grid. Both are strictly positive.
type GridDimensions struct {
	width  int
	height int
}

// NewGridDimensions validates and returns grid dimensions
func NewGridDimensions(width, height int) (GridDimensions, error) {
	if width <= 0 || height <= 0 {
		return GridDimensions{}, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	return GridDimensions{width: width, height: height}, nil
}

// Width returns the number of columns
func (d GridDimensions) Width() int {
	return d.width
}

// Height returns the number of rows
func (d GridDimensions) Height() int {
	return d.height
}

// Contains reports whether c lies in [0,width) x [0,height)
func (d GridDimensions) Contains(c Coordinates) bool {
	return c.X >= 0 && c.X < d.width && c.Y >= 0 && c.Y < d.height
}

// Cells returns width*height
func (d GridDimensions) Cells() int {
	return d.width * d.height
}

func (d GridDimensions) String() string {
	return fmt.Sprintf("%dx%d", d.width, d.height)
}
