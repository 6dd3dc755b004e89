package main

import (
	"strconv"
	"strings"

	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/service"
)

// minLegSteps is enough for one turn plus one move
const minLegSteps = 2

// Survey tracks which free cells the rover has covered and plans legs that
// reach the nearest uncovered ones.
type Survey struct {
	width, height int
	blocked       map[rover.Coordinates]bool
	visited       map[rover.Coordinates]bool
}

// NewSurvey builds a survey for the grid's known obstacles
func NewSurvey(grid *service.GridInfo) *Survey {
	s := &Survey{
		width:   grid.Width,
		height:  grid.Height,
		blocked: make(map[rover.Coordinates]bool, len(grid.Obstacles)),
		visited: make(map[rover.Coordinates]bool),
	}
	for _, o := range grid.Obstacles {
		s.blocked[o] = true
	}
	return s
}

func (s *Survey) free(c rover.Coordinates) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < s.width && c.Y < s.height && !s.blocked[c]
}

// Visit records that the rover has been at c
func (s *Survey) Visit(c rover.Coordinates) {
	s.visited[c] = true
}

// Block records an obstacle discovered while driving
func (s *Survey) Block(c rover.Coordinates) {
	s.blocked[c] = true
}

// Visited returns the number of distinct cells covered
func (s *Survey) Visited() int {
	return len(s.visited)
}

// Reachable counts the free cells connected to from, including from itself
func (s *Survey) Reachable(from rover.Coordinates) int {
	if !s.free(from) {
		return 0
	}
	seen := map[rover.Coordinates]bool{from: true}
	queue := []rover.Coordinates{from}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, n := range s.neighbors(c) {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return len(seen)
}

func (s *Survey) neighbors(c rover.Coordinates) []rover.Coordinates {
	result := make([]rover.Coordinates, 0, 4)
	for _, h := range rover.Headings() {
		dx, dy := h.MovementDelta(true)
		if n := c.Translate(dx, dy); s.free(n) {
			result = append(result, n)
		}
	}
	return result
}

// route returns the shortest path from start to the nearest free cell not in
// covered. The path excludes start; nil means everything reachable is covered.
func (s *Survey) route(start rover.Coordinates, covered map[rover.Coordinates]bool) []rover.Coordinates {
	parent := map[rover.Coordinates]rover.Coordinates{start: start}
	queue := []rover.Coordinates{start}

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		if c != start && !covered[c] {
			var path []rover.Coordinates
			for at := c; at != start; at = parent[at] {
				path = append(path, at)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}

		for _, n := range s.neighbors(c) {
			if _, seen := parent[n]; !seen {
				parent[n] = c
				queue = append(queue, n)
			}
		}
	}
	return nil
}

// Plan returns the next program from pos using at most maxSteps expanded
// steps, and the number of steps it expands to. An empty program means the
// survey is complete.
func (s *Survey) Plan(pos rover.Position, maxSteps int) (string, int) {
	if maxSteps < minLegSteps {
		maxSteps = minLegSteps
	}

	covered := make(map[rover.Coordinates]bool, len(s.visited))
	for c := range s.visited {
		covered[c] = true
	}

	var steps []byte
	heading := pos.Heading
	at := pos.Coordinates

	for {
		path := s.route(at, covered)
		if len(path) == 0 {
			break
		}

		for _, next := range path {
			letters, turned := stepTo(heading, at, next)
			if len(steps)+len(letters) > maxSteps {
				return compress(steps), len(steps)
			}
			steps = append(steps, letters...)
			heading, at = turned, next
			covered[next] = true
		}
	}
	return compress(steps), len(steps)
}

// stepTo returns the commands that move a rover facing h from one cell to an
// adjacent one, and the heading it ends with. Cells behind are reached by
// reversing rather than turning around.
func stepTo(h rover.Heading, from, to rover.Coordinates) (string, rover.Heading) {
	dx, dy := to.X-from.X, to.Y-from.Y

	if fx, fy := h.MovementDelta(true); dx == fx && dy == fy {
		return "F", h
	}
	if bx, by := h.MovementDelta(false); dx == bx && dy == by {
		return "B", h
	}
	right := h.RotateRight()
	if rx, ry := right.MovementDelta(true); dx == rx && dy == ry {
		return "RF", right
	}
	return "LF", h.RotateLeft()
}

// compress run-length encodes steps, e.g. "FFFRF" becomes "F3 R F"
func compress(steps []byte) string {
	var parts []string
	for i := 0; i < len(steps); {
		j := i
		for j < len(steps) && steps[j] == steps[i] {
			j++
		}
		part := string(steps[i])
		if n := j - i; n > 1 {
			part += strconv.Itoa(n)
		}
		parts = append(parts, part)
		i = j
	}
	return strings.Join(parts, " ")
}
