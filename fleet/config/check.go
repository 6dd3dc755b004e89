package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/rover-grid/fleet/rover"
)

// maxCheckCells bounds the connectivity scan
const maxCheckCells = 4 << 20

// ValidationResult captures the outcome of checking a single grid file.
// Errors make the file invalid; Info and Warnings are informational.
type ValidationResult struct {
	File     string      `json:"file"`
	Valid    bool        `json:"valid"`
	Errors   []string    `json:"errors,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Info     []string    `json:"info,omitempty"`
	Report   *GridReport `json:"report,omitempty"`
}

// GridReport describes the free space of a valid grid
type GridReport struct {
	Cells     int `json:"cells"`
	Obstacles int `json:"obstacles"`
	FreeCells int `json:"free_cells"`
	// Regions is the number of 4-connected free regions, 0 when skipped
	Regions int `json:"regions"`
	// Isolated lists free cells outside the largest region, capped at 10
	Isolated []rover.Coordinates `json:"isolated,omitempty"`
}

// Connected reports whether every free cell is reachable from every other
func (r *GridReport) Connected() bool {
	return r.Regions <= 1
}

// AnalyzeGrid counts free cells and labels connected regions
func AnalyzeGrid(def *GridDefinition) (*GridReport, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	cells := def.Width * def.Height
	blocked := make(map[rover.Coordinates]bool, len(def.Obstacles))
	for _, o := range def.Obstacles {
		blocked[o] = true
	}

	report := &GridReport{
		Cells:     cells,
		Obstacles: len(blocked),
		FreeCells: cells - len(blocked),
	}
	if cells > maxCheckCells || report.FreeCells == 0 {
		return report, nil
	}

	// region id per cell, 0 = unvisited or blocked
	region := make([]int, cells)
	index := func(c rover.Coordinates) int { return c.Y*def.Width + c.X }
	sizes := []int{0}

	for y := 0; y < def.Height; y++ {
		for x := 0; x < def.Width; x++ {
			start := rover.NewCoordinates(x, y)
			if blocked[start] || region[index(start)] != 0 {
				continue
			}

			id := len(sizes)
			sizes = append(sizes, 0)
			region[index(start)] = id
			queue := []rover.Coordinates{start}

			for len(queue) > 0 {
				current := queue[0]
				queue = queue[1:]
				sizes[id]++

				for _, h := range []rover.Heading{rover.North, rover.East, rover.South, rover.West} {
					next := current.Translate(h.MovementDelta(true))
					if next.X < 0 || next.Y < 0 || next.X >= def.Width || next.Y >= def.Height {
						continue
					}
					if blocked[next] || region[index(next)] != 0 {
						continue
					}
					region[index(next)] = id
					queue = append(queue, next)
				}
			}
		}
	}

	report.Regions = len(sizes) - 1
	if report.Regions > 1 {
		largest := 1
		for id := range sizes {
			if sizes[id] > sizes[largest] {
				largest = id
			}
		}
		for i, id := range region {
			if id != 0 && id != largest {
				report.Isolated = append(report.Isolated, rover.NewCoordinates(i%def.Width, i/def.Width))
				if len(report.Isolated) == 10 {
					break
				}
			}
		}
	}

	return report, nil
}

// ValidateGridFile parses and analyzes one grid file
func ValidateGridFile(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	def, err := ParseGridFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	report, err := AnalyzeGrid(def)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Report = report

	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", def.Name),
		fmt.Sprintf("✓ Grid: %dx%d", def.Width, def.Height),
		fmt.Sprintf("✓ Obstacles: %d", report.Obstacles),
		fmt.Sprintf("✓ Free cells: %d/%d", report.FreeCells, report.Cells),
	)
	if report.Obstacles != len(def.Obstacles) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d duplicate obstacles", len(def.Obstacles)-report.Obstacles))
	}

	switch {
	case report.FreeCells == 0:
		result.Warnings = append(result.Warnings, "No free cells: rovers cannot be deployed")
	case report.Regions == 0:
		result.Info = append(result.Info, "Connectivity: skipped, grid too large")
	case report.Connected():
		result.Info = append(result.Info, "✓ Connectivity: all free cells form one region")
	default:
		isolated := make([]string, 0, len(report.Isolated))
		for _, c := range report.Isolated {
			isolated = append(isolated, c.String())
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Free cells split into %d regions, e.g. %s", report.Regions, strings.Join(isolated, " ")))
	}

	return result
}

// ValidateGridDir checks every .json and .hcl file in dir, sorted by name
func ValidateGridDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read grid directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && isGridExtension(filepath.Ext(entry.Name())) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, name := range files {
		results = append(results, ValidateGridFile(filepath.Join(dir, name)))
	}
	return results, nil
}

// WriteReport prints results and reports whether all passed. With strict set,
// warnings count as failures.
func WriteReport(w io.Writer, results []ValidationResult, strict bool) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		ok := result.Valid && !(strict && len(result.Warnings) > 0)
		if ok {
			fmt.Fprintln(w, "✅ VALID")
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
		}

		for _, msg := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+msg)
		}
		for _, msg := range result.Warnings {
			fmt.Fprintln(w, "  ⚠ "+msg)
		}
		for _, msg := range result.Info {
			fmt.Fprintln(w, "  "+msg)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No grid files found")
	case allValid:
		fmt.Fprintln(w, "✅ All grids are valid!")
	default:
		fmt.Fprintln(w, "❌ Some grids have errors")
	}
	return allValid
}
