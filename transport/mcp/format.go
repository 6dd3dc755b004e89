package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/service"
)

// maxMapCells keeps huge grids from flooding the tool output
const maxMapCells = 80 * 80

// Map glyphs
const (
	cellEmpty    = '.'
	cellObstacle = '#'
)

func headingGlyph(direction string) rune {
	switch direction {
	case "NORTH":
		return '^'
	case "EAST":
		return '>'
	case "SOUTH":
		return 'v'
	case "WEST":
		return '<'
	}
	return '?'
}

// formatMap draws the grid north-up: the first line is y = height-1.
// Rovers outside the grid (after a shrink) are not drawn.
func formatMap(grid *service.GridInfo) string {
	if grid.Width <= 0 || grid.Height <= 0 {
		return "(empty grid)\n"
	}
	if grid.Width*grid.Height > maxMapCells {
		return fmt.Sprintf("(map omitted: %dx%d grid is too large to draw)\n", grid.Width, grid.Height)
	}

	cells := make([][]rune, grid.Height)
	for y := range cells {
		cells[y] = []rune(strings.Repeat(string(cellEmpty), grid.Width))
	}

	inside := func(x, y int) bool {
		return x >= 0 && x < grid.Width && y >= 0 && y < grid.Height
	}
	for _, o := range grid.Obstacles {
		if inside(o.X, o.Y) {
			cells[o.Y][o.X] = cellObstacle
		}
	}
	for _, r := range grid.Rovers {
		if inside(r.X, r.Y) {
			cells[r.Y][r.X] = headingGlyph(r.Direction)
		}
	}

	var b strings.Builder
	for y := grid.Height - 1; y >= 0; y-- {
		b.WriteString(string(cells[y]))
		b.WriteString("\n")
	}
	return b.String()
}

func formatGridInfo(grid *service.GridInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grid: %s (%dx%d) • Obstacles: %d • Rovers: %d\n",
		grid.Name, grid.Width, grid.Height, len(grid.Obstacles), len(grid.Rovers))
	if grid.Description != "" {
		b.WriteString(grid.Description + "\n")
	}
	b.WriteString("\n")
	b.WriteString(formatMap(grid))

	if len(grid.Rovers) > 0 {
		b.WriteString("\nRovers:\n")
		for _, r := range grid.Rovers {
			fmt.Fprintf(&b, "- %s at (%d,%d) facing %s\n", r.RoverID, r.X, r.Y, r.Direction)
		}
	}
	return b.String()
}

func formatGridList(grids []config.GridSummary) string {
	if len(grids) == 0 {
		return "No grids available\n"
	}

	var b strings.Builder
	b.WriteString("Available Grids:\n\n")
	for _, g := range grids {
		fmt.Fprintf(&b, "• %s (%s)\n  Grid: %dx%d, Obstacles: %d\n", g.GridID, g.Name, g.Width, g.Height, g.Obstacles)
		if g.Description != "" {
			fmt.Fprintf(&b, "  %s\n", g.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatRoverInfo(info *service.RoverInfo) string {
	return fmt.Sprintf("Rover: %s\nPosition: (%d,%d) facing %s\nCommands: %d\nDeployed: %s\nLast command: %s\n",
		info.RoverID, info.X, info.Y, info.Direction, info.Commands,
		info.DeployedAt.Format("2006-01-02 15:04:05"),
		info.LastCommandAt.Format("2006-01-02 15:04:05"))
}

func formatRoverList(rovers []service.RoverInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deployed Rovers (%d):\n\n", len(rovers))
	for _, r := range rovers {
		fmt.Fprintf(&b, "- %s %c (%d,%d) %s, %d commands\n",
			r.RoverID, headingGlyph(r.Direction), r.X, r.Y, r.Direction, r.Commands)
	}
	return b.String()
}

func formatCommandResult(command string, result *service.CommandResult) string {
	return fmt.Sprintf("✓ %s: %s now at (%d,%d) facing %s\n",
		strings.ToUpper(command), result.RoverID, result.X, result.Y, result.Direction)
}

func formatSequenceResult(result *service.SequenceResult) string {
	var b strings.Builder

	status := "✓"
	if !result.Success {
		status = "✗"
	}
	fmt.Fprintf(&b, "%s Executed %d/%d steps of %q\n", status, result.StepsExecuted, result.RequestedSteps, result.Program)
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s (%s)\n", result.StoppedReason, result.StopReasonCode)
	}
	if result.AttemptedTo != nil {
		fmt.Fprintf(&b, "Blocked: attempted %s\n", result.AttemptedTo)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, s := range result.Steps {
			fmt.Fprintf(&b, "%d. %s %s→%s\n", s.Idx, s.Command, s.From, s.To)
		}
	}

	fmt.Fprintf(&b, "\nStart: (%d,%d) %s\nEnd:   (%d,%d) %s\n",
		result.Start.X, result.Start.Y, result.Start.Direction,
		result.End.X, result.End.Y, result.End.Direction)
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command History for %s (Page %d/%d) • Total: %d\n\n",
		history.RoverID, history.Page, history.TotalPages, history.Total)

	if len(history.Entries) == 0 {
		b.WriteString("(no entries on this page)\n")
		return b.String()
	}

	for _, e := range history.Entries {
		status := "✓"
		if !e.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s %s %s→%s", e.Seq, e.Command, status, e.From, e.To)
		if e.Error != "" {
			fmt.Fprintf(&b, " [%s]", e.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}
