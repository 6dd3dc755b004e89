// Command explorer deploys a rover on a running server and drives it until it
// has visited every free cell reachable from its landing site.
//
// Legs are planned locally with a breadth-first search to the nearest
// unvisited cell and sent as command programs, so one request covers many
// cells. Obstacles found on the way are added to the map and the tour is
// replanned around them.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/rover-grid/fleet/command"
	"github.com/wricardo/rover-grid/fleet/service"
	"github.com/wricardo/rover-grid/logging"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "explorer",
		Usage: "Survey a grid with a rover through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Rover server URL", Sources: cli.EnvVars("ROVER_URL")},
			&cli.StringFlag{Name: "rover", Usage: "Rover id (generated by the server when empty)"},
			&cli.IntFlag{Name: "x", Usage: "Landing x coordinate"},
			&cli.IntFlag{Name: "y", Usage: "Landing y coordinate"},
			&cli.StringFlag{Name: "direction", Value: "NORTH", Usage: "Landing heading"},
			&cli.StringFlag{Name: "grid", Usage: "Load this catalog grid before deploying"},
			&cli.IntFlag{Name: "leg-size", Value: command.MaxProgramSteps, Usage: "Maximum steps sent per request"},
			&cli.IntFlag{Name: "max-legs", Usage: "Stop after this many requests (0 = until done)"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between legs, e.g. 200ms"},
			&cli.BoolFlag{Name: "cleanup", Usage: "Delete the rover when finished"},
			&cli.BoolFlag{Name: "json", Usage: "Print the final report as JSON"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := "info"
	if cmd.Bool("v") {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: "console"})
	if err != nil {
		return err
	}

	client := NewClient(cmd.String("url"))
	logger.Info().Msgf("Connecting to rover server at %s", cmd.String("url"))

	if name := cmd.String("grid"); name != "" {
		grid, err := client.LoadGrid(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to load grid: %w", err)
		}
		logger.Info().Msgf("Loaded grid %s (%dx%d)", grid.Name, grid.Width, grid.Height)
	}

	explorer := NewExplorer(client, logger, int(cmd.Int("leg-size")), int(cmd.Int("max-legs")), cmd.Duration("delay"))
	report, exploreErr := explorer.Explore(ctx, service.DeployRequest{
		RoverID:   cmd.String("rover"),
		X:         int(cmd.Int("x")),
		Y:         int(cmd.Int("y")),
		Direction: cmd.String("direction"),
	})
	if report == nil {
		return exploreErr
	}

	if cmd.Bool("cleanup") {
		// the run context may already be cancelled
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Delete(cleanupCtx, report.RoverID); err != nil {
			logger.Warn().Err(err).Msg("Failed to delete rover")
		}
	}

	if err := printReport(cmd, logger, report); err != nil {
		return err
	}
	if exploreErr != nil {
		return exploreErr
	}
	if !report.Complete() {
		return fmt.Errorf("visited %d of %d reachable cells", report.Visited, report.Reachable)
	}
	return nil
}

func printReport(cmd *cli.Command, logger zerolog.Logger, report *Report) error {
	if cmd.Bool("json") {
		out := cmd.Root().Writer
		if out == nil {
			out = os.Stdout
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	logger.Info().
		Str("rover", report.RoverID).
		Int("legs", report.Legs).
		Int("steps", report.Steps).
		Int("blocked", len(report.Blocked)).
		Msgf("Visited %d/%d reachable cells, ended at (%d,%d) facing %s",
			report.Visited, report.Reachable, report.End.X, report.End.Y, report.End.Direction)
	return nil
}
