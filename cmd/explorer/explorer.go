package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/rover-grid/fleet/command"
	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/service"
	"github.com/wricardo/rover-grid/fleet/store"
)

// Explorer deploys a rover and drives it over every reachable free cell
type Explorer struct {
	client  *Client
	logger  zerolog.Logger
	legSize int
	delay   time.Duration
	maxLegs int
}

// Report summarizes a finished exploration
type Report struct {
	RoverID   string                `json:"roverId"`
	Legs      int                   `json:"legs"`
	Steps     int                   `json:"steps"`
	Visited   int                   `json:"visited"`
	Reachable int                   `json:"reachable"`
	Blocked   []rover.Coordinates   `json:"blocked,omitempty"`
	End       service.CommandResult `json:"end"`
}

// Complete reports whether every reachable cell was visited
func (r *Report) Complete() bool {
	return r.Visited >= r.Reachable
}

// NewExplorer creates an explorer. legSize bounds the steps sent per request
// and maxLegs, when positive, bounds the number of requests.
func NewExplorer(client *Client, logger zerolog.Logger, legSize, maxLegs int, delay time.Duration) *Explorer {
	if legSize <= 0 || legSize > command.MaxProgramSteps {
		legSize = command.MaxProgramSteps
	}
	return &Explorer{
		client:  client,
		logger:  logger,
		legSize: legSize,
		maxLegs: maxLegs,
		delay:   delay,
	}
}

func positionOf(r service.CommandResult) (rover.Position, error) {
	heading, err := rover.ParseHeading(r.Direction)
	if err != nil {
		return rover.Position{}, err
	}
	return rover.NewPosition(rover.NewCoordinates(r.X, r.Y), heading), nil
}

// Explore deploys the rover described by req and surveys the active grid
func (e *Explorer) Explore(ctx context.Context, req service.DeployRequest) (*Report, error) {
	grid, err := e.client.Grid(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get grid: %w", err)
	}
	survey := NewSurvey(grid)

	info, err := e.client.Deploy(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy: %w", err)
	}

	report := &Report{
		RoverID: info.RoverID,
		End:     service.CommandResult{RoverID: info.RoverID, X: info.X, Y: info.Y, Direction: info.Direction},
	}
	pos, err := positionOf(report.End)
	if err != nil {
		return nil, err
	}
	start := pos.Coordinates
	survey.Visit(start)

	e.logger.Info().
		Str("rover", info.RoverID).
		Str("grid", grid.Name).
		Int("reachable", survey.Reachable(start)).
		Msgf("Deployed at %s", pos)

	for e.maxLegs <= 0 || report.Legs < e.maxLegs {
		program, steps := survey.Plan(pos, e.legSize)
		if program == "" {
			break
		}

		result, err := e.client.Run(ctx, info.RoverID, program)
		if err != nil {
			return e.finish(report, survey, start), err
		}
		report.Legs++
		report.Steps += result.StepsExecuted
		report.End = result.End

		for _, step := range result.Steps {
			survey.Visit(step.To.Coordinates)
		}
		if pos, err = positionOf(result.End); err != nil {
			return e.finish(report, survey, start), err
		}

		e.logger.Debug().
			Int("leg", report.Legs).
			Int("planned", steps).
			Int("executed", result.StepsExecuted).
			Int("visited", survey.Visited()).
			Msgf("%s -> %s", program, pos)

		if !result.Success {
			if result.StopReasonCode != store.OutcomeObstacleBlocked || result.AttemptedTo == nil {
				return e.finish(report, survey, start), fmt.Errorf("leg %d stopped: %s", report.Legs, result.StoppedReason)
			}
			e.logger.Warn().Msgf("Unexpected obstacle at %s", *result.AttemptedTo)
			survey.Block(*result.AttemptedTo)
			report.Blocked = append(report.Blocked, *result.AttemptedTo)
		}

		if e.delay > 0 {
			select {
			case <-ctx.Done():
				return e.finish(report, survey, start), ctx.Err()
			case <-time.After(e.delay):
			}
		}
	}

	return e.finish(report, survey, start), nil
}

func (e *Explorer) finish(report *Report, survey *Survey, start rover.Coordinates) *Report {
	report.Visited = survey.Visited()
	report.Reachable = survey.Reachable(start)
	return report
}
