package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/rover-grid/fleet/command"
	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/store"
)

// Dependencies wires a RoverService. Notifier may be nil.
type Dependencies struct {
	Rovers   RoverStore
	Grid     GridHolder
	Catalog  GridCatalog
	Notifier Notifier
	Logger   zerolog.Logger
}

// roverServiceImpl implements the RoverService interface
type roverServiceImpl struct {
	rovers   RoverStore
	grid     GridHolder
	catalog  GridCatalog
	notifier Notifier
	metrics  *metrics
	logger   zerolog.Logger
}

// NewRoverService creates a new rover service instance
func NewRoverService(deps Dependencies) RoverService {
	logger := deps.Logger.With().Str("component", "service").Logger()

	m, err := newMetrics()
	if err != nil {
		logger.Warn().Err(err).Msg("metrics disabled")
		m = nil
	}

	return &roverServiceImpl{
		rovers:   deps.Rovers,
		grid:     deps.Grid,
		catalog:  deps.Catalog,
		notifier: deps.Notifier,
		metrics:  m,
		logger:   logger,
	}
}

// DeployRover validates the target cell and stores the rover
func (s *roverServiceImpl) DeployRover(ctx context.Context, req DeployRequest) (*RoverInfo, error) {
	heading, err := rover.ParseHeading(req.Direction)
	if err != nil {
		return nil, err
	}

	id := req.RoverID
	if id == "" {
		id = store.NewID()
	}

	target := rover.NewCoordinates(req.X, req.Y)
	r, err := s.grid.Current().DeployRover(id, target, heading)
	if err != nil {
		s.metrics.command(ctx, store.CommandDeploy, store.Outcome(err))
		s.logger.Info().
			Str("rover_id", id).
			Str("command", store.CommandDeploy).
			Stringer("to", target).
			Str("outcome", store.Outcome(err)).
			Msg("deploy rejected")
		return nil, err
	}

	snap, replaced := s.rovers.Put(r)
	if !replaced {
		s.metrics.deployedDelta(ctx, 1)
	}
	s.metrics.command(ctx, store.CommandDeploy, store.OutcomeOK)
	s.logger.Info().
		Str("rover_id", id).
		Str("command", store.CommandDeploy).
		Stringer("to", snap.Position).
		Bool("replaced", replaced).
		Str("outcome", store.OutcomeOK).
		Msg("rover deployed")

	s.notify(id, EventDeployed, snap.Position)
	return infoFromSnapshot(snap), nil
}

// MoveRover moves the rover one cell forward or backward
func (s *roverServiceImpl) MoveRover(ctx context.Context, roverID string, cmd rover.MoveCommand) (*CommandResult, error) {
	snap, err := s.apply(ctx, roverID, cmd.String(), func(r *rover.Rover) error {
		return r.Move(cmd, s.grid.Current())
	})
	if err != nil {
		return nil, err
	}

	s.notify(roverID, EventMoved, snap.Position)
	result := resultFromPosition(snap.ID, snap.Position)
	return &result, nil
}

// RotateRover turns the rover 90 degrees in place
func (s *roverServiceImpl) RotateRover(ctx context.Context, roverID string, cmd rover.RotateCommand) (*CommandResult, error) {
	snap, err := s.apply(ctx, roverID, cmd.String(), func(r *rover.Rover) error {
		r.Rotate(cmd)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(roverID, EventRotated, snap.Position)
	result := resultFromPosition(snap.ID, snap.Position)
	return &result, nil
}

// ExecuteCommands runs a program one step at a time and stops at the first
// failure. Steps before the failure stay committed.
func (s *roverServiceImpl) ExecuteCommands(ctx context.Context, roverID, program string) (*SequenceResult, error) {
	parsed, err := command.Parse(program)
	if err != nil {
		return nil, err
	}
	instructions, err := parsed.Expand()
	if err != nil {
		return nil, err
	}

	start, err := s.rovers.Get(roverID)
	if err != nil {
		return nil, err
	}

	result := &SequenceResult{
		RoverID:        roverID,
		Program:        parsed.String(),
		RequestedSteps: len(instructions),
		Success:        true,
		Start:          resultFromPosition(roverID, start.Position),
		End:            resultFromPosition(roverID, start.Position),
		Steps:          make([]StepInfo, 0, len(instructions)),
	}

	for i, inst := range instructions {
		if err := ctx.Err(); err != nil {
			result.stop(i, "cancelled", err)
			break
		}

		var from rover.Position
		snap, err := s.apply(ctx, roverID, inst.String(), func(r *rover.Rover) error {
			from = r.Position()
			return inst.Apply(r, s.grid.Current())
		})
		if err != nil {
			result.stop(i, store.Outcome(err), err)
			var placement *rover.PlacementError
			if errors.As(err, &placement) {
				at := placement.At
				result.AttemptedTo = &at
			}
			break
		}

		result.StepsExecuted++
		result.End = resultFromPosition(roverID, snap.Position)
		result.Steps = append(result.Steps, StepInfo{
			Idx:     i + 1,
			Command: inst.String(),
			From:    from,
			To:      snap.Position,
		})
	}

	if result.StepsExecuted > 0 {
		last := result.Steps[len(result.Steps)-1].To
		s.notify(roverID, EventMoved, last)
	}
	return result, nil
}

func (r *SequenceResult) stop(idx int, code string, err error) {
	r.Success = false
	r.StopReasonCode = code
	r.StoppedReason = fmt.Sprintf("step %d: %v", idx+1, err)
	r.StoppedOnStep = idx + 1
}

// GetRover returns the rover's current state
func (s *roverServiceImpl) GetRover(ctx context.Context, roverID string) (*RoverInfo, error) {
	snap, err := s.rovers.Get(roverID)
	if err != nil {
		return nil, err
	}
	return infoFromSnapshot(snap), nil
}

// ListRovers returns all deployed rovers, oldest deployment first
func (s *roverServiceImpl) ListRovers(ctx context.Context) ([]*RoverInfo, error) {
	snaps := s.rovers.List()
	result := make([]*RoverInfo, 0, len(snaps))
	for _, snap := range snaps {
		result = append(result, infoFromSnapshot(snap))
	}
	return result, nil
}

// DeleteRover removes a rover
func (s *roverServiceImpl) DeleteRover(ctx context.Context, roverID string) error {
	snap, err := s.rovers.Delete(roverID)
	if err != nil {
		return err
	}

	s.metrics.deployedDelta(ctx, -1)
	s.logger.Info().Str("rover_id", roverID).Msg("rover deleted")
	s.notify(roverID, EventDeleted, snap.Position)
	return nil
}

// GetHistory returns paginated command history
func (s *roverServiceImpl) GetHistory(ctx context.Context, roverID string, opts HistoryOptions) (*HistoryResponse, error) {
	history, err := s.rovers.History(roverID)
	if err != nil {
		return nil, err
	}
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	entries := []store.HistoryEntry{}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			entries = append(entries, history[i])
		}
	} else if start < total {
		entries = append(entries, history[start:end]...)
	}

	return &HistoryResponse{
		RoverID:     roverID,
		Entries:     entries,
		Total:       total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ExpireIdle removes rovers without commands for maxAge
func (s *roverServiceImpl) ExpireIdle(ctx context.Context, maxAge time.Duration) ([]string, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("idle age must be positive, got %s", maxAge)
	}

	removed := s.rovers.CleanupIdle(maxAge)
	ids := make([]string, 0, len(removed))
	for _, snap := range removed {
		s.metrics.deployedDelta(ctx, -1)
		s.notify(snap.ID, EventDeleted, snap.Position)
		ids = append(ids, snap.ID)
	}
	return ids, nil
}

// GetGrid describes the current grid and every rover on it
func (s *roverServiceImpl) GetGrid(ctx context.Context) (*GridInfo, error) {
	return s.gridInfo(s.grid.Definition()), nil
}

// ReplaceGrid swaps in a grid built from req. Deployed rovers stay where they are.
func (s *roverServiceImpl) ReplaceGrid(ctx context.Context, req GridRequest) (*GridInfo, error) {
	def := &config.GridDefinition{
		Name:        req.Name,
		Description: req.Description,
		Width:       req.Width,
		Height:      req.Height,
		Obstacles:   req.Obstacles,
	}
	if def.Name == "" {
		def.Name = "custom"
	}
	if def.Obstacles == nil {
		def.Obstacles = []rover.Coordinates{}
	}

	if _, err := s.grid.Replace(def); err != nil {
		return nil, err
	}
	return s.gridInfo(def), nil
}

// LoadGrid replaces the current grid with a catalog entry
func (s *roverServiceImpl) LoadGrid(ctx context.Context, name string) (*GridInfo, error) {
	def, err := s.catalog.LoadGrid(name)
	if err != nil {
		if errors.Is(err, config.ErrGridNotFound) {
			return nil, s.gridNotFound(name)
		}
		return nil, fmt.Errorf("failed to load grid %s: %w", name, err)
	}

	if _, err := s.grid.Replace(def); err != nil {
		return nil, err
	}
	return s.gridInfo(def), nil
}

// ListGrids returns the grid catalog
func (s *roverServiceImpl) ListGrids(ctx context.Context) ([]*config.GridSummary, error) {
	return s.catalog.ListGrids()
}

// apply runs one command through the store and records its outcome
func (s *roverServiceImpl) apply(ctx context.Context, roverID, cmd string, fn func(*rover.Rover) error) (store.Snapshot, error) {
	var from rover.Position
	snap, err := s.rovers.Update(roverID, cmd, func(r *rover.Rover) error {
		from = r.Position()
		return fn(r)
	})

	outcome := store.Outcome(err)
	s.metrics.command(ctx, cmd, outcome)

	event := s.logger.Debug()
	if err != nil {
		event = s.logger.Info().Err(err)
	}
	event.
		Str("rover_id", roverID).
		Str("command", cmd).
		Stringer("from", from).
		Stringer("to", snap.Position).
		Str("outcome", outcome).
		Msg("command")

	return snap, err
}

func (s *roverServiceImpl) notify(roverID, event string, pos rover.Position) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Event{RoverID: roverID, Event: event, Position: pos})
}

func (s *roverServiceImpl) gridInfo(def *config.GridDefinition) *GridInfo {
	snaps := s.rovers.List()
	rovers := make([]CommandResult, 0, len(snaps))
	for _, snap := range snaps {
		rovers = append(rovers, resultFromPosition(snap.ID, snap.Position))
	}

	obstacles := def.Obstacles
	if obstacles == nil {
		obstacles = []rover.Coordinates{}
	}

	return &GridInfo{
		Name:        def.Name,
		Description: def.Description,
		Width:       def.Width,
		Height:      def.Height,
		Obstacles:   obstacles,
		Rovers:      rovers,
	}
}

// gridNotFound lists the available grids in the error
func (s *roverServiceImpl) gridNotFound(name string) error {
	grids, err := s.catalog.ListGrids()
	if err != nil || len(grids) == 0 {
		return fmt.Errorf("%w: %q. Use /api/grids to list available grids", config.ErrGridNotFound, name)
	}
	ids := make([]string, 0, len(grids))
	for _, g := range grids {
		ids = append(ids, g.GridID)
	}
	return fmt.Errorf("%w: %q. Available grids: %v", config.ErrGridNotFound, name, ids)
}
