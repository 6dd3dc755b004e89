package service

import (
	"time"

	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/store"
)

// DeployRequest carries the deploy parameters. An empty RoverID gets a generated id.
type DeployRequest struct {
	RoverID   string `json:"roverId"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction"`
}

// RoverInfo provides information about a deployed rover
type RoverInfo struct {
	RoverID       string    `json:"roverId"`
	X             int       `json:"x"`
	Y             int       `json:"y"`
	Direction     string    `json:"direction"`
	DeployedAt    time.Time `json:"deployedAt"`
	LastCommandAt time.Time `json:"lastCommandAt"`
	Commands      int       `json:"commands"`
}

// CommandResult is the rover position after a move or rotate
type CommandResult struct {
	RoverID   string `json:"roverId"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction"`
}

// SequenceResult contains the result of a command program
type SequenceResult struct {
	RoverID        string `json:"roverId"`
	Program        string `json:"program"`
	RequestedSteps int    `json:"requestedSteps"`
	StepsExecuted  int    `json:"stepsExecuted"`
	Success        bool   `json:"success"`
	StopReasonCode string `json:"stopReasonCode,omitempty"` // out_of_bounds|obstacle_blocked|not_found|cancelled
	StoppedReason  string `json:"stoppedReason,omitempty"`
	StoppedOnStep  int    `json:"stoppedOnStep,omitempty"` // 1-based

	AttemptedTo *rover.Coordinates `json:"attemptedTo,omitempty"`

	Start CommandResult `json:"start"`
	End   CommandResult `json:"end"`
	Steps []StepInfo    `json:"steps"`
}

// StepInfo is a compact record of one executed step
type StepInfo struct {
	Idx     int            `json:"idx"`
	Command string         `json:"command"`
	From    rover.Position `json:"from"`
	To      rover.Position `json:"to"`
}

// HistoryOptions configures history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated command history
type HistoryResponse struct {
	RoverID     string               `json:"roverId"`
	Entries     []store.HistoryEntry `json:"entries"`
	Total       int                  `json:"total"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"pageSize"`
	TotalPages  int                  `json:"totalPages"`
	HasNext     bool                 `json:"hasNext"`
	HasPrevious bool                 `json:"hasPrevious"`
}

// GridInfo describes the current grid and the rovers on it
type GridInfo struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Obstacles   []rover.Coordinates `json:"obstacles"`
	Rovers      []CommandResult     `json:"rovers"`
}

// GridRequest replaces the current grid
type GridRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Obstacles   []rover.Coordinates `json:"obstacles"`
}

func resultFromPosition(id string, pos rover.Position) CommandResult {
	return CommandResult{
		RoverID:   id,
		X:         pos.Coordinates.X,
		Y:         pos.Coordinates.Y,
		Direction: pos.Heading.String(),
	}
}

func infoFromSnapshot(snap store.Snapshot) *RoverInfo {
	return &RoverInfo{
		RoverID:       snap.ID,
		X:             snap.Position.Coordinates.X,
		Y:             snap.Position.Coordinates.Y,
		Direction:     snap.Position.Heading.String(),
		DeployedAt:    snap.DeployedAt,
		LastCommandAt: snap.LastCommandAt,
		Commands:      snap.Commands,
	}
}
