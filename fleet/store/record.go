package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/rover-grid/fleet/rover"
)

// MaxHistory is the number of history entries kept per rover
const MaxHistory = 1000

// CommandDeploy is the history command recorded for a deployment
const CommandDeploy = "DEPLOY"

// Outcome labels shared by history entries, logs and metrics
const (
	OutcomeOK              = "ok"
	OutcomeNotFound        = "not_found"
	OutcomeOutOfBounds     = "out_of_bounds"
	OutcomeObstacleBlocked = "obstacle_blocked"
	OutcomeError           = "error"
)

// HistoryEntry records one command attempt
type HistoryEntry struct {
	Seq       int            `json:"seq"`
	Command   string         `json:"command"`
	From      rover.Position `json:"from"`
	To        rover.Position `json:"to"`
	Success   bool           `json:"success"`
	Outcome   string         `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Record is a deployed rover and its bookkeeping
type Record struct {
	ID            string
	Rover         *rover.Rover
	DeployedAt    time.Time
	LastCommandAt time.Time
	History       []HistoryEntry

	commands int
	retired  bool
	mu       sync.Mutex
}

// Snapshot is a consistent copy of a record taken under its lock
type Snapshot struct {
	ID            string         `json:"id"`
	Position      rover.Position `json:"position"`
	DeployedAt    time.Time      `json:"deployed_at"`
	LastCommandAt time.Time      `json:"last_command_at"`
	Commands      int            `json:"commands"`
}

// NewID returns a fresh rover id
func NewID() string {
	return uuid.NewString()
}

// Outcome classifies a command error
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, rover.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, rover.ErrOutOfBounds):
		return OutcomeOutOfBounds
	case errors.Is(err, rover.ErrObstacleBlocked):
		return OutcomeObstacleBlocked
	default:
		return OutcomeError
	}
}

func newRecord(r *rover.Rover, now time.Time) *Record {
	rec := &Record{
		ID:            r.ID(),
		Rover:         r,
		DeployedAt:    now,
		LastCommandAt: now,
	}
	rec.appendHistory(CommandDeploy, r.Position(), r.Position(), nil, now)
	return rec
}

func recordFromPersisted(data *PersistedRover) *Record {
	return &Record{
		ID:            data.ID,
		Rover:         rover.Deploy(data.ID, data.Position),
		DeployedAt:    data.DeployedAt,
		LastCommandAt: data.LastCommandAt,
		History:       data.History,
		commands:      data.Commands,
	}
}

// appendHistory adds an entry and trims to MaxHistory. Caller holds r.mu.
func (r *Record) appendHistory(command string, from, to rover.Position, err error, now time.Time) {
	r.commands++
	entry := HistoryEntry{
		Seq:       r.commands,
		Command:   command,
		From:      from,
		To:        to,
		Success:   err == nil,
		Outcome:   Outcome(err),
		Timestamp: now,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	r.History = append(r.History, entry)
	if over := len(r.History) - MaxHistory; over > 0 {
		r.History = append(r.History[:0:0], r.History[over:]...)
	}
}

// snapshot copies the public state. Caller holds r.mu.
func (r *Record) snapshot() Snapshot {
	return Snapshot{
		ID:            r.ID,
		Position:      r.Rover.Position(),
		DeployedAt:    r.DeployedAt,
		LastCommandAt: r.LastCommandAt,
		Commands:      r.commands,
	}
}

// persisted builds the storage form. Caller holds r.mu.
func (r *Record) persisted() *PersistedRover {
	history := make([]HistoryEntry, len(r.History))
	copy(history, r.History)
	return &PersistedRover{
		ID:            r.ID,
		Position:      r.Rover.Position(),
		DeployedAt:    r.DeployedAt,
		LastCommandAt: r.LastCommandAt,
		Commands:      r.commands,
		History:       history,
	}
}
