package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/rover-grid/fleet/rover"
)

// NotFoundError reports an unknown rover id. It unwraps to rover.ErrNotFound.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("rover with id %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return rover.ErrNotFound
}

// Manager handles the rover lifecycle
type Manager struct {
	records     map[string]*Record
	persistence Persistence
	logger      zerolog.Logger
	now         func() time.Time
	mu          sync.RWMutex
}

// NewManager creates an in-memory rover manager
func NewManager(logger zerolog.Logger) *Manager {
	return NewManagerWithPersistence(nil, logger)
}

// NewManagerWithPersistence creates a rover manager that writes through to persistence
func NewManagerWithPersistence(persistence Persistence, logger zerolog.Logger) *Manager {
	return &Manager{
		records:     make(map[string]*Record),
		persistence: persistence,
		logger:      logger.With().Str("component", "store").Logger(),
		now:         time.Now,
	}
}

// Put stores a freshly deployed rover and reports whether it replaced one.
// An existing rover with the same id is replaced once its in-flight command,
// if any, has finished.
func (m *Manager) Put(r *rover.Rover) (Snapshot, bool) {
	rec := newRecord(r, m.now())

	// a rover that is only persisted counts as deployed too
	old, err := m.lookup(rec.ID)
	if err != nil {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			m.logger.Warn().Err(err).Str("rover_id", rec.ID).Msg("failed to check persisted rover")
		}
		old = nil
	}

	if old != nil {
		old.mu.Lock()
		old.retired = true
		old.mu.Unlock()
		m.logger.Info().Str("rover_id", rec.ID).Msg("replacing deployed rover")
	}

	snap := rec.snapshot()

	m.mu.Lock()
	m.records[rec.ID] = rec
	m.save(rec)
	m.mu.Unlock()

	return snap, old != nil
}

// Get returns a snapshot of the rover, loading it from persistence when needed
func (m *Manager) Get(id string) (Snapshot, error) {
	rec, err := m.acquire(id)
	if err != nil {
		return Snapshot{}, err
	}
	defer rec.mu.Unlock()
	return rec.snapshot(), nil
}

// Rover returns a copy of the stored rover
func (m *Manager) Rover(id string) (*rover.Rover, error) {
	rec, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer rec.mu.Unlock()
	return rover.Deploy(rec.ID, rec.Rover.Position()), nil
}

// List returns snapshots of all rovers in memory, oldest deployment first
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	records := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	m.mu.RUnlock()

	result := make([]Snapshot, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		if !rec.retired {
			result = append(result, rec.snapshot())
		}
		rec.mu.Unlock()
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].DeployedAt.Equal(result[j].DeployedAt) {
			return result[i].DeployedAt.Before(result[j].DeployedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Update runs fn against the rover while holding the record lock. Every
// attempt is appended to the history and written through to persistence.
// fn must leave the rover untouched when it returns an error.
func (m *Manager) Update(id, command string, fn func(*rover.Rover) error) (Snapshot, error) {
	rec, err := m.acquire(id)
	if err != nil {
		return Snapshot{}, err
	}
	defer rec.mu.Unlock()

	now := m.now()
	from := rec.Rover.Position()
	cmdErr := fn(rec.Rover)
	to := rec.Rover.Position()

	rec.LastCommandAt = now
	rec.appendHistory(command, from, to, cmdErr, now)
	m.save(rec)

	return rec.snapshot(), cmdErr
}

// History returns a copy of the rover's command history, oldest first
func (m *Manager) History(id string) ([]HistoryEntry, error) {
	rec, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer rec.mu.Unlock()

	history := make([]HistoryEntry, len(rec.History))
	copy(history, rec.History)
	return history, nil
}

// Delete removes a rover from memory and persistence
func (m *Manager) Delete(id string) (Snapshot, error) {
	snap, deleted, err := m.deleteIf(id, func(*Record) bool { return true })
	if err != nil {
		return Snapshot{}, err
	}
	if !deleted {
		return Snapshot{}, &NotFoundError{ID: id}
	}
	return snap, nil
}

// CleanupIdle removes rovers with no command for maxAge and returns their
// last snapshots, sorted by id
func (m *Manager) CleanupIdle(maxAge time.Duration) []Snapshot {
	cutoff := m.now().Add(-maxAge)

	m.mu.RLock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var removed []Snapshot
	for _, id := range ids {
		snap, deleted, err := m.deleteIf(id, func(rec *Record) bool {
			return rec.LastCommandAt.Before(cutoff)
		})
		if err != nil {
			continue
		}
		if deleted {
			removed = append(removed, snap)
		}
	}

	if len(removed) > 0 {
		m.logger.Info().Int("count", len(removed)).Dur("max_age", maxAge).Msg("expired idle rovers")
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return removed
}

// Count returns the number of rovers in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// LoadPersisted loads all persisted rovers into memory
func (m *Manager) LoadPersisted() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListRovers()
	if err != nil {
		return fmt.Errorf("failed to list persisted rovers: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, exists := m.records[id]; exists {
			continue
		}

		data, err := m.persistence.LoadRover(id)
		if err != nil {
			m.logger.Warn().Err(err).Str("rover_id", id).Msg("failed to load persisted rover")
			continue
		}

		m.records[id] = recordFromPersisted(data)
		loaded++
	}

	if loaded > 0 {
		m.logger.Info().Int("count", loaded).Msg("loaded persisted rovers")
	}
	return nil
}

// SaveAll writes every in-memory rover to persistence
func (m *Manager) SaveAll() error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	records := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	m.mu.RUnlock()

	failed := 0
	for _, rec := range records {
		rec.mu.Lock()
		if !rec.retired {
			if err := m.persistence.SaveRover(rec.persisted()); err != nil {
				m.logger.Warn().Err(err).Str("rover_id", rec.ID).Msg("failed to save rover")
				failed++
			}
		}
		rec.mu.Unlock()
	}

	if failed > 0 {
		return fmt.Errorf("failed to save %d rovers", failed)
	}
	return nil
}

// acquire returns the live record for id with its lock held
func (m *Manager) acquire(id string) (*Record, error) {
	for {
		rec, err := m.lookup(id)
		if err != nil {
			return nil, err
		}

		rec.mu.Lock()
		if !rec.retired {
			return rec, nil
		}
		rec.mu.Unlock()
	}
}

// lookup finds the record in memory, falling back to persistence
func (m *Manager) lookup(id string) (*Record, error) {
	m.mu.RLock()
	rec, exists := m.records[id]
	m.mu.RUnlock()

	if exists {
		return rec, nil
	}
	if m.persistence == nil {
		return nil, &NotFoundError{ID: id}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, exists := m.records[id]; exists {
		return rec, nil
	}

	data, err := m.persistence.LoadRover(id)
	if err != nil {
		if errors.Is(err, rover.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to load persisted rover: %w", err)
	}

	rec = recordFromPersisted(data)
	m.records[id] = rec
	return rec, nil
}

// deleteIf removes the record when pred holds. The record lock is taken before
// the map lock.
func (m *Manager) deleteIf(id string, pred func(*Record) bool) (Snapshot, bool, error) {
	rec, err := m.acquire(id)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer rec.mu.Unlock()

	if !pred(rec) {
		return Snapshot{}, false, nil
	}

	m.mu.Lock()
	if m.records[id] == rec {
		delete(m.records, id)
	}
	if m.persistence != nil {
		if err := m.persistence.DeleteRover(id); err != nil && !errors.Is(err, rover.ErrNotFound) {
			m.logger.Warn().Err(err).Str("rover_id", id).Msg("failed to delete persisted rover")
		}
	}
	m.mu.Unlock()

	rec.retired = true
	return rec.snapshot(), true, nil
}

// save writes the record through to persistence. Caller holds the record lock
// or owns an unpublished record.
func (m *Manager) save(rec *Record) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.SaveRover(rec.persisted()); err != nil {
		m.logger.Warn().Err(err).Str("rover_id", rec.ID).Msg("failed to persist rover")
	}
}
