package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/rover"
)

// Compile-time interface checks
var (
	_ Persistence = (*FilePersistence)(nil)
	_ Persistence = (*GormPersistence)(nil)
)

func backends(t *testing.T) map[string]func(t *testing.T) Persistence {
	return map[string]func(t *testing.T) Persistence{
		"file": func(t *testing.T) Persistence {
			p, err := NewFilePersistence(t.TempDir())
			require.NoError(t, err)
			return p
		},
		"sqlite": func(t *testing.T) Persistence {
			p, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "rovers.db"))
			require.NoError(t, err)
			t.Cleanup(func() { p.Close() })
			return p
		},
	}
}

func samplePersistedRover(id string) *PersistedRover {
	deployed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	from := rover.NewPosition(rover.NewCoordinates(2, 2), rover.North)
	to := rover.NewPosition(rover.NewCoordinates(2, 3), rover.North)
	return &PersistedRover{
		ID:            id,
		Position:      to,
		DeployedAt:    deployed,
		LastCommandAt: deployed.Add(time.Minute),
		Commands:      2,
		History: []HistoryEntry{
			{Seq: 1, Command: CommandDeploy, From: from, To: from, Success: true, Outcome: OutcomeOK, Timestamp: deployed},
			{Seq: 2, Command: "F", From: from, To: to, Success: true, Outcome: OutcomeOK, Timestamp: deployed.Add(time.Minute)},
		},
	}
}

func TestPersistence_RoverRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p := open(t)
			want := samplePersistedRover("r1")

			require.NoError(t, p.SaveRover(want))

			got, err := p.LoadRover("r1")
			require.NoError(t, err)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Position, got.Position)
			assert.Equal(t, want.Commands, got.Commands)
			assert.True(t, want.DeployedAt.Equal(got.DeployedAt))
			assert.True(t, want.LastCommandAt.Equal(got.LastCommandAt))
			require.Len(t, got.History, 2)
			assert.Equal(t, "F", got.History[1].Command)
			assert.Equal(t, want.History[1].To, got.History[1].To)

			// overwrite
			want.Position = rover.NewPosition(rover.NewCoordinates(9, 9), rover.West)
			require.NoError(t, p.SaveRover(want))
			got, err = p.LoadRover("r1")
			require.NoError(t, err)
			assert.Equal(t, want.Position, got.Position)
		})
	}
}

func TestPersistence_MissingRover(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p := open(t)

			_, err := p.LoadRover("ghost")
			assert.ErrorIs(t, err, rover.ErrNotFound)
			assert.ErrorIs(t, p.DeleteRover("ghost"), rover.ErrNotFound)
		})
	}
}

func TestPersistence_ListAndDelete(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p := open(t)

			for _, id := range []string{"a", "b/with/slashes", "c"} {
				require.NoError(t, p.SaveRover(samplePersistedRover(id)))
			}

			ids, err := p.ListRovers()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b/with/slashes", "c"}, ids)

			require.NoError(t, p.DeleteRover("b/with/slashes"))
			ids, err = p.ListRovers()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "c"}, ids)
		})
	}
}

func TestPersistence_Grid(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p := open(t)

			_, err := p.LoadGrid()
			assert.ErrorIs(t, err, ErrNoGrid)

			def := &config.GridDefinition{
				Name:      "crater",
				Width:     6,
				Height:    4,
				Obstacles: []rover.Coordinates{{X: 1, Y: 1}, {X: 2, Y: 3}},
			}
			require.NoError(t, p.SaveGrid(def))

			def2 := &config.GridDefinition{Name: "plain", Width: 3, Height: 3, Obstacles: []rover.Coordinates{}}
			require.NoError(t, p.SaveGrid(def2))

			got, err := p.LoadGrid()
			require.NoError(t, err)
			assert.Equal(t, "plain", got.Name)
			assert.Equal(t, 3, got.Width)
			assert.Empty(t, got.Obstacles)
		})
	}
}

func TestManager_WithPersistence(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			p := open(t)
			grid := testGrid(t)

			m := NewManagerWithPersistence(p, zerolog.Nop())
			deploy(t, m, grid, "r1", 4, 4, rover.East)
			_, err := m.Update("r1", "F", moveForward(grid))
			require.NoError(t, err)

			// a second manager sees the rover through the shared backend
			fresh := NewManagerWithPersistence(p, zerolog.Nop())
			snap, err := fresh.Get("r1")
			require.NoError(t, err)
			assert.Equal(t, rover.NewCoordinates(5, 4), snap.Position.Coordinates)
			assert.Equal(t, 2, snap.Commands)

			history, err := fresh.History("r1")
			require.NoError(t, err)
			assert.Len(t, history, 2)

			_, err = fresh.Delete("r1")
			require.NoError(t, err)
			_, err = p.LoadRover("r1")
			assert.ErrorIs(t, err, rover.ErrNotFound)
		})
	}
}

func TestManager_PutReplacesPersistedOnlyRover(t *testing.T) {
	p, err := NewFilePersistence(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, p.SaveRover(samplePersistedRover("r1")))

	m := NewManagerWithPersistence(p, zerolog.Nop())
	require.Equal(t, 0, m.Count())

	pos := rover.NewPosition(rover.NewCoordinates(1, 1), rover.South)
	snap, replaced := m.Put(rover.Deploy("r1", pos))
	assert.True(t, replaced)
	assert.Equal(t, pos, snap.Position)
	assert.Equal(t, 1, m.Count())

	_, replaced = m.Put(rover.Deploy("r2", pos))
	assert.False(t, replaced)
}

func TestManager_LoadPersisted(t *testing.T) {
	p, err := NewFilePersistence(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, p.SaveRover(samplePersistedRover("r1")))
	require.NoError(t, p.SaveRover(samplePersistedRover("r2")))

	m := NewManagerWithPersistence(p, zerolog.Nop())
	require.NoError(t, m.LoadPersisted())
	assert.Equal(t, 2, m.Count())

	// in-memory copies are not replaced on a second load
	_, err = m.Update("r1", "L", func(r *rover.Rover) error {
		r.Rotate(rover.Left)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, m.LoadPersisted())

	snap, err := m.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, rover.West, snap.Position.Heading)

	require.NoError(t, m.SaveAll())
}

func TestNewPersistence(t *testing.T) {
	dir := t.TempDir()

	settings := &config.Settings{}
	settings.Storage.Backend = "memory"
	p, err := NewPersistence(settings)
	require.NoError(t, err)
	assert.Nil(t, p)

	settings.Storage.Backend = "file"
	settings.Storage.Path = filepath.Join(dir, "files")
	p, err = NewPersistence(settings)
	require.NoError(t, err)
	assert.IsType(t, &FilePersistence{}, p)

	settings.Storage.Backend = "sqlite"
	settings.Storage.Path = filepath.Join(dir, "rovers")
	p, err = NewPersistence(settings)
	require.NoError(t, err)
	assert.IsType(t, &GormPersistence{}, p)
	assert.FileExists(t, filepath.Join(dir, "rovers.db"))
	require.NoError(t, p.Close())

	settings.Storage.Backend = "redis"
	_, err = NewPersistence(settings)
	assert.Error(t, err)
}
