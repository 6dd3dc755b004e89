package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/rover-grid/fleet/rover"
)

func testGrid(t *testing.T, obstacles ...rover.Coordinates) *rover.Grid {
	t.Helper()
	dims, err := rover.NewGridDimensions(10, 10)
	require.NoError(t, err)
	obs := make([]rover.Obstacle, 0, len(obstacles))
	for _, c := range obstacles {
		obs = append(obs, rover.ObstacleAt(c))
	}
	return rover.NewGrid(dims, obs...)
}

func deploy(t *testing.T, m *Manager, grid *rover.Grid, id string, x, y int, h rover.Heading) Snapshot {
	t.Helper()
	r, err := grid.DeployRover(id, rover.NewCoordinates(x, y), h)
	require.NoError(t, err)
	snap, _ := m.Put(r)
	return snap
}

func moveForward(grid *rover.Grid) func(*rover.Rover) error {
	return func(r *rover.Rover) error { return r.Move(rover.Forward, grid) }
}

func TestManager_PutAndGet(t *testing.T) {
	m := NewManager(zerolog.Nop())
	grid := testGrid(t)

	snap := deploy(t, m, grid, "r1", 3, 5, rover.North)
	assert.Equal(t, "r1", snap.ID)
	assert.Equal(t, rover.NewPosition(rover.NewCoordinates(3, 5), rover.North), snap.Position)
	assert.Equal(t, 1, snap.Commands)

	got, err := m.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Equal(t, 1, m.Count())
}

func TestManager_GetUnknown(t *testing.T) {
	m := NewManager(zerolog.Nop())

	_, err := m.Get("ghost")
	require.ErrorIs(t, err, rover.ErrNotFound)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "ghost", nf.ID)
	assert.Equal(t, "rover with id ghost not found", err.Error())
}

func TestManager_Redeploy_LastWriteWins(t *testing.T) {
	m := NewManager(zerolog.Nop())
	grid := testGrid(t)

	deploy(t, m, grid, "r1", 1, 1, rover.North)
	_, err := m.Update("r1", "F", moveForward(grid))
	require.NoError(t, err)

	r, err := grid.DeployRover("r1", rover.NewCoordinates(7, 7), rover.South)
	require.NoError(t, err)
	_, replaced := m.Put(r)
	assert.True(t, replaced)

	got, err := m.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, rover.NewPosition(rover.NewCoordinates(7, 7), rover.South), got.Position)
	assert.Equal(t, 1, got.Commands, "history restarts on redeploy")
	assert.Equal(t, 1, m.Count())
}

func TestManager_Update(t *testing.T) {
	m := NewManager(zerolog.Nop())
	grid := testGrid(t, rover.NewCoordinates(5, 7))
	deploy(t, m, grid, "r1", 5, 5, rover.North)

	snap, err := m.Update("r1", "F", moveForward(grid))
	require.NoError(t, err)
	assert.Equal(t, rover.NewCoordinates(5, 6), snap.Position.Coordinates)

	snap, err = m.Update("r1", "F", moveForward(grid))
	require.ErrorIs(t, err, rover.ErrObstacleBlocked)
	assert.Equal(t, rover.NewCoordinates(5, 6), snap.Position.Coordinates)

	history, err := m.History("r1")
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, CommandDeploy, history[0].Command)
	assert.True(t, history[1].Success)
	assert.Equal(t, OutcomeOK, history[1].Outcome)
	assert.Equal(t, rover.NewCoordinates(5, 5), history[1].From.Coordinates)
	assert.Equal(t, rover.NewCoordinates(5, 6), history[1].To.Coordinates)

	assert.False(t, history[2].Success)
	assert.Equal(t, OutcomeObstacleBlocked, history[2].Outcome)
	assert.Contains(t, history[2].Error, "obstacle detected")
	assert.Equal(t, history[2].From, history[2].To)
	assert.Equal(t, []int{1, 2, 3}, []int{history[0].Seq, history[1].Seq, history[2].Seq})
}

func TestManager_UpdateUnknown(t *testing.T) {
	m := NewManager(zerolog.Nop())
	called := false

	_, err := m.Update("ghost", "L", func(*rover.Rover) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, rover.ErrNotFound)
	assert.False(t, called)
}

func TestManager_HistoryIsBounded(t *testing.T) {
	m := NewManager(zerolog.Nop())
	grid := testGrid(t)
	deploy(t, m, grid, "r1", 0, 0, rover.North)

	for i := 0; i < MaxHistory+10; i++ {
		_, err := m.Update("r1", "R", func(r *rover.Rover) error {
			r.Rotate(rover.Right)
			return nil
		})
		require.NoError(t, err)
	}

	history, err := m.History("r1")
	require.NoError(t, err)
	assert.Len(t, history, MaxHistory)
	assert.Equal(t, MaxHistory+11, history[len(history)-1].Seq)
	assert.Equal(t, 12, history[0].Seq)
}

func TestManager_Delete(t *testing.T) {
	m := NewManager(zerolog.Nop())
	grid := testGrid(t)
	deploy(t, m, grid, "r1", 0, 0, rover.North)

	snap, err := m.Delete("r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", snap.ID)
	assert.Zero(t, m.Count())

	_, err = m.Get("r1")
	assert.ErrorIs(t, err, rover.ErrNotFound)

	_, err = m.Delete("r1")
	assert.ErrorIs(t, err, rover.ErrNotFound)
}

func TestManager_List(t *testing.T) {
	m := NewManager(zerolog.Nop())
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	grid := testGrid(t)

	deploy(t, m, grid, "zulu", 0, 0, rover.North)
	deploy(t, m, grid, "alpha", 1, 0, rover.North)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "zulu", list[0].ID)
	assert.Equal(t, "alpha", list[1].ID)
}

func TestManager_CleanupIdle(t *testing.T) {
	m := NewManager(zerolog.Nop())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	grid := testGrid(t)

	deploy(t, m, grid, "old", 0, 0, rover.North)
	now = now.Add(time.Hour)
	deploy(t, m, grid, "fresh", 1, 1, rover.North)

	removed := m.CleanupIdle(30 * time.Minute)
	require.Len(t, removed, 1)
	assert.Equal(t, "old", removed[0].ID)
	assert.Equal(t, rover.NewPosition(rover.NewCoordinates(0, 0), rover.North), removed[0].Position)

	_, err := m.Get("old")
	assert.ErrorIs(t, err, rover.ErrNotFound)
	_, err = m.Get("fresh")
	assert.NoError(t, err)
}

func TestManager_ConcurrentCommandsOnOneRover(t *testing.T) {
	m := NewManager(zerolog.Nop())
	dims, err := rover.NewGridDimensions(1, 200)
	require.NoError(t, err)
	grid := rover.NewGrid(dims)
	r, err := grid.DeployRover("r1", rover.NewCoordinates(0, 0), rover.North)
	require.NoError(t, err)
	m.Put(r)

	const workers = 10
	const steps = 10

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < steps; j++ {
				_, err := m.Update("r1", "F", moveForward(grid))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	snap, err := m.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, workers*steps, snap.Position.Coordinates.Y)
	assert.Equal(t, workers*steps+1, snap.Commands)
}

func TestManager_ConcurrentRovers(t *testing.T) {
	m := NewManager(zerolog.Nop())
	grid := testGrid(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("r%d", i)
			r, err := grid.DeployRover(id, rover.NewCoordinates(i, 0), rover.North)
			if !assert.NoError(t, err) {
				return
			}
			m.Put(r)
			for j := 0; j < 5; j++ {
				_, err := m.Update(id, "F", moveForward(grid))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	for _, snap := range m.List() {
		assert.Equal(t, 5, snap.Position.Coordinates.Y, snap.ID)
	}
	assert.Equal(t, 10, m.Count())
}

func TestManager_DeleteWhileUpdating(t *testing.T) {
	m := NewManager(zerolog.Nop())
	grid := testGrid(t)
	deploy(t, m, grid, "r1", 0, 0, rover.East)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, err := m.Update("r1", "L", func(r *rover.Rover) error {
				r.Rotate(rover.Left)
				return nil
			})
			if err != nil {
				assert.ErrorIs(t, err, rover.ErrNotFound)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		_, err := m.Delete("r1")
		assert.NoError(t, err)
	}()
	wg.Wait()

	_, err := m.Get("r1")
	assert.ErrorIs(t, err, rover.ErrNotFound)
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestOutcome(t *testing.T) {
	grid := testGrid(t, rover.NewCoordinates(1, 1))

	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeNotFound, Outcome(&NotFoundError{ID: "x"}))
	assert.Equal(t, OutcomeOutOfBounds, Outcome(grid.ValidateMovement(rover.NewCoordinates(-1, 0))))
	assert.Equal(t, OutcomeObstacleBlocked, Outcome(grid.ValidateMovement(rover.NewCoordinates(1, 1))))
	assert.Equal(t, OutcomeError, Outcome(errors.New("disk full")))
}
