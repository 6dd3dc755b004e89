package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/rover-grid/api"
	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/service"
	"github.com/wricardo/rover-grid/fleet/store"
)

var testObstacles = []rover.Coordinates{{X: 2, Y: 1}, {X: 3, Y: 2}, {X: 1, Y: 3}}

// newLiveServer starts a real API on a 6x4 grid and returns its URL
func newLiveServer(t *testing.T) (string, service.RoverService) {
	t.Helper()

	def := &config.GridDefinition{Name: "field", Width: 6, Height: 4, Obstacles: testObstacles}
	holder, err := store.NewGridHolder(def, nil, zerolog.Nop())
	require.NoError(t, err)
	catalog, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, catalog.SaveGrid("strip", &config.GridDefinition{Name: "Strip", Width: 5, Height: 1}))

	svc := service.NewRoverService(service.Dependencies{
		Rovers:  store.NewManager(zerolog.Nop()),
		Grid:    holder,
		Catalog: catalog,
		Logger:  zerolog.Nop(),
	})
	server := httptest.NewServer(api.NewServer(svc, nil, zerolog.Nop()))
	t.Cleanup(server.Close)
	return server.URL, svc
}

func TestExplorer_VisitsEveryReachableCell(t *testing.T) {
	url, svc := newLiveServer(t)
	explorer := NewExplorer(NewClient(url), zerolog.Nop(), 10, 0, 0)

	report, err := explorer.Explore(context.Background(), service.DeployRequest{
		RoverID: "scout", X: 0, Y: 0, Direction: "NORTH",
	})
	require.NoError(t, err)

	assert.Equal(t, "scout", report.RoverID)
	assert.Equal(t, 21, report.Reachable)
	assert.Equal(t, 21, report.Visited)
	assert.True(t, report.Complete())
	assert.Empty(t, report.Blocked)
	assert.Greater(t, report.Legs, 1)

	// The report matches the server's view of the rover
	info, err := svc.GetRover(context.Background(), "scout")
	require.NoError(t, err)
	assert.Equal(t, info.X, report.End.X)
	assert.Equal(t, info.Y, report.End.Y)
	assert.Equal(t, info.Direction, report.End.Direction)
}

func TestExplorer_MaxLegs(t *testing.T) {
	url, _ := newLiveServer(t)
	explorer := NewExplorer(NewClient(url), zerolog.Nop(), 3, 1, 0)

	report, err := explorer.Explore(context.Background(), service.DeployRequest{
		RoverID: "scout", X: 0, Y: 0, Direction: "EAST",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Legs)
	assert.LessOrEqual(t, report.Steps, 3)
	assert.False(t, report.Complete())
}

func TestExplorer_DeployRejected(t *testing.T) {
	url, _ := newLiveServer(t)
	explorer := NewExplorer(NewClient(url), zerolog.Nop(), 0, 0, 0)

	report, err := explorer.Explore(context.Background(), service.DeployRequest{
		RoverID: "scout", X: 2, Y: 1, Direction: "NORTH",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OBSTACLE_BLOCKED")
	assert.Nil(t, report)
}

func TestNewExplorer_ClampsLegSize(t *testing.T) {
	assert.Equal(t, 100, NewExplorer(nil, zerolog.Nop(), 0, 0, 0).legSize)
	assert.Equal(t, 100, NewExplorer(nil, zerolog.Nop(), 500, 0, 0).legSize)
	assert.Equal(t, 12, NewExplorer(nil, zerolog.Nop(), 12, 0, 0).legSize)
}

func TestCommand_JSONReport(t *testing.T) {
	url, svc := newLiveServer(t)

	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	err := cmd.Run(context.Background(), []string{
		"explorer", "--url", url, "--grid", "strip", "--rover", "r1", "--direction", "EAST", "--cleanup", "--json",
	})
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "r1", report.RoverID)
	assert.Equal(t, 5, report.Visited)
	assert.Equal(t, 5, report.Reachable)
	assert.Equal(t, 1, report.Legs)
	assert.Equal(t, 4, report.End.X)

	// --cleanup removed the rover
	_, err = svc.GetRover(context.Background(), "r1")
	assert.Error(t, err)
}
