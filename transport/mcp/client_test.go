package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/rover-grid/api"
	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/service"
	"github.com/wricardo/rover-grid/fleet/store"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

// newLiveClient wires the client to a real API backed by an in-memory store
func newLiveClient(t *testing.T, obstacles ...rover.Coordinates) *Client {
	t.Helper()

	def := &config.GridDefinition{Name: "test", Width: 10, Height: 10, Obstacles: obstacles}
	holder, err := store.NewGridHolder(def, nil, zerolog.Nop())
	require.NoError(t, err)
	catalog, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, catalog.SaveGrid("crater", &config.GridDefinition{
		Name: "Crater", Width: 5, Height: 5, Obstacles: []rover.Coordinates{{X: 2, Y: 2}},
	}))

	svc := service.NewRoverService(service.Dependencies{
		Rovers:  store.NewManager(zerolog.Nop()),
		Grid:    holder,
		Catalog: catalog,
		Logger:  zerolog.Nop(),
	})
	server := httptest.NewServer(api.NewServer(svc, nil, zerolog.Nop()))
	t.Cleanup(server.Close)

	return NewClient(server.URL, "test")
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080", "test")

	require.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.GetMCPServer())
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"roverId": "r1", "x": 2})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test")

	var response service.RoverInfo
	require.NoError(t, client.apiCall(context.Background(), "GET", "/api/rovers/r1", nil, &response))
	assert.Equal(t, "r1", response.RoverID)
	assert.Equal(t, 2, response.X)
}

func TestClient_apiCall_Errors(t *testing.T) {
	t.Run("Unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "test")
		assert.Error(t, client.apiCall(context.Background(), "GET", "/api", nil, nil))
	})

	t.Run("Error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"obstacle detected at (1,3)","code":"OBSTACLE_BLOCKED","obstacleDetected":true}`))
		}))
		defer server.Close()

		err := NewClient(server.URL, "test").apiCall(context.Background(), "POST", "/api/rovers/r1/move", nil, nil)
		require.Error(t, err)
		assert.Equal(t, "obstacle detected at (1,3)", err.Error())
	})

	t.Run("Plain body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL, "test").apiCall(context.Background(), "GET", "/api", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API error: 500")
	})
}

func TestDeployMoveAndMap(t *testing.T) {
	client := newLiveClient(t, rover.NewCoordinates(1, 3))
	ctx := context.Background()

	result, err := client.handleDeploy(ctx, callRequest("deploy_rover", map[string]interface{}{
		"rover_id": "r1", "x": float64(1), "y": float64(1), "direction": "NORTH",
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Rover r1 deployed at (1,1) facing NORTH")

	result, err = client.handleMove(ctx, callRequest("move_rover", map[string]interface{}{"rover_id": "r1", "command": "F"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	text = resultText(t, result)
	assert.Contains(t, text, "r1 now at (1,2) facing NORTH")

	lines := strings.Split(strings.TrimSpace(text[strings.Index(text, "\n\n")+2:]), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, ".#........", lines[6], "obstacle row y=3")
	assert.Equal(t, ".^........", lines[7], "rover row y=2")

	result, err = client.handleMove(ctx, callRequest("move_rover", map[string]interface{}{"rover_id": "r1", "command": "F"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "obstacle detected at (1,3)")
}

func TestRotateAndRunCommands(t *testing.T) {
	client := newLiveClient(t, rover.NewCoordinates(4, 0))
	ctx := context.Background()

	_, err := client.handleDeploy(ctx, callRequest("deploy_rover", map[string]interface{}{
		"rover_id": "r1", "x": float64(0), "y": float64(0), "direction": "NORTH",
	}))
	require.NoError(t, err)

	result, err := client.handleRotate(ctx, callRequest("rotate_rover", map[string]interface{}{"rover_id": "r1", "command": "R"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "facing EAST")

	result, err = client.handleRunCommands(ctx, callRequest("run_commands", map[string]interface{}{"rover_id": "r1", "commands": "F5"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, `Executed 3/5 steps of "F5"`)
	assert.Contains(t, text, "Blocked: attempted (4,0)")
	assert.Contains(t, text, "End:   (3,0) EAST")

	result, err = client.handleRunCommands(ctx, callRequest("run_commands", map[string]interface{}{"rover_id": "r1", "commands": "FQ"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHistoryAndListTools(t *testing.T) {
	client := newLiveClient(t)
	ctx := context.Background()

	_, err := client.handleDeploy(ctx, callRequest("deploy_rover", map[string]interface{}{
		"rover_id": "r1", "x": float64(0), "y": float64(9), "direction": "N",
	}))
	require.NoError(t, err)
	_, err = client.handleMove(ctx, callRequest("move_rover", map[string]interface{}{"rover_id": "r1", "command": "F"}))
	require.NoError(t, err)

	result, err := client.handleHistory(ctx, callRequest("rover_history", map[string]interface{}{"rover_id": "r1", "limit": float64(5)}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Total: 2")
	assert.Contains(t, text, "2. F ✗")
	assert.Contains(t, text, "1. DEPLOY ✓")

	result, err = client.handleListRovers(ctx, callRequest("list_rovers", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "- r1 ^ (0,9) NORTH")

	result, err = client.handleGetRover(ctx, callRequest("get_rover", map[string]interface{}{"rover_id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "rover with id ghost not found")
}

func TestGridTools(t *testing.T) {
	client := newLiveClient(t)
	ctx := context.Background()

	result, err := client.handleGridInfo(ctx, callRequest("grid_info", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Grid: test (10x10)")

	result, err = client.handleListGrids(ctx, callRequest("list_grids", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "• crater (Crater)")

	result, err = client.handleLoadGrid(ctx, callRequest("load_grid", map[string]interface{}{"name": "crater"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Loaded grid Crater")
	assert.Contains(t, text, "..#..")

	result, err = client.handleLoadGrid(ctx, callRequest("load_grid", map[string]interface{}{"name": "moon"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "crater")
}

func TestFormatMap(t *testing.T) {
	grid := &service.GridInfo{
		Width:     4,
		Height:    3,
		Obstacles: []rover.Coordinates{{X: 2, Y: 2}, {X: 0, Y: 0}},
		Rovers: []service.CommandResult{
			{RoverID: "a", X: 1, Y: 1, Direction: "NORTH"},
			{RoverID: "b", X: 3, Y: 0, Direction: "WEST"},
			{RoverID: "gone", X: 7, Y: 7, Direction: "EAST"},
		},
	}

	expected := "" +
		"..#.\n" +
		".^..\n" +
		"#..<\n"
	assert.Equal(t, expected, formatMap(grid))
}

func TestFormatMap_Large(t *testing.T) {
	grid := &service.GridInfo{Width: 1000, Height: 1000}
	assert.Contains(t, formatMap(grid), "too large")
}

func TestHeadingGlyph(t *testing.T) {
	tests := map[string]rune{"NORTH": '^', "EAST": '>', "SOUTH": 'v', "WEST": '<', "UP": '?'}
	for dir, glyph := range tests {
		assert.Equal(t, glyph, headingGlyph(dir), dir)
	}
}

func TestHandler(t *testing.T) {
	client := NewClient("http://localhost:0", "test")
	server := httptest.NewServer(client.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL, "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "2.0", body["jsonrpc"])
	assert.Contains(t, body, "result")

	getResp, err := http.Get(server.URL)
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}
