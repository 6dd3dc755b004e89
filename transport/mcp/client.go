package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL, version string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer(version)
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer(version string) {
	c.mcpServer = server.NewMCPServer(
		"Rover Grid",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Rover Grid - MCP Interface

Rovers live on a rectangular grid with obstacles. (0,0) is the south-west
corner; NORTH is +y and EAST is +x. Maps are drawn north-up.

COMMANDS:
- F / B move one cell forward or backward along the heading
- L / R rotate 90 degrees in place
A move into an obstacle or off the grid fails and the rover stays put.

AVAILABLE TOOLS:
- deploy_rover: Place a rover at (x, y) facing a direction
- move_rover: Single F or B move
- rotate_rover: Single L or R rotation
- run_commands: Program such as "F3 R F2 L"; stops at the first failed step
- get_rover / list_rovers: Current positions
- rover_history: Past commands with outcomes
- grid_info: Grid size, obstacles and an ASCII map
- list_grids / load_grid: Switch to a named grid

MAP LEGEND: # obstacle, ^ > v < rover heading N E S W, . empty`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	roverID := mcp.WithString("rover_id",
		mcp.Required(),
		mcp.Description("Rover ID"),
	)

	// Rovers
	c.mcpServer.AddTool(mcp.NewTool("deploy_rover",
		mcp.WithDescription("Deploy a rover on the grid. Redeploying an existing id replaces it."),
		mcp.WithString("rover_id", mcp.Description("Rover ID (generated when omitted)")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("X coordinate (0 is the west edge)")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Y coordinate (0 is the south edge)")),
		mcp.WithString("direction",
			mcp.Required(),
			mcp.Enum("NORTH", "EAST", "SOUTH", "WEST"),
			mcp.Description("Initial heading"),
		),
	), c.handleDeploy)

	c.mcpServer.AddTool(mcp.NewTool("list_rovers",
		mcp.WithDescription("List all deployed rovers"),
	), c.handleListRovers)

	c.mcpServer.AddTool(mcp.NewTool("get_rover",
		mcp.WithDescription("Get a rover's position and command count"),
		roverID,
	), c.handleGetRover)

	// Commands
	c.mcpServer.AddTool(mcp.NewTool("move_rover",
		mcp.WithDescription("Move a rover one cell forward (F) or backward (B)"),
		roverID,
		mcp.WithString("command", mcp.Required(), mcp.Enum("F", "B")),
	), c.handleMove)

	c.mcpServer.AddTool(mcp.NewTool("rotate_rover",
		mcp.WithDescription("Rotate a rover 90 degrees left (L) or right (R)"),
		roverID,
		mcp.WithString("command", mcp.Required(), mcp.Enum("L", "R")),
	), c.handleRotate)

	c.mcpServer.AddTool(mcp.NewTool("run_commands",
		mcp.WithDescription("Run a command program such as \"F3 R F2 L B\". Steps run one at a time and stop at the first failure; earlier steps stay applied."),
		roverID,
		mcp.WithString("commands", mcp.Required(), mcp.Description("Letters F, B, L, R with optional repeat counts")),
	), c.handleRunCommands)

	c.mcpServer.AddTool(mcp.NewTool("rover_history",
		mcp.WithDescription("View a rover's command history, newest first"),
		roverID,
		mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
		mcp.WithNumber("limit", mcp.Description("Entries per page (default 20)")),
	), c.handleHistory)

	// Grid
	c.mcpServer.AddTool(mcp.NewTool("grid_info",
		mcp.WithDescription("Show the grid size, obstacles and rover positions as an ASCII map"),
	), c.handleGridInfo)

	c.mcpServer.AddTool(mcp.NewTool("list_grids",
		mcp.WithDescription("List grids available to load_grid"),
	), c.handleListGrids)

	c.mcpServer.AddTool(mcp.NewTool("load_grid",
		mcp.WithDescription("Replace the current grid with a named grid. Deployed rovers keep their positions."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Grid ID from list_grids")),
	), c.handleLoadGrid)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp apiError
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func roverPath(roverID, suffix string) string {
	return "/api/rovers/" + url.PathEscape(roverID) + suffix
}

// mapSuffix fetches the grid and renders it; failures only drop the map
func (c *Client) mapSuffix(ctx context.Context) string {
	var grid service.GridInfo
	if err := c.apiCall(ctx, "GET", "/api/grid", nil, &grid); err != nil {
		return ""
	}
	return "\n" + formatMap(&grid)
}

// Tool handlers

func (c *Client) handleDeploy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, _ := args["rover_id"].(string)
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)
	direction, _ := args["direction"].(string)

	body := service.DeployRequest{RoverID: id, X: int(x), Y: int(y), Direction: direction}

	var response struct {
		Message string            `json:"message"`
		Rover   service.RoverInfo `json:"rover"`
	}
	if err := c.apiCall(ctx, "POST", "/api/rovers/deploy", body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message + "\n" + c.mapSuffix(ctx)), nil
}

func (c *Client) handleListRovers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count  int                 `json:"count"`
		Rovers []service.RoverInfo `json:"rovers"`
	}

	if err := c.apiCall(ctx, "GET", "/api/rovers", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoverList(response.Rovers)), nil
}

func (c *Client) handleGetRover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := arguments(request)["rover_id"].(string)

	var info service.RoverInfo
	if err := c.apiCall(ctx, "GET", roverPath(id, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoverInfo(&info)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.singleCommand(ctx, request, "/move")
}

func (c *Client) handleRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.singleCommand(ctx, request, "/rotate")
}

func (c *Client) singleCommand(ctx context.Context, request mcp.CallToolRequest, suffix string) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, _ := args["rover_id"].(string)
	command, _ := args["command"].(string)

	var result service.CommandResult
	err := c.apiCall(ctx, "POST", roverPath(id, suffix), map[string]string{"command": command}, &result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("✗ %s failed: %v", command, err)), nil
	}

	return mcp.NewToolResultText(formatCommandResult(command, &result) + c.mapSuffix(ctx)), nil
}

func (c *Client) handleRunCommands(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, _ := args["rover_id"].(string)
	commands, _ := args["commands"].(string)

	var result service.SequenceResult
	err := c.apiCall(ctx, "POST", roverPath(id, "/commands"), map[string]string{"commands": commands}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSequenceResult(&result) + c.mapSuffix(ctx)), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	id, _ := args["rover_id"].(string)

	query := url.Values{}
	if page, ok := args["page"].(float64); ok {
		query.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		query.Set("limit", fmt.Sprintf("%d", int(limit)))
	}

	path := roverPath(id, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleGridInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var grid service.GridInfo
	if err := c.apiCall(ctx, "GET", "/api/grid", nil, &grid); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGridInfo(&grid)), nil
}

func (c *Client) handleListGrids(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var grids []config.GridSummary
	if err := c.apiCall(ctx, "GET", "/api/grids", nil, &grids); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGridList(grids)), nil
}

func (c *Client) handleLoadGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := arguments(request)["name"].(string)

	var grid service.GridInfo
	if err := c.apiCall(ctx, "POST", "/api/grid/load", map[string]string{"name": name}, &grid); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Loaded grid " + grid.Name + "\n\n" + formatGridInfo(&grid)), nil
}
