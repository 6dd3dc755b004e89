// Package mcp exposes the rover grid to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request
// against the api package, so MCP agents and HTTP clients see the same
// state and the same errors.
//
// Tools:
//   - deploy_rover, move_rover, rotate_rover, run_commands
//   - get_rover, list_rovers, rover_history
//   - grid_info, list_grids, load_grid
//
// Commands that change a rover's position append an ASCII map of the grid,
// drawn north-up so the top line is the highest y:
//
//	..#.
//	.^..
//	....
//
// Obstacles are '#', rovers show their heading as ^ > v <, empty cells are '.'.
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: mount client.Handler() at /mcp
package mcp
