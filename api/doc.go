// Package api provides the HTTP REST API for the rover grid server.
//
// Endpoints:
//
// Rovers:
//   - POST /api/rovers/deploy - Deploy a rover {roverId, x, y, direction}
//   - GET /api/rovers - List deployed rovers
//   - GET /api/rovers/{id} - Get one rover
//   - DELETE /api/rovers/{id} - Remove a rover
//
// Commands:
//   - POST /api/rovers/{id}/move - {command: "F"|"B"}
//   - POST /api/rovers/{id}/rotate - {command: "L"|"R"}
//   - POST /api/rovers/{id}/commands - {commands: "F3 R F2"}
//   - GET /api/rovers/{id}/history - Command history (?page, limit, order)
//
// Grid:
//   - GET /api/grid - Current grid with obstacles and rover positions
//   - PUT /api/grid - Replace the grid {name, width, height, obstacles}
//   - POST /api/grid/load - Load a catalog grid {name}
//   - GET /api/grids - List catalog grids
//
// Other:
//   - GET /api/health - Health check
//   - GET /ws?rover={id} - WebSocket event stream, whole fleet when rover is omitted
//
// Move and rotate return the rover's position:
//
//	{"roverId": "r1", "x": 5, "y": 6, "direction": "NORTH"}
//
// Error Handling:
//
// Errors are returned as JSON with a status code chosen by failure kind:
//
//	404 {"error": "rover with id r9 not found", "code": "NOT_FOUND"}
//	400 {"error": "coordinates (5,10) are out of grid bounds 10x10", "code": "OUT_OF_BOUNDS"}
//	409 {"error": "obstacle detected at (2,3)", "code": "OBSTACLE_BLOCKED", "obstacleDetected": true}
//	400 {"error": "invalid heading: \"UP\"", "code": "BAD_REQUEST"}
//
// A command program that stops early is not an error. It returns 200 with
// success=false and the stop reason in the body.
package api
