package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/rover"
	"github.com/wricardo/rover-grid/fleet/service"
	"github.com/wricardo/rover-grid/transport/websocket"
)

// Error codes returned in the "code" field of error bodies
const (
	CodeNotFound        = "NOT_FOUND"
	CodeOutOfBounds     = "OUT_OF_BOUNDS"
	CodeObstacleBlocked = "OBSTACLE_BLOCKED"
	CodeBadRequest      = "BAD_REQUEST"
	CodeInternal        = "INTERNAL"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error            string `json:"error"`
	Code             string `json:"code"`
	ObstacleDetected bool   `json:"obstacleDetected,omitempty"`
}

// Server represents the REST API server
type Server struct {
	service service.RoverService
	hub     *websocket.Hub
	router  *mux.Router
	logger  zerolog.Logger
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(roverService service.RoverService, hub *websocket.Hub, logger zerolog.Logger) *Server {
	s := &Server{
		service: roverService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Rovers (deploy must be registered before {id})
	api.HandleFunc("/rovers/deploy", s.handleDeploy).Methods("POST")
	api.HandleFunc("/rovers", s.handleListRovers).Methods("GET")
	api.HandleFunc("/rovers/{id}", s.handleGetRover).Methods("GET")
	api.HandleFunc("/rovers/{id}", s.handleDeleteRover).Methods("DELETE")

	// Commands
	api.HandleFunc("/rovers/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/rovers/{id}/rotate", s.handleRotate).Methods("POST")
	api.HandleFunc("/rovers/{id}/commands", s.handleCommands).Methods("POST")
	api.HandleFunc("/rovers/{id}/history", s.handleGetHistory).Methods("GET")

	// Grid
	api.HandleFunc("/grid", s.handleGetGrid).Methods("GET")
	api.HandleFunc("/grid", s.handleReplaceGrid).Methods("PUT")
	api.HandleFunc("/grid/load", s.handleLoadGrid).Methods("POST")
	api.HandleFunc("/grids", s.handleListGrids).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusRecorder captures the response status for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// the upgrader needs the raw writer
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps a service error to its status code and error body
func respondServiceError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, rover.ErrNotFound), errors.Is(err, config.ErrGridNotFound):
		status, resp.Code = http.StatusNotFound, CodeNotFound
	case errors.Is(err, rover.ErrOutOfBounds):
		status, resp.Code = http.StatusBadRequest, CodeOutOfBounds
	case errors.Is(err, rover.ErrObstacleBlocked):
		status, resp.Code = http.StatusConflict, CodeObstacleBlocked
		resp.ObstacleDetected = true
	case errors.Is(err, rover.ErrInvalidHeading),
		errors.Is(err, rover.ErrInvalidCommand),
		errors.Is(err, rover.ErrInvalidDimensions),
		errors.Is(err, config.ErrInvalidGrid):
		status, resp.Code = http.StatusBadRequest, CodeBadRequest
	default:
		resp.Code = CodeInternal
	}

	respondJSON(w, status, resp)
}

// decodeBody decodes a JSON request body, reporting failures as 400
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return false
	}
	return true
}

// Rover Handlers

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req service.DeployRequest
	if !decodeBody(w, r, &req) {
		return
	}

	info, err := s.service.DeployRover(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": fmt.Sprintf("Rover %s deployed at (%d,%d) facing %s", info.RoverID, info.X, info.Y, info.Direction),
		"rover":   info,
	})
}

func (s *Server) handleListRovers(w http.ResponseWriter, r *http.Request) {
	rovers, err := s.service.ListRovers(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(rovers),
		"rovers": rovers,
	})
}

func (s *Server) handleGetRover(w http.ResponseWriter, r *http.Request) {
	roverID := mux.Vars(r)["id"]

	info, err := s.service.GetRover(r.Context(), roverID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteRover(w http.ResponseWriter, r *http.Request) {
	roverID := mux.Vars(r)["id"]

	if err := s.service.DeleteRover(r.Context(), roverID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Rover %s deleted", roverID),
	})
}

// Command Handlers

type commandRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	roverID := mux.Vars(r)["id"]

	var req commandRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd, err := rover.ParseMoveCommand(req.Command)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.MoveRover(r.Context(), roverID, cmd)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	roverID := mux.Vars(r)["id"]

	var req commandRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cmd, err := rover.ParseRotateCommand(req.Command)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.RotateRover(r.Context(), roverID, cmd)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	roverID := mux.Vars(r)["id"]

	var req struct {
		Commands string `json:"commands"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.service.ExecuteCommands(r.Context(), roverID, req.Commands)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// A program that stops early is still a 200; the body says where and why.
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	roverID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), roverID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Grid Handlers

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	grid, err := s.service.GetGrid(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, grid)
}

func (s *Server) handleReplaceGrid(w http.ResponseWriter, r *http.Request) {
	var req service.GridRequest
	if !decodeBody(w, r, &req) {
		return
	}

	grid, err := s.service.ReplaceGrid(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, grid)
}

func (s *Server) handleLoadGrid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Grid name is required")
		return
	}

	grid, err := s.service.LoadGrid(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, grid)
}

func (s *Server) handleListGrids(w http.ResponseWriter, r *http.Request) {
	grids, err := s.service.ListGrids(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, grids)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	// No rover parameter subscribes to the whole fleet
	roverID := r.URL.Query().Get("rover")
	if roverID != websocket.AllRovers {
		if _, err := s.service.GetRover(r.Context(), roverID); err != nil {
			http.Error(w, "Unknown rover", http.StatusNotFound)
			return
		}
	}

	s.hub.ServeWS(w, r, roverID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rovers, err := s.service.ListRovers(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := map[string]interface{}{
		"status": "healthy",
		"rovers": len(rovers),
	}
	if s.hub != nil {
		resp["subscribers"] = s.hub.Clients()
	}
	respondJSON(w, http.StatusOK, resp)
}
