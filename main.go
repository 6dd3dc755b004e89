// Command rover-grid starts the rover grid server.
//
// It supports three commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket events and an /mcp endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "validate-grids" checks every grid file in the grid directory
//
// Settings come from rover.yaml/rover.json in --config-dir, ROVER_* environment
// variables and .env, in that order of precedence below command line flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/rover-grid/api"
	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/service"
	"github.com/wricardo/rover-grid/fleet/store"
	"github.com/wricardo/rover-grid/logging"
	"github.com/wricardo/rover-grid/transport/mcp"
	"github.com/wricardo/rover-grid/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Rover Grid Server"
)

func main() {
	// A missing .env is fine
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Global flags are shared by every subcommand.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "rover-grid",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: ".", Usage: "Directory containing rover.yaml or rover.json"},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host (server.host)"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port (server.port)"},
			&cli.StringFlag{Name: "grids-dir", Usage: "Directory containing grid files (grids.dir)"},
			&cli.StringFlag{Name: "grid", Usage: "Grid to load at startup (grids.default)"},
			&cli.StringFlag{Name: "storage", Usage: "Storage backend: memory, file, sqlite or postgres (storage.backend)"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error (log.level)"},
			&cli.BoolFlag{Name: "debug", Usage: "Shorthand for --log-level debug"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel (ngrok.enabled)"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or NGROK_AUTHTOKEN)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serveAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  stdioMCPAction,
			},
			{
				Name:  "validate-grids",
				Usage: "Validate every grid file in the grid directory",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "strict", Usage: "Treat warnings such as disconnected free space as errors"},
				},
				Action: validateGridsAction,
			},
		},
	}
}

// loadSettings reads viper settings and applies explicitly set flags on top
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings(cmd.String("config-dir"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		settings.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("grids-dir") {
		settings.Grids.Dir = cmd.String("grids-dir")
	}
	if cmd.IsSet("grid") {
		settings.Grids.Default = cmd.String("grid")
	}
	if cmd.IsSet("storage") {
		settings.Storage.Backend = strings.ToLower(cmd.String("storage"))
	}
	if cmd.IsSet("log-level") {
		settings.Log.Level = cmd.String("log-level")
	}
	if cmd.Bool("debug") {
		settings.Log.Level = "debug"
	}
	if cmd.Bool("ngrok") {
		settings.Ngrok.Enabled = true
	}
	if cmd.IsSet("ngrok-auth") {
		settings.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		settings.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	// ngrok's own variable names are honored too
	if settings.Ngrok.AuthToken == "" {
		settings.Ngrok.AuthToken = os.Getenv("NGROK_AUTHTOKEN")
	}
	if env := os.Getenv("NGROK_ENABLED"); env == "true" || env == "1" {
		settings.Ngrok.Enabled = true
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func newLogger(settings *config.Settings) (zerolog.Logger, error) {
	return logging.New(logging.Options{
		Level:          settings.Log.Level,
		Format:         settings.Log.Format,
		GraylogEnabled: settings.Graylog.Enabled,
		GraylogAddress: settings.Graylog.Address,
	})
}

// app holds the wired components shared by the serve and stdio-mcp modes
type app struct {
	settings    *config.Settings
	logger      zerolog.Logger
	persistence store.Persistence
	rovers      *store.Manager
	service     service.RoverService
	hub         *websocket.Hub
}

// initializeServices wires storage, the grid catalog and the rover service
func initializeServices(settings *config.Settings, logger zerolog.Logger) (*app, error) {
	persistence, err := store.NewPersistence(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence: %w", err)
	}

	if err := os.MkdirAll(settings.Grids.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create grid directory: %w", err)
	}
	catalog, err := config.NewManager(settings.Grids.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create grid catalog: %w", err)
	}

	initial := config.DefaultGrid()
	if settings.Grids.Default != "" {
		if initial, err = catalog.LoadGrid(settings.Grids.Default); err != nil {
			return nil, fmt.Errorf("failed to load grid %q: %w", settings.Grids.Default, err)
		}
	}

	grids, err := store.NewGridHolder(initial, persistence, logger)
	if err != nil {
		return nil, err
	}

	rovers := store.NewManagerWithPersistence(persistence, logger)
	if err := rovers.LoadPersisted(); err != nil {
		logger.Warn().Err(err).Msg("failed to load persisted rovers")
	}

	hub := websocket.NewHub(logger)
	svc := service.NewRoverService(service.Dependencies{
		Rovers:   rovers,
		Grid:     grids,
		Catalog:  catalog,
		Notifier: hub,
		Logger:   logger,
	})

	return &app{
		settings:    settings,
		logger:      logger,
		persistence: persistence,
		rovers:      rovers,
		service:     svc,
		hub:         hub,
	}, nil
}

// close flushes rovers and releases the storage backend
func (a *app) close() {
	if a.persistence == nil {
		return
	}
	if err := a.rovers.SaveAll(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to save rovers on shutdown")
	}
	if err := a.persistence.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close persistence")
	}
}

// setup loads settings, builds the logger and wires services
func setup(cmd *cli.Command) (*app, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(settings)
	if err != nil {
		return nil, err
	}

	a, err := initializeServices(settings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return a, nil
}

// newRouter combines the API server with the /mcp endpoint
func newRouter(a *app, baseURL string) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(a.service, a.hub, a.logger))
	mainRouter.Handle("/mcp", mcp.NewClient(baseURL, Version).Handler())
	return mainRouter
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runHTTPServer(ctx, a)
}

// runHTTPServer serves the API until ctx is cancelled. If ngrok is enabled it
// also provisions a public tunnel.
func runHTTPServer(ctx context.Context, a *app) error {
	log := logging.Component(a.logger, "main")
	addr := a.settings.Addr()

	// Stops the hub, expiry loop and tunnel when the listener fails too
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	go a.hub.Run(ctx)
	go service.RunIdleExpiry(ctx, a.service, a.settings.Rovers.IdleTTL, log)

	mainRouter := newRouter(a, "http://"+addr)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().
			Str("addr", addr).
			Str("rest", fmt.Sprintf("http://%s/api", addr)).
			Str("websocket", fmt.Sprintf("ws://%s/ws?rover=<rover_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if a.settings.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, a.settings, mainRouter, log)
		}()
	}

	var result error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case err := <-serveErr:
		result = fmt.Errorf("HTTP server failed: %w", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("Server stopped")
	return result
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, settings *config.Settings, handler http.Handler, log zerolog.Logger) {
	if settings.Ngrok.AuthToken == "" {
		log.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth, ROVER_NGROK_AUTHTOKEN or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if settings.Ngrok.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.Ngrok.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.Ngrok.AuthToken))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	log.Info().
		Str("url", tun.URL()).
		Str("rest", tun.URL()+"/api").
		Str("mcp", tun.URL()+"/mcp").
		Msg("Ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Warn().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

func stdioMCPAction(ctx context.Context, cmd *cli.Command) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	return runStdioMCP(ctx, a)
}

// runStdioMCP serves MCP over stdio. It reuses an API already listening on the
// configured address, otherwise it starts an internal one on a random loopback port.
func runStdioMCP(ctx context.Context, a *app) error {
	log := logging.Component(a.logger, "main")

	externalURL := "http://" + a.settings.Addr()
	baseURL, err := findExternalAPI(externalURL)
	if err != nil {
		log.Info().Str("url", externalURL).Msg("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		go a.hub.Run(ctx)
		httpServer := &http.Server{Handler: newRouter(a, baseURL)}
		defer httpServer.Close()

		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Internal HTTP server error")
			}
		}()
	}

	log.Info().Str("api", baseURL).Msg("MCP stdio server ready")
	return server.ServeStdio(mcp.NewClient(baseURL, Version).GetMCPServer())
}

// findExternalAPI returns baseURL when a rover API answers its health check there
func findExternalAPI(baseURL string) (string, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return baseURL, nil
}

func validateGridsAction(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	results, err := config.ValidateGridDir(settings.Grids.Dir)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	if !config.WriteReport(out, results, cmd.Bool("strict")) {
		return errors.New("grid validation failed")
	}
	return nil
}
