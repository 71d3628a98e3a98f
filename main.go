// Command socialspot starts the venue check-in room coordinator.
//
// It supports two modes:
//  1. "serve" (default): runs the HTTP server exposing the REST API, the WebSocket transport, and an /mcp HTTP endpoint
//  2. "mcp": runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, content pack, logging, upstream place search, and
// optional ngrok tunneling for easy external access during development. Every
// flag can also be set through the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/socialspot/api"
	"github.com/wricardo/socialspot/places"
	"github.com/wricardo/socialspot/room/content"
	"github.com/wricardo/socialspot/room/games"
	"github.com/wricardo/socialspot/room/router"
	"github.com/wricardo/socialspot/room/session"
	"github.com/wricardo/socialspot/transport/mcp"
	"github.com/wricardo/socialspot/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "SocialSpot"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Flags on the root command are inherited by
// every subcommand.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "socialspot",
		Usage:   "real-time venue check-in rooms with invites, chat and mini-games",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "0.0.0.0",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   3001,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "static-dir",
				Usage:   "directory with the built web client, served at /",
				Sources: cli.EnvVars("STATIC_DIR"),
			},
			&cli.StringFlag{
				Name:    "content-file",
				Usage:   "game content pack (json, yaml or toml); the built-in pack is used when empty",
				Sources: cli.EnvVars("CONTENT_FILE"),
			},
			&cli.StringFlag{
				Name:    "public-url",
				Usage:   "public base URL encoded in room QR codes",
				Sources: cli.EnvVars("PUBLIC_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging with source locations",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.StringFlag{
				Name:    "geocoder-url",
				Value:   places.DefaultGeocoderURL,
				Usage:   "Nominatim compatible search endpoint",
				Sources: cli.EnvVars("GEOCODER_URL"),
			},
			&cli.StringFlag{
				Name:    "overpass-url",
				Value:   places.DefaultOverpassURL,
				Usage:   "Overpass API interpreter endpoint",
				Sources: cli.EnvVars("OVERPASS_URL"),
			},
			&cli.DurationFlag{
				Name:    "places-timeout",
				Value:   places.DefaultTimeout,
				Usage:   "timeout for each upstream place search call",
				Sources: cli.EnvVars("PLACES_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "run the HTTP server with REST API, WebSocket and MCP endpoint (default)",
				Action:  runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server, with an internal HTTP server when none is running",
				Action:  runStdioMCP,
			},
		},
	}
}

// newLogger builds a tint console logger on w.
func newLogger(w io.Writer, level string, debug bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if debug {
		lvl = slog.LevelDebug
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		AddSource:  debug,
		TimeFormat: time.TimeOnly,
	})), nil
}

// app holds the wired services shared by both modes.
type app struct {
	logger  *slog.Logger
	content *content.Manager
	hub     *websocket.Hub
	router  *router.Router
	api     *api.Server
}

// newApp wires the content pack, room state, transport and REST API.
func newApp(cmd *cli.Command, logger *slog.Logger) (*app, error) {
	contentManager, err := content.NewManager(cmd.String("content-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to load content pack: %w", err)
	}
	logger.Info("content pack loaded", "source", contentManager.Source())

	finder := places.NewFinder(places.NewClient(places.Config{
		GeocoderURL: cmd.String("geocoder-url"),
		OverpassURL: cmd.String("overpass-url"),
		Timeout:     cmd.Duration("places-timeout"),
	}), logger.With("component", "places"))

	hub := websocket.NewHub(logger.With("component", "websocket"))
	rt := router.New(
		session.NewStore(),
		games.NewTable(),
		contentManager,
		hub,
		router.WithLogger(logger.With("component", "router")),
	)

	apiServer := api.NewServer(rt, contentManager, finder, hub, api.Config{
		StaticDir: cmd.String("static-dir"),
		PublicURL: cmd.String("public-url"),
	}, logger.With("component", "api"))

	return &app{
		logger:  logger,
		content: contentManager,
		hub:     hub,
		router:  rt,
		api:     apiServer,
	}, nil
}

// mcpHandler forwards JSON-RPC messages posted to /mcp to the MCP server.
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runServe runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully. SIGHUP reloads the content pack.
func runServe(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(os.Stderr, cmd.String("log-level"), cmd.Bool("debug"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a, err := newApp(cmd, logger)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cmd.String("host"), fmt.Sprint(cmd.Int("port")))
	mcpClient := mcp.NewClient("http://" + loopbackAddr(addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", a.api)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mainRouter,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(ctx, a.router)
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr, "version", Version)
		logger.Info("endpoints", "api", "http://"+addr+"/api", "ws", "ws://"+addr+"/ws", "mcp", "http://"+addr+"/mcp")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		reloadOnHangup(ctx, a.content, logger)
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			serveNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter, logger)
			return nil
		})
	}

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// loopbackAddr rewrites a wildcard listen address so it can be dialed.
func loopbackAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func reloadOnHangup(ctx context.Context, manager *content.Manager, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := manager.Reload(); err != nil {
				logger.Warn("content pack reload failed, keeping current pack", "source", manager.Source(), "error", err)
				continue
			}
			logger.Info("content pack reloaded", "source", manager.Source())
		}
	}
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done.
// Failures are logged and never stop the main server.
func serveNgrok(ctx context.Context, authToken, domain string, handler http.Handler, logger *slog.Logger) {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established", "url", ngrokURL, "ws", strings.Replace(ngrokURL, "https://", "wss://", 1)+"/ws")

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses an API already running on
// --port; otherwise it starts an internal HTTP API on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the protocol, so logs go to stderr
	logger, err := newLogger(os.Stderr, cmd.String("log-level"), cmd.Bool("debug"))
	if err != nil {
		return err
	}

	externalURL := fmt.Sprintf("http://localhost:%d", cmd.Int("port"))
	baseURL, err := resolveAPI(ctx, externalURL, func() (string, error) {
		return startInternalAPI(ctx, cmd, logger)
	}, logger)
	if err != nil {
		return err
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// resolveAPI returns externalURL when it answers /healthz, otherwise the URL
// returned by startInternal.
func resolveAPI(ctx context.Context, externalURL string, startInternal func() (string, error), logger *slog.Logger) (string, error) {
	logger.Info("checking for external API server", "url", externalURL)

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, externalURL+"/healthz", nil)
	if err == nil {
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				logger.Info("external API server found, using it for MCP", "url", externalURL)
				return externalURL, nil
			}
		}
	}

	logger.Info("no external API server found, starting internal HTTP server")
	return startInternal()
}

// startInternalAPI serves a full app on a random loopback port for the
// lifetime of ctx.
func startInternalAPI(ctx context.Context, cmd *cli.Command, logger *slog.Logger) (string, error) {
	a, err := newApp(cmd, logger)
	if err != nil {
		return "", err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to get available port: %w", err)
	}

	go a.hub.Run(ctx, a.router)

	httpServer := &http.Server{Handler: a.api, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", "error", err)
		}
	}()

	baseURL := "http://" + listener.Addr().String()
	logger.Info("internal HTTP server started", "url", baseURL)
	return baseURL, nil
}
