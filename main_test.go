package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/socialspot/transport/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runWith runs the CLI with action replacing every command action.
func runWith(t *testing.T, args []string, action cli.ActionFunc) {
	t.Helper()
	cmd := newCommand()
	cmd.Action = action
	for _, sub := range cmd.Commands {
		sub.Action = action
	}
	if err := cmd.Run(context.Background(), append([]string{"socialspot"}, args...)); err != nil {
		t.Fatalf("Command failed: %v", err)
	}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "SocialSpot" {
		t.Errorf("Expected app name SocialSpot, got %s", AppName)
	}
}

func TestFlagDefaults(t *testing.T) {
	var called bool
	runWith(t, nil, func(ctx context.Context, cmd *cli.Command) error {
		called = true
		if port := cmd.Int("port"); port != 3001 {
			t.Errorf("Expected default port 3001, got %d", port)
		}
		if host := cmd.String("host"); host == "" {
			t.Error("Host should have a default value")
		}
		if level := cmd.String("log-level"); level != "info" {
			t.Errorf("Expected log level info, got %s", level)
		}
		if d := cmd.Duration("places-timeout"); d != 15*time.Second {
			t.Errorf("Expected places timeout 15s, got %v", d)
		}
		if cmd.Bool("ngrok") {
			t.Error("ngrok should be disabled by default")
		}
		return nil
	})
	if !called {
		t.Error("Expected default action to run")
	}
}

func TestFlagEnvironment(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("CONTENT_FILE", "packs/party.yaml")
	t.Setenv("NGROK_AUTH_TOKEN", "secret")

	runWith(t, nil, func(ctx context.Context, cmd *cli.Command) error {
		if port := cmd.Int("port"); port != 4000 {
			t.Errorf("Expected port 4000 from env, got %d", port)
		}
		if f := cmd.String("content-file"); f != "packs/party.yaml" {
			t.Errorf("Expected content file from env, got %s", f)
		}
		if tok := cmd.String("ngrok-auth"); tok != "secret" {
			t.Errorf("Expected ngrok token from env, got %s", tok)
		}
		return nil
	})
}

func TestSubcommandAliases(t *testing.T) {
	for _, name := range []string{"serve", "server", "http", "mcp", "stdio-mcp"} {
		t.Run(name, func(t *testing.T) {
			var got string
			runWith(t, []string{"--port", "5000", name}, func(ctx context.Context, cmd *cli.Command) error {
				got = cmd.Name
				if port := cmd.Int("port"); port != 5000 {
					t.Errorf("Expected inherited port 5000, got %d", port)
				}
				return nil
			})
			if got == "" || got == "socialspot" {
				t.Errorf("Expected subcommand to run for %s, got %q", name, got)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	logger, err := newLogger(io.Discard, "warn", false)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	if logger.Enabled(ctx, slog.LevelInfo) || !logger.Enabled(ctx, slog.LevelWarn) {
		t.Error("Expected warn level logger")
	}

	logger, _ = newLogger(io.Discard, "error", true)
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Expected debug flag to force debug level")
	}

	if _, err := newLogger(io.Discard, "loud", false); err == nil {
		t.Error("Expected error for an unknown level")
	}
}

func TestNewApp(t *testing.T) {
	t.Run("default content", func(t *testing.T) {
		runWith(t, nil, func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd, discardLogger())
			if err != nil {
				t.Fatalf("Failed to initialize app: %v", err)
			}
			if a.content.Source() != "default" || a.hub == nil || a.router == nil || a.api == nil {
				t.Errorf("App not fully wired: %+v", a)
			}
			return nil
		})
	})

	t.Run("invalid content file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		os.WriteFile(path, []byte(`{"quiz": []}`), 0644)

		runWith(t, []string{"--content-file", path}, func(ctx context.Context, cmd *cli.Command) error {
			if _, err := newApp(cmd, discardLogger()); err == nil {
				t.Error("Expected error for an invalid content pack")
			}
			return nil
		})
	})
}

func TestLoopbackAddr(t *testing.T) {
	tests := map[string]string{
		"0.0.0.0:3001":   "localhost:3001",
		":3001":          "localhost:3001",
		"[::]:3001":      "localhost:3001",
		"10.0.0.5:8080":  "10.0.0.5:8080",
		"localhost:3001": "localhost:3001",
	}
	for in, want := range tests {
		if got := loopbackAddr(in); got != want {
			t.Errorf("loopbackAddr(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://localhost:0"))

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/mcp", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", w.Code)
		}
	})

	t.Run("initialize", func(t *testing.T) {
		body := `{"jsonrpc": "2.0", "id": 1, "method": "initialize", "params": {"protocolVersion": "2024-11-05", "capabilities": {}, "clientInfo": {"name": "test", "version": "1.0"}}}`
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"SocialSpot"`) {
			t.Errorf("Expected server name in response, got %s", w.Body.String())
		}
	})
}

func TestResolveAPI(t *testing.T) {
	ctx := context.Background()

	t.Run("external server", func(t *testing.T) {
		external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/healthz" {
				http.NotFound(w, r)
			}
		}))
		defer external.Close()

		got, err := resolveAPI(ctx, external.URL, func() (string, error) {
			t.Error("Internal server must not start when an external one answers")
			return "", nil
		}, discardLogger())
		if err != nil || got != external.URL {
			t.Errorf("Expected %s, got %s (%v)", external.URL, got, err)
		}
	})

	t.Run("internal fallback", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()

		got, _ := resolveAPI(ctx, deadURL, func() (string, error) {
			return "http://127.0.0.1:1234", nil
		}, discardLogger())
		if got != "http://127.0.0.1:1234" {
			t.Errorf("Expected internal URL, got %s", got)
		}
	})
}

func TestStartInternalAPI(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runWith(t, nil, func(_ context.Context, cmd *cli.Command) error {
		baseURL, err := startInternalAPI(ctx, cmd, discardLogger())
		if err != nil {
			t.Fatalf("Failed to start internal API: %v", err)
		}

		resp, err := http.Get(baseURL + "/healthz")
		if err != nil {
			t.Fatalf("Health check failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
		return nil
	})
}
