package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/binbuddy/internal/api"
	"github.com/kalambet/binbuddy/internal/assistant"
	"github.com/kalambet/binbuddy/internal/config"
	"github.com/kalambet/binbuddy/internal/knowledge"
	"github.com/kalambet/binbuddy/internal/metrics"
	"github.com/kalambet/binbuddy/internal/moderation"
	"github.com/kalambet/binbuddy/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the binbuddy server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running binbuddy server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show binbuddy system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", true, "serve MCP over stdio alongside HTTP")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "binbuddy.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// engineConfig maps loaded settings onto the engine's tunables.
func engineConfig(cfg config.Config) assistant.Config {
	return assistant.Config{
		WarningThreshold:    cfg.Moderation.WarningThreshold,
		BlockHours:          cfg.Moderation.BlockHours,
		SimilarityThreshold: cfg.Matcher.SimilarityThreshold,
		Support: moderation.Contact{
			Email: cfg.Support.Email,
			Phone: cfg.Support.Phone,
			Hours: cfg.Support.Hours,
		},
	}
}

// openEngine loads the knowledge base and opens the configured store. When
// rec is non-nil replies and failed store writes are reported to it.
func openEngine(ctx context.Context, cfg config.Config, rec *metrics.Recorder) (*assistant.Engine, *storage.Store, error) {
	base, err := knowledge.LoadFile(cfg.Knowledge.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading knowledge base: %w", err)
	}

	var (
		storeOpts []storage.Option
		engOpts   []assistant.Option
	)
	if rec != nil {
		storeOpts = append(storeOpts, storage.WithWriteFailureHook(rec.StoreWriteFailed))
		engOpts = append(engOpts, assistant.WithObserver(rec))
	}

	store, err := storage.Open(ctx, cfg.Storage.Backend, cfg.Storage.DataDir, cfg.Storage.RedisURL, storeOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}
	return assistant.New(base, store, engineConfig(cfg), engOpts...), store, nil
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "binbuddy version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	// Retrieve API token for bearer auth on admin endpoints.
	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("binbuddy is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("binbuddy is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := metrics.NewRecorder()
	eng, store, err := openEngine(ctx, cfg, rec)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()
	slog.Info("engine ready",
		"storage", cfg.Storage.Backend,
		"entries", eng.Knowledge().Len(),
		"similarity_threshold", cfg.Matcher.SimilarityThreshold,
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(api.Deps{
			Engine:  eng,
			Pacer:   assistant.Pacer{Delay: cfg.ReplyDelay()},
			Token:   apiToken,
			Metrics: rec.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "binbuddy listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if withMCP {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(eng))
		g.Go(func() error {
			// A closed stdin ends MCP but leaves HTTP running.
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("binbuddy is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop binbuddy (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to binbuddy (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if base, err := knowledge.LoadFile(cfg.Knowledge.Path); err != nil {
		printStatus("Knowledge base", "invalid: %v", err)
	} else {
		source := cfg.Knowledge.Path
		if source == "" {
			source = "embedded"
		}
		printStatus("Knowledge base", "%d entries (%s)", base.Len(), source)
	}

	printStatus("Storage", "%s", cfg.Storage.Backend)
	printStatus("Moderation", "block after %d warning(s) for %dh", cfg.Moderation.WarningThreshold, cfg.Moderation.BlockHours)

	// Show log sizes if server is running.
	if running {
		if c, err := newAPIClient(); err == nil {
			if incidents, err := c.incidents(ctx, url.Values{"limit": {"100"}}); err == nil {
				printStatus("Incidents", "%s", countLabel(len(incidents), 100))
			}
			if unanswered, err := c.unanswered(ctx, 100); err == nil {
				printStatus("Unanswered", "%s", countLabel(len(unanswered), 100))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
