// internal/daemon/daemon.go
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/colebrumley/cnrewrite/internal/config"
	"github.com/colebrumley/cnrewrite/internal/logging"
	"github.com/colebrumley/cnrewrite/internal/mcp"
	"github.com/colebrumley/cnrewrite/internal/rewrite"
	"github.com/colebrumley/cnrewrite/internal/security"
	"github.com/colebrumley/cnrewrite/internal/stats"
)

const shutdownTimeout = 5 * time.Second

// Daemon serves client name rewrites over HTTP and keeps the rule in sync
// with the config file.
type Daemon struct {
	configPath string
	watcher    *config.Watcher
	counters   *stats.Counters
	logger     *slog.Logger
	mcp        *mcp.Server
	startTime  time.Time

	mu       sync.Mutex
	listener net.Listener
}

// New creates a new daemon instance
func New(configPath string) *Daemon {
	return &Daemon{
		configPath: configPath,
		counters:   &stats.Counters{},
	}
}

// Run starts the daemon and blocks until context is cancelled
func (d *Daemon) Run(ctx context.Context) error {
	d.startTime = time.Now()

	// Background tasks stop with the server even when serve fails
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.LoadGlobal(d.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger, closer, err := logging.Open(cfg.Logging)
	if err != nil {
		logger = logging.NewLogger(cfg.Logging.Format, cfg.Logging.Level, os.Stdout)
		logger.Warn("failed to initialize rotating log writer, using stdout", "error", err)
		closer = io.NopCloser(nil)
	}
	defer closer.Close()
	d.logger = logger

	// Log and continue; the operator should fix permissions
	if err := security.ValidateFilePermissions(d.configPath); err != nil {
		d.logger.Error("CRITICAL: config file has unsafe permissions", "error", err, "path", d.configPath)
	}
	// The watcher reloads on renames into this directory too
	configDir := filepath.Dir(d.configPath)
	if err := security.ValidateDirectoryPermissions(configDir); err != nil {
		d.logger.Error("CRITICAL: config directory has unsafe permissions", "error", err, "path", configDir)
	}

	d.watcher = config.NewWatcher(d.configPath, cfg, d.logger)
	if _, ok := d.watcher.Rule(); !ok {
		d.logger.Warn("no client name rewrite rule configured, client names will pass through unchanged")
	}

	if cfg.MCP.Enabled {
		d.mcp = mcp.NewServer(d.watcher, logging.NewSink(d.logger), d.counters)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.watcher.Run(ctx); err != nil {
			d.logger.Error("config watcher stopped, hot reload disabled", "error", err)
		}
	}()

	if cfg.Stats.ReportSchedule != "" {
		reporter, err := stats.NewReporter(cfg.Stats.ReportSchedule, d.counters, d.logger)
		if err != nil {
			d.logger.Error("stats reporter disabled", "error", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reporter.Run(ctx)
			}()
		}
	}

	addr := net.JoinHostPort(cfg.Server.ListenAddress, strconv.Itoa(cfg.Server.ListenPort))
	err = d.serve(ctx, addr, cfg.Server)
	if err != nil {
		d.logger.Error("HTTP server failed", "error", err)
	}

	d.logger.Info("daemon stopping, waiting for background tasks")
	cancel()
	wg.Wait()
	return err
}

// serve runs the HTTP server until ctx is done.
func (d *Daemon) serve(ctx context.Context, addr string, cfg config.ServerConfig) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	d.mu.Lock()
	d.listener = ln
	d.mu.Unlock()

	httpServer := &http.Server{
		Handler:           d.Handler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	d.logger.Info("starting HTTP server", "address", ln.Addr().String(), "mcp", d.mcp != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("HTTP server shutdown incomplete", "error", err)
	}
	return nil
}

// Addr returns the address the HTTP server is listening on, or nil before
// the server has started.
func (d *Daemon) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return nil
	}
	return d.listener.Addr()
}

// Counters returns the daemon's rewrite counters.
func (d *Daemon) Counters() *stats.Counters {
	return d.counters
}

// rewriter builds a rewriter whose diagnostics go to logger.
func (d *Daemon) rewriter(rules rewrite.RuleProvider, logger *slog.Logger) *rewrite.Rewriter {
	return rewrite.New(rules, logging.NewSink(logger))
}
