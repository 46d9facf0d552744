// cmd/cnrewrited/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/colebrumley/cnrewrite/internal/config"
	"github.com/colebrumley/cnrewrite/internal/daemon"
	"github.com/colebrumley/cnrewrite/internal/logging"
	"github.com/colebrumley/cnrewrite/internal/mcp"
)

const defaultConfigPath = "/etc/cnrewrite/config.yaml"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "mcp-server":
			runMCPServer()
			return
		}
	}

	runDaemon()
}

func configPath() string {
	if p := os.Getenv("CNREWRITE_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived shutdown signal")
		cancel()
	}()

	return ctx, cancel
}

// runMCPServer serves the rewrite tools over stdio. Stdout carries the MCP
// protocol, so logs go to stderr and the config is watched for rule changes.
func runMCPServer() {
	path := configPath()
	cfg, err := config.LoadGlobal(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logging.Format, cfg.Logging.Level, os.Stderr)
	watcher := config.NewWatcher(path, cfg, logger)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()

	server := mcp.NewServer(watcher, logging.NewSink(logger), nil)
	if err := server.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon() {
	d := daemon.New(configPath())

	ctx, cancel := signalContext()
	defer cancel()

	if err := d.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
		os.Exit(1)
	}
}
