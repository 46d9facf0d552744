// internal/config/watcher.go
package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/colebrumley/cnrewrite/internal/security"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = time.Second

// Watcher holds the live configuration and reloads it when the file changes.
// It serves the client name rule to the rewriter; readers never block.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
	current  atomic.Pointer[Global]
	onReload func(*Global)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits after the last file event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithReloadHook registers fn to run after each successful reload.
func WithReloadHook(fn func(*Global)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher creates a watcher for path, starting from initial.
func NewWatcher(path string, initial *Global, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		logger:   logger,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.current.Store(initial)
	return w
}

// Current returns the active configuration.
func (w *Watcher) Current() *Global {
	return w.current.Load()
}

// Rule returns the active client name rule.
func (w *Watcher) Rule() (string, bool) {
	return w.Current().Rule()
}

// Reload re-reads the file. On error the previous configuration stays active.
func (w *Watcher) Reload() error {
	if err := security.ValidateFilePermissions(w.path); err != nil {
		w.logger.Error("CRITICAL: config file has unsafe permissions", "error", err, "path", w.path)
	}

	cfg, err := LoadGlobal(w.path)
	if err != nil {
		return err
	}
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	w.current.Store(cfg)
	if w.onReload != nil {
		w.onReload(cfg)
	}
	return nil
}

// Run watches the config file's directory and blocks until ctx is done.
// Editors often replace files by rename, so the directory is watched rather
// than the file itself.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching config directory %s: %w", dir, err)
	}

	w.logger.Info("config watcher started", "path", w.path)

	var debounceTimer *time.Timer
	debounceCh := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case debounceCh <- struct{}{}:
				default:
				}
			})

		case <-debounceCh:
			if err := w.Reload(); err != nil {
				w.logger.Error("config reload failed, keeping previous config", "error", err)
				continue
			}
			rule, ok := w.Rule()
			w.logger.Info("config reloaded", "rule", security.SanitizeValue(rule), "rule_configured", ok)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
