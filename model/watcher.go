package model

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the registry file watcher.
type WatcherConfig struct {
	// Path is the registry JSON file to watch.
	Path string

	// DebounceDelay is how long to wait for more changes before reloading.
	DebounceDelay time.Duration

	// Logger for logging events.
	Logger *slog.Logger
}

// Watcher reloads a registry from its config file when the file changes.
// Editors often replace files atomically, so the watch is on the parent
// directory and events are filtered to the target path.
type Watcher struct {
	config   WatcherConfig
	registry *Registry
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   bool
}

// NewWatcher creates a watcher that keeps the given registry in sync with
// the file at cfg.Path.
func NewWatcher(cfg WatcherConfig, registry *Registry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = 200 * time.Millisecond
	}

	return &Watcher{
		config:   cfg,
		registry: registry,
		watcher:  fsw,
		logger:   logger,
	}, nil
}

// Start begins watching the registry file for changes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.config.Path)); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Model registry watcher started",
		"path", w.config.Path,
		"debounce", w.config.DebounceDelay)

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Registry watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.config.Path) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	dirty := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !dirty {
		return
	}

	loaded, err := LoadFromFile(w.config.Path)
	if err != nil {
		// Keep serving the last good registry on a bad reload.
		w.logger.Error("Registry reload failed", "path", w.config.Path, "error", err)
		return
	}

	w.registry.MergeFromConfig(loaded.ToConfig())
	w.logger.Info("Model registry reloaded",
		"path", w.config.Path,
		"endpoints", len(w.registry.ListEndpoints()))
}
