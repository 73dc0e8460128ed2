package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/chatguard/observe"
)

// DefaultDebounce is how long Watcher waits after the last change before
// reloading.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc receives each successfully loaded configuration.
type ReloadFunc func(ctx context.Context, cfg *Config) error

// Watcher reloads a configuration file when it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors and config-map updates that replace the file by rename are seen.
type Watcher struct {
	path     string
	onReload ReloadFunc
	debounce time.Duration
	logger   observe.Logger

	mu      sync.Mutex
	reloads int
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for reload outcomes.
func WithLogger(l observe.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l.WithComponent("config.watcher")
		}
	}
}

// NewWatcher creates a watcher for path. onReload is called with every
// configuration that loads and validates; invalid edits are logged and the
// previous configuration stays in effect.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		onReload: onReload,
		debounce: DefaultDebounce,
		logger:   observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", w.path, err)
	}

	// Reloads run on this goroutine, one at a time, so Run returns only
	// after any reload in progress has finished.
	debounce := time.NewTimer(w.debounce)
	debounce.Stop()
	defer debounce.Stop()
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-pending:
			pending = nil
			w.reload(ctx)

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			debounce.Reset(w.debounce)
			pending = debounce.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "file watcher error", observe.F("error", err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cfg, err := Load(ctx, w.path)
	if err != nil {
		w.logger.Error(ctx, "config reload failed", observe.F("path", w.path), observe.F("error", err))
		return
	}
	if err := w.onReload(ctx, cfg); err != nil {
		w.logger.Error(ctx, "config reload rejected", observe.F("path", w.path), observe.F("error", err))
		return
	}

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	w.logger.Info(ctx, "config reloaded", observe.F("path", w.path))
}
