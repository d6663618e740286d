package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moolen/faultlens/internal/logging"
)

// ReloadCallback receives every successfully loaded config. An error is
// logged and the watcher keeps running.
type ReloadCallback func(cfg *Config) error

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	FilePath string

	// Events within this window are coalesced into one reload. Default 500ms.
	DebounceMillis int
}

// Watcher reloads the config file when it changes. Invalid files are
// logged and the previous configuration stays active. It implements
// lifecycle.Component.
type Watcher struct {
	config   WatcherConfig
	callback ReloadCallback
	logger   *logging.Logger

	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}

	mu            sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for cfg.FilePath.
func NewWatcher(cfg WatcherConfig, callback ReloadCallback) (*Watcher, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("FilePath cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}
	if cfg.DebounceMillis == 0 {
		cfg.DebounceMillis = 500
	}
	return &Watcher{
		config:   cfg,
		callback: callback,
		logger:   logging.GetLogger("config.watcher"),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Start loads the file, hands it to the callback and returns once the
// fsnotify watch is in place. A failing initial load or callback is fatal.
func (w *Watcher) Start(ctx context.Context) error {
	initial, err := Load(w.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to load initial config: %w", err)
	}
	if err := w.callback(initial); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}
	w.logger.Info("Loaded initial config from %s", w.config.FilePath)

	// The watch loop outlives Start's ctx; Stop cancels it.
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for file watcher to initialize")
	}
}

func (w *Watcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("Failed to create file watcher: %v", err)
		return
	}
	defer fw.Close()

	if err := fw.Add(w.config.FilePath); err != nil {
		w.logger.Error("Failed to watch file %s: %v", w.config.FilePath, err)
		return
	}
	w.logger.Debug("Watching %s for changes (debounce: %dms)", w.config.FilePath, w.config.DebounceMillis)
	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Atomic writes replace the inode, so the watch must be re-added.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(50 * time.Millisecond)
				if err := fw.Add(w.config.FilePath); err != nil {
					w.logger.Warn("Failed to re-add watch after %s: %v", event.Op, err)
				}
			}
			w.scheduleReload(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(time.Duration(w.config.DebounceMillis)*time.Millisecond, func() {
		if ctx.Err() == nil {
			w.reload()
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.config.FilePath)
	if err != nil {
		w.logger.Warn("Failed to reload config, keeping previous: %v", err)
		return
	}
	if err := w.callback(cfg); err != nil {
		w.logger.Warn("Reload callback failed: %v", err)
		return
	}
	w.logger.Info("Config reloaded from %s", w.config.FilePath)
}

// Stop cancels the watch loop and waits for it to exit.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for watcher to stop: %w", ctx.Err())
	}
}

// Name implements lifecycle.Component.
func (w *Watcher) Name() string {
	return "Config Watcher"
}
