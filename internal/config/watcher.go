package config

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadDebounce is how long the watcher waits after the last change event
// before reloading. Editors often emit several events for one save.
const ReloadDebounce = 100 * time.Millisecond

// ErrWatcherClosed is returned when starting a watcher that was stopped.
var ErrWatcherClosed = errors.New("config watcher is closed")

// ReloadCallback receives a freshly loaded and validated configuration.
type ReloadCallback func(cfg *Config)

// Watcher watches the config file and reloads it on change.
// Invalid files are logged and ignored so the previous configuration stays active.
type Watcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	onReload ReloadCallback
	logger   *slog.Logger
	done     chan struct{}
	mu       sync.Mutex
	running  bool
	closed   bool
}

// NewWatcher creates a new watcher for the config file at path.
func NewWatcher(path string, onReload ReloadCallback, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		filePath: path,
		onReload: onReload,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.running {
		return nil
	}

	// Watch the directory containing the file (editors replace files on save)
	dir := filepath.Dir(w.filePath)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	w.running = true
	go w.watch()
	w.logger.Debug("config watcher started", "path", w.filePath)
	return nil
}

func (w *Watcher) watch() {
	filename := filepath.Base(w.filePath)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if timer == nil {
					timer = time.NewTimer(ReloadDebounce)
				} else {
					timer.Reset(ReloadDebounce)
				}
				pending = timer.C
			}

		case <-pending:
			pending = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.filePath)
	if err != nil {
		w.logger.Warn("ignoring invalid config change", "path", w.filePath, "error", err)
		return
	}

	w.logger.Info("config reloaded", "path", w.filePath)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Stop stops the watcher and releases the underlying fsnotify watcher.
// It may be called whether or not Start succeeded; later calls are no-ops.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.running {
		w.running = false
		close(w.done)
	}
	return w.watcher.Close()
}
