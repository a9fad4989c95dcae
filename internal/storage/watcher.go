package storage

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumecvpro/internal/errors"
)

// Watcher reports external changes to keys of a FileStore, including removal.
type Watcher struct {
	mu sync.Mutex

	dir  string
	keys []string

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	timers        map[string]*time.Timer

	stopChan chan struct{}
	onChange func(key string)
	logger   *errors.Logger

	running bool
}

// NewWatcher watches the given keys of store and calls onChange once per burst of events.
func NewWatcher(store *FileStore, keys []string, debounceDelay time.Duration, onChange func(key string), logger *errors.Logger) *Watcher {
	if debounceDelay <= 0 {
		debounceDelay = 250 * time.Millisecond
	}
	return &Watcher{
		dir:           store.Dir(),
		keys:          keys,
		debounceDelay: debounceDelay,
		timers:        make(map[string]*time.Timer),
		stopChan:      make(chan struct{}),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching the store directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("storage watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// The directory is watched rather than the files so atomic renames and deletions are seen.
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch directory %s: %w", w.dir, err)
	}
	w.fsWatcher = fsw
	w.running = true
	go w.watchLoop()

	if w.logger != nil {
		w.logger.Info("Storage watcher started", "dir", w.dir, "keys", w.keys, "debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop stops the watcher. Pending debounced callbacks are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.stopChan)
	for _, t := range w.timers {
		t.Stop()
	}
	w.running = false

	if err := w.fsWatcher.Close(); err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to close file system watcher")
		}
		return err
	}
	if w.logger != nil {
		w.logger.Info("Storage watcher stopped")
	}
	return nil
}

// IsRunning returns whether the watcher is currently running
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if key, ok := w.keyFor(event); ok {
				w.schedule(key)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "Storage watcher error")
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) keyFor(event fsnotify.Event) (string, bool) {
	key := filepath.Base(event.Name)
	if !slices.Contains(w.keys, key) {
		return "", false
	}
	return key, event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

func (w *Watcher) schedule(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if t, ok := w.timers[key]; ok {
		t.Stop()
	}
	w.timers[key] = time.AfterFunc(w.debounceDelay, func() {
		select {
		case <-w.stopChan:
			return
		default:
		}
		w.onChange(key)
	})
}
