package files

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultWatchDebounce = 200 * time.Millisecond

// Change is one debounced filesystem change.
type Change struct {
	Path string `json:"path"`
	Op   string `json:"op"`
}

// ChangeHandler receives debounced changes on the watcher goroutine.
type ChangeHandler func(change Change)

// Watcher watches directories and delivers per-path debounced changes.
// External editors replace files rather than rewriting them in place, so
// callers watch parent directories instead of files.
type Watcher struct {
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	handler  ChangeHandler
	debounce time.Duration

	mu       sync.Mutex
	watching map[string]bool
	done     chan struct{}
	closed   bool
}

// NewWatcher creates a watcher and starts its event loop. A nil logger
// falls back to the process default.
func NewWatcher(debounce time.Duration, handler ChangeHandler, logger *slog.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("change handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create filesystem watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	w := &Watcher{
		logger:   logger,
		watcher:  fsWatcher,
		handler:  handler,
		debounce: debounce,
		watching: make(map[string]bool),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// run collapses event bursts per path and delivers them after a quiet
// period of one debounce interval.
func (w *Watcher) run() {
	lastEvent := make(map[string]time.Time)
	pendingOps := make(map[string]string)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			op, relevant := changeOp(event)
			if !relevant {
				continue
			}
			lastEvent[event.Name] = time.Now()
			pendingOps[event.Name] = op

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", "error", err)

		case <-ticker.C:
			now := time.Now()
			for path, op := range pendingOps {
				if now.Sub(lastEvent[path]) < w.debounce {
					continue
				}
				delete(pendingOps, path)
				delete(lastEvent, path)
				w.handler(Change{Path: path, Op: op})
			}
		}
	}
}

// Add starts watching a directory. Adding a watched path is a no-op.
func (w *Watcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	if w.watching[path] {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w.watching[path] = true
	return nil
}

// Remove stops watching a directory. Removing an unwatched path is a
// no-op, and removal errors are ignored because the path may be gone.
func (w *Watcher) Remove(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching[path] {
		return nil
	}
	if err := w.watcher.Remove(path); err != nil {
		w.logger.Debug("unwatch failed", "path", path, "error", err)
	}
	delete(w.watching, path)
	return nil
}

// Close stops the event loop and releases the watcher. Safe to call more
// than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	return w.watcher.Close()
}

func changeOp(event fsnotify.Event) (string, bool) {
	switch {
	case event.Has(fsnotify.Create):
		return "create", true
	case event.Has(fsnotify.Write):
		return "write", true
	case event.Has(fsnotify.Remove):
		return "remove", true
	case event.Has(fsnotify.Rename):
		return "rename", true
	default:
		return "", false
	}
}
