// Package watch re-runs scans when blueprint files under a data directory
// change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"simlint/internal/logging"
	"simlint/internal/scan"
)

const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the blueprint paths that settled during one debounce
// window.
type ChangeFunc func(ctx context.Context, paths []string)

// Stats counts watcher activity.
type Stats struct {
	Events        int
	Batches       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// Watcher watches a directory tree for blueprint changes.
type Watcher struct {
	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	root      string
	debounce  time.Duration
	onChange  ChangeFunc
	pending   map[string]struct{}
	lastEvent time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
	stats     Stats
}

// New creates a watcher for root. debounce <= 0 uses DefaultDebounce.
func New(root string, debounce time.Duration, onChange ChangeFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  fw,
		root:     root,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start adds every directory under root and begins the event loop. It does
// not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	n, err := w.addTree(w.root)
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("Watching %d directories under %s (debounce %s)", n, w.root, w.debounce)

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatchError("Error closing watcher: %v", err)
	}
	logging.Watch("Watcher stopped")
}

func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) addTree(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (d.Name() == ".git" || d.Name() == "__MACOSX") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("Context cancelled")
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchError("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := w.addTree(event.Name); err != nil {
				logging.WatchError("Failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}
	name := filepath.Base(event.Name)
	if !scan.IsUnitBlueprint(name) && !scan.IsProjectileBlueprint(name) {
		return
	}
	logging.WatchDebug("%s %s", event.Op, event.Name)

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.lastEvent = time.Now()
	w.stats.Events++
	w.stats.LastEventTime = w.lastEvent
	w.stats.LastEventPath = event.Name
	w.mu.Unlock()
}

// flush hands the pending batch to onChange once no event has arrived for a
// full debounce window.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 || time.Since(w.lastEvent) < w.debounce {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.stats.Batches++
	w.mu.Unlock()

	sort.Strings(paths)
	logging.Watch("%d blueprint change(s) settled", len(paths))
	if w.onChange != nil {
		w.onChange(ctx, paths)
	}
}
