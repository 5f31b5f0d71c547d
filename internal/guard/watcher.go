package guard

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"importguard/internal/logging"
	"importguard/internal/report"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherStopped is returned by Start once the watcher has been stopped.
// A Watcher is single-use.
var ErrWatcherStopped = errors.New("watcher already stopped")

// ResultFunc receives the outcome of every run the watcher triggers.
type ResultFunc func(*report.Summary, error)

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventPath string
	LastRun       time.Time
}

// Watcher re-runs an Engine whenever a watched domain module changes.
// It watches the directories holding the domain modules, not the whole tree.
type Watcher struct {
	mu          sync.Mutex
	engine      *Engine
	watcher     *fsnotify.Watcher
	onResult    ResultFunc
	pending     map[string]time.Time
	debounceDur time.Duration
	tickEvery   time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stopped     bool
	stats       WatcherStats
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a file must be quiet before a re-run.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDur = d
		if d/5 < w.tickEvery {
			w.tickEvery = max(d/5, time.Millisecond)
		}
	}
}

// NewWatcher creates a Watcher for engine. onResult is called from the
// watcher goroutine.
func NewWatcher(engine *Engine, onResult ResultFunc, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		engine:      engine,
		watcher:     fsw,
		onResult:    onResult,
		pending:     make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		tickEvery:   100 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dirs returns the directories holding the engine's domain modules.
func (w *Watcher) Dirs() []string {
	seen := make(map[string]bool)
	for _, c := range w.engine.Cases() {
		seen[filepath.Dir(w.engine.Locator().Locate(c.Domain))] = true
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Start runs the check once, then watches for changes in a goroutine.
// Calling Start after Stop returns ErrWatcherStopped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrWatcherStopped
	}
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.Dirs() {
		if err := w.watcher.Add(dir); err != nil {
			logging.Get(logging.CategoryGuard).Warn("Watcher: cannot watch %s: %v", dir, err)
			continue
		}
		logging.GuardDebug("Watcher: watching directory: %s", dir)
	}

	w.check(ctx)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryGuard).Error("Watcher: error closing watcher: %v", err)
	}
	logging.Guard("Watcher: stopped")
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.GuardDebug("Watcher: context cancelled")
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
			logging.Get(logging.CategoryGuard).Error("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			if w.settled() {
				w.check(ctx)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	m, ok := w.engine.Locator().ModuleFor(event.Name)
	if !ok || !w.engine.Watches(m) {
		return
	}

	logging.GuardDebug("Watcher: %s %s (%s)", event.Op, m, event.Name)

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.stats.Events++
	w.stats.LastEventPath = event.Name
	w.mu.Unlock()
}

// settled drains the pending set once every entry is older than the debounce
// window and reports whether anything was drained.
func (w *Watcher) settled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return false
	}
	now := time.Now()
	for _, at := range w.pending {
		if now.Sub(at) < w.debounceDur {
			return false
		}
	}
	w.pending = make(map[string]time.Time)
	return true
}

func (w *Watcher) check(ctx context.Context) {
	summary, err := w.engine.Run(ctx)

	w.mu.Lock()
	w.stats.Runs++
	w.stats.LastRun = time.Now()
	if err != nil {
		w.stats.Errors++
	}
	w.mu.Unlock()

	if w.onResult != nil {
		w.onResult(summary, err)
	}
}
