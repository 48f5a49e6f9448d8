package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"doccalc/internal/logging"
)

// ResultFunc receives the outcome of every re-run.
type ResultFunc func(*Report, error)

// Watcher re-runs a batch file whenever it changes.
// It watches the file's directory rather than the file itself so that
// editors which save by renaming a temporary file are still noticed.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	runner      *Runner
	path        string // absolute path of the batch file
	dir         string
	onResult    ResultFunc
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventTime time.Time
	LastRunTime   time.Time
}

// NewWatcher creates a Watcher for the batch file at path.
func NewWatcher(path string, runner *Runner, debounce time.Duration, onResult ResultFunc) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     watcher,
		runner:      runner,
		path:        abs,
		dir:         filepath.Dir(abs),
		onResult:    onResult,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking; events are handled in a
// goroutine until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		_ = w.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logging.Watch("watching %s", w.path)

	go w.run(ctx)

	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatchError("error closing watcher: %v", err)
	}
	logging.Watch("stopped watching %s", w.path)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := 100 * time.Millisecond
	if w.debounceDur > 0 && w.debounceDur < tick {
		tick = w.debounceDur
	}
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
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
			logging.WatchError("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebouncedEvents(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	logging.WatchDebug("%s on %s", event.Op, event.Name)

	w.mu.Lock()
	now := time.Now()
	w.stats.Events++
	w.stats.LastEventTime = now
	w.debounceMap[w.path] = now
	w.mu.Unlock()
}

func (w *Watcher) processDebouncedEvents(ctx context.Context) {
	w.mu.Lock()
	eventTime, pending := w.debounceMap[w.path]
	settled := pending && time.Since(eventTime) >= w.debounceDur
	if settled {
		delete(w.debounceMap, w.path)
	}
	w.mu.Unlock()

	if settled {
		w.rerun(ctx)
	}
}

func (w *Watcher) rerun(ctx context.Context) {
	report, err := w.runner.RunFile(ctx, w.path)

	w.mu.Lock()
	w.stats.Runs++
	w.stats.LastRunTime = time.Now()
	if err != nil {
		w.stats.Errors++
	}
	w.mu.Unlock()

	if err != nil {
		logging.WatchError("re-run failed: %v", err)
	} else {
		logging.Watch("re-ran %s (%d results)", filepath.Base(w.path), len(report.Results))
	}
	if w.onResult != nil {
		w.onResult(report, err)
	}
}

// Stats returns the current watcher statistics.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// watching reports whether the watcher is running.
func (w *Watcher) watching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
