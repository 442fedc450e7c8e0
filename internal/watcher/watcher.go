package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sdc-indexer/internal/events"
	"sdc-indexer/internal/filesystem"
	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/metrics"
)

// DefaultQuietPeriod is how long a file must go without writes before it is
// reported as Closed.
const DefaultQuietPeriod = 2 * time.Second

// DefaultBuffer is the size of the event channel.
const DefaultBuffer = 1024

var (
	// ErrNoRoots indicates no roots were configured.
	ErrNoRoots = errors.New("no roots configured for watching")

	// ErrPathNotExist indicates a root does not exist.
	ErrPathNotExist = errors.New("watch path does not exist")

	// ErrPathNotDirectory indicates a root is not a directory.
	ErrPathNotDirectory = errors.New("watch path is not a directory")
)

// Config configures a Watcher.
type Config struct {
	// Roots are the directories to watch recursively.
	Roots []string
	// Exclude skips matching files and directories.
	Exclude *filesystem.Excludes
	// QuietPeriod defaults to DefaultQuietPeriod.
	QuietPeriod time.Duration
	// Buffer is the event channel size. Defaults to DefaultBuffer.
	Buffer int
}

// Watcher produces file events for a set of directory trees.
type Watcher struct {
	config Config
	fsw    *fsnotify.Watcher
	out    chan events.FileEvent
	log    logging.Logger

	// pending maps a path to the time of its last Create or Write. Only
	// the Run goroutine touches it.
	pending map[string]time.Time

	mu      sync.Mutex
	watched map[string]struct{}

	closeOnce sync.Once
}

// New validates the roots and registers watches on every directory below
// them.
func New(config Config) (*Watcher, error) {
	if len(config.Roots) == 0 {
		return nil, ErrNoRoots
	}
	if config.QuietPeriod <= 0 {
		config.QuietPeriod = DefaultQuietPeriod
	}
	if config.Buffer <= 0 {
		config.Buffer = DefaultBuffer
	}
	roots := make([]string, len(config.Roots))
	for i, root := range config.Roots {
		roots[i] = filepath.Clean(root)
		if err := validateRoot(roots[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", roots[i], err)
		}
	}
	config.Roots = roots

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		config:  config,
		fsw:     fsw,
		out:     make(chan events.FileEvent, config.Buffer),
		log:     logging.For("watcher"),
		pending: make(map[string]time.Time),
		watched: make(map[string]struct{}),
	}

	for _, root := range config.Roots {
		if err := w.addRecursive(root, false); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	w.log.Info("Watching %d directories under %d root(s)", w.WatchedDirectories(), len(config.Roots))
	return w, nil
}

func validateRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrPathNotExist
		}
		return err
	}
	if !info.IsDir() {
		return ErrPathNotDirectory
	}
	return nil
}

// Events returns the event stream. It is closed when Run returns.
func (w *Watcher) Events() <-chan events.FileEvent {
	return w.out
}

// WatchedDirectories returns the number of directories being watched.
func (w *Watcher) WatchedDirectories() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// Close releases the kernel watches. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}

// Run delivers events until ctx is done or the watcher is closed. Files
// still inside their quiet period when Run returns are not reported.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)

	tick := w.config.QuietPeriod / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.emit(ctx, w.handleEvent(ev, time.Now())...) {
				return nil
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if !w.emit(ctx, w.handleError(err, time.Now())...) {
				return nil
			}
		case now := <-ticker.C:
			if !w.emit(ctx, w.due(now)...) {
				return nil
			}
		}
	}
}

// emit sends evs in order. It reports false if ctx ended first.
func (w *Watcher) emit(ctx context.Context, evs ...events.FileEvent) bool {
	for _, ev := range evs {
		select {
		case w.out <- ev:
			metrics.WatcherEventsTotal.WithLabelValues(ev.Kind.String()).Inc()
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// handleEvent updates the pending set for one notification and returns the
// events to deliver immediately.
func (w *Watcher) handleEvent(ev fsnotify.Event, now time.Time) []events.FileEvent {
	path := filepath.Clean(ev.Name)
	if w.config.Exclude.Match(path) {
		return nil
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.pending, path)
		w.forget(path)
		return []events.FileEvent{events.NewRemoved(path, now)}

	case ev.Has(fsnotify.Create):
		info, err := os.Lstat(path)
		if err != nil {
			// Gone again before we looked; a Remove follows.
			return nil
		}
		if info.IsDir() {
			if err := w.addRecursive(path, true); err != nil {
				w.log.Warn("Failed to watch new directory %s: %v", path, err)
			}
			metrics.WatcherEventsTotal.WithLabelValues("directory_added").Inc()
			return nil
		}
		if info.Mode().IsRegular() {
			w.pending[path] = now
		}

	case ev.Has(fsnotify.Write):
		w.pending[path] = now
	}
	return nil
}

// handleError turns a kernel overflow into an Overflow event. Other errors
// are logged.
func (w *Watcher) handleError(err error, now time.Time) []events.FileEvent {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		w.log.Error("Kernel notification queue overflowed: %v", err)
		metrics.WatcherOverflows.Inc()
		return []events.FileEvent{{Kind: events.Overflow, Time: now}}
	}
	w.log.Warn("Watcher error: %v", err)
	metrics.WatcherErrors.Inc()
	return nil
}

// due returns Closed events for files quiet since at least the quiet period,
// oldest first.
func (w *Watcher) due(now time.Time) []events.FileEvent {
	var ready []events.FileEvent
	for path, last := range w.pending {
		if now.Sub(last) >= w.config.QuietPeriod {
			ready = append(ready, events.NewClosed(path, last))
			delete(w.pending, path)
		}
	}
	slices.SortFunc(ready, func(a, b events.FileEvent) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return filesystem.ComparePaths(a.Path, b.Path)
	})
	for i := range ready {
		ready[i].Time = now
	}
	return ready
}

// addRecursive watches root and every directory below it. When sweep is
// set, regular files found are queued as pending so that files written
// before the watch existed are still reported.
func (w *Watcher) addRecursive(root string, sweep bool) error {
	now := time.Now()
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.log.Debug("Skipping %s: %v", path, err)
			return nil
		}
		if path != root && w.config.Exclude.Match(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if sweep && d.Type().IsRegular() {
				w.pending[path] = now
			}
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.mu.Lock()
		w.watched[path] = struct{}{}
		n := len(w.watched)
		w.mu.Unlock()
		metrics.WatchedDirectories.Set(float64(n))
		return nil
	})
}

// forget drops path and everything below it from the watched set. The
// kernel removes the watches itself.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watched[path]; !ok {
		return
	}
	prefix := path + string(filepath.Separator)
	for dir := range w.watched {
		if dir == path || (len(dir) > len(prefix) && dir[:len(prefix)] == prefix) {
			delete(w.watched, dir)
		}
	}
	for p := range w.pending {
		if len(p) > len(prefix) && p[:len(prefix)] == prefix {
			delete(w.pending, p)
		}
	}
	metrics.WatchedDirectories.Set(float64(len(w.watched)))
}
