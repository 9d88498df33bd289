package dashboard

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"effortwatch/internal/observability"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher reloads datasets when their files change on disk, so a scheduled
// analysis run refreshes a long-lived dashboard without a restart. Events are
// debounced: an analysis run rewrites several files in a burst.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	include   []glob.Glob
	onChange  func([]string)

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher compiles the include patterns (matched against base names, e.g.
// "*-data.json") and wires the change callback.
func NewWatcher(debounce time.Duration, includePatterns []string, onChange func([]string)) (*Watcher, error) {
	compiled := make([]glob.Glob, 0, len(includePatterns))
	for _, pattern := range includePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		include:   compiled,
		onChange:  onChange,
		pending:   make(map[string]time.Time),
	}, nil
}

// Watch registers the directories holding dataset files and starts the event
// loop.
func (w *Watcher) Watch(dirs []string) error {
	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		clean := filepath.Clean(dir)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		if err := w.fsWatcher.Add(clean); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if !w.matches(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("dataset watcher error", "error", err)
		}
	}
}

func (w *Watcher) matches(path string) bool {
	if len(w.include) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, g := range w.include {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.onChange(paths)
	}
}
