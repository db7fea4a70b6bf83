// Package watcher turns filesystem notifications into a stream of
// dirty-file batches: it watches directories rather than individual
// files, and on a change event compares the mtime of every watched
// file under that directory against what was last recorded, collecting
// files that changed or disappeared. Grounded on
// internal/indexing.FileWatcher, which wires fsnotify the same way
// (recursive directory watches, one goroutine draining Events/Errors)
// and debounces with its own eventDebouncer; retargeted here from
// "reparse this file with the language dispatcher" to "this path is
// dirty, tell whoever owns the dependency graph."
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/cindexd/cindexd/internal/cxierr"
)

// Config controls which paths are watched and how aggressively changes
// are coalesced.
type Config struct {
	// Root is the directory tree to watch, recursively.
	Root string
	// Include is the set of doublestar glob patterns a file must match
	// (relative to Root) to be reported as dirty.
	Include []string
	// Exclude is checked before Include; a match here is never
	// reported regardless of Include.
	Exclude []string
	// Debounce is how long to wait after the last event in a
	// directory before flushing its accumulated changes. Matches the
	// watchDebounceMs config knob convention: a few hundred ms.
	Debounce time.Duration
	// Gitignore, if set, is consulted alongside Exclude: a path it
	// reports as ignored is never watched (directories) or never
	// reported dirty (files), the same way Exclude works. Left nil
	// when a project's configuration doesn't opt into gitignore
	// filtering.
	Gitignore GitignoreChecker
}

// GitignoreChecker is the subset of *internal/config.GitignoreParser
// that watcher needs, so this package depends on the interface rather
// than importing internal/config directly.
type GitignoreChecker interface {
	ShouldIgnore(path string, isDir bool) bool
}

// Watcher watches Config.Root and reports batches of dirty file paths
// through OnDirty once their containing directory's event stream goes
// quiet for Debounce.
type Watcher struct {
	cfg Config
	fsw *fsnotify.Watcher

	mu       sync.Mutex
	mtimes   map[string]time.Time
	pending  map[string]struct{}
	timers   map[string]*time.Timer
	stopped  bool
	doneWg   sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}

	// OnDirty is called with the batch of file paths a directory's
	// settled event stream determined are dirty: a file whose mtime
	// changed, or one that was removed. Called from the watcher's own
	// goroutine; callers that need to do slow work should hand off to
	// their own goroutine rather than block this one.
	OnDirty func(paths []string)
}

// New creates a Watcher over cfg. It does not start watching until
// Start is called.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, cxierr.Wrap(cxierr.WatchFailed, err, "creating fsnotify watcher")
	}
	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		mtimes:  make(map[string]time.Time),
		pending: make(map[string]struct{}),
		timers:  make(map[string]*time.Timer),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start adds recursive watches under cfg.Root and begins processing
// fsnotify events in a background goroutine.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.cfg.Root); err != nil {
		return cxierr.Wrap(cxierr.WatchFailed, err, "adding watches under "+w.cfg.Root)
	}

	w.doneWg.Add(1)
	go w.run()
	return nil
}

// Stop halts event processing, flushes no pending batches (in-flight
// debounce windows are simply discarded, a deliberate choice not to
// flush on shutdown to avoid racing against whatever is tearing down
// the index), and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	err := w.fsw.Close()
	w.doneWg.Wait()
	if err != nil {
		return cxierr.Wrap(cxierr.WatchFailed, err, "closing fsnotify watcher")
	}
	return nil
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() {
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil
			}
			if visited[real] {
				return filepath.SkipDir
			}
			visited[real] = true

			if w.excluded(path) {
				return filepath.SkipDir
			}
			_ = w.fsw.Add(path)
			return nil
		}

		if w.matches(path) {
			w.mu.Lock()
			w.mtimes[path] = info.ModTime()
			w.mu.Unlock()
		}
		return nil
	})
}

// excluded reports whether path (a directory) should never be
// watched, checked against Exclude before ever calling fsw.Add.
func (w *Watcher) excluded(path string) bool {
	rel := w.relPath(path)
	if w.cfg.Gitignore != nil && w.cfg.Gitignore.ShouldIgnore(rel, true) {
		return true
	}
	for _, pattern := range w.cfg.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, filepath.Base(path)); matched {
			return true
		}
	}
	return false
}

// matches reports whether path should be reported through OnDirty when
// it changes: it must match an Include pattern and no Exclude pattern.
func (w *Watcher) matches(path string) bool {
	rel := w.relPath(path)
	if w.cfg.Gitignore != nil && w.cfg.Gitignore.ShouldIgnore(rel, false) {
		return false
	}
	for _, pattern := range w.cfg.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false
		}
	}
	if len(w.cfg.Include) == 0 {
		return true
	}
	for _, pattern := range w.cfg.Include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (w *Watcher) relPath(path string) string {
	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) run() {
	defer w.doneWg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	info, err := os.Stat(event.Name)
	isDir := err == nil && info.IsDir()

	if isDir {
		if event.Op&fsnotify.Create != 0 && !w.excluded(event.Name) {
			_ = w.fsw.Add(event.Name)
		}
		return
	}

	dir := filepath.Dir(event.Name)
	w.scheduleFlush(dir)
}

// scheduleFlush resets dir's debounce timer, flushing dir once no
// further events for it arrive within cfg.Debounce -- a per-key
// timer-reset idiom, scoped per-directory since mtime-rescans operate
// one directory at a time.
func (w *Watcher) scheduleFlush(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[dir] = struct{}{}
	if t, ok := w.timers[dir]; ok {
		t.Stop()
	}
	w.timers[dir] = time.AfterFunc(w.cfg.Debounce, func() { w.flush(dir) })
}

// flush rescans dir's currently-known files against the recorded
// mtimes: any file whose mtime differs or that no longer exists is
// dirty; still-present files have their mtime re-recorded.
func (w *Watcher) flush(dir string) {
	w.mu.Lock()
	delete(w.pending, dir)
	delete(w.timers, dir)

	known := make(map[string]time.Time, len(w.mtimes))
	for p, mt := range w.mtimes {
		if filepath.Dir(p) == dir {
			known[p] = mt
		}
	}
	w.mu.Unlock()

	entries, err := os.ReadDir(dir)
	seen := make(map[string]bool, len(entries))
	var dirty []string

	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if !w.matches(path) {
				continue
			}
			info, statErr := entry.Info()
			if statErr != nil {
				continue
			}
			seen[path] = true
			if prev, ok := known[path]; !ok || !prev.Equal(info.ModTime()) {
				dirty = append(dirty, path)
			}
			w.mu.Lock()
			w.mtimes[path] = info.ModTime()
			w.mu.Unlock()
		}
	}

	for path := range known {
		if !seen[path] {
			dirty = append(dirty, path)
			w.mu.Lock()
			delete(w.mtimes, path)
			w.mu.Unlock()
		}
	}

	if len(dirty) == 0 {
		return
	}
	if w.OnDirty != nil {
		w.OnDirty(dirty)
	}
}
