package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/common"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a watched file must stay quiet before its change is reported.
const DefaultDebounce = 250 * time.Millisecond

// watcher is the implementation of the Watcher interface.
type watcher struct {
	mu       sync.Mutex
	logger   *log.Logger
	debounce time.Duration

	fs      *fsnotify.Watcher
	targets map[string]func(string)
	timers  map[string]*time.Timer
	dirs    map[string]int

	done   chan struct{}
	closed bool
}

// Watcher reports changes to asset files. Exporters often replace a file instead of writing
// it in place, so the containing directory is watched and events are filtered by name.
// Bursts of events for one file collapse into a single callback after the debounce delay.
type Watcher interface {
	// Watch starts reporting changes to path. onChange runs on the watcher's goroutine;
	// callers hand the reload over to their own frame loop.
	//
	// Parameters:
	//   - path: the file to watch
	//   - onChange: called with the cleaned path after each debounced change
	//
	// Returns:
	//   - error: error if the directory cannot be watched
	Watch(path string, onChange func(path string)) error

	// Unwatch stops reporting changes to path.
	//
	// Parameters:
	//   - path: the file to stop watching
	Unwatch(path string)

	// Close stops the watcher and cancels pending callbacks.
	//
	// Returns:
	//   - error: error from closing the underlying watcher
	Close() error
}

var _ Watcher = &watcher{}

// WatcherBuilderOption is a functional option for configuring a Watcher via NewWatcher.
type WatcherBuilderOption func(*watcher)

// WithDebounce is an option builder that sets the quiet period before a change is reported.
//
// Parameters:
//   - d: the debounce delay
//
// Returns:
//   - WatcherBuilderOption: a function that applies the debounce option to a watcher
func WithDebounce(d time.Duration) WatcherBuilderOption {
	return func(w *watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a Watcher and starts its event goroutine.
//
// Parameters:
//   - options: functional options applied to the watcher
//
// Returns:
//   - Watcher: the watcher
//   - error: error if the platform watcher cannot be created
func NewWatcher(options ...WatcherBuilderOption) (Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &watcher{
		logger:   common.Logger().WithPrefix("watcher"),
		debounce: DefaultDebounce,
		fs:       fs,
		targets:  make(map[string]func(string)),
		timers:   make(map[string]*time.Timer),
		dirs:     make(map[string]int),
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(w)
	}

	go w.run()
	return w, nil
}

func (w *watcher) Watch(path string, onChange func(path string)) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("watcher closed")
	}
	if _, ok := w.targets[path]; !ok {
		if w.dirs[dir] == 0 {
			if err := w.fs.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}
		w.dirs[dir]++
	}
	w.targets[path] = onChange
	w.logger.Debug("watching", "path", path)
	return nil
}

func (w *watcher) Unwatch(path string) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.targets[path]; !ok {
		return
	}
	delete(w.targets, path)
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}

	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if !w.closed {
			_ = w.fs.Remove(dir)
		}
	}
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	close(w.done)
	w.mu.Unlock()

	return w.fs.Close()
}

func (w *watcher) run() {
	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.touch(filepath.Clean(e.Name))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "err", err)
		case <-w.done:
			return
		}
	}
}

// touch restarts the debounce timer of a watched path.
func (w *watcher) touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if _, ok := w.targets[path]; !ok {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *watcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	onChange, ok := w.targets[path]
	closed := w.closed
	w.mu.Unlock()

	if ok && !closed {
		w.logger.Debug("changed", "path", path)
		onChange(path)
	}
}
