// Package watch is the Session Watcher: it batches filesystem events on
// session directories with a per-path debounce and notifies dependents
// (the Session Cache, the Task Store) once writes have settled, instead
// of firing a rebuild on every individual append.
package watch

import (
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind classifies a settled filesystem event for one session file.
type EventKind int

const (
	// Changed means the file grew or was modified; the cache should
	// extend (or rebuild, if it detects an earlier-byte rewrite).
	Changed EventKind = iota
	// Removed means the file was deleted or renamed away; the cache
	// entry for it must be invalidated.
	Removed
	// Created means a new .jsonl file appeared in a watched directory;
	// callers typically treat this the same as Changed but may also
	// use it to discover new sessions/subagents eagerly.
	Created
)

func (k EventKind) String() string {
	switch k {
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	case Created:
		return "created"
	default:
		return "unknown"
	}
}

// Event is one settled, debounced notification for a single path.
type Event struct {
	Path string
	Kind EventKind
}

// Watcher owns one fsnotify watcher shared across every directory added
// to it. Pending debounce timers live in a map guarded by mu; each
// timer callback delivers its settled Event on the events channel via
// send instead of touching that map.
type Watcher struct {
	debounce time.Duration
	logger   *log.Logger

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer

	out  chan Event
	done chan struct{}
}

// New creates a Watcher with the given per-path debounce window.
func New(debounce time.Duration, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		debounce: debounce,
		logger:   logger,
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
		out:      make(chan Event, 64),
		done:     make(chan struct{}),
	}, nil
}

// AddDir starts watching a project directory for session-file
// create/write/remove events. Safe to call repeatedly for the same
// directory; fsnotify dedupes watches internally.
func (w *Watcher) AddDir(dir string) error {
	return w.fsw.Add(dir)
}

// RemoveDir stops watching a directory.
func (w *Watcher) RemoveDir(dir string) error {
	return w.fsw.Remove(dir)
}

// Events returns the channel of settled, debounced events.
func (w *Watcher) Events() <-chan Event {
	return w.out
}

// Run processes fsnotify events until Close is called. Intended to be
// run in its own goroutine; blocks until Close or the underlying
// watcher's channels close.
func (w *Watcher) Run() {
	defer close(w.out)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watch error: %v", err)
		}
	}
}

// handle classifies a raw fsnotify event and schedules (or fires
// immediately, for removal) a debounced notification.
func (w *Watcher) handle(ev fsnotify.Event) {
	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.fireImmediate(ev.Name, Removed)
		return
	}

	kind := Changed
	if ev.Has(fsnotify.Create) {
		kind = Created
	} else if !ev.Has(fsnotify.Write) {
		return
	}

	w.debounceFire(ev.Name, kind)
}

func (w *Watcher) debounceFire(path string, kind EventKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.send(Event{Path: path, Kind: kind})
	})
}

func (w *Watcher) fireImmediate(path string, kind EventKind) {
	w.mu.Lock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.send(Event{Path: path, Kind: kind})
}

func (w *Watcher) send(ev Event) {
	select {
	case w.out <- ev:
	case <-w.done:
	}
}

// Close stops the watcher loop, cancels pending debounce timers, and
// releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil // already closed
	default:
	}
	close(w.done)

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	return w.fsw.Close()
}

// ProjectKey returns the last path element of dir, used for log prefixes
// and diagnostics when a caller watches many project directories.
func ProjectKey(dir string) string {
	return filepath.Base(dir)
}
