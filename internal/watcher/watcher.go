// Package watcher monitors document sources and reports document changes via callbacks.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CageChen/marktree/internal/source"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Op is the kind of change.
type Op int

// Document change kinds. A rename is reported as Removed for the old name
// and Created for the new one.
const (
	Created Op = iota
	Changed
	Removed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event is a change to a document, or for Removed possibly to a whole
// directory, within a source.
type Event struct {
	Op      Op
	Source  string
	RelPath string
}

// Callback is a function called when documents change
type Callback func(Event)

// Watcher monitors the on-disk locations of a source set
type Watcher struct {
	watcher   *fsnotify.Watcher
	scanner   *source.Scanner
	locations []source.Location
	logger    *zap.Logger
	callbacks []Callback
	mu        sync.RWMutex
	done      chan struct{}
	stopOnce  sync.Once
}

// New creates a watcher for the watchable locations. Git locations read from
// the object database and are skipped.
func New(locations []source.Location, scanner *source.Scanner, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var watchable []source.Location
	for _, loc := range locations {
		if loc.Watchable() {
			watchable = append(watchable, loc)
		}
	}

	return &Watcher{
		watcher:   w,
		scanner:   scanner,
		locations: watchable,
		logger:    logger.Named("watcher"),
		done:      make(chan struct{}),
	}, nil
}

// OnChange registers a callback for document change events
func (w *Watcher) OnChange(cb Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start adds watches for every directory below the locations and begins
// delivering events on a background goroutine.
func (w *Watcher) Start() error {
	for _, loc := range w.locations {
		w.addTree(loc, loc.Dir())
	}
	go w.eventLoop()
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

// addTree watches dir and every non-excluded directory below it. It returns
// the documents found on the way, relative to the location.
func (w *Watcher) addTree(loc source.Location, dir string) []string {
	var docs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, ok := w.relative(loc, path)
		if !ok {
			return nil
		}
		if d.IsDir() {
			if rel != "" && w.scanner.Excluded(loc, rel) {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("cannot watch directory", zap.String("dir", path), zap.Error(err))
			}
			return nil
		}
		if w.scanner.Includes(loc, rel) {
			docs = append(docs, rel)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("failed to walk directory", zap.String("dir", dir), zap.Error(err))
	}
	return docs
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
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
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	loc, rel, ok := w.locate(event.Name)
	if !ok || rel == "" {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			if w.scanner.Excluded(loc, rel) {
				return
			}
			// Files moved in together with the directory produce no events of their own.
			for _, doc := range w.addTree(loc, event.Name) {
				w.dispatch(Event{Op: Created, Source: loc.Name(), RelPath: doc})
			}
			return
		}
		if w.scanner.Includes(loc, rel) {
			w.dispatch(Event{Op: Created, Source: loc.Name(), RelPath: rel})
		}
	case event.Has(fsnotify.Write):
		if w.scanner.Includes(loc, rel) {
			w.dispatch(Event{Op: Changed, Source: loc.Name(), RelPath: rel})
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// The path is gone, so a directory cannot be told apart from a file.
		if w.scanner.Includes(loc, rel) || !w.scanner.IsDocument(rel) {
			w.dispatch(Event{Op: Removed, Source: loc.Name(), RelPath: rel})
		}
	}
}

func (w *Watcher) dispatch(e Event) {
	w.logger.Debug("document event",
		zap.Stringer("op", e.Op),
		zap.String("source", e.Source),
		zap.String("path", e.RelPath),
	)

	w.mu.RLock()
	callbacks := make([]Callback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(e)
	}
}

// locate finds the location containing path.
func (w *Watcher) locate(path string) (source.Location, string, bool) {
	for _, loc := range w.locations {
		if rel, ok := w.relative(loc, path); ok {
			return loc, rel, true
		}
	}
	return source.Location{}, "", false
}

func (w *Watcher) relative(loc source.Location, path string) (string, bool) {
	rel, err := filepath.Rel(loc.Dir(), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
