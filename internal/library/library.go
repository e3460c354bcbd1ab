// Package library assembles the document tree: it scans the configured
// sources, restores the saved virtual layout, keeps the tree in step with
// watcher events and persists the layout after every change.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/CageChen/marktree/internal/metrics"
	"github.com/CageChen/marktree/internal/selector"
	"github.com/CageChen/marktree/internal/source"
	"github.com/CageChen/marktree/internal/store"
	"github.com/CageChen/marktree/internal/vfs"
	"github.com/CageChen/marktree/internal/watcher"
	"go.uber.org/zap"
)

// Tree is the document tree.
type Tree = vfs.FileSystem[source.Document]

// Node is a node of the document tree.
type Node = vfs.Node[source.Document]

// Selector is the controller over the document tree.
type Selector = selector.Selector[source.Document]

// Options configures Open.
type Options struct {
	Locations []source.Location
	Scanner   *source.Scanner
	Store     *store.Store // nil disables persistence
	SortMode  vfs.SortMode
	QuickMove []string // initial slots when the saved layout has none
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Notifier  selector.Notifier
	Opener    selector.Opener
}

// Library owns a document tree and its selector. All access is serialised.
type Library struct {
	mu        sync.Mutex
	fs        *Tree
	sel       *Selector
	sources   *source.Set
	scanner   *source.Scanner
	store     *store.Store
	metrics   *metrics.Metrics
	logger    *zap.Logger
	dirty     bool
	listeners []func()
}

// Open scans every location and builds the tree. Documents recorded in the
// saved layout go back to their saved paths; the rest are placed under
// "<source>/<relative path>".
func Open(ctx context.Context, opts Options) (*Library, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	set, err := source.NewSet(opts.Locations)
	if err != nil {
		return nil, err
	}

	l := &Library{
		fs:      vfs.New[source.Document](vfs.WithLogger(logger.Named("vfs"))),
		sources: set,
		scanner: opts.Scanner,
		store:   opts.Store,
		metrics: opts.Metrics,
		logger:  logger,
	}

	docs := make(map[string]source.Document)
	var order []string
	for _, loc := range opts.Locations {
		found, err := l.scanner.Scan(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("cannot scan source", zap.String("source", loc.Name()), zap.Error(err))
			continue
		}
		for _, doc := range found {
			docs[doc.Key()] = doc
			order = append(order, doc.Key())
		}
	}

	quickMove := opts.QuickMove
	if l.store != nil {
		snap, err := l.store.Load()
		if err != nil {
			return nil, err
		}
		report := store.Restore(l.fs, snap, func(key string) (source.Document, bool) {
			doc, ok := docs[key]
			return doc, ok
		})
		for key := range report.Placed {
			delete(docs, key)
		}
		if len(report.Missing) > 0 || len(report.Failed) > 0 {
			logger.Info("saved layout partially restored",
				zap.Int("missing", len(report.Missing)),
				zap.Strings("failed", report.Failed),
			)
		}
		if len(snap.QuickMove) > 0 {
			quickMove = snap.QuickMove
		}
	}

	for _, key := range order {
		doc, ok := docs[key]
		if !ok {
			continue
		}
		if _, err := l.fs.AddLeaf(doc.Key(), doc); err != nil {
			logger.Warn("cannot place document", zap.String("key", key), zap.Error(err))
		}
	}

	selOpts := []selector.Option{
		selector.WithSortMode(opts.SortMode),
		selector.WithLogger(logger.Named("selector")),
		selector.WithNotifier(opts.Notifier),
		selector.WithOpener(opts.Opener),
	}
	if opts.Metrics != nil {
		selOpts = append(selOpts, selector.WithObserver(opts.Metrics))
	}
	l.sel = selector.New(l.fs, selOpts...)
	l.sel.LoadQuickMoveSlots(quickMove)
	l.sel.OnQuickMoveChange(func([]string) { l.dirty = true })

	l.fs.Subscribe(func(c vfs.Change[source.Document]) {
		l.dirty = true
		if l.metrics != nil {
			l.metrics.TreeChanged(c.Type.String())
		}
	})
	l.publishSize()

	logger.Info("library opened",
		zap.Int("sources", len(opts.Locations)),
		zap.Int("nodes", l.fs.Len()),
	)
	return l, nil
}

// OnChange registers fn to run after every committed change to the layout
// or to a document. fn runs with the library lock held and must not call
// back into the library.
func (l *Library) OnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Do runs fn against the selector as a user interaction. Structural
// mutations fn requests are applied when it returns.
func (l *Library) Do(fn func(sel *Selector) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	l.sel.Interact(func() { err = fn(l.sel) })
	if commitErr := l.commit(); err == nil {
		err = commitErr
	}
	return err
}

// Render performs a render pass, calling visit for every visible row.
func (l *Library) Render(visit func(sel *Selector, row selector.Row[source.Document])) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sel.Walk(func(row selector.Row[source.Document]) { visit(l.sel, row) })
	return l.commit()
}

// View runs fn with the selector for read-only access.
func (l *Library) View(fn func(sel *Selector)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.sel)
}

// Entry is a leaf as seen at one moment, detached from later tree changes.
type Entry struct {
	ID       vfs.Identifier
	Name     string
	Path     string
	Document source.Document
}

// Read returns the leaf with the given identifier and the content of its
// document. The leaf is captured under the lock; the content is read after
// releasing it.
func (l *Library) Read(id vfs.Identifier) (Entry, []byte, error) {
	l.mu.Lock()
	n, ok := l.fs.ByID(id)
	if !ok {
		l.mu.Unlock()
		return Entry{}, nil, &vfs.NotFoundError{Path: fmt.Sprintf("#%d", id)}
	}
	leaf, ok := n.(*vfs.Leaf[source.Document])
	if !ok {
		l.mu.Unlock()
		return Entry{}, nil, errors.New("not a document")
	}
	entry := Entry{
		ID:       id,
		Name:     leaf.Name(),
		Path:     leaf.FullName(),
		Document: leaf.Value(),
	}
	l.mu.Unlock()

	content, err := l.sources.Read(entry.Document)
	return entry, content, err
}

// ApplyEvent brings the tree in line with a change on disk. Additions and
// removals go through the selector's queue like any other mutation.
func (l *Library) ApplyEvent(e watcher.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := source.Key(e.Source, e.RelPath)
	l.sel.Interact(func() {
		switch e.Op {
		case watcher.Created:
			if _, ok := l.findLeaf(key); ok {
				return
			}
			doc := l.describe(e.Source, e.RelPath)
			l.sel.Defer("add-document", func() error {
				_, err := l.fs.AddLeaf(key, doc)
				return err
			})
		case watcher.Changed:
			if leaf, ok := l.findLeaf(key); ok {
				leaf.SetValue(l.describe(e.Source, e.RelPath))
				l.dirty = true
			}
		case watcher.Removed:
			for _, leaf := range l.leavesUnder(key) {
				l.sel.Delete(leaf)
			}
		}
	})
	if err := l.commit(); err != nil {
		l.logger.Warn("cannot save layout", zap.Error(err))
	}
}

// Save writes the layout now.
func (l *Library) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirty = true
	return l.commit()
}

// Close releases the selector.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sel.Close()
}

// commit persists and announces pending changes.
func (l *Library) commit() error {
	if !l.dirty {
		return nil
	}
	l.dirty = false
	l.publishSize()
	for _, fn := range l.listeners {
		fn()
	}
	if l.store == nil {
		return nil
	}
	snap := store.Capture(l.fs, source.Document.Key)
	snap.QuickMove = l.sel.QuickMoveSlots()
	return l.store.Save(snap)
}

func (l *Library) publishSize() {
	if l.metrics == nil {
		return
	}
	folders, leaves := 0, 0
	l.fs.Walk(func(n Node) bool {
		if n.Kind() == vfs.KindFolder {
			folders++
		} else {
			leaves++
		}
		return true
	})
	l.metrics.SetTreeSize(folders, leaves)
}

func (l *Library) describe(src, rel string) source.Document {
	doc := source.Document{Source: src, RelPath: rel}
	if info, err := l.sources.Stat(doc); err == nil {
		doc.Size, doc.ModTime = info.Size, info.ModTime
	}
	return doc
}

func (l *Library) findLeaf(key string) (*vfs.Leaf[source.Document], bool) {
	n, ok := l.fs.Search(func(n Node) bool {
		leaf, ok := n.(*vfs.Leaf[source.Document])
		return ok && leaf.Value().Key() == key
	})
	if !ok {
		return nil, false
	}
	return n.(*vfs.Leaf[source.Document]), true
}

// leavesUnder returns the leaf with key and every leaf whose key lies below
// key as a directory.
func (l *Library) leavesUnder(key string) []*vfs.Leaf[source.Document] {
	var leaves []*vfs.Leaf[source.Document]
	l.fs.Walk(func(n Node) bool {
		if leaf, ok := n.(*vfs.Leaf[source.Document]); ok {
			k := leaf.Value().Key()
			if k == key || strings.HasPrefix(k, key+"/") {
				leaves = append(leaves, leaf)
			}
		}
		return true
	})
	return leaves
}
