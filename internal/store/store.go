// Package store persists the virtual layout of a tree as YAML.
//
// A snapshot records every folder, every leaf together with a key naming its
// payload, and the lock flags. Each entry carries the identifier it had when
// captured; Restore recreates nodes in that order so siblings keep their
// relative identifier order.
package store

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/CageChen/marktree/internal/vfs"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Version is the snapshot format written by Save.
const Version = 1

// FolderEntry is a persisted folder.
type FolderEntry struct {
	ID     uint64 `yaml:"id,omitempty"`
	Path   string `yaml:"path"`
	Locked bool   `yaml:"locked,omitempty"`
}

// LeafEntry is a persisted leaf. Key identifies the payload.
type LeafEntry struct {
	ID     uint64 `yaml:"id,omitempty"`
	Path   string `yaml:"path"`
	Key    string `yaml:"key"`
	Locked bool   `yaml:"locked,omitempty"`
}

// Snapshot is the persisted layout.
type Snapshot struct {
	Version   int           `yaml:"version"`
	QuickMove []string      `yaml:"quick_move,omitempty"`
	Folders   []FolderEntry `yaml:"folders,omitempty"`
	Leaves    []LeafEntry   `yaml:"leaves,omitempty"`
}

// Empty reports whether the snapshot holds no layout.
func (s *Snapshot) Empty() bool { return len(s.Folders) == 0 && len(s.Leaves) == 0 }

// Capture records the layout of fs. key maps a leaf payload to a stable key.
func Capture[T any](fs *vfs.FileSystem[T], key func(T) string) *Snapshot {
	var nodes []vfs.Node[T]
	fs.Walk(func(n vfs.Node[T]) bool {
		nodes = append(nodes, n)
		return true
	})
	slices.SortFunc(nodes, func(a, b vfs.Node[T]) int {
		return cmp.Compare(a.Identifier(), b.Identifier())
	})

	snap := &Snapshot{Version: Version}
	for _, n := range nodes {
		switch n := n.(type) {
		case *vfs.Folder[T]:
			snap.Folders = append(snap.Folders, FolderEntry{
				ID:     uint64(n.Identifier()),
				Path:   n.FullName(),
				Locked: n.IsLocked(),
			})
		case *vfs.Leaf[T]:
			snap.Leaves = append(snap.Leaves, LeafEntry{
				ID:     uint64(n.Identifier()),
				Path:   n.FullName(),
				Key:    key(n.Value()),
				Locked: n.IsLocked(),
			})
		}
	}
	return snap
}

// Report summarises a Restore.
type Report struct {
	Folders int
	Leaves  int
	Placed  map[string]bool // keys that were restored
	Missing []string        // keys the resolver no longer knows
	Failed  []string        // paths that could not be recreated
}

// Restore recreates the layout of snap in fs. resolve returns the payload for
// a leaf key; unknown keys are reported as missing. Entries that conflict
// with the current tree are reported as failed and skipped.
//
// Entries are replayed in captured identifier order. An entry whose parent
// folder is itself recorded but not yet replayed waits for it, so a parent
// created after its children were captured does not jump ahead of its
// earlier siblings.
func Restore[T any](fs *vfs.FileSystem[T], snap *Snapshot, resolve func(key string) (T, bool)) Report {
	r := restorer[T]{
		fs:      fs,
		resolve: resolve,
		pending: make(map[string]bool),
		waiting: make(map[string][]entry),
		report:  Report{Placed: make(map[string]bool)},
	}

	entries := make([]entry, 0, len(snap.Folders)+len(snap.Leaves))
	for i := range snap.Folders {
		f := &snap.Folders[i]
		path := vfs.JoinPath(f.Path)
		entries = append(entries, entry{id: f.ID, path: path, folder: f})
		if path != "" {
			r.pending[path] = true
		}
	}
	for i := range snap.Leaves {
		l := &snap.Leaves[i]
		entries = append(entries, entry{id: l.ID, path: vfs.JoinPath(l.Path), leaf: l})
	}
	// Stable, so snapshots without identifiers replay folders first in file order.
	slices.SortStableFunc(entries, func(a, b entry) int { return cmp.Compare(a.id, b.id) })

	for _, e := range entries {
		if parent := parentPath(e.path); r.pending[parent] {
			r.waiting[parent] = append(r.waiting[parent], e)
			continue
		}
		r.place(e)
	}
	return r.report
}

// entry is a folder or leaf entry in replay order.
type entry struct {
	id     uint64
	path   string
	folder *FolderEntry
	leaf   *LeafEntry
}

type restorer[T any] struct {
	fs      *vfs.FileSystem[T]
	resolve func(key string) (T, bool)
	pending map[string]bool    // recorded folders not yet replayed
	waiting map[string][]entry // entries held back until their parent is replayed
	report  Report
}

func (r *restorer[T]) place(e entry) {
	if e.folder == nil {
		r.placeLeaf(e.leaf)
		return
	}

	r.placeFolder(e.folder)
	delete(r.pending, e.path)
	held := r.waiting[e.path]
	delete(r.waiting, e.path)
	for _, w := range held {
		r.place(w)
	}
}

func (r *restorer[T]) placeFolder(fe *FolderEntry) {
	folder, err := r.fs.FindOrCreateAllFolders(fe.Path)
	if err != nil {
		r.report.Failed = append(r.report.Failed, fe.Path)
		return
	}
	if fe.Locked {
		r.fs.ChangeLockState(folder, true)
	}
	r.report.Folders++
}

func (r *restorer[T]) placeLeaf(le *LeafEntry) {
	if r.report.Placed[le.Key] {
		r.report.Failed = append(r.report.Failed, le.Path)
		return
	}
	value, ok := r.resolve(le.Key)
	if !ok {
		r.report.Missing = append(r.report.Missing, le.Key)
		return
	}
	leaf, err := r.fs.AddLeaf(le.Path, value)
	if err != nil {
		r.report.Failed = append(r.report.Failed, le.Path)
		return
	}
	if le.Locked {
		r.fs.ChangeLockState(leaf, true)
	}
	r.report.Placed[le.Key] = true
	r.report.Leaves++
}

func parentPath(path string) string {
	segments := vfs.SplitPath(path)
	if len(segments) <= 1 {
		return ""
	}
	return vfs.JoinPath(segments[:len(segments)-1]...)
}

// Store reads and writes snapshots at a file path.
type Store struct {
	path   string
	logger *zap.Logger
}

// New returns a store backed by path.
func New(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot. A missing file yields an empty snapshot.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Snapshot{Version: Version}, nil
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("parse %s: unsupported version %d", s.path, snap.Version)
	}
	return &snap, nil
}

// Save writes snap atomically.
func (s *Store) Save(snap *Snapshot) error {
	snap.Version = Version
	data, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".marktree-state-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	s.logger.Debug("layout saved",
		zap.String("path", s.path),
		zap.Int("folders", len(snap.Folders)),
		zap.Int("leaves", len(snap.Leaves)),
	)
	return nil
}
