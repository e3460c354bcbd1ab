// Package vfs implements a path-addressable tree of folders and payload-carrying leaves.
//
// A FileSystem owns all of its nodes. Paths are slash-delimited and resolved
// case-insensitively; sibling names are unique under Unicode case folding.
// The tree is not safe for concurrent mutation: callers serialise writers.
package vfs

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

// DefaultMaxNameLength bounds a single segment name, in runes.
const DefaultMaxNameLength = 255

// Option configures a FileSystem.
type Option func(*options)

type options struct {
	logger        *zap.Logger
	maxNameLength int
}

// WithLogger sets the logger used for structural changes.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxNameLength overrides DefaultMaxNameLength.
func WithMaxNameLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxNameLength = n
		}
	}
}

// FileSystem is a tree of folders and leaves carrying values of type T.
type FileSystem[T any] struct {
	root    *Folder[T]
	nextID  Identifier
	byID    map[Identifier]Node[T]
	logger  *zap.Logger
	maxName int

	observers    []observer[T]
	nextObserver int
}

// New creates an empty tree containing only the root folder.
func New[T any](opts ...Option) *FileSystem[T] {
	o := options{logger: zap.NewNop(), maxNameLength: DefaultMaxNameLength}
	for _, opt := range opts {
		opt(&o)
	}

	fs := &FileSystem[T]{
		byID:    make(map[Identifier]Node[T]),
		logger:  o.logger,
		maxName: o.maxNameLength,
	}
	fs.root = &Folder[T]{nodeBase: nodeBase[T]{owner: fs}}
	fs.byID[0] = fs.root
	return fs
}

// Root returns the root folder. It is never removed.
func (fs *FileSystem[T]) Root() *Folder[T] { return fs.root }

// Len returns the number of nodes below the root.
func (fs *FileSystem[T]) Len() int { return len(fs.byID) - 1 }

// ByID returns the attached node with the given identifier.
func (fs *FileSystem[T]) ByID(id Identifier) (Node[T], bool) {
	n, ok := fs.byID[id]
	return n, ok
}

// Find resolves a path. The empty path resolves to the root.
func (fs *FileSystem[T]) Find(path string) (Node[T], bool) {
	var current Node[T] = fs.root
	for _, segment := range SplitPath(path) {
		folder, ok := current.(*Folder[T])
		if !ok {
			return nil, false
		}
		child, ok := folder.Child(segment)
		if !ok {
			return nil, false
		}
		current = child
	}
	return current, true
}

// Attached reports whether n is still reachable from this tree's root.
func (fs *FileSystem[T]) Attached(n Node[T]) bool {
	if n == nil || n.base().owner != fs {
		return false
	}
	_, ok := fs.byID[n.Identifier()]
	return ok
}

// Equal reports whether two paths name the same node.
func (fs *FileSystem[T]) Equal(a, b string) bool { return Equal(a, b) }

// FindOrCreateAllFolders resolves path to a folder, creating every missing segment.
// It fails with ErrNameConflict when a segment names an existing leaf; in that
// case nothing is created.
func (fs *FileSystem[T]) FindOrCreateAllFolders(path string) (*Folder[T], error) {
	segments := SplitPath(path)
	deepest, missing, err := fs.resolveChain(segments)
	if err != nil {
		return nil, err
	}
	return fs.createChain(deepest, missing), nil
}

// CreateLeaf adds a leaf named name to parent.
func (fs *FileSystem[T]) CreateLeaf(parent *Folder[T], name string, value T) (*Leaf[T], error) {
	fs.mustOwn(parent)
	if !fs.Attached(parent) {
		return nil, &NotFoundError{Path: parent.FullName()}
	}
	if err := fs.validateName(name); err != nil {
		return nil, err
	}
	if existing, ok := parent.Child(name); ok {
		return nil, &ConflictError{Path: JoinPath(parent.FullName(), name), Existing: existing.Identifier()}
	}

	leaf := &Leaf[T]{value: value}
	fs.register(&leaf.nodeBase, leaf, name)
	parent.insert(leaf)

	fs.logger.Debug("leaf added", zap.Uint64("id", uint64(leaf.id)), zap.String("path", leaf.FullName()))
	fs.emit(Change[T]{Type: LeafAdded, Node: leaf, NewPath: leaf.FullName()})
	return leaf, nil
}

// AddLeaf inserts value at path, creating missing parent folders.
// Conflicts are detected before any folder is created.
func (fs *FileSystem[T]) AddLeaf(path string, value T) (*Leaf[T], error) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return nil, invalidOp("add leaf", path, "empty path")
	}
	name := segments[len(segments)-1]
	if err := fs.validateName(name); err != nil {
		return nil, err
	}
	deepest, missing, err := fs.resolveChain(segments[:len(segments)-1])
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		if existing, ok := deepest.Child(name); ok {
			return nil, &ConflictError{Path: JoinPath(segments...), Existing: existing.Identifier()}
		}
	}
	return fs.CreateLeaf(fs.createChain(deepest, missing), name, value)
}

// RenameAndMove relocates n so that its full path becomes newPath, creating
// missing folders on the way. Renaming a node to its current path is a no-op.
// The identifier is preserved.
func (fs *FileSystem[T]) RenameAndMove(n Node[T], newPath string) error {
	fs.mustOwn(n)
	if err := fs.checkMovable(n, "rename"); err != nil {
		return err
	}

	segments := SplitPath(newPath)
	if len(segments) == 0 {
		return invalidOp("rename", n.FullName(), "empty destination path")
	}
	name := segments[len(segments)-1]
	if err := fs.validateName(name); err != nil {
		return err
	}

	deepest, missing, err := fs.resolveChain(segments[:len(segments)-1])
	if err != nil {
		return err
	}
	if folder, ok := n.(*Folder[T]); ok && folder.Contains(deepest) {
		return invalidOp("rename", n.FullName(), "destination lies inside the folder itself")
	}
	if len(missing) == 0 {
		return fs.relocate(n, deepest, name)
	}
	return fs.relocate(n, fs.createChain(deepest, missing), name)
}

// Rename changes the name of n inside its current folder. Names may not contain separators.
func (fs *FileSystem[T]) Rename(n Node[T], name string) error {
	fs.mustOwn(n)
	if err := fs.checkMovable(n, "rename"); err != nil {
		return err
	}
	if err := fs.validateName(name); err != nil {
		return err
	}
	return fs.relocate(n, n.Parent(), name)
}

// Move places n into folder, keeping its name.
func (fs *FileSystem[T]) Move(n Node[T], folder *Folder[T]) error {
	fs.mustOwn(n)
	fs.mustOwn(folder)
	if err := fs.checkMovable(n, "move"); err != nil {
		return err
	}
	if !fs.Attached(folder) {
		return &NotFoundError{Path: folder.FullName()}
	}
	return fs.relocate(n, folder, n.Name())
}

// DragMove is Move for drag-and-drop style reordering, which locked nodes refuse.
func (fs *FileSystem[T]) DragMove(n Node[T], folder *Folder[T]) error {
	fs.mustOwn(n)
	if n.IsLocked() {
		return fmt.Errorf("drag %q: %w", n.FullName(), ErrLocked)
	}
	return fs.Move(n, folder)
}

// Delete removes n and, for folders, everything below it.
func (fs *FileSystem[T]) Delete(n Node[T]) error {
	fs.mustOwn(n)
	if err := fs.checkMovable(n, "delete"); err != nil {
		return err
	}

	path := n.FullName()
	n.Parent().remove(n)
	removed := fs.unregister(n)

	fs.logger.Debug("node removed", zap.String("path", path), zap.Int("count", removed))
	fs.emit(Change[T]{Type: ObjectRemoved, Node: n, OldPath: path})
	return nil
}

// ChangeLockState sets the lock flag. It never fails.
func (fs *FileSystem[T]) ChangeLockState(n Node[T], locked bool) {
	fs.mustOwn(n)
	b := n.base()
	if b.locked == locked {
		return
	}
	b.locked = locked
	fs.emit(Change[T]{Type: LockChanged, Node: n, NewPath: n.FullName()})
}

// Walk visits every attached node below the root in pre-order, children in
// lexicographic order. Returning false from fn skips the node's children.
func (fs *FileSystem[T]) Walk(fn func(n Node[T]) bool) {
	var walk func(f *Folder[T])
	walk = func(f *Folder[T]) {
		for _, child := range f.Children() {
			if !fn(child) {
				continue
			}
			if sub, ok := child.(*Folder[T]); ok {
				walk(sub)
			}
		}
	}
	walk(fs.root)
}

// Search returns the first node in Walk order for which match reports true.
// It stops as soon as a match is found.
func (fs *FileSystem[T]) Search(match func(n Node[T]) bool) (Node[T], bool) {
	var search func(f *Folder[T]) Node[T]
	search = func(f *Folder[T]) Node[T] {
		for _, child := range f.Children() {
			if match(child) {
				return child
			}
			if sub, ok := child.(*Folder[T]); ok {
				if found := search(sub); found != nil {
					return found
				}
			}
		}
		return nil
	}
	found := search(fs.root)
	return found, found != nil
}

// relocate attaches n to parent under name. All checks happen before the tree is touched.
func (fs *FileSystem[T]) relocate(n Node[T], parent *Folder[T], name string) error {
	if folder, ok := n.(*Folder[T]); ok && folder.Contains(parent) {
		return invalidOp("move", n.FullName(), "cannot move a folder into itself or its descendants")
	}
	if existing, ok := parent.Child(name); ok && existing != n {
		return &ConflictError{Path: JoinPath(parent.FullName(), name), Existing: existing.Identifier()}
	}
	if n.Parent() == parent && n.Name() == name {
		return nil
	}

	oldPath := n.FullName()
	n.Parent().remove(n)
	n.base().rename(name)
	parent.insert(n)
	newPath := n.FullName()

	fs.logger.Debug("node moved",
		zap.Uint64("id", uint64(n.Identifier())),
		zap.String("from", oldPath),
		zap.String("to", newPath),
	)
	fs.emit(Change[T]{Type: ObjectMoved, Node: n, OldPath: oldPath, NewPath: newPath})
	return nil
}

// resolveChain walks the existing prefix of segments. It returns the deepest
// existing folder and the segments that still need creating, or a conflict if
// a segment names a leaf.
func (fs *FileSystem[T]) resolveChain(segments []string) (*Folder[T], []string, error) {
	for _, segment := range segments {
		if err := fs.validateName(segment); err != nil {
			return nil, nil, err
		}
	}

	folder := fs.root
	for i, segment := range segments {
		child, ok := folder.Child(segment)
		if !ok {
			return folder, segments[i:], nil
		}
		switch c := child.(type) {
		case *Folder[T]:
			folder = c
		case *Leaf[T]:
			return nil, nil, &ConflictError{Path: JoinPath(segments[:i+1]...), Existing: c.id}
		}
	}
	return folder, nil, nil
}

func (fs *FileSystem[T]) createChain(parent *Folder[T], names []string) *Folder[T] {
	for _, name := range names {
		folder := &Folder[T]{}
		fs.register(&folder.nodeBase, folder, name)
		parent.insert(folder)

		fs.logger.Debug("folder added", zap.Uint64("id", uint64(folder.id)), zap.String("path", folder.FullName()))
		fs.emit(Change[T]{Type: FolderAdded, Node: folder, NewPath: folder.FullName()})
		parent = folder
	}
	return parent
}

func (fs *FileSystem[T]) register(b *nodeBase[T], n Node[T], name string) {
	fs.nextID++
	b.id = fs.nextID
	b.owner = fs
	b.rename(name)
	fs.byID[b.id] = n
}

func (fs *FileSystem[T]) unregister(n Node[T]) int {
	count := 1
	delete(fs.byID, n.Identifier())
	if folder, ok := n.(*Folder[T]); ok {
		for _, child := range folder.children {
			count += fs.unregister(child)
		}
	}
	return count
}

func (fs *FileSystem[T]) checkMovable(n Node[T], op string) error {
	if folder, ok := n.(*Folder[T]); ok && folder == fs.root {
		return invalidOp(op, "", "the root folder cannot be changed")
	}
	if !fs.Attached(n) {
		return &NotFoundError{Path: n.FullName()}
	}
	return nil
}

func (fs *FileSystem[T]) validateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, fs.maxName),
		validation.By(func(value interface{}) error {
			s, _ := value.(string)
			if len(SplitPath(s)) != 1 || SplitPath(s)[0] != s {
				return fmt.Errorf("must be a single segment without %q or surrounding spaces", Separator)
			}
			return nil
		}),
	)
	if err != nil {
		return invalidOp("name", name, err.Error())
	}
	return nil
}

// mustOwn panics when n belongs to another tree. Handing foreign nodes to a
// tree is a programming error, not a runtime condition.
func (fs *FileSystem[T]) mustOwn(n Node[T]) {
	if n == nil {
		panic("vfs: nil node")
	}
	if owner := n.base().owner; owner != fs {
		panic(fmt.Sprintf("vfs: node %q (id %d) belongs to a different tree", n.Name(), n.Identifier()))
	}
}
