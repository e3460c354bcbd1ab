package vfs

import (
	"slices"
	"strings"
)

// Identifier is the creation-order tag of a node. The root is 0 and every
// created node takes the next value; values are never reused.
type Identifier uint64

// Kind distinguishes the two node variants.
type Kind uint8

// Node kinds.
const (
	KindFolder Kind = iota + 1
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Node is a *Folder[T] or a *Leaf[T]. The set is closed: the unexported
// method keeps other packages from adding variants, and tree algorithms
// type-switch on the concrete type.
type Node[T any] interface {
	Name() string
	Parent() *Folder[T]
	Identifier() Identifier
	IsLocked() bool
	FullName() string
	Depth() int
	Kind() Kind

	base() *nodeBase[T]
}

type nodeBase[T any] struct {
	name   string
	key    string // folded name, sibling ordering and lookup
	parent *Folder[T]
	id     Identifier
	locked bool
	owner  *FileSystem[T]
}

func (b *nodeBase[T]) base() *nodeBase[T] { return b }

// Name returns the node's own segment name.
func (b *nodeBase[T]) Name() string { return b.name }

// Parent returns the containing folder, nil for the root and for removed nodes.
func (b *nodeBase[T]) Parent() *Folder[T] { return b.parent }

// Identifier returns the creation-order identifier.
func (b *nodeBase[T]) Identifier() Identifier { return b.id }

// IsLocked reports whether the node refuses drag-style moves.
func (b *nodeBase[T]) IsLocked() bool { return b.locked }

// FullName returns the slash-joined names from the root (exclusive) to the node.
func (b *nodeBase[T]) FullName() string {
	if b.parent == nil {
		if b.owner != nil && b.owner.root.base() == b {
			return ""
		}
		return b.name
	}
	segments := []string{b.name}
	for p := b.parent; p != nil && p.parent != nil; p = p.parent {
		segments = append(segments, p.name)
	}
	slices.Reverse(segments)
	return strings.Join(segments, Separator)
}

// Depth returns the number of folders between the node and the root; root children are at depth 0.
func (b *nodeBase[T]) Depth() int {
	depth := -1
	for p := b.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

func (b *nodeBase[T]) rename(name string) {
	b.name = name
	b.key = foldName(name)
}

// Folder groups children and carries no payload.
type Folder[T any] struct {
	nodeBase[T]
	children []Node[T] // sorted by key
}

// Kind returns KindFolder.
func (f *Folder[T]) Kind() Kind { return KindFolder }

// IsRoot reports whether f is the root of its tree.
func (f *Folder[T]) IsRoot() bool {
	return f.owner != nil && f.owner.root == f
}

// Len returns the number of direct children.
func (f *Folder[T]) Len() int { return len(f.children) }

// Children returns the direct children in lexicographic order.
func (f *Folder[T]) Children() []Node[T] {
	return slices.Clone(f.children)
}

// Folders returns the direct subfolders in lexicographic order.
func (f *Folder[T]) Folders() []*Folder[T] {
	var folders []*Folder[T]
	for _, child := range f.children {
		if sub, ok := child.(*Folder[T]); ok {
			folders = append(folders, sub)
		}
	}
	return folders
}

// Leaves returns the direct leaves in lexicographic order.
func (f *Folder[T]) Leaves() []*Leaf[T] {
	var leaves []*Leaf[T]
	for _, child := range f.children {
		if leaf, ok := child.(*Leaf[T]); ok {
			leaves = append(leaves, leaf)
		}
	}
	return leaves
}

// Child looks up a direct child by name, case-insensitively.
func (f *Folder[T]) Child(name string) (Node[T], bool) {
	idx, ok := f.search(foldName(name))
	if !ok {
		return nil, false
	}
	return f.children[idx], true
}

// Contains reports whether n is f or lies somewhere below f.
func (f *Folder[T]) Contains(n Node[T]) bool {
	if n == nil {
		return false
	}
	if other, ok := n.(*Folder[T]); ok && other == f {
		return true
	}
	for p := n.Parent(); p != nil; p = p.parent {
		if p == f {
			return true
		}
	}
	return false
}

func (f *Folder[T]) search(key string) (int, bool) {
	return slices.BinarySearchFunc(f.children, key, func(n Node[T], k string) int {
		return strings.Compare(n.base().key, k)
	})
}

func (f *Folder[T]) insert(n Node[T]) {
	idx, _ := f.search(n.base().key)
	f.children = slices.Insert(f.children, idx, n)
	n.base().parent = f
}

func (f *Folder[T]) remove(n Node[T]) {
	idx := slices.Index(f.children, n)
	if idx < 0 {
		return
	}
	f.children = slices.Delete(f.children, idx, idx+1)
	n.base().parent = nil
}

// Leaf is a terminal node holding one payload value.
type Leaf[T any] struct {
	nodeBase[T]
	value T
}

// Kind returns KindLeaf.
func (l *Leaf[T]) Kind() Kind { return KindLeaf }

// Value returns the payload.
func (l *Leaf[T]) Value() T { return l.value }

// SetValue replaces the payload. It does not touch the tree structure.
func (l *Leaf[T]) SetValue(v T) { l.value = v }
