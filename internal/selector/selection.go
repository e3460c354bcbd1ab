package selector

import (
	"slices"

	"github.com/CageChen/marktree/internal/vfs"
)

// Select makes n the primary selection. The multi-selection is left alone.
// Selecting nil clears the primary selection.
func (s *Selector[T]) Select(n vfs.Node[T]) {
	if n == nil || !s.fs.Attached(n) {
		s.primary, s.hasPrimary = 0, false
		return
	}
	s.primary, s.hasPrimary = n.Identifier(), true
}

// Selected returns the primary selection.
func (s *Selector[T]) Selected() (vfs.Node[T], bool) {
	if !s.hasPrimary {
		return nil, false
	}
	n, ok := s.fs.ByID(s.primary)
	if !ok {
		s.primary, s.hasPrimary = 0, false
	}
	return n, ok
}

// SelectedLeaf returns the primary selection if it is a leaf.
func (s *Selector[T]) SelectedLeaf() (*vfs.Leaf[T], bool) {
	n, ok := s.Selected()
	if !ok {
		return nil, false
	}
	leaf, ok := n.(*vfs.Leaf[T])
	return leaf, ok
}

// ToggleMultiSelect adds n to or removes it from the multi-selection and
// reports whether it is selected afterwards.
func (s *Selector[T]) ToggleMultiSelect(n vfs.Node[T]) bool {
	if !s.fs.Attached(n) {
		return false
	}
	id := n.Identifier()
	if _, ok := s.multi[id]; ok {
		delete(s.multi, id)
		return false
	}
	s.multi[id] = struct{}{}
	return true
}

// IsMultiSelected reports whether n is part of the multi-selection.
func (s *Selector[T]) IsMultiSelected(n vfs.Node[T]) bool {
	_, ok := s.multi[n.Identifier()]
	return ok
}

// MultiSelected returns the multi-selection in identifier order.
func (s *Selector[T]) MultiSelected() []vfs.Node[T] {
	ids := make([]vfs.Identifier, 0, len(s.multi))
	for id := range s.multi {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	nodes := make([]vfs.Node[T], 0, len(ids))
	for _, id := range ids {
		if n, ok := s.fs.ByID(id); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// ClearSelection drops both the primary and the multi-selection.
func (s *Selector[T]) ClearSelection() {
	s.primary, s.hasPrimary = 0, false
	clear(s.multi)
}

// deletionTargets picks the multi-selection when it holds more than one
// node, the primary selection otherwise, and a lone multi-selected node last.
func (s *Selector[T]) deletionTargets() []vfs.Node[T] {
	multi := s.MultiSelected()
	if len(multi) > 1 {
		return multi
	}
	if n, ok := s.Selected(); ok {
		return []vfs.Node[T]{n}
	}
	return multi
}
