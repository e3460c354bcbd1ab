package selector

import (
	"github.com/CageChen/marktree/internal/vfs"
	"go.uber.org/zap"
)

// IsExpanded reports whether folder is rendered open. The root always is.
func (s *Selector[T]) IsExpanded(folder *vfs.Folder[T]) bool {
	if folder.IsRoot() {
		return true
	}
	_, ok := s.expanded[folder.Identifier()]
	return ok
}

// SetExpanded opens or closes a single folder.
func (s *Selector[T]) SetExpanded(folder *vfs.Folder[T], expanded bool) {
	if folder.IsRoot() || !s.fs.Attached(folder) {
		return
	}
	if expanded {
		s.expanded[folder.Identifier()] = struct{}{}
	} else {
		delete(s.expanded, folder.Identifier())
	}
}

// ExpandAncestors opens every folder above n and reports whether anything changed.
func (s *Selector[T]) ExpandAncestors(n vfs.Node[T]) bool {
	changed := false
	for p := n.Parent(); p != nil && !p.IsRoot(); p = p.Parent() {
		if _, ok := s.expanded[p.Identifier()]; !ok {
			s.expanded[p.Identifier()] = struct{}{}
			changed = true
		}
	}
	if changed {
		s.filterDirty = true
	}
	return changed
}

// ToggleDescendants opens or closes folder and every folder below it.
// A passIndex of -1 always applies. Any other value must equal the current
// render pass and folder must still be attached, otherwise the request is
// stale and ignored. It reports whether the request was applied.
func (s *Selector[T]) ToggleDescendants(folder *vfs.Folder[T], passIndex int, expand bool) bool {
	if passIndex != -1 && passIndex != s.pass {
		s.logger.Debug("stale expansion request ignored",
			zap.Int("queued_pass", passIndex),
			zap.Int("pass", s.pass),
		)
		return false
	}
	if !s.fs.Attached(folder) {
		return false
	}

	var toggle func(f *vfs.Folder[T])
	toggle = func(f *vfs.Folder[T]) {
		s.SetExpanded(f, expand)
		for _, sub := range f.Folders() {
			toggle(sub)
		}
	}
	toggle(folder)
	return true
}

// ExpandAll opens every folder in the tree.
func (s *Selector[T]) ExpandAll() { s.ToggleDescendants(s.fs.Root(), -1, true) }

// CollapseAll closes every folder in the tree.
func (s *Selector[T]) CollapseAll() { s.ToggleDescendants(s.fs.Root(), -1, false) }
