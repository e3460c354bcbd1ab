package selector

import (
	"strings"

	"github.com/CageChen/marktree/internal/vfs"
	"github.com/sahilm/fuzzy"
)

// Filter returns the current filter text.
func (s *Selector[T]) Filter() string { return s.filter }

// SetFilter changes the filter text. Matching is fuzzy over full paths; the
// set of visible nodes is rebuilt at the start of the next render pass.
func (s *Selector[T]) SetFilter(text string) {
	text = strings.TrimSpace(text)
	if text == s.filter {
		return
	}
	s.filter = text
	s.filterDirty = true
}

// Visible reports whether n passes the filter.
func (s *Selector[T]) Visible(n vfs.Node[T]) bool {
	s.refreshFilter()
	if s.visible == nil {
		return true
	}
	_, ok := s.visible[n.Identifier()]
	return ok
}

func (s *Selector[T]) refreshFilter() {
	if !s.filterDirty {
		return
	}
	s.filterDirty = false

	if s.filter == "" {
		s.visible = nil
		return
	}

	var (
		paths []string
		nodes []vfs.Node[T]
	)
	s.fs.Walk(func(n vfs.Node[T]) bool {
		paths = append(paths, n.FullName())
		nodes = append(nodes, n)
		return true
	})

	s.visible = make(map[vfs.Identifier]struct{})
	for _, match := range fuzzy.Find(s.filter, paths) {
		n := nodes[match.Index]
		s.visible[n.Identifier()] = struct{}{}
		for p := n.Parent(); p != nil && !p.IsRoot(); p = p.Parent() {
			s.visible[p.Identifier()] = struct{}{}
		}
	}
}
