package selector

import (
	"fmt"
	"slices"

	"github.com/CageChen/marktree/internal/vfs"
)

// QuickMoveSlots returns a copy of the quick-move targets; empty strings are unset slots.
func (s *Selector[T]) QuickMoveSlots() []string { return slices.Clone(s.quickMove) }

// OnQuickMoveChange registers fn to be called whenever a slot changes, for persistence.
func (s *Selector[T]) OnQuickMoveChange(fn func(slots []string)) { s.onQuickMoveChange = fn }

// LoadQuickMoveSlots replaces the slot contents without firing the change hook.
func (s *Selector[T]) LoadQuickMoveSlots(paths []string) {
	for i := range s.quickMove {
		s.quickMove[i] = ""
		if i < len(paths) {
			s.quickMove[i] = vfs.JoinPath(paths[i])
		}
	}
}

// SetQuickMove points slot at folder.
func (s *Selector[T]) SetQuickMove(slot int, folder *vfs.Folder[T]) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	path := folder.FullName()
	if s.quickMove[slot] == path {
		return nil
	}
	s.quickMove[slot] = path
	s.quickMoveChanged()
	return nil
}

// ClearQuickMove empties slot. Clearing an empty slot does nothing.
func (s *Selector[T]) ClearQuickMove(slot int) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	if s.quickMove[slot] == "" {
		return nil
	}
	s.quickMove[slot] = ""
	s.quickMoveChanged()
	return nil
}

// QuickMove moves the other multi-selected leaves and then leaf into the
// folder named by slot, creating it if needed. Leaves already in the target
// are left where they are.
func (s *Selector[T]) QuickMove(leaf *vfs.Leaf[T], slot int) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	target := s.quickMove[slot]
	if target == "" {
		return fmt.Errorf("quick move slot %d: %w", slot, vfs.ErrNotFound)
	}

	var leaves []*vfs.Leaf[T]
	for _, n := range s.MultiSelected() {
		if other, ok := n.(*vfs.Leaf[T]); ok && other != leaf {
			leaves = append(leaves, other)
		}
	}
	leaves = append(leaves, leaf)

	for _, l := range leaves {
		l := l // per-iteration copy: go.mod targets go1.21 loop semantics
		s.deferOn("quick-move", func() error {
			if vfs.Equal(target, l.Parent().FullName()) {
				return nil
			}
			folder, err := s.fs.FindOrCreateAllFolders(target)
			if err != nil {
				return err
			}
			if err := s.fs.Move(l, folder); err != nil {
				return err
			}
			s.ExpandAncestors(l)
			return nil
		}, l)
	}
	return nil
}

func (s *Selector[T]) checkSlot(slot int) error {
	if slot < 0 || slot >= len(s.quickMove) {
		return fmt.Errorf("quick move slot %d out of range [0, %d)", slot, len(s.quickMove))
	}
	return nil
}

func (s *Selector[T]) quickMoveChanged() {
	if s.onQuickMoveChange != nil {
		s.onQuickMoveChange(s.QuickMoveSlots())
	}
}
