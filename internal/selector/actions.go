package selector

import (
	"errors"
	"fmt"

	"github.com/CageChen/marktree/internal/vfs"
	"go.uber.org/zap"
)

// ErrUnknownAction is returned by the Trigger methods for an unregistered key.
var ErrUnknownAction = errors.New("unknown action")

var errSkipped = errors.New("target detached")

// FolderAction is a context-menu entry shown for folders.
type FolderAction[T any] struct {
	Key     string
	Label   string
	Tooltip string
	Run     func(folder *vfs.Folder[T], input string) error
}

// LeafAction is a context-menu entry shown for leaves.
type LeafAction[T any] struct {
	Key     string
	Label   string
	Tooltip string
	Run     func(leaf *vfs.Leaf[T], input string) error
}

// Command is a whole-view context-menu entry or a bottom-bar button.
type Command struct {
	Key     string
	Label   string
	Tooltip string
	Run     func(input string) error
}

// SubscribeRightClickFolder registers a folder context action. Lower
// priorities come first; equal priorities keep registration order.
func (s *Selector[T]) SubscribeRightClickFolder(priority int, action FolderAction[T]) Token {
	return s.folderActions.add(priority, action)
}

// UnsubscribeRightClickFolder removes a folder context action.
func (s *Selector[T]) UnsubscribeRightClickFolder(token Token) bool {
	return s.folderActions.remove(token)
}

// SubscribeRightClickLeaf registers a leaf context action.
func (s *Selector[T]) SubscribeRightClickLeaf(priority int, action LeafAction[T]) Token {
	return s.leafActions.add(priority, action)
}

// UnsubscribeRightClickLeaf removes a leaf context action.
func (s *Selector[T]) UnsubscribeRightClickLeaf(token Token) bool {
	return s.leafActions.remove(token)
}

// SubscribeRightClickMain registers a whole-view context action.
func (s *Selector[T]) SubscribeRightClickMain(priority int, action Command) Token {
	return s.mainActions.add(priority, action)
}

// UnsubscribeRightClickMain removes a whole-view context action.
func (s *Selector[T]) UnsubscribeRightClickMain(token Token) bool {
	return s.mainActions.remove(token)
}

// AddButton registers a bottom-bar button.
func (s *Selector[T]) AddButton(priority int, button Command) Token {
	return s.buttons.add(priority, button)
}

// RemoveButton removes a bottom-bar button.
func (s *Selector[T]) RemoveButton(token Token) bool {
	return s.buttons.remove(token)
}

// FolderActions returns the folder context actions in display order.
func (s *Selector[T]) FolderActions() []FolderAction[T] { return s.folderActions.values() }

// LeafActions returns the leaf context actions in display order.
func (s *Selector[T]) LeafActions() []LeafAction[T] { return s.leafActions.values() }

// MainActions returns the whole-view context actions in display order.
func (s *Selector[T]) MainActions() []Command { return s.mainActions.values() }

// Buttons returns the bottom-bar buttons in display order.
func (s *Selector[T]) Buttons() []Command { return s.buttons.values() }

// TriggerFolderAction runs the first folder action registered under key.
func (s *Selector[T]) TriggerFolderAction(key string, folder *vfs.Folder[T], input string) error {
	for _, action := range s.folderActions.values() {
		if action.Key == key {
			return action.Run(folder, input)
		}
	}
	return fmt.Errorf("folder action %q: %w", key, ErrUnknownAction)
}

// TriggerLeafAction runs the first leaf action registered under key.
func (s *Selector[T]) TriggerLeafAction(key string, leaf *vfs.Leaf[T], input string) error {
	for _, action := range s.leafActions.values() {
		if action.Key == key {
			return action.Run(leaf, input)
		}
	}
	return fmt.Errorf("leaf action %q: %w", key, ErrUnknownAction)
}

// TriggerNodeAction dispatches to the folder or leaf action list depending on n.
func (s *Selector[T]) TriggerNodeAction(key string, n vfs.Node[T], input string) error {
	switch node := n.(type) {
	case *vfs.Folder[T]:
		return s.TriggerFolderAction(key, node, input)
	case *vfs.Leaf[T]:
		return s.TriggerLeafAction(key, node, input)
	default:
		return fmt.Errorf("action %q: %w", key, ErrUnknownAction)
	}
}

// TriggerMainAction runs the first whole-view action registered under key.
func (s *Selector[T]) TriggerMainAction(key, input string) error {
	return trigger(s.mainActions.values(), "main action", key, input)
}

// TriggerButton runs the first button registered under key.
func (s *Selector[T]) TriggerButton(key, input string) error {
	return trigger(s.buttons.values(), "button", key, input)
}

func trigger(commands []Command, kind, key, input string) error {
	for _, c := range commands {
		if c.Key == key {
			return c.Run(input)
		}
	}
	return fmt.Errorf("%s %q: %w", kind, key, ErrUnknownAction)
}

// deferOn queues fn and skips it at drain time when any target has left the tree.
func (s *Selector[T]) deferOn(name string, fn func() error, targets ...vfs.Node[T]) {
	s.Defer(name, func() error {
		for _, target := range targets {
			if !s.fs.Attached(target) {
				return errSkipped
			}
		}
		return fn()
	})
}

// RenameAndMove relocates n to path and opens the folders above its new location.
func (s *Selector[T]) RenameAndMove(n vfs.Node[T], path string) {
	s.deferOn("rename", func() error {
		if err := s.fs.RenameAndMove(n, path); err != nil {
			return err
		}
		s.ExpandAncestors(n)
		return nil
	}, n)
}

// Move places n into folder, keeping its name.
func (s *Selector[T]) Move(n vfs.Node[T], folder *vfs.Folder[T]) {
	s.deferOn("move", func() error {
		if err := s.fs.Move(n, folder); err != nil {
			return err
		}
		s.ExpandAncestors(n)
		return nil
	}, n, folder)
}

// Drop is the drag-and-drop variant of Move. Locked nodes refuse it.
func (s *Selector[T]) Drop(n vfs.Node[T], folder *vfs.Folder[T]) {
	s.deferOn("drop", func() error {
		if err := s.fs.DragMove(n, folder); err != nil {
			return err
		}
		s.ExpandAncestors(n)
		return nil
	}, n, folder)
}

// Merge moves the children of src into dst.
func (s *Selector[T]) Merge(src, dst *vfs.Folder[T]) {
	s.deferOn("merge", func() error {
		result, err := s.fs.Merge(src, dst)
		if err != nil {
			return err
		}
		if result != vfs.MergeSuccess {
			s.logger.Debug("merge incomplete", zap.Stringer("result", result), zap.String("source", src.FullName()))
		}
		return nil
	}, src, dst)
}

// Dissolve merges folder into its parent.
func (s *Selector[T]) Dissolve(folder *vfs.Folder[T]) {
	s.deferOn("dissolve", func() error {
		_, err := s.fs.Dissolve(folder)
		return err
	}, folder)
}

// Delete removes n, and its subtree for folders.
func (s *Selector[T]) Delete(n vfs.Node[T]) {
	s.deferOn("delete", func() error { return s.fs.Delete(n) }, n)
}

// DeleteSelection deletes the multi-selection if it holds more than one node,
// the primary selection otherwise. Targets are captured when the call is made.
func (s *Selector[T]) DeleteSelection() {
	for _, n := range s.deletionTargets() {
		s.Delete(n)
	}
}

// CreateFolder creates every missing folder of path, then selects and reveals the result.
func (s *Selector[T]) CreateFolder(path string) {
	s.Defer("create-folder", func() error {
		folder, err := s.fs.FindOrCreateAllFolders(path)
		if err != nil {
			return err
		}
		if folder.IsRoot() {
			return nil
		}
		s.ExpandAncestors(folder)
		s.Select(folder)
		return nil
	})
}

// SetLocked changes the lock flag of n immediately; it does not reshape the tree.
func (s *Selector[T]) SetLocked(n vfs.Node[T], locked bool) {
	if !s.fs.Attached(n) {
		return
	}
	s.fs.ChangeLockState(n, locked)
}
