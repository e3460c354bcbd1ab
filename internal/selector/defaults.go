package selector

import (
	"strconv"
	"strings"

	"github.com/CageChen/marktree/internal/vfs"
)

// Priorities of the built-in entries.
const (
	PriorityExpandAll         = 1
	PriorityAddFolder         = 50
	PriorityDeleteSelection   = 100
	PriorityToggleDescendants = 100
	PriorityQuickMove         = 800
	PriorityLock              = 900
	PriorityDelete            = 950
	PriorityMerge             = 998
	PriorityDissolve          = 999
	PriorityRename            = 1000
)

func (s *Selector[T]) registerDefaults() {
	s.SubscribeRightClickFolder(PriorityToggleDescendants, FolderAction[T]{
		Key:     "expand-descendants",
		Label:   "Expand All Descendants",
		Tooltip: "Open this folder and every folder below it.",
		Run: func(folder *vfs.Folder[T], _ string) error {
			s.toggleLater(folder, true)
			return nil
		},
	})
	s.SubscribeRightClickFolder(PriorityToggleDescendants, FolderAction[T]{
		Key:     "collapse-descendants",
		Label:   "Collapse All Descendants",
		Tooltip: "Close this folder and every folder below it.",
		Run: func(folder *vfs.Folder[T], _ string) error {
			s.toggleLater(folder, false)
			return nil
		},
	})
	s.SubscribeRightClickFolder(PriorityQuickMove, FolderAction[T]{
		Key:     "set-quick-move",
		Label:   "Set as Quick Move Folder",
		Tooltip: "Input: slot number, 0 by default.",
		Run: func(folder *vfs.Folder[T], input string) error {
			slot, err := parseSlot(input)
			if err != nil {
				return err
			}
			return s.SetQuickMove(slot, folder)
		},
	})
	s.SubscribeRightClickFolder(PriorityLock, FolderAction[T]{
		Key:     "lock",
		Label:   "Toggle Lock",
		Tooltip: "Locked folders cannot be dragged.",
		Run: func(folder *vfs.Folder[T], _ string) error {
			s.SetLocked(folder, !folder.IsLocked())
			return nil
		},
	})
	s.SubscribeRightClickFolder(PriorityMerge, FolderAction[T]{
		Key:     "merge",
		Label:   "Merge Into",
		Tooltip: "Input: path of the folder receiving the children.",
		Run: func(folder *vfs.Folder[T], input string) error {
			s.deferOn("merge", func() error {
				_, err := s.fs.MergeInto(folder, input)
				return err
			}, folder)
			return nil
		},
	})
	s.SubscribeRightClickFolder(PriorityDissolve, FolderAction[T]{
		Key:     "dissolve",
		Label:   "Dissolve Folder",
		Tooltip: "Move all children into the parent folder and remove this one.",
		Run: func(folder *vfs.Folder[T], _ string) error {
			s.Dissolve(folder)
			return nil
		},
	})
	s.SubscribeRightClickFolder(PriorityRename, FolderAction[T]{
		Key:     "rename",
		Label:   "Rename Folder",
		Tooltip: "Input: new full path. Missing folders are created.",
		Run: func(folder *vfs.Folder[T], input string) error {
			s.RenameAndMove(folder, input)
			return nil
		},
	})

	s.SubscribeRightClickLeaf(PriorityQuickMove, LeafAction[T]{
		Key:     "quick-move",
		Label:   "Quick Move",
		Tooltip: "Input: slot number, 0 by default. Multi-selected leaves move too.",
		Run: func(leaf *vfs.Leaf[T], input string) error {
			slot, err := parseSlot(input)
			if err != nil {
				return err
			}
			return s.QuickMove(leaf, slot)
		},
	})
	s.SubscribeRightClickLeaf(PriorityLock, LeafAction[T]{
		Key:     "lock",
		Label:   "Toggle Lock",
		Tooltip: "Locked leaves cannot be dragged.",
		Run: func(leaf *vfs.Leaf[T], _ string) error {
			s.SetLocked(leaf, !leaf.IsLocked())
			return nil
		},
	})
	s.SubscribeRightClickLeaf(PriorityDelete, LeafAction[T]{
		Key:     "delete",
		Label:   "Delete",
		Tooltip: "Remove this leaf from the tree.",
		Run: func(leaf *vfs.Leaf[T], _ string) error {
			s.Delete(leaf)
			return nil
		},
	})
	s.SubscribeRightClickLeaf(PriorityRename, LeafAction[T]{
		Key:     "rename",
		Label:   "Rename",
		Tooltip: "Input: new full path. Missing folders are created.",
		Run: func(leaf *vfs.Leaf[T], input string) error {
			s.RenameAndMove(leaf, input)
			return nil
		},
	})

	s.SubscribeRightClickMain(PriorityExpandAll, Command{
		Key:   "expand-all",
		Label: "Expand All Folders",
		Run: func(string) error {
			s.ExpandAll()
			return nil
		},
	})
	s.SubscribeRightClickMain(PriorityExpandAll, Command{
		Key:   "collapse-all",
		Label: "Collapse All Folders",
		Run: func(string) error {
			s.CollapseAll()
			return nil
		},
	})
	s.SubscribeRightClickMain(PriorityQuickMove, Command{
		Key:     "clear-quick-move",
		Label:   "Clear Quick Move Folder",
		Tooltip: "Input: slot number, 0 by default.",
		Run: func(input string) error {
			slot, err := parseSlot(input)
			if err != nil {
				return err
			}
			return s.ClearQuickMove(slot)
		},
	})

	s.AddButton(PriorityAddFolder, Command{
		Key:     "add-folder",
		Label:   "Add Folder",
		Tooltip: "Input: path of the new folder.",
		Run: func(input string) error {
			s.CreateFolder(input)
			return nil
		},
	})
	s.AddButton(PriorityDeleteSelection, Command{
		Key:     "delete-selection",
		Label:   "Delete Selection",
		Tooltip: "Delete all multi-selected nodes, or the selected one.",
		Run: func(string) error {
			s.DeleteSelection()
			return nil
		},
	})
}

// toggleLater queues a descendant toggle tagged with the current render pass.
func (s *Selector[T]) toggleLater(folder *vfs.Folder[T], expand bool) {
	pass := s.pass
	s.deferOn("toggle-descendants", func() error {
		s.ToggleDescendants(folder, pass, expand)
		return nil
	}, folder)
}

func parseSlot(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	return strconv.Atoi(input)
}
