package vfs

import (
	"fmt"
	"slices"
	"strings"
)

// SortMode is a stateless ordering policy over a folder's children.
type SortMode uint8

// The available sort modes.
const (
	FoldersFirst SortMode = iota
	Lexicographical
	InverseFoldersFirst
	InverseLexicographical
	FoldersLast
	InverseFoldersLast
	InternalOrder
	InverseInternalOrder
)

type sortModeInfo struct {
	key         string
	name        string
	description string
}

var sortModes = [...]sortModeInfo{
	FoldersFirst:           {"folders_first", "Folders First", "In each folder, sort all subfolders lexicographically, then sort all leaves lexicographically."},
	Lexicographical:        {"lexicographical", "Lexicographical", "In each folder, sort all children lexicographically."},
	InverseFoldersFirst:    {"inverse_folders_first", "Folders First (Inverted)", "In each folder, sort all subfolders inverse-lexicographically, then sort all leaves inverse-lexicographically."},
	InverseLexicographical: {"inverse_lexicographical", "Lexicographical (Inverted)", "In each folder, sort all children inverse-lexicographically."},
	FoldersLast:            {"folders_last", "Folders Last", "In each folder, sort all leaves lexicographically, then sort all subfolders lexicographically."},
	InverseFoldersLast:     {"inverse_folders_last", "Folders Last (Inverted)", "In each folder, sort all leaves inverse-lexicographically, then sort all subfolders inverse-lexicographically."},
	InternalOrder:          {"internal_order", "Internal Order", "In each folder, sort all children in order of creation."},
	InverseInternalOrder:   {"inverse_internal_order", "Internal Order (Inverted)", "In each folder, sort all children in reverse order of creation."},
}

// SortModes returns every mode in declaration order.
func SortModes() []SortMode {
	modes := make([]SortMode, len(sortModes))
	for i := range sortModes {
		modes[i] = SortMode(i)
	}
	return modes
}

// Valid reports whether m is a known mode.
func (m SortMode) Valid() bool { return int(m) < len(sortModes) }

// Name is the human-readable label.
func (m SortMode) Name() string {
	if !m.Valid() {
		return "Unknown"
	}
	return sortModes[m].name
}

// Description explains the ordering for tooltips.
func (m SortMode) Description() string {
	if !m.Valid() {
		return ""
	}
	return sortModes[m].description
}

// String returns the stable key used in configuration files.
func (m SortMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("sort_mode(%d)", uint8(m))
	}
	return sortModes[m].key
}

// ParseSortMode accepts a key such as "folders_first" or a display name, ignoring case.
func ParseSortMode(s string) (SortMode, error) {
	s = strings.TrimSpace(s)
	for i, info := range sortModes {
		if strings.EqualFold(s, info.key) || strings.EqualFold(s, info.name) {
			return SortMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sort mode %q", s)
}

func (m SortMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("unknown sort mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *SortMode) UnmarshalText(text []byte) error {
	mode, err := ParseSortMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ChildrenBy returns f's direct children ordered by mode. The returned slice is fresh.
func (f *Folder[T]) ChildrenBy(mode SortMode) []Node[T] {
	switch mode {
	case Lexicographical:
		return f.Children()
	case InverseLexicographical:
		children := f.Children()
		slices.Reverse(children)
		return children
	case FoldersFirst, InverseFoldersFirst, FoldersLast, InverseFoldersLast:
		folders, leaves := f.partition()
		if mode == InverseFoldersFirst || mode == InverseFoldersLast {
			slices.Reverse(folders)
			slices.Reverse(leaves)
		}
		if mode == FoldersLast || mode == InverseFoldersLast {
			return append(leaves, folders...)
		}
		return append(folders, leaves...)
	case InternalOrder, InverseInternalOrder:
		children := f.Children()
		slices.SortFunc(children, func(a, b Node[T]) int {
			if mode == InverseInternalOrder {
				a, b = b, a
			}
			switch {
			case a.Identifier() < b.Identifier():
				return -1
			case a.Identifier() > b.Identifier():
				return 1
			}
			return 0
		})
		return children
	default:
		return f.Children()
	}
}

func (f *Folder[T]) partition() (folders, leaves []Node[T]) {
	for _, child := range f.children {
		switch child.(type) {
		case *Folder[T]:
			folders = append(folders, child)
		case *Leaf[T]:
			leaves = append(leaves, child)
		}
	}
	return folders, leaves
}
