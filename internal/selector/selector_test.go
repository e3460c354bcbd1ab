package selector

import (
	"errors"
	"testing"

	"github.com/CageChen/marktree/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	action  string
	outcome string
}

type recordingObserver struct {
	outcomes []outcome
	drained  []int
}

func (r *recordingObserver) ActionCompleted(action, result string) {
	r.outcomes = append(r.outcomes, outcome{action, result})
}

func (r *recordingObserver) QueueDrained(n int) { r.drained = append(r.drained, n) }

type failingOpener struct{ err error }

func (f failingOpener) Open(string) error { return f.err }

func newTree(t *testing.T, paths ...string) *vfs.FileSystem[string] {
	t.Helper()
	fs := vfs.New[string]()
	for _, p := range paths {
		_, err := fs.AddLeaf(p, p)
		require.NoError(t, err)
	}
	return fs
}

func mustFind[T any](t *testing.T, fs *vfs.FileSystem[T], path string) vfs.Node[T] {
	t.Helper()
	n, ok := fs.Find(path)
	require.True(t, ok, "missing %q", path)
	return n
}

func rowNames(s *Selector[string]) []string {
	var names []string
	s.Walk(func(row Row[string]) { names = append(names, row.Node.Name()) })
	return names
}

func TestWalk_DefersInFIFOOrder(t *testing.T) {
	fs := newTree(t, "a/b/c/leaf1", "a/b/leaf2", "a/leaf3")
	obs := &recordingObserver{}
	s := New(fs, WithObserver(obs))
	s.ExpandAll()

	leaf1 := mustFind(t, fs, "a/b/c/leaf1")
	b := mustFind(t, fs, "a/b")
	size := fs.Len()

	var order []string
	var rows []string
	s.Walk(func(row Row[string]) {
		rows = append(rows, row.Node.FullName())
		assert.Equal(t, size, fs.Len(), "tree must not change during a walk")
		if row.Index != 0 {
			return
		}
		s.Defer("first", func() error { order = append(order, "first"); return nil })
		s.Delete(b)
		s.Defer("second", func() error { order = append(order, "second"); return nil })
		s.RenameAndMove(leaf1, "moved/leaf1")
		s.Defer("third", func() error {
			order = append(order, "third")
			assert.False(t, fs.Attached(b), "later actions observe earlier ones")
			return nil
		})
		assert.Equal(t, 5, s.Pending())
	})

	assert.Equal(t, []string{"a", "a/b", "a/b/c", "a/b/c/leaf1", "a/b/leaf2", "a/leaf3"}, rows)
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.Walking())

	assert.False(t, fs.Attached(leaf1))
	_, ok := fs.Find("moved")
	assert.False(t, ok, "skipped action must not create folders")
	mustFind(t, fs, "a/leaf3")

	assert.Equal(t, []outcome{
		{"first", OutcomeApplied},
		{"delete", OutcomeApplied},
		{"second", OutcomeApplied},
		{"rename", OutcomeSkipped},
		{"third", OutcomeApplied},
	}, obs.outcomes)
	assert.Equal(t, []int{5}, obs.drained)
}

func TestDefer_ImmediateOutsideWalk(t *testing.T) {
	fs := newTree(t, "leaf")
	s := New(fs)

	ran := false
	s.Defer("now", func() error { ran = true; return nil })
	assert.True(t, ran)
	assert.Equal(t, 0, s.Pending())
}

func TestDefer_ErrorsAreSwallowed(t *testing.T) {
	fs := newTree(t, "a/leaf", "b/leaf")
	obs := &recordingObserver{}
	s := New(fs, WithObserver(obs))
	leaf := mustFind(t, fs, "a/leaf")

	s.Interact(func() { s.RenameAndMove(leaf, "b/LEAF") })

	assert.Equal(t, "a/leaf", leaf.FullName())
	require.Len(t, obs.outcomes, 1)
	assert.Equal(t, OutcomeFailed, obs.outcomes[0].outcome)
}

func TestInteract_RenameRevealsNode(t *testing.T) {
	fs := newTree(t, "leaf")
	s := New(fs)
	leaf := mustFind(t, fs, "leaf")
	s.Select(leaf)

	s.Interact(func() {
		s.RenameAndMove(leaf, "new/dir/leaf")
		assert.Equal(t, "leaf", leaf.FullName(), "deferred until the interaction ends")
	})

	assert.Equal(t, "new/dir/leaf", leaf.FullName())
	assert.True(t, s.IsExpanded(mustFind(t, fs, "new").(*vfs.Folder[string])))
	assert.True(t, s.IsExpanded(mustFind(t, fs, "new/dir").(*vfs.Folder[string])))

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Same(t, leaf, selected)
}

func TestDeleteSoleMultiSelected(t *testing.T) {
	fs := newTree(t, "x", "y")
	s := New(fs)
	x, y := mustFind(t, fs, "x"), mustFind(t, fs, "y")

	s.Select(x)
	require.True(t, s.ToggleMultiSelect(y))

	s.Interact(func() { s.Delete(y) })

	assert.Empty(t, s.MultiSelected())
	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Same(t, x, selected)
}

func TestDeleteSelection(t *testing.T) {
	t.Run("multi-selection with several members", func(t *testing.T) {
		fs := newTree(t, "x", "y", "z")
		s := New(fs)
		s.Select(mustFind(t, fs, "x"))
		s.ToggleMultiSelect(mustFind(t, fs, "y"))
		s.ToggleMultiSelect(mustFind(t, fs, "z"))

		s.Interact(s.DeleteSelection)

		assert.Equal(t, 1, fs.Len())
		mustFind(t, fs, "x")
		_, ok := s.Selected()
		assert.True(t, ok)
	})

	t.Run("primary selection", func(t *testing.T) {
		fs := newTree(t, "x", "y")
		s := New(fs)
		s.Select(mustFind(t, fs, "x"))
		s.ToggleMultiSelect(mustFind(t, fs, "y"))

		require.NoError(t, s.TriggerButton("delete-selection", ""))

		_, ok := fs.Find("x")
		assert.False(t, ok)
		mustFind(t, fs, "y")
		_, ok = s.Selected()
		assert.False(t, ok)
	})

	t.Run("lone multi-selected node", func(t *testing.T) {
		fs := newTree(t, "x", "y")
		s := New(fs)
		s.ToggleMultiSelect(mustFind(t, fs, "y"))

		s.DeleteSelection()

		assert.Equal(t, 1, fs.Len())
		assert.Empty(t, s.MultiSelected())
	})

	t.Run("folder and its child", func(t *testing.T) {
		fs := newTree(t, "dir/leaf", "other")
		obs := &recordingObserver{}
		s := New(fs, WithObserver(obs))
		s.ToggleMultiSelect(mustFind(t, fs, "dir"))
		s.ToggleMultiSelect(mustFind(t, fs, "dir/leaf"))

		s.Interact(s.DeleteSelection)

		assert.Equal(t, 1, fs.Len())
		assert.Equal(t, []outcome{{"delete", OutcomeApplied}, {"delete", OutcomeSkipped}}, obs.outcomes)
	})
}

func TestSelection(t *testing.T) {
	fs := newTree(t, "dir/leaf")
	s := New(fs)
	dir := mustFind(t, fs, "dir")
	leaf := mustFind(t, fs, "dir/leaf")

	s.Select(dir)
	_, ok := s.SelectedLeaf()
	assert.False(t, ok)
	assert.Empty(t, s.MultiSelected(), "selecting does not multi-select")

	s.Select(leaf)
	selectedLeaf, ok := s.SelectedLeaf()
	require.True(t, ok)
	assert.Same(t, leaf, selectedLeaf)

	assert.True(t, s.ToggleMultiSelect(dir))
	assert.False(t, s.ToggleMultiSelect(dir))

	s.ToggleMultiSelect(dir)
	s.ClearSelection()
	assert.Empty(t, s.MultiSelected())
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestPriorityLists(t *testing.T) {
	s := New(vfs.New[string](), WithoutDefaults())
	button := func(key string) Command { return Command{Key: key, Run: func(string) error { return nil }} }
	keys := func() []string {
		var out []string
		for _, b := range s.Buttons() {
			out = append(out, b.Key)
		}
		return out
	}

	s.AddButton(10, button("a"))
	s.AddButton(5, button("b"))
	s.AddButton(10, button("c"))
	d := s.AddButton(5, button("d"))
	s.AddButton(-1, button("e"))
	assert.Equal(t, []string{"e", "b", "d", "a", "c"}, keys())

	assert.True(t, s.RemoveButton(d))
	assert.False(t, s.RemoveButton(d))
	assert.Equal(t, []string{"e", "b", "a", "c"}, keys())

	s.AddButton(5, button("f"))
	assert.Equal(t, []string{"e", "b", "f", "a", "c"}, keys(), "late registrations go after earlier ones of equal priority")
}

func TestDefaultActions(t *testing.T) {
	s := New(vfs.New[string]())

	var folderKeys, leafKeys, mainKeys, buttonKeys []string
	for _, a := range s.FolderActions() {
		folderKeys = append(folderKeys, a.Key)
	}
	for _, a := range s.LeafActions() {
		leafKeys = append(leafKeys, a.Key)
	}
	for _, a := range s.MainActions() {
		mainKeys = append(mainKeys, a.Key)
	}
	for _, a := range s.Buttons() {
		buttonKeys = append(buttonKeys, a.Key)
	}

	assert.Equal(t, []string{"expand-descendants", "collapse-descendants", "set-quick-move", "lock", "merge", "dissolve", "rename"}, folderKeys)
	assert.Equal(t, []string{"quick-move", "lock", "delete", "rename"}, leafKeys)
	assert.Equal(t, []string{"expand-all", "collapse-all", "clear-quick-move"}, mainKeys)
	assert.Equal(t, []string{"add-folder", "delete-selection"}, buttonKeys)

	token := s.SubscribeRightClickFolder(PriorityToggleDescendants, FolderAction[string]{Key: "custom"})
	assert.Equal(t, "custom", s.FolderActions()[2].Key)
	assert.True(t, s.UnsubscribeRightClickFolder(token))
	assert.Len(t, s.FolderActions(), 7)
}

func TestTriggerActions(t *testing.T) {
	fs := newTree(t, "dir/leaf")
	s := New(fs)
	dir := mustFind(t, fs, "dir").(*vfs.Folder[string])
	leaf := mustFind(t, fs, "dir/leaf")

	err := s.TriggerNodeAction("nope", leaf, "")
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.ErrorIs(t, s.TriggerMainAction("nope", ""), ErrUnknownAction)

	s.Interact(func() {
		require.NoError(t, s.TriggerNodeAction("rename", leaf, "docs/renamed"))
		require.NoError(t, s.TriggerNodeAction("lock", dir, ""))
	})
	assert.Equal(t, "docs/renamed", leaf.FullName())
	assert.True(t, dir.IsLocked())

	require.NoError(t, s.TriggerButton("add-folder", "x/y"))
	created := mustFind(t, fs, "x/y")
	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Same(t, created, selected)

	s.Interact(func() { require.NoError(t, s.TriggerNodeAction("dissolve", dir, "")) })
	_, ok = fs.Find("dir")
	assert.False(t, ok, "empty folder dissolves")

	docs := mustFind(t, fs, "docs").(*vfs.Folder[string])
	s.Interact(func() { require.NoError(t, s.TriggerFolderAction("merge", docs, "x/y")) })
	assert.Equal(t, "x/y/renamed", leaf.FullName())
}

func TestMergeActionIntoOwnSubtree(t *testing.T) {
	fs := newTree(t, "a/leaf")
	obs := &recordingObserver{}
	s := New(fs, WithObserver(obs))
	a := mustFind(t, fs, "a").(*vfs.Folder[string])
	size := fs.Len()

	s.Interact(func() { require.NoError(t, s.TriggerNodeAction("merge", a, "a/new/deeper")) })

	assert.Equal(t, size, fs.Len())
	_, ok := fs.Find("a/new")
	assert.False(t, ok, "no folders left behind")
	assert.Equal(t, "a/leaf", mustFind(t, fs, "a/leaf").FullName())
	assert.Contains(t, obs.outcomes, outcome{"merge", OutcomeFailed})
}

func TestToggleDescendants(t *testing.T) {
	fs := newTree(t, "a/b/c/leaf")
	s := New(fs)
	a := mustFind(t, fs, "a").(*vfs.Folder[string])
	c := mustFind(t, fs, "a/b/c").(*vfs.Folder[string])
	rowNames(s)

	assert.False(t, s.ToggleDescendants(a, s.Pass()+1, true), "stale pass")
	assert.False(t, s.IsExpanded(a))

	assert.True(t, s.ToggleDescendants(a, s.Pass(), true))
	assert.True(t, s.IsExpanded(c))

	assert.True(t, s.ToggleDescendants(a, -1, false))
	assert.False(t, s.IsExpanded(a))
	assert.False(t, s.IsExpanded(c))

	require.NoError(t, fs.Delete(c))
	assert.False(t, s.ToggleDescendants(c, -1, true), "detached folder")

	assert.True(t, s.IsExpanded(fs.Root()))
}

func TestExpandDescendantsDuringWalk(t *testing.T) {
	fs := newTree(t, "a/b/c/leaf")
	s := New(fs)
	a := mustFind(t, fs, "a").(*vfs.Folder[string])

	assert.Equal(t, []string{"a"}, rowNames(s))

	s.Walk(func(row Row[string]) {
		if row.Node == vfs.Node[string](a) {
			require.NoError(t, s.TriggerFolderAction("expand-descendants", a, ""))
		}
	})
	assert.Equal(t, []string{"a", "b", "c", "leaf"}, rowNames(s))

	require.NoError(t, s.TriggerMainAction("collapse-all", ""))
	assert.Equal(t, []string{"a"}, rowNames(s))
}

func TestExpandAncestors(t *testing.T) {
	fs := newTree(t, "a/b/leaf")
	s := New(fs)
	leaf := mustFind(t, fs, "a/b/leaf")

	assert.True(t, s.ExpandAncestors(leaf))
	assert.False(t, s.ExpandAncestors(leaf))
	assert.Equal(t, []string{"a", "b", "leaf"}, rowNames(s))
}

func TestReconcilePrunesExpansion(t *testing.T) {
	fs := newTree(t, "a/b/leaf")
	s := New(fs)
	s.ExpandAll()
	b := mustFind(t, fs, "a/b")

	s.Interact(func() { s.Delete(b) })
	assert.Len(t, s.expanded, 1)
}

func TestSortModeAndRows(t *testing.T) {
	fs := vfs.New[string]()
	_, err := fs.FindOrCreateAllFolders("b")
	require.NoError(t, err)
	_, err = fs.AddLeaf("a", "")
	require.NoError(t, err)

	s := New(fs)
	assert.Equal(t, []string{"b", "a"}, rowNames(s))

	s.SetSortMode(vfs.FoldersLast)
	assert.Equal(t, []string{"a", "b"}, rowNames(s))

	s.SetSortMode(vfs.SortMode(99))
	assert.Equal(t, vfs.FoldersLast, s.SortMode())
	assert.Equal(t, 2, s.Pass())
	assert.Equal(t, 1, s.CurrentRow())
}

func TestFilter(t *testing.T) {
	fs := newTree(t, "docs/guide.md", "notes/todo.md")
	s := New(fs)

	s.SetFilter("guide")
	assert.Equal(t, []string{"docs", "guide.md"}, rowNames(s))
	assert.False(t, s.Visible(mustFind(t, fs, "notes")))

	_, err := fs.AddLeaf("notes/guide-2.md", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "guide.md", "notes", "guide-2.md"}, rowNames(s))

	s.SetFilter("")
	assert.Equal(t, []string{"docs", "notes"}, rowNames(s))
}

func TestQuickMove(t *testing.T) {
	fs := newTree(t, "a/x", "a/y", "b/z")
	target, err := fs.FindOrCreateAllFolders("target")
	require.NoError(t, err)
	s := New(fs)

	var saved [][]string
	s.OnQuickMoveChange(func(slots []string) { saved = append(saved, slots) })

	require.NoError(t, s.SetQuickMove(0, target))
	require.NoError(t, s.SetQuickMove(0, target))
	assert.Equal(t, [][]string{{"target", "", ""}}, saved)

	x := mustFind(t, fs, "a/x").(*vfs.Leaf[string])
	s.ToggleMultiSelect(mustFind(t, fs, "a/y"))
	s.ToggleMultiSelect(mustFind(t, fs, "b/z"))
	s.ToggleMultiSelect(mustFind(t, fs, "a"))

	var moves []string
	fs.Subscribe(func(c vfs.Change[string]) {
		if c.Type == vfs.ObjectMoved {
			moves = append(moves, c.NewPath)
		}
	})

	s.Interact(func() { require.NoError(t, s.QuickMove(x, 0)) })
	assert.Equal(t, []string{"target/y", "target/z", "target/x"}, moves)
	assert.Equal(t, 3, target.Len())
	assert.True(t, s.IsExpanded(target), "moved leaves are revealed")

	s.Interact(func() { require.NoError(t, s.QuickMove(x, 0)) })
	assert.Len(t, moves, 3, "already in the target")

	require.NoError(t, s.ClearQuickMove(1))
	assert.Len(t, saved, 1, "clearing an empty slot is a no-op")
	require.NoError(t, s.TriggerMainAction("clear-quick-move", "0"))
	assert.Equal(t, []string{"", "", ""}, saved[1])

	assert.ErrorIs(t, s.QuickMove(x, 0), vfs.ErrNotFound)
	assert.Error(t, s.QuickMove(x, 3))
	assert.Error(t, s.TriggerNodeAction("quick-move", x, "first"))
}

func TestQuickMoveCreatesTarget(t *testing.T) {
	fs := newTree(t, "leaf")
	s := New(fs, WithQuickMoveSlots(1))
	s.LoadQuickMoveSlots([]string{"archive//2024/", "ignored"})
	assert.Equal(t, []string{"archive/2024"}, s.QuickMoveSlots())

	leaf := mustFind(t, fs, "leaf")
	require.NoError(t, s.TriggerNodeAction("quick-move", leaf, ""))
	assert.Equal(t, "archive/2024/leaf", leaf.FullName())
}

func TestDropRespectsLock(t *testing.T) {
	fs := newTree(t, "leaf", "dir/other")
	obs := &recordingObserver{}
	s := New(fs, WithObserver(obs))
	leaf := mustFind(t, fs, "leaf")
	dir := mustFind(t, fs, "dir").(*vfs.Folder[string])

	s.SetLocked(leaf, true)
	s.Interact(func() { s.Drop(leaf, dir) })
	assert.Equal(t, "leaf", leaf.FullName())
	assert.Equal(t, OutcomeFailed, obs.outcomes[0].outcome)

	s.Interact(func() { s.Move(leaf, dir) })
	assert.Equal(t, "dir/leaf", leaf.FullName())

	s.SetLocked(leaf, false)
	s.Interact(func() { s.Drop(leaf, fs.Root()) })
	assert.Equal(t, "leaf", leaf.FullName())
}

func TestOpenExternal(t *testing.T) {
	type message struct {
		text     string
		severity Severity
	}
	var got []message
	notifier := NotifierFunc(func(text string, severity Severity) {
		got = append(got, message{text, severity})
	})

	fs := newTree(t, "leaf")
	s := New(fs, WithNotifier(notifier), WithOpener(failingOpener{err: errors.New("no browser")}))
	size := fs.Len()

	assert.False(t, s.OpenExternal("the docs", "https://example.com"))
	require.Len(t, got, 1)
	assert.Equal(t, SeverityError, got[0].severity)
	assert.Contains(t, got[0].text, "the docs")
	assert.Contains(t, got[0].text, "no browser")
	assert.Equal(t, size, fs.Len())

	ok := New(fs, WithNotifier(notifier), WithOpener(failingOpener{}))
	assert.True(t, ok.OpenExternal("the docs", "https://example.com"))
	assert.Len(t, got, 1)
}

func TestClose(t *testing.T) {
	fs := newTree(t, "leaf")
	s := New(fs)
	s.SetFilter("leaf")
	rowNames(s)
	s.Close()

	_, err := fs.AddLeaf("leaf2", "")
	require.NoError(t, err)
	assert.False(t, s.filterDirty)
}
