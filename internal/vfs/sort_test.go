package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names[T any](nodes []Node[T]) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

func TestSortFixtureCollision(t *testing.T) {
	fs := New[int]()
	_, err := fs.FindOrCreateAllFolders("b")
	require.NoError(t, err)
	_, err = fs.AddLeaf("a", 1)
	require.NoError(t, err)

	// "A" and "a" are the same name.
	_, err = fs.FindOrCreateAllFolders("A")
	assert.ErrorIs(t, err, ErrNameConflict)
}

func TestChildrenBy(t *testing.T) {
	// Created in this order, so identifiers are b=1, a=2, C=3, Z=4.
	fs := New[int]()
	_, err := fs.FindOrCreateAllFolders("b")
	require.NoError(t, err)
	_, err = fs.AddLeaf("a", 1)
	require.NoError(t, err)
	_, err = fs.FindOrCreateAllFolders("C")
	require.NoError(t, err)
	_, err = fs.AddLeaf("Z", 2)
	require.NoError(t, err)

	tests := []struct {
		mode SortMode
		want []string
	}{
		{FoldersFirst, []string{"b", "C", "a", "Z"}},
		{Lexicographical, []string{"a", "b", "C", "Z"}},
		{InverseFoldersFirst, []string{"C", "b", "Z", "a"}},
		{InverseLexicographical, []string{"Z", "C", "b", "a"}},
		{FoldersLast, []string{"a", "Z", "b", "C"}},
		{InverseFoldersLast, []string{"Z", "a", "C", "b"}},
		{InternalOrder, []string{"b", "a", "C", "Z"}},
		{InverseInternalOrder, []string{"Z", "C", "a", "b"}},
	}
	require.Len(t, tests, len(SortModes()))

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, names(fs.Root().ChildrenBy(tt.mode)))
		})
	}

	assert.Equal(t, []string{"a", "b", "C", "Z"}, names(fs.Root().Children()), "sorting never reorders the tree")
}

func TestInternalOrderAfterRename(t *testing.T) {
	fs := New[int]()
	first, err := fs.AddLeaf("zzz", 1)
	require.NoError(t, err)
	_, err = fs.AddLeaf("mmm", 2)
	require.NoError(t, err)

	require.NoError(t, fs.Rename(first, "aaa"))
	assert.Equal(t, []string{"aaa", "mmm"}, names(fs.Root().ChildrenBy(InternalOrder)))
	assert.Equal(t, []string{"mmm", "aaa"}, names(fs.Root().ChildrenBy(InverseInternalOrder)))
}

func TestParseSortMode(t *testing.T) {
	for _, mode := range SortModes() {
		parsed, err := ParseSortMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)

		parsed, err = ParseSortMode(mode.Name())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)

		assert.NotEmpty(t, mode.Description())
	}

	_, err := ParseSortMode("random")
	assert.Error(t, err)

	var mode SortMode
	require.NoError(t, mode.UnmarshalText([]byte("Folders_Last")))
	assert.Equal(t, FoldersLast, mode)

	text, err := InverseLexicographical.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "inverse_lexicographical", string(text))

	assert.False(t, SortMode(42).Valid())
	_, err = SortMode(42).MarshalText()
	assert.Error(t, err)
}
