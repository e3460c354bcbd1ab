package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_Local(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "README.md"), "# Readme\n")
	writeFile(t, filepath.Join(dir, "notes", "todo.MD"), "- [ ] item\n")
	writeFile(t, filepath.Join(dir, "notes", "image.png"), "png")
	writeFile(t, filepath.Join(dir, "node_modules", "pkg", "README.md"), "# vendored\n")
	writeFile(t, filepath.Join(dir, "drafts", "wip.md"), "# wip\n")
	writeFile(t, filepath.Join(dir, "deep", "a", "b", "c.markdown"), "# deep\n")

	s := &Scanner{
		Extensions: []string{".md", ".markdown"},
		Exclude:    []string{"node_modules"},
	}
	loc := Location{Path: dir, Alias: "docs", Exclude: []string{"drafts/**"}}

	docs, err := s.Scan(context.Background(), loc)
	require.NoError(t, err)

	var rels []string
	for _, d := range docs {
		rels = append(rels, d.RelPath)
		assert.Equal(t, "docs", d.Source)
	}
	assert.Equal(t, []string{"README.md", "deep/a/b/c.markdown", "notes/todo.MD"}, rels)
	assert.Equal(t, int64(len("# Readme\n")), docs[0].Size)
	assert.False(t, docs[0].ModTime.IsZero())
}

func TestScan_MissingRoot(t *testing.T) {
	s := &Scanner{Extensions: []string{".md"}}
	_, err := s.Scan(context.Background(), Location{Path: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestScan_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Scanner{Extensions: []string{".md"}}).Scan(ctx, Location{Path: dir})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIncludes(t *testing.T) {
	s := &Scanner{Extensions: []string{".md"}, Exclude: []string{".git", "**/tmp"}}
	loc := Location{Exclude: []string{"private"}}

	tests := []struct {
		rel  string
		want bool
	}{
		{"README.md", true},
		{"docs/guide.md", true},
		{"docs/image.png", false},
		{".git/info.md", false},
		{"a/b/tmp/x.md", false},
		{"private/secret.md", false},
		{"public/private/secret.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Includes(loc, tt.rel))
		})
	}
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "alias", Location{Path: "/x/repo", Alias: "alias"}.Name())
	assert.Equal(t, "repo", Location{Path: "/x/repo"}.Name())
	assert.Equal(t, "repo (main)", Location{Path: "/x/repo", GitRef: "main"}.Name())
	assert.False(t, Location{GitRef: "main"}.Watchable())
	assert.Equal(t, filepath.Join("/x/repo", "docs"), Location{Path: "/x/repo", SubPath: "docs"}.Dir())
	assert.Equal(t, "docs/a.md", Location{SubPath: "/docs/"}.within("a.md"))
}

func TestKeys(t *testing.T) {
	doc := Document{Source: "notes", RelPath: "a/b.md"}
	assert.Equal(t, "notes/a/b.md", doc.Key())

	src, rel, ok := SplitKey(doc.Key())
	require.True(t, ok)
	assert.Equal(t, "notes", src)
	assert.Equal(t, "a/b.md", rel)

	_, _, ok = SplitKey("nosep")
	assert.False(t, ok)
}

func TestSet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "a.md"), "hello")

	set, err := NewSet([]Location{{Path: dir, Alias: "one", SubPath: "docs"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, set.Names())

	content, err := set.Read(Document{Source: "one", RelPath: "a.md"})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	_, err = set.Read(Document{Source: "two", RelPath: "a.md"})
	assert.Error(t, err)

	_, err = NewSet([]Location{{Path: dir, Alias: "x"}, {Path: "/other", Alias: "x"}})
	assert.Error(t, err)
}
