package source

import (
	"os"
	"path/filepath"
)

// LocalFS reads files from a directory on disk.
type LocalFS struct {
	root string
}

// NewLocalFS creates a LocalFS rooted at root.
func NewLocalFS(root string) *LocalFS {
	return &LocalFS{root: root}
}

func (l *LocalFS) abs(rel string) string {
	if rel == "" || rel == "." {
		return l.root
	}
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// ReadFile reads the file at rel.
func (l *LocalFS) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(l.abs(rel))
}

// Stat returns metadata for rel.
func (l *LocalFS) Stat(rel string) (FileInfo, error) {
	info, err := os.Stat(l.abs(rel))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Name: info.Name(), IsDir: info.IsDir(), Size: info.Size(), ModTime: info.ModTime()}, nil
}

// ReadDir lists the immediate children of rel.
func (l *LocalFS) ReadDir(rel string) ([]DirEntry, error) {
	entries, err := os.ReadDir(l.abs(rel))
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}
