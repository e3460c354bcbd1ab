// Package source discovers markdown documents in local directories or git refs.
package source

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo holds file metadata.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// DirEntry is a single directory entry.
type DirEntry struct {
	Name  string
	IsDir bool
}

// Source reads files below a root. Paths are slash-separated and relative to the root.
type Source interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]DirEntry, error)
}

// Location names one configured document root.
type Location struct {
	Path    string   `yaml:"path" json:"path"`
	Alias   string   `yaml:"alias" json:"alias"`
	GitRef  string   `yaml:"git_ref,omitempty" json:"git_ref,omitempty"`
	SubPath string   `yaml:"sub_path,omitempty" json:"sub_path,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Name is the alias, or a name derived from the path and ref.
func (l Location) Name() string {
	if l.Alias != "" {
		return l.Alias
	}
	name := filepath.Base(l.Path)
	if l.GitRef != "" {
		name += " (" + l.GitRef + ")"
	}
	return name
}

// Watchable reports whether the location lives on disk and can be watched.
func (l Location) Watchable() bool { return l.GitRef == "" }

// Dir returns the on-disk directory that documents are relative to.
func (l Location) Dir() string { return filepath.Join(l.Path, filepath.FromSlash(l.SubPath)) }

// Open returns the Source backing the location, rooted at Path.
func (l Location) Open() Source {
	if l.GitRef != "" {
		return NewGitFS(l.Path, l.GitRef)
	}
	return NewLocalFS(l.Path)
}

// within maps a document path to a path inside the location's source.
func (l Location) within(rel string) string {
	if l.SubPath == "" {
		return rel
	}
	return path.Join(strings.Trim(filepath.ToSlash(l.SubPath), "/"), rel)
}

// Document is the payload carried by tree leaves.
type Document struct {
	Source  string    `yaml:"source" json:"source"`
	RelPath string    `yaml:"rel_path" json:"relPath"`
	Size    int64     `yaml:"-" json:"size"`
	ModTime time.Time `yaml:"-" json:"modTime"`
}

// Key identifies a document across restarts: "<source>/<relpath>".
func (d Document) Key() string { return Key(d.Source, d.RelPath) }

// Key builds a document key.
func Key(source, rel string) string { return source + "/" + rel }

// SplitKey is the inverse of Key.
func SplitKey(key string) (source, rel string, ok bool) {
	source, rel, ok = strings.Cut(key, "/")
	return source, rel, ok && source != "" && rel != ""
}

// Set gives access to the sources of several locations by name.
type Set struct {
	locations map[string]Location
	sources   map[string]Source
	order     []string
}

// NewSet opens every location. Locations sharing a name are rejected.
func NewSet(locations []Location) (*Set, error) {
	s := &Set{
		locations: make(map[string]Location, len(locations)),
		sources:   make(map[string]Source, len(locations)),
	}
	for _, loc := range locations {
		name := loc.Name()
		if _, dup := s.locations[name]; dup {
			return nil, fmt.Errorf("duplicate source name %q", name)
		}
		s.locations[name] = loc
		s.sources[name] = loc.Open()
		s.order = append(s.order, name)
	}
	return s, nil
}

// Names returns the location names in configuration order.
func (s *Set) Names() []string { return append([]string(nil), s.order...) }

// Location returns the location registered under name.
func (s *Set) Location(name string) (Location, bool) {
	loc, ok := s.locations[name]
	return loc, ok
}

// Read returns the content of doc.
func (s *Set) Read(doc Document) ([]byte, error) {
	src, ok := s.sources[doc.Source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", doc.Source)
	}
	return src.ReadFile(s.locations[doc.Source].within(doc.RelPath))
}

// Stat returns the metadata of doc.
func (s *Set) Stat(doc Document) (FileInfo, error) {
	src, ok := s.sources[doc.Source]
	if !ok {
		return FileInfo{}, fmt.Errorf("unknown source %q", doc.Source)
	}
	return src.Stat(s.locations[doc.Source].within(doc.RelPath))
}
