package source

import (
	"context"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Scanner finds documents below a location.
type Scanner struct {
	Extensions []string // lower-case, with dot
	Exclude    []string // doublestar patterns matched against relative paths and base names
	Logger     *zap.Logger
}

// IsDocument reports whether name carries one of the document extensions.
func (s *Scanner) IsDocument(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range s.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Excluded reports whether rel (slash-separated, relative to the location) is
// excluded by the global or the location's patterns.
func (s *Scanner) Excluded(loc Location, rel string) bool {
	return matchAny(s.Exclude, rel) || matchAny(loc.Exclude, rel)
}

// Includes reports whether a file at rel is a document Scan would return.
func (s *Scanner) Includes(loc Location, rel string) bool {
	if !s.IsDocument(rel) {
		return false
	}
	for dir := rel; dir != "." && dir != ""; dir = path.Dir(dir) {
		if s.Excluded(loc, dir) {
			return false
		}
	}
	return true
}

// Scan walks loc and returns its documents in lexical order. Unreadable
// subdirectories are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, loc Location) ([]Document, error) {
	src := loc.Open()
	name := loc.Name()
	logger := s.logger().With(zap.String("source", name))

	var docs []Document
	var walk func(rel string) error
	walk = func(rel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := src.ReadDir(loc.within(rel))
		if err != nil {
			if rel == "" {
				return err
			}
			logger.Warn("skipping unreadable directory", zap.String("dir", rel), zap.Error(err))
			return nil
		}
		for _, entry := range entries {
			child := path.Join(rel, entry.Name)
			if s.Excluded(loc, child) {
				continue
			}
			if entry.IsDir {
				if err := walk(child); err != nil {
					return err
				}
				continue
			}
			if !s.IsDocument(entry.Name) {
				continue
			}
			doc := Document{Source: name, RelPath: child}
			if info, err := src.Stat(loc.within(child)); err == nil {
				doc.Size, doc.ModTime = info.Size, info.ModTime
			}
			docs = append(docs, doc)
		}
		return nil
	}

	if err := walk(""); err != nil {
		return nil, err
	}
	logger.Debug("source scanned", zap.Int("documents", len(docs)))
	return docs, nil
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func matchAny(patterns []string, rel string) bool {
	base := path.Base(rel)
	for _, pattern := range patterns {
		pattern = strings.Trim(pattern, "/")
		if pattern == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
		if rel == pattern || strings.HasPrefix(rel, pattern+"/") {
			return true
		}
	}
	return false
}
