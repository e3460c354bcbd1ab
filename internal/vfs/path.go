package vfs

import (
	"strings"

	"golang.org/x/text/cases"
)

// Separator delimits path segments.
const Separator = "/"

// SplitPath splits a slash-delimited path into its segments.
// Parsing is lenient: surrounding whitespace is trimmed and empty segments
// (leading, trailing or doubled slashes) are skipped, so "a//b/" yields [a b].
func SplitPath(path string) []string {
	raw := strings.Split(path, Separator)
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

// JoinPath joins segments with the separator, skipping empty ones.
func JoinPath(segments ...string) string {
	var b strings.Builder
	for _, segment := range segments {
		for _, s := range SplitPath(segment) {
			if b.Len() > 0 {
				b.WriteString(Separator)
			}
			b.WriteString(s)
		}
	}
	return b.String()
}

// Equal reports whether two paths name the same node: segment-wise and case-insensitive.
func Equal(a, b string) bool {
	as, bs := SplitPath(a), SplitPath(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if foldName(as[i]) != foldName(bs[i]) {
			return false
		}
	}
	return true
}

// foldName returns the comparison key of a name. Casers carry state, so one is built per call.
func foldName(name string) string {
	return cases.Fold().String(name)
}
