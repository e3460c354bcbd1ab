package source

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// GitFS reads files from a git ref (branch, tag or commit) without a checkout.
// The tree listing is loaded once, on first use.
type GitFS struct {
	repoPath string
	ref      string

	once    sync.Once
	index   map[string]gitEntry
	loadErr error
}

type gitEntry struct {
	isDir    bool
	size     int64
	children []string
}

// NewGitFS creates a GitFS reading ref from the repository at repoPath.
func NewGitFS(repoPath, ref string) *GitFS {
	return &GitFS{repoPath: repoPath, ref: ref}
}

func (g *GitFS) git(args ...string) ([]byte, error) {
	cmd := exec.Command("git", append([]string{"-C", g.repoPath}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// load lists the whole ref with "git ls-tree -r -t -l" and indexes it by path.
func (g *GitFS) load() error {
	g.once.Do(func() {
		out, err := g.git("ls-tree", "-r", "-t", "-l", "-z", g.ref)
		if err != nil {
			g.loadErr = err
			return
		}

		index := map[string]gitEntry{"": {isDir: true}}
		for _, record := range strings.Split(string(out), "\x00") {
			// "<mode> <type> <hash> <size>\t<path>"
			meta, name, ok := strings.Cut(record, "\t")
			if !ok {
				continue
			}
			fields := strings.Fields(meta)
			if len(fields) < 4 {
				continue
			}
			entry := gitEntry{isDir: fields[1] == "tree"}
			if !entry.isDir {
				entry.size, _ = strconv.ParseInt(fields[3], 10, 64)
			}
			if existing, ok := index[name]; ok {
				entry.children = existing.children
			}
			index[name] = entry

			parent := path.Dir(name)
			if parent == "." {
				parent = ""
			}
			p := index[parent]
			p.isDir = true
			p.children = append(p.children, path.Base(name))
			index[parent] = p
		}
		g.index = index
	})
	return g.loadErr
}

func (g *GitFS) lookup(rel string) (gitEntry, error) {
	if err := g.load(); err != nil {
		return gitEntry{}, err
	}
	rel = strings.Trim(rel, "/")
	if rel == "." {
		rel = ""
	}
	entry, ok := g.index[rel]
	if !ok {
		return gitEntry{}, os.ErrNotExist
	}
	return entry, nil
}

// ReadFile reads the blob at rel.
func (g *GitFS) ReadFile(rel string) ([]byte, error) {
	entry, err := g.lookup(rel)
	if err != nil {
		return nil, err
	}
	if entry.isDir {
		return nil, fmt.Errorf("%s: is a directory", rel)
	}
	return g.git("cat-file", "blob", g.ref+":"+strings.Trim(rel, "/"))
}

// Stat returns metadata for rel. The modification time is the commit time of
// the last commit touching rel.
func (g *GitFS) Stat(rel string) (FileInfo, error) {
	entry, err := g.lookup(rel)
	if err != nil {
		return FileInfo{}, err
	}
	rel = strings.Trim(rel, "/")
	name := path.Base(rel)
	if rel == "" || rel == "." {
		name = g.ref
	}
	return FileInfo{Name: name, IsDir: entry.isDir, Size: entry.size, ModTime: g.modTime(rel)}, nil
}

// ReadDir lists the immediate children of rel, sorted by name.
func (g *GitFS) ReadDir(rel string) ([]DirEntry, error) {
	entry, err := g.lookup(rel)
	if err != nil {
		return nil, err
	}
	if !entry.isDir {
		return nil, fmt.Errorf("%s: not a directory", rel)
	}
	rel = strings.Trim(rel, "/")

	names := append([]string(nil), entry.children...)
	sort.Strings(names)
	out := make([]DirEntry, 0, len(names))
	for _, name := range names {
		child := g.index[path.Join(rel, name)]
		out = append(out, DirEntry{Name: name, IsDir: child.isDir})
	}
	return out, nil
}

func (g *GitFS) modTime(rel string) time.Time {
	args := []string{"log", "-1", "--format=%ct", g.ref}
	if rel != "" && rel != "." {
		args = append(args, "--", rel)
	}
	out, err := g.git(args...)
	if err != nil {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
