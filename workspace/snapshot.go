// Package workspace reads project file trees for the hardware classifier and
// watches them for changes.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/adhyaay-karnwal/athas/hardware"
)

// DefaultIgnore lists globs, relative to the root, skipped by default.
var DefaultIgnore = []string{
	".git/**",
	"node_modules/**",
	"target/**",
	".athas/**",
}

// Options control how a snapshot is taken.
type Options struct {
	// Ignore holds doublestar globs matched against slash-separated paths
	// relative to the root. "dir/**" also excludes dir itself.
	Ignore []string `yaml:"ignore"`
	// MaxDepth limits directory expansion; 0 means unlimited. Directories
	// at the limit are listed without children.
	MaxDepth int `yaml:"max_depth"`
}

// DefaultOptions returns the default ignore set with unlimited depth.
func DefaultOptions() Options {
	return Options{Ignore: append([]string(nil), DefaultIgnore...)}
}

// Validate checks every ignore pattern.
func (o Options) Validate() error {
	for _, pattern := range o.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}
	return nil
}

// Ignored reports whether rel (slash separated, relative to the root) is
// excluded.
func (o Options) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range o.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if base, found := strings.CutSuffix(pattern, "/**"); found {
			if ok, _ := doublestar.Match(base, rel); ok {
				return true
			}
		}
	}
	return false
}

// Snapshot reads the tree under root. Entries are in lexical order per
// directory and paths are root-joined. Symlinked directories are listed but
// not followed, which keeps the snapshot acyclic.
func Snapshot(root string, opts Options) ([]hardware.FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot %s: not a directory", root)
	}
	return readDir(root, root, 1, opts)
}

func readDir(root, dir string, depth int, opts Options) ([]hardware.FileEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]hardware.FileEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		path := filepath.Join(dir, de.Name())
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		if opts.Ignored(rel) {
			continue
		}
		entry := hardware.FileEntry{Name: de.Name(), Path: path}
		switch {
		case de.Type()&fs.ModeSymlink != 0:
			target, err := os.Stat(path)
			if err != nil {
				continue
			}
			entry.IsDir = target.IsDir()
			entry.IsFile = target.Mode().IsRegular()
		case de.IsDir():
			entry.IsDir = true
			if opts.MaxDepth == 0 || depth < opts.MaxDepth {
				children, err := readDir(root, path, depth+1, opts)
				if err != nil {
					// Unreadable directories are listed without children.
					children = nil
				}
				entry.Children = children
			}
		default:
			entry.IsFile = de.Type().IsRegular()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CountFiles returns the number of file entries in a snapshot.
func CountFiles(entries []hardware.FileEntry) int {
	n := 0
	for _, e := range entries {
		if e.IsFile {
			n++
		}
		n += CountFiles(e.Children)
	}
	return n
}
