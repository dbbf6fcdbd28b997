package workspace

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/adhyaay-karnwal/athas/hardware"
)

// Tree serves snapshots from a per-root cache. The cache is dropped by
// Invalidate, typically from a Watcher callback. Callers must not modify
// the returned entries.
type Tree struct {
	Options Options
	Logger  *zap.Logger

	mu    sync.RWMutex
	cache map[string][]hardware.FileEntry
	group singleflight.Group
}

// NewTree builds a cached tree reader.
func NewTree(opts Options, logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{Options: opts, Logger: logger, cache: make(map[string][]hardware.FileEntry)}
}

// Entries implements hardware.FileTree.
func (t *Tree) Entries(root string) ([]hardware.FileEntry, error) {
	t.mu.RLock()
	cached, ok := t.cache[root]
	t.mu.RUnlock()
	if ok {
		return cached, nil
	}
	v, err, _ := t.group.Do(root, func() (interface{}, error) {
		entries, err := Snapshot(root, t.Options)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		t.cache[root] = entries
		t.mu.Unlock()
		t.Logger.Debug("snapshot taken", zap.String("root", root), zap.Int("files", CountFiles(entries)))
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]hardware.FileEntry), nil
}

// Invalidate drops the cached snapshot of root.
func (t *Tree) Invalidate(root string) {
	t.mu.Lock()
	delete(t.cache, root)
	t.mu.Unlock()
}

// InvalidateAll drops every cached snapshot.
func (t *Tree) InvalidateAll() {
	t.mu.Lock()
	t.cache = make(map[string][]hardware.FileEntry)
	t.mu.Unlock()
}
