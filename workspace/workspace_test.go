package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/adhyaay-karnwal/athas/hardware"
)

func mkfile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func names(entries []hardware.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestSnapshotLexicalOrderAndIgnores(t *testing.T) {
	root := t.TempDir()
	mkfile(t, root, "src/main.c")
	mkfile(t, root, "src/drivers/uart.h")
	mkfile(t, root, "Makefile")
	mkfile(t, root, "board.kicad_pcb")
	mkfile(t, root, ".git/HEAD")
	mkfile(t, root, "node_modules/pkg/index.js")

	entries, err := Snapshot(root, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Makefile", "board.kicad_pcb", "src"}, names(entries))

	src := entries[2]
	assert.True(t, src.IsDir)
	assert.False(t, src.IsFile)
	assert.Equal(t, []string{"drivers", "main.c"}, names(src.Children))
	assert.Equal(t, filepath.Join(root, "src", "main.c"), src.Children[1].Path)
	assert.Equal(t, 4, CountFiles(entries))

	got := hardware.Classify(entries)
	assert.Len(t, got.Firmware, 3)
	assert.Len(t, got.PCB, 1)
}

func TestSnapshotMaxDepth(t *testing.T) {
	root := t.TempDir()
	mkfile(t, root, "a/b/c.c")

	entries, err := Snapshot(root, Options{MaxDepth: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsDir)
	assert.Nil(t, entries[0].Children)
}

func TestSnapshotDoesNotFollowSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	mkfile(t, root, "real/main.c")
	if err := os.Symlink(root, filepath.Join(root, "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	entries, err := Snapshot(root, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, []string{"loop", "real"}, names(entries))
	assert.True(t, entries[0].IsDir)
	assert.Nil(t, entries[0].Children)
}

func TestSnapshotMissingRoot(t *testing.T) {
	_, err := Snapshot(filepath.Join(t.TempDir(), "missing"), DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptionsIgnored(t *testing.T) {
	opts := Options{Ignore: []string{"build/**", "**/*.bak"}}
	assert.True(t, opts.Ignored("build"))
	assert.True(t, opts.Ignored("build/out.hex"))
	assert.True(t, opts.Ignored("src/old.c.bak"))
	assert.False(t, opts.Ignored("src/main.c"))
	assert.NoError(t, opts.Validate())
	assert.Error(t, Options{Ignore: []string{"[unclosed"}}.Validate())
}

func TestTreeCachesUntilInvalidated(t *testing.T) {
	root := t.TempDir()
	mkfile(t, root, "main.c")
	tree := NewTree(DefaultOptions(), nil)

	first, err := tree.Entries(root)
	require.NoError(t, err)
	require.Len(t, first, 1)

	mkfile(t, root, "util.c")
	cached, err := tree.Entries(root)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	tree.Invalidate(root)
	fresh, err := tree.Entries(root)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	tree.InvalidateAll()
	_, err = tree.Entries(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestWatcherReportsChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	root := t.TempDir()
	mkfile(t, root, "src/main.c")

	var mu sync.Mutex
	var batches [][]string
	changed := make(chan struct{}, 8)
	w, err := NewWatcher(root, DefaultOptions(), func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
		changed <- struct{}{}
	}, nil)
	require.NoError(t, err)
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	mkfile(t, root, "src/new.c")

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	require.NoError(t, w.Close())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, batches)
	assert.Contains(t, batches[0], filepath.Join(root, "src", "new.c"))
}

func TestWatcherCloseWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w, err := NewWatcher(t.TempDir(), DefaultOptions(), nil, nil)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w, err := NewWatcher(t.TempDir(), DefaultOptions(), nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()
	assert.NoError(t, w.Close())
}
