package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/adhyaay-karnwal/athas/internal/metrics"
)

// DefaultDebounce is how long the watcher waits for more changes before
// reporting.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches a project tree recursively and reports batches of changed
// paths after a quiet period.
type Watcher struct {
	Root     string
	Options  Options
	Debounce time.Duration
	OnChange func(paths []string)
	Logger   *zap.Logger

	fsw     *fsnotify.Watcher
	done    chan struct{}
	mu      sync.Mutex
	started bool
	closed  bool
}

// NewWatcher creates a watcher for root. Start begins delivery.
func NewWatcher(root string, opts Options, onChange func(paths []string), logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		Root:     root,
		Options:  opts,
		Debounce: DefaultDebounce,
		OnChange: onChange,
		Logger:   logger,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start adds watches for every directory under the root and starts the
// event loop. The loop stops when ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return nil
	}
	if err := w.addRecursive(w.Root); err != nil {
		return err
	}
	w.started = true
	go w.loop(ctx)
	w.Logger.Info("watching project tree", zap.String("root", w.Root), zap.Duration("debounce", w.debounce()))
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	w.mu.Unlock()

	err := w.fsw.Close()
	if started {
		<-w.done
	}
	return err
}

func (w *Watcher) debounce() time.Duration {
	if w.Debounce <= 0 {
		return DefaultDebounce
	}
	return w.Debounce
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.Root {
			if rel, relErr := filepath.Rel(w.Root, path); relErr == nil && w.Options.Ignored(rel) {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(path); err != nil {
			w.Logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.accept(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce())
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				w.Logger.Warn("watcher error", zap.Error(err))
				continue
			}
			w.Logger.Warn("watcher overflow, forcing refresh")
			pending[w.Root] = struct{}{}
			timer.Reset(w.debounce())
		case <-timer.C:
			w.flush(pending)
			pending = make(map[string]struct{})
		}
	}
}

func (w *Watcher) accept(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(w.Root, event.Name)
	if err != nil || w.Options.Ignored(rel) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.Logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}
	return true
}

func (w *Watcher) flush(pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	metrics.TreeRefreshes.Inc()
	w.Logger.Debug("tree changed", zap.String("root", w.Root), zap.Int("paths", len(paths)))
	if w.OnChange != nil {
		w.OnChange(paths)
	}
}
