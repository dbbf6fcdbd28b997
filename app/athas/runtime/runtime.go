// Package runtime wires the athas CLI, Bubble Tea browser and servers to one
// shared document store, extraction pipeline and context builder.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/adhyaay-karnwal/athas/docstore"
	"github.com/adhyaay-karnwal/athas/extract"
	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/internal/logging"
	"github.com/adhyaay-karnwal/athas/llm"
	"github.com/adhyaay-karnwal/athas/server"
	"github.com/adhyaay-karnwal/athas/workspace"
)

// Runtime owns the long-lived components. The open project defaults to the
// workspace root.
type Runtime struct {
	Config   Config
	Logger   *zap.Logger
	Store    *docstore.Store
	Snapshot *docstore.SQLiteSnapshot
	Model    *llm.Client
	Service  *extract.Service
	Uploader *extract.Uploader
	Tree     *workspace.Tree
	Builder  *hardware.ContextBuilder

	cacheMu    sync.Mutex
	cache      map[string]hardware.HardwareContext
	generation uint64
	group      singleflight.Group

	watchMu sync.Mutex
	watcher *workspace.Watcher

	unsubscribe func()

	serverMu     sync.Mutex
	serverCancel context.CancelFunc
}

// New builds a runtime from cfg. The SQLite snapshot is opened and restored
// only when a snapshot path is configured.
func New(ctx context.Context, cfg Config) (*Runtime, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store := docstore.NewStore(logging.Component(logger, "docstore"))
	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Tree:   workspace.NewTree(cfg.Tree, logging.Component(logger, "workspace")),
		cache:  make(map[string]hardware.HardwareContext),
	}

	if cfg.SnapshotPath != "" {
		snap, err := docstore.NewSQLiteSnapshot(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot: %w", err)
		}
		restored, err := snap.Restore(store)
		if err != nil {
			snap.Close()
			return nil, fmt.Errorf("restore snapshot: %w", err)
		}
		logger.Info("snapshot restored", zap.String("path", cfg.SnapshotPath), zap.Int("projects", restored))
		rt.Snapshot = snap
	}

	extractor, model := rt.buildExtractor()
	rt.Model = model
	rt.Service = extract.NewService(extractor, logging.Component(logger, "extract"))
	rt.Uploader = extract.NewUploader(store, rt.Service, logging.Component(logger, "upload"))
	rt.Builder = hardware.NewContextBuilder(rt.Tree, store, logging.Component(logger, "context"))

	rt.unsubscribe = store.Subscribe(rt.onStoreEvent)
	rt.OpenProject(cfg.Workspace)
	return rt, nil
}

// buildExtractor selects the extraction backend. The model client is
// returned for probing even when only the local extractor is used.
func (r *Runtime) buildExtractor() (extract.Extractor, *llm.Client) {
	client := llm.NewClient(r.Config.OllamaEndpoint, r.Config.OllamaModel)
	client.Logger = logging.Component(r.Logger, "llm")
	model := llm.NewInstrumentedModel(client, client.Logger)

	local := extract.NewLocalExtractor()
	if r.Config.MaxFileBytes > 0 {
		local.MaxFileBytes = r.Config.MaxFileBytes
	}
	remote := extract.NewLLMExtractor(model, logging.Component(r.Logger, "extract"))
	if r.Config.MaxFileBytes > 0 {
		remote.MaxFileBytes = r.Config.MaxFileBytes
	}
	switch r.Config.Extractor {
	case ExtractorLLM:
		return remote, client
	case ExtractorChain:
		return extract.Chain{remote, local}, client
	default:
		return local, client
	}
}

// OpenProject makes root the open project and, when watching is enabled,
// moves the file watcher to it. An empty root closes the project.
func (r *Runtime) OpenProject(root string) {
	if root != "" {
		r.Store.EnsureProject(root)
	}
	r.Store.SetCurrentProject(root)
	r.InvalidateContext()
	if r.Config.Watch {
		if err := r.watch(root); err != nil {
			r.Logger.Warn("file watcher unavailable", zap.String("root", root), zap.Error(err))
		}
	}
}

func (r *Runtime) watch(root string) error {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if r.watcher != nil {
		if r.watcher.Root == root {
			return nil
		}
		_ = r.watcher.Close()
		r.watcher = nil
	}
	if root == "" {
		return nil
	}
	w, err := workspace.NewWatcher(root, r.Config.Tree, func(paths []string) {
		r.Tree.Invalidate(root)
		r.InvalidateContext()
	}, logging.Component(r.Logger, "watcher"))
	if err != nil {
		return err
	}
	w.Debounce = r.Config.Debounce
	if err := w.Start(context.Background()); err != nil {
		_ = w.Close()
		return err
	}
	r.watcher = w
	return nil
}

// HardwareContext returns the context of the open project, building it at
// most once per invalidation. Concurrent callers share one build.
func (r *Runtime) HardwareContext(ctx context.Context) hardware.HardwareContext {
	root := r.Store.CurrentProject()
	if root == "" {
		return r.Builder.Build("")
	}
	r.cacheMu.Lock()
	if cached, ok := r.cache[root]; ok {
		r.cacheMu.Unlock()
		return cached
	}
	gen := r.generation
	r.cacheMu.Unlock()

	// One flight per generation: a caller after an invalidation starts a
	// fresh build instead of joining a stale one.
	v, _, _ := r.group.Do(fmt.Sprintf("%s#%d", root, gen), func() (interface{}, error) {
		built := r.Builder.Build(root)
		r.cacheMu.Lock()
		if r.generation == gen {
			r.cache[root] = built
		}
		r.cacheMu.Unlock()
		return built, nil
	})
	return v.(hardware.HardwareContext)
}

// RenderContext formats the open project's context for a chat prompt.
func (r *Runtime) RenderContext(ctx context.Context) string {
	return hardware.FormatContext(r.HardwareContext(ctx))
}

// InvalidateContext drops every cached context. A build already in flight
// is returned to its callers but not cached.
func (r *Runtime) InvalidateContext() {
	r.cacheMu.Lock()
	r.generation++
	clear(r.cache)
	r.cacheMu.Unlock()
}

// RefreshFiles drops every cached tree snapshot and context, so the next
// build re-reads the file system. Editors call it when they report changes.
func (r *Runtime) RefreshFiles() {
	r.Tree.InvalidateAll()
	r.InvalidateContext()
}

// Upload registers paths in the open project.
func (r *Runtime) Upload(ctx context.Context, paths []string) ([]hardware.HardwareDocument, error) {
	return r.Uploader.UploadFiles(ctx, r.Store.CurrentProject(), paths)
}

func (r *Runtime) onStoreEvent(ev docstore.Event) {
	switch ev.Kind {
	case docstore.EventDocumentsChanged, docstore.EventProjectsChanged, docstore.EventCleared:
	default:
		return
	}
	r.InvalidateContext()
	if r.Snapshot == nil {
		return
	}
	if err := r.Snapshot.Save(r.Store.Projects()); err != nil {
		r.Logger.Warn("snapshot save failed", zap.String("path", r.Config.SnapshotPath), zap.Error(err))
	}
}

// StartServer launches the HTTP API server. The returned stop function shuts
// the server down using the provided context.
func (r *Runtime) StartServer(ctx context.Context, addr string) (func(context.Context) error, error) {
	r.serverMu.Lock()
	defer r.serverMu.Unlock()
	if r.serverCancel != nil {
		return nil, errors.New("server already running")
	}
	if addr == "" {
		addr = r.Config.ServerAddr
	}
	api := r.APIServer()
	serverCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- api.ServeContext(serverCtx, addr)
	}()
	r.serverCancel = cancel
	stopFn := func(shutdownCtx context.Context) error {
		r.serverMu.Lock()
		if r.serverCancel == nil {
			r.serverMu.Unlock()
			return nil
		}
		r.serverCancel()
		r.serverCancel = nil
		r.serverMu.Unlock()
		select {
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-shutdownCtx.Done():
			return shutdownCtx.Err()
		}
	}
	return stopFn, nil
}

// ServerRunning reports whether the HTTP server is active.
func (r *Runtime) ServerRunning() bool {
	r.serverMu.Lock()
	defer r.serverMu.Unlock()
	return r.serverCancel != nil
}

// APIServer returns an HTTP API bound to this runtime.
func (r *Runtime) APIServer() *server.APIServer {
	return &server.APIServer{
		Store:    r.Store,
		Context:  r,
		Uploader: r.Uploader,
		Logger:   logging.Component(r.Logger, "api"),
	}
}

// ServeRPC runs one JSON-RPC editor session over rwc. An initialize request
// naming a root opens that project.
func (r *Runtime) ServeRPC(ctx context.Context, rwc io.ReadWriteCloser) error {
	rpc := server.NewRPCServer(r.Store, r, r.Uploader, logging.Component(r.Logger, "rpc"))
	rpc.OnRoot = func(root string) {
		if r.Config.Watch {
			if err := r.watch(root); err != nil {
				r.Logger.Warn("file watcher unavailable", zap.String("root", root), zap.Error(err))
			}
		}
	}
	return rpc.ServeStream(ctx, rwc)
}

// Close stops the watcher, flushes the snapshot and syncs the logger.
func (r *Runtime) Close() error {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.watchMu.Lock()
	if r.watcher != nil {
		_ = r.watcher.Close()
		r.watcher = nil
	}
	r.watchMu.Unlock()

	var errs []error
	if r.Snapshot != nil {
		if err := r.Snapshot.Save(r.Store.Projects()); err != nil {
			errs = append(errs, fmt.Errorf("save snapshot: %w", err))
		}
		if err := r.Snapshot.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = r.Logger.Sync()
	return errors.Join(errs...)
}
