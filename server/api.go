package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/adhyaay-karnwal/athas/docstore"
	"github.com/adhyaay-karnwal/athas/extract"
	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/internal/metrics"
	"github.com/adhyaay-karnwal/athas/viewer"
)

// ContextSource serves the hardware context of the open project.
type ContextSource interface {
	HardwareContext(ctx context.Context) hardware.HardwareContext
	InvalidateContext()
	// RefreshFiles drops cached file snapshots as well as contexts.
	RefreshFiles()
}

// DocumentUploader registers files as hardware documents.
type DocumentUploader interface {
	UploadFiles(ctx context.Context, root string, paths []string) ([]hardware.HardwareDocument, error)
}

// APIServer exposes the document store and the hardware context over HTTP.
type APIServer struct {
	Store    *docstore.Store
	Context  ContextSource
	Uploader DocumentUploader
	Logger   *zap.Logger
}

// UploadRequest is the body of POST /api/documents. Root defaults to the
// open project.
type UploadRequest struct {
	Root  string   `json:"root,omitempty"`
	Paths []string `json:"paths"`
}

// UploadResponse lists the documents registered by an upload.
type UploadResponse struct {
	Documents []hardware.HardwareDocument `json:"documents"`
	Error     string                      `json:"error,omitempty"`
}

// ModesResponse is the body of GET /api/modes.
type ModesResponse struct {
	Modes    []hardware.ModeProfile  `json:"modes"`
	Commands []hardware.SlashCommand `json:"commands"`
}

// ViewerResponse carries whichever viewer payload matches the file.
type ViewerResponse struct {
	Kind    viewer.Kind         `json:"kind"`
	PCB     *viewer.PCBDesign   `json:"pcb,omitempty"`
	Model   *viewer.Model3D     `json:"model,omitempty"`
	Tests   []viewer.TestResult `json:"tests,omitempty"`
	Summary *viewer.TestSummary `json:"summary,omitempty"`
}

// Serve starts listening on the provided address.
func (s *APIServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context cancellation.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger().Info("API listening", zap.String("addr", addr))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the routed API.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /api/context", s.handleContext)
	s.route(mux, "POST /api/context/refresh", s.handleRefresh)
	s.route(mux, "GET /api/state", s.handleState)
	s.route(mux, "GET /api/documents", s.handleListDocuments)
	s.route(mux, "POST /api/documents", s.handleUpload)
	s.route(mux, "GET /api/documents/{id}", s.handleGetDocument)
	s.route(mux, "DELETE /api/documents/{id}", s.handleDeleteDocument)
	s.route(mux, "GET /api/modes", s.handleModes)
	s.route(mux, "GET /api/modes/{id}/prompt", s.handleModePrompt)
	s.route(mux, "GET /api/viewer", s.handleViewer)
	s.route(mux, "GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *APIServer) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		metrics.APIRequests.WithLabelValues(pattern, strconv.Itoa(rec.code)).Inc()
		if rec.code >= http.StatusInternalServerError {
			s.logger().Warn("api request failed", zap.String("route", pattern), zap.Int("code", rec.code))
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *APIServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.Context != nil {
		s.Context.RefreshFiles()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) handleContext(w http.ResponseWriter, r *http.Request) {
	hctx := s.hardwareContext(r.Context())
	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, hctx)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(hardware.FormatContext(hctx)))
	default:
		http.Error(w, "format must be text or json", http.StatusBadRequest)
	}
}

func (s *APIServer) hardwareContext(ctx context.Context) hardware.HardwareContext {
	if s.Context == nil {
		return hardware.EmptyContext()
	}
	return s.Context.HardwareContext(ctx)
}

func (s *APIServer) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Store.Snapshot())
}

// handleListDocuments applies the q and type parameters when given and the
// panel's own search and filter otherwise.
func (s *APIServer) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	root := s.Store.CurrentProject()
	if root == "" {
		writeJSON(w, []hardware.HardwareDocument{})
		return
	}
	query := r.URL.Query()
	if !query.Has("q") && !query.Has("type") {
		writeJSON(w, nonNil(s.Store.FilteredDocuments(root)))
		return
	}
	filter, ok := docstore.ParseFilterType(query.Get("type"))
	if !ok {
		http.Error(w, "unknown document type "+strconv.Quote(query.Get("type")), http.StatusBadRequest)
		return
	}
	docs := docstore.FilterDocuments(s.Store.ProjectDocuments(root), filter, query.Get("q"))
	writeJSON(w, nonNil(docs))
}

func (s *APIServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Paths) == 0 {
		http.Error(w, "paths is required", http.StatusBadRequest)
		return
	}
	root := req.Root
	if root == "" {
		root = s.Store.CurrentProject()
	}
	docs, err := s.Uploader.UploadFiles(r.Context(), root, req.Paths)
	resp := UploadResponse{Documents: nonNil(docs)}
	if err != nil {
		resp.Error = err.Error()
		code := http.StatusInternalServerError
		if errors.Is(err, extract.ErrNoProject) {
			code = http.StatusConflict
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}
	writeJSON(w, resp)
}

func (s *APIServer) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Store.Document(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, doc)
}

func (s *APIServer) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Store.Document(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.Store.RemoveDocument(doc.ProjectID, doc.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) handleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ModesResponse{Modes: hardware.SessionModes(), Commands: hardware.SlashCommands()})
}

func (s *APIServer) handleModePrompt(w http.ResponseWriter, r *http.Request) {
	prompt := hardware.SessionPrompt(r.PathValue("id"))
	if prompt == "" {
		http.Error(w, "unknown session mode", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(prompt))
}

// handleViewer loads ?path= with the viewer matching its extension. Relative
// paths resolve against the open project.
func (s *APIServer) handleViewer(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Store.CurrentProject(), path)
	}
	resp, err := LoadViewer(path)
	if err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, viewer.ErrUnsupportedFormat) {
			code = http.StatusUnsupportedMediaType
		}
		http.Error(w, err.Error(), code)
		return
	}
	writeJSON(w, resp)
}

// LoadViewer dispatches path to the PCB, 3D model or test result loader.
func LoadViewer(path string) (*ViewerResponse, error) {
	resp := &ViewerResponse{Kind: viewer.KindFor(path)}
	var err error
	switch resp.Kind {
	case viewer.KindPCB:
		resp.PCB, err = viewer.LoadPCBDesign(path)
	case viewer.Kind3DModel:
		resp.Model, err = viewer.Load3DModel(path)
	case viewer.KindTestResult:
		resp.Tests, err = viewer.LoadTestResults(path)
		if err == nil {
			summary := viewer.Summarize(resp.Tests)
			resp.Summary = &summary
		}
	default:
		err = fmt.Errorf("no viewer for %s: %w", filepath.Base(path), viewer.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *APIServer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func nonNil(docs []hardware.HardwareDocument) []hardware.HardwareDocument {
	if docs == nil {
		return []hardware.HardwareDocument{}
	}
	return docs
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
