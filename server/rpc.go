package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/adhyaay-karnwal/athas/docstore"
	"github.com/adhyaay-karnwal/athas/extract"
	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/internal/metrics"
)

// RPCServer speaks LSP-framed JSON-RPC to an editor. Besides the lifecycle
// methods it answers the hardware/* requests.
type RPCServer struct {
	Store    *docstore.Store
	Context  ContextSource
	Uploader DocumentUploader
	Logger   *zap.Logger
	// OnRoot is called when initialize names a workspace root.
	OnRoot func(root string)

	mu       sync.Mutex
	shutdown bool
	exit     chan struct{}
	exitOnce sync.Once
}

// ContextParams selects the hardware/context encoding.
type ContextParams struct {
	Format string `json:"format,omitempty"`
}

// ContextResult is the hardware/context reply. Text is set for format "text".
type ContextResult struct {
	Context hardware.HardwareContext `json:"context"`
	Text    string                   `json:"text,omitempty"`
}

// DocumentsParams filters hardware/documents.
type DocumentsParams struct {
	Query string `json:"query,omitempty"`
	Type  string `json:"type,omitempty"`
}

// DocumentParams names one document.
type DocumentParams struct {
	ID string `json:"id"`
}

// SessionPromptParams names a session mode.
type SessionPromptParams struct {
	Mode string `json:"mode"`
}

// SessionPromptResult carries the composed system prompt.
type SessionPromptResult struct {
	Mode   string `json:"mode"`
	Prompt string `json:"prompt"`
}

// ViewParams names a file to open in a viewer.
type ViewParams struct {
	Path string `json:"path"`
}

// NewRPCServer wires an RPC server.
func NewRPCServer(store *docstore.Store, contexts ContextSource, uploader DocumentUploader, logger *zap.Logger) *RPCServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCServer{
		Store:    store,
		Context:  contexts,
		Uploader: uploader,
		Logger:   logger,
		exit:     make(chan struct{}),
	}
}

// ServeStream runs one editor session over rwc until the peer disconnects,
// exit is received or ctx is cancelled.
func (s *RPCServer) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))
	defer conn.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	case <-s.exit:
		return nil
	}
}

func (s *RPCServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	result, err := s.dispatch(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		s.Logger.Warn("rpc request failed", zap.String("method", req.Method), zap.Error(err))
	}
	metrics.RPCRequests.WithLabelValues(req.Method, outcome).Inc()
	return result, err
}

func (s *RPCServer) dispatch(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	if req.Method == "exit" {
		s.exitOnce.Do(func() { close(s.exit) })
		return nil, nil
	}
	s.mu.Lock()
	down := s.shutdown
	s.mu.Unlock()
	if down {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}

	switch req.Method {
	case "initialize":
		var params protocol.InitializeParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return s.initialize(params), nil
	case "initialized":
		return nil, nil
	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil
	case "workspace/didChangeWatchedFiles":
		var params protocol.DidChangeWatchedFilesParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		s.Logger.Debug("watched files changed", zap.Int("changes", len(params.Changes)))
		if s.Context != nil && len(params.Changes) > 0 {
			s.Context.RefreshFiles()
		}
		return nil, nil
	case "hardware/context":
		var params ContextParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		hctx := hardware.EmptyContext()
		if s.Context != nil {
			hctx = s.Context.HardwareContext(ctx)
		}
		result := ContextResult{Context: hctx}
		if params.Format == "text" {
			result.Text = hardware.FormatContext(hctx)
		}
		return result, nil
	case "hardware/documents":
		var params DocumentsParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		filter, ok := docstore.ParseFilterType(params.Type)
		if !ok {
			return nil, invalidParams("unknown document type %q", params.Type)
		}
		root := s.Store.CurrentProject()
		return nonNil(docstore.FilterDocuments(s.Store.ProjectDocuments(root), filter, params.Query)), nil
	case "hardware/upload":
		var params UploadRequest
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		root := params.Root
		if root == "" {
			root = s.Store.CurrentProject()
		}
		docs, err := s.Uploader.UploadFiles(ctx, root, params.Paths)
		if errors.Is(err, extract.ErrNoProject) {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: err.Error()}
		}
		if err != nil {
			return nil, err
		}
		return UploadResponse{Documents: nonNil(docs)}, nil
	case "hardware/removeDocument":
		var params DocumentParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		doc, err := s.Store.Document(params.ID)
		if err != nil {
			return nil, invalidParams("%s", err.Error())
		}
		s.Store.RemoveDocument(doc.ProjectID, doc.ID)
		return nil, nil
	case "hardware/modes":
		return ModesResponse{Modes: hardware.SessionModes(), Commands: hardware.SlashCommands()}, nil
	case "hardware/sessionPrompt":
		var params SessionPromptParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		prompt := hardware.SessionPrompt(params.Mode)
		if prompt == "" {
			return nil, invalidParams("unknown session mode %q", params.Mode)
		}
		return SessionPromptResult{Mode: params.Mode, Prompt: prompt}, nil
	case "hardware/view":
		var params ViewParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return LoadViewer(params.Path)
	}
	if req.Notif {
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled: " + req.Method}
}

func (s *RPCServer) initialize(params protocol.InitializeParams) *protocol.InitializeResult {
	root := uriToPath(string(params.RootURI))
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(string(params.WorkspaceFolders[0].URI))
	}
	if root == "" {
		root = params.RootPath
	}
	client := ""
	if params.ClientInfo != nil {
		client = params.ClientInfo.Name
	}
	s.Logger.Info("rpc initialize", zap.String("client", client), zap.String("root", root))
	if root != "" {
		s.Store.EnsureProject(root)
		s.Store.SetCurrentProject(root)
		if s.OnRoot != nil {
			s.OnRoot(root)
		}
	}
	return &protocol.InitializeResult{
		ServerInfo: &protocol.ServerInfo{Name: "athas", Version: "0.1"},
	}
}

func decodeParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func invalidParams(format string, args ...interface{}) error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	uri = strings.TrimPrefix(uri, "file://")
	uri = strings.ReplaceAll(uri, "%3A", ":")
	uri = strings.ReplaceAll(uri, "%20", " ")
	return filepath.FromSlash(uri)
}

// StdioConn joins stdin and stdout into one stream for ServeStream.
type StdioConn struct {
	io.Reader
	io.Writer
}

// Close is a no-op; the process owns stdio.
func (StdioConn) Close() error { return nil }
