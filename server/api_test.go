package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adhyaay-karnwal/athas/docstore"
	"github.com/adhyaay-karnwal/athas/extract"
	"github.com/adhyaay-karnwal/athas/hardware"
)

type stubContext struct {
	ctx         hardware.HardwareContext
	invalidated int
	refreshed   int
}

func (s *stubContext) HardwareContext(context.Context) hardware.HardwareContext { return s.ctx }
func (s *stubContext) InvalidateContext() { s.invalidated++ }
func (s *stubContext) RefreshFiles() { s.refreshed++ }

type fixture struct {
	root     string
	store    *docstore.Store
	contexts *stubContext
	api      *APIServer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	store := docstore.NewStore(nil)
	store.EnsureProject(root)
	store.SetCurrentProject(root)
	contexts := &stubContext{ctx: hardware.HardwareContext{
		FirmwareFiles: []string{"src/main.c"},
		PCBFiles:      []string{},
		Schematics:    []string{},
		TestResults:   []string{},
		Summary:       "1 firmware files",
	}}
	uploader := extract.NewUploader(store, extract.NewService(extract.NewLocalExtractor(), nil), nil)
	return &fixture{
		root:     root,
		store:    store,
		contexts: contexts,
		api:      &APIServer{Store: store, Context: contexts, Uploader: uploader},
	}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.root, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) do(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAPIServerContext(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/context", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var got hardware.HardwareContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"src/main.c"}, got.FirmwareFiles)

	rec = f.do(http.MethodGet, "/api/context?format=text", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "### Firmware Files\n- src/main.c")

	rec = f.do(http.MethodGet, "/api/context?format=yaml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIServerContextWithoutSource(t *testing.T) {
	api := &APIServer{Store: docstore.NewStore(nil)}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/context", nil))
	var got hardware.HardwareContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, hardware.NoProjectSummary, got.Summary)
}

func TestAPIServerRefreshContext(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/context/refresh", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.contexts.refreshed)

	api := &APIServer{Store: docstore.NewStore(nil)}
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/context/refresh", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPIServerUploadListDelete(t *testing.T) {
	f := newFixture(t)
	sheet := f.write(t, "stm32f4_datasheet.pdf", "%PDF-1.7")
	notes := f.write(t, "wiki_notes.txt", "bring-up notes")

	body, _ := json.Marshal(UploadRequest{Paths: []string{sheet, notes}})
	rec := f.do(http.MethodPost, "/api/documents", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var uploaded UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	require.Len(t, uploaded.Documents, 2)
	assert.Equal(t, hardware.DocumentDatasheet, uploaded.Documents[0].Type)
	assert.Equal(t, "PDF Document", uploaded.Documents[0].Metadata.Title)

	var listed []hardware.HardwareDocument
	rec = f.do(http.MethodGet, "/api/documents?type=company-knowledge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "wiki_notes.txt", listed[0].Name)

	rec = f.do(http.MethodGet, "/api/documents?q=STM32", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "stm32f4_datasheet.pdf", listed[0].Name)

	rec = f.do(http.MethodGet, "/api/documents?type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.store.SetFilterType(docstore.FilterType(hardware.DocumentDatasheet))
	rec = f.do(http.MethodGet, "/api/documents", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1, "panel filter applies without query params")

	id := uploaded.Documents[0].ID
	rec = f.do(http.MethodGet, "/api/documents/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodDelete, "/api/documents/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, f.store.ProjectDocuments(f.root), 1)

	rec = f.do(http.MethodDelete, "/api/documents/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIServerUploadWithoutProject(t *testing.T) {
	f := newFixture(t)
	f.store.SetCurrentProject("")
	body, _ := json.Marshal(UploadRequest{Paths: []string{"/tmp/x.pdf"}})
	rec := f.do(http.MethodPost, "/api/documents", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), extract.ErrNoProject.Error())

	rec = f.do(http.MethodPost, "/api/documents", []byte(`{"paths": []}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIServerListWithoutProject(t *testing.T) {
	f := newFixture(t)
	f.store.SetCurrentProject("")
	rec := f.do(http.MethodGet, "/api/documents", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAPIServerModes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/modes", nil)
	var modes ModesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &modes))
	assert.Len(t, modes.Modes, 5)
	assert.Len(t, modes.Commands, 10)

	rec = f.do(http.MethodGet, "/api/modes/debugging/prompt", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "You are Wind"))
	assert.Contains(t, rec.Body.String(), "## Current Mode: Hardware Debugging")

	rec = f.do(http.MethodGet, "/api/modes/sales/prompt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIServerViewer(t *testing.T) {
	f := newFixture(t)
	f.write(t, "board.kicad_pcb", "(kicad_pcb (version 4))")
	f.write(t, "notes.md", "# hi")

	rec := f.do(http.MethodGet, "/api/viewer?path=board.kicad_pcb", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ViewerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pcb", string(resp.Kind))
	require.NotNil(t, resp.PCB)
	assert.Equal(t, []string{"F.Cu", "B.Cu", "F.SilkS"}, resp.PCB.Layers)

	rec = f.do(http.MethodGet, "/api/viewer?path=notes.md", nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = f.do(http.MethodGet, "/api/viewer?path=missing.stl", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(http.MethodGet, "/api/viewer", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIServerHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, "ok", rec.Body.String())

	f.do(http.MethodGet, "/api/modes", nil)
	rec = f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "athas_api_requests_total")
}

func TestAPIServerServeContextStops(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.api.ServeContext(ctx, "127.0.0.1:0")
	assert.ErrorIs(t, err, context.Canceled)
}
