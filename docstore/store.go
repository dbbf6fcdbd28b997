// Package docstore holds the hardware documents uploaded per project along
// with the panel state (selection, viewer, search, filter, processing).
package docstore

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/internal/metrics"
)

var (
	// ErrProjectNotFound is returned by lookups of an unknown project id.
	ErrProjectNotFound = errors.New("project not found")
	// ErrDocumentNotFound is returned by lookups of an unknown document id.
	ErrDocumentNotFound = errors.New("document not found")
)

// FilterType is "all" or one of the hardware document types.
type FilterType string

// FilterAll disables the type filter.
const FilterAll FilterType = "all"

// ParseFilterType validates a wire value. Empty means all.
func ParseFilterType(value string) (FilterType, bool) {
	if value == "" || value == string(FilterAll) {
		return FilterAll, true
	}
	if t, ok := hardware.ParseDocumentType(value); ok {
		return FilterType(t), true
	}
	return "", false
}

// Matches reports whether a document of type t passes the filter.
func (f FilterType) Matches(t hardware.DocumentType) bool {
	return f == FilterAll || f == "" || string(f) == string(t)
}

// ProjectPatch carries the project fields to overwrite. Nil fields are kept.
type ProjectPatch struct {
	Name           *string
	RootFolderPath *string
}

// DocumentPatch carries the document fields to overwrite. Nil fields are
// kept; ID and ProjectID never change.
type DocumentPatch struct {
	Name          *string
	Type          *hardware.DocumentType
	FilePath      *string
	FileSize      *int64
	LastAccessed  *time.Time
	Metadata      *hardware.DocumentMetadata
	ExtractedData *hardware.ExtractedData
}

// State is a read-only copy of the panel state.
type State struct {
	CurrentProjectID     string     `json:"currentProjectId"`
	SelectedDocumentID   string     `json:"selectedDocumentId"`
	DocumentViewerOpen   bool       `json:"isDocumentViewerOpen"`
	Processing           bool       `json:"isProcessing"`
	ProcessingDocumentID string     `json:"processingDocumentId"`
	SearchQuery          string     `json:"searchQuery"`
	FilterType           FilterType `json:"filterType"`
}

// EventKind identifies what changed in the store.
type EventKind string

const (
	EventProjectsChanged   EventKind = "projects"
	EventDocumentsChanged  EventKind = "documents"
	EventSelectionChanged  EventKind = "selection"
	EventFilterChanged     EventKind = "filter"
	EventProcessingChanged EventKind = "processing"
	EventCleared           EventKind = "cleared"
)

// Event is delivered to subscribers after a mutation has been applied.
type Event struct {
	Kind       EventKind
	ProjectID  string
	DocumentID string
}

// Store is the in-memory document store. Mutations are applied in call order
// and the last writer wins; every document mutation bumps the owning
// project's LastModified. Mutations on an unknown project are no-ops.
type Store struct {
	mu       sync.RWMutex
	projects map[string]*hardware.Project
	order    []string
	state    State

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSub     int

	now    func() time.Time
	logger *zap.Logger
}

// NewStore returns an empty store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		projects:    make(map[string]*hardware.Project),
		state:       State{FilterType: FilterAll},
		subscribers: make(map[int]func(Event)),
		now:         time.Now,
		logger:      logger,
	}
}

// Subscribe registers fn for change events and returns a function that
// removes it. fn runs on the mutating goroutine after the lock is released.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// SetCurrentProject records the active project id; "" means none.
func (s *Store) SetCurrentProject(projectID string) {
	s.mu.Lock()
	s.state.CurrentProjectID = projectID
	s.mu.Unlock()
	s.emit(Event{Kind: EventProjectsChanged, ProjectID: projectID})
}

// CurrentProject returns the active project id.
func (s *Store) CurrentProject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentProjectID
}

// EnsureProject returns the project rooted at root, creating it on first
// reference. The project id is the root path.
func (s *Store) EnsureProject(root string) hardware.Project {
	s.mu.Lock()
	if p, ok := s.projects[root]; ok {
		out := p.Clone()
		s.mu.Unlock()
		return out
	}
	now := s.now()
	p := &hardware.Project{
		ID:             root,
		Name:           filepath.Base(root),
		RootFolderPath: root,
		Documents:      []hardware.HardwareDocument{},
		CreatedAt:      now,
		LastModified:   now,
	}
	s.insertLocked(p)
	out := p.Clone()
	s.mu.Unlock()
	s.logger.Debug("project created", zap.String("project", root))
	s.emit(Event{Kind: EventProjectsChanged, ProjectID: root})
	return out
}

// AddProject inserts or replaces a project by id.
func (s *Store) AddProject(project hardware.Project) {
	p := project.Clone()
	if p.Documents == nil {
		p.Documents = []hardware.HardwareDocument{}
	}
	s.mu.Lock()
	s.insertLocked(&p)
	s.mu.Unlock()
	s.emit(Event{Kind: EventProjectsChanged, ProjectID: p.ID})
}

func (s *Store) insertLocked(p *hardware.Project) {
	if _, ok := s.projects[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.projects[p.ID] = p
}

// UpdateProject applies patch to the project. Unknown ids are ignored.
func (s *Store) UpdateProject(projectID string, patch ProjectPatch) {
	s.mu.Lock()
	p, ok := s.projects[projectID]
	if ok {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.RootFolderPath != nil {
			p.RootFolderPath = *patch.RootFolderPath
		}
	}
	s.mu.Unlock()
	if ok {
		s.emit(Event{Kind: EventProjectsChanged, ProjectID: projectID})
	}
}

// RemoveProject drops the project and its documents.
func (s *Store) RemoveProject(projectID string) {
	s.mu.Lock()
	_, ok := s.projects[projectID]
	if ok {
		delete(s.projects, projectID)
		for i, id := range s.order {
			if id == projectID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if ok {
		s.emit(Event{Kind: EventProjectsChanged, ProjectID: projectID})
	}
}

// Project returns a copy of the project.
func (s *Store) Project(projectID string) (hardware.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return hardware.Project{}, ErrProjectNotFound
	}
	return p.Clone(), nil
}

// Projects returns copies of every project in insertion order.
func (s *Store) Projects() []hardware.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]hardware.Project, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.projects[id].Clone())
	}
	return out
}

// AddDocument appends doc to the project.
func (s *Store) AddDocument(projectID string, doc hardware.HardwareDocument) {
	if !s.mutateProject(projectID, func(p *hardware.Project) {
		d := doc.Clone()
		d.ProjectID = projectID
		p.Documents = append(p.Documents, d)
	}) {
		return
	}
	s.emit(Event{Kind: EventDocumentsChanged, ProjectID: projectID, DocumentID: doc.ID})
}

// UpdateDocument applies patch to the document with docID.
func (s *Store) UpdateDocument(projectID, docID string, patch DocumentPatch) {
	if !s.mutateProject(projectID, func(p *hardware.Project) {
		for i := range p.Documents {
			if p.Documents[i].ID == docID {
				applyDocumentPatch(&p.Documents[i], patch)
			}
		}
	}) {
		return
	}
	s.emit(Event{Kind: EventDocumentsChanged, ProjectID: projectID, DocumentID: docID})
}

func applyDocumentPatch(doc *hardware.HardwareDocument, patch DocumentPatch) {
	if patch.Name != nil {
		doc.Name = *patch.Name
	}
	if patch.Type != nil {
		doc.Type = *patch.Type
	}
	if patch.FilePath != nil {
		doc.FilePath = *patch.FilePath
	}
	if patch.FileSize != nil {
		doc.FileSize = *patch.FileSize
	}
	if patch.LastAccessed != nil {
		doc.LastAccessed = *patch.LastAccessed
	}
	if patch.Metadata != nil {
		md := *patch.Metadata
		md.Tags = append([]string{}, patch.Metadata.Tags...)
		doc.Metadata = md
	}
	if patch.ExtractedData != nil {
		data := *patch.ExtractedData
		doc.ExtractedData = &data
	}
}

// RemoveDocument drops the document from the project. Other documents keep
// their identifiers and order.
func (s *Store) RemoveDocument(projectID, docID string) {
	if !s.mutateProject(projectID, func(p *hardware.Project) {
		kept := p.Documents[:0:0]
		for _, doc := range p.Documents {
			if doc.ID != docID {
				kept = append(kept, doc)
			}
		}
		p.Documents = kept
	}) {
		return
	}
	s.emit(Event{Kind: EventDocumentsChanged, ProjectID: projectID, DocumentID: docID})
}

// UpdateExtractedData replaces the document's extracted data in one step and
// stamps LastAccessed.
func (s *Store) UpdateExtractedData(projectID, docID string, data hardware.ExtractedData) {
	if !s.mutateProject(projectID, func(p *hardware.Project) {
		now := s.now()
		for i := range p.Documents {
			if p.Documents[i].ID == docID {
				replaced := data
				p.Documents[i].ExtractedData = &replaced
				p.Documents[i].LastAccessed = now
			}
		}
	}) {
		return
	}
	s.emit(Event{Kind: EventDocumentsChanged, ProjectID: projectID, DocumentID: docID})
}

func (s *Store) mutateProject(projectID string, fn func(*hardware.Project)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		s.logger.Debug("mutation on unknown project ignored", zap.String("project", projectID))
		return false
	}
	fn(p)
	p.LastModified = s.now()
	return true
}

// SetSelectedDocument records the selected document id; "" clears it.
func (s *Store) SetSelectedDocument(docID string) {
	s.mu.Lock()
	s.state.SelectedDocumentID = docID
	s.mu.Unlock()
	s.emit(Event{Kind: EventSelectionChanged, DocumentID: docID})
}

// SetDocumentViewerOpen toggles the document viewer.
func (s *Store) SetDocumentViewerOpen(open bool) {
	s.mu.Lock()
	s.state.DocumentViewerOpen = open
	s.mu.Unlock()
	s.emit(Event{Kind: EventSelectionChanged})
}

// SetSearchQuery sets the free-text filter.
func (s *Store) SetSearchQuery(query string) {
	s.mu.Lock()
	s.state.SearchQuery = query
	s.mu.Unlock()
	s.emit(Event{Kind: EventFilterChanged})
}

// SetFilterType sets the document type filter.
func (s *Store) SetFilterType(filter FilterType) {
	if filter == "" {
		filter = FilterAll
	}
	s.mu.Lock()
	s.state.FilterType = filter
	s.mu.Unlock()
	s.emit(Event{Kind: EventFilterChanged})
}

// SetProcessing sets the global processing flag. There is one flag for the
// whole store.
func (s *Store) SetProcessing(processing bool, docID string) {
	s.mu.Lock()
	s.state.Processing = processing
	s.state.ProcessingDocumentID = docID
	s.mu.Unlock()
	if processing {
		metrics.Processing.Set(1)
	} else {
		metrics.Processing.Set(0)
	}
	s.emit(Event{Kind: EventProcessingChanged, DocumentID: docID})
}

// Processing returns the processing flag and document id.
func (s *Store) Processing() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Processing, s.state.ProcessingDocumentID
}

// Snapshot returns a copy of the panel state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ProjectDocuments returns copies of the project's documents in insertion
// order, or nil for an unknown project.
func (s *Store) ProjectDocuments(projectID string) []hardware.HardwareDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil
	}
	return cloneDocuments(p.Documents)
}

// FilteredDocuments applies the current type filter and search query to the
// project's documents.
func (s *Store) FilteredDocuments(projectID string) []hardware.HardwareDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return []hardware.HardwareDocument{}
	}
	return FilterDocuments(p.Documents, s.state.FilterType, s.state.SearchQuery)
}

// FilterDocuments keeps documents that pass the type filter and whose name,
// tags, manufacturer or part number contain query, case-insensitively.
func FilterDocuments(docs []hardware.HardwareDocument, filter FilterType, query string) []hardware.HardwareDocument {
	needle := strings.ToLower(query)
	out := []hardware.HardwareDocument{}
	for _, doc := range docs {
		if !filter.Matches(doc.Type) {
			continue
		}
		if needle != "" && !matchesQuery(doc, needle) {
			continue
		}
		out = append(out, doc.Clone())
	}
	return out
}

func matchesQuery(doc hardware.HardwareDocument, needle string) bool {
	if strings.Contains(strings.ToLower(doc.Name), needle) {
		return true
	}
	for _, tag := range doc.Metadata.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(doc.Metadata.Manufacturer), needle) ||
		strings.Contains(strings.ToLower(doc.Metadata.PartNumber), needle)
}

// DocumentByID searches every project for docID.
func (s *Store) DocumentByID(docID string) (hardware.HardwareDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		for _, doc := range s.projects[id].Documents {
			if doc.ID == docID {
				return doc.Clone(), true
			}
		}
	}
	return hardware.HardwareDocument{}, false
}

// Document is DocumentByID with an error for front-ends that report lookups.
func (s *Store) Document(docID string) (hardware.HardwareDocument, error) {
	doc, ok := s.DocumentByID(docID)
	if !ok {
		return hardware.HardwareDocument{}, ErrDocumentNotFound
	}
	return doc, nil
}

// AllExtractedData aggregates the extracted data of the project's documents.
func (s *Store) AllExtractedData(projectID string) hardware.ExtractedData {
	return hardware.AggregateExtractedData(s.ProjectDocuments(projectID))
}

// Clear resets the store to its initial state.
func (s *Store) Clear() {
	s.mu.Lock()
	s.projects = make(map[string]*hardware.Project)
	s.order = nil
	s.state = State{FilterType: FilterAll}
	s.mu.Unlock()
	metrics.Processing.Set(0)
	s.emit(Event{Kind: EventCleared})
}

func cloneDocuments(docs []hardware.HardwareDocument) []hardware.HardwareDocument {
	out := make([]hardware.HardwareDocument, len(docs))
	for i, doc := range docs {
		out[i] = doc.Clone()
	}
	return out
}
