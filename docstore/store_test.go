package docstore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adhyaay-karnwal/athas/hardware"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore() *Store {
	s := NewStore(nil)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.now = clock.Now
	return s
}

func doc(id, name string, typ hardware.DocumentType, md hardware.DocumentMetadata) hardware.HardwareDocument {
	if md.Tags == nil {
		md.Tags = []string{}
	}
	return hardware.HardwareDocument{ID: id, Name: name, Type: typ, Metadata: md}
}

func TestEnsureProjectCreatesOnce(t *testing.T) {
	s := newTestStore()
	first := s.EnsureProject("/work/board")
	assert.Equal(t, "/work/board", first.ID)
	assert.Equal(t, "board", first.Name)
	assert.NotNil(t, first.Documents)

	s.AddDocument(first.ID, doc("d1", "a.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))
	second := s.EnsureProject("/work/board")
	assert.Len(t, second.Documents, 1)
	assert.Len(t, s.Projects(), 1)
}

func TestMutationsOnUnknownProjectAreNoOps(t *testing.T) {
	s := newTestStore()
	events := 0
	s.Subscribe(func(Event) { events++ })

	s.AddDocument("missing", doc("d1", "a.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))
	s.UpdateDocument("missing", "d1", DocumentPatch{})
	s.RemoveDocument("missing", "d1")
	s.UpdateExtractedData("missing", "d1", hardware.ExtractedData{})

	assert.Nil(t, s.ProjectDocuments("missing"))
	assert.Equal(t, 0, events)
	_, err := s.Project("missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestRemoveDocumentKeepsOthers(t *testing.T) {
	s := newTestStore()
	p := s.EnsureProject("/p")
	s.AddDocument(p.ID, doc("d1", "one.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))
	s.AddDocument(p.ID, doc("d2", "two.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))
	s.AddDocument(p.ID, doc("d3", "three.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))
	before, err := s.Project(p.ID)
	require.NoError(t, err)

	s.RemoveDocument(p.ID, "d2")

	after, err := s.Project(p.ID)
	require.NoError(t, err)
	require.Len(t, after.Documents, 2)
	assert.Equal(t, "d1", after.Documents[0].ID)
	assert.Equal(t, "d3", after.Documents[1].ID)
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.RootFolderPath, after.RootFolderPath)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.True(t, after.LastModified.After(before.LastModified))
}

func TestUpdateDocumentPatch(t *testing.T) {
	s := newTestStore()
	p := s.EnsureProject("/p")
	s.AddDocument(p.ID, doc("d1", "one.pdf", hardware.DocumentOther, hardware.DocumentMetadata{}))

	typ := hardware.DocumentSchematic
	s.UpdateDocument(p.ID, "d1", DocumentPatch{
		Type:     &typ,
		Metadata: &hardware.DocumentMetadata{Manufacturer: "ST", Tags: []string{"mcu"}},
	})

	got, ok := s.DocumentByID("d1")
	require.True(t, ok)
	assert.Equal(t, "one.pdf", got.Name)
	assert.Equal(t, hardware.DocumentSchematic, got.Type)
	assert.Equal(t, "ST", got.Metadata.Manufacturer)
	assert.Equal(t, []string{"mcu"}, got.Metadata.Tags)
	assert.Equal(t, p.ID, got.ProjectID)
}

func TestUpdateExtractedDataReplacesField(t *testing.T) {
	s := newTestStore()
	p := s.EnsureProject("/p")
	s.AddDocument(p.ID, doc("d1", "one.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))

	s.UpdateExtractedData(p.ID, "d1", hardware.ExtractedData{RegisterMaps: []hardware.RegisterMap{{Name: "CR1"}}})
	s.UpdateExtractedData(p.ID, "d1", hardware.ExtractedData{Pinouts: []hardware.Pinout{{PinNumber: "1"}}})

	got, ok := s.DocumentByID("d1")
	require.True(t, ok)
	require.NotNil(t, got.ExtractedData)
	assert.Empty(t, got.ExtractedData.RegisterMaps)
	assert.Len(t, got.ExtractedData.Pinouts, 1)
	assert.False(t, got.LastAccessed.IsZero())

	agg := s.AllExtractedData(p.ID)
	assert.Len(t, agg.Pinouts, 1)
}

func TestFilteredDocuments(t *testing.T) {
	s := newTestStore()
	p := s.EnsureProject("/p")
	s.AddDocument(p.ID, doc("d1", "stm32f4.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))
	s.AddDocument(p.ID, doc("d2", "lm317.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{Manufacturer: "STMicro"}))
	s.AddDocument(p.ID, doc("d3", "tps.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{Tags: []string{"Regulator"}}))
	s.AddDocument(p.ID, doc("d4", "rm0090.pdf", hardware.DocumentReferenceManual, hardware.DocumentMetadata{PartNumber: "STM32F407"}))
	s.AddDocument(p.ID, doc("d5", "board.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{PartNumber: "xst-9"}))

	assert.Len(t, s.FilteredDocuments(p.ID), 5)

	s.SetFilterType(FilterType(hardware.DocumentDatasheet))
	s.SetSearchQuery("ST")
	got := s.FilteredDocuments(p.ID)
	ids := make([]string, 0, len(got))
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"d1", "d2", "d5"}, ids)

	s.SetSearchQuery("regul")
	got = s.FilteredDocuments(p.ID)
	require.Len(t, got, 1)
	assert.Equal(t, "d3", got[0].ID)

	assert.Empty(t, s.FilteredDocuments("unknown"))
}

func TestParseFilterType(t *testing.T) {
	f, ok := ParseFilterType("")
	assert.True(t, ok)
	assert.Equal(t, FilterAll, f)

	f, ok = ParseFilterType("schematic")
	assert.True(t, ok)
	assert.True(t, f.Matches(hardware.DocumentSchematic))
	assert.False(t, f.Matches(hardware.DocumentDatasheet))

	_, ok = ParseFilterType("bogus")
	assert.False(t, ok)
}

func TestProcessingAndSnapshot(t *testing.T) {
	s := newTestStore()
	s.SetProcessing(true, "d1")
	processing, id := s.Processing()
	assert.True(t, processing)
	assert.Equal(t, "d1", id)

	s.SetSelectedDocument("d1")
	s.SetDocumentViewerOpen(true)
	s.SetCurrentProject("/p")
	state := s.Snapshot()
	assert.Equal(t, "d1", state.SelectedDocumentID)
	assert.True(t, state.DocumentViewerOpen)
	assert.Equal(t, "/p", state.CurrentProjectID)

	s.SetProcessing(false, "")
	processing, id = s.Processing()
	assert.False(t, processing)
	assert.Empty(t, id)
}

func TestReturnedDocumentsAreCopies(t *testing.T) {
	s := newTestStore()
	p := s.EnsureProject("/p")
	s.AddDocument(p.ID, doc("d1", "a.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{Tags: []string{"x"}}))

	docs := s.ProjectDocuments(p.ID)
	docs[0].Name = "changed"
	docs[0].Metadata.Tags[0] = "changed"

	got, _ := s.DocumentByID("d1")
	assert.Equal(t, "a.pdf", got.Name)
	assert.Equal(t, []string{"x"}, got.Metadata.Tags)
}

func TestRemoveProjectAndClear(t *testing.T) {
	s := newTestStore()
	s.EnsureProject("/a")
	s.EnsureProject("/b")
	s.AddDocument("/a", doc("d1", "a.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))

	s.RemoveProject("/a")
	_, ok := s.DocumentByID("d1")
	assert.False(t, ok)
	projects := s.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, "/b", projects[0].ID)

	s.SetSearchQuery("q")
	s.Clear()
	assert.Empty(t, s.Projects())
	assert.Equal(t, State{FilterType: FilterAll}, s.Snapshot())
}

func TestSubscribeReceivesEvents(t *testing.T) {
	s := newTestStore()
	var got []Event
	unsubscribe := s.Subscribe(func(ev Event) { got = append(got, ev) })

	p := s.EnsureProject("/p")
	s.AddDocument(p.ID, doc("d1", "a.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))
	unsubscribe()
	s.RemoveDocument(p.ID, "d1")

	require.Len(t, got, 2)
	assert.Equal(t, EventProjectsChanged, got[0].Kind)
	assert.Equal(t, Event{Kind: EventDocumentsChanged, ProjectID: "/p", DocumentID: "d1"}, got[1])
}

func TestConcurrentMutations(t *testing.T) {
	s := newTestStore()
	p := s.EnsureProject("/p")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := hardware.NewDocumentID(time.Now())
			s.AddDocument(p.ID, doc(id, "a.pdf", hardware.DocumentDatasheet, hardware.DocumentMetadata{}))
			_ = s.FilteredDocuments(p.ID)
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.ProjectDocuments(p.ID), 20)
}
