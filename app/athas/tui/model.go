// Package tui is the terminal document browser: a thin shell over the
// store's filtered document view.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	runtimesvc "github.com/adhyaay-karnwal/athas/app/athas/runtime"
	"github.com/adhyaay-karnwal/athas/docstore"
	"github.com/adhyaay-karnwal/athas/hardware"
)

// Run starts the browser on the runtime's store and blocks until it quits.
func Run(ctx context.Context, rt *runtimesvc.Runtime) error {
	if rt == nil {
		return fmt.Errorf("runtime is required")
	}
	model := NewModel(rt.Store, func() string {
		return rt.HardwareContext(ctx).Summary
	})
	program := tea.NewProgram(
		model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	unsubscribe := rt.Store.Subscribe(func(ev docstore.Event) {
		go program.Send(storeChangedMsg{kind: ev.Kind})
	})
	defer unsubscribe()
	_, err := program.Run()
	return err
}

// InputMode tracks what keystrokes are routed to.
type InputMode int

const (
	ModeBrowse InputMode = iota
	ModeSearch
	ModeConfirmRemove
)

// storeChangedMsg is delivered when another front-end mutates the store.
type storeChangedMsg struct {
	kind docstore.EventKind
}

// Model implements tea.Model over a document store.
type Model struct {
	store   *docstore.Store
	summary func() string

	search textinput.Model
	detail viewport.Model

	docs   []hardware.HardwareDocument
	cursor int

	mode    InputMode
	pending string
	notice  string

	width  int
	height int
	ready  bool
}

// NewModel builds a browser over store. summary, when set, supplies the
// status-bar context digest.
func NewModel(store *docstore.Store, summary func() string) Model {
	search := textinput.New()
	search.Placeholder = "search name, tag, manufacturer, part number"
	search.Prompt = ""
	search.SetValue(store.Snapshot().SearchQuery)

	m := Model{
		store:   store,
		summary: summary,
		search:  search,
		detail:  viewport.New(0, 0),
		mode:    ModeBrowse,
	}
	return m.reload()
}

// Documents returns the documents currently listed.
func (m Model) Documents() []hardware.HardwareDocument {
	return m.docs
}

// Mode reports the current input mode.
func (m Model) Mode() InputMode {
	return m.mode
}

// reload re-reads the filtered view and keeps the cursor on the selected
// document when it is still listed.
func (m Model) reload() Model {
	m.docs = m.store.FilteredDocuments(m.store.CurrentProject())
	selected := m.store.Snapshot().SelectedDocumentID
	if selected != "" {
		for i, doc := range m.docs {
			if doc.ID == selected {
				m.cursor = i
				break
			}
		}
	}
	m.cursor = max(0, min(m.cursor, len(m.docs)-1))
	return m.refreshDetail()
}

func (m Model) current() (hardware.HardwareDocument, bool) {
	if len(m.docs) == 0 {
		return hardware.HardwareDocument{}, false
	}
	return m.docs[m.cursor], true
}

// nextFilter cycles all -> each document type -> all.
func nextFilter(f docstore.FilterType) docstore.FilterType {
	types := hardware.DocumentTypes()
	if f == docstore.FilterAll || f == "" {
		return docstore.FilterType(types[0])
	}
	for i, t := range types {
		if docstore.FilterType(t) == f && i+1 < len(types) {
			return docstore.FilterType(types[i+1])
		}
	}
	return docstore.FilterAll
}
