package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Init fulfills the Bubble Tea Model interface.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update applies incoming Bubble Tea messages to mutate the Model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil
	case storeChangedMsg:
		return m.reload(), nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeSearch:
			return m.handleSearchMode(msg)
		case ModeConfirmRemove:
			return m.handleConfirmMode(msg), nil
		default:
			return m.handleBrowseMode(msg)
		}
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.search.Width = max(10, msg.Width-12)
	m.detail.Width = max(10, msg.Width-4)
	m.detail.Height = max(1, msg.Height/2)
	m.ready = true
	return m.refreshDetail()
}

func (m Model) handleBrowseMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "q", "esc":
		if m.store.Snapshot().DocumentViewerOpen {
			m.store.SetDocumentViewerOpen(false)
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m.refreshDetail(), nil
	case "down", "j":
		if m.cursor < len(m.docs)-1 {
			m.cursor++
		}
		return m.refreshDetail(), nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	case "/":
		m.mode = ModeSearch
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "tab":
		m.store.SetFilterType(nextFilter(m.store.Snapshot().FilterType))
		m.cursor = 0
		return m.reload(), nil
	case "enter":
		return m.toggleViewer(), nil
	case "d":
		doc, ok := m.current()
		if !ok {
			return m, nil
		}
		m.pending = doc.ID
		m.mode = ModeConfirmRemove
		return m, nil
	}
	return m, nil
}

// toggleViewer selects the document under the cursor. Pressing enter on the
// document already shown closes the viewer.
func (m Model) toggleViewer() Model {
	doc, ok := m.current()
	if !ok {
		return m
	}
	state := m.store.Snapshot()
	if state.DocumentViewerOpen && state.SelectedDocumentID == doc.ID {
		m.store.SetDocumentViewerOpen(false)
		return m
	}
	m.store.SetSelectedDocument(doc.ID)
	m.store.SetDocumentViewerOpen(true)
	return m.refreshDetail()
}

func (m Model) handleSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.mode = ModeBrowse
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.store.Snapshot().SearchQuery {
		m.store.SetSearchQuery(m.search.Value())
		m = m.reload()
	}
	return m, cmd
}

// handleConfirmMode removes the pending document on "y"; any other key
// declines and leaves the store untouched.
func (m Model) handleConfirmMode(msg tea.KeyMsg) Model {
	id := m.pending
	m.pending = ""
	m.mode = ModeBrowse
	if msg.String() != "y" && msg.String() != "Y" {
		m.notice = "removal cancelled"
		return m
	}
	doc, err := m.store.Document(id)
	if err != nil {
		m.notice = err.Error()
		return m
	}
	m.store.RemoveDocument(doc.ProjectID, doc.ID)
	if state := m.store.Snapshot(); state.SelectedDocumentID == doc.ID {
		m.store.SetSelectedDocument("")
		m.store.SetDocumentViewerOpen(false)
	}
	m.notice = fmt.Sprintf("removed %s", doc.Name)
	return m.reload()
}

var _ tea.Model = Model{}
