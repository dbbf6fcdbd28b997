package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/adhyaay-karnwal/athas/hardware"
)

// View composes the header, document list, optional viewer, prompt bar and
// status bar.
func (m Model) View() string {
	state := m.store.Snapshot()
	sections := []string{
		headerStyle.Render("Hardware documents") + dimStyle.Render("  filter: "+string(state.FilterType)),
		m.renderList(),
	}
	if state.DocumentViewerOpen && state.SelectedDocumentID != "" {
		sections = append(sections, viewerBoxStyle.Render(m.detail.View()))
	}
	sections = append(sections, m.renderPromptBar(), m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderList() string {
	if m.store.CurrentProject() == "" {
		return emptyStyle.Render(hardware.NoProjectSummary)
	}
	if len(m.docs) == 0 {
		return emptyStyle.Render("No documents match. Upload with `athas docs add`.")
	}
	selected := m.store.Snapshot().SelectedDocumentID
	rows := make([]string, 0, len(m.docs))
	for i, doc := range m.docs {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		name := doc.Name
		if doc.ID == selected {
			name = selectedStyle.Render(name)
		}
		row := fmt.Sprintf("%s%s %s %s", marker, name,
			typeStyle.Render("["+doc.Type.Label()+"]"),
			dimStyle.Render(formatSize(doc.FileSize)))
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderPromptBar() string {
	var content string
	switch m.mode {
	case ModeSearch:
		content = "/ " + m.search.View() + dimStyle.Render("  enter to apply | esc to close")
	case ModeConfirmRemove:
		name := m.pending
		if doc, err := m.store.Document(m.pending); err == nil {
			name = doc.Name
		}
		content = warningStyle.Render(fmt.Sprintf("Remove %s? (y/N)", name))
	default:
		switch {
		case strings.HasPrefix(m.notice, "removed"), m.notice == "removal cancelled":
			content = dimStyle.Render(m.notice)
		case m.notice != "":
			content = errorStyle.Render(m.notice)
		default:
			query := m.store.Snapshot().SearchQuery
			if query != "" {
				content = "search: " + query + "  "
			}
			content += dimStyle.Render("/ search | tab filter | enter view | d remove | q quit")
		}
	}
	return promptBarStyle.Width(max(0, m.width)).Render(content)
}

func (m Model) renderStatusBar() string {
	left := truncate(m.store.CurrentProject(), 40)
	if left == "" {
		left = "no project"
	}
	right := fmt.Sprintf("%d documents", len(m.docs))
	if processing, _ := m.store.Processing(); processing {
		right = "processing… | " + right
	}
	if m.summary != nil {
		left += " | " + m.summary()
	}
	padding := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	return statusStyle.Render(left + strings.Repeat(" ", padding) + right)
}

// refreshDetail re-renders the viewer pane for the selected document.
func (m Model) refreshDetail() Model {
	id := m.store.Snapshot().SelectedDocumentID
	if id == "" {
		m.detail.SetContent("")
		return m
	}
	doc, err := m.store.Document(id)
	if err != nil {
		m.detail.SetContent("")
		return m
	}
	m.detail.SetContent(RenderDocument(doc))
	return m
}

// RenderDocument is the viewer pane text for one document.
func RenderDocument(doc hardware.HardwareDocument) string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render(doc.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s · %s · %s\n", doc.Type.Label(), formatSize(doc.FileSize), doc.FilePath)
	meta := doc.Metadata
	for _, field := range [][2]string{
		{"Title", meta.Title},
		{"Manufacturer", meta.Manufacturer},
		{"Part number", meta.PartNumber},
		{"Version", meta.Version},
		{"Description", meta.Description},
	} {
		if field[1] != "" {
			fmt.Fprintf(&b, "%s: %s\n", field[0], field[1])
		}
	}
	if len(meta.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(meta.Tags, ", "))
	}
	if doc.ExtractedData == nil {
		b.WriteString(dimStyle.Render("No extracted data"))
		return b.String()
	}
	if summary := hardware.ExtractedDataSummary(*doc.ExtractedData); summary != "" {
		b.WriteString(dimStyle.Render(summary))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(hardware.FormatExtractedData(*doc.ExtractedData))
	return b.String()
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:1]
	}
	return "…" + s[len(s)-n+1:]
}
