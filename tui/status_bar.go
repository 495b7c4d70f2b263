// ABOUTME: Implements a single-line status bar for the bottom of the preview.
// ABOUTME: Displays the file name, graph size, validation state, unsaved-changes marker, and key hints.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// StatusBarModel displays preview status in a single line.
type StatusBarModel struct {
	fileName string
	nodes    int
	edges    int
	errors   int
	dirty    bool
	editing  bool
	note     string
	width    int
}

// NewStatusBarModel creates a new StatusBarModel for the given file.
func NewStatusBarModel(fileName string) StatusBarModel {
	return StatusBarModel{fileName: fileName}
}

// SetCounts updates the graph size and error count.
func (m *StatusBarModel) SetCounts(nodes, edges, errors int) {
	m.nodes = nodes
	m.edges = edges
	m.errors = errors
}

// SetDirty marks whether there are unsaved edits.
func (m *StatusBarModel) SetDirty(dirty bool) {
	m.dirty = dirty
}

// SetEditing switches the key hints between browse and edit mode.
func (m *StatusBarModel) SetEditing(editing bool) {
	m.editing = editing
}

// SetNote shows a transient message such as a save result.
func (m *StatusBarModel) SetNote(note string) {
	m.note = note
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	name := m.fileName
	if m.dirty {
		name += " *"
	}

	state := "valid"
	if m.errors > 0 {
		state = fmt.Sprintf("%d errors", m.errors)
	}

	hints := "tab: next  enter: edit  ctrl+s: save  q: quit"
	if m.editing {
		hints = "enter: commit  esc: cancel"
	}

	content := fmt.Sprintf("%s | %d nodes, %d edges | %s | %s", name, m.nodes, m.edges, state, hints)
	if m.note != "" {
		content += " | " + m.note
	}

	style := StatusBarStyle
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(lipgloss.NewStyle().Inline(true).Render(content))
}
