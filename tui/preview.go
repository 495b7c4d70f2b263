// ABOUTME: PreviewModel is a Bubble Tea model for editing Input values of a workflow file in the terminal.
// ABOUTME: Output values re-propagate on every keystroke and validation errors refresh after each edit.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2389-research/nodewire/workflow"
	"github.com/2389-research/nodewire/workflow/validator"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SavedMsg reports the result of writing the workflow back to disk.
type SavedMsg struct {
	Path string
	Err  error
}

// PreviewModel shows a workflow's Input and Output nodes and lets the user
// edit Input values.
type PreviewModel struct {
	graph    *workflow.Graph
	path     string
	inputs   []string // Input node ids in graph order
	selected int

	input    textinput.Model
	editing  bool
	original string // value before the current edit, restored on esc

	errors    []string
	statusBar StatusBarModel
	dirty     bool
	width     int
	height    int
}

// NewPreviewModel creates a preview over g, which is owned by the model from
// then on. path is where ctrl+s writes; empty disables saving.
func NewPreviewModel(g *workflow.Graph, path string) PreviewModel {
	if g == nil {
		g = &workflow.Graph{}
	}
	ti := textinput.New()
	ti.Prompt = "value> "
	ti.CharLimit = 4096

	m := PreviewModel{
		graph:     g,
		path:      path,
		input:     ti,
		statusBar: NewStatusBarModel(filepath.Base(path)),
	}
	for _, n := range g.Nodes {
		if n.Kind == workflow.KindInput {
			m.inputs = append(m.inputs, n.ID)
		}
	}
	m.refresh()
	return m
}

// Graph returns the model's current graph.
func (m PreviewModel) Graph() *workflow.Graph {
	return m.graph
}

// Errors returns the current validation messages.
func (m PreviewModel) Errors() []string {
	return m.errors
}

// Selected returns the id of the selected Input node, or "" when there are none.
func (m PreviewModel) Selected() string {
	if len(m.inputs) == 0 {
		return ""
	}
	return m.inputs[m.selected]
}

// Init implements tea.Model.
func (m PreviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.SetWidth(msg.Width)
		return m, nil

	case SavedMsg:
		if msg.Err != nil {
			m.statusBar.SetNote("save failed: " + msg.Err.Error())
			return m, nil
		}
		m.dirty = false
		m.statusBar.SetDirty(false)
		m.statusBar.SetNote("saved " + filepath.Base(msg.Path))
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKey(msg)
		}
		return m.handleBrowseKey(msg)
	}

	return m, nil
}

func (m PreviewModel) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "down", "j":
		if len(m.inputs) > 0 {
			m.selected = (m.selected + 1) % len(m.inputs)
		}
	case "shift+tab", "up", "k":
		if len(m.inputs) > 0 {
			m.selected = (m.selected - 1 + len(m.inputs)) % len(m.inputs)
		}
	case "enter":
		if id := m.Selected(); id != "" {
			m.original = m.graph.FindNode(id).Value()
			m.input.SetValue(m.original)
			m.input.CursorEnd()
			m.input.Focus()
			m.editing = true
			m.statusBar.SetEditing(true)
			m.statusBar.SetNote("")
		}
	case "ctrl+s":
		if m.path == "" {
			m.statusBar.SetNote("no file to save to")
			return m, nil
		}
		return m, SaveCmd(m.path, m.graph.Clone())
	}
	return m, nil
}

func (m PreviewModel) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.finishEdit()
		if m.input.Value() != m.original {
			m.dirty = true
			m.statusBar.SetDirty(true)
		}
		return m, nil
	case tea.KeyEsc:
		m.setSelectedValue(m.original)
		m.finishEdit()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.setSelectedValue(m.input.Value())
	return m, cmd
}

func (m *PreviewModel) finishEdit() {
	m.editing = false
	m.input.Blur()
	m.statusBar.SetEditing(false)
}

// setSelectedValue writes the selected Input's value and re-propagates.
func (m *PreviewModel) setSelectedValue(v string) {
	n := m.graph.FindNode(m.Selected())
	if n == nil {
		return
	}
	if n.Data == nil {
		n.Data = map[string]string{}
	}
	n.Data[workflow.FieldValue] = v
	m.refresh()
}

func (m *PreviewModel) refresh() {
	m.graph.Propagate()
	m.errors = validator.Validate(m.graph.Nodes, m.graph.Edges)
	m.statusBar.SetCounts(len(m.graph.Nodes), len(m.graph.Edges), len(m.errors))
}

// SaveCmd writes g as a workflow document to path.
func SaveCmd(path string, g *workflow.Graph) tea.Cmd {
	return func() tea.Msg {
		data, err := workflow.Export(g, time.Now())
		if err != nil {
			return SavedMsg{Path: path, Err: err}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return SavedMsg{Path: path, Err: fmt.Errorf("write %s: %w", path, err)}
		}
		return SavedMsg{Path: path}
	}
}

// View implements tea.Model.
func (m PreviewModel) View() string {
	var inputs, outputs strings.Builder
	inputs.WriteString(TitleStyle.Render("Inputs") + "\n")
	outputs.WriteString(TitleStyle.Render("Outputs") + "\n")

	for _, n := range m.graph.Nodes {
		switch n.Kind {
		case workflow.KindInput:
			marker := "  "
			style := StyleForKind(n.Kind)
			if n.ID == m.Selected() {
				marker = "> "
				style = SelectedStyle
			}
			inputs.WriteString(marker + style.Render(displayName(n)) + " " + renderValue(n.Value()) + "\n")
		case workflow.KindOutput:
			outputs.WriteString("  " + StyleForKind(n.Kind).Render(displayName(n)) + " " + renderValue(n.Value()) + "\n")
		default:
		}
	}
	if len(m.inputs) == 0 {
		inputs.WriteString(LabelStyle.Render("  (none)") + "\n")
	}

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		BorderStyle.Render(strings.TrimRight(inputs.String(), "\n")),
		BorderStyle.Render(strings.TrimRight(outputs.String(), "\n")),
	)

	var b strings.Builder
	b.WriteString(panels)
	b.WriteString("\n")
	if m.editing {
		b.WriteString(EditingStyle.Render(m.input.View()))
		b.WriteString("\n")
	}
	b.WriteString(m.validationView())
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	return b.String()
}

func (m PreviewModel) validationView() string {
	if len(m.errors) == 0 {
		return ValidStyle.Render("Workflow is valid")
	}
	lines := make([]string, len(m.errors))
	for i, e := range m.errors {
		lines[i] = ErrorStyle.Render("x " + e)
	}
	return strings.Join(lines, "\n")
}

func displayName(n workflow.Node) string {
	if label := n.Label(); label != "" {
		return label
	}
	return n.ID
}

func renderValue(v string) string {
	if v == "" {
		return LabelStyle.Render("(empty)")
	}
	return ValueStyle.Render(fmt.Sprintf("%q", v))
}
