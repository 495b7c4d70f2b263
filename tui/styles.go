// ABOUTME: Defines lipgloss styles for the workflow preview: panels, node kinds, selection, and validation.
// ABOUTME: Provides StyleForKind to map node kinds to their display colors.
package tui

import (
	"github.com/2389-research/nodewire/workflow"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Node kinds
	InputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	OutputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Selection and editing
	SelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	EditingStyle  = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)

	// Validation
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	ValidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Field labels and values
	LabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// StyleForKind returns the display style for a node kind.
func StyleForKind(kind workflow.Kind) lipgloss.Style {
	switch kind {
	case workflow.KindInput:
		return InputStyle
	case workflow.KindOutput:
		return OutputStyle
	default:
		return LabelStyle
	}
}
