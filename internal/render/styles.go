package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the terminal styles of the renderer.
type Styles struct {
	// Header for "Did you mean..."
	Header lipgloss.Style

	Suggestion lipgloss.Style

	// Hit for the title and slug columns.
	Hit lipgloss.Style

	// Mark replaces highlight markers in fragments.
	Mark lipgloss.Style

	Archived lipgloss.Style
	Muted    lipgloss.Style
	Good     lipgloss.Style
	Warning  lipgloss.Style
	Bad      lipgloss.Style
}

// NewStyles creates styles for output written to w. Colors are dropped
// when w is not a terminal.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Header:     r.NewStyle().Bold(true),
		Suggestion: r.NewStyle().Foreground(lipgloss.Color("3")),
		Hit:        r.NewStyle().Bold(true),
		Mark:       r.NewStyle().Background(lipgloss.Color("11")).Foreground(lipgloss.Color("0")),
		Archived:   r.NewStyle().Foreground(lipgloss.Color("1")),
		Muted:      r.NewStyle().Faint(true),
		Good:       r.NewStyle().Foreground(lipgloss.Color("2")),
		Warning:    r.NewStyle().Foreground(lipgloss.Color("3")),
		Bad:        r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}
