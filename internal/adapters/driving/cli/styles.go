package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Colour palette for run summaries.
var (
	colorSuccess = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#EAB308")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorAccent  = lipgloss.Color("#7C3AED")
)

// styles renders summary text. Every style is plain when colour is off.
type styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Label   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{Title: plain, Success: plain, Warning: plain, Error: plain, Muted: plain, Label: plain}
	}
	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Success: lipgloss.NewStyle().Foreground(colorSuccess),
		Warning: lipgloss.NewStyle().Foreground(colorWarning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(colorError),
		Muted:   lipgloss.NewStyle().Foreground(colorMuted),
		Label:   lipgloss.NewStyle().Bold(true),
	}
}

// stylesFor enables colour only when w is a terminal.
func stylesFor(w io.Writer) styles {
	return newStyles(isTerminal(w))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
