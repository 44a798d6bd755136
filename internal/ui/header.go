package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"rex/internal/explorer"
)

var (
	focusActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	focusInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#888888")).
				Background(lipgloss.Color("#1A1A1A")).
				Padding(0, 1)

	headerBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#0F0F0F"))

	headerTextStyle = lipgloss.NewStyle().Bold(true)
)

// FocusMarker is "*" for the pane that owns the keyboard and " " otherwise.
func FocusMarker(s *explorer.State, f explorer.Focus) string {
	if s.Focus() == f {
		return "*"
	}
	return " "
}

// RenderHeader renders the one-row header across width cells.
func RenderHeader(s *explorer.State, width int) string {
	style := focusInactiveStyle
	if s.Focus() == explorer.FocusBrowser {
		style = focusActiveStyle
	}
	tag := style.Render(FocusMarker(s, explorer.FocusBrowser) + " rex")
	rest := width - lipgloss.Width(tag) - 1
	text := runewidth.Truncate(" host="+s.Host+"  cwd="+s.Cwd, max(0, rest), "…")

	bar := tag + headerTextStyle.Render(text)
	if padding := width - lipgloss.Width(bar); padding > 0 {
		bar += strings.Repeat(" ", padding)
	}
	return headerBarStyle.Width(width).MaxWidth(width).Render(bar)
}
