package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"rex/internal/explorer"
)

var helpStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#7D56F4")).
	Padding(1, 3).
	Bold(false)

var helpTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#7D56F4"))

// RenderHelp returns the help overlay for keys, centred in width x height.
func RenderHelp(keys explorer.KeyMap, width, height int) string {
	h := help.New()
	h.ShowAll = true
	body := lipgloss.JoinVertical(lipgloss.Left,
		helpTitleStyle.Render("rex key bindings"),
		"",
		h.FullHelpView(keys.FullHelp()),
		"",
		"any key closes this help",
	)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, helpStyle.Render(body))
}
