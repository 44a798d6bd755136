package ui

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"rex/internal/explorer"
)

const panelTitle = " Run Command (Enter run | PgUp/PgDn scroll | ctrl+f search | Esc dismiss)"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.Color("#AAAAAA"))

	fileSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#7D56F4")).
				Foreground(lipgloss.Color("#FFFFFF"))

	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#56D1F4")).
			Bold(true)

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	matchStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#FF9500")).
			Foreground(lipgloss.Color("#000000"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	cursorStyle = lipgloss.NewStyle().Reverse(true)

	messageStyle = lipgloss.NewStyle().Bold(true)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))
)

// errorPrefixes mark status messages that report a failure.
var errorPrefixes = []string{"Error", "Command error", "Download failed", "Listing timed out"}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.showHelp {
		return RenderHelp(m.explorer.Keys(), m.width, m.height)
	}

	s := m.explorer.State()
	l := m.explorer.Layout()

	rows := make([]string, 0, m.height)
	rows = append(rows, RenderHeader(s, m.width))
	rows = append(rows, m.renderBrowser(s, l)...)
	if s.Panel.Visible {
		rows = append(rows, m.renderPanel(s, l)...)
	}
	rows = append(rows, m.renderFooter(s)...)
	if len(rows) > m.height {
		rows = rows[:m.height]
	}
	return strings.Join(rows, "\n")
}

// renderBrowser draws the title and one page of the column-major grid.
func (m Model) renderBrowser(s *explorer.State, l explorer.Layout) []string {
	rows := []string{titleStyle.Render(fit("Files", m.width-1))}

	g := l.Grid
	for r := 0; r < g.Rows; r++ {
		var b strings.Builder
		used := 0
		for c := 0; c < g.Cols; c++ {
			idx := s.Top + c*g.Rows + r
			width := min(g.ColumnWidth, m.width-1-used)
			if idx >= len(s.Entries) || width < 2 {
				break
			}
			b.WriteString(renderEntry(s, idx, width))
			used += width
		}
		rows = append(rows, b.String())
	}
	return padRows(rows, l.Panes.Browser)
}

func renderEntry(s *explorer.State, idx, width int) string {
	e := s.Entries[idx]
	text := runewidth.FillRight(runewidth.Truncate(e.Label(), width-1, ""), width-1)

	style := fileStyle
	if e.IsDir {
		style = dirStyle
	}
	if idx == s.Selected && s.Focus() == explorer.FocusBrowser {
		style = fileSelectedStyle
	}
	return style.Render(text) + " "
}

// renderPanel draws the panel title, the visible scrollback and the input
// line.
func (m Model) renderPanel(s *explorer.State, l explorer.Layout) []string {
	p := &s.Panel

	title := FocusMarker(s, explorer.FocusCommand) + panelTitle
	if len(p.SearchMatches) > 0 && p.SearchPos >= 0 {
		title += fmt.Sprintf("  [%d/%d %s]", p.SearchPos+1, len(p.SearchMatches), p.SearchQuery)
	}
	rows := []string{titleStyle.Render(fit(title, m.width-1))}

	current := -1
	if p.SearchPos >= 0 && p.SearchPos < len(p.SearchMatches) {
		current = p.SearchMatches[p.SearchPos]
	}
	outputRows := l.OutputRows()
	start, end := explorer.VisibleLines(len(p.Lines), p.Scroll, outputRows)
	for i := start; i < end; i++ {
		line := fit(printable(p.Lines[i]), m.width-1)
		if i == current {
			line = matchStyle.Render(line)
		}
		rows = append(rows, line)
	}
	for len(rows) < 1+outputRows {
		rows = append(rows, "")
	}
	rows = append(rows, m.renderInput(p, s.Searching()))
	return padRows(rows, l.Panes.Command)
}

// renderInput draws the prompt and the input text scrolled so the cursor
// stays on screen.
func (m Model) renderInput(p *explorer.Panel, searching bool) string {
	prompt, text, cursor := "> ", p.Input, p.Cursor
	if searching {
		prompt, text = "/ ", p.SearchQuery
		cursor = utf8.RuneCountInString(text)
	}

	runes := []rune(text)
	avail := max(1, m.width-1-len(prompt))
	cursor = max(0, min(cursor, len(runes)))
	scroll := 0
	if cursor >= avail {
		scroll = cursor - avail + 1
	}
	visible := runes[scroll:min(len(runes), scroll+avail)]
	at := cursor - scroll

	var b strings.Builder
	b.WriteString(promptStyle.Render(prompt))
	b.WriteString(string(visible[:min(at, len(visible))]))
	if at < len(visible) {
		b.WriteString(cursorStyle.Render(string(visible[at])))
		b.WriteString(string(visible[at+1:]))
	} else {
		b.WriteString(cursorStyle.Render(" "))
	}
	return b.String()
}

// renderFooter returns the key help row and the status message row.
func (m Model) renderFooter(s *explorer.State) []string {
	keys := m.explorer.Keys()
	bindings := keys.BrowserHelp()
	switch s.Mode {
	case explorer.ModeCommand:
		bindings = keys.CommandHelp()
	case explorer.ModeSearch:
		bindings = keys.SearchHelp()
	}

	style := messageStyle
	for _, prefix := range errorPrefixes {
		if strings.HasPrefix(s.Message, prefix) {
			style = errorStyle
			break
		}
	}
	return []string{
		m.help.ShortHelpView(bindings),
		style.Render(fit(printable(s.Message), m.width-1)),
	}
}

// fit truncates s to width cells.
func fit(s string, width int) string {
	return runewidth.Truncate(s, max(0, width), "")
}

// printable expands tabs and drops other control characters so remote
// output cannot move the cursor.
func printable(s string) string {
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\t':
			b.WriteString("    ")
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// padRows pads or cuts rows to exactly n entries.
func padRows(rows []string, n int) []string {
	if len(rows) > n {
		return rows[:max(0, n)]
	}
	for len(rows) < n {
		rows = append(rows, "")
	}
	return rows
}
