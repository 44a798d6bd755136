package explorer

import (
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap holds every binding of the browser and the command panel.
type KeyMap struct {
	// Browser.
	Quit      key.Binding
	ForceQuit key.Binding
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Open      key.Binding
	Parent    key.Binding
	Reload    key.Binding
	Edit      key.Binding
	View      key.Binding
	Download  key.Binding
	Command   key.Binding
	Help      key.Binding

	// Command panel.
	Run         key.Binding
	Close       key.Binding
	Search      key.Binding
	NextMatch   key.Binding
	PrevMatch   key.Binding
	HistoryPrev key.Binding
	HistoryNext key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	CursorLeft  key.Binding
	CursorRight key.Binding
	LineStart   key.Binding
	LineEnd     key.Binding
	DeleteBack  key.Binding
	DeleteFwd   key.Binding
	KillLine    key.Binding
	Cancel      key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "Q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "up 10")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "down 10")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/dir")),
		Parent:    key.NewBinding(key.WithKeys("p", "backspace"), key.WithHelp("p", "parent")),
		Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		View:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "view")),
		Download:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		Command:   key.NewBinding(key.WithKeys(":", "s", "S"), key.WithHelp("s/:", "run command")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),

		Run:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run")),
		Close:       key.NewBinding(key.WithKeys("esc", "ctrl+]"), key.WithHelp("esc", "dismiss")),
		Search:      key.NewBinding(key.WithKeys("/", "ctrl+f"), key.WithHelp("ctrl+f", "search (/ on empty line)")),
		NextMatch:   key.NewBinding(key.WithKeys("n", "ctrl+n"), key.WithHelp("ctrl+n", "next match (n on empty line)")),
		PrevMatch:   key.NewBinding(key.WithKeys("N", "ctrl+p"), key.WithHelp("ctrl+p", "prev match (N on empty line)")),
		HistoryPrev: key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "older")),
		HistoryNext: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "newer")),
		ScrollUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		CursorLeft:  key.NewBinding(key.WithKeys("left", "ctrl+b")),
		CursorRight: key.NewBinding(key.WithKeys("right")),
		LineStart:   key.NewBinding(key.WithKeys("home", "ctrl+a")),
		LineEnd:     key.NewBinding(key.WithKeys("end", "ctrl+e")),
		DeleteBack:  key.NewBinding(key.WithKeys("backspace", "ctrl+h")),
		DeleteFwd:   key.NewBinding(key.WithKeys("delete", "ctrl+d")),
		KillLine:    key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "clear")),
		Cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// BrowserHelp is the footer help while browsing.
func (k KeyMap) BrowserHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Up, k.Open, k.Parent, k.Edit, k.View, k.Command, k.Help}
}

// CommandHelp is the footer help while the panel has focus.
func (k KeyMap) CommandHelp() []key.Binding {
	return []key.Binding{k.Run, k.ScrollUp, k.ScrollDown, k.Search, k.NextMatch, k.PrevMatch, k.Close}
}

// SearchHelp is the footer help while typing a search.
func (k KeyMap) SearchHelp() []key.Binding {
	return []key.Binding{k.Run, k.KillLine, k.Cancel}
}

// FullHelp lists every documented binding, one group per column.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.PageUp, k.PageDown},
		{k.Open, k.Parent, k.Reload, k.Edit, k.View, k.Download},
		{k.Command, k.Run, k.HistoryPrev, k.HistoryNext, k.ScrollUp, k.ScrollDown},
		{k.Search, k.NextMatch, k.PrevMatch, k.KillLine, k.Close},
		{k.Help, k.Quit, k.ForceQuit},
	}
}

// typedText returns the printable text a key event carries.
func typedText(msg tea.KeyMsg) (string, bool) {
	switch msg.Type {
	case tea.KeySpace:
		return " ", true
	case tea.KeyRunes:
		if msg.Alt {
			return "", false
		}
		out := make([]rune, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			if unicode.IsPrint(r) {
				out = append(out, r)
			}
		}
		return string(out), len(out) > 0
	}
	return "", false
}

// matchesWhenIdle is key.Matches for bindings that double as printable
// characters: a printable key only counts while the input line is empty.
func matchesWhenIdle(msg tea.KeyMsg, b key.Binding, idle bool) bool {
	if !key.Matches(msg, b) {
		return false
	}
	return msg.Type != tea.KeyRunes || idle
}
