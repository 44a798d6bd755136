package explorer

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLines is the scrollback capacity when none is configured.
const DefaultMaxLines = 2000

// Panel is the command console. Its scrollback and history survive hiding
// the panel; input, cursor and scrollback are cleared when it is opened.
type Panel struct {
	Visible bool

	Input  string
	Cursor int // rune offset into Input

	Lines    []string
	MaxLines int

	History      []string
	HistoryIndex int // -1 when not browsing history
	HistoryStash string

	Scroll int // lines scrolled up from the bottom

	SearchQuery   string
	SearchMatches []int
	SearchPos     int // index into SearchMatches, -1 when none is selected
}

// NewPanel returns a hidden, empty panel.
func NewPanel(maxLines int) Panel {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return Panel{MaxLines: maxLines, HistoryIndex: -1, SearchPos: -1}
}

// ResetForOpen shows the panel with a clean slate. History is kept.
func (p *Panel) ResetForOpen() {
	p.Visible = true
	p.ClearInput()
	p.Lines = p.Lines[:0]
	p.Scroll = 0
	p.HistoryIndex = -1
	p.HistoryStash = ""
	p.SearchQuery = ""
	p.SearchMatches = nil
	p.SearchPos = -1
}

// Close hides the panel and drops history browsing.
func (p *Panel) Close() {
	p.Visible = false
	p.HistoryIndex = -1
	p.HistoryStash = ""
}

// AppendLine adds a scrollback line, evicting the oldest lines beyond
// MaxLines, and recomputes search matches.
// A selected match keeps pointing at the same line, or is dropped when that
// line was evicted.
func (p *Panel) AppendLine(line string) {
	selected := -1
	if p.SearchPos >= 0 && p.SearchPos < len(p.SearchMatches) {
		selected = p.SearchMatches[p.SearchPos]
	}

	p.Lines = append(p.Lines, line)
	over := max(0, len(p.Lines)-p.MaxLines)
	if over > 0 {
		p.Lines = append(p.Lines[:0], p.Lines[over:]...)
	}
	p.RefreshMatches()

	if selected < 0 || over == 0 {
		return
	}
	p.SearchPos = -1
	for i, idx := range p.SearchMatches {
		if idx == selected-over {
			p.SearchPos = i
			break
		}
	}
}

// ClearInput empties the input line.
func (p *Panel) ClearInput() {
	p.Input = ""
	p.Cursor = 0
}

// Record appends command to history unless it repeats the last entry, and
// stops history browsing.
func (p *Panel) Record(command string) {
	if n := len(p.History); n == 0 || p.History[n-1] != command {
		p.History = append(p.History, command)
	}
	p.HistoryIndex = -1
	p.HistoryStash = ""
}

// BrowseHistory steps through history: -1 is older, +1 newer. Stepping past
// the newest entry restores the input that was there when browsing began.
func (p *Panel) BrowseHistory(dir int) {
	n := len(p.History)
	if n == 0 {
		return
	}
	if p.HistoryIndex < 0 {
		p.HistoryStash = p.Input
		p.HistoryIndex = n
	}
	p.HistoryIndex = min(max(p.HistoryIndex+dir, 0), n)
	if p.HistoryIndex == n {
		p.Input = p.HistoryStash
	} else {
		p.Input = p.History[p.HistoryIndex]
	}
	p.Cursor = utf8.RuneCountInString(p.Input)
}

// Insert types text at the cursor.
func (p *Panel) Insert(text string) {
	r := []rune(p.Input)
	ins := []rune(text)
	out := make([]rune, 0, len(r)+len(ins))
	out = append(out, r[:p.Cursor]...)
	out = append(out, ins...)
	out = append(out, r[p.Cursor:]...)
	p.Input = string(out)
	p.Cursor += len(ins)
}

// DeleteBackward removes the rune before the cursor.
func (p *Panel) DeleteBackward() {
	if p.Cursor == 0 {
		return
	}
	r := []rune(p.Input)
	p.Input = string(append(r[:p.Cursor-1:p.Cursor-1], r[p.Cursor:]...))
	p.Cursor--
}

// DeleteForward removes the rune under the cursor.
func (p *Panel) DeleteForward() {
	r := []rune(p.Input)
	if p.Cursor >= len(r) {
		return
	}
	p.Input = string(append(r[:p.Cursor:p.Cursor], r[p.Cursor+1:]...))
}

// MoveCursor moves the cursor by delta runes, staying inside the input.
func (p *Panel) MoveCursor(delta int) {
	p.Cursor = min(max(p.Cursor+delta, 0), utf8.RuneCountInString(p.Input))
}

// CursorHome moves the cursor to the start of the line.
func (p *Panel) CursorHome() { p.Cursor = 0 }

// CursorEnd moves the cursor past the last rune.
func (p *Panel) CursorEnd() { p.Cursor = utf8.RuneCountInString(p.Input) }

// KillToStart deletes everything before the cursor.
func (p *Panel) KillToStart() {
	p.Input = string([]rune(p.Input)[p.Cursor:])
	p.Cursor = 0
}

// RefreshMatches recomputes the lines matching SearchQuery, ignoring case.
// The selected match is kept while it is still in range.
func (p *Panel) RefreshMatches() {
	query := strings.ToLower(strings.TrimSpace(p.SearchQuery))
	if query == "" {
		p.SearchMatches = nil
		p.SearchPos = -1
		return
	}
	p.SearchMatches = p.SearchMatches[:0]
	for i, line := range p.Lines {
		if strings.Contains(strings.ToLower(line), query) {
			p.SearchMatches = append(p.SearchMatches, i)
		}
	}
	if p.SearchPos >= len(p.SearchMatches) {
		p.SearchPos = -1
	}
}
