package explorer

import (
	"github.com/mattn/go-runewidth"

	"rex/internal/remote"
)

const (
	// reservedRows are the header and the two footer rows.
	reservedRows   = 3
	minPanelRows   = 3
	minColumnWidth = 4
	minLabelWidth  = 2 // fits ".."
	columnGap      = 2
	pageStep       = 10
)

// Size is the terminal size in cells.
type Size struct {
	Width  int
	Height int
}

// Panes is the vertical split of the screen. Both blocks include their
// one-row title.
type Panes struct {
	Content int
	Browser int
	Command int // 0 while the panel is hidden
}

// SplitPanes divides the rows between header and footer. A visible panel
// takes a quarter of them, at least three, but never the browser's last row.
func SplitPanes(size Size, panelVisible bool) Panes {
	content := max(1, size.Height-reservedRows)
	p := Panes{Content: content, Browser: content}
	if panelVisible {
		p.Command = min(content-1, max(minPanelRows, content/4))
		p.Browser = max(1, content-p.Command)
	}
	return p
}

// GridRows is the number of entry rows under the browser title.
func (p Panes) GridRows() int {
	return max(1, p.Browser-1)
}

// OutputRows is the number of scrollback rows the panel shows; the last
// panel row is the input line.
func (p Panes) OutputRows() int {
	if p.Command <= 0 {
		return 0
	}
	return max(0, max(1, p.Command-1)-1)
}

// Grid is the column-major arrangement of a page of entries.
type Grid struct {
	Rows        int
	Cols        int
	ColumnWidth int
	PageSize    int
}

// ComputeGrid lays out entries whose widest label is longest cells wide in
// a pane of rows x width cells.
func ComputeGrid(rows, width, longest int) Grid {
	rows = max(1, rows)
	usable := max(1, width-1)
	colWidth := max(minColumnWidth, min(usable, max(minLabelWidth, longest)+columnGap))
	cols := max(1, usable/colWidth)
	if cols > 1 {
		colWidth = max(minColumnWidth, usable/cols)
	}
	return Grid{Rows: rows, Cols: cols, ColumnWidth: colWidth, PageSize: rows * cols}
}

// Cell returns the row and column of the i-th entry of a page.
func (g Grid) Cell(i int) (row, col int) {
	return i % g.Rows, i / g.Rows
}

// LongestLabel returns the widest entry label in cells, directory marker
// included, never less than two.
func LongestLabel(entries []remote.Entry) int {
	longest := minLabelWidth
	for _, e := range entries {
		longest = max(longest, runewidth.StringWidth(e.Label()))
	}
	return longest
}

// EnsureVisible returns the page start that shows selected: top itself when
// it is a page boundary and selected is on its page, otherwise the start of
// selected's page. The result never lies past the last page start.
func EnsureVisible(top, selected, count, pageSize int) int {
	if pageSize <= 0 {
		return top
	}
	if top%pageSize != 0 || selected < top || selected >= top+pageSize {
		top = (selected / pageSize) * pageSize
	}
	lastStart := 0
	if count > 0 {
		lastStart = ((count - 1) / pageSize) * pageSize
	}
	return min(top, lastStart)
}

// MoveTarget converts a grid move into a flat index. Moves that would leave
// [0, count) are rejected.
func MoveTarget(selected, count, rows, dRow, dCol int) (int, bool) {
	if count == 0 || rows <= 0 {
		return selected, false
	}
	delta := dRow + dCol*rows
	if delta == 0 {
		return selected, false
	}
	target := selected + delta
	if target < 0 || target >= count {
		return selected, false
	}
	return target, true
}

// MaxScroll is the furthest the console can scroll up.
func MaxScroll(total, outputRows int) int {
	if outputRows <= 0 {
		return 0
	}
	return max(0, total-outputRows)
}

// ClampScroll keeps scroll within [0, MaxScroll].
func ClampScroll(scroll, total, outputRows int) int {
	return max(0, min(scroll, MaxScroll(total, outputRows)))
}

// ScrollToLine returns the scroll offset that shows line target, centred
// in the output window when the buffer allows it.
func ScrollToLine(target, total, outputRows int) int {
	if outputRows <= 0 || total == 0 {
		return 0
	}
	target = max(0, min(total-1, target))
	start := max(0, target-outputRows/2)
	end := min(total, start+outputRows)
	return ClampScroll(max(0, total-end), total, outputRows)
}

// VisibleLines returns the [start, end) range of scrollback on screen.
func VisibleLines(total, scroll, outputRows int) (start, end int) {
	if outputRows <= 0 {
		return 0, 0
	}
	end = max(0, total-scroll)
	start = max(0, end-outputRows)
	return start, end
}

// Layout is the geometry of one frame.
type Layout struct {
	Size  Size
	Panes Panes
	Grid  Grid
}

// Compute derives the frame geometry from the terminal size and state.
func Compute(size Size, s *State) Layout {
	panes := SplitPanes(size, s.Panel.Visible)
	return Layout{
		Size:  size,
		Panes: panes,
		Grid:  ComputeGrid(panes.GridRows(), max(1, size.Width), LongestLabel(s.Entries)),
	}
}

// OutputRows is the number of scrollback rows on screen.
func (l Layout) OutputRows() int { return l.Panes.OutputRows() }
