package explorer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"rex/internal/remote"
)

// DefaultCommandTimeout bounds one command typed into the panel.
const DefaultCommandTimeout = 60 * time.Second

// Commands runs one-shot remote commands from the panel and manages the
// scrollback they write to.
type Commands struct {
	state   *State
	runner  remote.Runner
	timeout time.Duration
	layout  func() Layout
}

// NewCommands returns a controller over state. layout supplies the current
// frame geometry for scrolling decisions.
func NewCommands(state *State, runner remote.Runner, timeout time.Duration, layout func() Layout) *Commands {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Commands{state: state, runner: runner, timeout: timeout, layout: layout}
}

// Show opens the panel with a fresh console and gives it focus.
func (c *Commands) Show() {
	c.state.Panel.ResetForOpen()
	c.state.Mode = ModeCommand
	c.state.Message = "Run command in " + c.state.Cwd
}

// Hide closes the panel and returns focus to the browser.
func (c *Commands) Hide() {
	c.state.Mode = ModeBrowser
	c.state.Panel.Close()
}

// AppendLine adds one line of scrollback.
func (c *Commands) AppendLine(line string) {
	c.state.Panel.AppendLine(line)
}

// Execute runs the input line in the current directory and records its
// output. The input line is cleared whatever the outcome.
func (c *Commands) Execute(ctx context.Context) {
	p := &c.state.Panel
	command := strings.TrimSpace(p.Input)
	if command == "" {
		c.state.Message = "Empty command"
		return
	}

	p.Record(command)
	c.AppendLine("$ " + command)
	p.Scroll = 0
	defer p.ClearInput()

	res, err := c.runner.Run(ctx, remote.InDir(c.state.Cwd, command), c.timeout)
	if errors.Is(err, remote.ErrTimeout) {
		c.AppendLine("[timed out]")
		c.state.Message = "Command timed out"
		return
	}
	if err != nil {
		log.Printf("[Commands] %q failed: %v", command, err)
		c.AppendLine("[error] " + err.Error())
		c.state.Message = "Command error: " + err.Error()
		return
	}

	out := remote.SplitLines(res.Stdout)
	errs := remote.SplitLines(res.Stderr)
	if len(out) == 0 && len(errs) == 0 {
		c.AppendLine("[no output]")
	}
	for _, line := range out {
		c.AppendLine(line)
	}
	for _, line := range errs {
		c.AppendLine("stderr: " + line)
	}

	if res.ExitCode != 0 {
		c.AppendLine(fmt.Sprintf("[exit %d]", res.ExitCode))
		c.state.Message = fmt.Sprintf("Command failed (%d)", res.ExitCode)
		return
	}
	c.state.Message = "Command finished"
}

// ScrollPage scrolls the console one page: +1 up into older output, -1 down.
func (c *Commands) ScrollPage(dir int) {
	rows := c.layout().OutputRows()
	p := &c.state.Panel
	p.Scroll = ClampScroll(p.Scroll+dir*max(1, rows), len(p.Lines), rows)
}

// ClampScroll re-fits the scroll offset to the current geometry.
func (c *Commands) ClampScroll() {
	p := &c.state.Panel
	p.Scroll = ClampScroll(p.Scroll, len(p.Lines), c.layout().OutputRows())
}

// BeginSearch switches the panel to search entry.
func (c *Commands) BeginSearch() {
	c.state.Mode = ModeSearch
	c.state.Message = "Search output (/ then Enter, ESC cancel, n/N navigate)"
}

// CancelSearch leaves search entry without searching.
func (c *Commands) CancelSearch() {
	c.state.Mode = ModeCommand
	c.state.Message = "Search cancelled"
}

// CommitSearch leaves search entry and jumps to the first match.
func (c *Commands) CommitSearch() {
	c.state.Mode = ModeCommand
	p := &c.state.Panel
	p.RefreshMatches()
	if len(p.SearchMatches) == 0 {
		c.state.Message = fmt.Sprintf("No matches for '%s'", p.SearchQuery)
		return
	}
	p.SearchPos = -1
	c.JumpSearch(1)
}

// Navigate recomputes matches and moves to the next (+1) or previous (-1).
func (c *Commands) Navigate(dir int) {
	c.state.Panel.RefreshMatches()
	c.JumpSearch(dir)
}

// JumpSearch advances the selected match circularly and scrolls it into
// view. Without a selected match it lands on the first or last one.
func (c *Commands) JumpSearch(dir int) {
	p := &c.state.Panel
	n := len(p.SearchMatches)
	if n == 0 {
		c.state.Message = "No search matches"
		return
	}
	switch {
	case p.SearchPos < 0 && dir >= 0:
		p.SearchPos = 0
	case p.SearchPos < 0:
		p.SearchPos = n - 1
	default:
		p.SearchPos = ((p.SearchPos+dir)%n + n) % n
	}
	p.Scroll = ScrollToLine(p.SearchMatches[p.SearchPos], len(p.Lines), c.layout().OutputRows())
	c.state.Message = fmt.Sprintf("Match %d/%d for '%s'", p.SearchPos+1, n, p.SearchQuery)
}
