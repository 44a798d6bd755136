// Package explorer is the interaction engine of rex: the session state, the
// geometry of the file grid and command console, and the key handling that
// drives both.
package explorer

import (
	"path"

	"rex/internal/remote"
)

// Focus is the logical consumer of keystrokes.
type Focus int

const (
	FocusBrowser Focus = iota
	FocusCommand
)

// Mode is the input state machine's current state. ModeSearch is a
// sub-state of the command focus: the user is typing a search query.
type Mode int

const (
	ModeBrowser Mode = iota
	ModeCommand
	ModeSearch
)

// Focus returns which consumer a mode belongs to.
func (m Mode) Focus() Focus {
	if m == ModeBrowser {
		return FocusBrowser
	}
	return FocusCommand
}

func (m Mode) String() string {
	switch m {
	case ModeBrowser:
		return "browser"
	case ModeCommand:
		return "command"
	case ModeSearch:
		return "search"
	}
	return "unknown"
}

// State is the single mutable root of a session.
type State struct {
	Host     string
	Cwd      string
	Entries  []remote.Entry
	Selected int
	Top      int // first index of the visible page
	Message  string
	Mode     Mode
	Panel    Panel
}

// NewState returns the state for a session on host starting at cwd.
func NewState(host, cwd string, maxLines int) *State {
	return &State{
		Host:  host,
		Cwd:   normalizePath(cwd),
		Panel: NewPanel(maxLines),
	}
}

// Focus returns the current focus.
func (s *State) Focus() Focus { return s.Mode.Focus() }

// Searching reports whether a search query is being typed.
func (s *State) Searching() bool { return s.Mode == ModeSearch }

// Current returns the selected entry.
func (s *State) Current() (remote.Entry, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Entries) {
		return remote.Entry{}, false
	}
	return s.Entries[s.Selected], true
}

// SetListing installs a listing the remote side resolved for cwd and moves
// the selection back to the top.
func (s *State) SetListing(cwd string, entries []remote.Entry) {
	s.Cwd = cwd
	s.Entries = entries
	s.Selected = 0
	s.Top = 0
}

func normalizePath(p string) string {
	if p == "" {
		return "."
	}
	return path.Clean(p)
}
