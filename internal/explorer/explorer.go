package explorer

import (
	"context"
	"time"

	"rex/internal/remote"
)

// Remote is the part of a transport the engine calls directly.
type Remote interface {
	remote.Runner
	ListDirectory(ctx context.Context, path string) (string, []remote.Entry, error)
}

// Downloader is implemented by transports that can copy a file locally.
type Downloader interface {
	Download(ctx context.Context, remotePath, localDir string) error
}

// Options configures an Explorer. Zero values select defaults.
type Options struct {
	MaxLines        int
	CommandTimeout  time.Duration
	DownloadTimeout time.Duration
	Editor          []string
	LocalDir        string // destination of downloads
	Keys            *KeyMap
	// OnListing is called after every successful listing.
	OnListing func(cwd string)
}

// Effect tells the caller what to do after a key has been handled.
type Effect struct {
	Quit bool
	// Handoff is a remote command that needs the whole terminal. The
	// caller must call HandoffDone when it exits.
	Handoff string
}

// Explorer owns the session state and routes input to the browser or the
// command panel.
type Explorer struct {
	state           *State
	remote          Remote
	cmds            *Commands
	keys            KeyMap
	size            Size
	editor          []string
	localDir        string
	downloadTimeout time.Duration
	onListing       func(string)
}

// New returns an Explorer for host starting at startPath. Nothing is listed
// until Reload is called.
func New(host, startPath string, r Remote, opts Options) *Explorer {
	e := &Explorer{
		state:           NewState(host, startPath, opts.MaxLines),
		remote:          r,
		keys:            DefaultKeyMap(),
		editor:          opts.Editor,
		localDir:        opts.LocalDir,
		downloadTimeout: opts.DownloadTimeout,
		onListing:       opts.OnListing,
	}
	if opts.Keys != nil {
		e.keys = *opts.Keys
	}
	if len(e.editor) == 0 {
		e.editor = []string{"vi"}
	}
	if e.localDir == "" {
		e.localDir = "."
	}
	if e.downloadTimeout <= 0 {
		e.downloadTimeout = DefaultDownloadTimeout
	}
	e.cmds = NewCommands(e.state, r, opts.CommandTimeout, e.Layout)
	return e
}

// State returns the session state. Callers must treat it as read-only.
func (e *Explorer) State() *State { return e.state }

// Keys returns the key map in use.
func (e *Explorer) Keys() KeyMap { return e.keys }

// Resize records the terminal size; geometry is recomputed on demand.
func (e *Explorer) Resize(width, height int) {
	e.size = Size{Width: width, Height: height}
	e.ensureVisible()
	e.cmds.ClampScroll()
}

// Layout returns the geometry for the current size and state.
func (e *Explorer) Layout() Layout {
	return Compute(e.size, e.state)
}

func (e *Explorer) ensureVisible() {
	l := e.Layout()
	e.state.Top = EnsureVisible(e.state.Top, e.state.Selected, len(e.state.Entries), l.Grid.PageSize)
}
