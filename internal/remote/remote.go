// Package remote defines what the browser needs from the remote host and
// builds the shell commands sent to it.
package remote

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kballard/go-shellquote"
)

// ParentName is the synthetic entry prepended to every listing.
const ParentName = ".."

// DefaultListTimeout bounds a directory listing round trip.
const DefaultListTimeout = 30 * time.Second

// ErrTimeout is returned by Run when the remote command exceeded its timeout.
var ErrTimeout = errors.New("remote command timed out")

// Entry is one row of a remote directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// ParentEntry returns the ".." entry.
func ParentEntry() Entry {
	return Entry{Name: ParentName, IsDir: true}
}

// IsParent reports whether e is the synthetic parent marker.
func (e Entry) IsParent() bool {
	return e.Name == ParentName
}

// Label is the text shown in the grid: directories carry a trailing slash.
func (e Entry) Label() string {
	if e.IsDir {
		return e.Name + "/"
	}
	return e.Name
}

// Result is the captured outcome of a one-shot remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes one-shot remote commands.
type Runner interface {
	Run(ctx context.Context, command string, timeout time.Duration) (Result, error)
}

// Transport is a connection to one remote host.
type Transport interface {
	Runner
	ListDirectory(ctx context.Context, path string) (string, []Entry, error)
	// Fullscreen returns a command that hands the terminal to an
	// interactive remote program until it exits.
	Fullscreen(command string) tea.ExecCommand
	Download(ctx context.Context, remotePath, localDir string) error
	Close() error
}

// Quote quotes s for a POSIX shell. Strings made only of safe characters
// are returned unchanged.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, unsafeShellRune) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func unsafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("@%+=:,./_-", r):
		return false
	}
	return true
}

// ShellCommand wraps command so it runs under a POSIX login shell on the
// remote side, whatever the user's login shell is.
func ShellCommand(command string) string {
	return "sh -lc " + Quote(command)
}

// InDir prefixes command with a change to dir.
func InDir(dir, command string) string {
	return "cd -- " + Quote(dir) + " && " + command
}

// ListCommand prints the resolved directory followed by one entry per line,
// directories marked with a trailing slash.
func ListCommand(dir string) string {
	return InDir(dir, "pwd -P && LC_ALL=C ls -1Ap")
}

// ViewCommand pages file with less, or cats it when less is missing.
func ViewCommand(dir, file string) string {
	f := Quote(file)
	return InDir(dir, "if command -v less >/dev/null 2>&1; then less -- "+f+"; else cat -- "+f+"; fi")
}

// EditCommand opens file in the editor given as argv.
func EditCommand(dir string, editor []string, file string) string {
	return InDir(dir, shellquote.Join(editor...)+" -- "+Quote(file))
}

// ListError is a listing failure; its message is meant for the status line.
type ListError struct {
	Msg string
	Err error
}

func (e *ListError) Error() string { return e.Msg }

func (e *ListError) Unwrap() error { return e.Err }

// ListDirectory runs the listing protocol for path over r and returns the
// path the remote side resolved together with its entries, ".." first.
func ListDirectory(ctx context.Context, r Runner, path string, timeout time.Duration) (string, []Entry, error) {
	res, err := r.Run(ctx, ListCommand(path), timeout)
	if errors.Is(err, ErrTimeout) {
		return "", nil, &ListError{Msg: "Listing timed out", Err: err}
	}
	if err != nil {
		return "", nil, &ListError{Msg: "Error: " + err.Error(), Err: err}
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = "failed to list directory"
		}
		return "", nil, &ListError{Msg: "Error: " + msg}
	}
	return ParseListing(path, res.Stdout)
}

// ParseListing parses the output of ListCommand. The first line is the
// resolved directory, every following non-empty line an entry.
func ParseListing(requested, output string) (string, []Entry, error) {
	lines := SplitLines(output)
	if len(lines) == 0 {
		return "", nil, &ListError{Msg: "Error: empty response while listing directory"}
	}
	resolved := strings.TrimSpace(lines[0])
	if resolved == "" {
		resolved = requested
	}
	entries := make([]Entry, 0, len(lines))
	entries = append(entries, ParentEntry())
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, isDir := strings.CutSuffix(line, "/")
		entries = append(entries, Entry{Name: name, IsDir: isDir})
	}
	return resolved, entries, nil
}

// SplitLines splits s on "\n", "\r\n" and lone "\r". A trailing line
// terminator does not produce an empty final line.
func SplitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
