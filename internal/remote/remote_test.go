package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	cases := map[string]string{
		"/tmp":               "/tmp",
		"":                   "''",
		"/path/with spaces":  "'/path/with spaces'",
		"it's":               `'it'\''s'`,
		"a;rm -rf /":         "'a;rm -rf /'",
		"user@host:~/x.y_z-": "'user@host:~/x.y_z-'",
		"file=1,2+3%":        "file=1,2+3%",
	}
	for in, want := range cases {
		assert.Equal(t, want, Quote(in), "Quote(%q)", in)
	}
}

func TestShellCommand(t *testing.T) {
	assert.Equal(t, "sh -lc 'cd / && pwd'", ShellCommand("cd / && pwd"))
}

func TestInDir(t *testing.T) {
	assert.Equal(t, "cd -- /tmp && echo hi", InDir("/tmp", "echo hi"))
	assert.Equal(t, "cd -- '/my dir' && ls", InDir("/my dir", "ls"))
}

func TestListCommand(t *testing.T) {
	assert.Equal(t, "cd -- /srv && pwd -P && LC_ALL=C ls -1Ap", ListCommand("/srv"))
}

func TestViewCommandFallsBackToCat(t *testing.T) {
	got := ViewCommand("/etc", "my file")
	assert.Contains(t, got, "less -- 'my file'")
	assert.Contains(t, got, "cat -- 'my file'")
	assert.Contains(t, got, "command -v less")
}

func TestEditCommand(t *testing.T) {
	got := EditCommand("/home/u", []string{"code", "--wait"}, "notes.txt")
	assert.Equal(t, "cd -- /home/u && code --wait -- notes.txt", got)
}

func TestSplitLines(t *testing.T) {
	assert.Empty(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\n\nb"))
	assert.Equal(t, []string{"a", "b", "c"}, SplitLines("a\r\nb\rc"))
	assert.Equal(t, []string{"single"}, SplitLines("single"))
}

func TestParseListing(t *testing.T) {
	cwd, entries, err := ParseListing("/tmp", "/tmp\nfile.txt\ndir/\n")
	require.NoError(t, err)
	assert.Equal(t, "/tmp", cwd)
	assert.Equal(t, []Entry{
		{Name: "..", IsDir: true},
		{Name: "file.txt"},
		{Name: "dir", IsDir: true},
	}, entries)
}

func TestParseListingEmptyDirectory(t *testing.T) {
	cwd, entries, err := ParseListing(".", "/home/u\n")
	require.NoError(t, err)
	assert.Equal(t, "/home/u", cwd)
	assert.Equal(t, []Entry{ParentEntry()}, entries)
}

func TestParseListingBlankFirstLineKeepsRequestedPath(t *testing.T) {
	cwd, _, err := ParseListing("/req", "  \nx\n")
	require.NoError(t, err)
	assert.Equal(t, "/req", cwd)
}

func TestParseListingEmptyResponse(t *testing.T) {
	_, entries, err := ParseListing("/tmp", "")
	require.Error(t, err)
	assert.Nil(t, entries)
	assert.Equal(t, "Error: empty response while listing directory", err.Error())
}

func TestEntryLabel(t *testing.T) {
	assert.Equal(t, "dir/", Entry{Name: "dir", IsDir: true}.Label())
	assert.Equal(t, "f", Entry{Name: "f"}.Label())
	assert.True(t, ParentEntry().IsParent())
	assert.False(t, Entry{Name: "x", IsDir: true}.IsParent())
}

type fakeRunner struct {
	res   Result
	err   error
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, command string, _ time.Duration) (Result, error) {
	f.calls = append(f.calls, command)
	return f.res, f.err
}

func TestListDirectoryParsesEntries(t *testing.T) {
	r := &fakeRunner{res: Result{Stdout: "/tmp\nfile.txt\ndir/\n"}}
	cwd, entries, err := ListDirectory(context.Background(), r, "/tmp", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "/tmp", cwd)
	assert.Len(t, entries, 3)
	assert.Equal(t, []string{ListCommand("/tmp")}, r.calls)
}

func TestListDirectoryPropagatesRemoteError(t *testing.T) {
	r := &fakeRunner{res: Result{ExitCode: 2, Stderr: "denied\n"}}
	cwd, entries, err := ListDirectory(context.Background(), r, "/tmp", time.Second)
	assert.Empty(t, cwd)
	assert.Nil(t, entries)
	require.Error(t, err)
	assert.Equal(t, "Error: denied", err.Error())
}

func TestListDirectoryNonZeroWithoutStderr(t *testing.T) {
	r := &fakeRunner{res: Result{ExitCode: 1}}
	_, _, err := ListDirectory(context.Background(), r, "/tmp", time.Second)
	require.Error(t, err)
	assert.Equal(t, "Error: failed to list directory", err.Error())
}

func TestListDirectoryHandlesTimeout(t *testing.T) {
	r := &fakeRunner{err: ErrTimeout}
	_, entries, err := ListDirectory(context.Background(), r, "/tmp", time.Second)
	assert.Nil(t, entries)
	require.Error(t, err)
	assert.Equal(t, "Listing timed out", err.Error())
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestListDirectoryTransportError(t *testing.T) {
	r := &fakeRunner{err: errors.New("connection refused")}
	_, _, err := ListDirectory(context.Background(), r, "/tmp", time.Second)
	require.Error(t, err)
	assert.Equal(t, "Error: connection refused", err.Error())
}
