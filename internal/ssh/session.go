package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bramvdbogaerde/go-scp"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/cancelreader"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"rex/internal/remote"
)

var _ remote.Transport = (*Client)(nil)

// Run executes command on a new session under a POSIX shell. A non-zero
// exit status is reported in the result, not as an error.
func (c *Client) Run(ctx context.Context, command string, timeout time.Duration) (res remote.Result, retErr error) {
	session, err := c.client.NewSession()
	if err != nil {
		return remote.Result{}, err
	}
	defer func() {
		if cErr := session.Close(); cErr != nil && !errors.Is(cErr, io.EOF) {
			retErr = errors.Join(retErr, fmt.Errorf("close session: %w", cErr))
		}
	}()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- session.Run(remote.ShellCommand(command)) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("[SSH] %q timed out after %s", command, timeout)
			return remote.Result{}, fmt.Errorf("%w after %s", remote.ErrTimeout, timeout)
		}
		return remote.Result{}, ctx.Err()
	case err = <-done:
	}

	res = remote.Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *ssh.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitStatus()
	case err != nil:
		log.Printf("[SSH] %q failed: %v", command, err)
		return remote.Result{}, err
	}
	log.Printf("[SSH] %q exit=%d in %s", command, res.ExitCode, time.Since(start).Round(time.Millisecond))
	return res, nil
}

// ListDirectory lists path on the remote host.
func (c *Client) ListDirectory(ctx context.Context, path string) (string, []remote.Entry, error) {
	return remote.ListDirectory(ctx, c, path, c.listTimeout)
}

// Download copies remotePath into localDir under its base name.
func (c *Client) Download(ctx context.Context, remotePath, localDir string) (retErr error) {
	// The scp client is not closed: Close would close the shared connection.
	scpClient, err := scp.NewClientBySSH(c.client)
	if err != nil {
		return err
	}

	localPath := filepath.Join(localDir, filepath.Base(remotePath))
	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil {
			retErr = errors.Join(retErr, fmt.Errorf("close local file: %w", cErr))
		}
		if retErr != nil {
			_ = os.Remove(localPath)
		}
	}()

	log.Printf("[SSH] scp %s -> %s", remotePath, localPath)
	return scpClient.CopyFromRemote(ctx, f, remotePath)
}

// Fullscreen returns a command that runs command on a remote pty wired to
// the local terminal.
func (c *Client) Fullscreen(command string) tea.ExecCommand {
	return &ptyCommand{client: c, command: command, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
}

// ptyCommand implements tea.ExecCommand over an SSH session.
type ptyCommand struct {
	client  *Client
	command string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func (p *ptyCommand) SetStdin(r io.Reader)  { p.stdin = r }
func (p *ptyCommand) SetStdout(w io.Writer) { p.stdout = w }
func (p *ptyCommand) SetStderr(w io.Writer) { p.stderr = w }

func (p *ptyCommand) Run() (retErr error) {
	session, err := p.client.NewSession()
	if err != nil {
		return err
	}
	defer func() {
		if cErr := session.Close(); cErr != nil && !errors.Is(cErr, io.EOF) {
			retErr = errors.Join(retErr, fmt.Errorf("close session: %w", cErr))
		}
	}()

	width, height := 80, 24
	if f, ok := p.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer func() { _ = term.Restore(int(f.Fd()), state) }()
	}
	if f, ok := p.stdout.(*os.File); ok {
		if w, h, err := term.GetSize(int(f.Fd())); err == nil {
			width, height = w, h
		}
	}

	// Local stdin goes through a cancelable reader so that no copy is left
	// reading keystrokes once the remote program has exited.
	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	cr, err := cancelreader.NewReader(p.stdin)
	if err != nil {
		return fmt.Errorf("stdin reader: %w", err)
	}
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		_, _ = io.Copy(stdin, cr)
		_ = stdin.Close()
	}()
	defer func() {
		if cr.Cancel() {
			<-copied
		}
		_ = cr.Close()
	}()

	session.Stdout = p.stdout
	session.Stderr = p.stderr

	termType := os.Getenv("TERM")
	if termType == "" {
		termType = "xterm-256color"
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(termType, height, width, modes); err != nil {
		return fmt.Errorf("request pty: %w", err)
	}
	log.Printf("[SSH] full-screen %q (%dx%d)", p.command, width, height)
	return session.Run(remote.ShellCommand(p.command))
}
