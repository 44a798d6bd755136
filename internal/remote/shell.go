package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultBinary is the remote-shell client used when none is configured.
const DefaultBinary = "ssh"

// execCommandContext is swapped out by tests.
var execCommandContext = exec.CommandContext

// Shell is a Transport that drives the local ssh binary, one process per
// remote command.
type Shell struct {
	Host        string
	Binary      string
	Args        []string // passed before the destination, e.g. "-o", "BatchMode=yes"
	ListTimeout time.Duration
}

// NewShell returns a Shell for host using the default binary.
func NewShell(host string) *Shell {
	return &Shell{Host: host, Binary: DefaultBinary, ListTimeout: DefaultListTimeout}
}

// CheckBinary reports an error when name cannot be found on PATH.
func CheckBinary(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s binary not found in PATH", name)
	}
	return nil
}

func (s *Shell) binary() string {
	if s.Binary == "" {
		return DefaultBinary
	}
	return s.Binary
}

func (s *Shell) args(tty bool, command string) []string {
	args := make([]string, 0, len(s.Args)+3)
	args = append(args, s.Args...)
	if tty {
		args = append(args, "-t")
	}
	return append(args, s.Host, ShellCommand(command))
}

// Run executes command on the host and captures its output. A non-zero
// remote exit status is reported in Result, not as an error.
func (s *Shell) Run(ctx context.Context, command string, timeout time.Duration) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := execCommandContext(ctx, s.binary(), s.args(false, command)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Printf("[Shell] %q timed out after %s", command, timeout)
		return Result{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		return Result{}, fmt.Errorf("run %s: %w", s.binary(), err)
	}
	log.Printf("[Shell] %q exit=%d in %s", command, res.ExitCode, time.Since(start).Round(time.Millisecond))
	return res, nil
}

// ListDirectory implements the listing protocol over Run.
func (s *Shell) ListDirectory(ctx context.Context, dir string) (string, []Entry, error) {
	timeout := s.ListTimeout
	if timeout <= 0 {
		timeout = DefaultListTimeout
	}
	return ListDirectory(ctx, s, dir, timeout)
}

// Fullscreen runs command with a remote tty attached to the local terminal.
func (s *Shell) Fullscreen(command string) tea.ExecCommand {
	return &execCommand{Cmd: exec.Command(s.binary(), s.args(true, command)...)}
}

// Download copies remotePath into localDir with scp, translating the ssh
// options that scp spells differently.
func (s *Shell) Download(ctx context.Context, remotePath, localDir string) error {
	opts, user := scpOptions(s.Args)
	host := s.Host
	if user != "" && !strings.Contains(host, "@") {
		host = user + "@" + host
	}
	args := append(opts, host+":"+remotePath, filepath.Join(localDir, path.Base(remotePath)))
	var stderr bytes.Buffer
	cmd := execCommandContext(ctx, "scp", args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("scp: %w", ctx.Err())
		}
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("scp: %s", msg)
		}
		return fmt.Errorf("scp: %w", err)
	}
	return nil
}

// Close is a no-op: every command is its own process.
func (s *Shell) Close() error { return nil }

// scpOptions rewrites ssh arguments for scp: -o, -i, -F and -J keep their
// meaning, -p becomes -P, and the -l login is returned for the destination.
// Other ssh flags are dropped.
func scpOptions(args []string) (opts []string, user string) {
	for i := 0; i < len(args); i++ {
		flag := args[i]
		switch flag {
		case "-4", "-6", "-C", "-q":
			opts = append(opts, flag)
			continue
		case "-o", "-i", "-F", "-J", "-p", "-l":
		default:
			continue
		}
		if i+1 >= len(args) {
			break
		}
		value := args[i+1]
		i++
		switch flag {
		case "-p":
			opts = append(opts, "-P", value)
		case "-l":
			user = value
		default:
			opts = append(opts, flag, value)
		}
	}
	return opts, user
}

// execCommand adapts exec.Cmd to tea.ExecCommand.
type execCommand struct {
	*exec.Cmd
}

func (c *execCommand) SetStdin(r io.Reader)  { c.Stdin = r }
func (c *execCommand) SetStdout(w io.Writer) { c.Stdout = w }
func (c *execCommand) SetStderr(w io.Writer) { c.Stderr = w }
