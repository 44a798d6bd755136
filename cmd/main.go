package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"rex/internal/config"
	"rex/internal/editor"
	"rex/internal/explorer"
	"rex/internal/remote"
	sshclient "rex/internal/ssh"
	"rex/internal/ui"
)

var (
	version = "dev"
	commit  = ""
)

type options struct {
	configPath string
	native     bool
	resume     bool
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "rex HOST [PATH]",
		Short:         "Browse a remote directory tree and run commands over ssh",
		Args:          cobra.RangeArgs(1, 2),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       buildVersion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 1 {
				path = args[1]
			}
			return run(cmd.Context(), opts, args[0], path)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/rex/config.json)")
	flags.BoolVar(&opts.native, "native", false, "use the built-in SSH client instead of the ssh binary")
	flags.BoolVar(&opts.resume, "resume", false, "start in the directory last browsed on HOST when PATH is not given")
	flags.DurationVar(&opts.timeout, "timeout", 0, "remote command timeout (default from config, 60s)")
	return cmd
}

func buildVersion() string {
	if commit != "" {
		return version + " (" + commit + ")"
	}
	return version
}

func run(ctx context.Context, opts *options, host, path string) error {
	closeLog := setupLogging(logPath())
	defer closeLog()
	log.Printf("=== rex %s starting (log: %s) ===", buildVersion(), logPath())

	store := config.NewStore(opts.configPath)
	cfg, err := store.Load()
	if err != nil {
		log.Printf("[Config] load %s: %v", store.Path(), err)
		cfg = &config.Config{}
	}
	timeout := cfg.CommandTimeout()
	if opts.timeout > 0 {
		timeout = opts.timeout
	}

	transport, err := openTransport(opts, cfg, host)
	if err != nil {
		return err
	}
	defer func() {
		if err := transport.Close(); err != nil {
			log.Printf("[Main] close transport: %v", err)
		}
	}()

	localDir, err := os.Getwd()
	if err != nil {
		localDir = "."
	}

	x := explorer.New(host, startPath(path, opts.resume, cfg, host), transport, explorer.Options{
		MaxLines:        cfg.ScrollbackLines(),
		CommandTimeout:  timeout,
		DownloadTimeout: cfg.DownloadTimeout(),
		Editor:          editor.Resolve(os.Getenv),
		LocalDir:        localDir,
		OnListing:       recentRecorder(store, host),
	})

	p := tea.NewProgram(ui.New(ctx, x, transport), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// openTransport picks the ssh binary or, with --native, the built-in client.
func openTransport(opts *options, cfg *config.Config, host string) (remote.Transport, error) {
	if opts.native {
		log.Printf("[Main] native transport for %s", host)
		client, err := dialNative(host, cfg, config.LoadSSHConfig())
		if err != nil {
			return nil, err
		}
		log.Printf("[Main] connected to %s", client.Address())
		return client, nil
	}

	binary := cfg.Binary()
	if err := remote.CheckBinary(binary); err != nil {
		return nil, err
	}
	log.Printf("[Main] %s transport for %s", binary, host)
	return &remote.Shell{
		Host:        host,
		Binary:      binary,
		Args:        cfg.SSHArgs,
		ListTimeout: cfg.ListTimeout(),
	}, nil
}

// dialNative connects to spec, through its ProxyJump host when one is set.
func dialNative(spec string, cfg *config.Config, hosts []config.SSHHost) (*sshclient.Client, error) {
	conn := config.ResolveTarget(spec, hosts)
	hk, err := sshclient.HostKeyCallback(conn.StrictHostKeyChecking, conn.UserKnownHostsFile)
	if err != nil {
		return nil, err
	}

	jumpSpec := firstJump(conn.ProxyJump)
	if jumpSpec == "" {
		log.Printf("[Main] direct connection to %s@%s:%s", conn.Username, conn.Host, conn.Port)
		return sshclient.New(conn.Host, conn.Port, conn.Username, authMethods(conn), hk, connectOptions(conn, cfg))
	}

	jumpConn := config.ResolveTarget(jumpSpec, hosts)
	jumpHK, err := sshclient.HostKeyCallback(jumpConn.StrictHostKeyChecking, jumpConn.UserKnownHostsFile)
	if err != nil {
		return nil, err
	}
	log.Printf("[Main] connecting to jump host %s@%s:%s", jumpConn.Username, jumpConn.Host, jumpConn.Port)
	jump, err := sshclient.New(jumpConn.Host, jumpConn.Port, jumpConn.Username, authMethods(jumpConn), jumpHK, connectOptions(jumpConn, cfg))
	if err != nil {
		return nil, fmt.Errorf("jump host %s: %w", jumpConn.Host, err)
	}
	client, err := sshclient.NewViaJump(jump.SSHClient(), conn.Host, conn.Port, conn.Username, authMethods(conn), hk, connectOptions(conn, cfg))
	if err != nil {
		_ = jump.Close()
		return nil, fmt.Errorf("destination via jump: %w", err)
	}
	return client, nil
}

// firstJump returns the first hop of a ProxyJump value. "none" disables it.
func firstJump(proxyJump string) string {
	first, rest, _ := strings.Cut(proxyJump, ",")
	first = strings.TrimSpace(first)
	if strings.EqualFold(first, "none") {
		return ""
	}
	if rest != "" {
		log.Printf("[Main] only the first ProxyJump hop is used: %q", first)
	}
	return first
}

func connectOptions(conn config.Connection, cfg *config.Config) *sshclient.ConnectOptions {
	return &sshclient.ConnectOptions{
		HostKeyAlgorithms:     conn.HostKeyAlgorithms,
		StrictHostKeyChecking: conn.StrictHostKeyChecking,
		UserKnownHostsFile:    conn.UserKnownHostsFile,
		ListTimeout:           cfg.ListTimeout(),
	}
}

// authMethods adds a terminal password prompt after the key based methods
// when stdin is a terminal. The prompt runs before the UI starts.
func authMethods(conn config.Connection) []gossh.AuthMethod {
	methods := sshclient.AuthMethods(conn.KeyPath)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return methods
	}
	return append(methods, gossh.PasswordCallback(func() (string, error) {
		fmt.Fprintf(os.Stderr, "%s@%s's password: ", conn.Username, conn.Host)
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(pw), err
	}))
}

// startPath is the explicit PATH argument, else with --resume the directory
// last browsed on host, else "." for the login directory.
func startPath(path string, resume bool, cfg *config.Config, host string) string {
	if path != "" {
		return path
	}
	if resume {
		if last, ok := cfg.LastPath(host); ok {
			log.Printf("[Main] resuming %s at %s", host, last)
			return last
		}
	}
	return "."
}

// recentRecorder saves host and the current directory whenever a listing
// lands in a directory other than the one saved last.
func recentRecorder(store *config.Store, host string) func(cwd string) {
	var last string
	return func(cwd string) {
		if cwd == last {
			return
		}
		last = cwd
		recordRecent(store, host, cwd)
	}
}

func recordRecent(store *config.Store, host, cwd string) {
	err := store.Update(func(c *config.Config) {
		c.AddRecent(host, cwd, time.Now())
	})
	if err != nil {
		log.Printf("[Config] save recent host: %v", err)
	}
}

// setupLogging sends the log package to a rotating file.
func setupLogging(path string) func() {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
	}
	log.SetOutput(w)
	return func() { _ = w.Close() }
}

// logPath returns the path for the debug log file.
// When running from the project directory (go run / ./bin/rex), logs go
// to .logs/debug.log. When installed, logs go to
// $XDG_STATE_HOME/rex/debug.log.
func logPath() string {
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)
		cwd, _ := os.Getwd()
		if strings.HasPrefix(exeDir, cwd) || strings.Contains(exeDir, "go-build") {
			dir := filepath.Join(cwd, ".logs")
			_ = os.MkdirAll(dir, 0o755)
			return filepath.Join(dir, "debug.log")
		}
	}
	return stateLogPath()
}

func stateLogPath() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, _ := os.UserHomeDir()
		stateDir = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(stateDir, "rex")
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "debug.log")
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
