package ssh

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"rex/internal/remote"
)

// testSSHServer starts a minimal SSH server for integration tests.
// It returns the address and a cleanup function.
func testSSHServer(t *testing.T) (addr string, cleanup func()) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "testuser" && string(pass) == "testpass" {
				return nil, nil
			}
			return nil, fmt.Errorf("auth failed")
		},
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handleConn(conn, config)
		}
	}()

	return ln.Addr().String(), func() {
		ln.Close()
		<-done
	}
}

// reply is the canned outcome of an exec request.
type reply struct {
	stdout string
	stderr string
	status uint32
	hang   bool
}

// fakeShell answers exec requests by looking at the command text.
func fakeShell(cmd string) reply {
	switch {
	case strings.Contains(cmd, "nowhere"):
		return reply{stderr: "sh: cd: /nowhere: No such file or directory\n", status: 2}
	case strings.Contains(cmd, "pwd -P"):
		return reply{stdout: "/home/testuser\nnotes.txt\nsrc/\n"}
	case strings.Contains(cmd, "echo hi"):
		return reply{stdout: "hi\n"}
	case strings.Contains(cmd, "fail"):
		return reply{stderr: "problem\n", status: 17}
	case strings.Contains(cmd, "sleep"):
		return reply{hang: true}
	}
	return reply{}
}

func handleConn(conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() == "direct-tcpip" {
			go forward(newChan)
			continue
		}
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			return
		}

		go func() {
			defer ch.Close()
			for req := range requests {
				switch req.Type {
				case "exec":
					var payload struct{ Command string }
					if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
						req.Reply(false, nil)
						return
					}
					if req.WantReply {
						req.Reply(true, nil)
					}
					r := fakeShell(payload.Command)
					if r.hang {
						// Wait for the client to give up and close the channel.
						continue
					}
					ch.Write([]byte(r.stdout))
					ch.Stderr().Write([]byte(r.stderr))
					ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{r.status}))
					ch.Close()
					return
				case "pty-req":
					if req.WantReply {
						req.Reply(true, nil)
					}
				default:
					if req.WantReply {
						req.Reply(false, nil)
					}
				}
			}
		}()
	}
}

// forward serves a direct-tcpip channel, which is how a jump host is used.
func forward(newChan ssh.NewChannel) {
	var target struct {
		Host     string
		Port     uint32
		OrigHost string
		OrigPort uint32
	}
	if err := ssh.Unmarshal(newChan.ExtraData(), &target); err != nil {
		newChan.Reject(ssh.ConnectionFailed, err.Error())
		return
	}
	conn, err := net.Dial("tcp", net.JoinHostPort(target.Host, fmt.Sprint(target.Port)))
	if err != nil {
		newChan.Reject(ssh.ConnectionFailed, err.Error())
		return
	}
	ch, reqs, err := newChan.Accept()
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	go func() {
		io.Copy(ch, conn)
		ch.CloseWrite()
	}()
	io.Copy(conn, ch)
	conn.Close()
	ch.Close()
}

func dialTestServer(t *testing.T) *Client {
	t.Helper()
	addr, cleanup := testSSHServer(t)
	t.Cleanup(cleanup)

	host, port, _ := net.SplitHostPort(addr)
	client, err := New(host, port, "testuser",
		[]ssh.AuthMethod{PasswordAuth("testpass")},
		ssh.InsecureIgnoreHostKey(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// ---------------------------------------------------------------------------
// Integration tests using test SSH server
// ---------------------------------------------------------------------------

func TestNewClient(t *testing.T) {
	client := dialTestServer(t)
	if client.SSHClient() == nil {
		t.Error("SSHClient() should not be nil")
	}
	if !strings.HasPrefix(client.Address(), "127.0.0.1:") {
		t.Errorf("Address() = %q", client.Address())
	}
	if client.listTimeout != remote.DefaultListTimeout {
		t.Errorf("listTimeout = %s, want default", client.listTimeout)
	}
}

func TestNewClientBadAuth(t *testing.T) {
	addr, cleanup := testSSHServer(t)
	defer cleanup()

	host, port, _ := net.SplitHostPort(addr)
	_, err := New(host, port, "testuser",
		[]ssh.AuthMethod{PasswordAuth("wrong")},
		ssh.InsecureIgnoreHostKey(), nil)
	if err == nil {
		t.Error("expected auth failure")
	}
}

func TestNewViaJump(t *testing.T) {
	jump := dialTestServer(t)
	addr, cleanup := testSSHServer(t)
	defer cleanup()

	host, port, _ := net.SplitHostPort(addr)
	client, err := NewViaJump(jump.SSHClient(), host, port, "testuser",
		[]ssh.AuthMethod{PasswordAuth("testpass")},
		ssh.InsecureIgnoreHostKey(), &ConnectOptions{ListTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewViaJump() error = %v", err)
	}
	defer client.Close()

	res, err := client.Run(context.Background(), "echo hi", time.Second)
	if err != nil {
		t.Fatalf("Run() via jump error = %v", err)
	}
	if res.Stdout != "hi\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestClientRun(t *testing.T) {
	client := dialTestServer(t)

	res, err := client.Run(context.Background(), "echo hi", 5*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stdout != "hi\n" || res.Stderr != "" || res.ExitCode != 0 {
		t.Errorf("Run() = %+v", res)
	}
}

func TestClientRunExitStatus(t *testing.T) {
	client := dialTestServer(t)

	res, err := client.Run(context.Background(), "fail", 5*time.Second)
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got %v", err)
	}
	if res.ExitCode != 17 {
		t.Errorf("ExitCode = %d, want 17", res.ExitCode)
	}
	if res.Stderr != "problem\n" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}

func TestClientRunTimeout(t *testing.T) {
	client := dialTestServer(t)

	start := time.Now()
	_, err := client.Run(context.Background(), "sleep 60", 200*time.Millisecond)
	if !errors.Is(err, remote.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}

	// The connection is still usable afterwards.
	if _, err := client.Run(context.Background(), "echo hi", 5*time.Second); err != nil {
		t.Errorf("Run() after timeout error = %v", err)
	}
}

func TestClientRunCancelled(t *testing.T) {
	client := dialTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	_, err := client.Run(ctx, "sleep 60", 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClientListDirectory(t *testing.T) {
	client := dialTestServer(t)

	cwd, entries, err := client.ListDirectory(context.Background(), ".")
	if err != nil {
		t.Fatalf("ListDirectory() error = %v", err)
	}
	if cwd != "/home/testuser" {
		t.Errorf("cwd = %q", cwd)
	}
	want := []remote.Entry{remote.ParentEntry(), {Name: "notes.txt"}, {Name: "src", IsDir: true}}
	if len(entries) != len(want) {
		t.Fatalf("entries = %v", entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestClientListDirectoryFailure(t *testing.T) {
	client := dialTestServer(t)

	_, _, err := client.ListDirectory(context.Background(), "/nowhere")
	if err == nil {
		t.Fatal("expected listing error")
	}
	if !strings.HasPrefix(err.Error(), "Error: sh: cd: /nowhere") {
		t.Errorf("error = %q", err)
	}
}

func TestClientFullscreen(t *testing.T) {
	client := dialTestServer(t)

	var out bytes.Buffer
	cmd := client.Fullscreen("echo hi")
	cmd.SetStdin(strings.NewReader(""))
	cmd.SetStdout(&out)
	cmd.SetStderr(&out)
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.String() != "hi\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestClientFullscreenReleasesStdin(t *testing.T) {
	client := dialTestServer(t)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	var out bytes.Buffer
	cmd := client.Fullscreen("echo hi")
	cmd.SetStdin(r)
	cmd.SetStdout(&out)
	cmd.SetStderr(&out)
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// A key typed after the remote program exits belongs to the caller.
	if _, err := w.Write([]byte("k")); err != nil {
		t.Fatal(err)
	}
	if err := r.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 1)
	n, err := r.Read(buf)
	if err != nil || string(buf[:n]) != "k" {
		t.Errorf("Read() = %q, %v; want the key left unread", buf[:n], err)
	}
}

func TestClientDownloadUnsupported(t *testing.T) {
	// The test server has no scp, so the copy fails and leaves nothing behind.
	client := dialTestServer(t)
	dir := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Download(ctx, "/tmp/file.txt", dir); err == nil {
		t.Log("download succeeded (unexpected with test server)")
	}
}

func TestClientDownloadBadLocalDir(t *testing.T) {
	client := dialTestServer(t)
	if err := client.Download(context.Background(), "/tmp/file.txt", "/nonexistent/dir"); err == nil {
		t.Error("expected error for missing local directory")
	}
}
