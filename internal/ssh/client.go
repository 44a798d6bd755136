// Package ssh is the in-process transport: one golang.org/x/crypto/ssh
// connection per session, with a fresh channel for every remote command.
package ssh

import (
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"rex/internal/remote"
)

const dialTimeout = 10 * time.Second

// ConnectOptions carries the ssh_config settings that affect the handshake.
type ConnectOptions struct {
	HostKeyAlgorithms     string // comma separated
	StrictHostKeyChecking string
	UserKnownHostsFile    string
	ListTimeout           time.Duration
}

func (o *ConnectOptions) listTimeout() time.Duration {
	if o == nil || o.ListTimeout <= 0 {
		return remote.DefaultListTimeout
	}
	return o.ListTimeout
}

// Client wraps an SSH connection.
type Client struct {
	client      *ssh.Client
	jump        *ssh.Client
	address     string
	listTimeout time.Duration
}

func clientConfig(username string, authMethods []ssh.AuthMethod, hkCallback ssh.HostKeyCallback, opts *ConnectOptions) *ssh.ClientConfig {
	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         dialTimeout,
	}
	if opts != nil && opts.HostKeyAlgorithms != "" {
		cfg.HostKeyAlgorithms = splitList(opts.HostKeyAlgorithms)
	}
	return cfg
}

// New creates a new SSH client connected to host:port with the given auth methods.
func New(host, port, username string, authMethods []ssh.AuthMethod, hkCallback ssh.HostKeyCallback, opts *ConnectOptions) (*Client, error) {
	cfg := clientConfig(username, authMethods, hkCallback, opts)
	address := net.JoinHostPort(host, port)
	log.Printf("[SSH] dialling %s@%s", username, address)
	client, err := ssh.Dial("tcp", address, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client:      client,
		address:     address,
		listTimeout: opts.listTimeout(),
	}, nil
}

// NewViaJump opens a connection to host:port tunnelled through jump. The
// returned client owns jump and closes it on Close.
func NewViaJump(jump *ssh.Client, host, port, username string, authMethods []ssh.AuthMethod, hkCallback ssh.HostKeyCallback, opts *ConnectOptions) (*Client, error) {
	cfg := clientConfig(username, authMethods, hkCallback, opts)
	address := net.JoinHostPort(host, port)
	log.Printf("[SSH] dialling %s@%s via jump host", username, address)
	conn, err := jump.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s through jump host: %w", address, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, address, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Client{
		client:      ssh.NewClient(c, chans, reqs),
		jump:        jump,
		address:     address,
		listTimeout: opts.listTimeout(),
	}, nil
}

// SSHClient exposes the underlying connection, e.g. to use it as a jump host.
func (c *Client) SSHClient() *ssh.Client {
	return c.client
}

// Address is the host:port the client is connected to.
func (c *Client) Address() string {
	return c.address
}

// Close closes the SSH connection and its jump host, if any.
func (c *Client) Close() error {
	err := c.client.Close()
	if c.jump != nil {
		if jErr := c.jump.Close(); jErr != nil && err == nil {
			err = jErr
		}
	}
	return err
}

// NewSession creates a new SSH session.
func (c *Client) NewSession() (*ssh.Session, error) {
	return c.client.NewSession()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
