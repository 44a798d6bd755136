package config

import (
	"time"
)

const (
	defaultCommandTimeout  = 60 * time.Second
	defaultListTimeout     = 30 * time.Second
	defaultDownloadTimeout = 5 * time.Minute
	defaultMaxLines        = 2000
	defaultSSHBinary       = "ssh"
	maxRecentHosts         = 10
)

// Connection describes how to reach a host over the built-in SSH client.
type Connection struct {
	Name                  string `json:"name,omitempty"`
	Host                  string `json:"host"`
	Port                  string `json:"port,omitempty"`
	Username              string `json:"username,omitempty"`
	KeyPath               string `json:"key_path,omitempty"`
	ProxyJump             string `json:"proxy_jump,omitempty"`
	HostKeyAlgorithms     string `json:"host_key_algorithms,omitempty"`
	StrictHostKeyChecking string `json:"strict_host_key_checking,omitempty"`
	UserKnownHostsFile    string `json:"user_known_hosts_file,omitempty"`
}

// RecentHost is a host the user browsed, with the last directory seen there.
type RecentHost struct {
	Host     string    `json:"host"`
	Path     string    `json:"path,omitempty"`
	LastUsed time.Time `json:"last_used"`
}

// Config holds application configuration.
type Config struct {
	CommandTimeoutSeconds  int          `json:"command_timeout_seconds,omitempty"`
	ListTimeoutSeconds     int          `json:"list_timeout_seconds,omitempty"`
	DownloadTimeoutSeconds int          `json:"download_timeout_seconds,omitempty"`
	MaxLines               int          `json:"max_lines,omitempty"`
	SSHBinary              string       `json:"ssh_binary,omitempty"`
	SSHArgs                []string     `json:"ssh_args,omitempty"`
	RecentHosts            []RecentHost `json:"recent_hosts"`
}

// CommandTimeout bounds a command typed into the panel.
func (c *Config) CommandTimeout() time.Duration {
	if c.CommandTimeoutSeconds <= 0 {
		return defaultCommandTimeout
	}
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

// ListTimeout bounds a directory listing.
func (c *Config) ListTimeout() time.Duration {
	if c.ListTimeoutSeconds <= 0 {
		return defaultListTimeout
	}
	return time.Duration(c.ListTimeoutSeconds) * time.Second
}

// DownloadTimeout bounds one file download.
func (c *Config) DownloadTimeout() time.Duration {
	if c.DownloadTimeoutSeconds <= 0 {
		return defaultDownloadTimeout
	}
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

// ScrollbackLines is the console capacity.
func (c *Config) ScrollbackLines() int {
	if c.MaxLines <= 0 {
		return defaultMaxLines
	}
	return c.MaxLines
}

// Binary is the ssh executable used by the default transport.
func (c *Config) Binary() string {
	if c.SSHBinary == "" {
		return defaultSSHBinary
	}
	return c.SSHBinary
}

// AddRecent moves host to the front of the recent list, updating its path.
func (c *Config) AddRecent(host, path string, now time.Time) {
	entry := RecentHost{Host: host, Path: path, LastUsed: now}
	for i, rh := range c.RecentHosts {
		if rh.Host == host {
			c.RecentHosts = append(c.RecentHosts[:i], c.RecentHosts[i+1:]...)
			break
		}
	}
	c.RecentHosts = append([]RecentHost{entry}, c.RecentHosts...)
	if len(c.RecentHosts) > maxRecentHosts {
		c.RecentHosts = c.RecentHosts[:maxRecentHosts]
	}
}

// LastPath returns the directory last browsed on host.
func (c *Config) LastPath(host string) (string, bool) {
	for _, rh := range c.RecentHosts {
		if rh.Host == host && rh.Path != "" {
			return rh.Path, true
		}
	}
	return "", false
}
