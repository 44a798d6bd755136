package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SSHHost is one Host block from ~/.ssh/config.
type SSHHost struct {
	Alias                 string   // first name on the Host line
	Aliases               []string // every non-wildcard name on the Host line
	HostName              string
	Port                  string
	User                  string
	IdentityFile          string // ~ expanded
	ProxyJump             string
	HostKeyAlgorithms     string
	StrictHostKeyChecking string
	UserKnownHostsFile    string // ~ expanded
}

// DisplayHost returns the effective hostname (HostName if set, otherwise Alias).
func (h SSHHost) DisplayHost() string {
	if h.HostName != "" {
		return h.HostName
	}
	return h.Alias
}

// ToConnection converts the block into connection settings.
func (h SSHHost) ToConnection() Connection {
	port := h.Port
	if port == "" {
		port = "22"
	}
	return Connection{
		Name:                  h.Alias,
		Host:                  h.DisplayHost(),
		Port:                  port,
		Username:              h.User,
		KeyPath:               h.IdentityFile,
		ProxyJump:             h.ProxyJump,
		HostKeyAlgorithms:     h.HostKeyAlgorithms,
		StrictHostKeyChecking: h.StrictHostKeyChecking,
		UserKnownHostsFile:    h.UserKnownHostsFile,
	}
}

func sshConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ssh", "config")
}

// LoadSSHConfig parses ~/.ssh/config. A missing file yields no hosts.
func LoadSSHConfig() []SSHHost {
	return LoadSSHConfigFrom(sshConfigPath())
}

// LoadSSHConfigFrom parses the ssh config file at path.
func LoadSSHConfigFrom(path string) []SSHHost {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	return ParseSSHConfig(f)
}

// ParseSSHConfig returns the Host blocks that name at least one concrete
// host. Wildcard patterns and Match blocks are skipped.
func ParseSSHConfig(r io.Reader) []SSHHost {
	var hosts []SSHHost
	var current *SSHHost

	home, _ := os.UserHomeDir()
	flush := func() {
		if current != nil && len(current.Aliases) > 0 {
			hosts = append(hosts, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value := splitSSHConfigLine(line)
		if key == "" {
			continue
		}

		switch strings.ToLower(key) {
		case "host":
			flush()
			current = &SSHHost{}
			for _, name := range strings.Fields(value) {
				if !isWildcard(name) {
					current.Aliases = append(current.Aliases, name)
				}
			}
			if len(current.Aliases) > 0 {
				current.Alias = current.Aliases[0]
			}
			continue
		case "match":
			flush()
			continue
		}
		if current == nil {
			continue
		}

		switch strings.ToLower(key) {
		case "hostname":
			current.HostName = value
		case "port":
			current.Port = value
		case "user":
			current.User = value
		case "identityfile":
			if current.IdentityFile == "" {
				current.IdentityFile = expandTilde(unquote(value), home)
			}
		case "proxyjump":
			current.ProxyJump = value
		case "hostkeyalgorithms":
			current.HostKeyAlgorithms = value
		case "stricthostkeychecking":
			current.StrictHostKeyChecking = value
		case "userknownhostsfile":
			if files := strings.Fields(value); len(files) > 0 {
				current.UserKnownHostsFile = expandTilde(unquote(files[0]), home)
			}
		}
	}
	flush()

	return hosts
}

// MatchSSHHost returns the block one of whose aliases is name.
func MatchSSHHost(hosts []SSHHost, name string) *SSHHost {
	for i := range hosts {
		for _, alias := range hosts[i].Aliases {
			if alias == name {
				return &hosts[i]
			}
		}
	}
	return nil
}

// splitSSHConfigLine splits "Key Value" or "Key=Value" into key and value.
func splitSSHConfigLine(line string) (string, string) {
	end := strings.IndexAny(line, " \t=")
	if end < 0 {
		return line, ""
	}
	key := line[:end]
	rest := strings.TrimLeft(line[end:], " \t")
	rest = strings.TrimPrefix(rest, "=")
	return key, strings.TrimSpace(rest)
}

func isWildcard(alias string) bool {
	return strings.ContainsAny(alias, "*?!")
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func expandTilde(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		return home
	}
	return path
}
