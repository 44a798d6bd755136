package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSSHConfig = `
# global defaults
Host *
    ServerAliveInterval 60

Host web web.prod
    HostName 192.168.1.100
    Port 2222
    User admin
    IdentityFile ~/.ssh/id_web
    IdentityFile ~/.ssh/id_other
    ProxyJump bastion

Host bastion
    HostName=bastion.example.com
    User=jump
    StrictHostKeyChecking accept-new
    UserKnownHostsFile "~/.ssh/known_hosts_bastion" /etc/ssh/known_hosts
    HostKeyAlgorithms ssh-ed25519

Match host *.internal
    User ignored

Host shortname
    USER mixedUser
`

func TestParseSSHConfig(t *testing.T) {
	t.Setenv("HOME", "/home/u")
	hosts := ParseSSHConfig(strings.NewReader(sampleSSHConfig))
	if len(hosts) != 3 {
		t.Fatalf("got %d hosts, want 3: %+v", len(hosts), hosts)
	}

	web := hosts[0]
	if web.Alias != "web" || len(web.Aliases) != 2 {
		t.Errorf("aliases = %q %v", web.Alias, web.Aliases)
	}
	if web.HostName != "192.168.1.100" || web.Port != "2222" || web.User != "admin" {
		t.Errorf("web = %+v", web)
	}
	if web.IdentityFile != "/home/u/.ssh/id_web" {
		t.Errorf("IdentityFile = %q, first one should win", web.IdentityFile)
	}
	if web.ProxyJump != "bastion" {
		t.Errorf("ProxyJump = %q", web.ProxyJump)
	}

	bastion := hosts[1]
	if bastion.HostName != "bastion.example.com" || bastion.User != "jump" {
		t.Errorf("bastion = %+v", bastion)
	}
	if bastion.StrictHostKeyChecking != "accept-new" {
		t.Errorf("StrictHostKeyChecking = %q", bastion.StrictHostKeyChecking)
	}
	if bastion.UserKnownHostsFile != "/home/u/.ssh/known_hosts_bastion" {
		t.Errorf("UserKnownHostsFile = %q", bastion.UserKnownHostsFile)
	}
	if bastion.HostKeyAlgorithms != "ssh-ed25519" {
		t.Errorf("HostKeyAlgorithms = %q", bastion.HostKeyAlgorithms)
	}

	// Directives inside a Match block do not leak into the next host.
	short := hosts[2]
	if short.User != "mixedUser" || short.DisplayHost() != "shortname" {
		t.Errorf("shortname = %+v", short)
	}
}

func TestParseSSHConfigEmpty(t *testing.T) {
	if hosts := ParseSSHConfig(strings.NewReader("")); len(hosts) != 0 {
		t.Errorf("expected no hosts, got %d", len(hosts))
	}
}

func TestLoadSSHConfigFrom(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(file, []byte("Host filetest\n  User fileuser\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	hosts := LoadSSHConfigFrom(file)
	if len(hosts) != 1 || hosts[0].Alias != "filetest" {
		t.Errorf("hosts = %+v", hosts)
	}
	if hosts := LoadSSHConfigFrom("/nonexistent/path/config"); hosts != nil {
		t.Errorf("expected nil for missing file, got %v", hosts)
	}
}

func TestMatchSSHHost(t *testing.T) {
	hosts := ParseSSHConfig(strings.NewReader(sampleSSHConfig))
	if m := MatchSSHHost(hosts, "web.prod"); m == nil || m.Alias != "web" {
		t.Errorf("MatchSSHHost(web.prod) = %+v", m)
	}
	if m := MatchSSHHost(hosts, "192.168.1.100"); m != nil {
		t.Errorf("HostName must not match, got %+v", m)
	}
	if m := MatchSSHHost(nil, "web"); m != nil {
		t.Error("expected nil for empty host list")
	}
}

func TestSSHHostToConnection(t *testing.T) {
	c := SSHHost{Alias: "test", HostName: "test.com", ProxyJump: "j"}.ToConnection()
	if c.Port != "22" || c.Host != "test.com" || c.Name != "test" || c.ProxyJump != "j" {
		t.Errorf("ToConnection() = %+v", c)
	}
}

func TestSplitSSHConfigLine(t *testing.T) {
	tests := []struct{ line, key, val string }{
		{"HostName example.com", "HostName", "example.com"},
		{"Port=2222", "Port", "2222"},
		{"Port = 2222", "Port", "2222"},
		{"User\tadmin", "User", "admin"},
		{"Compression", "Compression", ""},
	}
	for _, tt := range tests {
		key, val := splitSSHConfigLine(tt.line)
		if key != tt.key || val != tt.val {
			t.Errorf("splitSSHConfigLine(%q) = (%q, %q)", tt.line, key, val)
		}
	}
}

func TestIsWildcard(t *testing.T) {
	for alias, want := range map[string]bool{"*": true, "server?": true, "!bad": true, "myhost": false} {
		if got := isWildcard(alias); got != want {
			t.Errorf("isWildcard(%q) = %v", alias, got)
		}
	}
}

func TestExpandTilde(t *testing.T) {
	home := "/home/testuser"
	for in, want := range map[string]string{
		"~/foo/bar":      filepath.Join(home, "foo", "bar"),
		"~":              home,
		"/absolute/path": "/absolute/path",
		"relative/path":  "relative/path",
	} {
		if got := expandTilde(in, home); got != want {
			t.Errorf("expandTilde(%q) = %q, want %q", in, got, want)
		}
	}
}
