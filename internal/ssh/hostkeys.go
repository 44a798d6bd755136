package ssh

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultKnownHostsFile is ~/.ssh/known_hosts.
func DefaultKnownHostsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "known_hosts")
}

// HostKeyCallback verifies host keys the way StrictHostKeyChecking asks:
// "no" accepts anything, "accept-new" records unknown hosts in the known
// hosts file, anything else requires a known key.
func HostKeyCallback(strict, knownHostsFile string) (ssh.HostKeyCallback, error) {
	mode := strings.ToLower(strings.TrimSpace(strict))
	if mode == "no" || mode == "off" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if knownHostsFile == "" {
		knownHostsFile = DefaultKnownHostsFile()
	}
	file := expandHome(knownHostsFile)
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		if mode != "accept-new" {
			return nil, fmt.Errorf("known hosts file %s does not exist", file)
		}
		if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(file, nil, 0o600); err != nil {
			return nil, err
		}
	}
	check, err := knownhosts.New(file)
	if err != nil {
		return nil, err
	}
	if mode != "accept-new" {
		return check, nil
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		// Re-read so keys recorded earlier in this process are seen.
		check, err := knownhosts.New(file)
		if err != nil {
			return err
		}
		err = check(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) == 0 {
			log.Printf("[SSH] recording new host key for %s", hostname)
			return appendKnownHost(file, hostname, key)
		}
		return err
	}, nil
}

func appendKnownHost(file, hostname string, key ssh.PublicKey) (retErr error) {
	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil {
			retErr = errors.Join(retErr, cErr)
		}
	}()
	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	_, err = fmt.Fprintln(f, line)
	return err
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
