package ssh

import (
	"errors"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// PasswordAuth returns an AuthMethod for password authentication.
func PasswordAuth(password string) ssh.AuthMethod {
	return ssh.Password(password)
}

// PubKeyAuth returns an AuthMethod for public key authentication from a key file.
func PubKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

// AgentAuth returns an AuthMethod backed by the agent at $SSH_AUTH_SOCK.
func AgentAuth() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// DefaultKeyPaths returns the identity files ssh tries when none is given.
func DefaultKeyPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var paths []string
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		paths = append(paths, filepath.Join(home, ".ssh", name))
	}
	return paths
}

// AuthMethods collects the non-interactive methods in the order ssh tries
// them: the explicit identity, the agent, then the default identities.
// Unreadable or encrypted keys are skipped.
func AuthMethods(keyPath string) []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if keyPath != "" {
		if am, err := PubKeyAuth(keyPath); err == nil {
			methods = append(methods, am)
		}
	}
	if am, err := AgentAuth(); err == nil {
		methods = append(methods, am)
	}
	for _, kp := range DefaultKeyPaths() {
		if kp == keyPath {
			continue
		}
		if am, err := PubKeyAuth(kp); err == nil {
			methods = append(methods, am)
		}
	}
	return methods
}
