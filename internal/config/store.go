package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// DefaultPath is ~/.config/rex/config.json.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rex", "config.json")
}

// Store reads and writes one config file. Writers in other processes are
// kept out by a lock file next to it.
type Store struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewStore returns a store for path, or for DefaultPath when path is empty.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path is the config file location.
func (s *Store) Path() string { return s.path }

// Load reads the config. A missing or unparsable file yields defaults.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("[Config] ignoring unreadable %s: %v", s.path, err)
		return &Config{}, nil
	}
	return &cfg, nil
}

// Save writes cfg.
func (s *Store) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lockFile(); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.write(cfg)
}

// Update applies fn to the config on disk under the lock, so concurrent
// sessions do not lose each other's changes.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lockFile(); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	cfg, err := s.Load()
	if err != nil {
		return err
	}
	fn(cfg)
	return s.write(cfg)
}

func (s *Store) lockFile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock config: %w", err)
	}
	FixOwnership(s.lock.Path())
	return nil
}

func (s *Store) write(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	FixOwnership(s.path)
	return nil
}

// Load reads the config from the default location.
func Load() (*Config, error) {
	return NewStore("").Load()
}

// Save writes the config to the default location.
func Save(cfg *Config) error {
	return NewStore("").Save(cfg)
}
