// Package session provides single-session credential storage for rinactl,
// the Go analogue of dittofs's internal/cli/credentials reduced to one
// server connection: a RINA control device has exactly one operator
// session, not dittofs's named multi-tenant contexts.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultConfigDir is the default directory for rinactl configuration.
	DefaultConfigDir = "rinactl"
	// ConfigFileName is the name of the session file.
	ConfigFileName = "session.json"
	// FilePermissions for the session file (read/write for owner only).
	FilePermissions = 0600
	// DirPermissions for the session directory.
	DirPermissions = 0700
)

// ErrNotLoggedIn indicates no valid session exists.
var ErrNotLoggedIn = errors.New("not logged in - run 'rinactl login' first")

// Session holds the server URL and token rinactl authenticates with.
type Session struct {
	ServerURL string    `json:"server_url"`
	Subject   string    `json:"subject,omitempty"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsExpired returns true if the token has expired or is within 60 seconds
// of expiring.
func (s *Session) IsExpired() bool {
	if s.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Add(60 * time.Second).After(s.ExpiresAt)
}

// Store persists a Session to disk.
type Store struct {
	path    string
	session *Session
}

// NewStore loads (or initializes) the on-disk session store.
func NewStore() (*Store, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	store := &Store{path: path, session: &Session{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if err := json.Unmarshal(data, store.session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return store, nil
}

func configPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, DefaultConfigDir, ConfigFileName), nil
}

// Get returns the current session, or ErrNotLoggedIn if there is none.
func (s *Store) Get() (*Session, error) {
	if s.session.ServerURL == "" || s.session.Token == "" {
		return nil, ErrNotLoggedIn
	}
	return s.session, nil
}

// Set saves sess as the current session.
func (s *Store) Set(sess *Session) error {
	s.session = sess
	return s.save()
}

// Clear removes the stored token, leaving the server URL intact.
func (s *Store) Clear() error {
	s.session.Token = ""
	s.session.ExpiresAt = time.Time{}
	return s.save()
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), DirPermissions); err != nil {
		return fmt.Errorf("cannot create session directory: %w", err)
	}
	data, err := json.MarshalIndent(s.session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, FilePermissions)
}

// ConfigPath returns the path to the session file.
func (s *Store) ConfigPath() string {
	return s.path
}
