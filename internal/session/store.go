// Package session owns the locally persisted credentials of the signed-in
// user and the in-process event bus other components subscribe to.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"homescout/internal/model"
)

// Storage keys, kept stable because older installs already carry them.
const (
	KeyAccessToken = "accessToken"
	KeyCurrentUser = "currentUser"
)

// Store is a small key-value store persisted as a single JSON file.
// It holds exactly two entries: the bearer token and the cached profile.
// All methods are safe for concurrent use.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

// NewStore creates a store persisted at dir/session.json.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "session.json")}
}

func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	s.values = make(map[string]string)
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		// A corrupt session file degrades to "not signed in".
		s.values = make(map[string]string)
	}
	return nil
}

func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Token returns the stored bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return ""
	}
	return s.values[KeyAccessToken]
}

// SetToken persists a new bearer token.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.values[KeyAccessToken] = token
	return s.flush()
}

// User returns the cached profile, or nil when none is stored.
func (s *Store) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil
	}
	raw, ok := s.values[KeyCurrentUser]
	if !ok || raw == "" {
		return nil
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

// SetUser caches the signed-in profile.
func (s *Store) SetUser(u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	s.values[KeyCurrentUser] = string(raw)
	return s.flush()
}

// Clear removes the token and cached profile. Used on logout and when a
// refresh fails terminally.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	delete(s.values, KeyAccessToken)
	delete(s.values, KeyCurrentUser)
	return s.flush()
}
