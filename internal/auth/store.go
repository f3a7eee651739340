package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Credentials is the access/refresh pair issued by the auth collaborator.
type Credentials struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (c Credentials) Empty() bool {
	return c.Access == "" && c.Refresh == ""
}

// Store persists the credential pair between console invocations.
// It is the only owner of the pair; the Guard mutates it on refresh,
// logout and proven invalidity.
type Store struct {
	path string

	mu     sync.Mutex
	cur    Credentials
	loaded bool
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Get returns the current pair, loading the cache file on first use.
// A missing or unreadable file yields empty credentials.
func (s *Store) Get() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.cur
}

// Set replaces the pair in memory and on disk.
func (s *Store) Set(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = c
	s.loaded = true

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// Clear wipes the pair in memory and removes the cache file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = Credentials{}
	s.loaded = true

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true

	b, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return
	}
	s.cur = c
}
