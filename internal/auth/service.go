// Package auth implements API-key authentication for the HTTP API. Keys are
// read from a JSON file in the state directory and reloaded when it changes.
// With no keys configured every request is allowed.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const keysFileName = "api_keys.json"

// Key scopes.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
)

// Client is one entry of api_keys.json, keyed by client name.
type Client struct {
	Key   string `json:"key"`
	Scope string `json:"scope"` // read or write; empty means write
}

// Service verifies API keys.
type Service struct {
	mu       sync.RWMutex
	stateDir string
	clients  map[string]Client
	watcher  *fsnotify.Watcher
}

// NewService creates a service watching api_keys.json in stateDir.
func NewService(stateDir string) (*Service, error) {
	s := &Service{
		stateDir: stateDir,
		clients:  make(map[string]Client),
	}

	// A missing file means open mode.
	if err := s.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("auth: could not create fsnotify watcher", "err", err)
		return s, nil
	}
	s.watcher = watcher

	keysPath := s.keysPath()
	if err := watcher.Add(filepath.Dir(keysPath)); err != nil {
		slog.Warn("auth: could not watch state dir", "err", err)
	}

	go s.watchLoop(keysPath)
	return s, nil
}

func (s *Service) keysPath() string {
	return filepath.Join(s.stateDir, keysFileName)
}

// Reload re-reads api_keys.json.
func (s *Service) Reload() error {
	data, err := os.ReadFile(s.keysPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.clients = make(map[string]Client)
			s.mu.Unlock()
			return nil
		}
		return err
	}

	var clients map[string]Client
	if err := json.Unmarshal(data, &clients); err != nil {
		return err
	}
	for name, c := range clients {
		switch c.Scope {
		case "", ScopeRead, ScopeWrite:
		default:
			return fmt.Errorf("auth: client %q has unknown scope %q", name, c.Scope)
		}
	}

	s.mu.Lock()
	s.clients = clients
	s.mu.Unlock()
	slog.Debug("auth: reloaded api keys", "count", len(clients))
	return nil
}

// IsOpenMode reports whether no keys are configured.
func (s *Service) IsOpenMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.Key != "" {
			return false
		}
	}
	return true
}

// Lookup returns the client owning key. The comparison is constant-time per
// entry.
func (s *Service) Lookup(key string) (name string, c Client, ok bool) {
	if key == "" {
		return "", Client{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for n, cl := range s.clients {
		if cl.Key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cl.Key)) == 1 {
			return n, cl, true
		}
	}
	return "", Client{}, false
}

// VerifyKey reports whether key belongs to any client.
func (s *Service) VerifyKey(key string) bool {
	_, _, ok := s.Lookup(key)
	return ok
}

// Close stops the file watcher.
func (s *Service) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Service) watchLoop(keysPath string) {
	if s.watcher == nil {
		return
	}
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name == keysPath && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove)) {
				if err := s.Reload(); err != nil {
					slog.Warn("auth: failed to reload api keys", "err", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("auth: watcher error", "err", err)
		}
	}
}
