package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/micro-nova/audioconfig-go/internal/models"
)

const (
	prefsFileName = "preferences.json"
	debounceDelay = 500 * time.Millisecond
)

// JSONStore is an atomic JSON file store with debounced writes.
type JSONStore struct {
	mu      sync.Mutex
	path    string
	timer   *time.Timer
	pending *models.Preferences
}

// NewJSONStore creates a store in the given state directory.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{path: filepath.Join(dir, prefsFileName)}
}

// Path returns the file path used by this store.
func (s *JSONStore) Path() string { return s.path }

// Load reads the preferences from disk. Returns DefaultPreferences on ENOENT
// or parse errors.
func (s *JSONStore) Load() (*models.Preferences, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			def := models.DefaultPreferences()
			return &def, nil
		}
		return nil, err
	}

	var p models.Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("config: corrupt preferences, using defaults", "path", s.path, "err", err)
		def := models.DefaultPreferences()
		return &def, nil
	}
	p.Normalize()
	return &p, nil
}

// Save schedules a debounced write. The file is written after debounceDelay
// without further Save calls.
func (s *JSONStore) Save(p *models.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := p.DeepCopy()
	s.pending = &cp

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceDelay, func() {
		s.mu.Lock()
		pending := s.pending
		s.mu.Unlock()
		if pending != nil {
			if err := s.writeAtomic(pending); err != nil {
				slog.Error("config: failed to write preferences", "path", s.path, "err", err)
			}
		}
	})
	return nil
}

// Flush forces an immediate write of any pending preferences.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.pending
	s.mu.Unlock()
	if pending == nil {
		return nil
	}
	return s.writeAtomic(pending)
}

func (s *JSONStore) writeAtomic(p *models.Preferences) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	// Write to temp file, then rename (atomic on Linux)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

var _ Store = (*JSONStore)(nil)
