package config

import (
	"sync"

	"github.com/micro-nova/audioconfig-go/internal/models"
)

// MemStore is an in-memory Store for tests that never writes to disk.
type MemStore struct {
	mu    sync.Mutex
	prefs *models.Preferences
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load returns a copy of the stored preferences, or DefaultPreferences if
// none have been saved yet.
func (m *MemStore) Load() (*models.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		def := models.DefaultPreferences()
		return &def, nil
	}
	cp := m.prefs.DeepCopy()
	return &cp, nil
}

// Save stores a deep copy of p in memory.
func (m *MemStore) Save(p *models.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p.DeepCopy()
	m.prefs = &cp
	return nil
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

// Flush is a no-op for in-memory stores.
func (m *MemStore) Flush() error { return nil }

var _ Store = (*MemStore)(nil)
