// Package config loads the daemon configuration and persists host-side
// preferences between runs.
package config

import "github.com/micro-nova/audioconfig-go/internal/models"

// Store is the interface for persisting preferences.
type Store interface {
	// Load loads the preferences. Returns DefaultPreferences if no file exists.
	Load() (*models.Preferences, error)

	// Save persists the preferences. Implementations may debounce rapid saves.
	Save(p *models.Preferences) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending preferences.
	Flush() error
}
