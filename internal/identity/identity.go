// Package identity resolves the name and version the service reports about
// itself.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DefaultVersion is reported when no release metadata is installed.
const DefaultVersion = "0.1.0-dev"

const metadataFile = "metadata.json"

// Hostname returns the system hostname, or fallback if it cannot be read.
func Hostname(fallback string) string {
	h, err := os.Hostname()
	if err != nil || strings.TrimSpace(h) == "" {
		return fallback
	}
	return h
}

// InstanceName returns the mDNS instance name. A configured name wins;
// otherwise the hostname is used.
func InstanceName(configured string) string {
	if configured != "" {
		return configured
	}
	return Hostname("audioconfig")
}

// Version reads the release version from metadata.json in stateDir.
// Falls back to DefaultVersion if the file is missing or unreadable.
func Version(stateDir string) string {
	data, err := os.ReadFile(filepath.Join(stateDir, metadataFile))
	if err != nil {
		return DefaultVersion
	}

	var meta struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta.Version == "" {
		return DefaultVersion
	}
	return meta.Version
}
