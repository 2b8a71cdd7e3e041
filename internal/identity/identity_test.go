package identity_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/micro-nova/audioconfig-go/internal/identity"
)

func TestVersion(t *testing.T) {
	tests := []struct {
		name     string
		contents string // empty means no file
		want     string
	}{
		{"missing", "", identity.DefaultVersion},
		{"from file", `{"version":"1.4.2"}`, "1.4.2"},
		{"invalid json", "not json", identity.DefaultVersion},
		{"empty version", `{"version":""}`, identity.DefaultVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.contents != "" {
				if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(tt.contents), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if got := identity.Version(dir); got != tt.want {
				t.Errorf("Version() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInstanceName(t *testing.T) {
	if got := identity.InstanceName("studio-a"); got != "studio-a" {
		t.Errorf("InstanceName(%q) = %q", "studio-a", got)
	}
	if got := identity.InstanceName(""); got == "" {
		t.Error("InstanceName(\"\") returned empty name")
	}
}

func TestHostname(t *testing.T) {
	if got := identity.Hostname("fallback"); got == "" {
		t.Error("Hostname() returned empty name")
	}
}
