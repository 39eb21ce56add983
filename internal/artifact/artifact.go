/*
Package artifact keeps track of the APK files produced during a release.
*/
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Artifact is one built APK ready to be uploaded. It is not modified once
// the builder has returned it.
type Artifact struct {
	// Variant that produced the file
	Variant string `json:"variant"`

	// FileName is the release asset name
	FileName string `json:"file_name"`

	// Path is the local copy in the release directory
	Path string `json:"path"`

	// DownloadURL is where the asset will be downloadable once uploaded
	DownloadURL string `json:"download_url"`

	// Primary is set for the main variant
	Primary bool `json:"primary,omitempty"`

	Size   int64  `json:"size"`
	SHA256 string `json:"sha256,omitempty"`
}

// Manager manages artifacts in insertion order
type Manager struct {
	artifacts []Artifact
	mu        sync.RWMutex
}

// NewManager creates a new artifact manager
func NewManager() *Manager {
	return &Manager{
		artifacts: make([]Artifact, 0),
	}
}

// Add adds an artifact
func (m *Manager) Add(a Artifact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts = append(m.artifacts, a)
}

// All returns all artifacts
func (m *Manager) All() []Artifact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Artifact, len(m.artifacts))
	copy(result, m.artifacts)
	return result
}

// Count returns the number of artifacts
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.artifacts)
}

// Primary returns the artifact of the primary variant, falling back to the
// first artifact when the primary variant was not built.
func (m *Manager) Primary() (Artifact, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.artifacts {
		if a.Primary {
			return a, true
		}
	}
	if len(m.artifacts) > 0 {
		return m.artifacts[0], true
	}
	return Artifact{}, false
}

// Save writes the artifacts to a JSON file
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m.artifacts, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
