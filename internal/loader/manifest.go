package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 1

	// ManifestFilename is the default manifest filename
	ManifestFilename = "manifest.json"
)

// Manifest stores the most recent indexing run of every index.
type Manifest struct {
	Version int                  `json:"version"`
	Runs    map[string]RunRecord `json:"runs"`
	mu      sync.RWMutex         `json:"-"`
}

// RunRecord describes one indexing run.
type RunRecord struct {
	ID         string    `json:"id"`
	BuildRoot  string    `json:"build_root"`
	Update     bool      `json:"update"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Found      int       `json:"found"`
	Indexed    int       `json:"indexed"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewManifest creates a new empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Runs:    make(map[string]RunRecord),
	}
}

// LoadManifest reads a manifest from disk, or creates a new one if it doesn't exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if manifest.Runs == nil {
		manifest.Runs = make(map[string]RunRecord)
	}

	return &manifest, nil
}

// Save writes the manifest to disk atomically.
// Uses write-to-temp + rename pattern to prevent corruption.
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}

	return nil
}

// LastRun returns the most recent run of an index.
func (m *Manifest) LastRun(index string) (RunRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.Runs[index]
	return run, ok
}

// SetLastRun records the most recent run of an index.
func (m *Manifest) SetLastRun(index string, run RunRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs[index] = run
}

// RunsWithErrors returns the error of every index whose last run failed.
func (m *Manifest) RunsWithErrors() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string)
	for index, run := range m.Runs {
		if run.Error != "" {
			result[index] = run.Error
		}
	}
	return result
}
