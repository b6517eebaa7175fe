// Package project identifies the project the engine runs against. The
// identity feeds ledger events so resolutions from different projects
// stay separable.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// ManifestName is the manifest file inside the state directory.
const ManifestName = "project.toml"

// Manifest describes one project.
type Manifest struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Load reads the manifest from <stateDir>/project.toml. When the file
// is missing, a manifest is generated (name from the project root's
// basename, fresh uuid) and persisted so the id stays stable across
// runs.
func Load(projectRoot, stateDir string) (*Manifest, error) {
	path := filepath.Join(stateDir, ManifestName)

	data, err := os.ReadFile(path)
	if err == nil {
		var m Manifest
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse project manifest: %w", err)
		}
		if m.ID == "" {
			return nil, fmt.Errorf("project manifest %s has no id", path)
		}
		return &m, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read project manifest: %w", err)
	}

	m := &Manifest{
		ID:   uuid.NewString(),
		Name: filepath.Base(projectRoot),
	}
	if err := m.save(path); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode project manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write project manifest: %w", err)
	}
	return nil
}
