package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// WorldsConfig is the registry of canon worlds. Each world owns its own
// entity records, snapshots, event log and mirrors under its data
// directory; this registry only maps names to their claim-mirror
// collections.
type WorldsConfig struct {
	Worlds map[string]WorldEntry `yaml:"worlds,omitempty"`
}

// WorldEntry describes one registered world.
type WorldEntry struct {
	Collection  string `yaml:"collection"`
	Description string `yaml:"description,omitempty"`
}

// LoadWorlds reads the worlds registry. A missing file is an empty
// registry, not an error; worlds may not have been created yet.
func LoadWorlds(basePath string) (*WorldsConfig, error) {
	data, err := os.ReadFile(WorldsFilePath(basePath))
	if os.IsNotExist(err) {
		return &WorldsConfig{Worlds: make(map[string]WorldEntry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading worlds file: %w", err)
	}

	var cfg WorldsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing worlds file: %w", err)
	}
	if cfg.Worlds == nil {
		cfg.Worlds = make(map[string]WorldEntry)
	}
	return &cfg, nil
}

// Save writes the registry back to the worlds file.
func (w *WorldsConfig) Save(basePath string) error {
	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshaling worlds config: %w", err)
	}
	if err := os.WriteFile(WorldsFilePath(basePath), data, 0600); err != nil {
		return fmt.Errorf("writing worlds file: %w", err)
	}
	return nil
}

// Add registers a world, deriving its claim-mirror collection name from
// the world name, and returns the entry.
func (w *WorldsConfig) Add(name, description string) WorldEntry {
	if w.Worlds == nil {
		w.Worlds = make(map[string]WorldEntry)
	}
	entry := WorldEntry{
		Collection:  GenerateCollectionName(name),
		Description: description,
	}
	w.Worlds[name] = entry
	return entry
}

// Remove unregisters a world. The world's data directory is the caller's
// problem.
func (w *WorldsConfig) Remove(name string) {
	delete(w.Worlds, name)
}

// Names returns all registered world names, sorted.
func (w *WorldsConfig) Names() []string {
	names := make([]string, 0, len(w.Worlds))
	for name := range w.Worlds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the entry for a world. The error for an unknown world lists
// what is registered, since a typo here is the most common failure.
func (w *WorldsConfig) Get(name string) (*WorldEntry, error) {
	if len(w.Worlds) == 0 {
		return nil, errors.New("no worlds configured")
	}
	entry, ok := w.Worlds[name]
	if !ok {
		return nil, fmt.Errorf("world %q not found (available: %s)", name, strings.Join(w.Names(), ", "))
	}
	return &entry, nil
}

// GetCollection returns the claim-mirror collection name for a world.
func (w *WorldsConfig) GetCollection(name string) (string, error) {
	entry, err := w.Get(name)
	if err != nil {
		return "", err
	}
	return entry.Collection, nil
}

// Exists checks if a world is registered.
func (w *WorldsConfig) Exists(name string) bool {
	_, ok := w.Worlds[name]
	return ok
}
