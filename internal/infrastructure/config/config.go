// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for canon configuration.
	DefaultConfigDir = ".canon"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultWorldsFile is the default worlds file name.
	DefaultWorldsFile = "worlds.yaml"
	// DefaultSchemasDir is the directory holding per-type schema documents.
	DefaultSchemasDir = "schemas"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	LLM         LLMConfig         `yaml:"llm,omitempty"`
	Embedder    EmbedderConfig    `yaml:"embedder,omitempty"`
	Qdrant      QdrantConfig      `yaml:"qdrant,omitempty"`
	Consistency ConsistencyConfig `yaml:"consistency,omitempty"`
}

// LLMConfig holds configuration for the semantic-check collaborator.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant claim mirror.
type QdrantConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// ConsistencyConfig tunes the consistency engine.
type ConsistencyConfig struct {
	// RelatedLimit caps how many related claims are handed to the semantic
	// collaborator per check.
	RelatedLimit int `yaml:"related_limit,omitempty"`
	// SemanticTimeoutSeconds bounds the stage-3 call.
	SemanticTimeoutSeconds int `yaml:"semantic_timeout_seconds,omitempty"`
	// SemanticEnabled turns the stage-3 call on. When off, checks report
	// the stage as skipped.
	SemanticEnabled bool `yaml:"semantic_enabled,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Consistency: ConsistencyConfig{
			RelatedLimit:           12,
			SemanticTimeoutSeconds: 30,
		},
	}
}

// Load loads configuration from the .canon directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'canon init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		if c.Qdrant.APIKey == "" {
			c.Qdrant.APIKey = key
		}
	}
}

// ConfigDir returns the path to the .canon config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// SchemasDir returns the path to the schema documents directory.
func SchemasDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultSchemasDir)
}

// WorldsFilePath returns the path to the worlds file.
func WorldsFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultWorldsFile)
}

// Exists checks if a canon config exists in the given path.
func Exists(basePath string) bool {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
	_, err := os.Stat(configFile)
	return err == nil
}

// SanitizeWorldName converts a world name to a valid directory/collection suffix.
func SanitizeWorldName(name string) string {
	name = strings.ToLower(name)

	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	name = reNonAlphanumeric.ReplaceAllString(name, "")
	name = reMultipleUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}

// GenerateCollectionName creates a claim-mirror collection name for a world.
func GenerateCollectionName(worldName string) string {
	return "canon_" + SanitizeWorldName(worldName)
}

// WorldDir returns the data directory for a given world.
func WorldDir(basePath, worldName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "worlds", SanitizeWorldName(worldName))
}

// EntitiesDir returns the entity record directory for a world.
func EntitiesDir(basePath, worldName string) string {
	return filepath.Join(WorldDir(basePath, worldName), "entities")
}

// SnapshotsDir returns the revision snapshot directory for a world.
func SnapshotsDir(basePath, worldName string) string {
	return filepath.Join(WorldDir(basePath, worldName), "snapshots")
}

// EventLogPath returns the event log file for a world.
func EventLogPath(basePath, worldName string) string {
	return filepath.Join(WorldDir(basePath, worldName), "events.jsonl")
}

// SearchIndexPath returns the derived index database file for a world.
func SearchIndexPath(basePath, worldName string) string {
	return filepath.Join(WorldDir(basePath, worldName), "index.db")
}
