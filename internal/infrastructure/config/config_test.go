package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeWorldName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Northern Realms", "northern_realms"},
		{"my-world", "my_world"},
		{"  Weird!!Name  ", "weirdname"},
		{"a__b___c", "a_b_c"},
		{"___", "default"},
		{"", "default"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeWorldName(tt.in), "input %q", tt.in)
	}
}

func TestGenerateCollectionName(t *testing.T) {
	assert.Equal(t, "canon_northern_realms", GenerateCollectionName("Northern Realms"))
}

func TestLoadMissingConfig(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canon init")
}

func TestLoadOverlaysDefaults(t *testing.T) {
	base := t.TempDir()
	dir := ConfigDir(base)
	require.NoError(t, os.MkdirAll(dir, 0755))

	doc := `llm:
  model: gpt-4o
consistency:
  related_limit: 4
  semantic_enabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(doc), 0600))

	cfg, err := Load(base)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 4, cfg.Consistency.RelatedLimit)
	assert.True(t, cfg.Consistency.SemanticEnabled)

	// Untouched sections keep their defaults.
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 30, cfg.Consistency.SemanticTimeoutSeconds)
}

func TestEnvOverridesFillEmptyKeys(t *testing.T) {
	base := t.TempDir()
	dir := ConfigDir(base)
	require.NoError(t, os.MkdirAll(dir, 0755))
	doc := `llm:
  api_key: from-file
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(doc), 0600))

	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("QDRANT_API_KEY", "qdrant-env")

	cfg, err := Load(base)
	require.NoError(t, err)
	// File wins when set; env fills the gaps.
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, "from-env", cfg.Embedder.APIKey)
	assert.Equal(t, "qdrant-env", cfg.Qdrant.APIKey)
}

func TestWorldsRoundTrip(t *testing.T) {
	base := t.TempDir()

	worlds, err := LoadWorlds(base)
	require.NoError(t, err)
	assert.Empty(t, worlds.Worlds)

	added := worlds.Add("Midgard Prime", "the first draft")
	assert.Equal(t, "canon_midgard_prime", added.Collection)
	worlds.Add("asgard", "")
	require.NoError(t, worlds.Save(base))

	loaded, err := LoadWorlds(base)
	require.NoError(t, err)
	require.True(t, loaded.Exists("Midgard Prime"))
	assert.Equal(t, []string{"Midgard Prime", "asgard"}, loaded.Names())

	entry, err := loaded.Get("Midgard Prime")
	require.NoError(t, err)
	assert.Equal(t, "canon_midgard_prime", entry.Collection)

	_, err = loaded.Get("vanaheim")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asgard")

	loaded.Remove("asgard")
	assert.False(t, loaded.Exists("asgard"))
}

func TestWorldPaths(t *testing.T) {
	base := "/tmp/base"
	assert.Equal(t, "/tmp/base/.canon/worlds/midgard/entities", EntitiesDir(base, "Midgard"))
	assert.Equal(t, "/tmp/base/.canon/worlds/midgard/events.jsonl", EventLogPath(base, "Midgard"))
	assert.Equal(t, "/tmp/base/.canon/worlds/midgard/index.db", SearchIndexPath(base, "Midgard"))
}
