package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DOCFORGE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "exact", cfg.Validation.HeadingMatch)
	assert.Equal(t, 500, cfg.Quality.MinLength)
	assert.Equal(t, 5, cfg.Quality.MinHeadings)
	assert.Equal(t, 100, cfg.Quality.MinSectionChars)
	assert.Equal(t, float64(3), cfg.Quality.MinReviewScore)
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
llm:
  provider: openai
  model: gpt-4o-mini
  timeout: 45s
validation:
  heading_match: contains
storage:
  path: /tmp/x.db
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	t.Setenv("DOCFORGE_MODEL", "gpt-4.1")
	t.Setenv("DOCFORGE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "contains", cfg.Validation.HeadingMatch)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.Path)
	// untouched sections keep defaults
	assert.Equal(t, 500, cfg.Quality.MinLength)
}

func TestLoadConfig_RejectsUnknownHeadingMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validation:\n  heading_match: fuzzy\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heading_match")
}
