package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultOrg, cfg.Org)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)
	assert.Empty(t, cfg.Source.BaseURL)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
org = "acme"

[source]
base_url = "https://compliance.example.com"
requests_per_second = 5.0

[openai]
embedding_model = "text-embedding-3-large"

[sync]
page_size = 100

[http]
addr = "0.0.0.0:9000"
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Org)
	assert.Equal(t, "https://compliance.example.com", cfg.Source.BaseURL)
	assert.Equal(t, 5.0, cfg.Source.RequestsPerSecond)
	assert.Equal(t, "text-embedding-3-large", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 100, cfg.Sync.PageSize)
	assert.Equal(t, "0.0.0.0:9000", cfg.HTTP.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
org = "acme"

[openai]
api_key = "file-key"
`), 0600))

	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("KB_ORG", "globex")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "globex", cfg.Org)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("org = [unclosed"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}
