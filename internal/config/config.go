// Package config loads the engine configuration from a TOML file with
// environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied when the config file omits a value.
const (
	DefaultOrg      = "default"
	DefaultHTTPAddr = "127.0.0.1:8470"
)

// Config is the engine's typed configuration.
type Config struct {
	// Org is the organisation all CLI operations act on.
	Org string `toml:"org"`

	// DataDir overrides the default ~/.kbengine/data location.
	DataDir string `toml:"data_dir"`

	Source SourceConfig `toml:"source"`
	OpenAI OpenAIConfig `toml:"openai"`
	Sync   SyncConfig   `toml:"sync"`
	HTTP   HTTPConfig   `toml:"http"`
}

// SourceConfig points at the compliance system's record API.
type SourceConfig struct {
	// BaseURL is the root of the source API.
	BaseURL string `toml:"base_url"`

	// Token authenticates requests, sent as a bearer token. Usually set via
	// the KB_SOURCE_TOKEN environment variable rather than the file.
	Token string `toml:"token"`

	// RequestsPerSecond throttles source API calls.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// OpenAIConfig configures the embedding and chat providers.
type OpenAIConfig struct {
	// APIKey is usually set via the OPENAI_API_KEY environment variable
	// rather than the file.
	APIKey string `toml:"api_key"`

	// BaseURL can point at Azure OpenAI or a compatible inference server.
	BaseURL string `toml:"base_url"`

	// EmbeddingModel defaults to text-embedding-3-small.
	EmbeddingModel string `toml:"embedding_model"`

	// ChatModel defaults to gpt-4o-mini.
	ChatModel string `toml:"chat_model"`
}

// SyncConfig tunes ingestion runs. Zero values fall back to the service
// defaults (30s cooldown, 500-record pages, 2s pause).
type SyncConfig struct {
	CooldownSeconds  int `toml:"cooldown_seconds"`
	PageSize         int `toml:"page_size"`
	PagePauseSeconds int `toml:"page_pause_seconds"`
}

// HTTPConfig configures the JSON API server.
type HTTPConfig struct {
	// Addr is the listen address for the serve command.
	Addr string `toml:"addr"`
}

// DefaultPath returns the default config file location,
// ~/.kbengine/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".kbengine", "config.toml"), nil
}

// Load reads the config file at path, applies defaults and environment
// overrides. A missing file is not an error: defaults plus environment
// variables form a complete configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Org: DefaultOrg,
		HTTP: HTTPConfig{
			Addr: DefaultHTTPAddr,
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through to environment overrides.
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables onto the loaded file. Secrets are
// expected to arrive this way so they stay out of config files.
func (c *Config) applyEnv() {
	if v := os.Getenv("KB_ORG"); v != "" {
		c.Org = v
	}
	if v := os.Getenv("KB_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("KB_SOURCE_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv("KB_SOURCE_TOKEN"); v != "" {
		c.Source.Token = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.OpenAI.BaseURL = v
	}
	if v := os.Getenv("KB_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("KB_SYNC_COOLDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sync.CooldownSeconds = n
		}
	}
}
