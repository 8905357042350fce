package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvDatabaseURL, EnvEmbeddingEndpoint, EnvEmbeddingModel, EnvEmbeddingAPIKey} {
		t.Setenv(key, "")
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"tilde only", "~", home},
		{"tilde slash", "~/foo/bar", filepath.Join(home, "foo", "bar")},
		{"absolute", "/tmp/foo", "/tmp/foo"},
		{"relative", "foo/bar", "foo/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: postgres
  dsn: postgres://user:secret@db:5432/ledger
  table: trans_agent
embedding:
  endpoint: http://gpu:8000/v1/embeddings
  model: bge-m3
  dimensions: 1024
  timeout: 10s
server:
  transport: http
  addr: ":9000"
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 1024, cfg.Embedding.Dimensions)
	assert.Equal(t, 10*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, 1, cfg.Embedding.MaxAttempts, "unset fields keep defaults")
	assert.Equal(t, 4, cfg.Ingest.Workers)

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://gpu:8000/v1", aiCfg.EmbeddingHost)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unterminated"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://u:p@host/db")
	t.Setenv(EnvEmbeddingEndpoint, "http://embed:8000/v1/embeddings")
	t.Setenv(EnvEmbeddingModel, "m3")
	t.Setenv(EnvEmbeddingAPIKey, "key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://u:p@host/db", cfg.Store.DSN)
	assert.Equal(t, "http://embed:8000/v1/embeddings", cfg.Embedding.Endpoint)
	assert.Equal(t, "m3", cfg.Embedding.Model)
	assert.Equal(t, "key", cfg.Embedding.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }},
		{"badger without path", func(c *Config) { c.Store.Path = "" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"no workers", func(c *Config) { c.Ingest.Workers = 0 }},
		{"no model", func(c *Config) { c.Embedding.Model = "" }},
		{"zero timeout", func(c *Config) { c.Embedding.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Embedding.Model = "text-embedding-3-small"
	cfg.Ingest.RetryDelay = 250 * time.Millisecond
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
