// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads pairfinder settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/pairfinder/ai"
)

// Store drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Environment variables that override file settings.
const (
	EnvDatabaseURL       = "DATABASE_URL"
	EnvEmbeddingEndpoint = "EMBEDDING_ENDPOINT"
	EnvEmbeddingModel    = "EMBEDDING_MODEL"
	EnvEmbeddingAPIKey   = "EMBEDDING_API_KEY"
)

// Config stores pairfinder configuration loaded from ~/.config/pairfinder/config.yaml.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// StoreConfig selects and locates the corpus store.
type StoreConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path,omitempty"`
	DSN         string `yaml:"dsn,omitempty"`
	Table       string `yaml:"table,omitempty"`
	AutoMigrate bool   `yaml:"auto_migrate,omitempty"`
}

// EmbeddingConfig points at an OpenAI-compatible embeddings endpoint.
type EmbeddingConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key,omitempty"`
	Dimensions  int           `yaml:"dimensions"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// ServerConfig holds MCP transport settings.
type ServerConfig struct {
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
}

// IngestConfig tunes the import and reembed commands.
type IngestConfig struct {
	Workers     int           `yaml:"workers"`
	BatchSize   int           `yaml:"batch_size"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Store: StoreConfig{
			Driver: DriverBadger,
			Path:   "~/.local/share/pairfinder/db",
			Table:  "trans_agent",
		},
		Embedding: EmbeddingConfig{
			Endpoint:    aiDefaults.EmbeddingHost,
			Model:       aiDefaults.EmbeddingModel,
			Dimensions:  aiDefaults.Dimensions,
			Timeout:     aiDefaults.Timeout,
			MaxAttempts: aiDefaults.MaxAttempts,
			RetryDelay:  aiDefaults.RetryDelay,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      ":8000",
		},
		Ingest: IngestConfig{
			Workers:     4,
			BatchSize:   32,
			MaxAttempts: 3,
			RetryDelay:  time.Second,
		},
	}
}

// GetConfigPath returns the default config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "pairfinder", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Load reads config from path, or from GetConfigPath when path is empty.
// A missing file yields Default. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. DATABASE_URL also
// switches the store to postgres.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Store.Driver = DriverPostgres
		c.Store.DSN = v
	}
	if v := os.Getenv(EnvEmbeddingEndpoint); v != "" {
		c.Embedding.Endpoint = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv(EnvEmbeddingAPIKey); v != "" {
		c.Embedding.APIKey = v
	}
}

// Validate checks the store section and the derived embedding config.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverBadger:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the badger driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Ingest.Workers < 1 || c.Ingest.BatchSize < 1 {
		return errors.New("ingest.workers and ingest.batch_size must be positive")
	}
	return c.AIConfig().Validate()
}

// AIConfig converts the embedding section to an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Endpoint),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithDimensions(c.Embedding.Dimensions),
		ai.WithTimeout(c.Embedding.Timeout),
		ai.WithRetry(c.Embedding.MaxAttempts, c.Embedding.RetryDelay),
	)
}

// Save writes config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
