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


package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the embedding service.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Either a base URL ("http://localhost:8000/v1") or the full endpoint
	// ("http://localhost:8000/v1/embeddings") is accepted.
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Queries and the stored corpus must be embedded with the same model.
	// Example: "bge-m3", "text-embedding-3-small"
	EmbeddingModel string

	// APIKey is sent as the bearer token. Local OpenAI-compatible servers
	// accept any value.
	APIKey string

	// Dimensions is the vector length the model produces. Responses of any
	// other length are rejected.
	// Default: 768
	Dimensions int

	// Timeout bounds a single embedding request.
	// Default: 30s
	Timeout time.Duration

	// MaxAttempts is the number of tries per request, including the first.
	// Default: 1 (no retries)
	MaxAttempts int

	// RetryDelay is the base backoff between attempts. It doubles on each retry.
	// Default: 500ms
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIKey sets the bearer token sent to the embedding service.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimensions sets the expected embedding dimension.
func WithDimensions(d int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = d
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRetry enables retries: up to attempts tries with exponential backoff from delay.
func WithRetry(attempts int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = attempts
		c.RetryDelay = delay
	}
}

// DefaultConfig returns a Config with sensible defaults for a local OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  "http://localhost:8000/v1",
		EmbeddingModel: "bge-m3",
		APIKey:         "none",
		Dimensions:     768,
		Timeout:        30 * time.Second,
		MaxAttempts:    1,
		RetryDelay:     500 * time.Millisecond,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEmbeddingHost("http://gpu-box:8000/v1/embeddings"),
//	    WithEmbeddingModel("bge-m3"),
//	    WithDimensions(1024),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// The host loses any trailing slash or /embeddings path and gains the /v1
// suffix required by most OpenAI-compatible APIs (vLLM, Ollama, LocalAI).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" {
		host := strings.TrimSuffix(c.EmbeddingHost, "/")
		host = strings.TrimSuffix(host, "/embeddings")
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
		c.EmbeddingHost = host
	}
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Dimensions < 1 {
		return errors.New("ai config: Dimensions must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return errors.New("ai config: RetryDelay must not be negative")
	}
	return nil
}
