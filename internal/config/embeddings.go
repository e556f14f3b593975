package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EnvEmbeddingsBaseURL = "DELVE_EMBEDDINGS_BASE_URL"
	EnvEmbeddingsToken   = "DELVE_EMBEDDINGS_TOKEN"
	EnvEmbeddingsModel   = "DELVE_EMBEDDINGS_MODEL"
	EnvEmbeddingsTimeout = "DELVE_EMBEDDINGS_TIMEOUT"
)

// EmbeddingsConfig holds the OpenAI-compatible embeddings endpoint settings
// used for classifier training.
type EmbeddingsConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *EmbeddingsConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EmbeddingsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EmbeddingsConfig) Merge(overlay *EmbeddingsConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *EmbeddingsConfig) loadDefaults() {
	if c.Model == "" {
		c.Model = "text-embedding-3-large"
	}
	if c.Timeout == "" {
		c.Timeout = "2m"
	}
}

func (c *EmbeddingsConfig) loadEnv() {
	if v := os.Getenv(EnvEmbeddingsBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvEmbeddingsToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvEmbeddingsModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvEmbeddingsTimeout); v != "" {
		c.Timeout = v
	}
}

func (c *EmbeddingsConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
