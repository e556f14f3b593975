package config

import (
	"fmt"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentProviderName = "DELVE_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "DELVE_AGENT_BASE_URL"
	EnvAgentToken        = "DELVE_AGENT_TOKEN"
	EnvAgentDeployment   = "DELVE_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "DELVE_AGENT_API_VERSION"
	EnvAgentAuthType     = "DELVE_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "DELVE_AGENT_MODEL_NAME"
)

// AgentConfig mirrors the go-agents agent configuration with TOML field
// names. Finalize resolves it against go-agents defaults and environment
// overrides; Resolved returns the effective go-agents config afterwards.
type AgentConfig struct {
	Name     string              `toml:"name"`
	Provider AgentProviderConfig `toml:"provider"`
	Model    AgentModelConfig    `toml:"model"`

	resolved gaconfig.AgentConfig
}

// AgentProviderConfig holds the LLM provider connection settings.
type AgentProviderConfig struct {
	Name    string         `toml:"name"`
	BaseURL string         `toml:"base_url"`
	Options map[string]any `toml:"options"`
}

// AgentModelConfig identifies the chat model.
type AgentModelConfig struct {
	Name string `toml:"name"`
}

// Merge overwrites non-zero fields from overlay.
func (c *AgentConfig) Merge(overlay *AgentConfig) {
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.Provider.Name != "" {
		c.Provider.Name = overlay.Provider.Name
	}
	if overlay.Provider.BaseURL != "" {
		c.Provider.BaseURL = overlay.Provider.BaseURL
	}
	for k, v := range overlay.Provider.Options {
		if c.Provider.Options == nil {
			c.Provider.Options = make(map[string]any)
		}
		c.Provider.Options[k] = v
	}
	if overlay.Model.Name != "" {
		c.Model.Name = overlay.Model.Name
	}
}

// Finalize applies the three-phase finalize pattern to the agent section:
// defaults from go-agents DefaultAgentConfig, environment variable overrides,
// and validation.
func (c *AgentConfig) Finalize() error {
	resolved := c.build()

	loadAgentDefaults(&resolved)
	loadAgentEnv(&resolved)

	if err := validateAgent(&resolved); err != nil {
		return err
	}

	c.resolved = resolved
	return nil
}

// Resolved returns the effective go-agents configuration. Valid only after
// Finalize.
func (c *AgentConfig) Resolved() gaconfig.AgentConfig {
	return c.resolved
}

func (c *AgentConfig) build() gaconfig.AgentConfig {
	cfg := gaconfig.AgentConfig{Name: c.Name}

	if c.Provider.Name != "" || c.Provider.BaseURL != "" || len(c.Provider.Options) > 0 {
		cfg.Provider = &gaconfig.ProviderConfig{
			Name:    c.Provider.Name,
			BaseURL: c.Provider.BaseURL,
			Options: c.Provider.Options,
		}
	}

	if c.Model.Name != "" {
		cfg.Model = &gaconfig.ModelConfig{Name: c.Model.Name}
	}

	return cfg
}

func loadAgentDefaults(c *gaconfig.AgentConfig) {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}

	setOption := func(envVar, key string) {
		if v := os.Getenv(envVar); v != "" {
			c.Provider.Options[key] = v
		}
	}

	setOption(EnvAgentToken, "token")
	setOption(EnvAgentDeployment, "deployment")
	setOption(EnvAgentAPIVersion, "api_version")
	setOption(EnvAgentAuthType, "auth_type")
}

func validateAgent(c *gaconfig.AgentConfig) error {
	if c.Name == "" {
		return fmt.Errorf("name required")
	}
	if c.Provider == nil {
		return fmt.Errorf("provider required")
	}
	if c.Provider.Name == "" {
		return fmt.Errorf("provider name required")
	}
	if c.Model == nil {
		return fmt.Errorf("model required")
	}
	return nil
}
