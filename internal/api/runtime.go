package api

import (
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/aitorress/delve-taxonomy/internal/config"
	"github.com/aitorress/delve-taxonomy/internal/infrastructure"
	"github.com/aitorress/delve-taxonomy/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Agent      gaconfig.AgentConfig
	Embeddings config.EmbeddingsConfig
	Pipeline   config.PipelineConfig
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
		},
		Agent:      cfg.Agent.Resolved(),
		Embeddings: cfg.Embeddings,
		Pipeline:   cfg.Pipeline,
		Pagination: cfg.API.Pagination,
	}
}
