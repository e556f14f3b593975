package api

import (
	"github.com/aitorress/delve-taxonomy/internal/llm"
	"github.com/aitorress/delve-taxonomy/internal/prompts"
	"github.com/aitorress/delve-taxonomy/internal/runs"
	"github.com/aitorress/delve-taxonomy/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Runs    runs.System
	Prompts prompts.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	promptsSystem := prompts.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	workflowRuntime := &workflow.Runtime{
		Agent: llm.NewChatAgent(runtime.Agent),
		Embedder: llm.NewEmbeddingsClient(
			runtime.Embeddings.BaseURL,
			runtime.Embeddings.Token,
			runtime.Embeddings.TimeoutDuration(),
		),
		Prompts: promptsSystem,
		Logger:  runtime.Logger.With("workflow", "taxonomy"),
	}

	runsSystem := runs.New(
		runtime.Database.Connection(),
		workflowRuntime,
		runtime.Agent,
		runtime.Pipeline,
		runtime.Embeddings.Model,
		runtime.Lifecycle,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Runs:    runsSystem,
		Prompts: promptsSystem,
	}
}
