package workflow

import (
	"context"
	"log/slog"

	"github.com/aitorress/delve-taxonomy/internal/prompts"
)

// Agent is the chat interface the pipeline consumes for every LLM stage.
// Implementations wrap the configured provider client.
type Agent interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// Embedder produces embedding vectors for a batch of inputs in a single
// bulk request.
type Embedder interface {
	EmbedBatch(ctx context.Context, model string, inputs []string) ([][]float64, error)
}

// PromptSource resolves the effective instruction and specification text for
// a pipeline stage. Satisfied by the prompts domain System.
type PromptSource interface {
	Instructions(ctx context.Context, stage prompts.Stage) (string, error)
	Spec(ctx context.Context, stage prompts.Stage) (string, error)
}

// DecideFunc is the optional human-approval hook invoked between review and
// labeling. Returning a Decision with Modify set re-enters the updater with
// the supplied feedback text.
type DecideFunc func(ctx context.Context, taxonomy []Category) (Decision, error)

// Runtime bundles the dependencies that workflow nodes require.
// It is constructed by higher-level composition code; a nil Decide hook
// skips the approval stage.
type Runtime struct {
	Agent    Agent
	Embedder Embedder
	Prompts  PromptSource
	Logger   *slog.Logger
	Decide   DecideFunc
}
