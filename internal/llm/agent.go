// Package llm adapts the configured chat provider and embeddings endpoint
// to the interfaces the pipeline consumes.
package llm

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// ChatAgent exposes the configured chat provider as the pipeline Agent
// interface. Each call constructs a fresh agent from the shared config so
// concurrent callers never share client state.
type ChatAgent struct {
	cfg gaconfig.AgentConfig
}

// NewChatAgent creates a ChatAgent from a finalized agent configuration.
func NewChatAgent(cfg gaconfig.AgentConfig) *ChatAgent {
	return &ChatAgent{cfg: cfg}
}

// Chat sends a prompt to the chat model and returns the response text.
func (c *ChatAgent) Chat(ctx context.Context, prompt string) (string, error) {
	a, err := agent.New(&c.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}

	return resp.Content(), nil
}
