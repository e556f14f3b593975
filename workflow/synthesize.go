package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/aitorress/delve-taxonomy/internal/prompts"
)

// SynthesizeNode returns a state node that generates the initial cluster
// table from the first minibatch. The result becomes revision zero of the
// append-only taxonomy history.
func SynthesizeNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("synthesize: %w", err)
		}

		opts, err := extractOptions(s)
		if err != nil {
			return s, fmt.Errorf("synthesize: %w", err)
		}

		docs := rs.batchDocuments(0)

		prompt, err := composeTaxonomyPrompt(ctx, rt, prompts.StageSynthesize, opts, nil, docs, "")
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrSynthesizeFailed, err)
		}

		resp, err := rt.Agent.Chat(ctx, prompt)
		if err != nil {
			return s, fmt.Errorf("%w: chat call: %w", ErrSynthesizeFailed, err)
		}

		categories := ParseClusterTable(resp)
		if len(categories) == 0 {
			return s, fmt.Errorf("%w: no cluster table in response", ErrSynthesizeFailed)
		}

		rs.Clusters = append(rs.Clusters, categories)
		rs.Status = append(rs.Status, fmt.Sprintf("Synthesized initial taxonomy with %d categories", len(categories)))

		rt.Logger.InfoContext(
			ctx, "synthesize node complete",
			"categories", len(categories),
			"batch_documents", len(docs),
		)

		s = s.Set(KeyRunState, *rs)
		return s, nil
	})
}
