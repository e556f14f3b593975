package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/aitorress/delve-taxonomy/internal/prompts"
)

// UpdateNode returns a state node that refines the taxonomy against each
// remaining minibatch, one revision per pass. The loop runs inside the node
// so the graph stays acyclic; ctx is checked between passes for cooperative
// cancellation. Reviewer feedback, when present, is consumed by the first
// pass only.
func UpdateNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("update: %w", err)
		}

		opts, err := extractOptions(s)
		if err != nil {
			return s, fmt.Errorf("update: %w", err)
		}

		for rs.Revisions() < len(rs.Minibatches) {
			if err := ctx.Err(); err != nil {
				return s, err
			}

			if err := updatePass(ctx, rt, opts, rs); err != nil {
				return s, err
			}
		}

		rt.Logger.InfoContext(
			ctx, "update node complete",
			"revisions", rs.Revisions(),
			"categories", len(rs.Taxonomy()),
		)

		s = s.Set(KeyRunState, *rs)
		return s, nil
	})
}

// updatePass runs one taxonomy refinement against the next cyclic minibatch
// and appends the revised table to the history. Pending feedback is cleared
// once submitted.
func updatePass(ctx context.Context, rt *Runtime, opts *Options, rs *RunState) error {
	batch := rs.Revisions() % len(rs.Minibatches)
	docs := rs.batchDocuments(batch)

	feedback := rs.Feedback
	rs.Feedback = ""

	prompt, err := composeTaxonomyPrompt(ctx, rt, prompts.StageUpdate, opts, rs.Taxonomy(), docs, feedback)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	resp, err := rt.Agent.Chat(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: chat call: %w", ErrUpdateFailed, err)
	}

	categories := ParseClusterTable(resp)
	if len(categories) == 0 {
		return fmt.Errorf("%w: no cluster table in response for minibatch %d", ErrUpdateFailed, batch)
	}

	rs.Clusters = append(rs.Clusters, categories)
	rs.Status = append(rs.Status, fmt.Sprintf("Updated taxonomy against minibatch %d: %d categories", batch, len(categories)))

	return nil
}
