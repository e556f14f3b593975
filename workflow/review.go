package workflow

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/aitorress/delve-taxonomy/internal/prompts"
)

// ReviewNode returns a state node that assesses the taxonomy against a
// random document sample and appends the revised table as the final
// discovery revision.
func ReviewNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("review: %w", err)
		}

		opts, err := extractOptions(s)
		if err != nil {
			return s, fmt.Errorf("review: %w", err)
		}

		if err := reviewPass(ctx, rt, opts, rs); err != nil {
			return s, err
		}

		rt.Logger.InfoContext(
			ctx, "review node complete",
			"revisions", rs.Revisions(),
			"categories", len(rs.Taxonomy()),
		)

		s = s.Set(KeyRunState, *rs)
		return s, nil
	})
}

// reviewPass samples up to BatchSize documents across the whole active set,
// submits them with the current table, and appends the revised table.
func reviewPass(ctx context.Context, rt *Runtime, opts *Options, rs *RunState) error {
	docs := reviewSample(rs.Documents, opts.BatchSize)

	prompt, err := composeTaxonomyPrompt(ctx, rt, prompts.StageReview, opts, rs.Taxonomy(), docs, "")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReviewFailed, err)
	}

	resp, err := rt.Agent.Chat(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: chat call: %w", ErrReviewFailed, err)
	}

	categories := ParseClusterTable(resp)
	if len(categories) == 0 {
		return fmt.Errorf("%w: no cluster table in response", ErrReviewFailed)
	}

	rs.Clusters = append(rs.Clusters, categories)
	rs.Status = append(rs.Status, fmt.Sprintf("Reviewed taxonomy against %d sampled documents: %d categories", len(docs), len(categories)))

	return nil
}

// reviewSample draws up to n documents uniformly without replacement from
// the whole active set, unlike minibatches which are consecutive slices.
func reviewSample(docs []Document, n int) []Document {
	if n >= len(docs) {
		return docs
	}

	sample := make([]Document, n)
	for i, idx := range rand.Perm(len(docs))[:n] {
		sample[i] = docs[idx]
	}
	return sample
}
