package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// Minibatches splits n document indices into consecutive batches of size
// batchSize. Every index appears exactly once; only the final batch may be
// shorter. Ordering is deterministic for a given input ordering.
func Minibatches(n, batchSize int) ([][]int, error) {
	if n <= 0 {
		return nil, ErrEmptyDocumentSet
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidOptions, batchSize)
	}

	batches := make([][]int, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		batch := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, i)
		}
		batches = append(batches, batch)
	}

	return batches, nil
}

// BatchNode returns a state node that splits the sampled documents into
// minibatches for incremental taxonomy refinement.
func BatchNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("batch: %w", err)
		}

		opts, err := extractOptions(s)
		if err != nil {
			return s, fmt.Errorf("batch: %w", err)
		}

		batches, err := Minibatches(len(rs.Documents), opts.BatchSize)
		if err != nil {
			return s, fmt.Errorf("batch: %w", err)
		}

		rs.Minibatches = batches
		rs.Status = append(rs.Status, fmt.Sprintf("Split %d documents into %d minibatches", len(rs.Documents), len(batches)))

		rt.Logger.InfoContext(
			ctx, "batch node complete",
			"documents", len(rs.Documents),
			"minibatches", len(batches),
			"batch_size", opts.BatchSize,
		)

		s = s.Set(KeyRunState, *rs)
		return s, nil
	})
}
