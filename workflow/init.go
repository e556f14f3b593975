package workflow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// InitNode returns a state node that selects the Tier-1 sample from the full
// document set and, when a predefined taxonomy was supplied, seeds the
// revision history with it so the graph can skip discovery entirely.
func InitNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("init: %w", err)
		}

		opts, err := extractOptions(s)
		if err != nil {
			return s, fmt.Errorf("init: %w", err)
		}

		total := len(rs.AllDocuments)
		if total == 0 {
			return s, fmt.Errorf("init: %w", ErrEmptyDocumentSet)
		}

		indices := sampleIndices(total, opts.sampleCount(total))
		rs.SampleIndices = indices
		rs.Documents = make([]Document, len(indices))
		for i, idx := range indices {
			rs.Documents[i] = rs.AllDocuments[idx]
		}

		rs.Status = append(rs.Status, fmt.Sprintf("Sampled %d of %d documents", len(indices), total))

		if len(opts.PredefinedTaxonomy) > 0 {
			rs.Clusters = append(rs.Clusters, opts.PredefinedTaxonomy)
			rs.Status = append(rs.Status, fmt.Sprintf("Using predefined taxonomy with %d categories", len(opts.PredefinedTaxonomy)))
		}

		rt.Logger.InfoContext(
			ctx, "init node complete",
			"documents", total,
			"sampled", len(indices),
			"predefined", len(opts.PredefinedTaxonomy) > 0,
		)

		s = s.Set(KeyRunState, *rs)
		return s, nil
	})
}

// sampleIndices returns n distinct indices into a set of total documents,
// sorted ascending so the sample preserves input order. A full sample avoids
// the shuffle entirely.
func sampleIndices(total, n int) []int {
	if n >= total {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	indices := rand.Perm(total)[:n]
	slices.Sort(indices)
	return indices
}
