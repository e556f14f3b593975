package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// DecideNode returns a state node that invokes the optional approval hook on
// the reviewed taxonomy. Each rejection feeds the supplied feedback through
// one more update pass and one more review pass before asking again; the
// loop ends when the hook accepts. A nil hook passes the taxonomy through
// unchanged.
func DecideNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		if rt.Decide == nil {
			return s, nil
		}

		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("decide: %w", err)
		}

		opts, err := extractOptions(s)
		if err != nil {
			return s, fmt.Errorf("decide: %w", err)
		}

		for {
			if err := ctx.Err(); err != nil {
				return s, err
			}

			decision, err := rt.Decide(ctx, rs.Taxonomy())
			if err != nil {
				return s, fmt.Errorf("%w: %w", ErrDecideFailed, err)
			}

			if !decision.Modify {
				rs.Status = append(rs.Status, fmt.Sprintf("Taxonomy approved after %d revisions", rs.Revisions()))
				break
			}

			rs.Feedback = decision.Feedback
			rs.Status = append(rs.Status, "Taxonomy rejected, applying feedback")

			if err := updatePass(ctx, rt, opts, rs); err != nil {
				return s, err
			}

			if err := reviewPass(ctx, rt, opts, rs); err != nil {
				return s, err
			}
		}

		rt.Logger.InfoContext(
			ctx, "decide node complete",
			"revisions", rs.Revisions(),
			"categories", len(rs.Taxonomy()),
		)

		s = s.Set(KeyRunState, *rs)
		return s, nil
	})
}
