package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
	"golang.org/x/sync/errgroup"
)

var (
	categoryIDPattern   = regexp.MustCompile(`(?s)<category_id>\s*(\d+)\s*</category_id>`)
	categoryNamePattern = regexp.MustCompile(`(?s)<category>(.*?)</category>`)
	explanationPattern  = regexp.MustCompile(`(?s)<explanation>(.*?)</explanation>`)
	enumPrefixPattern   = regexp.MustCompile(`^\d+\.\s*`)
)

// Label is the parsed outcome of a single Tier-1 labeling response. Category
// is always populated; unresolvable responses fall back to OtherCategory
// with a warning describing the failure.
type Label struct {
	Category    string
	Explanation string
	Warnings    []string
}

// ParseLabel resolves a labeling response against the authoritative
// taxonomy. Resolution prefers the first category_id tag; a response
// carrying only a category name tag is matched against taxonomy names after
// stripping any enumeration prefix. Multiple id tags use the first and warn;
// ids and names absent from the taxonomy fall back to OtherCategory.
func ParseLabel(content string, taxonomy []Category) Label {
	var l Label

	if m := explanationPattern.FindStringSubmatch(content); m != nil {
		l.Explanation = strings.TrimSpace(m[1])
	}

	ids := categoryIDPattern.FindAllStringSubmatch(content, -1)
	if len(ids) > 0 {
		if len(ids) > 1 {
			l.Warnings = append(l.Warnings, fmt.Sprintf("multiple category_id tags, using first of %d", len(ids)))
		}

		id := ids[0][1]
		if c, ok := categoryByID(taxonomy, id); ok {
			l.Category = c.Name
			return l
		}

		l.Category = OtherCategory
		l.Warnings = append(l.Warnings, fmt.Sprintf("category_id %s not in taxonomy, assigned %s", id, OtherCategory))
		return l
	}

	if m := categoryNamePattern.FindStringSubmatch(content); m != nil {
		name := enumPrefixPattern.ReplaceAllString(strings.TrimSpace(m[1]), "")
		for _, c := range taxonomy {
			if strings.EqualFold(c.Name, name) {
				l.Category = c.Name
				l.Warnings = append(l.Warnings, "response missing category_id, resolved by name")
				return l
			}
		}

		l.Category = OtherCategory
		l.Warnings = append(l.Warnings, fmt.Sprintf("category %q not in taxonomy, assigned %s", name, OtherCategory))
		return l
	}

	l.Category = OtherCategory
	l.Warnings = append(l.Warnings, fmt.Sprintf("no category tag in response, assigned %s", OtherCategory))
	return l
}

// LabelNode returns a state node that labels every sampled document against
// the authoritative taxonomy using bounded errgroup concurrency. Results are
// written back by index so document order is preserved regardless of
// completion order.
func LabelNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("label: %w", err)
		}

		opts, err := extractOptions(s)
		if err != nil {
			return s, fmt.Errorf("label: %w", err)
		}

		taxonomy := rs.Taxonomy()
		if len(taxonomy) == 0 {
			return s, fmt.Errorf("label: %w", ErrEmptyTaxonomy)
		}

		labels := make([]Label, len(rs.Documents))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(labelWorkerCount(opts.LabelWorkers, len(rs.Documents)))

		for i := range rs.Documents {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}

				prompt, err := composeLabelPrompt(gctx, rt, opts, taxonomy, rs.Documents[i])
				if err != nil {
					return fmt.Errorf("document %s: %w", rs.Documents[i].ID, err)
				}

				resp, err := rt.Agent.Chat(gctx, prompt)
				if err != nil {
					return fmt.Errorf("document %s: chat call: %w", rs.Documents[i].ID, err)
				}

				labels[i] = ParseLabel(resp, taxonomy)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return s, fmt.Errorf("%w: %w", ErrLabelFailed, err)
		}

		for i, l := range labels {
			rs.Documents[i].Category = l.Category
			rs.Documents[i].Explanation = l.Explanation

			if l.Category == OtherCategory {
				rs.Skipped++
			}

			for _, w := range l.Warnings {
				rs.Warnings = append(rs.Warnings, fmt.Sprintf("document %s: %s", rs.Documents[i].ID, w))
			}
		}

		rs.LLMLabeled = len(rs.Documents)
		rs.Status = append(rs.Status, fmt.Sprintf("Labeled %d documents with the language model", len(rs.Documents)))

		rt.Logger.InfoContext(
			ctx, "label node complete",
			"documents", len(rs.Documents),
			"skipped", rs.Skipped,
			"warnings", len(rs.Warnings),
		)

		s = s.Set(KeyRunState, *rs)
		return s, nil
	})
}
