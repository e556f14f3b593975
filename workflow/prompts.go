package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/aitorress/delve-taxonomy/internal/prompts"
)

const noFeedback = "No previous feedback provided."

// composeTaxonomyPrompt assembles the prompt for the synthesize, update, and
// review stages. Synthesize carries no current table or feedback; update and
// review include both, with feedback defaulting when the reviewer had none.
func composeTaxonomyPrompt(
	ctx context.Context,
	rt *Runtime,
	stage prompts.Stage,
	opts *Options,
	taxonomy []Category,
	docs []Document,
	feedback string,
) (string, error) {
	instructions, err := rt.Prompts.Instructions(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("resolve %s instructions: %w", stage, err)
	}

	spec, err := rt.Prompts.Spec(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("resolve %s spec: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Use case: %s\n\n", opts.UseCase)
	fmt.Fprintf(
		&sb,
		"Limits: at most %d categories, category names at most %d words, descriptions at most %d words.\n\n",
		opts.MaxClusters, opts.NameWordLimit, opts.DescriptionWordLimit,
	)

	if stage != prompts.StageSynthesize {
		sb.WriteString("Current cluster table:\n")
		sb.WriteString(FormatClusterTable(taxonomy))
		sb.WriteString("\n\n")

		if feedback == "" {
			feedback = noFeedback
		}
		fmt.Fprintf(&sb, "Reviewer feedback: %s\n\n", feedback)
	}

	sb.WriteString(formatDocuments(docs))
	sb.WriteString("\n\n")
	sb.WriteString(spec)

	return sb.String(), nil
}

// composeLabelPrompt assembles the prompt for a single Tier-1 labeling call.
func composeLabelPrompt(
	ctx context.Context,
	rt *Runtime,
	opts *Options,
	taxonomy []Category,
	doc Document,
) (string, error) {
	instructions, err := rt.Prompts.Instructions(ctx, prompts.StageLabel)
	if err != nil {
		return "", fmt.Errorf("resolve label instructions: %w", err)
	}

	spec, err := rt.Prompts.Spec(ctx, prompts.StageLabel)
	if err != nil {
		return "", fmt.Errorf("resolve label spec: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Use case: %s\n\n", opts.UseCase)
	fmt.Fprintf(&sb, "Limits: explanations at most %d words.\n\n", opts.ExplanationWordLimit)

	sb.WriteString("Cluster table:\n")
	sb.WriteString(FormatClusterTable(taxonomy))
	sb.WriteString("\n\n")

	sb.WriteString(formatDocuments([]Document{doc}))
	sb.WriteString("\n\n")
	sb.WriteString(spec)

	return sb.String(), nil
}
