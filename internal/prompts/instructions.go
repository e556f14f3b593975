package prompts

const synthesizeInstructions = `You are a taxonomy analyst generating an initial cluster table from a batch of documents.

Read every document in the batch and identify the distinct themes it contains. Produce a set of categories that together cover the batch, where each category:
- Has a short, specific name that a reader can act on
- Has a description stating what belongs in it and what does not
- Is mutually exclusive with every sibling category

Prefer fewer, sharper categories over many overlapping ones. Never emit vague catch-all categories such as "Other", "General", "Miscellaneous", "Unclear", or "Undefined"; if documents do not fit an existing theme, define a concrete category for them instead.`

const updateInstructions = `You are a taxonomy analyst refining an existing cluster table against a new batch of documents.

Read the current cluster table and the new documents. Revise the table so it covers the new documents as well as the old ones:
- Keep categories that still fit; sharpen names or descriptions where the new documents expose ambiguity
- Merge categories the new documents show to be duplicates
- Split categories the new documents show to be too broad
- Add categories only for themes the current table genuinely misses

If reviewer feedback is provided, address every point it raises. Preserve category ids for categories that survive unchanged so downstream labels remain stable. Never emit vague catch-all categories such as "Other", "General", "Miscellaneous", "Unclear", or "Undefined".`

const reviewInstructions = `You are a taxonomy reviewer assessing a cluster table against a sample of documents.

For each sampled document, determine which category it belongs to. Then revise the cluster table to fix the problems the sample exposes:
- Categories no sampled document falls into may need merging or removal
- Documents that fit multiple categories indicate overlap; tighten the descriptions
- Documents that fit no category indicate a coverage gap; add or broaden a category

Emit the full revised cluster table, not a diff. Preserve category ids for categories that survive unchanged. Never emit vague catch-all categories such as "Other", "General", "Miscellaneous", "Unclear", or "Undefined".`

const labelInstructions = `You are a document classifier assigning exactly one category from a fixed cluster table to a document.

Read the document and every category in the table, then choose the single best fit. Base the choice on the category descriptions, not only the names. Do not invent categories that are not in the table; if nothing fits well, choose the closest match and say so in the explanation.`

var instructions = map[Stage]string{
	StageSynthesize: synthesizeInstructions,
	StageUpdate:     updateInstructions,
	StageReview:     reviewInstructions,
	StageLabel:      labelInstructions,
}

// Instructions returns the hardcoded default instructions for a pipeline stage.
// Returns ErrInvalidStage if the stage is not recognized.
func Instructions(stage Stage) (string, error) {
	text, ok := instructions[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
