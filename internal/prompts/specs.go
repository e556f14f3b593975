package prompts

const clusterTableSpec = `Respond with a cluster table matching this exact structure:

<cluster_table>
  <cluster>
    <id>1</id>
    <name>Category Name</name>
    <description>What belongs in this category.</description>
  </cluster>
</cluster_table>

Field constraints:
- id: A positive integer unique within the table. Reuse the id of an
  existing category when the category survives a revision; assign the
  next unused integer to new categories.
- name: A short noun phrase naming the category. Respect the word limit
  stated in the prompt.
- description: One or two sentences stating what belongs in the category.
  Respect the word limit stated in the prompt.

Behavioral constraints:
- Emit exactly one cluster_table element and nothing outside it
- Every category in the final table must appear, including unchanged ones
- Do not exceed the maximum category count stated in the prompt
- Never emit markdown fencing around the markup`

const labelSpec = `Respond with a category assignment matching this exact structure:

<category_id>1</category_id>
<explanation>Why this category fits the document.</explanation>

Field constraints:
- category_id: The id of exactly one category from the provided cluster
  table. Emit the id alone, no name or punctuation.
- explanation: A brief justification for the assignment. Respect the word
  limit stated in the prompt.

Behavioral constraints:
- Emit exactly one category_id element
- Never invent an id that is not present in the cluster table
- Never emit markdown fencing around the markup`

var specs = map[Stage]string{
	StageSynthesize: clusterTableSpec,
	StageUpdate:     clusterTableSpec,
	StageReview:     clusterTableSpec,
	StageLabel:      labelSpec,
}

// Spec returns the hardcoded specification for a pipeline stage.
// Specifications define the expected output format and behavioral constraints.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
