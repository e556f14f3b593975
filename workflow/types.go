package workflow

import "time"

// State bag keys used by the taxonomy generation graph.
const (
	KeyRunState = "run_state"
	KeyOptions  = "options"
)

// OtherCategory is the sentinel assigned when a label response cannot be
// resolved against the authoritative taxonomy.
const OtherCategory = "Other"

// Document is a single unit of text moving through the pipeline. Category
// and Explanation are populated by the labeling stages; Summary may be
// populated by an upstream summarization pass and, when present, is
// preferred over Content in taxonomy prompts.
type Document struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Summary     string `json:"summary,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Text returns the representation of the document used in taxonomy prompts:
// the summary when one exists, otherwise the raw content.
func (d Document) Text() string {
	if d.Summary != "" {
		return d.Summary
	}
	return d.Content
}

// Category is a single taxonomy entry. Name and description must together be
// specific and mutually exclusive relative to sibling categories; that
// contract is enforced at the prompt level, not programmatically.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ClassifierMetrics records the evaluation of the trained Tier-2 classifier.
type ClassifierMetrics struct {
	TrainAccuracy float64 `json:"train_accuracy"`
	TestAccuracy  float64 `json:"test_accuracy"`
	TrainF1       float64 `json:"train_f1"`
	TestF1        float64 `json:"test_f1"`
}

// RunState is the aggregate threaded through every pipeline stage. The state
// graph owns it exclusively for the duration of a run; callers receive
// copies via RunResult.
type RunState struct {
	// AllDocuments is the complete input set, immutable after init.
	AllDocuments []Document `json:"all_documents"`
	// Documents is the active sample under processing, labeled in place.
	Documents []Document `json:"documents"`
	// SampleIndices maps Documents positions back into AllDocuments.
	SampleIndices []int `json:"sample_indices"`
	// Minibatches holds index lists into Documents, generated once.
	Minibatches [][]int `json:"minibatches"`
	// Clusters is the append-only taxonomy revision history. Index 0 is the
	// initial synthesis; the last element is authoritative.
	Clusters [][]Category `json:"clusters"`
	// Status is an append-only human-readable progress log.
	Status []string `json:"status"`
	// Feedback carries reviewer feedback into the next update pass.
	Feedback string `json:"feedback,omitempty"`

	LLMLabeled        int                `json:"llm_labeled_count"`
	ClassifierLabeled int                `json:"classifier_labeled_count"`
	Skipped           int                `json:"skipped_document_count"`
	Warnings          []string           `json:"warnings,omitempty"`
	Metrics           *ClassifierMetrics `json:"classifier_metrics,omitempty"`
}

// Taxonomy returns the authoritative category list: the most recent
// revision, or nil before synthesis.
func (s *RunState) Taxonomy() []Category {
	if len(s.Clusters) == 0 {
		return nil
	}
	return s.Clusters[len(s.Clusters)-1]
}

// Revisions returns the number of synthesis/update/review passes performed.
func (s *RunState) Revisions() int {
	return len(s.Clusters)
}

func (s *RunState) batchDocuments(batch int) []Document {
	indices := s.Minibatches[batch]
	docs := make([]Document, len(indices))
	for i, idx := range indices {
		docs[i] = s.Documents[idx]
	}
	return docs
}

// Decision is the outcome of the optional human-approval stage between
// review and labeling.
type Decision struct {
	Modify   bool   `json:"modify"`
	Feedback string `json:"feedback,omitempty"`
}

// RunResult is the final output from a taxonomy generation run.
type RunResult struct {
	Taxonomy               []Category         `json:"taxonomy"`
	Documents              []Document         `json:"documents"`
	LLMLabeledCount        int                `json:"llm_labeled_count"`
	ClassifierLabeledCount int                `json:"classifier_labeled_count"`
	SkippedCount           int                `json:"skipped_document_count"`
	ClassifierMetrics      *ClassifierMetrics `json:"classifier_metrics,omitempty"`
	Warnings               []string           `json:"warnings,omitempty"`
	Status                 []string           `json:"status"`
	Duration               time.Duration      `json:"duration"`
	CompletedAt            time.Time          `json:"completed_at"`
}
