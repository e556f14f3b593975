package workflow

import (
	"fmt"
	"runtime"
)

// Options carries the per-run configuration for a taxonomy generation run.
// Zero values are replaced by defaults during Finalize; invalid combinations
// fail before any LLM call is made.
type Options struct {
	// SampleSize is the number of documents LLM-labeled directly. 0 or a
	// value >= the document count processes everything with the LLM and
	// disables the classifier tier.
	SampleSize int `json:"sample_size"`
	// BatchSize is the minibatch size for incremental taxonomy refinement
	// and the sample size for the review pass.
	BatchSize int `json:"batch_size"`
	// MaxClusters caps the number of categories the model may produce.
	MaxClusters int `json:"max_clusters"`
	// UseCase describes what the taxonomy will be used for.
	UseCase string `json:"use_case"`
	// EmbeddingModel identifies the embedding model for classifier training.
	EmbeddingModel string `json:"embedding_model"`
	// ConfidenceThreshold is the minimum classifier posterior probability to
	// accept a Tier-2 prediction. 0 disables the LLM fallback.
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	// PredefinedTaxonomy bypasses discovery entirely and labels documents
	// against the supplied categories.
	PredefinedTaxonomy []Category `json:"predefined_taxonomy,omitempty"`

	// Word caps surfaced in taxonomy prompts.
	NameWordLimit        int `json:"name_word_limit"`
	DescriptionWordLimit int `json:"description_word_limit"`
	ExplanationWordLimit int `json:"explanation_word_limit"`

	// LabelWorkers bounds concurrent Tier-1 labeling calls.
	LabelWorkers int `json:"label_workers"`
}

// Finalize applies defaults and validates the options against the input
// document count. Configuration errors are fatal and reported before the
// pipeline starts.
func (o *Options) Finalize(docCount int) error {
	o.loadDefaults()

	if docCount == 0 {
		return ErrEmptyDocumentSet
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidOptions, o.BatchSize)
	}
	if o.SampleSize < 0 {
		return fmt.Errorf("%w: sample_size cannot be negative, got %d", ErrInvalidOptions, o.SampleSize)
	}
	if o.MaxClusters < 1 {
		return fmt.Errorf("%w: max_clusters must be at least 1, got %d", ErrInvalidOptions, o.MaxClusters)
	}
	if o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence_threshold must be within [0, 1], got %g", ErrInvalidOptions, o.ConfidenceThreshold)
	}

	for i, c := range o.PredefinedTaxonomy {
		if c.ID == "" || c.Name == "" || c.Description == "" {
			return fmt.Errorf("%w: predefined taxonomy entry %d missing id, name, or description", ErrInvalidOptions, i)
		}
	}

	return nil
}

func (o *Options) loadDefaults() {
	if o.BatchSize == 0 {
		o.BatchSize = 200
	}
	if o.MaxClusters == 0 {
		o.MaxClusters = 25
	}
	if o.UseCase == "" {
		o.UseCase = "Generate a taxonomy for categorizing document content."
	}
	if o.EmbeddingModel == "" {
		o.EmbeddingModel = "text-embedding-3-large"
	}
	if o.NameWordLimit == 0 {
		o.NameWordLimit = 10
	}
	if o.DescriptionWordLimit == 0 {
		o.DescriptionWordLimit = 30
	}
	if o.ExplanationWordLimit == 0 {
		o.ExplanationWordLimit = 100
	}
	if o.LabelWorkers == 0 {
		o.LabelWorkers = runtime.NumCPU()
	}
}

// sampleCount returns how many documents Tier-1 processes for a run over
// total documents. 0 means everything.
func (o *Options) sampleCount(total int) int {
	if o.SampleSize == 0 || o.SampleSize >= total {
		return total
	}
	return o.SampleSize
}

func labelWorkerCount(workers, docCount int) int {
	return max(min(workers, docCount), 1)
}
