// Package runs implements the taxonomy run domain. It provides types, data
// access, and business logic for submitting document sets, executing the
// generation pipeline asynchronously, and querying results.
package runs

import (
	"time"

	"github.com/google/uuid"

	"github.com/aitorress/delve-taxonomy/internal/config"
	"github.com/aitorress/delve-taxonomy/workflow"
)

// Status is the lifecycle state of a run.
type Status string

// Valid run statuses.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run represents a stored taxonomy generation run. It mirrors the runs table
// schema; documents and categories live in their own tables.
type Run struct {
	ID                     uuid.UUID                   `json:"id"`
	Status                 Status                      `json:"status"`
	Options                workflow.Options            `json:"options"`
	DocumentCount          int                         `json:"document_count"`
	LLMLabeledCount        int                         `json:"llm_labeled_count"`
	ClassifierLabeledCount int                         `json:"classifier_labeled_count"`
	SkippedCount           int                         `json:"skipped_document_count"`
	Metrics                *workflow.ClassifierMetrics `json:"classifier_metrics,omitempty"`
	Warnings               []string                    `json:"warnings"`
	Progress               []string                    `json:"progress"`
	Error                  *string                     `json:"error"`
	ModelName              string                      `json:"model_name"`
	ProviderName           string                      `json:"provider_name"`
	CreatedAt              time.Time                   `json:"created_at"`
	CompletedAt            *time.Time                  `json:"completed_at"`
	DurationMS             *int64                      `json:"duration_ms"`
}

// RunDocument is a document belonging to a run, carrying its final label
// once the run completes.
type RunDocument struct {
	RunID       uuid.UUID `json:"run_id"`
	Position    int       `json:"position"`
	DocumentID  string    `json:"document_id"`
	Content     string    `json:"content"`
	Summary     *string   `json:"summary"`
	Category    *string   `json:"category"`
	Explanation *string   `json:"explanation"`
}

// CreateCommand carries the data needed to submit a new run.
type CreateCommand struct {
	Options   SubmitOptions       `json:"options"`
	Documents []workflow.Document `json:"documents"`
}

// SubmitOptions is the options payload of a run submission. SampleSize and
// ConfidenceThreshold are pointers because zero is meaningful for both: a
// zero sample size labels every document with the language model and a zero
// threshold disables the fallback. Omitted fields fall to the service
// pipeline defaults.
type SubmitOptions struct {
	SampleSize           *int                `json:"sample_size,omitempty"`
	BatchSize            int                 `json:"batch_size,omitempty"`
	MaxClusters          int                 `json:"max_clusters,omitempty"`
	UseCase              string              `json:"use_case,omitempty"`
	EmbeddingModel       string              `json:"embedding_model,omitempty"`
	ConfidenceThreshold  *float64            `json:"confidence_threshold,omitempty"`
	PredefinedTaxonomy   []workflow.Category `json:"predefined_taxonomy,omitempty"`
	NameWordLimit        int                 `json:"name_word_limit,omitempty"`
	DescriptionWordLimit int                 `json:"description_word_limit,omitempty"`
	ExplanationWordLimit int                 `json:"explanation_word_limit,omitempty"`
	LabelWorkers         int                 `json:"label_workers,omitempty"`
}

// Resolve merges the submission with the service pipeline defaults into the
// options the pipeline executes. Remaining zero values fall to the workflow
// defaults during Finalize.
func (o SubmitOptions) Resolve(defaults config.PipelineConfig, embeddingModel string) workflow.Options {
	resolved := workflow.Options{
		SampleSize:           defaults.SampleSize,
		BatchSize:            o.BatchSize,
		MaxClusters:          o.MaxClusters,
		UseCase:              o.UseCase,
		EmbeddingModel:       o.EmbeddingModel,
		ConfidenceThreshold:  defaults.ConfidenceThreshold,
		PredefinedTaxonomy:   o.PredefinedTaxonomy,
		NameWordLimit:        o.NameWordLimit,
		DescriptionWordLimit: o.DescriptionWordLimit,
		ExplanationWordLimit: o.ExplanationWordLimit,
		LabelWorkers:         o.LabelWorkers,
	}

	if o.SampleSize != nil {
		resolved.SampleSize = *o.SampleSize
	}
	if o.ConfidenceThreshold != nil {
		resolved.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if resolved.BatchSize == 0 {
		resolved.BatchSize = defaults.BatchSize
	}
	if resolved.MaxClusters == 0 {
		resolved.MaxClusters = defaults.MaxClusters
	}
	if resolved.LabelWorkers == 0 {
		resolved.LabelWorkers = defaults.LabelWorkers
	}
	if resolved.EmbeddingModel == "" {
		resolved.EmbeddingModel = embeddingModel
	}
	return resolved
}
