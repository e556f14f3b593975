package runs

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/aitorress/delve-taxonomy/pkg/query"
	"github.com/aitorress/delve-taxonomy/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "runs", "r").
	Project("id", "ID").
	Project("status", "Status").
	Project("options", "Options").
	Project("document_count", "DocumentCount").
	Project("llm_labeled_count", "LLMLabeledCount").
	Project("classifier_labeled_count", "ClassifierLabeledCount").
	Project("skipped_count", "SkippedCount").
	Project("metrics", "Metrics").
	Project("warnings", "Warnings").
	Project("progress", "Progress").
	Project("error", "Error").
	Project("model_name", "ModelName").
	Project("provider_name", "ProviderName").
	Project("created_at", "CreatedAt").
	Project("completed_at", "CompletedAt").
	Project("duration_ms", "DurationMS")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

var documentProjection = query.
	NewProjectionMap("public", "run_documents", "d").
	Project("run_id", "RunID").
	Project("position", "Position").
	Project("document_id", "DocumentID").
	Project("content", "Content").
	Project("summary", "Summary").
	Project("category", "Category").
	Project("explanation", "Explanation")

var documentSort = query.SortField{
	Field: "Position",
}

// Filters contains optional filtering criteria for run queries.
// Nil fields are ignored; Status uses exact matching.
type Filters struct {
	Status *Status `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereEquals("Status", f.Status)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
	}

	return f
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	var optionsRaw, warningsRaw, progressRaw []byte
	var metricsRaw []byte

	err := s.Scan(
		&r.ID,
		&r.Status,
		&optionsRaw,
		&r.DocumentCount,
		&r.LLMLabeledCount,
		&r.ClassifierLabeledCount,
		&r.SkippedCount,
		&metricsRaw,
		&warningsRaw,
		&progressRaw,
		&r.Error,
		&r.ModelName,
		&r.ProviderName,
		&r.CreatedAt,
		&r.CompletedAt,
		&r.DurationMS,
	)
	if err != nil {
		return r, err
	}

	if len(optionsRaw) > 0 {
		if err := json.Unmarshal(optionsRaw, &r.Options); err != nil {
			return r, fmt.Errorf("unmarshal options: %w", err)
		}
	}

	if len(metricsRaw) > 0 {
		if err := json.Unmarshal(metricsRaw, &r.Metrics); err != nil {
			return r, fmt.Errorf("unmarshal metrics: %w", err)
		}
	}

	if len(warningsRaw) > 0 {
		if err := json.Unmarshal(warningsRaw, &r.Warnings); err != nil {
			return r, fmt.Errorf("unmarshal warnings: %w", err)
		}
	}

	if len(progressRaw) > 0 {
		if err := json.Unmarshal(progressRaw, &r.Progress); err != nil {
			return r, fmt.Errorf("unmarshal progress: %w", err)
		}
	}

	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if r.Progress == nil {
		r.Progress = []string{}
	}

	return r, nil
}

func scanRunDocument(s repository.Scanner) (RunDocument, error) {
	var d RunDocument
	err := s.Scan(
		&d.RunID,
		&d.Position,
		&d.DocumentID,
		&d.Content,
		&d.Summary,
		&d.Category,
		&d.Explanation,
	)
	return d, err
}
