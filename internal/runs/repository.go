package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/aitorress/delve-taxonomy/internal/config"
	"github.com/aitorress/delve-taxonomy/pkg/lifecycle"
	"github.com/aitorress/delve-taxonomy/pkg/pagination"
	"github.com/aitorress/delve-taxonomy/pkg/query"
	"github.com/aitorress/delve-taxonomy/pkg/repository"
	"github.com/aitorress/delve-taxonomy/workflow"
)

const runColumns = `id, status, options, document_count, llm_labeled_count,
	classifier_labeled_count, skipped_count, metrics, warnings, progress,
	error, model_name, provider_name, created_at, completed_at, duration_ms`

type repo struct {
	db             *sql.DB
	rt             *workflow.Runtime
	agent          gaconfig.AgentConfig
	defaults       config.PipelineConfig
	embeddingModel string
	base           context.Context
	logger         *slog.Logger
	pagination     pagination.Config
}

// New creates a run repository implementing the System interface. Pipeline
// execution is detached from the request and runs on the lifecycle context,
// so in-flight runs stop cooperatively on shutdown.
func New(
	db *sql.DB,
	rt *workflow.Runtime,
	agent gaconfig.AgentConfig,
	defaults config.PipelineConfig,
	embeddingModel string,
	lc *lifecycle.Coordinator,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:             db,
		rt:             rt,
		agent:          agent,
		defaults:       defaults,
		embeddingModel: embeddingModel,
		base:           lc.Context(),
		logger:         logger.With("system", "runs"),
		pagination:     pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	runs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	result := pagination.NewPageResult(runs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Run, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	run, err := repository.QueryOne(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Run, error) {
	opts := cmd.Options.Resolve(r.defaults, r.embeddingModel)

	if err := validateSubmission(cmd.Documents, opts); err != nil {
		return nil, err
	}

	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO runs(status, options, document_count, model_name, provider_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, runColumns)

	insertArgs := []any{
		StatusPending,
		optionsJSON,
		len(cmd.Documents),
		r.agent.Model.Name,
		r.agent.Provider.Name,
	}

	run, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Run, error) {
		created, err := repository.QueryOne(ctx, tx, insertQ, insertArgs, scanRun)
		if err != nil {
			return Run{}, fmt.Errorf("insert run: %w", err)
		}

		docQ := `
			INSERT INTO run_documents(run_id, position, document_id, content, summary)
			VALUES ($1, $2, $3, $4, $5)`

		for i, d := range cmd.Documents {
			var summary *string
			if d.Summary != "" {
				summary = &d.Summary
			}

			if _, err := tx.ExecContext(ctx, docQ, created.ID, i, d.ID, d.Content, summary); err != nil {
				return Run{}, fmt.Errorf("insert run document %s: %w", d.ID, err)
			}
		}

		return created, nil
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	go r.execute(run.ID, cmd.Documents, opts)

	r.logger.Info("run submitted", "id", run.ID, "documents", len(cmd.Documents))
	return &run, nil
}

func (r *repo) Taxonomy(ctx context.Context, id uuid.UUID) ([]workflow.Category, error) {
	run, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if run.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: run is %s", ErrNotCompleted, run.Status)
	}

	q := `
		SELECT category_id, name, description
		FROM run_categories
		WHERE run_id = $1
		ORDER BY position`

	categories, err := repository.QueryMany(ctx, r.db, q, []any{id}, func(s repository.Scanner) (workflow.Category, error) {
		var c workflow.Category
		err := s.Scan(&c.ID, &c.Name, &c.Description)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("query run categories: %w", err)
	}

	return categories, nil
}

func (r *repo) Documents(
	ctx context.Context,
	id uuid.UUID,
	page pagination.PageRequest,
) (*pagination.PageResult[RunDocument], error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(documentProjection, documentSort).
		WhereEquals("RunID", &id)

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count run documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRunDocument)
	if err != nil {
		return nil, fmt.Errorf("query run documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM runs WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("run deleted", "id", id)
	return nil
}

// validateSubmission rejects runs the pipeline would fail before they are
// persisted. Options are finalized on a copy so stored options reflect what
// the caller submitted plus service defaults.
func validateSubmission(docs []workflow.Document, opts workflow.Options) error {
	probe := opts
	if err := probe.Finalize(len(docs)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRun, err)
	}

	seen := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("%w: document %d missing id", ErrInvalidRun, i)
		}
		if _, ok := seen[d.ID]; ok {
			return fmt.Errorf("%w: duplicate document id %q", ErrInvalidRun, d.ID)
		}
		seen[d.ID] = struct{}{}

		if d.Content == "" && d.Summary == "" {
			return fmt.Errorf("%w: document %q has no content", ErrInvalidRun, d.ID)
		}
	}

	return nil
}

// execute runs the pipeline for a submitted run. It runs on the lifecycle
// context rather than the request context; persistence after completion uses
// a non-cancellable context so results survive a shutdown race.
func (r *repo) execute(id uuid.UUID, docs []workflow.Document, opts workflow.Options) {
	ctx := r.base
	logger := r.logger.With("run_id", id)

	if err := r.setStatus(ctx, id, StatusRunning); err != nil {
		logger.Error("mark run running", "error", err)
		return
	}

	result, err := workflow.Execute(ctx, r.rt, docs, opts)

	persistCtx := context.WithoutCancel(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		if dbErr := r.markFailed(persistCtx, id, err); dbErr != nil {
			logger.Error("mark run failed", "error", dbErr)
		}
		return
	}

	if err := r.persistResult(persistCtx, id, result); err != nil {
		logger.Error("persist run result", "error", err)
		return
	}

	logger.Info("run completed",
		"duration", result.Duration,
		"categories", len(result.Taxonomy),
		"llm_labeled", result.LLMLabeledCount,
		"classifier_labeled", result.ClassifierLabeledCount,
	)
}

func (r *repo) setStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE runs SET status = $1 WHERE id = $2",
		status, id,
	)
}

func (r *repo) markFailed(ctx context.Context, id uuid.UUID, runErr error) error {
	msg := runErr.Error()
	return repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE runs SET status = $1, error = $2, completed_at = NOW() WHERE id = $3",
		StatusFailed, msg, id,
	)
}

func (r *repo) persistResult(ctx context.Context, id uuid.UUID, result *workflow.RunResult) error {
	warningsJSON, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	progressJSON, err := json.Marshal(result.Status)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	var metricsJSON []byte
	if result.ClassifierMetrics != nil {
		metricsJSON, err = json.Marshal(result.ClassifierMetrics)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
	}

	updateQ := `
		UPDATE runs
		SET status = $1, llm_labeled_count = $2, classifier_labeled_count = $3,
			skipped_count = $4, metrics = $5, warnings = $6, progress = $7,
			completed_at = $8, duration_ms = $9
		WHERE id = $10`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx, updateQ,
			StatusCompleted,
			result.LLMLabeledCount,
			result.ClassifierLabeledCount,
			result.SkippedCount,
			metricsJSON,
			warningsJSON,
			progressJSON,
			result.CompletedAt,
			result.Duration.Milliseconds(),
			id,
		); err != nil {
			return struct{}{}, fmt.Errorf("update run: %w", err)
		}

		categoryQ := `
			INSERT INTO run_categories(run_id, position, category_id, name, description)
			VALUES ($1, $2, $3, $4, $5)`

		for i, c := range result.Taxonomy {
			if _, err := tx.ExecContext(ctx, categoryQ, id, i, c.ID, c.Name, c.Description); err != nil {
				return struct{}{}, fmt.Errorf("insert category %s: %w", c.Name, err)
			}
		}

		documentQ := `
			UPDATE run_documents
			SET category = $1, explanation = $2
			WHERE run_id = $3 AND position = $4`

		for i, d := range result.Documents {
			var explanation *string
			if d.Explanation != "" {
				explanation = &d.Explanation
			}

			if _, err := tx.ExecContext(ctx, documentQ, d.Category, explanation, id, i); err != nil {
				return struct{}{}, fmt.Errorf("update document %s: %w", d.ID, err)
			}
		}

		return struct{}{}, nil
	})

	return err
}
