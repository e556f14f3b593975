package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
	"golang.org/x/sync/errgroup"

	"github.com/aitorress/delve-taxonomy/pkg/classifier"
)

// ClassifyNode returns a state node that extends the labeled sample to the
// full document set. It trains a random forest on embeddings of the
// LLM-labeled documents, predicts the remainder, and falls back to the
// language model for predictions below the confidence threshold. When the
// sample already covers every document the classifier tier is skipped.
func ClassifyNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		rs, err := extractRunState(s)
		if err != nil {
			return s, fmt.Errorf("classify: %w", err)
		}

		opts, err := extractOptions(s)
		if err != nil {
			return s, fmt.Errorf("classify: %w", err)
		}

		mergeSample(rs)

		remainder := remainderIndices(rs)
		if len(remainder) == 0 {
			rs.Status = append(rs.Status, "Sample covered all documents, classifier tier skipped")
			rt.Logger.InfoContext(ctx, "classify node skipped", "documents", len(rs.AllDocuments))
			s = s.Set(KeyRunState, *rs)
			return s, nil
		}

		taxonomy := rs.Taxonomy()
		model, metrics, err := trainClassifier(ctx, rt, opts, rs, taxonomy)
		if err != nil {
			return s, err
		}
		rs.Metrics = &metrics

		fallback, err := predictRemainder(ctx, rt, opts, rs, taxonomy, model, remainder)
		if err != nil {
			return s, err
		}

		if err := labelFallback(ctx, rt, opts, rs, taxonomy, fallback); err != nil {
			return s, err
		}

		rs.Status = append(rs.Status, fmt.Sprintf(
			"Classified %d remaining documents (%d by classifier, %d by language model fallback)",
			len(remainder), rs.ClassifierLabeled, len(fallback),
		))

		rt.Logger.InfoContext(
			ctx, "classify node complete",
			"remainder", len(remainder),
			"classifier_labeled", rs.ClassifierLabeled,
			"fallback_labeled", len(fallback),
			"test_accuracy", metrics.TestAccuracy,
		)

		s = s.Set(KeyRunState, *rs)
		return s, nil
	})
}

// mergeSample writes the labeled sample back into the full set so final
// output preserves input order.
func mergeSample(rs *RunState) {
	for i, idx := range rs.SampleIndices {
		rs.AllDocuments[idx] = rs.Documents[i]
	}
}

func remainderIndices(rs *RunState) []int {
	sampled := make(map[int]struct{}, len(rs.SampleIndices))
	for _, idx := range rs.SampleIndices {
		sampled[idx] = struct{}{}
	}

	var remainder []int
	for i := range rs.AllDocuments {
		if _, ok := sampled[i]; !ok {
			remainder = append(remainder, i)
		}
	}
	return remainder
}

// trainClassifier embeds the sampled documents whose labels resolve to a
// taxonomy category and trains the random forest on them. Documents that
// fell back to OtherCategory are excluded from training; a sample with no
// usable labels fails the run.
func trainClassifier(
	ctx context.Context,
	rt *Runtime,
	opts *Options,
	rs *RunState,
	taxonomy []Category,
) (*classifier.Model, ClassifierMetrics, error) {
	classes := make(map[string]int, len(taxonomy))
	for i, c := range taxonomy {
		classes[c.Name] = i
	}

	var texts []string
	var labels []int
	for _, d := range rs.Documents {
		class, ok := classes[d.Category]
		if !ok {
			continue
		}
		texts = append(texts, d.Text())
		labels = append(labels, class)
	}

	if len(texts) == 0 {
		return nil, ClassifierMetrics{}, fmt.Errorf("%w: no sampled documents carry a taxonomy category", ErrClassifyFailed)
	}

	vectors, err := rt.Embedder.EmbedBatch(ctx, opts.EmbeddingModel, texts)
	if err != nil {
		return nil, ClassifierMetrics{}, fmt.Errorf("%w: embed training sample: %w", ErrClassifyFailed, err)
	}

	model, m, err := classifier.Train(vectors, labels, len(taxonomy), classifier.DefaultConfig())
	if err != nil {
		return nil, ClassifierMetrics{}, fmt.Errorf("%w: train classifier: %w", ErrClassifyFailed, err)
	}

	metrics := ClassifierMetrics{
		TrainAccuracy: m.TrainAccuracy,
		TestAccuracy:  m.TestAccuracy,
		TrainF1:       m.TrainF1,
		TestF1:        m.TestF1,
	}

	rs.Status = append(rs.Status, fmt.Sprintf(
		"Trained classifier on %d documents: test accuracy %.3f, test F1 %.3f",
		len(texts), metrics.TestAccuracy, metrics.TestF1,
	))

	return model, metrics, nil
}

// predictRemainder embeds and classifies the unsampled documents, accepting
// predictions at or above the confidence threshold and returning the indices
// that need the language model fallback.
func predictRemainder(
	ctx context.Context,
	rt *Runtime,
	opts *Options,
	rs *RunState,
	taxonomy []Category,
	model *classifier.Model,
	remainder []int,
) ([]int, error) {
	texts := make([]string, len(remainder))
	for i, idx := range remainder {
		texts[i] = rs.AllDocuments[idx].Text()
	}

	vectors, err := rt.Embedder.EmbedBatch(ctx, opts.EmbeddingModel, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed remainder: %w", ErrClassifyFailed, err)
	}

	var fallback []int
	for i, idx := range remainder {
		class, confidence := model.Classify(vectors[i])

		if opts.ConfidenceThreshold > 0 && confidence < opts.ConfidenceThreshold {
			fallback = append(fallback, idx)
			continue
		}

		rs.AllDocuments[idx].Category = taxonomy[class].Name
		rs.ClassifierLabeled++
	}

	return fallback, nil
}

// labelFallback runs the Tier-1 labeling path over low-confidence documents.
func labelFallback(
	ctx context.Context,
	rt *Runtime,
	opts *Options,
	rs *RunState,
	taxonomy []Category,
	fallback []int,
) error {
	if len(fallback) == 0 {
		return nil
	}

	labels := make([]Label, len(fallback))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(labelWorkerCount(opts.LabelWorkers, len(fallback)))

	for i, idx := range fallback {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			prompt, err := composeLabelPrompt(gctx, rt, opts, taxonomy, rs.AllDocuments[idx])
			if err != nil {
				return fmt.Errorf("document %s: %w", rs.AllDocuments[idx].ID, err)
			}

			resp, err := rt.Agent.Chat(gctx, prompt)
			if err != nil {
				return fmt.Errorf("document %s: chat call: %w", rs.AllDocuments[idx].ID, err)
			}

			labels[i] = ParseLabel(resp, taxonomy)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	for i, idx := range fallback {
		rs.AllDocuments[idx].Category = labels[i].Category
		rs.AllDocuments[idx].Explanation = labels[i].Explanation

		if labels[i].Category == OtherCategory {
			rs.Skipped++
		}

		for _, w := range labels[i].Warnings {
			rs.Warnings = append(rs.Warnings, fmt.Sprintf("document %s: %s", rs.AllDocuments[idx].ID, w))
		}
	}

	rs.LLMLabeled += len(fallback)
	return nil
}
