package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/aitorress/delve-taxonomy/internal/prompts"
	"github.com/aitorress/delve-taxonomy/workflow"
)

const clusterTableResponse = `<cluster_table>
  <cluster>
    <id>1</id>
    <name>Alpha</name>
    <description>Readings from the east sensor array</description>
  </cluster>
  <cluster>
    <id>2</id>
    <name>Beta</name>
    <description>Readings from the west sensor array</description>
  </cluster>
</cluster_table>`

// stagePrompts prefixes every prompt with its stage so the scripted agent can
// route responses without a live model.
type stagePrompts struct{}

func (stagePrompts) Instructions(_ context.Context, stage prompts.Stage) (string, error) {
	return fmt.Sprintf("[%s]", stage), nil
}

func (stagePrompts) Spec(_ context.Context, stage prompts.Stage) (string, error) {
	return fmt.Sprintf("respond in %s markup", stage), nil
}

// scriptedAgent returns the fixed cluster table for taxonomy stages and
// resolves labels from the document text embedded in the prompt.
type scriptedAgent struct {
	mu      sync.Mutex
	prompts []string
}

func (a *scriptedAgent) Chat(_ context.Context, prompt string) (string, error) {
	a.mu.Lock()
	a.prompts = append(a.prompts, prompt)
	a.mu.Unlock()

	if strings.HasPrefix(prompt, "[label]") {
		if strings.Contains(prompt, "<text>alpha") {
			return "<category_id>1</category_id>\n<explanation>Mentions the east array.</explanation>", nil
		}
		return "<category_id>2</category_id>\n<explanation>Mentions the west array.</explanation>", nil
	}

	return clusterTableResponse, nil
}

func (a *scriptedAgent) captured() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.prompts...)
}

func countPrefix(captured []string, prefix string) int {
	n := 0
	for _, p := range captured {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// keywordEmbedder maps document text onto a two-dimensional one-hot space so
// classifier behavior is fully separable.
type keywordEmbedder struct{}

func (keywordEmbedder) EmbedBatch(_ context.Context, _ string, inputs []string) ([][]float64, error) {
	vectors := make([][]float64, len(inputs))
	for i, text := range inputs {
		if strings.Contains(text, "alpha") {
			vectors[i] = []float64{1, 0}
		} else {
			vectors[i] = []float64{0, 1}
		}
	}
	return vectors, nil
}

func newRuntime(agent *scriptedAgent, decide workflow.DecideFunc) *workflow.Runtime {
	return &workflow.Runtime{
		Agent:    agent,
		Embedder: keywordEmbedder{},
		Prompts:  stagePrompts{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Decide:   decide,
	}
}

func sensorDocuments(n int) []workflow.Document {
	docs := make([]workflow.Document, n)
	for i := range docs {
		kind := "alpha"
		if i%2 == 1 {
			kind = "beta"
		}
		docs[i] = workflow.Document{
			ID:      fmt.Sprintf("doc-%02d", i),
			Content: fmt.Sprintf("%s reading %d from the sensor array", kind, i),
		}
	}
	return docs
}

func expectedCategory(d workflow.Document) string {
	if strings.Contains(d.Content, "alpha") {
		return "Alpha"
	}
	return "Beta"
}

func TestExecuteDiscoveryPath(t *testing.T) {
	agent := &scriptedAgent{}
	rt := newRuntime(agent, nil)
	docs := sensorDocuments(5)

	result, err := workflow.Execute(context.Background(), rt, docs, workflow.Options{BatchSize: 2})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if len(result.Taxonomy) != 2 || result.Taxonomy[0].Name != "Alpha" || result.Taxonomy[1].Name != "Beta" {
		t.Fatalf("taxonomy = %+v", result.Taxonomy)
	}

	if result.LLMLabeledCount != 5 {
		t.Errorf("LLMLabeledCount = %d, want 5", result.LLMLabeledCount)
	}
	if result.ClassifierLabeledCount != 0 {
		t.Errorf("ClassifierLabeledCount = %d, want 0", result.ClassifierLabeledCount)
	}
	if result.SkippedCount != 0 {
		t.Errorf("SkippedCount = %d, want 0", result.SkippedCount)
	}
	if result.ClassifierMetrics != nil {
		t.Errorf("ClassifierMetrics = %+v, want nil when sample covers all", result.ClassifierMetrics)
	}

	if len(result.Documents) != len(docs) {
		t.Fatalf("document count = %d, want %d", len(result.Documents), len(docs))
	}
	for i, d := range result.Documents {
		if d.ID != docs[i].ID {
			t.Errorf("document %d id = %q, input order not preserved", i, d.ID)
		}
		if d.Category != expectedCategory(d) {
			t.Errorf("document %s category = %q, want %q", d.ID, d.Category, expectedCategory(d))
		}
		if d.Explanation == "" {
			t.Errorf("document %s missing explanation", d.ID)
		}
	}

	captured := agent.captured()
	if got := countPrefix(captured, "[synthesize]"); got != 1 {
		t.Errorf("synthesize calls = %d, want 1", got)
	}
	if got := countPrefix(captured, "[update]"); got != 2 {
		t.Errorf("update calls = %d, want 2", got)
	}
	if got := countPrefix(captured, "[review]"); got != 1 {
		t.Errorf("review calls = %d, want 1", got)
	}
	if got := countPrefix(captured, "[label]"); got != 5 {
		t.Errorf("label calls = %d, want 5", got)
	}

	joined := strings.Join(result.Status, "\n")
	if !strings.Contains(joined, "Sampled 5 of 5 documents") {
		t.Errorf("status missing sample entry:\n%s", joined)
	}
	if !strings.Contains(joined, "Split 5 documents into 3 minibatches") {
		t.Errorf("status missing minibatch entry:\n%s", joined)
	}

	if result.Duration <= 0 {
		t.Error("Duration not recorded")
	}
	if result.CompletedAt.IsZero() {
		t.Error("CompletedAt not recorded")
	}
}

func TestExecutePredefinedTaxonomy(t *testing.T) {
	agent := &scriptedAgent{}
	rt := newRuntime(agent, nil)
	docs := sensorDocuments(4)

	predefined := []workflow.Category{
		{ID: "1", Name: "Alpha", Description: "Readings from the east sensor array"},
		{ID: "2", Name: "Beta", Description: "Readings from the west sensor array"},
	}

	result, err := workflow.Execute(context.Background(), rt, docs, workflow.Options{
		BatchSize:          4,
		PredefinedTaxonomy: predefined,
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if len(result.Taxonomy) != 2 || result.Taxonomy[0].Name != "Alpha" {
		t.Fatalf("taxonomy = %+v, want predefined categories", result.Taxonomy)
	}

	captured := agent.captured()
	for _, prefix := range []string{"[synthesize]", "[update]", "[review]"} {
		if got := countPrefix(captured, prefix); got != 0 {
			t.Errorf("%s calls = %d, want 0 with predefined taxonomy", prefix, got)
		}
	}
	if got := countPrefix(captured, "[label]"); got != 4 {
		t.Errorf("label calls = %d, want 4", got)
	}

	for _, d := range result.Documents {
		if d.Category != expectedCategory(d) {
			t.Errorf("document %s category = %q, want %q", d.ID, d.Category, expectedCategory(d))
		}
	}
}

func TestExecuteDecideLoop(t *testing.T) {
	agent := &scriptedAgent{}

	var calls int
	decide := func(_ context.Context, taxonomy []workflow.Category) (workflow.Decision, error) {
		calls++
		if len(taxonomy) == 0 {
			t.Error("decide hook received empty taxonomy")
		}
		if calls == 1 {
			return workflow.Decision{Modify: true, Feedback: "Merge overlapping categories"}, nil
		}
		return workflow.Decision{}, nil
	}

	rt := newRuntime(agent, decide)
	docs := sensorDocuments(4)

	result, err := workflow.Execute(context.Background(), rt, docs, workflow.Options{BatchSize: 4})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if calls != 2 {
		t.Errorf("decide calls = %d, want 2", calls)
	}

	captured := agent.captured()
	withFeedback := 0
	for _, p := range captured {
		if strings.Contains(p, "Reviewer feedback: Merge overlapping categories") {
			withFeedback++
		}
	}
	if withFeedback != 1 {
		t.Errorf("prompts carrying reviewer feedback = %d, want exactly 1", withFeedback)
	}

	if got := countPrefix(captured, "[update]"); got != 1 {
		t.Errorf("update calls = %d, want 1 rejection pass", got)
	}
	if got := countPrefix(captured, "[review]"); got != 2 {
		t.Errorf("review calls = %d, want 2", got)
	}

	joined := strings.Join(result.Status, "\n")
	if !strings.Contains(joined, "Taxonomy approved after") {
		t.Errorf("status missing approval entry:\n%s", joined)
	}
}

func TestExecuteClassifierTier(t *testing.T) {
	agent := &scriptedAgent{}
	rt := newRuntime(agent, nil)
	docs := sensorDocuments(12)

	result, err := workflow.Execute(context.Background(), rt, docs, workflow.Options{
		SampleSize: 11,
		BatchSize:  11,
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if result.LLMLabeledCount != 11 {
		t.Errorf("LLMLabeledCount = %d, want 11", result.LLMLabeledCount)
	}
	if result.ClassifierLabeledCount != 1 {
		t.Errorf("ClassifierLabeledCount = %d, want 1", result.ClassifierLabeledCount)
	}
	if result.ClassifierMetrics == nil {
		t.Fatal("ClassifierMetrics missing after classifier tier ran")
	}
	if result.ClassifierMetrics.TestAccuracy != 1.0 {
		t.Errorf("TestAccuracy = %g, want 1.0 on separable embeddings", result.ClassifierMetrics.TestAccuracy)
	}

	for _, d := range result.Documents {
		if d.Category != expectedCategory(d) {
			t.Errorf("document %s category = %q, want %q", d.ID, d.Category, expectedCategory(d))
		}
	}

	joined := strings.Join(result.Status, "\n")
	if !strings.Contains(joined, "Trained classifier on 11 documents") {
		t.Errorf("status missing training entry:\n%s", joined)
	}
	if !strings.Contains(joined, "Classified 1 remaining documents") {
		t.Errorf("status missing classify entry:\n%s", joined)
	}
}

// flatEmbedder collapses every document onto the same point so classifier
// predictions carry no more confidence than the class prior.
type flatEmbedder struct{}

func (flatEmbedder) EmbedBatch(_ context.Context, _ string, inputs []string) ([][]float64, error) {
	vectors := make([][]float64, len(inputs))
	for i := range inputs {
		vectors[i] = []float64{0.5, 0.5}
	}
	return vectors, nil
}

func TestExecuteConfidenceFallback(t *testing.T) {
	agent := &scriptedAgent{}
	rt := newRuntime(agent, nil)
	rt.Embedder = flatEmbedder{}
	docs := sensorDocuments(12)

	result, err := workflow.Execute(context.Background(), rt, docs, workflow.Options{
		SampleSize:          11,
		BatchSize:           11,
		ConfidenceThreshold: 0.9,
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if result.ClassifierLabeledCount != 0 {
		t.Errorf("ClassifierLabeledCount = %d, want 0 below the threshold", result.ClassifierLabeledCount)
	}
	if result.LLMLabeledCount != 12 {
		t.Errorf("LLMLabeledCount = %d, want 12 with the fallback counted", result.LLMLabeledCount)
	}
	if result.SkippedCount != 0 {
		t.Errorf("SkippedCount = %d, want 0", result.SkippedCount)
	}
	if result.ClassifierMetrics == nil {
		t.Error("ClassifierMetrics missing after classifier tier ran")
	}

	if got := countPrefix(agent.captured(), "[label]"); got != 12 {
		t.Errorf("label calls = %d, want 12 with the low-confidence document rerouted", got)
	}

	for _, d := range result.Documents {
		if d.Category != expectedCategory(d) {
			t.Errorf("document %s category = %q, want %q", d.ID, d.Category, expectedCategory(d))
		}
		if d.Explanation == "" {
			t.Errorf("document %s missing explanation", d.ID)
		}
	}

	joined := strings.Join(result.Status, "\n")
	if !strings.Contains(joined, "(0 by classifier, 1 by language model fallback)") {
		t.Errorf("status missing fallback accounting:\n%s", joined)
	}
}

func TestExecuteDoesNotMutateInput(t *testing.T) {
	agent := &scriptedAgent{}
	rt := newRuntime(agent, nil)
	docs := sensorDocuments(4)

	result, err := workflow.Execute(context.Background(), rt, docs, workflow.Options{BatchSize: 4})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	for _, d := range docs {
		if d.Category != "" || d.Explanation != "" {
			t.Errorf("input document %s mutated: category %q, explanation %q", d.ID, d.Category, d.Explanation)
		}
	}

	result.Documents[0].Category = "Mutated"
	if docs[0].Category == "Mutated" {
		t.Error("result documents alias the input slice")
	}
}

func TestExecuteValidation(t *testing.T) {
	rt := newRuntime(&scriptedAgent{}, nil)

	t.Run("empty document set", func(t *testing.T) {
		_, err := workflow.Execute(context.Background(), rt, nil, workflow.Options{})
		if !errors.Is(err, workflow.ErrEmptyDocumentSet) {
			t.Errorf("error = %v, want ErrEmptyDocumentSet", err)
		}
	})

	t.Run("invalid options", func(t *testing.T) {
		docs := sensorDocuments(3)
		_, err := workflow.Execute(context.Background(), rt, docs, workflow.Options{BatchSize: -1})
		if !errors.Is(err, workflow.ErrInvalidOptions) {
			t.Errorf("error = %v, want ErrInvalidOptions", err)
		}
	})
}

func TestExecuteEmptyTaxonomyResponse(t *testing.T) {
	rt := &workflow.Runtime{
		Agent:    emptyAgent{},
		Embedder: keywordEmbedder{},
		Prompts:  stagePrompts{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := workflow.Execute(context.Background(), rt, sensorDocuments(3), workflow.Options{BatchSize: 3})
	if err == nil {
		t.Fatal("Execute succeeded on an unparseable synthesis response")
	}
	if !strings.Contains(err.Error(), "synthes") {
		t.Errorf("error = %v, want synthesis failure", err)
	}
}

type emptyAgent struct{}

func (emptyAgent) Chat(context.Context, string) (string, error) {
	return "no taxonomy here", nil
}
