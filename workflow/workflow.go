package workflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// Execute runs the full pipeline over the given documents. Options are
// finalized before any LLM call; the returned result carries the
// authoritative taxonomy, the labeled documents in input order, and the run
// telemetry.
func Execute(ctx context.Context, rt *Runtime, docs []Document, opts Options) (*RunResult, error) {
	started := time.Now()

	if err := opts.Finalize(len(docs)); err != nil {
		return nil, err
	}

	graph, err := buildGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	// The run state owns its document list. Labeling mutates it in place, so
	// the caller's slice is cloned and the result never aliases the input.
	initialState := state.New(nil)
	initialState = initialState.Set(KeyOptions, opts)
	initialState = initialState.Set(KeyRunState, RunState{AllDocuments: slices.Clone(docs)})

	finalState, err := graph.Execute(ctx, initialState)
	if err != nil {
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	return extractResult(finalState, started)
}

func buildGraph(rt *Runtime) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("delve-taxonomy")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	nodes := map[string]state.StateNode{
		"init":       InitNode(rt),
		"batch":      BatchNode(rt),
		"synthesize": SynthesizeNode(rt),
		"update":     UpdateNode(rt),
		"review":     ReviewNode(rt),
		"decide":     DecideNode(rt),
		"label":      LabelNode(rt),
		"classify":   ClassifyNode(rt),
	}

	for name, node := range nodes {
		if err := graph.AddNode(name, node); err != nil {
			return nil, err
		}
	}

	// init → label (predefined taxonomy skips discovery)
	if err := graph.AddEdge("init", "label", hasPredefined); err != nil {
		return nil, err
	}

	// init → batch (discovery path)
	if err := graph.AddEdge("init", "batch", state.Not(hasPredefined)); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("batch", "synthesize", nil); err != nil {
		return nil, err
	}

	// synthesize → update (minibatches remain beyond the first)
	if err := graph.AddEdge("synthesize", "update", needsUpdate); err != nil {
		return nil, err
	}

	// synthesize → review (single minibatch)
	if err := graph.AddEdge("synthesize", "review", state.Not(needsUpdate)); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("update", "review", nil); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("review", "decide", nil); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("decide", "label", nil); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("label", "classify", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("init"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("classify"); err != nil {
		return nil, err
	}

	return graph, nil
}

func extractRunState(s state.State) (*RunState, error) {
	val, ok := s.Get(KeyRunState)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", KeyRunState)
	}

	rs, ok := val.(RunState)
	if !ok {
		return nil, fmt.Errorf("%s is not RunState", KeyRunState)
	}

	return &rs, nil
}

func extractOptions(s state.State) (*Options, error) {
	val, ok := s.Get(KeyOptions)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", KeyOptions)
	}

	opts, ok := val.(Options)
	if !ok {
		return nil, fmt.Errorf("%s is not Options", KeyOptions)
	}

	return &opts, nil
}

func extractResult(s state.State, started time.Time) (*RunResult, error) {
	rs, err := extractRunState(s)
	if err != nil {
		return nil, err
	}

	taxonomy := rs.Taxonomy()
	if len(taxonomy) == 0 {
		return nil, ErrEmptyTaxonomy
	}

	return &RunResult{
		Taxonomy:               taxonomy,
		Documents:              rs.AllDocuments,
		LLMLabeledCount:        rs.LLMLabeled,
		ClassifierLabeledCount: rs.ClassifierLabeled,
		SkippedCount:           rs.Skipped,
		ClassifierMetrics:      rs.Metrics,
		Warnings:               rs.Warnings,
		Status:                 rs.Status,
		Duration:               time.Since(started),
		CompletedAt:            time.Now(),
	}, nil
}

func hasPredefined(s state.State) bool {
	opts, err := extractOptions(s)
	if err != nil {
		return false
	}
	return len(opts.PredefinedTaxonomy) > 0
}

// needsUpdate reports whether minibatches beyond the first remain. With a
// single minibatch the initial synthesis is final and goes straight to
// review.
func needsUpdate(s state.State) bool {
	rs, err := extractRunState(s)
	if err != nil {
		return false
	}
	return rs.Revisions() < len(rs.Minibatches)
}
