// Package classifier implements a random forest over embedding vectors for
// extending a labeled document sample to a full corpus. Class imbalance is
// handled with balanced instance weights; predictions expose a posterior
// probability so callers can route low-confidence documents elsewhere.
package classifier

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrNoTrainingData indicates an empty or unusable training set.
var ErrNoTrainingData = errors.New("no training data")

// Config controls forest training.
type Config struct {
	// Trees is the number of trees grown from bootstrap samples.
	Trees int
	// TestFraction is the held-out share for evaluation. When the set is
	// too small to stratify, evaluation runs on the training set instead.
	TestFraction float64
	// MinLeaf is the minimum sample count in a leaf.
	MinLeaf int
	// Seed makes training deterministic for a given input.
	Seed uint64
}

// DefaultConfig returns the standard training configuration.
func DefaultConfig() Config {
	return Config{
		Trees:        100,
		TestFraction: 0.2,
		MinLeaf:      1,
		Seed:         42,
	}
}

// Model is a trained random forest.
type Model struct {
	trees   []*tree
	classes int
}

// Metrics reports model quality on the train and test partitions.
type Metrics struct {
	TrainAccuracy float64 `json:"train_accuracy"`
	TestAccuracy  float64 `json:"test_accuracy"`
	TrainF1       float64 `json:"train_f1"`
	TestF1        float64 `json:"test_f1"`
}

// Train grows a random forest on the given feature vectors and class labels.
// Labels must lie in [0, classes). The split is stratified when every
// present class has at least two members and more than one class is present;
// otherwise the full set serves as both partitions.
func Train(features [][]float64, labels []int, classes int, cfg Config) (*Model, Metrics, error) {
	if len(features) == 0 {
		return nil, Metrics{}, ErrNoTrainingData
	}
	if len(features) != len(labels) {
		return nil, Metrics{}, fmt.Errorf("%w: %d feature vectors for %d labels", ErrNoTrainingData, len(features), len(labels))
	}
	if classes < 1 {
		return nil, Metrics{}, fmt.Errorf("%w: class count must be positive, got %d", ErrNoTrainingData, classes)
	}

	dims := len(features[0])
	if dims == 0 {
		return nil, Metrics{}, fmt.Errorf("%w: zero-dimensional feature vectors", ErrNoTrainingData)
	}
	for i, f := range features {
		if len(f) != dims {
			return nil, Metrics{}, fmt.Errorf("%w: feature vector %d has %d dimensions, want %d", ErrNoTrainingData, i, len(f), dims)
		}
		if labels[i] < 0 || labels[i] >= classes {
			return nil, Metrics{}, fmt.Errorf("%w: label %d out of range [0, %d)", ErrNoTrainingData, labels[i], classes)
		}
	}

	if cfg.Trees <= 0 {
		cfg.Trees = DefaultConfig().Trees
	}
	if cfg.MinLeaf <= 0 {
		cfg.MinLeaf = 1
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0))

	trainIdx, testIdx := split(labels, cfg.TestFraction, rng)
	weights := balancedWeights(labels, trainIdx, classes)

	model := &Model{
		trees:   growForest(features, labels, trainIdx, weights, classes, cfg, rng),
		classes: classes,
	}

	return model, evaluate(model, features, labels, trainIdx, testIdx), nil
}

// Proba returns the averaged leaf class distribution across all trees.
func (m *Model) Proba(x []float64) []float64 {
	proba := make([]float64, m.classes)
	for _, t := range m.trees {
		dist := t.classify(x)
		for c, p := range dist {
			proba[c] += p
		}
	}
	for c := range proba {
		proba[c] /= float64(len(m.trees))
	}
	return proba
}

// Predict returns the most probable class.
func (m *Model) Predict(x []float64) int {
	class, _ := m.Classify(x)
	return class
}

// Classify returns the most probable class and its posterior probability.
func (m *Model) Classify(x []float64) (int, float64) {
	proba := m.Proba(x)

	best := 0
	for c, p := range proba {
		if p > proba[best] {
			best = c
		}
	}
	return best, proba[best]
}

// split partitions sample indices into train and test sets, stratified per
// class. Sets too small to hold out from are evaluated in-sample: both
// partitions cover everything.
func split(labels []int, testFraction float64, rng *rand.Rand) (train, test []int) {
	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	minCount := len(labels)
	for _, members := range byClass {
		minCount = min(minCount, len(members))
	}

	if len(byClass) < 2 || minCount < 2 || testFraction <= 0 || testFraction >= 1 {
		all := make([]int, len(labels))
		for i := range all {
			all[i] = i
		}
		return all, all
	}

	for _, members := range byClass {
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})

		held := int(float64(len(members)) * testFraction)
		held = max(held, 1)
		held = min(held, len(members)-1)

		test = append(test, members[:held]...)
		train = append(train, members[held:]...)
	}

	return train, test
}

// balancedWeights assigns each training sample the weight
// n / (classes_present * class_count) so minority classes contribute as much
// impurity as majority ones.
func balancedWeights(labels []int, trainIdx []int, classes int) []float64 {
	counts := make([]float64, classes)
	for _, idx := range trainIdx {
		counts[labels[idx]]++
	}

	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}

	n := float64(len(trainIdx))
	weights := make([]float64, len(labels))
	for _, idx := range trainIdx {
		weights[idx] = n / (float64(present) * counts[labels[idx]])
	}
	return weights
}

func evaluate(m *Model, features [][]float64, labels []int, trainIdx, testIdx []int) Metrics {
	trainPred := predictAll(m, features, trainIdx)
	testPred := predictAll(m, features, testIdx)

	trainTruth := gather(labels, trainIdx)
	testTruth := gather(labels, testIdx)

	return Metrics{
		TrainAccuracy: accuracy(trainPred, trainTruth),
		TestAccuracy:  accuracy(testPred, testTruth),
		TrainF1:       weightedF1(trainPred, trainTruth, m.classes),
		TestF1:        weightedF1(testPred, testTruth, m.classes),
	}
}

func predictAll(m *Model, features [][]float64, idx []int) []int {
	pred := make([]int, len(idx))
	for i, j := range idx {
		pred[i] = m.Predict(features[j])
	}
	return pred
}

func gather(labels []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}
