package classifier

import (
	"math"
	"math/rand/v2"
	"sort"
)

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	// dist is the normalized weighted class distribution; non-nil marks a leaf.
	dist []float64
}

type tree struct {
	root *node
}

func (t *tree) classify(x []float64) []float64 {
	n := t.root
	for n.dist == nil {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.dist
}

// growTree builds a CART tree on the given sample indices using weighted
// Gini impurity, sampling mtry candidate features per node.
func growTree(
	features [][]float64,
	labels []int,
	idx []int,
	weights []float64,
	classes, minLeaf, mtry int,
	rng *rand.Rand,
) *tree {
	return &tree{root: growNode(features, labels, idx, weights, classes, minLeaf, mtry, rng)}
}

func growNode(
	features [][]float64,
	labels []int,
	idx []int,
	weights []float64,
	classes, minLeaf, mtry int,
	rng *rand.Rand,
) *node {
	dist, pure := classDistribution(labels, idx, weights, classes)
	if pure || len(idx) < 2*minLeaf {
		return &node{dist: dist}
	}

	feature, threshold, ok := bestSplit(features, labels, idx, weights, classes, minLeaf, mtry, rng)
	if !ok {
		return &node{dist: dist}
	}

	var left, right []int
	for _, i := range idx {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      growNode(features, labels, left, weights, classes, minLeaf, mtry, rng),
		right:     growNode(features, labels, right, weights, classes, minLeaf, mtry, rng),
	}
}

// classDistribution returns the normalized weighted class distribution over
// idx and whether the node is pure.
func classDistribution(labels []int, idx []int, weights []float64, classes int) ([]float64, bool) {
	dist := make([]float64, classes)
	total := 0.0
	for _, i := range idx {
		dist[labels[i]] += weights[i]
		total += weights[i]
	}

	pure := true
	first := labels[idx[0]]
	for _, i := range idx {
		if labels[i] != first {
			pure = false
			break
		}
	}

	if total > 0 {
		for c := range dist {
			dist[c] /= total
		}
	}
	return dist, pure
}

// bestSplit scans mtry random features for the threshold with the lowest
// weighted Gini impurity. Thresholds are midpoints between consecutive
// distinct feature values; splits leaving fewer than minLeaf samples on
// either side are rejected.
func bestSplit(
	features [][]float64,
	labels []int,
	idx []int,
	weights []float64,
	classes, minLeaf, mtry int,
	rng *rand.Rand,
) (int, float64, bool) {
	dims := len(features[idx[0]])
	candidates := rng.Perm(dims)[:min(mtry, dims)]

	bestGini := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	order := make([]int, len(idx))
	leftDist := make([]float64, classes)
	rightDist := make([]float64, classes)

	for _, f := range candidates {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return features[order[a]][f] < features[order[b]][f]
		})

		for c := range leftDist {
			leftDist[c] = 0
			rightDist[c] = 0
		}

		leftWeight := 0.0
		rightWeight := 0.0
		for _, i := range order {
			rightDist[labels[i]] += weights[i]
			rightWeight += weights[i]
		}

		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftDist[labels[i]] += weights[i]
			leftWeight += weights[i]
			rightDist[labels[i]] -= weights[i]
			rightWeight -= weights[i]

			if pos+1 < minLeaf || len(order)-pos-1 < minLeaf {
				continue
			}

			val := features[i][f]
			next := features[order[pos+1]][f]
			if val == next {
				continue
			}

			gini := weightedGini(leftDist, leftWeight, rightDist, rightWeight)
			if gini < bestGini {
				bestGini = gini
				bestFeature = f
				bestThreshold = (val + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func weightedGini(leftDist []float64, leftWeight float64, rightDist []float64, rightWeight float64) float64 {
	total := leftWeight + rightWeight
	if total == 0 {
		return math.Inf(1)
	}
	return leftWeight/total*gini(leftDist, leftWeight) + rightWeight/total*gini(rightDist, rightWeight)
}

func gini(dist []float64, weight float64) float64 {
	if weight == 0 {
		return 0
	}

	impurity := 1.0
	for _, w := range dist {
		p := w / weight
		impurity -= p * p
	}
	return impurity
}
