package classifier

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
)

// growForest grows cfg.Trees trees from bootstrap samples of the training
// indices. Per-tree seeds are drawn serially so training is deterministic,
// then trees grow in parallel.
func growForest(
	features [][]float64,
	labels []int,
	trainIdx []int,
	weights []float64,
	classes int,
	cfg Config,
	rng *rand.Rand,
) []*tree {
	mtry := max(int(math.Sqrt(float64(len(features[0])))), 1)

	seeds := make([][2]uint64, cfg.Trees)
	for i := range seeds {
		seeds[i] = [2]uint64{rng.Uint64(), rng.Uint64()}
	}

	trees := make([]*tree, cfg.Trees)

	var wg sync.WaitGroup
	sem := make(chan struct{}, max(runtime.NumCPU(), 1))

	for i := range trees {
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			treeRNG := rand.New(rand.NewPCG(seeds[i][0], seeds[i][1]))
			sample := bootstrap(trainIdx, treeRNG)
			trees[i] = growTree(features, labels, sample, weights, classes, cfg.MinLeaf, mtry, treeRNG)
		}()
	}

	wg.Wait()
	return trees
}

func bootstrap(idx []int, rng *rand.Rand) []int {
	sample := make([]int, len(idx))
	for i := range sample {
		sample[i] = idx[rng.IntN(len(idx))]
	}
	return sample
}
