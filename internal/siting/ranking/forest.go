package ranking

import (
	"math"
	"math/rand/v2"
	"sort"
)

// ForestConfig sizes a random forest.
type ForestConfig struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
}

// Forest is a bagged ensemble of Gini decision trees for binary labels.
type Forest struct {
	cfg   ForestConfig
	trees []*treeNode
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	leaf      bool
	positive  float64 // fraction of label-1 samples reaching this leaf
}

// NewForest returns an untrained forest. Zero config fields take the defaults
// of 100 trees, depth 8 and leaves of at least one sample.
func NewForest(cfg ForestConfig) *Forest {
	if cfg.Trees < 1 {
		cfg.Trees = 100
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 8
	}
	if cfg.MinLeaf < 1 {
		cfg.MinLeaf = 1
	}
	return &Forest{cfg: cfg}
}

// Fit trains each tree on a bootstrap sample of (X, y), considering
// floor(sqrt(features)) candidate features per split.
func (f *Forest) Fit(X [][]float64, y []int, rng *rand.Rand) {
	f.trees = make([]*treeNode, 0, f.cfg.Trees)
	if len(X) == 0 {
		return
	}
	features := len(X[0])
	mtry := int(math.Sqrt(float64(features)))
	if mtry < 1 {
		mtry = 1
	}

	b := &treeBuilder{X: X, y: y, cfg: f.cfg, mtry: mtry, features: features, rng: rng}
	for t := 0; t < f.cfg.Trees; t++ {
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.IntN(len(X))
		}
		f.trees = append(f.trees, b.build(sample, 0))
	}
}

// PredictProba returns the positive-class probability for x, the mean leaf
// positive fraction across trees.
func (f *Forest) PredictProba(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	var sum float64
	for _, root := range f.trees {
		n := root
		for !n.leaf {
			if x[n.feature] <= n.threshold {
				n = n.left
			} else {
				n = n.right
			}
		}
		sum += n.positive
	}
	return sum / float64(len(f.trees))
}

type treeBuilder struct {
	X        [][]float64
	y        []int
	cfg      ForestConfig
	mtry     int
	features int
	rng      *rand.Rand
}

func (b *treeBuilder) build(idx []int, depth int) *treeNode {
	pos := 0
	for _, i := range idx {
		pos += b.y[i]
	}
	leaf := &treeNode{leaf: true, positive: float64(pos) / float64(len(idx))}
	if pos == 0 || pos == len(idx) || depth >= b.cfg.MaxDepth || len(idx) < 2*b.cfg.MinLeaf {
		return leaf
	}

	bestFeature, bestThreshold, bestImpurity := -1, 0.0, math.Inf(1)
	for _, feature := range b.rng.Perm(b.features)[:b.mtry] {
		threshold, impurity, ok := b.bestSplit(idx, feature, pos)
		if ok && impurity < bestImpurity {
			bestFeature, bestThreshold, bestImpurity = feature, threshold, impurity
		}
	}
	if bestFeature < 0 {
		return leaf
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
	}
}

// bestSplit scans the midpoints between distinct sorted values of feature and
// returns the threshold minimizing weighted Gini impurity.
func (b *treeBuilder) bestSplit(idx []int, feature, totalPos int) (float64, float64, bool) {
	sorted := make([]int, len(idx))
	copy(sorted, idx)
	sort.Slice(sorted, func(i, j int) bool { return b.X[sorted[i]][feature] < b.X[sorted[j]][feature] })

	n := len(sorted)
	bestThreshold, bestImpurity, found := 0.0, math.Inf(1), false
	leftPos := 0
	for k := 1; k < n; k++ {
		leftPos += b.y[sorted[k-1]]
		lo, hi := b.X[sorted[k-1]][feature], b.X[sorted[k]][feature]
		if lo == hi || k < b.cfg.MinLeaf || n-k < b.cfg.MinLeaf {
			continue
		}
		impurity := float64(k)*gini(leftPos, k) + float64(n-k)*gini(totalPos-leftPos, n-k)
		if impurity < bestImpurity {
			bestThreshold, bestImpurity, found = lo+(hi-lo)/2, impurity, true
		}
	}
	return bestThreshold, bestImpurity, found
}

func gini(pos, n int) float64 {
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
