package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	// featureThreshold is the smallest gap between two feature values that
	// still allows a split between them.
	featureThreshold = 1e-7
	epsilon          = 2.220446049250313e-16
)

// node is one entry of the flattened tree. Leaves have feature == -1.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	impurity  float64
	nSamples  int
	weightedN float64
	value     []float64 // weighted class counts
}

type builderConfig struct {
	criterion           string
	maxDepth            int
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         int
	minImpurityDecrease float64
}

// builder grows a tree depth first.
type builder struct {
	cfg      builderConfig
	cols     [][]float64 // column-major copy of X
	y        []int
	w        []float64
	nClasses int
	rng      *rand.Rand

	nodes       []node
	depth       int
	importances []float64
	totalWeight float64
	impurity    func(counts []float64, total float64) float64
}

func newBuilder(X mat.Matrix, y []int, w []float64, nClasses int, cfg builderConfig, rng *rand.Rand) *builder {
	rows, cols := X.Dims()
	b := &builder{
		cfg:         cfg,
		cols:        make([][]float64, cols),
		y:           y,
		w:           w,
		nClasses:    nClasses,
		rng:         rng,
		importances: make([]float64, cols),
		impurity:    gini,
	}
	if cfg.criterion == CriterionEntropy || cfg.criterion == CriterionLogLoss {
		b.impurity = entropy
	}
	for j := range b.cols {
		b.cols[j] = mat.Col(nil, j, X)
	}
	for i := 0; i < rows; i++ {
		b.totalWeight += w[i]
	}
	return b
}

func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sq := 0.0
	for _, c := range counts {
		p := c / total
		sq += p * p
	}
	return 1 - sq
}

func entropy(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / total
			h -= p * math.Log2(p)
		}
	}
	return h
}

type split struct {
	feature   int
	threshold float64
	pos       int // samples[:pos] go left after sorting by feature
	child     float64
	wLeft     float64
	impLeft   float64
	impRight  float64
}

// build adds the subtree for samples and returns its node index.
func (b *builder) build(samples []int, depth int) int {
	counts := make([]float64, b.nClasses)
	weighted := 0.0
	for _, s := range samples {
		counts[b.y[s]] += b.w[s]
		weighted += b.w[s]
	}
	imp := b.impurity(counts, weighted)

	id := len(b.nodes)
	b.nodes = append(b.nodes, node{
		feature:   -1,
		impurity:  imp,
		nSamples:  len(samples),
		weightedN: weighted,
		value:     counts,
	})
	if depth > b.depth {
		b.depth = depth
	}

	n := len(samples)
	if (b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth) ||
		n < b.cfg.minSamplesSplit ||
		n < 2*b.cfg.minSamplesLeaf ||
		imp <= epsilon {
		return id
	}

	best, ok := b.bestSplit(samples, counts, weighted)
	if !ok {
		return id
	}
	improvement := (weighted / b.totalWeight) *
		(imp - best.wLeft/weighted*best.impLeft - (weighted-best.wLeft)/weighted*best.impRight)
	if improvement+epsilon < b.cfg.minImpurityDecrease {
		return id
	}
	b.importances[best.feature] += weighted*imp - best.wLeft*best.impLeft - (weighted-best.wLeft)*best.impRight

	col := b.cols[best.feature]
	left := make([]int, 0, best.pos)
	right := make([]int, 0, n-best.pos)
	for _, s := range samples {
		if col[s] <= best.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id].feature = best.feature
	b.nodes[id].threshold = best.threshold
	b.nodes[id].left = l
	b.nodes[id].right = r
	return id
}

// featureOrder returns the order in which features are examined. When only a
// subset of features is considered per split the order is random.
func (b *builder) featureOrder() []int {
	order := make([]int, len(b.cols))
	for i := range order {
		order[i] = i
	}
	if b.cfg.maxFeatures < len(b.cols) {
		b.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

// bestSplit searches up to maxFeatures non-constant features for the split
// with the lowest weighted child impurity.
func (b *builder) bestSplit(samples []int, counts []float64, weighted float64) (split, bool) {
	best := split{child: math.Inf(1)}
	found := false
	n := len(samples)
	sorted := make([]int, n)
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)

	visited := 0
	for _, f := range b.featureOrder() {
		if visited >= b.cfg.maxFeatures {
			break
		}
		col := b.cols[f]
		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool { return col[sorted[i]] < col[sorted[j]] })
		if col[sorted[n-1]] <= col[sorted[0]]+featureThreshold {
			continue
		}
		visited++

		for k := range leftCounts {
			leftCounts[k] = 0
		}
		wLeft := 0.0
		for i := 0; i < n-1; i++ {
			s := sorted[i]
			leftCounts[b.y[s]] += b.w[s]
			wLeft += b.w[s]

			next := col[sorted[i+1]]
			if next <= col[s]+featureThreshold {
				continue
			}
			nLeft := i + 1
			if nLeft < b.cfg.minSamplesLeaf || n-nLeft < b.cfg.minSamplesLeaf {
				continue
			}
			for k := range rightCounts {
				rightCounts[k] = counts[k] - leftCounts[k]
			}
			wRight := weighted - wLeft
			impL := b.impurity(leftCounts, wLeft)
			impR := b.impurity(rightCounts, wRight)
			child := wLeft*impL + wRight*impR
			if child < best.child {
				threshold := col[s]/2 + next/2
				if threshold == next || math.IsInf(threshold, 0) {
					threshold = col[s]
				}
				best = split{
					feature:   f,
					threshold: threshold,
					pos:       nLeft,
					child:     child,
					wLeft:     wLeft,
					impLeft:   impL,
					impRight:  impR,
				}
				found = true
			}
		}
	}
	return best, found
}

// normalizedImportances scales the accumulated impurity decreases to sum to one.
func (b *builder) normalizedImportances() []float64 {
	out := make([]float64, len(b.importances))
	total := 0.0
	for _, v := range b.importances {
		total += v
	}
	if total <= 0 {
		return out
	}
	for i, v := range b.importances {
		out[i] = v / total
	}
	return out
}
