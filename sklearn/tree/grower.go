package tree

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/YuminosukeSato/ensembles/core/parallel"
	"github.com/YuminosukeSato/ensembles/core/random"
	"github.com/YuminosukeSato/ensembles/dataset"
	"github.com/YuminosukeSato/ensembles/metrics"
)

// growConfig is the validated subset of the regressor's hyperparameters the
// grower reads.
type growConfig struct {
	maxDepth        int // < 0 means unbounded
	maxFeatures     int // already clamped to [1, C]
	minSamplesSplit int
	minSamplesLeaf  int
	maxBin          int
}

// grower builds one arena level by level. Per-node decisions run in
// parallel on exec and return owned splitResults; only commit mutates the
// arena.
type grower struct {
	cfg   growConfig
	data  *dataset.Dataset
	order *dataset.ColumnOrder
	exec  *parallel.Executor
	src   *random.Source
}

// frontierNode is a node eligible for splitting together with the rows it
// owns.
type frontierNode struct {
	index int
	rows  *roaring.Bitmap
}

// splitResult is the outcome of a successful per-node split search.
type splitResult struct {
	feature   int
	threshold float64
	cost      float64
	left      Node
	right     Node
	leftRows  *roaring.Bitmap
	rightRows *roaring.Bitmap
}

// growth is what a finished grow returns: the arena, the rows each leaf
// owned when growth stopped, and the variance reduction per feature.
type growth struct {
	nodes       []Node
	leaves      map[int]*roaring.Bitmap
	importances []float64
	rounds      int
}

func (g *grower) grow() growth {
	n := g.data.Rows()
	labels := g.data.Labels()

	all := roaring.New()
	all.AddRange(0, uint64(n))

	nodes := []Node{{
		Value:    metrics.Mean(labels),
		Depth:    0,
		Variance: metrics.Variance(labels),
		Split:    Leaf{},
	}}
	out := growth{
		leaves:      make(map[int]*roaring.Bitmap),
		importances: make([]float64, g.data.Cols()),
	}

	frontier := []frontierNode{{index: 0, rows: all}}
	for len(frontier) > 0 {
		out.rounds++
		// seeds are drawn before fanning out so the result does not depend
		// on scheduling
		seeds := g.src.Seeds(len(frontier))
		results := make([]*splitResult, len(frontier))
		_ = g.exec.ForEach(len(frontier), func(i int) error {
			results[i] = g.findSplit(nodes[frontier[i].index], frontier[i].rows, seeds[i])
			return nil
		})

		var next []frontierNode
		for i, res := range results {
			parent := frontier[i].index
			if res == nil {
				out.leaves[parent] = frontier[i].rows
				continue
			}
			left := len(nodes)
			nodes = append(nodes, res.left)
			right := len(nodes)
			nodes = append(nodes, res.right)

			out.importances[res.feature] += nodes[parent].Variance - res.cost
			nodes[parent].Split = Stem{Feature: res.feature, Threshold: res.threshold, Left: left, Right: right}
			nodes[parent].Variance = res.cost

			next = append(next,
				frontierNode{index: left, rows: res.leftRows},
				frontierNode{index: right, rows: res.rightRows})
		}
		frontier = next
	}

	out.nodes = nodes
	return out
}

// featureSplit is the best boundary found on one feature.
type featureSplit struct {
	ok        bool
	feature   int
	cost      float64
	leftVar   float64
	rightVar  float64
	leftCount int
	threshold float64
}

// candidateFeatures returns the features searched at a node in ascending
// order, so cost ties always resolve to the lowest feature index.
func (g *grower) candidateFeatures(seed uint64) []int {
	cols := g.data.Cols()
	if g.cfg.maxFeatures >= cols {
		features := make([]int, cols)
		for f := range features {
			features[f] = f
		}
		return features
	}
	return random.New(seed).Sample(cols, g.cfg.maxFeatures)
}

// findSplit decides whether node splits. It returns nil when the node stays
// a leaf.
func (g *grower) findSplit(node Node, rows *roaring.Bitmap, seed uint64) *splitResult {
	n := int(rows.GetCardinality())
	if g.cfg.maxDepth >= 0 && node.Depth >= g.cfg.maxDepth {
		return nil
	}
	if n < g.cfg.minSamplesSplit || n < 2 {
		return nil
	}

	bins := min(g.cfg.maxBin, n)
	binSize := n / bins

	features := g.candidateFeatures(seed)

	candidates := make([]featureSplit, len(features))
	_ = g.exec.ForEach(len(features), func(k int) error {
		candidates[k] = g.bestBoundary(features[k], rows, n, bins, binSize)
		return nil
	})

	best := -1
	for k := range candidates {
		if !candidates[k].ok {
			continue
		}
		if best < 0 || candidates[k].cost < candidates[best].cost {
			best = k
		}
	}
	if best < 0 {
		return nil
	}
	win := candidates[best]
	if !(win.cost < node.Variance) {
		return nil
	}
	rightCount := n - win.leftCount
	if win.leftCount < g.cfg.minSamplesLeaf || rightCount < g.cfg.minSamplesLeaf {
		return nil
	}
	if win.leftCount == 0 || rightCount == 0 {
		return nil
	}

	return g.partition(node, rows, win, rightCount)
}

// bestBoundary walks feature f's global order restricted to rows and scores
// every interior bin boundary. Position p = k*binSize splits the node's
// ordered rows into [0, p) and [p, n). Boundaries between equal feature
// values are skipped, so "x <= threshold" reproduces the partition.
func (g *grower) bestBoundary(f int, rows *roaring.Bitmap, n, bins, binSize int) featureSplit {
	ordered := make([]int, 0, n)
	for _, r := range g.order.Feature(f) {
		if rows.Contains(uint32(r)) {
			ordered = append(ordered, r)
		}
	}

	labels := g.data.Labels()
	// fwd[p] is the SSE of positions [0, p); bwd[p] of [p, n)
	fwd := make([]float64, n+1)
	bwd := make([]float64, n+1)
	var mean, m2 float64
	for i := 0; i < n; i++ {
		y := labels[ordered[i]]
		delta := y - mean
		mean += delta / float64(i+1)
		m2 += delta * (y - mean)
		fwd[i+1] = m2
	}
	mean, m2 = 0, 0
	for i := n - 1; i >= 0; i-- {
		y := labels[ordered[i]]
		delta := y - mean
		mean += delta / float64(n-i)
		m2 += delta * (y - mean)
		bwd[i] = m2
	}

	best := featureSplit{feature: f}
	for k := 1; k < bins; k++ {
		p := k * binSize
		lo, hi := g.data.At(ordered[p-1], f), g.data.At(ordered[p], f)
		if dataset.CompareValues(lo, hi) == 0 {
			continue
		}
		cost := fwd[p] + bwd[p]
		if !best.ok || cost < best.cost {
			best = featureSplit{
				ok:        true,
				feature:   f,
				cost:      cost,
				leftVar:   fwd[p],
				rightVar:  bwd[p],
				leftCount: p,
				threshold: lo,
			}
		}
	}
	return best
}

// partition splits rows at the winning boundary: the first leftCount rows
// of the feature's order go left.
func (g *grower) partition(node Node, rows *roaring.Bitmap, win featureSplit, rightCount int) *splitResult {
	labels := g.data.Labels()
	leftRows := roaring.New()
	rightRows := roaring.New()
	var leftSum, rightSum float64

	seen := 0
	for _, r := range g.order.Feature(win.feature) {
		if !rows.Contains(uint32(r)) {
			continue
		}
		if seen < win.leftCount {
			leftRows.Add(uint32(r))
			leftSum += labels[r]
		} else {
			rightRows.Add(uint32(r))
			rightSum += labels[r]
		}
		seen++
	}

	return &splitResult{
		feature:   win.feature,
		threshold: win.threshold,
		cost:      win.cost,
		left: Node{
			Value:    leftSum / float64(win.leftCount),
			Depth:    node.Depth + 1,
			Variance: win.leftVar,
			Split:    Leaf{},
		},
		right: Node{
			Value:    rightSum / float64(rightCount),
			Depth:    node.Depth + 1,
			Variance: win.rightVar,
			Split:    Leaf{},
		},
		leftRows:  leftRows,
		rightRows: rightRows,
	}
}
