package tree

// NodeCount returns the arena size.
func (t *DecisionTreeRegressor) NodeCount() int { return len(t.nodes) }

// LeafCount returns the number of leaves.
func (t *DecisionTreeRegressor) LeafCount() int {
	count := 0
	for _, n := range t.nodes {
		if n.IsLeaf() {
			count++
		}
	}
	return count
}

// Depth returns the depth of the deepest node; the root is at depth 0.
func (t *DecisionTreeRegressor) Depth() int {
	depth := 0
	for _, n := range t.nodes {
		depth = max(depth, n.Depth)
	}
	return depth
}

// Nodes returns a copy of the arena. Index 0 is the root.
func (t *DecisionTreeRegressor) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// FeatureImportances returns, per feature, the total variance reduction of
// the splits on it, normalised to sum to 1. A tree without splits returns
// all zeros.
func (t *DecisionTreeRegressor) FeatureImportances() []float64 {
	out := make([]float64, len(t.importances))
	var total float64
	for _, v := range t.importances {
		total += v
	}
	if total <= 0 {
		return out
	}
	for i, v := range t.importances {
		out[i] = v / total
	}
	return out
}
