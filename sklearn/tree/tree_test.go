package tree

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/core/parallel"
	"github.com/YuminosukeSato/ensembles/core/random"
	"github.com/YuminosukeSato/ensembles/dataset"
	"github.com/YuminosukeSato/ensembles/metrics"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// makeRegression builds a noisy nonlinear target over nFeatures columns.
func makeRegression(seed uint64, rows, nFeatures int) (*mat.Dense, *mat.VecDense) {
	src := random.New(seed)
	unit := func() float64 { return float64(src.Uint64()>>11) / (1 << 53) }
	X := mat.NewDense(rows, nFeatures, nil)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, unit()*10)
		}
		v := 3*math.Sin(X.At(i, 0)) + X.At(i, 1%nFeatures)*0.5 + unit()
		y.SetVec(i, v)
	}
	return X, y
}

func TestGapSplitsAtGap(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 10, 11})
	y := mat.NewVecDense(4, []float64{3, 3, 7, 7})

	tr := NewDecisionTreeRegressor(
		WithMaxBin(2),
		WithMinSamplesLeaf(1),
		WithMinSamplesSplit(2),
		WithExecutor(parallel.Sequential()),
	)
	require.NoError(t, tr.Fit(X, y))

	nodes := tr.Nodes()
	require.Len(t, nodes, 3)
	stem, ok := nodes[0].Split.(Stem)
	require.True(t, ok)
	assert.Equal(t, 0, stem.Feature)
	assert.Equal(t, 2.0, stem.Threshold)
	assert.Equal(t, 1, stem.Left)
	assert.Equal(t, 2, stem.Right)

	pred, err := tr.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 7, 7}, pred.RawVector().Data)
}

func TestDuplicatedColumnsTieGoesToLowestFeature(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 1,
		2, 2,
		10, 10,
		11, 11,
	})
	y := mat.NewVecDense(4, []float64{1, 1, 5, 5})

	for seed := uint64(0); seed < 20; seed++ {
		tr := NewDecisionTreeRegressor(WithSeed(seed))
		require.NoError(t, tr.Fit(X, y))
		stem, ok := tr.Nodes()[0].Split.(Stem)
		require.True(t, ok, "seed %d", seed)
		assert.Equal(t, 0, stem.Feature, "seed %d", seed)
	}
}

func TestSampledFeaturesSearchedInOrder(t *testing.T) {
	// 3 identical columns, 2 sampled per node: the winner is the lower of the pair
	X := mat.NewDense(4, 3, []float64{
		1, 1, 1,
		2, 2, 2,
		10, 10, 10,
		11, 11, 11,
	})
	y := mat.NewVecDense(4, []float64{1, 1, 5, 5})

	for seed := uint64(0); seed < 20; seed++ {
		tr := NewDecisionTreeRegressor(WithSeed(seed), WithMaxFeatures(2))
		require.NoError(t, tr.Fit(X, y))
		stem, ok := tr.Nodes()[0].Split.(Stem)
		require.True(t, ok, "seed %d", seed)
		assert.LessOrEqual(t, stem.Feature, 1, "seed %d", seed)
	}
}

func TestGapWithDepthLimitPredictsHalfMeans(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 10, 11})
	y := mat.NewVecDense(4, []float64{1, 2, 10, 12})

	tr := NewDecisionTreeRegressor(WithMaxBin(2), WithMaxDepth(1))
	require.NoError(t, tr.Fit(X, y))

	pred, err := tr.Predict(mat.NewDense(5, 1, []float64{1, 2, 10, 11, 5}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1.5, 11, 11, 11}, pred.RawVector().Data)
	assert.Equal(t, 1, tr.Depth())
	assert.Equal(t, 2, tr.LeafCount())
}

func TestConstantTargetIsSingleLeaf(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{1, 5, 2, 4, 3, 3, 4, 2, 5, 1})
	y := mat.NewVecDense(5, []float64{2, 2, 2, 2, 2})

	tr := NewDecisionTreeRegressor()
	require.NoError(t, tr.Fit(X, y))
	assert.Equal(t, 1, tr.NodeCount())
	assert.True(t, tr.Nodes()[0].IsLeaf())
	assert.Equal(t, []float64{0, 0}, tr.FeatureImportances())
}

func TestNodeCountBound(t *testing.T) {
	X, y := makeRegression(1, 300, 3)
	for _, depth := range []int{0, 1, 2, 3, 5} {
		tr := NewDecisionTreeRegressor(WithMaxDepth(depth), WithMaxBin(16), WithSeed(4))
		require.NoError(t, tr.Fit(X, y))
		bound := 2*(1<<(depth+1)-1) - 1
		assert.LessOrEqual(t, tr.NodeCount(), bound)
		assert.LessOrEqual(t, tr.NodeCount(), 1<<(depth+1)-1)
		assert.LessOrEqual(t, tr.Depth(), depth)
	}
}

func TestArenaChildrenFollowParents(t *testing.T) {
	X, y := makeRegression(2, 200, 4)
	tr := NewDecisionTreeRegressor(WithMaxBin(8), WithMaxFeatures(2), WithSeed(11))
	require.NoError(t, tr.Fit(X, y))

	for i, n := range tr.Nodes() {
		if s, ok := n.Split.(Stem); ok {
			assert.Greater(t, s.Left, i)
			assert.Greater(t, s.Right, i)
			assert.Equal(t, s.Left+1, s.Right)
		}
	}
}

func growForTest(t *testing.T, tr *DecisionTreeRegressor, X *mat.Dense, y *mat.VecDense) growth {
	t.Helper()
	data, err := dataset.New(X, y)
	require.NoError(t, err)
	order := dataset.BuildColumnOrder(data, tr.exec)
	return tr.newGrower(data, order).grow()
}

// routeRows returns the training rows reaching every node by following
// thresholds from the root.
func routeRows(nodes []Node, X *mat.Dense) []*roaring.Bitmap {
	rows, _ := X.Dims()
	reach := make([]*roaring.Bitmap, len(nodes))
	for i := range reach {
		reach[i] = roaring.New()
	}
	for r := 0; r < rows; r++ {
		idx := 0
		for {
			reach[idx].Add(uint32(r))
			s, ok := nodes[idx].Split.(Stem)
			if !ok {
				break
			}
			if X.At(r, s.Feature) <= s.Threshold {
				idx = s.Left
			} else {
				idx = s.Right
			}
		}
	}
	return reach
}

func TestLeafSetsPartitionRows(t *testing.T) {
	X, y := makeRegression(3, 257, 3)
	tr := NewDecisionTreeRegressor(WithMaxBin(10), WithMinSamplesLeaf(3), WithSeed(5))
	out := growForTest(t, tr, X, y)

	union := roaring.New()
	total := uint64(0)
	leafCount := 0
	for idx, rows := range out.leaves {
		require.True(t, out.nodes[idx].IsLeaf())
		total += rows.GetCardinality()
		union.Or(rows)
		leafCount++
	}
	assert.Equal(t, uint64(257), total, "leaf sets overlap")
	assert.Equal(t, uint64(257), union.GetCardinality())

	n := 0
	for _, node := range out.nodes {
		if node.IsLeaf() {
			n++
		}
	}
	assert.Equal(t, n, leafCount)

	// thresholds reproduce the recorded partition
	reach := routeRows(out.nodes, X)
	for idx, rows := range out.leaves {
		assert.True(t, rows.Equals(reach[idx]), "leaf %d", idx)
	}
}

func TestCommittedSplitsReduceVariance(t *testing.T) {
	X, y := makeRegression(4, 300, 3)
	tr := NewDecisionTreeRegressor(WithMaxBin(12), WithSeed(8))
	out := growForTest(t, tr, X, y)
	labels := y.RawVector().Data

	reach := routeRows(out.nodes, X)
	sse := func(rows *roaring.Bitmap) float64 {
		vals := make([]float64, 0, rows.GetCardinality())
		it := rows.Iterator()
		for it.HasNext() {
			vals = append(vals, labels[it.Next()])
		}
		return metrics.Variance(vals)
	}

	stems := 0
	for i, node := range out.nodes {
		s, ok := node.Split.(Stem)
		if !ok {
			continue
		}
		stems++
		parent := sse(reach[i])
		left, right := sse(reach[s.Left]), sse(reach[s.Right])
		assert.LessOrEqual(t, left+right, parent+1e-9)
		assert.InDelta(t, left+right, node.Variance, 1e-6)
		assert.InDelta(t, left, out.nodes[s.Left].Variance, 1e-6)
		assert.GreaterOrEqual(t, reach[s.Left].GetCardinality(), uint64(1))
	}
	assert.Greater(t, stems, 0)
}

func TestMinSamplesLeafRespected(t *testing.T) {
	X, y := makeRegression(5, 150, 2)
	tr := NewDecisionTreeRegressor(WithMinSamplesLeaf(10), WithMaxBin(30), WithSeed(2))
	out := growForTest(t, tr, X, y)
	for _, rows := range out.leaves {
		assert.GreaterOrEqual(t, rows.GetCardinality(), uint64(10))
	}
}

func TestDeterministicAcrossExecutors(t *testing.T) {
	X, y := makeRegression(6, 400, 5)

	fit := func(exec *parallel.Executor) []Node {
		tr := NewDecisionTreeRegressor(WithMaxFeatures(2), WithMaxBin(20), WithSeed(99), WithExecutor(exec))
		require.NoError(t, tr.Fit(X, y))
		return tr.Nodes()
	}
	seq := fit(parallel.Sequential())
	assert.Equal(t, seq, fit(parallel.New(4)))
	assert.Equal(t, seq, fit(parallel.New(4)))

	other := NewDecisionTreeRegressor(WithMaxFeatures(2), WithMaxBin(20), WithSeed(100))
	require.NoError(t, other.Fit(X, y))
	pred1, err := other.Predict(X)
	require.NoError(t, err)
	pred2, err := other.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, pred1.RawVector().Data, pred2.RawVector().Data)
}

func TestPredictErrors(t *testing.T) {
	tr := NewDecisionTreeRegressor()
	_, err := tr.Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ModelType, nf.ModelName)

	X := mat.NewDense(4, 2, []float64{1, 0, 2, 0, 3, 1, 4, 1})
	require.NoError(t, tr.Fit(X, mat.NewVecDense(4, []float64{1, 2, 3, 4})))

	_, err = tr.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var dim *errors.DimensionError
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 2, dim.Expected)
	assert.Equal(t, 3, dim.Got)
}

func TestFitValidation(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewVecDense(3, []float64{1, 2, 3})

	cases := map[string]*DecisionTreeRegressor{
		"max_bin":           NewDecisionTreeRegressor(WithMaxBin(1)),
		"min_samples_leaf":  NewDecisionTreeRegressor(WithMinSamplesLeaf(0)),
		"min_samples_split": NewDecisionTreeRegressor(WithMinSamplesSplit(1)),
		"max_features":      NewDecisionTreeRegressor(WithMaxFeatures(-1)),
	}
	for param, tr := range cases {
		t.Run(param, func(t *testing.T) {
			err := tr.Fit(X, y)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, param, ve.ParamName)
		})
	}

	err := NewDecisionTreeRegressor().Fit(X, mat.NewVecDense(2, []float64{1, 2}))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestFeatureImportances(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
		5, 5,
		6, 5,
		7, 5,
		8, 5,
	})
	y := mat.NewVecDense(8, []float64{1, 1, 1, 1, 9, 9, 9, 9})

	tr := NewDecisionTreeRegressor(WithMaxBin(4))
	require.NoError(t, tr.Fit(X, y))
	assert.Equal(t, []float64{1, 0}, tr.FeatureImportances())

	score, err := tr.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestParams(t *testing.T) {
	tr := NewDecisionTreeRegressor()
	require.NoError(t, tr.SetParams(map[string]interface{}{
		"max_depth":    4,
		"max_bin":      float64(32),
		"random_state": 7,
	}))
	params := tr.GetParams()
	assert.Equal(t, 4, params["max_depth"])
	assert.Equal(t, 32, params["max_bin"])
	assert.Equal(t, uint64(7), params["random_state"])

	assert.Error(t, tr.SetParams(map[string]interface{}{"criterion": "gini"}))
	assert.Error(t, tr.SetParams(map[string]interface{}{"max_bin": 2.5}))

	clone := tr.Clone().(*DecisionTreeRegressor)
	assert.Equal(t, params, clone.GetParams())
	assert.False(t, clone.IsFitted())
}

func TestSnapshotRestore(t *testing.T) {
	X, y := makeRegression(7, 120, 3)
	tr := NewDecisionTreeRegressor(WithMaxBin(9), WithMaxFeatures(2), WithSeed(3))
	require.NoError(t, tr.Fit(X, y))
	want, err := tr.Predict(X)
	require.NoError(t, err)

	snap, err := tr.MarshalSnapshot()
	require.NoError(t, err)
	restored, err := model.Restore(snap)
	require.NoError(t, err)

	got, err := restored.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want.RawVector().Data, got.RawVector().Data)
	assert.Equal(t, tr.Nodes(), restored.(*DecisionTreeRegressor).Nodes())
	assert.Equal(t, tr.FeatureImportances(), restored.(*DecisionTreeRegressor).FeatureImportances())
}

func TestSnapshotRejectsCorruptArena(t *testing.T) {
	state, err := model.EncodeState(treeState{
		MaxBin: 2,
		Model:  model.ModelState{Fitted: true, NFeatures: 1, NSamples: 2},
		Nodes:  []nodeState{{Stem: true, Left: 0, Right: 1}},
	})
	require.NoError(t, err)

	tr := NewDecisionTreeRegressor()
	err = tr.UnmarshalSnapshot(&model.Snapshot{ModelType: ModelType, Version: model.SnapshotVersion, State: state})
	var me *errors.ModelError
	assert.True(t, errors.As(err, &me))
}
