package ensemble

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/core/parallel"
	"github.com/YuminosukeSato/ensembles/metrics"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/pkg/log"
	"github.com/YuminosukeSato/ensembles/sklearn/tree"
)

func newBooster(iterations int, subsample float64) *GradientBoostingRegressor {
	base := tree.NewDecisionTreeRegressor(tree.WithMaxDepth(2), tree.WithMaxBin(16))
	return NewGradientBoostingRegressor(base).
		WithMaxIterations(iterations).
		WithSubSample(subsample).
		WithSeed(42)
}

func TestBoostingTrainingMSENonIncreasing(t *testing.T) {
	X, y := makeRegression(1, 300, 3)
	gb := newBooster(25, 0.6)
	require.NoError(t, gb.Fit(X, y))

	curve := gb.TrainingCurve()
	require.Len(t, curve, 25)
	assert.Len(t, gb.Learners(), 25)
	assert.Len(t, gb.LearningRates(), 25)

	labels := y.RawVector().Data
	initial, err := metrics.MSE(labels, constant(len(labels), gb.InitValue()))
	require.NoError(t, err)
	prev := initial + 1e-12
	for i, round := range curve {
		assert.Equal(t, i, round.Iteration)
		assert.LessOrEqual(t, round.MSE, prev, "round %d", i)
		assert.GreaterOrEqual(t, round.LearningRate, 0.0)
		assert.LessOrEqual(t, round.LearningRate, 1.0)
		prev = round.MSE
	}
	assert.Less(t, curve[len(curve)-1].MSE, initial)

	pred, err := gb.Predict(X)
	require.NoError(t, err)
	final, err := metrics.MSE(labels, pred.RawVector().Data)
	require.NoError(t, err)
	assert.InDelta(t, curve[len(curve)-1].MSE, final, 1e-12)
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestBoostingIsOneShot(t *testing.T) {
	X, y := makeRegression(2, 50, 2)
	gb := newBooster(2, 1.0)
	require.NoError(t, gb.Fit(X, y))

	err := gb.Fit(X, y)
	var already *errors.AlreadyFittedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, 2, already.Learners)
	assert.Len(t, gb.Learners(), 2)
}

func TestBoostingFailedFitLeavesModelUnfitted(t *testing.T) {
	X, y := makeRegression(4, 40, 2)
	fits := 0
	base := &flakyModel{fits: &fits, failAt: 3}
	gb := NewGradientBoostingRegressor(base).
		WithMaxIterations(5).
		WithExecutor(parallel.Sequential())

	err := gb.Fit(X, y)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boosting round 2")
	assert.False(t, gb.IsFitted())
	assert.Empty(t, gb.Learners())
	assert.Empty(t, gb.LearningRates())
	assert.Empty(t, gb.TrainingCurve())

	_, err = gb.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	// a later Fit starts from scratch
	base.failAt = 0
	require.NoError(t, gb.Fit(X, y))
	assert.True(t, gb.IsFitted())
	assert.Len(t, gb.Learners(), 5)
}

func TestBoostingPredictEqualsSumOfSteps(t *testing.T) {
	X, y := makeRegression(3, 120, 2)
	gb := newBooster(5, 0.8)
	require.NoError(t, gb.Fit(X, y))

	want := constant(120, gb.InitValue())
	for k, learner := range gb.Learners() {
		p, err := learner.Predict(X)
		require.NoError(t, err)
		for i := range want {
			want[i] += gb.LearningRates()[k] * p.AtVec(i)
		}
	}
	got, err := gb.Predict(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got.RawVector().Data, 1e-9)
}

func TestBoostingDeterministic(t *testing.T) {
	X, y := makeRegression(4, 200, 3)

	fit := func(exec *parallel.Executor) []float64 {
		gb := newBooster(6, 0.5).WithExecutor(exec)
		require.NoError(t, gb.Fit(X, y))
		pred, err := gb.Predict(X)
		require.NoError(t, err)
		return pred.RawVector().Data
	}
	seq := fit(parallel.Sequential())
	assert.Equal(t, seq, fit(parallel.New(4)))
}

func TestBoostingZeroStepWarns(t *testing.T) {
	provider, logger := log.NewTestLoggerProvider(log.LevelDebug)
	log.SetProvider(provider)
	t.Cleanup(func() { log.SetProvider(log.NewZerologProvider(os.Stderr, log.LevelWarn)) })

	X, y := makeRegression(5, 40, 2)
	gb := NewGradientBoostingRegressor(zeroModel{}).WithMaxIterations(3)
	require.NoError(t, gb.Fit(X, y))

	assert.Equal(t, []float64{0, 0, 0}, gb.LearningRates())
	assert.True(t, logger.ContainsMessage("did not improve the training loss"))
	assert.True(t, logger.ContainsMessage("Gradient boosting fitted"))
	assert.True(t, logger.ContainsField(log.ComponentKey, "warnings"))

	pred, err := gb.Predict(X)
	require.NoError(t, err)
	for i := 0; i < pred.Len(); i++ {
		assert.Equal(t, gb.InitValue(), pred.AtVec(i))
	}
}

func TestBoostingErrors(t *testing.T) {
	gb := newBooster(3, 1.0)
	_, err := gb.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y := makeRegression(6, 30, 2)
	var ve *errors.ValidationError
	assert.True(t, errors.As(newBooster(0, 1.0).Fit(X, y), &ve))
	assert.True(t, errors.As(newBooster(3, 0).Fit(X, y), &ve))
	assert.True(t, errors.As(newBooster(3, 1.5).Fit(X, y), &ve))

	require.NoError(t, gb.Fit(X, y))
	_, err = gb.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestBoostingSnapshotRestore(t *testing.T) {
	X, y := makeRegression(7, 150, 3)
	gb := newBooster(8, 0.7)
	require.NoError(t, gb.Fit(X, y))
	want, err := gb.Predict(X)
	require.NoError(t, err)

	snap, err := gb.MarshalSnapshot()
	require.NoError(t, err)
	require.Len(t, snap.Children, 9)

	restored, err := model.Restore(snap)
	require.NoError(t, err)
	got, err := restored.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want.RawVector().Data, got.RawVector().Data)

	rgb := restored.(*GradientBoostingRegressor)
	assert.Equal(t, gb.LearningRates(), rgb.LearningRates())
	assert.Equal(t, gb.TrainingCurve(), rgb.TrainingCurve())

	var already *errors.AlreadyFittedError
	assert.True(t, errors.As(rgb.Fit(X, y), &already))
}

func TestBoostingOverForestRestoresRecursively(t *testing.T) {
	X, y := makeRegression(8, 100, 2)
	forest := NewRandomForestRegressor(tree.NewDecisionTreeRegressor(tree.WithMaxDepth(3))).
		WithNEstimators(3).
		WithSubSample(0.7)
	gb := NewGradientBoostingRegressor(forest).WithMaxIterations(3).WithSeed(1)
	require.NoError(t, gb.Fit(X, y))
	want, err := gb.Predict(X)
	require.NoError(t, err)

	snap, err := model.Capture(gb)
	require.NoError(t, err)
	restored, err := model.Restore(snap)
	require.NoError(t, err)
	got, err := restored.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want.RawVector().Data, got.RawVector().Data)
}

func TestBoostingParams(t *testing.T) {
	gb := NewGradientBoostingRegressor(nil)
	require.NoError(t, gb.SetParams(map[string]interface{}{
		"max_iterations": 10,
		"subsample":      0.5,
		"random_state":   3,
	}))
	params := gb.GetParams()
	assert.Equal(t, 10, params["max_iterations"])
	assert.Equal(t, 0.5, params["subsample"])
	assert.Equal(t, uint64(3), params["random_state"])
	assert.Equal(t, tree.ModelType, params["base"])
	assert.Error(t, gb.SetParams(map[string]interface{}{"learning_rate": 0.1}))
}
