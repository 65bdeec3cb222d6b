// Package tree implements a histogram-based regression tree grown level by
// level over pre-sorted feature columns.
package tree

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/core/parallel"
	"github.com/YuminosukeSato/ensembles/core/random"
	"github.com/YuminosukeSato/ensembles/dataset"
	"github.com/YuminosukeSato/ensembles/metrics"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/pkg/log"
)

// ModelType is the snapshot registry key of DecisionTreeRegressor.
const ModelType = "DecisionTreeRegressor"

// predictions for fewer rows than this run inline
const parallelThreshold = 256

func init() {
	model.Register(ModelType, func() model.Estimator { return NewDecisionTreeRegressor() })
}

// DecisionTreeRegressor は分散減少で分割する回帰木
type DecisionTreeRegressor struct {
	state *model.StateManager

	// Hyperparameters
	MaxDepth        int    // Maximum depth, negative for no limit
	MaxFeatures     int    // Features sampled per node, 0 for all
	MinSamplesSplit int    // Minimum rows for a node to be split
	MinSamplesLeaf  int    // Minimum rows on each side of a split
	MaxBin          int    // Maximum number of bins per node
	Seed            uint64 // Seed of the feature-sampling source

	exec *parallel.Executor

	// Fitted state
	nodes       []Node
	importances []float64
}

// NewDecisionTreeRegressor creates a tree with default parameters
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		MaxDepth:        -1,
		MaxFeatures:     0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxBin:          255,
		exec:            parallel.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the model type.
func (t *DecisionTreeRegressor) Name() string { return ModelType }

// SetSeed sets the seed used by the next Fit.
func (t *DecisionTreeRegressor) SetSeed(seed uint64) { t.Seed = seed }

// Clone returns an unfitted tree with the same configuration.
func (t *DecisionTreeRegressor) Clone() model.Estimator {
	return &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		MaxDepth:        t.MaxDepth,
		MaxFeatures:     t.MaxFeatures,
		MinSamplesSplit: t.MinSamplesSplit,
		MinSamplesLeaf:  t.MinSamplesLeaf,
		MaxBin:          t.MaxBin,
		Seed:            t.Seed,
		exec:            t.exec,
	}
}

// IsFitted reports whether Fit has completed.
func (t *DecisionTreeRegressor) IsFitted() bool { return t.state.IsFitted() }

func (t *DecisionTreeRegressor) validate() error {
	switch {
	case t.MaxBin < 2:
		return errors.NewValidationError("max_bin", "must be at least 2", t.MaxBin)
	case t.MinSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", t.MinSamplesLeaf)
	case t.MinSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be at least 2", t.MinSamplesSplit)
	case t.MaxFeatures < 0:
		return errors.NewValidationError("max_features", "must be positive, or 0 for all features", t.MaxFeatures)
	}
	return nil
}

// Fit grows the tree on X and y, replacing any previous fit.
func (t *DecisionTreeRegressor) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	if err := t.validate(); err != nil {
		return err
	}
	data, err := dataset.New(X, y)
	if err != nil {
		return err
	}
	return t.fitDataset(data)
}

func (t *DecisionTreeRegressor) fitDataset(data *dataset.Dataset) error {
	logger := log.GetLoggerWithName("tree.regressor")
	start := time.Now()

	order := dataset.BuildColumnOrder(data, t.exec)
	logger.Debug("Column order built",
		log.FeaturesKey, data.Cols(),
		log.SamplesKey, data.Rows(),
		log.DurationMsKey, time.Since(start).Milliseconds())

	out := t.newGrower(data, order).grow()

	t.nodes = out.nodes
	t.importances = out.importances
	t.state.SetDimensions(data.Cols(), data.Rows())
	t.state.SetFitted()

	logger.Debug("Tree fitted",
		log.NodesKey, len(t.nodes),
		log.LeavesKey, len(out.leaves),
		log.DepthKey, t.Depth(),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

func (t *DecisionTreeRegressor) newGrower(data *dataset.Dataset, order *dataset.ColumnOrder) *grower {
	maxFeatures := t.MaxFeatures
	if maxFeatures == 0 || maxFeatures > data.Cols() {
		maxFeatures = data.Cols()
	}
	return &grower{
		cfg: growConfig{
			maxDepth:        t.MaxDepth,
			maxFeatures:     maxFeatures,
			minSamplesSplit: t.MinSamplesSplit,
			minSamplesLeaf:  t.MinSamplesLeaf,
			maxBin:          t.MaxBin,
		},
		data:  data,
		order: order,
		exec:  t.exec,
		src:   random.New(t.Seed),
	}
}

// Predict returns the leaf value reached by every row of X.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Predict")

	if err := t.state.RequireFitted(ModelType, "Predict"); err != nil {
		return nil, err
	}
	if len(t.nodes) == 0 {
		return nil, errors.NewNotFittedError(ModelType, "Predict")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "DecisionTreeRegressor.Predict")
	}
	if err := t.state.RequireFeatures("Predict", cols); err != nil {
		return nil, err
	}

	out := make([]float64, rows)
	t.exec.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = t.predictRow(X, i)
		}
	})
	return mat.NewVecDense(rows, out), nil
}

func (t *DecisionTreeRegressor) predictRow(X mat.Matrix, i int) float64 {
	idx := 0
	for {
		node := t.nodes[idx]
		switch s := node.Split.(type) {
		case Leaf:
			return node.Value
		case Stem:
			if X.At(i, s.Feature) <= s.Threshold {
				idx = s.Left
			} else {
				idx = s.Right
			}
		}
	}
}

// Score returns the coefficient of determination R^2 of the prediction
func (t *DecisionTreeRegressor) Score(X mat.Matrix, y mat.Vector) (float64, error) {
	pred, err := t.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreVec(y, pred)
}

// GetParams returns the hyperparameters
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         t.MaxDepth,
		"max_features":      t.MaxFeatures,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"max_bin":           t.MaxBin,
		"random_state":      t.Seed,
	}
}

// SetParams sets the hyperparameters
func (t *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "max_depth":
			t.MaxDepth, err = model.ParamInt(key, value)
		case "max_features":
			t.MaxFeatures, err = model.ParamInt(key, value)
		case "min_samples_split":
			t.MinSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			t.MinSamplesLeaf, err = model.ParamInt(key, value)
		case "max_bin":
			t.MaxBin, err = model.ParamInt(key, value)
		case "random_state", "seed":
			t.Seed, err = model.ParamSeed(key, value)
		default:
			err = errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
