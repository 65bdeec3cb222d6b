package ensemble

import (
	"context"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/core/parallel"
	"github.com/YuminosukeSato/ensembles/core/random"
	"github.com/YuminosukeSato/ensembles/dataset"
	"github.com/YuminosukeSato/ensembles/metrics"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/pkg/log"
	"github.com/YuminosukeSato/ensembles/sklearn/tree"
)

// ForestModelType is the snapshot registry key of RandomForestRegressor.
const ForestModelType = "RandomForestRegressor"

func init() {
	model.Register(ForestModelType, func() model.Estimator { return NewRandomForestRegressor(nil) })
}

// RandomForestRegressor averages independently trained learners, each fit
// on its own row subsample. Every Fit call appends NEstimators members.
type RandomForestRegressor struct {
	state *model.StateManager
	base  model.Estimator

	// Hyperparameters
	NEstimators int     // Members added per Fit call
	SubSample   float64 // Fraction of rows drawn per member
	Seed        uint64  // Seed of the member source

	exec *parallel.Executor

	// src persists across Fit calls and snapshots
	src      *random.Source
	learners []model.Estimator
}

// NewRandomForestRegressor creates a forest over base. A nil base means a
// default DecisionTreeRegressor.
func NewRandomForestRegressor(base model.Estimator) *RandomForestRegressor {
	if base == nil {
		base = tree.NewDecisionTreeRegressor()
	}
	return &RandomForestRegressor{
		state:       model.NewStateManager(),
		base:        base,
		NEstimators: 100,
		SubSample:   1.0,
		exec:        parallel.Default(),
	}
}

// WithNEstimators sets the number of members added per Fit
func (rf *RandomForestRegressor) WithNEstimators(n int) *RandomForestRegressor {
	rf.NEstimators = n
	return rf
}

// WithSubSample sets the fraction of rows drawn per member
func (rf *RandomForestRegressor) WithSubSample(fraction float64) *RandomForestRegressor {
	rf.SubSample = fraction
	return rf
}

// WithSeed sets the random seed
func (rf *RandomForestRegressor) WithSeed(seed uint64) *RandomForestRegressor {
	rf.SetSeed(seed)
	return rf
}

// WithExecutor sets the execution context
func (rf *RandomForestRegressor) WithExecutor(exec *parallel.Executor) *RandomForestRegressor {
	rf.exec = exec
	return rf
}

// Name returns the model type.
func (rf *RandomForestRegressor) Name() string { return ForestModelType }

// SetSeed sets the seed and restarts the member source from it.
func (rf *RandomForestRegressor) SetSeed(seed uint64) {
	rf.Seed = seed
	rf.src = nil
}

// Base returns the base learner template.
func (rf *RandomForestRegressor) Base() model.Estimator { return rf.base }

// Clone returns an unfitted forest with the same configuration.
func (rf *RandomForestRegressor) Clone() model.Estimator {
	return &RandomForestRegressor{
		state:       model.NewStateManager(),
		base:        rf.base.Clone(),
		NEstimators: rf.NEstimators,
		SubSample:   rf.SubSample,
		Seed:        rf.Seed,
		exec:        rf.exec,
	}
}

// IsFitted reports whether at least one Fit has completed.
func (rf *RandomForestRegressor) IsFitted() bool { return rf.state.IsFitted() }

func (rf *RandomForestRegressor) validate() error {
	if rf.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.NEstimators)
	}
	if !(rf.SubSample > 0 && rf.SubSample <= 1) {
		return errors.NewValidationError("subsample", "must be in (0, 1]", rf.SubSample)
	}
	return nil
}

// member is the serially drawn plan for one tree.
type member struct {
	rows []int
	seed uint64
}

// Fit trains NEstimators new members in parallel and appends them.
func (rf *RandomForestRegressor) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if err := rf.validate(); err != nil {
		return err
	}
	data, err := dataset.New(X, y)
	if err != nil {
		return err
	}
	if rf.state.IsFitted() {
		if err := rf.state.RequireFeatures("Fit", data.Cols()); err != nil {
			return err
		}
	}

	logger := log.GetLoggerWithName("ensemble.forest")
	start := time.Now()

	if rf.src == nil {
		rf.src = random.New(rf.Seed)
	}
	plans := make([]member, rf.NEstimators)
	for k := range plans {
		plans[k].rows = dataset.Subsample(rf.src, data.Rows(), rf.SubSample)
		plans[k].seed = rf.src.Uint64()
	}

	features := data.Features()
	labels := data.Labels()
	fitted := make([]model.Estimator, len(plans))
	err = rf.exec.ForEach(len(plans), func(k int) error {
		learner := rf.base.Clone()
		if s, ok := learner.(model.Seeder); ok {
			s.SetSeed(plans[k].seed)
		}
		Xs := dataset.SelectRows(features, plans[k].rows)
		target := dataset.SelectValues(labels, plans[k].rows)
		ys := mat.NewVecDense(len(target), target)
		if err := learner.Fit(Xs, ys); err != nil {
			return errors.Wrapf(err, "forest member %d", len(rf.learners)+k)
		}
		if debugEnabled(logger) {
			rf.logMember(logger, len(rf.learners)+k, learner, Xs, ys)
		}
		fitted[k] = learner
		return nil
	})
	if err != nil {
		return err
	}

	rf.learners = append(rf.learners, fitted...)
	rf.state.SetDimensions(data.Cols(), data.Rows())
	rf.state.SetFitted()

	logger.Info("Random forest fitted",
		log.EstimatorsKey, len(rf.learners),
		log.SamplesKey, data.Rows(),
		log.FeaturesKey, data.Cols(),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// logMember logs the in-sample R² of a freshly fitted member.
func (rf *RandomForestRegressor) logMember(logger log.Logger, index int, learner model.Estimator, X mat.Matrix, y mat.Vector) {
	pred, err := learner.Predict(X)
	if err != nil {
		return
	}
	fields := []any{log.IterationKey, index, log.SubsampleKey, y.Len()}
	if score, err := metrics.R2ScoreVec(y, pred); err == nil {
		fields = append(fields, log.R2ScoreKey, score)
	}
	logger.Debug("Forest member fitted", fields...)
}

// Predict returns the mean of the members' predictions. Each row's member
// predictions are summed in ascending order, so the result does not depend
// on the order members are stored in.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Predict")

	if len(rf.learners) == 0 {
		return nil, errors.NewNotFittedError(ForestModelType, "Predict")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "RandomForestRegressor.Predict")
	}
	if err := rf.state.RequireFeatures("Predict", cols); err != nil {
		return nil, err
	}

	preds := make([][]float64, len(rf.learners))
	err = rf.exec.ForEach(len(rf.learners), func(k int) error {
		pred, err := rf.learners[k].Predict(X)
		if err != nil {
			return errors.Wrapf(err, "forest member %d", k)
		}
		preds[k] = dataset.VecValues(pred)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]float64, rows)
	rf.exec.Parallelize(rows, func(start, end int) {
		column := make([]float64, len(preds))
		for i := start; i < end; i++ {
			for k := range preds {
				column[k] = preds[k][i]
			}
			out[i] = sortedMean(column)
		}
	})
	return mat.NewVecDense(rows, out), nil
}

// sortedMean sorts values in place and returns their mean.
func sortedMean(values []float64) float64 {
	slices.Sort(values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Score returns the coefficient of determination R^2 of the prediction
func (rf *RandomForestRegressor) Score(X mat.Matrix, y mat.Vector) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreVec(y, pred)
}

// Learners returns the fitted members.
func (rf *RandomForestRegressor) Learners() []model.Estimator {
	return append([]model.Estimator(nil), rf.learners...)
}

// GetParams returns the hyperparameters
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators": rf.NEstimators,
		"subsample":    rf.SubSample,
		"random_state": rf.Seed,
		"base":         rf.base.Name(),
	}
}

// SetParams sets the hyperparameters
func (rf *RandomForestRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			rf.NEstimators, err = model.ParamInt(key, value)
		case "subsample":
			rf.SubSample, err = model.ParamFloat(key, value)
		case "random_state", "seed":
			var seed uint64
			seed, err = model.ParamSeed(key, value)
			if err == nil {
				rf.SetSeed(seed)
			}
		default:
			err = errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func debugEnabled(logger log.Logger) bool {
	return logger.Enabled(context.Background(), log.LevelDebug)
}
