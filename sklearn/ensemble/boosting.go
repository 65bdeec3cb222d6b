// Package ensemble builds gradient-boosted and bagged ensembles over any
// model.Estimator, by default the histogram regression tree.
package ensemble

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
	"github.com/YuminosukeSato/ensembles/sklearn/tree"
)

// BoostingModelType is the snapshot registry key of GradientBoostingRegressor.
const BoostingModelType = "GradientBoostingRegressor"

func init() {
	model.Register(BoostingModelType, func() model.Estimator { return NewGradientBoostingRegressor(nil) })
}

// Round records one boosting iteration.
type Round struct {
	Iteration    int
	MSE          float64 // in-sample MSE after the round
	LearningRate float64
}

// GradientBoostingRegressor fits each base learner to the residual of the
// running prediction and scales it by a line-searched step size. Fit may be
// called only once.
type GradientBoostingRegressor struct {
	state *model.StateManager
	base  model.Estimator

	// Hyperparameters
	MaxIterations int     // Number of boosting rounds
	SubSample     float64 // Fraction of rows drawn per round
	Seed          uint64  // Seed of the subsampling source

	exec *parallel.Executor

	// Fitted state
	initValue     float64
	learners      []model.Estimator
	learningRates []float64
	curve         []Round
}

// NewGradientBoostingRegressor creates a booster over base. A nil base
// means a default DecisionTreeRegressor.
func NewGradientBoostingRegressor(base model.Estimator) *GradientBoostingRegressor {
	if base == nil {
		base = tree.NewDecisionTreeRegressor()
	}
	return &GradientBoostingRegressor{
		state:         model.NewStateManager(),
		base:          base,
		MaxIterations: 100,
		SubSample:     1.0,
		exec:          parallel.Default(),
	}
}

// WithMaxIterations sets the number of boosting rounds
func (gb *GradientBoostingRegressor) WithMaxIterations(n int) *GradientBoostingRegressor {
	gb.MaxIterations = n
	return gb
}

// WithSubSample sets the fraction of rows drawn per round
func (gb *GradientBoostingRegressor) WithSubSample(fraction float64) *GradientBoostingRegressor {
	gb.SubSample = fraction
	return gb
}

// WithSeed sets the random seed
func (gb *GradientBoostingRegressor) WithSeed(seed uint64) *GradientBoostingRegressor {
	gb.Seed = seed
	return gb
}

// WithExecutor sets the execution context
func (gb *GradientBoostingRegressor) WithExecutor(exec *parallel.Executor) *GradientBoostingRegressor {
	gb.exec = exec
	return gb
}

// Name returns the model type.
func (gb *GradientBoostingRegressor) Name() string { return BoostingModelType }

// SetSeed sets the seed used by Fit.
func (gb *GradientBoostingRegressor) SetSeed(seed uint64) { gb.Seed = seed }

// Base returns the base learner template.
func (gb *GradientBoostingRegressor) Base() model.Estimator { return gb.base }

// Clone returns an unfitted booster with the same configuration.
func (gb *GradientBoostingRegressor) Clone() model.Estimator {
	return &GradientBoostingRegressor{
		state:         model.NewStateManager(),
		base:          gb.base.Clone(),
		MaxIterations: gb.MaxIterations,
		SubSample:     gb.SubSample,
		Seed:          gb.Seed,
		exec:          gb.exec,
	}
}

// IsFitted reports whether Fit has completed.
func (gb *GradientBoostingRegressor) IsFitted() bool { return gb.state.IsFitted() }

func (gb *GradientBoostingRegressor) validate() error {
	if gb.MaxIterations < 1 {
		return errors.NewValidationError("max_iterations", "must be at least 1", gb.MaxIterations)
	}
	if !(gb.SubSample > 0 && gb.SubSample <= 1) {
		return errors.NewValidationError("subsample", "must be in (0, 1]", gb.SubSample)
	}
	return nil
}

// Fit trains MaxIterations learners. It fails with AlreadyFittedError when
// the booster already holds learners.
func (gb *GradientBoostingRegressor) Fit(X mat.Matrix, y mat.Vector) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	if len(gb.learners) > 0 {
		return errors.NewAlreadyFittedError(BoostingModelType, len(gb.learners))
	}
	if err := gb.validate(); err != nil {
		return err
	}
	data, err := dataset.New(X, y)
	if err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble.boosting")
	start := time.Now()

	labels := data.Labels()
	rows := data.Rows()
	features := data.Features()

	initValue := metrics.Mean(labels)
	running := make([]float64, rows)
	for i := range running {
		running[i] = initValue
	}
	residual := make([]float64, rows)
	src := random.New(gb.Seed)

	// 全ラウンドが成功するまでレシーバには書き込まない
	learners := make([]model.Estimator, 0, gb.MaxIterations)
	rates := make([]float64, 0, gb.MaxIterations)
	curve := make([]Round, 0, gb.MaxIterations)

	for it := 0; it < gb.MaxIterations; it++ {
		for i := range residual {
			residual[i] = labels[i] - running[i]
		}

		idx := dataset.Subsample(src, rows, gb.SubSample)
		learner := gb.base.Clone()
		if s, ok := learner.(model.Seeder); ok {
			s.SetSeed(src.Uint64())
		}
		target := dataset.SelectValues(residual, idx)
		if err := learner.Fit(dataset.SelectRows(features, idx), mat.NewVecDense(len(target), target)); err != nil {
			return errors.Wrapf(err, "boosting round %d", it)
		}
		pred, err := learner.Predict(features)
		if err != nil {
			return errors.Wrapf(err, "boosting round %d", it)
		}
		p := dataset.VecValues(pred)

		lr, mse := lineSearch(gb.exec, labels, running, p)
		if lr == 0 {
			errors.Warn(errors.NewZeroStepWarning(it, mse))
		}
		applyStep(running, p, lr)

		learners = append(learners, learner)
		rates = append(rates, lr)
		curve = append(curve, Round{Iteration: it, MSE: mse, LearningRate: lr})

		logger.Debug("Boosting round completed",
			log.IterationKey, it,
			log.SubsampleKey, len(idx),
			log.LearningRateKey, lr,
			log.MSEKey, mse)
	}

	gb.initValue = initValue
	gb.learners = learners
	gb.learningRates = rates
	gb.curve = curve
	gb.state.SetDimensions(data.Cols(), rows)
	gb.state.SetFitted()

	logger.Info("Gradient boosting fitted",
		log.EstimatorsKey, len(gb.learners),
		log.SamplesKey, rows,
		log.FeaturesKey, data.Cols(),
		log.MSEKey, gb.curve[len(gb.curve)-1].MSE,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// Predict returns init + Σ lr_i * learner_i(X).
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Predict")

	if len(gb.learners) == 0 {
		return nil, errors.NewNotFittedError(BoostingModelType, "Predict")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "GradientBoostingRegressor.Predict")
	}
	if err := gb.state.RequireFeatures("Predict", cols); err != nil {
		return nil, err
	}

	out := make([]float64, rows)
	for i := range out {
		out[i] = gb.initValue
	}
	for k, learner := range gb.learners {
		pred, err := learner.Predict(X)
		if err != nil {
			return nil, errors.Wrapf(err, "learner %d", k)
		}
		applyStep(out, dataset.VecValues(pred), gb.learningRates[k])
	}
	return mat.NewVecDense(rows, out), nil
}

// Score returns the coefficient of determination R^2 of the prediction
func (gb *GradientBoostingRegressor) Score(X mat.Matrix, y mat.Vector) (float64, error) {
	pred, err := gb.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreVec(y, pred)
}

// InitValue returns the label mean the running prediction started from.
func (gb *GradientBoostingRegressor) InitValue() float64 { return gb.initValue }

// Learners returns the fitted learners in round order.
func (gb *GradientBoostingRegressor) Learners() []model.Estimator {
	return append([]model.Estimator(nil), gb.learners...)
}

// LearningRates returns the step size chosen in every round.
func (gb *GradientBoostingRegressor) LearningRates() []float64 {
	return append([]float64(nil), gb.learningRates...)
}

// TrainingCurve returns the in-sample MSE and step size of every round.
func (gb *GradientBoostingRegressor) TrainingCurve() []Round {
	return append([]Round(nil), gb.curve...)
}

// GetParams returns the hyperparameters
func (gb *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_iterations": gb.MaxIterations,
		"subsample":      gb.SubSample,
		"random_state":   gb.Seed,
		"base":           gb.base.Name(),
	}
}

// SetParams sets the hyperparameters
func (gb *GradientBoostingRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "max_iterations", "n_estimators":
			gb.MaxIterations, err = model.ParamInt(key, value)
		case "subsample":
			gb.SubSample, err = model.ParamFloat(key, value)
		case "random_state", "seed":
			gb.Seed, err = model.ParamSeed(key, value)
		default:
			err = errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
