// Package model_selection provides k-fold cross-validation over any
// model.Estimator.
package model_selection

import (
	"math"
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
)

// Splitter produces train/test folds over n rows.
type Splitter interface {
	Split(n int) ([]Fold, error)
	NSplits() int
}

// Fold holds ascending row indices.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	Splits  int
	Shuffle bool
	Seed    uint64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, seed uint64) *KFold {
	return &KFold{Splits: nSplits, Shuffle: shuffle, Seed: seed}
}

// NSplits returns the number of folds.
func (kf *KFold) NSplits() int { return kf.Splits }

// Split assigns every row to exactly one test fold. The first n%k folds
// get one extra row.
func (kf *KFold) Split(n int) ([]Fold, error) {
	if kf.Splits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", kf.Splits)
	}
	if n < kf.Splits {
		return nil, errors.NewValidationError("n_splits", "cannot exceed the number of rows", kf.Splits)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if kf.Shuffle {
		order = random.New(kf.Seed).Perm(n)
	}

	folds := make([]Fold, kf.Splits)
	foldSize, remainder := n/kf.Splits, n%kf.Splits
	inTest := make([]bool, n)
	start := 0
	for i := range folds {
		size := foldSize
		if i < remainder {
			size++
		}
		test := slices.Clone(order[start : start+size])
		slices.Sort(test)
		for _, r := range test {
			inTest[r] = true
		}
		train := make([]int, 0, n-size)
		for r := 0; r < n; r++ {
			if !inTest[r] {
				train = append(train, r)
			}
		}
		for _, r := range test {
			inTest[r] = false
		}
		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		start += size
	}
	return folds, nil
}

// CVResult stores cross-validation results
type CVResult struct {
	Metric       string
	TrainScores  []float64
	TestScores   []float64
	FitTimes     []time.Duration
	PredictTimes []time.Duration
}

// MeanScore returns the mean test score.
func (cv *CVResult) MeanScore() float64 {
	return metrics.Mean(cv.TestScores)
}

// StdScore returns the sample standard deviation of the test scores.
func (cv *CVResult) StdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0.0
	}
	return math.Sqrt(metrics.Variance(cv.TestScores) / float64(len(cv.TestScores)-1))
}

// CrossValidate fits a clone of est on every fold and scores it with the
// named metric ("r2", "mse", "rmse" or "mae") on both sides of the split.
// Folds run concurrently on exec.
func CrossValidate(est model.Estimator, X mat.Matrix, y mat.Vector, splitter Splitter, metric string, exec *parallel.Executor) (*CVResult, error) {
	score, _, err := metrics.ByName(metric)
	if err != nil {
		return nil, err
	}
	data, err := dataset.New(X, y)
	if err != nil {
		return nil, err
	}
	folds, err := splitter.Split(data.Rows())
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("model_selection.cv")
	result := &CVResult{
		Metric:       metric,
		TrainScores:  make([]float64, len(folds)),
		TestScores:   make([]float64, len(folds)),
		FitTimes:     make([]time.Duration, len(folds)),
		PredictTimes: make([]time.Duration, len(folds)),
	}

	err = exec.ForEach(len(folds), func(i int) error {
		train := data.Subset(folds[i].TrainIndices)
		test := data.Subset(folds[i].TestIndices)

		learner := est.Clone()
		start := time.Now()
		if err := learner.Fit(train.Features(), train.LabelVec()); err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		result.FitTimes[i] = time.Since(start)

		trainPred, err := learner.Predict(train.Features())
		if err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		start = time.Now()
		testPred, err := learner.Predict(test.Features())
		if err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}
		result.PredictTimes[i] = time.Since(start)

		if result.TrainScores[i], err = score(train.Labels(), dataset.VecValues(trainPred)); err != nil {
			return errors.Wrapf(err, "fold %d train score", i)
		}
		if result.TestScores[i], err = score(test.Labels(), dataset.VecValues(testPred)); err != nil {
			return errors.Wrapf(err, "fold %d test score", i)
		}

		logger.Debug("Fold evaluated",
			log.FoldKey, i,
			log.SamplesKey, train.Rows(),
			"train_score", result.TrainScores[i],
			"test_score", result.TestScores[i],
			log.DurationMsKey, result.FitTimes[i].Milliseconds())
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Cross-validation completed",
		log.ModelNameKey, est.Name(),
		"folds", len(folds),
		"metric", metric,
		"mean_score", result.MeanScore(),
		"std_score", result.StdScore())
	return result, nil
}
