// Package metrics は回帰モデルの評価指標を提供する。
//
// The slice forms (Variance, MSE, R2Score, RMSE, MAE) are what the tree
// grower and the ensembles call on their hot paths; the *Vec forms accept
// gonum vectors for callers holding mat values.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/dataset"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the sum of squared deviations from the mean, Σ(yᵢ − ȳ)².
// It is not divided by the count; the tree grower compares these sums
// directly.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty vector")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("MSE", n, len(yPred), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("MAE", "empty vector")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("MAE", n, len(yPred), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(n), nil
}

// R2Score は決定係数 1 − Σ(y−ŷ)² / Σ(y−ȳ)² を計算する。
// A constant yTrue makes the denominator zero; this returns NaN together
// with a DegenerateInputError so the condition cannot pass silently.
func R2Score(yTrue, yPred []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("R2Score", "empty vector")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("R2Score", n, len(yPred), 0)
	}

	mean := Mean(yTrue)
	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		res := yTrue[i] - yPred[i]
		ssRes += res * res
		dev := yTrue[i] - mean
		ssTot += dev * dev
	}
	if ssTot == 0 {
		return math.NaN(), errors.NewDegenerateInputError("R2Score", "yTrue has zero variance")
	}
	return 1 - ssRes/ssTot, nil
}

// MSEVec computes MSE over gonum vectors.
func MSEVec(yTrue, yPred mat.Vector) (float64, error) {
	return MSE(dataset.VecValues(yTrue), dataset.VecValues(yPred))
}

// R2ScoreVec computes R2Score over gonum vectors.
func R2ScoreVec(yTrue, yPred mat.Vector) (float64, error) {
	return R2Score(dataset.VecValues(yTrue), dataset.VecValues(yPred))
}

// Func is a scoring function over label slices.
type Func func(yTrue, yPred []float64) (float64, error)

// ByName resolves "mse", "rmse", "mae" or "r2" to a scoring function.
// The boolean reports whether higher values are better.
func ByName(name string) (Func, bool, error) {
	switch name {
	case "mse", "l2":
		return MSE, false, nil
	case "rmse":
		return RMSE, false, nil
	case "mae", "l1":
		return MAE, false, nil
	case "r2", "":
		return R2Score, true, nil
	default:
		return nil, false, errors.NewValidationError("metric", "must be one of mse, rmse, mae, r2", name)
	}
}
