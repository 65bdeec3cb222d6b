package model

import "gonum.org/v1/gonum/mat"

// Learner は学習と予測ができるモデルのインターフェース。
// Decision trees, boosting and forests all satisfy it, which lets an
// ensemble wrap any of them as its base learner.
type Learner interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X mat.Matrix, y mat.Vector) error
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// Estimator is a Learner that can produce fresh, untrained copies of its
// own configuration.
type Estimator interface {
	Learner

	// Clone returns an unfitted estimator with the same hyperparameters,
	// execution context and seed.
	Clone() Estimator

	// Name returns the model type, e.g. "DecisionTreeRegressor".
	Name() string
}

// Seeder is implemented by estimators whose fit consumes randomness.
// Ensembles reseed every clone of their base learner through it.
type Seeder interface {
	SetSeed(seed uint64)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X mat.Matrix, y mat.Vector) (float64, error)
}

// ParamGetter is the interface for models that expose their parameters.
type ParamGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParamSetter is the interface for models that allow parameter modification.
type ParamSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Regressor combines the interfaces every model in this module implements.
type Regressor interface {
	Estimator
	Scorer
	ParamGetter
	ParamSetter
	Snapshotter
}
