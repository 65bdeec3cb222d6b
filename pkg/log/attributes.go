// Package log defines standard attribute keys for training and inference logs.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so log pipelines can filter on a prefix.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type, e.g. "DecisionTreeRegressor".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed: "fit", "predict", "score".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase: "training", "validation", "inference".
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey is the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// SubsampleKey is the number of rows drawn for one ensemble member.
	SubsampleKey = "data.subsample"
)

// Tree structure
const (
	// NodesKey is the arena size of a fitted tree.
	NodesKey = "tree.nodes"

	// LeavesKey is the number of leaves of a fitted tree.
	LeavesKey = "tree.leaves"

	// DepthKey is the deepest level reached by a fitted tree.
	DepthKey = "tree.depth"

	// FrontierKey is the number of nodes considered in one growth round.
	FrontierKey = "tree.frontier"
)

// Ensemble and metrics
const (
	// IterationKey is the boosting round or forest member index.
	IterationKey = "ensemble.iteration"

	// EstimatorsKey is the number of fitted members.
	EstimatorsKey = "ensemble.estimators"

	// LearningRateKey is the step size chosen by the boosting line search.
	LearningRateKey = "ensemble.learning_rate"

	// MSEKey records a mean squared error.
	MSEKey = "metric.mse"

	// R2ScoreKey records an R² score.
	R2ScoreKey = "metric.r2"

	// FoldKey is the cross-validation fold index.
	FoldKey = "cv.fold"
)

// Performance and configuration
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WorkersKey is the size of the execution context used.
	WorkersKey = "perf.workers"

	// RandomSeedKey records the seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// StoreKey names the model store a snapshot was written to.
	StoreKey = "io.store"

	// PathKey is a file or object key.
	PathKey = "io.path"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
