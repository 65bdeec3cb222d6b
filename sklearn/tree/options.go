package tree

import "github.com/YuminosukeSato/ensembles/core/parallel"

// Option is a function that configures DecisionTreeRegressor
type Option func(*DecisionTreeRegressor)

// WithMaxDepth sets the maximum depth; a negative value means unbounded
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) {
		t.MaxDepth = depth
	}
}

// WithMaxFeatures sets the number of features sampled per node; 0 means all
func WithMaxFeatures(n int) Option {
	return func(t *DecisionTreeRegressor) {
		t.MaxFeatures = n
	}
}

// WithMinSamplesSplit sets the minimum number of rows a node needs to be split
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) {
		t.MinSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of rows on each side of a split
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) {
		t.MinSamplesLeaf = n
	}
}

// WithMaxBin sets the maximum number of bins per node and feature
func WithMaxBin(n int) Option {
	return func(t *DecisionTreeRegressor) {
		t.MaxBin = n
	}
}

// WithSeed sets the seed of the feature-sampling random source
func WithSeed(seed uint64) Option {
	return func(t *DecisionTreeRegressor) {
		t.Seed = seed
	}
}

// WithExecutor sets the execution context used by Fit and Predict
func WithExecutor(exec *parallel.Executor) Option {
	return func(t *DecisionTreeRegressor) {
		t.exec = exec
	}
}
