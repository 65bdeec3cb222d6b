package main

import (
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/core/parallel"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/sklearn/ensemble"
	"github.com/YuminosukeSato/ensembles/sklearn/tree"
)

// treeConfig mirrors the DecisionTreeRegressor hyperparameters. Nil fields
// keep the library defaults.
type treeConfig struct {
	MaxDepth        *int `yaml:"max_depth"`
	MaxFeatures     *int `yaml:"max_features"`
	MinSamplesSplit *int `yaml:"min_samples_split"`
	MinSamplesLeaf  *int `yaml:"min_samples_leaf"`
	MaxBin          *int `yaml:"max_bin"`
}

type boostingConfig struct {
	MaxIterations *int     `yaml:"max_iterations"`
	SubSample     *float64 `yaml:"subsample"`
}

type forestConfig struct {
	NEstimators *int     `yaml:"n_estimators"`
	SubSample   *float64 `yaml:"subsample"`
}

type dataConfig struct {
	// LabelColumn selects the label column inside the data file when no
	// separate labels file is given. -1 means the data has no label column.
	LabelColumn *int `yaml:"label_column"`
}

// modelConfig is the YAML document read by fit and cv:
//
//	model: boosting
//	seed: 42
//	tree:
//	  max_depth: 6
//	  max_bin: 255
//	boosting:
//	  max_iterations: 100
//	  subsample: 0.5
type modelConfig struct {
	Model    string         `yaml:"model"`
	Seed     uint64         `yaml:"seed"`
	Tree     treeConfig     `yaml:"tree"`
	Boosting boostingConfig `yaml:"boosting"`
	Forest   forestConfig   `yaml:"forest"`
	Data     dataConfig     `yaml:"data"`
}

func parseModelConfig(data []byte) (*modelConfig, error) {
	cfg := &modelConfig{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing model config")
	}
	cfg.Model = strings.ToLower(strings.TrimSpace(cfg.Model))
	if cfg.Model == "" {
		cfg.Model = "boosting"
	}
	switch cfg.Model {
	case "tree", "boosting", "forest":
	default:
		return nil, errors.NewValidationError("model", "must be one of tree, boosting, forest", cfg.Model)
	}
	return cfg, nil
}

func readModelConfig(path string) (*modelConfig, error) {
	if path == "" {
		return parseModelConfig(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return parseModelConfig(data)
}

func (c *modelConfig) labelColumn() int {
	if c.Data.LabelColumn == nil {
		return -1
	}
	return *c.Data.LabelColumn
}

func (c *modelConfig) treeOptions(exec *parallel.Executor) []tree.Option {
	opts := []tree.Option{tree.WithExecutor(exec), tree.WithSeed(c.Seed)}
	if c.Tree.MaxDepth != nil {
		opts = append(opts, tree.WithMaxDepth(*c.Tree.MaxDepth))
	}
	if c.Tree.MaxFeatures != nil {
		opts = append(opts, tree.WithMaxFeatures(*c.Tree.MaxFeatures))
	}
	if c.Tree.MinSamplesSplit != nil {
		opts = append(opts, tree.WithMinSamplesSplit(*c.Tree.MinSamplesSplit))
	}
	if c.Tree.MinSamplesLeaf != nil {
		opts = append(opts, tree.WithMinSamplesLeaf(*c.Tree.MinSamplesLeaf))
	}
	if c.Tree.MaxBin != nil {
		opts = append(opts, tree.WithMaxBin(*c.Tree.MaxBin))
	}
	return opts
}

// build returns an unfitted estimator for the configuration.
func (c *modelConfig) build(exec *parallel.Executor) model.Estimator {
	base := tree.NewDecisionTreeRegressor(c.treeOptions(exec)...)
	switch c.Model {
	case "tree":
		return base
	case "forest":
		rf := ensemble.NewRandomForestRegressor(base).WithSeed(c.Seed).WithExecutor(exec)
		if c.Forest.NEstimators != nil {
			rf.WithNEstimators(*c.Forest.NEstimators)
		}
		if c.Forest.SubSample != nil {
			rf.WithSubSample(*c.Forest.SubSample)
		}
		return rf
	default:
		gb := ensemble.NewGradientBoostingRegressor(base).WithSeed(c.Seed).WithExecutor(exec)
		if c.Boosting.MaxIterations != nil {
			gb.WithMaxIterations(*c.Boosting.MaxIterations)
		}
		if c.Boosting.SubSample != nil {
			gb.WithSubSample(*c.Boosting.SubSample)
		}
		return gb
	}
}
