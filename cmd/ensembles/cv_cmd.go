package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ensembles/core/parallel"
	"github.com/YuminosukeSato/ensembles/metrics"
	"github.com/YuminosukeSato/ensembles/model_selection"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

type cvCmdConfig struct {
	*rootCmdConfig
	configPath string
	dataPaths  []string
	labelPaths []string
	folds      int
	shuffle    bool
	metric     string
}

func cvCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &cvCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "cv",
		Short: "Cross-validate a model config",
		Long:  `Run k-fold cross-validation of the model described by a YAML config and report per-fold train and validation scores.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(); err != nil {
				return err
			}
			return config.run()
		},
	}
	cmd.Flags().StringVarP(&(config.configPath), "config", "c", "", "path to a YAML model config")
	cmd.Flags().StringSliceVarP(&(config.dataPaths), "data", "d", nil, "feature files (.csv or .npy) (required)")
	cmd.Flags().StringSliceVarP(&(config.labelPaths), "labels", "l", nil, "label files (.csv or .npy) matching --data")
	cmd.Flags().IntVarP(&(config.folds), "folds", "k", 5, "number of folds")
	cmd.Flags().BoolVar(&(config.shuffle), "shuffle", true, "shuffle rows before splitting, using the config seed")
	cmd.Flags().StringVar(&(config.metric), "metric", "r2", "score: r2, mse, rmse or mae")
	return cmd
}

func (ccc *cvCmdConfig) Validate() error {
	if len(ccc.dataPaths) == 0 {
		return errors.New("required data flag was not set")
	}
	if ccc.folds < 2 {
		return errors.NewValidationError("folds", "must be at least 2", ccc.folds)
	}
	if _, _, err := metrics.ByName(ccc.metric); err != nil {
		return err
	}
	return nil
}

func (ccc *cvCmdConfig) run() error {
	cfg, err := readModelConfig(ccc.configPath)
	if err != nil {
		return err
	}
	X, y, err := loadTraining(ccc.dataPaths, ccc.labelPaths, cfg.labelColumn())
	if err != nil {
		return err
	}

	// Folds run concurrently; each fold's model trains single-threaded.
	est := cfg.build(parallel.Sequential())
	splitter := model_selection.NewKFold(ccc.folds, ccc.shuffle, cfg.Seed)

	start := time.Now()
	result, err := model_selection.CrossValidate(est, X, y, splitter, ccc.metric, ccc.executor())
	if err != nil {
		return err
	}

	ccc.Logf("%d-fold cross-validation of %s (%s)", ccc.folds, est.Name(), ccc.metric)
	for i := range result.TestScores {
		ccc.Logf("fold %d: train %.6f  validation %.6f  fit %s", i+1,
			result.TrainScores[i], result.TestScores[i], result.FitTimes[i].Round(time.Millisecond))
	}
	ccc.Logf("mean %.6f  std %.6f  total %s", result.MeanScore(), result.StdScore(), time.Since(start).Round(time.Millisecond))
	return nil
}
