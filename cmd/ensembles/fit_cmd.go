package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/persistence"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/report"
	"github.com/YuminosukeSato/ensembles/sklearn/ensemble"
)

type fitCmdConfig struct {
	*rootCmdConfig
	configPath string
	dataPaths  []string
	labelPaths []string
	output     string
	resume     string
	codec      string
	curve      string
}

func fitCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &fitCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a model and save it",
		Long:  `Fit a tree, gradient boosting or random forest regressor described by a YAML config on the given data and save the encoded model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(); err != nil {
				return err
			}
			return config.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&(config.configPath), "config", "c", "", "path to a YAML model config (defaults to a default boosting model)")
	cmd.Flags().StringSliceVarP(&(config.dataPaths), "data", "d", nil, "feature files (.csv or .npy); repeat or comma-separate to stack several (required)")
	cmd.Flags().StringSliceVarP(&(config.labelPaths), "labels", "l", nil, "label files (.csv or .npy) matching --data")
	cmd.Flags().StringVarP(&(config.output), "out", "o", "", "model name to write (required)")
	cmd.Flags().StringVar(&(config.resume), "resume", "", "model name to continue training from instead of the config")
	cmd.Flags().StringVar(&(config.codec), "codec", "zstd", "model compression: zstd, lz4 or none")
	cmd.Flags().StringVar(&(config.curve), "curve", "", "write the boosting training curve to this image (.png, .svg, .pdf)")
	return cmd
}

func (fcc *fitCmdConfig) Validate() error {
	if len(fcc.dataPaths) == 0 {
		return errors.New("required data flag was not set")
	}
	if fcc.output == "" {
		return errors.New("required out flag was not set")
	}
	if _, err := persistence.ParseCodec(fcc.codec); err != nil {
		return err
	}
	return nil
}

func (fcc *fitCmdConfig) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := readModelConfig(fcc.configPath)
	if err != nil {
		return err
	}
	codec, _ := persistence.ParseCodec(fcc.codec)
	st, err := fcc.store(ctx)
	if err != nil {
		return err
	}
	exec := fcc.executor()

	var est model.Estimator
	if fcc.resume != "" {
		if est, err = loadModel(ctx, st, fcc.resume); err != nil {
			return err
		}
		applyExecutor(est, exec)
		fcc.Logf("Resuming %s from %s", est.Name(), fcc.resume)
	} else {
		est = cfg.build(exec)
	}

	X, y, err := loadTraining(fcc.dataPaths, fcc.labelPaths, cfg.labelColumn())
	if err != nil {
		return err
	}
	rows, cols := X.Dims()
	fcc.Logf("Fitting %s on %d samples with %d features ...", est.Name(), rows, cols)
	logger().Info("fit started", "model", est.Name(), "rows", rows, "features", cols, "workers", exec.Workers())

	start := time.Now()
	if err := est.Fit(X, y); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if scorer, ok := est.(model.Scorer); ok {
		r2, err := scorer.Score(X, y)
		if err != nil {
			logger().Warn("training score unavailable", "error", err)
		} else {
			fcc.Logf("Done in %s, training R2 = %.6f", elapsed.Round(time.Millisecond), r2)
		}
	}

	if fcc.curve != "" {
		gb, ok := est.(*ensemble.GradientBoostingRegressor)
		if !ok {
			return errors.NewValueError("--curve", "training curves are only recorded for boosting models")
		}
		if err := report.SaveLearningCurve(fcc.curve, gb.TrainingCurve()); err != nil {
			return err
		}
		fcc.Logf("Training curve written to %s", fcc.curve)
	}

	if err := saveModel(ctx, st, fcc.output, est, codec); err != nil {
		return err
	}
	fcc.Logf("Model written to %s (%s)", fcc.output, codec)
	return nil
}
