package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/core/parallel"
	"github.com/YuminosukeSato/ensembles/dataset"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/sklearn/ensemble"
	"github.com/YuminosukeSato/ensembles/sklearn/tree"
)

type predictCmdConfig struct {
	*rootCmdConfig
	modelName   string
	dataPaths   []string
	labelColumn int
	output      string
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict with a saved model",
		Long:  `Load an encoded model and write its predictions for the given feature files as an id,Predicted CSV or a .npy vector.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(); err != nil {
				return err
			}
			return config.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&(config.modelName), "model", "m", "", "model name to load (required)")
	cmd.Flags().StringSliceVarP(&(config.dataPaths), "data", "d", nil, "feature files (.csv or .npy) (required)")
	cmd.Flags().IntVar(&(config.labelColumn), "label-column", -1, "column of the data files to drop before predicting (-1: none)")
	cmd.Flags().StringVarP(&(config.output), "out", "o", "", "predictions file, .csv or .npy (required)")
	return cmd
}

func (pcc *predictCmdConfig) Validate() error {
	if pcc.modelName == "" {
		return errors.New("required model flag was not set")
	}
	if len(pcc.dataPaths) == 0 {
		return errors.New("required data flag was not set")
	}
	if pcc.output == "" {
		return errors.New("required out flag was not set")
	}
	return nil
}

func (pcc *predictCmdConfig) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := pcc.store(ctx)
	if err != nil {
		return err
	}
	est, err := loadModel(ctx, st, pcc.modelName)
	if err != nil {
		return err
	}
	applyExecutor(est, pcc.executor())

	X, _, err := loadFeatures(pcc.dataPaths, pcc.labelColumn)
	if err != nil {
		return err
	}
	pred, err := est.Predict(X)
	if err != nil {
		return err
	}
	if err := dataset.SavePredictions(pcc.output, dataset.VecValues(pred)); err != nil {
		return err
	}
	pcc.Logf("Wrote %d predictions to %s", pred.Len(), pcc.output)
	return nil
}

// applyExecutor points a restored model at the command's executor.
func applyExecutor(est model.Estimator, exec *parallel.Executor) {
	switch m := est.(type) {
	case *tree.DecisionTreeRegressor:
		tree.WithExecutor(exec)(m)
	case *ensemble.GradientBoostingRegressor:
		m.WithExecutor(exec)
	case *ensemble.RandomForestRegressor:
		m.WithExecutor(exec)
	}
}
