package main

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/report"
)

type renderCmdConfig struct {
	*rootCmdConfig
	modelName    string
	treeIndex    int
	format       string
	output       string
	featureNames []string
}

func renderCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &renderCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one tree of a saved model",
		Long:  `Draw a tree of a saved model with Graphviz. Ensembles select the member with --tree.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(); err != nil {
				return err
			}
			return config.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&(config.modelName), "model", "m", "", "model name to load (required)")
	cmd.Flags().IntVarP(&(config.treeIndex), "tree", "t", 0, "index of the ensemble member to draw")
	cmd.Flags().StringVarP(&(config.format), "format", "f", "svg", "output format: svg, png, jpg or dot")
	cmd.Flags().StringVarP(&(config.output), "out", "o", "", "output file (defaults to STDOUT)")
	cmd.Flags().StringSliceVar(&(config.featureNames), "feature-names", nil, "names to print instead of x[i]")
	return cmd
}

func (rcc *renderCmdConfig) Validate() error {
	if rcc.modelName == "" {
		return errors.New("required model flag was not set")
	}
	if _, err := report.ParseFormat(rcc.format); err != nil {
		return err
	}
	return nil
}

func (rcc *renderCmdConfig) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := rcc.store(ctx)
	if err != nil {
		return err
	}
	est, err := loadModel(ctx, st, rcc.modelName)
	if err != nil {
		return err
	}
	t, err := report.TreeAt(est, rcc.treeIndex)
	if err != nil {
		return err
	}
	format, _ := report.ParseFormat(rcc.format)

	var buf bytes.Buffer
	if err := report.RenderTree(&buf, t, format, report.TreeOptions{FeatureNames: rcc.featureNames}); err != nil {
		return err
	}
	if rcc.output == "" {
		_, err := rcc.out.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(rcc.output, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", rcc.output)
	}
	rcc.Logf("Tree %d of %s (%d nodes) written to %s", rcc.treeIndex, est.Name(), t.NodeCount(), rcc.output)
	return nil
}
