// Command ensembles trains, evaluates and applies gradient boosting and
// random forest regressors from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ensembles/core/parallel"
	"github.com/YuminosukeSato/ensembles/pkg/log"
	"github.com/YuminosukeSato/ensembles/store"
)

type rootCmdConfig struct {
	verbose  bool
	logLevel string
	workers  int
	storeURI string
	out      io.Writer
}

func main() {
	if err := cliParser(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser(out io.Writer) *cobra.Command {
	config := &rootCmdConfig{out: out}
	rootCmd := &cobra.Command{
		Use:           "ensembles",
		Short:         "ensembles trains tree ensembles for regression",
		Long:          `A tool to fit gradient boosting and random forest regressors on numeric data, cross-validate them, predict with them and render their trees`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := config.logLevel
			if config.verbose {
				level = "debug"
			}
			return log.SetupLogger(os.Stderr, level)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&(config.logLevel), "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().IntVarP(&(config.workers), "workers", "w", 0, "worker goroutines for training and prediction (0: one per CPU)")
	rootCmd.PersistentFlags().StringVar(&(config.storeURI), "store", "", "where model names resolve: a directory, s3://bucket/prefix or minio://endpoint/bucket/prefix (default: plain file paths)")
	rootCmd.AddCommand(fitCmd(config), predictCmd(config), cvCmd(config), renderCmd(config))
	return rootCmd
}

func (c *rootCmdConfig) executor() *parallel.Executor {
	return parallel.New(c.workers)
}

func (c *rootCmdConfig) store(ctx context.Context) (store.Store, error) {
	return openStore(ctx, c.storeURI)
}

func (c *rootCmdConfig) Logf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func logger() log.Logger {
	return log.GetLoggerWithName("cmd")
}
