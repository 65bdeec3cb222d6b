// Package ensembles is a library of tree ensembles for regression on dense
// numeric data.
//
// Three learners share one contract (Fit, Predict, Score, snapshots):
//
//   - sklearn/tree.DecisionTreeRegressor grows a variance-reduction tree level
//     by level over pre-sorted column orders, testing at most MaxBin equally
//     spaced boundaries per feature.
//   - sklearn/ensemble.GradientBoostingRegressor fits each base learner to the
//     residual and scales it by a line-searched step size in [0, 1].
//   - sklearn/ensemble.RandomForestRegressor averages members trained on
//     independent row subsamples.
//
// All parallel work runs on a core/parallel.Executor passed through
// configuration, and all randomness derives from the model's seed, so a fit
// is reproducible regardless of the worker count.
//
// # Quick Start
//
//	base := tree.NewDecisionTreeRegressor(tree.WithMaxDepth(6))
//	gb := ensemble.NewGradientBoostingRegressor(base).
//	    WithMaxIterations(200).
//	    WithSubSample(0.5).
//	    WithSeed(42)
//	if err := gb.Fit(X, y); err != nil {
//	    log.Fatal(err)
//	}
//	pred, err := gb.Predict(Xtest)
//
// Fitted models are saved with persistence.SaveFile (zstd or LZ4 compressed)
// and restored with persistence.LoadFile, locally or through a store.Store
// backed by S3 or MinIO. The cmd/ensembles command wraps fit, predict,
// cross-validation and tree rendering.
package ensembles
