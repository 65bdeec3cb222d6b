package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ensembles/persistence"
	"github.com/YuminosukeSato/ensembles/sklearn/ensemble"
	"github.com/YuminosukeSato/ensembles/sklearn/tree"
)

// writeFixture writes train.csv (with header), labels.csv and combined.csv
// (features plus label in the last column) into dir.
func writeFixture(t *testing.T, dir string) {
	t.Helper()
	var train, labels, combined strings.Builder
	train.WriteString("a,b\n")
	labels.WriteString("y\n")
	for i := 0; i < 60; i++ {
		a := float64(i % 10)
		b := float64((i * 7) % 13)
		y := 2*a - b
		if a >= 5 {
			y += 10
		}
		fmt.Fprintf(&train, "%g,%g\n", a, b)
		fmt.Fprintf(&labels, "%g\n", y)
		fmt.Fprintf(&combined, "%g,%g,%g\n", a, b, y)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.csv"), []byte(train.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.csv"), []byte(labels.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "combined.csv"), []byte(combined.String()), 0o644))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := cliParser(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestFitPredictBoosting(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	cfg := filepath.Join(dir, "gbm.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("model: boosting\nseed: 3\ntree:\n  max_depth: 3\nboosting:\n  max_iterations: 10\n"), 0o644))

	modelPath := filepath.Join(dir, "gbm.ens")
	curvePath := filepath.Join(dir, "curve.svg")
	out, err := run(t, "fit", "--config", cfg,
		"--data", filepath.Join(dir, "train.csv"), "--labels", filepath.Join(dir, "labels.csv"),
		"--out", modelPath, "--codec", "lz4", "--curve", curvePath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Model written to")
	assert.FileExists(t, curvePath)

	est, err := persistence.LoadFile(modelPath)
	require.NoError(t, err)
	gb, ok := est.(*ensemble.GradientBoostingRegressor)
	require.True(t, ok)
	assert.Len(t, gb.Learners(), 10)

	predPath := filepath.Join(dir, "pred.csv")
	out, err = run(t, "predict", "--model", modelPath, "--data", filepath.Join(dir, "train.csv"), "--out", predPath)
	require.NoError(t, err, out)

	f, err := os.Open(predPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 61)
	assert.Equal(t, []string{"id", "Predicted"}, records[0])
	assert.Equal(t, "1", records[1][0])
}

func TestFitForestWithStore(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	cfg := filepath.Join(dir, "rf.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(
		"model: forest\nseed: 5\nforest:\n  n_estimators: 4\n  subsample: 0.8\ndata:\n  label_column: 2\n"), 0o644))

	storeDir := filepath.Join(dir, "models")
	out, err := run(t, "--store", storeDir, "fit", "--config", cfg,
		"--data", filepath.Join(dir, "combined.csv"), "--out", "runs/rf.ens")
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(storeDir, "runs", "rf.ens"))

	out, err = run(t, "--store", storeDir, "fit", "--config", cfg, "--resume", "runs/rf.ens",
		"--data", filepath.Join(dir, "combined.csv"), "--out", "runs/rf2.ens")
	require.NoError(t, err, out)

	est, err := persistence.LoadFile(filepath.Join(storeDir, "runs", "rf2.ens"))
	require.NoError(t, err)
	rf, ok := est.(*ensemble.RandomForestRegressor)
	require.True(t, ok)
	assert.Len(t, rf.Learners(), 8)

	predPath := filepath.Join(dir, "pred.npy")
	out, err = run(t, "--store", storeDir, "predict", "--model", "runs/rf.ens",
		"--data", filepath.Join(dir, "combined.csv"), "--label-column", "2", "--out", predPath)
	require.NoError(t, err, out)
	assert.FileExists(t, predPath)
}

func TestResumeBoostingFails(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	modelPath := filepath.Join(dir, "gbm.ens")
	cfg := filepath.Join(dir, "gbm.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("boosting:\n  max_iterations: 2\n"), 0o644))
	args := []string{"fit", "--config", cfg, "--data", filepath.Join(dir, "train.csv"),
		"--labels", filepath.Join(dir, "labels.csv"), "--out", modelPath}

	_, err := run(t, args...)
	require.NoError(t, err)
	_, err = run(t, append(args, "--resume", modelPath)...)
	assert.Error(t, err)
}

func TestCrossValidateCommand(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	cfg := filepath.Join(dir, "tree.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("model: tree\nseed: 1\n"), 0o644))

	out, err := run(t, "cv", "--config", cfg, "--folds", "3", "--metric", "mse",
		"--data", filepath.Join(dir, "train.csv"), "--labels", filepath.Join(dir, "labels.csv"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "3-fold cross-validation of DecisionTreeRegressor (mse)")
	assert.Contains(t, out, "fold 3:")
	assert.Contains(t, out, "mean ")

	_, err = run(t, "cv", "--folds", "1", "--data", filepath.Join(dir, "train.csv"))
	assert.Error(t, err)
	_, err = run(t, "cv", "--metric", "auc", "--data", filepath.Join(dir, "train.csv"))
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	cfg := filepath.Join(dir, "tree.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("model: tree\ntree:\n  max_depth: 2\n"), 0o644))
	modelPath := filepath.Join(dir, "tree.ens")
	_, err := run(t, "fit", "--config", cfg, "--data", filepath.Join(dir, "train.csv"),
		"--labels", filepath.Join(dir, "labels.csv"), "--out", modelPath, "--codec", "none")
	require.NoError(t, err)

	out, err := run(t, "render", "--model", modelPath, "--format", "dot", "--feature-names", "a,b")
	require.NoError(t, err)
	assert.Contains(t, out, "a <=")

	svgPath := filepath.Join(dir, "tree.svg")
	out, err = run(t, "render", "--model", modelPath, "--out", svgPath)
	require.NoError(t, err, out)
	assert.FileExists(t, svgPath)

	_, err = run(t, "render", "--model", modelPath, "--tree", "1")
	assert.Error(t, err)
}

func TestFitValidation(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	_, err := run(t, "fit", "--out", filepath.Join(dir, "m.ens"))
	assert.Error(t, err)
	_, err = run(t, "fit", "--data", filepath.Join(dir, "train.csv"))
	assert.Error(t, err)
	_, err = run(t, "fit", "--data", filepath.Join(dir, "train.csv"), "--out", filepath.Join(dir, "m.ens"))
	assert.Error(t, err, "labels missing")
	_, err = run(t, "fit", "--data", filepath.Join(dir, "train.csv"), "--labels", filepath.Join(dir, "labels.csv"),
		"--out", filepath.Join(dir, "m.ens"), "--codec", "brotli")
	assert.Error(t, err)
}

func TestParseModelConfig(t *testing.T) {
	cfg, err := parseModelConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "boosting", cfg.Model)
	assert.Equal(t, -1, cfg.labelColumn())

	cfg, err = parseModelConfig([]byte("model: Tree\nseed: 9\ntree:\n  max_depth: 4\n  max_bin: 16\n"))
	require.NoError(t, err)
	dt, ok := cfg.build(nil).(*tree.DecisionTreeRegressor)
	require.True(t, ok)
	assert.Equal(t, 4, dt.MaxDepth)
	assert.Equal(t, 16, dt.MaxBin)
	assert.Equal(t, uint64(9), dt.Seed)

	cfg, err = parseModelConfig([]byte("model: forest\nforest:\n  n_estimators: 7\n"))
	require.NoError(t, err)
	rf, ok := cfg.build(nil).(*ensemble.RandomForestRegressor)
	require.True(t, ok)
	assert.Equal(t, 7, rf.NEstimators)

	_, err = parseModelConfig([]byte("model: svm\n"))
	assert.Error(t, err)
	_, err = parseModelConfig([]byte("model: tree\nunknown_key: 1\n"))
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	st, err := openStore(t.Context(), "")
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = openStore(t.Context(), t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, st)

	_, err = openStore(t.Context(), "minio://localhost:9000")
	assert.Error(t, err)
	_, err = openStore(t.Context(), "s3:///prefix")
	assert.Error(t, err)
}
