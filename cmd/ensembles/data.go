package main

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/dataset"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// loadFeatures reads and stacks the feature files in order. When
// labelColumn >= 0 the labels embedded in the files are returned too.
func loadFeatures(paths []string, labelColumn int) (*mat.Dense, []float64, error) {
	if len(paths) == 0 {
		return nil, nil, errors.NewValueError("--data", "at least one data file is required")
	}
	var (
		parts  []*mat.Dense
		labels []float64
		cols   = -1
		rows   int
	)
	for _, p := range paths {
		X, y, err := dataset.LoadMatrix(p, labelColumn)
		if err != nil {
			return nil, nil, err
		}
		r, c := X.Dims()
		if cols >= 0 && c != cols {
			return nil, nil, errors.NewDimensionError("loadFeatures "+p, cols, c, 1)
		}
		cols = c
		rows += r
		parts = append(parts, X)
		labels = append(labels, y...)
	}
	if len(parts) == 1 {
		return parts[0], labels, nil
	}

	out := mat.NewDense(rows, cols, nil)
	offset := 0
	for _, part := range parts {
		r, _ := part.Dims()
		out.Slice(offset, offset+r, 0, cols).(*mat.Dense).Copy(part)
		offset += r
	}
	return out, labels, nil
}

func loadLabels(paths []string) ([]float64, error) {
	var labels []float64
	for _, p := range paths {
		y, err := dataset.LoadLabels(p)
		if err != nil {
			return nil, err
		}
		labels = append(labels, y...)
	}
	return labels, nil
}

// loadTraining returns features and labels from either separate label files
// or a label column inside the data files.
func loadTraining(dataPaths, labelPaths []string, labelColumn int) (*mat.Dense, *mat.VecDense, error) {
	if len(labelPaths) == 0 && labelColumn < 0 {
		return nil, nil, errors.NewValueError("--labels", "labels are required: pass --labels or set data.label_column")
	}
	if len(labelPaths) > 0 {
		labelColumn = -1
	}
	X, y, err := loadFeatures(dataPaths, labelColumn)
	if err != nil {
		return nil, nil, err
	}
	if len(labelPaths) > 0 {
		if y, err = loadLabels(labelPaths); err != nil {
			return nil, nil, err
		}
	}
	r, _ := X.Dims()
	if r == 0 {
		return nil, nil, errors.ErrEmptyData
	}
	if len(y) != r {
		return nil, nil, errors.NewDimensionError("loadTraining", r, len(y), 0)
	}
	return X, mat.NewVecDense(len(y), y), nil
}
