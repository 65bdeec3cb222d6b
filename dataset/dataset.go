// Package dataset holds the dense feature matrix and label vector every
// learner trains on, the per-feature sort orders the tree grower walks,
// row subsampling, and CSV and .npy ingestion.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// Dataset is an R×C feature matrix plus a length-R label vector. It is
// read-only after construction and may be shared across goroutines.
type Dataset struct {
	x    *mat.Dense
	y    []float64
	rows int
	cols int
}

// New validates X and y and returns a Dataset over copies of them.
// Labels must be finite.
func New(X mat.Matrix, y mat.Vector) (*Dataset, error) {
	if X == nil || y == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.New")
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.New")
	}
	if y.Len() != rows {
		return nil, errors.NewDimensionError("dataset.New", rows, y.Len(), 0)
	}

	labels := make([]float64, rows)
	for i := range labels {
		labels[i] = y.AtVec(i)
	}
	if err := errors.CheckFinite("dataset.New", labels); err != nil {
		return nil, err
	}

	return &Dataset{
		x:    mat.DenseCopyOf(X),
		y:    labels,
		rows: rows,
		cols: cols,
	}, nil
}

// FromRows builds a Dataset from row slices. Every row must have the same
// length.
func FromRows(rows [][]float64, labels []float64) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.FromRows")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, errors.Wrapf(errors.NewDimensionError("dataset.FromRows", cols, len(r), 1), "row %d", i)
		}
		data = append(data, r...)
	}
	if cols == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.FromRows")
	}
	return New(mat.NewDense(len(rows), cols, data), mat.NewVecDense(len(labels), labels))
}

// Rows returns R.
func (d *Dataset) Rows() int { return d.rows }

// Cols returns C.
func (d *Dataset) Cols() int { return d.cols }

// At returns the value of feature j in row i.
func (d *Dataset) At(i, j int) float64 { return d.x.At(i, j) }

// Labels returns the label vector. Callers must not modify it.
func (d *Dataset) Labels() []float64 { return d.y }

// Row returns a view of row i. Callers must not modify it.
func (d *Dataset) Row(i int) []float64 { return d.x.RawRowView(i) }

// Column returns a copy of feature column j.
func (d *Dataset) Column(j int) []float64 {
	return mat.Col(nil, j, d.x)
}

// Features returns the feature matrix. Callers must not modify it.
func (d *Dataset) Features() *mat.Dense { return d.x }

// LabelVec returns the labels as a gonum vector sharing storage.
func (d *Dataset) LabelVec() *mat.VecDense {
	return mat.NewVecDense(d.rows, d.y)
}

// Subset returns a new Dataset holding the given rows in the given order.
func (d *Dataset) Subset(idx []int) *Dataset {
	return &Dataset{
		x:    SelectRows(d.x, idx),
		y:    SelectValues(d.y, idx),
		rows: len(idx),
		cols: d.cols,
	}
}

// SelectRows copies the rows of X named by idx into a new matrix.
func SelectRows(X mat.Matrix, idx []int) *mat.Dense {
	if len(idx) == 0 {
		return &mat.Dense{}
	}
	_, cols := X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	if dense, ok := X.(mat.RawRowViewer); ok {
		for i, r := range idx {
			out.SetRow(i, dense.RawRowView(r))
		}
		return out
	}
	for i, r := range idx {
		for j := 0; j < cols; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// SelectValues copies values[idx[i]] for every i.
func SelectValues(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = values[r]
	}
	return out
}

// VecValues returns the contents of v as a slice, sharing storage when v is
// a contiguous *mat.VecDense.
func VecValues(v mat.Vector) []float64 {
	if v == nil {
		return nil
	}
	if vd, ok := v.(*mat.VecDense); ok && vd.RawVector().Inc == 1 {
		return vd.RawVector().Data[:vd.Len()]
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
