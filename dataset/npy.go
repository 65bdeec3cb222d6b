package dataset

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// ReadNpyMatrix reads a 2-D float64 .npy array. A 1-D array is returned as
// a single column.
func ReadNpyMatrix(r io.Reader) (*mat.Dense, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "ReadNpyMatrix")
	}
	shape := nr.Header.Descr.Shape
	switch len(shape) {
	case 1:
		var values []float64
		if err := nr.Read(&values); err != nil {
			return nil, errors.Wrap(err, "ReadNpyMatrix")
		}
		if len(values) == 0 {
			return nil, errors.Wrap(errors.ErrEmptyData, "ReadNpyMatrix")
		}
		return mat.NewDense(len(values), 1, values), nil
	case 2:
		m := &mat.Dense{}
		if err := nr.Read(m); err != nil {
			return nil, errors.Wrap(err, "ReadNpyMatrix")
		}
		return m, nil
	default:
		return nil, errors.NewValueError("ReadNpyMatrix", "expected a 1-D or 2-D array")
	}
}

// ReadNpyVector reads a .npy array of any shape as a flat float64 slice.
func ReadNpyVector(r io.Reader) ([]float64, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "ReadNpyVector")
	}
	var values []float64
	if err := nr.Read(&values); err != nil {
		return nil, errors.Wrap(err, "ReadNpyVector")
	}
	return values, nil
}

// WriteNpy writes m as a 2-D .npy array.
func WriteNpy(w io.Writer, m mat.Matrix) error {
	return errors.Wrap(npyio.Write(w, mat.DenseCopyOf(m)), "WriteNpy")
}

// WriteNpyVector writes values as a 1-D .npy array.
func WriteNpyVector(w io.Writer, values []float64) error {
	return errors.Wrap(npyio.Write(w, values), "WriteNpyVector")
}

func isNpy(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".npy")
}

// LoadMatrix reads a feature matrix from a .npy or CSV file. For CSV,
// labelColumn selects a label column to drop (-1 for none).
func LoadMatrix(path string, labelColumn int) (*mat.Dense, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "LoadMatrix")
	}
	defer f.Close()

	if isNpy(path) {
		m, err := ReadNpyMatrix(f)
		return m, nil, err
	}
	parsed, err := ReadCSV(f, CSVOptions{LabelColumn: labelColumn})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "LoadMatrix %s", path)
	}
	return parsed.X, parsed.Y, nil
}

// LoadLabels reads a label vector from a .npy or single-column CSV file.
func LoadLabels(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "LoadLabels")
	}
	defer f.Close()

	if isNpy(path) {
		return ReadNpyVector(f)
	}
	return ReadLabelsCSV(f)
}

// SavePredictions writes predictions to path as .npy or as an id,Predicted
// CSV depending on the extension.
func SavePredictions(path string, predictions []float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "SavePredictions")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrap(cerr, "SavePredictions")
		}
	}()

	if isNpy(path) {
		return WriteNpyVector(f, predictions)
	}
	return WritePredictionsCSV(f, predictions)
}
