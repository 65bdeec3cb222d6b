package dataset

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// CSVOptions control ReadCSV.
type CSVOptions struct {
	// LabelColumn is the index of the label column, or -1 when the file
	// holds features only.
	LabelColumn int

	// Header forces the first row to be treated as column names. When false
	// the first row is still treated as a header if any of its fields is not
	// a number.
	Header bool

	// Comma is the field delimiter; zero means ','.
	Comma rune
}

// CSVData is the parsed content of a CSV file.
type CSVData struct {
	X      *mat.Dense
	Y      []float64 // nil when LabelColumn is -1
	Header []string  // feature names; X1..Xn when the file has none
}

// ReadCSV parses a numeric CSV file.
func ReadCSV(r io.Reader, opts CSVOptions) (*CSVData, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "ReadCSV")
	}
	if err != nil {
		return nil, errors.Wrap(err, "ReadCSV")
	}
	if opts.LabelColumn >= len(first) {
		return nil, errors.NewValidationError("LabelColumn", "out of range", opts.LabelColumn)
	}

	out := &CSVData{}
	var data, labels []float64
	cols := len(first)
	nFeatures := cols
	if opts.LabelColumn >= 0 {
		nFeatures--
	}

	parseRow := func(line int, row []string) error {
		if len(row) != cols {
			return errors.Wrapf(errors.NewDimensionError("ReadCSV", cols, len(row), 1), "line %d", line)
		}
		for j, field := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return errors.Wrapf(err, "ReadCSV: line %d column %d", line, j+1)
			}
			if j == opts.LabelColumn {
				labels = append(labels, v)
			} else {
				data = append(data, v)
			}
		}
		return nil
	}

	if opts.Header || !isNumericRow(first) {
		for j, name := range first {
			if j != opts.LabelColumn {
				out.Header = append(out.Header, name)
			}
		}
	} else {
		if err := parseRow(1, first); err != nil {
			return nil, err
		}
		for j := 0; j < nFeatures; j++ {
			out.Header = append(out.Header, "X"+strconv.Itoa(j+1))
		}
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "ReadCSV")
		}
		if err := parseRow(line, row); err != nil {
			return nil, err
		}
	}

	if len(data) == 0 || nFeatures == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "ReadCSV")
	}
	out.X = mat.NewDense(len(data)/nFeatures, nFeatures, data)
	if opts.LabelColumn >= 0 {
		out.Y = labels
	}
	return out, nil
}

// ReadLabelsCSV reads a single numeric column, skipping a non-numeric
// header row.
func ReadLabelsCSV(r io.Reader) ([]float64, error) {
	parsed, err := ReadCSV(r, CSVOptions{LabelColumn: -1})
	if err != nil {
		return nil, err
	}
	rows, cols := parsed.X.Dims()
	if cols != 1 {
		return nil, errors.NewDimensionError("ReadLabelsCSV", 1, cols, 1)
	}
	return mat.Col(nil, 0, parsed.X)[:rows], nil
}

// WritePredictionsCSV writes predictions as "id,Predicted" rows with 1-based
// ids.
func WritePredictionsCSV(w io.Writer, predictions []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "Predicted"}); err != nil {
		return errors.Wrap(err, "WritePredictionsCSV")
	}
	for i, p := range predictions {
		rec := []string{strconv.Itoa(i + 1), strconv.FormatFloat(p, 'g', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "WritePredictionsCSV")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "WritePredictionsCSV")
}

func isNumericRow(row []string) bool {
	for _, field := range row {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
			return false
		}
	}
	return true
}
