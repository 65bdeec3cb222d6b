package ensemble

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/core/random"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

func makeRegression(seed uint64, rows, nFeatures int) (*mat.Dense, *mat.VecDense) {
	src := random.New(seed)
	unit := func() float64 { return float64(src.Uint64()>>11) / (1 << 53) }
	X := mat.NewDense(rows, nFeatures, nil)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < nFeatures; j++ {
			X.Set(i, j, unit()*10)
		}
		y.SetVec(i, 3*math.Sin(X.At(i, 0))+0.5*X.At(i, nFeatures-1)+unit())
	}
	return X, y
}

// zeroModel always predicts 0.
type zeroModel struct{}

func (zeroModel) Fit(X mat.Matrix, y mat.Vector) error { return nil }

func (zeroModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, _ := X.Dims()
	return mat.NewVecDense(r, nil), nil
}

func (zeroModel) Clone() model.Estimator { return zeroModel{} }
func (zeroModel) Name() string           { return "zeroModel" }

// flakyModel predicts 0 and fails once the shared counter reaches failAt.
// Clones share the counter.
type flakyModel struct {
	fits   *int
	failAt int
}

func (m flakyModel) Fit(X mat.Matrix, y mat.Vector) error {
	*m.fits++
	if m.failAt > 0 && *m.fits >= m.failAt {
		return errors.New("flaky fit")
	}
	return nil
}

func (flakyModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, _ := X.Dims()
	return mat.NewVecDense(r, nil), nil
}

func (m flakyModel) Clone() model.Estimator { return m }
func (flakyModel) Name() string             { return "flakyModel" }
