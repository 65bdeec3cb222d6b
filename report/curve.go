package report

import (
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/sklearn/ensemble"
)

// CurveSize is the default size of learning-curve images.
var CurveSize = struct{ Width, Height vg.Length }{Width: 6 * vg.Inch, Height: 4 * vg.Inch}

// LearningCurve builds a plot of the in-sample MSE after each boosting round.
// Rounds whose step size was 0 are marked with a cross.
func LearningCurve(rounds []ensemble.Round) (*plot.Plot, error) {
	if len(rounds) == 0 {
		return nil, errors.NewValueError("report.LearningCurve", "no boosting rounds to plot")
	}

	mse := make(plotter.XYs, len(rounds))
	var stalled plotter.XYs
	for i, r := range rounds {
		mse[i].X = float64(r.Iteration)
		mse[i].Y = r.MSE
		if r.LearningRate == 0 {
			stalled = append(stalled, plotter.XY{X: float64(r.Iteration), Y: r.MSE})
		}
	}

	p := plot.New()
	p.Title.Text = "Gradient boosting training curve"
	p.X.Label.Text = "round"
	p.Y.Label.Text = "training MSE"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(mse)
	if err != nil {
		return nil, errors.Wrap(err, "build MSE line")
	}
	p.Add(line)
	p.Legend.Add("mse", line)

	if len(stalled) > 0 {
		pts, err := plotter.NewScatter(stalled)
		if err != nil {
			return nil, errors.Wrap(err, "build stalled-round markers")
		}
		pts.GlyphStyle.Shape = draw.CrossGlyph{}
		p.Add(pts)
		p.Legend.Add("step size 0", pts)
	}
	return p, nil
}

// WriteLearningCurve renders the curve to w in the given format
// ("png", "svg", "pdf", ...).
func WriteLearningCurve(w io.Writer, rounds []ensemble.Round, format string) error {
	p, err := LearningCurve(rounds)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(CurveSize.Width, CurveSize.Height, format)
	if err != nil {
		return errors.Wrapf(err, "unsupported plot format %q", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write learning curve")
	}
	return nil
}

// SaveLearningCurve writes the curve to path; the extension selects the format.
func SaveLearningCurve(path string, rounds []ensemble.Round) error {
	if strings.TrimPrefix(filepath.Ext(path), ".") == "" {
		return errors.NewValueError("report.SaveLearningCurve", "path needs an image extension: "+path)
	}
	p, err := LearningCurve(rounds)
	if err != nil {
		return err
	}
	if err := p.Save(CurveSize.Width, CurveSize.Height, path); err != nil {
		return errors.Wrapf(err, "save learning curve %s", path)
	}
	return nil
}
