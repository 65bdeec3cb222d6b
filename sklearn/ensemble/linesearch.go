package ensemble

import "github.com/YuminosukeSato/ensembles/core/parallel"

// stepCandidates is the line-search grid: 0, 0.01, ..., 1.00.
const stepCandidates = 100

func stepSize(k int) float64 { return float64(k) / stepCandidates }

// lineSearch picks the step lr minimising MSE(y, running + lr*pred). The
// candidates are scored in parallel and reduced in grid order with a strict
// comparison, so equal scores resolve to the smallest lr. lr = 0 is always
// a candidate, so the returned MSE never exceeds MSE(y, running).
func lineSearch(exec *parallel.Executor, y, running, pred []float64) (lr, mse float64) {
	scores := make([]float64, stepCandidates+1)
	_ = exec.ForEach(len(scores), func(k int) error {
		scores[k] = stepMSE(y, running, pred, stepSize(k))
		return nil
	})

	best := 0
	for k := 1; k < len(scores); k++ {
		if scores[k] < scores[best] {
			best = k
		}
	}
	return stepSize(best), scores[best]
}

// stepMSE scores running + lr*pred against y. applyStep must use the same
// expression so the committed prediction scores exactly as searched; the
// conversions keep the compiler from fusing the multiply-add.
func stepMSE(y, running, pred []float64, lr float64) float64 {
	var sum float64
	for i := range y {
		d := y[i] - (running[i] + float64(lr*pred[i]))
		sum += d * d
	}
	return sum / float64(len(y))
}

func applyStep(running, pred []float64, lr float64) {
	for i := range running {
		running[i] = running[i] + float64(lr*pred[i])
	}
}
