package dataset

import (
	"math"

	"github.com/YuminosukeSato/ensembles/core/random"
)

// SubsampleSize returns max(1, floor(fraction*n)), capped at n.
func SubsampleSize(n int, fraction float64) int {
	k := int(math.Floor(fraction * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// Subsample draws SubsampleSize(n, fraction) distinct row indices from src,
// without replacement, in ascending order. A fraction of 1 returns every
// row in order.
func Subsample(src *random.Source, n int, fraction float64) []int {
	k := SubsampleSize(n, fraction)
	if k == n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	return src.Sample(n, k)
}
