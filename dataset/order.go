package dataset

import (
	"cmp"
	"math"
	"slices"

	"github.com/YuminosukeSato/ensembles/core/parallel"
)

// ColumnOrder holds, for every feature, the row indices of a Dataset sorted
// by that feature's value. It is built once per fit and read-only afterward.
type ColumnOrder struct {
	perms [][]int
}

// BuildColumnOrder sorts every column independently on exec. Ties keep the
// original row order; NaN sorts after every other value and NaNs compare
// equal to each other.
func BuildColumnOrder(d *Dataset, exec *parallel.Executor) *ColumnOrder {
	perms := make([][]int, d.Cols())
	_ = exec.ForEach(d.Cols(), func(j int) error {
		col := d.Column(j)
		perm := make([]int, d.Rows())
		for i := range perm {
			perm[i] = i
		}
		slices.SortStableFunc(perm, func(a, b int) int {
			return CompareValues(col[a], col[b])
		})
		perms[j] = perm
		return nil
	})
	return &ColumnOrder{perms: perms}
}

// CompareValues is the total order used for feature values: the natural
// order with ±Inf at the ends and NaN last.
func CompareValues(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(a, b)
}

// Feature returns the sorted row indices of feature j. Callers must not
// modify the slice.
func (o *ColumnOrder) Feature(j int) []int { return o.perms[j] }

// NumFeatures returns the number of columns indexed.
func (o *ColumnOrder) NumFeatures() int { return len(o.perms) }
