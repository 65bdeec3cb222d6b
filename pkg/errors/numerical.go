package errors

import (
	"math"
)

// CheckFinite returns a NumericalInstabilityError naming the first NaN or
// Inf found in values.
func CheckFinite(operation string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			end := i + 5
			if end > len(values) {
				end = len(values)
			}
			return NewNumericalInstabilityError(operation, values[i:end], i)
		}
	}
	return nil
}

// CheckScalar checks a single value.
func CheckScalar(operation string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, 0)
	}
	return nil
}
