package model

import (
	"math"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// ParamInt converts a SetParams value to int. Whole float64 values are
// accepted since YAML and JSON decoders produce them.
func ParamInt(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, errors.NewValidationError(name, "must be an integer", value)
}

// ParamFloat converts a SetParams value to float64.
func ParamFloat(name string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	}
	return 0, errors.NewValidationError(name, "must be a number", value)
}

// ParamSeed converts a SetParams value to a uint64 seed.
func ParamSeed(name string, value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case int:
		if v >= 0 {
			return uint64(v), nil
		}
	case int64:
		if v >= 0 {
			return uint64(v), nil
		}
	case float64:
		if v >= 0 && v == math.Trunc(v) {
			return uint64(v), nil
		}
	}
	return 0, errors.NewValidationError(name, "must be a non-negative integer", value)
}
