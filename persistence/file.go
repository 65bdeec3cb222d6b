package persistence

import (
	"context"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/pkg/log"
	"github.com/YuminosukeSato/ensembles/store"
)

// SaveFile writes est to path, creating parent directories as needed.
func SaveFile(path string, est model.Estimator, c Codec) error {
	data, err := Marshal(est, c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory for %s", path)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write model file %s", path)
	}
	log.GetLoggerWithName("persistence").Debug("model saved",
		"path", path, "model", est.Name(), "codec", c.String(), "bytes", len(data))
	return nil
}

// LoadFile restores the model stored at path.
func LoadFile(path string) (model.Estimator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read model file %s", path)
	}
	est, err := Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load model file %s", path)
	}
	return est, nil
}

// Save writes est to st under key.
func Save(ctx context.Context, st store.Store, key string, est model.Estimator, c Codec) error {
	data, err := Marshal(est, c)
	if err != nil {
		return err
	}
	if err := st.Put(ctx, key, data); err != nil {
		return err
	}
	log.GetLoggerWithName("persistence").Debug("model stored",
		"key", key, "model", est.Name(), "codec", c.String(), "bytes", len(data))
	return nil
}

// Load restores the model stored under key.
func Load(ctx context.Context, st store.Store, key string) (model.Estimator, error) {
	data, err := st.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	est, err := Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %q", key)
	}
	return est, nil
}
