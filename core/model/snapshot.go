package model

import (
	"sort"
	"sync"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// SnapshotVersion is the envelope format version written by this build.
const SnapshotVersion = 1

// Snapshot はモデルの完全な状態を表す（シリアライゼーション用）。
// State holds the model's own gob-encoded fields; Children holds the
// snapshots of nested learners in order (ensemble members, and the base
// learner template at index 0 for ensembles).
type Snapshot struct {
	// ModelType is the registry key, e.g. "RandomForestRegressor".
	ModelType string

	// Version is checked on restore.
	Version int

	State    []byte
	Children []*Snapshot
}

// Validate checks the envelope fields.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.NewValueError("Snapshot.Validate", "nil snapshot")
	}
	if s.ModelType == "" {
		return errors.NewValueError("Snapshot.Validate", "model type is required")
	}
	if s.Version != SnapshotVersion {
		return errors.NewModelError("Snapshot.Validate", "version mismatch",
			errors.Newf("snapshot version %d, supported %d", s.Version, SnapshotVersion))
	}
	for _, c := range s.Children {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Snapshotter is implemented by models that can be captured and restored.
type Snapshotter interface {
	MarshalSnapshot() (*Snapshot, error)
	UnmarshalSnapshot(s *Snapshot) error
}

// Factory returns an unfitted estimator with default configuration.
type Factory func() Estimator

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a model type restorable from snapshots. It is called from
// the init functions of the packages defining the models.
func Register(modelType string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[modelType] = f
}

// Registered lists the registered model types in sorted order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Restore builds the model described by s, recursing into children through
// the model's own UnmarshalSnapshot.
func Restore(s *Snapshot) (Estimator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	registryMu.RLock()
	f, ok := registry[s.ModelType]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownModel, "restore %q", s.ModelType)
	}

	est := f()
	snap, ok := est.(Snapshotter)
	if !ok {
		return nil, errors.NewModelError("Restore", "model does not support snapshots", errors.Newf("%s", s.ModelType))
	}
	if err := snap.UnmarshalSnapshot(s); err != nil {
		return nil, err
	}
	return est, nil
}

// Capture snapshots est, failing if it does not implement Snapshotter.
func Capture(est Estimator) (*Snapshot, error) {
	snap, ok := est.(Snapshotter)
	if !ok {
		return nil, errors.NewModelError("Capture", "model does not support snapshots", errors.Newf("%s", est.Name()))
	}
	return snap.MarshalSnapshot()
}
