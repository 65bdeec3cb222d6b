package tree

import (
	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

type treeState struct {
	MaxDepth        int
	MaxFeatures     int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxBin          int
	Seed            uint64

	Model       model.ModelState
	Nodes       []nodeState
	Importances []float64
}

// MarshalSnapshot captures configuration and arena.
func (t *DecisionTreeRegressor) MarshalSnapshot() (*model.Snapshot, error) {
	state, err := model.EncodeState(treeState{
		MaxDepth:        t.MaxDepth,
		MaxFeatures:     t.MaxFeatures,
		MinSamplesSplit: t.MinSamplesSplit,
		MinSamplesLeaf:  t.MinSamplesLeaf,
		MaxBin:          t.MaxBin,
		Seed:            t.Seed,
		Model:           t.state.GetState(),
		Nodes:           toNodeStates(t.nodes),
		Importances:     t.importances,
	})
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{ModelType: ModelType, Version: model.SnapshotVersion, State: state}, nil
}

// UnmarshalSnapshot restores a tree captured by MarshalSnapshot. The
// execution context is kept.
func (t *DecisionTreeRegressor) UnmarshalSnapshot(s *model.Snapshot) error {
	if s.ModelType != ModelType {
		return errors.NewModelError("DecisionTreeRegressor.UnmarshalSnapshot", "model type mismatch", errors.Newf("got %s", s.ModelType))
	}
	var st treeState
	if err := model.DecodeState(s.State, &st); err != nil {
		return err
	}
	nodes, err := fromNodeStates(st.Nodes, st.Model.NFeatures)
	if err != nil {
		return errors.NewModelError("DecisionTreeRegressor.UnmarshalSnapshot", "corrupt arena", err)
	}
	if st.Model.Fitted && len(nodes) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.UnmarshalSnapshot", "corrupt arena", errors.New("fitted tree without nodes"))
	}

	t.MaxDepth = st.MaxDepth
	t.MaxFeatures = st.MaxFeatures
	t.MinSamplesSplit = st.MinSamplesSplit
	t.MinSamplesLeaf = st.MinSamplesLeaf
	t.MaxBin = st.MaxBin
	t.Seed = st.Seed
	t.nodes = nodes
	t.importances = st.Importances
	if t.state == nil {
		t.state = model.NewStateManager()
	}
	t.state.SetState(st.Model)
	return nil
}
