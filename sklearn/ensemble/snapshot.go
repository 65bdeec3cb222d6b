package ensemble

import (
	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/core/random"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// Ensemble snapshots store the base learner template as Children[0] and the
// fitted members after it.

type boostingState struct {
	MaxIterations int
	SubSample     float64
	Seed          uint64
	InitValue     float64
	LearningRates []float64
	Curve         []Round
	Model         model.ModelState
}

type forestState struct {
	NEstimators int
	SubSample   float64
	Seed        uint64
	Source      []byte // nil until the first Fit
	Model       model.ModelState
}

func captureMembers(base model.Estimator, learners []model.Estimator) ([]*model.Snapshot, error) {
	children := make([]*model.Snapshot, 0, len(learners)+1)
	for _, est := range append([]model.Estimator{base}, learners...) {
		snap, err := model.Capture(est)
		if err != nil {
			return nil, err
		}
		children = append(children, snap)
	}
	return children, nil
}

func restoreMembers(op string, children []*model.Snapshot) (model.Estimator, []model.Estimator, error) {
	if len(children) == 0 {
		return nil, nil, errors.NewModelError(op, "missing base learner", nil)
	}
	ests := make([]model.Estimator, len(children))
	for i, c := range children {
		est, err := model.Restore(c)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "%s: child %d", op, i)
		}
		ests[i] = est
	}
	return ests[0], ests[1:], nil
}

// MarshalSnapshot captures configuration, learners and step sizes.
func (gb *GradientBoostingRegressor) MarshalSnapshot() (*model.Snapshot, error) {
	state, err := model.EncodeState(boostingState{
		MaxIterations: gb.MaxIterations,
		SubSample:     gb.SubSample,
		Seed:          gb.Seed,
		InitValue:     gb.initValue,
		LearningRates: gb.learningRates,
		Curve:         gb.curve,
		Model:         gb.state.GetState(),
	})
	if err != nil {
		return nil, err
	}
	children, err := captureMembers(gb.base, gb.learners)
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{ModelType: BoostingModelType, Version: model.SnapshotVersion, State: state, Children: children}, nil
}

// UnmarshalSnapshot restores a booster captured by MarshalSnapshot.
func (gb *GradientBoostingRegressor) UnmarshalSnapshot(s *model.Snapshot) error {
	const op = "GradientBoostingRegressor.UnmarshalSnapshot"
	if s.ModelType != BoostingModelType {
		return errors.NewModelError(op, "model type mismatch", errors.Newf("got %s", s.ModelType))
	}
	var st boostingState
	if err := model.DecodeState(s.State, &st); err != nil {
		return err
	}
	base, learners, err := restoreMembers(op, s.Children)
	if err != nil {
		return err
	}
	if len(learners) != len(st.LearningRates) {
		return errors.NewModelError(op, "learner count mismatch",
			errors.Newf("%d learners, %d learning rates", len(learners), len(st.LearningRates)))
	}

	gb.MaxIterations = st.MaxIterations
	gb.SubSample = st.SubSample
	gb.Seed = st.Seed
	gb.initValue = st.InitValue
	gb.learningRates = st.LearningRates
	gb.curve = st.Curve
	gb.base = base
	gb.learners = learners
	if gb.state == nil {
		gb.state = model.NewStateManager()
	}
	gb.state.SetState(st.Model)
	return nil
}

// MarshalSnapshot captures configuration, members and the member source,
// so a restored forest keeps drawing the same random stream.
func (rf *RandomForestRegressor) MarshalSnapshot() (*model.Snapshot, error) {
	st := forestState{
		NEstimators: rf.NEstimators,
		SubSample:   rf.SubSample,
		Seed:        rf.Seed,
		Model:       rf.state.GetState(),
	}
	if rf.src != nil {
		src, err := rf.src.MarshalBinary()
		if err != nil {
			return nil, errors.Wrap(err, "capture forest source")
		}
		st.Source = src
	}
	state, err := model.EncodeState(st)
	if err != nil {
		return nil, err
	}
	children, err := captureMembers(rf.base, rf.learners)
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{ModelType: ForestModelType, Version: model.SnapshotVersion, State: state, Children: children}, nil
}

// UnmarshalSnapshot restores a forest captured by MarshalSnapshot.
func (rf *RandomForestRegressor) UnmarshalSnapshot(s *model.Snapshot) error {
	const op = "RandomForestRegressor.UnmarshalSnapshot"
	if s.ModelType != ForestModelType {
		return errors.NewModelError(op, "model type mismatch", errors.Newf("got %s", s.ModelType))
	}
	var st forestState
	if err := model.DecodeState(s.State, &st); err != nil {
		return err
	}
	base, learners, err := restoreMembers(op, s.Children)
	if err != nil {
		return err
	}

	var src *random.Source
	if len(st.Source) > 0 {
		src = &random.Source{}
		if err := src.UnmarshalBinary(st.Source); err != nil {
			return errors.NewModelError(op, "corrupt random source", err)
		}
	}

	rf.NEstimators = st.NEstimators
	rf.SubSample = st.SubSample
	rf.Seed = st.Seed
	rf.src = src
	rf.base = base
	rf.learners = learners
	if rf.state == nil {
		rf.state = model.NewStateManager()
	}
	rf.state.SetState(st.Model)
	return nil
}
