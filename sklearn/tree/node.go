package tree

import (
	"fmt"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// Split is the variant of a Node: either Leaf or Stem.
type Split interface {
	isSplit()
}

// Leaf marks a terminal node; its Node.Value is the prediction.
type Leaf struct{}

// Stem routes a row left when row[Feature] <= Threshold and right otherwise.
// Left and Right are arena indices, always greater than the stem's own.
type Stem struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
}

func (Leaf) isSplit() {}
func (Stem) isSplit() {}

// Node is one entry of a tree's arena.
type Node struct {
	// Value is the mean label of the rows the node owned during growth.
	Value float64
	Depth int
	// Variance is the sum of squared deviations of those labels. Once the
	// node is split it holds the children's combined sum instead.
	Variance float64
	Split    Split
}

// IsLeaf reports whether the node is terminal.
func (n Node) IsLeaf() bool {
	_, ok := n.Split.(Leaf)
	return ok
}

func (n Node) String() string {
	switch s := n.Split.(type) {
	case Leaf:
		return fmt.Sprintf("leaf(value=%g, variance=%g)", n.Value, n.Variance)
	case Stem:
		return fmt.Sprintf("x[%d] <= %g ? %d : %d", s.Feature, s.Threshold, s.Left, s.Right)
	default:
		return "invalid"
	}
}

// nodeState is the gob form of a Node.
type nodeState struct {
	Value     float64
	Depth     int
	Variance  float64
	Stem      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
}

func toNodeStates(nodes []Node) []nodeState {
	out := make([]nodeState, len(nodes))
	for i, n := range nodes {
		out[i] = nodeState{Value: n.Value, Depth: n.Depth, Variance: n.Variance}
		if s, ok := n.Split.(Stem); ok {
			out[i].Stem = true
			out[i].Feature = s.Feature
			out[i].Threshold = s.Threshold
			out[i].Left = s.Left
			out[i].Right = s.Right
		}
	}
	return out
}

func fromNodeStates(states []nodeState, nFeatures int) ([]Node, error) {
	out := make([]Node, len(states))
	for i, s := range states {
		out[i] = Node{Value: s.Value, Depth: s.Depth, Variance: s.Variance, Split: Leaf{}}
		if !s.Stem {
			continue
		}
		if s.Left <= i || s.Right <= i || s.Left >= len(states) || s.Right >= len(states) {
			return nil, errors.Newf("node %d: child index out of range (left=%d right=%d)", i, s.Left, s.Right)
		}
		if s.Feature < 0 || s.Feature >= nFeatures {
			return nil, errors.Newf("node %d: feature %d out of range", i, s.Feature)
		}
		out[i].Split = Stem{Feature: s.Feature, Threshold: s.Threshold, Left: s.Left, Right: s.Right}
	}
	return out, nil
}
