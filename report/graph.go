package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/YuminosukeSato/ensembles/core/model"
	"github.com/YuminosukeSato/ensembles/pkg/errors"
	"github.com/YuminosukeSato/ensembles/sklearn/ensemble"
	"github.com/YuminosukeSato/ensembles/sklearn/tree"
)

// TreeOptions controls node labels.
type TreeOptions struct {
	// FeatureNames replaces x[i] in stem labels when long enough.
	FeatureNames []string
}

// ParseFormat maps "svg", "png", "jpg" or "dot" to a Graphviz format.
func ParseFormat(name string) (graphviz.Format, error) {
	switch strings.ToLower(name) {
	case "svg":
		return graphviz.SVG, nil
	case "png":
		return graphviz.PNG, nil
	case "jpg", "jpeg":
		return graphviz.JPG, nil
	case "dot", "gv":
		return graphviz.XDOT, nil
	default:
		return "", errors.NewValidationError("format", "must be one of svg, png, jpg, dot", name)
	}
}

// TreeAt returns the index-th tree of est. A bare tree is its own tree 0;
// ensembles index their fitted learners.
func TreeAt(est model.Estimator, index int) (*tree.DecisionTreeRegressor, error) {
	var learners []model.Estimator
	switch m := est.(type) {
	case *tree.DecisionTreeRegressor:
		learners = []model.Estimator{m}
	case *ensemble.GradientBoostingRegressor:
		learners = m.Learners()
	case *ensemble.RandomForestRegressor:
		learners = m.Learners()
	default:
		return nil, errors.NewValueError("report.TreeAt", "model has no trees: "+est.Name())
	}
	if index < 0 || index >= len(learners) {
		return nil, errors.NewValueError("report.TreeAt",
			fmt.Sprintf("tree index %d out of range [0, %d)", index, len(learners)))
	}
	t, ok := learners[index].(*tree.DecisionTreeRegressor)
	if !ok {
		return nil, errors.NewValueError("report.TreeAt", "learner is not a tree: "+learners[index].Name())
	}
	return t, nil
}

func (o TreeOptions) feature(f int) string {
	if f < len(o.FeatureNames) && o.FeatureNames[f] != "" {
		return o.FeatureNames[f]
	}
	return fmt.Sprintf("x[%d]", f)
}

func (o TreeOptions) label(n tree.Node) string {
	if s, ok := n.Split.(tree.Stem); ok {
		return fmt.Sprintf("%s <= %.6g\nvalue = %.6g", o.feature(s.Feature), s.Threshold, n.Value)
	}
	return fmt.Sprintf("value = %.6g\nsse = %.6g", n.Value, n.Variance)
}

// buildGraph adds one Graphviz node per arena entry. The arena stores
// children after their parents, so a single forward pass creates every
// edge endpoint before it is used.
func buildGraph(g *cgraph.Graph, nodes []tree.Node, opts TreeOptions) error {
	gvNodes := make([]*cgraph.Node, len(nodes))
	for i, n := range nodes {
		if gvNodes[i] == nil {
			created, err := g.CreateNode(fmt.Sprint(i))
			if err != nil {
				return errors.Wrapf(err, "create node %d", i)
			}
			gvNodes[i] = created
		}
		cur := gvNodes[i]
		cur.Set("label", opts.label(n))

		s, ok := n.Split.(tree.Stem)
		if !ok {
			cur.Set("shape", "box")
			continue
		}
		for _, child := range []struct {
			idx   int
			label string
		}{{s.Left, "yes"}, {s.Right, "no"}} {
			if gvNodes[child.idx] == nil {
				created, err := g.CreateNode(fmt.Sprint(child.idx))
				if err != nil {
					return errors.Wrapf(err, "create node %d", child.idx)
				}
				gvNodes[child.idx] = created
			}
			e, err := g.CreateEdge(fmt.Sprintf("%d-%d", i, child.idx), cur, gvNodes[child.idx])
			if err != nil {
				return errors.Wrapf(err, "create edge %d->%d", i, child.idx)
			}
			e.SetLabel(child.label)
		}
	}
	return nil
}

// RenderTree draws a fitted tree to w.
func RenderTree(w io.Writer, t *tree.DecisionTreeRegressor, format graphviz.Format, opts TreeOptions) error {
	nodes := t.Nodes()
	if len(nodes) == 0 {
		return errors.NewNotFittedError(tree.ModelType, "RenderTree")
	}

	gv := graphviz.New()
	defer func() { _ = gv.Close() }()
	g, err := gv.Graph()
	if err != nil {
		return errors.Wrap(err, "create graph")
	}
	defer func() { _ = g.Close() }()

	if err := buildGraph(g, nodes, opts); err != nil {
		return err
	}
	if err := gv.Render(g, format, w); err != nil {
		return errors.Wrap(err, "render tree")
	}
	return nil
}
