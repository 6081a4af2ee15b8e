// Package render draws the features of a core and the terms built over them.
package render

import (
	"fmt"
	"io"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/feature"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/term"
)

//Format maps a configured format name onto a graphviz format
func Format(name string) (graphviz.Format, error) {
	switch name {
	case "svg":
		return graphviz.SVG, nil
	case "png":
		return graphviz.PNG, nil
	case "dot":
		return graphviz.XDOT, nil
	}
	return "", errors.Errorf("unknown render format %q", name)
}

func featureLabel(i int, f feature.Feature) string {
	label := fmt.Sprintf("feature %d\n%d bins, %s", i, f.BinCount, f.Kind())
	if f.Missing {
		label += "\nmissing"
	}
	if f.Unknown {
		label += "\nunknown"
	}
	return label
}

//Draw builds a graph with one node per feature and, for every two
//dimensional term, an edge between its features labelled with the tensor size
func Draw(features []feature.Feature, terms []*term.Term) (*graphviz.Graphviz, *cgraph.Graph, error) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		graphViz.Close()
		return nil, nil, errors.Wrap(err, "creating graph")
	}

	nodes := make([]*cgraph.Node, len(features))
	for i, f := range features {
		node, err := graph.CreateNode(fmt.Sprintf("f%d", i))
		if err != nil {
			closeAll(graphViz, graph)
			return nil, nil, errors.Wrapf(err, "creating node for feature %d", i)
		}
		node.SetLabel(featureLabel(i, f))
		if f.IsDegenerate() {
			node.SetStyle(cgraph.DashedNodeStyle)
		} else {
			node.SetShape(cgraph.BoxShape)
		}
		nodes[i] = node
	}

	for i, t := range terms {
		if t == nil || t.FeatureCount() != 2 {
			continue
		}
		from, to := t.FeatureIndex(0), t.FeatureIndex(1)
		if from >= len(nodes) || to >= len(nodes) {
			closeAll(graphViz, graph)
			return nil, nil, errors.Errorf("term %d refers to features %d and %d of %d", i, from, to, len(nodes))
		}
		edge, err := graph.CreateEdge(fmt.Sprintf("t%d", i), nodes[from], nodes[to])
		if err != nil {
			closeAll(graphViz, graph)
			return nil, nil, errors.Wrapf(err, "creating edge for term %d", i)
		}
		edge.SetLabel(fmt.Sprintf("%d bins", t.TensorBinCount()))
	}
	return graphViz, graph, nil
}

//Terms draws the graph of Draw into w
func Terms(w io.Writer, format string, features []feature.Feature, terms []*term.Term) error {
	f, err := Format(format)
	if err != nil {
		return err
	}
	graphViz, graph, err := Draw(features, terms)
	if err != nil {
		return err
	}
	defer closeAll(graphViz, graph)
	return errors.Wrap(graphViz.Render(graph, f, w), "rendering graph")
}

func closeAll(graphViz *graphviz.Graphviz, graph *cgraph.Graph) {
	_ = graph.Close()
	_ = graphViz.Close()
}
