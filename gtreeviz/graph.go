package gtreeviz

import (
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"

	"github.com/tarstars/adaptive-guiding-tree/gtree"
)

// DrawTree renders a tree's node pool as a graphviz graph, adapted from the
// teacher's OneTree.DrawGraph/recurrentDraw
// (golang/extra_boost/ebl/tree.go): every pool entry becomes a graphviz
// node labeled with its density/weight/cell bounds, leaves are drawn boxed.
func DrawTree[V gtree.Accumulator[V]](tree *gtree.Tree[V]) (*graphviz.Graphviz, *cgraph.Graph, error) {
	gv := graphviz.New()
	graph, err := gv.Graph()
	if err != nil {
		return nil, nil, errors.Wrap(err, "gtreeviz: create graph")
	}

	cnodes := make(map[int]*cgraph.Node, tree.NodeCount())
	var walkErr error

	tree.Walk(func(index int, min, max gtree.Vector, leaf bool, density, weight float64, value V, children []int) {
		if walkErr != nil {
			return
		}

		cn, err := graph.CreateNode(fmt.Sprint(index))
		if err != nil {
			walkErr = errors.Wrapf(err, "gtreeviz: create node %d", index)
			return
		}
		cn.SetLabel(fmt.Sprintf("#%d\ndensity %.4g\nweight %.4g\n%v .. %v", index, density, weight, min, max))
		if leaf {
			cn.SetShape(cgraph.BoxShape)
		}
		cnodes[index] = cn
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}

	tree.Walk(func(index int, min, max gtree.Vector, leaf bool, density, weight float64, value V, children []int) {
		if walkErr != nil {
			return
		}
		for _, childIndex := range children {
			if _, err := graph.CreateEdge("", cnodes[index], cnodes[childIndex]); err != nil {
				walkErr = errors.Wrapf(err, "gtreeviz: create edge %d -> %d", index, childIndex)
				return
			}
		}
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}

	return gv, graph, nil
}
