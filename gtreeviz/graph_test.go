package gtreeviz

import (
	"testing"

	"github.com/tarstars/adaptive-guiding-tree/gtree"
)

func TestDrawTreeSucceeds(t *testing.T) {
	tr := trainedTree(2)

	gv, graph, err := DrawTree[gtree.Float64](tr)
	if err != nil {
		t.Fatalf("DrawTree: %v", err)
	}
	if gv == nil || graph == nil {
		t.Fatal("DrawTree: expected non-nil graphviz instance and graph")
	}
}
