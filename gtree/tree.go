package gtree

import "math"

// Tree is the adaptive 2^D-ary tree over the unit hypercube described in
// spec.md §3/§4.1 ("AdaptiveTree" / "BTree"). It has no internal lock of its
// own — per spec.md §5 and original_source/include/guiding/wrapper.h, the
// concurrency contract (many concurrent Splat calls, exclusive Build/Refine)
// is enforced by Wrapper, not by Tree. A Tree used directly, outside a
// Wrapper, is the caller's responsibility to serialize around
// Build/Refine/Reset/IO.
type Tree[V Accumulator[V]] struct {
	dimension int
	arity     int
	target    Target[V]
	settings  Settings
	nodes     []*node[V]
}

// NewTree constructs a tree over [0,1)^dimension, starting uniform (spec.md
// §3 "Lifecycle": "A tree starts uniform: one leaf at the root, density = 1,
// weight = 0").
func NewTree[V Accumulator[V]](dimension int, target Target[V], settings Settings) *Tree[V] {
	assertf(dimension > 0, "gtree: dimension must be positive, got %d", dimension)
	t := &Tree[V]{
		dimension: dimension,
		arity:     1 << dimension,
		target:    target,
		settings:  settings,
	}
	t.setUniform()
	return t
}

// Dimension returns the tree's dimension D.
func (t *Tree[V]) Dimension() int { return t.dimension }

// Settings returns a copy of the tree's current build settings.
func (t *Tree[V]) Settings() Settings { return t.settings }

// SetSettings replaces the tree's build settings.
func (t *Tree[V]) SetSettings(s Settings) { t.settings = s }

func (t *Tree[V]) setUniform() {
	root := newNode[V](t.arity)
	root.markAsLeaf()
	root.density.store(1)
	root.weight.store(0)
	t.nodes = []*node[V]{&root}
}

// Reset returns the tree to its freshly-constructed uniform state (spec.md
// §3 "reset returns to uniform").
func (t *Tree[V]) Reset() {
	t.setUniform()
}

// indexAt descends from the root to the leaf containing point, per spec.md
// §4.1.1. It operates on a private copy of point so the caller's vector is
// left untouched; Sample is the only operation that consumes/rewrites its
// input vector in place.
func (t *Tree[V]) indexAt(point Vector) (index int, depth int) {
	x := point.Clone()
	for !t.nodes[index].isLeaf() {
		childIndex := 0
		for d := 0; d < t.dimension; d++ {
			slab := 0
			if x[d] >= 0.5 {
				slab = 1
			}
			childIndex |= slab << uint(d)
			if slab == 1 {
				x[d] -= 0.5
			}
			x[d] *= 2
		}
		newIndex := int(t.nodes[index].children[childIndex])
		assertf(newIndex > index, "gtree: child index %d must be greater than parent index %d", newIndex, index)
		index = newIndex
		depth++
	}
	return index, depth
}

// PDF returns the learned density at x (spec.md §4.1.6).
func (t *Tree[V]) PDF(x Vector) float64 {
	index, _ := t.indexAt(x)
	return t.nodes[index].density.load()
}

// At returns the accumulated/learned value at x (spec.md §4.1.6).
func (t *Tree[V]) At(x Vector) V {
	index, _ := t.indexAt(x)
	return t.nodes[index].value.load()
}

// Estimate returns the root's value, the overall learned mean (spec.md
// §4.1.6).
func (t *Tree[V]) Estimate() V {
	return t.nodes[0].value.load()
}

// Depth returns the tree's maximum depth (spec.md §4.1.6).
func (t *Tree[V]) Depth() int {
	return t.nodeDepth(0)
}

func (t *Tree[V]) nodeDepth(index int) int {
	n := t.nodes[index]
	if n.isLeaf() {
		return 1
	}
	maxDepth := 0
	for _, c := range n.children {
		if d := t.nodeDepth(int(c)); d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth + 1
}

// NodeCount returns the size of the node pool (spec.md §4.1.6).
func (t *Tree[V]) NodeCount() int {
	return len(t.nodes)
}

// WalkFunc is called once per node during Walk, with the node's pool index,
// its cell bounds within [0,1)^D, whether it's a leaf, its current
// accumulators, and (for internal nodes only; nil for leaves) its children's
// pool indices.
type WalkFunc[V Accumulator[V]] func(index int, min, max Vector, leaf bool, density, weight float64, value V, children []int)

// Walk performs a pre-order traversal of the node pool, reconstructing each
// node's cell bounds along the way. gtreeviz uses this to export density
// grids and render the tree as a graph without reaching into Tree's
// internals.
func (t *Tree[V]) Walk(visit WalkFunc[V]) {
	min := make(Vector, t.dimension)
	max := make(Vector, t.dimension)
	for d := range max {
		max[d] = 1
	}
	t.walk(0, min, max, visit)
}

func (t *Tree[V]) walk(index int, min, max Vector, visit WalkFunc[V]) {
	n := t.nodes[index]
	leaf := n.isLeaf()

	var children []int
	if !leaf {
		children = make([]int, len(n.children))
		for i, c := range n.children {
			children[i] = int(c)
		}
	}

	visit(index, min, max, leaf, n.density.load(), n.weight.load(), n.value.load(), children)
	if leaf {
		return
	}

	for child := 0; child < t.arity; child++ {
		childMin := min.Clone()
		childMax := max.Clone()
		for d := 0; d < t.dimension; d++ {
			mid := (min[d] + max[d]) / 2
			if child&(1<<uint(d)) != 0 {
				childMin[d] = mid
			} else {
				childMax[d] = mid
			}
		}
		t.walk(int(n.children[child]), childMin, childMax, visit)
	}
}

// Splat deposits a single weighted observation at x (spec.md §4.1.2). When
// DoFiltering is enabled (the default), the deposit is box-filtered across
// every leaf whose cell overlaps the deposit box, per
// original_source/include/guiding/distributions/btree.h's splatFiltered.
func (t *Tree[V]) Splat(x Vector, value V, weight float64) {
	if !t.settings.DoFiltering {
		index, _ := t.indexAt(x)
		t.nodes[index].splat(t.target, value, weight, t.settings.SecondMoment)
		return
	}

	_, depth := t.indexAt(x)
	size := 1.0 / float64(int64(1)<<uint(depth))

	originMin := make(Vector, t.dimension)
	originMax := make(Vector, t.dimension)
	zero := make(Vector, t.dimension)
	for d := 0; d < t.dimension; d++ {
		originMin[d] = x[d] - size/2
		originMax[d] = x[d] + size/2
	}

	t.splatFiltered(0, originMin, originMax, zero, 1.0, value, weight/math.Pow(size, float64(t.dimension)))
}

func (t *Tree[V]) splatFiltered(index int, originMin, originMax, nodeMin Vector, nodeSize float64, value V, weight float64) {
	nodeMax := make(Vector, t.dimension)
	for d := range nodeMax {
		nodeMax[d] = nodeMin[d] + nodeSize
	}

	overlap := overlapVolume(originMin, originMax, nodeMin, nodeMax)
	if overlap <= 0 {
		return
	}

	n := t.nodes[index]
	if n.isLeaf() {
		n.splat(t.target, value, weight*overlap, t.settings.SecondMoment)
		return
	}

	childSize := nodeSize / 2
	for child := 0; child < t.arity; child++ {
		childMin := nodeMin.Clone()
		for d := 0; d < t.dimension; d++ {
			if child&(1<<uint(d)) != 0 {
				childMin[d] += childSize
			}
		}
		t.splatFiltered(int(n.children[child]), originMin, originMax, childMin, childSize, value, weight)
	}
}

// Sample draws a point proportional to the learned density (spec.md
// §4.1.3). x must contain D uniform numbers in [0,1); it is consumed and
// overwritten in place with the warped sample, matching
// original_source/include/guiding/distributions/btree.h's sample(Vector &x,
// Float &pdf). The returned Vector is the same backing slice as x.
func (t *Tree[V]) Sample(x Vector) (Vector, float64, V) {
	base := make(Vector, t.dimension)
	scale := 1.0
	pdf := 1.0
	index := 0

	for !t.nodes[index].isLeaf() {
		childIndex := 0
		n := t.nodes[index]

		for d := 0; d < t.dimension; d++ {
			var p [2]float64
			for child := 0; child < (1 << uint(t.dimension-d)); child++ {
				ci := (child << uint(d)) | childIndex
				p[child&1] += t.nodes[n.children[ci]].density.load()
			}
			p[0] /= p[0] + p[1]
			assertf(p[0] >= 0 && p[1] >= 0, "gtree: degenerate marginal probability during sample")

			slab := 0
			if x[d] > p[0] {
				slab = 1
			}
			childIndex |= slab << uint(d)

			if slab == 1 {
				base[d] += 0.5 * scale
				x[d] = (x[d] - p[0]) / (1 - p[0])
			} else {
				x[d] = x[d] / p[0]
			}
		}

		newIndex := int(n.children[childIndex])
		assertf(newIndex > index, "gtree: child index %d must be greater than parent index %d", newIndex, index)
		index = newIndex
		scale /= 2
	}

	leaf := t.nodes[index]
	density := leaf.density.load()
	assertf(density > 0, "gtree: sampled leaf must have positive density")
	pdf *= density

	for d := 0; d < t.dimension; d++ {
		x[d] = base[d] + scale*x[d]
	}

	return x, pdf, leaf.value.load()
}

// Build rebuilds the entire tree from accumulated splats, pruning
// under-sampled leaves and normalizing so the root's density equals 1
// (spec.md §4.1.5).
func (t *Tree[V]) Build() {
	newNodes := make([]*node[V], 0, len(t.nodes))
	t.build(0, &newNodes, 1)

	if newNodes[0].weight.load() <= 0 || newNodes[0].density.load() == 0 {
		// built without samples; resort to uniform (spec.md §4.1.5).
		t.setUniform()
		return
	}

	t.nodes = newNodes
	norm := t.nodes[0].density.load()
	rootWeight := t.nodes[0].weight.load()

	for _, n := range t.nodes {
		n.density.store(n.density.load() / norm)
		if !t.settings.LeafReweighting {
			n.value.store(n.value.load().Scale(1 / rootWeight))
		}
	}
}

func (t *Tree[V]) build(index int, newNodes *[]*node[V], scale float64) {
	src := t.nodes[index]
	newIndex := len(*newNodes)
	nn := cloneNode(src, t.arity)
	*newNodes = append(*newNodes, nn)

	if src.isLeaf() {
		weight := src.weight.load()
		if t.settings.LeafReweighting && weight < t.settings.PruneWeightThreshold {
			nn.weight.store(-1)
			return
		}

		var w float64
		if t.settings.LeafReweighting {
			w = 1 / weight
		} else {
			w = scale
		}
		assertf(w >= 0, "gtree: build weight factor must be >= 0, got %v", w)

		nn.markAsLeaf()
		nn.density.store(src.density.load() * w)
		nn.value.store(src.value.load().Scale(w))
		nn.weight.store(weight)

		if t.settings.SecondMoment {
			nn.density.store(math.Sqrt(nn.density.load()))
		}
		return
	}

	validCount := 0
	var density, weight float64
	var value V

	for child := 0; child < t.arity; child++ {
		childIndex := int(src.children[child])
		newChildIndex := len(*newNodes)
		t.build(childIndex, newNodes, scale*float64(t.arity))
		nn.children[child] = int32(newChildIndex)

		newChild := (*newNodes)[newChildIndex]
		if newChild.weight.load() >= 0 {
			density += newChild.density.load()
			value = value.Add(newChild.value.load())
			weight += newChild.weight.load()
			validCount++
		}
	}

	if !t.settings.LeafReweighting {
		validCount = t.arity
	}

	if validCount == 0 {
		nn.weight.store(-1)
		return
	}

	nn.density.store(density / float64(validCount))
	nn.value.store(value.Scale(1 / float64(validCount)))
	nn.weight.store(weight)

	if validCount < t.arity {
		*newNodes = (*newNodes)[:newIndex+1]
		nn.markAsLeaf()
	}
}

func cloneNode[V Accumulator[V]](src *node[V], arity int) *node[V] {
	n := newNode[V](arity)
	n.density.store(src.density.load())
	n.value.store(src.value.load())
	n.weight.store(src.weight.load())
	copy(n.children, src.children)
	return &n
}

// Clone returns an independent deep copy of the tree: a fresh node pool
// with its own atomics, so mutating the clone (or the original) never
// touches the other. Wrapper.step() uses this to publish a training tree's
// just-built state as the new sampling tree while training continues to be
// refined in place.
func (t *Tree[V]) Clone() *Tree[V] {
	nodes := make([]*node[V], len(t.nodes))
	for i, n := range t.nodes {
		nodes[i] = cloneNode(n, t.arity)
	}
	return &Tree[V]{
		dimension: t.dimension,
		arity:     t.arity,
		target:    t.target,
		settings:  t.settings,
		nodes:     nodes,
	}
}

// Refine subdivides leaves whose normalized density is at least SplitThreshold
// and resets the accumulators of leaves that don't, starting the next
// learning window (spec.md §4.1.4).
func (t *Tree[V]) Refine() {
	t.refine(0, 1)
}

func (t *Tree[V]) refine(index int, scale float64) {
	if t.nodes[index].isLeaf() {
		criterion := t.nodes[index].density.load() / scale
		if criterion >= t.settings.SplitThreshold {
			t.split(index)
		} else {
			t.nodes[index].reset()
			return
		}
	}

	children := make([]int32, t.arity)
	copy(children, t.nodes[index].children)
	for _, c := range children {
		t.refine(int(c), scale*float64(t.arity))
	}
}

// split appends arity copies of the leaf at parentIndex (preserving its
// accumulators as a per-child prior) and rewires the parent to point at
// them, preserving the pool's monotone-index invariant (spec.md §4.1.4).
func (t *Tree[V]) split(parentIndex int) {
	childBase := len(t.nodes)
	assertf(childBase > parentIndex, "gtree: split child base %d must exceed parent index %d", childBase, parentIndex)

	parent := t.nodes[parentIndex]
	assertf(parent.isLeaf(), "gtree: split target must be a leaf")

	for i := 0; i < t.arity; i++ {
		t.nodes = append(t.nodes, cloneNode(parent, t.arity))
	}
	for i := 0; i < t.arity; i++ {
		t.nodes[parentIndex].children[i] = int32(childBase + i)
	}
}
