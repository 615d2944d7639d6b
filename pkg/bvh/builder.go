package bvh

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
)

// Build constructs the tree over the first count primitives of store. count
// must match store.Len(). On failure the tree keeps its previous state.
func (b *BVH) Build(store *geometry.Store, count int) error {
	if err := validateInput(store, count); err != nil {
		return err
	}

	start := time.Now()
	bd := newBuilder(store.Triangles(), b.config)
	nodes, indices, st := bd.build()

	if err := validateTree(nodes, indices, bd.bounds); err != nil {
		return fmt.Errorf("post-build check failed: %w", err)
	}

	b.Nodes = nodes
	b.Indices = indices
	b.store = store
	b.primCount = count
	b.built = true

	logger.Debugf(
		"BVH build time: %d ms, primitives: %d, nodes: %d, leaves: %d, maxDepth: %d, subtrees: %d",
		time.Since(start).Milliseconds(), count, len(nodes), st.leaves, st.maxDepth, st.subtrees,
	)
	return nil
}

// BuildTriangles copies triangles into a new store and builds over it
func (b *BVH) BuildTriangles(triangles []geometry.Triangle) error {
	return b.Build(geometry.NewStore(triangles), len(triangles))
}

func validateInput(store *geometry.Store, count int) error {
	if count < 0 {
		return fmt.Errorf("%w: negative primitive count %d", ErrInvalidInput, count)
	}
	if store.Len() != count {
		return fmt.Errorf("%w: claimed %d primitives, store holds %d", ErrInvalidInput, count, store.Len())
	}
	for i, t := range store.Triangles() {
		if !t.IsFinite() {
			return fmt.Errorf("%w: primitive %d has non-finite vertices", ErrInvalidInput, i)
		}
	}
	return nil
}

// buildTask is a pending node: the primitive range it covers and where it lives
type buildTask struct {
	node  uint32
	first uint32
	count uint32
	depth int
}

type buildStats struct {
	leaves   int
	maxDepth int
	subtrees int
}

func (s *buildStats) merge(other buildStats) {
	s.leaves += other.leaves
	s.maxDepth = max(s.maxDepth, other.maxDepth)
}

// builder holds the per-primitive data shared (read-only) by every subtree build
type builder struct {
	config    BuildConfig
	bounds    []core.AABB
	centroids []core.Vec3
	indices   []uint32
}

// split is a chosen partition. axis < 0 means an even count split.
type split struct {
	axis  int
	plane int
	cost  float64
	cmin  float64
	scale float64
}

func newBuilder(triangles []geometry.Triangle, config BuildConfig) *builder {
	bd := &builder{
		config:    config,
		bounds:    make([]core.AABB, len(triangles)),
		centroids: make([]core.Vec3, len(triangles)),
		indices:   make([]uint32, len(triangles)),
	}
	for i, t := range triangles {
		bd.bounds[i] = t.BoundingBox()
		bd.centroids[i] = bd.bounds[i].Center()
		bd.indices[i] = uint32(i)
	}
	return bd
}

// build runs the top of the tree on the calling goroutine, hands subtrees at
// or below ParallelThreshold to workers and splices their nodes back in task
// order. The node layout does not depend on the number of workers.
func (bd *builder) build() ([]Node, []uint32, buildStats) {
	n := len(bd.indices)
	nodes := make([]Node, 1, max(1, 2*n))
	if n == 0 {
		nodes[0] = Node{Bounds: core.EmptyAABB()}
		return nodes, bd.indices, buildStats{leaves: 1}
	}

	threshold := bd.config.ParallelThreshold
	deferSubtrees := threshold > 0 && n > threshold

	var st buildStats
	root := buildTask{node: 0, first: 0, count: uint32(n)}
	nodes, deferred := bd.run(nodes, root, deferSubtrees, &st)
	if len(deferred) == 0 {
		return nodes, bd.indices, st
	}

	subtrees := make([][]Node, len(deferred))
	subStats := make([]buildStats, len(deferred))
	bd.runWorkers(deferred, subtrees, subStats)

	for i, task := range deferred {
		nodes = splice(nodes, task.node, subtrees[i])
		st.merge(subStats[i])
	}
	st.subtrees = len(deferred)
	return nodes, bd.indices, st
}

// runWorkers builds each deferred task into its own node arena
func (bd *builder) runWorkers(tasks []buildTask, out [][]Node, stats []buildStats) {
	workers := bd.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(tasks))

	taskQueue := make(chan int, len(tasks))
	for i := range tasks {
		taskQueue <- i
	}
	close(taskQueue)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskQueue {
				local := tasks[i]
				local.node = 0
				arena := make([]Node, 1, 2*local.count)
				arena, _ = bd.run(arena, local, false, &stats[i])
				out[i] = arena
			}
		}()
	}
	wg.Wait()
}

// splice copies a subtree arena (root at local index 0) into nodes, placing
// its root at slot and the rest at the end. Child pairs stay adjacent.
func splice(nodes []Node, slot uint32, arena []Node) []Node {
	base := uint32(len(nodes))
	remap := func(n Node) Node {
		if !n.IsLeaf() {
			n.Left = base + n.Left - 1
		}
		return n
	}

	nodes[slot] = remap(arena[0])
	for _, n := range arena[1:] {
		nodes = append(nodes, remap(n))
	}
	return nodes
}

// run processes tasks from an explicit work stack, appending child pairs to
// nodes. With deferSubtrees set, children at or below the parallel threshold
// are returned instead of being processed.
func (bd *builder) run(nodes []Node, root buildTask, deferSubtrees bool, st *buildStats) ([]Node, []buildTask) {
	var deferred []buildTask
	stack := []buildTask{root}

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		bounds, centroidBounds := bd.rangeBounds(task.first, task.count)
		nodes[task.node].Bounds = bounds

		s, ok := bd.chooseSplit(bounds, centroidBounds, task.first, task.count)
		if !ok {
			nodes[task.node].First = task.first
			nodes[task.node].Count = task.count
			st.leaves++
			st.maxDepth = max(st.maxDepth, task.depth)
			continue
		}

		leftCount := bd.partition(task.first, task.count, s)

		left := uint32(len(nodes))
		nodes = append(nodes, Node{}, Node{})
		nodes[task.node].Left = left

		children := [2]buildTask{
			{node: left, first: task.first, count: leftCount, depth: task.depth + 1},
			{node: left + 1, first: task.first + leftCount, count: task.count - leftCount, depth: task.depth + 1},
		}

		// Push right first so the left subtree is laid out first
		for i := 1; i >= 0; i-- {
			child := children[i]
			if deferSubtrees && int(child.count) <= bd.config.ParallelThreshold {
				deferred = append(deferred, child)
				continue
			}
			stack = append(stack, child)
		}
	}

	return nodes, deferred
}

// rangeBounds returns the union of primitive boxes and the box of primitive centroids
func (bd *builder) rangeBounds(first, count uint32) (core.AABB, core.AABB) {
	bounds := core.EmptyAABB()
	centroidBounds := core.EmptyAABB()
	for _, prim := range bd.indices[first : first+count] {
		bounds.GrowAABB(bd.bounds[prim])
		centroidBounds.Grow(bd.centroids[prim])
	}
	return bounds, centroidBounds
}

// chooseSplit evaluates binned SAH candidates on every axis and decides
// between a split and a leaf. Candidates are scanned axis by axis and plane by
// plane with a strict comparison, so ties go to the lower axis, then the lower
// plane.
func (bd *builder) chooseSplit(bounds, centroidBounds core.AABB, first, count uint32) (split, bool) {
	if int(count) <= bd.config.MinLeafSize {
		return split{}, false
	}

	best := split{axis: -1, cost: math.Inf(1)}
	for axis := 0; axis < 3; axis++ {
		cmin := centroidBounds.Min.Axis(axis)
		extent := centroidBounds.Max.Axis(axis) - cmin
		if !(extent > 0) {
			continue
		}
		scale := float64(bd.config.Bins) / extent
		plane, cost := bd.evaluateAxis(axis, cmin, scale, first, count)
		if plane > 0 && cost < best.cost {
			best = split{axis: axis, plane: plane, cost: cost, cmin: cmin, scale: scale}
		}
	}

	leafCost := float64(count) * bounds.SurfaceArea() * bd.config.LeafCostFactor
	if best.axis >= 0 && best.cost < leafCost {
		return best, true
	}

	if int(count) > bd.config.MaxLeafSize {
		if best.axis >= 0 {
			return best, true
		}
		// Every centroid coincides: SAH cannot discriminate, split by count
		return split{axis: -1}, true
	}

	return split{}, false
}

// evaluateAxis bins centroids along axis and returns the cheapest plane
// (bins to its left go left) and its cost. plane is 0 when no plane leaves
// both sides non-empty.
func (bd *builder) evaluateAxis(axis int, cmin, scale float64, first, count uint32) (int, float64) {
	bins := bd.config.Bins

	var binBounds [maxBins]core.AABB
	var binCounts [maxBins]int
	for i := 0; i < bins; i++ {
		binBounds[i] = core.EmptyAABB()
	}

	for _, prim := range bd.indices[first : first+count] {
		b := binIndex(bd.centroids[prim].Axis(axis), cmin, scale, bins)
		binBounds[b].GrowAABB(bd.bounds[prim])
		binCounts[b]++
	}

	// Right-to-left sweep: rightArea[p] and rightCount[p] cover bins [p, bins)
	var rightArea [maxBins]float64
	var rightCount [maxBins]int
	acc := core.EmptyAABB()
	n := 0
	for p := bins - 1; p > 0; p-- {
		acc.GrowAABB(binBounds[p])
		n += binCounts[p]
		rightArea[p] = acc.SurfaceArea()
		rightCount[p] = n
	}

	bestPlane := 0
	bestCost := math.Inf(1)
	acc = core.EmptyAABB()
	n = 0
	for p := 1; p < bins; p++ {
		acc.GrowAABB(binBounds[p-1])
		n += binCounts[p-1]
		if n == 0 || rightCount[p] == 0 {
			continue
		}
		cost := float64(n)*acc.SurfaceArea() + float64(rightCount[p])*rightArea[p]
		if cost < bestCost {
			bestPlane = p
			bestCost = cost
		}
	}
	return bestPlane, bestCost
}

func binIndex(c, cmin, scale float64, bins int) int {
	b := int((c - cmin) * scale)
	if b >= bins {
		return bins - 1
	}
	if b < 0 {
		return 0
	}
	return b
}

// partition reorders indices[first:first+count] in place so primitives that
// go left come first, and returns how many went left.
func (bd *builder) partition(first, count uint32, s split) uint32 {
	if s.axis < 0 {
		return count / 2
	}

	i := int(first)
	j := int(first+count) - 1
	for i <= j {
		prim := bd.indices[i]
		if binIndex(bd.centroids[prim].Axis(s.axis), s.cmin, s.scale, bd.config.Bins) < s.plane {
			i++
			continue
		}
		bd.indices[i], bd.indices[j] = bd.indices[j], bd.indices[i]
		j--
	}
	return uint32(i) - first
}
