package bvh

import "github.com/df07/go-bvh/pkg/core"

// Stats contains structural statistics about a tree
type Stats struct {
	Layout      Layout
	Nodes       int     // Total node count (SoA counts lanes plus the root)
	Leaves      int     // Leaf node count
	MaxDepth    int     // Depth of the deepest leaf, root at depth 0
	AvgDepth    float64 // Mean leaf depth
	Primitives  int     // Primitives referenced by leaves
	MaxLeafSize int     // Largest leaf primitive count
	SAHCost     float64 // Expected cost per ray, relative to the root surface area
}

// statsCollector accumulates per-node data while a layout is walked
type statsCollector struct {
	stats    Stats
	rootArea float64
	depthSum int
}

func newStatsCollector(layout Layout, root core.AABB) *statsCollector {
	return &statsCollector{stats: Stats{Layout: layout}, rootArea: root.SurfaceArea()}
}

func (c *statsCollector) interior(box core.AABB) {
	c.stats.Nodes++
	c.stats.SAHCost += c.relativeArea(box)
}

func (c *statsCollector) leaf(box core.AABB, count uint32, depth int) {
	c.stats.Nodes++
	c.stats.Leaves++
	c.stats.Primitives += int(count)
	c.stats.MaxLeafSize = max(c.stats.MaxLeafSize, int(count))
	c.stats.MaxDepth = max(c.stats.MaxDepth, depth)
	c.depthSum += depth
	c.stats.SAHCost += c.relativeArea(box) * float64(count)
}

func (c *statsCollector) relativeArea(box core.AABB) float64 {
	if c.rootArea == 0 {
		return 0
	}
	return box.SurfaceArea() / c.rootArea
}

func (c *statsCollector) finish() Stats {
	if c.stats.Leaves > 0 {
		c.stats.AvgDepth = float64(c.depthSum) / float64(c.stats.Leaves)
	}
	return c.stats
}

type depthEntry struct {
	node  uint32
	depth int
}

// Stats walks the binary tree
func (b *BVH) Stats() Stats {
	if !b.built {
		return Stats{Layout: LayoutBinary}
	}
	c := newStatsCollector(LayoutBinary, b.Nodes[0].Bounds)
	stack := []depthEntry{{0, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.Nodes[e.node]
		if node.IsLeaf() {
			c.leaf(node.Bounds, node.Count, e.depth)
			continue
		}
		c.interior(node.Bounds)
		stack = append(stack, depthEntry{node.Left + 1, e.depth + 1}, depthEntry{node.Left, e.depth + 1})
	}
	return c.finish()
}

// Stats walks the SoA batches; lanes are counted as nodes
func (s *SoA) Stats() Stats {
	c := newStatsCollector(LayoutSoA, s.Root)
	if len(s.Batches) == 0 {
		c.leaf(s.Root, s.RootCount, 0)
		return c.finish()
	}
	c.interior(s.Root)
	stack := []depthEntry{{0, 1}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		batch := &s.Batches[e.node]
		for lane := 0; lane < soaLanes; lane++ {
			if batch.isLeaf(lane) {
				c.leaf(batch.bounds(lane), batch.Count[lane], e.depth)
				continue
			}
			c.interior(batch.bounds(lane))
			stack = append(stack, depthEntry{batch.Child[lane], e.depth + 1})
		}
	}
	return c.finish()
}

// Stats walks the wide tree
func (w *Wide4) Stats() Stats {
	c := newStatsCollector(LayoutWide4, w.Nodes[0].Bounds)
	stack := []depthEntry{{0, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &w.Nodes[e.node]
		if node.IsLeaf() {
			c.leaf(node.Bounds, node.Count, e.depth)
			continue
		}
		c.interior(node.Bounds)
		for lane := 0; lane < int(node.ChildCount); lane++ {
			stack = append(stack, depthEntry{node.Child[lane], e.depth + 1})
		}
	}
	return c.finish()
}
