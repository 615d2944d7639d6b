package bvh

import (
	"math"

	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
)

// WideArity is the maximum number of children of a wide node
const WideArity = 4

// WideNode is a node of the 4-wide tree. Internal nodes keep their children's
// boxes as lane arrays so all children are tested in one pass. Leaves have
// ChildCount == 0 and cover First, Count of the index array.
type WideNode struct {
	Bounds           core.AABB
	MinX, MinY, MinZ [WideArity]float64
	MaxX, MaxY, MaxZ [WideArity]float64
	Child            [WideArity]uint32
	ChildCount       uint8
	First, Count     uint32
}

// IsLeaf reports whether the node holds a primitive range
func (w *WideNode) IsLeaf() bool {
	return w.ChildCount == 0
}

func (w *WideNode) setLane(lane int, box core.AABB, child uint32) {
	w.MinX[lane], w.MinY[lane], w.MinZ[lane] = box.Min.X, box.Min.Y, box.Min.Z
	w.MaxX[lane], w.MaxY[lane], w.MaxZ[lane] = box.Max.X, box.Max.Y, box.Max.Z
	w.Child[lane] = child
}

func (w *WideNode) intersect(lane int, ray *core.Ray) (float64, bool) {
	return core.SlabTest(
		w.MinX[lane], w.MinY[lane], w.MinZ[lane],
		w.MaxX[lane], w.MaxY[lane], w.MaxZ[lane],
		ray, ray.TMin, ray.Hit.T,
	)
}

// Wide4 is a tree where every internal node has up to four children,
// collapsed from a binary tree. It owns its nodes and a copy of the index
// permutation and cannot be modified on its own.
type Wide4 struct {
	Nodes   []WideNode
	Indices []uint32

	store     *geometry.Store
	primCount int
}

// ToWide4 collapses a built binary tree into a 4-wide tree. Each wide node
// starts from the binary node's two children and repeatedly opens the
// internal child whose replacement by its own two children adds the least
// surface area, until it has four children or only leaves remain. Ties go to
// the lowest child slot. The source is not modified.
func ToWide4(b *BVH) (*Wide4, error) {
	if b == nil || !b.built {
		return nil, ErrUnbuilt
	}

	w := &Wide4{
		Nodes:     make([]WideNode, 1, len(b.Nodes)/2+1),
		Indices:   append([]uint32(nil), b.Indices...),
		store:     b.store,
		primCount: b.primCount,
	}

	type pending struct {
		binary uint32
		wide   uint32
	}
	stack := []pending{{binary: 0, wide: 0}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		src := &b.Nodes[p.binary]
		w.Nodes[p.wide].Bounds = src.Bounds
		if src.IsLeaf() {
			w.Nodes[p.wide].First = src.First
			w.Nodes[p.wide].Count = src.Count
			continue
		}

		children := collapseChildren(b.Nodes, src)
		w.Nodes[p.wide].ChildCount = uint8(len(children))
		for lane, child := range children {
			slot := uint32(len(w.Nodes))
			w.Nodes = append(w.Nodes, WideNode{})
			w.Nodes[p.wide].setLane(lane, b.Nodes[child].Bounds, slot)
			stack = append(stack, pending{binary: child, wide: slot})
		}
	}
	return w, nil
}

// collapseChildren picks up to WideArity binary descendants of node to become
// the children of one wide node.
func collapseChildren(nodes []Node, node *Node) []uint32 {
	children := make([]uint32, 2, WideArity)
	children[0], children[1] = node.Left, node.Left+1

	for len(children) < WideArity {
		best := -1
		bestCost := math.Inf(1)
		for i, c := range children {
			child := &nodes[c]
			if child.IsLeaf() {
				continue
			}
			cost := nodes[child.Left].Bounds.SurfaceArea() +
				nodes[child.Left+1].Bounds.SurfaceArea() -
				child.Bounds.SurfaceArea()
			if cost < bestCost {
				best = i
				bestCost = cost
			}
		}
		if best < 0 {
			break
		}
		opened := &nodes[children[best]]
		children[best] = opened.Left
		children = append(children, opened.Left+1)
	}
	return children
}

// PrimitiveCount returns the number of primitives in the source build
func (w *Wide4) PrimitiveCount() int {
	return w.primCount
}

// IntersectClosest tests all children of a wide node, then visits the hit
// children nearest first.
func (w *Wide4) IntersectClosest(ray *core.Ray) bool {
	hit, _ := w.closestHit(ray)
	return hit
}

// IntersectClosestCost is IntersectClosest that also returns the number of
// nodes the query visited
func (w *Wide4) IntersectClosestCost(ray *core.Ray) (bool, int) {
	return w.closestHit(ray)
}

func (w *Wide4) closestHit(ray *core.Ray) (bool, int) {
	steps := 0
	if w == nil || w.primCount == 0 {
		return false, steps
	}
	if _, ok := w.Nodes[0].Bounds.IntersectRay(ray, ray.TMin, ray.Hit.T); !ok {
		return false, steps
	}
	triangles := w.store.Triangles()

	var buf [stackSize]stackEntry
	stack := buf[:0]
	hit := false
	current := uint32(0)

	for {
		steps++
		node := &w.Nodes[current]
		if node.IsLeaf() {
			if intersectLeafClosest(triangles, w.Indices[node.First:node.First+node.Count], ray) {
				hit = true
			}
		} else {
			var lanes [WideArity]stackEntry
			n := 0
			for lane := 0; lane < int(node.ChildCount); lane++ {
				dist, ok := node.intersect(lane, ray)
				if !ok {
					continue
				}
				// Insertion sort, ascending distance; equal distances keep lane order
				i := n
				for i > 0 && lanes[i-1].dist > dist {
					lanes[i] = lanes[i-1]
					i--
				}
				lanes[i] = stackEntry{node: node.Child[lane], dist: dist}
				n++
			}
			if n > 0 {
				for i := n - 1; i > 0; i-- {
					stack = append(stack, lanes[i])
				}
				current = lanes[0].node
				continue
			}
		}

		found := false
		for len(stack) > 0 {
			entry := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if entry.dist <= ray.Hit.T {
				current = entry.node
				found = true
				break
			}
		}
		if !found {
			return hit, steps
		}
	}
}

// IntersectAny returns as soon as any primitive is hit inside the ray interval
func (w *Wide4) IntersectAny(ray *core.Ray) bool {
	hit, _ := w.anyHit(ray)
	return hit
}

// IntersectAnyCost is IntersectAny that also returns the number of
// nodes the query visited
func (w *Wide4) IntersectAnyCost(ray *core.Ray) (bool, int) {
	return w.anyHit(ray)
}

func (w *Wide4) anyHit(ray *core.Ray) (bool, int) {
	steps := 0
	if w == nil || w.primCount == 0 {
		return false, steps
	}
	triangles := w.store.Triangles()

	var buf [stackSize]uint32
	stack := append(buf[:0], 0)
	for len(stack) > 0 {
		steps++
		node := &w.Nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if node.IsLeaf() {
			if intersectLeafAny(triangles, w.Indices[node.First:node.First+node.Count], ray) {
				return true, steps
			}
			continue
		}
		for lane := 0; lane < int(node.ChildCount); lane++ {
			if _, ok := node.intersect(lane, ray); ok {
				stack = append(stack, node.Child[lane])
			}
		}
	}
	return false, steps
}
