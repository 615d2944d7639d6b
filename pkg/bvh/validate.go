package bvh

import (
	"fmt"

	"github.com/df07/go-bvh/pkg/core"
)

// Validate checks the structural invariants of a built tree: every internal
// box is exactly the union of its children, every leaf box exactly bounds its
// primitives, leaves are non-empty and the index array is a permutation.
func (b *BVH) Validate() error {
	if !b.built {
		return ErrUnbuilt
	}
	bounds := make([]core.AABB, b.store.Len())
	for i, t := range b.store.Triangles() {
		bounds[i] = t.BoundingBox()
	}
	return validateTree(b.Nodes, b.Indices, bounds)
}

func validateTree(nodes []Node, indices []uint32, primBounds []core.AABB) error {
	if len(nodes) == 0 {
		return fmt.Errorf("tree has no root")
	}
	if len(indices) != len(primBounds) {
		return fmt.Errorf("index array holds %d entries for %d primitives", len(indices), len(primBounds))
	}
	if len(primBounds) == 0 {
		if len(nodes) != 1 || !nodes[0].IsLeaf() || nodes[0].Count != 0 {
			return fmt.Errorf("empty tree must be a single empty leaf")
		}
		return nil
	}

	seen := make([]bool, len(primBounds))
	covered := 0
	stack := []uint32{0}
	visited := 0

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++
		node := nodes[idx]

		if node.IsLeaf() {
			if node.Count == 0 {
				return fmt.Errorf("leaf %d is empty", idx)
			}
			if int(node.First+node.Count) > len(indices) {
				return fmt.Errorf("leaf %d range [%d, %d) exceeds %d indices", idx, node.First, node.First+node.Count, len(indices))
			}
			box := core.EmptyAABB()
			for _, prim := range indices[node.First : node.First+node.Count] {
				if int(prim) >= len(primBounds) {
					return fmt.Errorf("leaf %d references primitive %d of %d", idx, prim, len(primBounds))
				}
				if seen[prim] {
					return fmt.Errorf("primitive %d appears in more than one leaf slot", prim)
				}
				seen[prim] = true
				covered++
				box.GrowAABB(primBounds[prim])
			}
			if box != node.Bounds {
				return fmt.Errorf("leaf %d bounds %v are not tight (expected %v)", idx, node.Bounds, box)
			}
			continue
		}

		if node.Left <= idx || int(node.Left)+1 >= len(nodes) {
			return fmt.Errorf("node %d has invalid child index %d", idx, node.Left)
		}
		union := nodes[node.Left].Bounds.Union(nodes[node.Left+1].Bounds)
		if union != node.Bounds {
			return fmt.Errorf("node %d bounds %v are not the union of its children %v", idx, node.Bounds, union)
		}
		stack = append(stack, node.Left+1, node.Left)
	}

	if covered != len(primBounds) {
		return fmt.Errorf("leaves cover %d of %d primitives", covered, len(primBounds))
	}
	if visited != len(nodes) {
		return fmt.Errorf("%d of %d nodes are unreachable", len(nodes)-visited, len(nodes))
	}
	return nil
}
