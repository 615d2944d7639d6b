package bvh

import (
	"fmt"

	"github.com/df07/go-bvh/pkg/core"
)

// Refit recomputes every node box from the current primitive positions
// without changing the tree topology. Children always sit at higher indices
// than their parent, so a single reverse pass over the nodes is bottom-up.
//
// Refit writes node bounds in place; no query may run on the tree meanwhile.
func (b *BVH) Refit() error {
	if !b.built {
		return ErrUnbuilt
	}
	if n := b.store.Len(); n != b.primCount {
		return fmt.Errorf("%w: built over %d primitives, store now holds %d", ErrTopologyMismatch, b.primCount, n)
	}

	triangles := b.store.Triangles()
	for i := len(b.Nodes) - 1; i >= 0; i-- {
		node := &b.Nodes[i]
		if node.IsLeaf() {
			box := core.EmptyAABB()
			for _, prim := range b.Indices[node.First : node.First+node.Count] {
				box.GrowAABB(triangles[prim].BoundingBox())
			}
			node.Bounds = box
			continue
		}
		node.Bounds = b.Nodes[node.Left].Bounds.Union(b.Nodes[node.Left+1].Bounds)
	}
	return nil
}
