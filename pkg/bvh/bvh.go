// Package bvh builds and traverses bounding volume hierarchies over triangles.
//
// A BVH is built once over a geometry.Store with a binned surface-area
// heuristic and can be re-expressed as a structure-of-arrays (SoA) or a
// 4-wide tree. All layouts answer closest-hit and any-hit queries.
//
// Once Build returns, any number of goroutines may query the same tree
// concurrently as long as each uses its own core.Ray. Refit rewrites node
// bounds in place and must not run concurrently with queries on the same
// tree; the package takes no locks, so that exclusion is up to the caller.
package bvh

import (
	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
	"github.com/df07/go-bvh/pkg/log"
)

var logger = log.New("bvh")

// Intersector is implemented by every tree layout
type Intersector interface {
	// IntersectClosest shrinks ray.Hit to the nearest primitive hit and
	// reports whether this call found one.
	IntersectClosest(ray *core.Ray) bool

	// IntersectAny reports whether any primitive is hit within
	// (ray.TMin, ray.Hit.T). The ray is not modified.
	IntersectAny(ray *core.Ray) bool
}

// Node is a binary BVH node. Children are stored as an adjacent pair at
// Left and Left+1. The root is node 0 and is never anyone's child, so
// Left == 0 marks a leaf covering Indices[First : First+Count].
type Node struct {
	Bounds core.AABB
	Left   uint32
	First  uint32
	Count  uint32
}

// IsLeaf reports whether the node holds a primitive range
func (n *Node) IsLeaf() bool {
	return n.Left == 0
}

// BVH is the binary tree. It owns its nodes and index permutation and keeps
// a non-owning reference to the store it was built over.
type BVH struct {
	Nodes   []Node
	Indices []uint32 // Leaf slots -> primitive indices in the store

	store     *geometry.Store
	primCount int
	built     bool
	config    BuildConfig
}

// NewBVH creates an empty, unbuilt tree with the default build configuration
func NewBVH() *BVH {
	return &BVH{config: DefaultBuildConfig()}
}

// NewBVHWithConfig creates an empty, unbuilt tree
func NewBVHWithConfig(config BuildConfig) (*BVH, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &BVH{config: config}, nil
}

// Config returns the build configuration
func (b *BVH) Config() BuildConfig {
	return b.config
}

// Built reports whether a build has completed
func (b *BVH) Built() bool {
	return b.built
}

// PrimitiveCount returns the number of primitives at the last build
func (b *BVH) PrimitiveCount() int {
	return b.primCount
}

// Store returns the primitive store the tree was built over
func (b *BVH) Store() *geometry.Store {
	return b.store
}

// Bounds returns the root box, or an empty box for unbuilt trees
func (b *BVH) Bounds() core.AABB {
	if !b.built {
		return core.EmptyAABB()
	}
	return b.Nodes[0].Bounds
}

// Clone returns an independent copy sharing only the primitive store
func (b *BVH) Clone() *BVH {
	c := &BVH{
		store:     b.store,
		primCount: b.primCount,
		built:     b.built,
		config:    b.config,
	}
	c.Nodes = append([]Node(nil), b.Nodes...)
	c.Indices = append([]uint32(nil), b.Indices...)
	return c
}
