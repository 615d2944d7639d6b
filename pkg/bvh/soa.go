package bvh

import (
	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
)

// soaLanes is the number of child boxes tested together: a binary node's two children.
const soaLanes = 2

// SoABatch holds the two children of one binary node with every box
// component in its own lane array, so both boxes are tested in lock-step.
//
// Child[l] is the batch holding lane l's own children. Batch 0 always holds
// the root's children and the root is never a lane, so Child[l] == 0 marks a
// leaf lane covering First[l], Count[l].
type SoABatch struct {
	MinX, MinY, MinZ [soaLanes]float64
	MaxX, MaxY, MaxZ [soaLanes]float64
	Child            [soaLanes]uint32
	First, Count     [soaLanes]uint32
}

func (s *SoABatch) isLeaf(lane int) bool {
	return s.Child[lane] == 0
}

func (s *SoABatch) intersect(lane int, ray *core.Ray) (float64, bool) {
	return core.SlabTest(
		s.MinX[lane], s.MinY[lane], s.MinZ[lane],
		s.MaxX[lane], s.MaxY[lane], s.MaxZ[lane],
		ray, ray.TMin, ray.Hit.T,
	)
}

func (s *SoABatch) bounds(lane int) core.AABB {
	return core.NewAABB(
		core.NewVec3(s.MinX[lane], s.MinY[lane], s.MinZ[lane]),
		core.NewVec3(s.MaxX[lane], s.MaxY[lane], s.MaxZ[lane]),
	)
}

// SoA is the structure-of-arrays layout of a binary tree. It owns its batches
// and a copy of the index permutation; it is derived from a binary snapshot
// and cannot be modified on its own.
type SoA struct {
	Root      core.AABB
	RootFirst uint32 // Root leaf range, used when the tree is a single leaf
	RootCount uint32
	Batches   []SoABatch
	Indices   []uint32

	store     *geometry.Store
	primCount int
}

// ToSoA converts a built binary tree. The source is not modified.
func ToSoA(b *BVH) (*SoA, error) {
	if b == nil || !b.built {
		return nil, ErrUnbuilt
	}

	s := &SoA{
		Root:      b.Nodes[0].Bounds,
		Indices:   append([]uint32(nil), b.Indices...),
		store:     b.store,
		primCount: b.primCount,
	}

	root := &b.Nodes[0]
	if root.IsLeaf() {
		s.RootFirst, s.RootCount = root.First, root.Count
		return s, nil
	}

	// Binary child pairs start at odd indices 1, 3, 5, ... so the pair at
	// Left maps to batch (Left-1)/2.
	s.Batches = make([]SoABatch, (len(b.Nodes)-1)/soaLanes)
	for i := range s.Batches {
		batch := &s.Batches[i]
		for lane := 0; lane < soaLanes; lane++ {
			n := &b.Nodes[1+i*soaLanes+lane]
			batch.MinX[lane], batch.MinY[lane], batch.MinZ[lane] = n.Bounds.Min.X, n.Bounds.Min.Y, n.Bounds.Min.Z
			batch.MaxX[lane], batch.MaxY[lane], batch.MaxZ[lane] = n.Bounds.Max.X, n.Bounds.Max.Y, n.Bounds.Max.Z
			if n.IsLeaf() {
				batch.First[lane], batch.Count[lane] = n.First, n.Count
			} else {
				batch.Child[lane] = (n.Left - 1) / soaLanes
			}
		}
	}
	return s, nil
}

// PrimitiveCount returns the number of primitives in the source build
func (s *SoA) PrimitiveCount() int {
	return s.primCount
}

// IntersectClosest tests both lanes of a batch together, visits leaf lanes
// near to far and descends into the nearest internal lane.
func (s *SoA) IntersectClosest(ray *core.Ray) bool {
	hit, _ := s.closestHit(ray)
	return hit
}

// IntersectClosestCost is IntersectClosest that also returns the number of
// nodes the query visited
func (s *SoA) IntersectClosestCost(ray *core.Ray) (bool, int) {
	return s.closestHit(ray)
}

func (s *SoA) closestHit(ray *core.Ray) (bool, int) {
	steps := 0
	if s == nil || s.primCount == 0 {
		return false, steps
	}
	if _, ok := s.Root.IntersectRay(ray, ray.TMin, ray.Hit.T); !ok {
		return false, steps
	}
	triangles := s.store.Triangles()
	if len(s.Batches) == 0 {
		return intersectLeafClosest(triangles, s.Indices[s.RootFirst:s.RootFirst+s.RootCount], ray), 1
	}

	var buf [stackSize]stackEntry
	stack := buf[:0]
	hit := false
	current := uint32(0)

	for {
		steps++
		batch := &s.Batches[current]
		var dist [soaLanes]float64
		var ok [soaLanes]bool
		for lane := 0; lane < soaLanes; lane++ {
			dist[lane], ok[lane] = batch.intersect(lane, ray)
		}

		order := [soaLanes]int{0, 1}
		if dist[1] < dist[0] {
			order = [soaLanes]int{1, 0}
		}

		next, haveNext := uint32(0), false
		for _, lane := range order {
			if !ok[lane] {
				continue
			}
			if batch.isLeaf(lane) {
				// The near lane's hit may have moved ray.Hit.T in front of this one
				if dist[lane] > ray.Hit.T {
					continue
				}
				first := batch.First[lane]
				if intersectLeafClosest(triangles, s.Indices[first:first+batch.Count[lane]], ray) {
					hit = true
				}
				continue
			}
			if !haveNext {
				next, haveNext = batch.Child[lane], true
				continue
			}
			stack = append(stack, stackEntry{node: batch.Child[lane], dist: dist[lane]})
		}
		if haveNext {
			current = next
			continue
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
func (s *SoA) IntersectAny(ray *core.Ray) bool {
	hit, _ := s.anyHit(ray)
	return hit
}

// IntersectAnyCost is IntersectAny that also returns the number of
// nodes the query visited
func (s *SoA) IntersectAnyCost(ray *core.Ray) (bool, int) {
	return s.anyHit(ray)
}

func (s *SoA) anyHit(ray *core.Ray) (bool, int) {
	steps := 0
	if s == nil || s.primCount == 0 {
		return false, steps
	}
	if _, ok := s.Root.IntersectRay(ray, ray.TMin, ray.Hit.T); !ok {
		return false, steps
	}
	triangles := s.store.Triangles()
	if len(s.Batches) == 0 {
		return intersectLeafAny(triangles, s.Indices[s.RootFirst:s.RootFirst+s.RootCount], ray), 1
	}

	var buf [stackSize]uint32
	stack := append(buf[:0], 0)
	for len(stack) > 0 {
		steps++
		batch := &s.Batches[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		for lane := 0; lane < soaLanes; lane++ {
			if _, ok := batch.intersect(lane, ray); !ok {
				continue
			}
			if !batch.isLeaf(lane) {
				stack = append(stack, batch.Child[lane])
				continue
			}
			first := batch.First[lane]
			if intersectLeafAny(triangles, s.Indices[first:first+batch.Count[lane]], ray) {
				return true, steps
			}
		}
	}
	return false, steps
}
