package bvh

import (
	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
)

// stackEntry is a deferred subtree and the distance at which the ray enters it
type stackEntry struct {
	node uint32
	dist float64
}

const stackSize = 64

// closer reports whether a hit at t on prim should replace the ray's current
// hit. Equal distances go to the lower primitive index, which makes the
// result independent of the order subtrees are visited in.
func closer(ray *core.Ray, t float64, prim uint32) bool {
	if t <= ray.TMin {
		return false
	}
	if t < ray.Hit.T {
		return true
	}
	return t == ray.Hit.T && ray.Hit.Prim != core.NoPrimitive && prim < ray.Hit.Prim
}

// occludes reports whether a hit at t lies strictly inside the ray's interval
func occludes(ray *core.Ray, t float64) bool {
	return t > ray.TMin && t < ray.Hit.T
}

// intersectLeafClosest tests every primitive in a leaf and updates ray.Hit
func intersectLeafClosest(triangles []geometry.Triangle, prims []uint32, ray *core.Ray) bool {
	hit := false
	for _, prim := range prims {
		t, u, v, ok := triangles[prim].Intersect(ray)
		if ok && closer(ray, t, prim) {
			ray.Hit = core.Intersection{T: t, U: u, V: v, Prim: prim}
			hit = true
		}
	}
	return hit
}

// intersectLeafAny reports whether any primitive in a leaf occludes the ray
func intersectLeafAny(triangles []geometry.Triangle, prims []uint32, ray *core.Ray) bool {
	for _, prim := range prims {
		if t, _, _, ok := triangles[prim].Intersect(ray); ok && occludes(ray, t) {
			return true
		}
	}
	return false
}

// IntersectClosest walks the tree nearest child first and records the
// closest hit in ray.Hit. Unbuilt and empty trees never hit.
func (b *BVH) IntersectClosest(ray *core.Ray) bool {
	hit, _ := b.closestHit(ray)
	return hit
}

// IntersectClosestCost is IntersectClosest that also returns the number of
// nodes the query visited
func (b *BVH) IntersectClosestCost(ray *core.Ray) (bool, int) {
	return b.closestHit(ray)
}

func (b *BVH) closestHit(ray *core.Ray) (bool, int) {
	steps := 0
	if !b.built || b.primCount == 0 {
		return false, steps
	}
	nodes := b.Nodes
	triangles := b.store.Triangles()

	if _, ok := nodes[0].Bounds.IntersectRay(ray, ray.TMin, ray.Hit.T); !ok {
		return false, steps
	}

	var buf [stackSize]stackEntry
	stack := buf[:0]
	hit := false
	current := uint32(0)

	for {
		steps++
		node := &nodes[current]
		if node.IsLeaf() {
			if intersectLeafClosest(triangles, b.Indices[node.First:node.First+node.Count], ray) {
				hit = true
			}
		} else {
			left, right := node.Left, node.Left+1
			dl, hl := nodes[left].Bounds.IntersectRay(ray, ray.TMin, ray.Hit.T)
			dr, hr := nodes[right].Bounds.IntersectRay(ray, ray.TMin, ray.Hit.T)
			switch {
			case hl && hr:
				near, far, farDist := left, right, dr
				if dr < dl {
					near, far, farDist = right, left, dl
				}
				stack = append(stack, stackEntry{node: far, dist: farDist})
				current = near
				continue
			case hl:
				current = left
				continue
			case hr:
				current = right
				continue
			}
		}

		// Pop the next subtree the ray can still reach
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
func (b *BVH) IntersectAny(ray *core.Ray) bool {
	hit, _ := b.anyHit(ray)
	return hit
}

// IntersectAnyCost is IntersectAny that also returns the number of
// nodes the query visited
func (b *BVH) IntersectAnyCost(ray *core.Ray) (bool, int) {
	return b.anyHit(ray)
}

func (b *BVH) anyHit(ray *core.Ray) (bool, int) {
	steps := 0
	if !b.built || b.primCount == 0 {
		return false, steps
	}
	nodes := b.Nodes
	triangles := b.store.Triangles()

	var buf [stackSize]uint32
	stack := append(buf[:0], 0)

	for len(stack) > 0 {
		steps++
		node := &nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if _, ok := node.Bounds.IntersectRay(ray, ray.TMin, ray.Hit.T); !ok {
			continue
		}
		if node.IsLeaf() {
			if intersectLeafAny(triangles, b.Indices[node.First:node.First+node.Count], ray) {
				return true, steps
			}
			continue
		}
		stack = append(stack, node.Left+1, node.Left)
	}
	return false, steps
}
