package geometry

import (
	"github.com/df07/go-bvh/pkg/core"
)

const (
	// ParallelEpsilon rejects rays whose direction is (nearly) parallel to the
	// triangle plane, measured on the Moller-Trumbore determinant.
	ParallelEpsilon = 1e-12

	// EdgeEpsilon is the barycentric tolerance applied on every edge. A ray
	// through a shared edge therefore hits both triangles at the same distance;
	// traversal breaks that tie by the lower primitive index.
	EdgeEpsilon = 1e-9
)

// Triangle represents a single triangle defined by three vertices
type Triangle struct {
	V0, V1, V2 core.Vec3
}

// NewTriangle creates a new triangle from three vertices
func NewTriangle(v0, v1, v2 core.Vec3) Triangle {
	return Triangle{V0: v0, V1: v1, V2: v2}
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t Triangle) BoundingBox() core.AABB {
	box := core.EmptyAABB()
	box.Grow(t.V0)
	box.Grow(t.V1)
	box.Grow(t.V2)
	return box
}

// Centroid returns the average of the three vertices
func (t Triangle) Centroid() core.Vec3 {
	return t.V0.Add(t.V1).Add(t.V2).Multiply(1.0 / 3.0)
}

// Normal returns the unit geometric normal (V1-V0) x (V2-V0)
func (t Triangle) Normal() core.Vec3 {
	return t.V1.Subtract(t.V0).Cross(t.V2.Subtract(t.V0)).Normalize()
}

// IsFinite reports whether all vertices are finite
func (t Triangle) IsFinite() bool {
	return t.V0.IsFinite() && t.V1.IsFinite() && t.V2.IsFinite()
}

// Intersect tests the ray against the triangle using the Moller-Trumbore algorithm
// and returns the hit distance and barycentric coordinates. The caller decides
// whether the distance falls inside its valid interval.
func (t Triangle) Intersect(ray *core.Ray) (dist, u, v float64, ok bool) {
	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// Ray lies in (or is parallel to) the triangle plane
	if a > -ParallelEpsilon && a < ParallelEpsilon {
		return 0, 0, 0, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u = f * s.Dot(h)
	if u < -EdgeEpsilon || u > 1.0+EdgeEpsilon {
		return 0, 0, 0, false
	}

	q := s.Cross(edge1)
	v = f * ray.Direction.Dot(q)
	if v < -EdgeEpsilon || u+v > 1.0+EdgeEpsilon {
		return 0, 0, 0, false
	}

	dist = f * edge2.Dot(q)
	return dist, u, v, true
}
