package core

import "math"

const (
	// FarDistance is the hit distance of a ray that has not hit anything yet.
	FarDistance = 1e30

	// NoPrimitive marks an Intersection that does not reference a primitive.
	NoPrimitive = math.MaxUint32
)

// Intersection is the hit record carried by a Ray
type Intersection struct {
	T    float64 // Distance along the ray
	U, V float64 // Barycentric coordinates of the hit point
	Prim uint32  // Index of the primitive in the store
}

// Ray is a query primitive. Traversal mutates Hit in place and Hit.T only ever shrinks.
// A Ray is a small value type: copy it freely, but give each concurrent query its own.
type Ray struct {
	Origin       Vec3
	Direction    Vec3
	InvDirection Vec3    // Per-axis reciprocal of Direction
	TMin         float64 // Hits at or before this distance are ignored
	Hit          Intersection
}

// NewRay creates a ray with no distance limit
func NewRay(origin, direction Vec3) Ray {
	return NewRayWithMax(origin, direction, FarDistance)
}

// NewRayWithMax creates a ray whose hits must lie closer than maxDistance
func NewRayWithMax(origin, direction Vec3, maxDistance float64) Ray {
	return Ray{
		Origin:       origin,
		Direction:    direction,
		InvDirection: direction.Reciprocal(),
		Hit:          Intersection{T: maxDistance, Prim: NoPrimitive},
	}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}

// HasHit reports whether a closest-hit query recorded a primitive
func (r Ray) HasHit() bool {
	return r.Hit.Prim != NoPrimitive
}

// Reset clears the hit record so the ray can be reused for another query
func (r *Ray) Reset(maxDistance float64) {
	r.Hit = Intersection{T: maxDistance, Prim: NoPrimitive}
}
