package core

import "math"

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns the identity box for Union: min at +Inf and max at -Inf.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec3) AABB {
	box := EmptyAABB()
	for _, point := range points {
		box.Grow(point)
	}
	return box
}

// Grow expands the box in place to include point
func (aabb *AABB) Grow(point Vec3) {
	aabb.Min = aabb.Min.Min(point)
	aabb.Max = aabb.Max.Max(point)
}

// GrowAABB expands the box in place to include other
func (aabb *AABB) GrowAABB(other AABB) {
	aabb.Min = aabb.Min.Min(other.Min)
	aabb.Max = aabb.Max.Max(other.Max)
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	return AABB{
		Min: aabb.Min.Min(other.Min),
		Max: aabb.Max.Max(other.Max),
	}
}

// IsEmpty reports whether the box contains no points at all
func (aabb AABB) IsEmpty() bool {
	return aabb.Min.X > aabb.Max.X ||
		aabb.Min.Y > aabb.Max.Y ||
		aabb.Min.Z > aabb.Max.Z
}

// IsValid returns true if this is a valid AABB (min <= max for all axes)
func (aabb AABB) IsValid() bool {
	return aabb.Min.X <= aabb.Max.X &&
		aabb.Min.Y <= aabb.Max.Y &&
		aabb.Min.Z <= aabb.Max.Z
}

// Center returns the center point of the AABB
func (aabb AABB) Center() Vec3 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() Vec3 {
	if aabb.IsEmpty() {
		return Vec3{}
	}
	return aabb.Max.Subtract(aabb.Min)
}

// SurfaceArea returns the surface area of the AABB. Empty boxes have zero area.
func (aabb AABB) SurfaceArea() float64 {
	size := aabb.Size()
	return 2.0 * (size.X*size.Y + size.Y*size.Z + size.Z*size.X)
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the longest extent
func (aabb AABB) LongestAxis() int {
	size := aabb.Size()
	if size.X > size.Y && size.X > size.Z {
		return 0
	}
	if size.Y > size.Z {
		return 1
	}
	return 2
}

// Overlaps reports whether two boxes share at least one point
func (aabb AABB) Overlaps(other AABB) bool {
	return aabb.Min.X <= other.Max.X && aabb.Max.X >= other.Min.X &&
		aabb.Min.Y <= other.Max.Y && aabb.Max.Y >= other.Min.Y &&
		aabb.Min.Z <= other.Max.Z && aabb.Max.Z >= other.Min.Z
}

// Contains reports whether other lies entirely inside this box
func (aabb AABB) Contains(other AABB) bool {
	if other.IsEmpty() {
		return true
	}
	return aabb.Min.X <= other.Min.X && aabb.Max.X >= other.Max.X &&
		aabb.Min.Y <= other.Min.Y && aabb.Max.Y >= other.Max.Y &&
		aabb.Min.Z <= other.Min.Z && aabb.Max.Z >= other.Max.Z
}

// Expand returns an AABB expanded by the given amount in all directions
func (aabb AABB) Expand(amount float64) AABB {
	expansion := NewVec3(amount, amount, amount)
	return AABB{
		Min: aabb.Min.Subtract(expansion),
		Max: aabb.Max.Add(expansion),
	}
}

// IntersectRay runs the slab test against the interval [tMin, tMax] and
// returns the distance at which the ray enters the box.
//
// A direction component that is exactly zero makes that slab unbounded when
// the origin lies inside it and a miss otherwise.
func (aabb AABB) IntersectRay(ray *Ray, tMin, tMax float64) (float64, bool) {
	return SlabTest(
		aabb.Min.X, aabb.Min.Y, aabb.Min.Z,
		aabb.Max.X, aabb.Max.Y, aabb.Max.Z,
		ray, tMin, tMax,
	)
}

// SlabTest is IntersectRay on unpacked box components. Layouts that store
// bounds as parallel lanes call it directly.
func SlabTest(minX, minY, minZ, maxX, maxY, maxZ float64, ray *Ray, tMin, tMax float64) (float64, bool) {
	var ok bool
	if tMin, tMax, ok = slab(minX, maxX, ray.Origin.X, ray.Direction.X, ray.InvDirection.X, tMin, tMax); !ok {
		return 0, false
	}
	if tMin, tMax, ok = slab(minY, maxY, ray.Origin.Y, ray.Direction.Y, ray.InvDirection.Y, tMin, tMax); !ok {
		return 0, false
	}
	if tMin, _, ok = slab(minZ, maxZ, ray.Origin.Z, ray.Direction.Z, ray.InvDirection.Z, tMin, tMax); !ok {
		return 0, false
	}
	return tMin, true
}

func slab(min, max, origin, direction, invDirection, tMin, tMax float64) (float64, float64, bool) {
	if min > max {
		return tMin, tMax, false
	}
	if direction == 0 {
		if origin < min || origin > max {
			return tMin, tMax, false
		}
		return tMin, tMax, true
	}

	t1 := (min - origin) * invDirection
	t2 := (max - origin) * invDirection
	if t1 > t2 {
		t1, t2 = t2, t1
	}

	if t1 > tMin {
		tMin = t1
	}
	if t2 < tMax {
		tMax = t2
	}
	return tMin, tMax, tMin <= tMax
}
