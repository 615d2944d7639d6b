package core

import (
	"math"
)

// OrthonormalBasis returns two unit vectors perpendicular to the unit vector
// normal and to each other
func OrthonormalBasis(normal Vec3) (Vec3, Vec3) {
	var nt Vec3
	if math.Abs(normal.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}

	tangent := nt.Cross(normal).Normalize()
	return tangent, normal.Cross(tangent)
}

// SampleCosineHemisphere maps two uniform samples in [0, 1) to a
// cosine-weighted direction in the hemisphere around normal
func SampleCosineHemisphere(normal Vec3, u1, u2 float64) Vec3 {
	// Point in the unit disk, lifted onto the hemisphere
	a := 2.0 * math.Pi * u1
	r := math.Sqrt(u2)
	x := r * math.Cos(a)
	y := r * math.Sin(a)
	z := math.Sqrt(1.0 - u2)

	tangent, bitangent := OrthonormalBasis(normal)
	return tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(z))
}

// SampleOnUnitSphere maps two uniform samples in [0, 1) to a uniform
// direction on the unit sphere
func SampleOnUnitSphere(u1, u2 float64) Vec3 {
	z := 1.0 - 2.0*u1 // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * u2
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}
