package scene

import (
	"math"
	"math/rand"

	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
	"github.com/df07/go-bvh/pkg/renderer"
)

// NewTwoTriangleScene creates two unit triangles in the z=-1 plane, one on
// each side of the origin, viewed from the origin along -Z. A ray along -Z
// from (-1.5, 0.5, 0) hits primitive 0 and one from (1.5, 0.45, 0) hits
// primitive 1, both at distance 1; a ray from the origin misses.
func NewTwoTriangleScene() *Scene {
	store := geometry.NewStore([]geometry.Triangle{
		geometry.NewTriangle(core.NewVec3(-2, 1, -1), core.NewVec3(-1, 1, -1), core.NewVec3(-2, 0, -1)),
		geometry.NewTriangle(core.NewVec3(2, 1, -1), core.NewVec3(2, 0, -1), core.NewVec3(1, 0, -1)),
	})

	return &Scene{
		Name:  "two-triangles",
		Store: store,
		CameraConfig: renderer.CameraConfig{
			Center:      core.NewVec3(0, 0.5, 2),
			LookAt:      core.NewVec3(0, 0.5, -1),
			Up:          core.NewVec3(0, 1, 0),
			AspectRatio: 16.0 / 9.0,
			VFov:        40.0,
		},
	}
}

// NewGridScene creates an n x n heightfield of 2n² triangles over [-1, 1]²
// in the XZ plane, displaced by a sum of sine waves
func NewGridScene(n int) *Scene {
	n = max(1, n)
	height := func(x, z float64) float64 {
		return 0.15*math.Sin(3*x)*math.Cos(2*z) + 0.05*math.Sin(9*x+5*z)
	}
	return newFramedScene("grid", heightfield(n, n, height))
}

// NewSphereScene creates a unit UV sphere with the given number of latitude
// rings and longitude segments
func NewSphereScene(rings, segments int) *Scene {
	return newFramedScene("sphere", geometry.NewStore(uvSphere(core.Vec3{}, 1, rings, segments)))
}

// NewSphereGridScene creates a size x size grid of small UV spheres on a
// ground quad
func NewSphereGridScene(size int) *Scene {
	size = max(1, size)
	var triangles []geometry.Triangle

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			center := core.NewVec3(float64(i), 0.4, float64(j))
			triangles = append(triangles, uvSphere(center, 0.4, 12, 24)...)
		}
	}

	// Ground quad under the grid
	extent := float64(size)
	a := core.NewVec3(-1, 0, -1)
	b := core.NewVec3(extent, 0, -1)
	c := core.NewVec3(extent, 0, extent)
	d := core.NewVec3(-1, 0, extent)
	triangles = append(triangles, geometry.NewTriangle(a, c, b), geometry.NewTriangle(a, d, c))

	return newFramedScene("sphere-grid", geometry.NewStore(triangles))
}

// NewRandomScene scatters count small triangles in a cube of side 10. The
// same seed always produces the same scene.
func NewRandomScene(count int, seed int64) *Scene {
	random := rand.New(rand.NewSource(seed))
	point := func(center core.Vec3, spread float64) core.Vec3 {
		return center.Add(core.NewVec3(
			(random.Float64()-0.5)*spread,
			(random.Float64()-0.5)*spread,
			(random.Float64()-0.5)*spread,
		))
	}

	triangles := make([]geometry.Triangle, max(0, count))
	for i := range triangles {
		center := point(core.Vec3{}, 10)
		triangles[i] = geometry.NewTriangle(point(center, 0.5), point(center, 0.5), point(center, 0.5))
	}
	return newFramedScene("random", geometry.NewStore(triangles))
}

// heightfield triangulates a (cols+1) x (rows+1) vertex grid over [-1, 1]²
// with heights from height(x, z)
func heightfield(cols, rows int, height func(x, z float64) float64) *geometry.Store {
	vertices := make([]core.Vec3, 0, (cols+1)*(rows+1))
	for j := 0; j <= rows; j++ {
		z := -1 + 2*float64(j)/float64(rows)
		for i := 0; i <= cols; i++ {
			x := -1 + 2*float64(i)/float64(cols)
			vertices = append(vertices, core.NewVec3(x, height(x, z), z))
		}
	}

	faces := make([]int, 0, cols*rows*6)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			v00 := j*(cols+1) + i
			v10 := v00 + 1
			v01 := v00 + cols + 1
			v11 := v01 + 1
			faces = append(faces, v00, v01, v10, v10, v01, v11)
		}
	}

	// Indices are in range by construction
	store, _ := geometry.NewStoreFromIndexed(vertices, faces)
	return store
}

// uvSphere tessellates a sphere. The poles are fans, so a sphere has
// 2*segments*(rings-1) triangles.
func uvSphere(center core.Vec3, radius float64, rings, segments int) []geometry.Triangle {
	rings = max(2, rings)
	segments = max(3, segments)

	vertex := func(ring, segment int) core.Vec3 {
		theta := math.Pi * float64(ring) / float64(rings)
		phi := 2 * math.Pi * float64(segment) / float64(segments)
		return center.Add(core.NewVec3(
			radius*math.Sin(theta)*math.Cos(phi),
			radius*math.Cos(theta),
			radius*math.Sin(theta)*math.Sin(phi),
		))
	}

	triangles := make([]geometry.Triangle, 0, 2*segments*(rings-1))
	for ring := 0; ring < rings; ring++ {
		for segment := 0; segment < segments; segment++ {
			a := vertex(ring, segment)
			b := vertex(ring, segment+1)
			c := vertex(ring+1, segment)
			d := vertex(ring+1, segment+1)
			if ring != 0 {
				triangles = append(triangles, geometry.NewTriangle(a, b, c))
			}
			if ring != rings-1 {
				triangles = append(triangles, geometry.NewTriangle(b, d, c))
			}
		}
	}
	return triangles
}
