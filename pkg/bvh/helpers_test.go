package bvh

import (
	"math/rand"
	"testing"

	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
)

// randomTriangles scatters n small triangles inside a cube of side spread
func randomTriangles(random *rand.Rand, n int, spread, size float64) []geometry.Triangle {
	point := func(center core.Vec3, r float64) core.Vec3 {
		return center.Add(core.NewVec3(
			(random.Float64()-0.5)*r,
			(random.Float64()-0.5)*r,
			(random.Float64()-0.5)*r,
		))
	}

	triangles := make([]geometry.Triangle, n)
	for i := range triangles {
		center := point(core.Vec3{}, spread)
		triangles[i] = geometry.NewTriangle(point(center, size), point(center, size), point(center, size))
	}
	return triangles
}

// randomRays aims rays from a shell around the scene at points inside it
func randomRays(random *rand.Rand, n int, spread float64) []core.Ray {
	rays := make([]core.Ray, n)
	for i := range rays {
		origin := core.NewVec3(
			(random.Float64()-0.5)*spread*3,
			(random.Float64()-0.5)*spread*3,
			(random.Float64()-0.5)*spread*3,
		)
		target := core.NewVec3(
			(random.Float64()-0.5)*spread,
			(random.Float64()-0.5)*spread,
			(random.Float64()-0.5)*spread,
		)
		rays[i] = core.NewRay(origin, target.Subtract(origin))
	}
	return rays
}

// bruteForceClosest tests every triangle with the same acceptance rule as the trees
func bruteForceClosest(triangles []geometry.Triangle, ray core.Ray) core.Intersection {
	for i, tri := range triangles {
		t, u, v, ok := tri.Intersect(&ray)
		if ok && closer(&ray, t, uint32(i)) {
			ray.Hit = core.Intersection{T: t, U: u, V: v, Prim: uint32(i)}
		}
	}
	return ray.Hit
}

func buildTree(t *testing.T, layout Layout, triangles []geometry.Triangle) *Tree {
	t.Helper()
	tree := NewTree(layout)
	if err := tree.Build(geometry.NewStore(triangles), len(triangles)); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return tree
}

func tri(x0, y0, z0, x1, y1, z1, x2, y2, z2 float64) geometry.Triangle {
	return geometry.NewTriangle(core.NewVec3(x0, y0, z0), core.NewVec3(x1, y1, z1), core.NewVec3(x2, y2, z2))
}
