package bvh

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
)

func TestIntersect_SingleTriangle(t *testing.T) {
	triangles := []geometry.Triangle{tri(0, 0, 0, 1, 0, 0, 0, 1, 0)}

	for _, layout := range Layouts {
		t.Run(layout.String(), func(t *testing.T) {
			tree := buildTree(t, layout, triangles)

			ray := core.NewRay(core.NewVec3(0.25, 0.25, 5), core.NewVec3(0, 0, -1))
			if !tree.IntersectClosest(&ray) {
				t.Fatal("Expected ray to hit the triangle")
			}
			if math.Abs(ray.Hit.T-5.0) > 1e-9 {
				t.Errorf("Expected hit distance 5.0, got %f", ray.Hit.T)
			}
			if ray.Hit.Prim != 0 {
				t.Errorf("Expected primitive 0, got %d", ray.Hit.Prim)
			}
			if ray.Hit.U < 0 || ray.Hit.V < 0 || ray.Hit.U+ray.Hit.V > 1 {
				t.Errorf("Expected valid barycentrics, got u=%f v=%f", ray.Hit.U, ray.Hit.V)
			}

			miss := core.NewRay(core.NewVec3(5, 5, 5), core.NewVec3(1, 1, 1))
			if tree.IntersectClosest(&miss) {
				t.Error("Expected ray pointing away to miss")
			}
			if miss.Hit.T != core.FarDistance || miss.Hit.Prim != core.NoPrimitive {
				t.Errorf("Expected untouched hit record after miss, got %+v", miss.Hit)
			}
			if tree.IntersectAny(&miss) {
				t.Error("Expected any-hit to miss as well")
			}
		})
	}
}

func TestIntersect_EmptyTree(t *testing.T) {
	for _, layout := range Layouts {
		t.Run(layout.String(), func(t *testing.T) {
			tree := buildTree(t, layout, nil)

			ray := core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1))
			if tree.IntersectClosest(&ray) {
				t.Error("Expected no closest hit in an empty tree")
			}
			if tree.IntersectAny(&ray) {
				t.Error("Expected no any hit in an empty tree")
			}
		})
	}
}

func TestIntersect_Unbuilt(t *testing.T) {
	for _, layout := range Layouts {
		tree := NewTree(layout)
		ray := core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1))
		if tree.IntersectClosest(&ray) || tree.IntersectAny(&ray) {
			t.Errorf("%s: expected unbuilt tree to report no hits", layout)
		}
	}
}

func TestIntersect_Occluded(t *testing.T) {
	// Triangle 1 sits in front of triangle 0 along -Z
	triangles := []geometry.Triangle{
		tri(-1, -1, 0, 1, -1, 0, 0, 1, 0),
		tri(-1, -1, 2, 1, -1, 2, 0, 1, 2),
	}

	for _, layout := range Layouts {
		t.Run(layout.String(), func(t *testing.T) {
			tree := buildTree(t, layout, triangles)

			ray := core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1))
			if !tree.IntersectAny(&ray) {
				t.Error("Expected any-hit to report occlusion")
			}
			if !tree.IntersectClosest(&ray) {
				t.Fatal("Expected closest hit")
			}
			if ray.Hit.Prim != 1 {
				t.Errorf("Expected nearer primitive 1, got %d", ray.Hit.Prim)
			}
			if math.Abs(ray.Hit.T-3.0) > 1e-9 {
				t.Errorf("Expected hit distance 3.0, got %f", ray.Hit.T)
			}
		})
	}
}

func TestIntersect_TwoTrianglesFacingRay(t *testing.T) {
	// Two triangles side by side at z=0, one per ray
	triangles := []geometry.Triangle{
		tri(-3, -1, 0, -1, -1, 0, -2, 1, 0),
		tri(1, -1, 0, 3, -1, 0, 2, 1, 0),
	}

	tests := []struct {
		name     string
		origin   core.Vec3
		expected uint32
		hit      bool
	}{
		{"left triangle", core.NewVec3(-2, 0, 1), 0, true},
		{"right triangle", core.NewVec3(2, 0, 1), 1, true},
		{"gap between", core.NewVec3(0, 0, 1), core.NoPrimitive, false},
	}

	for _, layout := range Layouts {
		tree := buildTree(t, layout, triangles)
		for _, tt := range tests {
			t.Run(layout.String()+"/"+tt.name, func(t *testing.T) {
				ray := core.NewRay(tt.origin, core.NewVec3(0, 0, -1))
				hit := tree.IntersectClosest(&ray)
				if hit != tt.hit {
					t.Fatalf("Expected hit=%v, got %v", tt.hit, hit)
				}
				if ray.Hit.Prim != tt.expected {
					t.Errorf("Expected primitive %d, got %d", tt.expected, ray.Hit.Prim)
				}
				if !tt.hit && ray.Hit.T != core.FarDistance {
					t.Errorf("Expected distance %g after miss, got %g", core.FarDistance, ray.Hit.T)
				}
				if tt.hit && math.Abs(ray.Hit.T-1) > 1e-9 {
					t.Errorf("Expected distance 1, got %f", ray.Hit.T)
				}
			})
		}
	}
}

func TestIntersect_MatchesBruteForce(t *testing.T) {
	random := rand.New(rand.NewSource(42))
	triangles := randomTriangles(random, 2000, 20, 2)
	rays := randomRays(random, 500, 20)

	for _, layout := range Layouts {
		t.Run(layout.String(), func(t *testing.T) {
			tree := buildTree(t, layout, triangles)

			for i, r := range rays {
				expected := bruteForceClosest(triangles, r)

				ray := r
				hit := tree.IntersectClosest(&ray)
				if hit != (expected.Prim != core.NoPrimitive) {
					t.Fatalf("ray %d: expected hit=%v, got %v", i, expected.Prim != core.NoPrimitive, hit)
				}
				if ray.Hit != expected {
					t.Fatalf("ray %d: expected %+v, got %+v", i, expected, ray.Hit)
				}

				anyRay := r
				if tree.IntersectAny(&anyRay) != hit {
					t.Fatalf("ray %d: any-hit disagrees with closest-hit", i)
				}
			}
		})
	}
}

func TestIntersect_LayoutsAgree(t *testing.T) {
	random := rand.New(rand.NewSource(5))
	triangles := randomTriangles(random, 4000, 30, 1.5)
	rays := randomRays(random, 1000, 30)

	trees := make([]*Tree, len(Layouts))
	for i, layout := range Layouts {
		trees[i] = buildTree(t, layout, triangles)
	}

	for i, r := range rays {
		reference := r
		trees[0].IntersectClosest(&reference)
		for _, tree := range trees[1:] {
			ray := r
			tree.IntersectClosest(&ray)
			if ray.Hit != reference.Hit {
				t.Fatalf("ray %d: %s found %+v, binary found %+v", i, tree.Layout(), ray.Hit, reference.Hit)
			}
		}
	}
}

func TestIntersect_OrderIndependent(t *testing.T) {
	random := rand.New(rand.NewSource(9))
	triangles := randomTriangles(random, 1000, 10, 2)
	rays := randomRays(random, 300, 10)

	// Shuffled copy, remembering where each original primitive went
	perm := random.Perm(len(triangles))
	shuffled := make([]geometry.Triangle, len(triangles))
	for newIndex, oldIndex := range perm {
		shuffled[newIndex] = triangles[oldIndex]
	}

	for _, layout := range Layouts {
		t.Run(layout.String(), func(t *testing.T) {
			a := buildTree(t, layout, triangles)
			b := buildTree(t, layout, shuffled)

			for i, r := range rays {
				ra, rb := r, r
				a.IntersectClosest(&ra)
				b.IntersectClosest(&rb)
				if ra.Hit.T != rb.Hit.T {
					t.Fatalf("ray %d: expected distance %g, got %g", i, ra.Hit.T, rb.Hit.T)
				}
				if ra.Hit.Prim == core.NoPrimitive {
					if rb.Hit.Prim != core.NoPrimitive {
						t.Fatalf("ray %d: expected miss, got primitive %d", i, rb.Hit.Prim)
					}
					continue
				}
				if shuffled[rb.Hit.Prim] != triangles[ra.Hit.Prim] {
					t.Fatalf("ray %d: shuffled tree hit a different triangle", i)
				}
			}
		})
	}
}

func TestIntersect_SharedEdgeTie(t *testing.T) {
	// Two triangles sharing the edge x=0; the ray hits the edge exactly
	triangles := []geometry.Triangle{
		tri(0, -1, 0, 1, 0, 0, 0, 1, 0),
		tri(0, -1, 0, 0, 1, 0, -1, 0, 0),
	}
	reversed := []geometry.Triangle{triangles[1], triangles[0]}

	for _, layout := range Layouts {
		t.Run(layout.String(), func(t *testing.T) {
			for _, set := range [][]geometry.Triangle{triangles, reversed} {
				tree := buildTree(t, layout, set)
				ray := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1))
				if !tree.IntersectClosest(&ray) {
					t.Fatal("Expected the shared edge to be hit")
				}
				if ray.Hit.Prim != 0 {
					t.Errorf("Expected the tie to go to primitive 0, got %d", ray.Hit.Prim)
				}
			}
		})
	}
}

func TestIntersect_AxisAlignedRays(t *testing.T) {
	// Each ray has two zero direction components
	triangles := []geometry.Triangle{
		tri(-1, -1, 3, 1, -1, 3, 0, 1, 3), // facing z
		tri(3, -1, -1, 3, 1, -1, 3, 0, 1), // facing x
		tri(-1, 3, -1, 1, 3, -1, 0, 3, 1), // facing y
		tri(-10, -10, -10, -9, -10, -10, -10, -9, -10),
	}

	tests := []struct {
		name      string
		direction core.Vec3
		expected  uint32
	}{
		{"+z", core.NewVec3(0, 0, 1), 0},
		{"+x", core.NewVec3(1, 0, 0), 1},
		{"+y", core.NewVec3(0, 1, 0), 2},
	}

	for _, layout := range Layouts {
		tree := buildTree(t, layout, triangles)
		for _, tt := range tests {
			t.Run(layout.String()+"/"+tt.name, func(t *testing.T) {
				ray := core.NewRay(core.NewVec3(0, 0, 0), tt.direction)
				if !tree.IntersectClosest(&ray) {
					t.Fatal("Expected axis-aligned ray to hit")
				}
				if ray.Hit.Prim != tt.expected {
					t.Errorf("Expected primitive %d, got %d", tt.expected, ray.Hit.Prim)
				}
				if math.Abs(ray.Hit.T-3) > 1e-9 {
					t.Errorf("Expected distance 3, got %f", ray.Hit.T)
				}
			})
		}

		// Origin outside the slab of a zero direction component
		ray := core.NewRay(core.NewVec3(0, 50, 0), core.NewVec3(0, 0, 1))
		if tree.IntersectClosest(&ray) || tree.IntersectAny(&ray) {
			t.Errorf("%s: expected ray outside every slab to miss", layout)
		}
	}
}

func TestIntersect_RayInterval(t *testing.T) {
	triangles := []geometry.Triangle{
		tri(-1, -1, 0, 1, -1, 0, 0, 1, 0),
		tri(-1, -1, -4, 1, -1, -4, 0, 1, -4),
	}

	for _, layout := range Layouts {
		t.Run(layout.String(), func(t *testing.T) {
			tree := buildTree(t, layout, triangles)
			origin := core.NewVec3(0, 0, 5)
			direction := core.NewVec3(0, 0, -1)

			// Max distance short of both triangles
			short := core.NewRayWithMax(origin, direction, 4)
			if tree.IntersectClosest(&short) || tree.IntersectAny(&short) {
				t.Error("Expected no hit beyond the max distance")
			}

			// A hit exactly at the max distance is not accepted
			exact := core.NewRayWithMax(origin, direction, 5)
			if tree.IntersectAny(&exact) {
				t.Error("Expected hit at the max distance to be excluded")
			}

			// TMin past the first triangle finds the second
			far := core.NewRay(origin, direction)
			far.TMin = 6
			if !tree.IntersectClosest(&far) {
				t.Fatal("Expected hit past TMin")
			}
			if far.Hit.Prim != 1 || math.Abs(far.Hit.T-9) > 1e-9 {
				t.Errorf("Expected primitive 1 at 9, got %d at %f", far.Hit.Prim, far.Hit.T)
			}

			// A second closest query with the hit already recorded finds nothing new
			if tree.IntersectClosest(&far) {
				t.Error("Expected no closer hit on a repeated query")
			}
		})
	}
}

func TestIntersect_Concurrent(t *testing.T) {
	random := rand.New(rand.NewSource(17))
	triangles := randomTriangles(random, 3000, 25, 2)
	rays := randomRays(random, 400, 25)

	for _, layout := range Layouts {
		t.Run(layout.String(), func(t *testing.T) {
			tree := buildTree(t, layout, triangles)

			expected := make([]core.Intersection, len(rays))
			for i, r := range rays {
				tree.IntersectClosest(&r)
				expected[i] = r.Hit
			}

			var wg sync.WaitGroup
			errs := make(chan int, len(rays)*4)
			for g := 0; g < 4; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i, r := range rays {
						tree.IntersectClosest(&r)
						if r.Hit != expected[i] {
							errs <- i
						}
					}
				}()
			}
			wg.Wait()
			close(errs)

			for i := range errs {
				t.Errorf("ray %d gave a different result under concurrency", i)
			}
		})
	}
}

func BenchmarkIntersectClosest(b *testing.B) {
	random := rand.New(rand.NewSource(1))
	triangles := randomTriangles(random, 50000, 100, 1)
	rays := randomRays(random, 1024, 100)

	for _, layout := range Layouts {
		tree := NewTree(layout)
		if err := tree.Build(geometry.NewStore(triangles), len(triangles)); err != nil {
			b.Fatalf("Build failed: %v", err)
		}
		b.Run(layout.String(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				ray := rays[i%len(rays)]
				tree.IntersectClosest(&ray)
			}
		})
	}
}

func BenchmarkBuild(b *testing.B) {
	triangles := randomTriangles(rand.New(rand.NewSource(1)), 50000, 100, 1)
	store := geometry.NewStore(triangles)

	for i := 0; i < b.N; i++ {
		bvh := NewBVH()
		if err := bvh.Build(store, store.Len()); err != nil {
			b.Fatalf("Build failed: %v", err)
		}
	}
}

func TestIntersectCost(t *testing.T) {
	random := rand.New(rand.NewSource(11))
	triangles := randomTriangles(random, 1000, 10, 1)
	rays := randomRays(random, 300, 10)

	for _, layout := range Layouts {
		t.Run(layout.String(), func(t *testing.T) {
			tree := buildTree(t, layout, triangles)
			stats, err := tree.Stats()
			if err != nil {
				t.Fatal(err)
			}

			totalSteps := 0
			for i, r := range rays {
				plain, counted := r, r
				hit := tree.IntersectClosest(&plain)
				countedHit, steps := tree.IntersectClosestCost(&counted)
				if countedHit != hit || counted.Hit != plain.Hit {
					t.Fatalf("ray %d: counted query disagrees: %+v vs %+v", i, counted.Hit, plain.Hit)
				}
				if steps > stats.Nodes {
					t.Errorf("ray %d: visited %d nodes of a %d node tree", i, steps, stats.Nodes)
				}
				if hit && steps < 1 {
					t.Errorf("ray %d: hit without visiting a node", i)
				}
				totalSteps += steps

				plain, counted = r, r
				anyHit, anySteps := tree.IntersectAnyCost(&counted)
				if anyHit != tree.IntersectAny(&plain) {
					t.Fatalf("ray %d: counted any-hit disagrees", i)
				}
				if anySteps > stats.Nodes {
					t.Errorf("ray %d: any-hit visited %d nodes of a %d node tree", i, anySteps, stats.Nodes)
				}
			}
			if totalSteps == 0 {
				t.Error("Expected some traversal work")
			}
		})
	}

	// A ray that misses the root box costs nothing
	for _, layout := range Layouts {
		tree := buildTree(t, layout, []geometry.Triangle{tri(0, 0, 0, 1, 0, 0, 0, 1, 0)})
		ray := core.NewRay(core.NewVec3(5, 5, 5), core.NewVec3(1, 1, 1))
		if hit, steps := tree.IntersectClosestCost(&ray); hit || steps != 0 {
			t.Errorf("%s: expected a free miss, got hit=%v steps=%d", layout, hit, steps)
		}
	}
}
