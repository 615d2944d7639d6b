package scene

import (
	"math"
	"testing"

	"github.com/df07/go-bvh/pkg/bvh"
	"github.com/df07/go-bvh/pkg/core"
)

func TestTwoTriangleScene(t *testing.T) {
	s := NewTwoTriangleScene()

	tests := []struct {
		name   string
		origin core.Vec3
		hit    bool
		prim   uint32
	}{
		{"miss between triangles", core.NewVec3(0, 0, 0), false, core.NoPrimitive},
		{"left triangle", core.NewVec3(-1.5, 0.5, 0), true, 0},
		{"right triangle", core.NewVec3(1.5, 0.45, 0), true, 1},
	}

	for _, layout := range bvh.Layouts {
		tree, err := s.BuildTree(layout, bvh.DefaultBuildConfig())
		if err != nil {
			t.Fatalf("BuildTree(%v) error: %v", layout, err)
		}

		for _, tt := range tests {
			t.Run(layout.String()+"/"+tt.name, func(t *testing.T) {
				ray := core.NewRay(tt.origin, core.NewVec3(0, 0, -1))
				hit := tree.IntersectClosest(&ray)
				if hit != tt.hit {
					t.Fatalf("Expected hit=%v, got %v", tt.hit, hit)
				}
				if ray.Hit.Prim != tt.prim {
					t.Errorf("Expected prim %d, got %d", tt.prim, ray.Hit.Prim)
				}
				expectedT := core.FarDistance
				if tt.hit {
					expectedT = 1
				}
				if math.Abs(ray.Hit.T-expectedT) > 1e-9 {
					t.Errorf("Expected t=%g, got %g", expectedT, ray.Hit.T)
				}
			})
		}
	}
}

func TestGridScene(t *testing.T) {
	s := NewGridScene(8)
	if s.Store.Len() != 2*8*8 {
		t.Errorf("Expected %d triangles, got %d", 2*8*8, s.Store.Len())
	}

	bounds := s.Bounds()
	if bounds.Min.X != -1 || bounds.Max.X != 1 || bounds.Min.Z != -1 || bounds.Max.Z != 1 {
		t.Errorf("Expected grid over [-1, 1] in XZ, got %v", bounds)
	}

	// A ray straight down always hits the heightfield
	tree, err := s.BuildTree(bvh.LayoutBinary, bvh.DefaultBuildConfig())
	if err != nil {
		t.Fatalf("BuildTree error: %v", err)
	}
	for _, p := range [][2]float64{{0.1, 0.2}, {-0.73, 0.41}, {0.99, -0.99}} {
		ray := core.NewRay(core.NewVec3(p[0], 5, p[1]), core.NewVec3(0, -1, 0))
		if !tree.IntersectClosest(&ray) {
			t.Errorf("Expected downward ray at %v to hit the grid", p)
		}
	}
}

func TestSphereScene(t *testing.T) {
	rings, segments := 8, 16
	s := NewSphereScene(rings, segments)

	if expected := 2 * segments * (rings - 1); s.Store.Len() != expected {
		t.Errorf("Expected %d triangles, got %d", expected, s.Store.Len())
	}

	// Every vertex lies on the unit sphere
	for i, tri := range s.Store.Triangles() {
		for _, v := range []core.Vec3{tri.V0, tri.V1, tri.V2} {
			if math.Abs(v.Length()-1) > 1e-9 {
				t.Fatalf("Triangle %d vertex %v is off the sphere", i, v)
			}
		}
		if tri.Normal().LengthSquared() == 0 {
			t.Fatalf("Triangle %d is degenerate", i)
		}
	}

	tree, err := s.BuildTree(bvh.LayoutWide4, bvh.DefaultBuildConfig())
	if err != nil {
		t.Fatalf("BuildTree error: %v", err)
	}

	// The tessellated sphere is inside the unit sphere, so a ray from +Z hits
	// it a little after t=4
	ray := core.NewRay(core.NewVec3(0.01, 0.02, 5), core.NewVec3(0, 0, -1))
	if !tree.IntersectClosest(&ray) {
		t.Fatal("Expected ray to hit the sphere")
	}
	if ray.Hit.T < 4 || ray.Hit.T > 4.1 {
		t.Errorf("Expected hit near t=4, got %f", ray.Hit.T)
	}
}

func TestSphereGridScene(t *testing.T) {
	s := NewSphereGridScene(2)
	perSphere := 2 * 24 * (12 - 1)
	if expected := 4*perSphere + 2; s.Store.Len() != expected {
		t.Errorf("Expected %d triangles, got %d", expected, s.Store.Len())
	}
}

func TestRandomScene(t *testing.T) {
	a := NewRandomScene(500, 7)
	b := NewRandomScene(500, 7)
	c := NewRandomScene(500, 8)

	if a.Store.Len() != 500 {
		t.Fatalf("Expected 500 triangles, got %d", a.Store.Len())
	}
	for i := 0; i < a.Store.Len(); i++ {
		if a.Store.Triangle(i) != b.Store.Triangle(i) {
			t.Fatalf("Expected the same seed to give the same triangle %d", i)
		}
	}
	if a.Store.Triangle(0) == c.Store.Triangle(0) {
		t.Error("Expected a different seed to give different triangles")
	}

	if empty := NewRandomScene(0, 1); empty.Store.Len() != 0 {
		t.Errorf("Expected empty scene, got %d triangles", empty.Store.Len())
	}
}

func TestScene_CameraSeesScene(t *testing.T) {
	for _, s := range []*Scene{NewGridScene(4), NewSphereScene(8, 16), NewRandomScene(100, 3)} {
		t.Run(s.Name, func(t *testing.T) {
			forward := s.CameraConfig.LookAt.Subtract(s.CameraConfig.Center)
			if s.CameraConfig.LookAt != s.Bounds().Center() {
				t.Errorf("Expected camera to look at %v, got %v", s.Bounds().Center(), s.CameraConfig.LookAt)
			}
			if forward.Length() <= s.Bounds().Size().Length()/2 {
				t.Errorf("Expected camera outside the scene bounds, distance %f", forward.Length())
			}
		})
	}
}

func TestBuildTree_InvalidConfig(t *testing.T) {
	s := NewTwoTriangleScene()
	config := bvh.DefaultBuildConfig()
	config.Bins = 0
	if _, err := s.BuildTree(bvh.LayoutBinary, config); err == nil {
		t.Error("Expected error for invalid build config")
	}
}

func TestUVSphere_Clamps(t *testing.T) {
	triangles := uvSphere(core.Vec3{}, 1, 0, 0)
	// Clamped to 2 rings and 3 segments
	if len(triangles) != 2*3*1 {
		t.Errorf("Expected 6 triangles, got %d", len(triangles))
	}
	for _, tri := range triangles {
		if !tri.IsFinite() {
			t.Errorf("Expected finite triangle, got %v", tri)
		}
	}
}
