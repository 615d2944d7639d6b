package renderer

import (
	"math"
	"testing"

	"github.com/df07/go-bvh/pkg/core"
)

func vecNear(a, b core.Vec3, tolerance float64) bool {
	return math.Abs(a.X-b.X) <= tolerance &&
		math.Abs(a.Y-b.Y) <= tolerance &&
		math.Abs(a.Z-b.Z) <= tolerance
}

func TestCameraForward(t *testing.T) {
	config := CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		AspectRatio: 1.0,
		VFov:        45.0,
	}
	camera := NewCamera(config)

	expected := core.NewVec3(0, 0, -1)
	if !vecNear(camera.Forward(), expected, 1e-9) {
		t.Errorf("Expected forward direction %v, got %v", expected, camera.Forward())
	}
	if camera.Origin() != config.Center {
		t.Errorf("Expected origin %v, got %v", config.Center, camera.Origin())
	}
}

func TestCameraGetPixelRay(t *testing.T) {
	camera := NewCamera(CameraConfig{
		Center:      core.NewVec3(0, 0, 5),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		AspectRatio: 1.0,
		VFov:        90.0,
	})

	// The center pixel of an odd-sized image looks straight ahead
	center := camera.GetPixelRay(1, 1, 3, 3)
	if !vecNear(center.Direction, core.NewVec3(0, 0, -1), 1e-9) {
		t.Errorf("Expected center ray along -Z, got %v", center.Direction)
	}
	if center.Origin != core.NewVec3(0, 0, 5) {
		t.Errorf("Expected ray origin at camera center, got %v", center.Origin)
	}

	// Row 0 is the top of the image, column 0 the left
	topLeft := camera.GetPixelRay(0, 0, 3, 3)
	if topLeft.Direction.Y <= 0 || topLeft.Direction.X >= 0 {
		t.Errorf("Expected top-left ray to point up and left, got %v", topLeft.Direction)
	}
	bottomRight := camera.GetPixelRay(2, 2, 3, 3)
	if bottomRight.Direction.Y >= 0 || bottomRight.Direction.X <= 0 {
		t.Errorf("Expected bottom-right ray to point down and right, got %v", bottomRight.Direction)
	}

	if math.Abs(topLeft.Direction.Length()-1) > 1e-9 {
		t.Errorf("Expected normalized direction, got length %f", topLeft.Direction.Length())
	}
}

func TestCameraGetRay_Corners(t *testing.T) {
	// 90 degree vertical field of view: the viewport edge is 1 unit away at distance 1
	camera := NewCamera(CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		AspectRatio: 2.0,
		VFov:        90.0,
	})

	ray := camera.GetRay(1, 1)
	expected := core.NewVec3(2, 1, -1).Normalize()
	if !vecNear(ray.Direction, expected, 1e-9) {
		t.Errorf("Expected upper right ray %v, got %v", expected, ray.Direction)
	}
}

func TestFrameBounds(t *testing.T) {
	tests := []struct {
		name        string
		box         core.AABB
		aspectRatio float64
	}{
		{"unit cube", core.NewAABB(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1)), 16.0 / 9.0},
		{"flat offset", core.NewAABB(core.NewVec3(10, 0, 3), core.NewVec3(30, 0.5, 8)), 1.0},
		{"portrait", core.NewAABB(core.NewVec3(0, 0, 0), core.NewVec3(1, 4, 1)), 0.5},
		{"point", core.NewAABB(core.NewVec3(2, 2, 2), core.NewVec3(2, 2, 2)), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const vfov = 40.0
			config := FrameBounds(tt.box, tt.aspectRatio, vfov)

			if config.LookAt != tt.box.Center() {
				t.Errorf("Expected camera to look at %v, got %v", tt.box.Center(), config.LookAt)
			}

			// Every corner of the box lies inside the narrower half field of view
			halfFov := vfov * math.Pi / 360.0
			if tt.aspectRatio < 1 {
				halfFov = math.Atan(math.Tan(halfFov) * tt.aspectRatio)
			}
			forward := config.LookAt.Subtract(config.Center).Normalize()
			for i := 0; i < 8; i++ {
				corner := core.NewVec3(
					pick(i&1 != 0, tt.box.Max.X, tt.box.Min.X),
					pick(i&2 != 0, tt.box.Max.Y, tt.box.Min.Y),
					pick(i&4 != 0, tt.box.Max.Z, tt.box.Min.Z),
				)
				angle := math.Acos(math.Min(1, corner.Subtract(config.Center).Normalize().Dot(forward)))
				if angle > halfFov+1e-9 {
					t.Errorf("Corner %v outside view: angle %f > %f", corner, angle, halfFov)
				}
			}
		})
	}
}

func TestFrameBounds_Empty(t *testing.T) {
	config := FrameBounds(core.EmptyAABB(), 2.0, 30.0)
	expected := DefaultCameraConfig()
	expected.AspectRatio = 2.0
	expected.VFov = 30.0
	if config != expected {
		t.Errorf("Expected default camera %+v, got %+v", expected, config)
	}
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
