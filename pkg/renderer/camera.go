package renderer

import (
	"math"

	"github.com/df07/go-bvh/pkg/core"
)

// CameraConfig describes a look-at pinhole camera
type CameraConfig struct {
	Center      core.Vec3 // Camera position
	LookAt      core.Vec3 // Point the camera looks at
	Up          core.Vec3 // Up direction
	AspectRatio float64   // Width / height
	VFov        float64   // Vertical field of view in degrees
}

// DefaultCameraConfig looks down -Z from (0,0,5)
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Center:      core.NewVec3(0, 0, 5),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		AspectRatio: 16.0 / 9.0,
		VFov:        40.0,
	}
}

// FrameBounds returns a camera that sees the whole box from the +Z side,
// slightly above it
func FrameBounds(box core.AABB, aspectRatio, vfov float64) CameraConfig {
	if box.IsEmpty() {
		config := DefaultCameraConfig()
		config.AspectRatio = aspectRatio
		config.VFov = vfov
		return config
	}

	center := box.Center()
	radius := box.Size().Length() * 0.5
	if radius == 0 {
		radius = 1
	}

	// Distance at which the bounding sphere fits the narrower field of view
	halfFov := vfov * math.Pi / 360.0
	if aspectRatio < 1 {
		halfFov = math.Atan(math.Tan(halfFov) * aspectRatio)
	}
	distance := radius / math.Sin(halfFov)

	direction := core.NewVec3(0.3, 0.35, 1).Normalize()
	return CameraConfig{
		Center:      center.Add(direction.Multiply(distance)),
		LookAt:      center,
		Up:          core.NewVec3(0, 1, 0),
		AspectRatio: aspectRatio,
		VFov:        vfov,
	}
}

// Camera generates rays for rendering
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	forward         core.Vec3
}

// NewCamera creates a camera from its configuration
func NewCamera(config CameraConfig) *Camera {
	theta := config.VFov * math.Pi / 180.0
	viewportHeight := 2.0 * math.Tan(theta/2)
	viewportWidth := config.AspectRatio * viewportHeight

	w := config.Center.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	origin := config.Center
	horizontal := u.Multiply(viewportWidth)
	vertical := v.Multiply(viewportHeight)
	lowerLeftCorner := origin.Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w)

	return &Camera{
		origin:          origin,
		horizontal:      horizontal,
		vertical:        vertical,
		lowerLeftCorner: lowerLeftCorner,
		forward:         w.Negate(),
	}
}

// Origin returns the camera position
func (c *Camera) Origin() core.Vec3 {
	return c.origin
}

// Forward returns the unit viewing direction
func (c *Camera) Forward() core.Vec3 {
	return c.forward
}

// GetRay generates a ray for screen coordinates (s, t) where 0 <= s,t <= 1
// and (0, 0) is the lower left corner
func (c *Camera) GetRay(s, t float64) core.Ray {
	direction := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t)).
		Subtract(c.origin)

	return core.NewRay(c.origin, direction.Normalize())
}

// GetPixelRay generates the ray through the center of pixel (i, j) of a
// width x height image. Row 0 is the top of the image.
func (c *Camera) GetPixelRay(i, j, width, height int) core.Ray {
	s := (float64(i) + 0.5) / float64(width)
	t := 1 - (float64(j)+0.5)/float64(height)
	return c.GetRay(s, t)
}
