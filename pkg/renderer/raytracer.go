package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"strings"

	"github.com/df07/go-bvh/pkg/bvh"
	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
)

// Mode selects what a preview pixel shows
type Mode uint8

const (
	ModeDepth     Mode = iota // Distance to the closest hit, near is bright
	ModeNormal                // Geometric normal of the hit triangle mapped to RGB
	ModeOcclusion             // Ambient occlusion from any-hit shadow rays
)

func (m Mode) String() string {
	switch m {
	case ModeDepth:
		return "depth"
	case ModeNormal:
		return "normal"
	case ModeOcclusion:
		return "occlusion"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode converts a mode name to a Mode
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "depth", "":
		return ModeDepth, nil
	case "normal", "normals":
		return ModeNormal, nil
	case "occlusion", "ao":
		return ModeOcclusion, nil
	default:
		return 0, fmt.Errorf("unknown render mode %q", name)
	}
}

// RenderConfig contains rendering configuration
type RenderConfig struct {
	Width       int     // Output image width
	Height      int     // Output image height
	Supersample int     // Rays per pixel along each axis; 1 disables supersampling
	Mode        Mode    // What to shade
	AOSamples   int     // Shadow rays per hit in occlusion mode
	AORadius    float64 // Occlusion ray length, relative to the scene radius
	TileSize    int     // Size of each tile
	NumWorkers  int     // Number of parallel workers (0 = use CPU count)
	Background  color.RGBA
}

// DefaultRenderConfig returns sensible default values
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Width:       640,
		Height:      360,
		Supersample: 1,
		Mode:        ModeDepth,
		AOSamples:   16,
		AORadius:    0.2,
		TileSize:    32,
		NumWorkers:  0,
		Background:  color.RGBA{R: 20, G: 22, B: 28, A: 255},
	}
}

// Raytracer shades pixels by querying a tree. Any number of raytracers
// may share one tree; each query uses its own ray.
type Raytracer struct {
	tree      bvh.Intersector
	store     *geometry.Store
	camera    *Camera
	config    RenderConfig
	near, far float64 // Depth range mapped to [1, 0] in depth mode
	aoLength  float64
}

// NewRaytracer creates a raytracer for a tree built over store
func NewRaytracer(tree bvh.Intersector, store *geometry.Store, camera *Camera, config RenderConfig) *Raytracer {
	bounds := store.BoundingBox()
	rt := &Raytracer{
		tree:   tree,
		store:  store,
		camera: camera,
		config: config,
		near:   0,
		far:    1,
	}
	if !bounds.IsEmpty() {
		radius := bounds.Size().Length() * 0.5
		distance := bounds.Center().Subtract(camera.Origin()).Length()
		rt.near = math.Max(0, distance-radius)
		rt.far = distance + radius
		rt.aoLength = math.Max(radius*config.AORadius, 1e-6)
	}
	return rt
}

// RenderBounds renders pixels within bounds of a width x height target. Each
// tile has non-overlapping bounds, so concurrent calls on disjoint bounds of
// the same image are safe.
func (rt *Raytracer) RenderBounds(img *image.RGBA, bounds image.Rectangle, random *rand.Rand) RenderStats {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	stats := RenderStats{TotalPixels: bounds.Dx() * bounds.Dy()}

	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			ray := rt.camera.GetPixelRay(i, j, width, height)
			img.SetRGBA(i, j, rt.shade(&ray, random, &stats))
		}
	}
	return stats
}

// shade traces one camera ray and returns its preview color
func (rt *Raytracer) shade(ray *core.Ray, random *rand.Rand, stats *RenderStats) color.RGBA {
	stats.PrimaryRays++
	if !rt.tree.IntersectClosest(ray) {
		return rt.config.Background
	}
	stats.Hits++

	switch rt.config.Mode {
	case ModeNormal:
		n := rt.store.Triangle(int(ray.Hit.Prim)).Normal()
		if n.Dot(ray.Direction) > 0 {
			n = n.Negate()
		}
		return toRGBA(n.Add(core.NewVec3(1, 1, 1)).Multiply(0.5))
	case ModeOcclusion:
		visible := rt.occlusion(ray, random, stats)
		return toRGBA(core.NewVec3(visible, visible, visible))
	default:
		depth := 1.0
		if rt.far > rt.near {
			depth = 1 - (ray.Hit.T-rt.near)/(rt.far-rt.near)
		}
		depth = 0.1 + 0.9*math.Max(0, math.Min(1, depth))
		return toRGBA(core.NewVec3(depth, depth, depth))
	}
}

// occlusion returns the fraction of cosine-weighted hemisphere rays around
// the hit point that escape within the occlusion radius
func (rt *Raytracer) occlusion(ray *core.Ray, random *rand.Rand, stats *RenderStats) float64 {
	samples := max(1, rt.config.AOSamples)
	n := rt.store.Triangle(int(ray.Hit.Prim)).Normal()
	if n.Dot(ray.Direction) > 0 {
		n = n.Negate()
	}
	point := ray.At(ray.Hit.T).Add(n.Multiply(rt.aoLength * 1e-4))

	open := 0
	for s := 0; s < samples; s++ {
		direction := core.SampleCosineHemisphere(n, random.Float64(), random.Float64())
		shadow := core.NewRayWithMax(point, direction, rt.aoLength)
		stats.ShadowRays++
		if !rt.tree.IntersectAny(&shadow) {
			open++
		}
	}
	return float64(open) / float64(samples)
}

func toRGBA(c core.Vec3) color.RGBA {
	channel := func(v float64) uint8 {
		return uint8(math.Max(0, math.Min(1, v))*255 + 0.5)
	}
	return color.RGBA{R: channel(c.X), G: channel(c.Y), B: channel(c.Z), A: 255}
}
