package renderer

import (
	"image"
	"time"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels int           // Pixels rendered, counted at the supersampled resolution
	PrimaryRays int           // Closest-hit camera rays
	Hits        int           // Camera rays that hit a primitive
	ShadowRays  int           // Any-hit occlusion rays
	Elapsed     time.Duration // Wall time of the whole render
}

// Merge adds the counters of other into s
func (s *RenderStats) Merge(other RenderStats) {
	s.TotalPixels += other.TotalPixels
	s.PrimaryRays += other.PrimaryRays
	s.Hits += other.Hits
	s.ShadowRays += other.ShadowRays
}

// HitRatio returns the fraction of camera rays that hit something
func (s RenderStats) HitRatio() float64 {
	if s.PrimaryRays == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.PrimaryRays)
}

// RaysPerSecond returns the traced ray throughput
func (s RenderStats) RaysPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.PrimaryRays+s.ShadowRays) / s.Elapsed.Seconds()
}

// CalculateAverageLuminance returns the mean Rec. 709 luminance of img in [0, 1]
func CalculateAverageLuminance(img image.Image) float64 {
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0
	}

	total := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns uint32 in [0, 65535]
			total += (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 65535.0
		}
	}
	return total / float64(bounds.Dx()*bounds.Dy())
}
