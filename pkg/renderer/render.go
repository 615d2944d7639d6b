// Package renderer turns BVH queries into preview images. Tiles of the image
// are shaded in parallel by a worker pool that shares one tree.
package renderer

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"time"

	"golang.org/x/image/draw"

	"github.com/df07/go-bvh/pkg/bvh"
	"github.com/df07/go-bvh/pkg/geometry"
	"github.com/df07/go-bvh/pkg/log"
)

var logger = log.New("renderer")

// Tile represents a rectangular region of the image
type Tile struct {
	ID     int             // Unique tile identifier
	Bounds image.Rectangle // Pixel bounds (x0,y0,x1,y1)
	Random *rand.Rand      // Tile-specific random generator for deterministic results
}

// NewTile creates a new tile with the specified bounds
func NewTile(id int, bounds image.Rectangle) *Tile {
	return &Tile{
		ID:     id,
		Bounds: bounds,
		Random: rand.New(rand.NewSource(int64(id + 42))), // +42 to avoid seed 0
	}
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	tileID := 0

	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1)))
			tileID++
		}
	}

	return tiles
}

// Render shades the whole image in parallel. With Supersample > 1 the image
// is rendered at a multiple of the output size and scaled down.
func Render(ctx context.Context, tree bvh.Intersector, store *geometry.Store, cameraConfig CameraConfig, config RenderConfig) (*image.RGBA, RenderStats, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, RenderStats{}, fmt.Errorf("invalid image size %dx%d", config.Width, config.Height)
	}
	if config.TileSize <= 0 {
		return nil, RenderStats{}, fmt.Errorf("invalid tile size %d", config.TileSize)
	}
	startTime := time.Now()

	factor := max(1, config.Supersample)
	width, height := config.Width*factor, config.Height*factor
	cameraConfig.AspectRatio = float64(config.Width) / float64(config.Height)

	raytracer := NewRaytracer(tree, store, NewCamera(cameraConfig), config)
	tiles := NewTileGrid(width, height, config.TileSize)
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	workerPool := NewWorkerPool(raytracer, len(tiles), config.NumWorkers)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	logger.Debugf("rendering %dx%d (%s) with %d tiles on %d workers",
		width, height, config.Mode, len(tiles), workerPool.GetNumWorkers())

	for taskID, tile := range tiles {
		workerPool.SubmitTask(TileTask{Tile: tile, TaskID: taskID, Image: img})
	}

	var stats RenderStats
	for i := 0; i < len(tiles); i++ {
		result, ok := workerPool.GetResult()
		if !ok {
			return nil, RenderStats{}, fmt.Errorf("worker pool closed unexpectedly")
		}
		if result.Error != nil {
			// Stop drains the remaining tasks without rendering them
			logger.Debugf("render stopped at tile %d: %v", result.TaskID, result.Error)
			return nil, RenderStats{}, result.Error
		}
		stats.Merge(result.Stats)
	}

	if factor > 1 {
		img = downsample(img, config.Width, config.Height)
	}

	stats.Elapsed = time.Since(startTime)
	logger.Infof("rendered %dx%d in %v (%d rays, %d hits)",
		config.Width, config.Height, stats.Elapsed, stats.PrimaryRays+stats.ShadowRays, stats.Hits)
	return img, stats, nil
}

// downsample scales src to width x height with a Catmull-Rom filter
func downsample(src *image.RGBA, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
