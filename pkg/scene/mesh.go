package scene

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/df07/go-bvh/pkg/geometry"
	"github.com/df07/go-bvh/pkg/loaders"
)

// NewMeshScene loads a PLY or OBJ mesh, picked by file extension
func NewMeshScene(path string) (*Scene, error) {
	var (
		store *geometry.Store
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ply":
		var data *loaders.PLYData
		if data, err = loaders.LoadPLY(path); err == nil {
			store, err = data.Store()
		}
	case ".obj":
		var data *loaders.OBJData
		if data, err = loaders.LoadOBJ(path); err == nil {
			store, err = data.Store()
		}
	default:
		return nil, fmt.Errorf("unsupported mesh format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mesh %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	logger.Debugf("mesh scene %s: %d primitives", name, store.Len())
	return newFramedScene(name, store), nil
}

// NewHeightmapScene triangulates an image as a heightfield over [-1, 1]² in
// the XZ plane. Pixel luminance sets the height, scaled by heightScale. The
// image is scaled down so neither side has more than maxResolution pixels.
func NewHeightmapScene(path string, maxResolution int, heightScale float64) (*Scene, error) {
	img, err := loaders.LoadImage(path, maxResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to load heightmap %s: %w", path, err)
	}
	if img.Width < 2 || img.Height < 2 {
		return nil, fmt.Errorf("heightmap %s is %dx%d, need at least 2x2", path, img.Width, img.Height)
	}

	cols, rows := img.Width-1, img.Height-1
	height := func(x, z float64) float64 {
		i := int((x+1)/2*float64(cols) + 0.5)
		j := int((z+1)/2*float64(rows) + 0.5)
		return img.Luminance(min(i, cols), min(j, rows)) * heightScale
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return newFramedScene(name, heightfield(cols, rows, height)), nil
}
