// Package scene assembles primitive stores for the CLI and tests: procedural
// meshes, meshes loaded from disk and heightmaps, each with a camera that
// frames it.
package scene

import (
	"fmt"

	"github.com/df07/go-bvh/pkg/bvh"
	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
	"github.com/df07/go-bvh/pkg/log"
	"github.com/df07/go-bvh/pkg/renderer"
)

var logger = log.New("scene")

// Scene is a primitive store plus the camera it is viewed through
type Scene struct {
	Name         string
	Store        *geometry.Store
	CameraConfig renderer.CameraConfig
}

// newFramedScene wraps store with a camera that sees all of it
func newFramedScene(name string, store *geometry.Store) *Scene {
	return &Scene{
		Name:         name,
		Store:        store,
		CameraConfig: renderer.FrameBounds(store.BoundingBox(), 16.0/9.0, 40.0),
	}
}

// Bounds returns the bounding box of every primitive in the scene
func (s *Scene) Bounds() core.AABB {
	return s.Store.BoundingBox()
}

// BuildTree builds a tree over the whole store
func (s *Scene) BuildTree(layout bvh.Layout, config bvh.BuildConfig) (*bvh.Tree, error) {
	tree, err := bvh.NewTreeWithConfig(layout, config)
	if err != nil {
		return nil, err
	}
	if err := tree.Build(s.Store, s.Store.Len()); err != nil {
		return nil, fmt.Errorf("failed to build %s tree for %s: %w", layout, s.Name, err)
	}
	return tree, nil
}
