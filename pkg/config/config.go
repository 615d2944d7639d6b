// Package config loads build and render settings from a JSON file and
// applies command line overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/df07/go-bvh/pkg/bvh"
	"github.com/df07/go-bvh/pkg/renderer"
)

// Config holds every tunable of the CLI
type Config struct {
	Build     BuildSettings  `json:"build"`
	Render    RenderSettings `json:"render"`
	Workers   int            `json:"workers"`   // Goroutines for building and rendering (0 = CPU count)
	ScenesDir string         `json:"scenesDir"` // Directory scanned for mesh and heightmap scenes
}

// BuildSettings mirrors bvh.BuildConfig plus the layout to traverse
type BuildSettings struct {
	Layout            string  `json:"layout"`
	Bins              int     `json:"bins"`
	LeafCostFactor    float64 `json:"leafCostFactor"`
	MinLeafSize       int     `json:"minLeafSize"`
	MaxLeafSize       int     `json:"maxLeafSize"`
	ParallelThreshold int     `json:"parallelThreshold"`
}

// RenderSettings mirrors renderer.RenderConfig
type RenderSettings struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Supersample int     `json:"supersample"`
	Mode        string  `json:"mode"`
	AOSamples   int     `json:"aoSamples"`
	AORadius    float64 `json:"aoRadius"`
	TileSize    int     `json:"tileSize"`
	Output      string  `json:"output"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	build := bvh.DefaultBuildConfig()
	render := renderer.DefaultRenderConfig()

	return Config{
		Build: BuildSettings{
			Layout:            bvh.LayoutBinary.String(),
			Bins:              build.Bins,
			LeafCostFactor:    build.LeafCostFactor,
			MinLeafSize:       build.MinLeafSize,
			MaxLeafSize:       build.MaxLeafSize,
			ParallelThreshold: build.ParallelThreshold,
		},
		Render: RenderSettings{
			Width:       render.Width,
			Height:      render.Height,
			Supersample: render.Supersample,
			Mode:        render.Mode.String(),
			AOSamples:   render.AOSamples,
			AORadius:    render.AORadius,
			TileSize:    render.TileSize,
			Output:      "render.png",
		},
		Workers:   0,
		ScenesDir: "scenes",
	}
}

// Load reads a JSON config file. Fields missing from the file keep their
// default values; unknown fields are an error.
func Load(path string) (Config, error) {
	config := Default()

	file, err := os.Open(path)
	if err != nil {
		return config, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config); err != nil {
		return config, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// Validate checks that the settings convert to valid build and render configs
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", bvh.ErrInvalidInput, c.Workers)
	}
	if _, err := c.Layout(); err != nil {
		return err
	}
	if _, err := c.BuildConfig(); err != nil {
		return err
	}
	if _, err := c.RenderConfig(); err != nil {
		return err
	}
	return nil
}

// Layout parses the configured layout name
func (c Config) Layout() (bvh.Layout, error) {
	return bvh.ParseLayout(c.Build.Layout)
}

// BuildConfig converts the build settings to a validated bvh.BuildConfig
func (c Config) BuildConfig() (bvh.BuildConfig, error) {
	config := bvh.BuildConfig{
		Bins:              c.Build.Bins,
		LeafCostFactor:    c.Build.LeafCostFactor,
		MinLeafSize:       c.Build.MinLeafSize,
		MaxLeafSize:       c.Build.MaxLeafSize,
		Workers:           c.Workers,
		ParallelThreshold: c.Build.ParallelThreshold,
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// RenderConfig converts the render settings to a renderer.RenderConfig
func (c Config) RenderConfig() (renderer.RenderConfig, error) {
	config := renderer.DefaultRenderConfig()

	mode, err := renderer.ParseMode(c.Render.Mode)
	if err != nil {
		return config, fmt.Errorf("%w: %v", bvh.ErrInvalidInput, err)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return config, fmt.Errorf("%w: image size must be positive, got %dx%d", bvh.ErrInvalidInput, c.Render.Width, c.Render.Height)
	}
	if c.Render.Supersample < 1 || c.Render.TileSize < 1 || c.Render.AOSamples < 1 {
		return config, fmt.Errorf("%w: supersample, tile size and occlusion samples must be at least 1", bvh.ErrInvalidInput)
	}
	if !(c.Render.AORadius > 0) {
		return config, fmt.Errorf("%w: occlusion radius must be positive, got %g", bvh.ErrInvalidInput, c.Render.AORadius)
	}

	config.Width = c.Render.Width
	config.Height = c.Render.Height
	config.Supersample = c.Render.Supersample
	config.Mode = mode
	config.AOSamples = c.Render.AOSamples
	config.AORadius = c.Render.AORadius
	config.TileSize = c.Render.TileSize
	config.NumWorkers = c.Workers
	return config, nil
}
