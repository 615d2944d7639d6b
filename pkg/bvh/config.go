package bvh

import (
	"fmt"
)

const maxBins = 64

// BuildConfig controls the SAH builder
type BuildConfig struct {
	Bins              int     // SAH bins per axis
	LeafCostFactor    float64 // Multiplier on count * SA(node) when scoring a leaf
	MinLeafSize       int     // Nodes with this many primitives or fewer become leaves
	MaxLeafSize       int     // Nodes with more primitives than this are always split
	Workers           int     // Goroutines building subtrees (0 = runtime.NumCPU())
	ParallelThreshold int     // Subtrees at or below this size are handed to workers (0 = serial)
}

// DefaultBuildConfig returns sensible default values
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Bins:              8,
		LeafCostFactor:    1.0,
		MinLeafSize:       1,
		MaxLeafSize:       16,
		Workers:           0,
		ParallelThreshold: 8192,
	}
}

// Validate checks the configuration for values the builder cannot work with
func (c BuildConfig) Validate() error {
	if c.Bins < 2 || c.Bins > maxBins {
		return fmt.Errorf("%w: bins must be in [2, %d], got %d", ErrInvalidInput, maxBins, c.Bins)
	}
	if !(c.LeafCostFactor > 0) {
		return fmt.Errorf("%w: leaf cost factor must be positive, got %g", ErrInvalidInput, c.LeafCostFactor)
	}
	if c.MinLeafSize < 1 {
		return fmt.Errorf("%w: min leaf size must be at least 1, got %d", ErrInvalidInput, c.MinLeafSize)
	}
	if c.MaxLeafSize < c.MinLeafSize {
		return fmt.Errorf("%w: max leaf size %d is below min leaf size %d", ErrInvalidInput, c.MaxLeafSize, c.MinLeafSize)
	}
	if c.Workers < 0 || c.ParallelThreshold < 0 {
		return fmt.Errorf("%w: workers and parallel threshold must not be negative", ErrInvalidInput)
	}
	return nil
}
