package bvh

import (
	"errors"

	"github.com/df07/go-bvh/pkg/geometry"
)

var (
	// ErrInvalidInput is returned by Build for malformed primitive data: a
	// claimed count that does not match the store, out-of-range indices or
	// non-finite vertices. It is the same sentinel the geometry package uses.
	ErrInvalidInput = geometry.ErrInvalidInput

	// ErrUnbuilt is returned by operations that need a completed build.
	ErrUnbuilt = errors.New("tree has not been built")

	// ErrTopologyMismatch is returned by Refit when the primitive count
	// changed since the last build. Rebuild instead.
	ErrTopologyMismatch = errors.New("primitive count changed since last build")
)
