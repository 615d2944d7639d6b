package geometry

import (
	"errors"
	"fmt"

	"github.com/df07/go-bvh/pkg/core"
)

// ErrInvalidInput reports malformed primitive data: bad counts, out-of-range
// indices or non-finite vertices.
var ErrInvalidInput = errors.New("invalid input")

// Store holds the triangles a tree is built over. The index of a triangle in
// the store is its stable primitive index. The store is owned by the caller;
// trees keep a reference to it and read vertex positions during refit.
type Store struct {
	triangles []Triangle
}

// NewStore creates a store holding a copy of triangles
func NewStore(triangles []Triangle) *Store {
	s := &Store{triangles: make([]Triangle, len(triangles))}
	copy(s.triangles, triangles)
	return s
}

// NewStoreFromIndexed builds a store from a vertex array and triangle indices
// (each group of 3 indices forms a triangle).
func NewStoreFromIndexed(vertices []core.Vec3, faces []int) (*Store, error) {
	if len(faces)%3 != 0 {
		return nil, fmt.Errorf("%w: %d face indices is not a multiple of 3", ErrInvalidInput, len(faces))
	}

	s := &Store{triangles: make([]Triangle, len(faces)/3)}
	for i := range s.triangles {
		i0, i1, i2 := faces[i*3], faces[i*3+1], faces[i*3+2]
		for _, idx := range [3]int{i0, i1, i2} {
			if idx < 0 || idx >= len(vertices) {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d", ErrInvalidInput, i, idx, len(vertices))
			}
		}
		s.triangles[i] = NewTriangle(vertices[i0], vertices[i1], vertices[i2])
	}
	return s, nil
}

// Len returns the number of primitives in the store
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.triangles)
}

// Triangle returns the primitive with index i
func (s *Store) Triangle(i int) Triangle {
	return s.triangles[i]
}

// Triangles exposes the backing slice. Callers must not resize it.
func (s *Store) Triangles() []Triangle {
	if s == nil {
		return nil
	}
	return s.triangles
}

// Set moves primitive i. Trees built over the store must be refit afterwards.
func (s *Store) Set(i int, t Triangle) error {
	if i < 0 || i >= len(s.triangles) {
		return fmt.Errorf("%w: primitive %d of %d", ErrInvalidInput, i, len(s.triangles))
	}
	s.triangles[i] = t
	return nil
}

// Translate moves every primitive by offset
func (s *Store) Translate(offset core.Vec3) {
	for i := range s.triangles {
		t := &s.triangles[i]
		t.V0 = t.V0.Add(offset)
		t.V1 = t.V1.Add(offset)
		t.V2 = t.V2.Add(offset)
	}
}

// Append adds primitives to the store. The primitive count changes, so trees
// built over the store must be rebuilt rather than refit.
func (s *Store) Append(triangles ...Triangle) {
	s.triangles = append(s.triangles, triangles...)
}

// BoundingBox returns the union of all primitive bounds
func (s *Store) BoundingBox() core.AABB {
	box := core.EmptyAABB()
	for _, t := range s.Triangles() {
		box.GrowAABB(t.BoundingBox())
	}
	return box
}
