package bvh

import (
	"fmt"
	"strings"

	"github.com/df07/go-bvh/pkg/core"
	"github.com/df07/go-bvh/pkg/geometry"
)

// Layout selects the node layout a Tree traverses
type Layout uint8

const (
	LayoutBinary Layout = iota // Binary nodes, child pairs adjacent
	LayoutSoA                  // Structure-of-arrays child batches
	LayoutWide4                // Up to four children per node
)

// Layouts lists every layout in declaration order
var Layouts = []Layout{LayoutBinary, LayoutSoA, LayoutWide4}

func (l Layout) String() string {
	switch l {
	case LayoutBinary:
		return "binary"
	case LayoutSoA:
		return "soa"
	case LayoutWide4:
		return "wide4"
	default:
		return fmt.Sprintf("layout(%d)", uint8(l))
	}
}

// ParseLayout converts a layout name (as printed by String) to a Layout
func ParseLayout(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "binary", "bvh", "":
		return LayoutBinary, nil
	case "soa", "bvh_soa":
		return LayoutSoA, nil
	case "wide4", "wide", "bvh4", "bvh4_cpu":
		return LayoutWide4, nil
	default:
		return 0, fmt.Errorf("%w: unknown layout %q", ErrInvalidInput, name)
	}
}

// Tree is the handle callers hold: one of the three layouts, selected when the
// tree is created. It always keeps the binary build the other layouts are
// derived from, so it can be refit and re-derived. Queries switch on the
// layout tag instead of going through an interface.
type Tree struct {
	layout Layout
	binary *BVH
	soa    *SoA
	wide   *Wide4
}

// NewTree creates an empty, unbuilt tree with the default build configuration
func NewTree(layout Layout) *Tree {
	return &Tree{layout: layout, binary: NewBVH()}
}

// NewTreeWithConfig creates an empty, unbuilt tree
func NewTreeWithConfig(layout Layout, config BuildConfig) (*Tree, error) {
	binary, err := NewBVHWithConfig(config)
	if err != nil {
		return nil, err
	}
	return &Tree{layout: layout, binary: binary}, nil
}

// Layout returns the layout selected at creation
func (t *Tree) Layout() Layout {
	return t.layout
}

// Built reports whether a build has completed
func (t *Tree) Built() bool {
	return t.binary.Built()
}

// Binary returns the binary tree the layout is derived from
func (t *Tree) Binary() *BVH {
	return t.binary
}

// Build constructs the binary tree and derives the tree's layout from it. On
// failure the tree keeps its previous state.
func (t *Tree) Build(store *geometry.Store, count int) error {
	next := &BVH{config: t.binary.config}
	if err := next.Build(store, count); err != nil {
		return err
	}
	return t.adopt(next)
}

// Refit refits the binary tree and re-derives the tree's layout from it
func (t *Tree) Refit() error {
	if err := t.binary.Refit(); err != nil {
		return err
	}
	return t.adopt(t.binary)
}

func (t *Tree) adopt(binary *BVH) error {
	var soa *SoA
	var wide *Wide4
	var err error

	switch t.layout {
	case LayoutSoA:
		soa, err = ToSoA(binary)
	case LayoutWide4:
		wide, err = ToWide4(binary)
	}
	if err != nil {
		return err
	}

	t.binary, t.soa, t.wide = binary, soa, wide
	return nil
}

// ToSoA returns a new, independent SoA tree converted from this one
func (t *Tree) ToSoA() (*Tree, error) {
	return t.convert(LayoutSoA)
}

// ToWide4 returns a new, independent 4-wide tree converted from this one
func (t *Tree) ToWide4() (*Tree, error) {
	return t.convert(LayoutWide4)
}

func (t *Tree) convert(layout Layout) (*Tree, error) {
	if !t.Built() {
		return nil, ErrUnbuilt
	}
	out := &Tree{layout: layout}
	if err := out.adopt(t.binary.Clone()); err != nil {
		return nil, err
	}
	return out, nil
}

// Release drops the tree's node storage. The tree becomes unbuilt and may be
// built again.
func (t *Tree) Release() {
	t.binary = &BVH{config: t.binary.config}
	t.soa = nil
	t.wide = nil
}

// IntersectClosest records the nearest hit in ray.Hit and reports whether this call found one
func (t *Tree) IntersectClosest(ray *core.Ray) bool {
	switch t.layout {
	case LayoutSoA:
		return t.soa.IntersectClosest(ray)
	case LayoutWide4:
		return t.wide.IntersectClosest(ray)
	default:
		return t.binary.IntersectClosest(ray)
	}
}

// IntersectAny reports whether any primitive blocks the ray inside its interval
func (t *Tree) IntersectAny(ray *core.Ray) bool {
	switch t.layout {
	case LayoutSoA:
		return t.soa.IntersectAny(ray)
	case LayoutWide4:
		return t.wide.IntersectAny(ray)
	default:
		return t.binary.IntersectAny(ray)
	}
}

// IntersectClosestCost is IntersectClosest that also returns the number of
// nodes (SoA batches, wide nodes) the query visited
func (t *Tree) IntersectClosestCost(ray *core.Ray) (bool, int) {
	switch t.layout {
	case LayoutSoA:
		return t.soa.IntersectClosestCost(ray)
	case LayoutWide4:
		return t.wide.IntersectClosestCost(ray)
	default:
		return t.binary.IntersectClosestCost(ray)
	}
}

// IntersectAnyCost is IntersectAny that also returns the number of nodes
// the query visited
func (t *Tree) IntersectAnyCost(ray *core.Ray) (bool, int) {
	switch t.layout {
	case LayoutSoA:
		return t.soa.IntersectAnyCost(ray)
	case LayoutWide4:
		return t.wide.IntersectAnyCost(ray)
	default:
		return t.binary.IntersectAnyCost(ray)
	}
}

// Stats returns structural statistics for the tree's layout
func (t *Tree) Stats() (Stats, error) {
	if !t.Built() {
		return Stats{}, ErrUnbuilt
	}
	switch t.layout {
	case LayoutSoA:
		return t.soa.Stats(), nil
	case LayoutWide4:
		return t.wide.Stats(), nil
	default:
		return t.binary.Stats(), nil
	}
}
