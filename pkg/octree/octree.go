package octree

import (
	"errors"
	"fmt"

	"github.com/Faultbox/lodtiler/pkg/math"
)

// Octree build errors.
var (
	ErrInvalidBounds  = errors.New("octree: root bounds are empty or not finite")
	ErrInvalidOptions = errors.New("octree: invalid options")
)

// Distribution selects how a splitting cell hands its faces to its children.
type Distribution int

const (
	// DistributeCentroid places each face in the single child containing its
	// centroid. Every face ends up in exactly one leaf.
	DistributeCentroid Distribution = iota
	// DistributeBoundingBox places each face in every child its bounding box
	// overlaps, so faces straddling a split plane are duplicated.
	DistributeBoundingBox
)

// String returns the name used in configuration files.
func (d Distribution) String() string {
	switch d {
	case DistributeCentroid:
		return "centroid"
	case DistributeBoundingBox:
		return "bbox"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// ParseDistribution is the inverse of Distribution.String.
func ParseDistribution(s string) (Distribution, error) {
	switch s {
	case "centroid", "":
		return DistributeCentroid, nil
	case "bbox":
		return DistributeBoundingBox, nil
	default:
		return 0, fmt.Errorf("%w: unknown distribution %q", ErrInvalidOptions, s)
	}
}

// Options controls subdivision.
type Options struct {
	MaxDepth     uint32       // cells at this depth are never split
	MinCellSize  float64      // cells with any axis extent below this are never split
	Distribution Distribution // face hand-off policy
	// UniqueFirstMatch limits DistributeBoundingBox to the first overlapping
	// child in index order.
	UniqueFirstMatch bool
}

// DefaultOptions returns centroid distribution up to depth 8.
func DefaultOptions() Options {
	return Options{
		MaxDepth:     8,
		MinCellSize:  0,
		Distribution: DistributeCentroid,
	}
}

// Cell is one cubic region. A leaf holds faces directly; an internal cell
// holds exactly eight children and no faces.
type Cell struct {
	Box   math.AABB
	Coord Coordinate

	parent   *Cell
	children []*Cell
	faces    []*FaceReference
}

// Parent returns the enclosing cell, or nil for the root.
func (c *Cell) Parent() *Cell { return c.parent }

// Children returns the eight children indexed by octant, or nil for a leaf.
func (c *Cell) Children() []*Cell { return c.children }

// Faces returns the faces held directly by this cell.
func (c *Cell) Faces() []*FaceReference { return c.faces }

// IsLeaf reports whether the cell has not been subdivided.
func (c *Cell) IsLeaf() bool { return c.children == nil }

// FaceCount returns the number of faces held by the cell, including all
// descendants when includeChildren is set.
func (c *Cell) FaceCount(includeChildren bool) int {
	n := len(c.faces)
	if includeChildren {
		for _, child := range c.children {
			n += child.FaceCount(true)
		}
	}
	return n
}

// Walk visits c and its descendants depth-first in octant order. Returning
// false from fn skips the visited cell's subtree.
func (c *Cell) Walk(fn func(*Cell) bool) {
	if !fn(c) {
		return
	}
	for _, child := range c.children {
		child.Walk(fn)
	}
}

// Tree is a built octree.
type Tree struct {
	Root    *Cell
	Options Options
}

// Stats summarizes a built tree.
type Stats struct {
	Leaves        int    `json:"leaves"`
	NonEmptyLeafs int    `json:"non_empty_leaves"`
	Internal      int    `json:"internal"`
	Faces         int    `json:"faces"` // face slots across leaves; exceeds the input in bbox mode
	MaxDepth      uint32 `json:"max_depth"`
}

// Build subdivides rootBox over faces. The root holds every face before
// subdivision starts.
func Build(rootBox math.AABB, faces []*FaceReference, opts Options) (*Tree, error) {
	if rootBox.IsEmpty() || !rootBox.Min.IsFinite() || !rootBox.Max.IsFinite() {
		return nil, ErrInvalidBounds
	}
	if opts.MinCellSize < 0 {
		return nil, fmt.Errorf("%w: negative min cell size %f", ErrInvalidOptions, opts.MinCellSize)
	}

	root := &Cell{
		Box:   rootBox,
		faces: append([]*FaceReference(nil), faces...),
	}
	t := &Tree{Root: root, Options: opts}
	t.subdivide(root)
	return t, nil
}

func (t *Tree) subdivide(c *Cell) {
	if len(c.faces) == 0 || c.Coord.Depth >= t.Options.MaxDepth {
		return
	}
	if c.Box.MinExtent() < t.Options.MinCellSize {
		return
	}

	c.children = make([]*Cell, 8)
	for i := range c.children {
		c.children[i] = &Cell{
			Box:    c.Box.Octant(i),
			Coord:  c.Coord.Child(i),
			parent: c,
		}
	}

	mid := c.Box.Center()
	for _, f := range c.faces {
		switch t.Options.Distribution {
		case DistributeBoundingBox:
			t.distributeBox(c, f, mid)
		default:
			child := c.children[centroidOctant(f.Centroid(), mid)]
			child.faces = append(child.faces, f)
		}
	}
	c.faces = nil

	for _, child := range c.children {
		t.subdivide(child)
	}
}

func (t *Tree) distributeBox(c *Cell, f *FaceReference, mid math.Vec3) {
	box := f.BoundingBox()
	matched := false
	for _, child := range c.children {
		if !child.Box.Intersects(box) {
			continue
		}
		child.faces = append(child.faces, f)
		matched = true
		if t.Options.UniqueFirstMatch {
			return
		}
	}
	if !matched {
		// Face lies outside the cell; keep it rather than drop it.
		child := c.children[centroidOctant(f.Centroid(), mid)]
		child.faces = append(child.faces, f)
	}
}

// centroidOctant picks the child whose half-space holds p on every axis.
// Points on a split plane go to the upper half.
func centroidOctant(p, mid math.Vec3) int {
	return math.OctantIndex(upper(p.X, mid.X), upper(p.Y, mid.Y), upper(p.Z, mid.Z))
}

func upper(v, mid float64) int {
	if v >= mid {
		return 1
	}
	return 0
}

// CellByCoordinate resolves coord by walking down from root, choosing each
// child from the parity of the next coordinate on the path. It returns nil
// when the path leaves the built tree.
func CellByCoordinate(root *Cell, coord Coordinate) *Cell {
	if root == nil {
		return nil
	}
	path := coord.FullPath()
	if path[0] != root.Coord {
		return nil
	}
	cell := root
	for _, step := range path[1:] {
		if cell.children == nil {
			return nil
		}
		cell = cell.children[step.Octant()]
		if cell.Coord != step {
			return nil
		}
	}
	return cell
}

// Lookup resolves coord within t.
func (t *Tree) Lookup(coord Coordinate) *Cell {
	return CellByCoordinate(t.Root, coord)
}

// HasNeighbor reports, per direction (NeighborLeft..NeighborBottom), whether
// the same-depth neighbor of c exists and holds geometry. With
// includeChildren the neighbor's whole subtree counts.
func (t *Tree) HasNeighbor(c *Cell, includeChildren bool) [6]bool {
	var result [6]bool
	for i, coord := range c.Coord.Neighbors() {
		n := t.Lookup(coord)
		result[i] = n != nil && n.FaceCount(includeChildren) > 0
	}
	return result
}

// ExtractCellsWithContent returns the leaves holding at least one face, in
// depth-first octant order.
func (t *Tree) ExtractCellsWithContent() []*Cell {
	var cells []*Cell
	t.Root.Walk(func(c *Cell) bool {
		if c.IsLeaf() && len(c.faces) > 0 {
			cells = append(cells, c)
		}
		return true
	})
	return cells
}

// Stats walks the tree and counts its cells.
func (t *Tree) Stats() Stats {
	var s Stats
	t.Root.Walk(func(c *Cell) bool {
		if c.Coord.Depth > s.MaxDepth {
			s.MaxDepth = c.Coord.Depth
		}
		if !c.IsLeaf() {
			s.Internal++
			return true
		}
		s.Leaves++
		if len(c.faces) > 0 {
			s.NonEmptyLeafs++
			s.Faces += len(c.faces)
		}
		return true
	})
	return s
}
