// Package octree buckets triangle geometry into an adaptive cubic cell
// hierarchy for tiling and tile-boundary neighbor analysis.
package octree

import (
	"fmt"

	"github.com/Faultbox/lodtiler/pkg/math"
)

// Coordinate addresses a cell by depth and integer position within that
// depth. At depth L the children of (x,y,z) are (2x..2x+1, 2y..2y+1, 2z..2z+1)
// at depth L+1.
type Coordinate struct {
	Depth   uint32
	X, Y, Z int64
}

// Neighbor directions, in the order returned by Neighbors and HasNeighbor.
const (
	NeighborLeft = iota
	NeighborRight
	NeighborFront
	NeighborRear
	NeighborTop
	NeighborBottom
)

// String returns the coordinate as "depth/x/y/z".
func (c Coordinate) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", c.Depth, c.X, c.Y, c.Z)
}

// Left returns the -x neighbor.
func (c Coordinate) Left() Coordinate { return Coordinate{c.Depth, c.X - 1, c.Y, c.Z} }

// Right returns the +x neighbor.
func (c Coordinate) Right() Coordinate { return Coordinate{c.Depth, c.X + 1, c.Y, c.Z} }

// Front returns the -y neighbor.
func (c Coordinate) Front() Coordinate { return Coordinate{c.Depth, c.X, c.Y - 1, c.Z} }

// Rear returns the +y neighbor.
func (c Coordinate) Rear() Coordinate { return Coordinate{c.Depth, c.X, c.Y + 1, c.Z} }

// Top returns the +z neighbor.
func (c Coordinate) Top() Coordinate { return Coordinate{c.Depth, c.X, c.Y, c.Z + 1} }

// Bottom returns the -z neighbor.
func (c Coordinate) Bottom() Coordinate { return Coordinate{c.Depth, c.X, c.Y, c.Z - 1} }

// Neighbors returns the six face-adjacent coordinates at the same depth.
func (c Coordinate) Neighbors() [6]Coordinate {
	return [6]Coordinate{c.Left(), c.Right(), c.Front(), c.Rear(), c.Top(), c.Bottom()}
}

// Parent returns the enclosing coordinate one level up. The second result is
// false at depth 0. Division floors, so (-1)/2 is -1, not 0.
func (c Coordinate) Parent() (Coordinate, bool) {
	if c.Depth == 0 {
		return Coordinate{}, false
	}
	return Coordinate{c.Depth - 1, c.X >> 1, c.Y >> 1, c.Z >> 1}, true
}

// FullPath returns every coordinate from depth 0 down to c, inclusive.
func (c Coordinate) FullPath() []Coordinate {
	path := make([]Coordinate, 0, c.Depth+1)
	for cur, ok := c, true; ok; cur, ok = cur.Parent() {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Octant returns the child index c occupies within its parent.
func (c Coordinate) Octant() int {
	return math.OctantIndex(int(c.X&1), int(c.Y&1), int(c.Z&1))
}

// Child returns the coordinate of the i-th child.
func (c Coordinate) Child(i int) Coordinate {
	dx, dy, dz := math.OctantOffset(i)
	return Coordinate{
		Depth: c.Depth + 1,
		X:     2*c.X + int64(dx),
		Y:     2*c.Y + int64(dy),
		Z:     2*c.Z + int64(dz),
	}
}
