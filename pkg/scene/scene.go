// Package scene holds the input scene graph and flattens it into the world
// space triangles the octree is built from.
package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/lodtiler/pkg/halfedge"
	"github.com/Faultbox/lodtiler/pkg/math"
)

// Scene errors.
var (
	ErrMeshIndex   = errors.New("scene: node references missing mesh")
	ErrVertexIndex = errors.New("scene: triangle index out of range")
	ErrAttrLength  = errors.New("scene: attribute count does not match positions")
	ErrCycle       = errors.New("scene: node hierarchy contains a cycle")
)

// Mesh is an indexed triangle list. Normals, TexCoords and Colors are
// either empty or one entry per position.
type Mesh struct {
	Name      string
	Positions []math.Vec3
	Normals   []math.Vec3
	TexCoords []math.Vec2
	Colors    [][4]float32
	Indices   []uint32
}

// Position implements octree.Primitive.
func (m *Mesh) Position(i uint32) math.Vec3 { return m.Positions[i] }

// TriangleCount returns the number of index triples.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Vertex returns vertex i with whichever attributes the mesh carries.
func (m *Mesh) Vertex(i uint32) halfedge.VertexData {
	d := halfedge.VertexData{Position: m.Positions[i]}
	if len(m.Normals) > 0 {
		d.Attr.Mask |= halfedge.HasNormal
		d.Attr.Normal = m.Normals[i]
	}
	if len(m.TexCoords) > 0 {
		d.Attr.Mask |= halfedge.HasTexCoord
		d.Attr.TexCoord = m.TexCoords[i]
	}
	if len(m.Colors) > 0 {
		d.Attr.Mask |= halfedge.HasColor
		d.Attr.Color = m.Colors[i]
	}
	return d
}

// Validate checks attribute lengths and index bounds.
func (m *Mesh) Validate() error {
	n := len(m.Positions)
	if (len(m.Normals) != 0 && len(m.Normals) != n) ||
		(len(m.TexCoords) != 0 && len(m.TexCoords) != n) ||
		(len(m.Colors) != 0 && len(m.Colors) != n) {
		return fmt.Errorf("%w: mesh %q", ErrAttrLength, m.Name)
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: mesh %q has %d indices", ErrVertexIndex, m.Name, len(m.Indices))
	}
	for _, idx := range m.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: mesh %q index %d (have %d vertices)", ErrVertexIndex, m.Name, idx, n)
		}
	}
	return nil
}

// Node places meshes in the hierarchy. Transform is relative to the parent.
type Node struct {
	Name      string
	Transform math.Mat4
	Meshes    []int
	Children  []*Node
}

// NewNode returns a node with an identity transform.
func NewNode(name string, meshes ...int) *Node {
	return &Node{Name: name, Transform: math.Identity(), Meshes: meshes}
}

// Scene is a mesh library plus a forest of nodes referencing it.
type Scene struct {
	Meshes []*Mesh
	Roots  []*Node
}

// TriangleCount returns the number of triangles instanced by the node tree.
func (s *Scene) TriangleCount() int {
	total := 0
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if depth > maxNodeDepth {
			return
		}
		for _, mi := range n.Meshes {
			if mi >= 0 && mi < len(s.Meshes) {
				total += s.Meshes[mi].TriangleCount()
			}
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, r := range s.Roots {
		walk(r, 0)
	}
	return total
}

const maxNodeDepth = 256
