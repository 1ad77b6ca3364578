package scene

import (
	"fmt"

	"github.com/Faultbox/lodtiler/pkg/halfedge"
	"github.com/Faultbox/lodtiler/pkg/math"
	"github.com/Faultbox/lodtiler/pkg/octree"
)

// Flattened is a scene baked into world space.
type Flattened struct {
	Instances []*Mesh
	Faces     []*octree.FaceReference

	SkippedNonFinite  int
	SkippedDegenerate int
}

// Bounds returns the union of all face boxes.
func (f *Flattened) Bounds() math.AABB {
	return octree.FacesBounds(f.Faces)
}

// Flatten walks every root and emits one world-space mesh instance per
// node/mesh pair, with a FaceReference for each usable triangle. Triangles
// with non-finite corners or repeated indices are skipped and counted.
func Flatten(s *Scene) (*Flattened, error) {
	for _, m := range s.Meshes {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}

	out := &Flattened{}
	onPath := make(map[*Node]bool)

	var walk func(n *Node, parent math.Mat4) error
	walk = func(n *Node, parent math.Mat4) error {
		if onPath[n] {
			return fmt.Errorf("%w: at node %q", ErrCycle, n.Name)
		}
		onPath[n] = true
		defer delete(onPath, n)

		world := parent.Mul(n.Transform)
		for _, mi := range n.Meshes {
			if mi < 0 || mi >= len(s.Meshes) {
				return fmt.Errorf("%w: node %q mesh %d (have %d)", ErrMeshIndex, n.Name, mi, len(s.Meshes))
			}
			out.add(instance(s.Meshes[mi], world, n.Name))
		}
		for _, c := range n.Children {
			if err := walk(c, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range s.Roots {
		if err := walk(r, math.Identity()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// instance copies src into world space. A mirroring transform reverses the
// winding so faces keep pointing outward.
func instance(src *Mesh, world math.Mat4, node string) *Mesh {
	m := &Mesh{
		Name:      node + "/" + src.Name,
		Positions: make([]math.Vec3, len(src.Positions)),
		TexCoords: src.TexCoords,
		Colors:    src.Colors,
		Indices:   src.Indices,
	}
	for i, p := range src.Positions {
		m.Positions[i] = world.TransformVec3(p)
	}
	if len(src.Normals) > 0 {
		nm := world.NormalMatrix()
		m.Normals = make([]math.Vec3, len(src.Normals))
		for i, n := range src.Normals {
			m.Normals[i] = nm.TransformDirection(n).Normalize()
		}
	}
	if world.Determinant3() < 0 {
		m.Indices = make([]uint32, len(src.Indices))
		for t := 0; t+2 < len(src.Indices); t += 3 {
			m.Indices[t] = src.Indices[t]
			m.Indices[t+1] = src.Indices[t+2]
			m.Indices[t+2] = src.Indices[t+1]
		}
	}
	return m
}

func (f *Flattened) add(m *Mesh) {
	f.Instances = append(f.Instances, m)
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		pa, pb, pc := m.Positions[a], m.Positions[b], m.Positions[c]
		if !pa.IsFinite() || !pb.IsFinite() || !pc.IsFinite() {
			f.SkippedNonFinite++
			continue
		}
		if a == b || b == c || c == a || math.DegenerateTriangle(pa, pb, pc) {
			f.SkippedDegenerate++
			continue
		}
		f.Faces = append(f.Faces, octree.NewFaceReference(m, a, b, c))
	}
}

// LeafSource gathers the triangles of one octree leaf into an indexed
// source, sharing vertices that come from the same mesh vertex.
func LeafSource(faces []*octree.FaceReference) halfedge.Source {
	type key struct {
		prim octree.Primitive
		idx  uint32
	}
	remap := make(map[key]uint32, len(faces)*3/2)
	src := halfedge.Source{Indices: make([]uint32, 0, len(faces)*3)}

	for _, f := range faces {
		for _, idx := range f.Indices {
			k := key{f.Primitive, idx}
			out, ok := remap[k]
			if !ok {
				out = uint32(len(src.Vertices))
				remap[k] = out
				var d halfedge.VertexData
				if m, isMesh := f.Primitive.(*Mesh); isMesh {
					d = m.Vertex(idx)
				} else {
					d.Position = f.Primitive.Position(idx)
				}
				src.Vertices = append(src.Vertices, d)
			}
			src.Indices = append(src.Indices, out)
		}
	}
	return src
}
