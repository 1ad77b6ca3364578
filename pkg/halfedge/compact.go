package halfedge

import (
	"github.com/Faultbox/lodtiler/pkg/math"
)

// Buffers is a flat indexed triangle mesh ready for upload or export.
// Positions and Normals hold 3 floats per vertex, TexCoords 2 and Colors 4.
// TexCoords and Colors are empty unless every vertex carries them.
type Buffers struct {
	Positions []float32
	Normals   []float32
	TexCoords []float32
	Colors    []float32
	Indices   []uint32
}

// VertexCount returns the number of vertices.
func (b *Buffers) VertexCount() int { return len(b.Positions) / 3 }

// TriangleCount returns the number of triangles.
func (b *Buffers) TriangleCount() int { return len(b.Indices) / 3 }

// IsEmpty reports whether the buffers hold no triangles.
func (b *Buffers) IsEmpty() bool { return len(b.Indices) == 0 }

// Bounds returns the box around all positions.
func (b *Buffers) Bounds() math.AABB {
	box := math.EmptyAABB()
	for i := 0; i+2 < len(b.Positions); i += 3 {
		box = box.Extend(math.Vec3{
			X: float64(b.Positions[i]),
			Y: float64(b.Positions[i+1]),
			Z: float64(b.Positions[i+2]),
		})
	}
	return box
}

// Compact emits the active faces as fresh flat buffers. Vertices are
// renumbered in first-use order; deleted and unreferenced vertices are
// dropped. Vertices without a normal get the area-weighted average of their
// face normals.
func (m *Mesh) Compact() *Buffers {
	remap := make([]int32, len(m.Vertices))
	for i := range remap {
		remap[i] = -1
	}
	order := make([]VertexID, 0, m.activeVertices)
	indices := make([]uint32, 0, 3*m.activeFaces)
	accum := make(map[VertexID]math.Vec3)

	for i := range m.Faces {
		f := FaceID(i)
		if m.Faces[f].Status != Active {
			continue
		}
		vs := m.FaceVertices(f)
		weighted := math.TriangleNormal(m.Vertices[vs[0]].Position, m.Vertices[vs[1]].Position, m.Vertices[vs[2]].Position)
		for _, v := range vs {
			if remap[v] < 0 {
				remap[v] = int32(len(order))
				order = append(order, v)
			}
			indices = append(indices, uint32(remap[v]))
			if m.Vertices[v].Attr.Mask&HasNormal == 0 {
				accum[v] = accum[v].Add(weighted)
			}
		}
	}

	mask := HasTexCoord | HasColor
	for _, v := range order {
		mask &= m.Vertices[v].Attr.Mask
	}

	b := &Buffers{
		Positions: make([]float32, 0, 3*len(order)),
		Normals:   make([]float32, 0, 3*len(order)),
		Indices:   indices,
	}
	for _, v := range order {
		vert := &m.Vertices[v]
		b.Positions = append(b.Positions, float32(vert.Position.X), float32(vert.Position.Y), float32(vert.Position.Z))

		n := vert.Attr.Normal
		if vert.Attr.Mask&HasNormal == 0 {
			n = accum[v].Normalize()
		}
		b.Normals = append(b.Normals, float32(n.X), float32(n.Y), float32(n.Z))

		if mask&HasTexCoord != 0 {
			b.TexCoords = append(b.TexCoords, float32(vert.Attr.TexCoord.X), float32(vert.Attr.TexCoord.Y))
		}
		if mask&HasColor != 0 {
			b.Colors = append(b.Colors, vert.Attr.Color[:]...)
		}
	}
	return b
}

// Buffers flattens the source without building connectivity, keeping every
// triangle whose corners are finite. Used for surfaces that cannot be
// decimated.
func (s Source) Buffers() *Buffers {
	b := &Buffers{}
	remap := make(map[uint32]uint32)
	mask := HasTexCoord | HasColor
	for _, v := range s.Vertices {
		mask &= v.Attr.Mask
	}
	for t := 0; t+2 < len(s.Indices); t += 3 {
		tri := s.Indices[t : t+3]
		ok := true
		for _, idx := range tri {
			ok = ok && int(idx) < len(s.Vertices) && s.Vertices[idx].Position.IsFinite()
		}
		if !ok {
			continue
		}
		for _, idx := range tri {
			out, seen := remap[idx]
			if !seen {
				out = uint32(len(b.Positions) / 3)
				remap[idx] = out
				v := s.Vertices[idx]
				b.Positions = append(b.Positions, float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z))
				n := v.Attr.Normal
				b.Normals = append(b.Normals, float32(n.X), float32(n.Y), float32(n.Z))
				if mask&HasTexCoord != 0 {
					b.TexCoords = append(b.TexCoords, float32(v.Attr.TexCoord.X), float32(v.Attr.TexCoord.Y))
				}
				if mask&HasColor != 0 {
					b.Colors = append(b.Colors, v.Attr.Color[:]...)
				}
			}
			b.Indices = append(b.Indices, out)
		}
	}
	return b
}
