// Package halfedge implements an arena-backed half-edge mesh (DCEL) for
// triangle meshes. Elements are never freed; they are marked Deleted and
// skipped until Compact rebuilds flat buffers.
package halfedge

import (
	"github.com/Faultbox/lodtiler/pkg/math"
)

// VertexID indexes Mesh.Vertices.
type VertexID int32

// HalfEdgeID indexes Mesh.HalfEdges.
type HalfEdgeID int32

// FaceID indexes Mesh.Faces.
type FaceID int32

// Null handles.
const (
	NoVertex   VertexID   = -1
	NoHalfEdge HalfEdgeID = -1
	NoFace     FaceID     = -1
)

// Status is the lifecycle tag of a mesh element.
type Status uint8

const (
	Active Status = iota
	Deleted
)

func (s Status) String() string {
	if s == Deleted {
		return "deleted"
	}
	return "active"
}

// AttrMask flags which optional vertex attributes are present.
type AttrMask uint8

const (
	HasNormal AttrMask = 1 << iota
	HasTexCoord
	HasColor
)

// Attributes is the optional per-vertex payload.
type Attributes struct {
	Mask     AttrMask
	Normal   math.Vec3
	TexCoord math.Vec2
	Color    [4]float32
}

// Lerp blends two payloads. Only attributes present in both survive.
func (a Attributes) Lerp(b Attributes, t float64) Attributes {
	out := Attributes{Mask: a.Mask & b.Mask}
	if out.Mask&HasNormal != 0 {
		out.Normal = a.Normal.Lerp(b.Normal, t).Normalize()
	}
	if out.Mask&HasTexCoord != 0 {
		out.TexCoord = a.TexCoord.Lerp(b.TexCoord, t)
	}
	if out.Mask&HasColor != 0 {
		ft := float32(t)
		for i := range out.Color {
			out.Color[i] = a.Color[i] + (b.Color[i]-a.Color[i])*ft
		}
	}
	return out
}

// Vertex is a mesh vertex. Out is any outgoing half-edge and only seeds
// traversal.
type Vertex struct {
	Position math.Vec3
	Attr     Attributes
	Out      HalfEdgeID
	Status   Status
	// Locked marks a vertex whose incident faces do not form a single fan.
	// Such vertices are never moved or removed.
	Locked bool
}

// HalfEdge is one directed side of a triangle.
type HalfEdge struct {
	Start  VertexID
	Next   HalfEdgeID
	Twin   HalfEdgeID
	Face   FaceID
	Status Status
}

// Face is a triangle identified by one of its half-edges.
type Face struct {
	Edge   HalfEdgeID
	Normal math.Vec3
	Status Status
}

// Mesh owns all vertices, half-edges and faces.
type Mesh struct {
	Vertices  []Vertex
	HalfEdges []HalfEdge
	Faces     []Face

	// Remap maps each source vertex index to the vertex Build made for it,
	// or NoVertex when no kept triangle uses it. Collapses do not update it.
	Remap []VertexID

	activeVertices int
	activeFaces    int
	closed         bool
}

// ActiveFaceCount returns the number of faces not yet deleted.
func (m *Mesh) ActiveFaceCount() int { return m.activeFaces }

// ActiveVertexCount returns the number of vertices not yet deleted.
func (m *Mesh) ActiveVertexCount() int { return m.activeVertices }

// IsClosed reports whether the mesh had no boundary edges when built.
// Valid collapses never open or close a surface.
func (m *Mesh) IsClosed() bool { return m.closed }

// Next returns the half-edge following e around its face.
func (m *Mesh) Next(e HalfEdgeID) HalfEdgeID { return m.HalfEdges[e].Next }

// Prev returns the half-edge preceding e around its face.
func (m *Mesh) Prev(e HalfEdgeID) HalfEdgeID { return m.Next(m.Next(e)) }

// Twin returns the opposite half-edge, or NoHalfEdge on a boundary.
func (m *Mesh) Twin(e HalfEdgeID) HalfEdgeID { return m.HalfEdges[e].Twin }

// Start returns the origin vertex of e.
func (m *Mesh) Start(e HalfEdgeID) VertexID { return m.HalfEdges[e].Start }

// End returns the destination vertex of e.
func (m *Mesh) End(e HalfEdgeID) VertexID { return m.HalfEdges[m.HalfEdges[e].Next].Start }

// IsActiveEdge reports whether e, its endpoints and its face are all active.
func (m *Mesh) IsActiveEdge(e HalfEdgeID) bool {
	if e < 0 || int(e) >= len(m.HalfEdges) {
		return false
	}
	he := &m.HalfEdges[e]
	if he.Status != Active || m.Faces[he.Face].Status != Active {
		return false
	}
	return m.Vertices[he.Start].Status == Active && m.Vertices[m.End(e)].Status == Active
}

// fan walks the half-edges leaving v. The result is ordered around v; for a
// boundary vertex it starts at the edge whose predecessor has no twin.
func (m *Mesh) fan(v VertexID) (edges []HalfEdgeID, boundary bool) {
	start := m.Vertices[v].Out
	if start == NoHalfEdge || m.Vertices[v].Status != Active {
		return nil, false
	}
	limit := len(m.HalfEdges)

	e := start
	for i := 0; i < limit; i++ {
		edges = append(edges, e)
		t := m.Twin(m.Prev(e))
		if t == NoHalfEdge {
			boundary = true
			break
		}
		if t == start {
			return edges, false
		}
		e = t
	}

	// Hit a boundary: collect the other side and prepend it in walk order.
	var back []HalfEdgeID
	for e, i := start, 0; i < limit; i++ {
		t := m.Twin(e)
		if t == NoHalfEdge {
			break
		}
		e = m.Next(t)
		back = append(back, e)
	}
	if len(back) == 0 {
		return edges, boundary
	}
	ordered := make([]HalfEdgeID, 0, len(back)+len(edges))
	for i := len(back) - 1; i >= 0; i-- {
		ordered = append(ordered, back[i])
	}
	return append(ordered, edges...), boundary
}

// Outgoing returns the active half-edges starting at v, ordered around v.
func (m *Mesh) Outgoing(v VertexID) []HalfEdgeID {
	edges, _ := m.fan(v)
	return edges
}

// IsBoundaryVertex reports whether v lies on an open edge.
func (m *Mesh) IsBoundaryVertex(v VertexID) bool {
	_, boundary := m.fan(v)
	return boundary
}

// IsBoundaryEdge reports whether e has no twin.
func (m *Mesh) IsBoundaryEdge(e HalfEdgeID) bool { return m.Twin(e) == NoHalfEdge }

// Neighbors returns the distinct vertices sharing an edge with v.
func (m *Mesh) Neighbors(v VertexID) []VertexID {
	edges, _ := m.fan(v)
	out := make([]VertexID, 0, len(edges)+1)
	seen := make(map[VertexID]struct{}, len(edges)+1)
	add := func(n VertexID) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	for _, e := range edges {
		add(m.End(e))
		add(m.Start(m.Prev(e)))
	}
	return out
}

// Valence returns the number of neighbors of v.
func (m *Mesh) Valence(v VertexID) int { return len(m.Neighbors(v)) }

// FaceVertices returns the three corners of f in winding order.
func (m *Mesh) FaceVertices(f FaceID) [3]VertexID {
	e := m.Faces[f].Edge
	n := m.Next(e)
	return [3]VertexID{m.Start(e), m.Start(n), m.Start(m.Next(n))}
}

// FaceEdges returns the three half-edges of f starting at its seed.
func (m *Mesh) FaceEdges(f FaceID) [3]HalfEdgeID {
	e := m.Faces[f].Edge
	n := m.Next(e)
	return [3]HalfEdgeID{e, n, m.Next(n)}
}

// FaceNormal computes the unit normal of f from current positions.
func (m *Mesh) FaceNormal(f FaceID) math.Vec3 {
	v := m.FaceVertices(f)
	return math.TriangleNormal(m.Vertices[v[0]].Position, m.Vertices[v[1]].Position, m.Vertices[v[2]].Position).Normalize()
}

// DeleteFace marks f and its three half-edges Deleted.
func (m *Mesh) DeleteFace(f FaceID) {
	if m.Faces[f].Status == Deleted {
		return
	}
	for _, e := range m.FaceEdges(f) {
		m.HalfEdges[e].Status = Deleted
	}
	m.Faces[f].Status = Deleted
	m.activeFaces--
}

// DeleteVertex marks v Deleted and clears its seed.
func (m *Mesh) DeleteVertex(v VertexID) {
	if m.Vertices[v].Status == Deleted {
		return
	}
	m.Vertices[v].Status = Deleted
	m.Vertices[v].Out = NoHalfEdge
	m.activeVertices--
}

// SetTwins pairs a and b. Either may be NoHalfEdge, which leaves the other
// as a boundary edge.
func (m *Mesh) SetTwins(a, b HalfEdgeID) {
	if a != NoHalfEdge {
		m.HalfEdges[a].Twin = b
	}
	if b != NoHalfEdge {
		m.HalfEdges[b].Twin = a
	}
}
