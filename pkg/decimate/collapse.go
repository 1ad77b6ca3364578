package decimate

import (
	"github.com/Faultbox/lodtiler/pkg/halfedge"
)

// Collapse merges B into A. The removed faces, their half-edges and B are
// marked Deleted, never freed. It returns A followed by its new neighbors,
// the vertices whose surroundings changed. The candidate must have passed
// Validate against the current mesh.
func Collapse(m *halfedge.Mesh, c *Candidate) []halfedge.VertexID {
	o1, o2, o3, o4 := c.Outer[0], c.Outer[1], c.Outer[2], c.Outer[3]

	m.DeleteFace(c.F0)
	if c.F1 != halfedge.NoFace {
		m.DeleteFace(c.F1)
	}

	for _, e := range c.LoopB {
		if m.HalfEdges[e].Status == halfedge.Active {
			m.HalfEdges[e].Start = c.A
		}
	}

	// C->B and A->C now run along the same edge, as do D->A and B->D.
	m.SetTwins(o1, o2)
	if !c.IsBoundary() {
		m.SetTwins(o3, o4)
	}

	va := &m.Vertices[c.A]
	vb := &m.Vertices[c.B]
	va.Position = c.Target
	if c.Blend > 0 {
		va.Attr = va.Attr.Lerp(vb.Attr, c.Blend)
	}
	m.DeleteVertex(c.B)

	va.Out = firstActive(m, o2, o4)
	if va.Out == halfedge.NoHalfEdge {
		va.Out = firstActive(m, c.LoopA...)
	}
	if va.Out == halfedge.NoHalfEdge {
		va.Out = firstActive(m, c.LoopB...)
	}

	if o1 != halfedge.NoHalfEdge {
		m.Vertices[c.C].Out = o1
	} else {
		m.Vertices[c.C].Out = m.Next(o2)
	}
	if !c.IsBoundary() {
		if o3 != halfedge.NoHalfEdge {
			m.Vertices[c.D].Out = o3
		} else {
			m.Vertices[c.D].Out = m.Next(o4)
		}
	}

	touched := append([]halfedge.VertexID{c.A}, m.Neighbors(c.A)...)
	for _, e := range m.Outgoing(c.A) {
		f := m.HalfEdges[e].Face
		m.Faces[f].Normal = m.FaceNormal(f)
	}
	return touched
}

func firstActive(m *halfedge.Mesh, edges ...halfedge.HalfEdgeID) halfedge.HalfEdgeID {
	for _, e := range edges {
		if e != halfedge.NoHalfEdge && m.HalfEdges[e].Status == halfedge.Active {
			return e
		}
	}
	return halfedge.NoHalfEdge
}
