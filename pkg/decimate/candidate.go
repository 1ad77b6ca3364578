// Package decimate simplifies half-edge meshes by repeated edge collapse.
//
// The collapse of h = A->B merges B into A and removes the faces on both
// sides of the edge:
//
//	      C                 C
//	    /   \               |
//	   / f0  \              |
//	  A ----- B    ==>      A
//	   \ f1  /              |
//	    \   /               |
//	      D                 D
//
// Edge choice and error metric are policies (Selector); structural safety
// is enforced by Validate regardless of policy.
package decimate

import (
	"github.com/Faultbox/lodtiler/pkg/halfedge"
	"github.com/Faultbox/lodtiler/pkg/math"
)

// Candidate bundles everything needed to validate and perform one collapse.
// It is only valid until the mesh is next modified.
type Candidate struct {
	Edge halfedge.HalfEdgeID // A -> B
	Twin halfedge.HalfEdgeID // B -> A, or NoHalfEdge on a boundary

	A, B halfedge.VertexID // A survives, B is removed
	C, D halfedge.VertexID // apexes of F0 and F1; D is NoVertex on a boundary

	F0, F1 halfedge.FaceID

	// Outer holds the twins of the four surviving sides of F0 and F1:
	// C->B, A->C, D->A, B->D. Any may be NoHalfEdge.
	Outer [4]halfedge.HalfEdgeID

	LoopA, LoopB []halfedge.HalfEdgeID // outgoing half-edges before the collapse

	Target math.Vec3 // new position of A
	Blend  float64   // attribute weight of B in [0,1]
}

// NewCandidate builds the candidate for collapsing e. It returns false when
// e or anything it touches is no longer active.
func NewCandidate(m *halfedge.Mesh, e halfedge.HalfEdgeID) (*Candidate, bool) {
	if !m.IsActiveEdge(e) {
		return nil, false
	}
	h1 := m.Next(e)
	h2 := m.Next(h1)
	c := &Candidate{
		Edge:  e,
		Twin:  m.Twin(e),
		A:     m.Start(e),
		B:     m.Start(h1),
		C:     m.Start(h2),
		D:     halfedge.NoVertex,
		F0:    m.HalfEdges[e].Face,
		F1:    halfedge.NoFace,
		Outer: [4]halfedge.HalfEdgeID{m.Twin(h1), m.Twin(h2), halfedge.NoHalfEdge, halfedge.NoHalfEdge},
	}
	if c.Twin != halfedge.NoHalfEdge {
		if !m.IsActiveEdge(c.Twin) {
			return nil, false
		}
		t1 := m.Next(c.Twin)
		t2 := m.Next(t1)
		c.F1 = m.HalfEdges[c.Twin].Face
		c.D = m.Start(t2)
		c.Outer[2] = m.Twin(t1)
		c.Outer[3] = m.Twin(t2)
	}
	c.LoopA = m.Outgoing(c.A)
	c.LoopB = m.Outgoing(c.B)
	c.Target = m.Vertices[c.A].Position
	return c, true
}

// IsBoundary reports whether the collapsed edge has only one face.
func (c *Candidate) IsBoundary() bool { return c.Twin == halfedge.NoHalfEdge }

// Removed reports whether f disappears with the collapse.
func (c *Candidate) Removed(f halfedge.FaceID) bool { return f == c.F0 || f == c.F1 }

// Place sets the target position and attribute blend from p.
func (c *Candidate) Place(m *halfedge.Mesh, p Placement) {
	a := m.Vertices[c.A].Position
	b := m.Vertices[c.B].Position
	switch p {
	case PlaceMidpoint:
		c.Target, c.Blend = a.Lerp(b, 0.5), 0.5
	default:
		c.Target, c.Blend = a, 0
	}
}

// PlaceAt sets an explicit target and derives the blend from its projection
// onto the edge.
func (c *Candidate) PlaceAt(m *halfedge.Mesh, target math.Vec3) {
	a := m.Vertices[c.A].Position
	ab := m.Vertices[c.B].Position.Sub(a)
	c.Target, c.Blend = target, 0
	if l2 := ab.LengthSquared(); l2 > 0 {
		t := target.Sub(a).Dot(ab) / l2
		switch {
		case t < 0:
			t = 0
		case t > 1:
			t = 1
		}
		c.Blend = t
	}
}

// faces returns the distinct faces incident to A or B that survive.
func (c *Candidate) faces(m *halfedge.Mesh) []halfedge.FaceID {
	seen := make(map[halfedge.FaceID]struct{}, len(c.LoopA)+len(c.LoopB))
	var out []halfedge.FaceID
	for _, loop := range [2][]halfedge.HalfEdgeID{c.LoopA, c.LoopB} {
		for _, e := range loop {
			f := m.HalfEdges[e].Face
			if c.Removed(f) {
				continue
			}
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				out = append(out, f)
			}
		}
	}
	return out
}
