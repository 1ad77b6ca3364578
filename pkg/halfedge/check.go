package halfedge

import (
	"errors"
	"fmt"
)

// ErrCorrupt is returned by Check when a structural invariant is broken.
var ErrCorrupt = errors.New("halfedge: corrupt mesh")

// Check verifies the connectivity invariants over all active elements:
// every face is a closed 3-cycle, twins are symmetric and share a reversed
// edge, and nothing active refers to something deleted.
func (m *Mesh) Check() error {
	faces := 0
	for i := range m.Faces {
		f := FaceID(i)
		face := &m.Faces[f]
		if face.Status != Active {
			continue
		}
		faces++
		if !m.validEdge(face.Edge) || m.HalfEdges[face.Edge].Status != Active {
			return fmt.Errorf("%w: face %d seeds inactive half-edge %d", ErrCorrupt, f, face.Edge)
		}
		if m.HalfEdges[face.Edge].Face != f {
			return fmt.Errorf("%w: face %d seed belongs to face %d", ErrCorrupt, f, m.HalfEdges[face.Edge].Face)
		}
	}
	if faces != m.activeFaces {
		return fmt.Errorf("%w: %d active faces, counter says %d", ErrCorrupt, faces, m.activeFaces)
	}

	for i := range m.HalfEdges {
		e := HalfEdgeID(i)
		he := &m.HalfEdges[e]
		if he.Status != Active {
			continue
		}
		if m.Faces[he.Face].Status != Active {
			return fmt.Errorf("%w: half-edge %d on deleted face %d", ErrCorrupt, e, he.Face)
		}
		if m.Vertices[he.Start].Status != Active {
			return fmt.Errorf("%w: half-edge %d starts at deleted vertex %d", ErrCorrupt, e, he.Start)
		}
		n1 := he.Next
		if !m.validEdge(n1) || m.HalfEdges[n1].Status != Active {
			return fmt.Errorf("%w: half-edge %d next %d is inactive", ErrCorrupt, e, n1)
		}
		n2 := m.Next(n1)
		if !m.validEdge(n2) || m.Next(n2) != e {
			return fmt.Errorf("%w: half-edge %d is not on a 3-cycle", ErrCorrupt, e)
		}
		if m.HalfEdges[n1].Face != he.Face || m.HalfEdges[n2].Face != he.Face {
			return fmt.Errorf("%w: half-edge %d cycle spans faces", ErrCorrupt, e)
		}

		t := he.Twin
		if t == NoHalfEdge {
			continue
		}
		if !m.validEdge(t) || m.HalfEdges[t].Status != Active {
			return fmt.Errorf("%w: half-edge %d twin %d is inactive", ErrCorrupt, e, t)
		}
		if m.HalfEdges[t].Twin != e {
			return fmt.Errorf("%w: half-edge %d twin %d is not symmetric", ErrCorrupt, e, t)
		}
		if m.Start(t) != m.End(e) || m.Start(e) != m.End(t) {
			return fmt.Errorf("%w: half-edge %d and twin %d do not share a reversed edge", ErrCorrupt, e, t)
		}
	}

	vertices := 0
	for i := range m.Vertices {
		v := VertexID(i)
		vert := &m.Vertices[v]
		if vert.Status != Active {
			continue
		}
		vertices++
		if vert.Out == NoHalfEdge {
			continue
		}
		if !m.validEdge(vert.Out) || m.HalfEdges[vert.Out].Status != Active {
			return fmt.Errorf("%w: vertex %d seeds inactive half-edge %d", ErrCorrupt, v, vert.Out)
		}
		if m.Start(vert.Out) != v {
			return fmt.Errorf("%w: vertex %d seed starts at vertex %d", ErrCorrupt, v, m.Start(vert.Out))
		}
	}
	if vertices != m.activeVertices {
		return fmt.Errorf("%w: %d active vertices, counter says %d", ErrCorrupt, vertices, m.activeVertices)
	}
	return nil
}

func (m *Mesh) validEdge(e HalfEdgeID) bool {
	return e >= 0 && int(e) < len(m.HalfEdges)
}
