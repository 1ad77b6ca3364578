package decimate

import (
	gomath "math"

	"github.com/Faultbox/lodtiler/pkg/halfedge"
	"github.com/Faultbox/lodtiler/pkg/math"
)

// Rejection is the reason a candidate was skipped. Rejections are expected
// and frequent; they are counted, never returned as errors.
type Rejection int

const (
	Accepted Rejection = iota
	RejectStale
	RejectLocked
	RejectBoundary
	RejectLink
	RejectValence
	RejectPinch
	RejectMinimum
	RejectDegenerate
	RejectNormalFlip

	numRejections
)

var rejectionNames = [...]string{
	Accepted:         "accepted",
	RejectStale:      "stale",
	RejectLocked:     "locked",
	RejectBoundary:   "boundary",
	RejectLink:       "link",
	RejectValence:    "valence",
	RejectPinch:      "pinch",
	RejectMinimum:    "minimum",
	RejectDegenerate: "degenerate",
	RejectNormalFlip: "normal_flip",
}

func (r Rejection) String() string {
	if r >= 0 && int(r) < len(rejectionNames) {
		return rejectionNames[r]
	}
	return "unknown"
}

// Rejections counts skipped candidates by reason.
type Rejections [numRejections]int

// Total returns the number of rejected candidates.
func (r *Rejections) Total() int {
	n := 0
	for i := RejectStale; i < numRejections; i++ {
		n += r[i]
	}
	return n
}

// Add accumulates other into r.
func (r *Rejections) Add(other Rejections) {
	for i := range r {
		r[i] += other[i]
	}
}

// Validate decides whether collapsing c keeps the mesh a valid manifold
// without degenerate or flipped faces. Topology is tested before geometry.
func Validate(m *halfedge.Mesh, c *Candidate, opts Options) Rejection {
	if !m.IsActiveEdge(c.Edge) {
		return RejectStale
	}
	va, vb := &m.Vertices[c.A], &m.Vertices[c.B]
	if va.Locked || vb.Locked {
		return RejectLocked
	}

	boundaryA := m.IsBoundaryVertex(c.A)
	boundaryB := m.IsBoundaryVertex(c.B)

	if opts.PreserveBoundary {
		if boundaryB || (boundaryA && c.Target != va.Position) {
			return RejectBoundary
		}
	}

	// Removing an ear would strand its apex.
	if c.Outer[0] == halfedge.NoHalfEdge && c.Outer[1] == halfedge.NoHalfEdge {
		return RejectLink
	}
	if !c.IsBoundary() {
		if c.C == c.D {
			return RejectLink
		}
		if c.Outer[2] == halfedge.NoHalfEdge && c.Outer[3] == halfedge.NoHalfEdge {
			return RejectLink
		}
		// An interior edge joining two boundary vertices would pinch the
		// surface into a bowtie.
		if boundaryA && boundaryB {
			return RejectPinch
		}
		if m.IsClosed() && m.ActiveFaceCount()-2 < 4 {
			return RejectMinimum
		}
	}

	if !linkCondition(m, c) {
		return RejectLink
	}
	if !apexValenceOK(m, c.C) {
		return RejectValence
	}
	if c.D != halfedge.NoVertex && !apexValenceOK(m, c.D) {
		return RejectValence
	}

	return validateGeometry(m, c, opts)
}

// linkCondition requires the common neighbors of A and B to be exactly the
// apexes of the removed faces.
func linkCondition(m *halfedge.Mesh, c *Candidate) bool {
	na := m.Neighbors(c.A)
	inA := make(map[halfedge.VertexID]struct{}, len(na))
	for _, v := range na {
		inA[v] = struct{}{}
	}
	for _, v := range m.Neighbors(c.B) {
		if v == c.A {
			continue
		}
		if _, ok := inA[v]; !ok {
			continue
		}
		if v != c.C && v != c.D {
			return false
		}
	}
	return true
}

// apexValenceOK reports whether v keeps enough neighbors after losing one.
func apexValenceOK(m *halfedge.Mesh, v halfedge.VertexID) bool {
	n := m.Valence(v)
	if m.IsBoundaryVertex(v) {
		return n > 2
	}
	return n > 3
}

func validateGeometry(m *halfedge.Mesh, c *Candidate, opts Options) Rejection {
	cosLimit := gomath.Cos(opts.MaxNormalDeviation * gomath.Pi / 180)

	for _, f := range c.faces(m) {
		vs := m.FaceVertices(f)
		var before, after [3]math.Vec3
		for i, v := range vs {
			before[i] = m.Vertices[v].Position
			after[i] = before[i]
			if v == c.A || v == c.B {
				after[i] = c.Target
			}
		}

		nAfter := math.TriangleNormal(after[0], after[1], after[2])
		area := nAfter.Length() / 2
		if area <= opts.MinFaceArea || area == 0 {
			return RejectDegenerate
		}

		nBefore := math.TriangleNormal(before[0], before[1], before[2])
		if nBefore.LengthSquared() == 0 {
			continue
		}
		if nAfter.Normalize().Dot(nBefore.Normalize()) < cosLimit {
			return RejectNormalFlip
		}
	}
	return Accepted
}
