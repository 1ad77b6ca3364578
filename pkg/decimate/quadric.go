package decimate

import (
	gomath "math"

	"github.com/Faultbox/lodtiler/pkg/halfedge"
	"github.com/Faultbox/lodtiler/pkg/math"
)

// quadric is a symmetric 4x4 error matrix stored as its upper triangle:
//
//	a2 ab ac ad
//	   b2 bc bd
//	      c2 cd
//	         d2
type quadric [10]float64

func planeQuadric(n math.Vec3, d, w float64) quadric {
	a, b, c := n.X, n.Y, n.Z
	return quadric{
		w * a * a, w * a * b, w * a * c, w * a * d,
		w * b * b, w * b * c, w * b * d,
		w * c * c, w * c * d,
		w * d * d,
	}
}

func (q quadric) add(o quadric) quadric {
	for i := range q {
		q[i] += o[i]
	}
	return q
}

// eval returns v^T Q v for the homogeneous point (p, 1).
func (q quadric) eval(p math.Vec3) float64 {
	x, y, z := p.X, p.Y, p.Z
	e := q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
	if e < 0 {
		return 0
	}
	return e
}

// optimum solves for the point minimizing q. ok is false when the system
// is singular, as for flat or straight neighborhoods.
func (q quadric) optimum() (math.Vec3, bool) {
	a00, a01, a02 := q[0], q[1], q[2]
	a11, a12 := q[4], q[5]
	a22 := q[7]
	bx, by, bz := -q[3], -q[6], -q[8]

	det := a00*(a11*a22-a12*a12) - a01*(a01*a22-a12*a02) + a02*(a01*a12-a11*a02)
	scale := gomath.Abs(a00) + gomath.Abs(a11) + gomath.Abs(a22)
	if scale == 0 || gomath.Abs(det) < 1e-9*scale*scale*scale {
		return math.Vec3{}, false
	}
	inv := 1 / det
	x := (bx*(a11*a22-a12*a12) - a01*(by*a22-a12*bz) + a02*(by*a12-a11*bz)) * inv
	y := (a00*(by*a22-a12*bz) - bx*(a01*a22-a12*a02) + a02*(a01*bz-by*a02)) * inv
	z := (a00*(a11*bz-by*a12) - a01*(a01*bz-by*a02) + bx*(a01*a12-a11*a02)) * inv
	p := math.Vec3{X: x, Y: y, Z: z}
	return p, p.IsFinite()
}

// QuadricError orders edges by the summed squared distance of the merged
// vertex to the planes of the original faces around it. Face planes are
// weighted by area.
type QuadricError struct {
	// Optimal places the merged vertex at the error minimum when it exists,
	// instead of choosing among the endpoints and midpoint.
	Optimal bool

	q        edgeQueue
	quadrics []quadric
}

// NewQuadricError returns a quadric error selector.
func NewQuadricError(optimal bool) *QuadricError {
	return &QuadricError{Optimal: optimal}
}

// Init implements Selector.
func (s *QuadricError) Init(m *halfedge.Mesh) {
	s.quadrics = make([]quadric, len(m.Vertices))
	for i := range m.Faces {
		f := halfedge.FaceID(i)
		if m.Faces[f].Status != halfedge.Active {
			continue
		}
		vs := m.FaceVertices(f)
		p0 := m.Vertices[vs[0]].Position
		n := math.TriangleNormal(p0, m.Vertices[vs[1]].Position, m.Vertices[vs[2]].Position)
		area := n.Length() / 2
		if area == 0 {
			continue
		}
		n = n.Normalize()
		fq := planeQuadric(n, -n.Dot(p0), area)
		for _, v := range vs {
			s.quadrics[v] = s.quadrics[v].add(fq)
		}
	}

	s.q.reset(m)
	eachEdge(m, func(e halfedge.HalfEdgeID) {
		_, cost := s.best(m, e)
		s.q.push(m, e, cost)
	})
}

// best returns the target for collapsing e and its error.
func (s *QuadricError) best(m *halfedge.Mesh, e halfedge.HalfEdgeID) (math.Vec3, float64) {
	a, b := m.Start(e), m.End(e)
	q := s.quadrics[a].add(s.quadrics[b])
	if s.Optimal {
		if p, ok := q.optimum(); ok {
			return p, q.eval(p)
		}
	}
	pa := m.Vertices[a].Position
	pb := m.Vertices[b].Position
	best, cost := pa, q.eval(pa)
	for _, p := range [2]math.Vec3{pb, pa.Lerp(pb, 0.5)} {
		if c := q.eval(p); c < cost {
			best, cost = p, c
		}
	}
	return best, cost
}

// Next implements Selector.
func (s *QuadricError) Next(m *halfedge.Mesh) (halfedge.HalfEdgeID, float64, bool) {
	return s.q.pop(m)
}

// Target implements Placer.
func (s *QuadricError) Target(m *halfedge.Mesh, c *Candidate) math.Vec3 {
	p, _ := s.best(m, c.Edge)
	return p
}

// Update implements Selector.
func (s *QuadricError) Update(m *halfedge.Mesh, c *Candidate, touched []halfedge.VertexID) {
	s.quadrics[c.A] = s.quadrics[c.A].add(s.quadrics[c.B])
	s.q.bump(touched)
	touchedEdges(m, touched, func(e halfedge.HalfEdgeID) {
		_, cost := s.best(m, e)
		s.q.push(m, e, cost)
	})
}
