package decimate

import (
	"container/heap"

	"github.com/Faultbox/lodtiler/pkg/halfedge"
	"github.com/Faultbox/lodtiler/pkg/math"
)

// Selector is the collapse ordering policy. Next must only return edges
// whose endpoints and faces are all active.
type Selector interface {
	// Init scores every edge of m.
	Init(m *halfedge.Mesh)
	// Next pops the cheapest edge. ok is false when no edge is left.
	Next(m *halfedge.Mesh) (e halfedge.HalfEdgeID, cost float64, ok bool)
	// Update is called after c was collapsed; touched lists the vertices
	// whose neighborhoods changed.
	Update(m *halfedge.Mesh, c *Candidate, touched []halfedge.VertexID)
}

// Placer is implemented by selectors that compute their own target for an
// edge, such as an error-minimizing position.
type Placer interface {
	Target(m *halfedge.Mesh, c *Candidate) math.Vec3
}

// edgeQueue is a lazy min-heap of edges. Entries record the version of both
// endpoints when pushed; any change to either endpoint makes the entry stale.
type edgeQueue struct {
	items    []queueItem
	versions []uint32
}

type queueItem struct {
	edge   halfedge.HalfEdgeID
	cost   float64
	va, vb uint32
}

func (q *edgeQueue) Len() int           { return len(q.items) }
func (q *edgeQueue) Less(i, j int) bool { return q.items[i].cost < q.items[j].cost }
func (q *edgeQueue) Swap(i, j int)      { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *edgeQueue) Push(x any)         { q.items = append(q.items, x.(queueItem)) }
func (q *edgeQueue) Pop() any {
	n := len(q.items)
	it := q.items[n-1]
	q.items = q.items[:n-1]
	return it
}

func (q *edgeQueue) reset(m *halfedge.Mesh) {
	q.items = q.items[:0]
	q.versions = make([]uint32, len(m.Vertices))
}

func (q *edgeQueue) push(m *halfedge.Mesh, e halfedge.HalfEdgeID, cost float64) {
	heap.Push(q, queueItem{
		edge: e,
		cost: cost,
		va:   q.versions[m.Start(e)],
		vb:   q.versions[m.End(e)],
	})
}

func (q *edgeQueue) pop(m *halfedge.Mesh) (halfedge.HalfEdgeID, float64, bool) {
	for q.Len() > 0 {
		it := heap.Pop(q).(queueItem)
		if !m.IsActiveEdge(it.edge) {
			continue
		}
		if q.versions[m.Start(it.edge)] != it.va || q.versions[m.End(it.edge)] != it.vb {
			continue
		}
		return it.edge, it.cost, true
	}
	return halfedge.NoHalfEdge, 0, false
}

func (q *edgeQueue) bump(vs []halfedge.VertexID) {
	for _, v := range vs {
		q.versions[v]++
	}
}

// canonical picks one half-edge per undirected edge.
func canonical(m *halfedge.Mesh, e halfedge.HalfEdgeID) halfedge.HalfEdgeID {
	if t := m.Twin(e); t != halfedge.NoHalfEdge && t < e {
		return t
	}
	return e
}

// eachEdge calls fn once per active undirected edge.
func eachEdge(m *halfedge.Mesh, fn func(halfedge.HalfEdgeID)) {
	for i := range m.HalfEdges {
		e := halfedge.HalfEdgeID(i)
		if m.IsActiveEdge(e) && canonical(m, e) == e {
			fn(e)
		}
	}
}

// touchedEdges calls fn once per active undirected edge leaving any of vs.
func touchedEdges(m *halfedge.Mesh, vs []halfedge.VertexID, fn func(halfedge.HalfEdgeID)) {
	seen := make(map[halfedge.HalfEdgeID]struct{})
	for _, v := range vs {
		if m.Vertices[v].Status != halfedge.Active {
			continue
		}
		for _, e := range m.Outgoing(v) {
			// Boundary fans miss the incoming boundary edge.
			for _, cand := range [2]halfedge.HalfEdgeID{e, m.Prev(e)} {
				ce := canonical(m, cand)
				if _, ok := seen[ce]; ok {
					continue
				}
				seen[ce] = struct{}{}
				fn(ce)
			}
		}
	}
}

// ShortestEdge collapses the shortest remaining edge first.
type ShortestEdge struct {
	q edgeQueue
}

// NewShortestEdge returns an edge-length selector.
func NewShortestEdge() *ShortestEdge { return &ShortestEdge{} }

func (s *ShortestEdge) cost(m *halfedge.Mesh, e halfedge.HalfEdgeID) float64 {
	return m.Vertices[m.Start(e)].Position.Distance(m.Vertices[m.End(e)].Position)
}

// Init implements Selector.
func (s *ShortestEdge) Init(m *halfedge.Mesh) {
	s.q.reset(m)
	eachEdge(m, func(e halfedge.HalfEdgeID) {
		s.q.push(m, e, s.cost(m, e))
	})
}

// Next implements Selector.
func (s *ShortestEdge) Next(m *halfedge.Mesh) (halfedge.HalfEdgeID, float64, bool) {
	return s.q.pop(m)
}

// Update implements Selector.
func (s *ShortestEdge) Update(m *halfedge.Mesh, _ *Candidate, touched []halfedge.VertexID) {
	s.q.bump(touched)
	touchedEdges(m, touched, func(e halfedge.HalfEdgeID) {
		s.q.push(m, e, s.cost(m, e))
	})
}
