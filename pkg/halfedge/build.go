package halfedge

import (
	"errors"
	"fmt"

	"github.com/Faultbox/lodtiler/pkg/math"
)

// Build errors.
var (
	ErrNonManifold = errors.New("halfedge: non-manifold edge")
	ErrIndexCount  = errors.New("halfedge: index count is not a multiple of 3")
	ErrIndexRange  = errors.New("halfedge: index out of range")
)

// VertexData is one source vertex. Two vertices with equal VertexData are
// merged.
type VertexData struct {
	Position math.Vec3
	Attr     Attributes
}

// Source is an indexed triangle list.
type Source struct {
	Vertices []VertexData
	Indices  []uint32
}

// TriangleCount returns the number of index triples.
func (s Source) TriangleCount() int { return len(s.Indices) / 3 }

// BuildStats reports what Build kept and dropped.
type BuildStats struct {
	InputVertices       int
	InputTriangles      int
	Vertices            int
	Faces               int
	BoundaryEdges       int
	SkippedNonFinite    int
	SkippedDegenerate   int
	NonManifoldVertices int
}

type edgeKey struct {
	from, to VertexID
}

// Build converts src into a half-edge mesh. Vertices are deduplicated by
// value and numbered in source order, so a source without duplicates or
// unused vertices keeps its indices; Mesh.Remap records the mapping either
// way. Triangles with non-finite positions, repeated corners or zero area
// are skipped and counted. An edge used twice in the same direction, which
// is also the only way an edge can gain a second reversed partner, fails
// the whole surface with ErrNonManifold.
func Build(src Source) (*Mesh, BuildStats, error) {
	stats := BuildStats{
		InputVertices:  len(src.Vertices),
		InputTriangles: src.TriangleCount(),
	}
	if len(src.Indices)%3 != 0 {
		return nil, stats, fmt.Errorf("%w: %d indices", ErrIndexCount, len(src.Indices))
	}

	kept := make([][3]uint32, 0, stats.InputTriangles)
	used := make([]bool, len(src.Vertices))
	for t := 0; t+2 < len(src.Indices); t += 3 {
		tri := [3]uint32{src.Indices[t], src.Indices[t+1], src.Indices[t+2]}
		var corners [3]VertexData
		finite := true
		for k, idx := range tri {
			if int(idx) >= len(src.Vertices) {
				return nil, stats, fmt.Errorf("%w: triangle %d index %d (have %d vertices)", ErrIndexRange, t/3, idx, len(src.Vertices))
			}
			corners[k] = src.Vertices[idx]
			finite = finite && corners[k].Position.IsFinite()
		}
		if !finite {
			stats.SkippedNonFinite++
			continue
		}
		if corners[0] == corners[1] || corners[1] == corners[2] || corners[2] == corners[0] ||
			math.DegenerateTriangle(corners[0].Position, corners[1].Position, corners[2].Position) {
			stats.SkippedDegenerate++
			continue
		}
		kept = append(kept, tri)
		for _, idx := range tri {
			used[idx] = true
		}
	}

	m := &Mesh{
		Vertices:  make([]Vertex, 0, len(src.Vertices)),
		HalfEdges: make([]HalfEdge, 0, 3*len(kept)),
		Faces:     make([]Face, 0, len(kept)),
		Remap:     make([]VertexID, len(src.Vertices)),
	}

	byValue := make(map[VertexData]VertexID, len(src.Vertices))
	for i, d := range src.Vertices {
		if !used[i] {
			m.Remap[i] = NoVertex
			continue
		}
		id, ok := byValue[d]
		if !ok {
			id = VertexID(len(m.Vertices))
			m.Vertices = append(m.Vertices, Vertex{Position: d.Position, Attr: d.Attr, Out: NoHalfEdge})
			byValue[d] = id
		}
		m.Remap[i] = id
	}

	edges := make(map[edgeKey]HalfEdgeID, len(src.Indices))

	for _, tri := range kept {
		vs := [3]VertexID{m.Remap[tri[0]], m.Remap[tri[1]], m.Remap[tri[2]]}

		f := FaceID(len(m.Faces))
		base := HalfEdgeID(len(m.HalfEdges))
		for k := 0; k < 3; k++ {
			e := base + HalfEdgeID(k)
			key := edgeKey{vs[k], vs[(k+1)%3]}
			if prev, dup := edges[key]; dup {
				return nil, stats, fmt.Errorf("%w: edge %d->%d used by faces %d and %d",
					ErrNonManifold, key.from, key.to, m.HalfEdges[prev].Face, f)
			}
			edges[key] = e
			m.HalfEdges = append(m.HalfEdges, HalfEdge{
				Start: vs[k],
				Next:  base + HalfEdgeID((k+1)%3),
				Twin:  NoHalfEdge,
				Face:  f,
			})
			if m.Vertices[vs[k]].Out == NoHalfEdge {
				m.Vertices[vs[k]].Out = e
			}
		}
		m.Faces = append(m.Faces, Face{
			Edge: base,
			Normal: math.TriangleNormal(
				m.Vertices[vs[0]].Position,
				m.Vertices[vs[1]].Position,
				m.Vertices[vs[2]].Position,
			).Normalize(),
		})
	}

	for key, e := range edges {
		if t, ok := edges[edgeKey{key.to, key.from}]; ok {
			m.HalfEdges[e].Twin = t
		} else {
			stats.BoundaryEdges++
		}
	}

	m.activeVertices = len(m.Vertices)
	m.activeFaces = len(m.Faces)
	m.closed = stats.BoundaryEdges == 0

	// A vertex whose faces form more than one fan is reachable only in part
	// from its seed.
	degree := make([]int, len(m.Vertices))
	for i := range m.HalfEdges {
		degree[m.HalfEdges[i].Start]++
	}
	for v := range m.Vertices {
		if len(m.Outgoing(VertexID(v))) != degree[v] {
			m.Vertices[v].Locked = true
			stats.NonManifoldVertices++
		}
	}

	stats.Vertices = len(m.Vertices)
	stats.Faces = len(m.Faces)
	return m, stats, nil
}
