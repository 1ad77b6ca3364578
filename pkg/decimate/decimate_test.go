package decimate

import (
	"testing"

	"github.com/Faultbox/lodtiler/pkg/halfedge"
	"github.com/Faultbox/lodtiler/pkg/math"
	"github.com/stretchr/testify/require"
)

func source(ps []math.Vec3, indices ...uint32) halfedge.Source {
	vs := make([]halfedge.VertexData, len(ps))
	for i, p := range ps {
		vs[i] = halfedge.VertexData{Position: p}
	}
	return halfedge.Source{Vertices: vs, Indices: indices}
}

func build(t *testing.T, src halfedge.Source) *halfedge.Mesh {
	t.Helper()
	m, _, err := halfedge.Build(src)
	require.NoError(t, err)
	require.NoError(t, m.Check())
	return m
}

func cube(t *testing.T) *halfedge.Mesh {
	var ps []math.Vec3
	for i := 0; i < 8; i++ {
		ps = append(ps, math.Vec3{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)})
	}
	return build(t, source(ps,
		0, 2, 3, 0, 3, 1,
		4, 5, 7, 4, 7, 6,
		0, 1, 5, 0, 5, 4,
		2, 6, 7, 2, 7, 3,
		0, 4, 6, 0, 6, 2,
		1, 3, 7, 1, 7, 5,
	))
}

// octahedron vertices: 0:+x 1:-x 2:+y 3:-y 4:+z 5:-z
func octahedron(t *testing.T) *halfedge.Mesh {
	ps := []math.Vec3{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1}}
	return build(t, source(ps,
		0, 2, 4, 2, 1, 4, 1, 3, 4, 3, 0, 4,
		2, 0, 5, 1, 2, 5, 3, 1, 5, 0, 3, 5,
	))
}

func tetrahedron(t *testing.T) *halfedge.Mesh {
	ps := []math.Vec3{{}, {X: 1}, {Y: 1}, {Z: 1}}
	return build(t, source(ps, 0, 2, 1, 0, 1, 3, 0, 3, 2, 1, 2, 3))
}

// grid is an n x n unit-cell grid in the z=0 plane facing +z.
func grid(t *testing.T, n int) *halfedge.Mesh {
	var ps []math.Vec3
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			ps = append(ps, math.Vec3{X: float64(i), Y: float64(j)})
		}
	}
	var idx []uint32
	at := func(i, j int) uint32 { return uint32(j*(n+1) + i) }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v00, v10, v11, v01 := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
			idx = append(idx, v00, v10, v11, v00, v11, v01)
		}
	}
	return build(t, source(ps, idx...))
}

func edgeBetween(t *testing.T, m *halfedge.Mesh, a, b halfedge.VertexID) halfedge.HalfEdgeID {
	t.Helper()
	for i := range m.HalfEdges {
		e := halfedge.HalfEdgeID(i)
		if m.Start(e) == a && m.End(e) == b {
			return e
		}
	}
	t.Fatalf("no half-edge %d->%d", a, b)
	return halfedge.NoHalfEdge
}

func requireCompactValid(t *testing.T, m *halfedge.Mesh) *halfedge.Buffers {
	t.Helper()
	b := m.Compact()
	require.Equal(t, m.ActiveFaceCount(), b.TriangleCount())
	for _, idx := range b.Indices {
		require.Less(t, int(idx), b.VertexCount())
	}
	return b
}

func TestCollapseOctahedronEdge(t *testing.T) {
	m := octahedron(t)
	c, ok := NewCandidate(m, edgeBetween(t, m, 0, 2))
	require.True(t, ok)
	require.Equal(t, halfedge.VertexID(4), c.C)
	require.Equal(t, halfedge.VertexID(5), c.D)
	require.False(t, c.IsBoundary())

	c.Place(m, PlaceKeepStart)
	require.Equal(t, Accepted, Validate(m, c, DefaultOptions()))

	touched := Collapse(m, c)
	require.NoError(t, m.Check())
	require.Equal(t, halfedge.VertexID(0), touched[0])
	require.Equal(t, 6, m.ActiveFaceCount())
	require.Equal(t, 5, m.ActiveVertexCount())
	require.Equal(t, halfedge.Deleted, m.Vertices[2].Status)
	require.Equal(t, math.Vec3{X: 1}, m.Vertices[0].Position)
	require.ElementsMatch(t, []halfedge.VertexID{1, 3, 4, 5}, m.Neighbors(0))

	for i := range m.HalfEdges {
		e := halfedge.HalfEdgeID(i)
		if m.HalfEdges[e].Status != halfedge.Active {
			continue
		}
		require.NotEqual(t, halfedge.NoHalfEdge, m.Twin(e), "closed mesh grew a boundary at %d", e)
		require.NotEqual(t, halfedge.VertexID(2), m.Start(e))
	}

	b := requireCompactValid(t, m)
	require.Equal(t, 5, b.VertexCount())
}

func TestValidateRejections(t *testing.T) {
	t.Run("closed minimum", func(t *testing.T) {
		m := tetrahedron(t)
		c, ok := NewCandidate(m, edgeBetween(t, m, 0, 1))
		require.True(t, ok)
		c.Place(m, PlaceMidpoint)
		require.Equal(t, RejectMinimum, Validate(m, c, DefaultOptions()))
	})

	t.Run("pinch", func(t *testing.T) {
		// Two quads side by side; the shared edge 1-4 joins two boundary
		// vertices.
		ps := []math.Vec3{{}, {X: 1}, {X: 2}, {Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}}
		m := build(t, source(ps, 0, 1, 4, 0, 4, 3, 1, 2, 5, 1, 5, 4))
		c, ok := NewCandidate(m, edgeBetween(t, m, 1, 4))
		require.True(t, ok)
		c.Place(m, PlaceMidpoint)
		require.Equal(t, RejectPinch, Validate(m, c, DefaultOptions()))
	})

	t.Run("ear", func(t *testing.T) {
		ps := []math.Vec3{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}
		m := build(t, source(ps, 0, 1, 2, 0, 2, 3))
		c, ok := NewCandidate(m, edgeBetween(t, m, 0, 2))
		require.True(t, ok)
		c.Place(m, PlaceMidpoint)
		require.Equal(t, RejectLink, Validate(m, c, DefaultOptions()))
	})

	t.Run("locked", func(t *testing.T) {
		ps := []math.Vec3{{}, {X: 1}, {X: 1, Y: 1}, {X: -1}, {X: -1, Y: -1}}
		m := build(t, source(ps, 0, 1, 2, 0, 3, 4))
		c, ok := NewCandidate(m, edgeBetween(t, m, 0, 1))
		require.True(t, ok)
		require.Equal(t, RejectLocked, Validate(m, c, DefaultOptions()))
	})

	t.Run("preserve boundary", func(t *testing.T) {
		m := grid(t, 2)
		// Vertex 4 is the grid center, vertex 1 the bottom middle.
		c, ok := NewCandidate(m, edgeBetween(t, m, 4, 1))
		require.True(t, ok)
		opts := DefaultOptions()
		opts.PreserveBoundary = true
		c.Place(m, PlaceKeepStart)
		require.Equal(t, RejectBoundary, Validate(m, c, opts))

		c, ok = NewCandidate(m, edgeBetween(t, m, 1, 4))
		require.True(t, ok)
		c.Place(m, PlaceKeepStart)
		require.Equal(t, Accepted, Validate(m, c, opts))
		c.Place(m, PlaceMidpoint)
		require.Equal(t, RejectBoundary, Validate(m, c, opts))
	})

	t.Run("normal flip", func(t *testing.T) {
		m := grid(t, 2)
		c, ok := NewCandidate(m, edgeBetween(t, m, 1, 4))
		require.True(t, ok)
		// Dragging the center past the left edge folds its faces over.
		c.PlaceAt(m, math.Vec3{X: -1, Y: 3})
		require.Equal(t, RejectNormalFlip, Validate(m, c, DefaultOptions()))
	})

	t.Run("stale", func(t *testing.T) {
		m := octahedron(t)
		c, ok := NewCandidate(m, edgeBetween(t, m, 0, 2))
		require.True(t, ok)
		m.DeleteFace(c.F0)
		require.Equal(t, RejectStale, Validate(m, c, DefaultOptions()))
		_, ok = NewCandidate(m, c.Edge)
		require.False(t, ok)
	})
}

func TestEngineClosedCubeStaysManifold(t *testing.T) {
	for _, policy := range []Policy{PolicyShortestEdge, PolicyQuadric} {
		t.Run(string(policy), func(t *testing.T) {
			m := cube(t)
			opts := DefaultOptions()
			opts.Policy = policy
			opts.MaxNormalDeviation = 180
			opts.Verify = true
			eng, err := New(m, opts)
			require.NoError(t, err)

			prev := m.ActiveFaceCount()
			collapses := 0
			for _, target := range []int{10, 8, 6, 4} {
				res, err := eng.Run(Target{Triangles: target})
				require.NoError(t, err)
				collapses += res.Collapses

				require.LessOrEqual(t, res.Triangles, prev)
				require.Zero(t, res.Triangles%2, "closed triangle mesh must have an even face count")
				require.GreaterOrEqual(t, res.Triangles, 4)
				prev = res.Triangles

				for i := range m.HalfEdges {
					e := halfedge.HalfEdgeID(i)
					if m.HalfEdges[e].Status == halfedge.Active {
						tw := m.Twin(e)
						require.NotEqual(t, halfedge.NoHalfEdge, tw)
						require.Equal(t, e, m.Twin(tw))
					}
				}
				requireCompactValid(t, m)
				if res.State == StateExhausted {
					break
				}
			}
			require.Positive(t, collapses)
		})
	}
}

func TestEngineExhaustsTetrahedron(t *testing.T) {
	m := tetrahedron(t)
	eng, err := New(m, DefaultOptions())
	require.NoError(t, err)

	res, err := eng.Run(Target{Triangles: 1})
	require.NoError(t, err)
	require.Equal(t, StateExhausted, res.State)
	require.Equal(t, 4, res.Triangles)
	require.Zero(t, res.Collapses)
	require.Positive(t, res.Rejections[RejectMinimum])
	require.Equal(t, res.Rejections[RejectMinimum], res.Rejections.Total())

	res, err = eng.Run(Target{Triangles: 1})
	require.NoError(t, err)
	require.Equal(t, StateExhausted, res.State)
	require.Equal(t, StateExhausted, eng.State())
}

func TestEngineGridTargets(t *testing.T) {
	for _, policy := range []Policy{PolicyShortestEdge, PolicyQuadric} {
		t.Run(string(policy), func(t *testing.T) {
			m := grid(t, 8)
			opts := DefaultOptions()
			opts.Policy = policy
			opts.Verify = true
			eng, err := New(m, opts)
			require.NoError(t, err)
			require.Equal(t, 128, m.ActiveFaceCount())

			res, err := eng.Run(Target{Triangles: 100})
			require.NoError(t, err)
			require.Less(t, res.Triangles, 128)
			if res.State == StateTargetReached {
				require.LessOrEqual(t, res.Triangles, 100)
			}

			first := res.Triangles
			res, err = eng.Run(Target{Triangles: 32})
			require.NoError(t, err)
			require.LessOrEqual(t, res.Triangles, first)

			b := requireCompactValid(t, m)
			for i := 0; i+2 < len(b.Normals); i += 3 {
				require.InDelta(t, 1.0, b.Normals[i+2], 1e-5, "surface folded over")
			}
		})
	}
}

func TestEnginePreserveBoundary(t *testing.T) {
	m := grid(t, 8)
	opts := DefaultOptions()
	opts.PreserveBoundary = true
	opts.Verify = true
	eng, err := New(m, opts)
	require.NoError(t, err)

	res, err := eng.Run(Target{})
	require.NoError(t, err)
	require.Equal(t, StateExhausted, res.State)
	require.Less(t, res.Triangles, 128)

	box := requireCompactValid(t, m).Bounds()
	require.Equal(t, math.Vec3{}, box.Min)
	require.Equal(t, math.Vec3{X: 8, Y: 8}, box.Max)
}

func TestEngineMaxError(t *testing.T) {
	m := grid(t, 4)
	eng, err := New(m, DefaultOptions())
	require.NoError(t, err)

	res, err := eng.Run(Target{MaxError: 0.5})
	require.NoError(t, err)
	require.Equal(t, StateTargetReached, res.State)
	require.Zero(t, res.Collapses)
	require.Equal(t, 32, res.Triangles)

	res, err = eng.Run(Target{MaxError: 1.01})
	require.NoError(t, err)
	require.Positive(t, res.Collapses)
	require.LessOrEqual(t, res.MaxCost, 1.01)
}

func TestNewRejectsUnknownOptions(t *testing.T) {
	_, err := New(grid(t, 1), Options{Policy: "nope"})
	require.ErrorIs(t, err, ErrUnknownPolicy)

	_, err = New(grid(t, 1), Options{Placement: "nope"})
	require.ErrorIs(t, err, ErrUnknownPlacement)

	p, err := ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicyShortestEdge, p)
	p, err = ParsePolicy("quadric")
	require.NoError(t, err)
	require.Equal(t, PolicyQuadric, p)

	pl, err := ParsePlacement("")
	require.NoError(t, err)
	require.Equal(t, PlaceMidpoint, pl)
	_, err = ParsePlacement("centroid")
	require.ErrorIs(t, err, ErrUnknownPlacement)
}

func TestQuadricOptimum(t *testing.T) {
	q := planeQuadric(math.Vec3{X: 1}, -1, 1).
		add(planeQuadric(math.Vec3{Y: 1}, -2, 1)).
		add(planeQuadric(math.Vec3{Z: 1}, -3, 1))

	p, ok := q.optimum()
	require.True(t, ok)
	require.InDelta(t, 1, p.X, 1e-9)
	require.InDelta(t, 2, p.Y, 1e-9)
	require.InDelta(t, 3, p.Z, 1e-9)
	require.InDelta(t, 0, q.eval(p), 1e-9)
	require.InDelta(t, 14, q.eval(math.Vec3{}), 1e-9)

	_, ok = planeQuadric(math.Vec3{Z: 1}, 0, 1).optimum()
	require.False(t, ok)
}

func TestRejectionString(t *testing.T) {
	require.Equal(t, "normal_flip", RejectNormalFlip.String())
	require.Equal(t, "accepted", Accepted.String())
	require.Equal(t, "unknown", Rejection(99).String())
}
