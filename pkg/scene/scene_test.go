package scene

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/Faultbox/lodtiler/pkg/halfedge"
	"github.com/Faultbox/lodtiler/pkg/math"
)

func quad() *Mesh {
	return &Mesh{
		Name: "quad",
		Positions: []math.Vec3{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

func TestFlattenTransforms(t *testing.T) {
	root := NewNode("root")
	root.Transform = math.Translate(10, 0, 0)
	child := NewNode("child", 0)
	child.Transform = math.Translate(0, 5, 0)
	root.Children = []*Node{child}

	s := &Scene{Meshes: []*Mesh{quad()}, Roots: []*Node{root}}
	flat, err := Flatten(s)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	if len(flat.Instances) != 1 || len(flat.Faces) != 2 {
		t.Fatalf("got %d instances, %d faces; want 1, 2", len(flat.Instances), len(flat.Faces))
	}
	box := flat.Bounds()
	if box.Min != (math.Vec3{X: 10, Y: 5}) || box.Max != (math.Vec3{X: 11, Y: 6}) {
		t.Errorf("Bounds() = %v", box)
	}
	if got := flat.Instances[0].Name; got != "child/quad" {
		t.Errorf("instance name = %q", got)
	}
	if s.TriangleCount() != 2 {
		t.Errorf("TriangleCount() = %d, want 2", s.TriangleCount())
	}
}

func TestFlattenSkipsBadTriangles(t *testing.T) {
	m := quad()
	m.Positions = append(m.Positions, math.Vec3{Z: gomath.NaN()})
	m.Indices = append(m.Indices, 0, 1, 4, 1, 1, 2)

	flat, err := Flatten(&Scene{Meshes: []*Mesh{m}, Roots: []*Node{NewNode("n", 0)}})
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	if len(flat.Faces) != 2 {
		t.Errorf("faces = %d, want 2", len(flat.Faces))
	}
	if flat.SkippedNonFinite != 1 || flat.SkippedDegenerate != 1 {
		t.Errorf("skipped = %d non-finite, %d degenerate; want 1, 1", flat.SkippedNonFinite, flat.SkippedDegenerate)
	}
}

func TestFlattenSkipsCollinearTriangles(t *testing.T) {
	m := &Mesh{
		Name:      "sliver",
		Positions: []math.Vec3{{}, {X: 1}, {X: 2}, {Y: 1}},
		Indices:   []uint32{0, 1, 2, 1, 0, 3},
	}
	flat, err := Flatten(&Scene{Meshes: []*Mesh{m}, Roots: []*Node{NewNode("n", 0)}})
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	if len(flat.Faces) != 1 {
		t.Errorf("faces = %d, want 1", len(flat.Faces))
	}
	if flat.SkippedDegenerate != 1 {
		t.Errorf("skipped degenerate = %d, want 1", flat.SkippedDegenerate)
	}
}

func TestFlattenMirrorKeepsOrientation(t *testing.T) {
	n := NewNode("mirror", 0)
	n.Transform = math.Scale(-1, 1, 1)
	flat, err := Flatten(&Scene{Meshes: []*Mesh{quad()}, Roots: []*Node{n}})
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	for _, f := range flat.Faces {
		c := f.Corners()
		if nz := math.TriangleNormal(c[0], c[1], c[2]).Z; nz <= 0 {
			t.Errorf("mirrored face normal z = %v, want > 0", nz)
		}
	}
}

func TestFlattenErrors(t *testing.T) {
	tests := []struct {
		name  string
		scene func() *Scene
		want  error
	}{
		{
			name: "missing mesh",
			scene: func() *Scene {
				return &Scene{Meshes: []*Mesh{quad()}, Roots: []*Node{NewNode("n", 3)}}
			},
			want: ErrMeshIndex,
		},
		{
			name: "index range",
			scene: func() *Scene {
				m := quad()
				m.Indices[2] = 7
				return &Scene{Meshes: []*Mesh{m}, Roots: []*Node{NewNode("n", 0)}}
			},
			want: ErrVertexIndex,
		},
		{
			name: "attribute length",
			scene: func() *Scene {
				m := quad()
				m.Normals = []math.Vec3{{Z: 1}}
				return &Scene{Meshes: []*Mesh{m}, Roots: []*Node{NewNode("n", 0)}}
			},
			want: ErrAttrLength,
		},
		{
			name: "cycle",
			scene: func() *Scene {
				a := NewNode("a", 0)
				b := NewNode("b")
				a.Children = []*Node{b}
				b.Children = []*Node{a}
				return &Scene{Meshes: []*Mesh{quad()}, Roots: []*Node{a}}
			},
			want: ErrCycle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Flatten(tt.scene()); !errors.Is(err, tt.want) {
				t.Errorf("Flatten() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLeafSourceSharesVertices(t *testing.T) {
	m := quad()
	m.Normals = []math.Vec3{{Z: 1}, {Z: 1}, {Z: 1}, {Z: 1}}
	flat, err := Flatten(&Scene{Meshes: []*Mesh{m}, Roots: []*Node{NewNode("a", 0), NewNode("b", 0)}})
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	// Two instances at the same place stay separate vertices per instance.
	src := LeafSource(flat.Faces)
	if len(src.Vertices) != 8 || len(src.Indices) != 12 {
		t.Fatalf("LeafSource() = %d vertices, %d indices; want 8, 12", len(src.Vertices), len(src.Indices))
	}
	if src.Vertices[0].Attr.Mask&halfedge.HasNormal == 0 {
		t.Error("normals not carried into the source")
	}

	src = LeafSource(flat.Faces[:2])
	mesh, stats, err := halfedge.Build(src)
	if err != nil {
		t.Fatalf("halfedge.Build() error = %v", err)
	}
	if stats.Vertices != 4 || mesh.ActiveFaceCount() != 2 {
		t.Errorf("built %d vertices, %d faces; want 4, 2", stats.Vertices, mesh.ActiveFaceCount())
	}
}

func TestFromSDFBox(t *testing.T) {
	box, err := sdf.Box3D(v3.Vec{X: 2, Y: 2, Z: 2}, 0)
	if err != nil {
		t.Fatalf("Box3D() error = %v", err)
	}
	m := FromSDF("box", box, 16)
	if m.TriangleCount() == 0 {
		t.Fatal("no triangles produced")
	}
	if len(m.Positions) >= len(m.Indices) {
		t.Errorf("corners were not shared: %d positions for %d indices", len(m.Positions), len(m.Indices))
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	for _, p := range m.Positions {
		if !p.IsFinite() || gomath.Abs(p.X) > 1.5 || gomath.Abs(p.Y) > 1.5 || gomath.Abs(p.Z) > 1.5 {
			t.Fatalf("vertex %v outside the box", p)
		}
	}
}

func TestDemoScene(t *testing.T) {
	s, err := Demo(12)
	if err != nil {
		t.Fatalf("Demo() error = %v", err)
	}
	flat, err := Flatten(s)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	if len(flat.Instances) != 4 {
		t.Errorf("instances = %d, want 4", len(flat.Instances))
	}
	if len(flat.Faces) == 0 {
		t.Fatal("demo scene has no faces")
	}
	if b := flat.Bounds(); b.Size().X < 10 {
		t.Errorf("demo bounds %v narrower than the plate row", b)
	}
}
