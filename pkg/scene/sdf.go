package scene

import (
	"fmt"
	gomath "math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/Faultbox/lodtiler/pkg/math"
)

// FromSDF tessellates a signed distance solid with uniform marching cubes
// over cells voxels along its longest axis. Corners shared between
// triangles are merged so the result is an indexed surface. No normals are
// stored; they are derived from the faces after simplification.
func FromSDF(name string, s sdf.SDF3, cells int) *Mesh {
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	m := &Mesh{
		Name:    name,
		Indices: make([]uint32, 0, len(triangles)*3),
	}
	index := make(map[v3.Vec]uint32, len(triangles))
	for _, tri := range triangles {
		for j := 0; j < 3; j++ {
			v := tri[j]
			idx, ok := index[v]
			if !ok {
				idx = uint32(len(m.Positions))
				index[v] = idx
				m.Positions = append(m.Positions, math.Vec3{X: v.X, Y: v.Y, Z: v.Z})
			}
			m.Indices = append(m.Indices, idx)
		}
	}
	return m
}

// Demo builds a small procedural scene: a plate with a bored hole placed
// three times, the last copy mirrored, plus a free-standing post turned 45
// degrees and leaning 10 degrees toward the plates.
func Demo(cells int) (*Scene, error) {
	plate, err := sdf.Box3D(v3.Vec{X: 4, Y: 4, Z: 1}, 0.1)
	if err != nil {
		return nil, fmt.Errorf("demo plate: %w", err)
	}
	hole, err := sdf.Cylinder3D(2, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("demo hole: %w", err)
	}
	post, err := sdf.Cylinder3D(6, 0.5, 0.1)
	if err != nil {
		return nil, fmt.Errorf("demo post: %w", err)
	}
	top, err := sdf.Box3D(v3.Vec{X: 1.5, Y: 1.5, Z: 0.5}, 0)
	if err != nil {
		return nil, fmt.Errorf("demo top: %w", err)
	}
	column := sdf.Union3D(post, sdf.Transform3D(top, sdf.Translate3d(v3.Vec{Z: 3})))

	s := &Scene{
		Meshes: []*Mesh{
			FromSDF("plate", sdf.Difference3D(plate, hole), cells),
			FromSDF("column", column, cells),
		},
	}

	root := NewNode("root")
	for i, x := range []float64{-5, 0, 5} {
		n := NewNode(fmt.Sprintf("plate%d", i), 0)
		n.Transform = math.Translate(x, 0, 0)
		if i == 2 {
			n.Transform = n.Transform.Mul(math.Scale(-1, 1, 1))
		}
		root.Children = append(root.Children, n)
	}
	turn := math.QuatFromAxisAngle(math.Vec3{Z: 1}, gomath.Pi/4)
	lean := math.QuatFromAxisAngle(math.Vec3{X: 1}, -gomath.Pi/18)
	col := NewNode("column", 1)
	col.Transform = math.FromTRS(
		math.Vec3{Y: 5, Z: 3},
		lean.Mul(turn),
		math.Vec3{X: 1, Y: 1, Z: 1},
	)
	root.Children = append(root.Children, col)
	s.Roots = []*Node{root}
	return s, nil
}
