package octree

import (
	"sync"

	"github.com/Faultbox/lodtiler/pkg/math"
)

// Primitive is the geometry a FaceReference points back into.
type Primitive interface {
	// Position returns the position of vertex i.
	Position(i uint32) math.Vec3
}

// FaceReference is one triangle of a Primitive. It owns no geometry.
// The bounding box and centroid are computed on first access.
type FaceReference struct {
	Primitive Primitive
	Indices   [3]uint32

	once     sync.Once
	box      math.AABB
	centroid math.Vec3
}

// NewFaceReference returns a reference to triangle (a, b, c) of p.
func NewFaceReference(p Primitive, a, b, c uint32) *FaceReference {
	return &FaceReference{Primitive: p, Indices: [3]uint32{a, b, c}}
}

// Corners returns the three vertex positions.
func (f *FaceReference) Corners() [3]math.Vec3 {
	return [3]math.Vec3{
		f.Primitive.Position(f.Indices[0]),
		f.Primitive.Position(f.Indices[1]),
		f.Primitive.Position(f.Indices[2]),
	}
}

func (f *FaceReference) derive() {
	f.once.Do(func() {
		c := f.Corners()
		f.box = math.EmptyAABB().Extend(c[0]).Extend(c[1]).Extend(c[2])
		f.centroid = c[0].Add(c[1]).Add(c[2]).Scale(1.0 / 3.0)
	})
}

// BoundingBox returns the triangle's axis-aligned bounds.
func (f *FaceReference) BoundingBox() math.AABB {
	f.derive()
	return f.box
}

// Centroid returns the mean of the three corners.
func (f *FaceReference) Centroid() math.Vec3 {
	f.derive()
	return f.centroid
}

// FacesBounds returns the union of the faces' bounding boxes.
func FacesBounds(faces []*FaceReference) math.AABB {
	box := math.EmptyAABB()
	for _, f := range faces {
		box = box.Union(f.BoundingBox())
	}
	return box
}
