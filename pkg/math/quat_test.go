package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()

	length := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)
	if math.Abs(length-1.0) > 1e-9 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatToMat4(t *testing.T) {
	// Identity quaternion should produce identity matrix
	m := QuatIdentity().ToMat4()

	identity := Identity()
	for i := 0; i < 16; i++ {
		if math.Abs(m[i]-identity[i]) > 1e-9 {
			t.Errorf("Identity quat should produce identity matrix, element %d: got %v, want %v", i, m[i], identity[i])
		}
	}
}

func TestQuatRotateY90(t *testing.T) {
	m := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, math.Pi/2).ToMat4()
	got := m.TransformVec3(Vec3{1, 0, 0})

	// A quarter turn about +Y takes +X to -Z.
	if math.Abs(got.X) > 1e-9 || math.Abs(got.Y) > 1e-9 || math.Abs(got.Z+1) > 1e-9 {
		t.Errorf("quarter turn: got %v, want (0, 0, -1)", got)
	}
}

func TestQuatMul(t *testing.T) {
	half := QuatFromAxisAngle(Vec3{X: 0, Y: 0, Z: 1}, math.Pi/4)
	full := half.Mul(half)
	want := QuatFromAxisAngle(Vec3{X: 0, Y: 0, Z: 1}, math.Pi/2)
	if math.Abs(full.W-want.W) > 1e-9 || math.Abs(full.Z-want.Z) > 1e-9 {
		t.Errorf("Mul: got %+v, want %+v", full, want)
	}
}
