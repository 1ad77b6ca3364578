package math

import "testing"

func TestOctantMapping(t *testing.T) {
	want := map[int][3]int{
		0: {0, 0, 0},
		1: {1, 0, 0},
		2: {1, 1, 0},
		3: {0, 1, 0},
		4: {0, 0, 1},
		5: {1, 0, 1},
		6: {1, 1, 1},
		7: {0, 1, 1},
	}
	for i, off := range want {
		dx, dy, dz := OctantOffset(i)
		if dx != off[0] || dy != off[1] || dz != off[2] {
			t.Errorf("OctantOffset(%d) = (%d,%d,%d), want %v", i, dx, dy, dz, off)
		}
		if got := OctantIndex(off[0], off[1], off[2]); got != i {
			t.Errorf("OctantIndex(%v) = %d, want %d", off, got, i)
		}
	}
}

func TestOctantBoxesPartitionParent(t *testing.T) {
	parent := AABB{Min: Vec3{-2, 0, 4}, Max: Vec3{6, 8, 12}}

	var volume float64
	for i := 0; i < 8; i++ {
		child := parent.Octant(i)
		volume += child.Volume()

		for j := i + 1; j < 8; j++ {
			other := parent.Octant(j)
			overlap := AABB{Min: child.Min.Max(other.Min), Max: child.Max.Min(other.Max)}
			if s := overlap.Size(); s.X > 0 && s.Y > 0 && s.Z > 0 {
				t.Errorf("octants %d and %d overlap in volume: %v", i, j, overlap)
			}
		}
	}
	if volume != parent.Volume() {
		t.Errorf("children volume %f != parent volume %f", volume, parent.Volume())
	}

	// Octant 6 is the +x+y+z corner.
	if got := parent.Octant(6); got.Min != parent.Center() || got.Max != parent.Max {
		t.Errorf("Octant(6) = %v, want upper corner", got)
	}
}

func TestAABBExtendUnion(t *testing.T) {
	b := EmptyAABB()
	if !b.IsEmpty() {
		t.Fatal("EmptyAABB should be empty")
	}
	b = b.Extend(Vec3{1, 2, 3}).Extend(Vec3{-1, 5, 0})
	if b.Min != (Vec3{-1, 2, 0}) || b.Max != (Vec3{1, 5, 3}) {
		t.Errorf("Extend: got %v", b)
	}
	u := EmptyAABB().Union(b)
	if u != b {
		t.Errorf("Union with empty: got %v, want %v", u, b)
	}
}

func TestAABBIntersects(t *testing.T) {
	a := AABB{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	tests := []struct {
		name string
		b    AABB
		want bool
	}{
		{"overlap", AABB{Min: Vec3{0.5, 0.5, 0.5}, Max: Vec3{2, 2, 2}}, true},
		{"touching", AABB{Min: Vec3{1, 0, 0}, Max: Vec3{2, 1, 1}}, true},
		{"disjoint", AABB{Min: Vec3{1.1, 0, 0}, Max: Vec3{2, 1, 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAABBCube(t *testing.T) {
	c := AABB{Min: Vec3{0, 0, 0}, Max: Vec3{4, 1, 2}}.Cube()
	if s := c.Size(); s.X != 4 || s.Y != 4 || s.Z != 4 {
		t.Errorf("Cube size = %v, want 4x4x4", s)
	}
}
