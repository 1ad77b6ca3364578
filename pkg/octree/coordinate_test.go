package octree

import (
	"reflect"
	"testing"
)

func TestCoordinateParentFloors(t *testing.T) {
	tests := []struct {
		in   Coordinate
		want Coordinate
	}{
		{Coordinate{1, 1, 0, 1}, Coordinate{0, 0, 0, 0}},
		{Coordinate{2, 3, 2, 1}, Coordinate{1, 1, 1, 0}},
		{Coordinate{1, -1, 0, 0}, Coordinate{0, -1, 0, 0}},
		{Coordinate{3, -3, -4, 5}, Coordinate{2, -2, -2, 2}},
	}
	for _, tt := range tests {
		got, ok := tt.in.Parent()
		if !ok {
			t.Fatalf("%v.Parent() reported no parent", tt.in)
		}
		if got != tt.want {
			t.Errorf("%v.Parent() = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, ok := (Coordinate{}).Parent(); ok {
		t.Error("root coordinate should have no parent")
	}
}

func TestCoordinateFullPath(t *testing.T) {
	c := Coordinate{2, 3, 1, 2}
	want := []Coordinate{
		{0, 0, 0, 0},
		{1, 1, 0, 1},
		{2, 3, 1, 2},
	}
	if got := c.FullPath(); !reflect.DeepEqual(got, want) {
		t.Errorf("FullPath() = %v, want %v", got, want)
	}

	root := Coordinate{}
	if got := root.FullPath(); len(got) != 1 || got[0] != root {
		t.Errorf("root FullPath() = %v, want [%v]", got, root)
	}
}

func TestCoordinateChildOctantRoundTrip(t *testing.T) {
	parents := []Coordinate{{}, {1, 1, 0, 1}, {3, 5, 2, 7}}
	for _, p := range parents {
		for i := 0; i < 8; i++ {
			child := p.Child(i)
			if child.Octant() != i {
				t.Errorf("%v.Child(%d).Octant() = %d", p, i, child.Octant())
			}
			if back, _ := child.Parent(); back != p {
				t.Errorf("%v.Child(%d).Parent() = %v", p, i, back)
			}
		}
	}
}

func TestCoordinateNeighborsOrder(t *testing.T) {
	c := Coordinate{2, 1, 1, 1}
	n := c.Neighbors()
	want := [6]Coordinate{
		NeighborLeft:   {2, 0, 1, 1},
		NeighborRight:  {2, 2, 1, 1},
		NeighborFront:  {2, 1, 0, 1},
		NeighborRear:   {2, 1, 2, 1},
		NeighborTop:    {2, 1, 1, 2},
		NeighborBottom: {2, 1, 1, 0},
	}
	if n != want {
		t.Errorf("Neighbors() = %v, want %v", n, want)
	}
}

func TestCoordinateString(t *testing.T) {
	if got := (Coordinate{3, -1, 2, 0}).String(); got != "3/-1/2/0" {
		t.Errorf("String() = %q", got)
	}
}
