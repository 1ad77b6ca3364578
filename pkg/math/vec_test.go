package math

import (
	"math"
	"testing"
)

func TestVec2Add(t *testing.T) {
	got := Vec2{1, 2}.Add(Vec2{3, 4})
	want := Vec2{4, 6}
	if got != want {
		t.Errorf("Vec2.Add() = %v, want %v", got, want)
	}
}

func TestVec2Length(t *testing.T) {
	if got := (Vec2{3, 4}).Length(); got != 5 {
		t.Errorf("Vec2.Length() = %v, want 5", got)
	}
}

func TestVec3Cross(t *testing.T) {
	got := Vec3{1, 0, 0}.Cross(Vec3{0, 1, 0})
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	l := Vec3{3, 4, 12}.Normalize().Length()
	if math.Abs(l-1) > 1e-12 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero vector Normalize() = %v, want zero", got)
	}
}

func TestVec3IsFinite(t *testing.T) {
	tests := []struct {
		v    Vec3
		want bool
	}{
		{Vec3{1, 2, 3}, true},
		{Vec3{math.NaN(), 0, 0}, false},
		{Vec3{0, math.Inf(1), 0}, false},
		{Vec3{0, 0, math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		if got := tt.v.IsFinite(); got != tt.want {
			t.Errorf("%v.IsFinite() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestTriangleArea(t *testing.T) {
	area := TriangleArea(Vec3{0, 0, 0}, Vec3{2, 0, 0}, Vec3{0, 2, 0})
	if area != 2 {
		t.Errorf("TriangleArea = %v, want 2", area)
	}
	if a := TriangleArea(Vec3{0, 0, 0}, Vec3{1, 1, 1}, Vec3{2, 2, 2}); a != 0 {
		t.Errorf("collinear TriangleArea = %v, want 0", a)
	}
}

func TestDegenerateTriangle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Vec3
		want    bool
	}{
		{"right", Vec3{}, Vec3{X: 1}, Vec3{Y: 1}, false},
		{"tiny", Vec3{}, Vec3{X: 1e-6}, Vec3{Y: 1e-6}, false},
		{"collinear", Vec3{}, Vec3{X: 1}, Vec3{X: 2}, true},
		{"repeated", Vec3{X: 1}, Vec3{X: 1}, Vec3{Y: 1}, true},
		{"sliver", Vec3{}, Vec3{X: 1e6}, Vec3{X: 2e6, Y: 1e-9}, true},
	}
	for _, tt := range tests {
		if got := DegenerateTriangle(tt.a, tt.b, tt.c); got != tt.want {
			t.Errorf("%s: DegenerateTriangle = %v, want %v", tt.name, got, tt.want)
		}
	}
}
