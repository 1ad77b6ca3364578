package math

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// EmptyAABB returns an inverted box that any Extend call will replace.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no point.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend returns the box grown to include p.
func (b AABB) Extend(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(other AABB) AABB {
	if other.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return other
	}
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Center returns the exact midpoint of the box.
func (b AABB) Center() Vec3 {
	return Vec3{
		(b.Min.X + b.Max.X) / 2,
		(b.Min.Y + b.Max.Y) / 2,
		(b.Min.Z + b.Max.Z) / 2,
	}
}

// Size returns the extent along each axis.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Volume returns the box volume, or 0 for an empty box.
func (b AABB) Volume() float64 {
	if b.IsEmpty() {
		return 0
	}
	s := b.Size()
	return s.X * s.Y * s.Z
}

// MinExtent returns the smallest axis extent.
func (b AABB) MinExtent() float64 {
	s := b.Size()
	return math.Min(s.X, math.Min(s.Y, s.Z))
}

// MaxExtent returns the largest axis extent.
func (b AABB) MaxExtent() float64 {
	s := b.Size()
	return math.Max(s.X, math.Max(s.Y, s.Z))
}

// Contains reports whether p lies inside the box (boundary inclusive).
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersects reports whether two boxes overlap. Touching boxes intersect.
func (b AABB) Intersects(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// Cube returns the smallest cube sharing b's minimum corner that contains b.
func (b AABB) Cube() AABB {
	e := b.MaxExtent()
	return AABB{Min: b.Min, Max: b.Min.Add(Vec3{e, e, e})}
}

// Octant returns the i-th child box obtained by splitting b at its midpoint.
// The index follows OctantOffset.
func (b AABB) Octant(i int) AABB {
	mid := b.Center()
	dx, dy, dz := OctantOffset(i)
	child := AABB{Min: b.Min, Max: mid}
	if dx == 1 {
		child.Min.X, child.Max.X = mid.X, b.Max.X
	}
	if dy == 1 {
		child.Min.Y, child.Max.Y = mid.Y, b.Max.Y
	}
	if dz == 1 {
		child.Min.Z, child.Max.Z = mid.Z, b.Max.Z
	}
	return child
}

// Octant numbering. The lower z layer runs counter-clockwise from -x-y:
//
//	0 = -x-y, 1 = +x-y, 2 = +x+y, 3 = -x+y
//
// and the upper layer (+z) repeats it as 4..7. Every place that turns an
// offset into a child index, or back, must go through these two functions.
var octantXY = [2][2]int{
	{0, 3}, // dx=0: dy=0, dy=1
	{1, 2}, // dx=1: dy=0, dy=1
}

// OctantIndex maps per-axis offsets (0 = lower half, 1 = upper half) to a child index.
func OctantIndex(dx, dy, dz int) int {
	return octantXY[dx&1][dy&1] + 4*(dz&1)
}

// OctantOffset is the inverse of OctantIndex.
func OctantOffset(i int) (dx, dy, dz int) {
	dz = (i >> 2) & 1
	switch i & 3 {
	case 0:
		return 0, 0, dz
	case 1:
		return 1, 0, dz
	case 2:
		return 1, 1, dz
	default:
		return 0, 1, dz
	}
}
