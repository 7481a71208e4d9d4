package core

import "math"

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns an inverted box that unions correctly with any point
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: NewVec3(inf, inf, inf),
		Max: NewVec3(-inf, -inf, -inf),
	}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	bounds := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		bounds = bounds.AddPoint(p)
	}
	return bounds
}

// AddPoint returns the AABB grown to contain the point
func (aabb AABB) AddPoint(p Vec3) AABB {
	return AABB{
		Min: Vec3{math.Min(aabb.Min.X, p.X), math.Min(aabb.Min.Y, p.Y), math.Min(aabb.Min.Z, p.Z)},
		Max: Vec3{math.Max(aabb.Max.X, p.X), math.Max(aabb.Max.Y, p.Y), math.Max(aabb.Max.Z, p.Z)},
	}
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	return AABB{
		Min: Vec3{math.Min(aabb.Min.X, other.Min.X), math.Min(aabb.Min.Y, other.Min.Y), math.Min(aabb.Min.Z, other.Min.Z)},
		Max: Vec3{math.Max(aabb.Max.X, other.Max.X), math.Max(aabb.Max.Y, other.Max.Y), math.Max(aabb.Max.Z, other.Max.Z)},
	}
}

// Center returns the center point of the AABB
func (aabb AABB) Center() Vec3 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() Vec3 {
	return aabb.Max.Subtract(aabb.Min)
}

// SurfaceArea returns the surface area of the AABB
func (aabb AABB) SurfaceArea() float64 {
	size := aabb.Size()
	if size.X < 0 || size.Y < 0 || size.Z < 0 {
		return 0
	}
	return 2.0 * (size.X*size.Y + size.Y*size.Z + size.Z*size.X)
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the longest extent
func (aabb AABB) LongestAxis() int {
	return aabb.Size().MaxAxis()
}

// IsValid returns true if this is a valid AABB (min <= max for all axes)
func (aabb AABB) IsValid() bool {
	return aabb.Min.X <= aabb.Max.X &&
		aabb.Min.Y <= aabb.Max.Y &&
		aabb.Min.Z <= aabb.Max.Z
}

// Expand returns an AABB expanded by the given amount in all directions
func (aabb AABB) Expand(amount float64) AABB {
	expansion := NewVec3(amount, amount, amount)
	return AABB{
		Min: aabb.Min.Subtract(expansion),
		Max: aabb.Max.Add(expansion),
	}
}

// Contains reports whether the point lies inside the box (inclusive)
func (aabb AABB) Contains(p Vec3) bool {
	return p.X >= aabb.Min.X && p.X <= aabb.Max.X &&
		p.Y >= aabb.Min.Y && p.Y <= aabb.Max.Y &&
		p.Z >= aabb.Min.Z && p.Z <= aabb.Max.Z
}

// Offset returns the position of p relative to the box corners, where the
// minimum corner maps to (0,0,0) and the maximum corner to (1,1,1)
func (aabb AABB) Offset(p Vec3) Vec3 {
	o := p.Subtract(aabb.Min)
	size := aabb.Size()
	if size.X > 0 {
		o.X /= size.X
	}
	if size.Y > 0 {
		o.Y /= size.Y
	}
	if size.Z > 0 {
		o.Z /= size.Z
	}
	return o
}

// BoundingSphere returns the center and radius of a sphere enclosing the box
func (aabb AABB) BoundingSphere() (Vec3, float64) {
	center := aabb.Center()
	return center, aabb.Max.Subtract(center).Length()
}

// Hit tests if a ray intersects this AABB using the slab method with the
// ray's precomputed inverse direction. Returns the parametric entry and exit
// distances clipped against [0, ray.TMax]; ok is false on a miss.
func (aabb AABB) Hit(ray Ray) (tNear, tFar float64, ok bool) {
	tNear, tFar = 0, ray.TMax

	for axis := 0; axis < 3; axis++ {
		invD := ray.InvDir.Axis(axis)
		t1 := (aabb.Min.Axis(axis) - ray.Origin.Axis(axis)) * invD
		t2 := (aabb.Max.Axis(axis) - ray.Origin.Axis(axis)) * invD
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tNear = math.Max(tNear, t1)
		tFar = math.Min(tFar, t2)
		if tNear > tFar {
			return 0, 0, false
		}
	}

	return tNear, tFar, true
}
