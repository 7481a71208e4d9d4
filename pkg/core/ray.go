package core

import "math"

// Ray represents a ray with an origin, a unit direction, and a maximum
// parameter distance. The inverse direction is precomputed for slab tests.
// A ray participates in one intersection or transmittance query at a time.
type Ray struct {
	Origin    Vec3
	Direction Vec3
	TMax      float64
	InvDir    Vec3
	Medium    Medium // medium the ray travels through, nil for vacuum
}

// NewRay creates a new ray with an unbounded maximum distance
func NewRay(origin, direction Vec3) Ray {
	return NewRayBounded(origin, direction, math.Inf(1))
}

// NewRayBounded creates a new ray with the given maximum parameter distance
func NewRayBounded(origin, direction Vec3, tMax float64) Ray {
	return Ray{
		Origin:    origin,
		Direction: direction,
		TMax:      tMax,
		InvDir:    NewVec3(1/direction.X, 1/direction.Y, 1/direction.Z),
	}
}

// NewRayTo creates a ray from origin toward target, bounded just short of the
// target so shadow queries do not intersect the target surface itself.
func NewRayTo(origin, target Vec3) Ray {
	d := target.Subtract(origin)
	dist := d.Length()
	return NewRayBounded(origin, d.Multiply(1/dist), dist*(1-shadowEpsilon))
}

const shadowEpsilon = 1e-4

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}

// WithMedium returns a copy of the ray traveling in the given medium
func (r Ray) WithMedium(m Medium) Ray {
	r.Medium = m
	return r
}
