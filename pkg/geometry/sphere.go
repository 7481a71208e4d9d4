package geometry

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// Sphere is a full sphere centered at the object-space origin
type Sphere struct {
	ObjectToWorld core.Transform
	WorldToObject core.Transform
	Radius        float64
}

// NewSphere creates a sphere with the given object-to-world transform
func NewSphere(objectToWorld core.Transform, radius float64) *Sphere {
	return &Sphere{
		ObjectToWorld: objectToWorld,
		WorldToObject: objectToWorld.Inverse(),
		Radius:        radius,
	}
}

// NewSphereAt creates a sphere centered at a world-space point
func NewSphereAt(center core.Vec3, radius float64) *Sphere {
	return NewSphere(core.Translate(center), radius)
}

// Center returns the sphere center in world space
func (s *Sphere) Center() core.Vec3 {
	return s.ObjectToWorld.Point(core.Vec3{})
}

// ObjectBound returns the bounding box in object space
func (s *Sphere) ObjectBound() core.AABB {
	r := core.NewVec3(s.Radius, s.Radius, s.Radius)
	return core.NewAABB(r.Negate(), r)
}

// WorldBound returns the bounding box in world space
func (s *Sphere) WorldBound() core.AABB {
	return s.ObjectToWorld.AABB(s.ObjectBound())
}

// quadratic solves at^2 + bt + c = 0, returning roots in ascending order
func quadratic(a, halfB, c float64) (float64, float64, bool) {
	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return 0, 0, false
	}
	sqrtD := math.Sqrt(discriminant)
	return (-halfB - sqrtD) / a, (-halfB + sqrtD) / a, true
}

// hitT finds the nearest valid object-space hit parameter
func (s *Sphere) hitT(ray core.Ray) (float64, bool) {
	oc := ray.Origin
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	t0, t1, ok := quadratic(a, halfB, c)
	if !ok {
		return 0, false
	}
	if t0 > 1e-10 && t0 < ray.TMax {
		return t0, true
	}
	if t1 > 1e-10 && t1 < ray.TMax {
		return t1, true
	}
	return 0, false
}

// Intersect tests the ray against the sphere and builds differential
// geometry from the (theta, phi) parameterization
func (s *Sphere) Intersect(ray core.Ray) (*core.SurfaceInteraction, bool) {
	objRay := s.WorldToObject.Ray(ray)
	t, ok := s.hitT(objRay)
	if !ok {
		return nil, false
	}

	pObj := objRay.At(t)
	// Refine to the surface to keep the point numerically on the sphere
	pObj = pObj.Multiply(s.Radius / pObj.Length())

	phi := math.Atan2(pObj.Y, pObj.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	theta := math.Acos(math.Max(-1, math.Min(1, pObj.Z/s.Radius)))

	u := phi / (2 * math.Pi)
	v := theta / math.Pi

	// Closed-form partial derivatives of the spherical parameterization
	zRadius := math.Sqrt(pObj.X*pObj.X + pObj.Y*pObj.Y)
	var cosPhi, sinPhi float64
	if zRadius == 0 {
		cosPhi, sinPhi = 1, 0
	} else {
		cosPhi, sinPhi = pObj.X/zRadius, pObj.Y/zRadius
	}
	dpdu := core.NewVec3(-2*math.Pi*pObj.Y, 2*math.Pi*pObj.X, 0)
	dpdv := core.NewVec3(pObj.Z*cosPhi, pObj.Z*sinPhi, -s.Radius*math.Sin(theta)).Multiply(math.Pi)

	nObj := pObj.Multiply(1 / s.Radius)

	p := s.ObjectToWorld.Point(pObj)
	n := s.ObjectToWorld.Normal(nObj).Normalize()
	si := core.NewSurfaceInteraction(
		p, t, ray.Direction.Negate(), n, core.NewVec2(u, v),
		s.ObjectToWorld.Vector(dpdu), s.ObjectToWorld.Vector(dpdv),
	)
	return si, true
}

// IntersectP tests for any hit before ray.TMax
func (s *Sphere) IntersectP(ray core.Ray) bool {
	objRay := s.WorldToObject.Ray(ray)
	_, ok := s.hitT(objRay)
	return ok
}

// Area returns the surface area
func (s *Sphere) Area() float64 {
	return 4 * math.Pi * s.Radius * s.Radius
}

// Sample samples a point uniformly over the sphere surface
func (s *Sphere) Sample(u core.Vec2) ShapeSample {
	dir := core.SampleUniformSphere(u)
	pObj := dir.Multiply(s.Radius)
	return ShapeSample{
		P:   s.ObjectToWorld.Point(pObj),
		N:   s.ObjectToWorld.Normal(dir).Normalize(),
		PDF: 1 / s.Area(),
	}
}

// SampleFrom samples the sphere as seen from a reference point using the
// subtended solid-angle cone; inside the sphere it falls back to area
// sampling converted to solid angle
func (s *Sphere) SampleFrom(ref core.Vec3, u core.Vec2) ShapeSample {
	center := s.Center()
	toCenter := center.Subtract(ref)
	dist2 := toCenter.LengthSquared()

	if dist2 <= s.Radius*s.Radius {
		sample := s.Sample(u)
		sample.PDF = pdfAreaToSolidAngle(sample.PDF, ref, sample.P, sample.N)
		return sample
	}

	// Sample within the cone subtended by the sphere
	dist := math.Sqrt(dist2)
	sinThetaMax2 := s.Radius * s.Radius / dist2
	cosThetaMax := math.Sqrt(math.Max(0, 1-sinThetaMax2))

	frame := core.NewFrame(toCenter.Multiply(1 / dist))
	dir := frame.ToWorld(core.SampleUniformCone(u, cosThetaMax))

	// Project the cone direction onto the sphere surface
	ray := core.NewRay(ref, dir)
	si, ok := s.Intersect(ray)
	var p core.Vec3
	if ok {
		p = si.P
	} else {
		// Grazing numeric miss: take the closest point along the chord
		p = ref.Add(dir.Multiply(dist * cosThetaMax))
	}

	n := p.Subtract(center).Normalize()
	return ShapeSample{
		P:   p,
		N:   n,
		PDF: core.UniformConePDF(cosThetaMax),
	}
}

// PDFFrom returns the solid-angle density of SampleFrom for direction wi
func (s *Sphere) PDFFrom(ref core.Vec3, wi core.Vec3) float64 {
	center := s.Center()
	dist2 := center.Subtract(ref).LengthSquared()

	if dist2 <= s.Radius*s.Radius {
		// Reference inside the sphere: uniform area sampling
		ray := core.NewRay(ref, wi)
		si, ok := s.Intersect(ray)
		if !ok {
			return 0
		}
		return pdfAreaToSolidAngle(1/s.Area(), ref, si.P, si.N)
	}

	// Outside: the cone must contain wi to have nonzero density
	ray := core.NewRay(ref, wi)
	if !s.IntersectP(ray) {
		return 0
	}
	sinThetaMax2 := s.Radius * s.Radius / dist2
	cosThetaMax := math.Sqrt(math.Max(0, 1-sinThetaMax2))
	return core.UniformConePDF(cosThetaMax)
}
