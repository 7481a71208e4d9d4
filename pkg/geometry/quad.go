package geometry

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// Quad is a parallelogram defined by a corner and two edge vectors in world
// space. The normal is u x v normalized.
type Quad struct {
	Corner core.Vec3
	U, V   core.Vec3
	normal core.Vec3
	area   float64
}

// NewQuad creates a quad from a corner point and two edge vectors
func NewQuad(corner, u, v core.Vec3) *Quad {
	cross := u.Cross(v)
	return &Quad{
		Corner: corner,
		U:      u,
		V:      v,
		normal: cross.Normalize(),
		area:   cross.Length(),
	}
}

// Normal returns the quad's unit normal
func (q *Quad) Normal() core.Vec3 {
	return q.normal
}

// ObjectBound returns the bounding box (the quad is defined in world space)
func (q *Quad) ObjectBound() core.AABB {
	return q.WorldBound()
}

// WorldBound returns the quad's bounding box, padded slightly along the
// normal so axis-aligned quads keep nonzero extent
func (q *Quad) WorldBound() core.AABB {
	bounds := core.NewAABBFromPoints(
		q.Corner,
		q.Corner.Add(q.U),
		q.Corner.Add(q.V),
		q.Corner.Add(q.U).Add(q.V),
	)
	return bounds.Expand(1e-6)
}

// hit finds the hit parameter and the quad parameterization (alpha, beta)
func (q *Quad) hit(ray core.Ray) (float64, float64, float64, bool) {
	denom := q.normal.Dot(ray.Direction)
	if math.Abs(denom) < 1e-12 {
		return 0, 0, 0, false
	}
	t := q.normal.Dot(q.Corner.Subtract(ray.Origin)) / denom
	if t <= 1e-10 || t >= ray.TMax {
		return 0, 0, 0, false
	}

	p := ray.At(t)
	d := p.Subtract(q.Corner)

	// Solve d = alpha*U + beta*V via dot products with the dual basis
	uu := q.U.Dot(q.U)
	uv := q.U.Dot(q.V)
	vv := q.V.Dot(q.V)
	du := d.Dot(q.U)
	dv := d.Dot(q.V)
	det := uu*vv - uv*uv
	if math.Abs(det) < 1e-18 {
		return 0, 0, 0, false
	}
	alpha := (vv*du - uv*dv) / det
	beta := (uu*dv - uv*du) / det
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return 0, 0, 0, false
	}
	return t, alpha, beta, true
}

// Intersect tests the ray against the parallelogram
func (q *Quad) Intersect(ray core.Ray) (*core.SurfaceInteraction, bool) {
	t, alpha, beta, ok := q.hit(ray)
	if !ok {
		return nil, false
	}
	si := core.NewSurfaceInteraction(
		ray.At(t), t, ray.Direction.Negate(), q.normal,
		core.NewVec2(alpha, beta), q.U, q.V,
	)
	return si, true
}

// IntersectP tests for any hit before ray.TMax
func (q *Quad) IntersectP(ray core.Ray) bool {
	_, _, _, ok := q.hit(ray)
	return ok
}

// Area returns the parallelogram area
func (q *Quad) Area() float64 {
	return q.area
}

// Sample samples a point uniformly over the quad
func (q *Quad) Sample(u core.Vec2) ShapeSample {
	p := q.Corner.Add(q.U.Multiply(u.X)).Add(q.V.Multiply(u.Y))
	return ShapeSample{P: p, N: q.normal, PDF: 1 / q.area}
}

// SampleFrom samples by area and converts the density to solid angle
func (q *Quad) SampleFrom(ref core.Vec3, u core.Vec2) ShapeSample {
	sample := q.Sample(u)
	sample.PDF = pdfAreaToSolidAngle(sample.PDF, ref, sample.P, sample.N)
	return sample
}

// PDFFrom returns the solid-angle density of SampleFrom for direction wi
func (q *Quad) PDFFrom(ref core.Vec3, wi core.Vec3) float64 {
	ray := core.NewRay(ref, wi)
	si, ok := q.Intersect(ray)
	if !ok {
		return 0
	}
	return pdfAreaToSolidAngle(1/q.area, ref, si.P, si.N)
}
