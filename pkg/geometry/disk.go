package geometry

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// Disk is a flat disk in the object-space z=0 plane, facing +Z
type Disk struct {
	ObjectToWorld core.Transform
	WorldToObject core.Transform
	Radius        float64
	InnerRadius   float64
}

// NewDisk creates a disk with the given object-to-world transform
func NewDisk(objectToWorld core.Transform, radius float64) *Disk {
	return &Disk{
		ObjectToWorld: objectToWorld,
		WorldToObject: objectToWorld.Inverse(),
		Radius:        radius,
	}
}

// ObjectBound returns the bounding box in object space
func (d *Disk) ObjectBound() core.AABB {
	return core.NewAABB(
		core.NewVec3(-d.Radius, -d.Radius, -1e-6),
		core.NewVec3(d.Radius, d.Radius, 1e-6),
	)
}

// WorldBound returns the bounding box in world space
func (d *Disk) WorldBound() core.AABB {
	return d.ObjectToWorld.AABB(d.ObjectBound())
}

// hit finds the object-space hit parameter and point
func (d *Disk) hit(objRay core.Ray) (float64, core.Vec3, bool) {
	if math.Abs(objRay.Direction.Z) < 1e-12 {
		return 0, core.Vec3{}, false
	}
	t := -objRay.Origin.Z / objRay.Direction.Z
	if t <= 1e-10 || t >= objRay.TMax {
		return 0, core.Vec3{}, false
	}
	p := objRay.At(t)
	dist2 := p.X*p.X + p.Y*p.Y
	if dist2 > d.Radius*d.Radius || dist2 < d.InnerRadius*d.InnerRadius {
		return 0, core.Vec3{}, false
	}
	return t, p, true
}

// Intersect tests the ray against the disk plane and radius
func (d *Disk) Intersect(ray core.Ray) (*core.SurfaceInteraction, bool) {
	objRay := d.WorldToObject.Ray(ray)
	t, pObj, ok := d.hit(objRay)
	if !ok {
		return nil, false
	}

	dist := math.Sqrt(pObj.X*pObj.X + pObj.Y*pObj.Y)
	phi := math.Atan2(pObj.Y, pObj.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	u := phi / (2 * math.Pi)
	oneMinusV := 0.0
	if d.Radius > d.InnerRadius {
		oneMinusV = (dist - d.InnerRadius) / (d.Radius - d.InnerRadius)
	}

	dpdu := core.NewVec3(-2*math.Pi*pObj.Y, 2*math.Pi*pObj.X, 0)
	var dpdv core.Vec3
	if dist > 0 {
		dpdv = core.NewVec3(pObj.X, pObj.Y, 0).Multiply((d.InnerRadius - d.Radius) / dist)
	}

	si := core.NewSurfaceInteraction(
		d.ObjectToWorld.Point(pObj), t, ray.Direction.Negate(),
		d.ObjectToWorld.Normal(core.NewVec3(0, 0, 1)).Normalize(),
		core.NewVec2(u, 1-oneMinusV),
		d.ObjectToWorld.Vector(dpdu), d.ObjectToWorld.Vector(dpdv),
	)
	return si, true
}

// IntersectP tests for any hit before ray.TMax
func (d *Disk) IntersectP(ray core.Ray) bool {
	objRay := d.WorldToObject.Ray(ray)
	_, _, ok := d.hit(objRay)
	return ok
}

// Area returns the disk area
func (d *Disk) Area() float64 {
	return math.Pi * (d.Radius*d.Radius - d.InnerRadius*d.InnerRadius)
}

// Sample samples a point uniformly over the disk
func (d *Disk) Sample(u core.Vec2) ShapeSample {
	pd := core.SampleConcentricDisk(u)
	pObj := core.NewVec3(pd.X*d.Radius, pd.Y*d.Radius, 0)
	return ShapeSample{
		P:   d.ObjectToWorld.Point(pObj),
		N:   d.ObjectToWorld.Normal(core.NewVec3(0, 0, 1)).Normalize(),
		PDF: 1 / d.Area(),
	}
}

// SampleFrom samples by area and converts the density to solid angle
func (d *Disk) SampleFrom(ref core.Vec3, u core.Vec2) ShapeSample {
	sample := d.Sample(u)
	sample.PDF = pdfAreaToSolidAngle(sample.PDF, ref, sample.P, sample.N)
	return sample
}

// PDFFrom returns the solid-angle density of SampleFrom for direction wi
func (d *Disk) PDFFrom(ref core.Vec3, wi core.Vec3) float64 {
	ray := core.NewRay(ref, wi)
	si, ok := d.Intersect(ray)
	if !ok {
		return 0
	}
	return pdfAreaToSolidAngle(1/d.Area(), ref, si.P, si.N)
}
