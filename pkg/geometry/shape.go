// Package geometry provides the shape primitives: sphere, triangle mesh,
// disk, and quad, with the area and solid-angle sampling queries light
// transport needs. Spheres and disks carry object-to-world transforms;
// triangle meshes and quads are stored in world space (a mesh's transform is
// applied when it is built).
package geometry

import "github.com/radiant-render/radiant/pkg/core"

// ShapeSample is a point sampled on a shape's surface
type ShapeSample struct {
	P   core.Vec3 // sampled surface point
	N   core.Vec3 // outward surface normal at the point
	PDF float64   // density of the sample (area measure for Sample,
	// solid-angle measure for SampleFrom)
}

// Shape is a geometric primitive supporting intersection, area queries, and
// surface sampling. Spheres and disks store their object-to-world transform;
// triangles and quads hold world-space vertices.
type Shape interface {
	// ObjectBound returns the bounding box in object space
	ObjectBound() core.AABB
	// WorldBound returns the bounding box in world space
	WorldBound() core.AABB
	// Intersect returns the smallest positive hit before ray.TMax with full
	// differential geometry
	Intersect(ray core.Ray) (*core.SurfaceInteraction, bool)
	// IntersectP tests for any hit before ray.TMax
	IntersectP(ray core.Ray) bool
	// Area returns the world-space surface area
	Area() float64
	// Sample samples a point uniformly by surface area
	Sample(u core.Vec2) ShapeSample
	// SampleFrom samples a point as seen from a reference point; the PDF is
	// with respect to solid angle at the reference
	SampleFrom(ref core.Vec3, u core.Vec2) ShapeSample
	// PDFFrom returns the solid-angle density of sampling direction wi from
	// ref via SampleFrom
	PDFFrom(ref core.Vec3, wi core.Vec3) float64
}

// pdfAreaToSolidAngle converts an area-measure density at a sampled surface
// point to solid angle at the reference point
func pdfAreaToSolidAngle(pdfArea float64, ref, p, n core.Vec3) float64 {
	d := p.Subtract(ref)
	dist2 := d.LengthSquared()
	if dist2 == 0 {
		return 0
	}
	cosTheta := n.AbsDot(d.Multiply(1 / d.Length()))
	if cosTheta == 0 {
		return 0
	}
	return pdfArea * dist2 / cosTheta
}
