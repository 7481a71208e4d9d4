package geometry

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// TriangleMesh holds shared vertex data for a set of triangles. Positions
// are stored in world space; per-vertex normals and UVs are optional.
type TriangleMesh struct {
	Positions []core.Vec3
	Normals   []core.Vec3 // empty when the mesh has no shading normals
	UVs       []core.Vec2 // empty when the mesh has no parameterization
	Indices   []int       // 3 entries per triangle
}

// NewTriangleMesh creates a mesh, applying the object-to-world transform to
// positions and normals
func NewTriangleMesh(objectToWorld core.Transform, positions []core.Vec3, normals []core.Vec3, uvs []core.Vec2, indices []int) *TriangleMesh {
	mesh := &TriangleMesh{
		Positions: make([]core.Vec3, len(positions)),
		Indices:   append([]int(nil), indices...),
		UVs:       append([]core.Vec2(nil), uvs...),
	}
	for i, p := range positions {
		mesh.Positions[i] = objectToWorld.Point(p)
	}
	if len(normals) > 0 {
		mesh.Normals = make([]core.Vec3, len(normals))
		for i, n := range normals {
			mesh.Normals[i] = objectToWorld.Normal(n).Normalize()
		}
	}
	return mesh
}

// TriangleCount returns the number of triangles in the mesh
func (m *TriangleMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangles builds the individual triangle shapes referencing the mesh
func (m *TriangleMesh) Triangles() []Shape {
	shapes := make([]Shape, 0, m.TriangleCount())
	for i := 0; i < m.TriangleCount(); i++ {
		shapes = append(shapes, &Triangle{Mesh: m, Index: i})
	}
	return shapes
}

// Triangle references one triangle of a mesh. Vertex positions already live
// in world space, so the object-to-world transform is the identity.
type Triangle struct {
	Mesh  *TriangleMesh
	Index int
}

// NewTriangle creates a standalone triangle from three world-space points
func NewTriangle(p0, p1, p2 core.Vec3) *Triangle {
	mesh := &TriangleMesh{
		Positions: []core.Vec3{p0, p1, p2},
		Indices:   []int{0, 1, 2},
	}
	return &Triangle{Mesh: mesh, Index: 0}
}

// vertices returns the triangle's three positions
func (t *Triangle) vertices() (core.Vec3, core.Vec3, core.Vec3) {
	i := t.Index * 3
	return t.Mesh.Positions[t.Mesh.Indices[i]],
		t.Mesh.Positions[t.Mesh.Indices[i+1]],
		t.Mesh.Positions[t.Mesh.Indices[i+2]]
}

// uvs returns the triangle's texture coordinates, defaulting to the unit
// parameterization when the mesh carries none
func (t *Triangle) uvs() (core.Vec2, core.Vec2, core.Vec2) {
	if len(t.Mesh.UVs) == 0 {
		return core.NewVec2(0, 0), core.NewVec2(1, 0), core.NewVec2(1, 1)
	}
	i := t.Index * 3
	return t.Mesh.UVs[t.Mesh.Indices[i]],
		t.Mesh.UVs[t.Mesh.Indices[i+1]],
		t.Mesh.UVs[t.Mesh.Indices[i+2]]
}

// ObjectBound returns the bounding box (positions are world space already)
func (t *Triangle) ObjectBound() core.AABB {
	return t.WorldBound()
}

// WorldBound returns the triangle's bounding box
func (t *Triangle) WorldBound() core.AABB {
	p0, p1, p2 := t.vertices()
	return core.NewAABBFromPoints(p0, p1, p2)
}

// Intersect runs the Möller-Trumbore test and interpolates shading geometry
// from barycentric coordinates
func (t *Triangle) Intersect(ray core.Ray) (*core.SurfaceInteraction, bool) {
	p0, p1, p2 := t.vertices()
	e1 := p1.Subtract(p0)
	e2 := p2.Subtract(p0)

	pvec := ray.Direction.Cross(e2)
	det := e1.Dot(pvec)
	if math.Abs(det) < 1e-12 {
		return nil, false
	}
	invDet := 1 / det

	tvec := ray.Origin.Subtract(p0)
	b1 := tvec.Dot(pvec) * invDet
	if b1 < 0 || b1 > 1 {
		return nil, false
	}

	qvec := tvec.Cross(e1)
	b2 := ray.Direction.Dot(qvec) * invDet
	if b2 < 0 || b1+b2 > 1 {
		return nil, false
	}

	tHit := e2.Dot(qvec) * invDet
	if tHit <= 1e-10 || tHit >= ray.TMax {
		return nil, false
	}

	b0 := 1 - b1 - b2
	p := p0.Multiply(b0).Add(p1.Multiply(b1)).Add(p2.Multiply(b2))
	ng := e1.Cross(e2).Normalize()

	uv0, uv1, uv2 := t.uvs()
	uv := uv0.Multiply(b0).Add(uv1.Multiply(b1)).Add(uv2.Multiply(b2))

	// Partial derivatives from the 2x2 UV system
	duv02 := uv0.Subtract(uv2)
	duv12 := uv1.Subtract(uv2)
	dp02 := p0.Subtract(p2)
	dp12 := p1.Subtract(p2)
	determinant := duv02.X*duv12.Y - duv02.Y*duv12.X

	var dpdu, dpdv core.Vec3
	if math.Abs(determinant) < 1e-12 {
		dpdu, dpdv = core.CoordinateSystem(ng)
	} else {
		invUVDet := 1 / determinant
		dpdu = dp02.Multiply(duv12.Y).Subtract(dp12.Multiply(duv02.Y)).Multiply(invUVDet)
		dpdv = dp02.Multiply(-duv12.X).Add(dp12.Multiply(duv02.X)).Multiply(invUVDet)
	}

	si := core.NewSurfaceInteraction(p, tHit, ray.Direction.Negate(), ng, uv, dpdu, dpdv)

	// Interpolate per-vertex shading normals when present
	if len(t.Mesh.Normals) > 0 {
		i := t.Index * 3
		n0 := t.Mesh.Normals[t.Mesh.Indices[i]]
		n1 := t.Mesh.Normals[t.Mesh.Indices[i+1]]
		n2 := t.Mesh.Normals[t.Mesh.Indices[i+2]]
		ns := n0.Multiply(b0).Add(n1.Multiply(b1)).Add(n2.Multiply(b2))
		if ns.LengthSquared() > 0 {
			ns = ns.Normalize()
			// Gram-Schmidt the tangent against the shading normal
			ss := dpdu.Subtract(ns.Multiply(ns.Dot(dpdu)))
			if ss.LengthSquared() > 1e-12 {
				ss = ss.Normalize()
			} else {
				ss, _ = core.CoordinateSystem(ns)
			}
			ts := ns.Cross(ss)
			dndu := n1.Subtract(n0)
			dndv := n2.Subtract(n0)
			si.SetShadingGeometry(ns, ss, ts, dndu, dndv)
		}
	}

	return si, true
}

// IntersectP tests for any hit before ray.TMax
func (t *Triangle) IntersectP(ray core.Ray) bool {
	_, ok := t.Intersect(ray)
	return ok
}

// Area returns the triangle area
func (t *Triangle) Area() float64 {
	p0, p1, p2 := t.vertices()
	return 0.5 * p1.Subtract(p0).Cross(p2.Subtract(p0)).Length()
}

// Sample samples a point uniformly by area using barycentric coordinates
func (t *Triangle) Sample(u core.Vec2) ShapeSample {
	b := core.SampleUniformTriangle(u)
	p0, p1, p2 := t.vertices()
	p := p0.Multiply(b.X).Add(p1.Multiply(b.Y)).Add(p2.Multiply(1 - b.X - b.Y))
	n := p1.Subtract(p0).Cross(p2.Subtract(p0)).Normalize()
	return ShapeSample{P: p, N: n, PDF: 1 / t.Area()}
}

// SampleFrom samples by area and converts the density to solid angle
func (t *Triangle) SampleFrom(ref core.Vec3, u core.Vec2) ShapeSample {
	sample := t.Sample(u)
	sample.PDF = pdfAreaToSolidAngle(sample.PDF, ref, sample.P, sample.N)
	return sample
}

// PDFFrom returns the solid-angle density of SampleFrom for direction wi
func (t *Triangle) PDFFrom(ref core.Vec3, wi core.Vec3) float64 {
	ray := core.NewRay(ref, wi)
	si, ok := t.Intersect(ray)
	if !ok {
		return 0
	}
	return pdfAreaToSolidAngle(1/t.Area(), ref, si.P, si.N)
}
