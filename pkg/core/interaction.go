package core

import "math"

// ShadingGeometry holds the interpolated shading frame at a surface hit
type ShadingGeometry struct {
	Normal Vec3
	Dpdu   Vec3
	Dpdv   Vec3
	Dndu   Vec3
	Dndv   Vec3
}

// SurfaceInteraction records a ray-surface intersection with full
// differential geometry. The geometric normal always points outward from the
// solid; the shading normal is flipped to its side of the surface.
type SurfaceInteraction struct {
	P       Vec3    // intersection point
	T       float64 // ray parameter at the hit
	Wo      Vec3    // outgoing direction, toward the viewer
	N       Vec3    // geometric normal
	UV      Vec2    // surface parameterization
	Shading ShadingGeometry

	Primitive       Primitive        // owning primitive, set by the aggregate
	Material        Material         // set by the primitive on intersection
	Light           Emitter          // area light attached to the primitive, if any
	BSDF            BSDF             // attached by Material.ComputeScattering
	BSSRDF          BSSRDF           // attached for subsurface materials
	MediumInterface *MediumInterface // media on either side, if any
}

// NewSurfaceInteraction creates a surface interaction with a shading frame
// initialized from the geometric frame
func NewSurfaceInteraction(p Vec3, t float64, wo, n Vec3, uv Vec2, dpdu, dpdv Vec3) *SurfaceInteraction {
	si := &SurfaceInteraction{
		P:  p,
		T:  t,
		Wo: wo,
		N:  n,
		UV: uv,
		Shading: ShadingGeometry{
			Normal: n,
			Dpdu:   dpdu,
			Dpdv:   dpdv,
		},
	}
	return si
}

// SetShadingGeometry installs interpolated shading geometry, keeping the
// geometric and shading normals on the same side of the surface
func (si *SurfaceInteraction) SetShadingGeometry(ns, dpdu, dpdv, dndu, dndv Vec3) {
	si.Shading = ShadingGeometry{Normal: ns, Dpdu: dpdu, Dpdv: dpdv, Dndu: dndu, Dndv: dndv}
	si.N = Faceforward(si.N, ns)
}

// Le returns emitted radiance at the hit in direction w, zero for
// non-emissive primitives
func (si *SurfaceInteraction) Le(w Vec3) Spectrum {
	if si.Light == nil {
		return Black
	}
	return si.Light.L(si, w)
}

// MediumFor returns the medium on the side of the surface that direction w
// points into
func (si *SurfaceInteraction) MediumFor(w Vec3) Medium {
	if si.MediumInterface == nil {
		return nil
	}
	if w.Dot(si.N) > 0 {
		return si.MediumInterface.Outside
	}
	return si.MediumInterface.Inside
}

// SpawnRay spawns a ray leaving the surface in direction d, with the origin
// offset off the surface and the medium chosen by the crossed side
func (si *SurfaceInteraction) SpawnRay(d Vec3) Ray {
	o := OffsetRayOrigin(si.P, si.N, d)
	r := NewRay(o, d)
	r.Medium = si.MediumFor(d)
	return r
}

// SpawnRayTo spawns a bounded shadow ray from the surface toward a point
func (si *SurfaceInteraction) SpawnRayTo(target Vec3) Ray {
	d := target.Subtract(si.P)
	o := OffsetRayOrigin(si.P, si.N, d)
	dist := target.Subtract(o).Length()
	r := NewRayBounded(o, d.Normalize(), dist*(1-shadowEpsilon))
	r.Medium = si.MediumFor(d)
	return r
}

// MediumInteraction records a scattering event inside a participating medium
type MediumInteraction struct {
	P      Vec3
	Wo     Vec3
	Medium Medium
	Phase  PhaseFunction
}

// SpawnRay spawns a ray leaving the medium interaction in direction d
func (mi *MediumInteraction) SpawnRay(d Vec3) Ray {
	r := NewRay(mi.P, d)
	r.Medium = mi.Medium
	return r
}

// SpawnRayTo spawns a bounded shadow ray from the medium point toward target
func (mi *MediumInteraction) SpawnRayTo(target Vec3) Ray {
	d := target.Subtract(mi.P)
	dist := d.Length()
	r := NewRayBounded(mi.P, d.Multiply(1/dist), dist*(1-shadowEpsilon))
	r.Medium = mi.Medium
	return r
}

// OffsetRayOrigin offsets a spawned ray's origin along the geometric normal
// by a floating-point-safe epsilon scaled with the hit position magnitude,
// rounded away from the surface at the bit level, so the spawned ray cannot
// re-intersect the surface it leaves.
func OffsetRayOrigin(p, n, d Vec3) Vec3 {
	const originEpsilon = 1e-7

	delta := (p.Abs().Dot(n.Abs()) + 1e-4) * originEpsilon
	offset := n.Multiply(delta)
	if d.Dot(n) < 0 {
		offset = offset.Negate()
	}
	po := p.Add(offset)

	// Round the offset point away from p component-wise
	po.X = nudge(po.X, offset.X)
	po.Y = nudge(po.Y, offset.Y)
	po.Z = nudge(po.Z, offset.Z)
	return po
}

// nudge moves v to the next representable float in the direction of dir
func nudge(v, dir float64) float64 {
	if dir > 0 {
		return math.Nextafter(v, math.Inf(1))
	} else if dir < 0 {
		return math.Nextafter(v, math.Inf(-1))
	}
	return v
}
