package lights

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/geometry"
)

// AreaLight is a diffuse emitter over a shape's surface. It emits on the
// side whose normal faces the receiver; TwoSided emits on both.
type AreaLight struct {
	Shape    geometry.Shape
	Lemit    core.Spectrum
	TwoSided bool
}

// NewAreaLight creates a one-sided diffuse area light over a shape
func NewAreaLight(shape geometry.Shape, lemit core.Spectrum) *AreaLight {
	return &AreaLight{Shape: shape, Lemit: lemit}
}

// L returns emitted radiance leaving a surface point in direction w,
// implementing core.Emitter for the owning primitive
func (a *AreaLight) L(si *core.SurfaceInteraction, w core.Vec3) core.Spectrum {
	if a.TwoSided || si.N.Dot(w) > 0 {
		return a.Lemit
	}
	return core.Black
}

// SampleLi samples a point on the shape from the reference point's solid angle
func (a *AreaLight) SampleLi(ref core.Vec3, u core.Vec2) LightSample {
	sample := a.Shape.SampleFrom(ref, u)
	if sample.PDF == 0 {
		return LightSample{}
	}

	wi := sample.P.Subtract(ref)
	if wi.LengthSquared() == 0 {
		return LightSample{}
	}
	wi = wi.Normalize()

	// Emission reaches the reference only from the lit side
	l := core.Black
	if a.TwoSided || sample.N.Dot(wi.Negate()) > 0 {
		l = a.Lemit
	}
	return LightSample{L: l, Wi: wi, PDF: sample.PDF, P: sample.P, N: sample.N}
}

// PdfLi returns the shape's solid-angle density for direction wi
func (a *AreaLight) PdfLi(ref core.Vec3, wi core.Vec3) float64 {
	return a.Shape.PDFFrom(ref, wi)
}

// SampleLe samples an emission ray: a uniform surface point and a
// cosine-weighted direction about its normal
func (a *AreaLight) SampleLe(uPos, uDir core.Vec2) EmissionSample {
	sample := a.Shape.Sample(uPos)

	local := core.SampleCosineHemisphere(uDir)
	frame := core.NewFrame(sample.N)
	dir := frame.ToWorld(local)

	origin := core.OffsetRayOrigin(sample.P, sample.N, dir)
	return EmissionSample{
		Ray:    core.NewRay(origin, dir),
		N:      sample.N,
		L:      a.Lemit,
		PdfPos: sample.PDF,
		PdfDir: core.CosineHemispherePDF(local.Z),
	}
}

// PdfLe returns the emission densities for a ray leaving the light
func (a *AreaLight) PdfLe(ray core.Ray, n core.Vec3) (float64, float64) {
	pdfPos := 1 / a.Shape.Area()
	pdfDir := core.CosineHemispherePDF(n.Dot(ray.Direction))
	return pdfPos, pdfDir
}

// Power returns Lemit * pi * area (doubled for two-sided lights)
func (a *AreaLight) Power() core.Spectrum {
	power := a.Lemit.Scale(math.Pi * a.Shape.Area())
	if a.TwoSided {
		power = power.Scale(2)
	}
	return power
}

// IsDelta reports false: area lights have finite extent
func (a *AreaLight) IsDelta() bool {
	return false
}

// IsInfinite reports false: area lights are finite geometry
func (a *AreaLight) IsInfinite() bool {
	return false
}
