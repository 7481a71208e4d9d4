package bxdf

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// BxDF is a single scattering component working in the local shading frame,
// where the surface normal is +Z and cos(theta) of a direction is its Z
// component
type BxDF interface {
	// Type returns the component's classification flags
	Type() core.BxDFType
	// F evaluates the distribution for a local direction pair
	F(wo, wi core.Vec3) core.Spectrum
	// SampleF samples an incoming direction for the outgoing direction
	SampleF(wo core.Vec3, u core.Vec2) (wi core.Vec3, f core.Spectrum, pdf float64, sampled core.BxDFType)
	// PDF returns the solid-angle density SampleF uses
	PDF(wo, wi core.Vec3) float64
}

// MatchesFlags reports whether a component type passes the requested flags
func MatchesFlags(t, flags core.BxDFType) bool {
	return t&flags == t
}

// maxBxDFs bounds the number of components a single BSDF may aggregate
const maxBxDFs = 8

// BSDF bundles the BxDF components at a surface hit and converts between
// world space and the local shading frame. It implements core.BSDF.
type BSDF struct {
	frame  core.Frame // shading frame, Z = shading normal
	ng     core.Vec3  // geometric normal for sidedness tests
	eta    float64    // relative IOR across the interface
	bxdfs  [maxBxDFs]BxDF
	nBxDFs int
}

// NewBSDF creates a BSDF for a surface interaction
func NewBSDF(si *core.SurfaceInteraction, eta float64, components ...BxDF) *BSDF {
	b := &BSDF{
		frame: core.NewFrameWithTangent(si.Shading.Normal, si.Shading.Dpdu),
		ng:    si.N,
		eta:   eta,
	}
	for _, c := range components {
		b.Add(c)
	}
	return b
}

// Add appends a component to the bundle
func (b *BSDF) Add(component BxDF) {
	if b.nBxDFs < maxBxDFs {
		b.bxdfs[b.nBxDFs] = component
		b.nBxDFs++
	}
}

// Eta returns the relative index of refraction across the interface
func (b *BSDF) Eta() float64 {
	return b.eta
}

// NumComponents counts components matching the given flags
func (b *BSDF) NumComponents(flags core.BxDFType) int {
	n := 0
	for i := 0; i < b.nBxDFs; i++ {
		if MatchesFlags(b.bxdfs[i].Type(), flags) {
			n++
		}
	}
	return n
}

// F evaluates the BSDF for a world-space direction pair. Components on the
// wrong side of the surface (reflection vs transmission, judged against the
// geometric normal) are skipped.
func (b *BSDF) F(woW, wiW core.Vec3, flags core.BxDFType) core.Spectrum {
	wo := b.frame.ToLocal(woW)
	if wo.Z == 0 {
		return core.Black
	}
	wi := b.frame.ToLocal(wiW)

	reflect := wiW.Dot(b.ng)*woW.Dot(b.ng) > 0
	f := core.Black
	for i := 0; i < b.nBxDFs; i++ {
		c := b.bxdfs[i]
		if !MatchesFlags(c.Type(), flags) {
			continue
		}
		if (reflect && c.Type()&core.BSDFReflection != 0) ||
			(!reflect && c.Type()&core.BSDFTransmission != 0) {
			f = f.Add(c.F(wo, wi))
		}
	}
	return f
}

// SampleF samples an incoming direction. One matching component is chosen
// uniformly; for non-specular choices the returned pdf is the average over
// all matching components and f is their sum, as returned by F.
func (b *BSDF) SampleF(woW core.Vec3, u core.Vec2, flags core.BxDFType) (core.Vec3, core.Spectrum, float64, core.BxDFType) {
	matching := b.NumComponents(flags)
	if matching == 0 {
		return core.Vec3{}, core.Black, 0, 0
	}

	// Select a component uniformly and remap the sample dimension
	choice := min(matching-1, int(u.X*float64(matching)))
	uRemapped := core.NewVec2(math.Min(u.X*float64(matching)-float64(choice), 0.9999999999999989), u.Y)

	var selected BxDF
	idx := choice
	for i := 0; i < b.nBxDFs; i++ {
		if MatchesFlags(b.bxdfs[i].Type(), flags) {
			if idx == 0 {
				selected = b.bxdfs[i]
				break
			}
			idx--
		}
	}

	wo := b.frame.ToLocal(woW)
	if wo.Z == 0 {
		return core.Vec3{}, core.Black, 0, 0
	}

	wi, f, pdf, sampledType := selected.SampleF(wo, uRemapped)
	if pdf == 0 {
		return core.Vec3{}, core.Black, 0, sampledType
	}
	if sampledType == 0 {
		sampledType = selected.Type()
	}
	wiW := b.frame.ToWorld(wi)

	// Average pdf over all matching components (specular pdfs stay as-is)
	if !selected.Type().IsSpecular() && matching > 1 {
		for i := 0; i < b.nBxDFs; i++ {
			c := b.bxdfs[i]
			if c != selected && MatchesFlags(c.Type(), flags) {
				pdf += c.PDF(wo, wi)
			}
		}
	}
	if matching > 1 {
		pdf /= float64(matching)
	}

	// Recompute f over all matching components for non-specular samples
	if !selected.Type().IsSpecular() {
		f = b.F(woW, wiW, flags)
	}

	return wiW, f, pdf, sampledType
}

// PDF averages the densities over all matching components; specular
// components count toward the average with a density of zero
func (b *BSDF) PDF(woW, wiW core.Vec3, flags core.BxDFType) float64 {
	if b.nBxDFs == 0 {
		return 0
	}
	wo := b.frame.ToLocal(woW)
	if wo.Z == 0 {
		return 0
	}
	wi := b.frame.ToLocal(wiW)

	pdf := 0.0
	matching := 0
	for i := 0; i < b.nBxDFs; i++ {
		c := b.bxdfs[i]
		if MatchesFlags(c.Type(), flags) {
			matching++
			pdf += c.PDF(wo, wi)
		}
	}
	if matching == 0 {
		return 0
	}
	return pdf / float64(matching)
}

// LocalFrame exposes the shading frame (used by light-transport code that
// needs shading-normal corrections)
func (b *BSDF) LocalFrame() core.Frame {
	return b.frame
}

var _ core.BSDF = (*BSDF)(nil)
