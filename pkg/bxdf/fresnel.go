// Package bxdf implements the scattering layer: individual BxDF components
// (Lambertian, specular, Fresnel-mixed, microfacet) and the BSDF bundle that
// aggregates them at a shading point.
package bxdf

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// FresnelDielectric evaluates the unpolarized Fresnel reflectance at a
// dielectric interface. cosThetaI is measured against the normal on the
// incident side; a negative value means the ray arrives from inside.
func FresnelDielectric(cosThetaI, etaI, etaT float64) float64 {
	cosThetaI = math.Max(-1, math.Min(1, cosThetaI))
	if cosThetaI < 0 {
		etaI, etaT = etaT, etaI
		cosThetaI = -cosThetaI
	}

	sinThetaI := math.Sqrt(math.Max(0, 1-cosThetaI*cosThetaI))
	sinThetaT := etaI / etaT * sinThetaI
	if sinThetaT >= 1 {
		return 1 // total internal reflection
	}
	cosThetaT := math.Sqrt(math.Max(0, 1-sinThetaT*sinThetaT))

	rParallel := (etaT*cosThetaI - etaI*cosThetaT) / (etaT*cosThetaI + etaI*cosThetaT)
	rPerpendicular := (etaI*cosThetaI - etaT*cosThetaT) / (etaI*cosThetaI + etaT*cosThetaT)
	return (rParallel*rParallel + rPerpendicular*rPerpendicular) / 2
}

// FresnelConductorSpectrum evaluates the Fresnel reflectance of a conductor
// with complex index eta + i*k, per channel
func FresnelConductorSpectrum(cosThetaI float64, etaI, etaT, k core.Spectrum) core.Spectrum {
	cosThetaI = math.Max(-1, math.Min(1, cosThetaI))
	channel := func(etaIc, etaTc, kc float64) float64 {
		eta := etaTc / etaIc
		etaK := kc / etaIc

		cos2 := cosThetaI * cosThetaI
		sin2 := 1 - cos2
		eta2 := eta * eta
		etaK2 := etaK * etaK

		t0 := eta2 - etaK2 - sin2
		a2plusb2 := math.Sqrt(math.Max(0, t0*t0+4*eta2*etaK2))
		t1 := a2plusb2 + cos2
		a := math.Sqrt(math.Max(0, (a2plusb2+t0)/2))
		t2 := 2 * a * cosThetaI
		rs := (t1 - t2) / (t1 + t2)

		t3 := cos2*a2plusb2 + sin2*sin2
		t4 := t2 * sin2
		rp := rs * (t3 - t4) / (t3 + t4)

		return (rp + rs) / 2
	}
	return core.NewSpectrum(
		channel(etaI.R, etaT.R, k.R),
		channel(etaI.G, etaT.G, k.G),
		channel(etaI.B, etaT.B, k.B),
	)
}

// Fresnel abstracts the reflectance term used by specular and microfacet BxDFs
type Fresnel interface {
	// Evaluate returns the reflectance for the given incident cosine
	Evaluate(cosThetaI float64) core.Spectrum
}

// FresnelDielectricTerm is the Fresnel term of a dielectric boundary
type FresnelDielectricTerm struct {
	EtaI, EtaT float64
}

// Evaluate returns the dielectric reflectance as a uniform spectrum
func (f FresnelDielectricTerm) Evaluate(cosThetaI float64) core.Spectrum {
	return core.NewSpectrumUniform(FresnelDielectric(cosThetaI, f.EtaI, f.EtaT))
}

// FresnelConductorTerm is the Fresnel term of a conductor boundary
type FresnelConductorTerm struct {
	EtaI, EtaT, K core.Spectrum
}

// Evaluate returns the conductor reflectance spectrum
func (f FresnelConductorTerm) Evaluate(cosThetaI float64) core.Spectrum {
	return FresnelConductorSpectrum(math.Abs(cosThetaI), f.EtaI, f.EtaT, f.K)
}

// FresnelNoOp reflects everything; used for idealized mirrors
type FresnelNoOp struct{}

// Evaluate returns full reflectance
func (FresnelNoOp) Evaluate(cosThetaI float64) core.Spectrum {
	return core.White
}
