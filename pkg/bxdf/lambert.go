package bxdf

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// LambertianReflection is a perfectly diffuse reflector: f = R/pi
type LambertianReflection struct {
	R core.Spectrum
}

// NewLambertianReflection creates a diffuse reflector with reflectance r
func NewLambertianReflection(r core.Spectrum) *LambertianReflection {
	return &LambertianReflection{R: r}
}

// Type returns diffuse reflection
func (l *LambertianReflection) Type() core.BxDFType {
	return core.BSDFReflection | core.BSDFDiffuse
}

// F evaluates the constant distribution
func (l *LambertianReflection) F(wo, wi core.Vec3) core.Spectrum {
	return l.R.Scale(1 / math.Pi)
}

// SampleF samples a cosine-weighted direction in the hemisphere of wo
func (l *LambertianReflection) SampleF(wo core.Vec3, u core.Vec2) (core.Vec3, core.Spectrum, float64, core.BxDFType) {
	wi := core.SampleCosineHemisphere(u)
	if wo.Z < 0 {
		wi.Z = -wi.Z
	}
	return wi, l.F(wo, wi), l.PDF(wo, wi), l.Type()
}

// PDF returns the cosine-weighted hemisphere density
func (l *LambertianReflection) PDF(wo, wi core.Vec3) float64 {
	if !core.SameHemisphere(wo, wi) {
		return 0
	}
	return core.CosineHemispherePDF(core.AbsCosTheta(wi))
}

// LambertianTransmission is a perfectly diffuse transmitter: f = T/pi on the
// far hemisphere
type LambertianTransmission struct {
	T core.Spectrum
}

// NewLambertianTransmission creates a diffuse transmitter with transmittance t
func NewLambertianTransmission(t core.Spectrum) *LambertianTransmission {
	return &LambertianTransmission{T: t}
}

// Type returns diffuse transmission
func (l *LambertianTransmission) Type() core.BxDFType {
	return core.BSDFTransmission | core.BSDFDiffuse
}

// F evaluates the constant distribution
func (l *LambertianTransmission) F(wo, wi core.Vec3) core.Spectrum {
	return l.T.Scale(1 / math.Pi)
}

// SampleF samples a cosine-weighted direction in the hemisphere opposite wo
func (l *LambertianTransmission) SampleF(wo core.Vec3, u core.Vec2) (core.Vec3, core.Spectrum, float64, core.BxDFType) {
	wi := core.SampleCosineHemisphere(u)
	if wo.Z > 0 {
		wi.Z = -wi.Z
	}
	return wi, l.F(wo, wi), l.PDF(wo, wi), l.Type()
}

// PDF returns the cosine-weighted density on the transmission side
func (l *LambertianTransmission) PDF(wo, wi core.Vec3) float64 {
	if core.SameHemisphere(wo, wi) {
		return 0
	}
	return core.CosineHemispherePDF(core.AbsCosTheta(wi))
}
