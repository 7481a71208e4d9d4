package bxdf

import (
	"github.com/radiant-render/radiant/pkg/core"
)

// SpecularReflection is a perfect mirror weighted by a Fresnel term. The
// distribution is a delta: F and PDF return zero for arbitrary pairs, and
// all energy flows through SampleF.
type SpecularReflection struct {
	R       core.Spectrum
	Fresnel Fresnel
}

// NewSpecularReflection creates a specular reflector
func NewSpecularReflection(r core.Spectrum, fresnel Fresnel) *SpecularReflection {
	return &SpecularReflection{R: r, Fresnel: fresnel}
}

// Type returns specular reflection
func (s *SpecularReflection) Type() core.BxDFType {
	return core.BSDFReflection | core.BSDFSpecular
}

// F is zero for delta distributions
func (s *SpecularReflection) F(wo, wi core.Vec3) core.Spectrum {
	return core.Black
}

// SampleF returns the mirror direction with f = F*R/|cos(theta)| and pdf 1
func (s *SpecularReflection) SampleF(wo core.Vec3, u core.Vec2) (core.Vec3, core.Spectrum, float64, core.BxDFType) {
	wi := core.NewVec3(-wo.X, -wo.Y, wo.Z)
	cosTheta := core.CosTheta(wi)
	if cosTheta == 0 {
		return core.Vec3{}, core.Black, 0, s.Type()
	}
	f := s.Fresnel.Evaluate(cosTheta).Multiply(s.R).Scale(1 / core.AbsCosTheta(wi))
	return wi, f, 1, s.Type()
}

// PDF is zero for delta distributions
func (s *SpecularReflection) PDF(wo, wi core.Vec3) float64 {
	return 0
}

// SpecularTransmission refracts through a dielectric boundary. When carrying
// radiance the refracted throughput is scaled by (etaI/etaT)^2 to account for
// compression of solid angle; importance transport omits the factor.
type SpecularTransmission struct {
	T          core.Spectrum
	EtaA, EtaB float64
	Mode       core.TransportMode
	fresnel    FresnelDielectricTerm
}

// NewSpecularTransmission creates a specular transmitter across etaA (outside)
// and etaB (inside)
func NewSpecularTransmission(t core.Spectrum, etaA, etaB float64, mode core.TransportMode) *SpecularTransmission {
	return &SpecularTransmission{
		T:       t,
		EtaA:    etaA,
		EtaB:    etaB,
		Mode:    mode,
		fresnel: FresnelDielectricTerm{EtaI: etaA, EtaT: etaB},
	}
}

// Type returns specular transmission
func (s *SpecularTransmission) Type() core.BxDFType {
	return core.BSDFTransmission | core.BSDFSpecular
}

// F is zero for delta distributions
func (s *SpecularTransmission) F(wo, wi core.Vec3) core.Spectrum {
	return core.Black
}

// SampleF refracts wo through the boundary via Snell's law
func (s *SpecularTransmission) SampleF(wo core.Vec3, u core.Vec2) (core.Vec3, core.Spectrum, float64, core.BxDFType) {
	entering := core.CosTheta(wo) > 0
	etaI, etaT := s.EtaA, s.EtaB
	if !entering {
		etaI, etaT = s.EtaB, s.EtaA
	}

	n := core.NewVec3(0, 0, 1)
	n = core.Faceforward(n, wo)
	wi, ok := core.Refract(wo, n, etaI/etaT)
	if !ok {
		return core.Vec3{}, core.Black, 0, s.Type()
	}

	ft := s.T.Multiply(core.White.Subtract(s.fresnel.Evaluate(core.CosTheta(wi))))
	if s.Mode == core.TransportRadiance {
		ft = ft.Scale((etaI * etaI) / (etaT * etaT))
	}
	return wi, ft.Scale(1 / core.AbsCosTheta(wi)), 1, s.Type()
}

// PDF is zero for delta distributions
func (s *SpecularTransmission) PDF(wo, wi core.Vec3) float64 {
	return 0
}

// FresnelSpecular mixes specular reflection and transmission, choosing the
// branch stochastically with probability equal to the Fresnel reflectance
type FresnelSpecular struct {
	R, T       core.Spectrum
	EtaA, EtaB float64
	Mode       core.TransportMode
}

// NewFresnelSpecular creates the combined dielectric specular component
func NewFresnelSpecular(r, t core.Spectrum, etaA, etaB float64, mode core.TransportMode) *FresnelSpecular {
	return &FresnelSpecular{R: r, T: t, EtaA: etaA, EtaB: etaB, Mode: mode}
}

// Type returns specular reflection and transmission
func (s *FresnelSpecular) Type() core.BxDFType {
	return core.BSDFReflection | core.BSDFTransmission | core.BSDFSpecular
}

// F is zero for delta distributions
func (s *FresnelSpecular) F(wo, wi core.Vec3) core.Spectrum {
	return core.Black
}

// SampleF picks reflection with probability F and transmission otherwise.
// The branch probability divides out so each branch stays unbiased.
func (s *FresnelSpecular) SampleF(wo core.Vec3, u core.Vec2) (core.Vec3, core.Spectrum, float64, core.BxDFType) {
	fresnel := FresnelDielectric(core.CosTheta(wo), s.EtaA, s.EtaB)

	if u.X < fresnel {
		wi := core.NewVec3(-wo.X, -wo.Y, wo.Z)
		f := s.R.Scale(fresnel / core.AbsCosTheta(wi))
		return wi, f, fresnel, core.BSDFReflection | core.BSDFSpecular
	}

	entering := core.CosTheta(wo) > 0
	etaI, etaT := s.EtaA, s.EtaB
	if !entering {
		etaI, etaT = s.EtaB, s.EtaA
	}
	n := core.Faceforward(core.NewVec3(0, 0, 1), wo)
	wi, ok := core.Refract(wo, n, etaI/etaT)
	if !ok {
		return core.Vec3{}, core.Black, 0, s.Type()
	}

	ft := s.T.Scale(1 - fresnel)
	if s.Mode == core.TransportRadiance {
		ft = ft.Scale((etaI * etaI) / (etaT * etaT))
	}
	return wi, ft.Scale(1 / core.AbsCosTheta(wi)), 1 - fresnel, core.BSDFTransmission | core.BSDFSpecular
}

// PDF is zero for delta distributions
func (s *FresnelSpecular) PDF(wo, wi core.Vec3) float64 {
	return 0
}
