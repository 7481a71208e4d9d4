package bxdf

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// TrowbridgeReitz is the GGX microfacet normal distribution with anisotropic
// roughness. Visible-normal sampling keeps the sample weight close to one.
type TrowbridgeReitz struct {
	AlphaX, AlphaY float64
	SampleVisible  bool
}

// NewTrowbridgeReitz creates the distribution with the given roughness values
func NewTrowbridgeReitz(alphaX, alphaY float64) *TrowbridgeReitz {
	return &TrowbridgeReitz{
		AlphaX:        math.Max(1e-3, alphaX),
		AlphaY:        math.Max(1e-3, alphaY),
		SampleVisible: true,
	}
}

// RoughnessToAlpha maps a perceptual roughness parameter to alpha
func RoughnessToAlpha(roughness float64) float64 {
	roughness = math.Max(roughness, 1e-3)
	x := math.Log(roughness)
	return 1.62142 + 0.819955*x + 0.1734*x*x + 0.0171201*x*x*x + 0.000640711*x*x*x*x
}

// D evaluates the normal distribution for the half vector wh
func (d *TrowbridgeReitz) D(wh core.Vec3) float64 {
	tan2Theta := core.Tan2Theta(wh)
	if math.IsInf(tan2Theta, 0) {
		return 0
	}
	cos4Theta := core.Cos2Theta(wh) * core.Cos2Theta(wh)
	e := (core.CosPhi(wh)*core.CosPhi(wh)/(d.AlphaX*d.AlphaX) +
		core.SinPhi(wh)*core.SinPhi(wh)/(d.AlphaY*d.AlphaY)) * tan2Theta
	return 1 / (math.Pi * d.AlphaX * d.AlphaY * cos4Theta * (1 + e) * (1 + e))
}

// Lambda is the Smith auxiliary function used in the masking-shadowing term
func (d *TrowbridgeReitz) Lambda(w core.Vec3) float64 {
	absTanTheta := math.Abs(core.TanTheta(w))
	if math.IsInf(absTanTheta, 0) {
		return 0
	}
	alpha := math.Sqrt(core.CosPhi(w)*core.CosPhi(w)*d.AlphaX*d.AlphaX +
		core.SinPhi(w)*core.SinPhi(w)*d.AlphaY*d.AlphaY)
	alpha2Tan2Theta := (alpha * absTanTheta) * (alpha * absTanTheta)
	return (-1 + math.Sqrt(1+alpha2Tan2Theta)) / 2
}

// G1 is the masking term for a single direction
func (d *TrowbridgeReitz) G1(w core.Vec3) float64 {
	return 1 / (1 + d.Lambda(w))
}

// G is the Smith height-correlated masking-shadowing term
func (d *TrowbridgeReitz) G(wo, wi core.Vec3) float64 {
	return 1 / (1 + d.Lambda(wo) + d.Lambda(wi))
}

// SampleWh samples a half vector, from the visible-normal distribution when
// enabled, otherwise from the full distribution
func (d *TrowbridgeReitz) SampleWh(wo core.Vec3, u core.Vec2) core.Vec3 {
	if d.SampleVisible {
		flip := wo.Z < 0
		w := wo
		if flip {
			w = w.Negate()
		}
		wh := sampleGGXVisible(w, d.AlphaX, d.AlphaY, u)
		if flip {
			wh = wh.Negate()
		}
		return wh
	}

	// Full-distribution sampling (isotropic form)
	tan2Theta := d.AlphaX * d.AlphaX * u.X / (1 - u.X)
	cosTheta := 1 / math.Sqrt(1+tan2Theta)
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * u.Y
	wh := core.NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), cosTheta)
	if !core.SameHemisphere(wo, wh) {
		wh = wh.Negate()
	}
	return wh
}

// sampleGGXVisible samples the distribution of visible normals for a
// direction in the upper hemisphere
func sampleGGXVisible(wo core.Vec3, alphaX, alphaY float64, u core.Vec2) core.Vec3 {
	// Stretch the view vector to the unit-roughness configuration
	v := core.NewVec3(alphaX*wo.X, alphaY*wo.Y, wo.Z).Normalize()

	t1, t2 := core.CoordinateSystem(v)
	if v.Z < 0.9999 {
		t1 = core.NewVec3(0, 0, 1).Cross(v).Normalize()
		t2 = v.Cross(t1)
	}

	// Sample a disk with the polar mapping warped by the view cosine
	a := 1 / (1 + v.Z)
	r := math.Sqrt(u.X)
	var phi float64
	if u.Y < a {
		phi = u.Y / a * math.Pi
	} else {
		phi = math.Pi + (u.Y-a)/(1-a)*math.Pi
	}
	p1 := r * math.Cos(phi)
	p2 := r * math.Sin(phi)
	if u.Y >= a {
		p2 *= v.Z
	}
	p3 := math.Sqrt(math.Max(0, 1-p1*p1-p2*p2))

	n := t1.Multiply(p1).Add(t2.Multiply(p2)).Add(v.Multiply(p3))
	// Unstretch back to the original roughness
	return core.NewVec3(alphaX*n.X, alphaY*n.Y, math.Max(1e-6, n.Z)).Normalize()
}

// PDF returns the density of SampleWh for the half vector wh
func (d *TrowbridgeReitz) PDF(wo, wh core.Vec3) float64 {
	if d.SampleVisible {
		return d.D(wh) * d.G1(wo) * wo.AbsDot(wh) / core.AbsCosTheta(wo)
	}
	return d.D(wh) * core.AbsCosTheta(wh)
}

// MicrofacetReflection is the torrance-sparrow reflection model with a
// Trowbridge-Reitz distribution: f = D*G*F / (4 cos(o) cos(i))
type MicrofacetReflection struct {
	R            core.Spectrum
	Distribution *TrowbridgeReitz
	Fresnel      Fresnel
}

// NewMicrofacetReflection creates a glossy microfacet reflector
func NewMicrofacetReflection(r core.Spectrum, distribution *TrowbridgeReitz, fresnel Fresnel) *MicrofacetReflection {
	return &MicrofacetReflection{R: r, Distribution: distribution, Fresnel: fresnel}
}

// Type returns glossy reflection
func (m *MicrofacetReflection) Type() core.BxDFType {
	return core.BSDFReflection | core.BSDFGlossy
}

// F evaluates the microfacet model
func (m *MicrofacetReflection) F(wo, wi core.Vec3) core.Spectrum {
	cosThetaO := core.AbsCosTheta(wo)
	cosThetaI := core.AbsCosTheta(wi)
	wh := wi.Add(wo)
	if cosThetaO == 0 || cosThetaI == 0 || wh.IsZero() {
		return core.Black
	}
	wh = wh.Normalize()

	// Fresnel is evaluated against the half vector on the incident side
	fr := m.Fresnel.Evaluate(wi.Dot(core.Faceforward(wh, core.NewVec3(0, 0, 1))))
	return m.R.Multiply(fr).Scale(
		m.Distribution.D(wh) * m.Distribution.G(wo, wi) / (4 * cosThetaO * cosThetaI))
}

// SampleF samples a half vector from the distribution and reflects wo
func (m *MicrofacetReflection) SampleF(wo core.Vec3, u core.Vec2) (core.Vec3, core.Spectrum, float64, core.BxDFType) {
	if wo.Z == 0 {
		return core.Vec3{}, core.Black, 0, m.Type()
	}
	wh := m.Distribution.SampleWh(wo, u)
	if wo.Dot(wh) < 0 {
		return core.Vec3{}, core.Black, 0, m.Type()
	}
	wi := wo.Negate().Reflect(wh)
	if !core.SameHemisphere(wo, wi) {
		return core.Vec3{}, core.Black, 0, m.Type()
	}

	pdf := m.Distribution.PDF(wo, wh) / (4 * wo.Dot(wh))
	return wi, m.F(wo, wi), pdf, m.Type()
}

// PDF returns the half-vector density converted to incoming solid angle
func (m *MicrofacetReflection) PDF(wo, wi core.Vec3) float64 {
	if !core.SameHemisphere(wo, wi) {
		return 0
	}
	wh := wo.Add(wi).Normalize()
	return m.Distribution.PDF(wo, wh) / (4 * wo.Dot(wh))
}

// MicrofacetTransmission is rough dielectric transmission through a
// Trowbridge-Reitz surface
type MicrofacetTransmission struct {
	T            core.Spectrum
	Distribution *TrowbridgeReitz
	EtaA, EtaB   float64
	Mode         core.TransportMode
	fresnel      FresnelDielectricTerm
}

// NewMicrofacetTransmission creates a glossy transmitter
func NewMicrofacetTransmission(t core.Spectrum, distribution *TrowbridgeReitz, etaA, etaB float64, mode core.TransportMode) *MicrofacetTransmission {
	return &MicrofacetTransmission{
		T:            t,
		Distribution: distribution,
		EtaA:         etaA,
		EtaB:         etaB,
		Mode:         mode,
		fresnel:      FresnelDielectricTerm{EtaI: etaA, EtaT: etaB},
	}
}

// Type returns glossy transmission
func (m *MicrofacetTransmission) Type() core.BxDFType {
	return core.BSDFTransmission | core.BSDFGlossy
}

// eta returns the relative IOR for an outgoing direction's side
func (m *MicrofacetTransmission) eta(wo core.Vec3) float64 {
	if core.CosTheta(wo) > 0 {
		return m.EtaB / m.EtaA
	}
	return m.EtaA / m.EtaB
}

// F evaluates the transmission term of the torrance-sparrow model
func (m *MicrofacetTransmission) F(wo, wi core.Vec3) core.Spectrum {
	if core.SameHemisphere(wo, wi) {
		return core.Black
	}
	cosThetaO := core.CosTheta(wo)
	cosThetaI := core.CosTheta(wi)
	if cosThetaO == 0 || cosThetaI == 0 {
		return core.Black
	}

	eta := m.eta(wo)
	wh := wo.Add(wi.Multiply(eta)).Normalize()
	if wh.Z < 0 {
		wh = wh.Negate()
	}
	if wo.Dot(wh)*wi.Dot(wh) > 0 {
		return core.Black
	}

	fr := m.fresnel.Evaluate(wo.Dot(wh))
	sqrtDenom := wo.Dot(wh) + eta*wi.Dot(wh)
	factor := 1.0
	if m.Mode == core.TransportRadiance {
		factor = 1 / eta
	}

	return core.White.Subtract(fr).Multiply(m.T).Scale(math.Abs(
		m.Distribution.D(wh) * m.Distribution.G(wo, wi) * eta * eta *
			wi.AbsDot(wh) * wo.AbsDot(wh) * factor * factor /
			(cosThetaI * cosThetaO * sqrtDenom * sqrtDenom)))
}

// SampleF samples a half vector and refracts wo through it
func (m *MicrofacetTransmission) SampleF(wo core.Vec3, u core.Vec2) (core.Vec3, core.Spectrum, float64, core.BxDFType) {
	if wo.Z == 0 {
		return core.Vec3{}, core.Black, 0, m.Type()
	}
	wh := m.Distribution.SampleWh(wo, u)
	if wo.Dot(wh) < 0 {
		return core.Vec3{}, core.Black, 0, m.Type()
	}

	eta := 1 / m.eta(wo)
	wi, ok := core.Refract(wo, core.Faceforward(wh, wo), eta)
	if !ok {
		return core.Vec3{}, core.Black, 0, m.Type()
	}
	return wi, m.F(wo, wi), m.PDF(wo, wi), m.Type()
}

// PDF returns the half-vector density converted through the refraction
// Jacobian
func (m *MicrofacetTransmission) PDF(wo, wi core.Vec3) float64 {
	if core.SameHemisphere(wo, wi) {
		return 0
	}
	eta := m.eta(wo)
	wh := wo.Add(wi.Multiply(eta)).Normalize()
	if wo.Dot(wh)*wi.Dot(wh) > 0 {
		return 0
	}

	sqrtDenom := wo.Dot(wh) + eta*wi.Dot(wh)
	dwhDwi := math.Abs(eta * eta * wi.Dot(wh) / (sqrtDenom * sqrtDenom))
	return m.Distribution.PDF(wo, wh) * dwhDwi
}
