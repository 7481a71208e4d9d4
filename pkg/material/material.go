package material

import (
	"github.com/radiant-render/radiant/pkg/bssrdf"
	"github.com/radiant-render/radiant/pkg/bxdf"
	"github.com/radiant-render/radiant/pkg/core"
)

// Matte is a purely diffuse material
type Matte struct {
	Kd Texture
}

// NewMatte creates a diffuse material with reflectance kd
func NewMatte(kd Texture) *Matte {
	return &Matte{Kd: kd}
}

// ComputeScattering attaches a Lambertian BSDF
func (m *Matte) ComputeScattering(si *core.SurfaceInteraction, mode core.TransportMode) {
	kd := m.Kd.Evaluate(si).ClampNonNegative()
	si.BSDF = bxdf.NewBSDF(si, 1, bxdf.NewLambertianReflection(kd))
}

// Mirror is a perfect specular reflector
type Mirror struct {
	Kr Texture
}

// NewMirror creates a mirror with reflectance kr
func NewMirror(kr Texture) *Mirror {
	return &Mirror{Kr: kr}
}

// ComputeScattering attaches a specular reflection BSDF
func (m *Mirror) ComputeScattering(si *core.SurfaceInteraction, mode core.TransportMode) {
	kr := m.Kr.Evaluate(si).ClampNonNegative()
	si.BSDF = bxdf.NewBSDF(si, 1, bxdf.NewSpecularReflection(kr, bxdf.FresnelNoOp{}))
}

// Glass is a dielectric with optional roughness. Smooth glass uses the
// combined Fresnel specular component; rough glass uses microfacet
// reflection and transmission.
type Glass struct {
	Kr, Kt    Texture
	Eta       float64
	Roughness FloatTexture // nil or zero for smooth glass
}

// NewGlass creates a smooth glass material
func NewGlass(kr, kt Texture, eta float64) *Glass {
	return &Glass{Kr: kr, Kt: kt, Eta: eta}
}

// NewRoughGlass creates a ground-glass material
func NewRoughGlass(kr, kt Texture, eta float64, roughness FloatTexture) *Glass {
	return &Glass{Kr: kr, Kt: kt, Eta: eta, Roughness: roughness}
}

// ComputeScattering attaches the dielectric BSDF
func (g *Glass) ComputeScattering(si *core.SurfaceInteraction, mode core.TransportMode) {
	kr := g.Kr.Evaluate(si).ClampNonNegative()
	kt := g.Kt.Evaluate(si).ClampNonNegative()

	roughness := 0.0
	if g.Roughness != nil {
		roughness = g.Roughness.Evaluate(si)
	}

	b := bxdf.NewBSDF(si, g.Eta)
	if kr.IsBlack() && kt.IsBlack() {
		si.BSDF = b
		return
	}

	if roughness == 0 {
		b.Add(bxdf.NewFresnelSpecular(kr, kt, 1, g.Eta, mode))
	} else {
		distribution := bxdf.NewTrowbridgeReitz(roughness, roughness)
		if !kr.IsBlack() {
			fresnel := bxdf.FresnelDielectricTerm{EtaI: 1, EtaT: g.Eta}
			b.Add(bxdf.NewMicrofacetReflection(kr, distribution, fresnel))
		}
		if !kt.IsBlack() {
			b.Add(bxdf.NewMicrofacetTransmission(kt, distribution, 1, g.Eta, mode))
		}
	}
	si.BSDF = b
}

// Plastic is a diffuse substrate under a glossy dielectric coat
type Plastic struct {
	Kd, Ks    Texture
	Roughness FloatTexture
}

// NewPlastic creates a rough plastic material
func NewPlastic(kd, ks Texture, roughness FloatTexture) *Plastic {
	return &Plastic{Kd: kd, Ks: ks, Roughness: roughness}
}

// ComputeScattering attaches the diffuse and glossy components
func (p *Plastic) ComputeScattering(si *core.SurfaceInteraction, mode core.TransportMode) {
	b := bxdf.NewBSDF(si, 1)

	kd := p.Kd.Evaluate(si).ClampNonNegative()
	if !kd.IsBlack() {
		b.Add(bxdf.NewLambertianReflection(kd))
	}

	ks := p.Ks.Evaluate(si).ClampNonNegative()
	if !ks.IsBlack() {
		roughness := p.Roughness.Evaluate(si)
		distribution := bxdf.NewTrowbridgeReitz(roughness, roughness)
		fresnel := bxdf.FresnelDielectricTerm{EtaI: 1, EtaT: 1.5}
		b.Add(bxdf.NewMicrofacetReflection(ks, distribution, fresnel))
	}
	si.BSDF = b
}

// Metal is a rough conductor with spectral complex refraction
type Metal struct {
	Eta, K    Texture
	Roughness FloatTexture
}

// NewMetal creates a rough conductor material
func NewMetal(eta, k Texture, roughness FloatTexture) *Metal {
	return &Metal{Eta: eta, K: k, Roughness: roughness}
}

// ComputeScattering attaches a conductor microfacet BSDF
func (m *Metal) ComputeScattering(si *core.SurfaceInteraction, mode core.TransportMode) {
	roughness := m.Roughness.Evaluate(si)
	distribution := bxdf.NewTrowbridgeReitz(roughness, roughness)
	fresnel := bxdf.FresnelConductorTerm{
		EtaI: core.White,
		EtaT: m.Eta.Evaluate(si),
		K:    m.K.Evaluate(si),
	}
	si.BSDF = bxdf.NewBSDF(si, 1,
		bxdf.NewMicrofacetReflection(core.White, distribution, fresnel))
}

// Subsurface is a translucent material: a smooth dielectric boundary over a
// diffusing interior described by a dipole BSSRDF
type Subsurface struct {
	SigmaA, SigmaS Texture
	Eta            float64
	G              float64 // scattering anisotropy used to reduce sigma_s
}

// NewSubsurface creates a subsurface material from raw medium parameters
func NewSubsurface(sigmaA, sigmaS Texture, eta, g float64) *Subsurface {
	return &Subsurface{SigmaA: sigmaA, SigmaS: sigmaS, Eta: eta, G: g}
}

// ComputeScattering attaches the boundary BSDF and the dipole BSSRDF
func (s *Subsurface) ComputeScattering(si *core.SurfaceInteraction, mode core.TransportMode) {
	si.BSDF = bxdf.NewBSDF(si, s.Eta,
		bxdf.NewFresnelSpecular(core.White, core.White, 1, s.Eta, mode))

	sigmaA := s.SigmaA.Evaluate(si).ClampNonNegative()
	sigmaSPrime := s.SigmaS.Evaluate(si).ClampNonNegative().Scale(1 - s.G)
	si.BSSRDF = bssrdf.NewDipole(sigmaA, sigmaSPrime, s.Eta)
}
