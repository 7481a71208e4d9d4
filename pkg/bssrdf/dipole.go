// Package bssrdf implements separable subsurface scattering with the
// classical dipole diffusion approximation.
package bssrdf

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/bxdf"
)

// Dipole is a separable BSSRDF S(po, wo, pi, wi) = (1-Fr(wo)) Sp(po, pi)
// Sw(wi) built from the dipole diffusion kernel of a semi-infinite slab.
type Dipole struct {
	SigmaA      core.Spectrum // absorption
	SigmaSPrime core.Spectrum // reduced scattering sigma_s (1 - g)
	Eta         float64       // relative index of refraction

	sigmaTPrime core.Spectrum // reduced extinction
	alphaPrime  core.Spectrum // reduced albedo
	sigmaTr     core.Spectrum // effective transport coefficient
	zr, zv      core.Spectrum // real and virtual dipole source depths
	fdr         float64       // diffuse Fresnel reflectance
}

// NewDipole creates a dipole BSSRDF from reduced scattering parameters
func NewDipole(sigmaA, sigmaSPrime core.Spectrum, eta float64) *Dipole {
	d := &Dipole{SigmaA: sigmaA, SigmaSPrime: sigmaSPrime, Eta: eta}

	d.sigmaTPrime = sigmaA.Add(sigmaSPrime)
	d.alphaPrime = core.NewSpectrum(
		safeDiv(sigmaSPrime.R, d.sigmaTPrime.R),
		safeDiv(sigmaSPrime.G, d.sigmaTPrime.G),
		safeDiv(sigmaSPrime.B, d.sigmaTPrime.B),
	)
	d.sigmaTr = sigmaA.Multiply(d.sigmaTPrime).Scale(3).Sqrt()

	// Diffuse Fresnel reflectance approximation (Egan and Hilgeman fit)
	d.fdr = -1.440/(eta*eta) + 0.710/eta + 0.668 + 0.0636*eta
	a := (1 + d.fdr) / (1 - d.fdr)

	// Dipole source depths: one mean free path in, mirrored above the
	// extrapolated boundary
	one := core.NewSpectrum(
		safeDiv(1, d.sigmaTPrime.R),
		safeDiv(1, d.sigmaTPrime.G),
		safeDiv(1, d.sigmaTPrime.B),
	)
	d.zr = one
	d.zv = one.Scale(1 + 4.0/3.0*a)
	return d
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Rd evaluates the diffusion reflectance kernel at radial distance r
func (d *Dipole) Rd(r float64) core.Spectrum {
	r2 := r * r
	channel := func(alphaPrime, sigmaTr, zr, zv float64) float64 {
		if alphaPrime == 0 {
			return 0
		}
		dr := math.Sqrt(r2 + zr*zr)
		dv := math.Sqrt(r2 + zv*zv)
		cr := zr * (sigmaTr*dr + 1) * math.Exp(-sigmaTr*dr) / (dr * dr * dr)
		cv := zv * (sigmaTr*dv + 1) * math.Exp(-sigmaTr*dv) / (dv * dv * dv)
		return alphaPrime / (4 * math.Pi) * (cr + cv)
	}
	return core.NewSpectrum(
		channel(d.alphaPrime.R, d.sigmaTr.R, d.zr.R, d.zv.R),
		channel(d.alphaPrime.G, d.sigmaTr.G, d.zr.G, d.zv.G),
		channel(d.alphaPrime.B, d.sigmaTr.B, d.zr.B, d.zv.B),
	)
}

// Sp is the spatial term: the diffusion kernel of the distance between the
// entry and exit points
func (d *Dipole) Sp(po, pi core.Vec3) core.Spectrum {
	return d.Rd(po.Subtract(pi).Length())
}

// Sw is the directional term at the exit point, a normalized Fresnel
// transmittance
func (d *Dipole) Sw(w core.Vec3) core.Spectrum {
	c := 1 - d.fdr
	ft := 1 - bxdf.FresnelDielectric(core.CosTheta(w), 1, d.Eta)
	return core.NewSpectrumUniform(ft / (c * math.Pi))
}

// MeanFreePath returns the shortest of the per-channel diffusion lengths,
// used to size the irradiance sample spacing
func (d *Dipole) MeanFreePath() float64 {
	maxSigmaTr := d.sigmaTr.MaxComponent()
	if maxSigmaTr == 0 {
		return 1
	}
	return 1 / maxSigmaTr
}

var _ core.BSSRDF = (*Dipole)(nil)
