// Package medium implements participating media: a homogeneous absorbing and
// scattering medium with the Henyey-Greenstein phase function.
package medium

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// Homogeneous is a medium with constant absorption and scattering
// coefficients and a single HG asymmetry parameter
type Homogeneous struct {
	SigmaA core.Spectrum // absorption coefficient
	SigmaS core.Spectrum // scattering coefficient
	SigmaT core.Spectrum // extinction, sigma_a + sigma_s
	G      float64       // HG asymmetry in (-1, 1)
}

// NewHomogeneous creates a homogeneous medium
func NewHomogeneous(sigmaA, sigmaS core.Spectrum, g float64) *Homogeneous {
	return &Homogeneous{
		SigmaA: sigmaA,
		SigmaS: sigmaS,
		SigmaT: sigmaA.Add(sigmaS),
		G:      g,
	}
}

// Tr returns beam transmittance over the ray's [0, TMax] segment
func (m *Homogeneous) Tr(ray core.Ray, sampler core.Sampler) core.Spectrum {
	dist := math.Min(ray.TMax, 1e30) * ray.Direction.Length()
	return m.SigmaT.Scale(-dist).Exp()
}

// Sample samples a free-flight scattering distance along the ray. A channel
// is chosen uniformly, a distance drawn from its exponential, and the
// returned weight divides by the channel-averaged density so the estimator
// stays unbiased across channels.
func (m *Homogeneous) Sample(ray core.Ray, sampler core.Sampler) (*core.MediumInteraction, core.Spectrum) {
	channel := min(2, int(sampler.Get1D()*3))
	sigmaTc := m.SigmaT.Component(channel)

	var t float64
	if sigmaTc > 0 {
		t = -math.Log(1-sampler.Get1D()) / sigmaTc
	} else {
		t = math.Inf(1)
	}
	t = t / ray.Direction.Length()
	sampledMedium := t < ray.TMax

	dist := math.Min(t, ray.TMax) * ray.Direction.Length()
	tr := m.SigmaT.Scale(-dist).Exp()

	// Density averaged over channels: pdf(t) for interactions includes the
	// sigma_t factor of the exponential; past the end it is the survival
	// probability.
	density := tr
	if sampledMedium {
		density = m.SigmaT.Multiply(tr)
	}
	pdf := density.Average()
	if pdf == 0 {
		pdf = 1
	}

	if sampledMedium {
		mi := &core.MediumInteraction{
			P:      ray.At(t),
			Wo:     ray.Direction.Negate(),
			Medium: m,
			Phase:  HenyeyGreenstein{G: m.G},
		}
		return mi, tr.Multiply(m.SigmaS).Scale(1 / pdf)
	}
	return nil, tr.Scale(1 / pdf)
}

// HenyeyGreenstein is the analytic anisotropic phase function
// p(theta) = (1-g^2) / (4 pi (1 + g^2 - 2 g cos(theta))^1.5)
type HenyeyGreenstein struct {
	G float64
}

// phaseHG evaluates the HG density for a scattering cosine
func phaseHG(cosTheta, g float64) float64 {
	denom := 1 + g*g + 2*g*cosTheta
	return (1 - g*g) / (4 * math.Pi * denom * math.Sqrt(math.Max(1e-12, denom)))
}

// P evaluates the phase function for a direction pair
func (h HenyeyGreenstein) P(wo, wi core.Vec3) float64 {
	return phaseHG(wo.Dot(wi), h.G)
}

// SampleP importance-samples the phase function analytically. The returned
// value equals the PDF since HG integrates to one.
func (h HenyeyGreenstein) SampleP(wo core.Vec3, u core.Vec2) (core.Vec3, float64) {
	g := h.G
	var cosTheta float64
	if math.Abs(g) < 1e-3 {
		cosTheta = 1 - 2*u.X
	} else {
		sqrTerm := (1 - g*g) / (1 + g - 2*g*u.X)
		cosTheta = -(1 + g*g - sqrTerm*sqrTerm) / (2 * g)
	}

	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * u.Y
	frame := core.NewFrame(wo)
	wi := frame.ToWorld(core.NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), cosTheta))
	return wi, phaseHG(cosTheta, g)
}
