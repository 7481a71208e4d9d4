package integrator

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/scene"
)

// PPM is probabilistic progressive photon mapping. Each pass rebuilds the
// photon map from scratch and gathers within a global radius that shrinks as
// r_{i+1} = r_i * sqrt((i + alpha) / (i + 1)), which drives the estimate to
// the exact solution as passes accumulate.
type PPM struct {
	NumPhotonsPerPass int
	InitialRadius     float64
	Alpha             float64
	MaxDepth          int

	tree   *KdTree
	radius float64
	pass   int
}

// NewPPM creates a progressive photon mapping integrator
func NewPPM(numPhotonsPerPass int, initialRadius, alpha float64, maxDepth int) *PPM {
	return &PPM{
		NumPhotonsPerPass: numPhotonsPerPass,
		InitialRadius:     initialRadius,
		Alpha:             alpha,
		MaxDepth:          maxDepth,
		radius:            initialRadius,
	}
}

// Radius returns the current gather radius
func (p *PPM) Radius() float64 {
	return p.radius
}

// Preprocess builds the first pass's photon map
func (p *PPM) Preprocess(sc *scene.Scene, sampler core.Sampler, logger core.Logger) error {
	p.tree = NewKdTree(TracePhotons(sc, sampler, p.NumPhotonsPerPass, p.MaxDepth))
	logger.Printf("ppm: initial photon map holds %d photons, radius %.4f", p.tree.Size(), p.radius)
	return nil
}

// PassStarted is a no-op; the map for the pass was built at the end of the
// previous one
func (p *PPM) PassStarted(pass int, sc *scene.Scene, sampler core.Sampler, logger core.Logger) {
}

// PassFinished shrinks the radius and rebuilds the photon map
func (p *PPM) PassFinished(pass int, sc *scene.Scene, sampler core.Sampler, logger core.Logger) {
	i := float64(p.pass)
	p.radius *= math.Sqrt((i + p.Alpha) / (i + 1))
	p.pass++

	p.tree = NewKdTree(TracePhotons(sc, sampler, p.NumPhotonsPerPass, p.MaxDepth))
	logger.Printf("ppm: pass %d rebuilt map with %d photons, radius %.4f", pass+1, p.tree.Size(), p.radius)
}

// Li gathers photons within the global radius at the first diffuse hit
func (p *PPM) Li(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Spectrum {
	l := core.Black
	beta := core.White

	for depth := 0; depth < p.MaxDepth; depth++ {
		hitRay := ray
		si, ok := sc.Intersect(&hitRay)
		if !ok {
			l = l.Add(beta.Multiply(sc.EscapedRadiance(ray)))
			break
		}

		l = l.Add(beta.Multiply(si.Le(si.Wo)))

		if si.Material == nil {
			ray = si.SpawnRay(ray.Direction)
			continue
		}
		si.Material.ComputeScattering(si, core.TransportRadiance)
		if si.BSDF == nil {
			break
		}

		if si.BSDF.NumComponents(core.BSDFAll&^core.BSDFSpecular) > 0 {
			photons := p.tree.InRadius(si.P, p.radius)
			if len(photons) > 0 {
				sum := core.Black
				for _, ph := range photons {
					f := si.BSDF.F(si.Wo, ph.Wi, core.BSDFAll&^core.BSDFSpecular)
					sum = sum.Add(f.Multiply(ph.Beta))
				}
				l = l.Add(beta.Multiply(sum.Scale(1 / (math.Pi * p.radius * p.radius))))
			}
			break
		}

		wi, f, pdf, _ := si.BSDF.SampleF(si.Wo, sampler.Get2D(), core.BSDFAll)
		if pdf == 0 || f.IsBlack() {
			break
		}
		beta = beta.Multiply(f.Scale(wi.AbsDot(si.Shading.Normal) / pdf))
		ray = si.SpawnRay(wi)
	}

	return l
}
