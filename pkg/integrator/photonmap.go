package integrator

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/scene"
)

// TracePhotons emits numPhotons from the scene's lights (selected by the
// power distribution) and stores a photon at every non-specular surface hit.
// The returned photon throughputs are already divided by the photon count,
// so summing f * beta over a density estimate yields radiance directly.
func TracePhotons(sc *scene.Scene, sampler core.Sampler, numPhotons, maxDepth int) []Photon {
	photons := make([]Photon, 0, numPhotons*2)

	for i := 0; i < numPhotons; i++ {
		light, selectPdf, _ := sc.LightDistrib.Sample(sampler.Get1D())
		if light == nil || selectPdf == 0 {
			continue
		}

		es := light.SampleLe(sampler.Get2D(), sampler.Get2D())
		if es.PdfPos == 0 || es.PdfDir == 0 || es.L.IsBlack() {
			continue
		}

		beta := es.L.Scale(es.N.AbsDot(es.Ray.Direction) /
			(selectPdf * es.PdfPos * es.PdfDir * float64(numPhotons)))
		ray := es.Ray

		for depth := 0; depth < maxDepth; depth++ {
			hitRay := ray
			si, ok := sc.Intersect(&hitRay)
			if !ok {
				break
			}
			if si.Material == nil {
				ray = si.SpawnRay(ray.Direction)
				continue
			}
			si.Material.ComputeScattering(si, core.TransportImportance)
			if si.BSDF == nil {
				break
			}

			// Store at diffuse and glossy hits only; specular vertices carry
			// their energy onward
			if si.BSDF.NumComponents(core.BSDFAll&^core.BSDFSpecular) > 0 {
				photons = append(photons, Photon{P: si.P, Wi: si.Wo, Beta: beta})
			}

			wi, f, pdf, _ := si.BSDF.SampleF(si.Wo, sampler.Get2D(), core.BSDFAll)
			if pdf == 0 || f.IsBlack() {
				break
			}
			newBeta := beta.Multiply(f.Scale(wi.AbsDot(si.Shading.Normal) / pdf))

			// Russian roulette keyed on the throughput ratio
			q := math.Max(0, 1-newBeta.Luminance()/math.Max(1e-9, beta.Luminance()))
			if sampler.Get1D() < q {
				break
			}
			beta = newBeta.Scale(1 / (1 - q))
			if beta.HasNaN() {
				break
			}
			ray = si.SpawnRay(wi)
		}
	}

	return photons
}

// TotalLightPower sums the power of all lights, the conservation bound for a
// traced photon set
func TotalLightPower(sc *scene.Scene) core.Spectrum {
	total := core.Black
	for _, l := range sc.Lights {
		total = total.Add(l.Power())
	}
	return total
}

// PhotonMap renders by direct photon-density visualization: camera rays walk
// specular chains, and the first diffuse hit estimates radiance from the k
// nearest photons.
type PhotonMap struct {
	NumPhotons  int
	GatherCount int
	GatherDist  float64
	MaxDepth    int

	tree *KdTree
}

// NewPhotonMap creates the direct-visualization photon map integrator
func NewPhotonMap(numPhotons, gatherCount int, gatherDist float64, maxDepth int) *PhotonMap {
	return &PhotonMap{
		NumPhotons:  numPhotons,
		GatherCount: gatherCount,
		GatherDist:  gatherDist,
		MaxDepth:    maxDepth,
	}
}

// Preprocess traces the photon set and builds the k-d tree
func (pm *PhotonMap) Preprocess(sc *scene.Scene, sampler core.Sampler, logger core.Logger) error {
	photons := TracePhotons(sc, sampler, pm.NumPhotons, pm.MaxDepth)
	pm.tree = NewKdTree(photons)
	logger.Printf("photon map: stored %d photons", pm.tree.Size())
	return nil
}

// EstimateRadiance computes the density estimate (1/pi r^2) sum f(wo, wi_p)
// beta_p over the nearest photons
func (pm *PhotonMap) EstimateRadiance(si *core.SurfaceInteraction) core.Spectrum {
	photons, radius2 := pm.tree.KNearest(si.P, pm.GatherCount, pm.GatherDist)
	if len(photons) == 0 || radius2 == 0 {
		return core.Black
	}

	sum := core.Black
	for _, ph := range photons {
		f := si.BSDF.F(si.Wo, ph.Wi, core.BSDFAll&^core.BSDFSpecular)
		sum = sum.Add(f.Multiply(ph.Beta))
	}
	return sum.Scale(1 / (math.Pi * radius2))
}

// Li walks specular chains and gathers at the first diffuse hit
func (pm *PhotonMap) Li(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Spectrum {
	l := core.Black
	beta := core.White

	for depth := 0; depth < pm.MaxDepth; depth++ {
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
			l = l.Add(beta.Multiply(pm.EstimateRadiance(si)))
			break
		}

		// Specular-only vertex: continue the chain
		wi, f, pdf, _ := si.BSDF.SampleF(si.Wo, sampler.Get2D(), core.BSDFAll)
		if pdf == 0 || f.IsBlack() {
			break
		}
		beta = beta.Multiply(f.Scale(wi.AbsDot(si.Shading.Normal) / pdf))
		ray = si.SpawnRay(wi)
	}

	return l
}
