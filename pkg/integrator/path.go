// Package integrator implements the light transport algorithms: volumetric
// path tracing with next-event estimation, bidirectional path tracing,
// primary-sample-space Metropolis, the photon map family, and hierarchical
// irradiance caching for subsurface scattering.
package integrator

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/lights"
	"github.com/radiant-render/radiant/pkg/scene"
)

// Path is the unidirectional volumetric path tracer with next-event
// estimation and multiple importance sampling
type Path struct {
	MaxDepth int
	// RRDepth is the bounce after which Russian roulette may terminate paths
	RRDepth int
}

// NewPath creates a path tracer with the given maximum depth
func NewPath(maxDepth int) *Path {
	return &Path{MaxDepth: maxDepth, RRDepth: 3}
}

// Preprocess is a no-op for the path tracer
func (p *Path) Preprocess(sc *scene.Scene, sampler core.Sampler, logger core.Logger) error {
	return nil
}

// Li estimates radiance along the camera ray
func (p *Path) Li(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Spectrum {
	l := core.Black
	beta := core.White
	specularBounce := true // the first hit's emission always counts

	for bounces := 0; bounces < p.MaxDepth; bounces++ {
		hitRay := ray
		si, foundSurface := sc.Intersect(&hitRay)

		// Sample a medium interaction along the ray segment
		var mi *core.MediumInteraction
		if ray.Medium != nil {
			segment := ray
			if foundSurface {
				segment.TMax = si.T
			}
			var weight core.Spectrum
			mi, weight = ray.Medium.Sample(segment, sampler)
			beta = beta.Multiply(weight)
		}
		if beta.IsBlack() {
			break
		}

		if mi != nil {
			// Volume vertex: direct lighting plus phase-function scattering
			l = l.Add(beta.Multiply(p.sampleDirectMedium(mi, sc, sampler)))

			wi, _ := mi.Phase.SampleP(mi.Wo, sampler.Get2D())
			ray = mi.SpawnRay(wi)
			specularBounce = false
		} else {
			// Surface vertex (or escape)
			if !foundSurface {
				if specularBounce {
					l = l.Add(beta.Multiply(sc.EscapedRadiance(ray)))
				}
				break
			}

			// Count emission only when NEE could not have found this light
			if specularBounce {
				l = l.Add(beta.Multiply(si.Le(si.Wo)))
			}

			if si.Material == nil {
				// Medium boundary without scattering: pass through
				ray = si.SpawnRay(ray.Direction)
				bounces--
				continue
			}
			si.Material.ComputeScattering(si, core.TransportRadiance)
			if si.BSDF == nil {
				break
			}

			// Next-event estimation with MIS at non-specular vertices
			if si.BSDF.NumComponents(core.BSDFAll&^core.BSDFSpecular) > 0 {
				l = l.Add(beta.Multiply(p.sampleDirectSurface(si, sc, sampler)))
			}

			wi, f, pdf, sampledType := si.BSDF.SampleF(si.Wo, sampler.Get2D(), core.BSDFAll)
			if pdf == 0 || f.IsBlack() {
				break
			}
			beta = beta.Multiply(f.Scale(wi.AbsDot(si.Shading.Normal) / pdf))
			specularBounce = sampledType.IsSpecular()
			ray = si.SpawnRay(wi)
		}

		if beta.HasNaN() {
			// Numeric failure: drop the sample's remaining contribution
			break
		}

		// Russian roulette on the surviving throughput
		if bounces >= p.RRDepth {
			q := math.Max(0.05, 1-beta.MaxComponent())
			if sampler.Get1D() < q {
				break
			}
			beta = beta.Scale(1 / (1 - q))
		}
	}

	return l
}

// sampleDirectSurface estimates direct lighting at a surface vertex by
// sampling a light (weighted against BSDF sampling) and sampling the BSDF
// (weighted against light sampling)
func (p *Path) sampleDirectSurface(si *core.SurfaceInteraction, sc *scene.Scene, sampler core.Sampler) core.Spectrum {
	light, selectPdf, _ := sc.LightDistrib.Sample(sampler.Get1D())
	if light == nil || selectPdf == 0 {
		return core.Black
	}

	l := core.Black
	noSpecular := core.BSDFAll &^ core.BSDFSpecular

	// Light sampling strategy
	ls := light.SampleLi(si.P, sampler.Get2D())
	if ls.PDF > 0 && !ls.L.IsBlack() {
		f := si.BSDF.F(si.Wo, ls.Wi, noSpecular).Scale(ls.Wi.AbsDot(si.Shading.Normal))
		if !f.IsBlack() {
			shadowRay := si.SpawnRayTo(ls.P)
			tr := sc.Transmittance(shadowRay, sampler)
			if !tr.IsBlack() {
				lightPdf := ls.PDF * selectPdf
				weight := 1.0
				if !light.IsDelta() {
					bsdfPdf := si.BSDF.PDF(si.Wo, ls.Wi, noSpecular)
					weight = core.PowerHeuristic(1, lightPdf, 1, bsdfPdf)
				}
				l = l.Add(f.Multiply(ls.L).Multiply(tr).Scale(weight / lightPdf))
			}
		}
	}

	// BSDF sampling strategy, skipped for delta lights
	if !light.IsDelta() {
		wi, f, bsdfPdf, sampledType := si.BSDF.SampleF(si.Wo, sampler.Get2D(), noSpecular)
		if bsdfPdf > 0 && !f.IsBlack() {
			f = f.Scale(wi.AbsDot(si.Shading.Normal))
			lightPdf := light.PdfLi(si.P, wi) * selectPdf
			if lightPdf > 0 {
				weight := 1.0
				if !sampledType.IsSpecular() {
					weight = core.PowerHeuristic(1, bsdfPdf, 1, lightPdf)
				}
				if contribution, ok := p.lightRadianceAlong(si, wi, light, sc, sampler); ok {
					l = l.Add(f.Multiply(contribution).Scale(weight / bsdfPdf))
				}
			}
		}
	}

	return l
}

// lightRadianceAlong traces the BSDF-sampled direction and returns the
// radiance the chosen light emits along it, with transmittance applied
func (p *Path) lightRadianceAlong(si *core.SurfaceInteraction, wi core.Vec3, light lights.Light, sc *scene.Scene, sampler core.Sampler) (core.Spectrum, bool) {
	ray := si.SpawnRay(wi)
	hitRay := ray
	hit, ok := sc.Intersect(&hitRay)

	if !ok {
		// Escaped: only environment lights contribute
		if env, isEnv := light.(lights.EnvironmentLight); isEnv {
			return env.Le(ray), true
		}
		return core.Black, false
	}

	if hit.Light != nil {
		if al, isArea := light.(*lights.AreaLight); isArea && hit.Light == core.Emitter(al) {
			shadowRay := si.SpawnRayTo(hit.P)
			tr := sc.Transmittance(shadowRay, sampler)
			return hit.Le(hit.Wo).Multiply(tr), true
		}
	}
	return core.Black, false
}

// sampleDirectMedium estimates direct lighting at a medium vertex using the
// phase function in place of the BSDF
func (p *Path) sampleDirectMedium(mi *core.MediumInteraction, sc *scene.Scene, sampler core.Sampler) core.Spectrum {
	light, selectPdf, _ := sc.LightDistrib.Sample(sampler.Get1D())
	if light == nil || selectPdf == 0 {
		return core.Black
	}

	l := core.Black

	// Light sampling, weighted against phase sampling
	ls := light.SampleLi(mi.P, sampler.Get2D())
	if ls.PDF > 0 && !ls.L.IsBlack() {
		phase := mi.Phase.P(mi.Wo, ls.Wi)
		if phase > 0 {
			shadowRay := mi.SpawnRayTo(ls.P)
			tr := sc.Transmittance(shadowRay, sampler)
			if !tr.IsBlack() {
				lightPdf := ls.PDF * selectPdf
				weight := 1.0
				if !light.IsDelta() {
					weight = core.PowerHeuristic(1, lightPdf, 1, phase)
				}
				l = l.Add(ls.L.Multiply(tr).Scale(phase * weight / lightPdf))
			}
		}
	}

	// Phase sampling, weighted against light sampling
	if !light.IsDelta() {
		wi, phase := mi.Phase.SampleP(mi.Wo, sampler.Get2D())
		if phase > 0 {
			lightPdf := light.PdfLi(mi.P, wi) * selectPdf
			if lightPdf > 0 {
				weight := core.PowerHeuristic(1, phase, 1, lightPdf)
				if env, isEnv := light.(lights.EnvironmentLight); isEnv {
					ray := mi.SpawnRay(wi)
					if !sc.IntersectP(ray) {
						l = l.Add(env.Le(ray).Scale(weight))
					}
				} else {
					ray := mi.SpawnRay(wi)
					hitRay := ray
					if hit, ok := sc.Intersect(&hitRay); ok && hit.Light != nil {
						if al, isArea := light.(*lights.AreaLight); isArea && hit.Light == core.Emitter(al) {
							shadowRay := mi.SpawnRayTo(hit.P)
							tr := sc.Transmittance(shadowRay, sampler)
							l = l.Add(hit.Le(hit.Wo).Multiply(tr).Scale(weight))
						}
					}
				}
			}
		}
	}

	return l
}
