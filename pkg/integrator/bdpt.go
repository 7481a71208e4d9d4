package integrator

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/film"
	"github.com/radiant-render/radiant/pkg/lights"
	"github.com/radiant-render/radiant/pkg/renderer"
	"github.com/radiant-render/radiant/pkg/scene"
)

// vertexKind tags the role of a path vertex
type vertexKind int

const (
	vertexCamera vertexKind = iota
	vertexLight
	vertexSurface
)

// vertex is one node of a camera or light subpath. Forward and reverse
// densities are tracked in area measure for the MIS weight computation.
type vertex struct {
	kind vertexKind

	p    core.Vec3
	ng   core.Vec3 // geometric normal (zero for camera/infinite vertices)
	ns   core.Vec3 // shading normal
	wo   core.Vec3
	si   *core.SurfaceInteraction

	beta core.Spectrum // accumulated throughput up to this vertex

	light  lights.Light // set for light vertices
	camera renderer.Camera

	pdfFwd float64 // area density of generating this vertex forward
	pdfRev float64 // area density under the reverse strategy
	delta  bool    // the connecting BSDF or light was a delta distribution

	infiniteLight bool // light vertex on an environment light
}

// isConnectible reports whether a connection edge can land on this vertex
func (v *vertex) isConnectible() bool {
	switch v.kind {
	case vertexLight:
		return true
	case vertexCamera:
		return true
	default:
		return !v.delta && v.si != nil && v.si.BSDF != nil &&
			v.si.BSDF.NumComponents(core.BSDFAll&^core.BSDFSpecular) > 0
	}
}

// isLight reports whether the vertex lies on an emitter
func (v *vertex) isLight() bool {
	return v.kind == vertexLight || (v.si != nil && v.si.Light != nil)
}

// le returns radiance emitted from this vertex toward a receiver
func (v *vertex) le(sc *scene.Scene, to *vertex) core.Spectrum {
	if !v.isLight() {
		return core.Black
	}
	if v.infiniteLight {
		// Environment radiance toward the receiver
		l := core.Black
		for _, env := range sc.InfiniteLights {
			l = l.Add(env.Le(core.NewRay(to.p, v.p.Subtract(to.p).Normalize())))
		}
		return l
	}
	w := to.p.Subtract(v.p)
	if w.LengthSquared() == 0 {
		return core.Black
	}
	w = w.Normalize()
	if v.si != nil && v.si.Light != nil {
		return v.si.Le(w)
	}
	if al, ok := v.light.(*lights.AreaLight); ok {
		si := &core.SurfaceInteraction{P: v.p, N: v.ng}
		return al.L(si, w)
	}
	return core.Black
}

// f evaluates the vertex's BSDF toward the next vertex
func (v *vertex) f(next *vertex, mode core.TransportMode) core.Spectrum {
	wi := next.p.Subtract(v.p)
	if wi.LengthSquared() == 0 {
		return core.Black
	}
	wi = wi.Normalize()
	if v.si == nil || v.si.BSDF == nil {
		return core.Black
	}
	return v.si.BSDF.F(v.wo, wi, core.BSDFAll)
}

// convertDensity converts a solid-angle density at v toward next into an
// area density at next
func (v *vertex) convertDensity(pdf float64, next *vertex) float64 {
	if next.infiniteLight {
		return pdf
	}
	w := next.p.Subtract(v.p)
	dist2 := w.LengthSquared()
	if dist2 == 0 {
		return 0
	}
	invDist2 := 1 / dist2
	if !next.ng.IsZero() {
		pdf *= next.ng.AbsDot(w.Multiply(math.Sqrt(invDist2)))
	}
	return pdf * invDist2
}

// pdf returns the area density of v generating next, given the previous
// vertex prev (nil at path ends)
func (v *vertex) pdf(sc *scene.Scene, prev, next *vertex) float64 {
	if v.kind == vertexLight {
		return v.pdfLight(sc, next)
	}

	wn := next.p.Subtract(v.p)
	if wn.LengthSquared() == 0 {
		return 0
	}
	wn = wn.Normalize()

	var pdf float64
	switch v.kind {
	case vertexCamera:
		_, pdfDir := v.camera.PdfWe(core.NewRay(v.p, wn))
		pdf = pdfDir
	default:
		var wp core.Vec3
		if prev != nil {
			wp = prev.p.Subtract(v.p)
			if wp.LengthSquared() == 0 {
				return 0
			}
			wp = wp.Normalize()
		}
		if v.si == nil || v.si.BSDF == nil {
			return 0
		}
		pdf = v.si.BSDF.PDF(wp, wn, core.BSDFAll)
	}
	return v.convertDensity(pdf, next)
}

// pdfLight returns the area density of the light vertex emitting toward next
func (v *vertex) pdfLight(sc *scene.Scene, next *vertex) float64 {
	w := next.p.Subtract(v.p)
	invDist2 := 1 / w.LengthSquared()
	w = w.Multiply(math.Sqrt(invDist2))

	var pdfDir float64
	if v.infiniteLight {
		// Environment rays sample positions uniformly over the bounding disk
		r := sc.WorldRadius()
		pdf := 1 / (math.Pi * r * r)
		if !next.ng.IsZero() {
			pdf *= next.ng.AbsDot(w)
		}
		return pdf
	}

	light := v.light
	if light == nil && v.si != nil && v.si.Light != nil {
		if al, ok := v.si.Light.(*lights.AreaLight); ok {
			light = al
		}
	}
	if light == nil {
		return 0
	}
	_, pdfDir = light.PdfLe(core.NewRay(v.p, w), v.ng)
	pdf := pdfDir * invDist2
	if !next.ng.IsZero() {
		pdf *= next.ng.AbsDot(w)
	}
	return pdf
}

// pdfLightOrigin returns the area density of sampling this light vertex as
// the path origin, including light selection
func (v *vertex) pdfLightOrigin(sc *scene.Scene, next *vertex) float64 {
	w := next.p.Subtract(v.p)
	if w.LengthSquared() == 0 {
		return 0
	}
	w = w.Normalize()

	if v.infiniteLight {
		// Selection probability times directional density of the environment
		pdf := 0.0
		for _, env := range sc.InfiniteLights {
			idx := sc.LightDistrib.IndexOf(env)
			pdf += sc.LightDistrib.PMF(idx) * env.PdfLi(next.p, w.Negate())
		}
		return pdf
	}

	light := v.light
	if light == nil && v.si != nil && v.si.Light != nil {
		if al, ok := v.si.Light.(*lights.AreaLight); ok {
			light = al
		}
	}
	if light == nil {
		return 0
	}
	pdfPos, _ := light.PdfLe(core.NewRay(v.p, w), v.ng)
	selectPdf := sc.LightDistrib.PMF(sc.LightDistrib.IndexOf(light))
	return pdfPos * selectPdf
}

// BDPT is the bidirectional path tracer. Camera and light subpaths are
// connected at every feasible (s, t) pair with power-heuristic MIS over all
// strategies; t=1 connections splat onto the film.
type BDPT struct {
	MaxDepth int
	Camera   renderer.Camera
	film     *film.Film
}

// NewBDPT creates a bidirectional path tracer
func NewBDPT(maxDepth int, camera renderer.Camera) *BDPT {
	return &BDPT{MaxDepth: maxDepth, Camera: camera}
}

// SetFilm receives the film for light-tracing splats
func (b *BDPT) SetFilm(f *film.Film) {
	b.film = f
}

// Preprocess is a no-op for BDPT
func (b *BDPT) Preprocess(sc *scene.Scene, sampler core.Sampler, logger core.Logger) error {
	return nil
}

// Li generates both subpaths and sums the weighted contributions of every
// connection strategy
func (b *BDPT) Li(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Spectrum {
	cameraPath := b.generateCameraSubpath(ray, sc, sampler)
	lightPath := b.generateLightSubpath(sc, sampler)

	l := core.Black
	for t := 1; t <= len(cameraPath); t++ {
		for s := 0; s <= len(lightPath); s++ {
			depth := s + t - 2
			if (s == 1 && t == 1) || depth < 0 || depth > b.MaxDepth {
				continue
			}

			if t == 1 {
				// Light tracing: splat through the camera lens
				contribution, pFilm, ok := b.connectToCamera(sc, lightPath, s, sampler)
				if ok && !contribution.IsBlack() && b.film != nil {
					b.film.AddSplat(pFilm, contribution)
				}
				continue
			}

			l = l.Add(b.connect(sc, lightPath, cameraPath, s, t, sampler))
		}
	}
	return l
}

// generateCameraSubpath starts at the lens and extends by BSDF sampling
func (b *BDPT) generateCameraSubpath(ray core.Ray, sc *scene.Scene, sampler core.Sampler) []vertex {
	path := make([]vertex, 0, b.MaxDepth+2)

	pdfPos, pdfDir := b.Camera.PdfWe(ray)
	path = append(path, vertex{
		kind:   vertexCamera,
		p:      ray.Origin,
		beta:   core.White,
		camera: b.Camera,
		pdfFwd: pdfPos,
	})

	b.randomWalk(sc, sampler, ray, core.White, pdfDir, core.TransportRadiance, &path, true)
	return path
}

// generateLightSubpath starts at an emitter and extends by BSDF sampling
func (b *BDPT) generateLightSubpath(sc *scene.Scene, sampler core.Sampler) []vertex {
	path := make([]vertex, 0, b.MaxDepth+1)

	light, selectPdf, _ := sc.LightDistrib.Sample(sampler.Get1D())
	if light == nil || selectPdf == 0 {
		return path
	}

	es := light.SampleLe(sampler.Get2D(), sampler.Get2D())
	if es.PdfPos == 0 || es.PdfDir == 0 || es.L.IsBlack() {
		return path
	}

	_, isEnv := light.(lights.EnvironmentLight)
	path = append(path, vertex{
		kind:          vertexLight,
		p:             es.Ray.Origin,
		ng:            es.N,
		ns:            es.N,
		beta:          es.L.Scale(1 / (selectPdf * es.PdfPos)),
		light:         light,
		pdfFwd:        es.PdfPos * selectPdf,
		infiniteLight: isEnv,
	})

	beta := es.L.Scale(es.N.AbsDot(es.Ray.Direction) / (selectPdf * es.PdfPos * es.PdfDir))
	b.randomWalk(sc, sampler, es.Ray, beta, es.PdfDir, core.TransportImportance, &path, false)
	return path
}

// randomWalk extends a subpath by sampling the BSDF at each hit, recording
// forward densities and filling reverse densities as edges complete
func (b *BDPT) randomWalk(sc *scene.Scene, sampler core.Sampler, ray core.Ray, beta core.Spectrum, pdfDir float64, mode core.TransportMode, path *[]vertex, isCamera bool) {
	if len(*path) >= b.MaxDepth+1 {
		return
	}
	pdfFwd := pdfDir

	for {
		hitRay := ray
		si, ok := sc.Intersect(&hitRay)
		if !ok {
			// A camera subpath escaping into an environment light ends on a
			// pseudo-vertex so s=0 strategies cover infinite lights
			if isCamera && len(sc.InfiniteLights) > 0 {
				*path = append(*path, vertex{
					kind:          vertexLight,
					p:             ray.Origin.Add(ray.Direction.Multiply(2 * sc.WorldRadius())),
					beta:          beta,
					pdfFwd:        pdfFwd,
					infiniteLight: true,
				})
			}
			break
		}

		if si.Material == nil {
			ray = si.SpawnRay(ray.Direction)
			continue
		}
		si.Material.ComputeScattering(si, mode)
		if si.BSDF == nil {
			break
		}

		prev := &(*path)[len(*path)-1]
		v := vertex{
			kind: vertexSurface,
			p:    si.P,
			ng:   si.N,
			ns:   si.Shading.Normal,
			wo:   si.Wo,
			si:   si,
			beta: beta,
		}
		v.pdfFwd = prev.convertDensity(pdfFwd, &v)
		*path = append(*path, v)
		vp := &(*path)[len(*path)-1]

		if len(*path) >= b.MaxDepth+1 {
			break
		}

		wi, f, pdf, sampledType := si.BSDF.SampleF(si.Wo, sampler.Get2D(), core.BSDFAll)
		if pdf == 0 || f.IsBlack() {
			break
		}
		beta = beta.Multiply(f.Scale(wi.AbsDot(si.Shading.Normal) / pdf))
		vp.delta = sampledType.IsSpecular()

		// Reverse density of the previous vertex under this new edge
		pdfRev := si.BSDF.PDF(wi, si.Wo, core.BSDFAll)
		if vp.delta {
			pdfRev = 0
			pdfFwd = 0
		} else {
			pdfFwd = pdf
		}
		prev.pdfRev = vp.convertDensity(pdfRev, prev)

		ray = si.SpawnRay(wi)

		if beta.IsBlack() || beta.HasNaN() {
			break
		}
	}
}

// connectToCamera handles t=1 strategies: a light subpath prefix connected
// straight to the lens. Returns the film contribution and position.
func (b *BDPT) connectToCamera(sc *scene.Scene, lightPath []vertex, s int, sampler core.Sampler) (core.Spectrum, core.Vec2, bool) {
	if s < 1 || s > len(lightPath) {
		return core.Black, core.Vec2{}, false
	}
	qs := &lightPath[s-1]
	if !qs.isConnectible() || qs.kind == vertexLight && qs.infiniteLight {
		return core.Black, core.Vec2{}, false
	}

	we, wi, dist, lensP, pdf, pFilm, ok := b.Camera.SampleWi(qs.p, sampler.Get2D())
	if !ok || pdf == 0 || we.IsBlack() {
		return core.Black, core.Vec2{}, false
	}

	// Sampled camera vertex for MIS
	sampled := vertex{
		kind:   vertexCamera,
		p:      lensP,
		beta:   we.Scale(1 / pdf),
		camera: b.Camera,
	}

	var l core.Spectrum
	if qs.kind == vertexLight {
		// Direct light-to-lens connection
		l = qs.le(sc, &sampled).Multiply(qs.beta).Multiply(sampled.beta)
		if !qs.ng.IsZero() {
			l = l.Scale(qs.ng.AbsDot(wi))
		}
	} else {
		f := qs.si.BSDF.F(qs.wo, wi, core.BSDFAll)
		if f.IsBlack() {
			return core.Black, core.Vec2{}, false
		}
		l = qs.beta.Multiply(f).Multiply(sampled.beta).Scale(qs.ns.AbsDot(wi))
	}
	if l.IsBlack() {
		return core.Black, core.Vec2{}, false
	}

	// Visibility from the vertex to the lens
	shadow := core.NewRayBounded(core.OffsetRayOrigin(qs.p, qs.ng, wi), wi, dist*(1-1e-4))
	if sc.IntersectP(shadow) {
		return core.Black, core.Vec2{}, false
	}

	weight := b.misWeight(sc, lightPath, nil, &sampled, s, 1)
	return l.Scale(weight), pFilm, true
}

// connect joins light prefix s with camera prefix t and applies MIS
func (b *BDPT) connect(sc *scene.Scene, lightPath, cameraPath []vertex, s, t int, sampler core.Sampler) core.Spectrum {
	if t > len(cameraPath) {
		return core.Black
	}
	pt := &cameraPath[t-1]

	var l core.Spectrum
	var sampled *vertex

	switch {
	case s == 0:
		// The camera subpath already ends on a light
		if !pt.isLight() {
			return core.Black
		}
		if t < 2 {
			return core.Black
		}
		l = pt.le(sc, &cameraPath[t-2]).Multiply(pt.beta)

	case s == 1:
		// Sample a point on a light and connect it to the camera vertex
		if !pt.isConnectible() {
			return core.Black
		}
		light, selectPdf, _ := sc.LightDistrib.Sample(sampler.Get1D())
		if light == nil || selectPdf == 0 {
			return core.Black
		}
		ls := light.SampleLi(pt.p, sampler.Get2D())
		if ls.PDF == 0 || ls.L.IsBlack() {
			return core.Black
		}
		_, isEnv := light.(lights.EnvironmentLight)
		sampled = &vertex{
			kind:          vertexLight,
			p:             ls.P,
			ng:            ls.N,
			ns:            ls.N,
			beta:          ls.L.Scale(1 / (ls.PDF * selectPdf)),
			light:         light,
			infiniteLight: isEnv,
		}
		sampled.pdfFwd = sampled.pdfLightOrigin(sc, pt)

		f := pt.f(sampled, core.TransportRadiance)
		if f.IsBlack() {
			return core.Black
		}
		shadowRay := pt.si.SpawnRayTo(ls.P)
		if !sc.Unoccluded(shadowRay) {
			return core.Black
		}
		l = pt.beta.Multiply(f).Multiply(sampled.beta).Scale(pt.ns.AbsDot(ls.Wi))

	default:
		// General connection between two interior vertices
		if s > len(lightPath) {
			return core.Black
		}
		qs := &lightPath[s-1]
		if !qs.isConnectible() || !pt.isConnectible() {
			return core.Black
		}

		fq := qs.f(pt, core.TransportImportance)
		fp := pt.f(qs, core.TransportRadiance)
		if fq.IsBlack() || fp.IsBlack() {
			return core.Black
		}

		d := pt.p.Subtract(qs.p)
		dist2 := d.LengthSquared()
		if dist2 == 0 {
			return core.Black
		}
		dir := d.Multiply(1 / math.Sqrt(dist2))

		// Geometry term with both cosines
		g := 1 / dist2
		if !qs.ns.IsZero() {
			g *= qs.ns.AbsDot(dir)
		}
		if !pt.ns.IsZero() {
			g *= pt.ns.AbsDot(dir)
		}

		shadow := core.NewRayBounded(core.OffsetRayOrigin(qs.p, qs.ng, dir), dir, math.Sqrt(dist2)*(1-1e-4))
		if sc.IntersectP(shadow) {
			return core.Black
		}

		l = qs.beta.Multiply(fq).Multiply(fp).Multiply(pt.beta).Scale(g)
	}

	if l.IsBlack() {
		return l
	}
	weight := b.misWeight(sc, lightPath, cameraPath, sampled, s, t)
	return l.Scale(weight)
}

// remap0 treats a zero density as one inside MIS ratio products so delta
// strategies collapse correctly
func remap0(f float64) float64 {
	if f != 0 {
		return f
	}
	return 1
}

// misWeight computes the power-heuristic weight for strategy (s, t) over all
// strategies that could have produced the same path:
// w = p_s^2 / sum_i p_i^2, evaluated via incremental density ratios.
func (b *BDPT) misWeight(sc *scene.Scene, lightPath, cameraPath []vertex, sampled *vertex, s, t int) float64 {
	if s+t == 2 {
		return 1
	}

	// Local copies of both prefixes; the connection-edge density updates
	// below must not leak into other strategies
	cam := make([]vertex, t)
	copy(cam, cameraPath[:min(t, len(cameraPath))])
	lig := make([]vertex, s)
	copy(lig, lightPath[:min(s, len(lightPath))])

	if sampled != nil {
		if s == 1 {
			lig[0] = *sampled
		} else if t == 1 {
			cam[0] = *sampled
		}
	}

	var qs, pt, qsMinus, ptMinus *vertex
	pt = &cam[t-1]
	if t > 1 {
		ptMinus = &cam[t-2]
	}
	if s > 0 {
		qs = &lig[s-1]
	}
	if s > 1 {
		qsMinus = &lig[s-2]
	}

	// The connection endpoints are never delta under this strategy
	pt.delta = false
	if qs != nil {
		qs.delta = false
	}

	// Update reverse densities across the connection edge
	if s > 0 {
		pt.pdfRev = qs.pdf(sc, qsMinus, pt)
	} else {
		pt.pdfRev = pt.pdfLightOrigin(sc, ptMinus)
	}
	if ptMinus != nil {
		if s > 0 {
			ptMinus.pdfRev = pt.pdf(sc, qs, ptMinus)
		} else {
			ptMinus.pdfRev = pt.pdfLight(sc, ptMinus)
		}
	}
	if qs != nil {
		qs.pdfRev = pt.pdf(sc, ptMinus, qs)
	}
	if qsMinus != nil {
		qsMinus.pdfRev = qs.pdf(sc, pt, qsMinus)
	}

	// Power heuristic: ri tracks the density ratio p_i/p_s of each
	// alternative strategy and enters the sum squared
	sumRi := 0.0

	// Hypothetical strategies shifting the connection toward the camera
	ri := 1.0
	for i := t - 1; i > 0; i-- {
		ri *= remap0(cam[i].pdfRev) / remap0(cam[i].pdfFwd)
		if !cam[i].delta && !cam[i-1].delta {
			sumRi += ri * ri
		}
	}

	// Hypothetical strategies shifting the connection toward the light
	ri = 1.0
	for i := s - 1; i >= 0; i-- {
		ri *= remap0(lig[i].pdfRev) / remap0(lig[i].pdfFwd)
		deltaLightVertex := false
		if i > 0 {
			deltaLightVertex = lig[i-1].delta
		} else {
			deltaLightVertex = lig[0].light != nil && lig[0].light.IsDelta()
		}
		if !lig[i].delta && !deltaLightVertex {
			sumRi += ri * ri
		}
	}

	return 1 / (1 + sumRi)
}
