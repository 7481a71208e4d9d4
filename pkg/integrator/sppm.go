package integrator

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/film"
	"github.com/radiant-render/radiant/pkg/renderer"
	"github.com/radiant-render/radiant/pkg/scene"
)

// visiblePoint is the per-pixel gather record of stochastic progressive
// photon mapping
type visiblePoint struct {
	p      core.Vec3
	si     *core.SurfaceInteraction // nil when the pixel saw no diffuse hit
	beta   core.Spectrum            // camera-path throughput to the point
	direct core.Spectrum            // accumulated directly-visible radiance

	n      float64       // accumulated photon statistic
	tau    core.Spectrum // accumulated unnormalized flux
	radius float64
}

// SPPM is stochastic progressive photon mapping: per-pixel visible points
// refreshed every iteration, hashed into a uniform grid, then updated by a
// photon pass with the PPM contraction statistic.
type SPPM struct {
	Camera             renderer.Camera
	NumIterations      int
	PhotonsPerIter     int
	InitialRadius      float64
	Alpha              float64
	MaxDepth           int
	Workers            int
	Seed               uint64

	totalPhotons int
}

// NewSPPM creates a stochastic progressive photon mapping integrator
func NewSPPM(camera renderer.Camera, iterations, photonsPerIter int, initialRadius, alpha float64, maxDepth int) *SPPM {
	return &SPPM{
		Camera:         camera,
		NumIterations:  iterations,
		PhotonsPerIter: photonsPerIter,
		InitialRadius:  initialRadius,
		Alpha:          alpha,
		MaxDepth:       maxDepth,
	}
}

// Render runs the SPPM iteration loop and develops the film at the end
func (s *SPPM) Render(ctx context.Context, sc *scene.Scene, f *film.Film, proto core.Sampler, logger core.Logger) error {
	width, height := f.Width, f.Height
	points := make([]visiblePoint, width*height)
	for i := range points {
		points[i].radius = s.InitialRadius
		points[i].tau = core.Black
	}

	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}

	for iter := 0; iter < s.NumIterations; iter++ {
		if ctx.Err() != nil {
			break
		}

		// (a) Camera pass: refresh every pixel's visible point
		s.tracePass(sc, proto, points, width, height, iter, workers)

		// (b) Hash the visible points into a grid sized to the largest radius
		maxRadius := 0.0
		bounds := core.EmptyAABB()
		for i := range points {
			if points[i].si == nil {
				continue
			}
			bounds = bounds.AddPoint(points[i].p)
			if points[i].radius > maxRadius {
				maxRadius = points[i].radius
			}
		}
		if maxRadius == 0 {
			maxRadius = s.InitialRadius
		}
		grid := NewHashGrid(bounds.Expand(maxRadius), 2*maxRadius, width*height)
		for i := range points {
			if points[i].si == nil {
				continue
			}
			r := core.NewVec3(points[i].radius, points[i].radius, points[i].radius)
			grid.Add(i, points[i].p.Subtract(r), points[i].p.Add(r))
		}

		// (c) Photon pass: splat photons into overlapping visible points
		s.photonPass(sc, proto, points, grid, iter, workers)
		s.totalPhotons += s.PhotonsPerIter

		logger.Printf("sppm: iteration %d/%d, %d photons total", iter+1, s.NumIterations, s.totalPhotons)
	}

	// Develop: pixel radiance = direct/iterations + tau / (pi r^2 N_total)
	ft := f.NewTile(0, 0, width, height)
	iterations := float64(s.NumIterations)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			vp := &points[y*width+x]
			l := vp.direct.Scale(1 / iterations)
			if s.totalPhotons > 0 && vp.radius > 0 {
				l = l.Add(vp.tau.Scale(1 / (math.Pi * vp.radius * vp.radius * float64(s.totalPhotons))))
			}
			ft.AddSample(core.NewVec2(float64(x)+0.5, float64(y)+0.5), l)
		}
	}
	f.MergeTile(ft)
	return nil
}

// tracePass refreshes visible points with one camera sample per pixel
func (s *SPPM) tracePass(sc *scene.Scene, proto core.Sampler, points []visiblePoint, width, height, iter, workers int) {
	var wg sync.WaitGroup
	rows := make(chan int, height)
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for y := range rows {
				sampler := proto.Clone(s.Seed + uint64(y)*31 + uint64(iter)*0x9E3779B9)
				for x := 0; x < width; x++ {
					sampler.StartPixel(x, y)
					s.traceVisiblePoint(sc, sampler, &points[y*width+x], x, y)
				}
			}
		}(w)
	}
	wg.Wait()
}

// traceVisiblePoint follows specular chains from the camera and records the
// first diffuse hit
func (s *SPPM) traceVisiblePoint(sc *scene.Scene, sampler core.Sampler, vp *visiblePoint, x, y int) {
	pFilm := core.NewVec2(float64(x), float64(y)).Add(sampler.Get2D())
	ray := s.Camera.GenerateRay(pFilm, sampler.Get2D())

	vp.si = nil
	beta := core.White

	for depth := 0; depth < s.MaxDepth; depth++ {
		hitRay := ray
		si, ok := sc.Intersect(&hitRay)
		if !ok {
			vp.direct = vp.direct.Add(beta.Multiply(sc.EscapedRadiance(ray)))
			return
		}

		vp.direct = vp.direct.Add(beta.Multiply(si.Le(si.Wo)))

		if si.Material == nil {
			ray = si.SpawnRay(ray.Direction)
			continue
		}
		si.Material.ComputeScattering(si, core.TransportRadiance)
		if si.BSDF == nil {
			return
		}

		if si.BSDF.NumComponents(core.BSDFAll&^core.BSDFSpecular) > 0 {
			vp.si = si
			vp.p = si.P
			vp.beta = beta
			return
		}

		wi, f, pdf, _ := si.BSDF.SampleF(si.Wo, sampler.Get2D(), core.BSDFAll)
		if pdf == 0 || f.IsBlack() {
			return
		}
		beta = beta.Multiply(f.Scale(wi.AbsDot(si.Shading.Normal) / pdf))
		ray = si.SpawnRay(wi)
	}
}

// photonPass traces photons and updates the visible points they reach using
// the contraction statistic:
// N' = N + alpha*M, tau' = (tau + phi) * N'/(N+M), r' = r * sqrt(N'/(N+M))
func (s *SPPM) photonPass(sc *scene.Scene, proto core.Sampler, points []visiblePoint, grid *HashGrid, iter, workers int) {
	// Per-point accumulators for this iteration
	type update struct {
		m   int
		phi core.Spectrum
	}
	updates := make([]update, len(points))
	var mu sync.Mutex

	var wg sync.WaitGroup
	chunk := (s.PhotonsPerIter + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		count := min(chunk, s.PhotonsPerIter-start)
		if count <= 0 {
			break
		}
		wg.Add(1)
		go func(worker, start, count int) {
			defer wg.Done()
			sampler := proto.Clone(s.Seed ^ (uint64(iter)*0xBF58476D1CE4E5B9 + uint64(worker)*0x94D049BB133111EB))
			local := make([]update, len(points))

			photons := TracePhotons(sc, sampler, count, s.MaxDepth)
			for _, ph := range photons {
				for _, id := range grid.Lookup(ph.P) {
					vp := &points[id]
					if vp.si == nil {
						continue
					}
					if ph.P.Subtract(vp.p).LengthSquared() > vp.radius*vp.radius {
						continue
					}
					f := vp.si.BSDF.F(vp.si.Wo, ph.Wi, core.BSDFAll&^core.BSDFSpecular)
					contribution := vp.beta.Multiply(f).Multiply(ph.Beta).Scale(float64(count))
					local[id].m++
					local[id].phi = local[id].phi.Add(contribution)
				}
			}

			mu.Lock()
			for i := range local {
				if local[i].m > 0 {
					updates[i].m += local[i].m
					updates[i].phi = updates[i].phi.Add(local[i].phi)
				}
			}
			mu.Unlock()
		}(w, start, count)
	}
	wg.Wait()

	// Apply the contraction statistic per visible point
	for i := range points {
		vp := &points[i]
		if updates[i].m == 0 || vp.si == nil {
			continue
		}
		m := float64(updates[i].m)
		nNew := vp.n + s.Alpha*m
		denom := vp.n + m
		vp.tau = vp.tau.Add(updates[i].phi).Scale(nNew / denom)
		vp.radius *= math.Sqrt(nNew / denom)
		vp.n = nNew
	}
}

// defaultWorkers returns the worker count when none is configured
func defaultWorkers() int {
	return runtime.NumCPU()
}
