package integrator

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/film"
	"github.com/radiant-render/radiant/pkg/renderer"
	"github.com/radiant-render/radiant/pkg/scene"
)

// primarySample is one coordinate of the primary sample space vector with
// lazy mutation bookkeeping
type primarySample struct {
	value          float64
	lastModified   int
	backupValue    float64
	backupModified int
}

// pssmltSampler exposes a mutated primary sample vector through the
// core.Sampler interface, so any path sampler consumes Metropolis samples
// transparently
type pssmltSampler struct {
	rng   *rand.Rand
	x     []primarySample
	index int

	iteration     int
	largeStep     bool
	lastLargeStep int
	sigma         float64
}

func newPSSMLTSampler(seed uint64, sigma float64) *pssmltSampler {
	return &pssmltSampler{
		rng:   rand.New(rand.NewSource(int64(seed))),
		sigma: sigma,
	}
}

// begin starts a mutation of the current state
func (s *pssmltSampler) begin(largeStep bool) {
	s.iteration++
	s.largeStep = largeStep
	s.index = 0
}

// accept commits the mutation
func (s *pssmltSampler) accept() {
	if s.largeStep {
		s.lastLargeStep = s.iteration
	}
}

// reject restores every coordinate touched this iteration
func (s *pssmltSampler) reject() {
	for i := range s.x {
		if s.x[i].lastModified == s.iteration {
			s.x[i].value = s.x[i].backupValue
			s.x[i].lastModified = s.x[i].backupModified
		}
	}
	s.iteration--
}

// ensureReady lazily applies pending mutations to coordinate i
func (s *pssmltSampler) ensureReady(i int) {
	for len(s.x) <= i {
		s.x = append(s.x, primarySample{})
	}
	xi := &s.x[i]

	if xi.lastModified < s.lastLargeStep {
		// A large step overwrote everything since this coordinate was last
		// touched
		xi.value = s.rng.Float64()
		xi.lastModified = s.lastLargeStep
	}

	if xi.lastModified < s.iteration {
		xi.backupValue = xi.value
		xi.backupModified = xi.lastModified
		if s.largeStep {
			xi.value = s.rng.Float64()
		} else {
			// Apply the accumulated small steps since the last touch
			nSmall := s.iteration - xi.lastModified
			effSigma := s.sigma * math.Sqrt(float64(nSmall))
			xi.value = mutateWrapped(xi.value, effSigma, s.rng)
		}
		xi.lastModified = s.iteration
	}
}

// mutateWrapped perturbs v with a normal step wrapped back into [0,1)
func mutateWrapped(v, sigma float64, rng *rand.Rand) float64 {
	v += rng.NormFloat64() * sigma
	v -= math.Floor(v)
	if v >= 1 {
		v = 0
	}
	return v
}

// Get1D returns the next mutated coordinate
func (s *pssmltSampler) Get1D() float64 {
	s.ensureReady(s.index)
	v := s.x[s.index].value
	s.index++
	return v
}

// Get2D returns the next two mutated coordinates
func (s *pssmltSampler) Get2D() core.Vec2 {
	return core.NewVec2(s.Get1D(), s.Get1D())
}

// The array and pixel protocol is unused in primary sample space

func (s *pssmltSampler) StartPixel(x, y int)        {}
func (s *pssmltSampler) StartNextSample() bool      { return true }
func (s *pssmltSampler) Request1DArray(n int)       {}
func (s *pssmltSampler) Request2DArray(n int)       {}
func (s *pssmltSampler) Get1DArray(n int) []float64 { return nil }
func (s *pssmltSampler) Get2DArray(n int) []core.Vec2 {
	return nil
}
func (s *pssmltSampler) SamplesPerPixel() int { return 1 }
func (s *pssmltSampler) Clone(seed uint64) core.Sampler {
	return newPSSMLTSampler(seed, s.sigma)
}

// PSSMLT is primary-sample-space Metropolis light transport with Kelemen
// mutations over a unidirectional path sampler
type PSSMLT struct {
	Camera        renderer.Camera
	MaxDepth      int
	Mutations     int     // total mutations across all chains
	Bootstrap     int     // bootstrap samples for the normalization constant
	PLarge        float64 // large-step probability
	Sigma         float64 // small-step size
	Workers       int
	Seed          uint64
}

// NewPSSMLT creates a Metropolis integrator
func NewPSSMLT(camera renderer.Camera, maxDepth, mutations int) *PSSMLT {
	return &PSSMLT{
		Camera:    camera,
		MaxDepth:  maxDepth,
		Mutations: mutations,
		Bootstrap: 100000,
		PLarge:    0.3,
		Sigma:     0.01,
	}
}

// pathSample is the contribution a primary sample vector maps to
type pathSample struct {
	pFilm core.Vec2
	l     core.Spectrum
	f     float64 // scalar importance (luminance)
}

// samplePath maps the current primary sample vector to a path contribution.
// The first two coordinates choose the film position.
func (m *PSSMLT) samplePath(sc *scene.Scene, sampler core.Sampler, width, height int, path *Path) pathSample {
	u := sampler.Get2D()
	pFilm := core.NewVec2(u.X*float64(width), u.Y*float64(height))
	ray := m.Camera.GenerateRay(pFilm, sampler.Get2D())
	l := path.Li(ray, sc, sampler)
	if l.HasNaN() {
		l = core.Black
	}
	return pathSample{pFilm: pFilm, l: l, f: l.Luminance()}
}

// Render runs bootstrap then the Metropolis chains
func (m *PSSMLT) Render(ctx context.Context, sc *scene.Scene, f *film.Film, proto core.Sampler, logger core.Logger) error {
	width, height := f.Width, f.Height
	path := NewPath(m.MaxDepth)

	// Bootstrap: estimate the normalization constant b = E[f]
	bootstrapRng := rand.New(rand.NewSource(int64(m.Seed) ^ 0x5DEECE66D))
	sumF := 0.0
	for i := 0; i < m.Bootstrap; i++ {
		s := newPSSMLTSampler(uint64(bootstrapRng.Int63()), m.Sigma)
		s.begin(true)
		sample := m.samplePath(sc, s, width, height, path)
		sumF += sample.f
	}
	b := sumF / float64(m.Bootstrap)
	if b == 0 {
		logger.Printf("pssmlt: black bootstrap, nothing to render")
		return nil
	}
	logger.Printf("pssmlt: normalization constant %.6g", b)

	workers := m.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}
	mutationsPerChain := m.Mutations / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(chain int) {
			defer wg.Done()

			sampler := newPSSMLTSampler(m.Seed+uint64(chain)*0x9E3779B97F4A7C15, m.Sigma)
			rng := rand.New(rand.NewSource(int64(m.Seed) + int64(chain)*7919 + 17))

			// Start the chain from a non-black state
			sampler.begin(true)
			current := m.samplePath(sc, sampler, width, height, path)
			sampler.accept()
			for tries := 0; current.f == 0 && tries < 10000; tries++ {
				sampler.begin(true)
				current = m.samplePath(sc, sampler, width, height, path)
				sampler.accept()
			}

			for i := 0; i < mutationsPerChain; i++ {
				if ctx.Err() != nil {
					return
				}

				largeStep := rng.Float64() < m.PLarge
				sampler.begin(largeStep)
				proposed := m.samplePath(sc, sampler, width, height, path)

				a := 0.0
				if current.f > 0 {
					a = math.Min(1, proposed.f/current.f)
				} else if proposed.f > 0 {
					a = 1
				}

				// Kelemen-style expected-value splatting: both states
				// contribute every iteration, weighted by the acceptance
				if proposed.f > 0 {
					f.AddSplat(proposed.pFilm, proposed.l.Scale(a*b/proposed.f))
				}
				if current.f > 0 {
					f.AddSplat(current.pFilm, current.l.Scale((1-a)*b/current.f))
				}

				if rng.Float64() < a {
					sampler.accept()
					current = proposed
				} else {
					sampler.reject()
				}
			}
		}(w)
	}
	wg.Wait()

	// Normalize by mutations per pixel
	total := float64(mutationsPerChain * workers)
	f.SetSplatScale(total / float64(width*height))
	return nil
}
