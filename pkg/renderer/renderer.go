package renderer

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/film"
	"github.com/radiant-render/radiant/pkg/scene"
)

// Integrator estimates radiance for primary rays. Implementations that also
// splat (BDPT light tracing) receive the film through FilmAware.
type Integrator interface {
	// Preprocess runs once before rendering (photon tracing, cache builds)
	Preprocess(sc *scene.Scene, sampler core.Sampler, logger core.Logger) error
	// Li returns the radiance estimate for a camera ray
	Li(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Spectrum
}

// FilmAware integrators receive the film before rendering to emit splats
type FilmAware interface {
	SetFilm(f *film.Film)
}

// PassHooks integrators are notified around every sample pass (progressive
// photon mapping rebuilds its photon map here)
type PassHooks interface {
	PassStarted(pass int, sc *scene.Scene, sampler core.Sampler, logger core.Logger)
	PassFinished(pass int, sc *scene.Scene, sampler core.Sampler, logger core.Logger)
}

// DefaultLogger writes progress to stderr
type DefaultLogger struct {
	l *log.Logger
}

// NewDefaultLogger creates the stderr logger
func NewDefaultLogger() core.Logger {
	return &DefaultLogger{l: log.New(os.Stderr, "", log.LstdFlags)}
}

// Printf implements core.Logger
func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	dl.l.Printf(format, args...)
}

// Config holds the rendering parameters
type Config struct {
	Width, Height   int
	SamplesPerPixel int
	TileSize        int
	Workers         int
	Seed            uint64
	OutputPattern   string // checkpoint path pattern with one %d verb
	CheckpointEvery int    // passes between checkpoint saves, 0 disables
	Verbose         bool
}

// DefaultConfig returns the standard configuration
func DefaultConfig(width, height int) Config {
	return Config{
		Width:           width,
		Height:          height,
		SamplesPerPixel: 16,
		TileSize:        32,
		Workers:         0, // auto-detect
		OutputPattern:   "image_%03d.png",
		CheckpointEvery: 1,
	}
}

// Renderer owns the camera sampling loop: it schedules tiles across workers,
// merges their film tiles, reports progress, and periodically checkpoints.
type Renderer struct {
	config  Config
	camera  Camera
	film    *film.Film
	logger  core.Logger
	stopped atomic.Bool
}

// New creates a renderer
func New(config Config, camera Camera, f *film.Film, logger core.Logger) *Renderer {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &Renderer{config: config, camera: camera, film: f, logger: logger}
}

// Film returns the film being rendered to
func (r *Renderer) Film() *film.Film {
	return r.film
}

// Stop asks workers to drain their current sample and exit after merging
func (r *Renderer) Stop() {
	r.stopped.Store(true)
}

// tile is one unit of scheduled work
type tile struct {
	id             int
	x0, y0, x1, y1 int
}

// tileGrid splits the image into tiles in scanline order
func (r *Renderer) tileGrid() []tile {
	size := r.config.TileSize
	if size <= 0 {
		size = 32
	}
	var tiles []tile
	id := 0
	for y := 0; y < r.config.Height; y += size {
		for x := 0; x < r.config.Width; x += size {
			tiles = append(tiles, tile{
				id: id,
				x0: x, y0: y,
				x1: min(x+size, r.config.Width),
				y1: min(y+size, r.config.Height),
			})
			id++
		}
	}
	return tiles
}

// Render runs the integrator over every (pixel, sample) pair. Samples are
// organized into passes of one sample per pixel so checkpoints always hold a
// complete estimate.
func (r *Renderer) Render(ctx context.Context, sc *scene.Scene, integ Integrator, proto core.Sampler) error {
	if fa, ok := integ.(FilmAware); ok {
		fa.SetFilm(r.film)
	}

	r.logger.Printf("preprocessing integrator")
	if err := integ.Preprocess(sc, proto.Clone(r.config.Seed^0xA5A5A5A5), r.logger); err != nil {
		return err
	}

	workers := r.config.Workers
	if workers <= 0 {
		workers = numCPU()
	}
	tiles := r.tileGrid()
	totalPasses := proto.SamplesPerPixel()

	for pass := 0; pass < totalPasses; pass++ {
		if r.stopped.Load() || ctx.Err() != nil {
			break
		}
		if hooks, ok := integ.(PassHooks); ok {
			hooks.PassStarted(pass, sc, proto.Clone(r.config.Seed+uint64(pass)*7919), r.logger)
		}

		r.renderPass(ctx, sc, integ, proto, tiles, workers, pass)
		r.film.SetSplatScale(float64(pass + 1))

		if hooks, ok := integ.(PassHooks); ok {
			hooks.PassFinished(pass, sc, proto.Clone(r.config.Seed+uint64(pass)*104729), r.logger)
		}

		if r.config.CheckpointEvery > 0 && (pass+1)%r.config.CheckpointEvery == 0 {
			path := fmt.Sprintf(r.config.OutputPattern, pass+1)
			if err := r.film.WriteImage(path); err != nil {
				return err
			}
			if r.config.Verbose {
				r.logger.Printf("pass %d/%d checkpointed to %s", pass+1, totalPasses, path)
			}
		}
		r.logger.Printf("pass %d/%d complete", pass+1, totalPasses)
	}

	// Final write covers the stop-flag path where no checkpoint fired
	path := fmt.Sprintf(r.config.OutputPattern, totalPasses)
	return r.film.WriteImage(path)
}

// renderPass renders one sample for every pixel, tile-parallel
func (r *Renderer) renderPass(ctx context.Context, sc *scene.Scene, integ Integrator, proto core.Sampler, tiles []tile, workers, pass int) {
	taskCh := make(chan tile, len(tiles))
	for _, t := range tiles {
		taskCh <- t
	}
	close(taskCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				if r.stopped.Load() || ctx.Err() != nil {
					return
				}
				r.renderTile(sc, integ, proto, t, pass)
			}
		}()
	}
	wg.Wait()
}

// renderTile renders one sample per pixel inside the tile bounds. The
// sampler is cloned with a seed derived from (tile, pass) so scheduling
// order cannot change the result.
func (r *Renderer) renderTile(sc *scene.Scene, integ Integrator, proto core.Sampler, t tile, pass int) {
	sampler := proto.Clone(r.config.Seed + uint64(t.id)*0x9E3779B9 + uint64(pass))
	ft := r.film.NewTile(t.x0, t.y0, t.x1, t.y1)

	for y := t.y0; y < t.y1; y++ {
		for x := t.x0; x < t.x1; x++ {
			sampler.StartPixel(x, y)
			// Advance the stream to this pass's sample
			for i := 0; i < pass; i++ {
				if !sampler.StartNextSample() {
					break
				}
			}

			pFilm := core.NewVec2(float64(x), float64(y)).Add(sampler.Get2D())
			ray := r.camera.GenerateRay(pFilm, sampler.Get2D())

			l := integ.Li(ray, sc, sampler)
			if l.HasNaN() {
				if r.config.Verbose {
					r.logger.Printf("dropping non-finite sample at (%d,%d) pass %d", x, y, pass)
				}
				l = core.Black
			}
			ft.AddSample(pFilm, l)
		}
	}

	r.film.MergeTile(ft)
}
