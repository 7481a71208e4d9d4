package film

import (
	"math"
	"sync"

	"github.com/radiant-render/radiant/pkg/core"
)

// Pixel is one accumulator cell: a filter-weighted radiance sum with its
// weight, plus a separate splat sum for light-tracing strategies
type Pixel struct {
	Sum       core.Spectrum // sum of w * L
	WeightSum float64       // sum of w
	Splat     core.Spectrum // unweighted splat accumulator
}

// Film is the shared pixel buffer. Integrator workers accumulate into
// per-tile buffers and merge under the mutex; splats lock individually.
type Film struct {
	Width, Height int
	filter        Filter

	mu          sync.Mutex
	pixels      []Pixel
	splatScale  float64 // divides splats at develop time (samples per pixel)
}

// New creates a film with the given resolution and reconstruction filter
func New(width, height int, filter Filter) *Film {
	return &Film{
		Width:      width,
		Height:     height,
		filter:     filter,
		pixels:     make([]Pixel, width*height),
		splatScale: 1,
	}
}

// Filter returns the reconstruction filter
func (f *Film) Filter() Filter {
	return f.filter
}

// SetSplatScale sets the factor splats are divided by when developing
// (typically the per-pixel sample or mutation count)
func (f *Film) SetSplatScale(scale float64) {
	f.mu.Lock()
	f.splatScale = scale
	f.mu.Unlock()
}

// Tile is a film-region accumulator private to one worker
type Tile struct {
	X0, Y0, X1, Y1 int // pixel bounds, exclusive max
	filter         Filter
	pixels         []Pixel
	filmWidth      int
}

// NewTile creates an accumulator for the given pixel bounds. The bounds are
// expanded by the filter radius so edge samples keep their full support.
func (f *Film) NewTile(x0, y0, x1, y1 int) *Tile {
	r := int(math.Ceil(f.filter.Radius() - 0.5))
	x0 = max(0, x0-r)
	y0 = max(0, y0-r)
	x1 = min(f.Width, x1+r)
	y1 = min(f.Height, y1+r)
	return &Tile{
		X0: x0, Y0: y0, X1: x1, Y1: y1,
		filter:    f.filter,
		pixels:    make([]Pixel, (x1-x0)*(y1-y0)),
		filmWidth: f.Width,
	}
}

// AddSample splats a radiance sample at the continuous film position,
// weighting every pixel whose filter support covers the sample. Non-finite
// samples are dropped; negative components are clamped.
func (t *Tile) AddSample(pFilm core.Vec2, l core.Spectrum) {
	if l.HasNaN() {
		return
	}
	l = l.ClampNonNegative()

	radius := t.filter.Radius()
	// Sample position in discrete pixel coordinates
	dx := pFilm.X - 0.5
	dy := pFilm.Y - 0.5
	x0 := max(t.X0, int(math.Ceil(dx-radius)))
	y0 := max(t.Y0, int(math.Ceil(dy-radius)))
	x1 := min(t.X1-1, int(math.Floor(dx+radius)))
	y1 := min(t.Y1-1, int(math.Floor(dy+radius)))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			w := t.filter.Evaluate(float64(x)-dx, float64(y)-dy)
			if w == 0 {
				continue
			}
			p := &t.pixels[(y-t.Y0)*(t.X1-t.X0)+(x-t.X0)]
			p.Sum = p.Sum.Add(l.Scale(w))
			p.WeightSum += w
		}
	}
}

// MergeTile folds a tile accumulator into the film
func (f *Film) MergeTile(t *Tile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for y := t.Y0; y < t.Y1; y++ {
		for x := t.X0; x < t.X1; x++ {
			src := &t.pixels[(y-t.Y0)*(t.X1-t.X0)+(x-t.X0)]
			dst := &f.pixels[y*f.Width+x]
			dst.Sum = dst.Sum.Add(src.Sum)
			dst.WeightSum += src.WeightSum
		}
	}
}

// AddSplat adds an unweighted splat at a film position. Splats bypass the
// reconstruction filter and are normalized at develop time.
func (f *Film) AddSplat(pFilm core.Vec2, l core.Spectrum) {
	if l.HasNaN() {
		return
	}
	x := int(pFilm.X)
	y := int(pFilm.Y)
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return
	}
	l = l.ClampNonNegative()
	f.mu.Lock()
	p := &f.pixels[y*f.Width+x]
	p.Splat = p.Splat.Add(l)
	f.mu.Unlock()
}

// Develop resolves the accumulators to linear radiance values
func (f *Film) Develop() []core.Spectrum {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]core.Spectrum, len(f.pixels))
	for i, p := range f.pixels {
		v := core.Black
		if p.WeightSum > 0 {
			v = p.Sum.Scale(1 / p.WeightSum)
		}
		if f.splatScale > 0 {
			v = v.Add(p.Splat.Scale(1 / f.splatScale))
		}
		out[i] = v.ClampNonNegative()
	}
	return out
}

// Clear resets all accumulators
func (f *Film) Clear() {
	f.mu.Lock()
	f.pixels = make([]Pixel, f.Width*f.Height)
	f.mu.Unlock()
}
