package sampler

import (
	"math/rand"

	"github.com/radiant-render/radiant/pkg/core"
)

// First dimensions of the Halton sequence use these primes as bases. Beyond
// the table the sampler falls back to plain PRNG values; correlation
// artifacts in very high dimensions are worse than independent noise.
var haltonPrimes = []int{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47,
	53, 59, 61, 67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113,
}

// Halton is a randomized low-discrepancy sampler. Each dimension uses the
// radical inverse in a distinct prime base with a random per-pixel Cranley-
// Patterson rotation.
type Halton struct {
	samplesPerPixel int
	seed            uint64

	pixelX, pixelY int
	sampleIndex    int
	dimension      int
	offsets        []float64 // per-dimension rotation for the current pixel
	rng            *rand.Rand

	array1DSizes []int
	array2DSizes []int
	arrays1D     [][]float64
	arrays2D     [][]core.Vec2
	array1DPos   int
	array2DPos   int
}

// NewHalton creates a randomized Halton sampler
func NewHalton(samplesPerPixel int, seed uint64) *Halton {
	return &Halton{
		samplesPerPixel: samplesPerPixel,
		seed:            seed,
		offsets:         make([]float64, len(haltonPrimes)),
		rng:             rand.New(rand.NewSource(int64(seed))),
	}
}

// RadicalInverse computes the base-b radical inverse of index i
func RadicalInverse(i int, base int) float64 {
	invBase := 1.0 / float64(base)
	reversed := 0
	invBaseN := 1.0
	for i > 0 {
		next := i / base
		digit := i - next*base
		reversed = reversed*base + digit
		invBaseN *= invBase
		i = next
	}
	return float64(reversed) * invBaseN
}

// StartPixel begins sampling for the given pixel with fresh rotations
func (h *Halton) StartPixel(x, y int) {
	h.pixelX, h.pixelY = x, y
	h.sampleIndex = 0
	h.dimension = 0

	mix := h.seed ^ (uint64(x)*0x9E3779B97F4A7C15 + uint64(y)*0xBF58476D1CE4E5B9)
	h.rng = rand.New(rand.NewSource(int64(mix)))
	for i := range h.offsets {
		h.offsets[i] = h.rng.Float64()
	}
	h.generateArrays()
}

// StartNextSample advances to the next sample for the current pixel
func (h *Halton) StartNextSample() bool {
	h.sampleIndex++
	h.dimension = 0
	if h.sampleIndex >= h.samplesPerPixel {
		return false
	}
	h.generateArrays()
	return true
}

// nextDimension returns the rotated radical inverse for the next dimension
func (h *Halton) nextDimension() float64 {
	if h.dimension >= len(haltonPrimes) {
		return h.rng.Float64()
	}
	v := RadicalInverse(h.sampleIndex+1, haltonPrimes[h.dimension]) + h.offsets[h.dimension]
	if v >= 1 {
		v -= 1
	}
	h.dimension++
	return v
}

// Get1D returns the next 1D sample value
func (h *Halton) Get1D() float64 {
	return h.nextDimension()
}

// Get2D returns the next 2D sample value
func (h *Halton) Get2D() core.Vec2 {
	return core.NewVec2(h.nextDimension(), h.nextDimension())
}

// Request1DArray requests an n-value array for the coming samples
func (h *Halton) Request1DArray(n int) {
	h.array1DSizes = append(h.array1DSizes, n)
}

// Request2DArray requests an n-value array for the coming samples
func (h *Halton) Request2DArray(n int) {
	h.array2DSizes = append(h.array2DSizes, n)
}

// Get1DArray returns the next requested 1D array of size n, or nil
func (h *Halton) Get1DArray(n int) []float64 {
	if h.array1DPos >= len(h.arrays1D) || len(h.arrays1D[h.array1DPos]) != n {
		return nil
	}
	a := h.arrays1D[h.array1DPos]
	h.array1DPos++
	return a
}

// Get2DArray returns the next requested 2D array of size n, or nil
func (h *Halton) Get2DArray(n int) []core.Vec2 {
	if h.array2DPos >= len(h.arrays2D) || len(h.arrays2D[h.array2DPos]) != n {
		return nil
	}
	a := h.arrays2D[h.array2DPos]
	h.array2DPos++
	return a
}

// generateArrays fills requested arrays for the current sample. Arrays use
// stratified PRNG values; the low-discrepancy dimensions are reserved for
// the path decisions that benefit most.
func (h *Halton) generateArrays() {
	h.arrays1D = h.arrays1D[:0]
	h.arrays2D = h.arrays2D[:0]
	h.array1DPos, h.array2DPos = 0, 0
	for _, n := range h.array1DSizes {
		a := make([]float64, n)
		for i := range a {
			a[i] = (float64(i) + h.rng.Float64()) / float64(n)
		}
		h.rng.Shuffle(n, func(i, j int) { a[i], a[j] = a[j], a[i] })
		h.arrays1D = append(h.arrays1D, a)
	}
	for _, n := range h.array2DSizes {
		a := make([]core.Vec2, n)
		for i := range a {
			a[i] = core.NewVec2((float64(i)+h.rng.Float64())/float64(n), h.rng.Float64())
		}
		h.rng.Shuffle(n, func(i, j int) { a[i], a[j] = a[j], a[i] })
		h.arrays2D = append(h.arrays2D, a)
	}
}

// SamplesPerPixel returns the configured sample count
func (h *Halton) SamplesPerPixel() int {
	return h.samplesPerPixel
}

// Clone returns an identically configured sampler with its own state
func (h *Halton) Clone(seed uint64) core.Sampler {
	c := NewHalton(h.samplesPerPixel, seed)
	c.array1DSizes = append([]int(nil), h.array1DSizes...)
	c.array2DSizes = append([]int(nil), h.array2DSizes...)
	return c
}
