// Package sampler provides the sample-stream implementations that drive the
// integrators: an independent PRNG sampler and a randomized Halton
// low-discrepancy sampler. The package has no stratified sampler.
package sampler

import (
	"math/rand"

	"github.com/radiant-render/radiant/pkg/core"
)

// Independent produces uncorrelated uniform samples from a deterministic
// per-pixel PRNG stream. Seeding mixes the pixel coordinates with the base
// seed so results are reproducible regardless of tile scheduling.
type Independent struct {
	samplesPerPixel int
	seed            uint64
	rng             *rand.Rand

	pixelX, pixelY int
	sampleIndex    int

	array1DSizes []int
	array2DSizes []int
	arrays1D     [][]float64
	arrays2D     [][]core.Vec2
	array1DPos   int
	array2DPos   int
}

// NewIndependent creates an independent sampler with the given sample count
func NewIndependent(samplesPerPixel int, seed uint64) *Independent {
	return &Independent{
		samplesPerPixel: samplesPerPixel,
		seed:            seed,
		rng:             rand.New(rand.NewSource(int64(seed))),
	}
}

// StartPixel begins sampling for the given pixel, reseeding the stream from
// (pixel, seed) so every (pixel, sample index) pair is deterministic
func (s *Independent) StartPixel(x, y int) {
	s.pixelX, s.pixelY = x, y
	s.sampleIndex = 0
	s.rng = rand.New(rand.NewSource(int64(s.streamSeed(0))))
	s.generateArrays()
}

// streamSeed mixes pixel coordinates, the base seed, and the sample index
// with a splitmix64 finalizer
func (s *Independent) streamSeed(sampleIndex int) uint64 {
	h := s.seed
	h ^= uint64(s.pixelX)*0x9E3779B97F4A7C15 + uint64(s.pixelY)*0xBF58476D1CE4E5B9 + uint64(sampleIndex)
	h ^= h >> 30
	h *= 0xBF58476D1CE4E5B9
	h ^= h >> 27
	h *= 0x94D049BB133111EB
	h ^= h >> 31
	return h
}

// StartNextSample advances to the next sample for the current pixel
func (s *Independent) StartNextSample() bool {
	s.sampleIndex++
	if s.sampleIndex >= s.samplesPerPixel {
		return false
	}
	s.rng = rand.New(rand.NewSource(int64(s.streamSeed(s.sampleIndex))))
	s.generateArrays()
	return true
}

// Get1D returns the next 1D sample value
func (s *Independent) Get1D() float64 {
	return s.rng.Float64()
}

// Get2D returns the next 2D sample value
func (s *Independent) Get2D() core.Vec2 {
	return core.NewVec2(s.rng.Float64(), s.rng.Float64())
}

// Request1DArray requests an n-value array for the coming samples
func (s *Independent) Request1DArray(n int) {
	s.array1DSizes = append(s.array1DSizes, n)
}

// Request2DArray requests an n-value array for the coming samples
func (s *Independent) Request2DArray(n int) {
	s.array2DSizes = append(s.array2DSizes, n)
}

// Get1DArray returns the next requested 1D array of size n, or nil
func (s *Independent) Get1DArray(n int) []float64 {
	if s.array1DPos >= len(s.arrays1D) || len(s.arrays1D[s.array1DPos]) != n {
		return nil
	}
	a := s.arrays1D[s.array1DPos]
	s.array1DPos++
	return a
}

// Get2DArray returns the next requested 2D array of size n, or nil
func (s *Independent) Get2DArray(n int) []core.Vec2 {
	if s.array2DPos >= len(s.arrays2D) || len(s.arrays2D[s.array2DPos]) != n {
		return nil
	}
	a := s.arrays2D[s.array2DPos]
	s.array2DPos++
	return a
}

// generateArrays fills requested arrays for the current sample
func (s *Independent) generateArrays() {
	s.arrays1D = s.arrays1D[:0]
	s.arrays2D = s.arrays2D[:0]
	s.array1DPos, s.array2DPos = 0, 0
	for _, n := range s.array1DSizes {
		a := make([]float64, n)
		for i := range a {
			a[i] = s.rng.Float64()
		}
		s.arrays1D = append(s.arrays1D, a)
	}
	for _, n := range s.array2DSizes {
		a := make([]core.Vec2, n)
		for i := range a {
			a[i] = core.NewVec2(s.rng.Float64(), s.rng.Float64())
		}
		s.arrays2D = append(s.arrays2D, a)
	}
}

// SamplesPerPixel returns the configured sample count
func (s *Independent) SamplesPerPixel() int {
	return s.samplesPerPixel
}

// Clone returns an identically configured sampler with its own stream
func (s *Independent) Clone(seed uint64) core.Sampler {
	c := NewIndependent(s.samplesPerPixel, seed)
	c.array1DSizes = append([]int(nil), s.array1DSizes...)
	c.array2DSizes = append([]int(nil), s.array2DSizes...)
	return c
}
