package sampler

import (
	"math"
	"testing"
)

func TestIndependentDeterminism(t *testing.T) {
	// The same (seed, pixel, sample index) always yields the same stream,
	// regardless of which worker renders the tile
	a := NewIndependent(4, 7)
	b := NewIndependent(4, 7)

	a.StartPixel(3, 5)
	b.StartPixel(3, 5)
	for s := 0; ; s++ {
		for i := 0; i < 8; i++ {
			if a.Get1D() != b.Get1D() {
				t.Fatalf("streams diverge at sample %d draw %d", s, i)
			}
		}
		moreA := a.StartNextSample()
		moreB := b.StartNextSample()
		if moreA != moreB {
			t.Fatal("sample counts diverge")
		}
		if !moreA {
			break
		}
	}
}

func TestIndependentPixelsDecorrelated(t *testing.T) {
	s := NewIndependent(1, 1)
	s.StartPixel(0, 0)
	v1 := s.Get1D()
	s.StartPixel(1, 0)
	v2 := s.Get1D()
	if v1 == v2 {
		t.Error("neighboring pixels produced identical first draws")
	}
}

func TestIndependentRange(t *testing.T) {
	s := NewIndependent(1, 3)
	s.StartPixel(9, 9)
	for i := 0; i < 10000; i++ {
		v := s.Get1D()
		if v < 0 || v >= 1 {
			t.Fatalf("sample %v out of [0,1)", v)
		}
	}
}

func TestIndependentArrays(t *testing.T) {
	s := NewIndependent(2, 5)
	s.Request1DArray(4)
	s.Request2DArray(3)
	s.StartPixel(1, 1)

	a := s.Get1DArray(4)
	if len(a) != 4 {
		t.Fatalf("1d array length %d, want 4", len(a))
	}
	b := s.Get2DArray(3)
	if len(b) != 3 {
		t.Fatalf("2d array length %d, want 3", len(b))
	}
	// Requests are exhausted after retrieval
	if s.Get1DArray(4) != nil {
		t.Error("second 1d array retrieval should be nil")
	}
	// Wrong size returns nil
	s.StartNextSample()
	if s.Get1DArray(7) != nil {
		t.Error("mismatched array size should be nil")
	}
}

func TestCloneIndependence(t *testing.T) {
	base := NewIndependent(2, 11)
	base.Request2DArray(2)
	clone := base.Clone(99).(*Independent)

	if clone.SamplesPerPixel() != 2 {
		t.Error("clone lost the sample count")
	}
	base.StartPixel(0, 0)
	clone.StartPixel(0, 0)
	if base.Get1D() == clone.Get1D() {
		t.Error("clone with a different seed should diverge")
	}
	// The clone inherited the array request
	if clone.Get2DArray(2) == nil {
		t.Error("clone lost the array request")
	}
}

func TestRadicalInverse(t *testing.T) {
	tests := []struct {
		i, base int
		want    float64
	}{
		{1, 2, 0.5},
		{2, 2, 0.25},
		{3, 2, 0.75},
		{1, 3, 1.0 / 3},
		{2, 3, 2.0 / 3},
		{4, 3, 1.0/9 + 3.0/9}, // digits 11 in base 3 reversed
	}
	for _, tt := range tests {
		if got := RadicalInverse(tt.i, tt.base); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("RadicalInverse(%d, %d) = %v, want %v", tt.i, tt.base, got, tt.want)
		}
	}
}

func TestHaltonStratification(t *testing.T) {
	// Halton points cover the unit interval more evenly than random: every
	// one of 16 bins of width 1/16 holds at least one of the first 64 points
	s := NewHalton(64, 1)
	s.StartPixel(0, 0)

	var hit [16]bool
	for i := 0; i < 64; i++ {
		v := s.Get1D()
		if v < 0 || v >= 1 {
			t.Fatalf("halton sample %v out of range", v)
		}
		hit[int(v*16)] = true
		if !s.StartNextSample() {
			break
		}
	}
	for bin, ok := range hit {
		if !ok {
			t.Errorf("bin %d never hit by 64 halton samples", bin)
		}
	}
}

func TestHaltonDeterminism(t *testing.T) {
	a := NewHalton(4, 9)
	b := NewHalton(4, 9)
	a.StartPixel(2, 3)
	b.StartPixel(2, 3)
	for i := 0; i < 16; i++ {
		if a.Get1D() != b.Get1D() {
			t.Fatal("halton streams diverge")
		}
	}
}
