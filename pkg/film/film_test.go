package film

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/radiant-render/radiant/pkg/core"
)

func TestFilterPartitionOfUnity(t *testing.T) {
	// Box and tent reconstruction must partition unity: the weights a sample
	// deposits over its support always sum to 1, for any sub-pixel position
	filters := []struct {
		name   string
		filter Filter
	}{
		{"box", NewBoxFilter(0.5)},
		{"tent", NewTentFilter(1)},
	}
	rng := rand.New(rand.NewSource(1))

	for _, tf := range filters {
		t.Run(tf.name, func(t *testing.T) {
			r := tf.filter.Radius()
			for trial := 0; trial < 1000; trial++ {
				// Sample position in continuous pixel coordinates
				px := 10*rng.Float64() + 5
				py := 10*rng.Float64() + 5
				dx := px - 0.5
				dy := py - 0.5

				sum := 0.0
				for y := int(math.Ceil(dy - r)); y <= int(math.Floor(dy+r)); y++ {
					for x := int(math.Ceil(dx - r)); x <= int(math.Floor(dx+r)); x++ {
						sum += tf.filter.Evaluate(float64(x)-dx, float64(y)-dy)
					}
				}
				if math.Abs(sum-1) > 1e-12 {
					t.Fatalf("weights at (%v,%v) sum to %v", px, py, sum)
				}
			}
		})
	}
}

func TestGaussianFilterShape(t *testing.T) {
	f := NewGaussianFilter(2, 1)
	if f.Evaluate(0, 0) <= f.Evaluate(1, 0) {
		t.Error("gaussian should decay from the center")
	}
	if f.Evaluate(2, 0) != 0 {
		t.Error("gaussian should vanish at the support edge")
	}
	if f.Evaluate(0, 0) <= 0 {
		t.Error("gaussian center weight must be positive")
	}
}

func TestFilmAccumulation(t *testing.T) {
	f := New(4, 4, NewBoxFilter(0.5))
	tile := f.NewTile(0, 0, 4, 4)

	// Two samples in pixel (1, 1)
	tile.AddSample(core.NewVec2(1.5, 1.5), core.NewSpectrum(1, 2, 3))
	tile.AddSample(core.NewVec2(1.4, 1.6), core.NewSpectrum(3, 2, 1))
	f.MergeTile(tile)

	pixels := f.Develop()
	got := pixels[1*4+1]
	want := core.NewSpectrum(2, 2, 2)
	if math.Abs(got.R-want.R) > 1e-12 || math.Abs(got.G-want.G) > 1e-12 {
		t.Errorf("pixel = %v, want %v", got, want)
	}

	// Untouched pixels stay black
	if !pixels[0].IsBlack() {
		t.Errorf("untouched pixel = %v", pixels[0])
	}
}

func TestFilmDropsNonFinite(t *testing.T) {
	f := New(2, 2, NewBoxFilter(0.5))
	tile := f.NewTile(0, 0, 2, 2)
	tile.AddSample(core.NewVec2(0.5, 0.5), core.NewSpectrum(math.NaN(), 1, 1))
	tile.AddSample(core.NewVec2(0.5, 0.5), core.NewSpectrum(2, 2, 2))
	f.MergeTile(tile)

	pixels := f.Develop()
	if pixels[0].HasNaN() {
		t.Fatal("NaN leaked into the film")
	}
	if math.Abs(pixels[0].R-2) > 1e-12 {
		t.Errorf("pixel = %v, want the valid sample only", pixels[0])
	}
}

func TestFilmSplats(t *testing.T) {
	f := New(2, 2, NewBoxFilter(0.5))
	f.AddSplat(core.NewVec2(0.5, 0.5), core.NewSpectrum(4, 4, 4))
	f.AddSplat(core.NewVec2(0.5, 0.5), core.NewSpectrum(2, 2, 2))
	f.SetSplatScale(2)

	pixels := f.Develop()
	if math.Abs(pixels[0].R-3) > 1e-12 {
		t.Errorf("splat pixel = %v, want 3", pixels[0].R)
	}

	// Out-of-bounds splats are ignored
	f.AddSplat(core.NewVec2(-1, 0), core.White)
	f.AddSplat(core.NewVec2(0, 17), core.White)
}

func TestTentFilterCoversNeighbors(t *testing.T) {
	// A sample between pixels spreads weight across both
	f := New(4, 1, NewTentFilter(1))
	tile := f.NewTile(0, 0, 4, 1)
	tile.AddSample(core.NewVec2(2.0, 0.5), core.NewSpectrum(1, 1, 1))
	f.MergeTile(tile)

	pixels := f.Develop()
	if pixels[1].IsBlack() || pixels[2].IsBlack() {
		t.Errorf("tent sample should cover pixels 1 and 2: %v %v", pixels[1], pixels[2])
	}
}

func TestWriteImageFormats(t *testing.T) {
	dir := t.TempDir()
	f := New(8, 8, NewBoxFilter(0.5))
	tile := f.NewTile(0, 0, 8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			tile.AddSample(core.NewVec2(float64(x)+0.5, float64(y)+0.5),
				core.NewSpectrum(float64(x)/8, float64(y)/8, 0.5))
		}
	}
	f.MergeTile(tile)

	for _, name := range []string{"out.png", "out.bmp", "out.hdr"} {
		path := filepath.Join(dir, name)
		if err := f.WriteImage(path); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Fatalf("%s not written", name)
		}
	}

	if err := f.WriteImage(filepath.Join(dir, "out.tiff")); err == nil {
		t.Error("unknown format should error")
	}
}
