package lights

import (
	"math"
	"math/rand"
	"testing"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/geometry"
)

func TestAreaLightPower(t *testing.T) {
	quad := geometry.NewQuad(core.Vec3{}, core.NewVec3(2, 0, 0), core.NewVec3(0, 3, 0))
	light := NewAreaLight(quad, core.NewSpectrum(5, 5, 5))

	want := 5 * math.Pi * 6
	if got := light.Power().R; math.Abs(got-want) > 1e-9 {
		t.Errorf("power = %v, want %v", got, want)
	}
}

func TestAreaLightSampleLi(t *testing.T) {
	// A quad above the reference point, facing down (-Y)
	quad := geometry.NewQuad(
		core.NewVec3(-1, 5, -1),
		core.NewVec3(2, 0, 0),
		core.NewVec3(0, 0, 2),
	)
	if quad.Normal().Y >= 0 {
		t.Fatal("test quad should face down")
	}
	light := NewAreaLight(quad, core.NewSpectrum(10, 10, 10))
	ref := core.Vec3{}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		ls := light.SampleLi(ref, core.NewVec2(rng.Float64(), rng.Float64()))
		if ls.PDF <= 0 {
			t.Fatal("nonpositive pdf")
		}
		if ls.L.IsBlack() {
			t.Fatal("emitting side should reach the reference")
		}
		if ls.Wi.Y <= 0 {
			t.Fatalf("direction %v should point up toward the light", ls.Wi)
		}
		// PdfLi agrees with the sampled density
		pdf := light.PdfLi(ref, ls.Wi)
		if rel := math.Abs(pdf-ls.PDF) / ls.PDF; rel > 1e-6 {
			t.Fatalf("PdfLi %v != sampled %v", pdf, ls.PDF)
		}
	}

	// From behind, the light emits nothing
	behind := core.NewVec3(0, 10, 0)
	ls := light.SampleLi(behind, core.NewVec2(0.5, 0.5))
	if !ls.L.IsBlack() {
		t.Error("back side should be dark")
	}
}

func TestAreaLightEmissionSampling(t *testing.T) {
	quad := geometry.NewQuad(core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1))
	light := NewAreaLight(quad, core.White)
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 500; i++ {
		es := light.SampleLe(
			core.NewVec2(rng.Float64(), rng.Float64()),
			core.NewVec2(rng.Float64(), rng.Float64()),
		)
		if es.PdfPos <= 0 || es.PdfDir <= 0 {
			t.Fatal("nonpositive emission pdfs")
		}
		// Emitted rays leave on the normal's side
		if es.Ray.Direction.Dot(es.N) <= 0 {
			t.Fatalf("emission direction %v behind the surface", es.Ray.Direction)
		}
		if math.Abs(es.PdfPos-1.0/quad.Area()) > 1e-12 {
			t.Fatalf("pdfPos = %v, want uniform %v", es.PdfPos, 1.0/quad.Area())
		}
	}
}

func TestUniformEnvironmentLe(t *testing.T) {
	env := NewUniformEnvironment(core.NewSpectrum(2, 3, 4))
	for i := 0; i < 10; i++ {
		dir := core.SampleUniformSphere(core.NewVec2(float64(i)/10, 0.37))
		le := env.Le(core.NewRay(core.Vec3{}, dir))
		if le != core.NewSpectrum(2, 3, 4) {
			t.Fatalf("uniform env radiance = %v", le)
		}
	}
}

func TestEnvironmentSamplePdfConsistency(t *testing.T) {
	// A map with a bright band: sampling must agree with PdfLi
	width, height := 16, 8
	pixels := make([]core.Spectrum, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := 0.05
			if y == 3 {
				v = 10 // bright band
			}
			pixels[y*width+x] = core.NewSpectrumUniform(v)
		}
	}
	env := NewEnvironment(width, height, pixels, core.IdentityTransform())
	env.Preprocess(core.Vec3{}, 10)

	rng := rand.New(rand.NewSource(3))
	ref := core.Vec3{}
	for i := 0; i < 1000; i++ {
		ls := env.SampleLi(ref, core.NewVec2(rng.Float64(), rng.Float64()))
		if ls.PDF <= 0 {
			continue
		}
		pdf := env.PdfLi(ref, ls.Wi)
		if rel := math.Abs(pdf-ls.PDF) / ls.PDF; rel > 1e-6 {
			t.Fatalf("PdfLi %v != sampled %v", pdf, ls.PDF)
		}
	}
}

func TestEnvironmentImportanceFavorsBrightTexels(t *testing.T) {
	width, height := 8, 4
	pixels := make([]core.Spectrum, width*height)
	for i := range pixels {
		pixels[i] = core.NewSpectrumUniform(0.01)
	}
	bright := 2*width + 5
	pixels[bright] = core.NewSpectrumUniform(100)

	env := NewEnvironment(width, height, pixels, core.IdentityTransform())
	env.Preprocess(core.Vec3{}, 10)

	rng := rand.New(rand.NewSource(4))
	brightHits := 0
	n := 2000
	for i := 0; i < n; i++ {
		ls := env.SampleLi(core.Vec3{}, core.NewVec2(rng.Float64(), rng.Float64()))
		if ls.L.R > 50 {
			brightHits++
		}
	}
	if brightHits < n/2 {
		t.Errorf("importance sampling hit the bright texel only %d/%d times", brightHits, n)
	}
}

func TestPowerDistribution(t *testing.T) {
	dim := NewAreaLight(geometry.NewQuad(core.Vec3{}, core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1)), core.NewSpectrumUniform(1))
	brightShape := geometry.NewQuad(core.NewVec3(5, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1))
	bright := NewAreaLight(brightShape, core.NewSpectrumUniform(99))

	d := NewDistribution([]Light{dim, bright})

	// Selection probabilities are proportional to power
	if d.PMF(1) < 0.9 {
		t.Errorf("bright light pmf = %v, want > 0.9", d.PMF(1))
	}
	if math.Abs(d.PMF(0)+d.PMF(1)-1) > 1e-12 {
		t.Errorf("pmfs sum to %v", d.PMF(0)+d.PMF(1))
	}

	if got := d.IndexOf(bright); got != 1 {
		t.Errorf("IndexOf(bright) = %v, want 1", got)
	}
	if got := d.IndexOf(nil); got != -1 {
		t.Errorf("IndexOf(nil) = %v, want -1", got)
	}

	light, pmf, idx := d.Sample(0.99)
	if light != bright || idx != 1 {
		t.Error("high u should select the bright light")
	}
	if math.Abs(pmf-d.PMF(1)) > 1e-12 {
		t.Errorf("sampled pmf %v != PMF %v", pmf, d.PMF(1))
	}
}
