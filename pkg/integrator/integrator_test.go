package integrator

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/geometry"
	"github.com/radiant-render/radiant/pkg/lights"
	"github.com/radiant-render/radiant/pkg/material"
	"github.com/radiant-render/radiant/pkg/renderer"
	"github.com/radiant-render/radiant/pkg/sampler"
	"github.com/radiant-render/radiant/pkg/scene"
)

// furnaceMean renders the center of the furnace sphere and returns the mean
// radiance over the silhouette pixels
func furnaceMean(t *testing.T, li func(core.Ray, *scene.Scene, core.Sampler) core.Spectrum, spp int) float64 {
	t.Helper()
	sc, view := scene.Furnace()
	camera := renderer.LookAtPerspective(view.Eye, view.LookAt, view.Up, 16, 16, view.FOV, 0, 0)

	sum := 0.0
	count := 0
	// Central pixels lie well inside the sphere silhouette
	for y := 6; y < 10; y++ {
		for x := 6; x < 10; x++ {
			s := sampler.NewIndependent(spp, 1)
			s.StartPixel(x, y)
			for i := 0; ; i++ {
				pFilm := core.NewVec2(float64(x), float64(y)).Add(s.Get2D())
				ray := camera.GenerateRay(pFilm, s.Get2D())
				l := li(ray, sc, s)
				if l.HasNaN() {
					t.Fatal("non-finite radiance sample")
				}
				sum += l.Luminance()
				count++
				if !s.StartNextSample() {
					break
				}
			}
		}
	}
	return sum / float64(count)
}

func TestPathTracerWhiteFurnace(t *testing.T) {
	// A perfectly diffuse sphere inside a uniform unit emitter must reflect
	// radiance 1 everywhere
	p := NewPath(40)
	mean := furnaceMean(t, p.Li, 96)
	if math.Abs(mean-1) > 0.05 {
		t.Errorf("furnace mean radiance = %v, want 1 +- 0.05", mean)
	}
}

func TestBDPTWhiteFurnace(t *testing.T) {
	_, view := scene.Furnace()
	camera := renderer.LookAtPerspective(view.Eye, view.LookAt, view.Up, 16, 16, view.FOV, 0, 0)
	b := NewBDPT(10, camera)
	mean := furnaceMean(t, b.Li, 64)
	if math.Abs(mean-1) > 0.12 {
		t.Errorf("bdpt furnace mean radiance = %v, want ~1", mean)
	}
}

func TestPathTracerDeterministic(t *testing.T) {
	sc, view := scene.Cornell()
	camera := renderer.LookAtPerspective(view.Eye, view.LookAt, view.Up, 32, 32, view.FOV, 0, 0)
	p := NewPath(6)

	render := func() core.Spectrum {
		s := sampler.NewIndependent(4, 7)
		s.StartPixel(16, 16)
		sum := core.Black
		for {
			pFilm := core.NewVec2(16, 16).Add(s.Get2D())
			ray := camera.GenerateRay(pFilm, s.Get2D())
			sum = sum.Add(p.Li(ray, sc, s))
			if !s.StartNextSample() {
				break
			}
		}
		return sum
	}

	a := render()
	b := render()
	if a != b {
		t.Errorf("identical seeds produced %v and %v", a, b)
	}
}

func TestPhotonTracingConservation(t *testing.T) {
	sc, _ := scene.Cornell()
	s := sampler.NewIndependent(1, 3)
	s.StartPixel(0, 0)

	const numPhotons = 2000
	photons := TracePhotons(sc, s, numPhotons, 8)
	if len(photons) == 0 {
		t.Fatal("no photons stored")
	}

	power := TotalLightPower(sc).Luminance()
	sum := 0.0
	firstBounceSum := 0.0
	for _, ph := range photons {
		if ph.Beta.HasNaN() {
			t.Fatal("photon with non-finite throughput")
		}
		if ph.Beta.R < 0 || ph.Beta.G < 0 || ph.Beta.B < 0 {
			t.Fatal("photon with negative throughput")
		}
		lum := ph.Beta.Luminance()
		sum += lum
		if lum > firstBounceSum {
			firstBounceSum = lum
		}
	}

	// Each photon's stored energy is bounded by the emitted share, and the
	// stored total cannot exceed power times the store count per path
	if sum > power*8 {
		t.Errorf("stored photon energy %v wildly exceeds light power %v", sum, power)
	}
}

func TestKdTreeKNearestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	photons := make([]Photon, 500)
	for i := range photons {
		photons[i] = Photon{
			P:    core.NewVec3(rng.Float64()*10, rng.Float64()*10, rng.Float64()*10),
			Beta: core.White,
		}
	}
	tree := NewKdTree(photons)
	if tree.Size() != 500 {
		t.Fatalf("tree size = %d", tree.Size())
	}

	for trial := 0; trial < 50; trial++ {
		q := core.NewVec3(rng.Float64()*10, rng.Float64()*10, rng.Float64()*10)
		k := 1 + rng.Intn(20)

		found, radius2 := tree.KNearest(q, k, 1e9)
		if len(found) != k {
			t.Fatalf("knn returned %d, want %d", len(found), k)
		}

		// Brute force distances
		dists := make([]float64, len(photons))
		for i, ph := range photons {
			dists[i] = ph.P.Subtract(q).LengthSquared()
		}
		sort.Float64s(dists)

		maxFound := 0.0
		for _, ph := range found {
			d := ph.P.Subtract(q).LengthSquared()
			if d > maxFound {
				maxFound = d
			}
		}
		if math.Abs(maxFound-dists[k-1]) > 1e-9 {
			t.Fatalf("knn radius %v, brute force %v", maxFound, dists[k-1])
		}
		if math.Abs(radius2-maxFound) > 1e-9 {
			t.Fatalf("reported radius2 %v != max found %v", radius2, maxFound)
		}
	}
}

func TestKdTreeInRadius(t *testing.T) {
	photons := []Photon{
		{P: core.NewVec3(0, 0, 0)},
		{P: core.NewVec3(1, 0, 0)},
		{P: core.NewVec3(0, 2, 0)},
		{P: core.NewVec3(5, 5, 5)},
	}
	tree := NewKdTree(photons)
	found := tree.InRadius(core.Vec3{}, 1.5)
	if len(found) != 2 {
		t.Errorf("InRadius found %d photons, want 2", len(found))
	}
}

func TestHashGrid(t *testing.T) {
	bounds := core.NewAABB(core.Vec3{}, core.NewVec3(10, 10, 10))
	grid := NewHashGrid(bounds, 1, 128)

	// Insert an item covering a small box; lookups inside must find it
	grid.Add(42, core.NewVec3(2, 2, 2), core.NewVec3(3, 3, 3))
	found := false
	for _, id := range grid.Lookup(core.NewVec3(2.5, 2.5, 2.5)) {
		if id == 42 {
			found = true
		}
	}
	if !found {
		t.Error("inserted item not found in its cell")
	}

	// Lookups outside the grid bounds must not panic
	_ = grid.Lookup(core.NewVec3(-3, 40, -7))
}

func TestPPMRadiusSchedule(t *testing.T) {
	// The gather radius follows r_{i+1} = r_i sqrt((i+alpha)/(i+1))
	sc, _ := scene.Furnace()
	p := NewPPM(10, 0.5, 0.7, 4)
	s := sampler.NewIndependent(1, 1)
	s.StartPixel(0, 0)
	logger := renderer.NewDefaultLogger()
	if err := p.Preprocess(sc, s, logger); err != nil {
		t.Fatal(err)
	}

	want := 0.5
	for i := 0; i < 8; i++ {
		if math.Abs(p.Radius()-want) > 1e-12 {
			t.Fatalf("pass %d radius = %v, want %v", i, p.Radius(), want)
		}
		p.PassFinished(i, sc, s, logger)
		want *= math.Sqrt((float64(i) + 0.7) / (float64(i) + 1))
	}
}

func TestPSSMLTSamplerMutations(t *testing.T) {
	s := newPSSMLTSampler(1, 0.01)

	// A large step draws fresh values
	s.begin(true)
	v1 := s.Get1D()
	v2 := s.Get1D()
	if v1 < 0 || v1 >= 1 || v2 < 0 || v2 >= 1 {
		t.Fatal("samples out of range")
	}
	s.accept()

	// A small step perturbs the accepted values only slightly
	s.begin(false)
	m1 := s.Get1D()
	if math.Abs(m1-v1) > 0.2 && math.Abs(m1-v1) < 0.8 {
		t.Errorf("small step moved %v -> %v, too far", v1, m1)
	}

	// Rejection restores the previous state
	s.reject()
	s.begin(false)
	r1 := s.Get1D()
	s.reject()

	s.begin(true)
	_ = s.Get1D()
	s.reject()

	// After rejecting everything, another small step starts from v1 again
	s.begin(false)
	r2 := s.Get1D()
	wrapDist := math.Min(math.Abs(r2-v1), 1-math.Abs(r2-v1))
	if wrapDist > 0.2 {
		t.Errorf("state after rejections drifted: %v vs %v (r1=%v)", r2, v1, r1)
	}
}

func TestBDPTMISWeightsSumToOne(t *testing.T) {
	// For a fixed complete path, the MIS weights of every strategy that can
	// produce it must sum to 1, and each weight must equal the power
	// heuristic p_s^2 / sum p_i^2 of the strategy densities.
	matte := material.NewMatte(material.NewConstantTexture(core.NewSpectrumUniform(0.6)))
	floor := geometry.NewQuad(core.NewVec3(-2, 0, -2), core.NewVec3(0, 0, 4), core.NewVec3(4, 0, 0))
	wall := geometry.NewQuad(core.NewVec3(-2, 0, 2), core.NewVec3(0, 3, 0), core.NewVec3(4, 0, 0))
	lightQuad := geometry.NewQuad(core.NewVec3(-0.5, 2.5, -0.5), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1))
	areaLight := lights.NewAreaLight(lightQuad, core.NewSpectrumUniform(10))

	prims := []core.Primitive{
		scene.NewGeometricPrimitive(floor, matte),
		scene.NewGeometricPrimitive(wall, matte),
		&scene.GeometricPrimitive{
			Shape:    lightQuad,
			Material: material.NewMatte(material.NewConstantTexture(core.Black)),
			Light:    areaLight,
		},
	}
	sc := scene.New(prims, []lights.Light{areaLight})
	camera := renderer.LookAtPerspective(
		core.NewVec3(0, 1, -3), core.NewVec3(0, 0.5, 1), core.NewVec3(0, 1, 0),
		64, 48, 60, 0, 0,
	)

	// Trace a fixed path: camera -> floor point -> wall point -> light point
	traceTo := func(from, toward core.Vec3) *core.SurfaceInteraction {
		t.Helper()
		ray := core.NewRay(from, toward.Subtract(from).Normalize())
		si, ok := sc.Intersect(&ray)
		if !ok {
			t.Fatalf("path segment from %v toward %v missed the scene", from, toward)
		}
		return si
	}
	siA := traceTo(camera.Position(), core.NewVec3(0.3, 0, 0.2))
	siA.Material.ComputeScattering(siA, core.TransportRadiance)
	siB := traceTo(siA.P, core.NewVec3(0.5, 1.2, 2))
	siB.Material.ComputeScattering(siB, core.TransportRadiance)
	siC := traceTo(siB.P, core.NewVec3(0.2, 2.5, 0.1))
	if siC.Light == nil {
		t.Fatal("path did not terminate on the area light")
	}

	vCam := vertex{kind: vertexCamera, p: camera.Position(), camera: camera, beta: core.White}
	vA := vertex{kind: vertexSurface, p: siA.P, ng: siA.N, ns: siA.Shading.Normal, wo: siA.Wo, si: siA, beta: core.White}
	vB := vertex{kind: vertexSurface, p: siB.P, ng: siB.N, ns: siB.Shading.Normal, wo: siB.Wo, si: siB, beta: core.White}
	// The light endpoint in its camera-path form (surface hit on the light
	// primitive) and its light-path form (sampled light origin)
	vCcam := vertex{kind: vertexSurface, p: siC.P, ng: siC.N, ns: siC.Shading.Normal, wo: siC.Wo, si: siC, beta: core.White}
	vClight := vertex{kind: vertexLight, p: siC.P, ng: siC.N, ns: siC.N, light: areaLight, beta: core.White}

	// Forward area densities of each vertex under camera-side generation
	// (cfwd) and light-side generation (lfwd). The camera origin density is
	// common to every strategy and cancels, so it is set to 1.
	cfwd := []float64{
		1,
		vCam.pdf(sc, nil, &vA),
		vA.pdf(sc, &vCam, &vB),
		vB.pdf(sc, &vA, &vCcam),
	}
	lfwd := []float64{
		vA.pdf(sc, &vB, &vCam),
		vB.pdf(sc, &vClight, &vA),
		vClight.pdfLight(sc, &vB),
		vClight.pdfLightOrigin(sc, &vB),
	}
	for i := 1; i < 4; i++ {
		if cfwd[i] <= 0 || lfwd[i-1] <= 0 {
			t.Fatalf("degenerate path densities: cfwd=%v lfwd=%v", cfwd, lfwd)
		}
	}

	// Full subpaths with per-vertex forward/reverse densities filled the way
	// the random walks record them
	camVerts := []vertex{vCam, vA, vB, vCcam}
	lightVerts := []vertex{vClight, vB, vA}
	for i := range camVerts {
		camVerts[i].pdfFwd = cfwd[i]
		camVerts[i].pdfRev = lfwd[i]
	}
	for j := range lightVerts {
		lightVerts[j].pdfFwd = lfwd[3-j]
		lightVerts[j].pdfRev = cfwd[3-j]
	}

	// Density of producing the full path with strategy t camera vertices
	strategyPdf := func(tCam int) float64 {
		p := 1.0
		for i := 0; i < tCam; i++ {
			p *= cfwd[i]
		}
		for i := tCam; i < 4; i++ {
			p *= lfwd[i]
		}
		return p
	}
	sumPdf2 := 0.0
	for tCam := 1; tCam <= 4; tCam++ {
		p := strategyPdf(tCam)
		sumPdf2 += p * p
	}

	b := NewBDPT(8, camera)
	sum := 0.0
	for tCam := 1; tCam <= 4; tCam++ {
		s := 4 - tCam
		w := b.misWeight(sc, lightVerts, camVerts, nil, s, tCam)
		if w < 0 || w > 1 {
			t.Fatalf("strategy (s=%d, t=%d) weight %v out of [0,1]", s, tCam, w)
		}

		p := strategyPdf(tCam)
		want := p * p / sumPdf2
		if math.Abs(w-want) > 1e-6*want {
			t.Errorf("strategy (s=%d, t=%d) weight %v, power heuristic wants %v", s, tCam, w, want)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("MIS weights sum to %v, want 1 within 1e-9", sum)
	}
}

func TestSPPMStatisticUpdate(t *testing.T) {
	// One update step of the contraction statistic
	vp := visiblePoint{n: 10, radius: 1, tau: core.NewSpectrumUniform(2)}
	alpha := 0.7
	m := 5.0
	phi := core.NewSpectrumUniform(3)

	nNew := vp.n + alpha*m
	denom := vp.n + m
	tau := vp.tau.Add(phi).Scale(nNew / denom)
	radius := vp.radius * math.Sqrt(nNew/denom)

	if radius >= vp.radius {
		t.Error("radius must shrink when photons arrive")
	}
	if tau.R <= vp.tau.R {
		t.Error("flux must grow with new photons")
	}
	wantRadius := 1 * math.Sqrt((10+0.7*5)/(10+5))
	if math.Abs(radius-wantRadius) > 1e-12 {
		t.Errorf("radius = %v, want %v", radius, wantRadius)
	}
}
