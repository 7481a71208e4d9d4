package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/radiant-render/radiant/pkg/core"
)

func TestSphereIntersect(t *testing.T) {
	s := NewSphereAt(core.NewVec3(0, 0, 5), 1)

	tests := []struct {
		name string
		ray  core.Ray
		hit  bool
		tHit float64
	}{
		{"through center", core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1)), true, 4},
		{"miss", core.NewRay(core.Vec3{}, core.NewVec3(0, 1, 0)), false, 0},
		{"from inside", core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, 1)), true, 1},
		{"grazing miss", core.NewRay(core.NewVec3(0, 1.001, 0), core.NewVec3(0, 0, 1)), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			si, ok := s.Intersect(tt.ray)
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if ok && math.Abs(si.T-tt.tHit) > 1e-9 {
				t.Errorf("t = %v, want %v", si.T, tt.tHit)
			}
		})
	}
}

func TestSphereNormalAndUV(t *testing.T) {
	s := NewSphereAt(core.Vec3{}, 2)
	ray := core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1))
	si, ok := s.Intersect(ray)
	if !ok {
		t.Fatal("expected hit")
	}
	wantN := core.NewVec3(0, 0, -1)
	if !si.N.Equals(wantN) {
		t.Errorf("normal = %v, want %v", si.N, wantN)
	}
	// The normal points outward: against the incoming ray here
	if si.N.Dot(ray.Direction) >= 0 {
		t.Error("normal should face the ray origin")
	}
	if si.UV.X < 0 || si.UV.X > 1 || si.UV.Y < 0 || si.UV.Y > 1 {
		t.Errorf("uv out of range: %v", si.UV)
	}
}

func TestSphereArea(t *testing.T) {
	s := NewSphereAt(core.Vec3{}, 3)
	want := 4 * math.Pi * 9
	if got := s.Area(); math.Abs(got-want) > 1e-9 {
		t.Errorf("area = %v, want %v", got, want)
	}
}

func TestSphereConePDF(t *testing.T) {
	// Sampling from outside uses the subtended cone
	s := NewSphereAt(core.NewVec3(0, 0, 10), 1)
	ref := core.Vec3{}

	sinThetaMax := 1.0 / 10.0
	cosThetaMax := math.Sqrt(1 - sinThetaMax*sinThetaMax)
	want := 1 / (2 * math.Pi * (1 - cosThetaMax))

	got := s.PDFFrom(ref, core.NewVec3(0, 0, 1))
	if math.Abs(got-want)/want > 1e-9 {
		t.Errorf("cone pdf = %v, want %v", got, want)
	}

	// Directions missing the sphere have zero density
	if pdf := s.PDFFrom(ref, core.NewVec3(0, 1, 0)); pdf != 0 {
		t.Errorf("miss pdf = %v, want 0", pdf)
	}
}

func TestSphereSampleFromConsistency(t *testing.T) {
	s := NewSphereAt(core.NewVec3(0, 0, 10), 1)
	ref := core.Vec3{}
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 500; i++ {
		sample := s.SampleFrom(ref, core.NewVec2(rng.Float64(), rng.Float64()))
		if sample.PDF == 0 {
			continue
		}
		wi := sample.P.Subtract(ref).Normalize()
		pdf := s.PDFFrom(ref, wi)
		if pdf == 0 {
			t.Fatalf("sampled direction %v reports zero pdf", wi)
		}
		if rel := math.Abs(pdf-sample.PDF) / sample.PDF; rel > 1e-6 {
			t.Fatalf("SampleFrom pdf %v != PDFFrom %v", sample.PDF, pdf)
		}
	}
}

func TestTriangleIntersect(t *testing.T) {
	tri := NewTriangle(
		core.NewVec3(-1, -1, 0),
		core.NewVec3(1, -1, 0),
		core.NewVec3(0, 1, 0),
	)

	si, ok := tri.Intersect(core.NewRay(core.NewVec3(0, 0, -3), core.NewVec3(0, 0, 1)))
	if !ok {
		t.Fatal("expected hit")
	}
	if math.Abs(si.T-3) > 1e-9 {
		t.Errorf("t = %v, want 3", si.T)
	}

	if _, ok := tri.Intersect(core.NewRay(core.NewVec3(5, 5, -3), core.NewVec3(0, 0, 1))); ok {
		t.Error("ray outside the triangle should miss")
	}

	// Parallel ray misses
	if _, ok := tri.Intersect(core.NewRay(core.NewVec3(0, 0, -1), core.NewVec3(1, 0, 0))); ok {
		t.Error("parallel ray should miss")
	}
}

func TestTriangleArea(t *testing.T) {
	tri := NewTriangle(
		core.NewVec3(0, 0, 0),
		core.NewVec3(2, 0, 0),
		core.NewVec3(0, 2, 0),
	)
	if got := tri.Area(); math.Abs(got-2) > 1e-12 {
		t.Errorf("area = %v, want 2", got)
	}
}

func TestTriangleSamplePDF(t *testing.T) {
	tri := NewTriangle(
		core.NewVec3(-1, -1, 3),
		core.NewVec3(1, -1, 3),
		core.NewVec3(0, 1, 3),
	)
	rng := rand.New(rand.NewSource(3))
	ref := core.Vec3{}

	for i := 0; i < 500; i++ {
		sample := tri.SampleFrom(ref, core.NewVec2(rng.Float64(), rng.Float64()))
		if sample.PDF <= 0 {
			t.Fatal("nonpositive solid-angle pdf")
		}
		wi := sample.P.Subtract(ref).Normalize()
		pdf := tri.PDFFrom(ref, wi)
		if pdf == 0 {
			t.Fatalf("sampled direction reports zero pdf")
		}
		if rel := math.Abs(pdf-sample.PDF) / sample.PDF; rel > 1e-6 {
			t.Fatalf("SampleFrom pdf %v != PDFFrom %v", sample.PDF, pdf)
		}
	}
}

func TestMeshSharedVertices(t *testing.T) {
	// Two triangles forming a unit square
	mesh := NewTriangleMesh(core.IdentityTransform(),
		[]core.Vec3{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0},
			{X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		},
		nil, nil,
		[]int{0, 1, 2, 0, 2, 3},
	)
	tris := mesh.Triangles()
	if len(tris) != 2 {
		t.Fatalf("triangle count = %d, want 2", len(tris))
	}

	total := 0.0
	for _, tri := range tris {
		total += tri.Area()
	}
	if math.Abs(total-1) > 1e-12 {
		t.Errorf("square area = %v, want 1", total)
	}
}

func TestQuadIntersect(t *testing.T) {
	q := NewQuad(core.NewVec3(-1, -1, 2), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0))

	si, ok := q.Intersect(core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1)))
	if !ok {
		t.Fatal("expected hit")
	}
	if math.Abs(si.T-2) > 1e-9 {
		t.Errorf("t = %v, want 2", si.T)
	}
	if math.Abs(si.UV.X-0.5) > 1e-9 || math.Abs(si.UV.Y-0.5) > 1e-9 {
		t.Errorf("center uv = %v, want (0.5, 0.5)", si.UV)
	}

	if _, ok := q.Intersect(core.NewRay(core.NewVec3(3, 0, 0), core.NewVec3(0, 0, 1))); ok {
		t.Error("ray beyond the quad should miss")
	}
}

func TestQuadAreaAndSample(t *testing.T) {
	q := NewQuad(core.Vec3{}, core.NewVec3(3, 0, 0), core.NewVec3(0, 2, 0))
	if math.Abs(q.Area()-6) > 1e-12 {
		t.Errorf("area = %v, want 6", q.Area())
	}

	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 200; i++ {
		s := q.Sample(core.NewVec2(rng.Float64(), rng.Float64()))
		if s.P.X < 0 || s.P.X > 3 || s.P.Y < 0 || s.P.Y > 2 || s.P.Z != 0 {
			t.Fatalf("sample %v outside the quad", s.P)
		}
		if math.Abs(s.PDF-1.0/6.0) > 1e-12 {
			t.Fatalf("area pdf = %v, want 1/6", s.PDF)
		}
	}
}

func TestDiskIntersect(t *testing.T) {
	d := NewDisk(core.Translate(core.NewVec3(0, 0, 4)), 2)

	si, ok := d.Intersect(core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1)))
	if !ok {
		t.Fatal("expected hit")
	}
	if math.Abs(si.T-4) > 1e-9 {
		t.Errorf("t = %v, want 4", si.T)
	}

	// Outside the radius
	if _, ok := d.Intersect(core.NewRay(core.NewVec3(3, 0, 0), core.NewVec3(0, 0, 1))); ok {
		t.Error("ray outside the disk radius should miss")
	}

	if math.Abs(d.Area()-4*math.Pi) > 1e-9 {
		t.Errorf("area = %v, want 4pi", d.Area())
	}
}

func TestShapeSpawnedRayDoesNotSelfIntersect(t *testing.T) {
	// The offset spawned origin must clear the originating surface
	shapes := []Shape{
		NewSphereAt(core.NewVec3(0, 0, 0), 1),
		NewQuad(core.NewVec3(-1, -1, 0), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0)),
		NewTriangle(core.NewVec3(-1, -1, 0), core.NewVec3(1, -1, 0), core.NewVec3(0, 1, 0)),
	}
	rng := rand.New(rand.NewSource(5))

	for _, shape := range shapes {
		for i := 0; i < 200; i++ {
			origin := core.NewVec3(rng.Float64()*4-2, rng.Float64()*4-2, -5)
			ray := core.NewRay(origin, core.NewVec3(0, 0, 1))
			si, ok := shape.Intersect(ray)
			if !ok {
				continue
			}
			// Spawn a reflected ray off the surface
			out := si.Wo.Negate().Reflect(si.N)
			spawned := si.SpawnRay(out)
			if hit, ok := shape.Intersect(spawned); ok && hit.T < 1e-6 {
				t.Fatalf("self-intersection at t=%v for %T", hit.T, shape)
			}
		}
	}
}
