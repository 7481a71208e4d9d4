package core

import (
	"math"
	"testing"
)

func TestVec3BasicOps(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, 5, 6)

	if got := a.Add(b); !got.Equals(NewVec3(5, 7, 9)) {
		t.Errorf("Add: got %v", got)
	}
	if got := b.Subtract(a); !got.Equals(NewVec3(3, 3, 3)) {
		t.Errorf("Subtract: got %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot: got %v, want 32", got)
	}
	if got := a.Cross(b); !got.Equals(NewVec3(-3, 6, -3)) {
		t.Errorf("Cross: got %v", got)
	}
	if got := NewVec3(3, 4, 0).Length(); got != 5 {
		t.Errorf("Length: got %v, want 5", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := NewVec3(2, -3, 6).Normalize()
	if math.Abs(v.Length()-1) > 1e-12 {
		t.Errorf("normalized length = %v, want 1", v.Length())
	}
	if !NewVec3(0, 0, 0).Normalize().IsZero() {
		t.Error("normalizing zero vector should stay zero")
	}
}

func TestVec3Reflect(t *testing.T) {
	// A 45 degree incoming ray reflects across the normal
	v := NewVec3(1, -1, 0).Normalize()
	n := NewVec3(0, 1, 0)
	r := v.Reflect(n)
	want := NewVec3(1, 1, 0).Normalize()
	if !r.Equals(want) {
		t.Errorf("Reflect: got %v, want %v", r, want)
	}
}

func TestRefract(t *testing.T) {
	n := NewVec3(0, 0, 1)

	// Normal incidence passes straight through
	wi := NewVec3(0, 0, 1)
	wt, ok := Refract(wi, n, 1/1.5)
	if !ok {
		t.Fatal("normal incidence should refract")
	}
	if !wt.Equals(NewVec3(0, 0, -1)) {
		t.Errorf("normal incidence: got %v", wt)
	}

	// Grazing incidence from the dense side gives total internal reflection
	grazing := NewVec3(0.99, 0, math.Sqrt(1-0.99*0.99))
	if _, ok := Refract(grazing, n, 1.5); ok {
		t.Error("expected total internal reflection")
	}
}

func TestRefractSnell(t *testing.T) {
	// Check Snell's law: eta_i sin(theta_i) = eta_t sin(theta_t)
	n := NewVec3(0, 0, 1)
	eta := 1 / 1.5
	wi := NewVec3(0.5, 0, math.Sqrt(1-0.25))
	wt, ok := Refract(wi, n, eta)
	if !ok {
		t.Fatal("refraction should succeed")
	}
	sinI := math.Sqrt(1 - wi.Z*wi.Z)
	sinT := math.Sqrt(1 - wt.Z*wt.Z)
	if math.Abs(sinI*eta-sinT) > 1e-12 {
		t.Errorf("Snell violated: sinI*eta=%v sinT=%v", sinI*eta, sinT)
	}
}

func TestFaceforward(t *testing.T) {
	n := NewVec3(0, 0, 1)
	v := NewVec3(0, 0, -1)
	if got := Faceforward(n, v); !got.Equals(NewVec3(0, 0, -1)) {
		t.Errorf("Faceforward should flip: got %v", got)
	}
	if got := Faceforward(n, n); !got.Equals(n) {
		t.Errorf("Faceforward should keep: got %v", got)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	normals := []Vec3{
		NewVec3(0, 0, 1),
		NewVec3(0, 1, 0),
		NewVec3(1, 0, 0),
		NewVec3(1, 1, 1).Normalize(),
		NewVec3(-0.3, 0.8, -0.5).Normalize(),
	}
	for _, n := range normals {
		frame := NewFrame(n)
		v := NewVec3(0.3, -0.4, 0.5)
		back := frame.ToLocal(frame.ToWorld(v))
		if !back.Equals(v) {
			t.Errorf("frame round trip for n=%v: got %v, want %v", n, back, v)
		}

		// Local Z maps to the normal
		if !frame.ToWorld(NewVec3(0, 0, 1)).Equals(n) {
			t.Errorf("frame Z should map to normal %v", n)
		}
	}
}

func TestTransformPointVector(t *testing.T) {
	tr := Translate(NewVec3(1, 2, 3))
	p := tr.Point(NewVec3(1, 1, 1))
	if !p.Equals(NewVec3(2, 3, 4)) {
		t.Errorf("translated point: got %v", p)
	}
	// Vectors ignore translation
	v := tr.Vector(NewVec3(1, 1, 1))
	if !v.Equals(NewVec3(1, 1, 1)) {
		t.Errorf("translated vector: got %v", v)
	}
}

func TestTransformInverse(t *testing.T) {
	tr := Translate(NewVec3(5, -2, 1)).
		Compose(Rotate(NewVec3(0, 1, 0), math.Pi/3)).
		Compose(Scale(NewVec3(2, 2, 2)))
	p := NewVec3(1.5, -0.25, 3)
	back := tr.Inverse().Point(tr.Point(p))
	if !back.Equals(p) {
		t.Errorf("inverse round trip: got %v, want %v", back, p)
	}
}

func TestTransformNormal(t *testing.T) {
	// Scaling squashes geometry; normals must transform by the inverse
	// transpose to stay perpendicular
	tr := Scale(NewVec3(2, 1, 1))
	// Surface tangent along (1, 1, 0), normal (1, -1, 0)
	tangent := tr.Vector(NewVec3(1, 1, 0))
	normal := tr.Normal(NewVec3(1, -1, 0))
	if math.Abs(tangent.Dot(normal)) > 1e-12 {
		t.Errorf("transformed normal not perpendicular: dot=%v", tangent.Dot(normal))
	}
}

func TestQuaternionMatchesAxisAngleMatrix(t *testing.T) {
	axis := NewVec3(0, 1, 0)
	angle := math.Pi / 2
	q := QuaternionFromAxisAngle(axis, angle)
	m := NewTransform(q.ToMat4())

	v := NewVec3(1, 0, 0)
	got := m.Vector(v)
	want := Rotate(axis, angle).Vector(v)
	if !got.Equals(want) {
		t.Errorf("quaternion rotation %v != matrix rotation %v", got, want)
	}
}
