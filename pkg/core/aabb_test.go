package core

import (
	"math"
	"testing"
)

func TestAABBHit(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	tests := []struct {
		name   string
		ray    Ray
		hit    bool
		tNear  float64
	}{
		{"through center", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1)), true, 4},
		{"miss to the side", NewRay(NewVec3(0, 5, -5), NewVec3(0, 0, 1)), false, 0},
		{"from inside", NewRay(NewVec3(0, 0, 0), NewVec3(1, 0, 0)), true, 0},
		{"pointing away", NewRay(NewVec3(0, 0, 5), NewVec3(0, 0, 1)), false, 0},
		{"diagonal", NewRay(NewVec3(-5, -5, -5), NewVec3(1, 1, 1).Normalize()), true, 4 * math.Sqrt(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tNear, tFar, hit := box.Hit(tt.ray)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit {
				if tFar < tNear {
					t.Errorf("tFar %v < tNear %v", tFar, tNear)
				}
				if math.Abs(tNear-tt.tNear) > 1e-9 {
					t.Errorf("tNear = %v, want %v", tNear, tt.tNear)
				}
			}
		})
	}
}

func TestAABBHitRespectsTMax(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))
	ray := NewRayBounded(NewVec3(0, 0, -5), NewVec3(0, 0, 1), 2)
	if _, _, hit := box.Hit(ray); hit {
		t.Error("box beyond TMax should not hit")
	}
}

func TestAABBUnionMonotone(t *testing.T) {
	a := NewAABB(NewVec3(0, 0, 0), NewVec3(1, 1, 1))
	b := NewAABB(NewVec3(2, -1, 0.5), NewVec3(3, 0.5, 2))
	u := a.Union(b)
	for _, p := range []Vec3{a.Min, a.Max, b.Min, b.Max} {
		if !u.Contains(p) {
			t.Errorf("union does not contain %v", p)
		}
	}

	// Adding a point grows monotonically
	grown := a.AddPoint(NewVec3(5, 5, 5))
	if !grown.Contains(NewVec3(5, 5, 5)) || !grown.Contains(a.Min) {
		t.Error("AddPoint not monotone")
	}
}

func TestAABBSurfaceAreaAndAxis(t *testing.T) {
	box := NewAABB(NewVec3(0, 0, 0), NewVec3(2, 1, 3))
	want := 2.0 * (2*1 + 1*3 + 3*2)
	if got := box.SurfaceArea(); math.Abs(got-want) > 1e-12 {
		t.Errorf("surface area = %v, want %v", got, want)
	}
	if got := box.LongestAxis(); got != 2 {
		t.Errorf("longest axis = %v, want 2", got)
	}
}

func TestEmptyAABBUnion(t *testing.T) {
	empty := EmptyAABB()
	box := NewAABB(NewVec3(-1, 0, 0), NewVec3(1, 1, 1))
	if got := empty.Union(box); got != box {
		t.Errorf("empty union box = %v, want %v", got, box)
	}
}

func TestOffsetRayOriginEscapesSurface(t *testing.T) {
	// Spawned origins must be strictly on the outgoing side of the surface
	// plane, even far from the world origin
	points := []Vec3{
		NewVec3(0, 0, 0),
		NewVec3(1e3, -2e3, 5e2),
		NewVec3(1e-8, 1e-8, 1e-8),
	}
	normals := []Vec3{
		NewVec3(0, 1, 0),
		NewVec3(1, 1, 1).Normalize(),
		NewVec3(-0.2, 0.9, 0.4).Normalize(),
	}
	for _, p := range points {
		for _, n := range normals {
			d := n // leaving along the normal
			o := OffsetRayOrigin(p, n, d)
			if o.Subtract(p).Dot(n) <= 0 {
				t.Errorf("offset origin %v not above surface at %v", o, p)
			}
			// And below when leaving through the back side
			o = OffsetRayOrigin(p, n, n.Negate())
			if o.Subtract(p).Dot(n) >= 0 {
				t.Errorf("offset origin %v not below surface at %v", o, p)
			}
		}
	}
}
