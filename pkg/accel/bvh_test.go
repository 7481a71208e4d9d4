package accel_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/radiant-render/radiant/pkg/accel"
	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/geometry"
	"github.com/radiant-render/radiant/pkg/scene"
)

// randomSpheres builds a cloud of sphere primitives for traversal testing
func randomSpheres(n int, seed int64) []core.Primitive {
	rng := rand.New(rand.NewSource(seed))
	prims := make([]core.Primitive, n)
	for i := range prims {
		center := core.NewVec3(
			rng.Float64()*20-10,
			rng.Float64()*20-10,
			rng.Float64()*20-10,
		)
		radius := 0.1 + rng.Float64()*0.5
		prims[i] = &scene.GeometricPrimitive{Shape: geometry.NewSphereAt(center, radius)}
	}
	return prims
}

func TestBVHMatchesLinear(t *testing.T) {
	prims := randomSpheres(200, 42)
	bvh := accel.NewBVH(prims)
	linear := accel.NewLinear(prims)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		origin := core.NewVec3(rng.Float64()*30-15, rng.Float64()*30-15, rng.Float64()*30-15)
		dir := core.SampleUniformSphere(core.NewVec2(rng.Float64(), rng.Float64()))

		bvhRay := core.NewRay(origin, dir)
		linRay := core.NewRay(origin, dir)
		bvhHit, bvhOk := bvh.Intersect(&bvhRay)
		linHit, linOk := linear.Intersect(&linRay)

		if bvhOk != linOk {
			t.Fatalf("ray %d: bvh hit=%v, linear hit=%v", i, bvhOk, linOk)
		}
		if bvhOk {
			if math.Abs(bvhHit.T-linHit.T) > 1e-9*math.Max(1, linHit.T) {
				t.Fatalf("ray %d: bvh t=%v, linear t=%v", i, bvhHit.T, linHit.T)
			}
		}

		// Shadow queries agree too
		sRay := core.NewRay(origin, dir)
		if bvh.IntersectP(sRay) != linear.IntersectP(sRay) {
			t.Fatalf("ray %d: IntersectP disagrees", i)
		}
	}
}

func TestBVHRespectsTMax(t *testing.T) {
	prims := []core.Primitive{
		&scene.GeometricPrimitive{Shape: geometry.NewSphereAt(core.NewVec3(0, 0, 10), 1)},
	}
	bvh := accel.NewBVH(prims)

	near := core.NewRayBounded(core.Vec3{}, core.NewVec3(0, 0, 1), 5)
	if bvh.IntersectP(near) {
		t.Error("hit beyond TMax reported")
	}
	far := core.NewRayBounded(core.Vec3{}, core.NewVec3(0, 0, 1), 20)
	if !bvh.IntersectP(far) {
		t.Error("hit within TMax missed")
	}
}

func TestBVHShrinksRayOnHit(t *testing.T) {
	// Two spheres along one ray: the reported hit must be the nearest
	prims := []core.Primitive{
		&scene.GeometricPrimitive{Shape: geometry.NewSphereAt(core.NewVec3(0, 0, 5), 1)},
		&scene.GeometricPrimitive{Shape: geometry.NewSphereAt(core.NewVec3(0, 0, 10), 1)},
		// Padding so the build takes the BVH path
		&scene.GeometricPrimitive{Shape: geometry.NewSphereAt(core.NewVec3(50, 0, 0), 1)},
		&scene.GeometricPrimitive{Shape: geometry.NewSphereAt(core.NewVec3(0, 50, 0), 1)},
		&scene.GeometricPrimitive{Shape: geometry.NewSphereAt(core.NewVec3(0, -50, 0), 1)},
	}
	bvh := accel.NewBVH(prims)
	ray := core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1))
	hit, ok := bvh.Intersect(&ray)
	if !ok {
		t.Fatal("expected a hit")
	}
	if math.Abs(hit.T-4) > 1e-9 {
		t.Errorf("nearest hit t=%v, want 4", hit.T)
	}
}

func TestBVHEmpty(t *testing.T) {
	bvh := accel.NewBVH(nil)
	ray := core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1))
	if _, ok := bvh.Intersect(&ray); ok {
		t.Error("empty BVH reported a hit")
	}
	if bvh.IntersectP(ray) {
		t.Error("empty BVH reported a shadow hit")
	}
}
