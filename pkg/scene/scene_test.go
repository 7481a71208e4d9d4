package scene

import (
	"math"
	"testing"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/geometry"
	"github.com/radiant-render/radiant/pkg/lights"
	"github.com/radiant-render/radiant/pkg/material"
	"github.com/radiant-render/radiant/pkg/medium"
	"github.com/radiant-render/radiant/pkg/sampler"
)

func TestPrimitiveAttachesBindings(t *testing.T) {
	mat := material.NewMatte(material.NewConstantTexture(core.NewSpectrumUniform(0.5)))
	sphere := geometry.NewSphereAt(core.NewVec3(0, 0, 5), 1)
	light := lights.NewAreaLight(sphere, core.White)
	prim := &GeometricPrimitive{Shape: sphere, Material: mat, Light: light}

	ray := core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1))
	si, ok := prim.Intersect(&ray)
	if !ok {
		t.Fatal("expected hit")
	}
	if si.Material != core.Material(mat) {
		t.Error("material not attached")
	}
	if si.Light != core.Emitter(light) {
		t.Error("light not attached")
	}
	if si.Primitive != core.Primitive(prim) {
		t.Error("primitive back-pointer not attached")
	}
	// Intersection shrinks the caller's ray
	if math.Abs(ray.TMax-si.T) > 1e-12 {
		t.Errorf("ray.TMax = %v, want %v", ray.TMax, si.T)
	}
}

func TestSceneIntersectNearest(t *testing.T) {
	mat := material.NewMatte(material.NewConstantTexture(core.NewSpectrumUniform(0.5)))
	var prims []core.Primitive
	for _, z := range []float64{3, 6, 9, 12, 15, 18} {
		prims = append(prims, NewGeometricPrimitive(geometry.NewSphereAt(core.NewVec3(0, 0, z), 1), mat))
	}
	sc := New(prims, nil)

	ray := core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1))
	si, ok := sc.Intersect(&ray)
	if !ok {
		t.Fatal("expected hit")
	}
	if math.Abs(si.T-2) > 1e-9 {
		t.Errorf("nearest t = %v, want 2", si.T)
	}
}

func TestSceneEscapedRadiance(t *testing.T) {
	sc := New(nil, []lights.Light{lights.NewUniformEnvironment(core.NewSpectrum(1, 2, 3))})
	le := sc.EscapedRadiance(core.NewRay(core.Vec3{}, core.NewVec3(0, 1, 0)))
	if le != core.NewSpectrum(1, 2, 3) {
		t.Errorf("escaped radiance = %v", le)
	}
	if len(sc.InfiniteLights) != 1 {
		t.Errorf("infinite light not classified")
	}
}

func TestTransmittanceThroughFog(t *testing.T) {
	fog := medium.NewHomogeneous(core.NewSpectrumUniform(0.5), core.Black, 0)

	// A medium boundary sphere with no material around the origin
	boundary := &GeometricPrimitive{
		Shape:           geometry.NewSphereAt(core.Vec3{}, 1),
		MediumInterface: &core.MediumInterface{Inside: fog},
	}
	sc := New([]core.Primitive{boundary,
		// Far away solid so the aggregate has something opaque
		NewGeometricPrimitive(geometry.NewSphereAt(core.NewVec3(0, 100, 0), 1),
			material.NewMatte(material.NewConstantTexture(core.NewSpectrumUniform(0.5)))),
	}, nil)

	s := sampler.NewIndependent(1, 1)

	// Shadow ray crossing the fog sphere through its center: 2 units of fog
	shadow := core.NewRayBounded(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1), 10)
	tr := sc.Transmittance(shadow, s)
	want := math.Exp(-0.5 * 2)
	if math.Abs(tr.R-want) > 0.02 {
		t.Errorf("transmittance = %v, want %v", tr.R, want)
	}

	// A ray blocked by solid geometry transmits nothing
	blocked := core.NewRayBounded(core.NewVec3(0, 95, 0), core.NewVec3(0, 1, 0), 10)
	if !sc.Transmittance(blocked, s).IsBlack() {
		t.Error("solid geometry should block transmittance")
	}
}

func TestBuiltinScenesAssemble(t *testing.T) {
	builders := []struct {
		name  string
		build func() (*Scene, View)
	}{
		{"cornell", Cornell},
		{"furnace", Furnace},
		{"caustic-glass", CausticGlass},
		{"cornell-fog", FoggyCornell},
	}
	for _, b := range builders {
		t.Run(b.name, func(t *testing.T) {
			sc, view := b.build()
			if sc.LightDistrib == nil {
				t.Fatal("missing light distribution")
			}
			if len(sc.Lights) == 0 {
				t.Fatal("scene has no lights")
			}
			if view.FOV <= 0 {
				t.Fatal("view has no field of view")
			}
			if sc.WorldRadius() <= 0 {
				t.Fatal("degenerate world bounds")
			}
		})
	}
}
