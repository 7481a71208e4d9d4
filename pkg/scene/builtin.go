package scene

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
	"github.com/radiant-render/radiant/pkg/geometry"
	"github.com/radiant-render/radiant/pkg/lights"
	"github.com/radiant-render/radiant/pkg/material"
	"github.com/radiant-render/radiant/pkg/medium"
)

// View describes the camera setup a built-in scene wants
type View struct {
	Eye, LookAt, Up core.Vec3
	FOV             float64 // vertical, degrees
	LensRadius      float64
	FocalDistance   float64
}

// NewGroundQuad creates a large horizontal quad with its normal pointing up,
// centered at the given point
func NewGroundQuad(center core.Vec3, size float64) *geometry.Quad {
	corner := core.NewVec3(center.X-size/2, center.Y, center.Z-size/2)
	u := core.NewVec3(size, 0, 0)
	v := core.NewVec3(0, 0, size)
	return geometry.NewQuad(corner, v, u) // v x u points +Y
}

// addAreaLight builds the quad light plumbing: the emissive primitive joins
// the primitive list, the light borrows the shape
func addAreaLight(prims *[]core.Primitive, lightList *[]lights.Light, shape geometry.Shape, emission core.Spectrum) {
	light := lights.NewAreaLight(shape, emission)
	prim := &GeometricPrimitive{
		Shape:    shape,
		Material: material.NewMatte(material.NewConstantTexture(core.Black)),
		Light:    light,
	}
	*prims = append(*prims, prim)
	*lightList = append(*lightList, light)
}

// Cornell builds the classic Cornell box with two spheres, one mirror and
// one glass
func Cornell() (*Scene, View) {
	white := material.NewMatte(material.NewConstantTexture(core.NewSpectrum(0.73, 0.73, 0.73)))
	red := material.NewMatte(material.NewConstantTexture(core.NewSpectrum(0.65, 0.05, 0.05)))
	green := material.NewMatte(material.NewConstantTexture(core.NewSpectrum(0.12, 0.45, 0.15)))

	var prims []core.Primitive
	var lightList []lights.Light

	// Box interior, 556 units on a side (the classic dimensions)
	const s = 556.0
	// Floor
	prims = append(prims, NewGeometricPrimitive(
		geometry.NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, s), core.NewVec3(s, 0, 0)), white))
	// Ceiling
	prims = append(prims, NewGeometricPrimitive(
		geometry.NewQuad(core.NewVec3(0, s, 0), core.NewVec3(s, 0, 0), core.NewVec3(0, 0, s)), white))
	// Back wall
	prims = append(prims, NewGeometricPrimitive(
		geometry.NewQuad(core.NewVec3(0, 0, s), core.NewVec3(0, s, 0), core.NewVec3(s, 0, 0)), white))
	// Left wall (red)
	prims = append(prims, NewGeometricPrimitive(
		geometry.NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, s, 0), core.NewVec3(0, 0, s)), red))
	// Right wall (green)
	prims = append(prims, NewGeometricPrimitive(
		geometry.NewQuad(core.NewVec3(s, 0, 0), core.NewVec3(0, 0, s), core.NewVec3(0, s, 0)), green))

	// Ceiling light, slightly below the ceiling
	lightQuad := geometry.NewQuad(
		core.NewVec3(213, s-1, 227),
		core.NewVec3(130, 0, 0),
		core.NewVec3(0, 0, 105),
	)
	addAreaLight(&prims, &lightList, lightQuad, core.NewSpectrum(15, 15, 15))

	// Spheres
	mirror := material.NewMirror(material.NewConstantTexture(core.NewSpectrum(0.95, 0.95, 0.95)))
	glass := material.NewGlass(
		material.NewConstantTexture(core.White),
		material.NewConstantTexture(core.White), 1.5)
	prims = append(prims, NewGeometricPrimitive(geometry.NewSphereAt(core.NewVec3(185, 90, 170), 90), mirror))
	prims = append(prims, NewGeometricPrimitive(geometry.NewSphereAt(core.NewVec3(370, 90, 350), 90), glass))

	view := View{
		Eye:    core.NewVec3(278, 273, -800),
		LookAt: core.NewVec3(278, 273, 0),
		Up:     core.NewVec3(0, 1, 0),
		FOV:    39.3,
	}
	return New(prims, lightList), view
}

// Furnace builds the white-furnace test: a diffuse unit sphere inside a
// uniform unit-radiance environment. The rendered sphere must read back the
// environment radiance exactly.
func Furnace() (*Scene, View) {
	white := material.NewMatte(material.NewConstantTexture(core.White))

	prims := []core.Primitive{
		NewGeometricPrimitive(geometry.NewSphereAt(core.Vec3{}, 1), white),
	}
	lightList := []lights.Light{
		lights.NewUniformEnvironment(core.White),
	}

	view := View{
		Eye:    core.NewVec3(0, 0, -4),
		LookAt: core.Vec3{},
		Up:     core.NewVec3(0, 1, 0),
		FOV:    40,
	}
	return New(prims, lightList), view
}

// CausticGlass builds a glass sphere over a checker plane, lit by a small
// bright area light, the classic caustic-focusing setup
func CausticGlass() (*Scene, View) {
	checker := material.NewMatte(material.NewCheckerTexture(
		material.NewConstantTexture(core.NewSpectrum(0.8, 0.8, 0.8)),
		material.NewConstantTexture(core.NewSpectrum(0.1, 0.1, 0.1)),
		16, 16,
	))
	glass := material.NewGlass(
		material.NewConstantTexture(core.White),
		material.NewConstantTexture(core.White), 1.5)

	var prims []core.Primitive
	var lightList []lights.Light

	prims = append(prims, NewGeometricPrimitive(NewGroundQuad(core.Vec3{}, 40), checker))
	prims = append(prims, NewGeometricPrimitive(geometry.NewSphereAt(core.NewVec3(0, 2, 0), 2), glass))

	// Small intense emitter above and to the side
	// Rotate the +Z disk normal down to -Y
	lightDisk := geometry.NewDisk(
		core.Rotate(core.NewVec3(1, 0, 0), math.Pi/2).Compose(
			core.Translate(core.NewVec3(6, 10, -4))),
		1.0,
	)
	addAreaLight(&prims, &lightList, lightDisk, core.NewSpectrum(120, 120, 120))

	view := View{
		Eye:    core.NewVec3(0, 6, -14),
		LookAt: core.NewVec3(0, 1.5, 0),
		Up:     core.NewVec3(0, 1, 0),
		FOV:    35,
	}
	return New(prims, lightList), view
}

// FoggyCornell wraps the Cornell box interior in a thin homogeneous medium
// to exercise the volumetric path tracer
func FoggyCornell() (*Scene, View) {
	sc, view := Cornell()

	fog := medium.NewHomogeneous(
		core.NewSpectrumUniform(0.0002),
		core.NewSpectrumUniform(0.0015),
		0.2,
	)

	// Enclose the interior in a medium-boundary sphere with no material
	boundary := &GeometricPrimitive{
		Shape:           geometry.NewSphereAt(core.NewVec3(278, 278, 278), 900),
		MediumInterface: &core.MediumInterface{Inside: fog},
	}
	prims := append(sc.Primitives, core.Primitive(boundary))
	return New(prims, sc.Lights), view
}
