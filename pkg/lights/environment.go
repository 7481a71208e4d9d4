package lights

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// Environment is an image-based light on the sphere at infinity. A 2D
// piecewise-constant distribution over (u, v), proportional to luminance
// times sin(theta), importance-samples incoming directions.
type Environment struct {
	Width, Height int
	Pixels        []core.Spectrum // row-major, latitude-longitude mapping
	LightToWorld  core.Transform
	worldToLight  core.Transform

	distribution *core.Distribution2D
	worldCenter  core.Vec3
	worldRadius  float64
}

// NewEnvironment creates an environment light from a lat-long radiance map
func NewEnvironment(width, height int, pixels []core.Spectrum, lightToWorld core.Transform) *Environment {
	e := &Environment{
		Width:        width,
		Height:       height,
		Pixels:       pixels,
		LightToWorld: lightToWorld,
		worldToLight: lightToWorld.Inverse(),
		worldRadius:  1,
	}

	// Importance distribution: luminance weighted by sin(theta) to undo the
	// lat-long area distortion at the poles
	values := make([]float64, width*height)
	for y := 0; y < height; y++ {
		sinTheta := math.Sin(math.Pi * (float64(y) + 0.5) / float64(height))
		for x := 0; x < width; x++ {
			values[y*width+x] = pixels[y*width+x].Luminance() * sinTheta
		}
	}
	e.distribution = core.NewDistribution2D(values, width, height)
	return e
}

// NewUniformEnvironment creates a constant-radiance environment light
func NewUniformEnvironment(l core.Spectrum) *Environment {
	return NewEnvironment(1, 1, []core.Spectrum{l}, core.IdentityTransform())
}

// Preprocess records the scene bounds for power and emission sampling
func (e *Environment) Preprocess(worldCenter core.Vec3, worldRadius float64) {
	e.worldCenter = worldCenter
	e.worldRadius = math.Max(worldRadius, 1e-3)
}

// lookup returns the texel for normalized (u, v)
func (e *Environment) lookup(u, v float64) core.Spectrum {
	x := min(e.Width-1, max(0, int(u*float64(e.Width))))
	y := min(e.Height-1, max(0, int(v*float64(e.Height))))
	return e.Pixels[y*e.Width+x]
}

// dirToUV maps a world direction to lat-long coordinates
func (e *Environment) dirToUV(dir core.Vec3) core.Vec2 {
	d := e.worldToLight.Vector(dir).Normalize()
	theta := math.Acos(math.Max(-1, math.Min(1, d.Z)))
	phi := math.Atan2(d.Y, d.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return core.NewVec2(phi/(2*math.Pi), theta/math.Pi)
}

// uvToDir maps lat-long coordinates to a world direction and its sin(theta)
func (e *Environment) uvToDir(uv core.Vec2) (core.Vec3, float64) {
	theta := uv.Y * math.Pi
	phi := uv.X * 2 * math.Pi
	sinTheta := math.Sin(theta)
	d := core.NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), math.Cos(theta))
	return e.LightToWorld.Vector(d), sinTheta
}

// Le returns the environment radiance for a ray that escapes the scene
func (e *Environment) Le(ray core.Ray) core.Spectrum {
	uv := e.dirToUV(ray.Direction)
	return e.lookup(uv.X, uv.Y)
}

// SampleLi importance-samples an incoming direction from the radiance map
func (e *Environment) SampleLi(ref core.Vec3, u core.Vec2) LightSample {
	uv, mapPdf := e.distribution.SampleContinuous(u)
	if mapPdf == 0 {
		return LightSample{}
	}

	dir, sinTheta := e.uvToDir(uv)
	if sinTheta == 0 {
		return LightSample{}
	}

	// Convert the map density to solid angle
	pdf := mapPdf / (2 * math.Pi * math.Pi * sinTheta)
	return LightSample{
		L:   e.lookup(uv.X, uv.Y),
		Wi:  dir,
		PDF: pdf,
		P:   ref.Add(dir.Multiply(2 * e.worldRadius)),
		N:   dir.Negate(),
	}
}

// PdfLi returns the solid-angle density of SampleLi for direction wi
func (e *Environment) PdfLi(ref core.Vec3, wi core.Vec3) float64 {
	uv := e.dirToUV(wi)
	theta := uv.Y * math.Pi
	sinTheta := math.Sin(theta)
	if sinTheta == 0 {
		return 0
	}
	return e.distribution.PDF(uv) / (2 * math.Pi * math.Pi * sinTheta)
}

// SampleLe samples an emitted ray: a map direction pointing inward and an
// origin on the disk of the bounding sphere facing that direction
func (e *Environment) SampleLe(uPos, uDir core.Vec2) EmissionSample {
	uv, mapPdf := e.distribution.SampleContinuous(uDir)
	if mapPdf == 0 {
		return EmissionSample{}
	}
	dir, sinTheta := e.uvToDir(uv)
	if sinTheta == 0 {
		return EmissionSample{}
	}
	// Emission travels opposite the lookup direction
	emitDir := dir.Negate()

	// Pick a point on the disk perpendicular to the emission direction
	frame := core.NewFrame(emitDir)
	disk := core.SampleConcentricDisk(uPos)
	offset := frame.Tangent.Multiply(disk.X * e.worldRadius).
		Add(frame.Bitangent.Multiply(disk.Y * e.worldRadius))
	origin := e.worldCenter.Add(dir.Multiply(e.worldRadius)).Add(offset)

	return EmissionSample{
		Ray:    core.NewRay(origin, emitDir),
		N:      emitDir,
		L:      e.lookup(uv.X, uv.Y),
		PdfPos: 1 / (math.Pi * e.worldRadius * e.worldRadius),
		PdfDir: mapPdf / (2 * math.Pi * math.Pi * sinTheta),
	}
}

// PdfLe returns the emission densities for a ray leaving the environment
func (e *Environment) PdfLe(ray core.Ray, n core.Vec3) (float64, float64) {
	uv := e.dirToUV(ray.Direction.Negate())
	sinTheta := math.Sin(uv.Y * math.Pi)
	if sinTheta == 0 {
		return 0, 0
	}
	pdfDir := e.distribution.PDF(uv) / (2 * math.Pi * math.Pi * sinTheta)
	pdfPos := 1 / (math.Pi * e.worldRadius * e.worldRadius)
	return pdfPos, pdfDir
}

// Power estimates total power from the mean map luminance over the scene's
// bounding disk
func (e *Environment) Power() core.Spectrum {
	sum := core.Black
	for _, p := range e.Pixels {
		sum = sum.Add(p)
	}
	mean := sum.Scale(1 / float64(len(e.Pixels)))
	return mean.Scale(math.Pi * e.worldRadius * e.worldRadius)
}

// IsDelta reports false: the environment subtends the full sphere
func (e *Environment) IsDelta() bool {
	return false
}

// IsInfinite reports true
func (e *Environment) IsInfinite() bool {
	return true
}
