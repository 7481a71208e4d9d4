// Package renderer drives rendering: cameras generate primary rays, the tile
// scheduler fans pixel work out to workers, and passes periodically
// checkpoint the film to disk.
package renderer

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// Camera generates primary rays for film positions and supports the inverse
// queries bidirectional transport needs
type Camera interface {
	// GenerateRay returns the primary ray for a continuous film position;
	// uLens drives depth of field where supported
	GenerateRay(pFilm core.Vec2, uLens core.Vec2) core.Ray
	// WorldToFilm projects a world point to film coordinates; false when the
	// point lies outside the view frustum or behind the camera
	WorldToFilm(p core.Vec3) (core.Vec2, bool)
	// SampleWi samples a direction from a reference point to the camera,
	// returning the importance, direction, distance, the lens point, its
	// solid-angle density, and the film position it contributes to
	SampleWi(ref core.Vec3, uLens core.Vec2) (we core.Spectrum, wi core.Vec3, dist float64, lensP core.Vec3, pdf float64, pFilm core.Vec2, ok bool)
	// PdfWe returns the position and direction densities of GenerateRay
	// producing the given ray
	PdfWe(ray core.Ray) (pdfPos, pdfDir float64)
	// Position returns the camera's center of projection
	Position() core.Vec3
}

// Perspective is a thin-lens perspective camera. A zero lens radius gives a
// pinhole.
type Perspective struct {
	CameraToWorld core.Transform
	Width, Height int

	LensRadius    float64
	FocalDistance float64

	// Film plane in camera space at z=1
	filmMinX, filmMaxX float64
	filmMinY, filmMaxY float64
	filmArea           float64
}

// NewPerspective creates a perspective camera with a vertical field of view
// in degrees
func NewPerspective(cameraToWorld core.Transform, width, height int, fovDegrees float64, lensRadius, focalDistance float64) *Perspective {
	c := &Perspective{
		CameraToWorld: cameraToWorld,
		Width:         width,
		Height:        height,
		LensRadius:    lensRadius,
		FocalDistance: focalDistance,
	}
	if c.FocalDistance <= 0 {
		c.FocalDistance = 1e6
	}

	tanHalf := math.Tan(fovDegrees * math.Pi / 360)
	aspect := float64(width) / float64(height)
	c.filmMaxY = tanHalf
	c.filmMinY = -tanHalf
	c.filmMaxX = tanHalf * aspect
	c.filmMinX = -tanHalf * aspect
	c.filmArea = (c.filmMaxX - c.filmMinX) * (c.filmMaxY - c.filmMinY)
	return c
}

// LookAtPerspective builds a perspective camera from eye/target/up
func LookAtPerspective(eye, target, up core.Vec3, width, height int, fovDegrees float64, lensRadius, focalDistance float64) *Perspective {
	return NewPerspective(core.LookAt(eye, target, up), width, height, fovDegrees, lensRadius, focalDistance)
}

// filmToCamera maps continuous film coordinates to the z=1 camera plane
func (c *Perspective) filmToCamera(pFilm core.Vec2) core.Vec3 {
	u := pFilm.X / float64(c.Width)
	v := pFilm.Y / float64(c.Height)
	return core.NewVec3(
		c.filmMinX+(c.filmMaxX-c.filmMinX)*u,
		c.filmMaxY-(c.filmMaxY-c.filmMinY)*v,
		1,
	)
}

// GenerateRay returns the primary ray through a film position, defocused
// through the lens when the radius is nonzero
func (c *Perspective) GenerateRay(pFilm core.Vec2, uLens core.Vec2) core.Ray {
	target := c.filmToCamera(pFilm)
	origin := core.Vec3{}
	dir := target.Normalize()

	if c.LensRadius > 0 {
		lens := core.SampleConcentricDisk(uLens).Multiply(c.LensRadius)
		// Point on the plane of focus along the unperturbed ray
		ft := c.FocalDistance / dir.Z
		focus := dir.Multiply(ft)
		origin = core.NewVec3(lens.X, lens.Y, 0)
		dir = focus.Subtract(origin).Normalize()
	}

	return core.NewRay(
		c.CameraToWorld.Point(origin),
		c.CameraToWorld.Vector(dir).Normalize(),
	)
}

// WorldToFilm projects a world point onto the film
func (c *Perspective) WorldToFilm(p core.Vec3) (core.Vec2, bool) {
	pc := c.CameraToWorld.Inverse().Point(p)
	if pc.Z <= 1e-9 {
		return core.Vec2{}, false
	}
	x := pc.X / pc.Z
	y := pc.Y / pc.Z
	if x < c.filmMinX || x > c.filmMaxX || y < c.filmMinY || y > c.filmMaxY {
		return core.Vec2{}, false
	}
	u := (x - c.filmMinX) / (c.filmMaxX - c.filmMinX)
	v := (c.filmMaxY - y) / (c.filmMaxY - c.filmMinY)
	return core.NewVec2(u*float64(c.Width), v*float64(c.Height)), true
}

// lensArea returns the lens area, treating a pinhole as a unit "area" so the
// importance densities stay finite
func (c *Perspective) lensArea() float64 {
	if c.LensRadius > 0 {
		return math.Pi * c.LensRadius * c.LensRadius
	}
	return 1
}

// importance returns the importance We carried by a camera ray direction
func (c *Perspective) importance(cosTheta float64) float64 {
	if cosTheta <= 0 {
		return 0
	}
	cos2 := cosTheta * cosTheta
	return 1 / (c.filmArea * c.lensArea() * cos2 * cos2)
}

// SampleWi samples the camera from a reference point for light tracing
func (c *Perspective) SampleWi(ref core.Vec3, uLens core.Vec2) (core.Spectrum, core.Vec3, float64, core.Vec3, float64, core.Vec2, bool) {
	lens := core.SampleConcentricDisk(uLens).Multiply(c.LensRadius)
	lensWorld := c.CameraToWorld.Point(core.NewVec3(lens.X, lens.Y, 0))

	toCam := lensWorld.Subtract(ref)
	dist := toCam.Length()
	if dist == 0 {
		return core.Black, core.Vec3{}, 0, core.Vec3{}, 0, core.Vec2{}, false
	}
	wi := toCam.Multiply(1 / dist)

	// Find the film position the connection contributes to
	pFilm, ok := c.WorldToFilm(ref)
	if !ok {
		return core.Black, core.Vec3{}, 0, core.Vec3{}, 0, core.Vec2{}, false
	}

	camDir := c.CameraToWorld.Vector(core.NewVec3(0, 0, 1)).Normalize()
	cosTheta := wi.Negate().Dot(camDir)
	if cosTheta <= 0 {
		return core.Black, core.Vec3{}, 0, core.Vec3{}, 0, core.Vec2{}, false
	}

	// Solid-angle density of choosing the lens point from ref
	pdf := dist * dist / (cosTheta * c.lensArea())
	we := core.NewSpectrumUniform(c.importance(cosTheta))
	return we, wi, dist, lensWorld, pdf, pFilm, true
}

// PdfWe returns the densities of GenerateRay producing the ray
func (c *Perspective) PdfWe(ray core.Ray) (float64, float64) {
	camDir := c.CameraToWorld.Vector(core.NewVec3(0, 0, 1)).Normalize()
	cosTheta := ray.Direction.Dot(camDir)
	if cosTheta <= 0 {
		return 0, 0
	}
	if _, ok := c.WorldToFilm(ray.Origin.Add(ray.Direction.Multiply(c.FocalDistance / cosTheta))); !ok {
		return 0, 0
	}
	pdfPos := 1 / c.lensArea()
	pdfDir := 1 / (c.filmArea * cosTheta * cosTheta * cosTheta)
	return pdfPos, pdfDir
}

// Position returns the camera origin in world space
func (c *Perspective) Position() core.Vec3 {
	return c.CameraToWorld.Point(core.Vec3{})
}

// Orthographic is a parallel-projection camera over a world-space film window
type Orthographic struct {
	CameraToWorld core.Transform
	Width, Height int
	ScreenWidth   float64 // world-space width of the film window
}

// NewOrthographic creates an orthographic camera
func NewOrthographic(cameraToWorld core.Transform, width, height int, screenWidth float64) *Orthographic {
	return &Orthographic{
		CameraToWorld: cameraToWorld,
		Width:         width,
		Height:        height,
		ScreenWidth:   screenWidth,
	}
}

// GenerateRay returns a parallel ray through the film position
func (c *Orthographic) GenerateRay(pFilm core.Vec2, uLens core.Vec2) core.Ray {
	aspect := float64(c.Width) / float64(c.Height)
	screenHeight := c.ScreenWidth / aspect
	x := (pFilm.X/float64(c.Width) - 0.5) * c.ScreenWidth
	y := (0.5 - pFilm.Y/float64(c.Height)) * screenHeight
	return core.NewRay(
		c.CameraToWorld.Point(core.NewVec3(x, y, 0)),
		c.CameraToWorld.Vector(core.NewVec3(0, 0, 1)).Normalize(),
	)
}

// WorldToFilm projects a world point onto the film window
func (c *Orthographic) WorldToFilm(p core.Vec3) (core.Vec2, bool) {
	pc := c.CameraToWorld.Inverse().Point(p)
	aspect := float64(c.Width) / float64(c.Height)
	screenHeight := c.ScreenWidth / aspect
	u := pc.X/c.ScreenWidth + 0.5
	v := 0.5 - pc.Y/screenHeight
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return core.Vec2{}, false
	}
	return core.NewVec2(u*float64(c.Width), v*float64(c.Height)), true
}

// SampleWi is unsupported for parallel projections: the direction to the
// camera is a delta over a zero-area lens
func (c *Orthographic) SampleWi(ref core.Vec3, uLens core.Vec2) (core.Spectrum, core.Vec3, float64, core.Vec3, float64, core.Vec2, bool) {
	return core.Black, core.Vec3{}, 0, core.Vec3{}, 0, core.Vec2{}, false
}

// PdfWe returns the densities of GenerateRay producing the ray
func (c *Orthographic) PdfWe(ray core.Ray) (float64, float64) {
	aspect := float64(c.Width) / float64(c.Height)
	area := c.ScreenWidth * (c.ScreenWidth / aspect)
	return 1 / area, 1
}

// Position returns the film window center
func (c *Orthographic) Position() core.Vec3 {
	return c.CameraToWorld.Point(core.Vec3{})
}
