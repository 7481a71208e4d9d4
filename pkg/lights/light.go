// Package lights implements the emitters: diffuse area lights over shapes
// and an importance-sampled environment map, plus the power-weighted light
// selection distribution the scene uses.
package lights

import "github.com/radiant-render/radiant/pkg/core"

// LightSample is the result of sampling a light toward a reference point
type LightSample struct {
	L   core.Spectrum // radiance arriving from the sample
	Wi  core.Vec3     // direction from the reference point to the light
	PDF float64       // solid-angle density at the reference point
	P   core.Vec3     // point on the light (ray target for visibility tests)
	N   core.Vec3     // normal at the light sample point
}

// EmissionSample is the result of sampling an emitted ray for light-path
// generation
type EmissionSample struct {
	Ray    core.Ray      // emitted ray leaving the light
	N      core.Vec3     // surface normal at the emission point
	L      core.Spectrum // emitted radiance
	PdfPos float64       // area density of the position
	PdfDir float64       // solid-angle density of the direction
}

// Light is an emitter that can be sampled for next-event estimation and for
// light-path generation
type Light interface {
	// SampleLi samples a direction from the reference point toward the light
	SampleLi(ref core.Vec3, u core.Vec2) LightSample
	// PdfLi returns the solid-angle density SampleLi uses for direction wi
	PdfLi(ref core.Vec3, wi core.Vec3) float64
	// SampleLe samples an emitted ray, with separate position and direction
	// samples
	SampleLe(uPos, uDir core.Vec2) EmissionSample
	// PdfLe returns the position and direction densities for an emitted ray
	PdfLe(ray core.Ray, n core.Vec3) (pdfPos, pdfDir float64)
	// Power returns total emitted power, used for light selection weighting
	Power() core.Spectrum
	// IsDelta reports whether the light is a delta distribution in position
	// or direction
	IsDelta() bool
	// IsInfinite reports whether the light sits at infinity
	IsInfinite() bool
}

// EnvironmentLight is implemented by lights that contribute radiance to rays
// escaping the scene
type EnvironmentLight interface {
	Light
	// Le returns radiance for a ray that leaves the scene
	Le(ray core.Ray) core.Spectrum
}

// Preprocessor is implemented by lights that need the scene bounds before
// rendering starts
type Preprocessor interface {
	Preprocess(worldCenter core.Vec3, worldRadius float64)
}
