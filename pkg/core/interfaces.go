package core

// Logger interface for renderer progress and diagnostics
type Logger interface {
	Printf(format string, args ...interface{})
}

// BxDFType is a bit set classifying scattering components
type BxDFType int

const (
	BSDFReflection BxDFType = 1 << iota
	BSDFTransmission
	BSDFDiffuse
	BSDFGlossy
	BSDFSpecular
	BSDFAll = BSDFReflection | BSDFTransmission | BSDFDiffuse | BSDFGlossy | BSDFSpecular
)

// HasFlag reports whether t contains all bits of flag
func (t BxDFType) HasFlag(flag BxDFType) bool {
	return t&flag == flag
}

// IsSpecular reports whether the type includes a specular component
func (t BxDFType) IsSpecular() bool {
	return t&BSDFSpecular != 0
}

// TransportMode distinguishes radiance transport (camera paths) from
// importance transport (light paths); refraction scales differently in each.
type TransportMode int

const (
	TransportRadiance TransportMode = iota
	TransportImportance
)

// BSDF is the scattering interface attached to a surface interaction.
// All directions are in world space; implementations convert to the local
// shading frame internally.
type BSDF interface {
	// F evaluates the BSDF for an outgoing/incoming direction pair
	F(woW, wiW Vec3, flags BxDFType) Spectrum
	// SampleF samples an incoming direction for the given outgoing direction
	SampleF(woW Vec3, u Vec2, flags BxDFType) (wiW Vec3, f Spectrum, pdf float64, sampled BxDFType)
	// PDF returns the solid-angle density SampleF uses for the direction pair
	PDF(woW, wiW Vec3, flags BxDFType) float64
	// NumComponents counts components matching the given flags
	NumComponents(flags BxDFType) int
	// Eta returns the relative index of refraction across the interface
	Eta() float64
}

// BSSRDF is the subsurface scattering interface attached at an entry point.
// Concrete behavior (surface sampling, the exit-point adapter BSDF) lives in
// the bssrdf package; integrators that support subsurface transport assert
// the concrete type.
type BSSRDF interface {
	// Sw evaluates the directional term at the exit point
	Sw(w Vec3) Spectrum
	// Sp evaluates the spatial term between entry and exit points
	Sp(po, pi Vec3) Spectrum
}

// PhaseFunction describes scattering inside participating media
type PhaseFunction interface {
	// P evaluates the phase function for a direction pair
	P(wo, wi Vec3) float64
	// SampleP samples an incoming direction, returning it and the phase value
	// (which equals the PDF for analytically invertible phase functions)
	SampleP(wo Vec3, u Vec2) (Vec3, float64)
}

// Medium describes a participating medium
type Medium interface {
	// Tr returns beam transmittance along the ray over [0, TMax]
	Tr(ray Ray, sampler Sampler) Spectrum
	// Sample samples a scattering distance along the ray. On an interaction
	// inside [0, TMax) it returns the interaction and the throughput weight
	// sigma_s*Tr/pdf; past the end it returns nil and Tr/pdf.
	Sample(ray Ray, sampler Sampler) (*MediumInteraction, Spectrum)
}

// MediumInterface carries the media on either side of a surface boundary
type MediumInterface struct {
	Inside  Medium
	Outside Medium
}

// IsTransition reports whether the interface separates distinct media
func (mi *MediumInterface) IsTransition() bool {
	return mi != nil && mi.Inside != mi.Outside
}

// Material maps a surface interaction to its scattering functions
type Material interface {
	// ComputeScattering attaches a BSDF (and optional BSSRDF) to the interaction
	ComputeScattering(si *SurfaceInteraction, mode TransportMode)
}

// Emitter is implemented by primitives whose surface emits radiance
type Emitter interface {
	// L returns emitted radiance leaving the surface point in direction w
	L(si *SurfaceInteraction, w Vec3) Spectrum
}

// Primitive is the aggregate intersection interface: a shape bound to its
// material, optional area light, and optional medium interface
type Primitive interface {
	// Intersect finds the nearest hit before ray.TMax, shrinking the caller's
	// search via the returned interaction's T
	Intersect(ray *Ray) (*SurfaceInteraction, bool)
	// IntersectP tests for any hit before ray.TMax (shadow fast path)
	IntersectP(ray Ray) bool
	// WorldBound returns the primitive's world-space bounding box
	WorldBound() AABB
}

// Sampler produces the stream of [0,1) sample values driving an integrator.
// Implementations are deterministic given (pixel, seed, sample index).
type Sampler interface {
	// StartPixel begins sampling for the given pixel
	StartPixel(x, y int)
	// StartNextSample advances to the next sample; false when exhausted
	StartNextSample() bool
	// Get1D returns the next 1D sample value
	Get1D() float64
	// Get2D returns the next 2D sample value
	Get2D() Vec2
	// Request1DArray requests an n-value array before sampling begins
	Request1DArray(n int)
	// Request2DArray requests an n-value array before sampling begins
	Request2DArray(n int)
	// Get1DArray returns the next requested 1D array, or nil
	Get1DArray(n int) []float64
	// Get2DArray returns the next requested 2D array, or nil
	Get2DArray(n int) []Vec2
	// SamplesPerPixel returns the configured sample count
	SamplesPerPixel() int
	// Clone returns an identically configured sampler with its own state,
	// reseeded for a worker thread
	Clone(seed uint64) Sampler
}
