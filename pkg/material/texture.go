// Package material maps surface interactions to BSDF bundles (and optional
// BSSRDFs) using textures for spatially varying parameters.
package material

import (
	"math"

	"github.com/radiant-render/radiant/pkg/core"
)

// Texture produces a spectrum value at a surface interaction
type Texture interface {
	Evaluate(si *core.SurfaceInteraction) core.Spectrum
}

// FloatTexture produces a scalar value at a surface interaction
type FloatTexture interface {
	Evaluate(si *core.SurfaceInteraction) float64
}

// ConstantTexture returns the same spectrum everywhere
type ConstantTexture struct {
	Value core.Spectrum
}

// NewConstantTexture creates a constant spectrum texture
func NewConstantTexture(value core.Spectrum) *ConstantTexture {
	return &ConstantTexture{Value: value}
}

// Evaluate returns the constant value
func (t *ConstantTexture) Evaluate(si *core.SurfaceInteraction) core.Spectrum {
	return t.Value
}

// ConstantFloat returns the same scalar everywhere
type ConstantFloat struct {
	Value float64
}

// NewConstantFloat creates a constant scalar texture
func NewConstantFloat(value float64) *ConstantFloat {
	return &ConstantFloat{Value: value}
}

// Evaluate returns the constant value
func (t *ConstantFloat) Evaluate(si *core.SurfaceInteraction) float64 {
	return t.Value
}

// CheckerTexture alternates two textures on a UV grid
type CheckerTexture struct {
	Even, Odd Texture
	UScale    float64
	VScale    float64
}

// NewCheckerTexture creates a checkerboard with the given tile counts
func NewCheckerTexture(even, odd Texture, uScale, vScale float64) *CheckerTexture {
	return &CheckerTexture{Even: even, Odd: odd, UScale: uScale, VScale: vScale}
}

// Evaluate picks the even or odd texture from the UV cell parity
func (t *CheckerTexture) Evaluate(si *core.SurfaceInteraction) core.Spectrum {
	u := int(math.Floor(si.UV.X * t.UScale))
	v := int(math.Floor(si.UV.Y * t.VScale))
	if (u+v)%2 == 0 {
		return t.Even.Evaluate(si)
	}
	return t.Odd.Evaluate(si)
}

// ImageTexture looks up a loaded image by UV with bilinear filtering.
// Pixel data is linear radiance, row-major from the top-left.
type ImageTexture struct {
	Width, Height int
	Pixels        []core.Spectrum
}

// NewImageTexture creates an image texture from linear pixel data
func NewImageTexture(width, height int, pixels []core.Spectrum) *ImageTexture {
	return &ImageTexture{Width: width, Height: height, Pixels: pixels}
}

// texel returns the pixel at (x, y) with clamped addressing
func (t *ImageTexture) texel(x, y int) core.Spectrum {
	x = max(0, min(t.Width-1, x))
	y = max(0, min(t.Height-1, y))
	return t.Pixels[y*t.Width+x]
}

// Evaluate samples the image bilinearly at the interaction's UV
func (t *ImageTexture) Evaluate(si *core.SurfaceInteraction) core.Spectrum {
	// V points up in texture space, rows are stored top-down
	x := si.UV.X*float64(t.Width) - 0.5
	y := (1-si.UV.Y)*float64(t.Height) - 0.5
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	dx, dy := x-float64(x0), y-float64(y0)

	top := core.LerpSpectrum(t.texel(x0, y0), t.texel(x0+1, y0), dx)
	bottom := core.LerpSpectrum(t.texel(x0, y0+1), t.texel(x0+1, y0+1), dx)
	return core.LerpSpectrum(top, bottom, dy)
}
