package film

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Opioid/rgbe"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"

	"github.com/radiant-render/radiant/pkg/core"
)

// Tonemap applies a Reinhard-style global operator scaled by the image's
// log-average luminance. HDR output skips tonemapping and stays linear.
func Tonemap(pixels []core.Spectrum) []core.Spectrum {
	const delta = 1e-6
	logSum := 0.0
	for _, p := range pixels {
		logSum += math.Log(delta + p.Luminance())
	}
	logAvg := math.Exp(logSum / float64(len(pixels)))
	if logAvg == 0 {
		return pixels
	}

	const key = 0.18
	scale := key / logAvg

	out := make([]core.Spectrum, len(pixels))
	for i, p := range pixels {
		scaled := p.Scale(scale)
		lum := scaled.Luminance()
		if lum > 0 {
			mapped := lum / (1 + lum)
			out[i] = scaled.Scale(mapped / lum)
		}
	}
	return out
}

// srgbEncode applies the sRGB transfer curve to a linear value
func srgbEncode(v float64) float64 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

// toRGBA quantizes tonemapped linear pixels to an 8-bit sRGB image
func toRGBA(width, height int, pixels []core.Spectrum) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := pixels[y*width+x]
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * math.Max(0, math.Min(1, srgbEncode(p.R)))),
				G: uint8(255 * math.Max(0, math.Min(1, srgbEncode(p.G)))),
				B: uint8(255 * math.Max(0, math.Min(1, srgbEncode(p.B)))),
				A: 255,
			})
		}
	}
	return img
}

// WriteImage writes the developed film to a file. The format follows the
// extension: .png and .bmp are tonemapped sRGB, .hdr is linear Radiance.
func (f *Film) WriteImage(path string) error {
	pixels := f.Develop()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.IOErrorf("creating output directory for %q", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return core.IOErrorf("creating %q", path)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		if err := png.Encode(file, toRGBA(f.Width, f.Height, Tonemap(pixels))); err != nil {
			return errors.Wrapf(core.ErrIO, "encoding png %q: %v", path, err)
		}
	case ".bmp":
		if err := bmp.Encode(file, toRGBA(f.Width, f.Height, Tonemap(pixels))); err != nil {
			return errors.Wrapf(core.ErrIO, "encoding bmp %q: %v", path, err)
		}
	case ".hdr":
		data := make([]float32, 0, len(pixels)*3)
		for _, p := range pixels {
			data = append(data, float32(p.R), float32(p.G), float32(p.B))
		}
		if err := rgbe.Encode(file, f.Width, f.Height, data); err != nil {
			return errors.Wrapf(core.ErrIO, "encoding hdr %q: %v", path, err)
		}
	default:
		return core.ConfigErrorf("unknown image format %q", filepath.Ext(path))
	}
	return nil
}
