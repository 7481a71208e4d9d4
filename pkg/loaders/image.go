// Package loaders reads external assets: scene XML, PLY/OBJ/glTF meshes,
// LDR and HDR images, and YAML render presets.
package loaders

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Opioid/rgbe"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "image/jpeg"
	_ "image/png"

	"github.com/radiant-render/radiant/pkg/core"
)

// ImageData holds decoded linear radiance pixels, row-major from the top-left
type ImageData struct {
	Width, Height int
	Pixels        []core.Spectrum
}

// srgbDecode converts an sRGB-encoded value to linear
func srgbDecode(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// LoadImage decodes a PNG, BMP, or JPEG texture into linear radiance
func LoadImage(path string) (*ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, core.IOErrorf("opening image %q", path)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(core.ErrIO, "decoding image %q: %v", path, err)
	}

	bounds := img.Bounds()
	data := &ImageData{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: make([]core.Spectrum, bounds.Dx()*bounds.Dy()),
	}
	for y := 0; y < data.Height; y++ {
		for x := 0; x < data.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			data.Pixels[y*data.Width+x] = core.NewSpectrum(
				srgbDecode(float64(r)/65535),
				srgbDecode(float64(g)/65535),
				srgbDecode(float64(b)/65535),
			)
		}
	}
	return data, nil
}

// LoadHDR decodes a Radiance .hdr file into linear radiance
func LoadHDR(path string) (*ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, core.IOErrorf("opening hdr %q", path)
	}
	defer file.Close()

	width, height, pixels, err := rgbe.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(core.ErrIO, "decoding hdr %q: %v", path, err)
	}

	data := &ImageData{Width: width, Height: height, Pixels: make([]core.Spectrum, width*height)}
	for i := range data.Pixels {
		data.Pixels[i] = core.NewSpectrum(
			float64(pixels[i*3]),
			float64(pixels[i*3+1]),
			float64(pixels[i*3+2]),
		)
	}
	return data, nil
}

// LoadRadianceMap loads an environment image, dispatching on the extension
func LoadRadianceMap(path string) (*ImageData, error) {
	if strings.EqualFold(filepath.Ext(path), ".hdr") {
		return LoadHDR(path)
	}
	return LoadImage(path)
}

// ResolveDataPath resolves an asset path against RADIANT_DATA_DIR when the
// path is relative and does not exist as given
func ResolveDataPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if dir := os.Getenv("RADIANT_DATA_DIR"); dir != "" {
		return filepath.Join(dir, path)
	}
	return path
}
