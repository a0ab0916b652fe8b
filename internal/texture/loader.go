// Package texture finds and decodes the textures model materials refer to.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
)

// Header sizes of the wrapped formats.
const (
	ozjHeader = 24 // OZJ wraps a JPEG
	oztHeader = 4  // OZT wraps a TGA
)

// LoadTexture reads a texture file and returns an NRGBA image. OZJ and OZT
// wrappers are unpacked; JPEG, PNG and TGA files are decoded as is.
func LoadTexture(path string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ozj":
		if len(raw) <= ozjHeader {
			return nil, fmt.Errorf("texture: OZJ too short: %s", path)
		}
		raw = raw[ozjHeader:]
	case ".ozt":
		if len(raw) <= oztHeader {
			return nil, fmt.Errorf("texture: OZT too short: %s", path)
		}
		raw = raw[oztHeader:]
	}

	img, err := Decode(raw, ext)
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes unwrapped image data into NRGBA, choosing the codec from
// the file extension ext. TGA has no magic number, so the format is never
// sniffed from the data.
func Decode(data []byte, ext string) (*image.NRGBA, error) {
	r := bytes.NewReader(data)
	var img image.Image
	var err error
	switch strings.ToLower(ext) {
	case ".ozj", ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	case ".ozt", ".tga":
		img, err = tga.Decode(r)
	case ".png":
		img, err = png.Decode(r)
	default:
		return nil, fmt.Errorf("unknown texture format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return toNRGBA(img), nil
}

// toNRGBA converts any image to NRGBA. Sources without alpha come out opaque.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Opaque reports whether every pixel of img has full alpha.
func Opaque(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return false
		}
	}
	return true
}
