package preview

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample scales img to size×size in premultiplied alpha so transparent
// edges do not bleed dark halos.
func Downsample(img *image.NRGBA, size int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= size && b.Dy() <= size {
		return img
	}

	premul := image.NewRGBA(b)
	for i := 0; i < len(img.Pix); i += 4 {
		a := float64(img.Pix[i+3]) / 255
		premul.Pix[i] = uint8(float64(img.Pix[i])*a + 0.5)
		premul.Pix[i+1] = uint8(float64(img.Pix[i+1])*a + 0.5)
		premul.Pix[i+2] = uint8(float64(img.Pix[i+2])*a + 0.5)
		premul.Pix[i+3] = img.Pix[i+3]
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	out := image.NewNRGBA(dst.Bounds())
	for i := 0; i < len(dst.Pix); i += 4 {
		a := float64(dst.Pix[i+3])
		if a > 1 {
			k := 255 / a
			out.Pix[i] = clamp255(float64(dst.Pix[i]) * k)
			out.Pix[i+1] = clamp255(float64(dst.Pix[i+1]) * k)
			out.Pix[i+2] = clamp255(float64(dst.Pix[i+2]) * k)
		}
		out.Pix[i+3] = dst.Pix[i+3]
	}
	return out
}
