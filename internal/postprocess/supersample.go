// Package postprocess finishes rendered frames for encoding.
package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample scales img to w×h. Filtering runs on premultiplied pixels so
// that transparent surroundings do not bleed dark fringes into edges.
// Images no larger than the target come back unchanged.
func Downsample(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}

	// image.RGBA is premultiplied; drawing converts.
	premul := image.NewRGBA(b)
	draw.Draw(premul, b, img, b.Min, draw.Src)

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), premul, b, draw.Src, nil)

	out := image.NewNRGBA(scaled.Bounds())
	for i := 0; i < len(scaled.Pix); i += 4 {
		px := scaled.Pix[i : i+4 : i+4]
		a := px[3]
		out.Pix[i+3] = a
		if a <= 1 {
			continue
		}
		for k := 0; k < 3; k++ {
			out.Pix[i+k] = unpremul(px[k], a)
		}
	}
	return out
}

func unpremul(c, a uint8) uint8 {
	v := (uint32(c)*255 + uint32(a)/2) / uint32(a)
	if v > 255 {
		return 255
	}
	return uint8(v)
}
