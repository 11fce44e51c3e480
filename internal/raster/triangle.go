package raster

import (
	"image/color"
	"math"
)

// Vertex is a projected triangle corner: pixel position, depth (larger is
// nearer) and its unlit color.
type Vertex struct {
	X, Y, Z float64
	Color   color.NRGBA
}

// RasterizeTriangle fills a triangle into fb with a z-buffer test,
// interpolating the corner colors and lighting them with one shade value
// for the whole face. Corners with alpha below 8 leave pixels untouched.
func RasterizeTriangle(fb *FrameBuffer, v [3]Vertex, shade float64, lc *LightConfig) {
	x0, y0, z0 := v[0].X, v[0].Y, v[0].Z
	x1, y1, z1 := v[1].X, v[1].Y, v[1].Z
	x2, y2, z2 := v[2].X, v[2].Y, v[2].Z

	// Bounding box
	minX := int(math.Floor(math.Min(math.Min(x0, x1), x2)))
	maxX := int(math.Ceil(math.Max(math.Max(x0, x1), x2)))
	minY := int(math.Floor(math.Min(math.Min(y0, y1), y2)))
	maxY := int(math.Ceil(math.Max(math.Max(y0, y1), y2)))

	if minX < 0 {
		minX = 0
	}
	if maxX >= fb.Width {
		maxX = fb.Width - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= fb.Height {
		maxY = fb.Height - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	// Barycentric setup
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	// Lit corner colors; interpolating after lighting is exact for flat
	// shading.
	var lit [3][4]float64
	for i, c := range []color.NRGBA{v[0].Color, v[1].Color, v[2].Color} {
		lit[i] = [4]float64{
			float64(lc.Shade(c.R, shade)),
			float64(lc.Shade(c.G, shade)),
			float64(lc.Shade(c.B, shade)),
			float64(c.A),
		}
	}

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			a := w0*lit[0][3] + w1*lit[1][3] + w2*lit[2][3]
			if a < 8 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}
			fb.ZBuf[zIdx] = z

			pxIdx := zIdx * 4
			for k := 0; k < 3; k++ {
				fb.Color[pxIdx+k] = clamp255(w0*lit[0][k] + w1*lit[1][k] + w2*lit[2][k])
			}
			fb.Color[pxIdx+3] = clamp255(a)
		}
	}
}
