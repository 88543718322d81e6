package core

import (
	"image"
	"image/color"
)

// warpPerspective resamples frame into a width x height image through the
// inverse homography inv, which maps output pixel coordinates back into
// source coordinates. Sampling is bilinear; any tap falling outside the
// source frame contributes the fill colour, so fully out-of-frame regions
// come out as solid fill.
func warpPerspective(frame *image.RGBA, inv Homography, width, height int, fill color.RGBA) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	bounds := frame.Bounds()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sx, sy := inv.Apply(float64(x), float64(y))
			out.SetRGBA(x, y, sampleBilinear(frame, bounds, sx, sy, fill))
		}
	}
	return out
}

// sampleBilinear blends the four source pixels around (sx, sy). Out-of-bounds
// taps use the fill colour, matching a constant-border warp.
func sampleBilinear(frame *image.RGBA, bounds image.Rectangle, sx, sy float64, fill color.RGBA) color.RGBA {
	x0 := floorInt(sx)
	y0 := floorInt(sy)
	fx := sx - float64(x0)
	fy := sy - float64(y0)

	c00 := tap(frame, bounds, x0, y0, fill)
	c10 := tap(frame, bounds, x0+1, y0, fill)
	c01 := tap(frame, bounds, x0, y0+1, fill)
	c11 := tap(frame, bounds, x0+1, y0+1, fill)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	return color.RGBA{
		R: blend(c00.R, c10.R, c01.R, c11.R, w00, w10, w01, w11),
		G: blend(c00.G, c10.G, c01.G, c11.G, w00, w10, w01, w11),
		B: blend(c00.B, c10.B, c01.B, c11.B, w00, w10, w01, w11),
		A: blend(c00.A, c10.A, c01.A, c11.A, w00, w10, w01, w11),
	}
}

func tap(frame *image.RGBA, bounds image.Rectangle, x, y int, fill color.RGBA) color.RGBA {
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return fill
	}
	return frame.RGBAAt(x, y)
}

func blend(c00, c10, c01, c11 uint8, w00, w10, w01, w11 float64) uint8 {
	v := float64(c00)*w00 + float64(c10)*w10 + float64(c01)*w01 + float64(c11)*w11
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func floorInt(v float64) int {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}
