package facemodel

import (
	"image"
	"image/draw"
)

// toRGBA converts any decoded image to RGBA with a zero-origin bounds
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// resizeBilinear scales src to w x h with bilinear interpolation
func resizeBilinear(src *image.RGBA, w, h int) *image.RGBA {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if sw == 0 || sh == 0 {
		return out
	}

	xRatio := float64(sw) / float64(w)
	yRatio := float64(sh) / float64(h)

	for oy := 0; oy < h; oy++ {
		sy := (float64(oy)+0.5)*yRatio - 0.5
		y0 := int(sy)
		if y0 < 0 {
			y0 = 0
		}
		y1 := y0 + 1
		if y1 >= sh {
			y1 = sh - 1
		}
		fy := sy - float64(y0)
		if fy < 0 {
			fy = 0
		}

		for ox := 0; ox < w; ox++ {
			sx := (float64(ox)+0.5)*xRatio - 0.5
			x0 := int(sx)
			if x0 < 0 {
				x0 = 0
			}
			x1 := x0 + 1
			if x1 >= sw {
				x1 = sw - 1
			}
			fx := sx - float64(x0)
			if fx < 0 {
				fx = 0
			}

			oi := out.PixOffset(ox, oy)
			for c := 0; c < 4; c++ {
				p00 := float64(src.Pix[src.PixOffset(x0, y0)+c])
				p10 := float64(src.Pix[src.PixOffset(x1, y0)+c])
				p01 := float64(src.Pix[src.PixOffset(x0, y1)+c])
				p11 := float64(src.Pix[src.PixOffset(x1, y1)+c])
				top := p00 + (p10-p00)*fx
				bottom := p01 + (p11-p01)*fx
				out.Pix[oi+c] = uint8(top + (bottom-top)*fy + 0.5)
			}
		}
	}

	return out
}

// sampleBilinear reads an interpolated RGB value at a fractional position.
// Coordinates outside the image clamp to the border.
func sampleBilinear(src *image.RGBA, x, y float64) (r, g, b float64) {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()

	clamp := func(v, max int) int {
		if v < 0 {
			return 0
		}
		if v >= max {
			return max - 1
		}
		return v
	}

	x0 := clamp(int(x), sw)
	y0 := clamp(int(y), sh)
	x1 := clamp(x0+1, sw)
	y1 := clamp(y0+1, sh)
	fx := x - float64(x0)
	fy := y - float64(y0)
	if fx < 0 {
		fx = 0
	}
	if fy < 0 {
		fy = 0
	}

	for c := 0; c < 3; c++ {
		p00 := float64(src.Pix[src.PixOffset(x0, y0)+c])
		p10 := float64(src.Pix[src.PixOffset(x1, y0)+c])
		p01 := float64(src.Pix[src.PixOffset(x0, y1)+c])
		p11 := float64(src.Pix[src.PixOffset(x1, y1)+c])
		top := p00 + (p10-p00)*fx
		bottom := p01 + (p11-p01)*fx
		v := top + (bottom-top)*fy
		switch c {
		case 0:
			r = v
		case 1:
			g = v
		case 2:
			b = v
		}
	}
	return r, g, b
}
