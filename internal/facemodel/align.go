package facemodel

import "image"

// AlignSize is the side length of the aligned crop fed to the recognizer
const AlignSize = 112

// arcfaceTemplate holds the canonical 5-point landmark positions for a
// 112x112 ArcFace input crop.
var arcfaceTemplate = [5][2]float64{
	{38.2946, 51.6963},
	{73.5318, 51.5014},
	{56.0252, 71.7366},
	{41.5493, 92.3655},
	{70.7299, 92.2041},
}

// similarityTransform is a non-reflective 2D similarity:
// u = a*x - b*y + tx, v = b*x + a*y + ty
type similarityTransform struct {
	a, b, tx, ty float64
}

// apply maps a source point through the transform
func (t similarityTransform) apply(x, y float64) (u, v float64) {
	return t.a*x - t.b*y + t.tx, t.b*x + t.a*y + t.ty
}

// invert returns the inverse transform
func (t similarityTransform) invert() similarityTransform {
	det := t.a*t.a + t.b*t.b
	ia := t.a / det
	ib := -t.b / det
	return similarityTransform{
		a:  ia,
		b:  ib,
		tx: -(ia*t.tx - ib*t.ty),
		ty: -(ib*t.tx + ia*t.ty),
	}
}

// estimateSimilarityTransform solves the least-squares similarity mapping the
// detected landmarks onto the ArcFace template.
func estimateSimilarityTransform(src [5][2]float32, dst [5][2]float64) similarityTransform {
	n := float64(len(src))
	var sx, sy, su, sv, sxxyy, sxuyv, sxvyu float64

	for i := range src {
		x := float64(src[i][0])
		y := float64(src[i][1])
		u := dst[i][0]
		v := dst[i][1]

		sx += x
		sy += y
		su += u
		sv += v
		sxxyy += x*x + y*y
		sxuyv += x*u + y*v
		sxvyu += x*v - y*u
	}

	d := n*sxxyy - sx*sx - sy*sy
	if d == 0 {
		// Degenerate landmark geometry; fall back to identity
		return similarityTransform{a: 1}
	}

	a := (n*sxuyv - sx*su - sy*sv) / d
	b := (n*sxvyu - sx*sv + sy*su) / d
	tx := (su - a*sx + b*sy) / n
	ty := (sv - b*sx - a*sy) / n

	return similarityTransform{a: a, b: b, tx: tx, ty: ty}
}

// warpAlign produces the aligned size x size crop by inverse-mapping each
// output pixel through the landmark transform and sampling bilinearly.
func warpAlign(src *image.RGBA, t similarityTransform, size int) *image.RGBA {
	inv := t.invert()
	out := image.NewRGBA(image.Rect(0, 0, size, size))

	for oy := 0; oy < size; oy++ {
		for ox := 0; ox < size; ox++ {
			sx, sy := inv.apply(float64(ox), float64(oy))
			r, g, b := sampleBilinear(src, sx, sy)
			oi := out.PixOffset(ox, oy)
			out.Pix[oi] = uint8(r + 0.5)
			out.Pix[oi+1] = uint8(g + 0.5)
			out.Pix[oi+2] = uint8(b + 0.5)
			out.Pix[oi+3] = 0xff
		}
	}

	return out
}
