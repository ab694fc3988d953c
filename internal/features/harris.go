package features

import (
	"image"
)

const (
	harrisBlockSize = 7
	harrisK         = 0.04
)

// harrisResponse computes the Harris corner measure over a block centred
// on (x, y) using 3x3 Sobel gradients. The caller guarantees the block
// plus one pixel of gradient support lies inside img.
func harrisResponse(img *image.Gray, x, y int) float64 {
	r := harrisBlockSize / 2
	scale := 1.0 / (4.0 * harrisBlockSize * 255.0)
	s := img.Stride
	pix := img.Pix

	var a, b, c float64
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			p := yy*s + xx
			ix := (float64(pix[p-s+1]) + 2*float64(pix[p+1]) + float64(pix[p+s+1]) -
				float64(pix[p-s-1]) - 2*float64(pix[p-1]) - float64(pix[p+s-1])) * scale
			iy := (float64(pix[p+s-1]) + 2*float64(pix[p+s]) + float64(pix[p+s+1]) -
				float64(pix[p-s-1]) - 2*float64(pix[p-s]) - float64(pix[p-s+1])) * scale
			a += ix * ix
			b += iy * iy
			c += ix * iy
		}
	}
	return a*b - c*c - harrisK*(a+b)*(a+b)
}
