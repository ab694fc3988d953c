// Package testimage generates deterministic synthetic images for tests.
package testimage

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/rand"
	"os"
)

// Shapes draws count random axis-aligned rectangles of random colour on a
// mid-grey canvas. The same seed always yields the same image. Each colour
// channel varies independently so every channel carries corners.
func Shapes(width, height, count int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.NRGBA{R: 128, G: 128, B: 128, A: 255}}, image.Point{}, draw.Src)

	for i := 0; i < count; i++ {
		w := 12 + rng.Intn(width/5)
		h := 12 + rng.Intn(height/5)
		x := rng.Intn(width - w)
		y := rng.Intn(height - h)
		c := color.NRGBA{
			R: uint8(rng.Intn(256)),
			G: uint8(rng.Intn(256)),
			B: uint8(rng.Intn(256)),
			A: 255,
		}
		draw.Draw(img, image.Rect(x, y, x+w, y+h), &image.Uniform{c}, image.Point{}, draw.Src)
	}
	return img
}

// Uniform returns a blank image of a single colour.
func Uniform(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// Shift translates src by (dx, dy), filling uncovered pixels with the
// background grey used by Shapes.
func Shift(src image.Image, dx, dy int) *image.NRGBA {
	b := src.Bounds()
	out := Uniform(b.Dx(), b.Dy(), color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	draw.Draw(out, b.Add(image.Pt(dx, dy)), src, b.Min, draw.Src)
	return out
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
