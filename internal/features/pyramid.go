package features

import (
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// pyramidLevel is one downscaled copy of the input grid.
type pyramidLevel struct {
	Image *image.Gray
	Scale float64 // Level-0 pixels per level pixel
	Index int
}

// buildPyramid downsamples grid by scaleFactor per level. Levels that
// would be smaller than minSide in either dimension are not produced.
func buildPyramid(grid *image.Gray, levels int, scaleFactor float64, minSide int) []pyramidLevel {
	base := originGray(grid)
	w, h := base.Rect.Dx(), base.Rect.Dy()

	pyramid := make([]pyramidLevel, 0, levels)
	for i := 0; i < levels; i++ {
		scale := math.Pow(scaleFactor, float64(i))
		lw := int(math.Round(float64(w) / scale))
		lh := int(math.Round(float64(h) / scale))
		if lw < minSide || lh < minSide {
			break
		}

		img := base
		if i > 0 {
			img = toGray(resize.Resize(uint(lw), uint(lh), base, resize.Bilinear))
		}
		pyramid = append(pyramid, pyramidLevel{Image: img, Scale: scale, Index: i})
	}
	return pyramid
}

// levelBudgets splits total features across levels so that each level
// receives scaleFactor times fewer than the previous one.
func levelBudgets(total, levels int, scaleFactor float64) []int {
	budgets := make([]int, levels)
	if levels == 1 {
		budgets[0] = total
		return budgets
	}

	factor := 1.0 / scaleFactor
	desired := float64(total) * (1 - factor) / (1 - math.Pow(factor, float64(levels)))
	sum := 0
	for i := 0; i < levels-1; i++ {
		budgets[i] = int(math.Round(desired))
		sum += budgets[i]
		desired *= factor
	}
	budgets[levels-1] = max(total-sum, 0)
	return budgets
}

// originGray returns grid with its bounds starting at (0, 0), copying only
// when necessary.
func originGray(grid *image.Gray) *image.Gray {
	if grid.Rect.Min == (image.Point{}) {
		return grid
	}
	out := image.NewGray(image.Rect(0, 0, grid.Rect.Dx(), grid.Rect.Dy()))
	draw.Draw(out, out.Bounds(), grid, grid.Rect.Min, draw.Src)
	return out
}

// toGray converts any image to a zero-origin *image.Gray.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return originGray(g)
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
