package features

import (
	"image"
)

// Implementation of the FAST segment test.
// Rosten, Edward; Tom Drummond (2005). Fusing points and lines for high performance tracking.

// fastArc is the number of contiguous circle pixels that must all be
// brighter or darker than the centre.
const fastArc = 9

// circleIdx contains the neighbours on a Bresenham circle of radius 3.
var circleIdx = [16]image.Point{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// corner is a FAST detection on one pyramid level.
type corner struct {
	X, Y  int
	Score float64
}

// detectFAST returns corners inside a border of the given width, after
// 3x3 non-maximum suppression on the segment score.
func detectFAST(img *image.Gray, threshold, border int) []corner {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if border < 3 {
		border = 3
	}
	if w <= 2*border || h <= 2*border {
		return nil
	}

	var offsets [16]int
	for i, p := range circleIdx {
		offsets[i] = p.Y*img.Stride + p.X
	}

	scores := make([]float64, w*h)
	var candidates []corner
	t := float64(threshold)

	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			pos := y*img.Stride + x
			center := float64(img.Pix[pos])
			hi, lo := center+t, center-t

			// Compass points: a 9-arc must cover at least two of them.
			var nb, nd int
			for _, k := range [4]int{0, 4, 8, 12} {
				v := float64(img.Pix[pos+offsets[k]])
				if v > hi {
					nb++
				} else if v < lo {
					nd++
				}
			}
			if nb < 2 && nd < 2 {
				continue
			}

			var vals [16]float64
			for k := range offsets {
				vals[k] = float64(img.Pix[pos+offsets[k]])
			}
			score, ok := segmentScore(vals, center, t)
			if !ok {
				continue
			}
			scores[y*w+x] = score
			candidates = append(candidates, corner{X: x, Y: y, Score: score})
		}
	}

	return suppressNonMaxima(candidates, scores, w)
}

// segmentScore checks for an arc of fastArc brighter or darker pixels and
// returns the summed excess over the threshold on the winning side.
func segmentScore(vals [16]float64, center, t float64) (float64, bool) {
	var bright, dark [16]bool
	var bSum, dSum float64
	for i, v := range vals {
		if d := v - center - t; d > 0 {
			bright[i] = true
			bSum += d
		} else if d := center - t - v; d > 0 {
			dark[i] = true
			dSum += d
		}
	}

	isBright := longestRun(bright) >= fastArc
	isDark := longestRun(dark) >= fastArc
	switch {
	case isBright && isDark:
		return max(bSum, dSum), true
	case isBright:
		return bSum, true
	case isDark:
		return dSum, true
	}
	return 0, false
}

// longestRun returns the longest circular run of set flags.
func longestRun(flags [16]bool) int {
	best, run := 0, 0
	for i := 0; i < len(flags)+fastArc; i++ {
		if flags[i%16] {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return min(best, 16)
}

// suppressNonMaxima keeps corners that are maximal in their 3x3 window.
// Equal scores are resolved in favour of the earlier pixel in raster order.
func suppressNonMaxima(candidates []corner, scores []float64, w int) []corner {
	kept := make([]corner, 0, len(candidates))
	for _, c := range candidates {
		idx := c.Y*w + c.X
		suppressed := false
		for dy := -1; dy <= 1 && !suppressed; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				n := idx + dy*w + dx
				s := scores[n]
				if s > c.Score || (s == c.Score && s > 0 && n < idx) {
					suppressed = true
					break
				}
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}
