// Package colorutil provides shared color utilities for drawing comparison overlays.
package colorutil

import (
	"image/color"
	"math"
)

// Common overlay colors.
var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// goldenAngle spreads consecutive hues evenly around the wheel.
const goldenAngle = 137.50776405003785

// HSVToRGB converts HSV (H 0-360, S and V 0-1) to an opaque RGBA color.
func HSVToRGB(h, s, v float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}

// MatchColor returns a saturated color for the i-th drawn correspondence.
// The sequence is deterministic so renders are reproducible.
func MatchColor(i int) color.RGBA {
	return HSVToRGB(float64(i)*goldenAngle, 0.85, 1.0)
}

// KeypointColor is used for unmatched keypoint markers.
func KeypointColor() color.RGBA {
	return color.RGBA{R: 0, G: 200, B: 255, A: 160}
}
