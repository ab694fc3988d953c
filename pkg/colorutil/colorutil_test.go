package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHSVToRGBPrimaries(t *testing.T) {
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, HSVToRGB(0, 1, 1))
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, HSVToRGB(120, 1, 1))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, HSVToRGB(240, 1, 1))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, HSVToRGB(360, 1, 1))
	assert.Equal(t, White, HSVToRGB(42, 0, 1))
}

func TestMatchColorDeterministic(t *testing.T) {
	assert.Equal(t, MatchColor(7), MatchColor(7))
	assert.NotEqual(t, MatchColor(0), MatchColor(1))
	assert.Equal(t, uint8(255), MatchColor(3).A)
}
