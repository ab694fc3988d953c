//go:build withcv
// +build withcv

package cvbackend

import (
	"image"
	"testing"

	"orbsim/internal/features"
	orbimage "orbsim/internal/image"
	"orbsim/internal/testimage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestORBDetect(t *testing.T) {
	orb, err := NewORB(features.DefaultORBConfig())
	require.NoError(t, err)
	defer orb.Close()

	grid := orbimage.Split(testimage.Shapes(320, 240, 40, 1), orbimage.DefaultChannelOrder)[0]
	kps, descs, err := orb.Detect(grid, 200)
	require.NoError(t, err)
	require.NotEmpty(t, kps)
	assert.Len(t, descs, len(kps))
	assert.LessOrEqual(t, len(kps), 200)
}

func TestORBDetectBlank(t *testing.T) {
	orb, err := NewORB(features.DefaultORBConfig())
	require.NoError(t, err)
	defer orb.Close()

	kps, descs, err := orb.Detect(image.NewGray(image.Rect(0, 0, 100, 100)), 0)
	require.NoError(t, err)
	assert.Empty(t, kps)
	assert.Empty(t, descs)
}
