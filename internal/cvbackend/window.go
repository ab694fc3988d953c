//go:build withcv
// +build withcv

package cvbackend

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Show displays img in an OpenCV window titled title and blocks until a
// key is pressed.
func Show(title string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert composite to mat: %w", err)
	}
	defer mat.Close()

	window := gocv.NewWindow(title)
	defer window.Close()

	window.IMShow(mat)
	window.WaitKey(0)
	return nil
}
