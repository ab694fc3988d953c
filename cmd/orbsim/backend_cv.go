//go:build withcv
// +build withcv

package main

import (
	"fmt"
	"image"

	"orbsim/internal/config"
	"orbsim/internal/cvbackend"
	"orbsim/internal/features"
	"orbsim/ui/viewer"
)

// newDetector returns the detector for backend and a release function.
func newDetector(backend string, cfg config.Config) (features.Detector, func(), error) {
	switch backend {
	case "", "go":
		orb, err := features.NewORB(cfg.ORB())
		if err != nil {
			return nil, nil, err
		}
		return orb, func() {}, nil
	case "cv":
		orb, err := cvbackend.NewORB(cfg.ORB())
		if err != nil {
			return nil, nil, err
		}
		return orb, func() { orb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// display uses the OpenCV window for the cv backend and Fyne otherwise.
func display(backend, title string, img image.Image, status string) error {
	if backend == "cv" {
		return cvbackend.Show(title, img)
	}
	return viewer.Show(title, img, status)
}
