//go:build !withcv
// +build !withcv

package main

import (
	"fmt"
	"image"

	"orbsim/internal/config"
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
		return nil, nil, fmt.Errorf("backend %q requires a build with -tags withcv", backend)
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func display(_ string, title string, img image.Image, status string) error {
	return viewer.Show(title, img, status)
}
