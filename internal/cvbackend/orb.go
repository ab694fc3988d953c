//go:build withcv
// +build withcv

package cvbackend

import (
	"fmt"
	"image"
	"sync"

	"orbsim/internal/features"
	"orbsim/pkg/geometry"

	"gocv.io/x/gocv"
)

// ORB wraps gocv.ORB as a features.Detector. The OpenCV object is not
// reentrant, so Detect calls are serialised.
type ORB struct {
	mu  sync.Mutex
	cfg features.ORBConfig
	orb gocv.ORB
	// budget is the feature count orb was created with.
	budget int
}

var _ features.Detector = (*ORB)(nil)

// NewORB creates an OpenCV ORB detector. Close must be called to release it.
func NewORB(cfg features.ORBConfig) (*ORB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("orb config: %w", err)
	}
	return &ORB{
		cfg:    cfg,
		orb:    newGocvORB(cfg, cfg.MaxFeatures),
		budget: cfg.MaxFeatures,
	}, nil
}

func newGocvORB(cfg features.ORBConfig, maxFeatures int) gocv.ORB {
	return gocv.NewORBWithParams(
		maxFeatures,
		float32(cfg.ScaleFactor),
		cfg.Levels,
		cfg.EdgeThreshold,
		0, // first level
		2, // WTA_K
		gocv.ORBScoreTypeHarris,
		cfg.PatchSize,
		cfg.FastThreshold,
	)
}

// Detect implements features.Detector.
func (o *ORB) Detect(grid *image.Gray, maxFeatures int) ([]features.Keypoint, []features.Descriptor, error) {
	if maxFeatures <= 0 {
		maxFeatures = o.cfg.MaxFeatures
	}
	if grid == nil || grid.Rect.Empty() {
		return []features.Keypoint{}, []features.Descriptor{}, nil
	}

	src, err := gocv.ImageGrayToMatGray(grid)
	if err != nil {
		return nil, nil, fmt.Errorf("convert channel to mat: %w", err)
	}
	defer src.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	o.mu.Lock()
	if maxFeatures != o.budget {
		o.orb.Close()
		o.orb = newGocvORB(o.cfg, maxFeatures)
		o.budget = maxFeatures
	}
	kps, desc := o.orb.DetectAndCompute(src, mask)
	o.mu.Unlock()
	defer desc.Close()

	if desc.Empty() || len(kps) == 0 {
		return []features.Keypoint{}, []features.Descriptor{}, nil
	}
	if desc.Rows() != len(kps) {
		return nil, nil, fmt.Errorf("descriptor rows %d do not match %d keypoints", desc.Rows(), len(kps))
	}

	keypoints := make([]features.Keypoint, len(kps))
	descriptors := make([]features.Descriptor, len(kps))
	row := make([]byte, desc.Cols())
	for i, kp := range kps {
		keypoints[i] = features.Keypoint{
			Pt:       geometry.NewPoint2D(kp.X, kp.Y),
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
		for c := range row {
			row[c] = desc.GetUCharAt(i, c)
		}
		descriptors[i] = features.DescriptorFromBytes(row)
	}
	return keypoints, descriptors, nil
}

// Close releases the OpenCV detector.
func (o *ORB) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orb.Close()
}
