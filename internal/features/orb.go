package features

import (
	"fmt"
	"image"
	"math"
	"sort"

	"orbsim/pkg/geometry"
)

// ORBConfig holds the parameters of the pure Go ORB detector.
type ORBConfig struct {
	MaxFeatures   int     `json:"max_features"`   // Default budget when Detect is given <= 0
	ScaleFactor   float64 `json:"scale_factor"`   // Pyramid decimation ratio, > 1
	Levels        int     `json:"levels"`         // Number of pyramid levels
	EdgeThreshold int     `json:"edge_threshold"` // Border where no features are detected
	FastThreshold int     `json:"fast_threshold"` // FAST intensity threshold
	PatchSize     int     `json:"patch_size"`     // Orientation and descriptor patch diameter
}

// DefaultORBConfig returns the reference ORB parameters.
func DefaultORBConfig() ORBConfig {
	return ORBConfig{
		MaxFeatures:   500,
		ScaleFactor:   1.2,
		Levels:        8,
		EdgeThreshold: 31,
		FastThreshold: 20,
		PatchSize:     31,
	}
}

// Validate reports the first invalid field.
func (c ORBConfig) Validate() error {
	switch {
	case c.MaxFeatures <= 0:
		return fmt.Errorf("max features must be positive, got %d", c.MaxFeatures)
	case c.ScaleFactor <= 1:
		return fmt.Errorf("scale factor must be > 1, got %g", c.ScaleFactor)
	case c.Levels < 1:
		return fmt.Errorf("levels must be >= 1, got %d", c.Levels)
	case c.PatchSize < 7:
		return fmt.Errorf("patch size must be >= 7, got %d", c.PatchSize)
	case c.FastThreshold < 1:
		return fmt.Errorf("fast threshold must be >= 1, got %d", c.FastThreshold)
	case c.EdgeThreshold < 0:
		return fmt.Errorf("edge threshold must be >= 0, got %d", c.EdgeThreshold)
	}
	return nil
}

// ORB detects oriented FAST keypoints and computes rotated BRIEF
// descriptors. An ORB value is immutable and safe for concurrent use.
type ORB struct {
	cfg     ORBConfig
	umax    []int
	pattern []samplePair
	border  int
}

var _ Detector = (*ORB)(nil)

// NewORB creates a detector from cfg.
func NewORB(cfg ORBConfig) (*ORB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("orb config: %w", err)
	}

	half := cfg.PatchSize / 2
	sampleHalf := half - 2
	// Rotated samples reach sqrt(2) times the pattern half width.
	reach := int(math.Ceil(float64(sampleHalf)*math.Sqrt2)) + blurKernelSize/2
	border := max(cfg.EdgeThreshold, half+1, reach, harrisBlockSize/2+1)

	return &ORB{
		cfg:     cfg,
		umax:    circularExtent(half),
		pattern: newSamplePattern(sampleHalf),
		border:  border,
	}, nil
}

// Config returns the detector configuration.
func (o *ORB) Config() ORBConfig {
	return o.cfg
}

// Detect implements Detector.
func (o *ORB) Detect(grid *image.Gray, maxFeatures int) ([]Keypoint, []Descriptor, error) {
	if maxFeatures <= 0 {
		maxFeatures = o.cfg.MaxFeatures
	}
	if grid == nil || grid.Rect.Empty() {
		return []Keypoint{}, []Descriptor{}, nil
	}

	pyramid := buildPyramid(grid, o.cfg.Levels, o.cfg.ScaleFactor, 2*o.border+1)
	budgets := levelBudgets(maxFeatures, o.cfg.Levels, o.cfg.ScaleFactor)

	keypoints := make([]Keypoint, 0, maxFeatures)
	descriptors := make([]Descriptor, 0, maxFeatures)
	for _, level := range pyramid {
		kps, descs := o.detectLevel(level, budgets[level.Index])
		keypoints = append(keypoints, kps...)
		descriptors = append(descriptors, descs...)
	}
	return keypoints, descriptors, nil
}

// detectLevel finds at most budget features on one pyramid level.
func (o *ORB) detectLevel(level pyramidLevel, budget int) ([]Keypoint, []Descriptor) {
	if budget <= 0 {
		return nil, nil
	}

	corners := detectFAST(level.Image, o.cfg.FastThreshold, o.border)
	if len(corners) == 0 {
		return nil, nil
	}

	type ranked struct {
		corner
		response float64
	}
	candidates := make([]ranked, len(corners))
	for i, c := range corners {
		candidates[i] = ranked{corner: c, response: harrisResponse(level.Image, c.X, c.Y)}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.response != b.response {
			return a.response > b.response
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	if len(candidates) > budget {
		candidates = candidates[:budget]
	}

	smoothed := gaussianBlur(level.Image, blurKernelSize, blurSigma)
	keypoints := make([]Keypoint, len(candidates))
	descriptors := make([]Descriptor, len(candidates))
	for i, c := range candidates {
		angle := intensityCentroidAngle(level.Image, c.X, c.Y, o.umax)
		deg := angle * 180 / math.Pi
		if deg < 0 {
			deg += 360
		}
		keypoints[i] = Keypoint{
			Pt:       geometry.NewPoint2D(float64(c.X)*level.Scale, float64(c.Y)*level.Scale),
			Size:     float64(o.cfg.PatchSize) * level.Scale,
			Angle:    deg,
			Response: c.response,
			Octave:   level.Index,
		}
		descriptors[i] = steeredBRIEF(smoothed, c.X, c.Y, angle, o.pattern)
	}
	return keypoints, descriptors
}
