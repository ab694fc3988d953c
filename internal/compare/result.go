package compare

import (
	"image"

	"orbsim/internal/features"
	orbimage "orbsim/internal/image"
	"orbsim/internal/match"
	"orbsim/internal/similarity"
	"orbsim/pkg/geometry"
)

// Outcome is the tri-state result of a comparison.
type Outcome int

const (
	// OutcomeOK means a similarity score was computed.
	OutcomeOK Outcome = iota
	// OutcomeNoResult means the images yielded no keypoints or no inliers.
	// It is not the same as 0% similar.
	OutcomeNoResult
	// OutcomeLoadFailure means an input could not be read or decoded.
	OutcomeLoadFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoResult:
		return "no-result"
	case OutcomeLoadFailure:
		return "load-failure"
	default:
		return "unknown"
	}
}

// ChannelResult is the immutable output of one channel of the pipeline.
// Match indices refer to this channel's keypoint slices.
type ChannelResult struct {
	Channel    orbimage.Channel
	Keypoints1 []features.Keypoint
	Keypoints2 []features.Keypoint
	Matches    int
	Inliers    []match.Match
	Homography geometry.Homography
	Found      bool
	// Skipped is set when either image produced no descriptors; the
	// channel then contributes nothing to the totals.
	Skipped bool
}

// Stats returns the counts fed to the similarity aggregate.
func (r ChannelResult) Stats() similarity.ChannelStats {
	return similarity.ChannelStats{
		Channel:    r.Channel,
		Keypoints1: len(r.Keypoints1),
		Keypoints2: len(r.Keypoints2),
		Matches:    r.Matches,
		Inliers:    len(r.Inliers),
	}
}

// Result is the outcome of comparing two images.
type Result struct {
	Outcome  Outcome
	Score    similarity.Score
	Channels []ChannelResult

	// Keypoints of all channels, concatenated in channel order.
	Keypoints1 []features.Keypoint
	Keypoints2 []features.Keypoint
	// Inliers of all channels with indices into Keypoints1 and Keypoints2,
	// ordered by ascending descriptor distance.
	Inliers []match.Match

	// Outline is the border of image 1 projected into image 2 through the
	// homography of the best supported channel; nil when none is convex.
	Outline []geometry.Point2D

	// Composite is the side-by-side rendering; nil unless Outcome is OK.
	Composite *image.RGBA
}

// Similarity returns the percentage and whether it could be determined.
func (r *Result) Similarity() (float64, bool) {
	if r == nil || r.Outcome != OutcomeOK {
		return 0, false
	}
	return r.Score.Percent, true
}
