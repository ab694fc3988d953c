// Package similarity reduces per-channel match statistics into a single
// similarity percentage.
package similarity

import (
	"fmt"

	orbimage "orbsim/internal/image"
)

// ChannelStats are the counts produced by one channel of the pipeline.
type ChannelStats struct {
	Channel    orbimage.Channel `json:"channel"`
	Keypoints1 int              `json:"keypoints1"`
	Keypoints2 int              `json:"keypoints2"`
	Matches    int              `json:"matches"`
	Inliers    int              `json:"inliers"`
}

// Keypoints returns the keypoints detected in both images for this channel.
func (s ChannelStats) Keypoints() int {
	return s.Keypoints1 + s.Keypoints2
}

// Score is the aggregate over all channels.
type Score struct {
	TotalInliers   int     `json:"total_inliers"`
	TotalKeypoints int     `json:"total_keypoints"`
	Percent        float64 `json:"percent"`
	Determinable   bool    `json:"determinable"`
}

// String formats the score the way the command line reports it.
func (s Score) String() string {
	if !s.Determinable {
		return "undeterminable"
	}
	return fmt.Sprintf("%.2f%%", s.Percent)
}

// Aggregate sums the channel statistics and computes
//
//	percent = inliers / (keypoints / 2) * 100
//
// where keypoints counts both images. The divisor is the mean keypoint
// count per image, so the result is not bounded by 100 when the images
// have very different keypoint counts; it is reported as is.
// The score is undeterminable when either total is zero.
func Aggregate(stats []ChannelStats) Score {
	var s Score
	for _, c := range stats {
		s.TotalInliers += c.Inliers
		s.TotalKeypoints += c.Keypoints()
	}
	if s.TotalKeypoints == 0 || s.TotalInliers == 0 {
		return s
	}

	s.Percent = float64(s.TotalInliers) / (float64(s.TotalKeypoints) / 2) * 100
	s.Determinable = true
	return s
}
